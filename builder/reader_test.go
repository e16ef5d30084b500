/*
Copyright 2025 The IIIF-Builder Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package builder

import (
	"fmt"
	"testing"
	"time"

	"github.com/uol-library/iiif-builder/mets"
	"github.com/uol-library/iiif-builder/preservation"
)

type fakeStream struct {
	since      time.Time
	activities []preservation.Activity
	err        error
}

func (f *fakeStream) Activities(streamURI string, since time.Time) ([]preservation.Activity, error) {
	f.since = since
	return f.activities, f.err
}

func (f *fakeStream) ArchivalGroup(uri string) (*preservation.ArchivalGroup, error) {
	return nil, fmt.Errorf("not implemented")
}

func (f *fakeStream) METS(uri string) (*mets.Wrapper, error) {
	return nil, fmt.Errorf("not implemented")
}

type recordingProcessor struct {
	processed []string
	after     func()
	err       error
}

func (p *recordingProcessor) Process(activity preservation.Activity) error {
	p.processed = append(p.processed, activity.ArchivalGroupURI)
	if p.after != nil {
		p.after()
	}
	return p.err
}

func newActivities(uris ...string) []preservation.Activity {
	activities := make([]preservation.Activity, 0, len(uris))
	end := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i, uri := range uris {
		activities = append(activities, preservation.Activity{
			EndTime:          end.Add(time.Duration(-i) * time.Minute),
			Type:             "Update",
			ArchivalGroupURI: uri,
		})
	}
	return activities
}

func TestPollProcessesOldestFirst(t *testing.T) {
	watermark := time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{latest: watermark}
	// Newest first, as the stream client returns them.
	stream := &fakeStream{activities: newActivities("ag/c", "ag/b", "ag/a")}
	proc := &recordingProcessor{}
	reader := NewReader(store, stream, proc, "https://p.example/activity", time.Minute)

	if err := reader.Poll(nil); err != nil {
		t.Fatal("Poll failed:", err)
	}

	if !stream.since.Equal(watermark) {
		t.Errorf("stream read from %v, expected the stored watermark %v", stream.since, watermark)
	}
	expected := []string{"ag/a", "ag/b", "ag/c"}
	if len(proc.processed) != len(expected) {
		t.Fatalf("processed %d activities, expected %d", len(proc.processed), len(expected))
	}
	for i, uri := range expected {
		if proc.processed[i] != uri {
			t.Errorf("processed[%d] = %q, expected %q", i, proc.processed[i], uri)
		}
	}
}

func TestPollStopsBetweenJobs(t *testing.T) {
	stop := make(chan struct{})
	proc := &recordingProcessor{}
	proc.after = func() { close(stop) }
	stream := &fakeStream{activities: newActivities("ag/c", "ag/b", "ag/a")}
	reader := NewReader(&fakeStore{}, stream, proc, "https://p.example/activity", time.Minute)

	if err := reader.Poll(stop); err != nil {
		t.Fatal("Poll failed:", err)
	}
	if len(proc.processed) != 1 {
		t.Errorf("processed %d activities after stop, expected 1", len(proc.processed))
	}
}

func TestPollStreamErrorPropagates(t *testing.T) {
	stream := &fakeStream{err: fmt.Errorf("preservation API request failed")}
	reader := NewReader(&fakeStore{}, stream, &recordingProcessor{}, "https://p.example/activity", time.Minute)

	if err := reader.Poll(nil); err == nil {
		t.Error("expected the stream error to propagate")
	}
}

func TestPollProcessErrorStopsCycle(t *testing.T) {
	stream := &fakeStream{activities: newActivities("ag/b", "ag/a")}
	proc := &recordingProcessor{err: fmt.Errorf("database is on fire")}
	reader := NewReader(&fakeStore{}, stream, proc, "https://p.example/activity", time.Minute)

	if err := reader.Poll(nil); err == nil {
		t.Error("expected the processing error to propagate")
	}
	if len(proc.processed) != 1 {
		t.Errorf("processed %d activities, expected the cycle to stop after the first failure", len(proc.processed))
	}
}

func TestRunStops(t *testing.T) {
	stop := make(chan struct{})
	close(stop)
	reader := NewReader(&fakeStore{}, &fakeStream{}, &recordingProcessor{}, "https://p.example/activity", time.Hour)

	done := make(chan struct{})
	go func() {
		reader.Run(stop)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after stop was closed")
	}
}
