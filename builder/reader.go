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
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uol-library/iiif-builder/preservation"
)

// processor lets tests observe the jobs a poll hands over.
type processor interface {
	Process(activity preservation.Activity) error
}

var _ processor = &Coordinator{}

// Reader is the poll loop. It re-reads the watermark from the database
// on every cycle and feeds new activities to the coordinator oldest
// first, one at a time.
type Reader struct {
	logger      *logrus.Entry
	store       jobStore
	client      preservation.Client
	coordinator processor
	streamURI   string
	interval    time.Duration
}

// NewReader builds the poll loop.
func NewReader(store jobStore, client preservation.Client, coordinator processor, streamURI string, interval time.Duration) *Reader {
	return &Reader{
		logger:      logrus.WithField("component", "reader"),
		store:       store,
		client:      client,
		coordinator: coordinator,
		streamURI:   streamURI,
		interval:    interval,
	}
}

// Run polls until stop is closed. The sleep between polls is
// interruptible; an in-flight job is always finished before returning.
func (r *Reader) Run(stop <-chan struct{}) {
	for {
		if err := r.Poll(stop); err != nil {
			r.logger.WithError(err).Error("Poll failed.")
		}
		select {
		case <-stop:
			r.logger.Info("Shutting down.")
			return
		case <-time.After(r.interval):
		}
	}
}

// Poll runs one read-process cycle. Between jobs it checks stop, so a
// shutdown request never abandons a half-processed activity.
func (r *Reader) Poll(stop <-chan struct{}) error {
	since, err := r.store.LatestEndTime()
	if err != nil {
		return err
	}
	activities, err := r.client.Activities(r.streamURI, since)
	if err != nil {
		return err
	}
	if len(activities) == 0 {
		r.logger.WithField("since", since).Debug("No new activities.")
		return nil
	}
	r.logger.WithFields(logrus.Fields{"since": since, "count": len(activities)}).Info("Found new activities.")

	// Activities arrive newest-first; process oldest-first so the
	// watermark only ever moves forward past completed work.
	for i := len(activities) - 1; i >= 0; i-- {
		select {
		case <-stop:
			return nil
		default:
		}
		if err := r.coordinator.Process(activities[i]); err != nil {
			return err
		}
	}
	return nil
}
