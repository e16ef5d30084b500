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

package preservation

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/uol-library/iiif-builder/settings"
)

func newTestClient() Client {
	return NewClient(http.DefaultClient, &settings.Settings{
		ClientIdentityHeader: "X-Client-Identity",
		ClientIdentity:       "iiif-builder-test",
	})
}

func TestActivitiesWalksPagesNewestFirst(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"last": {"id": "%s/activity/page/2"}}`, server.URL)
	})
	mux.HandleFunc("/activity/page/2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{
			"orderedItems": [
				{"endTime": "2025-05-03T08:00:00Z", "type": "Update", "object": {"id": "https://repo.example/repository/cc/C3"}},
				{"endTime": "2025-05-04T07:00:00Z", "type": "Create", "object": {"id": "https://repo.example/repository/cc/D4"}}
			],
			"prev": {"id": "%s/activity/page/1"}
		}`, server.URL)
	})
	mux.HandleFunc("/activity/page/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"orderedItems": [
				{"endTime": "2025-05-01T10:00:00Z", "type": "Create", "object": {"id": "https://repo.example/repository/cc/A1"}},
				{"endTime": "2025-05-02T09:00:00Z", "type": "Update", "object": {"id": "https://repo.example/repository/cc/B2"}}
			]
		}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient()
	activities, err := client.Activities(server.URL+"/activity", time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal("Activities failed:", err)
	}

	// Collection order is newest-first; the watermark activity itself
	// (endTime == since) is excluded.
	expected := []Activity{
		{EndTime: time.Date(2025, 5, 4, 7, 0, 0, 0, time.UTC), Type: "Create", ArchivalGroupURI: "https://repo.example/repository/cc/D4"},
		{EndTime: time.Date(2025, 5, 3, 8, 0, 0, 0, time.UTC), Type: "Update", ArchivalGroupURI: "https://repo.example/repository/cc/C3"},
		{EndTime: time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC), Type: "Update", ArchivalGroupURI: "https://repo.example/repository/cc/B2"},
	}
	if !reflect.DeepEqual(activities, expected) {
		t.Errorf("activities = %+v, expected %+v", activities, expected)
	}
}

func TestActivitiesStopsAtWatermark(t *testing.T) {
	pagesFetched := 0
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"last": {"id": "%s/activity/page/2"}}`, server.URL)
	})
	mux.HandleFunc("/activity/page/2", func(w http.ResponseWriter, r *http.Request) {
		pagesFetched++
		fmt.Fprintf(w, `{
			"orderedItems": [
				{"endTime": "2025-05-01T10:00:00Z", "type": "Create", "object": {"id": "https://repo.example/repository/cc/A1"}},
				{"endTime": "2025-05-02T09:00:00Z", "type": "Update", "object": {"id": "https://repo.example/repository/cc/B2"}}
			],
			"prev": {"id": "%s/activity/page/1"}
		}`, server.URL)
	})
	mux.HandleFunc("/activity/page/1", func(w http.ResponseWriter, r *http.Request) {
		pagesFetched++
		t.Error("walk should have stopped before the oldest page")
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient()
	activities, err := client.Activities(server.URL+"/activity", time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal("Activities failed:", err)
	}
	if len(activities) != 1 || activities[0].ArchivalGroupURI != "https://repo.example/repository/cc/B2" {
		t.Errorf("activities = %+v, expected only B2", activities)
	}
	if pagesFetched != 1 {
		t.Errorf("fetched %d pages, expected 1", pagesFetched)
	}
}

func TestActivitiesSkipsMissingEndTime(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"last": {"id": "%s/activity/page/1"}}`, server.URL)
	})
	mux.HandleFunc("/activity/page/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{
			"orderedItems": [
				{"type": "Create", "object": {"id": "https://repo.example/repository/cc/NOTIME"}},
				{"endTime": "2025-05-02T09:00:00Z", "type": "Update", "object": {"id": "https://repo.example/repository/cc/B2"}}
			]
		}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient()
	activities, err := client.Activities(server.URL+"/activity", time.Time{})
	if err != nil {
		t.Fatal("Activities failed:", err)
	}
	if len(activities) != 1 || activities[0].ArchivalGroupURI != "https://repo.example/repository/cc/B2" {
		t.Errorf("activities = %+v, expected only B2", activities)
	}
}

func TestActivitiesBadTimestampFailsPoll(t *testing.T) {
	var server *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/activity", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"last": {"id": "%s/activity/page/1"}}`, server.URL)
	})
	mux.HandleFunc("/activity/page/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"orderedItems": [{"endTime": "yesterday", "type": "Create", "object": {"id": "x"}}]}`)
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	client := newTestClient()
	if _, err := client.Activities(server.URL+"/activity", time.Time{}); err == nil {
		t.Error("expected a parse error for malformed endTime")
	}
}

func TestActivitiesErrorStatusFailsPoll(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient()
	if _, err := client.Activities(server.URL+"/activity", time.Time{}); err == nil {
		t.Error("expected an error for non-2xx status")
	}
}

func TestArchivalGroup(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Client-Identity"); got != "iiif-builder-test" {
			t.Errorf("X-Client-Identity = %q", got)
		}
		fmt.Fprint(w, `{
			"origin": "s3://preservation/cc/ABCD1234",
			"storageMap": {"files": {"objects/01.jpg": {"fullPath": "v1/content/objects/01.jpg"}}}
		}`)
	}))
	defer server.Close()

	client := newTestClient()
	ag, err := client.ArchivalGroup(server.URL + "/repository/cc/ABCD1234")
	if err != nil {
		t.Fatal("ArchivalGroup failed:", err)
	}
	if ag.Origin != "s3://preservation/cc/ABCD1234" {
		t.Errorf("origin = %q", ag.Origin)
	}
	entry, ok := ag.StorageMap.Files["objects/01.jpg"]
	if !ok || entry.FullPath != "v1/content/objects/01.jpg" {
		t.Errorf("storage map = %+v", ag.StorageMap.Files)
	}
}

func TestMETSUsesViewQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("view") != "mets" {
			t.Errorf("expected ?view=mets, got %q", r.URL.RawQuery)
		}
		fmt.Fprint(w, `<mets xmlns:xlink="http://www.w3.org/1999/xlink">
  <fileSec><fileGrp><file ID="f1" MIMETYPE="image/jpeg"><FLocat xlink:href="objects/01.jpg"/></file></fileGrp></fileSec>
  <structMap TYPE="physical"><div LABEL="objects"><div LABEL="01"><fptr FILEID="f1"/></div></div></structMap>
</mets>`)
	}))
	defer server.Close()

	client := newTestClient()
	wrapper, err := client.METS(server.URL + "/repository/cc/ABCD1234")
	if err != nil {
		t.Fatal("METS failed:", err)
	}
	root := wrapper.PhysicalStructure()
	if len(root.Directories) != 1 || len(root.Directories[0].Files) != 1 {
		t.Fatalf("unexpected tree: %+v", root)
	}
	if root.Directories[0].Files[0].LocalPath != "objects/01.jpg" {
		t.Errorf("local path = %q", root.Directories[0].Files[0].LocalPath)
	}
}
