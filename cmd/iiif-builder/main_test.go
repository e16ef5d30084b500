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

package main

import (
	"net/http"
	"testing"

	"github.com/uol-library/iiif-builder/settings"
)

func TestNewHTTPClientDefaultTransport(t *testing.T) {
	client := newHTTPClient(&settings.Settings{
		PreservationActivityStream: "https://preservation.leeds.ac.uk/activity",
	})
	if client.Transport != nil {
		t.Error("a production stream must use the default transport")
	}
}

func TestNewHTTPClientLocalhostStream(t *testing.T) {
	client := newHTTPClient(&settings.Settings{
		PreservationActivityStream: "https://localhost:8443/activity",
	})
	transport, ok := client.Transport.(*localhostInsecureTransport)
	if !ok {
		t.Fatalf("transport is %T, expected a localhost-aware one", client.Transport)
	}

	// Only requests to localhost skip certificate verification; other
	// backends keep the default, verifying transport.
	insecure, ok := transport.pick("localhost").(*http.Transport)
	if !ok || insecure.TLSClientConfig == nil || !insecure.TLSClientConfig.InsecureSkipVerify {
		t.Error("localhost requests must use the unverified transport")
	}
	if transport.pick("id.library.leeds.ac.uk") != http.DefaultTransport {
		t.Error("non-localhost requests must use the default transport")
	}
}
