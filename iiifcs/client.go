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

// Package iiifcs publishes manifests to the IIIF cloud service with
// ETag-gated writes.
package iiifcs

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/uol-library/iiif-builder/manifest"
	"github.com/uol-library/iiif-builder/settings"
)

// Publisher writes manifests to the IIIF cloud service.
type Publisher interface {
	// Publish reads the current manifest at uri, marks assets that
	// need re-ingesting, then PUTs the new manifest gated on the ETag
	// it read.
	Publish(uri string, m *manifest.Manifest) error
}

// NewPublisher builds a publisher sharing httpClient with the rest of
// the process. Credentials are the raw user:pass pair from
// configuration, base64-encoded here.
func NewPublisher(httpClient *http.Client, s *settings.Settings) Publisher {
	return &publisher{
		logger:        logrus.WithField("client", "iiif-cs"),
		client:        httpClient,
		authorization: "Basic " + base64.StdEncoding.EncodeToString([]byte(s.IIIFCSBasicCredentials)),
	}
}

type publisher struct {
	logger        *logrus.Entry
	client        *http.Client
	authorization string
}

var _ Publisher = &publisher{}

// existingManifest is the slice of the cloud service's response the
// re-ingest classification needs.
type existingManifest struct {
	PaintedResources []struct {
		Asset struct {
			ID     string `json:"id"`
			Origin string `json:"origin"`
		} `json:"asset"`
	} `json:"paintedResources"`
}

func (p *publisher) Publish(uri string, m *manifest.Manifest) error {
	etag, existing, err := p.read(uri)
	if err != nil {
		return err
	}
	classifyReingest(m, existing)
	return p.write(uri, m, etag)
}

// read fetches the stored manifest. A 404 means first publication: no
// ETag, and an empty manifest so every asset classifies as new.
func (p *publisher) read(uri string) (string, *existingManifest, error) {
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Authorization", p.authorization)
	req.Header.Set("X-IIIF-CS-Show-Extras", "All")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("uri", uri).Error("IIIF-CS read failed.")
		return "", nil, fmt.Errorf("IIIF-CS request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.WithError(err).Warn("could not close response body")
		}
	}()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return "", &existingManifest{}, nil
	case http.StatusOK:
		raw, err := ioutil.ReadAll(resp.Body)
		if err != nil {
			return "", nil, fmt.Errorf("could not read IIIF-CS response body: %v", err)
		}
		var existing existingManifest
		if err := json.Unmarshal(raw, &existing); err != nil {
			return "", nil, fmt.Errorf("could not parse existing manifest: %v", err)
		}
		return resp.Header.Get("ETag"), &existing, nil
	default:
		p.logger.WithFields(logrus.Fields{"uri": uri, "status": resp.StatusCode}).Error("IIIF-CS returned an error status on read.")
		return "", nil, fmt.Errorf("IIIF-CS returned status %d", resp.StatusCode)
	}
}

func (p *publisher) write(uri string, m *manifest.Manifest, etag string) error {
	body, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("could not serialise manifest: %v", err)
	}
	req, err := http.NewRequest(http.MethodPut, uri, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", p.authorization)
	req.Header.Set("Content-Type", "application/json")
	if etag != "" {
		req.Header.Set("If-Match", etag)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.WithError(err).WithField("uri", uri).Error("IIIF-CS write failed.")
		return fmt.Errorf("IIIF-CS request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			p.logger.WithError(err).Warn("could not close response body")
		}
	}()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		p.logger.WithFields(logrus.Fields{"uri": uri, "status": resp.StatusCode}).Error("IIIF-CS returned an error status on write.")
		return fmt.Errorf("IIIF-CS returned status %d", resp.StatusCode)
	}
	return nil
}

// classifyReingest marks the first occurrence of each asset that is
// new to the cloud service or whose origin has moved. Repeats of the
// same asset id are left unmarked so the service ingests each binary
// once.
func classifyReingest(m *manifest.Manifest, existing *existingManifest) {
	known := map[string]string{}
	for _, pr := range existing.PaintedResources {
		if _, ok := known[pr.Asset.ID]; !ok {
			known[pr.Asset.ID] = pr.Asset.Origin
		}
	}

	seen := map[string]bool{}
	for _, pr := range m.PaintedResources {
		if seen[pr.Asset.ID] {
			continue
		}
		seen[pr.Asset.ID] = true
		origin, ok := known[pr.Asset.ID]
		if !ok || origin != pr.Asset.Origin {
			pr.Reingest = true
		}
	}
}
