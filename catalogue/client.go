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

// Package catalogue fetches descriptive metadata for a resolved
// archival group.
package catalogue

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Record is the catalogue's descriptive-metadata document.
type Record struct {
	Data map[string]interface{} `json:"data"`
}

// Reader fetches catalogue records.
type Reader interface {
	Read(uri string) (*Record, error)
}

// NewClient builds a catalogue client authenticated with the
// configured API-key header.
func NewClient(httpClient *http.Client, keyHeader, keyValue string) Reader {
	return &client{
		logger:    logrus.WithField("client", "catalogue"),
		client:    httpClient,
		keyHeader: keyHeader,
		keyValue:  keyValue,
	}
}

type client struct {
	logger    *logrus.Entry
	client    *http.Client
	keyHeader string
	keyValue  string
}

var _ Reader = &client{}

func (c *client) Read(uri string) (*Record, error) {
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if c.keyValue != "" {
		req.Header.Set(c.keyHeader, c.keyValue)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("uri", uri).Error("Catalogue API request failed.")
		return nil, fmt.Errorf("catalogue API request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("could not close response body")
		}
	}()
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		// Error responses sometimes carry a JSON body with an error
		// field worth surfacing to operators.
		var body struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
			return nil, fmt.Errorf("Catalogue API returned HTTP status %d: %s", resp.StatusCode, body.Error)
		}
		return nil, fmt.Errorf("Catalogue API returned HTTP status %d", resp.StatusCode)
	}
	var record Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("could not parse catalogue record: %v", err)
	}
	return &record, nil
}
