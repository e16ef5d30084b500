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

// Package preservation reads the preservation repository: the
// ActivityStreams feed, archival-group JSON and METS XML.
package preservation

import (
	"context"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/uol-library/iiif-builder/mets"
	"github.com/uol-library/iiif-builder/settings"
)

// Activity is one change event from the stream, identified by its end
// time.
type Activity struct {
	EndTime          time.Time
	Type             string
	ArchivalGroupURI string
}

// ArchivalGroup is the repository's JSON view of a bundle.
type ArchivalGroup struct {
	Origin     string     `json:"origin"`
	StorageMap StorageMap `json:"storageMap"`
}

// StorageMap maps local relative paths to per-file storage suffixes.
type StorageMap struct {
	Files map[string]StorageMapEntry `json:"files"`
}

// StorageMapEntry is the suffix appended to the archival group's
// origin to address one binary.
type StorageMapEntry struct {
	FullPath string `json:"fullPath"`
}

// Client reads from the preservation repository.
type Client interface {
	// Activities returns every activity strictly newer than since,
	// collected newest-first by walking the feed from its last page
	// backwards. Callers wanting oldest-first processing iterate the
	// result in reverse.
	Activities(streamURI string, since time.Time) ([]Activity, error)
	ArchivalGroup(uri string) (*ArchivalGroup, error)
	METS(uri string) (*mets.Wrapper, error)
}

// NewClient builds a preservation client sharing httpClient with the
// rest of the process. When client credentials are configured, tokens
// come from a cached OAuth2 client-credentials source and are renewed
// silently on expiry.
func NewClient(httpClient *http.Client, s *settings.Settings) Client {
	c := &client{
		logger:         logrus.WithField("client", "preservation"),
		client:         httpClient,
		identityHeader: s.ClientIdentityHeader,
		identity:       s.ClientIdentity,
	}
	if s.PreservationClientID != "" {
		config := &clientcredentials.Config{
			ClientID:     s.PreservationClientID,
			ClientSecret: s.PreservationClientSecret,
			TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", s.PreservationClientTenantID),
		}
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		c.tokens = config.TokenSource(ctx)
	}
	return c
}

type client struct {
	logger         *logrus.Entry
	client         *http.Client
	tokens         oauth2.TokenSource
	identityHeader string
	identity       string
}

var _ Client = &client{}

// activityStreamsCollection is the top-level feed document.
type activityStreamsCollection struct {
	Last pageRef `json:"last"`
}

type pageRef struct {
	ID string `json:"id"`
}

type activityStreamsPage struct {
	OrderedItems []activityItem `json:"orderedItems"`
	Prev         pageRef        `json:"prev"`
}

type activityItem struct {
	EndTime string `json:"endTime"`
	Type    string `json:"type"`
	Object  struct {
		ID string `json:"id"`
	} `json:"object"`
}

func (c *client) Activities(streamURI string, since time.Time) ([]Activity, error) {
	raw, err := c.get(streamURI)
	if err != nil {
		return nil, err
	}
	var coll activityStreamsCollection
	if err := json.Unmarshal(raw, &coll); err != nil {
		return nil, fmt.Errorf("could not parse activity stream collection: %v", err)
	}

	var activities []Activity
	pageURI := coll.Last.ID
	for pageURI != "" {
		raw, err := c.get(pageURI)
		if err != nil {
			return nil, err
		}
		var page activityStreamsPage
		if err := json.Unmarshal(raw, &page); err != nil {
			return nil, fmt.Errorf("could not parse activity stream page: %v", err)
		}
		// Pages are oldest-first, so walk each page backwards; the
		// first endTime at or before the watermark ends the whole
		// collection.
		for i := len(page.OrderedItems) - 1; i >= 0; i-- {
			item := page.OrderedItems[i]
			if item.EndTime == "" {
				continue
			}
			endTime, err := time.Parse(time.RFC3339, item.EndTime)
			if err != nil {
				return nil, fmt.Errorf("could not parse activity endTime %q: %v", item.EndTime, err)
			}
			if !endTime.After(since) {
				return activities, nil
			}
			activities = append(activities, Activity{
				EndTime:          endTime,
				Type:             item.Type,
				ArchivalGroupURI: item.Object.ID,
			})
		}
		pageURI = page.Prev.ID
	}
	return activities, nil
}

func (c *client) ArchivalGroup(uri string) (*ArchivalGroup, error) {
	raw, err := c.get(uri)
	if err != nil {
		return nil, err
	}
	var ag ArchivalGroup
	if err := json.Unmarshal(raw, &ag); err != nil {
		return nil, fmt.Errorf("could not parse archival group: %v", err)
	}
	return &ag, nil
}

func (c *client) METS(uri string) (*mets.Wrapper, error) {
	raw, err := c.get(uri + "?view=mets")
	if err != nil {
		return nil, err
	}
	return mets.Parse(raw)
}

// get performs an authenticated read. Transport errors and non-2xx
// responses fail with a short generic message; the detail is logged.
func (c *client) get(uri string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	if c.tokens != nil {
		token, err := c.tokens.Token()
		if err != nil {
			c.logger.WithError(err).Error("Could not obtain preservation API token.")
			return nil, fmt.Errorf("could not authenticate with preservation API")
		}
		req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	}
	req.Header.Set(c.identityHeader, c.identity)

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("uri", uri).Error("Preservation API request failed.")
		return nil, fmt.Errorf("preservation API request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("could not close response body")
		}
	}()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.WithFields(logrus.Fields{"uri": uri, "status": resp.StatusCode}).Error("Preservation API returned an error status.")
		return nil, fmt.Errorf("preservation API returned status %d", resp.StatusCode)
	}
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %v", err)
	}
	return raw, nil
}
