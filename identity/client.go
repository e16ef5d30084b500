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

// Package identity resolves archival-group URIs to their stable public
// identifiers via the identity service, and derives the internal IIIF
// cloud service URIs from the public manifest URI.
package identity

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/uol-library/iiif-builder/settings"
)

// Identity is the resolved view of one archival group.
type Identity struct {
	PID             string
	ManifestURI     string
	CatalogueAPIURI string
	Catirn          string
}

// InternalURIs are the IIIF cloud service addresses synthesised from
// the public manifest URI.
type InternalURIs struct {
	PublicManifestURI string
	APIManifestURI    string
	CanvasIDPrefix    string
	AssetPrefix       string
}

// Client resolves archival groups against the identity service.
type Client interface {
	Resolve(archivalGroupURI string) (*Identity, error)
}

// NewClient builds an identity service client on the shared HTTP
// client.
func NewClient(httpClient *http.Client, s *settings.Settings) Client {
	return &client{
		logger:           logrus.WithField("client", "identity"),
		client:           httpClient,
		baseURL:          strings.TrimSuffix(s.IdentityServiceBaseURL, "/"),
		apiHeader:        s.IdentityServiceAPIHeader,
		apiKey:           s.IdentityServiceAPIKey,
		containerAliases: s.ContainerAliases,
		hostAliases:      s.HostAliases,
	}
}

type client struct {
	logger           *logrus.Entry
	client           *http.Client
	baseURL          string
	apiHeader        string
	apiKey           string
	containerAliases []settings.Alias
	hostAliases      []settings.Alias
}

var _ Client = &client{}

type idsResponse struct {
	Results []struct {
		ID              string `json:"id"`
		ManifestURI     string `json:"manifesturi"`
		CatalogueAPIURI string `json:"catalogueapiuri"`
		Catirn          string `json:"catirn"`
		RepositoryURI   string `json:"repositoryuri"`
	} `json:"results"`
}

// Resolve looks up the archival group and expects exactly one result.
func (c *client) Resolve(archivalGroupURI string) (*Identity, error) {
	mutated := MutateURI(archivalGroupURI, c.containerAliases, c.hostAliases)
	queryURL := fmt.Sprintf("%s/ids?q=%s&s=repositoryuri", c.baseURL, url.QueryEscape(mutated))

	req, err := http.NewRequest(http.MethodGet, queryURL, nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set(c.apiHeader, c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.WithError(err).WithField("uri", queryURL).Error("Identity service request failed.")
		return nil, fmt.Errorf("identity service request failed")
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.logger.WithError(err).Warn("could not close response body")
		}
	}()
	if resp.StatusCode != http.StatusOK {
		c.logger.WithFields(logrus.Fields{"uri": queryURL, "status": resp.StatusCode}).Error("Identity service returned an error status.")
		return nil, fmt.Errorf("identity service returned status %d", resp.StatusCode)
	}
	raw, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read response body: %v", err)
	}
	var parsed idsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("could not parse identity service response: %v", err)
	}

	switch len(parsed.Results) {
	case 0:
		return nil, fmt.Errorf("No results found for AG %s", archivalGroupURI)
	case 1:
		result := parsed.Results[0]
		return &Identity{
			PID:             result.ID,
			ManifestURI:     result.ManifestURI,
			CatalogueAPIURI: result.CatalogueAPIURI,
			Catirn:          result.Catirn,
		}, nil
	default:
		return nil, fmt.Errorf("Multiple results (%d) found for AG %s", len(parsed.Results), archivalGroupURI)
	}
}

// MutateURI applies the container alias (penultimate path segment,
// last two segments only) and then the host alias (dropping any
// explicit port). Both rewrites exist so dev/test environments can
// query an identity service seeded with production URIs.
func MutateURI(uri string, containerAliases, hostAliases []settings.Alias) string {
	parsed, err := url.Parse(uri)
	if err != nil {
		return uri
	}

	segments := strings.Split(strings.Trim(parsed.Path, "/"), "/")
	if len(segments) >= 2 {
		penultimate := &segments[len(segments)-2]
		for _, alias := range containerAliases {
			if *penultimate == alias.Src {
				*penultimate = alias.Dst
				break
			}
		}
		parsed.Path = "/" + strings.Join(segments, "/")
	}

	for _, alias := range hostAliases {
		if parsed.Host == alias.Src || parsed.Hostname() == alias.Src {
			parsed.Host = alias.Dst
			break
		}
	}

	return parsed.String()
}

// GetInternalURIs derives the IIIF cloud service addresses for a
// resolved archival group. The configured public prefix is stripped
// from the manifest URI with a true prefix strip.
func GetInternalURIs(s *settings.Settings, manifestURI, pid string) InternalURIs {
	pathPart := strings.TrimPrefix(manifestURI, s.RewrittenPublicIIIFPresentationPrefix)
	base := fmt.Sprintf("%s/%s", strings.TrimSuffix(s.IIIFCSPresentationHost, "/"), s.IIIFCSCustomerID)
	return InternalURIs{
		PublicManifestURI: fmt.Sprintf("%s/%s", base, pathPart),
		APIManifestURI:    fmt.Sprintf("%s/manifests/%s", base, pid),
		CanvasIDPrefix:    fmt.Sprintf("%s/canvases/%s_", base, pid),
		AssetPrefix:       pid + "_",
	}
}
