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

// Package settings holds the environment-driven configuration for the
// iiif-builder worker. The Settings struct is built once at startup and
// treated as immutable; components never read the environment themselves.
package settings

import (
	"os"
	"strconv"
	"strings"
)

// Alias is a single src->dst rewrite used when the preservation
// repository's public URIs differ from the ones the identity service
// was seeded with.
type Alias struct {
	Src string
	Dst string
}

// Settings is the full configuration surface of the worker.
type Settings struct {
	PostgresConnection         string
	ActivityStreamReadInterval int
	PreservationActivityStream string
	ActivityCutoffDate         string

	PreservationClientID       string
	PreservationClientSecret   string
	PreservationClientTenantID string
	ClientIdentityHeader       string
	ClientIdentity             string

	ContainerAliases []Alias
	HostAliases      []Alias

	ArchivalGroupPrefixes []string

	IdentityServiceBaseURL   string
	IdentityServiceAPIHeader string
	IdentityServiceAPIKey    string

	RewrittenPublicIIIFPresentationPrefix string
	IIIFCSPresentationHost                string
	IIIFCSCustomerID                      string
	IIIFCSAssetSpaceID                    int
	IIIFCSBasicCredentials                string

	ConstructCatalogueAPIURI bool
	CatalogueAPIPrefix       string
	CatalogueAPIKeyHeader    string
	CatalogueAPIKeyValue     string
}

// Load reads every recognised environment variable into a Settings
// struct, applying the same defaults the service has always shipped
// with.
func Load() *Settings {
	return &Settings{
		PostgresConnection:         os.Getenv("POSTGRES_CONNECTION"),
		ActivityStreamReadInterval: getInt("ACTIVITY_STREAM_READ_INTERVAL", 60),
		PreservationActivityStream: os.Getenv("PRESERVATION_ACTIVITY_STREAM"),
		ActivityCutoffDate:         os.Getenv("ACTIVITY_CUTOFF_DATE"),

		PreservationClientID:       os.Getenv("PRESERVATION_CLIENT_ID"),
		PreservationClientSecret:   os.Getenv("PRESERVATION_CLIENT_SECRET"),
		PreservationClientTenantID: os.Getenv("PRESERVATION_CLIENT_TENANT_ID"),
		ClientIdentityHeader:       get("PRESERVATION_CLIENT_IDENTITY_HEADER", "X-Client-Identity"),
		ClientIdentity:             get("IIIF_BUILDER_IDENTITY", "iiif-builder"),

		ContainerAliases: ParseAliases(os.Getenv("PRESERVATION_COLLECTIONS_CONTAINER_ALIASES")),
		HostAliases:      ParseAliases(os.Getenv("PRESERVATION_COLLECTIONS_HOST_ALIASES")),

		ArchivalGroupPrefixes: splitList(os.Getenv("ARCHIVAL_GROUP_PREFIXES_TO_PROCESS")),

		IdentityServiceBaseURL:   get("IDENTITY_SERVICE_BASE_URL", "https://id.library.leeds.ac.uk/api/v1"),
		IdentityServiceAPIHeader: get("IDENTITY_SERVICE_API_HEADER", "Authorization"),
		IdentityServiceAPIKey:    os.Getenv("IDENTITY_SERVICE_API_KEY"),

		RewrittenPublicIIIFPresentationPrefix: get("REWRITTEN_PUBLIC_IIIF_PRESENTATION_PREFIX", "https://iiif.leeds.ac.uk/presentation/"),
		IIIFCSPresentationHost:                get("IIIF_CS_PRESENTATION_HOST", "https://iiif-cs.library.leeds.ac.uk"),
		IIIFCSCustomerID:                      get("IIIF_CS_CUSTOMER_ID", "2"),
		IIIFCSAssetSpaceID:                    getInt("IIIF_CS_ASSET_SPACE_ID", 5),
		IIIFCSBasicCredentials:                os.Getenv("IIIF_CS_BASIC_CREDENTIALS"),

		ConstructCatalogueAPIURI: getBool("CONSTRUCT_CATALOGUE_API_URI", true),
		CatalogueAPIPrefix:       get("MVP_CATALOGUE_API_PREFIX", "https://explore.library.leeds.ac.uk/imu/utilities/getIIIFData.php?pid="),
		CatalogueAPIKeyHeader:    get("MVP_CATALOGUE_API_KEY_HEADER", "X-API-KEY"),
		CatalogueAPIKeyValue:     os.Getenv("MVP_CATALOGUE_API_KEY_VALUE"),
	}
}

// ParseAliases parses a comma-separated list of src:dst pairs. A
// whitespace-only string means no aliases. Malformed entries are
// dropped rather than guessed at.
func ParseAliases(s string) []Alias {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var aliases []Alias
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		aliases = append(aliases, Alias{Src: parts[0], Dst: parts[1]})
	}
	return aliases
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

func get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}
