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

package manifest

import (
	"fmt"
)

// noTitle is the label used when the catalogue record has no usable
// title at all.
const noTitle = "[NO TITLE]"

// metadataKeys is the fixed set of catalogue keys copied into the
// manifest metadata, in display order, with the language tag each is
// served under. Shelfmarks, dates and the like are not prose, hence
// "none".
var metadataKeys = []struct {
	key  string
	lang string
}{
	{"Shelfmark", "none"},
	{"Object Number", "none"},
	{"Date", "none"},
	{"Description", "en"},
	{"Dimensions", "none"},
	{"Notes", "en"},
	{"Collections", "en"},
	{"Credit Line", "none"},
	{"Attribution", "en"},
	{"Medium", "en"},
	{"Technique", "en"},
	{"Support", "en"},
	{"Creators", "en"},
}

// AddDescriptiveMetadata decorates the manifest with the catalogue
// record: label, metadata entries, rights and homepage.
func AddDescriptiveMetadata(m *Manifest, data map[string]interface{}) error {
	if data == nil {
		return fmt.Errorf("catalogue record has no data object")
	}

	title := stringValue(data["Title"])
	if title == "" {
		title = stringValue(data["title"])
	}
	if title == "" {
		title = noTitle
	}
	m.Label = LanguageMap{"en": {title}}

	for _, entry := range metadataKeys {
		addMetadataLabelAndValue(m, data, entry.key, entry.lang)
	}

	if rights, ok := data["Rights"]; ok {
		if first := firstValue(rights); first != "" {
			m.Rights = first
		}
	}

	if homepage := stringValue(data["Homepage"]); homepage != "" {
		m.Homepage = []LinkedResource{
			{
				ID:       homepage,
				Type:     "Text",
				Format:   "text/html",
				Language: []string{"en"},
				Label:    LanguageMap{"en": {fmt.Sprintf("Homepage for %s", title)}},
			},
		}
	}

	return nil
}

// addMetadataLabelAndValue appends one metadata entry. Missing keys
// are skipped; scalar values are wrapped in a single-element array;
// empty arrays skip the entry entirely.
func addMetadataLabelAndValue(m *Manifest, data map[string]interface{}, key, lang string) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return
	}

	var values []string
	switch v := raw.(type) {
	case []interface{}:
		for _, item := range v {
			values = append(values, fmt.Sprint(item))
		}
	default:
		values = []string{fmt.Sprint(v)}
	}
	if len(values) == 0 {
		return
	}

	m.Metadata = append(m.Metadata, LabelValue{
		Label: LanguageMap{"en": {key}},
		Value: LanguageMap{lang: values},
	})
}

func stringValue(raw interface{}) string {
	if s, ok := raw.(string); ok {
		return s
	}
	return ""
}

// firstValue returns the first element of an array value, or the
// value itself when the catalogue sends a bare string.
func firstValue(raw interface{}) string {
	switch v := raw.(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			return fmt.Sprint(v[0])
		}
	}
	return ""
}
