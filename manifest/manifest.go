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

// Package manifest assembles IIIF Presentation v3 manifests. The
// worker never emits items[]; canvases are generated downstream from
// paintedResources.
package manifest

// LanguageMap is a IIIF language map: language tag to value list.
type LanguageMap map[string][]string

// Manifest is the document sent to the IIIF cloud service. There is
// deliberately no items field.
type Manifest struct {
	Type             string             `json:"type"`
	Label            LanguageMap        `json:"label,omitempty"`
	Metadata         []LabelValue       `json:"metadata,omitempty"`
	Rights           string             `json:"rights,omitempty"`
	Homepage         []LinkedResource   `json:"homepage,omitempty"`
	Provider         []Agent            `json:"provider,omitempty"`
	PublicID         string             `json:"publicId,omitempty"`
	PaintedResources []*PaintedResource `json:"paintedResources"`
}

// LabelValue is one metadata entry.
type LabelValue struct {
	Label LanguageMap `json:"label"`
	Value LanguageMap `json:"value"`
}

// LinkedResource covers homepage, logo and seeAlso entries.
type LinkedResource struct {
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Label    LanguageMap `json:"label,omitempty"`
	Format   string      `json:"format,omitempty"`
	Language []string    `json:"language,omitempty"`
	Profile  string      `json:"profile,omitempty"`
	Height   int         `json:"height,omitempty"`
	Width    int         `json:"width,omitempty"`
}

// Agent is a provider entry.
type Agent struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Label    LanguageMap      `json:"label,omitempty"`
	Homepage []LinkedResource `json:"homepage,omitempty"`
	Logo     []LinkedResource `json:"logo,omitempty"`
	SeeAlso  []LinkedResource `json:"seeAlso,omitempty"`
}

// PaintedResource instructs the cloud service to synthesise a canvas
// for one asset.
type PaintedResource struct {
	CanvasPainting CanvasPainting `json:"canvasPainting"`
	Asset          Asset          `json:"asset"`
	Reingest       bool           `json:"reingest,omitempty"`
}

// CanvasPainting controls the synthesised canvas.
type CanvasPainting struct {
	CanvasID    string      `json:"canvasId,omitempty"`
	CanvasOrder int         `json:"canvasOrder"`
	Label       LanguageMap `json:"label,omitempty"`
}

// Asset identifies the binary to paint, scoped by asset space.
type Asset struct {
	ID        string `json:"id"`
	MediaType string `json:"mediaType,omitempty"`
	Space     int    `json:"space,omitempty"`
	Origin    string `json:"origin,omitempty"`
}

// Boilerplate returns a fresh manifest with the static provider block
// every published manifest carries.
func Boilerplate() *Manifest {
	return &Manifest{
		Type:             "Manifest",
		PaintedResources: []*PaintedResource{},
		Provider: []Agent{
			{
				ID:    "https://library.leeds.ac.uk/about",
				Type:  "Agent",
				Label: LanguageMap{"en": {"University of Leeds Library"}},
				Homepage: []LinkedResource{
					{
						ID:     "https://library.leeds.ac.uk/",
						Type:   "Text",
						Label:  LanguageMap{"en": {"University of Leeds Library Homepage"}},
						Format: "text/html",
					},
				},
				Logo: []LinkedResource{
					{
						ID:     "https://library.leeds.ac.uk/images/logo.png",
						Type:   "Image",
						Format: "image/png",
						Height: 100,
						Width:  120,
					},
				},
				SeeAlso: []LinkedResource{
					{
						ID:      "https://library.leeds.ac.uk/about/data.jsonld",
						Type:    "Dataset",
						Format:  "application/ld+json",
						Profile: "https://schema.org/",
					},
				},
			},
		},
	}
}
