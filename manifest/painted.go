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
	"strings"

	"github.com/uol-library/iiif-builder/mets"
	"github.com/uol-library/iiif-builder/preservation"
)

// AddPaintedResources walks the METS physical directory tree
// depth-first, files before sub-directories, and appends one painted
// resource per image file. The canvas order is a running 0-based
// index over emitted files only; asset origins come from the archival
// group's storage map.
func AddPaintedResources(m *Manifest, ag *preservation.ArchivalGroup, wrapper *mets.Wrapper, canvasIDPrefix, assetPrefix string, assetSpace int) error {
	m.PaintedResources = []*PaintedResource{}
	_, err := addFromWorkingDir(m, wrapper.PhysicalStructure(), ag, canvasIDPrefix, assetPrefix, assetSpace, 0)
	return err
}

func addFromWorkingDir(m *Manifest, dir *mets.WorkingDirectory, ag *preservation.ArchivalGroup, canvasIDPrefix, assetPrefix string, assetSpace, canvasIndex int) (int, error) {
	for _, file := range dir.Files {
		if !strings.HasPrefix(file.ContentType, "image") {
			continue
		}
		entry, ok := ag.StorageMap.Files[file.LocalPath]
		if !ok {
			return canvasIndex, fmt.Errorf("no storage map entry for %s", file.LocalPath)
		}
		flattened := strings.ReplaceAll(file.LocalPath, "/", "_")
		m.PaintedResources = append(m.PaintedResources, &PaintedResource{
			CanvasPainting: CanvasPainting{
				CanvasID:    canvasIDPrefix + flattened,
				CanvasOrder: canvasIndex,
				Label:       LanguageMap{"en": {file.Name}},
			},
			Asset: Asset{
				ID:        assetPrefix + flattened,
				MediaType: file.ContentType,
				Space:     assetSpace,
				Origin:    fmt.Sprintf("%s/%s", ag.Origin, entry.FullPath),
			},
		})
		canvasIndex++
	}

	for _, sub := range dir.Directories {
		var err error
		canvasIndex, err = addFromWorkingDir(m, sub, ag, canvasIDPrefix, assetPrefix, assetSpace, canvasIndex)
		if err != nil {
			return canvasIndex, err
		}
	}
	return canvasIndex, nil
}
