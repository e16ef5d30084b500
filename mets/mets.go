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

// Package mets provides a read-only view over a METS document: the
// physical structMap exposed as a WorkingDirectory tree of files with
// relative paths, human names and MIME types.
package mets

import (
	"encoding/xml"
	"fmt"
	"strings"
)

// File is a single binary referenced from the physical structMap.
type File struct {
	// LocalPath is relative, forward-slash separated.
	LocalPath string
	// Name is the METS-provided label, or the last path segment.
	Name string
	// ContentType is the MIME type from the fileSec entry.
	ContentType string
}

// WorkingDirectory is one node of the physical directory tree. The
// tree is strict: children hold no parent pointers.
type WorkingDirectory struct {
	LocalPath   string
	Directories []*WorkingDirectory
	Files       []*File
}

// Wrapper navigates a parsed METS document.
type Wrapper struct {
	physical *WorkingDirectory
}

// PhysicalStructure returns the WorkingDirectory tree mirroring the
// physical structMap.
func (w *Wrapper) PhysicalStructure() *WorkingDirectory {
	return w.physical
}

type xmlMets struct {
	FileSec    xmlFileSec     `xml:"fileSec"`
	StructMaps []xmlStructMap `xml:"structMap"`
}

type xmlFileSec struct {
	FileGrps []xmlFileGrp `xml:"fileGrp"`
}

type xmlFileGrp struct {
	Files    []xmlFile    `xml:"file"`
	FileGrps []xmlFileGrp `xml:"fileGrp"`
}

type xmlFile struct {
	ID       string      `xml:"ID,attr"`
	MIMEType string      `xml:"MIMETYPE,attr"`
	FLocats  []xmlFLocat `xml:"FLocat"`
}

type xmlFLocat struct {
	Attrs []xml.Attr `xml:",any,attr"`
}

// href returns the xlink:href (or plain href) location of the file.
func (f xmlFLocat) href() string {
	for _, attr := range f.Attrs {
		if attr.Name.Local == "href" {
			return attr.Value
		}
	}
	return ""
}

type xmlStructMap struct {
	Type string   `xml:"TYPE,attr"`
	Divs []xmlDiv `xml:"div"`
}

type xmlDiv struct {
	Type  string    `xml:"TYPE,attr"`
	Label string    `xml:"LABEL,attr"`
	Fptrs []xmlFptr `xml:"fptr"`
	Divs  []xmlDiv  `xml:"div"`
}

type xmlFptr struct {
	FileID string `xml:"FILEID,attr"`
}

type fileEntry struct {
	localPath   string
	contentType string
}

// Parse builds a Wrapper from raw METS XML.
func Parse(data []byte) (*Wrapper, error) {
	var doc xmlMets
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("could not parse METS XML: %v", err)
	}

	files := map[string]fileEntry{}
	collectFiles(doc.FileSec.FileGrps, files)

	structMap, err := physicalStructMap(doc.StructMaps)
	if err != nil {
		return nil, err
	}

	root := &WorkingDirectory{}
	for _, div := range structMap.Divs {
		if err := addDiv(root, div, files); err != nil {
			return nil, err
		}
	}
	return &Wrapper{physical: root}, nil
}

func collectFiles(groups []xmlFileGrp, into map[string]fileEntry) {
	for _, group := range groups {
		for _, file := range group.Files {
			if file.ID == "" || len(file.FLocats) == 0 {
				continue
			}
			into[file.ID] = fileEntry{
				localPath:   normalisePath(file.FLocats[0].href()),
				contentType: file.MIMEType,
			}
		}
		collectFiles(group.FileGrps, into)
	}
}

// physicalStructMap prefers a structMap with TYPE=physical. Some
// producers (EPrints) omit the attribute, in which case the first
// structMap is taken.
func physicalStructMap(maps []xmlStructMap) (*xmlStructMap, error) {
	if len(maps) == 0 {
		return nil, fmt.Errorf("METS document has no structMap")
	}
	for i := range maps {
		if strings.EqualFold(maps[i].Type, "physical") {
			return &maps[i], nil
		}
	}
	return &maps[0], nil
}

// addDiv maps one structMap div into the tree. A div carrying an fptr
// is a file; anything else is a directory to recurse into.
func addDiv(parent *WorkingDirectory, div xmlDiv, files map[string]fileEntry) error {
	if len(div.Fptrs) > 0 {
		entry, ok := files[div.Fptrs[0].FileID]
		if !ok {
			return fmt.Errorf("structMap references unknown file %q", div.Fptrs[0].FileID)
		}
		name := div.Label
		if name == "" {
			name = lastSegment(entry.localPath)
		}
		parent.Files = append(parent.Files, &File{
			LocalPath:   entry.localPath,
			Name:        name,
			ContentType: entry.contentType,
		})
		return nil
	}

	dir := &WorkingDirectory{LocalPath: childPath(parent.LocalPath, div.Label)}
	for _, child := range div.Divs {
		if err := addDiv(dir, child, files); err != nil {
			return err
		}
	}
	parent.Directories = append(parent.Directories, dir)
	return nil
}

func normalisePath(href string) string {
	href = strings.TrimPrefix(href, "./")
	return strings.TrimPrefix(href, "/")
}

func lastSegment(path string) string {
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

func childPath(parent, label string) string {
	if parent == "" {
		return label
	}
	if label == "" {
		return parent
	}
	return parent + "/" + label
}
