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

// Package builder drives the ingest pipeline: it polls the activity
// stream and turns each event into a published manifest, recording the
// outcome of every attempt in the database.
package builder

import (
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/uol-library/iiif-builder/catalogue"
	"github.com/uol-library/iiif-builder/identity"
	"github.com/uol-library/iiif-builder/iiifcs"
	"github.com/uol-library/iiif-builder/manifest"
	"github.com/uol-library/iiif-builder/preservation"
	"github.com/uol-library/iiif-builder/settings"
	"github.com/uol-library/iiif-builder/sql"
)

// skipMessage is recorded for activities filtered out by the archival
// group prefix list.
const skipMessage = "Skipping because AG URI doesn't match configured prefix(es)"

// jobStore is the slice of the database the pipeline needs.
type jobStore interface {
	LatestEndTime() (time.Time, error)
	NewActivity(endTime time.Time, archivalGroupURI, activityType string) (*sql.ArchivalGroupActivity, error)
	Save(job *sql.ArchivalGroupActivity) error
}

var _ jobStore = &sql.Store{}

// Coordinator processes one activity at a time, front to back. A
// pipeline stage failure is recorded on the job row and does not stop
// the worker; only a database failure propagates, because without the
// row the watermark would silently move past the event.
type Coordinator struct {
	logger       *logrus.Entry
	settings     *settings.Settings
	store        jobStore
	preservation preservation.Client
	identity     identity.Client
	catalogue    catalogue.Reader
	publisher    iiifcs.Publisher
}

// NewCoordinator wires the pipeline together.
func NewCoordinator(s *settings.Settings, store jobStore, p preservation.Client, id identity.Client, cat catalogue.Reader, pub iiifcs.Publisher) *Coordinator {
	return &Coordinator{
		logger:       logrus.WithField("component", "coordinator"),
		settings:     s,
		store:        store,
		preservation: p,
		identity:     id,
		catalogue:    cat,
		publisher:    pub,
	}
}

// Process runs the whole pipeline for one activity. Every observed
// activity gets exactly one row, including skipped ones.
func (c *Coordinator) Process(activity preservation.Activity) error {
	logger := c.logger.WithField("archival-group", activity.ArchivalGroupURI)
	logger.Info("Processing activity.")

	job, err := c.store.NewActivity(activity.EndTime, activity.ArchivalGroupURI, activity.Type)
	if err != nil {
		return err
	}

	if !c.matchesPrefix(activity.ArchivalGroupURI) {
		logger.Info("Archival group is outside the configured prefixes, skipping.")
		return c.fail(job, skipMessage)
	}

	ag, err := c.preservation.ArchivalGroup(activity.ArchivalGroupURI)
	if err != nil {
		return c.fail(job, err.Error())
	}
	logger.Debug("Loaded archival group.")

	wrapper, err := c.preservation.METS(activity.ArchivalGroupURI)
	if err != nil {
		return c.fail(job, err.Error())
	}
	logger.Debug("Parsed METS.")

	id, err := c.identity.Resolve(activity.ArchivalGroupURI)
	if err != nil {
		return c.fail(job, err.Error())
	}
	internal := identity.GetInternalURIs(c.settings, id.ManifestURI, id.PID)

	catalogueURI := id.CatalogueAPIURI
	if c.settings.ConstructCatalogueAPIURI {
		catalogueURI = c.settings.CatalogueAPIPrefix + id.PID
	}

	job.IDServicePID = &id.PID
	job.CatalogueAPIURI = &catalogueURI
	job.PublicManifestURI = &id.ManifestURI
	job.InternalPublicManifestURI = &internal.PublicManifestURI
	job.InternalAPIManifestURI = &internal.APIManifestURI
	if err := c.store.Save(job); err != nil {
		return err
	}
	logger.WithField("pid", id.PID).Debug("Resolved identity.")

	record, err := c.catalogue.Read(catalogueURI)
	if err != nil {
		return c.fail(job, err.Error())
	}

	m := manifest.Boilerplate()
	m.PublicID = internal.PublicManifestURI
	if err := manifest.AddDescriptiveMetadata(m, record.Data); err != nil {
		return c.fail(job, err.Error())
	}
	if err := manifest.AddPaintedResources(m, ag, wrapper, internal.CanvasIDPrefix, internal.AssetPrefix, c.settings.IIIFCSAssetSpaceID); err != nil {
		return c.fail(job, err.Error())
	}

	if err := c.publisher.Publish(internal.APIManifestURI, m); err != nil {
		return c.fail(job, err.Error())
	}

	now := time.Now().UTC()
	job.Finished = &now
	if err := c.store.Save(job); err != nil {
		return err
	}
	logger.WithField("manifest", internal.APIManifestURI).Info("Published manifest.")
	return nil
}

// fail records the stage error on the job row. The pipeline error
// itself is swallowed so the loop moves on; a failure to record it is
// not.
func (c *Coordinator) fail(job *sql.ArchivalGroupActivity, message string) error {
	c.logger.WithFields(logrus.Fields{
		"archival-group": job.ArchivalGroupURI,
		"error":          message,
	}).Warn("Activity failed.")
	job.ErrorMessage = &message
	return c.store.Save(job)
}

// matchesPrefix checks the archival group's repository path against
// the configured prefixes. An empty list admits everything; otherwise
// the path must sit strictly below a prefix, so a bare container path
// does not qualify.
func (c *Coordinator) matchesPrefix(archivalGroupURI string) bool {
	if len(c.settings.ArchivalGroupPrefixes) == 0 {
		return true
	}
	parsed, err := url.Parse(archivalGroupURI)
	if err != nil {
		return false
	}
	path := strings.TrimPrefix(parsed.Path, "/repository")
	path = strings.TrimPrefix(path, "/")
	for _, prefix := range c.settings.ArchivalGroupPrefixes {
		if strings.HasPrefix(path, prefix+"/") {
			return true
		}
	}
	return false
}
