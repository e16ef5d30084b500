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

// Package sql persists one row per observed activity-stream event. The
// stored rows are the only source of truth for the poll watermark.
package sql

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
)

// cutoffNow is the sentinel ACTIVITY_CUTOFF_DATE value meaning "ignore
// everything that happened before this process started polling".
const cutoffNow = "now"

// defaultCutoff is the watermark floor used when no cutoff is
// configured and the table is empty.
var defaultCutoff = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Store wraps the database with the three JobStore operations. All
// writes are single-row autocommitted statements.
type Store struct {
	db     *gorm.DB
	cutoff func() time.Time
}

// NewStore builds a Store. cutoffDate is the raw ACTIVITY_CUTOFF_DATE
// value: "now", an RFC3339 timestamp, or empty for the fixed floor.
func NewStore(db *gorm.DB, cutoffDate string) (*Store, error) {
	cutoff, err := cutoffFunc(cutoffDate)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, cutoff: cutoff}, nil
}

func cutoffFunc(cutoffDate string) (func() time.Time, error) {
	switch cutoffDate {
	case "":
		return func() time.Time { return defaultCutoff }, nil
	case cutoffNow:
		return func() time.Time { return time.Now().UTC() }, nil
	default:
		t, err := time.Parse(time.RFC3339, cutoffDate)
		if err != nil {
			return nil, fmt.Errorf("invalid ACTIVITY_CUTOFF_DATE %q: %v", cutoffDate, err)
		}
		return func() time.Time { return t }, nil
	}
}

// LatestEndTime returns the maximum activity_end_time ever stored, or
// the configured cutoff when the table is empty. It is queried afresh
// on every poll; the loop never caches it.
func (s *Store) LatestEndTime() (time.Time, error) {
	var row ArchivalGroupActivity
	query := s.db.Select("activity_end_time").Order("activity_end_time desc").First(&row)
	if query.RecordNotFound() {
		return s.cutoff(), nil
	}
	if query.Error != nil {
		return time.Time{}, query.Error
	}
	return row.ActivityEndTime, nil
}

// NewActivity inserts a row for an observed activity with Started set
// to now, and returns the populated record.
func (s *Store) NewActivity(endTime time.Time, archivalGroupURI, activityType string) (*ArchivalGroupActivity, error) {
	job := &ArchivalGroupActivity{
		ActivityEndTime:  endTime,
		ArchivalGroupURI: archivalGroupURI,
		ActivityType:     activityType,
		Started:          time.Now().UTC(),
	}
	if err := s.db.Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Save updates the mutable post-insertion fields of a job row.
func (s *Store) Save(job *ArchivalGroupActivity) error {
	return s.db.Save(job).Error
}
