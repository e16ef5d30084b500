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

package sql

import "time"

// ArchivalGroupActivity is the persisted record of one activity-stream
// event and its processing outcome. Its format fits into the ORM.
//
// Exactly one of Finished/ErrorMessage is set by the time a job leaves
// the pipeline; Started is always set at insertion.
type ArchivalGroupActivity struct {
	ID                        int        `gorm:"column:id;primary_key"`
	ActivityEndTime           time.Time  `gorm:"column:activity_end_time;not null"`
	ArchivalGroupURI          string     `gorm:"column:archival_group_uri;type:text;not null"`
	ActivityType              string     `gorm:"column:activity_type;type:text;not null"`
	IDServicePID              *string    `gorm:"column:id_service_pid;type:text"`
	CatalogueAPIURI           *string    `gorm:"column:catalogue_api_uri;type:text"`
	PublicManifestURI         *string    `gorm:"column:public_manifest_uri;type:text"`
	InternalPublicManifestURI *string    `gorm:"column:internal_public_manifest_uri;type:text"`
	InternalAPIManifestURI    *string    `gorm:"column:internal_api_manifest_uri;type:text"`
	Started                   time.Time  `gorm:"column:started;not null"`
	Finished                  *time.Time `gorm:"column:finished"`
	ErrorMessage              *string    `gorm:"column:error_message;type:text"`
}

// TableName pins the table name the rest of the estate knows.
func (ArchivalGroupActivity) TableName() string {
	return "archival_group_activity"
}
