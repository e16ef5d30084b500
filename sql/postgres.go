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

import (
	"github.com/jinzhu/gorm"
	// Registers the postgres dialect with gorm.
	_ "github.com/jinzhu/gorm/dialects/postgres"
	"github.com/pkg/errors"
)

// PostgresConfig is specific to this database
type PostgresConfig struct {
	ConnectionString string
}

// CreateDatabase opens the connection and makes sure the
// archival_group_activity table exists.
func (config *PostgresConfig) CreateDatabase() (*gorm.DB, error) {
	db, err := gorm.Open("postgres", config.ConnectionString)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open postgres connection")
	}
	if err := db.AutoMigrate(&ArchivalGroupActivity{}).Error; err != nil {
		return nil, errors.Wrap(err, "failed to migrate archival_group_activity")
	}
	return db, nil
}
