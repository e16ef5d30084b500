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

// Package testing provides an in-memory database for store tests.
package testing

import (
	"github.com/jinzhu/gorm"
	// Registers the sqlite dialect with gorm.
	_ "github.com/jinzhu/gorm/dialects/sqlite"

	"github.com/uol-library/iiif-builder/sql"
)

// SQLiteConfig is specific to this database
type SQLiteConfig struct {
	File string
}

// CreateDatabase opens (usually ":memory:") and migrates the schema.
func (config *SQLiteConfig) CreateDatabase() (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", config.File)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&sql.ArchivalGroupActivity{}).Error; err != nil {
		return nil, err
	}
	return db, nil
}
