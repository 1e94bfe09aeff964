// Package eventdb persists counting history, alerts, and system health
// samples in a local sqlite database.
package eventdb

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tallycam/tallycam/pkg/dbh"
	"github.com/tallycam/tallycam/pkg/log"
	"gorm.io/gorm"
)

type EventDB struct {
	log log.Log
	db  *gorm.DB
}

// Open or create an event DB
func Open(log log.Log, dbFilename string) (*EventDB, error) {
	if err := os.MkdirAll(filepath.Dir(dbFilename), 0777); err != nil {
		return nil, fmt.Errorf("Failed to create event storage path '%v': %w", filepath.Dir(dbFilename), err)
	}
	db, err := dbh.OpenDB(log, dbh.MakeSqliteConfig(dbFilename), Migrations(log), 0)
	if err != nil {
		return nil, fmt.Errorf("Failed to open event database %v: %w", dbFilename, err)
	}
	return &EventDB{
		log: log,
		db:  db,
	}, nil
}

func (e *EventDB) Close() {
	if db, err := e.db.DB(); err == nil {
		db.Close()
	}
}
