// SampleDB keeps every decoded frame and gain push per debugging session,
// so a run can be plotted or compared after the device is gone.
package sampledb

import (
	"database/sql"
	"embed"
	"fmt"

	"github.com/NotCoffee418/dbmigrator"
	log "github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

type SampleDB struct {
	db *sql.DB
}

// Open creates the database if needed and applies migrations.
func Open(path string) (*SampleDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Reader and push goroutines both write, sqlite wants one writer
	db.SetMaxOpenConns(1)

	// Verify connection
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open sample database %s: %w", path, err)
	}

	// Apply migrations
	dbmigrator.SetDatabaseType(dbmigrator.SQLite)
	<-dbmigrator.MigrateUpCh(
		db,
		migrationFS,
		"migrations",
	)

	log.Debugf("Sample database ready at %s", path)
	return &SampleDB{db: db}, nil
}

func (s *SampleDB) Close() error {
	return s.db.Close()
}
