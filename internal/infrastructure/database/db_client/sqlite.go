package db_client

import (
	"database/sql"
	"fmt"
	_ "github.com/mattn/go-sqlite3"
	"github.com/mufasadev/transaction-webhooks/internal/infrastructure/database/migrations"
	"os"
	"path/filepath"
)

type SQLiteClient struct {
	path string
}

func NewSQLiteClient(path string) *SQLiteClient {
	return &SQLiteClient{path: path}
}

// Connect opens the database file, creating its directory, and applies the
// embedded schema. A single connection serialises writers so concurrent
// requests never see SQLITE_BUSY.
func (c *SQLiteClient) Connect() (*sql.DB, error) {
	if dir := filepath.Dir(c.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("can not create database directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", c.path+"?_busy_timeout=5000&_journal_mode=WAL&_loc=UTC")
	if err != nil {
		return nil, fmt.Errorf("can not open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("can not connect with database: %w", err)
	}

	if err = migrations.UpSQLite(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
