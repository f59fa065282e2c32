package db

import (
	"errors"
	"fmt"
	"os"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS meta (
    key TEXT PRIMARY KEY,
    value TEXT
);

CREATE TABLE IF NOT EXISTS unigrams (
    token INTEGER PRIMARY KEY,
    count INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS bigrams (
    prev INTEGER NOT NULL,
    next INTEGER NOT NULL,
    count INTEGER NOT NULL,
    PRIMARY KEY (prev, next)
);
`

// ErrModelMissing is returned by OpenModel when no model file exists at the path.
var ErrModelMissing = errors.New("model file not found")

// Create opens path for writing, creating the file and schema when needed.
func Create(path string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// OpenModel opens an existing model file read-only. It never creates a file.
func OpenModel(path string) (*sqlx.DB, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrModelMissing, path)
		}
		return nil, fmt.Errorf("stat model: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("model path %s is a directory", path)
	}

	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// query_only is per connection.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA query_only = ON`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set query_only: %w", err)
	}
	return db, nil
}
