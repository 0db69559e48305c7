package objectdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

const (
	// DefaultBatchSize is the number of records to buffer before flushing to the database.
	DefaultBatchSize = 500
)

// Writer writes objects to a database.
type Writer struct {
	db        *sql.DB
	path      string
	batch     []Record
	written   int
	batchSize int
	closed    bool
	mu        sync.Mutex
}

// New creates a new writer.
// The database is created if it doesn't exist, and the schema is initialized.
func New(path string, metadata Metadata) (*Writer, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps per-connection pragmas in effect for every batch.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %q: %w", pragma, err)
		}
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	if err := insertMetadata(db, metadata); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to insert metadata: %w", err)
	}

	return &Writer{
		db:        db,
		path:      path,
		batch:     make([]Record, 0, DefaultBatchSize),
		batchSize: DefaultBatchSize,
	}, nil
}

// createSchema creates the objects database schema.
func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS metadata (
			name TEXT NOT NULL PRIMARY KEY,
			value TEXT
		);

		CREATE TABLE IF NOT EXISTS objects (
			id TEXT NOT NULL PRIMARY KEY,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			properties TEXT NOT NULL DEFAULT '{}'
		);

		CREATE INDEX IF NOT EXISTS objects_lat ON objects (lat);
	`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	return nil
}

// insertMetadata replaces the metadata rows.
func insertMetadata(db *sql.DB, meta Metadata) error {
	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		return fmt.Errorf("failed to clear metadata: %w", err)
	}

	stmt, err := db.Prepare("INSERT INTO metadata (name, value) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare metadata insert: %w", err)
	}
	defer stmt.Close()

	for key, value := range meta.ToMap() {
		if _, err := stmt.Exec(key, value); err != nil {
			return fmt.Errorf("failed to insert metadata %q: %w", key, err)
		}
	}

	return nil
}

// Write adds a record to the batch. When the batch is full, it is automatically flushed.
// A record with an existing ID replaces the stored one.
func (w *Writer) Write(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record without id at %.6f,%.6f", rec.Lat, rec.Lon)
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.batch = append(w.batch, rec)
	if len(w.batch) >= w.batchSize {
		return w.flushLocked()
	}
	return nil
}

// Written returns the number of records flushed so far.
func (w *Writer) Written() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// Flush writes any buffered records to the database.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.flushLocked()
}

// flushLocked writes buffered records to the database. Must be called with lock held.
func (w *Writer) flushLocked() error {
	if len(w.batch) == 0 {
		return nil
	}

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // nolint:errcheck

	stmt, err := tx.Prepare("INSERT OR REPLACE INTO objects (id, lat, lon, properties) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range w.batch {
		props := rec.Properties
		if props == nil {
			props = map[string]any{}
		}
		data, err := json.Marshal(props)
		if err != nil {
			return fmt.Errorf("failed to encode properties of %s: %w", rec.ID, err)
		}

		if _, err := stmt.Exec(rec.ID, rec.Lat, rec.Lon, string(data)); err != nil {
			return fmt.Errorf("failed to insert object %s: %w", rec.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	w.written += len(w.batch)
	w.batch = w.batch[:0]
	return nil
}

// Close flushes any remaining records and closes the database. Further
// calls are no-ops.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.flushLocked(); err != nil {
		w.db.Close()
		return err
	}

	// Readers open the file read-only, which WAL mode does not allow
	// without its side files.
	if _, err := w.db.Exec("PRAGMA journal_mode = DELETE"); err != nil {
		w.db.Close()
		return fmt.Errorf("failed to leave WAL mode: %w", err)
	}

	if err := w.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	return nil
}
