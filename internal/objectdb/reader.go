package objectdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver
)

// Reader reads objects from a database.
type Reader struct {
	db *sql.DB
}

// OpenReader opens an objects database for reading.
func OpenReader(path string) (*Reader, error) {
	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Verify schema exists
	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='objects'").Scan(&count)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("database does not contain objects table")
	}

	return &Reader{db: db}, nil
}

// Ping checks that the database is reachable.
func (r *Reader) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Within returns the objects inside [minLon,maxLon]x[minLat,maxLat].
func (r *Reader) Within(ctx context.Context, minLon, minLat, maxLon, maxLat float64) ([]Record, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, lat, lon, properties FROM objects WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ? ORDER BY id",
		minLat, maxLat, minLon, maxLon,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query objects: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec   Record
			props string
		)
		if err := rows.Scan(&rec.ID, &rec.Lat, &rec.Lon, &props); err != nil {
			return nil, fmt.Errorf("failed to scan object row: %w", err)
		}
		if err := json.Unmarshal([]byte(props), &rec.Properties); err != nil {
			return nil, fmt.Errorf("failed to decode properties of %s: %w", rec.ID, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating objects: %w", err)
	}

	return records, nil
}

// Count returns the number of stored objects.
func (r *Reader) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM objects").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count objects: %w", err)
	}
	return n, nil
}

// Metadata reads metadata from the database.
func (r *Reader) Metadata() (Metadata, error) {
	rows, err := r.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("failed to query metadata: %w", err)
	}
	defer rows.Close()

	values := make(map[string]string)
	for rows.Next() {
		var name string
		var value sql.NullString
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("failed to scan metadata row: %w", err)
		}
		values[name] = value.String
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("error iterating metadata: %w", err)
	}

	return metadataFromMap(values), nil
}

// Close closes the database connection.
func (r *Reader) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
