package objects

import (
	"context"

	"github.com/MeKo-Tech/romhost/internal/objectdb"
	"github.com/paulmach/orb"
)

// SQLiteSource serves objects from an objectdb database.
type SQLiteSource struct {
	name   string
	reader *objectdb.Reader
}

// OpenSQLite opens the database at path read-only.
func OpenSQLite(name, path string) (*SQLiteSource, error) {
	r, err := objectdb.OpenReader(path)
	if err != nil {
		return nil, err
	}
	return &SQLiteSource{name: name, reader: r}, nil
}

// Name implements Source.
func (s *SQLiteSource) Name() string { return s.name }

// Objects implements Source.
func (s *SQLiteSource) Objects(ctx context.Context, b orb.Bound) ([]Object, error) {
	records, err := s.reader.Within(ctx, b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat())
	if err != nil {
		return nil, err
	}
	out := make([]Object, 0, len(records))
	for _, rec := range records {
		out = append(out, Object{
			ID:         rec.ID,
			Point:      orb.Point{rec.Lon, rec.Lat},
			Properties: rec.Properties,
		})
	}
	return out, nil
}

// Ready implements Source by pinging the database.
func (s *SQLiteSource) Ready(ctx context.Context) error {
	return s.reader.Ping(ctx)
}

// Close implements Source.
func (s *SQLiteSource) Close() error {
	return s.reader.Close()
}
