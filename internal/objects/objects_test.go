package objects

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Christian/go-overpass"
	"github.com/MeKo-Tech/romhost/internal/objectdb"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var moscow = orb.Bound{Min: orb.Point{37.3, 55.5}, Max: orb.Point{37.9, 56.0}}

const metroGeoJSON = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "id": 1, "geometry": {"type": "Point", "coordinates": [37.6176, 55.7558]}, "properties": {"name": "Teatralnaya"}},
    {"type": "Feature", "id": "okt", "geometry": {"type": "Point", "coordinates": [37.6111, 55.7299]}, "properties": {"name": "Oktyabrskaya", "options": {"preset": "islands#redIcon"}}},
    {"type": "Feature", "geometry": {"type": "Point", "coordinates": [30.3351, 59.9343]}, "properties": {"name": "Nevsky Prospekt"}},
    {"type": "Feature", "geometry": {"type": "LineString", "coordinates": [[37.6, 55.7], [37.7, 55.8]]}, "properties": {"name": "Line"}}
  ]
}`

func writeGeoJSON(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metro.geojson")
	require.NoError(t, os.WriteFile(path, []byte(metroGeoJSON), 0o644))
	return path
}

func TestGeoJSONSource(t *testing.T) {
	s, err := LoadGeoJSON("metro", writeGeoJSON(t))
	require.NoError(t, err)

	assert.Equal(t, "metro", s.Name())
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 1, s.Skipped())
	require.NoError(t, s.Ready(context.Background()))

	got, err := s.Objects(context.Background(), moscow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, orb.Point{37.6176, 55.7558}, got[0].Point)
	assert.Equal(t, "okt", got[1].ID)
	assert.Equal(t, "Oktyabrskaya", got[1].Properties["name"])
}

func TestGeoJSONSourceMissingFile(t *testing.T) {
	_, err := LoadGeoJSON("metro", filepath.Join(t.TempDir(), "missing.geojson"))
	assert.Error(t, err)
}

func TestSQLiteSource(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "objects.db")
	w, err := objectdb.New(dbPath, objectdb.Metadata{Name: "metro"})
	require.NoError(t, err)
	require.NoError(t, w.Write(objectdb.Record{ID: "1", Lat: 55.7558, Lon: 37.6176, Properties: map[string]any{"name": "Teatralnaya"}}))
	require.NoError(t, w.Write(objectdb.Record{ID: "2", Lat: 59.9343, Lon: 30.3351}))
	require.NoError(t, w.Close())

	s, err := OpenSQLite("metro", dbPath)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Ready(context.Background()))
	got, err := s.Objects(context.Background(), moscow)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, orb.Point{37.6176, 55.7558}, got[0].Point)
	assert.Equal(t, "Teatralnaya", got[0].Properties["name"])
}

type fakeQuerier struct {
	queries []string
	result  overpass.Result
	err     error
}

func (f *fakeQuerier) Query(q string) (overpass.Result, error) {
	f.queries = append(f.queries, q)
	return f.result, f.err
}

func testNode(id int64, lat, lon float64, tags map[string]string) *overpass.Node {
	n := &overpass.Node{}
	n.ID = id
	n.Lat = lat
	n.Lon = lon
	n.Tags = tags
	return n
}

func TestOverpassSource(t *testing.T) {
	q := &fakeQuerier{result: overpass.Result{Nodes: map[int64]*overpass.Node{
		20: testNode(20, 55.7299, 37.6111, map[string]string{"name": "Oktyabrskaya"}),
		10: testNode(10, 55.7558, 37.6176, map[string]string{"name": "Teatralnaya"}),
	}}}

	s, err := NewOverpassSource("stations", OverpassConfig{Selector: "railway=station"})
	require.NoError(t, err)
	s.WithQuerier(q)

	got, err := s.Objects(context.Background(), moscow)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "node/10", got[0].ID)
	assert.Equal(t, orb.Point{37.6176, 55.7558}, got[0].Point)
	assert.Equal(t, "Teatralnaya", got[0].Properties["name"])
	assert.Equal(t, "node/20", got[1].ID)

	require.Len(t, q.queries, 1)
	assert.Equal(t, `[out:json][timeout:25];node["railway"="station"](55.500000,37.300000,56.000000,37.900000);out body;`, q.queries[0])
}

func TestOverpassSourceError(t *testing.T) {
	s, err := NewOverpassSource("stations", OverpassConfig{Selector: "railway"})
	require.NoError(t, err)
	s.WithQuerier(&fakeQuerier{err: errors.New("504 Gateway Timeout")})

	_, err = s.Objects(context.Background(), moscow)
	assert.ErrorContains(t, err, "overpass query failed")
}

func TestOverpassSourceCancelled(t *testing.T) {
	s, err := NewOverpassSource("stations", OverpassConfig{Selector: "railway"})
	require.NoError(t, err)
	s.WithQuerier(&fakeQuerier{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Objects(ctx, moscow)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParseSelector(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "railway=station", want: `["railway"="station"]`},
		{in: " amenity ", want: `["amenity"]`},
		{in: `["shop"~"bakery|cafe"]`, want: `["shop"~"bakery|cafe"]`},
		{in: "", wantErr: true},
		{in: "=station", wantErr: true},
		{in: `a");out;("`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSelector(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type stubSource struct {
	name     string
	readyErr error
	closed   bool
}

func (s *stubSource) Name() string { return s.name }
func (s *stubSource) Objects(context.Context, orb.Bound) ([]Object, error) {
	return nil, nil
}
func (s *stubSource) Ready(context.Context) error { return s.readyErr }
func (s *stubSource) Close() error {
	s.closed = true
	return nil
}

func TestRegistry(t *testing.T) {
	a, b := &stubSource{name: "a"}, &stubSource{name: "b"}
	r, err := NewRegistry(b, a)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, r.Names())

	got, err := r.Get("a")
	require.NoError(t, err)
	assert.Same(t, a, got)

	_, err = r.Get("zzz")
	assert.ErrorIs(t, err, ErrUnknownSource)

	assert.Error(t, r.Register(&stubSource{name: "a"}))
	assert.Error(t, r.Register(&stubSource{}))

	require.NoError(t, r.Ready(context.Background()))
	require.NoError(t, r.Close())
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestRegistryReadyFailure(t *testing.T) {
	boom := errors.New("db locked")
	r, err := NewRegistry(&stubSource{name: "a", readyErr: boom})
	require.NoError(t, err)

	assert.ErrorIs(t, r.Ready(context.Background()), boom)
}

func TestDecorator(t *testing.T) {
	d := Decorator{}

	t.Run("named object", func(t *testing.T) {
		props := d.Properties(Object{ID: "1", Properties: map[string]any{"name": "Teatralnaya"}})
		assert.Equal(t, "Teatralnaya", props["hintContent"])
		assert.Equal(t, "Teatralnaya", props["iconContent"])
		assert.Equal(t, "Teatralnaya", props["balloonContent"])
		assert.Equal(t, map[string]any{"preset": DefaultPreset}, props["options"])
	})

	t.Run("keeps stored values", func(t *testing.T) {
		stored := map[string]any{
			"name":        "Oktyabrskaya",
			"hintContent": "custom",
			"options":     map[string]any{"preset": "islands#redIcon", "zIndex": 5.0},
		}
		props := d.Properties(Object{ID: "2", Properties: stored})
		assert.Equal(t, "custom", props["hintContent"])
		assert.Equal(t, map[string]any{"preset": "islands#redIcon", "zIndex": 5.0}, props["options"])
		// The stored bag is not modified.
		assert.Equal(t, map[string]any{"preset": "islands#redIcon", "zIndex": 5.0}, stored["options"])
	})

	t.Run("anonymous object", func(t *testing.T) {
		props := Decorator{Preset: "islands#dotIcon"}.Properties(Object{ID: "node/7"})
		assert.Equal(t, "node/7", props["hintContent"])
		assert.NotContains(t, props, "iconContent")
		assert.Equal(t, map[string]any{"preset": "islands#dotIcon"}, props["options"])
	})
}
