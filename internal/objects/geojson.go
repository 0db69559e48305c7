package objects

import (
	"context"
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// GeoJSONSource serves the point features of a GeoJSON file from memory.
type GeoJSONSource struct {
	name    string
	objects []Object
	skipped int
}

// LoadGeoJSON reads a FeatureCollection from path.
func LoadGeoJSON(name, path string) (*GeoJSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return NewGeoJSONSource(name, fc), nil
}

// NewGeoJSONSource keeps the Point and MultiPoint features of fc. Other
// geometries are counted in Skipped.
func NewGeoJSONSource(name string, fc *geojson.FeatureCollection) *GeoJSONSource {
	s := &GeoJSONSource{name: name}
	for i, f := range fc.Features {
		s.objects = append(s.objects, FeatureObjects(f, i)...)
		switch f.Geometry.(type) {
		case orb.Point, orb.MultiPoint:
		default:
			s.skipped++
		}
	}
	return s
}

// FeatureObjects converts a GeoJSON feature into objects. index names
// features without an id. Non-point geometries yield nothing.
func FeatureObjects(f *geojson.Feature, index int) []Object {
	id := featureID(f, index)
	props := map[string]any(f.Properties.Clone())

	switch g := f.Geometry.(type) {
	case orb.Point:
		return []Object{{ID: id, Point: g, Properties: props}}
	case orb.MultiPoint:
		out := make([]Object, 0, len(g))
		for j, p := range g {
			out = append(out, Object{ID: fmt.Sprintf("%s.%d", id, j), Point: p, Properties: props})
		}
		return out
	default:
		return nil
	}
}

func featureID(f *geojson.Feature, index int) string {
	if f.ID != nil {
		switch v := f.ID.(type) {
		case float64:
			return fmt.Sprintf("%.0f", v)
		default:
			return fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("f%d", index)
}

// Name implements Source.
func (s *GeoJSONSource) Name() string { return s.name }

// Len returns the number of loaded objects.
func (s *GeoJSONSource) Len() int { return len(s.objects) }

// Skipped returns the number of features without point geometry.
func (s *GeoJSONSource) Skipped() int { return s.skipped }

// Objects implements Source with a linear scan.
func (s *GeoJSONSource) Objects(ctx context.Context, b orb.Bound) ([]Object, error) {
	var out []Object
	for _, o := range s.objects {
		if b.Contains(o.Point) {
			out = append(out, o)
		}
	}
	return out, ctx.Err()
}

// Ready implements Source. The file is loaded up front.
func (s *GeoJSONSource) Ready(ctx context.Context) error { return nil }

// Close implements Source.
func (s *GeoJSONSource) Close() error { return nil }
