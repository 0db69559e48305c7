package rom

import (
	"encoding/json"
	"fmt"

	"github.com/MeKo-Tech/romhost/internal/stylefilter"
	"github.com/MeKo-Tech/romhost/internal/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Content types of tile responses.
const (
	ContentTypeJSON  = "application/json; charset=utf-8"
	ContentTypeJSONP = "application/javascript; charset=utf-8"
)

// debugFill is the translucent fill of debug tile outlines.
const debugFill = "rgba(27, 125, 27, 0.2)"

// ObjectFilter decides inclusion of, and may restyle, an object before it
// is written.
type ObjectFilter interface {
	Apply(obj *stylefilter.Object) bool
}

// Collection accumulates the features of one response. Coordinates are
// written in latlong order, the map widget's default.
type Collection struct {
	fc      *geojson.FeatureCollection
	filter  ObjectFilter
	dropped []string
}

// NewCollection returns an empty collection passing features through f.
func NewCollection(f ObjectFilter) *Collection {
	return &Collection{fc: geojson.NewFeatureCollection(), filter: f}
}

// Len returns the number of features added.
func (c *Collection) Len() int { return len(c.fc.Features) }

// Dropped returns the option keys rejected while parsing property bags.
func (c *Collection) Dropped() []string { return c.dropped }

// Add validates props, runs the filter and appends the feature unless the
// filter excludes it. It reports whether the feature was added.
func (c *Collection) Add(id any, geom orb.Geometry, props map[string]any) bool {
	parsed, dropped := stylefilter.ParseProperties(props)
	c.dropped = append(c.dropped, dropped...)

	obj := &stylefilter.Object{ID: id, Properties: parsed}
	if c.filter != nil && !c.filter.Apply(obj) {
		return false
	}

	f := geojson.NewFeature(latLong(geom))
	f.ID = id
	f.Properties = geojson.Properties(obj.Properties.Map())
	if len(obj.Options) > 0 {
		f.ExtraMembers = geojson.Properties{stylefilter.PropOptions: obj.Options.Map()}
	}
	c.fc.Append(f)
	return true
}

// AddTile appends the outline of t as a debug polygon.
func (c *Collection) AddTile(t tile.Coords, clusterDepth int) {
	c.Add("tile:"+t.Key(), t.Bound().ToPolygon(), map[string]any{
		"hintContent":  t.Key(),
		"clusterDepth": clusterDepth,
		stylefilter.PropOptions: map[string]any{
			"fillColor":   debugFill,
			"strokeWidth": 1,
		},
	})
}

type envelope struct {
	Error *string                    `json:"error"`
	Data  *geojson.FeatureCollection `json:"data"`
}

// Encode renders the collection in the remote object manager envelope,
// wrapped in callback(...) when callback is set.
func (c *Collection) Encode(callback string) (body []byte, contentType string, err error) {
	data, err := json.Marshal(envelope{Data: c.fc})
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode features: %w", err)
	}
	if callback == "" {
		return data, ContentTypeJSON, nil
	}

	out := make([]byte, 0, len(callback)+len(data)+3)
	out = append(out, callback...)
	out = append(out, '(')
	out = append(out, data...)
	out = append(out, ");"...)
	return out, ContentTypeJSONP, nil
}

// latLong swaps (lon, lat) to (lat, lon).
func latLong(g orb.Geometry) orb.Geometry {
	switch v := g.(type) {
	case orb.Point:
		return orb.Point{v[1], v[0]}
	case orb.Polygon:
		out := make(orb.Polygon, len(v))
		for i, ring := range v {
			r := make(orb.Ring, len(ring))
			for j, p := range ring {
				r[j] = orb.Point{p[1], p[0]}
			}
			out[i] = r
		}
		return out
	default:
		return g
	}
}
