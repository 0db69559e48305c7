// Package rom serves remote object tiles to the map widget's remote object
// manager.
package rom

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/romhost/internal/tile"
	"github.com/paulmach/orb"
)

// MaxClusterDepth is the deepest cluster level a client may ask for.
const MaxClusterDepth = 4

// DefaultMaxTiles bounds the tile range of a single request.
const DefaultMaxTiles = 1024

var callbackRe = regexp.MustCompile(`^[A-Za-z_$][A-Za-z0-9_$.]{0,127}$`)

// ParamError reports an unusable query parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", e.Param, e.Value, e.Err)
}

func (e *ParamError) Unwrap() error { return e.Err }

func paramErr(param, value string, format string, args ...any) *ParamError {
	return &ParamError{Param: param, Value: value, Err: fmt.Errorf(format, args...)}
}

// Request is a parsed tile request.
type Request struct {
	Tiles tile.Range
	// BBox is the viewport sent by the bbox profile, Min/Max as (lon, lat).
	// Zero when absent.
	BBox         orb.Bound
	HasBBox      bool
	Zoom         uint32
	Callback     string
	Debug        bool
	ClusterDepth int
}

// ParseRequest parses the remote object manager query. zoom is required,
// and at least one of tiles or bbox. clusterLevel is accepted as an alias of
// clusterDepth.
func ParseRequest(q url.Values) (*Request, error) {
	req := &Request{}

	zoomStr := q.Get("zoom")
	zoom, err := strconv.ParseUint(zoomStr, 10, 32)
	if err != nil {
		return nil, paramErr("zoom", zoomStr, "not a non-negative integer")
	}
	if zoom > tile.MaxZoom {
		return nil, paramErr("zoom", zoomStr, "greater than %d", tile.MaxZoom)
	}
	req.Zoom = uint32(zoom)

	if s := q.Get("bbox"); s != "" {
		b, err := parseBBox(s)
		if err != nil {
			return nil, &ParamError{Param: "bbox", Value: s, Err: err}
		}
		req.BBox = b
		req.HasBBox = true
	}

	switch s := q.Get("tiles"); {
	case s != "":
		r, err := tile.ParseRange(s, req.Zoom)
		if err != nil {
			return nil, &ParamError{Param: "tiles", Value: s, Err: err}
		}
		req.Tiles = r
	case req.HasBBox:
		req.Tiles = tile.Cover(req.BBox, req.Zoom)
	default:
		return nil, paramErr("tiles", "", "tiles or bbox is required")
	}

	if cb := q.Get("callback"); cb != "" {
		if !callbackRe.MatchString(cb) {
			return nil, paramErr("callback", cb, "not a JavaScript identifier")
		}
		req.Callback = cb
	}

	if s := q.Get("debug"); s != "" {
		req.Debug, err = strconv.ParseBool(s)
		if err != nil {
			return nil, paramErr("debug", s, "not a boolean")
		}
	}

	for _, key := range []string{"clusterDepth", "clusterLevel"} {
		s := q.Get(key)
		if s == "" {
			continue
		}
		depth, err := strconv.Atoi(s)
		if err != nil {
			return nil, paramErr(key, s, "not an integer")
		}
		if depth < 0 || depth > MaxClusterDepth {
			return nil, paramErr(key, s, "must be within [0,%d]", MaxClusterDepth)
		}
		req.ClusterDepth = depth
		break
	}

	return req, nil
}

// Bound returns the area to load objects for: the tile range, narrowed to
// the bbox when both are given.
func (r *Request) Bound() orb.Bound {
	b := r.Tiles.Bound()
	if !r.HasBBox || !b.Intersects(r.BBox) {
		return b
	}
	return orb.Bound{
		Min: orb.Point{max(b.Min.Lon(), r.BBox.Min.Lon()), max(b.Min.Lat(), r.BBox.Min.Lat())},
		Max: orb.Point{min(b.Max.Lon(), r.BBox.Max.Lon()), min(b.Max.Lat(), r.BBox.Max.Lat())},
	}
}

// parseBBox parses "lat1,lon1,lat2,lon2", the map widget's latlong order.
func parseBBox(s string) (orb.Bound, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return orb.Bound{}, fmt.Errorf("want lat1,lon1,lat2,lon2")
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return orb.Bound{}, fmt.Errorf("coordinate %d: %w", i+1, err)
		}
		v[i] = f
	}
	for _, lat := range []float64{v[0], v[2]} {
		if lat < -90 || lat > 90 {
			return orb.Bound{}, fmt.Errorf("latitude %g out of range", lat)
		}
	}
	b := orb.Bound{Min: orb.Point{v[1], v[0]}, Max: orb.Point{v[1], v[0]}}
	return b.Extend(orb.Point{v[3], v[2]}), nil
}
