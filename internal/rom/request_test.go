package rom

import (
	"errors"
	"net/url"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func query(s string) url.Values {
	v, err := url.ParseQuery(s)
	if err != nil {
		panic(err)
	}
	return v
}

func TestParseRequest_Tiles(t *testing.T) {
	req, err := ParseRequest(query("tiles=3,2,1,1&zoom=3&debug=false&clusterDepth=1&callback=id_123"))
	require.NoError(t, err)

	assert.Equal(t, uint32(3), req.Zoom)
	assert.Equal(t, uint32(1), req.Tiles.MinX)
	assert.Equal(t, uint32(3), req.Tiles.MaxX)
	assert.Equal(t, uint32(1), req.Tiles.MinY)
	assert.Equal(t, uint32(2), req.Tiles.MaxY)
	assert.Equal(t, "id_123", req.Callback)
	assert.False(t, req.Debug)
	assert.Equal(t, 1, req.ClusterDepth)
	assert.False(t, req.HasBBox)
}

func TestParseRequest_BBoxOnly(t *testing.T) {
	req, err := ParseRequest(query("bbox=55.5,37.3,56.0,37.9&zoom=10&clusterLevel=2&debug=true"))
	require.NoError(t, err)

	require.True(t, req.HasBBox)
	assert.InDelta(t, 37.3, req.BBox.Min.Lon(), 1e-9)
	assert.InDelta(t, 55.5, req.BBox.Min.Lat(), 1e-9)
	assert.InDelta(t, 37.9, req.BBox.Max.Lon(), 1e-9)
	assert.InDelta(t, 56.0, req.BBox.Max.Lat(), 1e-9)
	assert.True(t, req.Debug)
	assert.Equal(t, 2, req.ClusterDepth)
	assert.Positive(t, req.Tiles.Count())

	b := req.Bound()
	assert.True(t, req.BBox.Contains(b.Min))
	assert.True(t, req.BBox.Contains(b.Max))
}

func TestParseRequest_Errors(t *testing.T) {
	tests := []struct {
		name  string
		query string
		param string
	}{
		{"missing zoom", "tiles=0,0,1,1", "zoom"},
		{"negative zoom", "tiles=0,0,1,1&zoom=-1", "zoom"},
		{"zoom too deep", "tiles=0,0,1,1&zoom=24", "zoom"},
		{"no area", "zoom=3", "tiles"},
		{"bad tiles", "tiles=0,0,1&zoom=3", "tiles"},
		{"bad bbox", "bbox=1,2,3&zoom=3", "bbox"},
		{"bbox latitude", "bbox=91,0,0,1&zoom=3", "bbox"},
		{"bad callback", "tiles=0,0,1,1&zoom=3&callback=alert(1)", "callback"},
		{"bad debug", "tiles=0,0,1,1&zoom=3&debug=maybe", "debug"},
		{"bad cluster depth", "tiles=0,0,1,1&zoom=3&clusterDepth=x", "clusterDepth"},
		{"cluster depth range", "tiles=0,0,1,1&zoom=3&clusterDepth=5", "clusterDepth"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRequest(query(tt.query))
			require.Error(t, err)

			var pe *ParamError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.param, pe.Param)
		})
	}
}

func TestRequestBound_Disjoint(t *testing.T) {
	req, err := ParseRequest(query("tiles=0,0,0,0&zoom=1"))
	require.NoError(t, err)
	req.BBox = orb.Bound{Min: orb.Point{10, -10}, Max: orb.Point{20, -5}}
	req.HasBBox = true

	// The bbox lies in the southern hemisphere, tile 1/0/0 in the northern.
	assert.Equal(t, req.Tiles.Bound(), req.Bound())
}
