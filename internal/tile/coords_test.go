package tile

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoordsString(t *testing.T) {
	tests := []struct {
		coords   Coords
		expected string
		key      string
	}{
		{Coords{Z: 13, X: 4297, Y: 2754}, "z13_x4297_y2754", "13/4297/2754"},
		{Coords{Z: 0, X: 0, Y: 0}, "z0_x0_y0", "0/0/0"},
		{Coords{Z: 18, X: 12345, Y: 67890}, "z18_x12345_y67890", "18/12345/67890"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.coords.String())
			assert.Equal(t, tt.key, tt.coords.Key())
		})
	}
}

func TestCoordsBound(t *testing.T) {
	// Tile over central Moscow at z10.
	b := NewCoords(10, 619, 320).Bound()

	assert.Less(t, b.Min.Lon(), b.Max.Lon())
	assert.Less(t, b.Min.Lat(), b.Max.Lat())
	assert.True(t, b.Contains(orb.Point{37.62, 55.75}), "bound %v should contain Moscow", b)
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		zoom    uint32
		want    Range
		wantErr bool
	}{
		{
			name:  "ordered",
			input: "1,2,3,4",
			zoom:  5,
			want:  Range{Z: 5, MinX: 1, MinY: 2, MaxX: 3, MaxY: 4},
		},
		{
			name:  "reversed corners",
			input: "3,4,1,2",
			zoom:  5,
			want:  Range{Z: 5, MinX: 1, MinY: 2, MaxX: 3, MaxY: 4},
		},
		{
			name:  "clamped to grid",
			input: "-1,-5,9,9",
			zoom:  2,
			want:  Range{Z: 2, MinX: 0, MinY: 0, MaxX: 3, MaxY: 3},
		},
		{
			name:  "spaces",
			input: " 1, 2 ,3,4",
			zoom:  3,
			want:  Range{Z: 3, MinX: 1, MinY: 2, MaxX: 3, MaxY: 4},
		},
		{name: "too few values", input: "1,2,3", zoom: 3, wantErr: true},
		{name: "not a number", input: "1,b,3,4", zoom: 3, wantErr: true},
		{name: "float", input: "1.5,2,3,4", zoom: 3, wantErr: true},
		{name: "zoom too deep", input: "1,2,3,4", zoom: 30, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRange(tt.input, tt.zoom)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRangeTiles(t *testing.T) {
	r := Range{Z: 4, MinX: 1, MinY: 2, MaxX: 2, MaxY: 4}

	assert.Equal(t, uint64(6), r.Count())

	tiles := r.Tiles()
	require.Len(t, tiles, 6)
	assert.Equal(t, NewCoords(4, 1, 2), tiles[0])
	assert.Equal(t, NewCoords(4, 2, 4), tiles[5])
}

func TestRangeBound(t *testing.T) {
	r := Range{Z: 3, MinX: 1, MinY: 1, MaxX: 2, MaxY: 2}
	b := r.Bound()

	for _, c := range r.Tiles() {
		cb := c.Bound()
		assert.True(t, b.Contains(cb.Center()), "range bound should contain tile %s", c)
	}
	assert.InDelta(t, -135.0, b.Min.Lon(), 1e-9)
	assert.InDelta(t, -45.0, b.Max.Lon(), 1e-9)
}

func TestCover(t *testing.T) {
	r := Range{Z: 6, MinX: 10, MinY: 20, MaxX: 12, MaxY: 21}
	inner := r.Bound().Pad(-1e-6)

	assert.Equal(t, r, Cover(inner, 6))
}

func TestTilesInBound(t *testing.T) {
	b := NewCoords(10, 619, 320).Bound().Pad(-1e-6)

	tiles := TilesInBound(b, 10, 11)
	assert.Len(t, tiles, 1+4)
	assert.Equal(t, 5, TileCount(b, 10, 11))
	assert.Equal(t, NewCoords(10, 619, 320), tiles[0])
}
