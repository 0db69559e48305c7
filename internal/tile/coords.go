// Package tile addresses Web Mercator tiles and ranges of them.
package tile

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// MaxZoom is the deepest zoom level accepted from clients.
const MaxZoom = 23

// Coords represents a tile coordinate in the Web Mercator tile system (z/x/y)
type Coords struct {
	Z uint32 // Zoom level
	X uint32 // X coordinate (column)
	Y uint32 // Y coordinate (row)
}

// NewCoords creates a new Coords from zoom, x, y values
func NewCoords(z, x, y uint32) Coords {
	return Coords{Z: z, X: x, Y: y}
}

// String returns the tile coordinate as a string in format "z{zoom}_x{x}_y{y}"
func (c Coords) String() string {
	return fmt.Sprintf("z%d_x%d_y%d", c.Z, c.X, c.Y)
}

// Key returns the coordinate as "z/x/y".
func (c Coords) Key() string {
	return fmt.Sprintf("%d/%d/%d", c.Z, c.X, c.Y)
}

// Tile returns the maptile.Tile for this coordinate
func (c Coords) Tile() maptile.Tile {
	return maptile.New(c.X, c.Y, maptile.Zoom(c.Z))
}

// Bound returns the WGS84 bound of the tile, Min/Max as (lon, lat).
func (c Coords) Bound() orb.Bound {
	return c.Tile().Bound()
}

// Range is an inclusive rectangle of tiles at one zoom level.
type Range struct {
	Z          uint32
	MinX, MinY uint32
	MaxX, MaxY uint32
}

// ParseRange parses "x1,y1,x2,y2" at zoom z. Corners may come in any order;
// coordinates are clamped to the zoom's tile grid.
func ParseRange(s string, z uint32) (Range, error) {
	if z > MaxZoom {
		return Range{}, fmt.Errorf("zoom %d exceeds maximum %d", z, MaxZoom)
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return Range{}, fmt.Errorf("invalid tile range %q: want x1,y1,x2,y2", s)
	}

	var v [4]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return Range{}, fmt.Errorf("invalid tile range %q: %w", s, err)
		}
		v[i] = n
	}

	limit := int64(1)<<z - 1
	clamp := func(n int64) uint32 {
		if n < 0 {
			return 0
		}
		if n > limit {
			return uint32(limit)
		}
		return uint32(n)
	}

	r := Range{
		Z:    z,
		MinX: clamp(min(v[0], v[2])),
		MaxX: clamp(max(v[0], v[2])),
		MinY: clamp(min(v[1], v[3])),
		MaxY: clamp(max(v[1], v[3])),
	}
	return r, nil
}

// Cover returns the range of tiles at zoom z intersecting b.
func Cover(b orb.Bound, z uint32) Range {
	zoom := maptile.Zoom(z)
	minTile := maptile.At(orb.Point{b.Min.Lon(), b.Max.Lat()}, zoom)
	maxTile := maptile.At(orb.Point{b.Max.Lon(), b.Min.Lat()}, zoom)

	// Ensure min/max are correctly ordered
	minX, maxX := minTile.X, maxTile.X
	if minX > maxX {
		minX, maxX = maxX, minX
	}
	minY, maxY := minTile.Y, maxTile.Y
	if minY > maxY {
		minY, maxY = maxY, minY
	}

	// At snaps lon 180 and lat -85.05 one past the last tile.
	limit := uint32(1)<<z - 1
	minX, maxX = min(minX, limit), min(maxX, limit)
	minY, maxY = min(minY, limit), min(maxY, limit)

	return Range{Z: z, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Count returns the number of tiles in the range.
func (r Range) Count() uint64 {
	return uint64(r.MaxX-r.MinX+1) * uint64(r.MaxY-r.MinY+1)
}

// ForEach calls fn for every tile in the range, column by column.
func (r Range) ForEach(fn func(Coords)) {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			fn(NewCoords(r.Z, x, y))
		}
	}
}

// Tiles lists the tiles in the range.
func (r Range) Tiles() []Coords {
	tiles := make([]Coords, 0, r.Count())
	r.ForEach(func(c Coords) { tiles = append(tiles, c) })
	return tiles
}

// Bound returns the WGS84 bound covering the whole range.
func (r Range) Bound() orb.Bound {
	return NewCoords(r.Z, r.MinX, r.MinY).Bound().Union(NewCoords(r.Z, r.MaxX, r.MaxY).Bound())
}

// String returns "z{zoom}_x{minX}-{maxX}_y{minY}-{maxY}".
func (r Range) String() string {
	return fmt.Sprintf("z%d_x%d-%d_y%d-%d", r.Z, r.MinX, r.MaxX, r.MinY, r.MaxY)
}

// TilesInBound returns all tile coordinates within b across a zoom range.
// Calculates tile coordinates at each zoom level independently.
func TilesInBound(b orb.Bound, zoomMin, zoomMax uint32) []Coords {
	tiles := make([]Coords, 0, TileCount(b, zoomMin, zoomMax))
	for z := zoomMin; z <= zoomMax; z++ {
		tiles = append(tiles, Cover(b, z).Tiles()...)
	}
	return tiles
}

// TileCount returns the number of tiles in b across a zoom range.
// This is useful for progress estimation without allocating the full tile list.
func TileCount(b orb.Bound, zoomMin, zoomMax uint32) int {
	count := 0
	for z := zoomMin; z <= zoomMax; z++ {
		count += int(Cover(b, z).Count())
	}
	return count
}
