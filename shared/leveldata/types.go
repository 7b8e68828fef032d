// Package leveldata provides the tile map collaborator used by movement and
// collision on both client and server, plus a TMX loader. It has no
// dependency on rendering code.
package leveldata

import (
	"math"

	"github.com/planeflight/hido/shared/gamemath"
)

// TileRef identifies one non-empty tile returned by an intersection query.
type TileRef struct {
	GID   uint32 // global tile id, never 0
	Index int    // flat index y*width+x within the layer
	Layer int
}

// TileMap is the read-only view of world geometry the synchronization core
// depends on.
type TileMap interface {
	// IntersectingTiles returns every non-empty tile whose cell intersects r.
	IntersectingTiles(r gamemath.Rect) []TileRef
	// HasProperty reports whether the tile carries a truthy property.
	HasProperty(t TileRef, name string) bool
	// TileRect returns the world rectangle of the cell at a flat index.
	TileRect(index int) gamemath.Rect
	// Bounds returns the world rectangle covered by the map.
	Bounds() gamemath.Rect
}

// SpawnPoint represents a player spawn location.
type SpawnPoint struct {
	X, Y  float64
	Index int
}

// Grid is an in-memory tile map made of equally sized layers.
type Grid struct {
	Width, Height int // in tiles
	TileW, TileH  float64
	Layers        [][]uint32
	Properties    map[uint32]map[string]string
	SpawnPoints   []SpawnPoint
}

// NewGrid allocates a grid with a single empty layer.
func NewGrid(width, height int, tileW, tileH float64) *Grid {
	return &Grid{
		Width:      width,
		Height:     height,
		TileW:      tileW,
		TileH:      tileH,
		Layers:     [][]uint32{make([]uint32, width*height)},
		Properties: make(map[uint32]map[string]string),
	}
}

// Set places gid at (x, y) on layer 0.
func (g *Grid) Set(x, y int, gid uint32) {
	g.Layers[0][y*g.Width+x] = gid
}

// SetProperty attaches a property to every tile using gid.
func (g *Grid) SetProperty(gid uint32, name, value string) {
	props, ok := g.Properties[gid]
	if !ok {
		props = make(map[string]string)
		g.Properties[gid] = props
	}
	props[name] = value
}

func (g *Grid) Bounds() gamemath.Rect {
	return gamemath.Rect{W: float64(g.Width) * g.TileW, H: float64(g.Height) * g.TileH}
}

func (g *Grid) TileRect(index int) gamemath.Rect {
	x := index % g.Width
	y := index / g.Width
	return gamemath.Rect{
		X: float64(x) * g.TileW,
		Y: float64(y) * g.TileH,
		W: g.TileW,
		H: g.TileH,
	}
}

func (g *Grid) IntersectingTiles(r gamemath.Rect) []TileRef {
	if g.Width == 0 || g.Height == 0 || !r.Overlaps(g.Bounds()) {
		return nil
	}

	left := clampIndex(int(math.Floor(r.X/g.TileW)), g.Width)
	right := clampIndex(int(math.Ceil(r.Right()/g.TileW))-1, g.Width)
	top := clampIndex(int(math.Floor(r.Y/g.TileH)), g.Height)
	bottom := clampIndex(int(math.Ceil(r.Bottom()/g.TileH))-1, g.Height)

	var out []TileRef
	for l, layer := range g.Layers {
		for y := top; y <= bottom; y++ {
			for x := left; x <= right; x++ {
				idx := y*g.Width + x
				if gid := layer[idx]; gid != 0 {
					out = append(out, TileRef{GID: gid, Index: idx, Layer: l})
				}
			}
		}
	}
	return out
}

func (g *Grid) HasProperty(t TileRef, name string) bool {
	return truthy(g.Property(t, name))
}

// Property returns the raw property value, or "" when absent.
func (g *Grid) Property(t TileRef, name string) string {
	return g.Properties[t.GID][name]
}

func truthy(v string) bool {
	return v != "" && v != "false" && v != "0"
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
