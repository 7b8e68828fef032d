package core

import (
	"fmt"
	"io/fs"
	"math"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
	"github.com/solarlune/resolv"
)

const broadphaseCell = 16

// ServerLevel holds the tile map used for movement plus the resolv space
// used as the hit broadphase for players and bullets.
type ServerLevel struct {
	Map         leveldata.TileMap
	Space       *resolv.Space
	SpawnPoints []leveldata.SpawnPoint
}

// NewServerLevel builds the broadphase space covering the map bounds.
func NewServerLevel(m leveldata.TileMap, spawns []leveldata.SpawnPoint) *ServerLevel {
	b := m.Bounds()
	w := int(math.Ceil(b.W))
	h := int(math.Ceil(b.H))
	if w < broadphaseCell {
		w = broadphaseCell
	}
	if h < broadphaseCell {
		h = broadphaseCell
	}
	return &ServerLevel{
		Map:         m,
		Space:       resolv.NewSpace(w, h, broadphaseCell, broadphaseCell),
		SpawnPoints: spawns,
	}
}

// NewGridLevel wraps an in-memory grid, taking its spawn points.
func NewGridLevel(g *leveldata.Grid) *ServerLevel {
	return NewServerLevel(g, g.SpawnPoints)
}

// SpawnRect returns the rect a newly registered player starts at. Spawn
// points from the map are handed out round robin by client id; without any
// the configured default is used.
func (l *ServerLevel) SpawnRect(id int32) gamemath.Rect {
	r := gamemath.Rect{
		X: config.Player.SpawnX,
		Y: config.Player.SpawnY,
		W: config.Player.CollisionWidth,
		H: config.Player.CollisionHeight,
	}
	if n := len(l.SpawnPoints); n > 0 {
		sp := l.SpawnPoints[int(id)%n]
		r.X, r.Y = sp.X, sp.Y
	}
	return r
}

// LoadServerLevel loads levels/<name>.tmx from fsys.
func LoadServerLevel(fsys fs.FS, name string) (*ServerLevel, error) {
	grid, err := leveldata.LoadTileMap(fsys, "levels/"+name+".tmx",
		config.Map.SpawnGroup, config.Map.BlockingProperty)
	if err != nil {
		return nil, fmt.Errorf("load level %s: %w", name, err)
	}
	return NewGridLevel(grid), nil
}

// LoadAllServerLevels loads all .tmx levels under levels/ in fsys,
// returning a map of ServerLevel keyed by stem name plus a sorted name list.
func LoadAllServerLevels(fsys fs.FS) (map[string]*ServerLevel, []string, error) {
	grids, names, err := leveldata.LoadAllTileMaps(fsys, "levels",
		config.Map.SpawnGroup, config.Map.BlockingProperty)
	if err != nil {
		return nil, nil, fmt.Errorf("load all levels: %w", err)
	}

	levels := make(map[string]*ServerLevel, len(names))
	for _, name := range names {
		levels[name] = NewGridLevel(grids[name])
	}
	return levels, names, nil
}
