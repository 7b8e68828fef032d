package leveldata

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lafriks/go-tiled"
)

// LoadTileMap parses a TMX file into a Grid. Only the listed tile properties
// are retained; every tile layer contributes to intersection queries. It
// takes an fs.FS so callers can pass embed.FS or os.DirFS.
func LoadTileMap(fsys fs.FS, tmxPath, spawnGroup string, properties ...string) (*Grid, error) {
	levelMap, err := tiled.LoadFile(tmxPath, tiled.WithFileSystem(fsys))
	if err != nil {
		return nil, fmt.Errorf("load TMX %s: %w", tmxPath, err)
	}

	grid := &Grid{
		Width:      levelMap.Width,
		Height:     levelMap.Height,
		TileW:      float64(levelMap.TileWidth),
		TileH:      float64(levelMap.TileHeight),
		Properties: make(map[uint32]map[string]string),
	}

	for _, layer := range levelMap.Layers {
		cells := make([]uint32, levelMap.Width*levelMap.Height)
		for i, tile := range layer.Tiles {
			if i >= len(cells) || tile == nil || tile.IsNil() {
				continue
			}
			gid := tile.Tileset.FirstGID + tile.ID
			cells[i] = gid

			if _, seen := grid.Properties[gid]; seen {
				continue
			}
			tilesetTile, err := tile.Tileset.GetTilesetTile(tile.ID)
			if err != nil {
				// no tile definition, so no properties
				grid.Properties[gid] = nil
				continue
			}
			props := make(map[string]string, len(properties))
			for _, name := range properties {
				if v := tilesetTile.Properties.GetString(name); v != "" {
					props[name] = v
				}
			}
			grid.Properties[gid] = props
		}
		grid.Layers = append(grid.Layers, cells)
	}

	for _, og := range levelMap.ObjectGroups {
		if og.Name != spawnGroup {
			continue
		}
		for _, o := range og.Objects {
			grid.SpawnPoints = append(grid.SpawnPoints, SpawnPoint{
				X:     o.X,
				Y:     o.Y,
				Index: o.Properties.GetInt("spawnIndex"),
			})
		}
	}

	// Sort spawns left-to-right for consistent assignment
	sort.Slice(grid.SpawnPoints, func(i, j int) bool {
		return grid.SpawnPoints[i].X < grid.SpawnPoints[j].X
	})

	return grid, nil
}

// LoadAllTileMaps discovers all .tmx files in dir within fsys and returns the
// grids keyed by stem name plus a sorted list of names.
func LoadAllTileMaps(fsys fs.FS, dir, spawnGroup string, properties ...string) (map[string]*Grid, []string, error) {
	pattern := dir + "/*.tmx"
	matches, err := fs.Glob(fsys, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("glob %s: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, nil, fmt.Errorf("no .tmx files found in %s", dir)
	}

	maps := make(map[string]*Grid, len(matches))
	names := make([]string, 0, len(matches))
	for _, path := range matches {
		grid, err := LoadTileMap(fsys, path, spawnGroup, properties...)
		if err != nil {
			return nil, nil, fmt.Errorf("load %s: %w", path, err)
		}
		stem := strings.TrimSuffix(filepath.Base(path), ".tmx")
		maps[stem] = grid
		names = append(names, stem)
	}

	sort.Strings(names)
	return maps, names, nil
}
