package systems

import (
	"math"

	astar "github.com/beefsack/go-astar"

	"github.com/planeflight/hido/shared/gamemath"
	"github.com/planeflight/hido/shared/leveldata"
)

// NavGrid represents the walkable areas of the level
type NavGrid struct {
	Width, Height int
	CellSize      float64
	Nodes         [][]*NavNode
}

// NavNode represents a single cell in the navigation grid.
// Implements astar.Pather.
type NavNode struct {
	X, Y     int
	Walkable bool
	Grid     *NavGrid
}

var navDirs = []struct{ dx, dy int }{
	{-1, 0}, {1, 0}, {0, -1}, {0, 1},
	{-1, -1}, {1, -1}, {-1, 1}, {1, 1},
}

// PathNeighbors returns adjacent walkable nodes. Diagonal steps need both
// orthogonal cells free so paths never clip a wall corner.
func (n *NavNode) PathNeighbors() []astar.Pather {
	var neighbors []astar.Pather
	for _, d := range navDirs {
		if !n.Grid.walkable(n.X+d.dx, n.Y+d.dy) {
			continue
		}
		if d.dx != 0 && d.dy != 0 && (!n.Grid.walkable(n.X+d.dx, n.Y) || !n.Grid.walkable(n.X, n.Y+d.dy)) {
			continue
		}
		neighbors = append(neighbors, n.Grid.Nodes[n.Y+d.dy][n.X+d.dx])
	}
	return neighbors
}

// PathNeighborCost returns the movement cost between adjacent nodes
func (n *NavNode) PathNeighborCost(to astar.Pather) float64 {
	return n.PathEstimatedCost(to)
}

// PathEstimatedCost returns the euclidean distance to the target
func (n *NavNode) PathEstimatedCost(to astar.Pather) float64 {
	toNode := to.(*NavNode)
	dx := float64(toNode.X - n.X)
	dy := float64(toNode.Y - n.Y)
	return math.Sqrt(dx*dx + dy*dy)
}

// NewNavGrid probes every cell of m with a slightly inset rect and marks
// cells touching a blocking tile as unwalkable.
func NewNavGrid(m leveldata.TileMap, cellSize float64, blocking string) *NavGrid {
	bounds := m.Bounds()
	gridW := int(bounds.W / cellSize)
	gridH := int(bounds.H / cellSize)

	grid := &NavGrid{
		Width:    gridW,
		Height:   gridH,
		CellSize: cellSize,
		Nodes:    make([][]*NavNode, gridH),
	}

	for y := 0; y < gridH; y++ {
		grid.Nodes[y] = make([]*NavNode, gridW)
		for x := 0; x < gridW; x++ {
			probe := gamemath.Rect{
				X: bounds.X + float64(x)*cellSize + 1,
				Y: bounds.Y + float64(y)*cellSize + 1,
				W: cellSize - 2,
				H: cellSize - 2,
			}
			walkable := true
			for _, t := range m.IntersectingTiles(probe) {
				if m.HasProperty(t, blocking) {
					walkable = false
					break
				}
			}
			grid.Nodes[y][x] = &NavNode{X: x, Y: y, Walkable: walkable, Grid: grid}
		}
	}
	return grid
}

func (g *NavGrid) walkable(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height && g.Nodes[y][x].Walkable
}

// FindPath uses go-astar to find a path between world coordinates
func (g *NavGrid) FindPath(startX, startY, goalX, goalY float64) []*NavNode {
	if g.Width == 0 || g.Height == 0 {
		return nil
	}
	sx := clampInt(int(startX/g.CellSize), 0, g.Width-1)
	sy := clampInt(int(startY/g.CellSize), 0, g.Height-1)
	gx := clampInt(int(goalX/g.CellSize), 0, g.Width-1)
	gy := clampInt(int(goalY/g.CellSize), 0, g.Height-1)

	startNode := g.Nodes[sy][sx]
	goalNode := g.Nodes[gy][gx]

	if !startNode.Walkable {
		startNode = g.findNearestWalkable(sx, sy)
	}
	if !goalNode.Walkable {
		goalNode = g.findNearestWalkable(gx, gy)
	}
	if startNode == nil || goalNode == nil {
		return nil
	}

	path, _, found := astar.Path(startNode, goalNode)
	if !found {
		return nil
	}

	// go-astar returns the path goal first
	result := make([]*NavNode, len(path))
	for i, p := range path {
		result[len(path)-1-i] = p.(*NavNode)
	}
	return result
}

// findNearestWalkable searches expanding squares around (x, y)
func (g *NavGrid) findNearestWalkable(x, y int) *NavNode {
	for radius := 1; radius < 10; radius++ {
		for dy := -radius; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if g.walkable(x+dx, y+dy) {
					return g.Nodes[y+dy][x+dx]
				}
			}
		}
	}
	return nil
}

// GridToWorld converts grid coordinates to the world center of the cell
func (g *NavGrid) GridToWorld(gridX, gridY int) gamemath.Vec2 {
	return gamemath.Vec2{
		X: float64(gridX)*g.CellSize + g.CellSize/2,
		Y: float64(gridY)*g.CellSize + g.CellSize/2,
	}
}

func clampInt(v, minVal, maxVal int) int {
	return max(minVal, min(maxVal, v))
}
