package systems

import (
	"testing"

	"github.com/planeflight/hido/config"
	"github.com/planeflight/hido/network"
	"github.com/planeflight/hido/shared/messages"
)

func walledArena() *NavGrid {
	g := arena()
	// wall across column 5 with a gap at the bottom
	for y := 1; y < 25; y++ {
		g.Set(5, y, 1)
	}
	return NewNavGrid(g, 16, "blocked")
}

func TestNavGridMarksBlockedCells(t *testing.T) {
	nav := walledArena()
	if nav.Width != 40 || nav.Height != 30 {
		t.Fatalf("grid %dx%d, want 40x30", nav.Width, nav.Height)
	}
	if nav.Nodes[0][0].Walkable || nav.Nodes[10][5].Walkable {
		t.Fatalf("wall cells marked walkable")
	}
	if !nav.Nodes[10][4].Walkable || !nav.Nodes[26][5].Walkable {
		t.Fatalf("open cells marked blocked")
	}
}

func TestFindPathGoesAroundWall(t *testing.T) {
	nav := walledArena()
	start := nav.GridToWorld(2, 2)
	goal := nav.GridToWorld(8, 2)

	path := nav.FindPath(start.X, start.Y, goal.X, goal.Y)
	if len(path) == 0 {
		t.Fatalf("no path found")
	}
	if first := path[0]; first.X != 2 || first.Y != 2 {
		t.Fatalf("path starts at (%d,%d)", first.X, first.Y)
	}
	if last := path[len(path)-1]; last.X != 8 || last.Y != 2 {
		t.Fatalf("path ends at (%d,%d)", last.X, last.Y)
	}

	wentBelowWall := false
	for i, n := range path {
		if !n.Walkable {
			t.Fatalf("path crosses blocked cell (%d,%d)", n.X, n.Y)
		}
		if n.Y >= 25 {
			wentBelowWall = true
		}
		if i == 0 {
			continue
		}
		prev := path[i-1]
		if absInt(n.X-prev.X) > 1 || absInt(n.Y-prev.Y) > 1 {
			t.Fatalf("non adjacent step (%d,%d) -> (%d,%d)", prev.X, prev.Y, n.X, n.Y)
		}
	}
	if !wentBelowWall {
		t.Fatalf("path did not use the gap")
	}
}

func TestFindPathUnreachable(t *testing.T) {
	g := arena()
	for y := 1; y < 29; y++ {
		g.Set(5, y, 1)
	}
	nav := NewNavGrid(g, 16, "blocked")
	start := nav.GridToWorld(2, 2)
	goal := nav.GridToWorld(8, 2)
	if path := nav.FindPath(start.X, start.Y, goal.X, goal.Y); path != nil {
		t.Fatalf("found a path through a sealed wall: %d nodes", len(path))
	}
}

func TestBotChasesDistantPlayer(t *testing.T) {
	bot := NewBot(config.BotDifficultyNormal, 3)
	bot.SetNavGrid(NewNavGrid(arena(), 16, "blocked"))

	// centered in cell (2,2) so the first waypoint is already reached
	view := network.View{
		Local:  player(0, 36, 34),
		Remote: []messages.PlayerState{player(1, 420, 34)},
	}
	in := bot.Sample(view, 0.016)
	if !in.Right || in.Left || in.Fire {
		t.Fatalf("bot input %+v, want to move right without firing", in)
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
