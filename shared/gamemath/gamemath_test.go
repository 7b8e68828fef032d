package gamemath

import (
	"math"
	"testing"
)

func TestRectOverlaps(t *testing.T) {
	base := Rect{X: 0, Y: 0, W: 10, H: 10}
	tests := []struct {
		name  string
		other Rect
		want  bool
	}{
		{"inside", Rect{X: 2, Y: 2, W: 2, H: 2}, true},
		{"partial", Rect{X: 8, Y: 8, W: 5, H: 5}, true},
		{"touching right edge", Rect{X: 10, Y: 0, W: 5, H: 5}, false},
		{"touching bottom edge", Rect{X: 0, Y: 10, W: 5, H: 5}, false},
		{"disjoint", Rect{X: 20, Y: 20, W: 1, H: 1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.Overlaps(tt.other); got != tt.want {
				t.Fatalf("Overlaps(%+v) = %v, want %v", tt.other, got, tt.want)
			}
			if got := tt.other.Overlaps(base); got != tt.want {
				t.Fatalf("Overlaps is not symmetric for %+v", tt.other)
			}
		})
	}
}

func TestCalculateHomingVelocity(t *testing.T) {
	vel, ok := CalculateHomingVelocity(Vec2{X: 0, Y: 0}, Vec2{X: 3, Y: 4}, 10)
	if !ok {
		t.Fatalf("expected a direction")
	}
	if math.Abs(vel.X-6) > 1e-9 || math.Abs(vel.Y-8) > 1e-9 {
		t.Fatalf("unexpected velocity %+v", vel)
	}

	if _, ok := CalculateHomingVelocity(Vec2{X: 1, Y: 1}, Vec2{X: 1, Y: 1}, 10); ok {
		t.Fatalf("expected no direction for coincident points")
	}
}

func TestClamp(t *testing.T) {
	if Clamp(-1, 0, 1) != 0 || Clamp(2, 0, 1) != 1 || Clamp(0.5, 0, 1) != 0.5 {
		t.Fatalf("clamp returned an unexpected value")
	}
}
