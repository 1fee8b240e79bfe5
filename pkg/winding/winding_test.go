package winding

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-lightbake/pkg/core"
)

// square returns a size x size winding on the plane z=height, clockwise
// when viewed from +Z
func square(x0, y0, size, height float64) Winding {
	return Winding{
		core.NewVec3(x0, y0, height),
		core.NewVec3(x0, y0+size, height),
		core.NewVec3(x0+size, y0+size, height),
		core.NewVec3(x0+size, y0, height),
	}
}

func TestWinding_AreaAndCenter(t *testing.T) {
	w := square(0, 0, 64, 10)

	if math.Abs(w.Area()-4096) > 1e-9 {
		t.Errorf("Expected area 4096, got %f", w.Area())
	}
	if c := w.Center(); !c.Equals(core.NewVec3(32, 32, 10), 1e-9) {
		t.Errorf("Expected center (32 32 10), got %v", c)
	}
	if (Winding{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)}).Area() != 0 {
		t.Error("Two-point winding should have zero area")
	}
}

func TestWinding_Clip(t *testing.T) {
	w := square(0, 0, 64, 0)

	tests := []struct {
		name       string
		normal     core.Vec3
		dist       float64
		frontArea  float64
		backArea   float64
		frontIsNil bool
		backIsNil  bool
	}{
		{"split down the middle", core.NewVec3(1, 0, 0), 32, 2048, 2048, false, false},
		{"quarter split on Y", core.NewVec3(0, 1, 0), 16, 3072, 1024, false, false},
		{"entirely in front", core.NewVec3(1, 0, 0), -10, 4096, 0, false, true},
		{"entirely behind", core.NewVec3(1, 0, 0), 100, 0, 4096, true, false},
		{"negative axial normal", core.NewVec3(-1, 0, 0), -48, 3072, 1024, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			front, back := w.Clip(tt.normal, tt.dist, false)
			if (front == nil) != tt.frontIsNil {
				t.Fatalf("front nil = %v, expected %v", front == nil, tt.frontIsNil)
			}
			if (back == nil) != tt.backIsNil {
				t.Fatalf("back nil = %v, expected %v", back == nil, tt.backIsNil)
			}
			if math.Abs(front.Area()-tt.frontArea) > 1e-6 {
				t.Errorf("Expected front area %f, got %f", tt.frontArea, front.Area())
			}
			if math.Abs(back.Area()-tt.backArea) > 1e-6 {
				t.Errorf("Expected back area %f, got %f", tt.backArea, back.Area())
			}
		})
	}
}

func TestWinding_ClipKeepOn(t *testing.T) {
	w := square(0, 0, 8, 0)
	front, back := w.Clip(core.NewVec3(0, 0, 1), 0, true)
	if len(front) != 4 || back != nil {
		t.Errorf("Expected coplanar winding kept as front, got front=%v back=%v", front, back)
	}

	front, back = w.Clip(core.NewVec3(0, 0, 1), 0, false)
	if front != nil || len(back) != 4 {
		t.Errorf("Expected coplanar winding to go back without keepOn, got front=%v back=%v", front, back)
	}
}

func TestWinding_Dice(t *testing.T) {
	tests := []struct {
		name           string
		size           float64
		subdiv         float64
		expectedPieces int
	}{
		{"64 by 16", 64, 16, 16},
		{"64 by 32", 64, 32, 4},
		{"64 by 128", 64, 128, 1},
		{"64 by 1 pairs up unit cells", 64, 1, 1024},
		{"zero subdivision keeps whole", 64, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := square(0, 0, tt.size, 0)
			pieces := 0
			area := 0.0
			w.Dice(tt.subdiv, func(piece Winding) {
				pieces++
				area += piece.Area()
			})
			if pieces != tt.expectedPieces {
				t.Errorf("Expected %d pieces, got %d", tt.expectedPieces, pieces)
			}
			if math.Abs(area-w.Area()) > 1e-6 {
				t.Errorf("Diced area %f does not match original %f", area, w.Area())
			}
		})
	}
}

func TestWinding_DiceCentersAreInside(t *testing.T) {
	w := square(-32, -32, 64, 5)
	bounds := w.Bounds()
	w.Dice(16, func(piece Winding) {
		c := piece.Center()
		if !bounds.Contains(c) {
			t.Errorf("Piece center %v outside %v", c, bounds)
		}
		if c.Z != 5 {
			t.Errorf("Piece center left the plane: %v", c)
		}
	})
}

func TestWinding_RemoveColinearPoints(t *testing.T) {
	tests := []struct {
		name     string
		input    Winding
		expected int
	}{
		{
			name:     "clean square",
			input:    square(0, 0, 10, 0),
			expected: 4,
		},
		{
			name: "midpoint on edge",
			input: Winding{
				core.NewVec3(0, 0, 0),
				core.NewVec3(0, 5, 0),
				core.NewVec3(0, 10, 0),
				core.NewVec3(10, 10, 0),
				core.NewVec3(10, 0, 0),
			},
			expected: 4,
		},
		{
			name: "near duplicate point",
			input: Winding{
				core.NewVec3(0, 0, 0),
				core.NewVec3(0, 10, 0),
				core.NewVec3(0, 10.0001, 0),
				core.NewVec3(10, 10, 0),
				core.NewVec3(10, 0, 0),
			},
			expected: 4,
		},
		{
			name: "collapsed to a line",
			input: Winding{
				core.NewVec3(0, 0, 0),
				core.NewVec3(0, 5, 0),
				core.NewVec3(0, 10, 0),
			},
			expected: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := tt.input.RemoveColinearPoints()
			if len(out) != tt.expected {
				t.Errorf("Expected %d points, got %d: %v", tt.expected, len(out), out)
			}
		})
	}
}

func TestCheck(t *testing.T) {
	plane := core.NewPlane(core.NewVec3(0, 0, 1), 0)

	t.Run("valid face", func(t *testing.T) {
		out, err := Check(square(0, 0, 10, 0), plane)
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if len(out) != 4 {
			t.Errorf("Expected 4 points, got %d", len(out))
		}
	})

	t.Run("degenerate edges removed in a loop", func(t *testing.T) {
		w := Winding{
			core.NewVec3(0, 0, 0),
			core.NewVec3(0, 0.01, 0),
			core.NewVec3(0, 0.02, 0),
			core.NewVec3(0, 10, 0),
			core.NewVec3(10, 10, 0),
			core.NewVec3(10, 0, 0),
		}
		out, err := Check(w, plane)
		if IsFatal(err) {
			t.Fatalf("Expected recoverable error, got %v", err)
		}
		if !errors.Is(err, ErrDegenerateEdge) {
			t.Errorf("Expected degenerate edge warning, got %v", err)
		}
		if len(out) != 4 {
			t.Errorf("Expected 4 points after cleanup, got %d", len(out))
		}
	})

	t.Run("point off plane", func(t *testing.T) {
		w := square(0, 0, 10, 0)
		w[2].Z = 1
		_, err := Check(w, plane)
		if IsFatal(err) || !errors.Is(err, ErrPointOffPlane) {
			t.Errorf("Expected off-plane warning only, got %v", err)
		}
	})

	t.Run("concave", func(t *testing.T) {
		w := Winding{
			core.NewVec3(0, 0, 0),
			core.NewVec3(0, 10, 0),
			core.NewVec3(5, 2, 0),
			core.NewVec3(10, 10, 0),
			core.NewVec3(10, 0, 0),
		}
		_, err := Check(w, plane)
		if !IsFatal(err) || !errors.Is(err, ErrConcave) {
			t.Errorf("Expected concave error, got %v", err)
		}
	})

	t.Run("too few points", func(t *testing.T) {
		_, err := Check(Winding{core.NewVec3(0, 0, 0), core.NewVec3(1, 0, 0)}, plane)
		if !IsFatal(err) || !errors.Is(err, ErrTooFewPoints) {
			t.Errorf("Expected too-few-points error, got %v", err)
		}
	})

	t.Run("bogus range", func(t *testing.T) {
		w := square(0, 0, 10, 0)
		w[1].Y = 1e6
		_, err := Check(w, plane)
		if !IsFatal(err) || !errors.Is(err, ErrBogusRange) {
			t.Errorf("Expected bogus range error, got %v", err)
		}
	})
}
