package bsp_test

import (
	"errors"
	"math"
	"testing"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/bsp/bsptest"
	"github.com/df07/go-lightbake/pkg/core"
)

func waterRoom() *bsp.World {
	room := bsptest.NewRoom(core.NewVec3(128, 128, 128))
	room.WaterLevel = 32
	room.SkyLeaf = true
	room.Cube = &bsptest.Cube{Min: core.NewVec3(48, 48, 48), Max: core.NewVec3(80, 80, 80)}
	return room.Build()
}

func TestWorld_PointInLeaf(t *testing.T) {
	w := waterRoom()

	tests := []struct {
		name             string
		point            core.Vec3
		expectedLeaf     int
		expectedContents bsp.Contents
	}{
		{"air above water", core.NewVec3(64, 64, 100), bsptest.LeafAir, bsp.ContentsEmpty},
		{"under water", core.NewVec3(10, 10, 10), bsptest.LeafWater, bsp.ContentsWater},
		{"behind the floor", core.NewVec3(64, 64, -5), bsptest.LeafOutside, bsp.ContentsSolid},
		{"behind a wall", core.NewVec3(-5, 64, 64), bsptest.LeafOutside, bsp.ContentsSolid},
		{"above the ceiling", core.NewVec3(64, 64, 200), bsptest.LeafCeiling, bsp.ContentsSky},
		{"on the water plane goes front", core.NewVec3(64, 64, 32), bsptest.LeafAir, bsp.ContentsEmpty},
		{"inside the cube is not world solid", core.NewVec3(64, 64, 64), bsptest.LeafAir, bsp.ContentsEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			leaf := w.PointInLeaf(tt.point)
			if leaf != &w.Leafs[tt.expectedLeaf] {
				t.Errorf("Expected leaf %d, got %+v", tt.expectedLeaf, *leaf)
			}
			if c := w.PointContents(tt.point); c != tt.expectedContents {
				t.Errorf("Expected contents %v, got %v", tt.expectedContents, c)
			}
		})
	}
}

func TestWorld_ModelContents(t *testing.T) {
	w := waterRoom()

	if c := w.ModelContents(1, core.NewVec3(64, 64, 64)); c != bsp.ContentsSolid {
		t.Errorf("Expected cube interior to be solid, got %v", c)
	}
	if c := w.ModelContents(1, core.NewVec3(10, 64, 64)); c != bsp.ContentsEmpty {
		t.Errorf("Expected outside the cube to be empty, got %v", c)
	}
}

func TestWorld_PointInLeafMalformed(t *testing.T) {
	w := waterRoom()
	// Point the last room node back at the first to make a cycle
	w.Nodes[5].Children[0] = 0

	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, bsp.ErrMalformedTree) {
			t.Errorf("Expected ErrMalformedTree panic, got %v", r)
		}
	}()
	w.PointInLeaf(core.NewVec3(64, 64, 100))
}

func TestWorld_FaceHelpers(t *testing.T) {
	room := bsptest.NewRoom(core.NewVec3(64, 64, 96))
	room.Ceiling = bsptest.Surface{Texture: "lights/panel", Flags: bsp.SurfLight, Value: 300}
	w := room.Build()

	f := bsptest.CeilingFace
	wind := w.FaceWinding(f)
	if len(wind) != 4 {
		t.Fatalf("Expected 4 ceiling points, got %d", len(wind))
	}
	if math.Abs(wind.Area()-4096) > 1e-9 {
		t.Errorf("Expected ceiling area 4096, got %f", wind.Area())
	}
	if n := w.FaceNormal(f); !n.Equals(core.NewVec3(0, 0, -1), 0) {
		t.Errorf("Expected ceiling to face down, got %v", n)
	}
	for _, p := range wind {
		if d := w.FacePlane(f).Distance(p); math.Abs(d) > 1e-9 {
			t.Errorf("Point %v is %f off the face plane", p, d)
		}
	}
	if name := w.TextureName(f); name != "lights/panel" {
		t.Errorf("Expected texture lights/panel, got %q", name)
	}
	if ti := w.FaceTexInfo(f); ti.Flags&bsp.SurfLight == 0 || ti.Value != 300 {
		t.Errorf("Unexpected texinfo %+v", ti)
	}
	if m := w.ModelForFace(f); m != 0 {
		t.Errorf("Expected ceiling in model 0, got %d", m)
	}

	// Flipping the side flips the plane
	w.Faces[f].Side = 1
	if n := w.FaceNormal(f); !n.Equals(core.NewVec3(0, 0, 1), 0) {
		t.Errorf("Expected flipped normal, got %v", n)
	}
}

func TestWorld_FaceVertexNegativeEdge(t *testing.T) {
	w := bsptest.NewRoom(core.NewVec3(64, 64, 64)).Build()

	f := 0
	first := w.FaceVertex(f, 0)
	e := w.SurfEdges[w.Faces[f].FirstEdge]
	w.Edges[e] = [2]int{w.Edges[e][1], w.Edges[e][0]}
	w.SurfEdges[w.Faces[f].FirstEdge] = -e

	if got := w.FaceVertex(f, 0); !got.Equals(first, 0) {
		t.Errorf("Expected reversed edge to give %v, got %v", first, got)
	}
}

func TestWorldToTexCoord(t *testing.T) {
	ti := &bsp.TexInfo{Vecs: [2][4]float64{{1, 0, 0, 8}, {0, -1, 0, -4}}}
	s, tc := bsp.WorldToTexCoord(core.NewVec3(10, 20, 30), ti)
	if s != 18 || tc != -24 {
		t.Errorf("Expected (18, -24), got (%f, %f)", s, tc)
	}
}

func TestContentsFromFlags(t *testing.T) {
	tests := []struct {
		flags    int32
		expected bsp.Contents
	}{
		{0, bsp.ContentsEmpty},
		{bsp.FlagSolid, bsp.ContentsSolid},
		{bsp.FlagSolid | bsp.FlagWater, bsp.ContentsSolid},
		{bsp.FlagWater, bsp.ContentsWater},
		{bsp.FlagSlime, bsp.ContentsSlime},
		{bsp.FlagLava, bsp.ContentsLava},
		{bsp.FlagWindow, bsp.ContentsWindow},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			if got := bsp.ContentsFromFlags(tt.flags); got != tt.expected {
				t.Errorf("Flags %#x: expected %v, got %v", tt.flags, tt.expected, got)
			}
		})
	}

	if !bsp.ContentsSky.Blocks() || !bsp.ContentsSolid.Blocks() || bsp.ContentsWater.Blocks() || bsp.ContentsWindow.Blocks() {
		t.Error("Only solid and sky should block rays")
	}
}

func TestEntity_ModelNum(t *testing.T) {
	tests := []struct {
		model    string
		expected int
	}{
		{"*1", 1},
		{"*12", 12},
		{"models/box.md2", -1},
		{"", -1},
		{"*x", -1},
	}
	for _, tt := range tests {
		e := bsp.Entity{"model": tt.model}
		if got := e.ModelNum(); got != tt.expected {
			t.Errorf("model %q: expected %d, got %d", tt.model, tt.expected, got)
		}
	}
}
