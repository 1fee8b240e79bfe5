// Package bsptest builds small synthetic worlds for tests.
package bsptest

import (
	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// Leaf indices of a built room
const (
	LeafOutside = 0 // solid behind the floor and walls
	LeafCeiling = 1 // behind the ceiling, solid unless SkyLeaf is set
	LeafAir     = 2
	LeafWater   = 3 // only when WaterLevel > 0
)

// Surface describes the texture of a face
type Surface struct {
	Texture string
	Flags   int32
	Value   int32
}

// Cube is an axis-aligned brush model placed inside the room
type Cube struct {
	Min     core.Vec3
	Max     core.Vec3
	Surface Surface
}

// Room is a hollow box spanning [0, Size] with inward facing walls. Faces
// are emitted floor, ceiling, then the four walls, so the ceiling is face 1.
type Room struct {
	Size       core.Vec3
	Walls      Surface
	Ceiling    Surface
	SkyLeaf    bool
	WaterLevel float64
	Cube       *Cube
	Entities   []bsp.Entity
}

// CeilingFace is the face number of the room ceiling
const CeilingFace = 1

// NewRoom returns a room of the given size with plain walls and ceiling
func NewRoom(size core.Vec3) Room {
	return Room{
		Size:    size,
		Walls:   Surface{Texture: "base/wall"},
		Ceiling: Surface{Texture: "base/ceiling"},
	}
}

type builder struct {
	w *bsp.World
}

// Build assembles the world. Model 0 is the room, model 1 the cube if any.
func (r Room) Build() *bsp.World {
	b := &builder{w: &bsp.World{}}
	w := b.w

	// Edge 0 is never referenced by a surfedge
	w.Edges = append(w.Edges, [2]int{0, 0})

	w.Leafs = append(w.Leafs,
		bsp.Leaf{Contents: bsp.ContentsSolid, RawContents: bsp.FlagSolid, Cluster: -1},
		bsp.Leaf{Contents: bsp.ContentsSolid, RawContents: bsp.FlagSolid, Cluster: -1},
		bsp.Leaf{Contents: bsp.ContentsEmpty, Cluster: 0, Mins: core.Vec3{}, Maxs: r.Size},
	)
	if r.SkyLeaf {
		w.Leafs[LeafCeiling].Contents = bsp.ContentsSky
	}

	sx, sy, sz := r.Size.X, r.Size.Y, r.Size.Z
	type side struct {
		normal core.Vec3
		dist   float64
		points []core.Vec3
		back   int
		surf   Surface
	}
	// Inward facing planes, windings clockwise seen from inside the room
	sides := []side{
		{core.NewVec3(0, 0, 1), 0, []core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: sy, Z: 0}, {X: sx, Y: sy, Z: 0}, {X: sx, Y: 0, Z: 0}}, LeafOutside, r.Walls},
		{core.NewVec3(0, 0, -1), -sz, []core.Vec3{{X: 0, Y: 0, Z: sz}, {X: sx, Y: 0, Z: sz}, {X: sx, Y: sy, Z: sz}, {X: 0, Y: sy, Z: sz}}, LeafCeiling, r.Ceiling},
		{core.NewVec3(1, 0, 0), 0, []core.Vec3{{X: 0, Y: 0, Z: 0}, {X: 0, Y: 0, Z: sz}, {X: 0, Y: sy, Z: sz}, {X: 0, Y: sy, Z: 0}}, LeafOutside, r.Walls},
		{core.NewVec3(-1, 0, 0), -sx, []core.Vec3{{X: sx, Y: 0, Z: 0}, {X: sx, Y: sy, Z: 0}, {X: sx, Y: sy, Z: sz}, {X: sx, Y: 0, Z: sz}}, LeafOutside, r.Walls},
		{core.NewVec3(0, 1, 0), 0, []core.Vec3{{X: 0, Y: 0, Z: 0}, {X: sx, Y: 0, Z: 0}, {X: sx, Y: 0, Z: sz}, {X: 0, Y: 0, Z: sz}}, LeafOutside, r.Walls},
		{core.NewVec3(0, -1, 0), -sy, []core.Vec3{{X: 0, Y: sy, Z: 0}, {X: 0, Y: sy, Z: sz}, {X: sx, Y: sy, Z: sz}, {X: sx, Y: sy, Z: 0}}, LeafOutside, r.Walls},
	}

	firstNode := len(w.Nodes)
	for i, s := range sides {
		plane := b.addPlane(s.normal, s.dist)
		face := b.addFace(s.points, plane, s.surf)
		next := firstNode + i + 1
		w.Nodes = append(w.Nodes, bsp.Node{
			PlaneNum:  plane,
			Children:  [2]int{next, -(s.back + 1)},
			Maxs:      r.Size,
			FirstFace: face,
			NumFaces:  1,
		})
	}
	last := &w.Nodes[len(w.Nodes)-1]
	last.Children[0] = -(LeafAir + 1)

	if r.WaterLevel > 0 {
		w.Leafs = append(w.Leafs, bsp.Leaf{
			Contents:    bsp.ContentsWater,
			RawContents: bsp.FlagWater,
			Mins:        core.Vec3{},
			Maxs:        core.NewVec3(sx, sy, r.WaterLevel),
		})
		w.Leafs[LeafAir].Mins.Z = r.WaterLevel
		plane := b.addPlane(core.NewVec3(0, 0, 1), r.WaterLevel)
		last.Children[0] = len(w.Nodes)
		w.Nodes = append(w.Nodes, bsp.Node{
			PlaneNum: plane,
			Children: [2]int{-(LeafAir + 1), -(LeafWater + 1)},
			Maxs:     r.Size,
		})
	}

	for i := range w.Faces {
		w.LeafFaces = append(w.LeafFaces, i)
	}
	w.Leafs[LeafAir].NumLeafFaces = len(w.Faces)

	w.Models = append(w.Models, bsp.Model{
		Maxs:     r.Size,
		HeadNode: firstNode,
		NumFaces: len(w.Faces),
	})

	if r.Cube != nil {
		b.addCube(*r.Cube)
	}

	w.Entities = append([]bsp.Entity{{"classname": "worldspawn"}}, r.Entities...)
	return w
}

// addCube appends a brush model with outward facing faces
func (b *builder) addCube(c Cube) {
	w := b.w
	outside := len(w.Leafs)
	w.Leafs = append(w.Leafs,
		bsp.Leaf{Contents: bsp.ContentsEmpty, Cluster: -1},
		bsp.Leaf{Contents: bsp.ContentsSolid, RawContents: bsp.FlagSolid, Cluster: -1, Mins: c.Min, Maxs: c.Max},
	)
	solid := outside + 1

	x0, y0, z0 := c.Min.X, c.Min.Y, c.Min.Z
	x1, y1, z1 := c.Max.X, c.Max.Y, c.Max.Z
	type side struct {
		normal core.Vec3
		dist   float64
		points []core.Vec3
	}
	// Outward planes, windings clockwise seen from outside
	sides := []side{
		{core.NewVec3(0, 0, -1), -z0, []core.Vec3{{X: x0, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x0, Y: y1, Z: z0}}},
		{core.NewVec3(0, 0, 1), z1, []core.Vec3{{X: x0, Y: y0, Z: z1}, {X: x0, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y0, Z: z1}}},
		{core.NewVec3(-1, 0, 0), -x0, []core.Vec3{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y1, Z: z0}, {X: x0, Y: y1, Z: z1}, {X: x0, Y: y0, Z: z1}}},
		{core.NewVec3(1, 0, 0), x1, []core.Vec3{{X: x1, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z0}}},
		{core.NewVec3(0, -1, 0), -y0, []core.Vec3{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y0, Z: z1}, {X: x1, Y: y0, Z: z1}, {X: x1, Y: y0, Z: z0}}},
		{core.NewVec3(0, 1, 0), y1, []core.Vec3{{X: x0, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z1}}},
	}

	firstNode := len(w.Nodes)
	firstFace := len(w.Faces)
	for i, s := range sides {
		plane := b.addPlane(s.normal, s.dist)
		face := b.addFace(s.points, plane, c.Surface)
		next := firstNode + i + 1
		w.Nodes = append(w.Nodes, bsp.Node{
			PlaneNum:  plane,
			Children:  [2]int{-(outside + 1), next},
			Mins:      c.Min,
			Maxs:      c.Max,
			FirstFace: face,
			NumFaces:  1,
		})
	}
	w.Nodes[len(w.Nodes)-1].Children[1] = -(solid + 1)

	w.Leafs[outside].FirstLeafFace = len(w.LeafFaces)
	for f := firstFace; f < len(w.Faces); f++ {
		w.LeafFaces = append(w.LeafFaces, f)
	}
	w.Leafs[outside].NumLeafFaces = len(w.Faces) - firstFace

	w.Models = append(w.Models, bsp.Model{
		Mins:      c.Min,
		Maxs:      c.Max,
		HeadNode:  firstNode,
		FirstFace: firstFace,
		NumFaces:  len(w.Faces) - firstFace,
	})
}

func (b *builder) addPlane(normal core.Vec3, dist float64) int {
	b.w.Planes = append(b.w.Planes, core.NewPlane(normal, dist))
	return len(b.w.Planes) - 1
}

// addFace appends the face with its own vertices, edges and texinfo
func (b *builder) addFace(points []core.Vec3, plane int, surf Surface) int {
	w := b.w
	firstVert := len(w.Vertexes)
	w.Vertexes = append(w.Vertexes, points...)

	firstEdge := len(w.SurfEdges)
	for i := range points {
		w.Edges = append(w.Edges, [2]int{firstVert + i, firstVert + (i+1)%len(points)})
		w.SurfEdges = append(w.SurfEdges, len(w.Edges)-1)
	}

	w.TexInfos = append(w.TexInfos, bsp.TexInfo{
		Vecs:        TextureAxes(w.Planes[plane].Normal),
		Flags:       surf.Flags,
		Value:       surf.Value,
		Texture:     surf.Texture,
		NextTexInfo: -1,
	})

	w.Faces = append(w.Faces, bsp.Face{
		PlaneNum:  plane,
		FirstEdge: firstEdge,
		NumEdges:  len(points),
		TexInfo:   len(w.TexInfos) - 1,
		LightOfs:  -1,
		Styles:    [4]byte{0, 255, 255, 255},
	})
	return len(w.Faces) - 1
}

// TextureAxes returns unscaled texture vectors projecting along the
// dominant axis of normal
func TextureAxes(normal core.Vec3) [2][4]float64 {
	ax, ay, az := abs(normal.X), abs(normal.Y), abs(normal.Z)
	switch {
	case az >= ax && az >= ay:
		return [2][4]float64{{1, 0, 0, 0}, {0, -1, 0, 0}}
	case ax >= ay:
		return [2][4]float64{{0, 1, 0, 0}, {0, 0, -1, 0}}
	default:
		return [2][4]float64{{1, 0, 0, 0}, {0, 0, -1, 0}}
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
