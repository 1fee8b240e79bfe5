package bsp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df07/go-lightbake/pkg/core"
	"github.com/df07/go-lightbake/pkg/winding"
)

// ErrMalformedTree is raised when node children point outside the node or
// leaf tables, or when a descent never reaches a leaf
var ErrMalformedTree = errors.New("malformed bsp tree")

// Raw leaf content flags as stored on disk
const (
	FlagSolid  int32 = 1
	FlagWindow int32 = 2
	FlagLava   int32 = 8
	FlagSlime  int32 = 16
	FlagWater  int32 = 32
)

// Surface flags carried on texinfo
const (
	SurfLight   int32 = 0x1
	SurfSlick   int32 = 0x2
	SurfSky     int32 = 0x4
	SurfWarp    int32 = 0x8
	SurfTrans33 int32 = 0x10
	SurfTrans66 int32 = 0x20
	SurfFlowing int32 = 0x40
	SurfNoDraw  int32 = 0x80
)

// Contents classifies the volume of a leaf
type Contents int

const (
	ContentsEmpty Contents = iota
	ContentsSolid
	ContentsWater
	ContentsSlime
	ContentsLava
	ContentsSky
	ContentsWindow
)

func (c Contents) String() string {
	switch c {
	case ContentsEmpty:
		return "empty"
	case ContentsSolid:
		return "solid"
	case ContentsWater:
		return "water"
	case ContentsSlime:
		return "slime"
	case ContentsLava:
		return "lava"
	case ContentsSky:
		return "sky"
	case ContentsWindow:
		return "window"
	}
	return fmt.Sprintf("contents(%d)", int(c))
}

// Blocks reports whether rays stop on entering a leaf of these contents
func (c Contents) Blocks() bool {
	return c == ContentsSolid || c == ContentsSky
}

// ContentsFromFlags maps raw leaf flags to a classification. Solid wins
// over the liquids, matching the order the game itself tests them in.
func ContentsFromFlags(flags int32) Contents {
	switch {
	case flags&FlagSolid != 0:
		return ContentsSolid
	case flags&FlagWindow != 0:
		return ContentsWindow
	case flags&FlagLava != 0:
		return ContentsLava
	case flags&FlagSlime != 0:
		return ContentsSlime
	case flags&FlagWater != 0:
		return ContentsWater
	}
	return ContentsEmpty
}

// FlagsForContents is the inverse of ContentsFromFlags for the classes that
// have an on-disk flag. Sky has none and is written as solid.
func FlagsForContents(c Contents) int32 {
	switch c {
	case ContentsSolid, ContentsSky:
		return FlagSolid
	case ContentsWindow:
		return FlagWindow
	case ContentsLava:
		return FlagLava
	case ContentsSlime:
		return FlagSlime
	case ContentsWater:
		return FlagWater
	}
	return 0
}

// Node is an interior split. A negative child c refers to leaf -(c+1).
type Node struct {
	PlaneNum  int
	Children  [2]int
	Mins      core.Vec3
	Maxs      core.Vec3
	FirstFace int
	NumFaces  int
}

// Leaf is a convex volume with a single contents value
type Leaf struct {
	Contents       Contents
	RawContents    int32
	Cluster        int
	Area           int
	Mins           core.Vec3
	Maxs           core.Vec3
	FirstLeafFace  int
	NumLeafFaces   int
	FirstLeafBrush int
	NumLeafBrushes int
}

// Face is a convex polygon lying on a plane, on the front side unless
// Side is set
type Face struct {
	PlaneNum  int
	Side      int
	FirstEdge int
	NumEdges  int
	TexInfo   int
	Styles    [4]byte
	LightOfs  int
}

// TexInfo maps world positions onto a texture and carries surface flags
type TexInfo struct {
	Vecs        [2][4]float64
	Flags       int32
	Value       int32
	Texture     string
	NextTexInfo int
}

// Model is a subtree of the world: model 0 is the static world, the rest
// are brush entities
type Model struct {
	Mins      core.Vec3
	Maxs      core.Vec3
	Origin    core.Vec3
	HeadNode  int
	FirstFace int
	NumFaces  int
}

// Entity is one block of key/value pairs from the entity lump
type Entity map[string]string

// ValueForKey returns the value for key or "" when absent
func (e Entity) ValueForKey(key string) string {
	return e[key]
}

// ClassName returns the entity classname
func (e Entity) ClassName() string {
	return e["classname"]
}

// ModelNum returns the brush model index referenced by a "*N" model key,
// or -1 when the entity has no brush model
func (e Entity) ModelNum() int {
	m := e["model"]
	if !strings.HasPrefix(m, "*") {
		return -1
	}
	var n int
	if _, err := fmt.Sscanf(m[1:], "%d", &n); err != nil || n < 0 {
		return -1
	}
	return n
}

// World is the loaded, read-only map geometry
type World struct {
	Entities    []Entity
	Planes      []core.Plane
	Vertexes    []core.Vec3
	Nodes       []Node
	TexInfos    []TexInfo
	Faces       []Face
	Leafs       []Leaf
	LeafFaces   []int
	LeafBrushes []int
	Edges       [][2]int
	SurfEdges   []int
	Models      []Model

	// Lumps that are carried through untouched
	EntityData  string
	Visibility  []byte
	Lighting    []byte
	Brushes     []byte
	BrushSides  []byte
	Pop         []byte
	Areas       []byte
	AreaPortals []byte
}

// WorldSpawn returns the first entity, or nil
func (w *World) WorldSpawn() Entity {
	if len(w.Entities) == 0 {
		return nil
	}
	return w.Entities[0]
}

// PointInLeaf returns the world model leaf containing p
func (w *World) PointInLeaf(p core.Vec3) *Leaf {
	return &w.Leafs[w.PointInLeafNum(w.headNode(0), p)]
}

// PointContents returns the contents of the world model at p
func (w *World) PointContents(p core.Vec3) Contents {
	return w.PointInLeaf(p).Contents
}

// ModelContents returns the contents of the given model's subtree at p
func (w *World) ModelContents(model int, p core.Vec3) Contents {
	return w.Leafs[w.PointInLeafNum(w.headNode(model), p)].Contents
}

func (w *World) headNode(model int) int {
	if len(w.Models) == 0 {
		return 0
	}
	return w.Models[model].HeadNode
}

// PointInLeafNum descends from node and returns the leaf index. Points on a
// plane go to the front child. The descent panics with ErrMalformedTree if
// it leaves the node table or takes more steps than there are nodes.
func (w *World) PointInLeafNum(node int, p core.Vec3) int {
	for steps := 0; node >= 0; steps++ {
		if node >= len(w.Nodes) || steps > len(w.Nodes) {
			panic(fmt.Errorf("%w: descent stuck at node %d after %d steps", ErrMalformedTree, node, steps))
		}
		n := &w.Nodes[node]
		if w.Planes[n.PlaneNum].Distance(p) >= 0 {
			node = n.Children[0]
		} else {
			node = n.Children[1]
		}
	}
	leaf := -(node + 1)
	if leaf >= len(w.Leafs) {
		panic(fmt.Errorf("%w: leaf %d out of range", ErrMalformedTree, leaf))
	}
	return leaf
}

// FacePlane returns the plane of face f oriented along its front
func (w *World) FacePlane(f int) core.Plane {
	face := &w.Faces[f]
	p := w.Planes[face.PlaneNum]
	if face.Side != 0 {
		return p.Flip()
	}
	return p
}

// FaceNormal returns the outward facing normal of face f
func (w *World) FaceNormal(f int) core.Vec3 {
	return w.FacePlane(f).Normal
}

// FaceVertex returns the i'th vertex of face f following its surfedges
func (w *World) FaceVertex(f, i int) core.Vec3 {
	face := &w.Faces[f]
	e := w.SurfEdges[face.FirstEdge+i]
	if e >= 0 {
		return w.Vertexes[w.Edges[e][0]]
	}
	return w.Vertexes[w.Edges[-e][1]]
}

// FaceWinding returns the polygon of face f
func (w *World) FaceWinding(f int) winding.Winding {
	face := &w.Faces[f]
	out := make(winding.Winding, face.NumEdges)
	for i := range out {
		out[i] = w.FaceVertex(f, i)
	}
	return out
}

// FaceTexInfo returns the texinfo of face f, or nil for an invalid index
func (w *World) FaceTexInfo(f int) *TexInfo {
	ti := w.Faces[f].TexInfo
	if ti < 0 || ti >= len(w.TexInfos) {
		return nil
	}
	return &w.TexInfos[ti]
}

// TextureName returns the texture name of face f, or "" when it has none
func (w *World) TextureName(f int) string {
	if ti := w.FaceTexInfo(f); ti != nil {
		return ti.Texture
	}
	return ""
}

// WorldToTexCoord projects p into the texture space of ti
func WorldToTexCoord(p core.Vec3, ti *TexInfo) (s, t float64) {
	s = p.X*ti.Vecs[0][0] + p.Y*ti.Vecs[0][1] + p.Z*ti.Vecs[0][2] + ti.Vecs[0][3]
	t = p.X*ti.Vecs[1][0] + p.Y*ti.Vecs[1][1] + p.Z*ti.Vecs[1][2] + ti.Vecs[1][3]
	return s, t
}

// ModelForFace returns the index of the model owning face f, or -1
func (w *World) ModelForFace(f int) int {
	for i, m := range w.Models {
		if f >= m.FirstFace && f < m.FirstFace+m.NumFaces {
			return i
		}
	}
	return -1
}
