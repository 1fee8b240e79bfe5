package trace

import (
	"fmt"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// faceEdgeEpsilon is how far outside a face edge a hit point may land and
// still count as on the face
const faceEdgeEpsilon = 0.1

// tnode is a flattened split node. Children >= 0 are tnode indices, < 0
// encode leaf -(c+1).
type tnode struct {
	normal    core.Vec3
	dist      float64
	typ       int
	children  [2]int
	firstFace int
	numFaces  int
}

// distance returns the signed distance from the node plane to p
func (n *tnode) distance(p core.Vec3) float64 {
	if n.typ < core.PlaneAnyX {
		return p.Axis(n.typ) - n.dist
	}
	return n.normal.Dot(p) - n.dist
}

// slope returns the rate the plane distance changes along dir
func (n *tnode) slope(dir core.Vec3) float64 {
	if n.typ < core.PlaneAnyX {
		return dir.Axis(n.typ)
	}
	return n.normal.Dot(dir)
}

func (n *tnode) plane() core.Plane {
	return core.Plane{Normal: n.normal, Dist: n.dist, Type: n.typ}
}

// faceInfo holds the data needed to tell whether a hit point lies on a face
type faceInfo struct {
	plane core.Plane
	edges []core.Plane
	flags int32
}

// contains reports whether p, already on the face plane, is inside every edge
func (f *faceInfo) contains(p core.Vec3) bool {
	if len(f.edges) < 3 {
		return false
	}
	for _, e := range f.edges {
		if e.Distance(p) > faceEdgeEpsilon {
			return false
		}
	}
	return true
}

// TNodes is the traversal form of a world, built once per load
type TNodes struct {
	nodes        []tnode
	leafContents []bsp.Contents
	faces        []faceInfo
	heads        []int
}

// BuildTraversalNodes flattens every model's subtree of w. It panics with
// bsp.ErrMalformedTree if a child or plane index is out of range.
func BuildTraversalNodes(w *bsp.World) *TNodes {
	tn := &TNodes{
		nodes:        make([]tnode, len(w.Nodes)),
		leafContents: make([]bsp.Contents, len(w.Leafs)),
		faces:        make([]faceInfo, len(w.Faces)),
	}

	for i, n := range w.Nodes {
		if n.PlaneNum < 0 || n.PlaneNum >= len(w.Planes) {
			panic(fmt.Errorf("%w: node %d plane %d out of range", bsp.ErrMalformedTree, i, n.PlaneNum))
		}
		for _, c := range n.Children {
			if c >= len(w.Nodes) || (c < 0 && -(c+1) >= len(w.Leafs)) {
				panic(fmt.Errorf("%w: node %d child %d out of range", bsp.ErrMalformedTree, i, c))
			}
		}
		p := w.Planes[n.PlaneNum]
		tn.nodes[i] = tnode{
			normal:    p.Normal,
			dist:      p.Dist,
			typ:       p.Type,
			children:  n.Children,
			firstFace: n.FirstFace,
			numFaces:  n.NumFaces,
		}
	}

	for i, l := range w.Leafs {
		tn.leafContents[i] = l.Contents
	}

	for f := range w.Faces {
		tn.faces[f] = makeFaceInfo(w, f)
	}

	for _, m := range w.Models {
		tn.heads = append(tn.heads, m.HeadNode)
	}
	if len(tn.heads) == 0 {
		tn.heads = []int{0}
	}
	return tn
}

// makeFaceInfo precomputes outward edge planes for a face. The edge normals
// are flipped away from the centre so winding order does not matter.
func makeFaceInfo(w *bsp.World, f int) faceInfo {
	fi := faceInfo{plane: w.FacePlane(f)}
	if ti := w.FaceTexInfo(f); ti != nil {
		fi.flags = ti.Flags
	}

	pts := w.FaceWinding(f)
	if len(pts) < 3 {
		return fi
	}
	center := pts.Center()
	for i, p1 := range pts {
		p2 := pts[(i+1)%len(pts)]
		normal := fi.plane.Normal.Cross(p2.Subtract(p1))
		if normal.LengthSquared() == 0 {
			continue
		}
		normal = normal.Normalize()
		if normal.Dot(center.Subtract(p1)) > 0 {
			normal = normal.Negate()
		}
		fi.edges = append(fi.edges, core.NewPlane(normal, normal.Dot(p1)))
	}
	return fi
}

// NumModels returns the number of model subtrees
func (tn *TNodes) NumModels() int {
	return len(tn.heads)
}

// PointInLeaf returns the leaf of model containing p. Points on a plane go
// to the front child.
func (tn *TNodes) PointInLeaf(model int, p core.Vec3) int {
	node := tn.heads[model]
	for steps := 0; node >= 0; steps++ {
		if steps > len(tn.nodes) {
			panic(fmt.Errorf("%w: descent did not reach a leaf", bsp.ErrMalformedTree))
		}
		n := &tn.nodes[node]
		if n.distance(p) >= 0 {
			node = n.children[0]
		} else {
			node = n.children[1]
		}
	}
	return -(node + 1)
}

// PointContents returns the contents of model at p
func (tn *TNodes) PointContents(model int, p core.Vec3) bsp.Contents {
	return tn.leafContents[tn.PointInLeaf(model, p)]
}

// faceAt finds the face on node that contains p, preferring faces turned
// towards the incoming ray. It returns -1 when no face matches.
func (tn *TNodes) faceAt(node int, p, dir core.Vec3) int {
	n := &tn.nodes[node]
	fallback := -1
	for f := n.firstFace; f < n.firstFace+n.numFaces; f++ {
		fi := &tn.faces[f]
		if !fi.contains(p) {
			continue
		}
		if fi.plane.Normal.Dot(dir) < 0 {
			return f
		}
		if fallback == -1 {
			fallback = f
		}
	}
	return fallback
}

// modelHit is the first blocking leaf a ray reaches within one model
type modelHit struct {
	hit  bool
	dist float64
	node int // node whose plane the ray crossed into the leaf, -1 if it started inside
	leaf int
}

type traceFrame struct {
	node  int
	tmin  float64
	tmax  float64
	enter int
}

// split classifies the interval [tmin, tmax] of a ray against n. It returns
// which children the interval touches and, when it crosses, the crossing
// distance clamped into the interval.
func (n *tnode) split(start, dir core.Vec3, tmin, tmax float64) (front, back bool, t float64) {
	ds := n.distance(start)
	dd := n.slope(dir)
	d0 := ds + tmin*dd
	d1 := ds + tmax*dd

	switch {
	case d0 >= 0 && d1 >= 0:
		return true, false, 0
	case d0 < 0 && d1 < 0:
		return false, true, 0
	}

	t = -ds / dd
	if t < tmin {
		t = tmin
	} else if t > tmax {
		t = tmax
	}
	return true, true, t
}

// traceModel walks model front to back along the ray and returns the first
// blocking leaf within maxDist
func (tn *TNodes) traceModel(model int, start, dir core.Vec3, maxDist float64) modelHit {
	var stackBuf [64]traceFrame
	stack := stackBuf[:0]

	f := traceFrame{node: tn.heads[model], tmin: 0, tmax: maxDist, enter: -1}
	steps := len(tn.nodes) + len(tn.leafContents) + 1

	for {
		for f.node >= 0 {
			if steps--; steps < 0 {
				panic(fmt.Errorf("%w: trace visited more nodes than exist", bsp.ErrMalformedTree))
			}
			n := &tn.nodes[f.node]
			front, back, t := n.split(start, dir, f.tmin, f.tmax)
			switch {
			case front && !back:
				f.node = n.children[0]
			case back && !front:
				f.node = n.children[1]
			default:
				near := 0
				if n.distance(start)+f.tmin*n.slope(dir) < 0 {
					near = 1
				}
				stack = append(stack, traceFrame{node: n.children[1-near], tmin: t, tmax: f.tmax, enter: f.node})
				f.tmax = t
				f.node = n.children[near]
			}
		}

		leaf := -(f.node + 1)
		if tn.leafContents[leaf].Blocks() {
			return modelHit{hit: true, dist: f.tmin, node: f.enter, leaf: leaf}
		}

		if len(stack) == 0 {
			return modelHit{}
		}
		f = stack[len(stack)-1]
		stack = stack[:len(stack)-1]
	}
}
