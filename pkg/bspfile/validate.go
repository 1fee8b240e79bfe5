package bspfile

import (
	"fmt"

	"go.uber.org/multierr"

	"github.com/df07/go-lightbake/pkg/bsp"
)

// Validate checks every index in the world against the table it refers to
// and that each model's subtree is acyclic. It returns all problems found.
func Validate(w *bsp.World) error {
	var errs error
	bad := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, fmt.Errorf("%w: "+format, append([]interface{}{ErrBadIndex}, args...)...))
	}
	inRange := func(i, n int) bool { return i >= 0 && i < n }
	spanOK := func(first, num, n int) bool { return first >= 0 && num >= 0 && first+num <= n }

	for i, n := range w.Nodes {
		if !inRange(n.PlaneNum, len(w.Planes)) {
			bad("node %d plane %d", i, n.PlaneNum)
		}
		for _, c := range n.Children {
			if c >= 0 && c >= len(w.Nodes) {
				bad("node %d child node %d", i, c)
			} else if c < 0 && -(c+1) >= len(w.Leafs) {
				bad("node %d child leaf %d", i, -(c + 1))
			}
		}
		if !spanOK(n.FirstFace, n.NumFaces, len(w.Faces)) {
			bad("node %d faces %d+%d", i, n.FirstFace, n.NumFaces)
		}
	}

	for i, f := range w.Faces {
		if !inRange(f.PlaneNum, len(w.Planes)) {
			bad("face %d plane %d", i, f.PlaneNum)
		}
		if f.TexInfo != -1 && !inRange(f.TexInfo, len(w.TexInfos)) {
			bad("face %d texinfo %d", i, f.TexInfo)
		}
		if !spanOK(f.FirstEdge, f.NumEdges, len(w.SurfEdges)) {
			bad("face %d edges %d+%d", i, f.FirstEdge, f.NumEdges)
		}
	}

	for i, se := range w.SurfEdges {
		e := se
		if e < 0 {
			e = -e
		}
		if e >= len(w.Edges) {
			bad("surfedge %d edge %d", i, se)
		}
	}

	for i, e := range w.Edges {
		if !inRange(e[0], len(w.Vertexes)) || !inRange(e[1], len(w.Vertexes)) {
			bad("edge %d vertexes %d,%d", i, e[0], e[1])
		}
	}

	for i, l := range w.Leafs {
		if !spanOK(l.FirstLeafFace, l.NumLeafFaces, len(w.LeafFaces)) {
			bad("leaf %d leaffaces %d+%d", i, l.FirstLeafFace, l.NumLeafFaces)
		}
		if !spanOK(l.FirstLeafBrush, l.NumLeafBrushes, len(w.LeafBrushes)) {
			bad("leaf %d leafbrushes %d+%d", i, l.FirstLeafBrush, l.NumLeafBrushes)
		}
	}

	for i, lf := range w.LeafFaces {
		if !inRange(lf, len(w.Faces)) {
			bad("leafface %d face %d", i, lf)
		}
	}

	if len(w.Models) == 0 {
		bad("no models")
	}
	for i, m := range w.Models {
		if !inRange(m.HeadNode, len(w.Nodes)) {
			bad("model %d headnode %d", i, m.HeadNode)
			continue
		}
		if !spanOK(m.FirstFace, m.NumFaces, len(w.Faces)) {
			bad("model %d faces %d+%d", i, m.FirstFace, m.NumFaces)
		}
	}

	// Cycle detection only makes sense once every child index is known good
	if errs != nil {
		return errs
	}
	for i, m := range w.Models {
		if err := checkTree(w, m.HeadNode); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("model %d: %w", i, err))
		}
	}
	return errs
}

// checkTree walks a subtree with an explicit stack and fails if any node is
// reachable twice
func checkTree(w *bsp.World, head int) error {
	seen := make(map[int]bool)
	stack := []int{head}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node < 0 {
			continue
		}
		if seen[node] {
			return fmt.Errorf("%w: node %d reached twice", ErrMalformedTree, node)
		}
		seen[node] = true
		stack = append(stack, w.Nodes[node].Children[0], w.Nodes[node].Children[1])
	}
	return nil
}
