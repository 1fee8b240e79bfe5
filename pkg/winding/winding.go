// Package winding implements the convex polygon utilities used by the
// lighting passes: bounds, area, centre, plane clipping and dicing.
package winding

import (
	"math"

	"github.com/df07/go-lightbake/pkg/core"
)

// OnEpsilon is the distance within which a point counts as lying on a plane
const OnEpsilon = 0.1

// BogusRange bounds every valid map coordinate
const BogusRange = 65536.0

// colinearCos is the cosine above which two consecutive edges are treated
// as one straight edge
const colinearCos = 0.999

// Winding is an ordered convex polygon of coplanar points
type Winding []core.Vec3

// Clone returns an independent copy of the winding
func (w Winding) Clone() Winding {
	if w == nil {
		return nil
	}
	out := make(Winding, len(w))
	copy(out, w)
	return out
}

// Bounds returns the axis-aligned box around the points
func (w Winding) Bounds() core.AABB {
	return core.NewAABBFromPoints(w...)
}

// Area returns the polygon area using a triangle fan from the first point
func (w Winding) Area() float64 {
	if len(w) < 3 {
		return 0
	}
	total := 0.0
	for i := 2; i < len(w); i++ {
		d1 := w[i-1].Subtract(w[0])
		d2 := w[i].Subtract(w[0])
		total += 0.5 * d1.Cross(d2).Length()
	}
	return total
}

// Center returns the average of the points
func (w Winding) Center() core.Vec3 {
	if len(w) == 0 {
		return core.Vec3{}
	}
	var sum core.Vec3
	for _, p := range w {
		sum = sum.Add(p)
	}
	return sum.Multiply(1.0 / float64(len(w)))
}

// RemoveColinearPoints drops near-duplicate points and points lying on a
// straight run between their neighbours. The loop runs until nothing more
// can be removed, so it is bounded by the point count.
func (w Winding) RemoveColinearPoints() Winding {
	pts := w.Clone()

	for len(pts) >= 3 {
		removed := false
		for i := 0; i < len(pts); i++ {
			next := pts[(i+1)%len(pts)]
			if next.Subtract(pts[i]).Length() < core.EqualEpsilon {
				pts = append(pts[:i], pts[i+1:]...)
				removed = true
				break
			}
		}
		if !removed {
			break
		}
	}
	if len(pts) < 3 {
		return pts
	}

	out := make(Winding, 0, len(pts))
	for i := range pts {
		j := (i + 1) % len(pts)
		k := (i + len(pts) - 1) % len(pts)
		v1 := pts[j].Subtract(pts[i]).Normalize()
		v2 := pts[i].Subtract(pts[k]).Normalize()
		if v1.Dot(v2) < colinearCos {
			out = append(out, pts[i])
		}
	}
	return out
}

// Side classification for Clip
const (
	sideFront = 0
	sideBack  = 1
	sideOn    = 2
)

// Clip splits the winding by the plane normal·p = dist. Points within
// OnEpsilon go to both halves. When keepOn is set a winding lying entirely
// on the plane is returned as front. Either result may be nil.
func (w Winding) Clip(normal core.Vec3, dist float64, keepOn bool) (front, back Winding) {
	n := len(w)
	dists := make([]float64, n+1)
	sides := make([]int, n+1)
	var counts [3]int

	for i, p := range w {
		d := normal.Dot(p) - dist
		dists[i] = d
		switch {
		case d > OnEpsilon:
			sides[i] = sideFront
		case d < -OnEpsilon:
			sides[i] = sideBack
		default:
			sides[i] = sideOn
		}
		counts[sides[i]]++
	}
	sides[n] = sides[0]
	dists[n] = dists[0]

	if keepOn && counts[sideFront] == 0 && counts[sideBack] == 0 {
		return w.Clone(), nil
	}
	if counts[sideFront] == 0 {
		return nil, w.Clone()
	}
	if counts[sideBack] == 0 {
		return w.Clone(), nil
	}

	front = make(Winding, 0, n+4)
	back = make(Winding, 0, n+4)

	for i := 0; i < n; i++ {
		p1 := w[i]

		if sides[i] == sideOn {
			front = append(front, p1)
			back = append(back, p1)
			continue
		}
		if sides[i] == sideFront {
			front = append(front, p1)
		} else {
			back = append(back, p1)
		}

		if sides[i+1] == sideOn || sides[i+1] == sides[i] {
			continue
		}

		// Edge crosses the plane
		p2 := w[(i+1)%n]
		t := dists[i] / (dists[i] - dists[i+1])
		mid := core.Vec3{
			X: splitComponent(normal.X, dist, p1.X, p2.X, t),
			Y: splitComponent(normal.Y, dist, p1.Y, p2.Y, t),
			Z: splitComponent(normal.Z, dist, p1.Z, p2.Z, t),
		}
		front = append(front, mid)
		back = append(back, mid)
	}

	return front, back
}

// splitComponent snaps axial splits exactly onto the plane
func splitComponent(normal, dist, a, b, t float64) float64 {
	switch normal {
	case 1:
		return dist
	case -1:
		return -dist
	}
	return a + t*(b-a)
}

// Dice recursively cuts the winding with axial planes every subdiv units
// and hands each piece to save. Pieces are visited in a fixed order for a
// given input.
func (w Winding) Dice(subdiv float64, save func(Winding)) {
	if len(w) == 0 {
		return
	}
	if subdiv <= 0 {
		save(w)
		return
	}

	bounds := w.Bounds()
	axis := -1
	for i := 0; i < 3; i++ {
		lo := math.Floor((bounds.Min.Axis(i) + 1) / subdiv)
		hi := math.Floor((bounds.Max.Axis(i) - 1) / subdiv)
		if lo < hi {
			axis = i
			break
		}
	}
	if axis == -1 {
		save(w)
		return
	}

	split := core.Vec3{}.WithAxis(axis, 1)
	dist := subdiv * (1 + math.Floor((bounds.Min.Axis(axis)+1)/subdiv))

	front, back := w.Clip(split, dist, false)
	front.Dice(subdiv, save)
	back.Dice(subdiv, save)
}
