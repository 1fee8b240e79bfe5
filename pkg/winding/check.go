package winding

import (
	"errors"
	"fmt"

	"go.uber.org/multierr"

	"github.com/df07/go-lightbake/pkg/core"
)

// Fatal face problems
var (
	ErrTooFewPoints = errors.New("winding has fewer than 3 points")
	ErrBogusRange   = errors.New("winding point outside map range")
	ErrConcave      = errors.New("winding is concave")
)

// Recoverable face problems, reported alongside the cleaned winding
var (
	ErrPointOffPlane  = errors.New("winding point off plane")
	ErrDegenerateEdge = errors.New("degenerate edge")
)

// Check validates a face winding against its plane. Degenerate edges are
// removed and the remaining points re-checked until none are left, so the
// returned winding is always the cleaned one. The error combines every
// problem found in the final pass plus the degenerate edges dropped on the
// way; use IsFatal to tell whether the winding is usable.
func Check(w Winding, plane core.Plane) (Winding, error) {
	pts := w.Clone()
	var dropped error

	for {
		if len(pts) < 3 {
			return pts, multierr.Append(dropped, fmt.Errorf("%w: %d", ErrTooFewPoints, len(pts)))
		}

		degenerate := -1
		var problems error
		center := pts.Center()

		for i, p1 := range pts {
			for axis := 0; axis < 3; axis++ {
				if v := p1.Axis(axis); v > BogusRange || v < -BogusRange {
					return pts, multierr.Append(dropped, fmt.Errorf("%w: %v", ErrBogusRange, p1))
				}
			}

			if d := plane.Distance(p1); d < -OnEpsilon || d > OnEpsilon {
				problems = multierr.Append(problems, fmt.Errorf("%w: (%v) is %g from plane", ErrPointOffPlane, p1, d))
			}

			p2 := pts[(i+1)%len(pts)]
			dir := p2.Subtract(p1)
			if dir.Length() < OnEpsilon {
				degenerate = i
				break
			}

			// Edge normal pointing away from the polygon interior
			edgeNormal := plane.Normal.Cross(dir).Normalize()
			if edgeNormal.Dot(center.Subtract(p1)) > 0 {
				edgeNormal = edgeNormal.Negate()
			}
			edgeDist := edgeNormal.Dot(p1) + OnEpsilon

			for j, other := range pts {
				if j == i {
					continue
				}
				if edgeNormal.Dot(other) > edgeDist {
					return pts, multierr.Append(dropped, ErrConcave)
				}
			}
		}

		if degenerate == -1 {
			return pts, multierr.Append(dropped, problems)
		}

		dropped = multierr.Append(dropped, fmt.Errorf("%w at (%v)", ErrDegenerateEdge, pts[degenerate]))
		pts = append(pts[:degenerate], pts[degenerate+1:]...)
	}
}

// IsFatal reports whether err from Check makes the winding unusable
func IsFatal(err error) bool {
	for _, e := range multierr.Errors(err) {
		if errors.Is(e, ErrTooFewPoints) || errors.Is(e, ErrBogusRange) || errors.Is(e, ErrConcave) {
			return true
		}
	}
	return false
}
