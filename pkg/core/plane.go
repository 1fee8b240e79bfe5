package core

import "math"

// Plane axis types. Planes whose normal is exactly an axis get the
// fast-path types; the rest record their dominant axis.
const (
	PlaneX    = 0
	PlaneY    = 1
	PlaneZ    = 2
	PlaneAnyX = 3
	PlaneAnyY = 4
	PlaneAnyZ = 5
)

// Plane is the set of points p with Normal·p == Dist
type Plane struct {
	Normal Vec3
	Dist   float64
	Type   int
}

// NewPlane creates a plane and classifies its axis type
func NewPlane(normal Vec3, dist float64) Plane {
	return Plane{Normal: normal, Dist: dist, Type: PlaneTypeForNormal(normal)}
}

// PlaneFromPoints builds the plane through three counter-clockwise points
func PlaneFromPoints(a, b, c Vec3) Plane {
	normal := b.Subtract(a).Cross(c.Subtract(a)).Normalize()
	return NewPlane(normal, normal.Dot(a))
}

// Distance returns the signed distance from the plane to p
func (p Plane) Distance(point Vec3) float64 {
	if p.Type < PlaneAnyX {
		return point.Axis(p.Type) - p.Dist
	}
	return p.Normal.Dot(point) - p.Dist
}

// Flip returns the same plane facing the other way
func (p Plane) Flip() Plane {
	return NewPlane(p.Normal.Negate(), -p.Dist)
}

// PlaneTypeForNormal classifies a unit normal. Negative axial normals are
// not axial types because their distance would need a sign flip.
func PlaneTypeForNormal(normal Vec3) int {
	switch {
	case normal.X == 1.0:
		return PlaneX
	case normal.Y == 1.0:
		return PlaneY
	case normal.Z == 1.0:
		return PlaneZ
	}

	ax := math.Abs(normal.X)
	ay := math.Abs(normal.Y)
	az := math.Abs(normal.Z)

	if ax >= ay && ax >= az {
		return PlaneAnyX
	}
	if ay >= ax && ay >= az {
		return PlaneAnyY
	}
	return PlaneAnyZ
}

// EqualEpsilon is the distance below which two points are considered equal
const EqualEpsilon = 0.001
