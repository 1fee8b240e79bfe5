package core

import "math"

// UniformPointOnSphere maps two uniform samples in [0,1] to a unit direction
func UniformPointOnSphere(u1, u2 float64) Vec3 {
	z := 1.0 - 2.0*u1 // z ∈ [-1, 1]
	r := math.Sqrt(math.Max(0, 1.0-z*z))
	phi := 2.0 * math.Pi * u2
	return Vec3{X: r * math.Cos(phi), Y: r * math.Sin(phi), Z: z}
}

// SphereGrid returns n*n directions, one from the centre of each cell of an
// n by n grid over the sample square. Direction i*n+j comes from cell (i, j).
func SphereGrid(n int) []Vec3 {
	if n <= 0 {
		return nil
	}
	dirs := make([]Vec3, 0, n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dirs = append(dirs, UniformPointOnSphere(
				(float64(i)+0.5)/float64(n),
				(float64(j)+0.5)/float64(n),
			))
		}
	}
	return dirs
}
