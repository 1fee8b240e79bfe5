// Package surflight turns emissive faces into point sampled area lights.
package surflight

import (
	"github.com/df07/go-lightbake/pkg/core"
	"github.com/df07/go-lightbake/pkg/trace"
)

// Defaults for Config
const (
	DefaultSubdivide     = 128.0
	DefaultDarkThreshold = 25
	DefaultMinArea       = 1.0
)

// visibility bound estimation
const (
	visRaysPerAxis = 32
	visBoundsGrow  = 1.0
)

// Config controls surface light generation
type Config struct {
	Subdivide     float64          // dice size in world units for faces without glow
	GlowTextures  bool             // sample the glow channel when a texture has one
	VisApprox     bool             // estimate the region each light can be seen from
	DarkThreshold int              // glow texels with a channel average below this are dropped
	MinArea       float64          // faces smaller than this do not emit
	Threads       int              // <= 0 uses every CPU
	StreamKind    trace.StreamKind // ray stream used for the visibility estimate
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Subdivide:     DefaultSubdivide,
		GlowTextures:  true,
		VisApprox:     true,
		DarkThreshold: DefaultDarkThreshold,
		MinArea:       DefaultMinArea,
	}
}

// SurfaceLight is an emitting face sampled as a set of points. It is not
// modified once registered.
type SurfaceLight struct {
	Face  int
	Style int

	Normal      core.Vec3
	Pos         core.Vec3 // face centre lifted one unit along Normal
	Points      []core.Vec3
	PointColors []core.Vec3 // same length as Points

	TotalIntensity float64   // peak channel before normalisation times face area
	Intensity      float64   // TotalIntensity shared over the points
	Color          core.Vec3 // normalised so the peak channel is 1
	Bounds         core.AABB // zero when visibility estimation is off
}

// Stats counts what happened to each face during a run
type Stats struct {
	FacesScanned  int
	Emitters      int // faces with the light flag and a non-zero value
	ZeroIntensity int
	SmallArea     int
	Degenerate    int
	DarkGlow      int
	Unlit         int // emitter whose colour came out black
	Lights        int
	Points        int
}

// Add merges o into s
func (s *Stats) Add(o Stats) {
	s.FacesScanned += o.FacesScanned
	s.Emitters += o.Emitters
	s.ZeroIntensity += o.ZeroIntensity
	s.SmallArea += o.SmallArea
	s.Degenerate += o.Degenerate
	s.DarkGlow += o.DarkGlow
	s.Unlit += o.Unlit
	s.Lights += o.Lights
	s.Points += o.Points
}
