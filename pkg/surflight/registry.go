package surflight

import (
	"fmt"
	"io"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry holds every surface light of a world and indexes them by face.
// Workers append to it during generation; afterwards it is read only.
type Registry struct {
	mu          sync.Mutex
	lights      []SurfaceLight
	byFace      map[int][]int
	totalPoints int
	stats       Stats
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{byFace: make(map[int][]int)}
}

// add appends the lights of one face as a contiguous run
func (r *Registry) add(lights ...SurfaceLight) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range lights {
		r.lights = append(r.lights, l)
		r.byFace[l.Face] = append(r.byFace[l.Face], len(r.lights)-1)
		r.totalPoints += len(l.Points)
	}
}

// Lights returns the registered lights. The slice must not be modified.
func (r *Registry) Lights() []SurfaceLight {
	return r.lights
}

// Len returns the number of registered lights
func (r *Registry) Len() int {
	return len(r.lights)
}

// ForFace returns the registry positions of the lights made from face, or
// nil if it has none
func (r *Registry) ForFace(face int) []int {
	return r.byFace[face]
}

// TotalPoints returns the number of sample points over all lights
func (r *Registry) TotalPoints() int {
	return r.totalPoints
}

// Stats returns the counters of the run that filled the registry
func (r *Registry) Stats() Stats {
	return r.stats
}

type dumpLight struct {
	Face           int          `yaml:"face"`
	Style          int          `yaml:"style"`
	Normal         [3]float64   `yaml:"normal,flow"`
	Pos            [3]float64   `yaml:"pos,flow"`
	Color          [3]float64   `yaml:"color,flow"`
	TotalIntensity float64      `yaml:"total_intensity"`
	Intensity      float64      `yaml:"intensity"`
	Mins           [3]float64   `yaml:"mins,flow"`
	Maxs           [3]float64   `yaml:"maxs,flow"`
	Points         [][3]float64 `yaml:"points,flow"`
}

type dump struct {
	TotalPoints int         `yaml:"total_points"`
	Lights      []dumpLight `yaml:"lights"`
}

// WriteYAML writes the registry sorted by face, so runs with different
// thread counts produce the same document
func (r *Registry) WriteYAML(w io.Writer) error {
	order := make([]int, len(r.lights))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return r.lights[order[a]].Face < r.lights[order[b]].Face
	})

	d := dump{TotalPoints: r.totalPoints}
	for _, i := range order {
		l := &r.lights[i]
		dl := dumpLight{
			Face:           l.Face,
			Style:          l.Style,
			Normal:         [3]float64{l.Normal.X, l.Normal.Y, l.Normal.Z},
			Pos:            [3]float64{l.Pos.X, l.Pos.Y, l.Pos.Z},
			Color:          [3]float64{l.Color.X, l.Color.Y, l.Color.Z},
			TotalIntensity: l.TotalIntensity,
			Intensity:      l.Intensity,
			Mins:           [3]float64{l.Bounds.Min.X, l.Bounds.Min.Y, l.Bounds.Min.Z},
			Maxs:           [3]float64{l.Bounds.Max.X, l.Bounds.Max.Y, l.Bounds.Max.Z},
		}
		for _, p := range l.Points {
			dl.Points = append(dl.Points, [3]float64{p.X, p.Y, p.Z})
		}
		d.Lights = append(d.Lights, dl)
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(&d); err != nil {
		return fmt.Errorf("failed to encode surface lights: %w", err)
	}
	return enc.Close()
}
