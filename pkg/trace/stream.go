package trace

import (
	"errors"
	"fmt"
	"strings"

	"github.com/df07/go-lightbake/pkg/core"
)

// ErrNotTraced is the panic value when results are read from a stream that
// has not been traced since its last push or clear
var ErrNotTraced = errors.New("ray stream results read before tracing")

// RayStream batches rays for tracing. Rays are pushed, traced as a whole,
// read back by push position and then cleared for reuse. A stream belongs
// to a single worker.
type RayStream interface {
	PushRay(index int, origin, dir core.Vec3, dist float64)
	PushWeightedRay(index int, origin, dir core.Vec3, dist float64, color, normalContrib core.Vec3)
	NumPushedRays() int

	TraceOcclusion(self int)
	TraceIntersection(self int)

	// Inputs, valid any time after the push
	PointIndex(j int) int
	Dir(j int) core.Vec3
	Dist(j int) float64
	Color(j int) core.Vec3
	NormalContrib(j int) core.Vec3

	// Results, valid only after a trace
	Occluded(j int) bool
	HitDist(j int) float64
	HitType(j int) HitType
	HitFace(j int) int
	HitPlane(j int) core.Plane
	DynamicStyle(j int) int

	Clear()
}

// StreamKind selects a RayStream implementation
type StreamKind int

const (
	// StreamScalar traces rays one at a time
	StreamScalar StreamKind = iota
	// StreamPacket stores rays as arrays and traces them in packets
	StreamPacket
)

func (k StreamKind) String() string {
	switch k {
	case StreamScalar:
		return "scalar"
	case StreamPacket:
		return "packet"
	}
	return fmt.Sprintf("stream(%d)", int(k))
}

// ParseStreamKind maps a config name to a StreamKind
func ParseStreamKind(s string) (StreamKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scalar":
		return StreamScalar, nil
	case "packet":
		return StreamPacket, nil
	}
	return 0, fmt.Errorf("unknown ray stream %q (expected scalar or packet)", s)
}

// NewRayStream creates an empty stream with room for capacity rays
func NewRayStream(t *Tracer, kind StreamKind, capacity int) RayStream {
	if kind == StreamPacket {
		return newPacketStream(t, capacity)
	}
	return &scalarStream{tracer: t, rays: make([]scalarRay, 0, capacity)}
}

type scalarRay struct {
	index         int
	origin        core.Vec3
	dir           core.Vec3
	maxDist       float64
	color         core.Vec3
	normalContrib core.Vec3
	result        Result
}

type scalarStream struct {
	tracer *Tracer
	rays   []scalarRay
	traced bool
}

func (s *scalarStream) PushRay(index int, origin, dir core.Vec3, dist float64) {
	s.PushWeightedRay(index, origin, dir, dist, core.Vec3{}, core.Vec3{})
}

func (s *scalarStream) PushWeightedRay(index int, origin, dir core.Vec3, dist float64, color, normalContrib core.Vec3) {
	s.rays = append(s.rays, scalarRay{
		index:         index,
		origin:        origin,
		dir:           dir,
		maxDist:       dist,
		color:         color,
		normalContrib: normalContrib,
	})
	s.traced = false
}

func (s *scalarStream) NumPushedRays() int {
	return len(s.rays)
}

func (s *scalarStream) trace(self int, mode Mode) {
	for i := range s.rays {
		r := &s.rays[i]
		r.result = s.tracer.TraceRay(r.origin, r.dir, r.maxDist, self, mode)
	}
	s.traced = true
}

func (s *scalarStream) TraceOcclusion(self int)    { s.trace(self, ModeOcclusion) }
func (s *scalarStream) TraceIntersection(self int) { s.trace(self, ModeIntersection) }

func (s *scalarStream) PointIndex(j int) int          { return s.rays[j].index }
func (s *scalarStream) Dir(j int) core.Vec3           { return s.rays[j].dir }
func (s *scalarStream) Dist(j int) float64            { return s.rays[j].maxDist }
func (s *scalarStream) Color(j int) core.Vec3         { return s.rays[j].color }
func (s *scalarStream) NormalContrib(j int) core.Vec3 { return s.rays[j].normalContrib }

func (s *scalarStream) result(j int) *Result {
	if !s.traced {
		panic(ErrNotTraced)
	}
	return &s.rays[j].result
}

func (s *scalarStream) Occluded(j int) bool       { return s.result(j).Occluded }
func (s *scalarStream) HitDist(j int) float64     { return s.result(j).HitDist }
func (s *scalarStream) HitType(j int) HitType     { return s.result(j).HitType }
func (s *scalarStream) HitFace(j int) int         { return s.result(j).HitFace }
func (s *scalarStream) HitPlane(j int) core.Plane { return s.result(j).HitPlane }
func (s *scalarStream) DynamicStyle(j int) int    { return s.result(j).DynamicStyle }

func (s *scalarStream) Clear() {
	s.rays = s.rays[:0]
	s.traced = false
}

// packetStream keeps each ray field in its own array and traces rays in
// groups of PacketSize
type packetStream struct {
	tracer *Tracer

	index         []int
	ox, oy, oz    []float64
	dx, dy, dz    []float64
	maxDist       []float64
	color         []core.Vec3
	normalContrib []core.Vec3

	results []Result
	stack   []packetFrame
	traced  bool
}

func newPacketStream(t *Tracer, capacity int) *packetStream {
	return &packetStream{
		tracer:        t,
		index:         make([]int, 0, capacity),
		ox:            make([]float64, 0, capacity),
		oy:            make([]float64, 0, capacity),
		oz:            make([]float64, 0, capacity),
		dx:            make([]float64, 0, capacity),
		dy:            make([]float64, 0, capacity),
		dz:            make([]float64, 0, capacity),
		maxDist:       make([]float64, 0, capacity),
		color:         make([]core.Vec3, 0, capacity),
		normalContrib: make([]core.Vec3, 0, capacity),
	}
}

func (s *packetStream) PushRay(index int, origin, dir core.Vec3, dist float64) {
	s.PushWeightedRay(index, origin, dir, dist, core.Vec3{}, core.Vec3{})
}

func (s *packetStream) PushWeightedRay(index int, origin, dir core.Vec3, dist float64, color, normalContrib core.Vec3) {
	s.index = append(s.index, index)
	s.ox = append(s.ox, origin.X)
	s.oy = append(s.oy, origin.Y)
	s.oz = append(s.oz, origin.Z)
	s.dx = append(s.dx, dir.X)
	s.dy = append(s.dy, dir.Y)
	s.dz = append(s.dz, dir.Z)
	s.maxDist = append(s.maxDist, dist)
	s.color = append(s.color, color)
	s.normalContrib = append(s.normalContrib, normalContrib)
	s.traced = false
}

func (s *packetStream) NumPushedRays() int {
	return len(s.index)
}

func (s *packetStream) trace(self int, mode Mode) {
	n := len(s.index)
	if cap(s.results) < n {
		s.results = make([]Result, n)
	}
	s.results = s.results[:n]

	var p packet
	for base := 0; base < n; base += PacketSize {
		p.count = min(PacketSize, n-base)
		for i := 0; i < p.count; i++ {
			j := base + i
			p.start[i] = core.Vec3{X: s.ox[j], Y: s.oy[j], Z: s.oz[j]}
			p.dir[i] = core.Vec3{X: s.dx[j], Y: s.dy[j], Z: s.dz[j]}
			p.maxDist[i] = s.maxDist[j]
		}
		s.tracer.tracePacket(&p, self, mode, s.results[base:base+p.count], &s.stack)
	}
	s.traced = true
}

func (s *packetStream) TraceOcclusion(self int)    { s.trace(self, ModeOcclusion) }
func (s *packetStream) TraceIntersection(self int) { s.trace(self, ModeIntersection) }

func (s *packetStream) PointIndex(j int) int { return s.index[j] }
func (s *packetStream) Dir(j int) core.Vec3 {
	return core.Vec3{X: s.dx[j], Y: s.dy[j], Z: s.dz[j]}
}
func (s *packetStream) Dist(j int) float64            { return s.maxDist[j] }
func (s *packetStream) Color(j int) core.Vec3         { return s.color[j] }
func (s *packetStream) NormalContrib(j int) core.Vec3 { return s.normalContrib[j] }

func (s *packetStream) result(j int) *Result {
	if !s.traced {
		panic(ErrNotTraced)
	}
	return &s.results[j]
}

func (s *packetStream) Occluded(j int) bool       { return s.result(j).Occluded }
func (s *packetStream) HitDist(j int) float64     { return s.result(j).HitDist }
func (s *packetStream) HitType(j int) HitType     { return s.result(j).HitType }
func (s *packetStream) HitFace(j int) int         { return s.result(j).HitFace }
func (s *packetStream) HitPlane(j int) core.Plane { return s.result(j).HitPlane }
func (s *packetStream) DynamicStyle(j int) int    { return s.result(j).DynamicStyle }

func (s *packetStream) Clear() {
	s.index = s.index[:0]
	s.ox, s.oy, s.oz = s.ox[:0], s.oy[:0], s.oz[:0]
	s.dx, s.dy, s.dz = s.dx[:0], s.dy[:0], s.dz[:0]
	s.maxDist = s.maxDist[:0]
	s.color = s.color[:0]
	s.normalContrib = s.normalContrib[:0]
	s.results = s.results[:0]
	s.traced = false
}
