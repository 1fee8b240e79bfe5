package trace

import (
	"fmt"
	"strconv"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// MaxSkyDist is how far sky rays are traced
const MaxSkyDist = 65536.0

// First style handed out to switchable shadow models without an explicit one
const firstSwitchableStyle = 32

// HitType is the outcome of a ray query
type HitType int

const (
	HitNone HitType = iota
	HitSolid
	HitSky
)

func (h HitType) String() string {
	switch h {
	case HitNone:
		return "none"
	case HitSolid:
		return "solid"
	case HitSky:
		return "sky"
	}
	return fmt.Sprintf("hittype(%d)", int(h))
}

// Mode selects how much a trace resolves
type Mode int

const (
	// ModeOcclusion only answers whether something blocks the ray
	ModeOcclusion Mode = iota
	// ModeIntersection also resolves the nearest hit face across models
	ModeIntersection
)

// ModelInfo describes a brush model that casts shadows. A model with a
// positive SwitchableShadowStyle does not block rays; it tags them with
// the style instead.
type ModelInfo struct {
	Model                 int
	SwitchableShadowStyle int
}

// Result is the outcome of a single ray
type Result struct {
	Occluded     bool
	HitType      HitType
	HitDist      float64
	HitFace      int
	HitPlane     core.Plane
	DynamicStyle int
}

// Tracer answers ray queries against a world and its shadow casting models
type Tracer struct {
	world      *bsp.World
	nodes      *TNodes
	occluders  []int
	switchable []ModelInfo
}

// NewTracer builds the traversal nodes for world. The world model always
// occludes; shadows lists the brush models that do as well.
func NewTracer(world *bsp.World, shadows []ModelInfo) *Tracer {
	t := &Tracer{
		world:     world,
		nodes:     BuildTraversalNodes(world),
		occluders: []int{0},
	}
	for _, s := range shadows {
		if s.Model <= 0 || s.Model >= t.nodes.NumModels() {
			continue
		}
		if s.SwitchableShadowStyle > 0 {
			t.switchable = append(t.switchable, s)
		} else {
			t.occluders = append(t.occluders, s.Model)
		}
	}
	return t
}

// ShadowModels collects shadow casting brush models from the entity lump:
// "_shadow" "1" occludes and "_switchableshadow" "1" tags rays with the
// entity's "style", or a freshly allocated one when none is set
func ShadowModels(w *bsp.World) []ModelInfo {
	var out []ModelInfo
	next := firstSwitchableStyle
	for _, e := range w.Entities {
		m := e.ModelNum()
		if m <= 0 || m >= len(w.Models) {
			continue
		}
		switch {
		case e.ValueForKey("_switchableshadow") == "1":
			style, _ := strconv.Atoi(e.ValueForKey("style"))
			if style <= 0 {
				style = next
				next++
			}
			out = append(out, ModelInfo{Model: m, SwitchableShadowStyle: style})
		case e.ValueForKey("_shadow") == "1":
			out = append(out, ModelInfo{Model: m})
		}
	}
	return out
}

// World returns the traced world
func (t *Tracer) World() *bsp.World {
	return t.world
}

// Nodes returns the traversal nodes
func (t *Tracer) Nodes() *TNodes {
	return t.nodes
}

// PointContents returns the contents of the world model at p
func (t *Tracer) PointContents(p core.Vec3) bsp.Contents {
	return t.nodes.PointContents(0, p)
}

// TraceRay traces a unit direction ray out to maxDist. The world is always
// traced; the shadow casting models are traced unless they are self.
func (t *Tracer) TraceRay(start, dir core.Vec3, maxDist float64, self int, mode Mode) Result {
	best := modelHit{}
	for _, m := range t.occluders {
		if m == self && m != 0 {
			continue
		}
		h := t.nodes.traceModel(m, start, dir, maxDist)
		if h.hit && (!best.hit || h.dist < best.dist) {
			best = h
		}
		if best.hit && mode == ModeOcclusion {
			break
		}
	}

	style := 0
	if !best.hit || mode == ModeIntersection {
		limit := maxDist
		if best.hit {
			limit = best.dist
		}
		for _, s := range t.switchable {
			if s.Model == self {
				continue
			}
			if t.nodes.traceModel(s.Model, start, dir, limit).hit {
				style = s.SwitchableShadowStyle
				break
			}
		}
	}

	return t.finish(start, dir, maxDist, best, mode, style)
}

// finish turns the nearest model hit into a Result
func (t *Tracer) finish(start, dir core.Vec3, maxDist float64, best modelHit, mode Mode, style int) Result {
	res := Result{HitDist: maxDist, HitFace: -1, DynamicStyle: style}
	if !best.hit {
		return res
	}

	res.Occluded = true
	res.HitDist = best.dist
	res.HitType = HitSolid
	if t.nodes.leafContents[best.leaf] == bsp.ContentsSky {
		res.HitType = HitSky
	}
	if best.node < 0 {
		return res
	}

	plane := t.nodes.nodes[best.node].plane()
	if plane.Normal.Dot(dir) > 0 {
		plane = plane.Flip()
	}
	res.HitPlane = plane

	if mode == ModeIntersection {
		p := start.MultiplyAdd(best.dist, dir)
		res.HitFace = t.nodes.faceAt(best.node, p, dir)
		if res.HitFace >= 0 && t.nodes.faces[res.HitFace].flags&bsp.SurfSky != 0 {
			res.HitType = HitSky
		}
	}
	return res
}

// TestSky reports whether the ray reaches sky, and the face it hit
func (t *Tracer) TestSky(start, dir core.Vec3, self int) (bool, int) {
	r := t.TraceRay(start, dir, MaxSkyDist, self, ModeIntersection)
	return r.HitType == HitSky, r.HitFace
}

// TestLight reports whether the segment from start to stop is unobstructed
func (t *Tracer) TestLight(start, stop core.Vec3, self int) bool {
	delta := stop.Subtract(start)
	dist := delta.Length()
	if dist == 0 {
		return !t.PointContents(start).Blocks()
	}
	r := t.TraceRay(start, delta.Multiply(1/dist), dist, self, ModeOcclusion)
	return !r.Occluded
}

// DirtTrace probes for the nearest solid along the ray. The returned plane
// faces back towards start.
func (t *Tracer) DirtTrace(start, dir core.Vec3, maxDist float64, self int) (HitType, float64, core.Plane, int) {
	r := t.TraceRay(start, dir, maxDist, self, ModeIntersection)
	return r.HitType, r.HitDist, r.HitPlane, r.HitFace
}
