package surflight

import (
	"image/color"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
	"github.com/df07/go-lightbake/pkg/texture"
	"github.com/df07/go-lightbake/pkg/threads"
	"github.com/df07/go-lightbake/pkg/trace"
	"github.com/df07/go-lightbake/pkg/winding"
)

// Generator scans the faces of a world for surface lights
type Generator struct {
	world    *bsp.World
	tracer   *trace.Tracer
	textures texture.Store
	config   Config
	logger   core.Logger
}

// NewGenerator creates a generator. A nil logger discards warnings.
func NewGenerator(tracer *trace.Tracer, textures texture.Store, config Config, logger core.Logger) *Generator {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Generator{
		world:    tracer.World(),
		tracer:   tracer,
		textures: textures,
		config:   config,
		logger:   logger,
	}
}

// MakeSurfaceLights runs a generator over every face and returns the filled
// registry
func MakeSurfaceLights(tracer *trace.Tracer, textures texture.Store, config Config, logger core.Logger) *Registry {
	return NewGenerator(tracer, textures, config, logger).Run()
}

var visDirs = core.SphereGrid(visRaysPerAxis)

// worker is the state owned by one pool worker
type worker struct {
	stats  Stats
	stream trace.RayStream
}

// Run processes every face on the worker pool and blocks until all are done
func (g *Generator) Run() *Registry {
	reg := NewRegistry()
	pool := threads.NewPool(g.config.Threads)
	workers := make([]worker, pool.NumWorkers())

	g.logger.Infof("Making surface lights from %d faces on %d workers", len(g.world.Faces), pool.NumWorkers())

	pool.Run(0, len(g.world.Faces), func(w, face int) {
		wk := &workers[w]
		light, ok := g.processFace(face, wk)
		if !ok {
			return
		}
		wk.stats.Lights++
		wk.stats.Points += len(light.Points)
		reg.add(light)
	})

	for i := range workers {
		reg.stats.Add(workers[i].stats)
	}
	g.logger.Infof("%d surface lights, %d points", reg.Len(), reg.TotalPoints())
	return reg
}

// processFace builds the light for one face. It touches no shared state
// apart from the read only world and texture store.
func (g *Generator) processFace(face int, wk *worker) (SurfaceLight, bool) {
	w := g.world
	wk.stats.FacesScanned++

	ti := w.FaceTexInfo(face)
	if ti == nil || ti.Flags&bsp.SurfLight == 0 {
		return SurfaceLight{}, false
	}
	if ti.Value == 0 {
		wk.stats.ZeroIntensity++
		g.logger.Warnf("surface light '%s' at [%v] has 0 intensity", ti.Texture, w.FaceWinding(face).Center())
		return SurfaceLight{}, false
	}
	wk.stats.Emitters++

	poly := w.FaceWinding(face)
	area := poly.Area()
	if area < g.config.MinArea {
		wk.stats.SmallArea++
		return SurfaceLight{}, false
	}

	plane := w.FacePlane(face)
	wnd, err := winding.Check(poly.RemoveColinearPoints(), plane)
	if winding.IsFatal(err) {
		wk.stats.Degenerate++
		g.logger.Debugf("skipping surface light face %d: %v", face, err)
		return SurfaceLight{}, false
	}

	light := SurfaceLight{
		Face:   face,
		Style:  int(w.Faces[face].Styles[0]),
		Normal: plane.Normal,
		Pos:    wnd.Center().Add(plane.Normal),
	}

	tex := g.textures.Texture(ti.Texture)
	glow := g.config.GlowTextures && tex != nil && tex.HasChannel(texture.ChannelGlow)
	subdiv := g.config.Subdivide
	if glow {
		subdiv = 1
	}

	wnd.Dice(subdiv, func(piece winding.Winding) {
		light.Points = append(light.Points, piece.Center())
	})
	if len(light.Points) == 0 {
		wk.stats.Degenerate++
		return SurfaceLight{}, false
	}

	var base core.Vec3
	if glow {
		light.Points, light.PointColors, base = g.glowPoints(face, light.Points)
		if len(light.Points) == 0 {
			wk.stats.DarkGlow++
			return SurfaceLight{}, false
		}
	} else if tex != nil {
		base = unitColor(tex.AverageColor())
	}

	base = base.Multiply(float64(ti.Value))
	intensity := base.MaxComponent()
	if intensity <= 0 {
		wk.stats.Unlit++
		return SurfaceLight{}, false
	}
	base = base.Multiply(1 / intensity)

	if !glow {
		light.PointColors = make([]core.Vec3, len(light.Points))
		for i := range light.PointColors {
			light.PointColors[i] = base
		}
	}

	light.Color = base
	light.TotalIntensity = intensity * area
	light.Intensity = light.TotalIntensity / float64(len(light.Points))

	if g.config.VisApprox {
		if wk.stream == nil {
			wk.stream = trace.NewRayStream(g.tracer, g.config.StreamKind, visRaysPerAxis*visRaysPerAxis)
		}
		light.Bounds = g.visibleBounds(light.Pos, w.ModelForFace(face), wk.stream)
	}
	return light, true
}

// glowPoints drops the points whose glow texel is too dark and returns the
// survivors, their colours, and the mean of those colours
func (g *Generator) glowPoints(face int, points []core.Vec3) ([]core.Vec3, []core.Vec3, core.Vec3) {
	lit := points[:0:0]
	var colors []core.Vec3
	var total core.Vec3

	for _, p := range points {
		c := texture.SampleColor(g.world, g.textures, face, p, texture.ChannelGlow)
		if (int(c.R)+int(c.G)+int(c.B))/3 < g.config.DarkThreshold {
			continue
		}
		pc := unitColor(c)
		lit = append(lit, p)
		colors = append(colors, pc)
		total = total.Add(pc)
	}

	if len(lit) == 0 {
		return nil, nil, core.Vec3{}
	}
	return lit, colors, total.Multiply(1 / float64(len(lit)))
}

// visibleBounds traces a sphere of rays from pos and bounds where they stop
func (g *Generator) visibleBounds(pos core.Vec3, self int, rs trace.RayStream) core.AABB {
	rs.Clear()
	for i, dir := range visDirs {
		rs.PushRay(i, pos, dir, trace.MaxSkyDist)
	}
	rs.TraceIntersection(self)

	bounds := core.NewAABB(pos, pos)
	for k := 0; k < rs.NumPushedRays(); k++ {
		bounds = bounds.ExpandToPoint(pos.MultiplyAdd(rs.HitDist(k), rs.Dir(k)))
	}
	rs.Clear()
	return bounds.Expand(visBoundsGrow)
}

func unitColor(c color.RGBA) core.Vec3 {
	return core.NewVec3(float64(c.R), float64(c.G), float64(c.B)).Multiply(1.0 / 255.0)
}
