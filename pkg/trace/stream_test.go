package trace

import (
	"errors"
	"testing"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/bsp/bsptest"
	"github.com/df07/go-lightbake/pkg/core"
)

func TestParseStreamKind(t *testing.T) {
	tests := []struct {
		in      string
		want    StreamKind
		wantErr bool
	}{
		{"", StreamScalar, false},
		{"scalar", StreamScalar, false},
		{" Packet ", StreamPacket, false},
		{"simd", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseStreamKind(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected error %v, got %v", tt.wantErr, err)
			}
			if err == nil && got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

// streamTracer traces a cube room with a sky leaf above the ceiling
func streamTracer(t *testing.T) *Tracer {
	t.Helper()
	w := cubeRoom(map[string]string{"_shadow": "1"})
	w.Leafs[bsptest.LeafCeiling].Contents = bsp.ContentsSky
	return NewTracer(w, ShadowModels(w))
}

func TestRayStream_ScalarAndPacketAgree(t *testing.T) {
	tr := streamTracer(t)
	origins := []core.Vec3{
		core.NewVec3(10, 64, 64),
		core.NewVec3(64, 64, 100),
		core.NewVec3(30, 100, 20),
		core.NewVec3(64, 64, 64),  // inside the cube
		core.NewVec3(64, 64, -20), // inside solid
	}

	const n = 12
	for _, mode := range []Mode{ModeOcclusion, ModeIntersection} {
		for _, self := range []int{0, 1} {
			scalar := NewRayStream(tr, StreamScalar, 0)
			packet := NewRayStream(tr, StreamPacket, 0)

			idx := 0
			for _, o := range origins {
				for i, dir := range core.SphereGrid(n) {
					dist := 40.0
					if (i/n+i%n)%2 == 0 {
						dist = 300
					}
					color := core.NewVec3(float64(i/n), float64(i%n), 1)
					scalar.PushWeightedRay(idx, o, dir, dist, color, dir)
					packet.PushWeightedRay(idx, o, dir, dist, color, dir)
					idx++
				}
			}

			if mode == ModeOcclusion {
				scalar.TraceOcclusion(self)
				packet.TraceOcclusion(self)
			} else {
				scalar.TraceIntersection(self)
				packet.TraceIntersection(self)
			}

			if scalar.NumPushedRays() != packet.NumPushedRays() {
				t.Fatalf("Pushed counts differ: %d vs %d", scalar.NumPushedRays(), packet.NumPushedRays())
			}
			hits := 0
			for k := 0; k < scalar.NumPushedRays(); k++ {
				if scalar.Occluded(k) != packet.Occluded(k) ||
					scalar.HitType(k) != packet.HitType(k) ||
					scalar.HitDist(k) != packet.HitDist(k) ||
					scalar.HitFace(k) != packet.HitFace(k) ||
					scalar.HitPlane(k) != packet.HitPlane(k) ||
					scalar.DynamicStyle(k) != packet.DynamicStyle(k) {
					t.Fatalf("Mode %d self %d ray %d differs: scalar %v/%v/%f/%d packet %v/%v/%f/%d",
						mode, self, k,
						scalar.Occluded(k), scalar.HitType(k), scalar.HitDist(k), scalar.HitFace(k),
						packet.Occluded(k), packet.HitType(k), packet.HitDist(k), packet.HitFace(k))
				}
				if packet.PointIndex(k) != k || packet.Color(k) != scalar.Color(k) ||
					packet.Dir(k) != scalar.Dir(k) || packet.NormalContrib(k) != scalar.NormalContrib(k) ||
					packet.Dist(k) != scalar.Dist(k) {
					t.Fatalf("Ray %d inputs differ between streams", k)
				}
				if scalar.Occluded(k) {
					hits++
				}
			}
			if hits == 0 || hits == scalar.NumPushedRays() {
				t.Errorf("Mode %d self %d: expected a mix of hits and misses, got %d hits", mode, self, hits)
			}
		}
	}
}

func TestRayStream_MatchesTraceRay(t *testing.T) {
	tr := streamTracer(t)
	for _, kind := range []StreamKind{StreamScalar, StreamPacket} {
		t.Run(kind.String(), func(t *testing.T) {
			rs := NewRayStream(tr, kind, 4)
			start := core.NewVec3(10, 64, 64)
			dirs := []core.Vec3{
				core.NewVec3(1, 0, 0),
				core.NewVec3(0, 0, 1),
				core.NewVec3(0, 0, -1),
			}
			for i, d := range dirs {
				rs.PushRay(i, start, d, 500)
			}
			rs.TraceIntersection(0)

			for i, d := range dirs {
				want := tr.TraceRay(start, d, 500, 0, ModeIntersection)
				if rs.HitDist(i) != want.HitDist || rs.HitType(i) != want.HitType || rs.HitFace(i) != want.HitFace {
					t.Errorf("Ray %d: expected %v at %f face %d, got %v at %f face %d",
						i, want.HitType, want.HitDist, want.HitFace, rs.HitType(i), rs.HitDist(i), rs.HitFace(i))
				}
			}
			if rs.HitType(1) != HitSky {
				t.Errorf("Expected the ray up to reach the sky, got %v", rs.HitType(1))
			}
		})
	}
}

func TestRayStream_Lifecycle(t *testing.T) {
	tr := streamTracer(t)
	for _, kind := range []StreamKind{StreamScalar, StreamPacket} {
		t.Run(kind.String(), func(t *testing.T) {
			rs := NewRayStream(tr, kind, 0)

			// Tracing nothing is allowed
			rs.TraceOcclusion(0)
			if rs.NumPushedRays() != 0 {
				t.Fatalf("Expected an empty stream")
			}

			rs.PushRay(42, core.NewVec3(64, 64, 100), core.NewVec3(0, 0, -1), 10)
			if rs.PointIndex(0) != 42 || rs.Dist(0) != 10 {
				t.Errorf("Inputs not readable before tracing")
			}
			expectNotTraced(t, func() { rs.Occluded(0) })

			rs.TraceOcclusion(0)
			if rs.Occluded(0) || rs.HitType(0) != HitNone || rs.HitDist(0) != 10 {
				t.Errorf("Expected an unobstructed ray, got %v at %f", rs.HitType(0), rs.HitDist(0))
			}

			rs.PushRay(43, core.NewVec3(64, 64, 100), core.NewVec3(0, 0, -1), 200)
			expectNotTraced(t, func() { rs.HitDist(1) })

			rs.Clear()
			if rs.NumPushedRays() != 0 {
				t.Errorf("Expected 0 rays after clear, got %d", rs.NumPushedRays())
			}
			expectNotTraced(t, func() { rs.HitType(0) })

			for i := 0; i < 20; i++ {
				rs.PushRay(i, core.NewVec3(64, 64, 100), core.NewVec3(0, 0, -1), 200)
			}
			rs.TraceOcclusion(0)
			for i := 0; i < 20; i++ {
				if !rs.Occluded(i) || rs.PointIndex(i) != i {
					t.Fatalf("Ray %d after reuse: occluded %v index %d", i, rs.Occluded(i), rs.PointIndex(i))
				}
			}
		})
	}
}

func expectNotTraced(t *testing.T, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotTraced) {
			t.Errorf("Expected ErrNotTraced panic, got %v", r)
		}
	}()
	fn()
}
