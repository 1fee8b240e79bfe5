package trace

import (
	"fmt"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// PacketSize is the number of rays traced together by the packet stream
const PacketSize = 8

type packet struct {
	count   int
	start   [PacketSize]core.Vec3
	dir     [PacketSize]core.Vec3
	maxDist [PacketSize]float64
}

func (p *packet) all() uint8 {
	return uint8((1 << uint(p.count)) - 1)
}

// packetFrame is a subtree still to visit with the interval each active ray
// spends inside it
type packetFrame struct {
	node  int
	mask  uint8
	tmin  [PacketSize]float64
	tmax  [PacketSize]float64
	enter [PacketSize]int
}

// traceModelPacket walks model once for all rays in mask. Each ray keeps
// the blocking leaf with the smallest entry distance, so the result does
// not depend on the order children are visited in.
func (tn *TNodes) traceModelPacket(model int, p *packet, mask uint8, limit *[PacketSize]float64, hits *[PacketSize]modelHit, stack *[]packetFrame) {
	s := (*stack)[:0]
	defer func() { *stack = s[:0] }()

	root := packetFrame{node: tn.heads[model], mask: mask}
	for i := 0; i < p.count; i++ {
		root.tmax[i] = limit[i]
		root.enter[i] = -1
	}
	s = append(s, root)
	steps := len(tn.nodes) + len(tn.leafContents) + 1

	for len(s) > 0 {
		f := s[len(s)-1]
		s = s[:len(s)-1]

		// Drop rays that already hit something no further than this subtree
		for i := 0; i < p.count; i++ {
			if f.mask&(1<<uint(i)) != 0 && hits[i].hit && hits[i].dist <= f.tmin[i] {
				f.mask &^= 1 << uint(i)
			}
		}
		if f.mask == 0 {
			continue
		}

		if f.node < 0 {
			leaf := -(f.node + 1)
			if !tn.leafContents[leaf].Blocks() {
				continue
			}
			for i := 0; i < p.count; i++ {
				if f.mask&(1<<uint(i)) == 0 {
					continue
				}
				if !hits[i].hit || f.tmin[i] < hits[i].dist {
					hits[i] = modelHit{hit: true, dist: f.tmin[i], node: f.enter[i], leaf: leaf}
				}
			}
			continue
		}

		if steps--; steps < 0 {
			panic(fmt.Errorf("%w: packet trace visited more nodes than exist", bsp.ErrMalformedTree))
		}

		n := &tn.nodes[f.node]
		front := packetFrame{node: n.children[0]}
		back := packetFrame{node: n.children[1]}

		for i := 0; i < p.count; i++ {
			bit := uint8(1 << uint(i))
			if f.mask&bit == 0 {
				continue
			}
			inFront, inBack, t := n.split(p.start[i], p.dir[i], f.tmin[i], f.tmax[i])
			switch {
			case inFront && !inBack:
				front.add(bit, i, f.tmin[i], f.tmax[i], f.enter[i])
			case inBack && !inFront:
				back.add(bit, i, f.tmin[i], f.tmax[i], f.enter[i])
			default:
				if n.distance(p.start[i])+f.tmin[i]*n.slope(p.dir[i]) < 0 {
					back.add(bit, i, f.tmin[i], t, f.enter[i])
					front.add(bit, i, t, f.tmax[i], f.node)
				} else {
					front.add(bit, i, f.tmin[i], t, f.enter[i])
					back.add(bit, i, t, f.tmax[i], f.node)
				}
			}
		}

		if back.mask != 0 {
			s = append(s, back)
		}
		if front.mask != 0 {
			s = append(s, front)
		}
	}
}

func (f *packetFrame) add(bit uint8, i int, tmin, tmax float64, enter int) {
	f.mask |= bit
	f.tmin[i] = tmin
	f.tmax[i] = tmax
	f.enter[i] = enter
}

// tracePacket traces every ray of p with the same model rules as TraceRay
func (t *Tracer) tracePacket(p *packet, self int, mode Mode, out []Result, stack *[]packetFrame) {
	var best [PacketSize]modelHit
	all := p.all()

	for _, m := range t.occluders {
		if m == self && m != 0 {
			continue
		}
		mask := all
		if mode == ModeOcclusion {
			for i := 0; i < p.count; i++ {
				if best[i].hit {
					mask &^= 1 << uint(i)
				}
			}
		}
		if mask == 0 {
			break
		}

		var hits [PacketSize]modelHit
		t.nodes.traceModelPacket(m, p, mask, &p.maxDist, &hits, stack)
		for i := 0; i < p.count; i++ {
			if hits[i].hit && (!best[i].hit || hits[i].dist < best[i].dist) {
				best[i] = hits[i]
			}
		}
	}

	var style [PacketSize]int
	var limit [PacketSize]float64
	var pending uint8
	for i := 0; i < p.count; i++ {
		if best[i].hit && mode == ModeOcclusion {
			continue
		}
		pending |= 1 << uint(i)
		limit[i] = p.maxDist[i]
		if best[i].hit {
			limit[i] = best[i].dist
		}
	}
	for _, s := range t.switchable {
		if pending == 0 {
			break
		}
		if s.Model == self {
			continue
		}
		var hits [PacketSize]modelHit
		t.nodes.traceModelPacket(s.Model, p, pending, &limit, &hits, stack)
		for i := 0; i < p.count; i++ {
			if pending&(1<<uint(i)) != 0 && hits[i].hit {
				style[i] = s.SwitchableShadowStyle
				pending &^= 1 << uint(i)
			}
		}
	}

	for i := 0; i < p.count; i++ {
		out[i] = t.finish(p.start[i], p.dir[i], p.maxDist[i], best[i], mode, style[i])
	}
}
