package bspfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// Encode serialises the world into IBSP v38 bytes. Entities are written
// from EntityData when set, otherwise formatted from Entities.
func Encode(w *bsp.World) ([]byte, error) {
	lumps := make([]interface{}, NumLumps)

	entData := w.EntityData
	if entData == "" {
		entData = FormatEntities(w.Entities)
	}
	lumps[LumpEntities] = append([]byte(entData), 0)

	planes := make([]dplane, len(w.Planes))
	for i, p := range w.Planes {
		planes[i] = dplane{Normal: f3(p.Normal), Dist: float32(p.Dist), Type: int32(p.Type)}
	}
	lumps[LumpPlanes] = planes

	vertexes := make([][3]float32, len(w.Vertexes))
	for i, v := range w.Vertexes {
		vertexes[i] = f3(v)
	}
	lumps[LumpVertexes] = vertexes

	nodes := make([]dnode, len(w.Nodes))
	for i, n := range w.Nodes {
		nodes[i] = dnode{
			PlaneNum:  int32(n.PlaneNum),
			Children:  [2]int32{int32(n.Children[0]), int32(n.Children[1])},
			Mins:      s3(n.Mins),
			Maxs:      s3(n.Maxs),
			FirstFace: uint16(n.FirstFace),
			NumFaces:  uint16(n.NumFaces),
		}
	}
	lumps[LumpNodes] = nodes

	texinfos := make([]dtexinfo, len(w.TexInfos))
	for i, ti := range w.TexInfos {
		if len(ti.Texture) >= 32 {
			return nil, fmt.Errorf("texinfo %d: texture name %q too long", i, ti.Texture)
		}
		d := dtexinfo{Flags: ti.Flags, Value: ti.Value, NextTexInfo: int32(ti.NextTexInfo)}
		copy(d.Texture[:], ti.Texture)
		for a := range ti.Vecs {
			for b := range ti.Vecs[a] {
				d.Vecs[a][b] = float32(ti.Vecs[a][b])
			}
		}
		texinfos[i] = d
	}
	lumps[LumpTexInfo] = texinfos

	faces := make([]dface, len(w.Faces))
	for i, f := range w.Faces {
		faces[i] = dface{
			PlaneNum:  uint16(f.PlaneNum),
			Side:      int16(f.Side),
			FirstEdge: int32(f.FirstEdge),
			NumEdges:  int16(f.NumEdges),
			TexInfo:   int16(f.TexInfo),
			Styles:    f.Styles,
			LightOfs:  int32(f.LightOfs),
		}
	}
	lumps[LumpFaces] = faces

	leafs := make([]dleaf, len(w.Leafs))
	for i, l := range w.Leafs {
		raw := l.RawContents
		if raw == 0 {
			raw = bsp.FlagsForContents(l.Contents)
		}
		leafs[i] = dleaf{
			Contents:       raw,
			Cluster:        int16(l.Cluster),
			Area:           int16(l.Area),
			Mins:           s3(l.Mins),
			Maxs:           s3(l.Maxs),
			FirstLeafFace:  uint16(l.FirstLeafFace),
			NumLeafFaces:   uint16(l.NumLeafFaces),
			FirstLeafBrush: uint16(l.FirstLeafBrush),
			NumLeafBrushes: uint16(l.NumLeafBrushes),
		}
	}
	lumps[LumpLeafs] = leafs

	lumps[LumpLeafFaces] = u16s(w.LeafFaces)
	lumps[LumpLeafBrushes] = u16s(w.LeafBrushes)

	edges := make([][2]uint16, len(w.Edges))
	for i, e := range w.Edges {
		edges[i] = [2]uint16{uint16(e[0]), uint16(e[1])}
	}
	lumps[LumpEdges] = edges

	surfEdges := make([]int32, len(w.SurfEdges))
	for i, se := range w.SurfEdges {
		surfEdges[i] = int32(se)
	}
	lumps[LumpSurfEdges] = surfEdges

	models := make([]dmodel, len(w.Models))
	for i, m := range w.Models {
		models[i] = dmodel{
			Mins:      f3(m.Mins),
			Maxs:      f3(m.Maxs),
			Origin:    f3(m.Origin),
			HeadNode:  int32(m.HeadNode),
			FirstFace: int32(m.FirstFace),
			NumFaces:  int32(m.NumFaces),
		}
	}
	lumps[LumpModels] = models

	lumps[LumpVisibility] = w.Visibility
	lumps[LumpLighting] = w.Lighting
	lumps[LumpBrushes] = w.Brushes
	lumps[LumpBrushSides] = w.BrushSides
	lumps[LumpPop] = w.Pop
	lumps[LumpAreas] = w.Areas
	lumps[LumpAreaPortals] = w.AreaPortals

	h := header{Ident: [4]byte{'I', 'B', 'S', 'P'}, Version: Version}
	var body bytes.Buffer
	offset := binary.Size(h)
	for i, l := range lumps {
		var buf bytes.Buffer
		if err := binary.Write(&buf, binary.LittleEndian, l); err != nil {
			return nil, fmt.Errorf("writing %s lump: %w", lumpNames[i], err)
		}
		h.Lumps[i] = lump{Offset: int32(offset + body.Len()), Length: int32(buf.Len())}
		body.Write(buf.Bytes())
		for body.Len()%4 != 0 {
			body.WriteByte(0)
		}
	}

	var out bytes.Buffer
	if err := binary.Write(&out, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("writing header: %w", err)
	}
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Save encodes the world and writes it to path
func Save(w *bsp.World, path string) error {
	data, err := Encode(w)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write BSP file: %w", err)
	}
	return nil
}

func f3(v core.Vec3) [3]float32 {
	return [3]float32{float32(v.X), float32(v.Y), float32(v.Z)}
}

func s3(v core.Vec3) [3]int16 {
	return [3]int16{int16(v.X), int16(v.Y), int16(v.Z)}
}

func u16s(in []int) []uint16 {
	out := make([]uint16, len(in))
	for i, v := range in {
		out[i] = uint16(v)
	}
	return out
}
