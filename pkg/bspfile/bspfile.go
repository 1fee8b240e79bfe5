// Package bspfile reads and writes Quake 2 IBSP version 38 files.
package bspfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os"

	"go.uber.org/multierr"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// BSP format errors
var (
	ErrInvalidMagic       = errors.New("invalid BSP magic: expected 'IBSP'")
	ErrUnsupportedVersion = errors.New("unsupported BSP version")
	ErrTruncated          = errors.New("truncated BSP data")
	ErrBadIndex           = errors.New("BSP index out of range")
	ErrBadPlane           = errors.New("BSP plane normal is not unit length")
	ErrMalformedTree      = bsp.ErrMalformedTree
)

// Version is the only supported IBSP version
const Version = 38

// Lump indices
const (
	LumpEntities = iota
	LumpPlanes
	LumpVertexes
	LumpVisibility
	LumpNodes
	LumpTexInfo
	LumpFaces
	LumpLighting
	LumpLeafs
	LumpLeafFaces
	LumpLeafBrushes
	LumpEdges
	LumpSurfEdges
	LumpModels
	LumpBrushes
	LumpBrushSides
	LumpPop
	LumpAreas
	LumpAreaPortals
	NumLumps
)

var lumpNames = [NumLumps]string{
	"entities", "planes", "vertexes", "visibility", "nodes", "texinfo",
	"faces", "lighting", "leafs", "leaffaces", "leafbrushes", "edges",
	"surfedges", "models", "brushes", "brushsides", "pop", "areas",
	"areaportals",
}

type lump struct {
	Offset int32
	Length int32
}

type header struct {
	Ident   [4]byte
	Version int32
	Lumps   [NumLumps]lump
}

type dplane struct {
	Normal [3]float32
	Dist   float32
	Type   int32
}

type dnode struct {
	PlaneNum  int32
	Children  [2]int32
	Mins      [3]int16
	Maxs      [3]int16
	FirstFace uint16
	NumFaces  uint16
}

type dtexinfo struct {
	Vecs        [2][4]float32
	Flags       int32
	Value       int32
	Texture     [32]byte
	NextTexInfo int32
}

type dface struct {
	PlaneNum  uint16
	Side      int16
	FirstEdge int32
	NumEdges  int16
	TexInfo   int16
	Styles    [4]byte
	LightOfs  int32
}

type dleaf struct {
	Contents       int32
	Cluster        int16
	Area           int16
	Mins           [3]int16
	Maxs           [3]int16
	FirstLeafFace  uint16
	NumLeafFaces   uint16
	FirstLeafBrush uint16
	NumLeafBrushes uint16
}

type dmodel struct {
	Mins      [3]float32
	Maxs      [3]float32
	Origin    [3]float32
	HeadNode  int32
	FirstFace int32
	NumFaces  int32
}

// Load reads and parses a BSP file from disk
func Load(path string) (*bsp.World, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read BSP file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a BSP file from raw bytes and validates every cross
// reference. All index problems are reported together.
func Parse(data []byte) (*bsp.World, error) {
	var h header
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncated)
	}
	if string(h.Ident[:]) != "IBSP" {
		return nil, ErrInvalidMagic
	}
	if h.Version != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}

	var errs error
	planes := decodeLump[dplane](data, &h, LumpPlanes, &errs)
	vertexes := decodeLump[[3]float32](data, &h, LumpVertexes, &errs)
	nodes := decodeLump[dnode](data, &h, LumpNodes, &errs)
	texinfos := decodeLump[dtexinfo](data, &h, LumpTexInfo, &errs)
	faces := decodeLump[dface](data, &h, LumpFaces, &errs)
	leafs := decodeLump[dleaf](data, &h, LumpLeafs, &errs)
	leafFaces := decodeLump[uint16](data, &h, LumpLeafFaces, &errs)
	leafBrushes := decodeLump[uint16](data, &h, LumpLeafBrushes, &errs)
	edges := decodeLump[[2]uint16](data, &h, LumpEdges, &errs)
	surfEdges := decodeLump[int32](data, &h, LumpSurfEdges, &errs)
	models := decodeLump[dmodel](data, &h, LumpModels, &errs)

	w := &bsp.World{}
	for _, r := range []struct {
		lump int
		dst  *[]byte
	}{
		{LumpVisibility, &w.Visibility},
		{LumpLighting, &w.Lighting},
		{LumpBrushes, &w.Brushes},
		{LumpBrushSides, &w.BrushSides},
		{LumpPop, &w.Pop},
		{LumpAreas, &w.Areas},
		{LumpAreaPortals, &w.AreaPortals},
	} {
		b, err := lumpBytes(data, &h, r.lump)
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		*r.dst = append([]byte(nil), b...)
	}
	entData, err := lumpBytes(data, &h, LumpEntities)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	if errs != nil {
		return nil, errs
	}

	w.EntityData = string(bytes.TrimRight(entData, "\x00"))
	w.Entities, err = ParseEntities(w.EntityData)
	if err != nil {
		return nil, err
	}

	for _, p := range planes {
		normal := vec3f(p.Normal)
		if math.Abs(normal.Length()-1) > 0.01 {
			errs = multierr.Append(errs, fmt.Errorf("%w: %v", ErrBadPlane, normal))
		}
		w.Planes = append(w.Planes, core.NewPlane(normal, float64(p.Dist)))
	}
	for _, v := range vertexes {
		w.Vertexes = append(w.Vertexes, vec3f(v))
	}
	for _, n := range nodes {
		w.Nodes = append(w.Nodes, bsp.Node{
			PlaneNum:  int(n.PlaneNum),
			Children:  [2]int{int(n.Children[0]), int(n.Children[1])},
			Mins:      vec3s(n.Mins),
			Maxs:      vec3s(n.Maxs),
			FirstFace: int(n.FirstFace),
			NumFaces:  int(n.NumFaces),
		})
	}
	for _, t := range texinfos {
		ti := bsp.TexInfo{
			Flags:       t.Flags,
			Value:       t.Value,
			Texture:     cString(t.Texture[:]),
			NextTexInfo: int(t.NextTexInfo),
		}
		for i := range t.Vecs {
			for j := range t.Vecs[i] {
				ti.Vecs[i][j] = float64(t.Vecs[i][j])
			}
		}
		w.TexInfos = append(w.TexInfos, ti)
	}
	for _, f := range faces {
		w.Faces = append(w.Faces, bsp.Face{
			PlaneNum:  int(f.PlaneNum),
			Side:      int(f.Side),
			FirstEdge: int(f.FirstEdge),
			NumEdges:  int(f.NumEdges),
			TexInfo:   int(f.TexInfo),
			Styles:    f.Styles,
			LightOfs:  int(f.LightOfs),
		})
	}
	for _, l := range leafs {
		w.Leafs = append(w.Leafs, bsp.Leaf{
			Contents:       bsp.ContentsFromFlags(l.Contents),
			RawContents:    l.Contents,
			Cluster:        int(l.Cluster),
			Area:           int(l.Area),
			Mins:           vec3s(l.Mins),
			Maxs:           vec3s(l.Maxs),
			FirstLeafFace:  int(l.FirstLeafFace),
			NumLeafFaces:   int(l.NumLeafFaces),
			FirstLeafBrush: int(l.FirstLeafBrush),
			NumLeafBrushes: int(l.NumLeafBrushes),
		})
	}
	for _, lf := range leafFaces {
		w.LeafFaces = append(w.LeafFaces, int(lf))
	}
	for _, lb := range leafBrushes {
		w.LeafBrushes = append(w.LeafBrushes, int(lb))
	}
	for _, e := range edges {
		w.Edges = append(w.Edges, [2]int{int(e[0]), int(e[1])})
	}
	for _, se := range surfEdges {
		w.SurfEdges = append(w.SurfEdges, int(se))
	}
	for _, m := range models {
		w.Models = append(w.Models, bsp.Model{
			Mins:      vec3f(m.Mins),
			Maxs:      vec3f(m.Maxs),
			Origin:    vec3f(m.Origin),
			HeadNode:  int(m.HeadNode),
			FirstFace: int(m.FirstFace),
			NumFaces:  int(m.NumFaces),
		})
	}

	errs = multierr.Append(errs, Validate(w))
	if errs != nil {
		return nil, errs
	}
	return w, nil
}

func lumpBytes(data []byte, h *header, i int) ([]byte, error) {
	l := h.Lumps[i]
	if l.Offset < 0 || l.Length < 0 || int64(l.Offset)+int64(l.Length) > int64(len(data)) {
		return nil, fmt.Errorf("%w: %s lump at %d+%d exceeds %d bytes", ErrTruncated, lumpNames[i], l.Offset, l.Length, len(data))
	}
	return data[l.Offset : l.Offset+l.Length], nil
}

// decodeLump reads lump i as a slice of fixed size records, appending any
// problem to errs
func decodeLump[T any](data []byte, h *header, i int, errs *error) []T {
	b, err := lumpBytes(data, h, i)
	if err != nil {
		*errs = multierr.Append(*errs, err)
		return nil
	}

	var zero T
	size := binary.Size(zero)
	if len(b)%size != 0 {
		*errs = multierr.Append(*errs, fmt.Errorf("%w: %s lump length %d is not a multiple of %d", ErrTruncated, lumpNames[i], len(b), size))
		return nil
	}

	out := make([]T, len(b)/size)
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, out); err != nil {
		*errs = multierr.Append(*errs, fmt.Errorf("%w: %s lump: %v", ErrTruncated, lumpNames[i], err))
		return nil
	}
	return out
}

func vec3f(v [3]float32) core.Vec3 {
	return core.NewVec3(float64(v[0]), float64(v[1]), float64(v[2]))
}

func vec3s(v [3]int16) core.Vec3 {
	return core.NewVec3(float64(v[0]), float64(v[1]), float64(v[2]))
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
