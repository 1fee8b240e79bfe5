package texture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrTruncatedWAL is returned when a .wal header or its first mip is cut short
var ErrTruncatedWAL = errors.New("truncated WAL data")

type walHeader struct {
	Name     [32]byte
	Width    uint32
	Height   uint32
	Offsets  [4]uint32
	AnimName [32]byte
	Flags    int32
	Contents int32
	Value    int32
}

// DecodeWAL reads the full-size mip of a paletted .wal texture
func DecodeWAL(data []byte, pal *Palette) (*Texture, error) {
	var h walHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: reading header", ErrTruncatedWAL)
	}
	if h.Width == 0 || h.Height == 0 || h.Width > 4096 || h.Height > 4096 {
		return nil, fmt.Errorf("invalid WAL dimensions: %dx%d", h.Width, h.Height)
	}

	size := int(h.Width) * int(h.Height)
	start := int(h.Offsets[0])
	if start < binary.Size(h) || start+size > len(data) {
		return nil, fmt.Errorf("%w: mip 0 at %d+%d exceeds %d bytes", ErrTruncatedWAL, start, size, len(data))
	}

	indices := append([]byte(nil), data[start:start+size]...)
	return NewPalettedTexture(cString(h.Name[:]), int(h.Width), int(h.Height), indices, pal), nil
}

// EncodeWAL writes a single-mip .wal file, used to produce fixtures
func EncodeWAL(name string, width, height int, indices []byte) []byte {
	h := walHeader{Width: uint32(width), Height: uint32(height)}
	copy(h.Name[:], name)
	h.Offsets[0] = uint32(binary.Size(h))

	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, &h)
	buf.Write(indices)
	return buf.Bytes()
}

func cString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
