package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/df07/go-lightbake/pkg/bsp"
	"github.com/df07/go-lightbake/pkg/core"
)

// Channel selects which image of a texture to sample
type Channel int

const (
	ChannelDiffuse Channel = iota
	ChannelGlow
	numChannels
)

// ErrBadPalette is returned for palette data of the wrong size
var ErrBadPalette = errors.New("palette must hold 256 RGB entries")

// Palette maps 8-bit indices to colours
type Palette [256]color.RGBA

// ParsePalette reads a palette from a raw 768-byte .lmp file or from the
// trailer of a 256-colour PCX file
func ParsePalette(data []byte) (*Palette, error) {
	switch {
	case len(data) == 768:
	case len(data) > 769 && data[len(data)-769] == 0x0C:
		data = data[len(data)-768:]
	default:
		return nil, fmt.Errorf("%w: got %d bytes", ErrBadPalette, len(data))
	}

	var p Palette
	for i := range p {
		p[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 255}
	}
	return &p, nil
}

// Texture holds the images of one named texture. Diffuse data is either
// RGBA or palette indices; glow data is always RGBA and matches the
// diffuse dimensions.
type Texture struct {
	Name    string
	Width   int
	Height  int
	Indices []byte
	Palette *Palette
	RGBA    [numChannels][]byte

	avgOnce sync.Once
	avg     color.RGBA
}

// NewTexture creates a texture from an image for the diffuse channel
func NewTexture(name string, img image.Image) *Texture {
	b := img.Bounds()
	t := &Texture{Name: name, Width: b.Dx(), Height: b.Dy()}
	t.RGBA[ChannelDiffuse] = toRGBA(img)
	return t
}

// NewPalettedTexture creates a texture whose diffuse channel is resolved
// through a palette
func NewPalettedTexture(name string, width, height int, indices []byte, pal *Palette) *Texture {
	return &Texture{Name: name, Width: width, Height: height, Indices: indices, Palette: pal}
}

// SetGlow attaches a glow image, which must match the texture size
func (t *Texture) SetGlow(img image.Image) error {
	b := img.Bounds()
	if b.Dx() != t.Width || b.Dy() != t.Height {
		return fmt.Errorf("glow for %s is %dx%d, texture is %dx%d", t.Name, b.Dx(), b.Dy(), t.Width, t.Height)
	}
	t.RGBA[ChannelGlow] = toRGBA(img)
	return nil
}

// HasChannel reports whether the texture carries data for ch
func (t *Texture) HasChannel(ch Channel) bool {
	if ch < 0 || ch >= numChannels {
		return false
	}
	if t.RGBA[ch] != nil {
		return true
	}
	return ch == ChannelDiffuse && t.Indices != nil && t.Palette != nil
}

// At returns the texel at x, y for ch, or transparent black when the
// channel is missing
func (t *Texture) At(ch Channel, x, y int) color.RGBA {
	if !t.HasChannel(ch) || x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return color.RGBA{}
	}
	i := y*t.Width + x
	if pix := t.RGBA[ch]; pix != nil {
		return color.RGBA{R: pix[i*4], G: pix[i*4+1], B: pix[i*4+2], A: pix[i*4+3]}
	}
	return t.Palette[t.Indices[i]]
}

// AverageColor returns the mean diffuse colour over every texel
func (t *Texture) AverageColor() color.RGBA {
	t.avgOnce.Do(func() {
		n := t.Width * t.Height
		if n == 0 || !t.HasChannel(ChannelDiffuse) {
			return
		}
		var r, g, b, a int
		for y := 0; y < t.Height; y++ {
			for x := 0; x < t.Width; x++ {
				c := t.At(ChannelDiffuse, x, y)
				r += int(c.R)
				g += int(c.G)
				b += int(c.B)
				a += int(c.A)
			}
		}
		t.avg = color.RGBA{R: uint8(r / n), G: uint8(g / n), B: uint8(b / n), A: uint8(a / n)}
	})
	return t.avg
}

// ClampTexcoord wraps a texture coordinate into [0, width). Negative
// coordinates wrap from the far edge.
func ClampTexcoord(in float64, width int) int {
	if width <= 0 {
		return 0
	}
	w := uint32(width)
	if in >= 0 {
		return int(uint32(in) % w)
	}
	mod := uint32(math.Ceil(math.Abs(in))) % w
	return int((w - mod) % w)
}

// SampleColor projects point into the texture space of face and returns
// the texel of ch. Faces without a texture, or textures without the
// channel, sample as transparent black.
func SampleColor(w *bsp.World, store Store, face int, point core.Vec3, ch Channel) color.RGBA {
	ti := w.FaceTexInfo(face)
	if ti == nil {
		return color.RGBA{}
	}
	tex := store.Texture(ti.Texture)
	if tex == nil || !tex.HasChannel(ch) {
		return color.RGBA{}
	}
	s, t := bsp.WorldToTexCoord(point, ti)
	return tex.At(ch, ClampTexcoord(s, tex.Width), ClampTexcoord(t, tex.Height))
}

func toRGBA(img image.Image) []byte {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && rgba.Stride == b.Dx()*4 {
		return append([]byte(nil), rgba.Pix[:b.Dx()*b.Dy()*4]...)
	}
	out := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			out = append(out, c.R, c.G, c.B, c.A)
		}
	}
	return out
}
