package texture

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

// TGA image types handled by DecodeTGA
const (
	TGATypeUncompressed = 2
	TGATypeRLE          = 10
)

// ErrTruncatedTGA is returned when pixel data ends early
var ErrTruncatedTGA = errors.New("TGA data truncated")

// DecodeTGA decodes uncompressed or RLE true-colour TGA images at 24 or 32
// bits per pixel
func DecodeTGA(data []byte) (image.Image, error) {
	if len(data) < 18 {
		return nil, ErrTruncatedTGA
	}

	idLength := int(data[0])
	colorMapType := data[1]
	imageType := data[2]
	width := int(data[12]) | int(data[13])<<8
	height := int(data[14]) | int(data[15])<<8
	bpp := int(data[16])
	topToBottom := data[17]&0x20 != 0

	if colorMapType != 0 {
		return nil, fmt.Errorf("color-mapped TGA not supported")
	}
	if imageType != TGATypeUncompressed && imageType != TGATypeRLE {
		return nil, fmt.Errorf("unsupported TGA type %d", imageType)
	}
	if bpp != 24 && bpp != 32 {
		return nil, fmt.Errorf("unsupported TGA bit depth %d", bpp)
	}
	if 18+idLength > len(data) {
		return nil, ErrTruncatedTGA
	}

	d := &tgaDecoder{
		img:         image.NewRGBA(image.Rect(0, 0, width, height)),
		pix:         data[18+idLength:],
		bytesPP:     bpp / 8,
		width:       width,
		height:      height,
		topToBottom: topToBottom,
	}

	total := width * height
	if imageType == TGATypeUncompressed {
		for d.written < total {
			c, ok := d.readPixel()
			if !ok {
				return nil, ErrTruncatedTGA
			}
			d.put(c)
		}
		return d.img, nil
	}

	for d.written < total && d.pos < len(d.pix) {
		packet := d.pix[d.pos]
		d.pos++
		count := int(packet&0x7F) + 1

		if packet&0x80 != 0 {
			c, ok := d.readPixel()
			if !ok {
				break
			}
			for i := 0; i < count && d.written < total; i++ {
				d.put(c)
			}
			continue
		}
		for i := 0; i < count && d.written < total; i++ {
			c, ok := d.readPixel()
			if !ok {
				break
			}
			d.put(c)
		}
	}
	return d.img, nil
}

type tgaDecoder struct {
	img         *image.RGBA
	pix         []byte
	pos         int
	bytesPP     int
	width       int
	height      int
	topToBottom bool
	written     int
}

// readPixel reads one BGR(A) pixel
func (d *tgaDecoder) readPixel() (color.RGBA, bool) {
	if d.pos+d.bytesPP > len(d.pix) {
		return color.RGBA{}, false
	}
	p := d.pix[d.pos:]
	c := color.RGBA{R: p[2], G: p[1], B: p[0], A: 255}
	if d.bytesPP == 4 {
		c.A = p[3]
	}
	d.pos += d.bytesPP
	return c, true
}

// put stores the next pixel in file order, flipping rows for bottom-up files
func (d *tgaDecoder) put(c color.RGBA) {
	x := d.written % d.width
	y := d.written / d.width
	if !d.topToBottom {
		y = d.height - 1 - y
	}
	d.img.SetRGBA(x, y, c)
	d.written++
}
