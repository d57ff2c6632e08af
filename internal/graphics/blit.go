package graphics

import (
	"fmt"

	"famiplay/internal/engine"
)

// Blitter converts palette-indexed frames to surface pixels. The palette is
// encoded into the target format once, so a blit is a table lookup per pixel.
type Blitter struct {
	format PixelFormat
	lut    [PaletteSize][4]byte
}

// NewBlitter builds a blitter for palette and format
func NewBlitter(palette Palette, format PixelFormat) (*Blitter, error) {
	b := &Blitter{format: format}
	for i, c := range palette {
		switch format {
		case FormatXRGB8888:
			b.lut[i] = [4]byte{c.B, c.G, c.R, 0xFF}
		case FormatRGBA8888:
			b.lut[i] = [4]byte{c.R, c.G, c.B, 0xFF}
		default:
			return nil, fmt.Errorf("unsupported pixel format: %s", format)
		}
	}
	return b, nil
}

// Format returns the pixel format the blitter writes
func (b *Blitter) Format() PixelFormat {
	return b.format
}

// Blit writes every source pixel as a scale x scale block at the top-left
// corner of dst. dst must be in the blitter's format and large enough.
func (b *Blitter) Blit(src *engine.FrameBuffer, dst Pixels, scale int) error {
	if scale < 1 {
		return fmt.Errorf("invalid scale: %d", scale)
	}
	if dst.Format != b.format {
		return fmt.Errorf("surface format %s does not match blitter format %s", dst.Format, b.format)
	}

	w, h := engine.Width*scale, engine.Height*scale
	if dst.Width < w || dst.Height < h || dst.Pitch < w*4 {
		return fmt.Errorf("surface %dx%d (pitch %d) too small for %dx%d", dst.Width, dst.Height, dst.Pitch, w, h)
	}
	if len(dst.Pix) < (h-1)*dst.Pitch+w*4 {
		return fmt.Errorf("surface buffer too short: %d bytes", len(dst.Pix))
	}

	for y := 0; y < engine.Height; y++ {
		row := dst.Pix[y*scale*dst.Pitch:]
		off := 0
		for x := 0; x < engine.Width; x++ {
			px := b.lut[src[y*engine.Width+x]&(PaletteSize-1)]
			for i := 0; i < scale; i++ {
				copy(row[off:off+4], px[:])
				off += 4
			}
		}
		// Remaining rows of the block repeat the first one.
		for i := 1; i < scale; i++ {
			copy(dst.Pix[(y*scale+i)*dst.Pitch:(y*scale+i)*dst.Pitch+w*4], row[:w*4])
		}
	}
	return nil
}

// Close releases the blitter. It holds no external resources.
func (b *Blitter) Close() error {
	return nil
}
