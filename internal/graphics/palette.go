package graphics

import (
	"fmt"
	"image/color"
	"os"
)

// PaletteSize is the number of colors the picture unit can select
const PaletteSize = 64

// Palette maps a palette index to its display color
type Palette [PaletteSize]color.RGBA

var defaultColors = [PaletteSize]uint32{
	0x747474, 0x24188C, 0x0000A8, 0x44009C, 0x8C0074, 0xA80010, 0xA40000, 0x7C0800,
	0x402C00, 0x004400, 0x005000, 0x003C14, 0x183C5C, 0x000000, 0x000000, 0x000000,
	0xBCBCBC, 0x0070EC, 0x2038EC, 0x8000F0, 0xBC00BC, 0xE40058, 0xD82800, 0xC84C0C,
	0x887000, 0x009400, 0x00A800, 0x009038, 0x008088, 0x000000, 0x000000, 0x000000,
	0xFCFCFC, 0x3CBCFC, 0x5C94FC, 0xCC88FC, 0xF478FC, 0xFC74B4, 0xFC7460, 0xFC9838,
	0xF0BC3C, 0x80D010, 0x4CDC48, 0x58F898, 0x00E8D8, 0x787878, 0x000000, 0x000000,
	0xFCFCFC, 0xA8E4FC, 0xC4D4FC, 0xD4C8FC, 0xFCC4FC, 0xFCC4D8, 0xFCBCB0, 0xFCD8A8,
	0xFCE4A0, 0xE0FCA0, 0xA8F0BC, 0xB0FCCC, 0x9CFCF0, 0xC4C4C4, 0x000000, 0x000000,
}

// DefaultPalette returns the built-in 2C02 color table
func DefaultPalette() Palette {
	var p Palette
	for i, c := range defaultColors {
		p[i] = color.RGBA{R: uint8(c >> 16), G: uint8(c >> 8), B: uint8(c), A: 0xFF}
	}
	return p
}

// LoadPalette reads a .pal file of RGB triples. Files carrying the eight
// emphasis variants (1536 bytes) contribute their first 64 colors.
func LoadPalette(path string) (Palette, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Palette{}, fmt.Errorf("failed to read palette: %w", err)
	}
	return ParsePalette(data)
}

// ParsePalette decodes raw RGB triples.
func ParsePalette(data []byte) (Palette, error) {
	if len(data) != PaletteSize*3 && len(data) != PaletteSize*3*8 {
		return Palette{}, fmt.Errorf("invalid palette size: %d bytes", len(data))
	}

	var p Palette
	for i := range p {
		p[i] = color.RGBA{R: data[i*3], G: data[i*3+1], B: data[i*3+2], A: 0xFF}
	}
	return p, nil
}
