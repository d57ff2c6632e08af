package graphics

import (
	"image/color"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultPalette(t *testing.T) {
	p := DefaultPalette()

	tests := []struct {
		index int
		want  color.RGBA
	}{
		{0x00, color.RGBA{0x74, 0x74, 0x74, 0xFF}},
		{0x0D, color.RGBA{0x00, 0x00, 0x00, 0xFF}},
		{0x16, color.RGBA{0xD8, 0x28, 0x00, 0xFF}},
		{0x30, color.RGBA{0xFC, 0xFC, 0xFC, 0xFF}},
		{0x3D, color.RGBA{0xC4, 0xC4, 0xC4, 0xFF}},
	}
	for _, tt := range tests {
		if p[tt.index] != tt.want {
			t.Errorf("Entry 0x%02X: expected %v, got %v", tt.index, tt.want, p[tt.index])
		}
	}
}

func TestLoadPalette(t *testing.T) {
	data := make([]byte, PaletteSize*3)
	for i := range data {
		data[i] = byte(i)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "test.pal")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("Failed to write palette: %v", err)
	}

	p, err := LoadPalette(path)
	if err != nil {
		t.Fatalf("LoadPalette failed: %v", err)
	}
	if want := (color.RGBA{R: 30, G: 31, B: 32, A: 0xFF}); p[10] != want {
		t.Errorf("Expected %v, got %v", want, p[10])
	}

	// Emphasis palettes keep the first table
	long := append(append([]byte{}, data...), make([]byte, PaletteSize*3*7)...)
	p2, err := ParsePalette(long)
	if err != nil {
		t.Fatalf("ParsePalette failed on 1536 bytes: %v", err)
	}
	if p2 != p {
		t.Error("Expected emphasis palette to match its first 64 colors")
	}

	if _, err := ParsePalette(data[:100]); err == nil {
		t.Error("Expected short palette to fail")
	}
	if _, err := LoadPalette(filepath.Join(dir, "missing.pal")); err == nil {
		t.Error("Expected missing file to fail")
	}
}

func TestColorAdjust(t *testing.T) {
	p := DefaultPalette()

	if got := NeutralAdjust.Apply(p); got != p {
		t.Error("Expected neutral adjustment to leave the palette unchanged")
	}

	dark := ColorAdjust{Brightness: 0.5, Contrast: 1, Saturation: 1}.Apply(p)
	if dark[0x30] != (color.RGBA{R: 126, G: 126, B: 126, A: 0xFF}) {
		t.Errorf("Expected half brightness white, got %v", dark[0x30])
	}

	grey := ColorAdjust{Brightness: 1, Contrast: 1, Saturation: 0}.Apply(p)
	for i, c := range grey {
		if c.R != c.G || c.G != c.B {
			t.Fatalf("Entry %d not grey after desaturation: %v", i, c)
		}
	}

	bright := ColorAdjust{Brightness: 4, Contrast: 1, Saturation: 1}.Apply(p)
	if bright[0x00] != (color.RGBA{R: 0xFF, G: 0xFF, B: 0xFF, A: 0xFF}) {
		t.Errorf("Expected clamped white, got %v", bright[0x00])
	}
}
