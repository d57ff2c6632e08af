package graphics

import (
	"image/color"
	"math"
)

// ColorAdjust holds picture controls applied to the palette once at startup.
// A value of 1.0 leaves the corresponding property untouched.
type ColorAdjust struct {
	Brightness float64
	Contrast   float64
	Saturation float64
}

// NeutralAdjust is the identity adjustment
var NeutralAdjust = ColorAdjust{Brightness: 1, Contrast: 1, Saturation: 1}

// IsNeutral reports whether Apply would return the palette unchanged
func (a ColorAdjust) IsNeutral() bool {
	return a == NeutralAdjust
}

// Apply returns p with the adjustment applied to every entry.
// Frames are never touched; the blitter only ever sees the adjusted table.
func (a ColorAdjust) Apply(p Palette) Palette {
	if a.IsNeutral() {
		return p
	}

	var out Palette
	for i, c := range p {
		out[i] = a.adjust(c)
	}
	return out
}

func (a ColorAdjust) adjust(c color.RGBA) color.RGBA {
	r := float64(c.R) / 255 * a.Brightness
	g := float64(c.G) / 255 * a.Brightness
	b := float64(c.B) / 255 * a.Brightness

	r = (r-0.5)*a.Contrast + 0.5
	g = (g-0.5)*a.Contrast + 0.5
	b = (b-0.5)*a.Contrast + 0.5

	if a.Saturation != 1 {
		h, s, l := rgbToHSL(clamp(r, 0, 1), clamp(g, 0, 1), clamp(b, 0, 1))
		s = clamp(s*a.Saturation, 0, 1)
		r, g, b = hslToRGB(h, s, l)
	}

	return color.RGBA{
		R: uint8(math.Round(clamp(r, 0, 1) * 255)),
		G: uint8(math.Round(clamp(g, 0, 1) * 255)),
		B: uint8(math.Round(clamp(b, 0, 1) * 255)),
		A: c.A,
	}
}

// clamp limits a value to a range
func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// rgbToHSL converts RGB to HSL color space
func rgbToHSL(r, g, b float64) (h, s, l float64) {
	hi := math.Max(r, math.Max(g, b))
	lo := math.Min(r, math.Min(g, b))
	l = (hi + lo) / 2

	if hi == lo {
		return 0, 0, l
	}

	d := hi - lo
	if l > 0.5 {
		s = d / (2 - hi - lo)
	} else {
		s = d / (hi + lo)
	}

	switch hi {
	case r:
		h = (g - b) / d
		if g < b {
			h += 6
		}
	case g:
		h = (b-r)/d + 2
	default:
		h = (r-g)/d + 4
	}
	return h / 6, s, l
}

// hslToRGB converts HSL to RGB color space
func hslToRGB(h, s, l float64) (r, g, b float64) {
	if s == 0 {
		return l, l, l
	}

	var q float64
	if l < 0.5 {
		q = l * (1 + s)
	} else {
		q = l + s - l*s
	}
	p := 2*l - q
	return hueToRGB(p, q, h+1.0/3), hueToRGB(p, q, h), hueToRGB(p, q, h-1.0/3)
}

func hueToRGB(p, q, t float64) float64 {
	if t < 0 {
		t++
	}
	if t > 1 {
		t--
	}
	switch {
	case t < 1.0/6:
		return p + (q-p)*6*t
	case t < 1.0/2:
		return q
	case t < 2.0/3:
		return p + (q-p)*(2.0/3-t)*6
	}
	return p
}
