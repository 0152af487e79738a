package core

import (
	"path-tracer/math"
)

// Color is a linear RGB triple with straight alpha. Radiance and path
// throughput reuse it with A carried along unused.
type Color struct {
	R, G, B, A float32
}

var (
	ColorWhite = Color{1, 1, 1, 1}
	ColorBlack = Color{0, 0, 0, 1}
)

func NewColor(r, g, b float32) Color {
	return Color{R: r, G: g, B: b, A: 1}
}

func (c Color) Add(other Color) Color {
	return Color{R: c.R + other.R, G: c.G + other.G, B: c.B + other.B, A: c.A}
}

func (c Color) Scale(s float32) Color {
	return Color{R: c.R * s, G: c.G * s, B: c.B * s, A: c.A}
}

func (c Color) MulColor(other Color) Color {
	return Color{R: c.R * other.R, G: c.G * other.G, B: c.B * other.B, A: c.A * other.A}
}

// MaxComponent returns the largest of R, G, B.
func (c Color) MaxComponent() float32 {
	m := c.R
	if c.G > m {
		m = c.G
	}
	if c.B > m {
		m = c.B
	}
	return m
}

// Luminance is the Rec.709 luma of the linear color.
func (c Color) Luminance() float32 {
	return 0.2126*c.R + 0.7152*c.G + 0.0722*c.B
}

func (c Color) IsBlack() bool {
	return c.R == 0 && c.G == 0 && c.B == 0
}

func (c Color) IsFinite() bool {
	return math.IsFinitef(c.R) && math.IsFinitef(c.G) && math.IsFinitef(c.B)
}

func (c Color) ToVec3() math.Vec3 {
	return math.Vec3{X: c.R, Y: c.G, Z: c.B}
}
