package renderer

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"

	"path-tracer/core"
	"path-tracer/math"
)

// Image resolves the accumulator into an 8-bit sRGB frame.
func (s *Session) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, s.Width, s.Height))
	inv := 1 / float32(s.Config.SamplesPerPixel)
	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			c := s.accum[y*s.Width+x].Scale(inv)
			o := img.PixOffset(x, y)
			img.Pix[o] = encodeSRGB(c.R)
			img.Pix[o+1] = encodeSRGB(c.G)
			img.Pix[o+2] = encodeSRGB(c.B)
			img.Pix[o+3] = 255
		}
	}
	return img
}

func encodeSRGB(v float32) uint8 {
	v = math.Saturate(v)
	if v <= 0.0031308 {
		v = v * 12.92
	} else {
		v = 1.055*math.Powf(v, 1/2.4) - 0.055
	}
	return uint8(v*255 + 0.5)
}

// WritePNG encodes the frame atomically: temp file, then rename.
func (s *Session) WritePNG(path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*")
	if err != nil {
		return fmt.Errorf("renderer: %v: %w", err, core.ErrIo)
	}
	if err := png.Encode(tmp, s.Image()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("renderer: %v: %w", err, core.ErrIo)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renderer: %v: %w", err, core.ErrIo)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renderer: %v: %w", err, core.ErrIo)
	}
	return nil
}
