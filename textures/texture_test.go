package textures

import (
	"image"
	"image/color"
	"testing"

	"path-tracer/math"
)

func checkerImage(n int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			c := color.NRGBA{0, 0, 0, 255}
			if (x+y)%2 == 0 {
				c = color.NRGBA{255, 255, 255, 255}
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func TestMipChain(t *testing.T) {
	tex := FromImage("checker", checkerImage(16))
	if tex.Width != 16 || tex.Height != 16 {
		t.Fatalf("base size: %dx%d", tex.Width, tex.Height)
	}
	// 16 -> 8 -> 4 -> 2 -> 1
	if len(tex.mips) != 5 {
		t.Errorf("mip count: expected 5, got %d", len(tex.mips))
	}
	last := tex.mips[len(tex.mips)-1]
	if last.width != 1 || last.height != 1 {
		t.Errorf("last mip: %dx%d", last.width, last.height)
	}
}

func TestSampleMipSelection(t *testing.T) {
	tex := FromImage("checker", checkerImage(64))

	// A footprint spanning the entire texture lands in the coarse tail of
	// the chain, which has averaged the checker toward mid grey.
	wide := tex.Sample(math.NewVec2(0.5, 0.5), math.NewVec2(1, 0), math.NewVec2(0, 1))
	if wide.R < 0.1 || wide.R > 0.9 {
		t.Errorf("wide footprint should average the checker, got %v", wide.R)
	}

	// A sub-texel footprint must resolve an individual white square.
	narrow := tex.Sample(math.NewVec2(0.5/64+0.25, 0.5/64), math.NewVec2(1.0/256, 0), math.NewVec2(0, 1.0/256))
	if narrow.R < 0.9 {
		t.Errorf("narrow footprint should resolve the white texel, got %v", narrow.R)
	}
}

func TestSamplePointAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 255})
	img.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 0})
	tex := FromImage("mask", img)

	if a := tex.SamplePoint(math.NewVec2(0.25, 0.5)).A; a != 1 {
		t.Errorf("opaque texel alpha: %v", a)
	}
	if a := tex.SamplePoint(math.NewVec2(0.75, 0.5)).A; a != 0 {
		t.Errorf("transparent texel alpha: %v", a)
	}
}

func TestWrapRepeat(t *testing.T) {
	tex := FromImage("checker", checkerImage(8))
	a := tex.SamplePoint(math.NewVec2(0.1, 0.1))
	b := tex.SamplePoint(math.NewVec2(1.1, 1.1))
	c := tex.SamplePoint(math.NewVec2(-0.9, -0.9))
	if a != b || a != c {
		t.Errorf("repeat wrap mismatch: %v %v %v", a, b, c)
	}
}
