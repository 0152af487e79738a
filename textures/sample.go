package textures

import (
	"path-tracer/core"
	"path-tracer/math"
)

// Sample filters the texture at uv with the given screen-space uv
// derivatives. The mip level follows the larger derivative footprint;
// within a level the lookup is bilinear with repeat wrapping.
func (t *TextureResource) Sample(uv math.Vec2, duvdx, duvdy math.Vec2) core.Color {
	if len(t.mips) == 0 {
		return core.ColorBlack
	}

	width := math.Maxf(
		math.Maxf(math.Absf(duvdx.X), math.Absf(duvdx.Y)),
		math.Maxf(math.Absf(duvdy.X), math.Absf(duvdy.Y)),
	)
	level := float32(0)
	if width > 0 {
		// footprint in texels of the base level
		level = 0.5 * math.Logf(width*width*float32(t.Width)*float32(t.Height)) / math.Logf(2)
	}
	level = math.Clampf(level, 0, float32(len(t.mips)-1))

	lo := int(level)
	frac := level - float32(lo)
	c := t.mips[lo].bilinear(uv)
	if frac > 0 && lo+1 < len(t.mips) {
		c2 := t.mips[lo+1].bilinear(uv)
		c = core.Color{
			R: math.Lerpf(c.R, c2.R, frac),
			G: math.Lerpf(c.G, c2.G, frac),
			B: math.Lerpf(c.B, c2.B, frac),
			A: math.Lerpf(c.A, c2.A, frac),
		}
	}
	return c
}

// SamplePoint looks up the base level without filtering. Used by the alpha
// test, where the mask must not bleed across the cutout edge.
func (t *TextureResource) SamplePoint(uv math.Vec2) core.Color {
	if len(t.mips) == 0 {
		return core.ColorBlack
	}
	lv := &t.mips[0]
	x := wrapTexel(int(math.Floorf(uv.X*float32(lv.width))), lv.width)
	y := wrapTexel(int(math.Floorf(uv.Y*float32(lv.height))), lv.height)
	return lv.texels[y*lv.width+x]
}

func (lv *mipLevel) bilinear(uv math.Vec2) core.Color {
	fx := uv.X*float32(lv.width) - 0.5
	fy := uv.Y*float32(lv.height) - 0.5
	x0 := int(math.Floorf(fx))
	y0 := int(math.Floorf(fy))
	tx := fx - float32(x0)
	ty := fy - float32(y0)

	c00 := lv.texel(x0, y0)
	c10 := lv.texel(x0+1, y0)
	c01 := lv.texel(x0, y0+1)
	c11 := lv.texel(x0+1, y0+1)

	top := core.Color{
		R: math.Lerpf(c00.R, c10.R, tx),
		G: math.Lerpf(c00.G, c10.G, tx),
		B: math.Lerpf(c00.B, c10.B, tx),
		A: math.Lerpf(c00.A, c10.A, tx),
	}
	bot := core.Color{
		R: math.Lerpf(c01.R, c11.R, tx),
		G: math.Lerpf(c01.G, c11.G, tx),
		B: math.Lerpf(c01.B, c11.B, tx),
		A: math.Lerpf(c01.A, c11.A, tx),
	}
	return core.Color{
		R: math.Lerpf(top.R, bot.R, ty),
		G: math.Lerpf(top.G, bot.G, ty),
		B: math.Lerpf(top.B, bot.B, ty),
		A: math.Lerpf(top.A, bot.A, ty),
	}
}

func (lv *mipLevel) texel(x, y int) core.Color {
	return lv.texels[wrapTexel(y, lv.height)*lv.width+wrapTexel(x, lv.width)]
}

func wrapTexel(i, n int) int {
	i %= n
	if i < 0 {
		i += n
	}
	return i
}
