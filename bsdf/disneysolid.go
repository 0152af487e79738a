package bsdf

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

// Disney solid: diffuse with subsurface approximation, sheen, GGX specular
// with Schlick Fresnel, and a GTR1 clearcoat. Reflection only; the thin
// variant adds transmission.

// lobeProbs are the normalized selection probabilities for the three
// sampled lobes, derived from the material weights.
type lobeProbs struct {
	diffuse   float32
	specular  float32
	clearcoat float32
}

func disneyLobeProbs(s *surface.SurfaceParameters) lobeProbs {
	metallic := s.Scalar(materials.Metallic)
	wDiffuse := (1 - metallic) * (1 + 0.5*s.Scalar(materials.Sheen))
	wSpecular := 1 + metallic*(1-s.Scalar(materials.Roughness))
	wClearcoat := 0.25 * s.Scalar(materials.Clearcoat)

	total := wDiffuse + wSpecular + wClearcoat
	return lobeProbs{
		diffuse:   wDiffuse / total,
		specular:  wSpecular / total,
		clearcoat: wClearcoat / total,
	}
}

// baseColorTint is the hue-preserving normalization of the base color.
func baseColorTint(base core.Color) core.Color {
	lum := base.Luminance()
	if lum <= 0 {
		return core.ColorWhite
	}
	return base.Scale(1 / lum)
}

func specularF0(s *surface.SurfaceParameters) core.Color {
	metallic := s.Scalar(materials.Metallic)
	tint := baseColorTint(s.BaseColor)
	dielectric := core.ColorWhite.MulColor(core.Color{
		R: math.Lerpf(1, tint.R, s.Scalar(materials.SpecularTint)),
		G: math.Lerpf(1, tint.G, s.Scalar(materials.SpecularTint)),
		B: math.Lerpf(1, tint.B, s.Scalar(materials.SpecularTint)),
		A: 1,
	}).Scale(0.08 * s.Scalar(materials.Specular))
	return core.Color{
		R: math.Lerpf(dielectric.R, s.BaseColor.R, metallic),
		G: math.Lerpf(dielectric.G, s.BaseColor.G, metallic),
		B: math.Lerpf(dielectric.B, s.BaseColor.B, metallic),
		A: 1,
	}
}

// disneyDiffuse evaluates the retro-reflective diffuse term with the
// flatness-driven subsurface approximation, sheen included.
func disneyDiffuse(s *surface.SurfaceParameters, wo, wi, h math.Vec3) core.Color {
	roughness := s.Scalar(materials.Roughness)
	hDotL := math.Absf(h.Dot(wi))
	fl := schlickWeight(math.Absf(wi.Z))
	fv := schlickWeight(math.Absf(wo.Z))

	fd90 := 0.5 + 2*roughness*hDotL*hDotL
	fd := math.Lerpf(1, fd90, fl) * math.Lerpf(1, fd90, fv)

	// Hanrahan-Krueger inspired subsurface lobe, blended by flatness.
	fss90 := roughness * hDotL * hDotL
	fss := math.Lerpf(1, fss90, fl) * math.Lerpf(1, fss90, fv)
	denom := math.Absf(wi.Z) + math.Absf(wo.Z)
	ss := float32(0)
	if denom > cosEpsilon {
		ss = 1.25 * (fss*(1/denom-0.5) + 0.5)
	}

	weight := math.Lerpf(fd, ss, s.Scalar(materials.Flatness))
	metallic := s.Scalar(materials.Metallic)
	diffuse := s.BaseColor.Scale(weight / math.Pi * (1 - metallic))

	sheen := s.Scalar(materials.Sheen)
	if sheen > 0 {
		tint := baseColorTint(s.BaseColor)
		sheenTint := s.Scalar(materials.SheenTint)
		sheenColor := core.Color{
			R: math.Lerpf(1, tint.R, sheenTint),
			G: math.Lerpf(1, tint.G, sheenTint),
			B: math.Lerpf(1, tint.B, sheenTint),
			A: 1,
		}.Scale(sheen * schlickWeight(hDotL) * (1 - metallic))
		diffuse = diffuse.Add(sheenColor)
	}
	return diffuse
}

func clearcoatAlpha(s *surface.SurfaceParameters) float32 {
	return math.Lerpf(0.1, 0.001, s.Scalar(materials.ClearcoatGloss))
}

// evaluateDisneySolid sums every lobe and returns the selection-weighted
// pdf.
func evaluateDisneySolid(s *surface.SurfaceParameters, wo, wi math.Vec3) (core.Color, float32) {
	if !sameHemisphere(wo, wi) || wo.Z <= 0 {
		return core.ColorBlack, 0
	}
	h := wo.Add(wi).Normalize()
	probs := disneyLobeProbs(s)

	f := disneyDiffuse(s, wo, wi, h)

	alpha := ggxAlpha(s.Scalar(materials.Roughness))
	fresnel := schlickFresnel(specularF0(s), math.Absf(h.Dot(wi)))
	specScale := ggxD(h, alpha) * ggxG2(wo, wi, alpha) / (4 * math.Absf(wo.Z) * math.Absf(wi.Z))
	f = f.Add(fresnel.Scale(specScale))

	cc := s.Scalar(materials.Clearcoat)
	if cc > 0 {
		ccAlpha := clearcoatAlpha(s)
		fCC := 0.04 + (1-0.04)*schlickWeight(math.Absf(h.Dot(wi)))
		ccScale := 0.25 * cc * gtr1D(h, ccAlpha) * ggxG2(wo, wi, 0.25) * fCC /
			(4 * math.Absf(wo.Z) * math.Absf(wi.Z))
		f = f.Add(core.NewColor(ccScale, ccScale, ccScale))
	}

	pdf := probs.diffuse*math.Absf(wi.Z)/math.Pi +
		probs.specular*ggxHalfPdf(wo, h, alpha)
	if probs.clearcoat > 0 {
		pdf += probs.clearcoat * gtr1HalfPdf(wo, h, clearcoatAlpha(s))
	}
	return f, pdf
}

func sampleDisneySolid(s *surface.SurfaceParameters, wo math.Vec3, smp *sampling.Session) Sample {
	if wo.Z <= 0 {
		return Sample{}
	}
	probs := disneyLobeProbs(s)
	pick := smp.Next1D()
	u1, u2 := smp.Next2D()

	var wi math.Vec3
	flags := LobeDiffuse
	switch {
	case pick < probs.diffuse:
		wi = cosineSampleHemisphere(u1, u2)
	case pick < probs.diffuse+probs.specular:
		h := sampleGGXHalf(ggxAlpha(s.Scalar(materials.Roughness)), u1, u2)
		wi = math.Reflect(wo, h)
		flags = LobeSpecular
	default:
		h := sampleGTR1Half(clearcoatAlpha(s), u1, u2)
		wi = math.Reflect(wo, h)
		flags = LobeSpecular
	}
	if wi.Z <= cosEpsilon {
		return Sample{}
	}

	f, pdf := evaluateDisneySolid(s, wo, wi)
	if pdf <= 0 {
		return Sample{}
	}
	return Sample{Wi: wi, Reflectance: f, Pdf: pdf, Flags: flags, Valid: true}
}
