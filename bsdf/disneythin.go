package bsdf

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

// Disney thin: the solid lobes plus a diffuse transmission lobe. A thin
// sheet has no interior, so the transmitted direction is mirrored back
// about the normal instead of refracted, and the transmitted tint is the
// square root of the base color (one sheet crossing instead of two).

func thinTransmissionColor(base core.Color) core.Color {
	return core.Color{
		R: math.Sqrtf(base.R),
		G: math.Sqrtf(base.G),
		B: math.Sqrtf(base.B),
		A: 1,
	}
}

func evaluateDisneyThin(s *surface.SurfaceParameters, wo, wi math.Vec3) (core.Color, float32) {
	trans := math.Saturate(s.Scalar(materials.Transmission))

	if sameHemisphere(wo, wi) {
		f, pdf := evaluateDisneySolid(s, wo, wi)
		return f.Scale(1 - trans), pdf * (1 - trans)
	}

	if trans <= 0 || wo.Z <= 0 {
		return core.ColorBlack, 0
	}
	f := thinTransmissionColor(s.BaseColor).Scale(trans / math.Pi)
	pdf := trans * math.Absf(wi.Z) / math.Pi
	return f, pdf
}

func sampleDisneyThin(s *surface.SurfaceParameters, wo math.Vec3, smp *sampling.Session) Sample {
	if wo.Z <= 0 {
		return Sample{}
	}
	trans := math.Saturate(s.Scalar(materials.Transmission))

	if smp.Next1D() < trans {
		u1, u2 := smp.Next2D()
		wi := cosineSampleHemisphere(u1, u2)
		wi.Z = -wi.Z // bent through the sheet, no refraction
		f, pdf := evaluateDisneyThin(s, wo, wi)
		if pdf <= 0 {
			return Sample{}
		}
		return Sample{Wi: wi, Reflectance: f, Pdf: pdf, Flags: LobeDiffuse | LobeTransmission, Valid: true}
	}

	inner := sampleDisneySolid(s, wo, smp)
	if !inner.Valid {
		return Sample{}
	}
	// Rescale to the thin-shader measure: the reflection side carries the
	// (1 - transmission) factor in both f and pdf.
	inner.Reflectance = inner.Reflectance.Scale(1 - trans)
	inner.Pdf *= (1 - trans)
	if inner.Pdf <= 0 {
		return Sample{}
	}
	return inner
}
