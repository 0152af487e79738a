// Package bsdf implements the shader family: Disney solid, Disney thin,
// transparent GGX, and the isotropic medium phase functions. Dispatch is a
// closed switch over the material shader tag so call sites inline.
//
// All public entry points take world-space directions; the lobe math runs
// in the shading frame where +Z is the shading normal.
package bsdf

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

// LobeFlags classify a sampled lobe.
type LobeFlags uint32

const (
	LobeDiffuse LobeFlags = 1 << iota
	LobeSpecular
	LobeTransmission
	// LobeDelta marks a measure-zero lobe: pdf is reported as one, the
	// cosine/pdf division is skipped, and the sample never participates in
	// MIS pairing.
	LobeDelta
)

// Sample is the result of drawing a direction from a shader.
type Sample struct {
	Wi          math.Vec3 // world space, unit
	Reflectance core.Color
	Pdf         float32
	Flags       LobeFlags
	Valid       bool
}

// cosEpsilon keeps cosines away from zero before divisions.
const cosEpsilon = 1e-6

// SampleShader draws a continuation direction for the surface's shader.
func SampleShader(s *surface.SurfaceParameters, smp *sampling.Session) Sample {
	wo := s.WorldToShading(s.View)
	if math.Absf(wo.Z) < cosEpsilon {
		return Sample{}
	}

	var out Sample
	switch s.Shader {
	case materials.ShaderDisneySolid:
		out = sampleDisneySolid(s, wo, smp)
	case materials.ShaderDisneyThin:
		out = sampleDisneyThin(s, wo, smp)
	case materials.ShaderTransparentGGX:
		out = sampleTransparentGGX(s, wo, smp)
	}
	if out.Valid {
		out.Wi = s.ShadingToWorld(out.Wi)
	}
	return out
}

// EvaluateShader returns the reflectance and solid-angle pdf of a concrete
// (wo, wi) pairing; wo is the surface's view direction. Delta shaders
// evaluate to zero.
func EvaluateShader(s *surface.SurfaceParameters, wiWorld math.Vec3) (core.Color, float32) {
	wo := s.WorldToShading(s.View)
	wi := s.WorldToShading(wiWorld)
	if math.Absf(wo.Z) < cosEpsilon || math.Absf(wi.Z) < cosEpsilon {
		return core.ColorBlack, 0
	}

	switch s.Shader {
	case materials.ShaderDisneySolid:
		return evaluateDisneySolid(s, wo, wi)
	case materials.ShaderDisneyThin:
		return evaluateDisneyThin(s, wo, wi)
	case materials.ShaderTransparentGGX:
		return evaluateTransparentGGX(s, wo, wi)
	}
	return core.ColorBlack, 0
}

// PdfShader returns only the solid-angle pdf.
func PdfShader(s *surface.SurfaceParameters, wiWorld math.Vec3) float32 {
	_, pdf := EvaluateShader(s, wiWorld)
	return pdf
}

func sameHemisphere(wo, wi math.Vec3) bool {
	return wo.Z*wi.Z > 0
}

// cosineSampleHemisphere draws from the +Z cosine-weighted hemisphere.
func cosineSampleHemisphere(u1, u2 float32) math.Vec3 {
	r := math.Sqrtf(u1)
	phi := 2 * math.Pi * u2
	x := r * math.Cosf(phi)
	y := r * math.Sinf(phi)
	z := math.Sqrtf(math.Maxf(0, 1-u1))
	return math.Vec3{X: x, Y: y, Z: z}
}
