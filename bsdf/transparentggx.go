package bsdf

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

// Transparent GGX: refractive microfacet with an exact Fresnel decision
// between the reflected and transmitted half-vector sample. Below
// deltaRoughness the lobe collapses to a perfect mirror/refraction pair.

const deltaRoughness = 0.015

// shadingEta returns (etaI, etaO) with the incident index normalized to 1.
func shadingEta(s *surface.SurfaceParameters) (float32, float32) {
	// s.IorRatio is etaIncident / etaTransmitted for the hit side.
	return 1, 1 / s.IorRatio
}

func sampleTransparentGGX(s *surface.SurfaceParameters, wo math.Vec3, smp *sampling.Session) Sample {
	// Work in the upper hemisphere; flip back on exit.
	flip := wo.Z < 0
	if flip {
		wo.Z = -wo.Z
	}
	eta := s.IorRatio
	roughness := s.Scalar(materials.Roughness)

	if roughness < deltaRoughness {
		out := sampleDeltaDielectric(s, wo, eta, smp)
		if flip && out.Valid {
			out.Wi.Z = -out.Wi.Z
		}
		return out
	}

	alpha := ggxAlpha(roughness)
	u1, u2 := smp.Next2D()
	h := sampleGGXHalf(alpha, u1, u2)
	cosOH := wo.Dot(h)
	if cosOH <= cosEpsilon {
		return Sample{}
	}

	f := fresnelDielectric(cosOH, eta)
	var out Sample
	if smp.Next1D() < f {
		wi := math.Reflect(wo, h)
		if wi.Z <= cosEpsilon {
			return Sample{}
		}
		refl, pdf := evaluateRoughDielectric(s, wo, wi)
		if pdf <= 0 {
			return Sample{}
		}
		out = Sample{Wi: wi, Reflectance: refl, Pdf: pdf, Flags: LobeSpecular, Valid: true}
	} else {
		wi, ok := math.Refract(wo, h, eta)
		if !ok || wi.Z >= -cosEpsilon {
			return Sample{}
		}
		refl, pdf := evaluateRoughDielectric(s, wo, wi)
		if pdf <= 0 {
			return Sample{}
		}
		out = Sample{Wi: wi, Reflectance: refl, Pdf: pdf, Flags: LobeSpecular | LobeTransmission, Valid: true}
	}
	if flip {
		out.Wi.Z = -out.Wi.Z
	}
	return out
}

func sampleDeltaDielectric(s *surface.SurfaceParameters, wo math.Vec3, eta float32, smp *sampling.Session) Sample {
	f := fresnelDielectric(wo.Z, eta)
	if smp.Next1D() < f {
		// Perfect mirror. Selection probability cancels the Fresnel term.
		return Sample{
			Wi:          math.Vec3{X: -wo.X, Y: -wo.Y, Z: wo.Z},
			Reflectance: core.ColorWhite,
			Pdf:         1,
			Flags:       LobeSpecular | LobeDelta,
			Valid:       true,
		}
	}
	wi, ok := math.Refract(wo, math.Vec3{Z: 1}, eta)
	if !ok {
		// Fresnel said refract but the direction is beyond critical angle;
		// numerically grazing, treat as mirror.
		return Sample{
			Wi:          math.Vec3{X: -wo.X, Y: -wo.Y, Z: wo.Z},
			Reflectance: core.ColorWhite,
			Pdf:         1,
			Flags:       LobeSpecular | LobeDelta,
			Valid:       true,
		}
	}
	return Sample{
		Wi:          wi,
		Reflectance: s.BaseColor,
		Pdf:         1,
		Flags:       LobeSpecular | LobeTransmission | LobeDelta,
		Valid:       true,
	}
}

// evaluateRoughDielectric handles both the reflected and transmitted sides
// with Walter's microfacet refraction model. Directions are upper-oriented:
// wo.Z > 0, reflection wi.Z > 0, transmission wi.Z < 0.
func evaluateRoughDielectric(s *surface.SurfaceParameters, wo, wi math.Vec3) (core.Color, float32) {
	eta := s.IorRatio
	etaI, etaO := shadingEta(s)
	alpha := ggxAlpha(s.Scalar(materials.Roughness))

	if sameHemisphere(wo, wi) {
		h := wo.Add(wi).Normalize()
		if h.Z < 0 {
			h = h.Negate()
		}
		cosOH := wo.Dot(h)
		if cosOH <= cosEpsilon {
			return core.ColorBlack, 0
		}
		f := fresnelDielectric(cosOH, eta)
		scale := ggxD(h, alpha) * ggxG2(wo, wi, alpha) * f /
			(4 * math.Absf(wo.Z) * math.Absf(wi.Z))
		pdf := f * ggxHalfPdf(wo, h, alpha)
		return core.NewColor(scale, scale, scale), pdf
	}

	// Transmission half-vector per Walter 2007.
	ht := wo.Mul(etaI).Add(wi.Mul(etaO)).Negate()
	if ht.LengthSqr() < 1e-12 {
		return core.ColorBlack, 0
	}
	ht = ht.Normalize()
	if ht.Z < 0 {
		ht = ht.Negate()
	}
	cosOH := wo.Dot(ht)
	cosIH := wi.Dot(ht)
	if cosOH <= cosEpsilon {
		return core.ColorBlack, 0
	}

	f := fresnelDielectric(cosOH, eta)
	denom := etaI*cosOH + etaO*cosIH
	if math.Absf(denom) < cosEpsilon {
		return core.ColorBlack, 0
	}
	jac := etaO * etaO * math.Absf(cosIH) / (denom * denom)

	scale := math.Absf(cosOH) * jac * (1 - f) *
		ggxD(ht, alpha) * ggxG2(wo, wi, alpha) /
		(math.Absf(wo.Z) * math.Absf(wi.Z))
	pdf := (1 - f) * ggxD(ht, alpha) * math.Absf(ht.Z) * jac

	tint := s.BaseColor
	return tint.Scale(scale), pdf
}

// evaluateTransparentGGX is the NEE-facing evaluation. Delta-roughness
// surfaces evaluate to zero: their lobes never pair with light samples.
func evaluateTransparentGGX(s *surface.SurfaceParameters, wo, wi math.Vec3) (core.Color, float32) {
	if s.Scalar(materials.Roughness) < deltaRoughness {
		return core.ColorBlack, 0
	}
	flip := wo.Z < 0
	if flip {
		wo.Z = -wo.Z
		wi.Z = -wi.Z
	}
	return evaluateRoughDielectric(s, wo, wi)
}
