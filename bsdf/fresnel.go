package bsdf

import (
	"path-tracer/core"
	"path-tracer/math"
)

// schlickWeight is (1 - cos)^5.
func schlickWeight(cos float32) float32 {
	m := math.Saturate(1 - cos)
	m2 := m * m
	return m2 * m2 * m
}

// schlickFresnel interpolates from f0 to white at grazing incidence.
func schlickFresnel(f0 core.Color, cos float32) core.Color {
	w := schlickWeight(cos)
	return core.Color{
		R: f0.R + (1-f0.R)*w,
		G: f0.G + (1-f0.G)*w,
		B: f0.B + (1-f0.B)*w,
		A: 1,
	}
}

// fresnelDielectric is the exact unpolarized dielectric reflectance.
// cosI is the incident cosine; eta = etaIncident / etaTransmitted.
// Returns 1 on total internal reflection.
func fresnelDielectric(cosI, eta float32) float32 {
	cosI = math.Clampf(cosI, -1, 1)
	if cosI < 0 {
		cosI = -cosI
	}
	sin2T := eta * eta * (1 - cosI*cosI)
	if sin2T >= 1 {
		return 1
	}
	cosT := math.Sqrtf(1 - sin2T)

	// eta here converts incident to transmitted side; express the
	// parallel/perpendicular terms with the index ratio folded in.
	rParl := (cosI - eta*cosT) / (cosI + eta*cosT)
	rPerp := (eta*cosI - cosT) / (eta*cosI + cosT)
	return 0.5 * (rParl*rParl + rPerp*rPerp)
}
