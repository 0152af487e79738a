package bsdf

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
)

// Isotropic participating medium: exponential free-flight sampling against
// the extinction coefficient, uniform-sphere scattering, Beer-Lambert
// transmission.

// uniformSpherePdf is the phase function value and pdf of isotropic
// scattering.
const uniformSpherePdf = 1 / (4 * math.Pi)

// SampleDistance draws a free-flight distance from the exponential
// distribution of the mean extinction. Returns the distance and the pdf
// density at that distance; ok is false for vacuum.
func SampleDistance(m materials.MediumParameters, u float32) (dist, pdf float32, ok bool) {
	sigma := m.SigmaT().Luminance()
	if sigma <= 0 {
		return 0, 0, false
	}
	// u in [0,1): 1-u avoids log(0)
	dist = -math.Logf(1-u) / sigma
	pdf = sigma * math.Expf(-sigma*dist)
	return dist, pdf, true
}

// DistancePdf is the density of sampling exactly dist, and SurvivalPdf the
// probability of sampling past it (used when the surface is reached first).
func DistancePdf(m materials.MediumParameters, dist float32) float32 {
	sigma := m.SigmaT().Luminance()
	return sigma * math.Expf(-sigma*dist)
}

func SurvivalPdf(m materials.MediumParameters, dist float32) float32 {
	sigma := m.SigmaT().Luminance()
	return math.Expf(-sigma * dist)
}

// SampleScatterDirection draws a uniform direction on the sphere.
func SampleScatterDirection(u1, u2 float32) (math.Vec3, float32) {
	z := 1 - 2*u1
	r := math.Sqrtf(math.Maxf(0, 1-z*z))
	phi := 2 * math.Pi * u2
	return math.Vec3{X: r * math.Cosf(phi), Y: r * math.Sinf(phi), Z: z}, uniformSpherePdf
}

// Transmission is exp(-sigma_t * d) per channel.
func Transmission(m materials.MediumParameters, dist float32) core.Color {
	st := m.SigmaT()
	return core.Color{
		R: math.Expf(-st.R * dist),
		G: math.Expf(-st.G * dist),
		B: math.Expf(-st.B * dist),
		A: 1,
	}
}

// ScatterAlbedo is sigma_s / sigma_t per channel, the energy fraction that
// scatters rather than absorbs at a collision.
func ScatterAlbedo(m materials.MediumParameters) core.Color {
	st := m.SigmaT()
	safe := func(s, t float32) float32 {
		if t <= 0 {
			return 0
		}
		return s / t
	}
	return core.Color{
		R: safe(m.SigmaS.R, st.R),
		G: safe(m.SigmaS.G, st.G),
		B: safe(m.SigmaS.B, st.B),
		A: 1,
	}
}
