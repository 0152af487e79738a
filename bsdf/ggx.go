package bsdf

import (
	"path-tracer/math"
)

// Isotropic GGX (Trowbridge-Reitz) microfacet terms plus the GTR1
// distribution used by the clearcoat lobe. Directions are shading-frame.

// ggxAlpha remaps perceptual roughness to the distribution width.
func ggxAlpha(roughness float32) float32 {
	a := roughness * roughness
	return math.Maxf(a, 1e-4)
}

// ggxD is the GGX normal distribution.
func ggxD(h math.Vec3, alpha float32) float32 {
	cos2 := h.Z * h.Z
	a2 := alpha * alpha
	d := cos2*(a2-1) + 1
	return a2 / (math.Pi * d * d)
}

// ggxLambda is Smith's shadowing auxiliary.
func ggxLambda(w math.Vec3, alpha float32) float32 {
	cos2 := w.Z * w.Z
	if cos2 >= 1 {
		return 0
	}
	tan2 := (1 - cos2) / cos2
	return 0.5 * (-1 + math.Sqrtf(1+alpha*alpha*tan2))
}

// ggxG2 is the height-correlated Smith masking-shadowing term.
func ggxG2(wo, wi math.Vec3, alpha float32) float32 {
	return 1 / (1 + ggxLambda(wo, alpha) + ggxLambda(wi, alpha))
}

// ggxG1 is the one-direction masking term.
func ggxG1(w math.Vec3, alpha float32) float32 {
	return 1 / (1 + ggxLambda(w, alpha))
}

// sampleGGXHalf draws a half-vector from D(h) |cos h|.
func sampleGGXHalf(alpha, u1, u2 float32) math.Vec3 {
	phi := 2 * math.Pi * u1
	cos2 := (1 - u2) / (1 + (alpha*alpha-1)*u2)
	cosT := math.Sqrtf(cos2)
	sinT := math.Sqrtf(math.Maxf(0, 1-cos2))
	return math.SphericalDirection(sinT, cosT, phi)
}

// ggxHalfPdf converts the half-vector density to the reflected solid-angle
// pdf: D(h) cos(h) / (4 |wo.h|).
func ggxHalfPdf(wo, h math.Vec3, alpha float32) float32 {
	hDotV := math.Absf(wo.Dot(h))
	if hDotV < cosEpsilon {
		return 0
	}
	return ggxD(h, alpha) * math.Absf(h.Z) / (4 * hDotV)
}

// gtr1D is the clearcoat distribution (Berry).
func gtr1D(h math.Vec3, alpha float32) float32 {
	if alpha >= 1 {
		return 1 / math.Pi
	}
	a2 := alpha * alpha
	cos2 := h.Z * h.Z
	return (a2 - 1) / (math.Pi * math.Logf(a2) * (1 + (a2-1)*cos2))
}

// sampleGTR1Half draws a half-vector from the GTR1 distribution.
func sampleGTR1Half(alpha, u1, u2 float32) math.Vec3 {
	phi := 2 * math.Pi * u1
	a2 := alpha * alpha
	cos2 := (1 - math.Powf(a2, 1-u2)) / (1 - a2)
	cosT := math.Sqrtf(math.Saturate(cos2))
	sinT := math.Sqrtf(math.Saturate(1 - cos2))
	return math.SphericalDirection(sinT, cosT, phi)
}

func gtr1HalfPdf(wo, h math.Vec3, alpha float32) float32 {
	hDotV := math.Absf(wo.Dot(h))
	if hDotV < cosEpsilon {
		return 0
	}
	return gtr1D(h, alpha) * math.Absf(h.Z) / (4 * hDotV)
}
