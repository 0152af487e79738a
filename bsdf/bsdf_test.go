package bsdf

import (
	"testing"

	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

// testSurface builds a canonical +Z shading frame.
func testSurface(shader materials.ShaderTag, view math.Vec3) *surface.SurfaceParameters {
	s := &surface.SurfaceParameters{
		GeometricNormal: math.Vec3{Z: 1},
		ShadingNormal:   math.Vec3{Z: 1},
		Tangent:         math.Vec3{X: 1},
		Bitangent:       math.Vec3{Y: 1},
		View:            view.Normalize(),
		BaseColor:       core.NewColor(1, 1, 1),
		Shader:          shader,
		Entering:        true,
		IorRatio:        1 / 1.5,
		OffsetScale:     1,
	}
	s.Scalars[materials.Roughness] = 0.5
	s.Scalars[materials.Ior] = 1.5
	s.Scalars[materials.Specular] = 0.5
	return s
}

func session(seed uint64) (*sampling.Sampler, sampling.Session) {
	smp := sampling.NewSampler(seed, 0)
	return smp, smp.NewSession(0, 0, 1)
}

// uniform hemisphere direction from two uniforms
func hemiDir(u1, u2 float32) math.Vec3 {
	z := u1
	r := math.Sqrtf(math.Maxf(0, 1-z*z))
	phi := 2 * math.Pi * u2
	return math.Vec3{X: r * math.Cosf(phi), Y: r * math.Sinf(phi), Z: z}
}

// TestEnergyConservation verifies the hemispherical albedo of the Disney
// solid stays at or below one for a spread of roughness/metallic settings.
func TestEnergyConservation(t *testing.T) {
	const n = 40000
	cases := []struct {
		roughness float32
		metallic  float32
	}{
		{1.0, 0.0},
		{0.5, 0.0},
		{0.2, 0.0},
		{0.5, 1.0},
		{0.1, 1.0},
	}
	for _, tc := range cases {
		s := testSurface(materials.ShaderDisneySolid, math.NewVec3(0.3, 0.1, 0.8))
		s.Scalars[materials.Roughness] = tc.roughness
		s.Scalars[materials.Metallic] = tc.metallic

		smp := sampling.NewSampler(7, 1)
		sum := float64(0)
		for i := 0; i < n; i++ {
			u1 := smp.Next1D()
			u2 := smp.Next1D()
			wi := s.ShadingToWorld(hemiDir(u1, u2))
			f, _ := EvaluateShader(s, wi)
			cos := math.Absf(wi.Dot(s.ShadingNormal))
			// uniform hemisphere pdf = 1/2pi
			sum += float64(f.Luminance() * cos * 2 * math.Pi)
		}
		albedo := sum / n
		if albedo > 1.05 {
			t.Errorf("roughness %v metallic %v: hemispherical albedo %v exceeds one",
				tc.roughness, tc.metallic, albedo)
		}
		if albedo <= 0 {
			t.Errorf("roughness %v metallic %v: zero albedo", tc.roughness, tc.metallic)
		}
	}
}

// TestSamplePdfConsistency compares the sampled estimator against a
// uniform-hemisphere reference integral of f*cos.
func TestSamplePdfConsistency(t *testing.T) {
	const n = 200000
	for _, shader := range []materials.ShaderTag{materials.ShaderDisneySolid, materials.ShaderDisneyThin} {
		s := testSurface(shader, math.NewVec3(0.2, -0.3, 0.9))
		s.Scalars[materials.Transmission] = 0.3

		// Reference: uniform directions over both hemispheres.
		ref := float64(0)
		smp := sampling.NewSampler(11, 2)
		for i := 0; i < n; i++ {
			u1 := 1 - 2*smp.Next1D()
			u2 := smp.Next1D()
			d := hemiDir(math.Absf(u1), u2)
			if u1 < 0 {
				d.Z = -d.Z
			}
			wi := s.ShadingToWorld(d)
			f, _ := EvaluateShader(s, wi)
			cos := math.Absf(wi.Dot(s.ShadingNormal))
			ref += float64(f.Luminance() * cos * 4 * math.Pi)
		}
		ref /= n

		// Estimator: importance sample and average f*cos/pdf.
		est := float64(0)
		sampler := sampling.NewSampler(13, 3)
		accepted := 0
		for i := 0; i < n; i++ {
			ss := sampler.NewSession(0, uint32(i), 1)
			out := SampleShader(s, &ss)
			if !out.Valid {
				continue
			}
			accepted++
			cos := math.Absf(out.Wi.Dot(s.ShadingNormal))
			est += float64(out.Reflectance.Luminance() * cos / out.Pdf)
		}
		est /= n

		if accepted == 0 {
			t.Fatalf("shader %d: no valid samples", shader)
		}
		diff := math.Absf(float32(est-ref)) / float32(ref)
		if diff > 0.05 {
			t.Errorf("shader %d: estimator %v vs reference %v (%.1f%% off)",
				shader, est, ref, diff*100)
		}
	}
}

// TestReciprocity checks f(wo, wi) == f(wi, wo) for the non-delta Disney
// solid lobes.
func TestReciprocity(t *testing.T) {
	pairs := [][2]math.Vec3{
		{math.NewVec3(0.3, 0.2, 0.8), math.NewVec3(-0.4, 0.1, 0.7)},
		{math.NewVec3(0.0, 0.0, 1.0), math.NewVec3(0.5, 0.5, 0.5)},
		{math.NewVec3(-0.7, 0.1, 0.4), math.NewVec3(0.1, 0.6, 0.6)},
	}
	for _, pair := range pairs {
		wo := pair[0].Normalize()
		wi := pair[1].Normalize()

		s1 := testSurface(materials.ShaderDisneySolid, wo)
		s1.Scalars[materials.Clearcoat] = 0.5
		s1.Scalars[materials.Sheen] = 0.3
		f1, _ := EvaluateShader(s1, wi)

		s2 := testSurface(materials.ShaderDisneySolid, wi)
		s2.Scalars[materials.Clearcoat] = 0.5
		s2.Scalars[materials.Sheen] = 0.3
		f2, _ := EvaluateShader(s2, wo)

		if math.Absf(f1.Luminance()-f2.Luminance()) > 0.01*math.Maxf(f1.Luminance(), 1e-3) {
			t.Errorf("reciprocity: f(wo,wi)=%v f(wi,wo)=%v", f1.Luminance(), f2.Luminance())
		}
	}
}

// TestDeltaDielectric pins the delta-lobe convention: pdf one, delta flag,
// zero NEE evaluation.
func TestDeltaDielectric(t *testing.T) {
	s := testSurface(materials.ShaderTransparentGGX, math.NewVec3(0.4, 0, 0.9))
	s.Scalars[materials.Roughness] = 0

	sampler, _ := session(3)
	sawReflect, sawRefract := false, false
	for i := 0; i < 64; i++ {
		ss := sampler.NewSession(0, uint32(i), 1)
		out := SampleShader(s, &ss)
		if !out.Valid {
			t.Fatal("delta dielectric produced invalid sample")
		}
		if out.Flags&LobeDelta == 0 {
			t.Fatal("delta lobe not flagged")
		}
		if out.Pdf != 1 {
			t.Fatalf("delta pdf: %v", out.Pdf)
		}
		if out.Flags&LobeTransmission != 0 {
			sawRefract = true
			if out.Wi.Z >= 0 {
				t.Error("refracted direction on the incident side")
			}
		} else {
			sawReflect = true
			if out.Wi.Z <= 0 {
				t.Error("reflected direction below the surface")
			}
		}
	}
	if !sawReflect || !sawRefract {
		t.Error("Fresnel decision never split between reflect and refract")
	}

	if f, pdf := EvaluateShader(s, math.NewVec3(-0.4, 0, 0.9).Normalize()); !f.IsBlack() || pdf != 0 {
		t.Error("delta shader must evaluate to zero for NEE")
	}
}

// TestTransparentGGXRefractionSide checks the rough dielectric produces
// transmission samples below the surface with finite pdf.
func TestTransparentGGXRefractionSide(t *testing.T) {
	s := testSurface(materials.ShaderTransparentGGX, math.NewVec3(0.1, 0.1, 0.99))
	s.Scalars[materials.Roughness] = 0.3

	sampler := sampling.NewSampler(21, 4)
	transmitted := 0
	for i := 0; i < 1000; i++ {
		ss := sampler.NewSession(0, uint32(i), 1)
		out := SampleShader(s, &ss)
		if !out.Valid {
			continue
		}
		if out.Pdf <= 0 {
			t.Fatal("valid sample with non-positive pdf")
		}
		if out.Flags&LobeTransmission != 0 {
			transmitted++
			if out.Wi.Z >= 0 {
				t.Error("transmission sample on the reflection side")
			}
		}
	}
	// ior 1.5 head-on: most energy refracts
	if transmitted < 500 {
		t.Errorf("too few transmission samples: %d/1000", transmitted)
	}
}

func TestMediumDistanceSampling(t *testing.T) {
	m := materials.MediumParameters{
		SigmaA: core.NewColor(0.5, 0.5, 0.5),
		SigmaS: core.NewColor(1.5, 1.5, 1.5),
	}
	// sigma_t = 2; mean free path 0.5
	smp := sampling.NewSampler(31, 0)
	const n = 200000
	sum := 0.0
	for i := 0; i < n; i++ {
		d, pdf, ok := SampleDistance(m, smp.Next1D())
		if !ok {
			t.Fatal("non-vacuum medium reported vacuum")
		}
		if pdf <= 0 {
			t.Fatal("non-positive distance pdf")
		}
		sum += float64(d)
	}
	mean := sum / n
	if mean < 0.49 || mean > 0.51 {
		t.Errorf("free-flight mean: expected 0.5, got %v", mean)
	}

	tr := Transmission(m, 1)
	want := math.Expf(-2)
	if math.Absf(tr.R-want) > 1e-5 {
		t.Errorf("transmission: expected %v, got %v", want, tr.R)
	}

	if _, _, ok := SampleDistance(materials.MediumParameters{}, 0.5); ok {
		t.Error("vacuum medium sampled a distance")
	}
}

func TestScatterDirectionUniform(t *testing.T) {
	smp := sampling.NewSampler(41, 0)
	var mean math.Vec3
	const n = 100000
	for i := 0; i < n; i++ {
		u1 := smp.Next1D()
		u2 := smp.Next1D()
		d, pdf := SampleScatterDirection(u1, u2)
		if math.Absf(d.Length()-1) > 1e-4 {
			t.Fatal("scatter direction not unit")
		}
		if math.Absf(pdf-uniformSpherePdf) > 1e-9 {
			t.Fatal("scatter pdf wrong")
		}
		mean = mean.Add(d)
	}
	mean = mean.Div(n)
	if mean.Length() > 0.02 {
		t.Errorf("scatter directions biased: mean %v", mean)
	}
}

// TestGrazingView pins the wo.n == 0 guard.
func TestGrazingView(t *testing.T) {
	s := testSurface(materials.ShaderDisneySolid, math.NewVec3(1, 0, 0))
	_, ss := session(5)
	if out := SampleShader(s, &ss); out.Valid {
		t.Error("grazing view direction produced a valid sample")
	}
	if f, pdf := EvaluateShader(s, math.NewVec3(0, 0, 1)); !f.IsBlack() || pdf != 0 {
		t.Error("grazing view direction evaluated non-zero")
	}
}
