package kernel

import (
	"path-tracer/bsdf"
	"path-tracer/core"
	"path-tracer/internal/traversal"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/sampling"
	"path-tracer/surface"
)

const (
	rayFarClip   = float32(1e30)
	shadowBias   = float32(1e-3)
	rouletteQMin = float32(0.05)
)

// TracePixel renders one sample of one pixel: generates the primary ray,
// then drains the bounce stack depth-first.
func (k *KernelContext) TracePixel(x, y int, sampleIndex uint32) {
	pixel := uint32(y*k.Camera.Width + x)
	ss := k.Sampler.NewSession(pixel, sampleIndex, uint32(k.Config.SamplesPerPixel))
	jx, jy := ss.ImageJitter()

	dir, rxDir, ryDir := k.Camera.GenerateRay(x, y, jx, jy)
	k.InsertRay(Ray{
		Origin:           k.Camera.Position,
		Direction:        dir,
		RxDirection:      rxDir,
		RyDirection:      ryDir,
		HasDifferentials: true,
		Throughput:       core.ColorWhite,
		Pixel:            pixel,
		Bounce:           0,
		prevDelta:        true, // primary hits on emitters contribute fully
	})

	for {
		r, ok := k.popRay()
		if !ok {
			return
		}
		k.Stats.RaysTraced++
		// One sampler session per (pixel, bounce) tuple.
		bs := k.Sampler.NewSession(pixel^(r.Bounce*0x9e3779b9), sampleIndex, uint32(k.Config.SamplesPerPixel))
		k.traceRay(&r, &bs)
	}
}

func (k *KernelContext) traceRay(r *Ray, ss *sampling.Session) {
	tRay := traversal.Ray{Origin: r.Origin, Dir: r.Direction, TNear: 0, TFar: rayFarClip}
	var hit traversal.Hit
	found := k.Handle.Traversal.Intersect1(&tRay, &hit)

	// Free-flight sampling inside a participating medium: a scatter event
	// before the surface replaces the ray with a scattered continuation.
	if r.Medium != nil && !r.Medium.IsVacuum() {
		surfaceT := rayFarClip
		if found {
			surfaceT = hit.T
		}
		dist, _, ok := bsdf.SampleDistance(*r.Medium, ss.Next1D())
		if ok && dist < surfaceT {
			k.scatterInMedium(r, dist, ss)
			return
		}
		if found {
			// Reached the surface: attenuate by transmission over the pdf
			// of flying at least that far.
			tr := bsdf.Transmission(*r.Medium, surfaceT)
			surv := bsdf.SurvivalPdf(*r.Medium, surfaceT)
			if surv <= 0 {
				return
			}
			r.Throughput = r.Throughput.MulColor(tr).Scale(1 / surv)
		}
	}

	if !found {
		env := k.Handle.EnvironmentRadiance()
		if !env.IsBlack() {
			k.AccumulateRayEnergy(r, k.environmentWeighted(r, env))
		}
		return
	}

	hp := surface.HitParameters{
		Position:         r.Origin.Add(r.Direction.Mul(hit.T)),
		View:             r.Direction.Negate(),
		Throughput:       r.Throughput,
		Pixel:            r.Pixel,
		Bounce:           r.Bounce,
		GeomID:           hit.GeomID,
		PrimID:           hit.PrimID,
		U:                hit.U,
		V:                hit.V,
		Distance:         hit.T,
		GeometricNormal:  hit.Ng,
		RxDirection:      r.RxDirection,
		RyDirection:      r.RyDirection,
		HasDifferentials: r.HasDifferentials,
	}

	sp, ok := surface.Build(&hp, k.Handle)
	if !ok {
		return
	}

	// Emissive hit: MIS-weighted against the light sampler's pdf for the
	// same triangle, unless the spawning lobe was delta.
	mat := sp.Material
	if mat.IsEmissive() && sp.View.Dot(sp.GeometricNormal) > 0 {
		le := mat.Emission()
		weight := float32(1)
		if !r.prevDelta && r.Bounce > 0 {
			if light := k.Handle.LightForHit(hit.GeomID, hit.PrimID); light != nil && len(k.Handle.Lights) > 0 {
				lightPdf := light.PdfFromDirection(r.Direction, hit.T) / float32(len(k.Handle.Lights))
				weight = balanceHeuristic(r.prevPdf, lightPdf)
			}
		}
		k.AccumulateHitEnergy(&hp, le.Scale(weight))
	}

	k.nextEventEstimate(r, &sp, ss)
	k.continuePath(r, &sp, ss)
}

// environmentWeighted applies the MIS weight for the constant environment
// light, whose NEE partner samples the uniform sphere.
func (k *KernelContext) environmentWeighted(r *Ray, env core.Color) core.Color {
	if r.prevDelta || r.Bounce == 0 {
		return env
	}
	// Environment NEE runs only when the scene has no area lights; with
	// area lights present there is no partner strategy to weight against.
	if len(k.Handle.Lights) > 0 {
		return env
	}
	return env.Scale(balanceHeuristic(r.prevPdf, envNEEPdf))
}

// envNEEPdf is the density the environment NEE draws from (uniform
// sphere).
const envNEEPdf = 1 / (4 * math.Pi)

func (k *KernelContext) scatterInMedium(r *Ray, dist float32, ss *sampling.Session) {
	// Exponential sampling cancels transmission against the distance pdf,
	// leaving the single-scatter albedo.
	albedo := bsdf.ScatterAlbedo(*r.Medium)
	u1, u2 := ss.Next2D()
	dir, _ := bsdf.SampleScatterDirection(u1, u2)

	next := Ray{
		Origin:     r.Origin.Add(r.Direction.Mul(dist)),
		Direction:  dir,
		Throughput: r.Throughput.MulColor(albedo),
		Pixel:      r.Pixel,
		Bounce:     r.Bounce + 1,
		Medium:     r.Medium,
		prevPdf:    uniformSpherePdfValue,
		prevDelta:  false,
	}
	if next.Throughput.IsBlack() {
		return
	}
	k.InsertRay(next)
}

const uniformSpherePdfValue = 1 / (4 * math.Pi)

// nextEventEstimate connects the hit to one sampled light (area lights
// first, constant environment otherwise) with balance-heuristic MIS.
func (k *KernelContext) nextEventEstimate(r *Ray, sp *surface.SurfaceParameters, ss *sampling.Session) {
	if len(k.Handle.Lights) > 0 {
		k.neeAreaLight(r, sp, ss)
		return
	}
	if !k.Handle.EnvironmentRadiance().IsBlack() {
		k.neeEnvironment(r, sp, ss)
	}
}

func (k *KernelContext) neeAreaLight(r *Ray, sp *surface.SurfaceParameters, ss *sampling.Session) {
	lights := k.Handle.Lights
	pick := int(ss.Next1D() * float32(len(lights)))
	if pick >= len(lights) {
		pick = len(lights) - 1
	}
	light := &lights[pick]

	u1, u2 := ss.Next2D()
	ls, ok := light.Sample(sp.Position, u1, u2)
	if !ok || ls.Pdf <= 0 {
		k.Stats.ZeroPdfSkipped++
		return
	}
	lightPdf := ls.Pdf / float32(len(lights))

	f, bsdfPdf := bsdf.EvaluateShader(sp, ls.Direction)
	if f.IsBlack() {
		return
	}

	shadow := traversal.Ray{
		Origin: sp.OffsetRayOrigin(ls.Direction),
		Dir:    ls.Direction,
		TNear:  0,
		TFar:   ls.Distance - shadowBias,
	}
	if k.Handle.Traversal.Occluded1(&shadow) {
		return
	}

	cos := math.Absf(ls.Direction.Dot(sp.ShadingNormal))
	weight := balanceHeuristic(lightPdf, bsdfPdf)
	contrib := f.MulColor(ls.Emission).Scale(cos * weight / lightPdf)
	k.AccumulateRayEnergy(r, contrib)
}

func (k *KernelContext) neeEnvironment(r *Ray, sp *surface.SurfaceParameters, ss *sampling.Session) {
	u1, u2 := ss.Next2D()
	dir, pdf := bsdf.SampleScatterDirection(u1, u2)

	f, bsdfPdf := bsdf.EvaluateShader(sp, dir)
	if f.IsBlack() {
		return
	}
	shadow := traversal.Ray{
		Origin: sp.OffsetRayOrigin(dir),
		Dir:    dir,
		TNear:  0,
		TFar:   rayFarClip,
	}
	if k.Handle.Traversal.Occluded1(&shadow) {
		return
	}
	cos := math.Absf(dir.Dot(sp.ShadingNormal))
	weight := balanceHeuristic(pdf, bsdfPdf)
	contrib := f.MulColor(k.Handle.EnvironmentRadiance()).Scale(cos * weight / pdf)
	k.AccumulateRayEnergy(r, contrib)
}

// continuePath samples the shader, applies russian roulette, and inserts
// the bounce ray.
func (k *KernelContext) continuePath(r *Ray, sp *surface.SurfaceParameters, ss *sampling.Session) {
	out := bsdf.SampleShader(sp, ss)
	if !out.Valid {
		return
	}
	isDelta := out.Flags&bsdf.LobeDelta != 0
	if !isDelta && out.Pdf <= 0 {
		k.Stats.ZeroPdfSkipped++
		return
	}

	throughput := r.Throughput.MulColor(out.Reflectance)
	if !isDelta {
		cos := math.Absf(out.Wi.Dot(sp.ShadingNormal))
		throughput = throughput.Scale(cos / out.Pdf)
	}
	if throughput.IsBlack() {
		return
	}

	// Russian roulette.
	if int(r.Bounce) >= k.Config.RouletteStart {
		q := math.Clampf(throughput.MaxComponent(), rouletteQMin, 1)
		if ss.Next1D() >= q {
			k.Stats.RouletteKilled++
			return
		}
		throughput = throughput.Scale(1 / q)
	}

	next := Ray{
		Origin:     sp.OffsetRayOrigin(out.Wi),
		Direction:  out.Wi,
		Throughput: throughput,
		Pixel:      r.Pixel,
		Bounce:     r.Bounce + 1,
		Medium:     r.Medium,
		prevPdf:    out.Pdf,
		prevDelta:  isDelta,
	}

	// Track the medium boundary on refraction through a solid dielectric.
	if out.Flags&bsdf.LobeTransmission != 0 && !sp.Flags.Has(materials.FlagThinSurface) {
		if sp.Entering && !sp.Material.Medium.IsVacuum() {
			next.Medium = &sp.Material.Medium
		} else if !sp.Entering {
			next.Medium = nil
		}
	}

	// Differential propagation.
	if k.Config.PreserveRayDifferentials &&
		sp.Flags.Has(materials.FlagPreserveRayDifferentials) && sp.HasDifferentials {
		var rx, ry math.Vec3
		var ok bool
		if out.Flags&bsdf.LobeTransmission != 0 {
			rx, ry, ok = bsdf.RefractDifferentials(sp, out.Wi, sp.IorRatio)
		} else {
			rx, ry, ok = bsdf.ReflectDifferentials(sp, out.Wi)
		}
		if ok {
			next.RxDirection = rx
			next.RyDirection = ry
			next.HasDifferentials = true
		}
	}

	k.InsertRay(next)
}

// balanceHeuristic is the two-strategy MIS weight for the first pdf.
func balanceHeuristic(pdfA, pdfB float32) float32 {
	if pdfA <= 0 {
		return 0
	}
	return pdfA / (pdfA + pdfB)
}
