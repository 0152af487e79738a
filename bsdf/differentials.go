package bsdf

import (
	"path-tracer/math"
	"path-tracer/surface"
)

// Ray-differential propagation through reflection and refraction, using
// the surface's normal derivatives and uv footprints. Runs only when the
// material preserves differentials and the inbound ray carried them.

// minRefractCos: below this transmitted cosine the refraction Jacobian
// explodes; the propagated differentials are dropped instead of amplified.
const minRefractCos = 1e-4

// dndxy maps the screen-space uv footprints through dn/du, dn/dv.
func dndxy(s *surface.SurfaceParameters) (math.Vec3, math.Vec3) {
	dndx := s.Dndu.Mul(s.Duvdx.X).Add(s.Dndv.Mul(s.Duvdx.Y))
	dndy := s.Dndu.Mul(s.Duvdy.X).Add(s.Dndv.Mul(s.Duvdy.Y))
	return dndx, dndy
}

// ReflectDifferentials returns the full differential directions of the
// reflected ray with direction wi.
func ReflectDifferentials(s *surface.SurfaceParameters, wi math.Vec3) (rx, ry math.Vec3, ok bool) {
	if !s.HasDifferentials {
		return math.Vec3{}, math.Vec3{}, false
	}
	n := s.ShadingNormal
	wo := s.View
	dndx, dndy := dndxy(s)

	propagate := func(rdir, dn math.Vec3) math.Vec3 {
		dwo := rdir.Negate().Sub(wo)
		dDN := dwo.Dot(n) + wo.Dot(dn)
		return wi.Sub(dwo).Add(dn.Mul(2 * wo.Dot(n)).Add(n.Mul(2 * dDN)))
	}
	return propagate(s.RxDirection, dndx), propagate(s.RyDirection, dndy), true
}

// RefractDifferentials returns the full differential directions of the
// refracted ray wi for relative index eta = etaIncident / etaTransmitted.
func RefractDifferentials(s *surface.SurfaceParameters, wi math.Vec3, eta float32) (rx, ry math.Vec3, ok bool) {
	if !s.HasDifferentials {
		return math.Vec3{}, math.Vec3{}, false
	}
	n := s.ShadingNormal
	wo := s.View
	cosI := wo.Dot(n)
	cosT := math.Absf(wi.Dot(n))
	if cosT < minRefractCos {
		return math.Vec3{}, math.Vec3{}, false
	}
	dndx, dndy := dndxy(s)

	mu := eta*cosI - cosT
	dmuFactor := eta - (eta*eta*cosI)/cosT

	propagate := func(rdir, dn math.Vec3) math.Vec3 {
		dwo := rdir.Negate().Sub(wo)
		dDN := dwo.Dot(n) + wo.Dot(dn)
		dmu := dmuFactor * dDN
		return wi.Add(dwo.Mul(eta)).Sub(dn.Mul(mu).Add(n.Mul(dmu)))
	}
	return propagate(s.RxDirection, dndx), propagate(s.RyDirection, dndy), true
}
