package scene

import (
	"path-tracer/core"
	"path-tracer/math"
)

// AreaLight is one emissive triangle gathered at bind time. Quads
// contribute two triangles.
type AreaLight struct {
	P0, P1, P2 math.Vec3
	Normal     math.Vec3 // unit
	Area       float32
	Emission   core.Color
	GeomID     uint32
	PrimID     uint32
}

// LightSample is a point on a light with the solid-angle pdf as seen from
// the shading point.
type LightSample struct {
	Position  math.Vec3
	Normal    math.Vec3
	Direction math.Vec3 // from the shading point toward the light
	Distance  float32
	Emission  core.Color
	Pdf       float32 // solid angle
}

// Sample draws a uniform point on the triangle and converts the area pdf
// to solid angle at the receiver. Returns false when the receiver is behind
// the light or the geometry is degenerate.
func (l *AreaLight) Sample(from math.Vec3, u1, u2 float32) (LightSample, bool) {
	// uniform barycentric warp
	su := math.Sqrtf(u1)
	b0 := 1 - su
	b1 := u2 * su
	p := l.P0.Mul(b0).Add(l.P1.Mul(b1)).Add(l.P2.Mul(1 - b0 - b1))

	toLight := p.Sub(from)
	dist2 := toLight.LengthSqr()
	if dist2 <= 0 {
		return LightSample{}, false
	}
	dist := math.Sqrtf(dist2)
	dir := toLight.Div(dist)

	cosLight := l.Normal.Dot(dir.Negate())
	if cosLight <= 1e-6 {
		return LightSample{}, false
	}

	return LightSample{
		Position:  p,
		Normal:    l.Normal,
		Direction: dir,
		Distance:  dist,
		Emission:  l.Emission,
		Pdf:       dist2 / (cosLight * l.Area),
	}, true
}

// PdfFromDirection is the solid-angle pdf of having sampled the point hit
// by a ray along `dir`, given the hit distance. Used as the MIS
// partner when BSDF sampling finds the light.
func (l *AreaLight) PdfFromDirection(dir math.Vec3, dist float32) float32 {
	cosLight := l.Normal.Dot(dir.Negate())
	if cosLight <= 1e-6 || l.Area <= 0 {
		return 0
	}
	return dist * dist / (cosLight * l.Area)
}

// gatherAreaLights walks every mesh with an emissive material and collects
// its faces as triangle lights.
func gatherAreaLights(m *ModelResource) []AreaLight {
	var lights []AreaLight
	for geomID := range m.Meshes {
		mesh := &m.Meshes[geomID]
		if !mesh.Material.IsEmissive() {
			continue
		}
		emission := mesh.Material.Emission()
		faces := mesh.FaceCount()
		for f := 0; f < faces; f++ {
			tris := [][3]int{{0, 1, 2}}
			if mesh.IndicesPerFace == 4 {
				tris = [][3]int{{0, 1, 2}, {0, 2, 3}}
			}
			for _, tri := range tris {
				p0 := mesh.position(mesh.faceIndex(f, tri[0]))
				p1 := mesh.position(mesh.faceIndex(f, tri[1]))
				p2 := mesh.position(mesh.faceIndex(f, tri[2]))
				cross := p1.Sub(p0).Cross(p2.Sub(p0))
				area := 0.5 * cross.Length()
				if area <= 0 {
					continue
				}
				lights = append(lights, AreaLight{
					P0: p0, P1: p1, P2: p2,
					Normal:   cross.Normalize(),
					Area:     area,
					Emission: emission,
					GeomID:   uint32(geomID),
					PrimID:   uint32(f),
				})
			}
		}
	}
	return lights
}

// EnvironmentRadiance is the constant infinite light evaluated for rays
// that leave the scene.
func (h *SceneHandle) EnvironmentRadiance() core.Color {
	return h.Model.Environment
}

// LightForHit finds the area light covering a hit primitive, so emissive
// hits can compute the MIS partner pdf. Linear scan; light counts are
// small.
func (h *SceneHandle) LightForHit(geomID, primID uint32) *AreaLight {
	for i := range h.Lights {
		if h.Lights[i].GeomID == geomID && h.Lights[i].PrimID == primID {
			return &h.Lights[i]
		}
	}
	return nil
}
