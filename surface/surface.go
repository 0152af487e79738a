// Package surface reconstructs shading state at ray hits: attribute
// interpolation, tangent frames, texture lookups with ray-differential
// footprints, and the self-intersection ray offset.
package surface

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/scene"
)

// HitParameters is the post-intersection record the kernel hands to the
// surface builder.
type HitParameters struct {
	Position   math.Vec3
	View       math.Vec3 // toward the ray origin, unit
	Throughput core.Color
	Pixel      uint32
	Bounce     uint32

	GeomID uint32
	PrimID uint32
	U, V   float32

	// Distance is the ray parameter of the hit; GeometricNormal is the
	// traversal backend's unnormalized Ng.
	Distance        float32
	GeometricNormal math.Vec3

	RxDirection      math.Vec3
	RyDirection      math.Vec3
	HasDifferentials bool
}

// SurfaceParameters is the resolved shading state.
type SurfaceParameters struct {
	Position        math.Vec3
	GeometricNormal math.Vec3
	ShadingNormal   math.Vec3
	Tangent         math.Vec3
	Bitangent       math.Vec3
	View            math.Vec3

	BaseColor core.Color
	Scalars   [materials.ScalarAttrCount]float32
	Flags     materials.Flags
	Shader    materials.ShaderTag
	Material  *materials.Material

	// IorRatio is incident ior over transmitted ior for the hit side.
	IorRatio float32
	Entering bool

	Dndu, Dndv   math.Vec3
	Duvdx, Duvdy math.Vec2

	RxDirection      math.Vec3
	RyDirection      math.Vec3
	HasDifferentials bool

	// OffsetScale feeds the self-intersection offset; proportional to the
	// primitive's geometric scale.
	OffsetScale float32
}

// Scalar reads one resolved scalar attribute.
func (s *SurfaceParameters) Scalar(a materials.ScalarAttr) float32 {
	return s.Scalars[a]
}

// Build resolves the shading state for a hit. Returns false for degenerate
// geometry (zero-length normal).
func Build(hit *HitParameters, handle *scene.SceneHandle) (SurfaceParameters, bool) {
	user := handle.UserData(hit.GeomID)
	mat := user.Material

	sp := SurfaceParameters{
		Position:         hit.Position,
		View:             hit.View,
		Flags:            mat.Flags,
		Shader:           mat.Shader,
		Material:         mat,
		BaseColor:        mat.BaseColor,
		Scalars:          mat.Scalars,
		RxDirection:      hit.RxDirection,
		RyDirection:      hit.RyDirection,
		HasDifferentials: hit.HasDifferentials,
		OffsetScale:      1,
	}

	if user.Mesh != nil {
		if !buildMeshSurface(&sp, user.Mesh, hit) {
			return sp, false
		}
	} else if user.Curve != nil {
		buildCurveSurface(&sp, hit)
	} else {
		return sp, false
	}

	// Two-sided shading: flip the frame toward the viewer for thin or
	// double-sided materials; refractive solids keep orientation and track
	// the boundary side instead.
	cos := sp.View.Dot(sp.GeometricNormal)
	sp.Entering = cos >= 0
	if !sp.Entering && (mat.HasFlag(materials.FlagThinSurface) || mat.HasFlag(materials.FlagDoubleSided)) {
		sp.GeometricNormal = sp.GeometricNormal.Negate()
		sp.ShadingNormal = sp.ShadingNormal.Negate()
		sp.Bitangent = sp.Bitangent.Negate()
		sp.Entering = true
	}

	ior := sp.Scalar(materials.Ior)
	if ior <= 0 {
		ior = 1
	}
	if sp.Entering {
		sp.IorRatio = 1 / ior
	} else {
		sp.IorRatio = ior
	}

	resolveTextures(&sp, user, hit)
	return sp, true
}

func buildMeshSurface(sp *SurfaceParameters, mesh *scene.MeshData, hit *HitParameters) bool {
	face := int(hit.PrimID)

	gn := mesh.GeometricNormal(face, hit.U, hit.V)
	gnLen := gn.Length()
	if gnLen == 0 {
		return false
	}
	sp.GeometricNormal = gn.Div(gnLen)
	sp.OffsetScale = math.Sqrtf(gnLen)

	n, hasN := mesh.InterpolateNormal(face, hit.U, hit.V)
	if !hasN {
		n = sp.GeometricNormal
	}
	// Keep the shading normal on the geometric side.
	if n.Dot(sp.GeometricNormal) < 0 {
		n = n.Negate()
	}
	sp.ShadingNormal = n

	if t4, ok := mesh.InterpolateTangent(face, hit.U, hit.V); ok {
		t := t4.ToVec3()
		// Gram-Schmidt against the shading normal.
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.LengthSqr() > 1e-10 {
			sp.Tangent = t.Normalize()
			sp.Bitangent = n.Cross(sp.Tangent).Mul(t4.W)
		}
	}
	if sp.Tangent.LengthSqr() == 0 {
		sp.Tangent, sp.Bitangent = math.OrthonormalBasis(n)
	}

	buildDifferentials(sp, mesh, hit, face)
	return true
}

func buildCurveSurface(sp *SurfaceParameters, hit *HitParameters) {
	// Capsule normals come back unnormalized from the traversal hit; the
	// shading frame is an arbitrary basis around it.
	n := hit.GeometricNormal
	if n.LengthSqr() == 0 {
		n = hit.View
	}
	n = n.Normalize()
	sp.GeometricNormal = n
	sp.ShadingNormal = n
	sp.Tangent, sp.Bitangent = math.OrthonormalBasis(n)
	sp.OffsetScale = 1
}

// buildDifferentials estimates texture-space derivatives by intersecting
// the differential rays with the tangent plane and solving the 2x2 system
// of the face's positional and uv edges.
func buildDifferentials(sp *SurfaceParameters, mesh *scene.MeshData, hit *HitParameters, face int) {
	dp1, dp2, duv1, duv2, ok := mesh.UVDerivatives(face)
	if !ok {
		return
	}

	// dn/du, dn/dv from the same 2x2 solve over vertex normals.
	det := duv1.X*duv2.Y - duv1.Y*duv2.X
	if math.Absf(det) > 1e-12 {
		inv := 1 / det
		if n0, okN := mesh.InterpolateNormal(face, 0, 0); okN {
			n1, _ := mesh.InterpolateNormal(face, 1, 0)
			n2, _ := mesh.InterpolateNormal(face, 0, 1)
			dn1 := n1.Sub(n0)
			dn2 := n2.Sub(n0)
			sp.Dndu = dn1.Mul(duv2.Y * inv).Sub(dn2.Mul(duv1.Y * inv))
			sp.Dndv = dn2.Mul(duv1.X * inv).Sub(dn1.Mul(duv2.X * inv))
		}
	}

	if !hit.HasDifferentials {
		return
	}

	n := sp.GeometricNormal
	d := hit.View.Negate()
	denom := d.Dot(n)
	if math.Absf(denom) < 1e-8 {
		return
	}
	// Distance along each differential direction to the tangent plane,
	// anchored at the primary hit.
	planeD := n.Dot(sp.Position)
	// Differential rays share the primary origin.
	origin := sp.Position.Sub(d.Mul(hit.Distance))
	offsetPoint := func(dir math.Vec3) (math.Vec3, bool) {
		dd := dir.Dot(n)
		if math.Absf(dd) < 1e-8 {
			return math.Vec3{}, false
		}
		t := (planeD - n.Dot(origin)) / dd
		return origin.Add(dir.Mul(t)), true
	}

	px, okX := offsetPoint(hit.RxDirection)
	py, okY := offsetPoint(hit.RyDirection)
	if !okX || !okY {
		return
	}
	dpdx := px.Sub(sp.Position)
	dpdy := py.Sub(sp.Position)

	sp.Duvdx = solveUV(dpdx, dp1, dp2, duv1, duv2)
	sp.Duvdy = solveUV(dpdy, dp1, dp2, duv1, duv2)
}

// solveUV projects dp onto the face edge basis and maps it through the uv
// edge deltas (least squares on the two dominant axes).
func solveUV(dp, dp1, dp2 math.Vec3, duv1, duv2 math.Vec2) math.Vec2 {
	// Solve [dp1 dp2] * [a b]^T = dp for a, b using normal equations.
	a11 := dp1.Dot(dp1)
	a12 := dp1.Dot(dp2)
	a22 := dp2.Dot(dp2)
	b1 := dp.Dot(dp1)
	b2 := dp.Dot(dp2)
	det := a11*a22 - a12*a12
	if math.Absf(det) < 1e-12 {
		return math.Vec2{}
	}
	inv := 1 / det
	a := (a22*b1 - a12*b2) * inv
	b := (a11*b2 - a12*b1) * inv
	return duv1.Mul(a).Add(duv2.Mul(b))
}

func resolveTextures(sp *SurfaceParameters, user *scene.GeometryUserData, hit *HitParameters) {
	mat := sp.Material
	if user.Mesh == nil {
		return
	}
	uv, ok := user.Mesh.InterpolateUV(int(hit.PrimID), hit.U, hit.V)
	if !ok {
		return
	}

	if tex := mat.Textures[materials.SlotAlbedo]; tex != nil {
		sp.BaseColor = tex.Sample(uv, sp.Duvdx, sp.Duvdy)
	}
	if tex := mat.Textures[materials.SlotRoughnessMetallic]; tex != nil {
		// glTF packing: roughness in G, metallic in B.
		c := tex.Sample(uv, sp.Duvdx, sp.Duvdy)
		sp.Scalars[materials.Roughness] = c.G
		sp.Scalars[materials.Metallic] = c.B
	}
	if tex := mat.Textures[materials.SlotNormal]; tex != nil {
		c := tex.Sample(uv, sp.Duvdx, sp.Duvdy)
		tn := math.Vec3{X: 2*c.R - 1, Y: 2*c.G - 1, Z: 2*c.B - 1}
		perturbed := sp.Tangent.Mul(tn.X).
			Add(sp.Bitangent.Mul(tn.Y)).
			Add(sp.ShadingNormal.Mul(tn.Z))
		if perturbed.LengthSqr() > 1e-10 {
			sp.ShadingNormal = perturbed.Normalize()
			// Re-orthogonalize the frame against the perturbed normal.
			t := sp.Tangent.Sub(sp.ShadingNormal.Mul(sp.ShadingNormal.Dot(sp.Tangent)))
			if t.LengthSqr() > 1e-10 {
				sp.Tangent = t.Normalize()
				sp.Bitangent = sp.ShadingNormal.Cross(sp.Tangent)
			} else {
				sp.Tangent, sp.Bitangent = math.OrthonormalBasis(sp.ShadingNormal)
			}
		}
	}
}

// rayOffsetEpsilon scales the normal-directed origin displacement by the
// primitive's geometric scale.
const rayOffsetEpsilon = 1e-4

// OffsetRayOrigin displaces a spawn position off the surface: along the
// geometric normal for rays leaving on the reflection side, against it for
// transmission.
func (s *SurfaceParameters) OffsetRayOrigin(dir math.Vec3) math.Vec3 {
	offset := s.GeometricNormal.Mul(rayOffsetEpsilon * math.Maxf(s.OffsetScale, 1e-3))
	if dir.Dot(s.GeometricNormal) < 0 {
		offset = offset.Negate()
	}
	return s.Position.Add(offset)
}

// WorldToShading expresses a world direction in the tangent frame.
func (s *SurfaceParameters) WorldToShading(v math.Vec3) math.Vec3 {
	return math.Vec3{
		X: v.Dot(s.Tangent),
		Y: v.Dot(s.Bitangent),
		Z: v.Dot(s.ShadingNormal),
	}
}

// ShadingToWorld maps a tangent-frame direction back to world space.
func (s *SurfaceParameters) ShadingToWorld(v math.Vec3) math.Vec3 {
	return s.Tangent.Mul(v.X).Add(s.Bitangent.Mul(v.Y)).Add(s.ShadingNormal.Mul(v.Z))
}
