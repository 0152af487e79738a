package scene

import (
	"path-tracer/math"
)

// Attribute interpolation over a mesh face at the traversal backend's
// parametric (u, v): barycentric for triangles, bilinear for quads. The
// quad convention matches the backend: corner 0 is (0,0), corner 2 is (1,1).

func (m *MeshData) faceIndex(face, corner int) uint32 {
	return m.Indices[face*m.IndicesPerFace+corner]
}

func (m *MeshData) position(i uint32) math.Vec3 {
	o := int(i) * 3
	return math.Vec3{X: m.Positions[o], Y: m.Positions[o+1], Z: m.Positions[o+2]}
}

func (m *MeshData) normal(i uint32) math.Vec3 {
	o := int(i) * 3
	return math.Vec3{X: m.Normals[o], Y: m.Normals[o+1], Z: m.Normals[o+2]}
}

func (m *MeshData) tangent(i uint32) math.Vec4 {
	o := int(i) * 4
	return math.Vec4{X: m.Tangents[o], Y: m.Tangents[o+1], Z: m.Tangents[o+2], W: m.Tangents[o+3]}
}

func (m *MeshData) uv(i uint32) math.Vec2 {
	o := int(i) * 2
	return math.Vec2{X: m.UVs[o], Y: m.UVs[o+1]}
}

// faceWeights converts the backend (u, v) into per-corner weights.
func (m *MeshData) faceWeights(u, v float32) [4]float32 {
	if m.IndicesPerFace == 3 {
		return [4]float32{1 - u - v, u, v, 0}
	}
	return [4]float32{(1 - u) * (1 - v), u * (1 - v), u * v, (1 - u) * v}
}

// InterpolatePosition evaluates the face surface point at (u, v).
func (m *MeshData) InterpolatePosition(face int, u, v float32) math.Vec3 {
	w := m.faceWeights(u, v)
	p := math.Vec3{}
	for c := 0; c < m.IndicesPerFace; c++ {
		p = p.Add(m.position(m.faceIndex(face, c)).Mul(w[c]))
	}
	return p
}

// InterpolateNormal returns the interpolated vertex normal; it reports
// false when the mesh has no normals.
func (m *MeshData) InterpolateNormal(face int, u, v float32) (math.Vec3, bool) {
	if len(m.Normals) == 0 {
		return math.Vec3{}, false
	}
	w := m.faceWeights(u, v)
	n := math.Vec3{}
	for c := 0; c < m.IndicesPerFace; c++ {
		n = n.Add(m.normal(m.faceIndex(face, c)).Mul(w[c]))
	}
	return n.Normalize(), true
}

// InterpolateTangent returns the interpolated tangent with handedness in W.
func (m *MeshData) InterpolateTangent(face int, u, v float32) (math.Vec4, bool) {
	if len(m.Tangents) == 0 {
		return math.Vec4{}, false
	}
	w := m.faceWeights(u, v)
	t := math.Vec4{}
	for c := 0; c < m.IndicesPerFace; c++ {
		t = t.Add(m.tangent(m.faceIndex(face, c)).Mul(w[c]))
	}
	return t, true
}

// InterpolateUV maps the face parametric coordinates into texture space.
func (m *MeshData) InterpolateUV(face int, u, v float32) (math.Vec2, bool) {
	if len(m.UVs) == 0 {
		return math.Vec2{}, false
	}
	w := m.faceWeights(u, v)
	uv := math.Vec2{}
	for c := 0; c < m.IndicesPerFace; c++ {
		uv = uv.Add(m.uv(m.faceIndex(face, c)).Mul(w[c]))
	}
	return uv, true
}

// GeometricNormal is the unnormalized face normal at (u, v). For quads the
// normal of the containing triangle is used.
func (m *MeshData) GeometricNormal(face int, u, v float32) math.Vec3 {
	var p0, p1, p2 math.Vec3
	if m.IndicesPerFace == 3 || u+v <= 1 {
		p0 = m.position(m.faceIndex(face, 0))
		p1 = m.position(m.faceIndex(face, 1))
		p2 = m.position(m.faceIndex(face, m.IndicesPerFace-1))
	} else {
		p0 = m.position(m.faceIndex(face, 2))
		p1 = m.position(m.faceIndex(face, 3))
		p2 = m.position(m.faceIndex(face, 1))
	}
	return p1.Sub(p0).Cross(p2.Sub(p0))
}

// UVDerivatives estimates du/dP over the face from the corner attributes,
// giving the texture-space change per unit of the two position edges.
// Returns the positional edges and their uv deltas for the differential
// propagation in the surface builder.
func (m *MeshData) UVDerivatives(face int) (dp1, dp2 math.Vec3, duv1, duv2 math.Vec2, ok bool) {
	if len(m.UVs) == 0 {
		return math.Vec3{}, math.Vec3{}, math.Vec2{}, math.Vec2{}, false
	}
	i0 := m.faceIndex(face, 0)
	i1 := m.faceIndex(face, 1)
	i2 := m.faceIndex(face, m.IndicesPerFace-1)
	dp1 = m.position(i1).Sub(m.position(i0))
	dp2 = m.position(i2).Sub(m.position(i0))
	duv1 = m.uv(i1).Sub(m.uv(i0))
	duv2 = m.uv(i2).Sub(m.uv(i0))
	return dp1, dp2, duv1, duv2, true
}

// PrimitiveScale is a face-size heuristic: the length of the unnormalized
// geometric normal at (0.3, 0.3).
func (m *MeshData) PrimitiveScale(face int) float32 {
	return m.GeometricNormal(face, 0.3, 0.3).Length()
}
