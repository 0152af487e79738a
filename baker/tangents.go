package baker

import (
	"path-tracer/math"
	"path-tracer/scene"
)

// ComputeTangents generates per-vertex tangents (xyz + handedness w) for an
// imported mesh. Requires uvs and normals; faces with a degenerate uv area
// are skipped. Quads accumulate over their two triangles.
func ComputeTangents(mesh *scene.ImportedMesh) {
	if len(mesh.UVs) == 0 || len(mesh.Normals) == 0 {
		return
	}
	vcount := mesh.VertexCount()
	tan := make([]math.Vec3, vcount)
	bit := make([]math.Vec3, vcount)

	pos := func(i uint32) math.Vec3 {
		o := int(i) * 3
		return math.Vec3{X: mesh.Positions[o], Y: mesh.Positions[o+1], Z: mesh.Positions[o+2]}
	}
	uv := func(i uint32) math.Vec2 {
		o := int(i) * 2
		return math.Vec2{X: mesh.UVs[o], Y: mesh.UVs[o+1]}
	}

	accum := func(i0, i1, i2 uint32) {
		e1 := pos(i1).Sub(pos(i0))
		e2 := pos(i2).Sub(pos(i0))
		uv0 := uv(i0)
		d1 := uv(i1).Sub(uv0)
		d2 := uv(i2).Sub(uv0)

		denom := d1.X*d2.Y - d2.X*d1.Y
		if denom == 0 {
			return // degenerate uv triangle
		}
		r := 1.0 / denom

		t := e1.Mul(d2.Y * r).Sub(e2.Mul(d1.Y * r))
		b := e2.Mul(d1.X * r).Sub(e1.Mul(d2.X * r))
		for _, i := range [3]uint32{i0, i1, i2} {
			tan[i] = tan[i].Add(t)
			bit[i] = bit[i].Add(b)
		}
	}

	per := mesh.IndicesPerFace
	for f := 0; f < mesh.FaceCount(); f++ {
		i0 := mesh.Indices[f*per]
		i1 := mesh.Indices[f*per+1]
		i2 := mesh.Indices[f*per+2]
		accum(i0, i1, i2)
		if per == 4 {
			accum(i0, i2, mesh.Indices[f*per+3])
		}
	}

	mesh.Tangents = make([]float32, 4*vcount)
	for i := 0; i < vcount; i++ {
		o := i * 3
		n := math.Vec3{X: mesh.Normals[o], Y: mesh.Normals[o+1], Z: mesh.Normals[o+2]}
		t := tan[i]

		// Gram-Schmidt orthogonalize against the vertex normal.
		t = t.Sub(n.Mul(n.Dot(t)))
		if t.LengthSqr() < 1e-8 {
			t, _ = math.OrthonormalBasis(n)
		} else {
			t = t.Normalize()
		}

		handedness := float32(1)
		if n.Cross(t).Dot(bit[i]) < 0 {
			handedness = -1
		}
		mesh.Tangents[i*4] = t.X
		mesh.Tangents[i*4+1] = t.Y
		mesh.Tangents[i*4+2] = t.Z
		mesh.Tangents[i*4+3] = handedness
	}
}
