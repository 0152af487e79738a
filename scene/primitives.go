package scene

import (
	stdmath "math"

	"path-tracer/math"
)

// Importable primitive generators. Demos and tests build small scenes from
// these instead of going through an interchange file.

// CreateQuad builds a single-face quad mesh with normals and uvs. Corners
// wind counter-clockwise as seen from the normal side.
func CreateQuad(materialName string, v0, v1, v2, v3 math.Vec3) ImportedMesh {
	n := v1.Sub(v0).Cross(v3.Sub(v0)).Normalize()
	mesh := ImportedMesh{
		MaterialName:   materialName,
		IndicesPerFace: 4,
		Indices:        []uint32{0, 1, 2, 3},
	}
	for _, p := range []math.Vec3{v0, v1, v2, v3} {
		mesh.Positions = append(mesh.Positions, p.X, p.Y, p.Z)
		mesh.Normals = append(mesh.Normals, n.X, n.Y, n.Z)
	}
	mesh.UVs = []float32{0, 0, 1, 0, 1, 1, 0, 1}
	mesh.MaterialIndices = []uint32{0}
	mesh.FaceIndexCounts = []uint32{4}
	return mesh
}

// CreateBox builds an axis-aligned box as six quads with outward normals.
func CreateBox(materialName string, min, max math.Vec3) ImportedMesh {
	mesh := ImportedMesh{
		MaterialName:   materialName,
		IndicesPerFace: 4,
	}
	add := func(v0, v1, v2, v3 math.Vec3) {
		n := v1.Sub(v0).Cross(v3.Sub(v0)).Normalize()
		base := uint32(len(mesh.Positions) / 3)
		for _, p := range []math.Vec3{v0, v1, v2, v3} {
			mesh.Positions = append(mesh.Positions, p.X, p.Y, p.Z)
			mesh.Normals = append(mesh.Normals, n.X, n.Y, n.Z)
		}
		mesh.UVs = append(mesh.UVs, 0, 0, 1, 0, 1, 1, 0, 1)
		mesh.Indices = append(mesh.Indices, base, base+1, base+2, base+3)
		mesh.MaterialIndices = append(mesh.MaterialIndices, 0)
		mesh.FaceIndexCounts = append(mesh.FaceIndexCounts, 4)
	}

	a, b := min, max
	add(math.Vec3{X: a.X, Y: a.Y, Z: b.Z}, math.Vec3{X: b.X, Y: a.Y, Z: b.Z}, math.Vec3{X: b.X, Y: b.Y, Z: b.Z}, math.Vec3{X: a.X, Y: b.Y, Z: b.Z}) // +Z
	add(math.Vec3{X: b.X, Y: a.Y, Z: a.Z}, math.Vec3{X: a.X, Y: a.Y, Z: a.Z}, math.Vec3{X: a.X, Y: b.Y, Z: a.Z}, math.Vec3{X: b.X, Y: b.Y, Z: a.Z}) // -Z
	add(math.Vec3{X: b.X, Y: a.Y, Z: b.Z}, math.Vec3{X: b.X, Y: a.Y, Z: a.Z}, math.Vec3{X: b.X, Y: b.Y, Z: a.Z}, math.Vec3{X: b.X, Y: b.Y, Z: b.Z}) // +X
	add(math.Vec3{X: a.X, Y: a.Y, Z: a.Z}, math.Vec3{X: a.X, Y: a.Y, Z: b.Z}, math.Vec3{X: a.X, Y: b.Y, Z: b.Z}, math.Vec3{X: a.X, Y: b.Y, Z: a.Z}) // -X
	add(math.Vec3{X: a.X, Y: b.Y, Z: b.Z}, math.Vec3{X: b.X, Y: b.Y, Z: b.Z}, math.Vec3{X: b.X, Y: b.Y, Z: a.Z}, math.Vec3{X: a.X, Y: b.Y, Z: a.Z}) // +Y
	add(math.Vec3{X: a.X, Y: a.Y, Z: a.Z}, math.Vec3{X: b.X, Y: a.Y, Z: a.Z}, math.Vec3{X: b.X, Y: a.Y, Z: b.Z}, math.Vec3{X: a.X, Y: a.Y, Z: b.Z}) // -Y
	return mesh
}

// CreateUVSphere builds a triangulated uv-sphere.
func CreateUVSphere(materialName string, center math.Vec3, radius float32, segments, rings int) ImportedMesh {
	if segments < 3 {
		segments = 3
	}
	if rings < 2 {
		rings = 2
	}

	mesh := ImportedMesh{
		MaterialName:   materialName,
		IndicesPerFace: 3,
	}
	for ring := 0; ring <= rings; ring++ {
		phi := float64(ring) * stdmath.Pi / float64(rings)
		sinPhi := float32(stdmath.Sin(phi))
		cosPhi := float32(stdmath.Cos(phi))
		for seg := 0; seg <= segments; seg++ {
			theta := float64(seg) * 2 * stdmath.Pi / float64(segments)
			normal := math.Vec3{
				X: sinPhi * float32(stdmath.Cos(theta)),
				Y: cosPhi,
				Z: sinPhi * float32(stdmath.Sin(theta)),
			}
			p := center.Add(normal.Mul(radius))
			mesh.Positions = append(mesh.Positions, p.X, p.Y, p.Z)
			mesh.Normals = append(mesh.Normals, normal.X, normal.Y, normal.Z)
			mesh.UVs = append(mesh.UVs,
				float32(seg)/float32(segments),
				float32(ring)/float32(rings))
		}
	}
	for ring := 0; ring < rings; ring++ {
		for seg := 0; seg < segments; seg++ {
			cur := uint32(ring*(segments+1) + seg)
			next := cur + uint32(segments+1)
			// wound so the geometric normal points outward
			mesh.Indices = append(mesh.Indices, cur, cur+1, next)
			mesh.Indices = append(mesh.Indices, cur+1, next+1, next)
			mesh.MaterialIndices = append(mesh.MaterialIndices, 0, 0)
			mesh.FaceIndexCounts = append(mesh.FaceIndexCounts, 3, 3)
		}
	}
	return mesh
}
