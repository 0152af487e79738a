package scene

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
)

// ImportedModel is the in-memory form an importer hands to the baker.
// Buffers are packed the way the geometry blob stores them.
type ImportedModel struct {
	Name        string
	Camera      CameraInfo
	Environment core.Color

	Materials    []*materials.Material
	TextureNames []string

	Meshes []ImportedMesh
	Curves []ImportedCurve
}

// CameraInfo is the persisted camera state.
type CameraInfo struct {
	Position math.Vec3
	Forward  math.Vec3
	Up       math.Vec3
	Fov      float32 // vertical, radians
}

// ImportedMesh carries one mesh's packed vertex streams. Normals, Tangents
// and UVs may be empty.
type ImportedMesh struct {
	MaterialName   string
	IndicesPerFace int // 3 or 4

	Indices         []uint32
	Positions       []float32 // 3 per vertex
	Normals         []float32 // 3 per vertex
	Tangents        []float32 // 4 per vertex
	UVs             []float32 // 2 per vertex
	MaterialIndices []uint32  // per face
	FaceIndexCounts []uint32  // per face
}

func (m *ImportedMesh) VertexCount() int {
	return len(m.Positions) / 3
}

func (m *ImportedMesh) FaceCount() int {
	return len(m.Indices) / m.IndicesPerFace
}

// ImportedCurve carries round B-spline control points, xyz + radius.
type ImportedCurve struct {
	MaterialName  string
	ControlPoints []float32 // 4 per point
	SpanIndices   []uint32
}

// Resource materializes the imported model directly as an attached
// resource, bypassing the blob round trip. The baker path stays
// authoritative for persisted assets; this serves in-memory pipelines.
func (m *ImportedModel) Resource() *ModelResource {
	res := &ModelResource{
		Name:         m.Name,
		Camera:       m.Camera,
		Environment:  m.Environment,
		Bounds:       m.Bounds(),
		TextureNames: m.TextureNames,
	}
	res.SphereCenter, res.SphereRadius = res.Bounds.BoundingSphere()

	type hashed struct {
		hash uint32
		mat  *materials.Material
	}
	sorted := make([]hashed, 0, len(m.Materials))
	for _, mat := range m.Materials {
		sorted = append(sorted, hashed{materials.HashName(mat.Name), mat})
	}
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j].hash < sorted[j-1].hash; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	for _, h := range sorted {
		res.Materials = append(res.Materials, h.mat)
		res.materialHash = append(res.materialHash, h.hash)
	}

	for i := range m.Meshes {
		im := &m.Meshes[i]
		hash := materials.HashName(im.MaterialName)
		res.Meshes = append(res.Meshes, MeshData{
			MaterialHash:    hash,
			IndicesPerFace:  im.IndicesPerFace,
			Material:        res.LookupMaterial(hash),
			Indices:         im.Indices,
			Positions:       im.Positions,
			Normals:         im.Normals,
			Tangents:        im.Tangents,
			UVs:             im.UVs,
			MaterialIndices: im.MaterialIndices,
			FaceIndexCounts: im.FaceIndexCounts,
		})
	}
	for i := range m.Curves {
		ic := &m.Curves[i]
		hash := materials.HashName(ic.MaterialName)
		res.Curves = append(res.Curves, CurveData{
			MaterialHash:  hash,
			Material:      res.LookupMaterial(hash),
			ControlPoints: ic.ControlPoints,
			SpanIndices:   ic.SpanIndices,
		})
	}
	return res
}

// Bounds accumulates the axis-aligned bounds of every mesh position and
// curve control point, padded by the curve radius.
func (m *ImportedModel) Bounds() math.AABB {
	b := math.EmptyAABB()
	for i := range m.Meshes {
		p := m.Meshes[i].Positions
		for o := 0; o+2 < len(p); o += 3 {
			b = b.Grow(math.Vec3{X: p[o], Y: p[o+1], Z: p[o+2]})
		}
	}
	for i := range m.Curves {
		cp := m.Curves[i].ControlPoints
		for o := 0; o+3 < len(cp); o += 4 {
			r := cp[o+3]
			pad := math.Vec3{X: r, Y: r, Z: r}
			b = b.Grow(math.Vec3{X: cp[o] - pad.X, Y: cp[o+1] - pad.Y, Z: cp[o+2] - pad.Z})
			b = b.Grow(math.Vec3{X: cp[o] + pad.X, Y: cp[o+1] + pad.Y, Z: cp[o+2] + pad.Z})
		}
	}
	return b
}
