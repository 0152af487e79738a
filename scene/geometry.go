package scene

import (
	"fmt"

	"path-tracer/blob"
	"path-tracer/core"
)

// attachGeometry decodes the geometry blob's buffer records into the mesh
// and curve slices declared by the meta blob.
func (m *ModelResource) attachGeometry(v *blob.View) error {
	root := v.Root()
	meshCount := int(v.Uint32(root + geomMeshCount))
	curveCount := int(v.Uint32(root + geomCurveCount))
	if meshCount != len(m.Meshes) || curveCount != len(m.Curves) {
		return fmt.Errorf("geometry blob declares %d meshes / %d curves, meta declares %d / %d: %w",
			meshCount, curveCount, len(m.Meshes), len(m.Curves), core.ErrBlobCorrupt)
	}

	if meshCount > 0 {
		meshesPtr, ok := v.Pointer(root + geomMeshesPtr)
		if !ok {
			return fmt.Errorf("mesh buffer records are null: %w", core.ErrBlobCorrupt)
		}
		for i := 0; i < meshCount; i++ {
			if err := m.attachMesh(v, meshesPtr+int64(i*meshBufRecordSize), i); err != nil {
				return fmt.Errorf("mesh %d: %w", i, err)
			}
		}
	}

	if curveCount > 0 {
		curvesPtr, ok := v.Pointer(root + geomCurvesPtr)
		if !ok {
			return fmt.Errorf("curve buffer records are null: %w", core.ErrBlobCorrupt)
		}
		for i := 0; i < curveCount; i++ {
			rec := curvesPtr + int64(i*curveBufRecordSize)
			ci := m.curveCounts[i]
			cpPtr, ok := v.Pointer(rec + curveBufControlPoints)
			if !ok {
				return fmt.Errorf("curve %d control points are null: %w", i, core.ErrBlobCorrupt)
			}
			spanPtr, ok := v.Pointer(rec + curveBufSpanIndices)
			if !ok {
				return fmt.Errorf("curve %d span indices are null: %w", i, core.ErrBlobCorrupt)
			}
			m.Curves[i].ControlPoints = v.Float32s(cpPtr, ci.cpCount*4)
			m.Curves[i].SpanIndices = v.Uint32s(spanPtr, ci.spanCount)
		}
	}
	return nil
}

func (m *ModelResource) attachMesh(v *blob.View, rec int64, i int) error {
	ci := m.meshCounts[i]
	mesh := &m.Meshes[i]

	idxPtr, ok := v.Pointer(rec + meshBufIndices)
	if !ok {
		return fmt.Errorf("index buffer is null: %w", core.ErrBlobCorrupt)
	}
	switch ci.indexType {
	case IndexTypeU16:
		narrow := v.Uint16s(idxPtr, ci.indexCount)
		mesh.Indices = make([]uint32, len(narrow))
		for j, n := range narrow {
			mesh.Indices[j] = uint32(n)
		}
	case IndexTypeU32:
		mesh.Indices = v.Uint32s(idxPtr, ci.indexCount)
	default:
		return fmt.Errorf("unknown index type %d: %w", ci.indexType, core.ErrBlobCorrupt)
	}

	posPtr, ok := v.Pointer(rec + meshBufPositions)
	if !ok {
		return fmt.Errorf("position buffer is null: %w", core.ErrBlobCorrupt)
	}
	mesh.Positions = v.Float32s(posPtr, ci.vertexCount*3)

	if p, ok := v.Pointer(rec + meshBufNormals); ok {
		mesh.Normals = v.Float32s(p, ci.vertexCount*3)
	}
	if p, ok := v.Pointer(rec + meshBufTangents); ok {
		mesh.Tangents = v.Float32s(p, ci.vertexCount*4)
	}
	if p, ok := v.Pointer(rec + meshBufUVs); ok {
		mesh.UVs = v.Float32s(p, ci.vertexCount*2)
	}
	if p, ok := v.Pointer(rec + meshBufMaterialIndices); ok {
		mesh.MaterialIndices = v.Uint32s(p, ci.faceCount)
	}
	if p, ok := v.Pointer(rec + meshBufFaceIndexCounts); ok {
		mesh.FaceIndexCounts = v.Uint32s(p, ci.faceCount)
	}
	return nil
}
