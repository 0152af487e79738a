// Package baker transforms an imported model into the two persisted blobs
// (meta and geometry) and records them as dependency-tracked outputs for
// the asset build.
package baker

import (
	"encoding/binary"
	"fmt"
	stdmath "math"
	"os"
	"path/filepath"
	"sort"

	"path-tracer/blob"
	"path-tracer/core"
	"path-tracer/internal/logger"
	"path-tracer/materials"
	"path-tracer/scene"
)

// BakedOutput is one dependency-tracked build product.
type BakedOutput struct {
	TypeTag uint64
	Version uint64
	Name    string
	Bytes   []byte
}

// Bake produces the meta and geometry blobs for a model.
func Bake(model *scene.ImportedModel) ([]BakedOutput, error) {
	if model.Name == "" {
		return nil, fmt.Errorf("baker: model has no name: %w", core.ErrMissingAsset)
	}
	for i := range model.Meshes {
		if per := model.Meshes[i].IndicesPerFace; per != 3 && per != 4 {
			return nil, fmt.Errorf("baker: mesh %d has %d indices per face: %w", i, per, core.ErrNumericInvalid)
		}
	}

	meta := bakeMeta(model)
	geom := bakeGeometry(model)

	logger.Info("model baked",
		"name", model.Name,
		"metaBytes", len(meta),
		"geometryBytes", len(geom))
	return []BakedOutput{
		{TypeTag: scene.MetaTypeTag, Version: scene.MetaVersion, Name: model.Name, Bytes: meta},
		{TypeTag: scene.GeometryTypeTag, Version: scene.GeometryVersion, Name: model.Name, Bytes: geom},
	}, nil
}

// WriteBakedOutput persists one output atomically: temp file in the target
// directory, then rename.
func WriteBakedOutput(root string, out BakedOutput) (string, error) {
	path := scene.AssetPath(root, out.TypeTag, out.Version, out.Name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("baker: %v: %w", err, core.ErrIo)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".bake-*")
	if err != nil {
		return "", fmt.Errorf("baker: %v: %w", err, core.ErrIo)
	}
	if _, err := tmp.Write(out.Bytes); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("baker: %v: %w", err, core.ErrIo)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("baker: %v: %w", err, core.ErrIo)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("baker: %v: %w", err, core.ErrIo)
	}
	return path, nil
}

// sortedMaterials returns the model materials ordered by name hash, the
// discipline the resource's binary search depends on.
func sortedMaterials(model *scene.ImportedModel) []*materials.Material {
	mats := make([]*materials.Material, len(model.Materials))
	copy(mats, model.Materials)
	sort.Slice(mats, func(a, b int) bool {
		return materials.HashName(mats[a].Name) < materials.HashName(mats[b].Name)
	})
	return mats
}

func textureIndex(model *scene.ImportedModel, name string) int32 {
	if name == "" {
		return -1
	}
	for i, n := range model.TextureNames {
		if n == name {
			return int32(i)
		}
	}
	return -1
}

func writeVec3(w *blob.Writer, v [3]float32) {
	w.WriteFloat32(v[0])
	w.WriteFloat32(v[1])
	w.WriteFloat32(v[2])
}

func bakeMeta(model *scene.ImportedModel) []byte {
	mats := sortedMaterials(model)

	hint := metaCapacityHint(model)
	w := blob.NewWriter(hint)

	// Root record.
	cam := model.Camera
	writeVec3(w, [3]float32{cam.Position.X, cam.Position.Y, cam.Position.Z})
	writeVec3(w, [3]float32{cam.Forward.X, cam.Forward.Y, cam.Forward.Z})
	writeVec3(w, [3]float32{cam.Up.X, cam.Up.Y, cam.Up.Z})
	w.WriteFloat32(cam.Fov)

	bounds := model.Bounds()
	writeVec3(w, [3]float32{bounds.Min.X, bounds.Min.Y, bounds.Min.Z})
	writeVec3(w, [3]float32{bounds.Max.X, bounds.Max.Y, bounds.Max.Z})
	center, radius := bounds.BoundingSphere()
	writeVec3(w, [3]float32{center.X, center.Y, center.Z})
	w.WriteFloat32(radius)
	writeVec3(w, [3]float32{model.Environment.R, model.Environment.G, model.Environment.B})

	w.WriteUint32(uint32(len(mats)))
	w.WriteUint32(uint32(len(model.TextureNames)))
	w.WriteUint32(uint32(len(model.Meshes)))
	w.WriteUint32(uint32(len(model.Curves)))
	w.Align(8)

	pMats := w.PromisePointer()
	pTex := w.PromisePointer()
	pMeshes := w.PromisePointer()
	pCurves := w.PromisePointer()

	// Material records.
	if len(mats) > 0 {
		w.ResolvePointer(pMats, blob.DefaultAlignment)
		for _, mat := range mats {
			w.WriteUint32(materials.HashName(mat.Name))
			w.WriteUint32(uint32(mat.Shader))
			w.WriteUint32(uint32(mat.Flags))
			w.WriteFloat32(mat.AlphaThreshold)
			w.WriteFloat32(mat.BaseColor.R)
			w.WriteFloat32(mat.BaseColor.G)
			w.WriteFloat32(mat.BaseColor.B)
			w.WriteFloat32(mat.BaseColor.A)
			writeVec3(w, [3]float32{mat.EmissiveColor.R, mat.EmissiveColor.G, mat.EmissiveColor.B})
			w.WriteFloat32(mat.EmissiveScale)
			writeVec3(w, [3]float32{mat.Medium.SigmaA.R, mat.Medium.SigmaA.G, mat.Medium.SigmaA.B})
			writeVec3(w, [3]float32{mat.Medium.SigmaS.R, mat.Medium.SigmaS.G, mat.Medium.SigmaS.B})
			for i := 0; i < int(materials.ScalarAttrCount); i++ {
				w.WriteFloat32(mat.Scalars[i])
			}
			for s := 0; s < int(materials.TextureSlotCount); s++ {
				w.WriteUint32(uint32(textureIndex(model, mat.TextureNames[s])))
			}
		}
	}

	// Texture name table: pointer array, then each string.
	if len(model.TextureNames) > 0 {
		w.ResolvePointer(pTex, blob.DefaultAlignment)
		nameProms := make([]blob.Promise, len(model.TextureNames))
		for i := range model.TextureNames {
			nameProms[i] = w.PromisePointer()
		}
		for i, name := range model.TextureNames {
			w.ResolvePointer(nameProms[i], 4)
			w.WriteUint32(uint32(len(name)))
			w.WriteBytes([]byte(name))
		}
	}

	// Mesh metas.
	if len(model.Meshes) > 0 {
		w.ResolvePointer(pMeshes, blob.DefaultAlignment)
		for i := range model.Meshes {
			mesh := &model.Meshes[i]
			w.WriteUint32(materials.HashName(mesh.MaterialName))
			w.WriteUint32(uint32(mesh.IndicesPerFace))
			w.WriteUint32(indexTypeFor(mesh))
			w.WriteUint32(uint32(len(mesh.Indices)))
			w.WriteUint32(uint32(mesh.VertexCount()))
			w.WriteUint32(uint32(mesh.FaceCount()))
		}
	}

	// Curve metas.
	if len(model.Curves) > 0 {
		w.ResolvePointer(pCurves, blob.DefaultAlignment)
		for i := range model.Curves {
			curve := &model.Curves[i]
			w.WriteUint32(materials.HashName(curve.MaterialName))
			w.WriteUint32(uint32(len(curve.ControlPoints) / 4))
			w.WriteUint32(uint32(len(curve.SpanIndices)))
			w.WriteUint32(0)
		}
	}

	return w.Finish(scene.MetaTypeTag, scene.MetaVersion, 0)
}

// indexTypeFor narrows indices to u16 when every vertex fits.
func indexTypeFor(mesh *scene.ImportedMesh) uint32 {
	if mesh.VertexCount() <= 0x10000 {
		return scene.IndexTypeU16
	}
	return scene.IndexTypeU32
}

func bakeGeometry(model *scene.ImportedModel) []byte {
	w := blob.NewWriter(geometryCapacityHint(model))

	w.WriteUint32(uint32(len(model.Meshes)))
	w.WriteUint32(uint32(len(model.Curves)))
	pMeshes := w.PromisePointer()
	pCurves := w.PromisePointer()

	if len(model.Meshes) > 0 {
		w.ResolvePointer(pMeshes, blob.DefaultAlignment)
		type meshProms struct {
			indices, positions, normals, tangents, uvs, matIdx, faceCounts blob.Promise
		}
		proms := make([]meshProms, len(model.Meshes))
		for i := range model.Meshes {
			proms[i] = meshProms{
				indices:    w.PromisePointer(),
				positions:  w.PromisePointer(),
				normals:    w.PromisePointer(),
				tangents:   w.PromisePointer(),
				uvs:        w.PromisePointer(),
				matIdx:     w.PromisePointer(),
				faceCounts: w.PromisePointer(),
			}
		}
		for i := range model.Meshes {
			mesh := &model.Meshes[i]
			w.EmbedBytes(proms[i].indices, encodeIndices(mesh), blob.DefaultAlignment)
			w.EmbedBytes(proms[i].positions, encodeFloats(mesh.Positions), blob.DefaultAlignment)
			if len(mesh.Normals) > 0 {
				w.EmbedBytes(proms[i].normals, encodeFloats(mesh.Normals), blob.DefaultAlignment)
			}
			if len(mesh.Tangents) > 0 {
				w.EmbedBytes(proms[i].tangents, encodeFloats(mesh.Tangents), blob.DefaultAlignment)
			}
			if len(mesh.UVs) > 0 {
				w.EmbedBytes(proms[i].uvs, encodeFloats(mesh.UVs), blob.DefaultAlignment)
			}
			if len(mesh.MaterialIndices) > 0 {
				w.EmbedBytes(proms[i].matIdx, encodeUint32s(mesh.MaterialIndices), blob.DefaultAlignment)
			}
			if len(mesh.FaceIndexCounts) > 0 {
				w.EmbedBytes(proms[i].faceCounts, encodeUint32s(mesh.FaceIndexCounts), blob.DefaultAlignment)
			}
		}
	}

	if len(model.Curves) > 0 {
		w.ResolvePointer(pCurves, blob.DefaultAlignment)
		type curveProms struct {
			cps, spans blob.Promise
		}
		proms := make([]curveProms, len(model.Curves))
		for i := range proms {
			proms[i] = curveProms{cps: w.PromisePointer(), spans: w.PromisePointer()}
		}
		for i := range model.Curves {
			curve := &model.Curves[i]
			w.EmbedBytes(proms[i].cps, encodeFloats(curve.ControlPoints), blob.DefaultAlignment)
			w.EmbedBytes(proms[i].spans, encodeUint32s(curve.SpanIndices), blob.DefaultAlignment)
		}
	}

	return w.Finish(scene.GeometryTypeTag, scene.GeometryVersion, 0)
}

func encodeIndices(mesh *scene.ImportedMesh) []byte {
	if indexTypeFor(mesh) == scene.IndexTypeU16 {
		out := make([]byte, 2*len(mesh.Indices))
		for i, v := range mesh.Indices {
			binary.LittleEndian.PutUint16(out[2*i:], uint16(v))
		}
		return out
	}
	return encodeUint32s(mesh.Indices)
}

func encodeUint32s(vals []uint32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func encodeFloats(vals []float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[4*i:], stdmath.Float32bits(v))
	}
	return out
}

// metaCapacityHint and geometryCapacityHint pre-reserve the writer from
// summed record sizes plus alignment slack.
func metaCapacityHint(model *scene.ImportedModel) int {
	hint := 256
	hint += len(model.Materials) * 160
	for _, n := range model.TextureNames {
		hint += len(n) + 16
	}
	hint += len(model.Meshes)*32 + len(model.Curves)*32
	return hint
}

func geometryCapacityHint(model *scene.ImportedModel) int {
	hint := 128
	for i := range model.Meshes {
		mesh := &model.Meshes[i]
		hint += 4*(len(mesh.Indices)+len(mesh.Positions)+len(mesh.Normals)+
			len(mesh.Tangents)+len(mesh.UVs)+len(mesh.MaterialIndices)+
			len(mesh.FaceIndexCounts)) + 8*16
	}
	for i := range model.Curves {
		hint += 4*(len(model.Curves[i].ControlPoints)+len(model.Curves[i].SpanIndices)) + 2*16
	}
	return hint
}
