package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"path-tracer/blob"
	"path-tracer/core"
	"path-tracer/internal/logger"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/textures"
)

// AssetPath is the canonical location of a baked blob:
// <root>/<typeTag>_<version>/<assetHash>.bin.
func AssetPath(root string, typeTag, version uint64, name string) string {
	return filepath.Join(root,
		fmt.Sprintf("%x_%d", typeTag, version),
		fmt.Sprintf("%08x.bin", materials.HashName(name)))
}

// MeshData is one attached mesh: meta plus decoded buffer slices.
type MeshData struct {
	MaterialHash   uint32
	IndicesPerFace int
	Material       *materials.Material

	Indices         []uint32
	Positions       []float32 // 3 per vertex
	Normals         []float32 // 3 per vertex, empty when absent
	Tangents        []float32 // 4 per vertex, empty when absent
	UVs             []float32 // 2 per vertex, empty when absent
	MaterialIndices []uint32
	FaceIndexCounts []uint32
}

func (m *MeshData) VertexCount() int {
	return len(m.Positions) / 3
}

func (m *MeshData) FaceCount() int {
	return len(m.Indices) / m.IndicesPerFace
}

// CurveData is one attached curve.
type CurveData struct {
	MaterialHash uint32
	Material     *materials.Material

	ControlPoints []float32 // 4 per point
	SpanIndices   []uint32
}

// ModelResource is the attached in-memory scene/model. Read-only once
// Initialize and BindTraversal have completed.
type ModelResource struct {
	Name         string
	Camera       CameraInfo
	Bounds       math.AABB
	SphereCenter math.Vec3
	SphereRadius float32
	Environment  core.Color

	Materials    []*materials.Material // sorted by name hash
	materialHash []uint32              // parallel to Materials
	TextureNames []string

	Meshes []MeshData
	Curves []CurveData

	meshCounts  []meshCountInfo
	curveCounts []curveCountInfo
	texManager  *textures.Manager
	initialized bool
}

// meshCountInfo carries the meta-blob buffer sizes into the geometry
// attach pass.
type meshCountInfo struct {
	indexType   int
	indexCount  int
	vertexCount int
	faceCount   int
}

type curveCountInfo struct {
	cpCount   int
	spanCount int
}

// ReadModel loads and attaches the meta and geometry blobs of the named
// asset under root.
func ReadModel(root, name string) (*ModelResource, error) {
	metaView, err := loadBlob(AssetPath(root, MetaTypeTag, MetaVersion, name), MetaTypeTag, MetaVersion)
	if err != nil {
		return nil, fmt.Errorf("model %q meta: %w", name, err)
	}
	geomView, err := loadBlob(AssetPath(root, GeometryTypeTag, GeometryVersion, name), GeometryTypeTag, GeometryVersion)
	if err != nil {
		return nil, fmt.Errorf("model %q geometry: %w", name, err)
	}

	m := &ModelResource{Name: name}
	if err := m.attachMeta(metaView); err != nil {
		return nil, fmt.Errorf("model %q meta: %w", name, err)
	}
	if err := m.attachGeometry(geomView); err != nil {
		return nil, fmt.Errorf("model %q geometry: %w", name, err)
	}
	logger.Info("model read",
		"name", name,
		"materials", len(m.Materials),
		"meshes", len(m.Meshes),
		"curves", len(m.Curves))
	return m, nil
}

func loadBlob(path string, typeTag, version uint64) (*blob.View, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", path, core.ErrMissingAsset)
		}
		return nil, fmt.Errorf("%s: %v: %w", path, err, core.ErrIo)
	}
	return blob.Attach(raw, typeTag, version)
}

func readVec3(v *blob.View, off int64) math.Vec3 {
	return math.Vec3{X: v.Float32(off), Y: v.Float32(off + 4), Z: v.Float32(off + 8)}
}

func (m *ModelResource) attachMeta(v *blob.View) error {
	root := v.Root()

	m.Camera = CameraInfo{
		Position: readVec3(v, root+metaCamPosition),
		Forward:  readVec3(v, root+metaCamForward),
		Up:       readVec3(v, root+metaCamUp),
		Fov:      v.Float32(root + metaCamFov),
	}
	m.Bounds = math.AABB{
		Min: readVec3(v, root+metaAABBMin),
		Max: readVec3(v, root+metaAABBMax),
	}
	m.SphereCenter = readVec3(v, root+metaSphereCenter)
	m.SphereRadius = v.Float32(root + metaSphereRadius)
	env := readVec3(v, root+metaEnvRadiance)
	m.Environment = core.NewColor(env.X, env.Y, env.Z)

	materialCount := int(v.Uint32(root + metaMaterialCount))
	textureCount := int(v.Uint32(root + metaTextureCount))
	meshCount := int(v.Uint32(root + metaMeshCount))
	curveCount := int(v.Uint32(root + metaCurveCount))

	if texPtr, ok := v.Pointer(root + metaTexturesPtr); ok {
		m.TextureNames = make([]string, textureCount)
		for i := 0; i < textureCount; i++ {
			strPtr, ok := v.Pointer(texPtr + int64(8*i))
			if !ok {
				return fmt.Errorf("texture name %d is null: %w", i, core.ErrBlobCorrupt)
			}
			m.TextureNames[i] = v.String(strPtr)
		}
	}

	matPtr, ok := v.Pointer(root + metaMaterialsPtr)
	if !ok && materialCount > 0 {
		return fmt.Errorf("material array is null: %w", core.ErrBlobCorrupt)
	}
	m.Materials = make([]*materials.Material, materialCount)
	m.materialHash = make([]uint32, materialCount)
	for i := 0; i < materialCount; i++ {
		m.Materials[i], m.materialHash[i] = m.decodeMaterial(v, matPtr+int64(i*matRecordSize))
	}
	if !sort.SliceIsSorted(m.materialHash, func(a, b int) bool { return m.materialHash[a] < m.materialHash[b] }) {
		return fmt.Errorf("material array not hash-sorted: %w", core.ErrBlobCorrupt)
	}

	if meshPtr, ok := v.Pointer(root + metaMeshesPtr); ok {
		m.Meshes = make([]MeshData, meshCount)
		m.meshCounts = make([]meshCountInfo, meshCount)
		for i := 0; i < meshCount; i++ {
			rec := meshPtr + int64(i*meshMetaRecordSize)
			m.Meshes[i].MaterialHash = v.Uint32(rec + meshMetaMaterialHash)
			m.Meshes[i].IndicesPerFace = int(v.Uint32(rec + meshMetaIndicesPerFace))
			if per := m.Meshes[i].IndicesPerFace; per != 3 && per != 4 {
				return fmt.Errorf("mesh %d has %d indices per face: %w", i, per, core.ErrBlobCorrupt)
			}
			m.meshCounts[i] = meshCountInfo{
				indexType:   int(v.Uint32(rec + meshMetaIndexType)),
				indexCount:  int(v.Uint32(rec + meshMetaIndexCount)),
				vertexCount: int(v.Uint32(rec + meshMetaVertexCount)),
				faceCount:   int(v.Uint32(rec + meshMetaFaceCount)),
			}
		}
	}
	if curvePtr, ok := v.Pointer(root + metaCurvesPtr); ok {
		m.Curves = make([]CurveData, curveCount)
		m.curveCounts = make([]curveCountInfo, curveCount)
		for i := 0; i < curveCount; i++ {
			rec := curvePtr + int64(i*curveMetaRecordSize)
			m.Curves[i].MaterialHash = v.Uint32(rec + curveMetaMaterialHash)
			m.curveCounts[i] = curveCountInfo{
				cpCount:   int(v.Uint32(rec + curveMetaCPCount)),
				spanCount: int(v.Uint32(rec + curveMetaSpanCount)),
			}
		}
	}

	// Resolve mesh and curve materials now that the sorted array exists.
	for i := range m.Meshes {
		m.Meshes[i].Material = m.LookupMaterial(m.Meshes[i].MaterialHash)
	}
	for i := range m.Curves {
		m.Curves[i].Material = m.LookupMaterial(m.Curves[i].MaterialHash)
	}
	return nil
}

func (m *ModelResource) decodeMaterial(v *blob.View, rec int64) (*materials.Material, uint32) {
	mat := materials.NewMaterial("")
	hash := v.Uint32(rec + matHash)
	mat.Shader = materials.ShaderTag(v.Uint32(rec + matShader))
	mat.Flags = materials.Flags(v.Uint32(rec + matFlags))
	mat.AlphaThreshold = v.Float32(rec + matAlphaThreshold)
	mat.BaseColor = core.Color{
		R: v.Float32(rec + matBaseColor),
		G: v.Float32(rec + matBaseColor + 4),
		B: v.Float32(rec + matBaseColor + 8),
		A: v.Float32(rec + matBaseColor + 12),
	}
	em := readVec3(v, rec+matEmissive)
	mat.EmissiveColor = core.NewColor(em.X, em.Y, em.Z)
	mat.EmissiveScale = v.Float32(rec + matEmissive + 12)
	sa := readVec3(v, rec+matSigmaA)
	ss := readVec3(v, rec+matSigmaS)
	mat.Medium = materials.MediumParameters{
		SigmaA: core.NewColor(sa.X, sa.Y, sa.Z),
		SigmaS: core.NewColor(ss.X, ss.Y, ss.Z),
	}
	for i := 0; i < int(materials.ScalarAttrCount); i++ {
		mat.Scalars[i] = v.Float32(rec + matScalars + int64(4*i))
	}
	for s := 0; s < int(materials.TextureSlotCount); s++ {
		idx := int32(v.Uint32(rec + matTextureSlots + int64(4*s)))
		if idx >= 0 && int(idx) < len(m.TextureNames) {
			mat.TextureNames[s] = m.TextureNames[idx]
		}
	}
	return mat, hash
}

// LookupMaterial binary-searches the hash-sorted material array. A missing
// hash resolves to the default material.
func (m *ModelResource) LookupMaterial(hash uint32) *materials.Material {
	i := sort.Search(len(m.materialHash), func(i int) bool { return m.materialHash[i] >= hash })
	if i < len(m.materialHash) && m.materialHash[i] == hash {
		return m.Materials[i]
	}
	return materials.DefaultMaterial()
}

// Initialize reads every texture resource referenced by the model's
// materials. Must run before BindTraversal when materials carry textures.
func (m *ModelResource) Initialize(texManager *textures.Manager) error {
	m.texManager = texManager
	for _, mat := range m.Materials {
		for slot := 0; slot < int(materials.TextureSlotCount); slot++ {
			name := mat.TextureNames[slot]
			if name == "" {
				continue
			}
			tex, err := texManager.ReadTextureResource(name)
			if err != nil {
				return fmt.Errorf("material %q slot %d: %w", mat.Name, slot, err)
			}
			mat.Textures[slot] = tex
		}
	}
	m.initialized = true
	return nil
}

// Shutdown releases texture resources held by the model.
func (m *ModelResource) Shutdown() {
	if m.texManager != nil {
		for _, mat := range m.Materials {
			for slot := 0; slot < int(materials.TextureSlotCount); slot++ {
				if mat.Textures[slot] != nil {
					m.texManager.ShutdownTextureResource(mat.Textures[slot].Name)
					mat.Textures[slot] = nil
				}
			}
		}
	}
	m.initialized = false
}
