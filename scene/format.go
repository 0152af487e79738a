package scene

// On-disk layout of the two model blobs. The baker writes these records
// with the blob writer; ReadModel attaches views over them. All offsets are
// payload-relative; see package blob for the container rules.

const (
	// MetaTypeTag and GeometryTypeTag identify the two blob kinds.
	MetaTypeTag     = 0x6d657461 // "meta"
	GeometryTypeTag = 0x67656f6d // "geom"

	MetaVersion     = 2
	GeometryVersion = 2
)

// Meta blob root field offsets.
const (
	metaCamPosition   = 0   // 3f
	metaCamForward    = 12  // 3f
	metaCamUp         = 24  // 3f
	metaCamFov        = 36  // f
	metaAABBMin       = 40  // 3f
	metaAABBMax       = 52  // 3f
	metaSphereCenter  = 64  // 3f
	metaSphereRadius  = 76  // f
	metaEnvRadiance   = 80  // 3f
	metaMaterialCount = 92  // u32
	metaTextureCount  = 96  // u32
	metaMeshCount     = 100 // u32
	metaCurveCount    = 104 // u32
	metaMaterialsPtr  = 112 // ptr -> material records
	metaTexturesPtr   = 120 // ptr -> texture name pointer array
	metaMeshesPtr     = 128 // ptr -> mesh meta records
	metaCurvesPtr     = 136 // ptr -> curve meta records
	metaRootSize      = 144
)

// Material record layout (matRecordSize bytes each, hash-sorted).
const (
	matHash           = 0   // u32
	matShader         = 4   // u32
	matFlags          = 8   // u32
	matAlphaThreshold = 12  // f
	matBaseColor      = 16  // 4f
	matEmissive       = 32  // 3f + scale f
	matSigmaA         = 48  // 3f
	matSigmaS         = 60  // 3f
	matScalars        = 72  // 12f
	matTextureSlots   = 120 // 6 x i32 into the texture-name array, -1 unbound
	matRecordSize     = 144
)

// Mesh meta record layout.
const (
	meshMetaMaterialHash   = 0  // u32
	meshMetaIndicesPerFace = 4  // u32, 3 or 4
	meshMetaIndexType      = 8  // u32, IndexTypeU16 or IndexTypeU32
	meshMetaIndexCount     = 12 // u32
	meshMetaVertexCount    = 16 // u32
	meshMetaFaceCount      = 20 // u32
	meshMetaRecordSize     = 24
)

const (
	IndexTypeU16 = 0
	IndexTypeU32 = 1
)

// Curve meta record layout.
const (
	curveMetaMaterialHash = 0  // u32
	curveMetaCPCount      = 4  // u32
	curveMetaSpanCount    = 8  // u32
	curveMetaRecordSize   = 16 // includes trailing pad
)

// Geometry blob root field offsets.
const (
	geomMeshCount  = 0 // u32
	geomCurveCount = 4 // u32
	geomMeshesPtr  = 8 // ptr -> mesh buffer records
	geomCurvesPtr  = 16
	geomRootSize   = 24
)

// Per-mesh buffer record: seven pointers. Normals, tangents and uvs may be
// null; the attribute flags are derived from that at attach time.
const (
	meshBufIndices         = 0
	meshBufPositions       = 8  // 3f per vertex
	meshBufNormals         = 16 // 3f per vertex
	meshBufTangents        = 24 // 4f per vertex, w = handedness
	meshBufUVs             = 32 // 2f per vertex
	meshBufMaterialIndices = 40 // u32 per face
	meshBufFaceIndexCounts = 48 // u32 per face
	meshBufRecordSize      = 56
)

// Per-curve buffer record.
const (
	curveBufControlPoints = 0 // 4f per control point: xyz + radius
	curveBufSpanIndices   = 8 // u32 per span
	curveBufRecordSize    = 16
)
