package materials

import (
	"hash/fnv"

	"path-tracer/core"
	"path-tracer/textures"
)

// ShaderTag selects the BSDF family evaluated for a material. The set is
// closed; dispatch is a switch, not an interface.
type ShaderTag int

const (
	ShaderDisneySolid ShaderTag = iota
	ShaderDisneyThin
	ShaderTransparentGGX
)

// Flags gate per-material features.
type Flags uint32

const (
	FlagAlphaTested Flags = 1 << iota
	FlagDisplacementEnabled
	FlagPreserveRayDifferentials
	FlagThinSurface
	FlagEmitsLight
	FlagDoubleSided
)

// ScalarAttr indexes the material's scalar attribute table.
type ScalarAttr int

const (
	Roughness ScalarAttr = iota
	Metallic
	SpecularTint
	Anisotropic
	Sheen
	SheenTint
	Clearcoat
	ClearcoatGloss
	Ior
	Transmission
	Specular
	Flatness
	ScalarAttrCount
)

// TextureSlot names the fixed texture binding points.
type TextureSlot int

const (
	SlotAlbedo TextureSlot = iota
	SlotNormal
	SlotRoughnessMetallic
	SlotEmissive
	SlotMask
	SlotDisplacement
	TextureSlotCount
)

// MediumParameters describes the isotropic participating medium behind a
// refractive surface.
type MediumParameters struct {
	SigmaA core.Color // absorption
	SigmaS core.Color // scattering
}

// SigmaT is the extinction coefficient.
func (m MediumParameters) SigmaT() core.Color {
	return m.SigmaA.Add(m.SigmaS)
}

// IsVacuum reports a medium that neither absorbs nor scatters.
func (m MediumParameters) IsVacuum() bool {
	return m.SigmaT().IsBlack()
}

// Material holds everything the surface builder needs to resolve shading
// state at a hit. Texture pointers are nil until resource initialization
// resolves the names.
type Material struct {
	Name string

	BaseColor     core.Color // fallback when the albedo slot is unbound
	EmissiveColor core.Color
	EmissiveScale float32

	TextureNames [TextureSlotCount]string
	Textures     [TextureSlotCount]*textures.TextureResource

	Scalars [ScalarAttrCount]float32

	Shader ShaderTag
	Flags  Flags

	Medium            MediumParameters
	AlphaThreshold    float32
	DisplacementScale float32
}

// NewMaterial creates a material with neutral defaults.
func NewMaterial(name string) *Material {
	m := &Material{
		Name:           name,
		BaseColor:      core.NewColor(0.8, 0.8, 0.8),
		EmissiveScale:  1,
		Shader:         ShaderDisneySolid,
		AlphaThreshold: 0.5,
	}
	m.Scalars[Roughness] = 0.5
	m.Scalars[Ior] = 1.5
	m.Scalars[Specular] = 0.5
	return m
}

// DefaultMaterial is the lookup-miss fallback: gray Disney solid.
func DefaultMaterial() *Material {
	m := NewMaterial("default")
	m.BaseColor = core.NewColor(0.6, 0.6, 0.6)
	return m
}

// Has reports whether all bits of f are set.
func (f Flags) Has(bits Flags) bool {
	return f&bits == bits
}

func (m *Material) HasFlag(f Flags) bool {
	return m.Flags&f != 0
}

// IsEmissive reports whether hits on this material contribute light.
func (m *Material) IsEmissive() bool {
	return m.HasFlag(FlagEmitsLight) && !m.EmissiveColor.IsBlack() && m.EmissiveScale > 0
}

// Emission returns the radiant exitance of the surface.
func (m *Material) Emission() core.Color {
	return m.EmissiveColor.Scale(m.EmissiveScale)
}

// Clone returns a deep copy; texture resources are shared.
func (m *Material) Clone() *Material {
	c := *m
	return &c
}

// HashName is the 32-bit FNV-1a identity used for sorted material lookup.
func HashName(name string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(name))
	return h.Sum32()
}
