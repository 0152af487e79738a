package surface

import (
	"testing"

	"path-tracer/core"
	"path-tracer/internal/traversal"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/scene"
)

// quadHandle binds a unit quad in the XZ plane facing +Y.
func quadHandle(t *testing.T, mat *materials.Material) *scene.SceneHandle {
	t.Helper()
	quad := scene.CreateQuad(mat.Name,
		math.NewVec3(-1, 0, -1), math.NewVec3(-1, 0, 1),
		math.NewVec3(1, 0, 1), math.NewVec3(1, 0, -1))
	im := &scene.ImportedModel{
		Name:      "quad",
		Materials: []*materials.Material{mat},
		Meshes:    []scene.ImportedMesh{quad},
	}
	handle, err := im.Resource().BindTraversal(traversal.NewDevice(), scene.BindOptions{})
	if err != nil {
		t.Fatalf("BindTraversal: %v", err)
	}
	return handle
}

func quadHit(u, v float32) *HitParameters {
	return &HitParameters{
		Position:   math.NewVec3(2*v-1, 0, 2*u-1),
		View:       math.Vec3Up,
		Throughput: core.ColorWhite,
		GeomID:     0,
		PrimID:     0,
		U:          u,
		V:          v,
		Distance:   3,
	}
}

func TestBuildShadingFrame(t *testing.T) {
	mat := materials.NewMaterial("m")
	handle := quadHandle(t, mat)
	defer handle.Release()

	sp, ok := Build(quadHit(0.5, 0.5), handle)
	if !ok {
		t.Fatal("Build failed")
	}
	if sp.GeometricNormal.Sub(math.Vec3Up).Length() > 1e-5 {
		t.Errorf("geometric normal: %v", sp.GeometricNormal)
	}
	if sp.ShadingNormal.Sub(math.Vec3Up).Length() > 1e-5 {
		t.Errorf("shading normal: %v", sp.ShadingNormal)
	}

	n, tan, bt := sp.ShadingNormal, sp.Tangent, sp.Bitangent
	if math.Absf(tan.Dot(n)) > 1e-5 || math.Absf(bt.Dot(n)) > 1e-5 || math.Absf(tan.Dot(bt)) > 1e-5 {
		t.Error("shading frame not orthogonal")
	}
	if math.Absf(tan.Length()-1) > 1e-5 || math.Absf(bt.Length()-1) > 1e-5 {
		t.Error("shading frame not unit length")
	}
	if !sp.Entering {
		t.Error("front-side hit not marked entering")
	}
	if math.Absf(sp.IorRatio-1/1.5) > 1e-6 {
		t.Errorf("ior ratio: %v", sp.IorRatio)
	}
}

func TestWorldShadingRoundTrip(t *testing.T) {
	mat := materials.NewMaterial("m")
	handle := quadHandle(t, mat)
	defer handle.Release()

	sp, ok := Build(quadHit(0.3, 0.7), handle)
	if !ok {
		t.Fatal("Build failed")
	}
	v := math.NewVec3(0.3, 0.8, -0.5).Normalize()
	back := sp.ShadingToWorld(sp.WorldToShading(v))
	if back.Sub(v).Length() > 1e-5 {
		t.Errorf("round trip drift: %v vs %v", back, v)
	}
	up := sp.WorldToShading(sp.ShadingNormal)
	if math.Absf(up.Z-1) > 1e-5 {
		t.Errorf("normal not +Z in shading space: %v", up)
	}
}

func TestOffsetRayOriginSides(t *testing.T) {
	mat := materials.NewMaterial("m")
	handle := quadHandle(t, mat)
	defer handle.Release()

	sp, ok := Build(quadHit(0.5, 0.5), handle)
	if !ok {
		t.Fatal("Build failed")
	}

	up := sp.OffsetRayOrigin(math.Vec3Up)
	if up.Y <= sp.Position.Y {
		t.Error("reflection-side origin not offset along the normal")
	}
	down := sp.OffsetRayOrigin(math.NewVec3(0, -1, 0))
	if down.Y >= sp.Position.Y {
		t.Error("transmission-side origin not offset against the normal")
	}
}

func TestBackSideRefractiveHit(t *testing.T) {
	mat := materials.NewMaterial("m")
	mat.Shader = materials.ShaderTransparentGGX
	handle := quadHandle(t, mat)
	defer handle.Release()

	hit := quadHit(0.5, 0.5)
	hit.View = math.NewVec3(0, -1, 0) // looking from below
	sp, ok := Build(hit, handle)
	if !ok {
		t.Fatal("Build failed")
	}
	if sp.Entering {
		t.Error("back-side hit marked entering")
	}
	// Exiting a 1.5 medium: ratio is etaInside / etaOutside.
	if math.Absf(sp.IorRatio-1.5) > 1e-6 {
		t.Errorf("exit ior ratio: %v", sp.IorRatio)
	}
}

func TestThinSurfaceFlips(t *testing.T) {
	mat := materials.NewMaterial("m")
	mat.Flags |= materials.FlagThinSurface
	handle := quadHandle(t, mat)
	defer handle.Release()

	hit := quadHit(0.5, 0.5)
	hit.View = math.NewVec3(0, -1, 0)
	sp, ok := Build(hit, handle)
	if !ok {
		t.Fatal("Build failed")
	}
	if !sp.Entering {
		t.Error("thin surface back hit should flip to entering")
	}
	if sp.ShadingNormal.Y >= 0 {
		t.Errorf("thin surface frame not flipped: %v", sp.ShadingNormal)
	}
}

func TestTextureDerivatives(t *testing.T) {
	mat := materials.NewMaterial("m")
	handle := quadHandle(t, mat)
	defer handle.Release()

	hit := quadHit(0.5, 0.5)
	// One-pixel differentials slightly tilted from straight down.
	hit.View = math.Vec3Up
	hit.RxDirection = math.NewVec3(0.01, -1, 0).Normalize()
	hit.RyDirection = math.NewVec3(0, -1, 0.01).Normalize()
	hit.HasDifferentials = true

	sp, ok := Build(hit, handle)
	if !ok {
		t.Fatal("Build failed")
	}
	// The quad spans 2 world units per uv unit; a 0.01 rad tilt over
	// distance 3 moves ~0.03 world units, ~0.015 uv units. With this
	// winding the v axis runs along +X and the u axis along +Z.
	if sp.Duvdx.Y < 0.005 || sp.Duvdx.Y > 0.05 {
		t.Errorf("duvdx: %v", sp.Duvdx)
	}
	if sp.Duvdy.X < 0.005 || sp.Duvdy.X > 0.05 {
		t.Errorf("duvdy: %v", sp.Duvdy)
	}
}
