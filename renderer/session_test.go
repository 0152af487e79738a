package renderer

import (
	"context"
	"image"
	"image/color"
	"testing"

	"path-tracer/core"
	"path-tracer/internal/traversal"
	"path-tracer/kernel"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/scene"
	"path-tracer/textures"
)

func furnaceConfig() kernel.Config {
	return kernel.Config{
		MaxPathLength:    64,
		RayStackCapacity: 66,
		RouletteStart:    99,
		SamplesPerPixel:  16,
		TileSize:         8,
	}
}

func renderModel(t *testing.T, im *scene.ImportedModel, cfg kernel.Config, width, height, workers int) *Session {
	t.Helper()
	s, err := NewSession(cfg, im.Resource(), traversal.NewDevice(), width, height)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	if workers > 0 {
		s.Workers = workers
	}
	if _, err := s.Render(context.Background()); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return s
}

// glassFurnaceModel is a refractive sphere inside a unit environment.
func glassFurnaceModel() *scene.ImportedModel {
	glass := materials.NewMaterial("glass")
	glass.Shader = materials.ShaderTransparentGGX
	glass.BaseColor = core.NewColor(1, 1, 1)
	glass.Scalars[materials.Roughness] = 0
	glass.Scalars[materials.Ior] = 1.5

	sphere := scene.CreateUVSphere("glass", math.Vec3Zero, 1, 32, 16)
	return &scene.ImportedModel{
		Name:        "furnace",
		Environment: core.NewColor(1, 1, 1),
		Materials:   []*materials.Material{glass},
		Meshes:      []scene.ImportedMesh{sphere},
		Camera: scene.CameraInfo{
			Position: math.NewVec3(0, 0, -4),
			Forward:  math.Vec3Front,
			Up:       math.Vec3Up,
			Fov:      0.6,
		},
	}
}

// TestGlassFurnace: a lossless dielectric in a white furnace must average
// to one.
func TestGlassFurnace(t *testing.T) {
	s := renderModel(t, glassFurnaceModel(), furnaceConfig(), 16, 16, 0)
	defer s.Close()

	mean := s.MeanLuminance()
	if mean < 0.98 || mean > 1.02 {
		t.Errorf("glass furnace mean %v outside [0.98, 1.02]", mean)
	}
}

// TestDeterminismAcrossWorkers renders the same scene single- and
// multi-threaded; per-tile seeding must make the images bitwise identical.
func TestDeterminismAcrossWorkers(t *testing.T) {
	cfg := furnaceConfig()
	cfg.SamplesPerPixel = 4

	a := renderModel(t, glassFurnaceModel(), cfg, 32, 32, 1)
	defer a.Close()
	b := renderModel(t, glassFurnaceModel(), cfg, 32, 32, 4)
	defer b.Close()

	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			if a.Pixel(x, y) != b.Pixel(x, y) {
				t.Fatalf("pixel (%d,%d) differs across worker counts: %v vs %v",
					x, y, a.Pixel(x, y), b.Pixel(x, y))
			}
		}
	}
}

// TestRouletteUnbiased compares roulette on/off means; they agree within
// the noise floor.
func TestRouletteUnbiased(t *testing.T) {
	floor := scene.CreateQuad("white",
		math.NewVec3(-20, 0, -20), math.NewVec3(-20, 0, 20),
		math.NewVec3(20, 0, 20), math.NewVec3(20, 0, -20))
	white := materials.NewMaterial("white")
	white.BaseColor = core.NewColor(0.6, 0.6, 0.6)
	white.Scalars[materials.Roughness] = 1

	im := &scene.ImportedModel{
		Name:        "rr",
		Environment: core.NewColor(1, 1, 1),
		Materials:   []*materials.Material{white},
		Meshes:      []scene.ImportedMesh{floor},
		Camera: scene.CameraInfo{
			Position: math.NewVec3(0, 3, 0),
			Forward:  math.NewVec3(0, -1, 0.01),
			Up:       math.Vec3Front,
			Fov:      0.8,
		},
	}

	cfg := kernel.Config{
		MaxPathLength:    8,
		RayStackCapacity: 10,
		RouletteStart:    99,
		SamplesPerPixel:  256,
		TileSize:         8,
	}
	off := renderModel(t, im, cfg, 16, 16, 0)
	defer off.Close()

	cfg.RouletteStart = 1
	on := renderModel(t, im, cfg, 16, 16, 0)
	defer on.Close()

	mOff := off.MeanLuminance()
	mOn := on.MeanLuminance()
	if math.Absf(mOff-mOn)/mOff > 0.03 {
		t.Errorf("roulette bias: off=%v on=%v", mOff, mOn)
	}
}

// TestAlphaTestedLeaf renders a masked quad in front of a red environment:
// cut-out pixels see the environment, covered pixels see the dark leaf.
func TestAlphaTestedLeaf(t *testing.T) {
	// Mask: left half transparent, right half opaque.
	mask := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	mask.SetNRGBA(0, 0, color.NRGBA{255, 255, 255, 0})
	mask.SetNRGBA(1, 0, color.NRGBA{255, 255, 255, 255})

	leaf := materials.NewMaterial("leaf")
	leaf.BaseColor = core.NewColor(0.01, 0.01, 0.01)
	leaf.Scalars[materials.Roughness] = 1
	leaf.Flags |= materials.FlagAlphaTested
	leaf.Textures[materials.SlotMask] = textures.FromImage("mask", mask)

	// Wound so u runs along +X; the quad faces away from the camera, which
	// leaves covered pixels unlit and makes the cut-out contrast stark.
	quad := scene.CreateQuad("leaf",
		math.NewVec3(-2, -2, 2), math.NewVec3(2, -2, 2),
		math.NewVec3(2, 2, 2), math.NewVec3(-2, 2, 2))

	im := &scene.ImportedModel{
		Name:        "leaf",
		Environment: core.NewColor(1, 0, 0),
		Materials:   []*materials.Material{leaf},
		Meshes:      []scene.ImportedMesh{quad},
		Camera: scene.CameraInfo{
			Position: math.NewVec3(0, 0, 0),
			Forward:  math.Vec3Front,
			Up:       math.Vec3Up,
			Fov:      1.2,
		},
	}

	cfg := kernel.Config{
		MaxPathLength:    4,
		RayStackCapacity: 8,
		RouletteStart:    99,
		SamplesPerPixel:  16,
		TileSize:         8,
	}
	s := renderModel(t, im, cfg, 32, 32, 0)
	defer s.Close()

	// The quad's u axis runs from its first corner; find one pixel on
	// each side well away from the boundary.
	cut := s.Pixel(4, 16)     // alpha 0 side: environment red
	covered := s.Pixel(27, 16) // alpha 1 side: dark leaf

	if cut.R < 0.9 {
		t.Errorf("cut-out pixel lost the background: %v", cut)
	}
	if covered.R > 0.3 {
		t.Errorf("covered pixel leaked the background: %v", covered)
	}
}

// TestCancellationMarksIncomplete cancels before rendering starts; the
// summary must report incomplete tiles.
func TestCancellationMarksIncomplete(t *testing.T) {
	cfg := furnaceConfig()
	cfg.SamplesPerPixel = 4
	s, err := NewSession(cfg, glassFurnaceModel().Resource(), traversal.NewDevice(), 32, 32)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	defer s.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, _ := s.Render(ctx)
	if summary.IncompleteTiles == 0 {
		t.Error("cancelled render reported no incomplete tiles")
	}
}

func TestImageEncode(t *testing.T) {
	cfg := furnaceConfig()
	cfg.SamplesPerPixel = 1
	s := renderModel(t, glassFurnaceModel(), cfg, 8, 8, 0)
	defer s.Close()

	img := s.Image()
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 8 {
		t.Fatalf("image bounds: %v", img.Bounds())
	}
	// A unit furnace resolves to full white.
	o := img.PixOffset(0, 0)
	if img.Pix[o] != 255 || img.Pix[o+3] != 255 {
		t.Errorf("furnace pixel not white: %v", img.Pix[o:o+4])
	}

	dir := t.TempDir()
	if err := s.WritePNG(dir + "/frame.png"); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
}
