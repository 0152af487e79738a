package baker

import (
	"errors"
	"os"
	"testing"

	"path-tracer/blob"
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/scene"
)

func testModel() *scene.ImportedModel {
	white := materials.NewMaterial("white")
	light := materials.NewMaterial("light")
	light.Flags |= materials.FlagEmitsLight
	light.EmissiveColor = core.NewColor(5, 5, 5)

	box := scene.CreateBox("white", math.NewVec3(-1, -1, -1), math.NewVec3(1, 1, 1))
	sphere := scene.CreateUVSphere("light", math.Vec3Zero, 0.5, 8, 6)
	ComputeTangents(&box)
	ComputeTangents(&sphere)

	return &scene.ImportedModel{
		Name: "testbox",
		Camera: scene.CameraInfo{
			Position: math.NewVec3(0, 0, -4),
			Forward:  math.Vec3Front,
			Up:       math.Vec3Up,
			Fov:      1.0,
		},
		Environment:  core.NewColor(0.1, 0.2, 0.3),
		Materials:    []*materials.Material{white, light},
		TextureNames: []string{"albedo.png", "mask.png"},
		Meshes:       []scene.ImportedMesh{box, sphere},
		Curves: []scene.ImportedCurve{{
			MaterialName: "white",
			ControlPoints: []float32{
				0, 0, 0, 0.1,
				1, 0, 0, 0.1,
				2, 0, 0, 0.1,
				3, 0, 0, 0.1,
			},
			SpanIndices: []uint32{0},
		}},
	}
}

func TestBakeRoundTrip(t *testing.T) {
	model := testModel()
	outputs, err := Bake(model)
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if len(outputs) != 2 {
		t.Fatalf("expected 2 outputs, got %d", len(outputs))
	}

	root := t.TempDir()
	for _, out := range outputs {
		if _, err := WriteBakedOutput(root, out); err != nil {
			t.Fatalf("WriteBakedOutput: %v", err)
		}
	}

	loaded, err := scene.ReadModel(root, "testbox")
	if err != nil {
		t.Fatalf("ReadModel: %v", err)
	}

	if loaded.Camera.Position != model.Camera.Position {
		t.Errorf("camera position: %v", loaded.Camera.Position)
	}
	if loaded.Environment != core.NewColor(0.1, 0.2, 0.3) {
		t.Errorf("environment: %v", loaded.Environment)
	}
	if len(loaded.Materials) != 2 || len(loaded.Meshes) != 2 || len(loaded.Curves) != 1 {
		t.Fatalf("counts: %d materials, %d meshes, %d curves",
			len(loaded.Materials), len(loaded.Meshes), len(loaded.Curves))
	}

	// Material lookup by hash must find the emissive light.
	lm := loaded.LookupMaterial(materials.HashName("light"))
	if !lm.IsEmissive() {
		t.Error("light material lost its emission")
	}
	// Unknown hash falls back to the gray default.
	def := loaded.LookupMaterial(materials.HashName("no-such"))
	if def.BaseColor.R != 0.6 {
		t.Errorf("default material baseColor: %v", def.BaseColor)
	}

	// Geometry survives with attributes intact.
	box := &loaded.Meshes[0]
	if box.IndicesPerFace != 4 || box.FaceCount() != 6 {
		t.Errorf("box topology: per=%d faces=%d", box.IndicesPerFace, box.FaceCount())
	}
	if len(box.Normals) != len(box.Positions) {
		t.Error("box normals missing")
	}
	if len(box.Tangents) != box.VertexCount()*4 {
		t.Error("box tangents missing")
	}
	if len(loaded.Curves[0].ControlPoints) != 16 {
		t.Errorf("curve control points: %d", len(loaded.Curves[0].ControlPoints))
	}

	// Re-baking the same model is byte-identical.
	again, err := Bake(model)
	if err != nil {
		t.Fatalf("re-Bake: %v", err)
	}
	for i := range outputs {
		if string(outputs[i].Bytes) != string(again[i].Bytes) {
			t.Errorf("output %d not byte-identical on re-bake", i)
		}
	}
}

func TestBakedAlignment(t *testing.T) {
	outputs, err := Bake(testModel())
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	// Attach verifies every recorded pointer's alignment; a corrupted
	// alignment would fail here.
	for _, out := range outputs {
		if _, err := blob.Attach(out.Bytes, out.TypeTag, out.Version); err != nil {
			t.Errorf("output %q type %#x: %v", out.Name, out.TypeTag, err)
		}
	}
}

func TestTruncatedGeometryBlob(t *testing.T) {
	outputs, err := Bake(testModel())
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	geom := outputs[1]
	_, err = blob.Attach(geom.Bytes[:len(geom.Bytes)-1], geom.TypeTag, geom.Version)
	if !errors.Is(err, core.ErrBlobCorrupt) {
		t.Errorf("truncated geometry blob: expected ErrBlobCorrupt, got %v", err)
	}
}

func TestVersionMismatchOnRead(t *testing.T) {
	outputs, err := Bake(testModel())
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	if _, err := blob.Attach(outputs[0].Bytes, scene.MetaTypeTag, scene.MetaVersion+1); !errors.Is(err, core.ErrBlobVersion) {
		t.Errorf("expected ErrBlobVersion, got %v", err)
	}
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	outputs, err := Bake(testModel())
	if err != nil {
		t.Fatalf("Bake: %v", err)
	}
	root := t.TempDir()
	path, err := WriteBakedOutput(root, outputs[0])
	if err != nil {
		t.Fatalf("WriteBakedOutput: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("output missing: %v", err)
	}
	var walk func(dir string)
	walk = func(dir string) {
		es, _ := os.ReadDir(dir)
		for _, e := range es {
			if e.IsDir() {
				walk(dir + "/" + e.Name())
				continue
			}
			if e.Name()[0] == '.' {
				t.Errorf("stray temp file %s", e.Name())
			}
		}
	}
	walk(root)
}

func TestComputeTangentsOrthogonal(t *testing.T) {
	quad := scene.CreateQuad("m",
		math.NewVec3(-1, 0, -1), math.NewVec3(1, 0, -1),
		math.NewVec3(1, 0, 1), math.NewVec3(-1, 0, 1))
	ComputeTangents(&quad)
	if len(quad.Tangents) != quad.VertexCount()*4 {
		t.Fatalf("tangent count: %d", len(quad.Tangents))
	}
	for i := 0; i < quad.VertexCount(); i++ {
		n := math.NewVec3(quad.Normals[i*3], quad.Normals[i*3+1], quad.Normals[i*3+2])
		tan := math.NewVec3(quad.Tangents[i*4], quad.Tangents[i*4+1], quad.Tangents[i*4+2])
		if math.Absf(n.Dot(tan)) > 1e-5 {
			t.Errorf("vertex %d: tangent not orthogonal to normal", i)
		}
		if math.Absf(tan.Length()-1) > 1e-5 {
			t.Errorf("vertex %d: tangent not unit", i)
		}
		if h := quad.Tangents[i*4+3]; h != 1 && h != -1 {
			t.Errorf("vertex %d: handedness %v", i, h)
		}
	}
}
