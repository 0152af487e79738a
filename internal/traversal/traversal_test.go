package traversal

import (
	"testing"

	"path-tracer/math"
)

// unit quad in the XY plane at z=0, facing +Z
func quadGeometry(t *testing.T, d *Device) *Geometry {
	t.Helper()
	g := d.NewGeometry(GeometryQuads)
	verts := []float32{
		-1, -1, 0,
		1, -1, 0,
		1, 1, 0,
		-1, 1, 0,
	}
	idx := []uint32{0, 1, 2, 3}
	if err := g.SetSharedBuffer(SlotVertex, Format3f, verts, 0, 3, 4); err != nil {
		t.Fatalf("vertex buffer: %v", err)
	}
	if err := g.SetSharedBuffer(SlotIndex, Format4u, idx, 0, 4, 1); err != nil {
		t.Fatalf("index buffer: %v", err)
	}
	if err := g.CommitGeometry(); err != nil {
		t.Fatalf("commit geometry: %v", err)
	}
	return g
}

func commitScene(t *testing.T, d *Device, geoms ...*Geometry) *Scene {
	t.Helper()
	s := d.NewScene()
	for i, g := range geoms {
		s.AttachGeometryByID(g, uint32(i))
	}
	if err := s.CommitScene(); err != nil {
		t.Fatalf("commit scene: %v", err)
	}
	return s
}

func TestIntersectTriangle(t *testing.T) {
	d := NewDevice()
	g := d.NewGeometry(GeometryTriangles)
	verts := []float32{
		0, 0, 0,
		1, 0, 0,
		0, 1, 0,
	}
	idx := []uint32{0, 1, 2}
	if err := g.SetSharedBuffer(SlotVertex, Format3f, verts, 0, 3, 3); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSharedBuffer(SlotIndex, Format3u, idx, 0, 3, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitGeometry(); err != nil {
		t.Fatal(err)
	}
	s := commitScene(t, d, g)
	defer s.ReleaseScene()

	ray := Ray{Origin: math.NewVec3(0.25, 0.25, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected hit")
	}
	if hit.GeomID != 0 || hit.PrimID != 0 {
		t.Errorf("ids: geom %d prim %d", hit.GeomID, hit.PrimID)
	}
	if math.Absf(hit.T-1) > 1e-5 {
		t.Errorf("t: expected 1, got %v", hit.T)
	}
	if math.Absf(hit.U-0.25) > 1e-5 || math.Absf(hit.V-0.25) > 1e-5 {
		t.Errorf("barycentrics: %v %v", hit.U, hit.V)
	}

	miss := Ray{Origin: math.NewVec3(0.9, 0.9, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	if s.Intersect1(&miss, &hit) {
		t.Error("expected miss outside the triangle")
	}
}

func TestIntersectQuadParam(t *testing.T) {
	d := NewDevice()
	s := commitScene(t, d, quadGeometry(t, d))
	defer s.ReleaseScene()

	// (u, v) spans the full quad: corner v0 is (0,0), v2 is (1,1).
	ray := Ray{Origin: math.NewVec3(-0.5, -0.5, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected quad hit")
	}
	if math.Absf(hit.U-0.25) > 1e-5 || math.Absf(hit.V-0.25) > 1e-5 {
		t.Errorf("quad uv: expected (0.25, 0.25), got (%v, %v)", hit.U, hit.V)
	}

	ray = Ray{Origin: math.NewVec3(0.5, 0.5, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected quad hit in the second triangle")
	}
	if math.Absf(hit.U-0.75) > 1e-5 || math.Absf(hit.V-0.75) > 1e-5 {
		t.Errorf("quad uv: expected (0.75, 0.75), got (%v, %v)", hit.U, hit.V)
	}
}

func TestClosestHitWins(t *testing.T) {
	d := NewDevice()
	near := quadGeometry(t, d)

	far := d.NewGeometry(GeometryQuads)
	verts := []float32{
		-1, -1, 5,
		1, -1, 5,
		1, 1, 5,
		-1, 1, 5,
	}
	idx := []uint32{0, 1, 2, 3}
	if err := far.SetSharedBuffer(SlotVertex, Format3f, verts, 0, 3, 4); err != nil {
		t.Fatal(err)
	}
	if err := far.SetSharedBuffer(SlotIndex, Format4u, idx, 0, 4, 1); err != nil {
		t.Fatal(err)
	}
	if err := far.CommitGeometry(); err != nil {
		t.Fatal(err)
	}

	s := commitScene(t, d, near, far)
	defer s.ReleaseScene()

	ray := Ray{Origin: math.NewVec3(0, 0, -2), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected hit")
	}
	if hit.GeomID != 0 {
		t.Errorf("closest hit: expected geometry 0, got %d", hit.GeomID)
	}
	if math.Absf(hit.T-2) > 1e-5 {
		t.Errorf("closest t: expected 2, got %v", hit.T)
	}
}

func TestIntersectFilterRejects(t *testing.T) {
	d := NewDevice()
	g := quadGeometry(t, d)
	g.SetUserPtr("leaf")

	var sawUser any
	g.SetIntersectFilter(func(args *FilterArgs) {
		sawUser = args.UserPtr
		// Reject the left half of the quad.
		if args.U < 0.5 {
			args.Valid = false
		}
	})
	s := commitScene(t, d, g)
	defer s.ReleaseScene()

	var hit Hit
	left := Ray{Origin: math.NewVec3(-0.5, 0, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	if s.Intersect1(&left, &hit) {
		t.Error("filter-rejected hit was accepted")
	}
	if sawUser != "leaf" {
		t.Errorf("filter user data: %v", sawUser)
	}

	right := Ray{Origin: math.NewVec3(0.5, 0.1, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	if !s.Intersect1(&right, &hit) {
		t.Error("filter-accepted hit was lost")
	}

	if s.Occluded1(&left) {
		t.Error("Occluded1 ignored the filter")
	}
	if !s.Occluded1(&right) {
		t.Error("Occluded1 missed an accepted hit")
	}
}

func TestSubdivisionDisplacement(t *testing.T) {
	d := NewDevice()
	g := d.NewGeometry(GeometrySubdivision)
	verts := []float32{
		-1, -1, 0,
		1, -1, 0,
		1, 1, 0,
		-1, 1, 0,
	}
	normals := []float32{
		0, 0, 1,
		0, 0, 1,
		0, 0, 1,
		0, 0, 1,
	}
	idx := []uint32{0, 1, 2, 3}
	if err := g.SetSharedBuffer(SlotVertex, Format3f, verts, 0, 3, 4); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSharedBuffer(SlotNormal, Format3f, normals, 0, 3, 4); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSharedBuffer(SlotIndex, Format4u, idx, 0, 4, 1); err != nil {
		t.Fatal(err)
	}
	g.SetTessellationRate(8)
	g.SetDisplacementFunction(func(_ any, _ uint32, _, _ float32, _, _ math.Vec3) float32 {
		return 0.5
	})
	if err := g.CommitGeometry(); err != nil {
		t.Fatal(err)
	}
	s := commitScene(t, d, g)
	defer s.ReleaseScene()

	// 8x8 grid, two triangles per cell
	if len(g.prims) != 128 {
		t.Errorf("tessellated prim count: %d", len(g.prims))
	}

	ray := Ray{Origin: math.NewVec3(0, 0, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected displaced surface hit")
	}
	// Surface displaced from z=0 to z=0.5 along the +Z normal.
	if math.Absf(hit.T-1.5) > 1e-4 {
		t.Errorf("displaced t: expected 1.5, got %v", hit.T)
	}
}

func TestCurveCapsule(t *testing.T) {
	d := NewDevice()
	g := d.NewGeometry(GeometryRoundCurve)
	// Straight horizontal B-spline: all control points on the X axis with
	// radius 0.2; the curve interior follows the axis exactly.
	cps := []float32{
		-3, 0, 0, 0.2,
		-1, 0, 0, 0.2,
		1, 0, 0, 0.2,
		3, 0, 0, 0.2,
	}
	idx := []uint32{0}
	if err := g.SetSharedBuffer(SlotVertex, Format4f, cps, 0, 4, 4); err != nil {
		t.Fatal(err)
	}
	if err := g.SetSharedBuffer(SlotIndex, Format1u, idx, 0, 1, 1); err != nil {
		t.Fatal(err)
	}
	if err := g.CommitGeometry(); err != nil {
		t.Fatal(err)
	}
	s := commitScene(t, d, g)
	defer s.ReleaseScene()

	ray := Ray{Origin: math.NewVec3(0, 0, -2), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Fatal("expected curve hit")
	}
	if math.Absf(hit.T-1.8) > 1e-3 {
		t.Errorf("curve hit t: expected 1.8, got %v", hit.T)
	}

	above := Ray{Origin: math.NewVec3(0, 0.5, -2), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	if s.Intersect1(&above, &hit) {
		t.Error("ray above the curve radius reported a hit")
	}
}

func TestSceneRefCount(t *testing.T) {
	d := NewDevice()
	s := commitScene(t, d, quadGeometry(t, d))
	s.Retain()
	s.ReleaseScene()
	ray := Ray{Origin: math.NewVec3(0, 0, -1), Dir: math.Vec3Front, TNear: 0, TFar: 100}
	var hit Hit
	if !s.Intersect1(&ray, &hit) {
		t.Error("scene freed while a reference was held")
	}
	s.ReleaseScene()
	if s.Intersect1(&ray, &hit) {
		t.Error("released scene still intersects")
	}
}
