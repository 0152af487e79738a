package scene

import (
	"fmt"

	"path-tracer/internal/logger"
	"path-tracer/internal/traversal"
	"path-tracer/materials"
	"path-tracer/math"
)

// GeometryFlags describe which vertex attributes a bound geometry carries.
type GeometryFlags uint32

const (
	GeomHasNormals GeometryFlags = 1 << iota
	GeomHasTangents
	GeomHasUVs
)

// GeometryUserData is the per-geometry block handed to traversal callbacks.
// It references only immutable scene data; backend threads may read it
// concurrently.
type GeometryUserData struct {
	Flags        GeometryFlags
	Material     *materials.Material
	Mesh         *MeshData
	Curve        *CurveData
	Scene        *traversal.Scene
	WorldToLocal math.Mat4
	Bounds       math.AABB
}

// AlphaTest is the intersection-filter predicate: sample the mask (or
// albedo) texture at the hit's interpolated uv and reject the candidate
// when its alpha falls below the material threshold.
func (u *GeometryUserData) AlphaTest(primID uint32, hu, hv float32) bool {
	mat := u.Material
	tex := mat.Textures[materials.SlotMask]
	if tex == nil {
		tex = mat.Textures[materials.SlotAlbedo]
	}
	if tex == nil || u.Mesh == nil {
		return true
	}
	uv, ok := u.Mesh.InterpolateUV(int(primID), hu, hv)
	if !ok {
		return true
	}
	return tex.SamplePoint(uv).A >= mat.AlphaThreshold
}

// BindOptions carry the build-time gates for traversal binding.
type BindOptions struct {
	EnableDisplacement bool
	TessellationRate   float32
}

// SceneHandle is the bound, committed traversal scene plus the light table
// gathered from emissive geometry. Release it when the render session ends.
type SceneHandle struct {
	Model     *ModelResource
	Traversal *traversal.Scene
	Lights    []AreaLight

	users []*GeometryUserData
}

// UserData returns the per-geometry block for a hit's geomID.
func (h *SceneHandle) UserData(geomID uint32) *GeometryUserData {
	return h.users[geomID]
}

// Release drops the handle's traversal scene reference.
func (h *SceneHandle) Release() {
	if h.Traversal != nil {
		h.Traversal.ReleaseScene()
		h.Traversal = nil
	}
}

// BindTraversal registers every mesh and curve with the traversal backend
// and commits the scene. Geometry ids are assigned sequentially: meshes
// first, then curves.
func (m *ModelResource) BindTraversal(device *traversal.Device, opts BindOptions) (*SceneHandle, error) {
	ts := device.NewScene()
	handle := &SceneHandle{Model: m, Traversal: ts}

	geomID := uint32(0)
	for i := range m.Meshes {
		mesh := &m.Meshes[i]
		g, err := m.bindMesh(device, mesh, opts)
		if err != nil {
			ts.ReleaseScene()
			return nil, fmt.Errorf("bind mesh %d: %w", i, err)
		}

		user := &GeometryUserData{
			Material: mesh.Material,
			Mesh:     mesh,
			Scene:    ts,
			// Geometry buffers are baked in world space; the transform is
			// kept for collaborators that need to go back to local space.
			WorldToLocal: math.Mat4Identity(),
			Bounds:       g.Bounds(),
		}
		if len(mesh.Normals) > 0 {
			user.Flags |= GeomHasNormals
		}
		if len(mesh.Tangents) > 0 {
			user.Flags |= GeomHasTangents
		}
		if len(mesh.UVs) > 0 {
			user.Flags |= GeomHasUVs
		}
		g.SetUserPtr(user)

		if mesh.Material.HasFlag(materials.FlagAlphaTested) {
			g.SetIntersectFilter(func(args *traversal.FilterArgs) {
				u := args.UserPtr.(*GeometryUserData)
				if !u.AlphaTest(args.PrimID, args.U, args.V) {
					args.Valid = false
				}
			})
		}

		ts.AttachGeometryByID(g, geomID)
		handle.users = append(handle.users, user)
		geomID++
	}

	for i := range m.Curves {
		curve := &m.Curves[i]
		g, err := bindCurve(device, curve)
		if err != nil {
			ts.ReleaseScene()
			return nil, fmt.Errorf("bind curve %d: %w", i, err)
		}
		user := &GeometryUserData{
			Material:     curve.Material,
			Curve:        curve,
			Scene:        ts,
			WorldToLocal: math.Mat4Identity(),
			Bounds:       g.Bounds(),
		}
		g.SetUserPtr(user)
		ts.AttachGeometryByID(g, geomID)
		handle.users = append(handle.users, user)
		geomID++
	}

	if err := ts.CommitScene(); err != nil {
		ts.ReleaseScene()
		return nil, err
	}

	handle.Lights = gatherAreaLights(m)
	logger.Info("traversal bound",
		"model", m.Name,
		"geometries", geomID,
		"lights", len(handle.Lights))
	return handle, nil
}

func (m *ModelResource) bindMesh(device *traversal.Device, mesh *MeshData, opts BindOptions) (*traversal.Geometry, error) {
	displace := mesh.Material.HasFlag(materials.FlagDisplacementEnabled) && opts.EnableDisplacement

	var g *traversal.Geometry
	indexFormat := traversal.Format3u
	if mesh.IndicesPerFace == 4 {
		indexFormat = traversal.Format4u
	}

	switch {
	case displace:
		g = device.NewGeometry(traversal.GeometrySubdivision)
		g.SetTessellationRate(opts.TessellationRate)
		g.SetSubdivisionMode(traversal.SubdivisionPin)
		g.SetDisplacementFunction(displacementFunc(mesh))
	case mesh.IndicesPerFace == 4:
		g = device.NewGeometry(traversal.GeometryQuads)
	default:
		g = device.NewGeometry(traversal.GeometryTriangles)
	}

	vcount := mesh.VertexCount()
	if err := g.SetSharedBuffer(traversal.SlotVertex, traversal.Format3f, mesh.Positions, 0, 3, vcount); err != nil {
		return nil, err
	}
	if err := g.SetSharedBuffer(traversal.SlotIndex, indexFormat, mesh.Indices, 0, mesh.IndicesPerFace, mesh.FaceCount()); err != nil {
		return nil, err
	}
	if displace && len(mesh.Normals) > 0 {
		if err := g.SetSharedBuffer(traversal.SlotNormal, traversal.Format3f, mesh.Normals, 0, 3, vcount); err != nil {
			return nil, err
		}
	}
	attribs := 0
	if len(mesh.Normals) > 0 {
		attribs++
	}
	if len(mesh.Tangents) > 0 {
		attribs++
	}
	if len(mesh.UVs) > 0 {
		attribs++
	}
	g.SetVertexAttributeCount(attribs)

	if err := g.CommitGeometry(); err != nil {
		return nil, err
	}
	return g, nil
}

// displacementFunc offsets tessellated vertices along the normal by the
// displacement texture's luminance scaled by the material amount.
func displacementFunc(mesh *MeshData) traversal.DisplacementFunc {
	return func(_ any, primID uint32, u, v float32, _, _ math.Vec3) float32 {
		mat := mesh.Material
		tex := mat.Textures[materials.SlotDisplacement]
		if tex == nil {
			return 0
		}
		uv, ok := mesh.InterpolateUV(int(primID), u, v)
		if !ok {
			return 0
		}
		return tex.SamplePoint(uv).Luminance() * mat.DisplacementScale
	}
}

func bindCurve(device *traversal.Device, curve *CurveData) (*traversal.Geometry, error) {
	g := device.NewGeometry(traversal.GeometryRoundCurve)
	if err := g.SetSharedBuffer(traversal.SlotVertex, traversal.Format4f, curve.ControlPoints, 0, 4, len(curve.ControlPoints)/4); err != nil {
		return nil, err
	}
	if err := g.SetSharedBuffer(traversal.SlotIndex, traversal.Format1u, curve.SpanIndices, 0, 1, len(curve.SpanIndices)); err != nil {
		return nil, err
	}
	if err := g.CommitGeometry(); err != nil {
		return nil, err
	}
	return g, nil
}
