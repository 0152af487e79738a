package io

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"path-tracer/baker"
	"path-tracer/core"
	"path-tracer/internal/logger"
	"path-tracer/materials"
	"path-tracer/math"
	"path-tracer/scene"
)

// LoadGLTF imports a .glb or .gltf file into the baker's model form. Node
// transforms are flattened into world space; every primitive becomes one
// triangle mesh. Externally referenced texture files become texture names
// resolved later against the texture root.
func LoadGLTF(path, modelName string) (*scene.ImportedModel, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gltf open %q: %v: %w", path, err, core.ErrIo)
	}

	model := &scene.ImportedModel{Name: modelName}

	// Texture names: external URIs only; embedded images have no stable
	// file identity for the texture backend.
	texNames := make([]string, len(doc.Textures))
	for i, gt := range doc.Textures {
		if gt.Source == nil {
			continue
		}
		img := doc.Images[*gt.Source]
		if img.URI != "" && !img.IsEmbeddedResource() {
			texNames[i] = img.URI
			model.TextureNames = append(model.TextureNames, img.URI)
		} else {
			logger.Warn("gltf: embedded image skipped", "image", *gt.Source)
		}
	}

	// Materials.
	matNames := make([]string, len(doc.Materials))
	for i, gm := range doc.Materials {
		name := gm.Name
		if name == "" {
			name = fmt.Sprintf("material_%d", i)
		}
		matNames[i] = name

		mat := materials.NewMaterial(name)
		if pbr := gm.PBRMetallicRoughness; pbr != nil {
			cf := pbr.BaseColorFactorOrDefault()
			mat.BaseColor = core.Color{
				R: float32(cf[0]), G: float32(cf[1]),
				B: float32(cf[2]), A: float32(cf[3]),
			}
			mat.Scalars[materials.Roughness] = float32(pbr.RoughnessFactorOrDefault())
			mat.Scalars[materials.Metallic] = float32(pbr.MetallicFactorOrDefault())
			if pbr.BaseColorTexture != nil {
				mat.TextureNames[materials.SlotAlbedo] = texName(texNames, pbr.BaseColorTexture.Index)
			}
			if pbr.MetallicRoughnessTexture != nil {
				mat.TextureNames[materials.SlotRoughnessMetallic] = texName(texNames, pbr.MetallicRoughnessTexture.Index)
			}
		}
		if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
			mat.TextureNames[materials.SlotNormal] = texName(texNames, *gm.NormalTexture.Index)
		}
		if gm.EmissiveTexture != nil {
			mat.TextureNames[materials.SlotEmissive] = texName(texNames, gm.EmissiveTexture.Index)
		}
		ef := gm.EmissiveFactor
		if ef[0] > 0 || ef[1] > 0 || ef[2] > 0 {
			mat.EmissiveColor = core.NewColor(float32(ef[0]), float32(ef[1]), float32(ef[2]))
			mat.Flags |= materials.FlagEmitsLight
		}
		if gm.AlphaMode == gltf.AlphaMask {
			mat.Flags |= materials.FlagAlphaTested
			mat.AlphaThreshold = float32(gm.AlphaCutoffOrDefault())
		}
		if gm.DoubleSided {
			mat.Flags |= materials.FlagDoubleSided
		}
		model.Materials = append(model.Materials, mat)
	}

	// Nodes: flatten the hierarchy, accumulating transforms.
	var walk func(idx int, parent math.Mat4)
	walk = func(idx int, parent math.Mat4) {
		gn := doc.Nodes[idx]
		world := nodeTransform(gn).Mul(parent)
		if gn.Mesh != nil && int(*gn.Mesh) < len(doc.Meshes) {
			for pi, prim := range doc.Meshes[*gn.Mesh].Primitives {
				mesh, err := loadPrimitive(doc, prim, matNames, world)
				if err != nil {
					logger.Warn("gltf: primitive skipped",
						"mesh", *gn.Mesh, "primitive", pi, "error", err)
					continue
				}
				baker.ComputeTangents(&mesh)
				model.Meshes = append(model.Meshes, mesh)
			}
		}
		for _, child := range gn.Children {
			walk(child, world)
		}
	}
	if doc.Scene != nil {
		for _, root := range doc.Scenes[*doc.Scene].Nodes {
			walk(root, math.Mat4Identity())
		}
	} else {
		for i := range doc.Nodes {
			walk(i, math.Mat4Identity())
		}
	}

	// Default camera: frame the bounds from the -Z side.
	bounds := model.Bounds()
	if !bounds.IsEmpty() {
		center, radius := bounds.BoundingSphere()
		model.Camera = scene.CameraInfo{
			Position: center.Add(math.Vec3{Z: -3 * radius}),
			Forward:  math.Vec3Front,
			Up:       math.Vec3Up,
			Fov:      1.0,
		}
	}

	logger.Info("gltf imported",
		"path", path,
		"meshes", len(model.Meshes),
		"materials", len(model.Materials),
		"textures", len(model.TextureNames))
	return model, nil
}

func texName(names []string, idx int) string {
	if idx < 0 || idx >= len(names) {
		return ""
	}
	return names[idx]
}

func nodeTransform(n *gltf.Node) math.Mat4 {
	t := n.TranslationOrDefault()
	s := n.ScaleOrDefault()
	r := n.RotationOrDefault() // x, y, z, w

	rot := quatToMat4(float32(r[0]), float32(r[1]), float32(r[2]), float32(r[3]))
	scale := math.Mat4Scale(math.NewVec3(float32(s[0]), float32(s[1]), float32(s[2])))
	trans := math.Mat4Translation(math.NewVec3(float32(t[0]), float32(t[1]), float32(t[2])))
	return scale.Mul(rot).Mul(trans)
}

func quatToMat4(x, y, z, w float32) math.Mat4 {
	m := math.Mat4Identity()
	m[0][0] = 1 - 2*(y*y+z*z)
	m[0][1] = 2 * (x*y + z*w)
	m[0][2] = 2 * (x*z - y*w)
	m[1][0] = 2 * (x*y - z*w)
	m[1][1] = 1 - 2*(x*x+z*z)
	m[1][2] = 2 * (y*z + x*w)
	m[2][0] = 2 * (x*z + y*w)
	m[2][1] = 2 * (y*z - x*w)
	m[2][2] = 1 - 2*(x*x+y*y)
	return m
}

func loadPrimitive(doc *gltf.Document, prim *gltf.Primitive, matNames []string, world math.Mat4) (scene.ImportedMesh, error) {
	var mesh scene.ImportedMesh
	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return mesh, fmt.Errorf("primitive has no positions")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return mesh, err
	}

	normalMat := world.Inverse().Transpose()
	for _, p := range positions {
		wp := world.MulPoint(math.NewVec3(p[0], p[1], p[2]))
		mesh.Positions = append(mesh.Positions, wp.X, wp.Y, wp.Z)
	}
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, err := modeler.ReadNormal(doc, doc.Accessors[idx], nil)
		if err == nil {
			for _, n := range normals {
				wn := normalMat.MulDirection(math.NewVec3(n[0], n[1], n[2])).Normalize()
				mesh.Normals = append(mesh.Normals, wn.X, wn.Y, wn.Z)
			}
		}
	}
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		uvs, err := modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
		if err == nil {
			for _, uv := range uvs {
				mesh.UVs = append(mesh.UVs, uv[0], uv[1])
			}
		}
	}

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err != nil {
			return mesh, err
		}
		mesh.Indices = indices
	} else {
		mesh.Indices = make([]uint32, len(positions))
		for i := range mesh.Indices {
			mesh.Indices[i] = uint32(i)
		}
	}

	mesh.IndicesPerFace = 3
	if prim.Material != nil && int(*prim.Material) < len(matNames) {
		mesh.MaterialName = matNames[*prim.Material]
	}
	faces := len(mesh.Indices) / 3
	mesh.MaterialIndices = make([]uint32, faces)
	mesh.FaceIndexCounts = make([]uint32, faces)
	for f := 0; f < faces; f++ {
		mesh.FaceIndexCounts[f] = 3
	}
	return mesh, nil
}
