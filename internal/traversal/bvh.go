package traversal

import (
	"sort"

	"path-tracer/math"
)

// bvhNode is a flat binary BVH node. Interior nodes store child indices;
// leaves store a primitive range in the reordered prim array.
type bvhNode struct {
	bounds math.AABB
	left   int32 // interior: left child; leaf: first primitive
	right  int32 // interior: right child; leaf: -count
}

func (n *bvhNode) isLeaf() bool {
	return n.right < 0
}

const leafPrimTarget = 4

func (s *Scene) buildBVH() {
	s.nodes = s.nodes[:0]
	if len(s.prims) == 0 {
		return
	}

	bounds := make([]math.AABB, len(s.prims))
	centers := make([]math.Vec3, len(s.prims))
	for i := range s.prims {
		bounds[i] = s.prims[i].prim.bounds()
		centers[i] = bounds[i].Center()
	}

	order := make([]int, len(s.prims))
	for i := range order {
		order[i] = i
	}

	var build func(lo, hi int) int32
	build = func(lo, hi int) int32 {
		nodeBounds := math.EmptyAABB()
		for _, pi := range order[lo:hi] {
			nodeBounds = nodeBounds.Union(bounds[pi])
		}

		idx := int32(len(s.nodes))
		s.nodes = append(s.nodes, bvhNode{bounds: nodeBounds})

		if hi-lo <= leafPrimTarget {
			s.nodes[idx].left = int32(lo)
			s.nodes[idx].right = -int32(hi - lo)
			return idx
		}

		// Median split along the widest centroid axis.
		extent := nodeBounds.Extent()
		axis := 0
		if extent.Y > extent.X {
			axis = 1
		}
		if extent.Z > extent.X && extent.Z > extent.Y {
			axis = 2
		}
		slice := order[lo:hi]
		sort.Slice(slice, func(a, b int) bool {
			return axisValue(centers[slice[a]], axis) < axisValue(centers[slice[b]], axis)
		})
		mid := lo + (hi-lo)/2

		left := build(lo, mid)
		right := build(mid, hi)
		s.nodes[idx].left = left
		s.nodes[idx].right = right
		return idx
	}
	build(0, len(s.prims))

	// Reorder primitives into leaf order so leaves address contiguous runs.
	reordered := make([]scenePrim, len(s.prims))
	for i, pi := range order {
		reordered[i] = s.prims[pi]
	}
	s.prims = reordered
}

func axisValue(v math.Vec3, axis int) float32 {
	switch axis {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}

const maxTraversalDepth = 64

// Intersect1 finds the closest accepted hit along the ray. Candidate hits
// on filtered geometry are vetted by the filter callback before acceptance.
// Returns false and leaves hit with InvalidID on miss.
func (s *Scene) Intersect1(r *Ray, hit *Hit) bool {
	hit.GeomID = InvalidID
	hit.PrimID = InvalidID
	if len(s.nodes) == 0 {
		return false
	}

	invDir := math.Vec3{X: safeInv(r.Dir.X), Y: safeInv(r.Dir.Y), Z: safeInv(r.Dir.Z)}
	tFar := r.TFar

	var stack [maxTraversalDepth]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		node := &s.nodes[stack[sp]]
		if !node.bounds.IntersectRay(r.Origin, invDir, r.TNear, tFar) {
			continue
		}
		if !node.isLeaf() {
			stack[sp] = node.left
			sp++
			stack[sp] = node.right
			sp++
			continue
		}

		first := int(node.left)
		count := int(-node.right)
		for i := first; i < first+count; i++ {
			cand := &s.prims[i]
			seg := *r
			seg.TFar = tFar
			t, u, v, ng, ok := cand.prim.intersect(&seg)
			if !ok {
				continue
			}
			if cand.geom.filter != nil {
				args := FilterArgs{
					GeomID:  cand.geomID,
					PrimID:  cand.prim.primID,
					U:       u,
					V:       v,
					UserPtr: cand.geom.userPtr,
					Valid:   true,
				}
				cand.geom.filter(&args)
				if !args.Valid {
					continue
				}
			}
			tFar = t
			hit.GeomID = cand.geomID
			hit.PrimID = cand.prim.primID
			hit.U = u
			hit.V = v
			hit.T = t
			hit.Ng = ng
		}
	}
	return hit.GeomID != InvalidID
}

// Occluded1 reports whether anything accepted blocks the ray segment.
func (s *Scene) Occluded1(r *Ray) bool {
	if len(s.nodes) == 0 {
		return false
	}
	invDir := math.Vec3{X: safeInv(r.Dir.X), Y: safeInv(r.Dir.Y), Z: safeInv(r.Dir.Z)}

	var stack [maxTraversalDepth]int32
	sp := 0
	stack[sp] = 0
	sp++

	for sp > 0 {
		sp--
		node := &s.nodes[stack[sp]]
		if !node.bounds.IntersectRay(r.Origin, invDir, r.TNear, r.TFar) {
			continue
		}
		if !node.isLeaf() {
			stack[sp] = node.left
			sp++
			stack[sp] = node.right
			sp++
			continue
		}

		first := int(node.left)
		count := int(-node.right)
		for i := first; i < first+count; i++ {
			prim := &s.prims[i]
			_, u, v, _, ok := prim.prim.intersect(r)
			if !ok {
				continue
			}
			if prim.geom.filter != nil {
				args := FilterArgs{
					GeomID:  prim.geomID,
					PrimID:  prim.prim.primID,
					U:       u,
					V:       v,
					UserPtr: prim.geom.userPtr,
					Valid:   true,
				}
				prim.geom.filter(&args)
				if !args.Valid {
					continue
				}
			}
			return true
		}
	}
	return false
}

func safeInv(x float32) float32 {
	if x == 0 {
		return float32(1e30)
	}
	return 1 / x
}
