package traversal

import (
	"fmt"

	"path-tracer/core"
	"path-tracer/math"
)

type primKind uint8

const (
	primTriangle primKind = iota
	primCapsule
)

// primitive is the flattened intersectable unit. Triangles carry parametric
// coordinates at each corner so quad and subdivision patches report the
// parent-face (u, v) instead of raw barycentrics. Capsules reuse p0/p1 as
// segment endpoints with radii r0/r1.
type primitive struct {
	kind   primKind
	primID uint32

	p0, p1, p2    math.Vec3
	uv0, uv1, uv2 math.Vec2
	r0, r1        float32
}

func (p *primitive) bounds() math.AABB {
	b := math.EmptyAABB().Grow(p.p0).Grow(p.p1)
	if p.kind == primTriangle {
		return b.Grow(p.p2)
	}
	r := math.Maxf(p.r0, p.r1)
	pad := math.Vec3{X: r, Y: r, Z: r}
	return math.AABB{Min: b.Min.Sub(pad), Max: b.Max.Add(pad)}
}

const intersectEpsilon = 1e-7

// intersect tests the primitive against the ray segment. On hit it returns
// t, the interpolated parametric (u, v), and the geometric normal.
func (p *primitive) intersect(r *Ray) (t, u, v float32, ng math.Vec3, ok bool) {
	if p.kind == primCapsule {
		return p.intersectCapsule(r)
	}

	// Moller-Trumbore
	e1 := p.p1.Sub(p.p0)
	e2 := p.p2.Sub(p.p0)
	pv := r.Dir.Cross(e2)
	det := e1.Dot(pv)
	if math.Absf(det) < intersectEpsilon {
		return 0, 0, 0, math.Vec3{}, false
	}
	invDet := 1 / det
	tv := r.Origin.Sub(p.p0)
	bu := tv.Dot(pv) * invDet
	if bu < 0 || bu > 1 {
		return 0, 0, 0, math.Vec3{}, false
	}
	qv := tv.Cross(e1)
	bv := r.Dir.Dot(qv) * invDet
	if bv < 0 || bu+bv > 1 {
		return 0, 0, 0, math.Vec3{}, false
	}
	t = e2.Dot(qv) * invDet
	if t < r.TNear || t > r.TFar {
		return 0, 0, 0, math.Vec3{}, false
	}

	w := 1 - bu - bv
	uv := p.uv0.Mul(w).Add(p.uv1.Mul(bu)).Add(p.uv2.Mul(bv))
	return t, uv.X, uv.Y, e1.Cross(e2), true
}

// intersectCapsule treats the segment as a sphere-swept cylinder with the
// mean of the endpoint radii, capped by spheres. Curve segments are short
// after flattening, so the constant-radius linearization stays inside the
// control-point radius envelope.
func (p *primitive) intersectCapsule(r *Ray) (t, u, v float32, ng math.Vec3, ok bool) {
	radius := 0.5 * (p.r0 + p.r1)
	axis := p.p1.Sub(p.p0)
	axisLen2 := axis.LengthSqr()
	if axisLen2 < intersectEpsilon {
		return 0, 0, 0, math.Vec3{}, false
	}

	best := r.TFar
	found := false
	var bestU float32
	var bestNg math.Vec3

	// Infinite cylinder about the axis, clipped to the segment.
	ao := r.Origin.Sub(p.p0)
	dPerp := r.Dir.Sub(axis.Mul(r.Dir.Dot(axis) / axisLen2))
	oPerp := ao.Sub(axis.Mul(ao.Dot(axis) / axisLen2))
	a := dPerp.LengthSqr()
	if a > intersectEpsilon {
		b := 2 * dPerp.Dot(oPerp)
		c := oPerp.LengthSqr() - radius*radius
		disc := b*b - 4*a*c
		if disc > 0 {
			sq := math.Sqrtf(disc)
			for _, tc := range [2]float32{(-b - sq) / (2 * a), (-b + sq) / (2 * a)} {
				if tc < r.TNear || tc > best {
					continue
				}
				hit := r.Origin.Add(r.Dir.Mul(tc))
				s := hit.Sub(p.p0).Dot(axis) / axisLen2
				if s < 0 || s > 1 {
					continue
				}
				onAxis := p.p0.Add(axis.Mul(s))
				best, bestU, bestNg, found = tc, s, hit.Sub(onAxis), true
				break
			}
		}
	}

	// Cap spheres at the endpoints.
	for i, center := range [2]math.Vec3{p.p0, p.p1} {
		oc := r.Origin.Sub(center)
		b := 2 * oc.Dot(r.Dir)
		c := oc.LengthSqr() - radius*radius
		disc := b*b - 4*c
		if disc <= 0 {
			continue
		}
		sq := math.Sqrtf(disc)
		tc := (-b - sq) / 2
		if tc < r.TNear {
			tc = (-b + sq) / 2
		}
		if tc < r.TNear || tc > best {
			continue
		}
		hit := r.Origin.Add(r.Dir.Mul(tc))
		best, bestU, bestNg, found = tc, float32(i), hit.Sub(center), true
	}

	if !found {
		return 0, 0, 0, math.Vec3{}, false
	}
	return best, bestU, 0, bestNg, true
}

func (g *Geometry) commitTriangles() error {
	pos, idx, err := g.meshBuffers(3)
	if err != nil {
		return err
	}
	faces := len(idx) / 3
	g.prims = make([]primitive, 0, faces)
	for f := 0; f < faces; f++ {
		p := primitive{
			kind:   primTriangle,
			primID: uint32(f),
			p0:     pos(idx[f*3]),
			p1:     pos(idx[f*3+1]),
			p2:     pos(idx[f*3+2]),
			uv0:    math.Vec2{},
			uv1:    math.Vec2{X: 1},
			uv2:    math.Vec2{Y: 1},
		}
		g.prims = append(g.prims, p)
	}
	g.computeBounds()
	return nil
}

func (g *Geometry) commitQuads() error {
	pos, idx, err := g.meshBuffers(4)
	if err != nil {
		return err
	}
	faces := len(idx) / 4
	g.prims = make([]primitive, 0, 2*faces)
	for f := 0; f < faces; f++ {
		v0 := pos(idx[f*4])
		v1 := pos(idx[f*4+1])
		v2 := pos(idx[f*4+2])
		v3 := pos(idx[f*4+3])
		g.prims = append(g.prims,
			primitive{
				kind: primTriangle, primID: uint32(f),
				p0: v0, p1: v1, p2: v3,
				uv0: math.Vec2{}, uv1: math.Vec2{X: 1}, uv2: math.Vec2{Y: 1},
			},
			primitive{
				kind: primTriangle, primID: uint32(f),
				p0: v2, p1: v3, p2: v1,
				uv0: math.Vec2{X: 1, Y: 1}, uv1: math.Vec2{Y: 1}, uv2: math.Vec2{X: 1},
			},
		)
	}
	g.computeBounds()
	return nil
}

// commitSubdivision linearly tessellates each face into a tessRate x
// tessRate grid, displacing grid vertices along the interpolated normal
// when a displacement function is installed. True limit-surface smoothing
// is not performed; the subdivision mode is recorded but does not change
// the tessellation.
func (g *Geometry) commitSubdivision() error {
	idxBuf, okIdx := g.buffers[SlotIndex]
	if !okIdx {
		return fmt.Errorf("traversal: subdivision geometry missing index buffer: %w", core.ErrBackend)
	}
	per := strideOf(idxBuf.format)
	pos, idx, err := g.meshBuffers(per)
	if err != nil {
		return err
	}
	normal := g.normalFetcher()

	n := int(g.tessRate)
	if n < 1 {
		n = 1
	}
	faces := len(idx) / per
	g.prims = make([]primitive, 0, 2*n*n*faces)

	for f := 0; f < faces; f++ {
		corners := make([]math.Vec3, per)
		cornerNs := make([]math.Vec3, per)
		for c := 0; c < per; c++ {
			corners[c] = pos(idx[f*per+c])
			cornerNs[c] = normal(idx[f*per+c])
		}

		// Grid vertex at parametric (s, t), displaced.
		vert := func(s, t float32) math.Vec3 {
			var p, nrm math.Vec3
			if per == 4 {
				p = bilerp(corners[0], corners[1], corners[2], corners[3], s, t)
				nrm = bilerp(cornerNs[0], cornerNs[1], cornerNs[2], cornerNs[3], s, t).Normalize()
			} else {
				w := math.Saturate(1 - s - t)
				p = corners[0].Mul(w).Add(corners[1].Mul(s)).Add(corners[2].Mul(t))
				nrm = cornerNs[0].Mul(w).Add(cornerNs[1].Mul(s)).Add(cornerNs[2].Mul(t)).Normalize()
			}
			if g.displacement != nil {
				p = p.Add(nrm.Mul(g.displacement(g.userPtr, uint32(f), s, t, p, nrm)))
			}
			return p
		}

		fn := float32(n)
		for j := 0; j < n; j++ {
			for i := 0; i < n; i++ {
				s0, s1 := float32(i)/fn, float32(i+1)/fn
				t0, t1 := float32(j)/fn, float32(j+1)/fn
				if per == 3 && i+j >= n {
					continue
				}
				p00, p10 := vert(s0, t0), vert(s1, t0)
				p01, p11 := vert(s0, t1), vert(s1, t1)
				g.prims = append(g.prims,
					primitive{
						kind: primTriangle, primID: uint32(f),
						p0: p00, p1: p10, p2: p01,
						uv0: math.Vec2{X: s0, Y: t0}, uv1: math.Vec2{X: s1, Y: t0}, uv2: math.Vec2{X: s0, Y: t1},
					})
				if per == 3 && i+j+1 == n {
					continue // diagonal cell of a triangle: lower half only
				}
				g.prims = append(g.prims,
					primitive{
						kind: primTriangle, primID: uint32(f),
						p0: p11, p1: p01, p2: p10,
						uv0: math.Vec2{X: s1, Y: t1}, uv1: math.Vec2{X: s0, Y: t1}, uv2: math.Vec2{X: s1, Y: t0},
					},
				)
			}
		}
	}
	g.computeBounds()
	return nil
}

// commitCurve flattens uniform cubic B-spline spans into sphere-swept
// segments. Control points are xyz + radius records; indices address the
// first control point of each span.
func (g *Geometry) commitCurve() error {
	cp, ok := g.buffers[SlotVertex]
	if !ok || cp.format != Format4f {
		return fmt.Errorf("traversal: curve geometry needs a 4f vertex buffer: %w", core.ErrBackend)
	}
	idxBuf, ok := g.buffers[SlotIndex]
	if !ok {
		return fmt.Errorf("traversal: curve geometry missing index buffer: %w", core.ErrBackend)
	}

	point := func(i uint32) math.Vec4 {
		o := int(i) * cp.stride
		return math.Vec4{X: cp.floats[o], Y: cp.floats[o+1], Z: cp.floats[o+2], W: cp.floats[o+3]}
	}

	const flatten = 4 // linear pieces per span
	g.prims = make([]primitive, 0, flatten*idxBuf.count)
	for s := 0; s < idxBuf.count; s++ {
		first := idxBuf.ints[s*idxBuf.stride]
		c0, c1, c2, c3 := point(first), point(first+1), point(first+2), point(first+3)

		prev := bsplinePoint(c0, c1, c2, c3, 0)
		for k := 1; k <= flatten; k++ {
			cur := bsplinePoint(c0, c1, c2, c3, float32(k)/flatten)
			g.prims = append(g.prims, primitive{
				kind:   primCapsule,
				primID: uint32(s),
				p0:     prev.ToVec3(),
				p1:     cur.ToVec3(),
				r0:     prev.W,
				r1:     cur.W,
			})
			prev = cur
		}
	}
	g.computeBounds()
	return nil
}

// bsplinePoint evaluates a uniform cubic B-spline span, radius included.
func bsplinePoint(c0, c1, c2, c3 math.Vec4, t float32) math.Vec4 {
	t2 := t * t
	t3 := t2 * t
	b0 := (1 - 3*t + 3*t2 - t3) / 6
	b1 := (4 - 6*t2 + 3*t3) / 6
	b2 := (1 + 3*t + 3*t2 - 3*t3) / 6
	b3 := t3 / 6
	return c0.Mul(b0).Add(c1.Mul(b1)).Add(c2.Mul(b2)).Add(c3.Mul(b3))
}

func bilerp(v0, v1, v2, v3 math.Vec3, s, t float32) math.Vec3 {
	bottom := v0.Lerp(v1, s)
	top := v3.Lerp(v2, s)
	return bottom.Lerp(top, t)
}

// meshBuffers resolves the position fetcher and index slice for a mesh-like
// geometry with indicesPerFace indices per face.
func (g *Geometry) meshBuffers(indicesPerFace int) (func(uint32) math.Vec3, []uint32, error) {
	vb, ok := g.buffers[SlotVertex]
	if !ok {
		return nil, nil, fmt.Errorf("traversal: geometry missing vertex buffer: %w", core.ErrBackend)
	}
	ib, ok := g.buffers[SlotIndex]
	if !ok {
		return nil, nil, fmt.Errorf("traversal: geometry missing index buffer: %w", core.ErrBackend)
	}
	pos := func(i uint32) math.Vec3 {
		o := int(i) * vb.stride
		return math.Vec3{X: vb.floats[o], Y: vb.floats[o+1], Z: vb.floats[o+2]}
	}
	return pos, ib.ints[:ib.count*indicesPerFace], nil
}

// normalFetcher falls back to the up axis when no normal buffer is bound.
func (g *Geometry) normalFetcher() func(uint32) math.Vec3 {
	nb, ok := g.buffers[SlotNormal]
	if !ok {
		return func(uint32) math.Vec3 { return math.Vec3Up }
	}
	return func(i uint32) math.Vec3 {
		o := int(i) * nb.stride
		return math.Vec3{X: nb.floats[o], Y: nb.floats[o+1], Z: nb.floats[o+2]}
	}
}

func (g *Geometry) computeBounds() {
	b := math.EmptyAABB()
	for i := range g.prims {
		b = b.Union(g.prims[i].bounds())
	}
	g.bounds = b
}

// Bounds returns the committed geometry's bounds.
func (g *Geometry) Bounds() math.AABB {
	return g.bounds
}
