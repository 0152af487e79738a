package math

import "math"

// AABB is an axis-aligned bounding box. The zero value is not a valid box;
// use EmptyAABB so Grow works from the first point.
type AABB struct {
	Min Vec3
	Max Vec3
}

func EmptyAABB() AABB {
	inf := float32(math.Inf(1))
	return AABB{
		Min: Vec3{inf, inf, inf},
		Max: Vec3{-inf, -inf, -inf},
	}
}

func (b AABB) Grow(p Vec3) AABB {
	return AABB{Min: b.Min.Min(p), Max: b.Max.Max(p)}
}

func (b AABB) Union(other AABB) AABB {
	return AABB{Min: b.Min.Min(other.Min), Max: b.Max.Max(other.Max)}
}

func (b AABB) Center() Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b AABB) Extent() Vec3 {
	return b.Max.Sub(b.Min)
}

func (b AABB) IsEmpty() bool {
	return b.Min.X > b.Max.X || b.Min.Y > b.Max.Y || b.Min.Z > b.Max.Z
}

func (b AABB) SurfaceArea() float32 {
	if b.IsEmpty() {
		return 0
	}
	e := b.Extent()
	return 2 * (e.X*e.Y + e.Y*e.Z + e.Z*e.X)
}

// BoundingSphere returns the center and radius of the sphere enclosing the box.
func (b AABB) BoundingSphere() (Vec3, float32) {
	c := b.Center()
	return c, c.Distance(b.Max)
}

// IntersectRay performs the slab test against a ray with precomputed inverse
// direction. Returns false when the [tMin, tMax] interval misses the box.
func (b AABB) IntersectRay(origin, invDir Vec3, tMin, tMax float32) bool {
	t0 := (b.Min.X - origin.X) * invDir.X
	t1 := (b.Max.X - origin.X) * invDir.X
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	if t0 > tMin {
		tMin = t0
	}
	if t1 < tMax {
		tMax = t1
	}
	if tMin > tMax {
		return false
	}

	t0 = (b.Min.Y - origin.Y) * invDir.Y
	t1 = (b.Max.Y - origin.Y) * invDir.Y
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	if t0 > tMin {
		tMin = t0
	}
	if t1 < tMax {
		tMax = t1
	}
	if tMin > tMax {
		return false
	}

	t0 = (b.Min.Z - origin.Z) * invDir.Z
	t1 = (b.Max.Z - origin.Z) * invDir.Z
	if t0 > t1 {
		t0, t1 = t1, t0
	}
	if t0 > tMin {
		tMin = t0
	}
	if t1 < tMax {
		tMax = t1
	}
	return tMin <= tMax
}
