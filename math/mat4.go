package math

type Mat4 [4][4]float32

func Mat4Identity() Mat4 {
	return Mat4{
		{1, 0, 0, 0},
		{0, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
}

func Mat4Zero() Mat4 {
	return Mat4{}
}

func (m Mat4) Mul(other Mat4) Mat4 {
	result := Mat4Zero()
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			for k := 0; k < 4; k++ {
				result[i][j] += m[i][k] * other[k][j]
			}
		}
	}
	return result
}

func (m Mat4) MulVec(v Vec4) Vec4 {
	return v.MulMat(m)
}

// MulPoint transforms a position (w=1) and divides through by w.
func (m Mat4) MulPoint(v Vec3) Vec3 {
	return m.MulVec(v.ToVec4(1.0)).ToVec3DivW()
}

// MulDirection transforms a direction (w=0); translation does not apply.
func (m Mat4) MulDirection(v Vec3) Vec3 {
	return m.MulVec(v.ToVec4(0.0)).ToVec3()
}

func (m Mat4) Transpose() Mat4 {
	return Mat4{
		{m[0][0], m[1][0], m[2][0], m[3][0]},
		{m[0][1], m[1][1], m[2][1], m[3][1]},
		{m[0][2], m[1][2], m[2][2], m[3][2]},
		{m[0][3], m[1][3], m[2][3], m[3][3]},
	}
}

func Mat4Translation(translation Vec3) Mat4 {
	m := Mat4Identity()
	m[3][0] = translation.X
	m[3][1] = translation.Y
	m[3][2] = translation.Z
	return m
}

func Mat4Scale(scale Vec3) Mat4 {
	m := Mat4Identity()
	m[0][0] = scale.X
	m[1][1] = scale.Y
	m[2][2] = scale.Z
	return m
}

// Inverse computes the general inverse by cofactor expansion. Returns the
// identity when the matrix is singular.
func (m Mat4) Inverse() Mat4 {
	a := m

	s0 := a[0][0]*a[1][1] - a[1][0]*a[0][1]
	s1 := a[0][0]*a[1][2] - a[1][0]*a[0][2]
	s2 := a[0][0]*a[1][3] - a[1][0]*a[0][3]
	s3 := a[0][1]*a[1][2] - a[1][1]*a[0][2]
	s4 := a[0][1]*a[1][3] - a[1][1]*a[0][3]
	s5 := a[0][2]*a[1][3] - a[1][2]*a[0][3]

	c5 := a[2][2]*a[3][3] - a[3][2]*a[2][3]
	c4 := a[2][1]*a[3][3] - a[3][1]*a[2][3]
	c3 := a[2][1]*a[3][2] - a[3][1]*a[2][2]
	c2 := a[2][0]*a[3][3] - a[3][0]*a[2][3]
	c1 := a[2][0]*a[3][2] - a[3][0]*a[2][2]
	c0 := a[2][0]*a[3][1] - a[3][0]*a[2][1]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 {
		return Mat4Identity()
	}
	inv := 1.0 / det

	var r Mat4
	r[0][0] = (a[1][1]*c5 - a[1][2]*c4 + a[1][3]*c3) * inv
	r[0][1] = (-a[0][1]*c5 + a[0][2]*c4 - a[0][3]*c3) * inv
	r[0][2] = (a[3][1]*s5 - a[3][2]*s4 + a[3][3]*s3) * inv
	r[0][3] = (-a[2][1]*s5 + a[2][2]*s4 - a[2][3]*s3) * inv

	r[1][0] = (-a[1][0]*c5 + a[1][2]*c2 - a[1][3]*c1) * inv
	r[1][1] = (a[0][0]*c5 - a[0][2]*c2 + a[0][3]*c1) * inv
	r[1][2] = (-a[3][0]*s5 + a[3][2]*s2 - a[3][3]*s1) * inv
	r[1][3] = (a[2][0]*s5 - a[2][2]*s2 + a[2][3]*s1) * inv

	r[2][0] = (a[1][0]*c4 - a[1][1]*c2 + a[1][3]*c0) * inv
	r[2][1] = (-a[0][0]*c4 + a[0][1]*c2 - a[0][3]*c0) * inv
	r[2][2] = (a[3][0]*s4 - a[3][1]*s2 + a[3][3]*s0) * inv
	r[2][3] = (-a[2][0]*s4 + a[2][1]*s2 - a[2][3]*s0) * inv

	r[3][0] = (-a[1][0]*c3 + a[1][1]*c1 - a[1][2]*c0) * inv
	r[3][1] = (a[0][0]*c3 - a[0][1]*c1 + a[0][2]*c0) * inv
	r[3][2] = (-a[3][0]*s3 + a[3][1]*s1 - a[3][2]*s0) * inv
	r[3][3] = (a[2][0]*s3 - a[2][1]*s1 + a[2][2]*s0) * inv

	return r
}
