package sampling

// Quasi-random sequence primitives used by the stratified sampler: the
// radical inverse in bases 2 and 3 (Halton) for the per-pixel
// Cranley-Patterson offsets and the R2 additive recurrence for image-plane
// jitter.

// RadicalInverseBase2 reverses the bits of i as a fraction in [0, 1).
func RadicalInverseBase2(i uint32) float32 {
	i = (i << 16) | (i >> 16)
	i = ((i & 0x00ff00ff) << 8) | ((i & 0xff00ff00) >> 8)
	i = ((i & 0x0f0f0f0f) << 4) | ((i & 0xf0f0f0f0) >> 4)
	i = ((i & 0x33333333) << 2) | ((i & 0xcccccccc) >> 2)
	i = ((i & 0x55555555) << 1) | ((i & 0xaaaaaaaa) >> 1)
	return float32(i) * (1.0 / 4294967296.0)
}

// RadicalInverseBase3 is the base-3 digit reversal of i in [0, 1).
func RadicalInverseBase3(i uint32) float32 {
	inv := float32(0)
	base := float32(1.0 / 3.0)
	for i > 0 {
		inv += float32(i%3) * base
		i /= 3
		base *= 1.0 / 3.0
	}
	return inv
}

// r2Alpha1 and r2Alpha2 are the fractional parts of 1/phi2 and 1/phi2^2
// where phi2 is the plastic number, the 2D generalization of the golden
// ratio.
const (
	r2Alpha1 = 0.7548776662466927
	r2Alpha2 = 0.5698402909980532
)

// R2 returns the i-th point of the R2 low-discrepancy sequence offset by a
// per-pixel Cranley-Patterson rotation.
func R2(i uint32, offsetU, offsetV float32) (float32, float32) {
	u := float32(mod1(float64(i)*r2Alpha1)) + offsetU
	v := float32(mod1(float64(i)*r2Alpha2)) + offsetV
	if u >= 1 {
		u -= 1
	}
	if v >= 1 {
		v -= 1
	}
	return u, v
}

func mod1(x float64) float64 {
	return x - float64(int64(x))
}
