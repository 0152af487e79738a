package sampling

// Sampler produces the random stream for one worker. It is deterministic
// for a given seed, so a fixed (tileIndex, sampleIndex) pairing reproduces
// the same image regardless of worker count.
type Sampler struct {
	state  uint64
	stream uint64
}

// NewSampler seeds a PCG32 generator. Distinct streams decorrelate workers
// that happen to share a seed.
func NewSampler(seed, stream uint64) *Sampler {
	s := &Sampler{stream: stream<<1 | 1}
	s.state = 0
	s.nextUint32()
	s.state += seed
	s.nextUint32()
	return s
}

// SessionSeed derives the canonical seed for a (tileIndex, sampleIndex)
// pair.
func SessionSeed(tileIndex, sampleIndex uint32) uint64 {
	return uint64(tileIndex)<<32 | uint64(sampleIndex)
}

func (s *Sampler) nextUint32() uint32 {
	old := s.state
	s.state = old*6364136223846793005 + s.stream
	xorshifted := uint32(((old >> 18) ^ old) >> 27)
	rot := uint32(old >> 59)
	return (xorshifted >> rot) | (xorshifted << ((-rot) & 31))
}

// Next1D returns a uniform float in [0, 1).
func (s *Sampler) Next1D() float32 {
	return float32(s.nextUint32()>>8) * (1.0 / 16777216.0)
}

// Next2D returns two independent uniforms in [0, 1).
func (s *Sampler) Next2D() (float32, float32) {
	return s.Next1D(), s.Next1D()
}

// Session is the per-(pixel, bounce) sample stream. The first two
// dimensions of bounce zero are the stratified image-plane jitter; every
// later dimension falls back to the sampler's PCG stream.
type Session struct {
	sampler     *Sampler
	pixelIndex  uint32
	sampleIndex uint32
	strataCount uint32
	offsetU     float32
	offsetV     float32
}

// NewSession opens the stream for one pixel sample. samplesPerPixel is
// stored with the session but does not shape the jitter, which is the R2
// point of sampleIndex; the Cranley-Patterson offsets are hashed from the
// pixel index so neighbouring pixels decorrelate.
func (s *Sampler) NewSession(pixelIndex, sampleIndex, samplesPerPixel uint32) Session {
	h := hashPixel(pixelIndex)
	return Session{
		sampler:     s,
		pixelIndex:  pixelIndex,
		sampleIndex: sampleIndex,
		strataCount: samplesPerPixel,
		offsetU:     RadicalInverseBase2(h),
		offsetV:     RadicalInverseBase3(h),
	}
}

// ImageJitter returns the stratified sub-pixel position for this session in
// [0, 1)^2.
func (ss *Session) ImageJitter() (float32, float32) {
	return R2(ss.sampleIndex, ss.offsetU, ss.offsetV)
}

// Next1D draws the next path dimension.
func (ss *Session) Next1D() float32 {
	return ss.sampler.Next1D()
}

// Next2D draws the next two path dimensions.
func (ss *Session) Next2D() (float32, float32) {
	return ss.sampler.Next2D()
}

func hashPixel(i uint32) uint32 {
	i ^= i >> 16
	i *= 0x7feb352d
	i ^= i >> 15
	i *= 0x846ca68b
	i ^= i >> 16
	return i
}
