package kernel

import (
	"path-tracer/core"
	"path-tracer/materials"
	"path-tracer/math"
)

// Ray is one path segment on the kernel stack. Immutable once inserted.
type Ray struct {
	Origin    math.Vec3
	Direction math.Vec3

	RxDirection      math.Vec3
	RyDirection      math.Vec3
	HasDifferentials bool

	Throughput core.Color
	Pixel      uint32
	Bounce     uint32

	// Medium is the participating medium the ray travels through; nil is
	// vacuum.
	Medium *materials.MediumParameters

	// prevPdf and prevDelta describe the BSDF sample that spawned this
	// ray, for MIS weighting when the ray lands on an emitter.
	prevPdf   float32
	prevDelta bool
}
