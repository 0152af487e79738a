package kernel

import (
	"fmt"

	"path-tracer/core"
	"path-tracer/sampling"
	"path-tracer/scene"
	"path-tracer/surface"
)

// Config carries the recognized kernel options. Validate before use.
type Config struct {
	MaxPathLength            int
	RayStackCapacity         int
	RouletteStart            int
	SamplesPerPixel          int
	TileSize                 int
	PreserveRayDifferentials bool
	EnableDisplacement       bool
	TessellationRate         float32
}

// Validate enforces the option invariants.
func (c *Config) Validate() error {
	if c.MaxPathLength < 1 {
		return fmt.Errorf("maxPathLength %d: must be >= 1", c.MaxPathLength)
	}
	if c.RayStackCapacity < c.MaxPathLength+2 {
		return fmt.Errorf("rayStackCapacity %d: must be >= maxPathLength+2 (%d)",
			c.RayStackCapacity, c.MaxPathLength+2)
	}
	if c.RouletteStart < 0 {
		return fmt.Errorf("rouletteStart %d: must be >= 0", c.RouletteStart)
	}
	if c.SamplesPerPixel < 1 {
		return fmt.Errorf("samplesPerPixel %d: must be >= 1", c.SamplesPerPixel)
	}
	if c.TileSize < 1 || c.TileSize&(c.TileSize-1) != 0 {
		return fmt.Errorf("tileSize %d: must be a power of two", c.TileSize)
	}
	return nil
}

// Stats are the per-worker recovery counters surfaced in the session
// summary.
type Stats struct {
	RaysTraced       uint64
	NonFiniteDropped uint64
	ZeroPdfSkipped   uint64
	LengthRejected   uint64
	RouletteKilled   uint64
}

// KernelContext is the per-worker transient state. Exclusively owned by
// one worker; the accumulator is shared but each worker writes a disjoint
// pixel range.
type KernelContext struct {
	Accum   []core.Color
	Config  *Config
	Handle  *scene.SceneHandle
	Camera  *scene.Camera
	Sampler *sampling.Sampler
	Worker  int
	Stats   Stats

	stack []Ray
	count int
}

// NewKernelContext allocates the fixed-capacity ray stack for one worker.
func NewKernelContext(cfg *Config, handle *scene.SceneHandle, cam *scene.Camera, accum []core.Color, worker int, smp *sampling.Sampler) *KernelContext {
	return &KernelContext{
		Accum:   accum,
		Config:  cfg,
		Handle:  handle,
		Camera:  cam,
		Sampler: smp,
		Worker:  worker,
		stack:   make([]Ray, cfg.RayStackCapacity),
	}
}

// InsertRay is the sole stack mutator. Rays at the path-length bound are
// silently rejected (counted); stack exhaustion is a configuration fault
// and panics with diagnostics.
func (k *KernelContext) InsertRay(r Ray) bool {
	if int(r.Bounce) >= k.Config.MaxPathLength {
		k.Stats.LengthRejected++
		return false
	}
	if k.count >= len(k.stack) {
		panic(fmt.Sprintf(
			"kernel: ray stack overflow (worker %d, capacity %d, pixel %d, bounce %d); rayStackCapacity is misconfigured",
			k.Worker, len(k.stack), r.Pixel, r.Bounce))
	}
	k.stack[k.count] = r
	k.count++
	return true
}

func (k *KernelContext) popRay() (Ray, bool) {
	if k.count == 0 {
		return Ray{}, false
	}
	k.count--
	return k.stack[k.count], true
}

// StackCount reports the live stack size.
func (k *KernelContext) StackCount() int {
	return k.count
}

// AccumulatePixelEnergy adds throughput-weighted radiance into the pixel
// cell. Non-finite contributions are dropped and counted; negative
// components never enter the accumulator.
func (k *KernelContext) AccumulatePixelEnergy(pixel uint32, throughput, value core.Color) {
	c := throughput.MulColor(value)
	if !c.IsFinite() {
		k.Stats.NonFiniteDropped++
		return
	}
	if c.R < 0 || c.G < 0 || c.B < 0 {
		k.Stats.NonFiniteDropped++
		return
	}
	k.Accum[pixel] = k.Accum[pixel].Add(c)
}

// AccumulateRayEnergy weights by the ray's throughput.
func (k *KernelContext) AccumulateRayEnergy(r *Ray, value core.Color) {
	k.AccumulatePixelEnergy(r.Pixel, r.Throughput, value)
}

// AccumulateHitEnergy weights by the hit's carried throughput; identical
// result to AccumulateRayEnergy for the same throughput value.
func (k *KernelContext) AccumulateHitEnergy(h *surface.HitParameters, value core.Color) {
	k.AccumulatePixelEnergy(h.Pixel, h.Throughput, value)
}
