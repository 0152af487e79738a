// Package renderer orchestrates a render session: tile scheduling over a
// worker pool, per-worker kernel contexts, accumulation, and frame output.
package renderer

import (
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"

	"path-tracer/core"
	"path-tracer/internal/logger"
	"path-tracer/internal/traversal"
	"path-tracer/kernel"
	"path-tracer/sampling"
	"path-tracer/scene"
)

// Tile is one scheduling unit: a square pixel block with a disjoint range
// of the accumulator.
type Tile struct {
	Index      int
	X, Y       int
	W, H       int
	Incomplete bool
}

// Summary reports what a session did, including recovered-error counters.
type Summary struct {
	Width, Height   int
	SamplesPerPixel int
	Tiles           int
	IncompleteTiles int
	Stats           kernel.Stats
}

// Session owns the resources of one render run. Scene data is immutable
// while workers execute.
type Session struct {
	Config  kernel.Config
	Model   *scene.ModelResource
	Handle  *scene.SceneHandle
	Camera  *scene.Camera
	Width   int
	Height  int
	Workers int

	accum []core.Color
	tiles []Tile
}

// NewSession binds the model to the traversal backend and prepares tiles.
func NewSession(cfg kernel.Config, model *scene.ModelResource, device *traversal.Device, width, height int) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("renderer: %w", err)
	}
	handle, err := model.BindTraversal(device, scene.BindOptions{
		EnableDisplacement: cfg.EnableDisplacement,
		TessellationRate:   cfg.TessellationRate,
	})
	if err != nil {
		return nil, err
	}

	s := &Session{
		Config:  cfg,
		Model:   model,
		Handle:  handle,
		Camera:  scene.NewCamera(model.Camera, width, height),
		Width:   width,
		Height:  height,
		Workers: runtime.NumCPU(),
		accum:   make([]core.Color, width*height),
	}
	s.buildTiles()
	return s, nil
}

// Close releases the traversal scene.
func (s *Session) Close() {
	if s.Handle != nil {
		s.Handle.Release()
		s.Handle = nil
	}
}

func (s *Session) buildTiles() {
	size := s.Config.TileSize
	idx := 0
	for y := 0; y < s.Height; y += size {
		for x := 0; x < s.Width; x += size {
			w := size
			if x+w > s.Width {
				w = s.Width - x
			}
			h := size
			if y+h > s.Height {
				h = s.Height - y
			}
			s.tiles = append(s.tiles, Tile{Index: idx, X: x, Y: y, W: w, H: h})
			idx++
		}
	}
}

// Render runs the worker pool to completion or cancellation and returns
// the session summary. Cancellation is polled between pixels; cancelled
// tiles are marked incomplete.
func (s *Session) Render(ctx context.Context) (Summary, error) {
	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(s.tiles) {
		workers = len(s.tiles)
	}

	logger.Info("render start",
		"width", s.Width, "height", s.Height,
		"spp", s.Config.SamplesPerPixel,
		"tiles", len(s.tiles), "workers", workers)

	next := make(chan *Tile)
	grp, gctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		defer close(next)
		for i := range s.tiles {
			select {
			case next <- &s.tiles[i]:
			case <-gctx.Done():
				// Remaining tiles never start; mark them incomplete.
				for j := i; j < len(s.tiles); j++ {
					s.tiles[j].Incomplete = true
				}
				return nil
			}
		}
		return nil
	})

	statsCh := make(chan kernel.Stats, workers)
	for w := 0; w < workers; w++ {
		worker := w
		grp.Go(func() error {
			var total kernel.Stats
			for tile := range next {
				s.renderTile(gctx, tile, worker, &total)
			}
			statsCh <- total
			return nil
		})
	}

	err := grp.Wait()
	close(statsCh)

	summary := Summary{
		Width:           s.Width,
		Height:          s.Height,
		SamplesPerPixel: s.Config.SamplesPerPixel,
		Tiles:           len(s.tiles),
	}
	for st := range statsCh {
		summary.Stats.RaysTraced += st.RaysTraced
		summary.Stats.NonFiniteDropped += st.NonFiniteDropped
		summary.Stats.ZeroPdfSkipped += st.ZeroPdfSkipped
		summary.Stats.LengthRejected += st.LengthRejected
		summary.Stats.RouletteKilled += st.RouletteKilled
	}
	for i := range s.tiles {
		if s.tiles[i].Incomplete {
			summary.IncompleteTiles++
		}
	}

	logger.Info("render done",
		"rays", summary.Stats.RaysTraced,
		"incompleteTiles", summary.IncompleteTiles,
		"nonFiniteDropped", summary.Stats.NonFiniteDropped)
	return summary, err
}

// renderTile walks the tile pixel by pixel. The sampler is seeded from
// (tileIndex, sampleIndex) so results reproduce under any worker count or
// tile interleaving.
func (s *Session) renderTile(ctx context.Context, tile *Tile, worker int, total *kernel.Stats) {
	for sample := 0; sample < s.Config.SamplesPerPixel; sample++ {
		seed := sampling.SessionSeed(uint32(tile.Index), uint32(sample))
		smp := sampling.NewSampler(seed, uint64(tile.Index))
		kctx := kernel.NewKernelContext(&s.Config, s.Handle, s.Camera, s.accum, worker, smp)

		for py := tile.Y; py < tile.Y+tile.H; py++ {
			for px := tile.X; px < tile.X+tile.W; px++ {
				select {
				case <-ctx.Done():
					tile.Incomplete = true
					accumulateStats(total, &kctx.Stats)
					return
				default:
				}
				kctx.TracePixel(px, py, uint32(sample))
			}
		}
		accumulateStats(total, &kctx.Stats)
	}
}

func accumulateStats(dst, src *kernel.Stats) {
	dst.RaysTraced += src.RaysTraced
	dst.NonFiniteDropped += src.NonFiniteDropped
	dst.ZeroPdfSkipped += src.ZeroPdfSkipped
	dst.LengthRejected += src.LengthRejected
	dst.RouletteKilled += src.RouletteKilled
	*src = kernel.Stats{}
}

// Pixel returns the mean radiance of a pixel after rendering.
func (s *Session) Pixel(x, y int) core.Color {
	return s.accum[y*s.Width+x].Scale(1 / float32(s.Config.SamplesPerPixel))
}

// MeanLuminance averages the frame, a convenience for furnace-style
// checks.
func (s *Session) MeanLuminance() float32 {
	sum := float64(0)
	for i := range s.accum {
		sum += float64(s.accum[i].Luminance())
	}
	return float32(sum / float64(len(s.accum)) / float64(s.Config.SamplesPerPixel))
}
