package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"path-tracer/baker"
	"path-tracer/internal/logger"
	"path-tracer/internal/traversal"
	"path-tracer/io"
	"path-tracer/renderer"
	"path-tracer/scene"
	"path-tracer/textures"
)

func main() {
	configPath := flag.String("config", "render.toml", "render configuration file")
	bakePath := flag.String("bake", "", "glTF file to bake before rendering")
	output := flag.String("o", "", "output image path (overrides config)")
	debug := flag.Bool("debug", false, "verbose logging")
	flag.Parse()

	if err := logger.Init(*debug); err != nil {
		fmt.Fprintf(os.Stderr, "logger init: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(*configPath, *bakePath, *output); err != nil {
		logger.Error("render failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath, bakePath, output string) error {
	cfg, err := io.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if output != "" {
		cfg.Output = output
	}

	if bakePath != "" {
		model, err := io.LoadGLTF(bakePath, cfg.Asset)
		if err != nil {
			return err
		}
		outputs, err := baker.Bake(model)
		if err != nil {
			return err
		}
		for _, out := range outputs {
			path, err := baker.WriteBakedOutput(cfg.AssetRoot, out)
			if err != nil {
				return err
			}
			logger.Info("baked", "path", path)
		}
	}

	model, err := scene.ReadModel(cfg.AssetRoot, cfg.Asset)
	if err != nil {
		return err
	}
	texManager := textures.NewManager(cfg.TextureRoot)
	if err := model.Initialize(texManager); err != nil {
		return err
	}
	defer model.Shutdown()
	defer texManager.Shutdown()

	device := traversal.NewDevice()
	session, err := renderer.NewSession(cfg.Kernel(), model, device, cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer session.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	summary, err := session.Render(ctx)
	if err != nil {
		return err
	}
	if summary.IncompleteTiles > 0 {
		logger.Warn("render cancelled", "incompleteTiles", summary.IncompleteTiles)
	}

	if err := session.WritePNG(cfg.Output); err != nil {
		return err
	}
	logger.Info("frame written",
		"path", cfg.Output,
		"rays", summary.Stats.RaysTraced,
		"droppedSamples", summary.Stats.NonFiniteDropped)
	return nil
}
