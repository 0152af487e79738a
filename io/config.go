// Package io holds the render configuration format and the glTF importer
// feeding the baker.
package io

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"path-tracer/core"
	"path-tracer/kernel"
)

// RenderConfig is the TOML-backed session configuration.
type RenderConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`

	MaxPathLength            int     `toml:"max_path_length"`
	RayStackCapacity         int     `toml:"ray_stack_capacity"`
	RouletteStart            int     `toml:"roulette_start"`
	SamplesPerPixel          int     `toml:"samples_per_pixel"`
	TileSize                 int     `toml:"tile_size"`
	PreserveRayDifferentials bool    `toml:"preserve_ray_differentials"`
	EnableDisplacement       bool    `toml:"enable_displacement"`
	TessellationRate         float32 `toml:"tessellation_rate"`

	AssetRoot   string `toml:"asset_root"`
	TextureRoot string `toml:"texture_root"`
	Asset       string `toml:"asset"`
	Output      string `toml:"output"`
}

// DefaultConfig returns a renderable baseline.
func DefaultConfig() RenderConfig {
	return RenderConfig{
		Width:                    512,
		Height:                   512,
		MaxPathLength:            8,
		RayStackCapacity:         16,
		RouletteStart:            3,
		SamplesPerPixel:          64,
		TileSize:                 16,
		PreserveRayDifferentials: true,
		TessellationRate:         4,
		AssetRoot:                "assets",
		TextureRoot:              "textures",
		Output:                   "frame.png",
	}
}

// LoadConfig reads a TOML file over the defaults.
func LoadConfig(path string) (RenderConfig, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, fmt.Errorf("config %q: %w", path, core.ErrMissingAsset)
		}
		return cfg, fmt.Errorf("config %q: %v: %w", path, err, core.ErrIo)
	}
	kcfg := cfg.Kernel()
	if err := kcfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %q: %w", path, err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration as TOML.
func SaveConfig(path string, cfg RenderConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("config %q: %v: %w", path, err, core.ErrIo)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return fmt.Errorf("config %q: %v: %w", path, err, core.ErrIo)
	}
	return nil
}

// Kernel projects the kernel-recognized options.
func (c RenderConfig) Kernel() kernel.Config {
	return kernel.Config{
		MaxPathLength:            c.MaxPathLength,
		RayStackCapacity:         c.RayStackCapacity,
		RouletteStart:            c.RouletteStart,
		SamplesPerPixel:          c.SamplesPerPixel,
		TileSize:                 c.TileSize,
		PreserveRayDifferentials: c.PreserveRayDifferentials,
		EnableDisplacement:       c.EnableDisplacement,
		TessellationRate:         c.TessellationRate,
	}
}
