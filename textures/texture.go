// Package textures implements the texture backend contract: resource
// loading with mip-chain construction and filtered sampling with
// derivative-driven level selection.
package textures

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"

	"path-tracer/core"
	"path-tracer/internal/logger"
	"path-tracer/math"
)

// mipLevel stores one level as linear-light RGBA floats.
type mipLevel struct {
	width  int
	height int
	texels []core.Color
}

// TextureResource is an immutable decoded texture with a full mip chain.
// Safe for concurrent sampling after construction.
type TextureResource struct {
	Name   string
	Width  int
	Height int
	mips   []mipLevel
}

// Manager caches loaded texture resources by name. Lookups are safe for
// concurrent use; loads are expected to be serialized during resource init.
type Manager struct {
	root     string
	mu       sync.RWMutex
	textures map[string]*TextureResource
}

func NewManager(root string) *Manager {
	return &Manager{
		root:     root,
		textures: make(map[string]*TextureResource),
	}
}

// ReadTextureResource loads and decodes the named texture, returning the
// cached resource when present.
func (m *Manager) ReadTextureResource(name string) (*TextureResource, error) {
	m.mu.RLock()
	if tex, ok := m.textures[name]; ok {
		m.mu.RUnlock()
		return tex, nil
	}
	m.mu.RUnlock()

	path := m.root + "/" + name
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("texture %q: %w", name, core.ErrMissingAsset)
		}
		return nil, fmt.Errorf("texture %q: %v: %w", name, err, core.ErrIo)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("texture %q decode: %v: %w", name, err, core.ErrTexture)
	}

	tex := FromImage(name, img)
	logger.Debug("texture loaded", "name", name, "width", tex.Width, "height", tex.Height, "mips", len(tex.mips))

	m.mu.Lock()
	m.textures[name] = tex
	m.mu.Unlock()
	return tex, nil
}

// ShutdownTextureResource drops the named resource from the cache.
func (m *Manager) ShutdownTextureResource(name string) {
	m.mu.Lock()
	delete(m.textures, name)
	m.mu.Unlock()
}

// Shutdown drops every cached resource.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.textures = make(map[string]*TextureResource)
	m.mu.Unlock()
}

// FromImage converts a decoded image into a linear-light resource and
// builds its mip chain with successive half-size resamples.
func FromImage(name string, img image.Image) *TextureResource {
	base := toNRGBA(img)
	tex := &TextureResource{
		Name:   name,
		Width:  base.Bounds().Dx(),
		Height: base.Bounds().Dy(),
	}
	tex.mips = append(tex.mips, levelFromNRGBA(base))

	cur := base
	for cur.Bounds().Dx() > 1 || cur.Bounds().Dy() > 1 {
		w := cur.Bounds().Dx() / 2
		h := cur.Bounds().Dy() / 2
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		next := image.NewNRGBA(image.Rect(0, 0, w, h))
		xdraw.CatmullRom.Scale(next, next.Bounds(), cur, cur.Bounds(), xdraw.Src, nil)
		tex.mips = append(tex.mips, levelFromNRGBA(next))
		cur = next
	}
	return tex
}

func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	n := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	xdraw.Draw(n, n.Bounds(), img, b.Min, xdraw.Src)
	return n
}

func levelFromNRGBA(img *image.NRGBA) mipLevel {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	lv := mipLevel{width: w, height: h, texels: make([]core.Color, w*h)}
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			lv.texels[y*w+x] = core.Color{
				R: srgbToLinear(float32(row[x*4+0]) / 255),
				G: srgbToLinear(float32(row[x*4+1]) / 255),
				B: srgbToLinear(float32(row[x*4+2]) / 255),
				A: float32(row[x*4+3]) / 255,
			}
		}
	}
	return lv
}

func srgbToLinear(c float32) float32 {
	if c <= 0.04045 {
		return c / 12.92
	}
	return math.Powf((c+0.055)/1.055, 2.4)
}
