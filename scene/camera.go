package scene

import (
	"path-tracer/math"
)

// Camera generates primary rays for an image plane. Orientation comes from
// the persisted look direction; Right/Up are the orthonormalized screen
// axes.
type Camera struct {
	Position math.Vec3
	Forward  math.Vec3
	Up       math.Vec3
	Right    math.Vec3
	Fov      float32 // vertical, radians
	Width    int
	Height   int

	tanHalfFov float32
	aspect     float32
}

func NewCamera(info CameraInfo, width, height int) *Camera {
	forward := info.Forward.Normalize()
	right := info.Up.Cross(forward).Normalize()
	up := forward.Cross(right)
	return &Camera{
		Position:   info.Position,
		Forward:    forward,
		Up:         up,
		Right:      right,
		Fov:        info.Fov,
		Width:      width,
		Height:     height,
		tanHalfFov: math.Tanf(info.Fov * 0.5),
		aspect:     float32(width) / float32(height),
	}
}

// LookAtCamera points the camera from position toward target.
func LookAtCamera(position, target, up math.Vec3, fov float32, width, height int) *Camera {
	return NewCamera(CameraInfo{
		Position: position,
		Forward:  target.Sub(position),
		Up:       up,
		Fov:      fov,
	}, width, height)
}

func (c *Camera) direction(px, py float32) math.Vec3 {
	ndcX := (2*px/float32(c.Width) - 1) * c.tanHalfFov * c.aspect
	ndcY := (1 - 2*py/float32(c.Height)) * c.tanHalfFov
	return c.Forward.Add(c.Right.Mul(ndcX)).Add(c.Up.Mul(ndcY)).Normalize()
}

// GenerateRay returns the primary direction for pixel (x, y) with sub-pixel
// jitter, plus the one-pixel differential directions used for texture
// footprints.
func (c *Camera) GenerateRay(x, y int, jitterX, jitterY float32) (dir, rxDir, ryDir math.Vec3) {
	px := float32(x) + jitterX
	py := float32(y) + jitterY
	dir = c.direction(px, py)
	rxDir = c.direction(px+1, py)
	ryDir = c.direction(px, py+1)
	return dir, rxDir, ryDir
}
