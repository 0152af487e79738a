package blob

import (
	"encoding/binary"
	"fmt"
	"math"

	"path-tracer/core"
)

// View is an attached, verified window over a blob's payload. It keeps the
// writer's relative offsets and adds the payload base at every dereference,
// so the underlying bytes stay relocatable and may be shared read-only. The
// payload slice borrows from the buffer passed to Attach; the caller owns
// that buffer for the view's lifetime.
type View struct {
	payload []byte
	typeTag uint64
	version uint64
	root    int64
}

// Attach verifies the header, the payload bounds, and every relocation site
// recorded by the writer (site in bounds, target in bounds, target aligned),
// then returns the view. Truncated or oversized input fails with
// core.ErrBlobCorrupt, tag or version mismatch with core.ErrBlobVersion, and
// a misaligned pointee with core.ErrBlobAlignment.
func Attach(raw []byte, typeTag, version uint64) (*View, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("blob attach: %d byte input: %w", len(raw), core.ErrBlobCorrupt)
	}
	if string(raw[:4]) != Magic {
		return nil, fmt.Errorf("blob attach: bad magic: %w", core.ErrBlobCorrupt)
	}
	gotTag := binary.LittleEndian.Uint64(raw[4:])
	gotVersion := binary.LittleEndian.Uint64(raw[12:])
	if gotTag != typeTag || gotVersion != version {
		return nil, fmt.Errorf("blob attach: type %#x v%d, want type %#x v%d: %w",
			gotTag, gotVersion, typeTag, version, core.ErrBlobVersion)
	}
	payloadSize := binary.LittleEndian.Uint64(raw[20:])
	root := int64(binary.LittleEndian.Uint64(raw[28:]))

	relocBase := HeaderSize + int(payloadSize)
	if uint64(len(raw)) < uint64(relocBase)+8 {
		return nil, fmt.Errorf("blob attach: truncated payload: %w", core.ErrBlobCorrupt)
	}
	v := &View{
		payload: raw[HeaderSize:relocBase],
		typeTag: gotTag,
		version: gotVersion,
		root:    root,
	}
	if root < 0 || root > int64(payloadSize) {
		return nil, fmt.Errorf("blob attach: root offset %d: %w", root, core.ErrBlobCorrupt)
	}

	relocCount := binary.LittleEndian.Uint64(raw[relocBase:])
	want := uint64(relocBase) + 8 + 16*relocCount
	if uint64(len(raw)) != want {
		return nil, fmt.Errorf("blob attach: %d bytes, relocation table wants %d: %w",
			len(raw), want, core.ErrBlobCorrupt)
	}
	for i := uint64(0); i < relocCount; i++ {
		entry := relocBase + 8 + int(16*i)
		site := binary.LittleEndian.Uint64(raw[entry:])
		align := binary.LittleEndian.Uint64(raw[entry+8:])
		if site+8 > payloadSize {
			return nil, fmt.Errorf("blob attach: pointer site %d out of bounds: %w", site, core.ErrBlobCorrupt)
		}
		target := binary.LittleEndian.Uint64(v.payload[site:])
		if target == 0 {
			continue // null pointer
		}
		if target > payloadSize {
			return nil, fmt.Errorf("blob attach: pointer target %d out of bounds: %w", target, core.ErrBlobCorrupt)
		}
		if align != 0 && target%align != 0 {
			return nil, fmt.Errorf("blob attach: pointer target %d not %d-aligned: %w",
				target, align, core.ErrBlobAlignment)
		}
	}
	return v, nil
}

// Root returns the payload offset of the root structure.
func (v *View) Root() int64 {
	return v.root
}

// Size returns the payload length.
func (v *View) Size() int64 {
	return int64(len(v.payload))
}

func (v *View) Uint32(off int64) uint32 {
	return binary.LittleEndian.Uint32(v.payload[off:])
}

func (v *View) Uint64(off int64) uint64 {
	return binary.LittleEndian.Uint64(v.payload[off:])
}

func (v *View) Float32(off int64) float32 {
	return math.Float32frombits(v.Uint32(off))
}

// Pointer reads the 64-bit offset stored at off. Returns (0, false) for a
// null pointer, otherwise the payload offset of the pointee.
func (v *View) Pointer(off int64) (int64, bool) {
	raw := v.Uint64(off)
	if raw == 0 {
		return 0, false
	}
	return int64(raw), true
}

// Bytes returns a borrowed slice of n payload bytes at off.
func (v *View) Bytes(off, n int64) []byte {
	return v.payload[off : off+n : off+n]
}

// Float32s copy-decodes count little-endian floats at off.
func (v *View) Float32s(off int64, count int) []float32 {
	out := make([]float32, count)
	for i := range out {
		out[i] = v.Float32(off + int64(4*i))
	}
	return out
}

// Uint32s copy-decodes count little-endian uint32 values at off.
func (v *View) Uint32s(off int64, count int) []uint32 {
	out := make([]uint32, count)
	for i := range out {
		out[i] = v.Uint32(off + int64(4*i))
	}
	return out
}

// Uint16s copy-decodes count little-endian uint16 values at off.
func (v *View) Uint16s(off int64, count int) []uint16 {
	out := make([]uint16, count)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(v.payload[off+int64(2*i):])
	}
	return out
}

// String reads a length-prefixed string: uint32 byte length followed by
// UTF-8 bytes. A length running past the payload yields the empty string
// rather than a fault.
func (v *View) String(off int64) string {
	n := int64(v.Uint32(off))
	if off+4+n > int64(len(v.payload)) {
		return ""
	}
	return string(v.payload[off+4 : off+4+n])
}
