package voxel

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ChunkKey is an injective encoding of a chunk's lattice coordinates,
// suitable as a dense map key: three 21-bit offset-binary fields packed
// into an int64 rather than a formatted string, keeping map lookups
// allocation-free.
type ChunkKey int64

const (
	keyFieldBits = 21
	keyFieldMask = (int64(1) << keyFieldBits) - 1
	keyOffset    = int64(1) << (keyFieldBits - 1)
)

// NewChunkKey packs lattice coordinates into a ChunkKey.
func NewChunkKey(cx, cy, cz int32) ChunkKey {
	ux := (int64(cx) + keyOffset) & keyFieldMask
	uy := (int64(cy) + keyOffset) & keyFieldMask
	uz := (int64(cz) + keyOffset) & keyFieldMask
	return ChunkKey(ux<<(2*keyFieldBits) | uy<<keyFieldBits | uz)
}

// ChunkSource resolves a chunk by key, used for neighbor lookups during
// margin sampling. The voxel world is the canonical implementation.
type ChunkSource interface {
	Chunk(key ChunkKey) (*Chunk, bool)
}

// Chunk is a fixed N³ voxel volume at an integer lattice position, with an
// optional staging copy used by the non-destructive preview pipeline.
type Chunk struct {
	CX, CY, CZ int32

	data     []Voxel
	tempData []Voxel

	Dirty bool
}

// NewChunk allocates a chunk at the given lattice position, filled with
// air voxels.
func NewChunk(cx, cy, cz int32) *Chunk {
	return &Chunk{
		CX:   cx,
		CY:   cy,
		CZ:   cz,
		data: make([]Voxel, N*N*N),
	}
}

// Key returns this chunk's map key.
func (c *Chunk) Key() ChunkKey {
	return NewChunkKey(c.CX, c.CY, c.CZ)
}

func index(x, y, z int) int {
	return x + N*y + N*N*z
}

// Data returns the authoritative voxel array. Callers on the commit path
// write through this slice directly; it is never handed to a worker.
func (c *Chunk) Data() []Voxel {
	return c.data
}

// TempData returns the staging voxel array, or nil if no preview currently
// touches this chunk.
func (c *Chunk) TempData() []Voxel {
	return c.tempData
}

// HasTemp reports whether a staging copy is currently allocated.
func (c *Chunk) HasTemp() bool {
	return c.tempData != nil
}

// GetVoxel returns the voxel at local coordinates, or the air voxel if out
// of bounds.
func (c *Chunk) GetVoxel(x, y, z int) Voxel {
	if x < 0 || y < 0 || z < 0 || x >= N || y >= N || z >= N {
		return AirVoxel
	}
	return c.data[index(x, y, z)]
}

// SetVoxel writes a voxel at local coordinates and marks the chunk dirty.
// Out-of-bounds writes are a no-op.
func (c *Chunk) SetVoxel(x, y, z int, v Voxel) {
	if x < 0 || y < 0 || z < 0 || x >= N || y >= N || z >= N {
		return
	}
	c.data[index(x, y, z)] = v
	c.Dirty = true
}

// wrapAxis folds a margin coordinate in [-1, N] into an in-bounds local
// coordinate plus the neighbor-chunk offset (-1, 0, or 1) it came from.
func wrapAxis(v int) (local, offset int) {
	switch {
	case v < 0:
		return N + v, -1
	case v >= N:
		return v - N, 1
	default:
		return v, 0
	}
}

// voxelAt reads this chunk's own data, honoring preferTemp the same way
// the grid expander does.
func (c *Chunk) voxelAt(x, y, z int, preferTemp bool) Voxel {
	idx := index(x, y, z)
	if preferTemp && c.tempData != nil {
		return c.tempData[idx]
	}
	return c.data[idx]
}

// GetVoxelWithMargin resolves a coordinate in [-1, N] on each axis,
// reaching into a face/edge/corner neighbor chunk via source when needed.
// Absent neighbors read as air. preferTemp controls whether a chunk's
// staging copy is consulted when present, matching expandChunkToGrid.
func (c *Chunk) GetVoxelWithMargin(x, y, z int, source ChunkSource, preferTemp bool) Voxel {
	lx, ox := wrapAxis(x)
	ly, oy := wrapAxis(y)
	lz, oz := wrapAxis(z)

	if ox == 0 && oy == 0 && oz == 0 {
		return c.voxelAt(lx, ly, lz, preferTemp)
	}
	if source == nil {
		return AirVoxel
	}
	key := NewChunkKey(c.CX+int32(ox), c.CY+int32(oy), c.CZ+int32(oz))
	neighbor, ok := source.Chunk(key)
	if !ok || neighbor == nil {
		return AirVoxel
	}
	return neighbor.voxelAt(lx, ly, lz, preferTemp)
}

// CopyToTemp allocates the staging array if absent and copies the
// authoritative data into it. Idempotent.
func (c *Chunk) CopyToTemp() {
	if c.tempData != nil {
		return
	}
	c.tempData = make([]Voxel, len(c.data))
	copy(c.tempData, c.data)
}

// ResetTemp re-copies the authoritative data into the staging array,
// allocating it first if absent. Unlike CopyToTemp it always overwrites,
// dropping whatever a previous preview pass drew there.
func (c *Chunk) ResetTemp() {
	if c.tempData == nil {
		c.tempData = make([]Voxel, len(c.data))
	}
	copy(c.tempData, c.data)
}

// DiscardTemp frees the staging array.
func (c *Chunk) DiscardTemp() {
	c.tempData = nil
}

// CopyFromTemp copies the staging array into the authoritative one and
// marks the chunk dirty. It does not free the staging array; the caller
// is expected to call DiscardTemp once it is done with it.
func (c *Chunk) CopyFromTemp() {
	if c.tempData == nil {
		return
	}
	copy(c.data, c.tempData)
	c.Dirty = true
}

// Encode writes this chunk's serialized layout: three little-endian int32
// lattice coordinates followed by N³ little-endian u16 voxels in x-major
// order. This is a byte-layout helper for snapshot code, not a network
// protocol.
func (c *Chunk) Encode(w io.Writer) error {
	var hdr [12]byte
	binary.LittleEndian.PutUint32(hdr[0:4], uint32(c.CX))
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(c.CY))
	binary.LittleEndian.PutUint32(hdr[8:12], uint32(c.CZ))
	if _, err := w.Write(hdr[:]); err != nil {
		return fmt.Errorf("voxel: encode chunk header: %w", err)
	}
	buf := make([]byte, 2*len(c.data))
	for i, v := range c.data {
		binary.LittleEndian.PutUint16(buf[2*i:], uint16(v))
	}
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("voxel: encode chunk data: %w", err)
	}
	return nil
}

// DecodeChunk reads a chunk previously written by Encode.
func DecodeChunk(r io.Reader) (*Chunk, error) {
	var hdr [12]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, fmt.Errorf("voxel: decode chunk header: %w", err)
	}
	cx := int32(binary.LittleEndian.Uint32(hdr[0:4]))
	cy := int32(binary.LittleEndian.Uint32(hdr[4:8]))
	cz := int32(binary.LittleEndian.Uint32(hdr[8:12]))

	buf := make([]byte, 2*N*N*N)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("voxel: decode chunk data: %w", err)
	}
	c := NewChunk(cx, cy, cz)
	for i := range c.data {
		c.data[i] = Voxel(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	return c, nil
}
