// Package build implements the SDF-driven build operation model: a
// placed, rotated shape config; enumeration of the chunks it can touch;
// and the per-chunk draw that combines its distance field with existing
// voxel data.
package build

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/sdf"
	"github.com/leterax/voxelcore/pkg/voxel"
)

// Operation is a single SDF-plus-mode prescription for editing voxel
// weights and materials over a bounded region: a shape config placed at a
// world-space center with an arbitrary rotation.
type Operation struct {
	Center   mgl32.Vec3
	Rotation mgl32.Quat
	Config   sdf.Config
}

// NewOperation constructs an Operation, clamping a malformed config
// rather than rejecting it.
func NewOperation(center mgl32.Vec3, rotation mgl32.Quat, config sdf.Config) Operation {
	return Operation{
		Center:   center,
		Rotation: rotation,
		Config:   sdf.Validate(config),
	}
}

// Equal reports whether two operations would produce indistinguishable
// draws, comparing centers at 0.01 world-unit precision so sub-visible
// cursor jitter doesn't count as a new operation.
func (op Operation) Equal(other Operation) bool {
	const eps = 0.01
	if math.Abs(float64(op.Center.X()-other.Center.X())) > eps ||
		math.Abs(float64(op.Center.Y()-other.Center.Y())) > eps ||
		math.Abs(float64(op.Center.Z()-other.Center.Z())) > eps {
		return false
	}
	if op.Rotation.V != other.Rotation.V || op.Rotation.W != other.Rotation.W {
		return false
	}
	return op.Config == other.Config
}

// worldChunkSize is the world-space edge length of one chunk.
const worldChunkSize = float32(voxel.N) * voxel.VoxelScale

// conservativeWorldRadius returns a rotation-invariant conservative bound
// on the shape's extent from its center, in world units: the length of the
// half-extent vector bounds the shape under any rotation, so this never
// under-counts affected chunks regardless of op.Rotation.
func conservativeWorldRadius(c sdf.Config) float32 {
	// A shell of positive thickness reaches past the solid's surface.
	extentVoxels := c.Size.Len() + c.Thickness
	return extentVoxels * voxel.VoxelScale
}

// AffectedChunks computes the conservative set of chunk keys a build
// operation could modify: the world-space AABB of the rotated shape,
// expanded by one voxel of margin on each side for boundary safety,
// converted to the chunk lattice. This is a pure function of the
// operation.
func AffectedChunks(op Operation) []voxel.ChunkKey {
	r := conservativeWorldRadius(op.Config) + voxel.VoxelScale
	minWorld := op.Center.Sub(mgl32.Vec3{r, r, r})
	maxWorld := op.Center.Add(mgl32.Vec3{r, r, r})

	minChunk := worldToChunkFloor(minWorld)
	maxChunk := worldToChunkFloor(maxWorld)

	var keys []voxel.ChunkKey
	for cx := minChunk[0]; cx <= maxChunk[0]; cx++ {
		for cy := minChunk[1]; cy <= maxChunk[1]; cy++ {
			for cz := minChunk[2]; cz <= maxChunk[2]; cz++ {
				keys = append(keys, voxel.NewChunkKey(cx, cy, cz))
			}
		}
	}
	return keys
}

func worldToChunkFloor(p mgl32.Vec3) [3]int32 {
	return [3]int32{
		int32(math.Floor(float64(p.X() / worldChunkSize))),
		int32(math.Floor(float64(p.Y() / worldChunkSize))),
		int32(math.Floor(float64(p.Z() / worldChunkSize))),
	}
}
