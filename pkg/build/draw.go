package build

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/sdf"
	"github.com/leterax/voxelcore/pkg/voxel"
)

// DrawToChunk applies op against target (either a chunk's authoritative
// data on commit, or its staging tempData during preview). It returns
// true iff any voxel changed.
func DrawToChunk(chunk *voxel.Chunk, op Operation, target []voxel.Voxel) bool {
	inv := op.Rotation.Conjugate()
	origin := mgl32.Vec3{
		float32(chunk.CX) * float32(voxel.N),
		float32(chunk.CY) * float32(voxel.N),
		float32(chunk.CZ) * float32(voxel.N),
	}

	changed := false
	for z := 0; z < voxel.N; z++ {
		for y := 0; y < voxel.N; y++ {
			for x := 0; x < voxel.N; x++ {
				worldPos := mgl32.Vec3{
					voxel.VoxelScale * (origin.X() + float32(x) + 0.5),
					voxel.VoxelScale * (origin.Y() + float32(y) + 0.5),
					voxel.VoxelScale * (origin.Z() + float32(z) + 0.5),
				}
				rel := worldPos.Sub(op.Center)
				local := inv.Rotate(rel)
				// sdf.Eval operates in voxel units.
				localVoxels := local.Mul(1.0 / voxel.VoxelScale)

				sample := sdf.Eval(localVoxels, op.Config)

				idx := x + voxel.N*y + voxel.N*voxel.N*z
				oldV := target[idx]
				newV, did := combine(oldV, sample, op.Config)
				if did {
					target[idx] = newV
					changed = true
				}
			}
		}
	}
	return changed
}

// combine applies the per-mode weight/material combination rule. sample
// is the SDF value at this voxel's center. Change detection is a compare
// of the packed values, so an edit that quantizes back to the existing
// voxel reports no change.
func combine(old voxel.Voxel, sample float32, c sdf.Config) (voxel.Voxel, bool) {
	oldW := voxel.GetWeight(old)
	oldMat := voxel.GetMaterial(old)
	oldFlags := voxel.GetFlags(old)

	var newV voxel.Voxel
	switch c.Mode {
	case sdf.Add:
		newW := maxf(oldW, voxel.SdfToWeight(sample))
		newMat := oldMat
		if newW > oldW {
			newMat = c.Material
		}
		newV = voxel.Pack(newW, newMat, oldFlags)

	case sdf.Subtract:
		newW := minf(oldW, -voxel.SdfToWeight(sample))
		newV = voxel.Pack(newW, oldMat, oldFlags)

	case sdf.Paint:
		if sample > 0 || oldW <= 0 {
			return old, false
		}
		newV = voxel.Pack(oldW, c.Material, oldFlags)

	case sdf.Fill:
		newW := maxf(oldW, voxel.SdfToWeight(sample))
		newMat := oldMat
		if sample <= 0 {
			newMat = c.Material
		}
		newV = voxel.Pack(newW, newMat, oldFlags)

	default:
		return old, false
	}

	if newV == old {
		return old, false
	}
	return newV, true
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}
