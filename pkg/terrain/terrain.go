// Package terrain implements the reference chunk-fill function:
// multi-octave elevation noise plus domain warp, height-band materials,
// and stamp placement. The world treats chunk filling as pluggable; this
// is the default.
package terrain

import (
	"github.com/ojrac/opensimplex-go"

	"github.com/leterax/voxelcore/pkg/stamp"
	"github.com/leterax/voxelcore/pkg/voxel"
)

const (
	baseHeight    = 48
	amplitude     = 24.0
	warpAmplitude = 12.0
	stampMargin   = 16
	materialStone = 3
	materialDirt  = 2
	materialGrass = 1
	dirtBandDepth = 4
)

// Fill populates chunk deterministically from seed: same (seed, cx, cy,
// cz) always produces the same voxel data, independent of load order.
func Fill(chunk *voxel.Chunk, seed int64) {
	elevation := opensimplex.NewNormalized(seed)
	warp := opensimplex.NewNormalized(seed ^ 0x5bd1e995)

	originX := chunk.CX * voxel.N
	originY := chunk.CY * voxel.N
	originZ := chunk.CZ * voxel.N

	for lz := 0; lz < voxel.N; lz++ {
		wz := float64(originZ + int32(lz))
		for lx := 0; lx < voxel.N; lx++ {
			wx := float64(originX + int32(lx))
			h := heightAt(elevation, warp, wx, wz)

			for ly := 0; ly < voxel.N; ly++ {
				wy := float64(originY + int32(ly))
				d := float32(wy - h)
				w := voxel.SdfToWeight(d)
				if w <= -0.5 {
					continue
				}
				if w <= 0 {
					// Near-surface air keeps its graded weight so the
					// mesher's zero-crossing interpolation stays smooth.
					chunk.SetVoxel(lx, ly, lz, voxel.Pack(w, 0, 0))
					continue
				}
				depth := h - wy
				material := uint8(materialStone)
				switch {
				case depth < 1:
					material = materialGrass
				case depth < dirtBandDepth:
					material = materialDirt
				}
				chunk.SetVoxel(lx, ly, lz, voxel.Pack(w, material, 0))
			}
		}
	}

	placeStamps(chunk, seed, elevation, warp)
}

// heightAt samples domain-warped, multi-octave elevation noise at a
// world-space (x,z) column, returning a height in voxel units.
func heightAt(elevation, warp opensimplex.Noise, wx, wz float64) float64 {
	warpX := wx + (warp.Eval2(wx*0.01, wz*0.01)-0.5)*2*warpAmplitude
	warpZ := wz + (warp.Eval2(wx*0.01+100, wz*0.01+100)-0.5)*2*warpAmplitude

	n := 0.0
	amp := 1.0
	freq := 0.006
	total := 0.0
	for o := 0; o < 4; o++ {
		n += elevation.Eval2(warpX*freq, warpZ*freq) * amp
		total += amp
		amp *= 0.5
		freq *= 2
	}
	n /= total

	return baseHeight + (n-0.5)*2*amplitude
}

func placeStamps(chunk *voxel.Chunk, seed int64, elevation, warp opensimplex.Noise) {
	gen := stamp.NewPointGenerator(seed)
	placements := gen.GenerateForChunk(chunk.CX, chunk.CZ, stampMargin)

	originX := chunk.CX * voxel.N
	originZ := chunk.CZ * voxel.N

	for _, p := range placements {
		h := heightAt(elevation, warp, float64(p.WorldX), float64(p.WorldZ))
		s := stamp.GetStamp(p.StampType, p.Variant, p.Rotation)

		ax := int(p.WorldX - originX)
		az := int(p.WorldZ - originZ)
		ay := int(h) + 1 - int(chunk.CY*voxel.N)

		stamp.Place(chunk, s, ax, ay, az)
	}
}
