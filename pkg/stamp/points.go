package stamp

import (
	"hash/fnv"
	"math/rand"

	"github.com/aquilax/go-perlin"

	"github.com/leterax/voxelcore/pkg/voxel"
)

// Placement is one deterministic stamp placement in world voxel space,
// emitted by PointGenerator.GenerateForChunk. WorldX/WorldZ may fall
// outside the requesting chunk's own bounds when the stamp's anchor sits
// in a neighbor chunk but its AABB overlaps this one within margin.
type Placement struct {
	WorldX, WorldZ int32
	StampType      Type
	Variant        int
	Rotation       int
}

// cellSize is the world-voxel edge of one stratified-sampling bucket. Each
// bucket contributes at most one candidate, but no minimum spacing is
// enforced between buckets: jittered candidates in adjacent buckets can be
// as little as one voxel apart.
const cellSize = 8

const (
	perlinOctaves = 2
	perlinPersist = 0.5
)

// PointGenerator deterministically emits stamp placements from a seed.
// Every bucket's candidate is a pure function of (seed, bucketX, bucketZ)
// alone, never of which chunk requested generation, so the neighbor-margin
// queries of two adjacent chunks always agree on the placements in their
// overlap no matter which chunk asks first.
type PointGenerator struct {
	seed  int64
	noise *perlin.Perlin
}

// NewPointGenerator builds a generator for seed.
func NewPointGenerator(seed int64) *PointGenerator {
	return &PointGenerator{
		seed:  seed,
		noise: perlin.NewPerlin(perlinPersist, 2.0, perlinOctaves, seed),
	}
}

// GenerateForChunk emits every placement whose stamp could overlap the
// chunk at (cx, cz), considering bucket anchors up to margin voxels
// outside the chunk's own [0,N) span on each axis.
func (g *PointGenerator) GenerateForChunk(cx, cz int32, margin int) []Placement {
	minX := cx*voxel.N - int32(margin)
	maxX := cx*voxel.N + voxel.N + int32(margin)
	minZ := cz*voxel.N - int32(margin)
	maxZ := cz*voxel.N + voxel.N + int32(margin)

	minBX := floorDiv(minX, cellSize)
	maxBX := floorDiv(maxX, cellSize)
	minBZ := floorDiv(minZ, cellSize)
	maxBZ := floorDiv(maxZ, cellSize)

	var placements []Placement
	for bx := minBX; bx <= maxBX; bx++ {
		for bz := minBZ; bz <= maxBZ; bz++ {
			p, ok := g.candidate(bx, bz)
			if !ok {
				continue
			}
			placements = append(placements, p)
		}
	}
	return placements
}

// candidate deterministically decides whether bucket (bx, bz) spawns a
// stamp, and if so where and what, using noise-based density plus a
// per-bucket jittered offset.
func (g *PointGenerator) candidate(bx, bz int32) (Placement, bool) {
	seed := seedFor(g.seed, bx, bz)
	rng := rand.New(rand.NewSource(seed))

	density := g.noise.Noise2D(float64(bx)*0.15, float64(bz)*0.15)
	threshold := 0.15 // roughly 1 in 3 buckets spawns something
	if density < threshold {
		return Placement{}, false
	}

	jitterX := rng.Intn(cellSize)
	jitterZ := rng.Intn(cellSize)
	worldX := bx*cellSize + int32(jitterX)
	worldZ := bz*cellSize + int32(jitterZ)

	var t Type
	switch {
	case density > 0.55:
		t = Building
	case density > 0.3:
		t = Tree
	default:
		t = Rock
	}

	return Placement{
		WorldX:    worldX,
		WorldZ:    worldZ,
		StampType: t,
		Variant:   rng.Intn(8),
		Rotation:  rng.Intn(4),
	}, true
}

// seedFor deterministically mixes a base seed with two 32-bit coordinates
// via FNV-1a.
func seedFor(base int64, a, b int32) int64 {
	h := fnv.New64a()
	var buf [16]byte
	putInt64(buf[0:8], base)
	putInt32(buf[8:12], a)
	putInt32(buf[12:16], b)
	h.Write(buf[:])
	return int64(h.Sum64())
}

func putInt64(b []byte, v int64) {
	u := uint64(v)
	for i := 0; i < 8; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func putInt32(b []byte, v int32) {
	u := uint32(v)
	for i := 0; i < 4; i++ {
		b[i] = byte(u >> (8 * i))
	}
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
