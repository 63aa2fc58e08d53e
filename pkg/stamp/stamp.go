// Package stamp implements deterministic procedural voxel patterns:
// finite cell sets placed into terrain at deterministically generated
// points, the glue between terrain generation and hand-shaped content
// like trees, rocks, and buildings.
package stamp

import (
	"fmt"
	"math/rand"

	lru "github.com/hashicorp/golang-lru"

	"github.com/leterax/voxelcore/pkg/voxel"
)

// Type distinguishes the handful of stamp families this reference
// generator knows how to build.
type Type int

const (
	Tree Type = iota
	Rock
	Building
)

// BlendMode controls how a stamp cell combines with whatever voxel
// already occupies that position.
type BlendMode int

const (
	// Replace overwrites unconditionally.
	Replace BlendMode = iota
	// Max keeps whichever weight is more inside (like build.Add).
	Max
	// Paint only changes material, keeping the existing weight, and only
	// where the existing voxel is already solid.
	Paint
)

// Cell is one voxel cell of a stamp, offset from the stamp's anchor.
type Cell struct {
	DX, DY, DZ int
	Material   uint8
	Weight     float32
}

// Stamp is a finite set of cells plus its axis-aligned bounding box.
type Stamp struct {
	Cells   []Cell
	AABBMin [3]int
	AABBMax [3]int
	Blend   BlendMode
}

type cacheKey struct {
	t        Type
	variant  int
	rotation int
}

// cache backs the variant-indexed stamp types (Tree, Rock). Building is
// rotatable and regenerated per call instead, since its placements are
// rarer and its variants larger.
var cache *lru.Cache

func init() {
	c, err := lru.New(256)
	if err != nil {
		panic(fmt.Sprintf("stamp: failed to allocate cache: %v", err))
	}
	cache = c
}

// GetStamp returns the stamp for (t, variant, rotation), generating it on
// first use. rotation is a discrete quarter-turn count around Y (0-3);
// only Building cells are rotated, and Tree and Rock shapes do not depend
// on it. Tree and Rock are cached; Building is regenerated every call.
func GetStamp(t Type, variant int, rotation int) *Stamp {
	rotation = ((rotation % 4) + 4) % 4

	if t == Building {
		return generate(t, variant, rotation)
	}

	key := cacheKey{t: t, variant: variant, rotation: rotation}
	if v, ok := cache.Get(key); ok {
		return v.(*Stamp)
	}
	s := generate(t, variant, rotation)
	cache.Add(key, s)
	return s
}

// generate deterministically builds a stamp's cell set from (type,
// variant, rotation) alone, so repeated calls are byte-identical. The RNG
// is seeded from (type, variant) only, so every rotation of a building is
// the same building turned.
func generate(t Type, variant, rotation int) *Stamp {
	seed := seedFor(int64(t), int32(variant), 0)
	rng := rand.New(rand.NewSource(seed))

	switch t {
	case Tree:
		return generateTree(rng)
	case Rock:
		return generateRock(rng)
	default:
		return generateBuilding(rng, rotation)
	}
}

func generateTree(rng *rand.Rand) *Stamp {
	trunkHeight := 3 + rng.Intn(3)
	var cells []Cell
	for y := 0; y < trunkHeight; y++ {
		cells = append(cells, Cell{DX: 0, DY: y, DZ: 0, Material: materialWood, Weight: 0.4})
	}
	canopyBase := trunkHeight - 1
	canopyRadius := 2
	for y := 0; y <= canopyRadius+1; y++ {
		r := canopyRadius - y/2
		for dz := -r; dz <= r; dz++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dz*dz > r*r+1 {
					continue
				}
				cells = append(cells, Cell{DX: dx, DY: canopyBase + y, DZ: dz, Material: materialLeaves, Weight: 0.35})
			}
		}
	}
	return finishStamp(cells, Max)
}

func generateRock(rng *rand.Rand) *Stamp {
	radius := 1 + rng.Intn(2)
	var cells []Cell
	for dz := -radius; dz <= radius; dz++ {
		for dy := 0; dy <= radius; dy++ {
			for dx := -radius; dx <= radius; dx++ {
				if dx*dx+dy*dy+dz*dz > radius*radius+1 {
					continue
				}
				cells = append(cells, Cell{DX: dx, DY: dy, DZ: dz, Material: materialStone, Weight: 0.45})
			}
		}
	}
	return finishStamp(cells, Max)
}

func generateBuilding(rng *rand.Rand, rotation int) *Stamp {
	width := 4 + rng.Intn(3)
	depth := 4 + rng.Intn(3)
	height := 3 + rng.Intn(2)

	var cells []Cell
	for y := 0; y < height; y++ {
		for dz := 0; dz < depth; dz++ {
			for dx := 0; dx < width; dx++ {
				onWall := dx == 0 || dz == 0 || dx == width-1 || dz == depth-1
				onFloorOrRoof := y == 0 || y == height-1
				if !onWall && !onFloorOrRoof {
					continue
				}
				rdx, rdz := rotateQuarter(dx, dz, rotation)
				cells = append(cells, Cell{DX: rdx, DY: y, DZ: rdz, Material: materialPlank, Weight: 0.5})
			}
		}
	}
	return finishStamp(cells, Replace)
}

// rotateQuarter applies n 90° rotations around Y to an integer offset,
// keeping the building stamp's cells on an integer lattice.
func rotateQuarter(dx, dz, n int) (int, int) {
	for i := 0; i < n; i++ {
		dx, dz = -dz, dx
	}
	return dx, dz
}

func finishStamp(cells []Cell, blend BlendMode) *Stamp {
	s := &Stamp{Cells: cells, Blend: blend}
	if len(cells) == 0 {
		return s
	}
	s.AABBMin = [3]int{cells[0].DX, cells[0].DY, cells[0].DZ}
	s.AABBMax = s.AABBMin
	for _, c := range cells[1:] {
		if c.DX < s.AABBMin[0] {
			s.AABBMin[0] = c.DX
		}
		if c.DY < s.AABBMin[1] {
			s.AABBMin[1] = c.DY
		}
		if c.DZ < s.AABBMin[2] {
			s.AABBMin[2] = c.DZ
		}
		if c.DX > s.AABBMax[0] {
			s.AABBMax[0] = c.DX
		}
		if c.DY > s.AABBMax[1] {
			s.AABBMax[1] = c.DY
		}
		if c.DZ > s.AABBMax[2] {
			s.AABBMax[2] = c.DZ
		}
	}
	return s
}

const (
	materialWood   uint8 = 4
	materialLeaves uint8 = 5
	materialStone  uint8 = 3
	materialPlank  uint8 = 6
)

// Place writes a stamp's cells into chunk's authoritative data, anchored
// at local chunk coordinates (ax, ay, az). Cells outside the chunk are
// silently skipped (Chunk.SetVoxel already no-ops out of range), which is
// exactly what lets a stamp anchored in a neighbor chunk still paint into
// this one within its margin.
func Place(chunk *voxel.Chunk, s *Stamp, ax, ay, az int) {
	for _, c := range s.Cells {
		x, y, z := ax+c.DX, ay+c.DY, az+c.DZ
		switch s.Blend {
		case Replace:
			chunk.SetVoxel(x, y, z, voxel.Pack(c.Weight, c.Material, 0))
		case Max:
			old := chunk.GetVoxel(x, y, z)
			if c.Weight > voxel.GetWeight(old) {
				chunk.SetVoxel(x, y, z, voxel.Pack(c.Weight, c.Material, 0))
			}
		case Paint:
			old := chunk.GetVoxel(x, y, z)
			if voxel.GetWeight(old) > 0 {
				chunk.SetVoxel(x, y, z, voxel.Pack(voxel.GetWeight(old), c.Material, voxel.GetFlags(old)))
			}
		}
	}
}
