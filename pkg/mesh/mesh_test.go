package mesh

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/leterax/voxelcore/pkg/voxel"
)

func init() {
	voxel.SetMaterialType(1, voxel.Solid)
	voxel.SetMaterialType(2, voxel.Transparent)
	voxel.SetMaterialType(3, voxel.Liquid)
}

// buildGrid fills a fresh expanded grid from f, called for every local
// voxel coordinate in [-1, N] (the full halo-inclusive range).
func buildGrid(f func(lx, ly, lz int) (weight float32, material uint8)) *voxel.Grid {
	g := voxel.NewGrid()
	for lz := -1; lz <= voxel.N; lz++ {
		for ly := -1; ly <= voxel.N; ly++ {
			for lx := -1; lx <= voxel.N; lx++ {
				w, m := f(lx, ly, lz)
				g.Data[voxel.GridIndex(lx+1, ly+1, lz+1)] = voxel.Pack(w, m, 0)
			}
		}
	}
	g.SkipHighBoundary = [3]bool{true, true, true}
	return g
}

func TestMeshAllAirProducesNoGeometry(t *testing.T) {
	g := buildGrid(func(lx, ly, lz int) (float32, uint8) { return -0.5, 0 })
	solid, transparent, liquid := Mesh(g)
	require.True(t, solid.Empty())
	require.True(t, transparent.Empty())
	require.True(t, liquid.Empty())
}

func TestMeshHalfSpaceProducesPlanarSolidSurface(t *testing.T) {
	g := buildGrid(func(lx, ly, lz int) (float32, uint8) {
		if lx < 16 {
			return 0.5, 1
		}
		return -0.5, 0
	})
	solid, transparent, liquid := Mesh(g)
	require.False(t, solid.Empty())
	require.True(t, transparent.Empty())
	require.True(t, liquid.Empty())

	// Every solid vertex should sit within half a cell of the x=16 crossing.
	for _, p := range solid.Positions {
		require.InDelta(t, 15.5, p.X(), 0.5)
	}

	for i := 0; i < solid.TriangleCount(); i++ {
		a := solid.Indices[i*3]
		b := solid.Indices[i*3+1]
		c := solid.Indices[i*3+2]
		require.NotEqual(t, a, b)
		require.NotEqual(t, b, c)
		require.NotEqual(t, a, c)
	}
}

func TestMeshSolidTransparentBoundaryProducesTwoFacingSurfaces(t *testing.T) {
	// material 1 (solid) on the low side, material 2 (transparent) on the
	// high side: both meshes should independently surface the same seam
	// instead of sharing one boundary.
	g := buildGrid(func(lx, ly, lz int) (float32, uint8) {
		if lx < 16 {
			return 0.5, 1
		}
		return 0.5, 2
	})
	solid, transparent, liquid := Mesh(g)
	require.False(t, solid.Empty())
	require.False(t, transparent.Empty())
	require.True(t, liquid.Empty())
}

func TestMeshMaterialAssignmentPicksDominantCorner(t *testing.T) {
	g := buildGrid(func(lx, ly, lz int) (float32, uint8) {
		if lx < 16 {
			return 0.5, 1
		}
		return -0.4, 0
	})
	solid, _, _ := Mesh(g)
	require.False(t, solid.Empty())
	for _, m := range solid.Materials {
		require.Equal(t, uint8(1), m)
	}
}

func TestMeshDeterministic(t *testing.T) {
	f := func(lx, ly, lz int) (float32, uint8) {
		if lx+ly < 20 {
			return 0.3, 1
		}
		return -0.3, 0
	}
	g1 := buildGrid(f)
	g2 := buildGrid(f)
	s1, _, _ := Mesh(g1)
	s2, _, _ := Mesh(g2)
	require.Equal(t, s1.Positions, s2.Positions)
	require.Equal(t, s1.Indices, s2.Indices)
}

type mapSource map[voxel.ChunkKey]*voxel.Chunk

func (s mapSource) Chunk(k voxel.ChunkKey) (*voxel.Chunk, bool) {
	c, ok := s[k]
	return c, ok
}

// fillTiltedPlane writes a continuous world-space height field into a
// chunk: solid below a plane tilted along both horizontal axes, with
// graded weights near the surface so vertex placement is non-trivial.
func fillTiltedPlane(c *voxel.Chunk) {
	for z := 0; z < voxel.N; z++ {
		for y := 0; y < voxel.N; y++ {
			for x := 0; x < voxel.N; x++ {
				wx := float32(c.CX)*voxel.N + float32(x)
				wy := float32(c.CY)*voxel.N + float32(y)
				wz := float32(c.CZ)*voxel.N + float32(z)
				h := 10.0 + 0.2*wx + 0.1*wz
				w := voxel.SdfToWeight(wy - h)
				c.SetVoxel(x, y, z, voxel.Pack(w, 1, 0))
			}
		}
	}
}

func TestSeamClosureAcrossNeighborChunks(t *testing.T) {
	a := voxel.NewChunk(0, 0, 0)
	b := voxel.NewChunk(1, 0, 0)
	fillTiltedPlane(a)
	fillTiltedPlane(b)
	src := mapSource{a.Key(): a, b.Key(): b}

	ga := voxel.NewGrid()
	gb := voxel.NewGrid()
	voxel.ExpandChunkToGrid(a, src, ga, false)
	voxel.ExpandChunkToGrid(b, src, gb, false)

	solidA, _, _ := Mesh(ga)
	solidB, _, _ := Mesh(gb)
	require.False(t, solidA.Empty())
	require.False(t, solidB.Empty())

	// The vertices chunk a places in its final cell column (local x in
	// (N-1, N)) and the ones chunk b places in its halo column (local x
	// in (-1, 0)) sample byte-identical corner data, so they must land
	// on the same world-space positions: the seam is closed.
	var seamA, seamB []mgl32.Vec3
	for _, p := range solidA.Positions {
		if p.X() > voxel.N-1 {
			seamA = append(seamA, p)
		}
	}
	for _, p := range solidB.Positions {
		if p.X() < 0 {
			seamB = append(seamB, mgl32.Vec3{p.X() + voxel.N, p.Y(), p.Z()})
		}
	}
	require.NotEmpty(t, seamA)
	require.Len(t, seamB, len(seamA))

	for _, pb := range seamB {
		matched := false
		for _, pa := range seamA {
			if pa.Sub(pb).Len() < 1e-4 {
				matched = true
				break
			}
		}
		require.True(t, matched, "no chunk-a vertex matches seam vertex %v", pb)
	}
}

func TestBuildGeometryExpandsBarycentric(t *testing.T) {
	g := buildGrid(func(lx, ly, lz int) (float32, uint8) {
		if lx < 16 {
			return 0.5, 1
		}
		return -0.5, 0
	})
	solid, _, _ := Mesh(g)
	geo := BuildGeometry(solid)

	require.Equal(t, solid.TriangleCount()*3, len(geo.Vertices))
	require.Equal(t, len(geo.Vertices), len(geo.Indices))
	for i, idx := range geo.Indices {
		require.Equal(t, uint32(i), idx)
	}
	for t3 := 0; t3 < solid.TriangleCount(); t3++ {
		want := [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
		for k := 0; k < 3; k++ {
			v := geo.Vertices[t3*3+k]
			require.Equal(t, want[k], v.MaterialWeights)
			require.Equal(t, v.MaterialIDs[0], solid.Materials[solid.Indices[t3*3]])
		}
	}
}
