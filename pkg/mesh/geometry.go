package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/voxel"
)

// Vertex is one corner of one expanded (per-triangle) output triangle,
// carrying the up-to-three materials a downstream shader blends between.
type Vertex struct {
	Position        mgl32.Vec3
	Normal          mgl32.Vec3
	MaterialIDs     [3]uint8
	MaterialWeights [3]float32
}

// Geometry is the expanded, shader-ready form of an Output: 3*T vertices,
// one triple per triangle, with the identity index permutation.
type Geometry struct {
	Vertices []Vertex
	Indices  []uint32
}

// BuildGeometry expands a SurfaceNets Output into per-triangle vertices
// with barycentric material weights, scaling positions by voxel.VoxelScale
// so the result is in world units.
func BuildGeometry(o *Output) *Geometry {
	triCount := o.TriangleCount()
	g := &Geometry{
		Vertices: make([]Vertex, 0, triCount*3),
		Indices:  make([]uint32, triCount*3),
	}

	barycentric := [3][3]float32{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}

	for t := 0; t < triCount; t++ {
		var ids [3]uint8
		var pos [3]mgl32.Vec3
		var nrm [3]mgl32.Vec3
		for k := 0; k < 3; k++ {
			idx := o.Indices[t*3+k]
			ids[k] = o.Materials[idx]
			pos[k] = o.Positions[idx].Mul(voxel.VoxelScale)
			nrm[k] = o.Normals[idx]
		}
		for k := 0; k < 3; k++ {
			g.Vertices = append(g.Vertices, Vertex{
				Position:        pos[k],
				Normal:          nrm[k],
				MaterialIDs:     ids,
				MaterialWeights: barycentric[k],
			})
			g.Indices[t*3+k] = uint32(t*3 + k)
		}
	}
	return g
}
