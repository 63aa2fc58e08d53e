// Package mesh implements the SurfaceNets isosurface extraction and the
// per-triangle geometry expansion that turns an expanded voxel grid
// (pkg/voxel's (N+2)³ buffer) into renderable triangle data.
package mesh

import "github.com/go-gl/mathgl/mgl32"

// Output is one surface type's SurfaceNets result: an indexed triangle
// list with one vertex per unique surface crossing.
type Output struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
	Materials []uint8
	Indices   []uint32
}

// VertexCount reports the number of unique vertices.
func (o *Output) VertexCount() int { return len(o.Positions) }

// TriangleCount reports the number of triangles.
func (o *Output) TriangleCount() int { return len(o.Indices) / 3 }

// Empty reports whether this mesh type produced no geometry for the grid.
func (o *Output) Empty() bool { return len(o.Indices) == 0 }
