package mesh

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/voxel"
)

// cells is the number of cells swept per axis: one fewer than the grid's
// corner count, i.e. N+1.
const cells = voxel.N + 1

// Mesh runs a single SurfaceNets sweep over an expanded grid, producing
// independent solid, transparent, and liquid surfaces. Each cell's eight
// corners are sampled once; the three surface types then see that cell
// through their own filtered corner weights, so a solid/transparent or
// solid/liquid interface yields two facing surfaces instead of one
// shared sheet.
func Mesh(grid *voxel.Grid) (solid, transparent, liquid *Output) {
	m := newMesher(grid)
	m.sweep()
	return m.outs[voxel.Solid], m.outs[voxel.Transparent], m.outs[voxel.Liquid]
}

type mesher struct {
	grid *voxel.Grid
	outs [3]*Output

	// vertexOf maps a cell index to the emitted vertex for that surface
	// type, -1 meaning "no vertex". A dense per-cell array rather than a
	// 2-slab ring buffer: at N=32 that's ~36k int32s per type, a
	// clarity-over-memory tradeoff (see DESIGN.md).
	vertexOf [3][]int32
}

func newMesher(grid *voxel.Grid) *mesher {
	m := &mesher{grid: grid}
	for t := 0; t < 3; t++ {
		m.outs[t] = &Output{}
		m.vertexOf[t] = make([]int32, cells*cells*cells)
		for i := range m.vertexOf[t] {
			m.vertexOf[t][i] = -1
		}
	}
	return m
}

func cellIndex(x, y, z int) int { return x + cells*y + cells*cells*z }

// sweep visits every cell once, computes the raw 2×2×2 corner
// neighborhood, and hands each surface type its filtered view of it.
func (m *mesher) sweep() {
	var rawW [8]float32
	var rawM [8]uint8
	var rawT [8]voxel.MaterialType

	for z := 0; z < cells; z++ {
		for y := 0; y < cells; y++ {
			for x := 0; x < cells; x++ {
				g := 0
				for dz := 0; dz < 2; dz++ {
					for dy := 0; dy < 2; dy++ {
						for dx := 0; dx < 2; dx++ {
							v := m.grid.Data[voxel.GridIndex(x+dx, y+dy, z+dz)]
							rawW[g] = voxel.GetWeight(v)
							rawM[g] = voxel.GetMaterial(v)
							rawT[g] = voxel.MaterialTypeOf(rawM[g])
							g++
						}
					}
				}

				for t := 0; t < 3; t++ {
					m.cell(voxel.MaterialType(t), x, y, z, &rawW, &rawM, &rawT)
				}
			}
		}
	}

	for _, out := range m.outs {
		finalizeNormals(out)
	}
}

// cell runs one surface type's vertex placement and face emission for
// the cell at (x, y, z). Corners whose material belongs to another
// surface type are pushed to FilterWeight, i.e. just outside, so every
// cross-type interface surfaces from both sides. Air corners keep their
// real weight for every type.
func (m *mesher) cell(target voxel.MaterialType, x, y, z int, rawW *[8]float32, rawM *[8]uint8, rawT *[8]voxel.MaterialType) {
	var corner [8]float32
	mask := 0
	for g := 0; g < 8; g++ {
		w := rawW[g]
		if rawM[g] != 0 && rawT[g] != target {
			w = voxel.FilterWeight
		}
		corner[g] = w
		if w < 0 {
			mask |= 1 << uint(g)
		}
	}

	if mask == 0 || mask == 0xff {
		return
	}

	edgeMask := edgeTable[mask]
	pos, ok := vertexPosition(corner, edgeMask)
	if !ok {
		return
	}

	out := m.outs[target]
	vertexOf := m.vertexOf[target]

	vIdx := int32(len(out.Positions))
	vertexOf[cellIndex(x, y, z)] = vIdx
	out.Positions = append(out.Positions, mgl32.Vec3{
		float32(x-1) + pos.X(),
		float32(y-1) + pos.Y(),
		float32(z-1) + pos.Z(),
	})
	out.Normals = append(out.Normals, mgl32.Vec3{})
	out.Materials = append(out.Materials, dominantMaterial(corner, rawM))

	// One candidate quad per axis, where the cell's axis edge crosses the
	// surface. A face on the low boundary belongs to the negative
	// neighbor's mirrored cell; a face on a high boundary with no loaded
	// neighbor would hang unconnected, so both are suppressed. The vertex
	// above is still recorded either way, because interior neighbor cells
	// reference it.
	skip := m.grid.SkipHighBoundary
	xEdge := (mask & 1) != (mask>>1)&1
	yEdge := (mask & 1) != (mask>>2)&1
	zEdge := (mask & 1) != (mask>>4)&1
	inside0 := (mask & 1) == 0

	if xEdge && y > 0 && z > 0 {
		if !(x == 0 || (x == cells-1 && skip[0])) {
			b := vertexOf[cellIndex(x, y-1, z)]
			c := vertexOf[cellIndex(x, y-1, z-1)]
			d := vertexOf[cellIndex(x, y, z-1)]
			emitQuad(out, vIdx, b, c, d, inside0)
		}
	}
	if yEdge && x > 0 && z > 0 {
		if !(y == 0 || (y == cells-1 && skip[1])) {
			b := vertexOf[cellIndex(x-1, y, z)]
			c := vertexOf[cellIndex(x-1, y, z-1)]
			d := vertexOf[cellIndex(x, y, z-1)]
			emitQuad(out, vIdx, b, c, d, inside0)
		}
	}
	if zEdge && x > 0 && y > 0 {
		if !(z == 0 || (z == cells-1 && skip[2])) {
			b := vertexOf[cellIndex(x-1, y, z)]
			c := vertexOf[cellIndex(x-1, y-1, z)]
			d := vertexOf[cellIndex(x, y-1, z)]
			emitQuad(out, vIdx, b, c, d, inside0)
		}
	}
}

// vertexPosition averages the zero-crossing points of every crossing edge
// of the cube, in the cell-local [0,1]³ frame.
func vertexPosition(corner [8]float32, edgeMask int) (mgl32.Vec3, bool) {
	var sum mgl32.Vec3
	count := 0
	for e := 0; e < 12; e++ {
		if edgeMask&(1<<uint(e)) == 0 {
			continue
		}
		c0 := cubeEdges[2*e]
		c1 := cubeEdges[2*e+1]
		g0 := corner[c0]
		g1 := corner[c1]
		denom := g0 - g1
		if denom > -1e-6 && denom < 1e-6 {
			continue
		}
		t := g0 / denom
		x0, y0, z0 := cornerOffset(c0)
		x1, y1, z1 := cornerOffset(c1)
		sum[0] += x0 + t*(x1-x0)
		sum[1] += y0 + t*(y1-y0)
		sum[2] += z0 + t*(z1-z0)
		count++
	}
	if count == 0 {
		return mgl32.Vec3{}, false
	}
	inv := 1.0 / float32(count)
	return mgl32.Vec3{sum[0] * inv, sum[1] * inv, sum[2] * inv}, true
}

// dominantMaterial picks the corner with the largest (most-inside) weight,
// ties broken by lower corner index.
func dominantMaterial(corner [8]float32, cornerMat *[8]uint8) uint8 {
	best := 0
	for i := 1; i < 8; i++ {
		if corner[i] > corner[best] {
			best = i
		}
	}
	return cornerMat[best]
}

// emitQuad appends two triangles for the quad a-b-c-d, winding chosen so
// that the corner-0-inside and corner-0-outside cases face opposite
// directions, and accumulates each triangle's face normal into its three
// vertices.
func emitQuad(out *Output, a, b, c, d int32, inside0 bool) {
	if a < 0 || b < 0 || c < 0 || d < 0 {
		return
	}
	if inside0 {
		addTriangle(out, a, b, c)
		addTriangle(out, a, c, d)
	} else {
		addTriangle(out, a, c, b)
		addTriangle(out, a, d, c)
	}
}

func addTriangle(out *Output, a, b, c int32) {
	out.Indices = append(out.Indices, uint32(a), uint32(b), uint32(c))
	pa, pb, pc := out.Positions[a], out.Positions[b], out.Positions[c]
	n := pb.Sub(pa).Cross(pc.Sub(pa))
	if l := n.Len(); l > 1e-12 {
		n = n.Mul(1 / l)
	}
	out.Normals[a] = out.Normals[a].Add(n)
	out.Normals[b] = out.Normals[b].Add(n)
	out.Normals[c] = out.Normals[c].Add(n)
}

// finalizeNormals normalizes every accumulated normal and negates it: the
// winding above accumulates inward-pointing sums, so the stored normal is
// the negation of the normalized accumulator.
func finalizeNormals(out *Output) {
	for i, n := range out.Normals {
		if l := n.Len(); l > 1e-12 {
			n = n.Mul(1 / l)
		}
		out.Normals[i] = n.Mul(-1)
	}
}
