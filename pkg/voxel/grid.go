package voxel

// GridSize is the edge length of an expanded grid: one chunk plus a
// 1-voxel halo on each side.
const GridSize = N + 2

// Grid is a dense (N+2)³ packed-voxel buffer used by the mesher. Index 0
// and GridSize-1 on each axis hold the halo sampled from neighbor chunks.
type Grid struct {
	Data             []Voxel
	SkipHighBoundary [3]bool
}

// NewGrid allocates a zeroed expanded grid buffer.
func NewGrid() *Grid {
	return &Grid{Data: make([]Voxel, GridSize*GridSize*GridSize)}
}

// GridIndex converts expanded-grid coordinates (each in [0, GridSize)) to a
// flat index.
func GridIndex(gx, gy, gz int) int {
	return gx + GridSize*gy + GridSize*GridSize*gz
}

// ExpandChunkToGrid fills out with chunk's own voxels plus a 1-voxel halo
// sampled from its neighbors (via source). preferTemp
// selects whether a chunk's staging copy is read when present — both for
// the center chunk and for any neighbor contributing to the halo. The
// returned [3]bool reports, per axis, whether the positive neighbor chunk
// is unloaded (so the mesher must suppress faces that would otherwise hang
// unconnected at the chunk's far edge).
func ExpandChunkToGrid(chunk *Chunk, source ChunkSource, out *Grid, preferTemp bool) [3]bool {
	if len(out.Data) != GridSize*GridSize*GridSize {
		out.Data = make([]Voxel, GridSize*GridSize*GridSize)
	}

	for gz := 0; gz < GridSize; gz++ {
		lz := gz - 1
		for gy := 0; gy < GridSize; gy++ {
			ly := gy - 1
			for gx := 0; gx < GridSize; gx++ {
				lx := gx - 1
				out.Data[GridIndex(gx, gy, gz)] = chunk.GetVoxelWithMargin(lx, ly, lz, source, preferTemp)
			}
		}
	}

	skip := [3]bool{true, true, true}
	if source != nil {
		if _, ok := source.Chunk(NewChunkKey(chunk.CX+1, chunk.CY, chunk.CZ)); ok {
			skip[0] = false
		}
		if _, ok := source.Chunk(NewChunkKey(chunk.CX, chunk.CY+1, chunk.CZ)); ok {
			skip[1] = false
		}
		if _, ok := source.Chunk(NewChunkKey(chunk.CX, chunk.CY, chunk.CZ+1)); ok {
			skip[2] = false
		}
	}
	out.SkipHighBoundary = skip
	return skip
}
