// Package world implements the voxel world: the authoritative chunk
// map, the remesh queue, and visibility-radius load/unload driven by a
// single per-frame anchor position. It keeps the same shape as a
// network-driven chunk manager — a goroutine-free, main-thread-owned map
// plus a background worker pool — but sources chunk data from local
// terrain generation instead of a server socket.
package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/build"
	"github.com/leterax/voxelcore/pkg/mesh"
	"github.com/leterax/voxelcore/pkg/terrain"
	"github.com/leterax/voxelcore/pkg/voxel"
	"github.com/leterax/voxelcore/pkg/worker"
)

// FillFunc generates a freshly-loaded chunk's voxel data.
type FillFunc func(chunk *voxel.Chunk, seed int64)

// ChunkMesh holds one chunk's renderable state: the authoritative mesh
// per surface type, and a separate preview slot the renderer swaps to
// when PreviewActive is set.
type ChunkMesh struct {
	Solid       *mesh.Geometry
	Transparent *mesh.Geometry
	Liquid      *mesh.Geometry

	PreviewSolid       *mesh.Geometry
	PreviewTransparent *mesh.Geometry
	PreviewLiquid      *mesh.Geometry
	PreviewActive      bool
}

// remeshBatchSize bounds how many dirty chunks are drained into one
// worker batch per update tick.
const remeshBatchSize = 8

// World owns the chunk map, mesh map, and remesh queue exclusively; it is
// driven entirely from the caller's main loop via Update.
type World struct {
	chunks map[voxel.ChunkKey]*voxel.Chunk
	meshes map[voxel.ChunkKey]*ChunkMesh

	remeshQueue    map[voxel.ChunkKey]struct{}
	remeshInFlight bool

	visibilityRadius int32
	seed             int64
	fill             FillFunc

	pool *worker.Pool

	unloadListeners []func(voxel.ChunkKey)
	remeshListeners []func(voxel.ChunkKey)
}

// New constructs a world with the given visibility radius (in chunks),
// terrain seed, and a pool to dispatch meshing work to. fill defaults to
// terrain.Fill when nil.
func New(visibilityRadius int32, seed int64, pool *worker.Pool, fill FillFunc) *World {
	if fill == nil {
		fill = terrain.Fill
	}
	return &World{
		chunks:           make(map[voxel.ChunkKey]*voxel.Chunk),
		meshes:           make(map[voxel.ChunkKey]*ChunkMesh),
		remeshQueue:      make(map[voxel.ChunkKey]struct{}),
		visibilityRadius: visibilityRadius,
		seed:             seed,
		fill:             fill,
		pool:             pool,
	}
}

// Chunk implements voxel.ChunkSource.
func (w *World) Chunk(key voxel.ChunkKey) (*voxel.Chunk, bool) {
	c, ok := w.chunks[key]
	return c, ok
}

// AddUnloadListener registers fn to be called, synchronously, whenever a
// chunk is evicted from memory.
func (w *World) AddUnloadListener(fn func(voxel.ChunkKey)) {
	w.unloadListeners = append(w.unloadListeners, fn)
}

// AddRemeshListener registers fn to be called after a worker result has
// been applied to a chunk's authoritative mesh.
func (w *World) AddRemeshListener(fn func(voxel.ChunkKey)) {
	w.remeshListeners = append(w.remeshListeners, fn)
}

// Pool exposes the worker pool backing this world's own remesh batches,
// so the preview system can dispatch its own batches through the
// same pool.
func (w *World) Pool() *worker.Pool { return w.pool }

// MeshFor returns the chunk's renderable mesh slots, allocating an empty
// one on first access.
func (w *World) MeshFor(key voxel.ChunkKey) *ChunkMesh {
	cm, ok := w.meshes[key]
	if !ok {
		cm = &ChunkMesh{}
		w.meshes[key] = cm
	}
	return cm
}

// Stats is a read-only introspection snapshot, useful to a demo CLI or a
// test asserting queue invariants.
type Stats struct {
	LoadedChunks  int
	QueueDepth    int
	BatchInFlight bool
}

// Stats snapshots the world's current bookkeeping state.
func (w *World) Stats() Stats {
	return Stats{
		LoadedChunks:  len(w.chunks),
		QueueDepth:    len(w.remeshQueue),
		BatchInFlight: w.remeshInFlight,
	}
}

// Update drains any finished worker batches, loads/unloads chunks around
// anchor, and dispatches a bounded slice of the remesh queue. Call once
// per frame.
func (w *World) Update(anchor mgl32.Vec3) {
	w.pool.Poll()

	anchorChunk := worldToChunk(anchor)
	w.loadWithinRadius(anchorChunk)
	w.unloadOutsideRadius(anchorChunk)
	w.drainRemeshQueue()
}

func worldToChunk(p mgl32.Vec3) [3]int32 {
	size := float32(voxel.N) * voxel.VoxelScale
	return [3]int32{
		int32(math.Floor(float64(p.X() / size))),
		int32(math.Floor(float64(p.Y() / size))),
		int32(math.Floor(float64(p.Z() / size))),
	}
}

func (w *World) loadWithinRadius(anchor [3]int32) {
	r := w.visibilityRadius
	for cx := anchor[0] - r; cx <= anchor[0]+r; cx++ {
		for cy := anchor[1] - r; cy <= anchor[1]+r; cy++ {
			for cz := anchor[2] - r; cz <= anchor[2]+r; cz++ {
				key := voxel.NewChunkKey(cx, cy, cz)
				if _, ok := w.chunks[key]; ok {
					continue
				}
				chunk := voxel.NewChunk(cx, cy, cz)
				w.fill(chunk, w.seed)
				w.chunks[key] = chunk
				w.remeshQueue[key] = struct{}{}
			}
		}
	}
}

func (w *World) unloadOutsideRadius(anchor [3]int32) {
	r := w.visibilityRadius
	var toRemove []voxel.ChunkKey
	for key, chunk := range w.chunks {
		if linfDistance(anchor, [3]int32{chunk.CX, chunk.CY, chunk.CZ}) > r {
			toRemove = append(toRemove, key)
		}
	}
	for _, key := range toRemove {
		delete(w.chunks, key)
		delete(w.meshes, key)
		delete(w.remeshQueue, key)
		for _, fn := range w.unloadListeners {
			fn(key)
		}
	}
}

func linfDistance(a, b [3]int32) int32 {
	m := abs32(a[0] - b[0])
	if d := abs32(a[1] - b[1]); d > m {
		m = d
	}
	if d := abs32(a[2] - b[2]); d > m {
		m = d
	}
	return m
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func (w *World) drainRemeshQueue() {
	if w.remeshInFlight || len(w.remeshQueue) == 0 {
		return
	}

	keys := make([]voxel.ChunkKey, 0, remeshBatchSize)
	for key := range w.remeshQueue {
		keys = append(keys, key)
		delete(w.remeshQueue, key)
		if len(keys) == remeshBatchSize {
			break
		}
	}
	if len(keys) == 0 {
		return
	}

	items := make([]worker.Item, 0, len(keys))
	for _, key := range keys {
		chunk, ok := w.chunks[key]
		if !ok {
			continue
		}
		grid := w.pool.TakeGrid()
		skip := voxel.ExpandChunkToGrid(chunk, w, grid, false)
		items = append(items, worker.Item{ChunkKey: key, Grid: grid, SkipHighBoundary: skip})
	}

	w.remeshInFlight = true
	w.pool.DispatchBatch(items, func(results []worker.Result) {
		w.remeshInFlight = false
		for _, r := range results {
			w.applyMeshResult(r)
		}
	})
}

func (w *World) applyMeshResult(r worker.Result) {
	// The chunk may have unloaded while its batch was in flight; a mesh
	// for an evicted chunk must not be resurrected.
	if _, loaded := w.chunks[r.ChunkKey]; !loaded {
		return
	}
	cm, ok := w.meshes[r.ChunkKey]
	if !ok {
		cm = &ChunkMesh{}
		w.meshes[r.ChunkKey] = cm
	}
	cm.Solid = mesh.BuildGeometry(r.Solid)
	cm.Transparent = mesh.BuildGeometry(r.Transparent)
	cm.Liquid = mesh.BuildGeometry(r.Liquid)

	for _, fn := range w.remeshListeners {
		fn(r.ChunkKey)
	}
}

// ApplyBuildOperation applies op immediately and authoritatively: every
// affected, loaded chunk is drawn in place, queued for remesh, and any
// low-margin neighbor whose shared boundary slab changed is queued too so
// the seam stays closed. Returns the chunks that actually changed.
func (w *World) ApplyBuildOperation(op build.Operation) []voxel.ChunkKey {
	var changed []voxel.ChunkKey

	for _, key := range build.AffectedChunks(op) {
		chunk, ok := w.chunks[key]
		if !ok {
			continue
		}

		before := append([]voxel.Voxel(nil), chunk.Data()...)
		did := build.DrawToChunk(chunk, op, chunk.Data())
		if !did {
			continue
		}

		changed = append(changed, key)
		w.remeshQueue[key] = struct{}{}

		for axis := 0; axis < 3; axis++ {
			if !hasLowBoundaryChange(before, chunk.Data(), axis) {
				continue
			}
			neighbor := neighborKey(chunk, axis, -1)
			if _, ok := w.chunks[neighbor]; ok {
				w.remeshQueue[neighbor] = struct{}{}
			}
		}
	}
	return changed
}

func neighborKey(chunk *voxel.Chunk, axis int, delta int32) voxel.ChunkKey {
	cx, cy, cz := chunk.CX, chunk.CY, chunk.CZ
	switch axis {
	case 0:
		cx += delta
	case 1:
		cy += delta
	default:
		cz += delta
	}
	return voxel.NewChunkKey(cx, cy, cz)
}

// hasLowBoundaryChange reports whether any voxel in the low
// voxel.MeshMargin slabs on axis differs between before and after. An
// edit inside those slabs is visible through the negative neighbor's
// high-side halo, so that neighbor needs a remesh too.
func hasLowBoundaryChange(before, after []voxel.Voxel, axis int) bool {
	for z := 0; z < voxel.N; z++ {
		for y := 0; y < voxel.N; y++ {
			for x := 0; x < voxel.N; x++ {
				var coord int
				switch axis {
				case 0:
					coord = x
				case 1:
					coord = y
				default:
					coord = z
				}
				if coord >= voxel.MeshMargin {
					continue
				}
				idx := x + voxel.N*y + voxel.N*voxel.N*z
				if before[idx] != after[idx] {
					return true
				}
			}
		}
	}
	return false
}
