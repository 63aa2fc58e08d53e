// Package preview implements the non-destructive build preview:
// the hardest subsystem in the core. It shadows the real meshes of
// touched chunks with worker-meshed previews that track a moving cursor
// without tearing, without stalling the main thread, and without
// wasting worker cycles when the cursor outruns a batch. The scheduling
// discipline generalizes a let-it-finish-then-catch-up queue (the same
// shape a chunk manager uses for incoming network chunk jobs) from "one
// job queue" to "the latest pending operation wins".
package preview

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/build"
	"github.com/leterax/voxelcore/pkg/mesh"
	"github.com/leterax/voxelcore/pkg/sdf"
	"github.com/leterax/voxelcore/pkg/voxel"
	"github.com/leterax/voxelcore/pkg/worker"
	"github.com/leterax/voxelcore/pkg/world"
)

// Preview tracks the build-preview state machine. It is driven from the
// same main loop as world.World, after World.Update so the chunks it
// previews against are loaded.
type Preview struct {
	w    *world.World
	pool *worker.Pool

	activePreviewChunks map[voxel.ChunkKey]struct{}
	batchInFlight       bool
	pendingOperation    *build.Operation
	lastOperation       *build.Operation
	pendingCommitChunks map[voxel.ChunkKey]struct{}
	cancelBatch         worker.CancelFunc
}

// New builds a Preview bound to w, registering the remesh and unload
// hooks it needs to hand off commits and avoid retaining dead chunks.
func New(w *world.World) *Preview {
	pv := &Preview{
		w:                   w,
		pool:                w.Pool(),
		activePreviewChunks: make(map[voxel.ChunkKey]struct{}),
		pendingCommitChunks: make(map[voxel.ChunkKey]struct{}),
	}
	w.AddRemeshListener(pv.onChunkRemeshed)
	w.AddUnloadListener(pv.onChunkUnloaded)
	return pv
}

// UpdatePreview is called every frame with the cursor's current
// placement. An operation equal to the one already displayed is a no-op;
// an operation arriving while a batch is in flight is parked as pending
// rather than cancelling the batch, and dispatched when the batch's
// callback drains.
func (pv *Preview) UpdatePreview(center mgl32.Vec3, rotation mgl32.Quat, config sdf.Config) {
	op := build.NewOperation(center, rotation, config)

	if pv.lastOperation != nil && pv.lastOperation.Equal(op) && !pv.batchInFlight && len(pv.activePreviewChunks) > 0 {
		return
	}

	if pv.batchInFlight {
		pv.pendingOperation = &op
		return
	}

	pv.lastOperation = &op
	pv.dispatchPreviewBatch(op)
}

// dispatchPreviewBatch runs Pass 1 (draw into tempData), Pass 2 (expand
// drawn chunks), Pass 2b (pull in negative-face neighbors whose shared
// boundary changed), then hands the batch to the worker pool.
func (pv *Preview) dispatchPreviewBatch(op build.Operation) {
	affected := build.AffectedChunks(op)

	// Drop every previous staging draw first: the grid expansions below
	// read neighbor tempData wherever it exists, and a chunk still
	// displaying the last operation must not leak that operation's edits
	// into the new batch through its halo.
	for key := range pv.activePreviewChunks {
		if chunk, ok := pv.w.Chunk(key); ok {
			chunk.DiscardTemp()
		}
	}

	var drawnChunks []voxel.ChunkKey
	drawn := make(map[voxel.ChunkKey]bool)

	// Pass 1: must finish for every affected chunk before Pass 2 starts,
	// since Pass 2b reads neighbor tempData.
	for _, key := range affected {
		chunk, ok := pv.w.Chunk(key)
		if !ok {
			continue
		}
		chunk.ResetTemp()
		if build.DrawToChunk(chunk, op, chunk.TempData()) {
			drawnChunks = append(drawnChunks, key)
			drawn[key] = true
		} else {
			chunk.DiscardTemp()
		}
	}

	dispatched := make(map[voxel.ChunkKey]bool, len(drawnChunks))
	newActive := make(map[voxel.ChunkKey]struct{}, len(drawnChunks))
	var batchItems []worker.Item

	// Pass 2: expand and queue every drawn chunk.
	for _, key := range drawnChunks {
		chunk, _ := pv.w.Chunk(key)
		grid := pv.pool.TakeGrid()
		skip := voxel.ExpandChunkToGrid(chunk, pv.w, grid, true)
		batchItems = append(batchItems, worker.Item{ChunkKey: key, Grid: grid, SkipHighBoundary: skip})
		dispatched[key] = true
		newActive[key] = struct{}{}
	}

	// Pass 2b: a drawn chunk's negative-face neighbor reads our drawn
	// data through its own high-side halo, so it must be remeshed too if
	// the shared boundary actually changed.
	for _, key := range drawnChunks {
		chunk, _ := pv.w.Chunk(key)
		for axis := 0; axis < 3; axis++ {
			if !hasLowBoundaryChange(chunk.Data(), chunk.TempData(), axis) {
				continue
			}
			nk := neighborKey(chunk, axis, -1)
			if dispatched[nk] {
				continue
			}
			neighbor, ok := pv.w.Chunk(nk)
			if !ok {
				continue
			}
			grid := pv.pool.TakeGrid()
			skip := voxel.ExpandChunkToGrid(neighbor, pv.w, grid, true)
			batchItems = append(batchItems, worker.Item{ChunkKey: nk, Grid: grid, SkipHighBoundary: skip})
			dispatched[nk] = true
			newActive[nk] = struct{}{}
		}
	}

	// Chunks that had a visible preview but aren't part of this batch:
	// computed after Pass 2b so boundary neighbors are never wrongly
	// evicted.
	chunksToRemove := make(map[voxel.ChunkKey]struct{})
	for key := range pv.activePreviewChunks {
		if _, stillActive := newActive[key]; !stillActive {
			chunksToRemove[key] = struct{}{}
		}
	}
	for key := range newActive {
		pv.activePreviewChunks[key] = struct{}{}
	}

	if len(batchItems) == 0 {
		pv.clearChunks(chunksToRemove)
		return
	}

	pv.batchInFlight = true
	pv.cancelBatch = pv.pool.DispatchBatch(batchItems, func(results []worker.Result) {
		pv.batchInFlight = false
		pv.cancelBatch = nil
		pv.clearChunks(chunksToRemove)
		for _, r := range results {
			// A batch member can unload mid-flight; its result is moot.
			if _, ok := pv.w.Chunk(r.ChunkKey); !ok {
				continue
			}
			cm := pv.w.MeshFor(r.ChunkKey)
			cm.PreviewSolid = mesh.BuildGeometry(r.Solid)
			cm.PreviewTransparent = mesh.BuildGeometry(r.Transparent)
			cm.PreviewLiquid = mesh.BuildGeometry(r.Liquid)
			cm.PreviewActive = true
		}
		pv.processPending()
	})
}

// processPending dispatches the latest operation requested while a batch
// was in flight, if it differs from what's currently displayed.
func (pv *Preview) processPending() {
	if pv.pendingOperation == nil {
		return
	}
	op := *pv.pendingOperation
	pv.pendingOperation = nil
	if pv.lastOperation != nil && pv.lastOperation.Equal(op) {
		return
	}
	pv.lastOperation = &op
	pv.dispatchPreviewBatch(op)
}

// clearChunks restores main-mesh visibility and discards staging data for
// exactly the given chunks, and drops them from activePreviewChunks.
func (pv *Preview) clearChunks(keys map[voxel.ChunkKey]struct{}) {
	for key := range keys {
		cm := pv.w.MeshFor(key)
		cm.PreviewActive = false
		if chunk, ok := pv.w.Chunk(key); ok {
			chunk.DiscardTemp()
		}
		delete(pv.activePreviewChunks, key)
	}
}

// ClearPreview cancels any in-flight batch, discards every active
// preview chunk's staging data, and hides every preview mesh. It never
// touches pendingCommitChunks.
func (pv *Preview) ClearPreview() {
	if pv.cancelBatch != nil {
		pv.cancelBatch()
		pv.cancelBatch = nil
	}
	all := pv.activePreviewChunks
	pv.activePreviewChunks = make(map[voxel.ChunkKey]struct{})
	for key := range all {
		cm := pv.w.MeshFor(key)
		cm.PreviewActive = false
		if chunk, ok := pv.w.Chunk(key); ok {
			chunk.DiscardTemp()
		}
	}
	pv.batchInFlight = false
	pv.pendingOperation = nil
	pv.lastOperation = nil
}

// HoldPreview keeps preview meshes visible (the caller has accepted the
// edit and is waiting on server/commit confirmation): cancels any
// in-flight batch, discards staging data, and moves the active preview
// chunks into pendingCommitChunks. Preview meshes stay visible until
// onChunkRemeshed clears each one individually.
func (pv *Preview) HoldPreview() {
	if pv.cancelBatch != nil {
		pv.cancelBatch()
		pv.cancelBatch = nil
	}
	for key := range pv.activePreviewChunks {
		if chunk, ok := pv.w.Chunk(key); ok {
			chunk.DiscardTemp()
		}
		pv.pendingCommitChunks[key] = struct{}{}
	}
	pv.activePreviewChunks = make(map[voxel.ChunkKey]struct{})
	pv.batchInFlight = false
	pv.pendingOperation = nil
	pv.lastOperation = nil
}

// CommitPreview applies the currently displayed operation authoritatively
// through the world, then holds the preview meshes visible until the
// resulting authoritative remesh replaces them, so committing never
// flashes the pre-edit mesh. The world path is the same one a direct
// (non-previewed) edit takes, so a committed preview cannot diverge from
// it. Returns the chunks the world actually changed.
func (pv *Preview) CommitPreview() []voxel.ChunkKey {
	if pv.lastOperation == nil {
		return nil
	}
	op := *pv.lastOperation
	pv.HoldPreview()
	return pv.w.ApplyBuildOperation(op)
}

// onChunkRemeshed is registered with the world: once a pending-commit
// chunk's authoritative mesh is in, its preview mesh steps aside.
func (pv *Preview) onChunkRemeshed(key voxel.ChunkKey) {
	if _, ok := pv.pendingCommitChunks[key]; !ok {
		return
	}
	delete(pv.pendingCommitChunks, key)
	pv.w.MeshFor(key).PreviewActive = false
}

func (pv *Preview) onChunkUnloaded(key voxel.ChunkKey) {
	delete(pv.pendingCommitChunks, key)
	delete(pv.activePreviewChunks, key)
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

// hasLowBoundaryChange mirrors world's own boundary-change check: any
// voxel differing between before and after within the low
// voxel.MeshMargin slabs on axis.
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
