package preview

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"

	"github.com/leterax/voxelcore/pkg/build"
	"github.com/leterax/voxelcore/pkg/sdf"
	"github.com/leterax/voxelcore/pkg/voxel"
	"github.com/leterax/voxelcore/pkg/worker"
	"github.com/leterax/voxelcore/pkg/world"
)

func init() {
	voxel.SetMaterialType(9, voxel.Solid)
}

func flatFill(chunk *voxel.Chunk, seed int64) {
	for z := 0; z < voxel.N; z++ {
		for y := 0; y < voxel.N; y++ {
			for x := 0; x < voxel.N; x++ {
				if y < 16 {
					chunk.SetVoxel(x, y, z, voxel.Pack(0.4, 1, 0))
				}
			}
		}
	}
}

func newTestWorld(t *testing.T, radius int32) (*world.World, *worker.Pool) {
	t.Helper()
	p := worker.New(2, time.Second)
	t.Cleanup(p.Close)
	w := world.New(radius, 1, p, flatFill)
	w.Update(mgl32.Vec3{})
	return w, p
}

func drain(t *testing.T, w *world.World) {
	t.Helper()
	require.Eventually(t, func() bool {
		w.Update(mgl32.Vec3{})
		s := w.Stats()
		return !s.BatchInFlight && s.QueueDepth == 0
	}, time.Second, time.Millisecond)
}

func TestUpdatePreviewIsNonDestructive(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)
	before := append([]voxel.Voxel(nil), mustChunk(t, w, 0, 0, 0).Data()...)

	pv := New(w)
	op := sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9}
	pv.UpdatePreview(mgl32.Vec3{4, 4, 4}, mgl32.QuatIdent(), op)
	drainPreview(t, w, pv)

	after := mustChunk(t, w, 0, 0, 0).Data()
	require.Equal(t, before, after, "preview must never touch authoritative voxel data")

	cm := w.MeshFor(voxel.NewChunkKey(0, 0, 0))
	require.True(t, cm.PreviewActive)
	require.NotNil(t, cm.PreviewSolid)
}

func TestCommitPreviewMatchesDirectApply(t *testing.T) {
	opCfg := sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9}
	center := mgl32.Vec3{4, 4, 4}

	// Direct apply, no preview involved.
	wDirect, _ := newTestWorld(t, 1)
	drain(t, wDirect)
	op := build.NewOperation(center, mgl32.QuatIdent(), opCfg)
	wDirect.ApplyBuildOperation(op)
	directData := append([]voxel.Voxel(nil), mustChunk(t, wDirect, 0, 0, 0).Data()...)

	// Preview then commit.
	wPreview, _ := newTestWorld(t, 1)
	drain(t, wPreview)
	pv := New(wPreview)
	pv.UpdatePreview(center, mgl32.QuatIdent(), opCfg)
	drain(t, wPreview)
	pv.CommitPreview()
	drain(t, wPreview)
	committedData := mustChunk(t, wPreview, 0, 0, 0).Data()

	require.Equal(t, directData, committedData)
}

func TestClearPreviewRestoresMainMesh(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)

	pv := New(w)
	pv.UpdatePreview(mgl32.Vec3{4, 4, 4}, mgl32.QuatIdent(),
		sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9})
	drainPreview(t, w, pv)

	key := voxel.NewChunkKey(0, 0, 0)
	require.True(t, w.MeshFor(key).PreviewActive)

	pv.ClearPreview()
	require.False(t, w.MeshFor(key).PreviewActive)
	require.Empty(t, pv.activePreviewChunks)

	chunk, _ := w.Chunk(key)
	require.False(t, chunk.HasTemp())
}

func TestUpdatePreviewSameOperationIsNoop(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)

	pv := New(w)
	cfg := sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9}
	pv.UpdatePreview(mgl32.Vec3{4, 4, 4}, mgl32.QuatIdent(), cfg)
	drain(t, w)

	before := pv.lastOperation
	pv.UpdatePreview(mgl32.Vec3{4, 4, 4}, mgl32.QuatIdent(), cfg)
	require.Same(t, before, pv.lastOperation, "identical operation must not redispatch a batch")
}

func TestUpdatePreviewAtChunkBoundaryAffectsBothChunks(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)

	pv := New(w)
	// Sphere centered just inside chunk (0,0,0), straddling the x=0
	// boundary with chunk (-1,0,0).
	pv.UpdatePreview(mgl32.Vec3{0.2, 4, 4}, mgl32.QuatIdent(),
		sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9})
	drainPreview(t, w, pv)

	require.True(t, w.MeshFor(voxel.NewChunkKey(0, 0, 0)).PreviewActive)
	require.True(t, w.MeshFor(voxel.NewChunkKey(-1, 0, 0)).PreviewActive,
		"a negative-face neighbor whose shared boundary changed must also get a preview mesh")
}

// drainPreview polls until the preview has no batch in flight and no
// pending operation left to catch up on.
func drainPreview(t *testing.T, w *world.World, pv *Preview) {
	t.Helper()
	require.Eventually(t, func() bool {
		w.Update(mgl32.Vec3{})
		return !pv.batchInFlight && pv.pendingOperation == nil
	}, time.Second, time.Millisecond)
}

func TestUpdatePreviewWhileBatchInFlightCatchesUp(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)
	pv := New(w)

	cfg := sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9}
	centerA := mgl32.Vec3{4, 4, 4}  // chunk (0,0,0)
	centerB := mgl32.Vec3{4, 4, -4} // chunk (0,0,-1)

	pv.UpdatePreview(centerA, mgl32.QuatIdent(), cfg)
	require.True(t, pv.batchInFlight)

	// The cursor moves before A's batch completes: B must be parked, not
	// dispatched, and A's batch must not be cancelled.
	pv.UpdatePreview(centerB, mgl32.QuatIdent(), cfg)
	require.True(t, pv.batchInFlight)
	require.NotNil(t, pv.pendingOperation)

	drainPreview(t, w, pv)

	// The catch-up batch for B ran; the scene displays B, not A.
	require.True(t, pv.lastOperation.Equal(build.NewOperation(centerB, mgl32.QuatIdent(), cfg)))
	require.True(t, w.MeshFor(voxel.NewChunkKey(0, 0, -1)).PreviewActive)
	require.False(t, w.MeshFor(voxel.NewChunkKey(0, 0, 0)).PreviewActive)
}

func TestPreviewDoesNotAccumulateAcrossMoves(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)
	pv := New(w)

	cfg := sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9}
	centerA := mgl32.Vec3{2, 5.5, 2} // voxel (8, 22, 8), in air
	centerB := mgl32.Vec3{6, 5.5, 6} // voxel (24, 22, 24), same chunk

	pv.UpdatePreview(centerA, mgl32.QuatIdent(), cfg)
	drainPreview(t, w, pv)
	pv.UpdatePreview(centerB, mgl32.QuatIdent(), cfg)
	drainPreview(t, w, pv)

	chunk := mustChunk(t, w, 0, 0, 0)
	require.True(t, chunk.HasTemp())

	// A's sphere must be gone from the staging data: each dispatch
	// previews exactly one operation, never the union of the cursor's
	// history.
	idxA := 8 + voxel.N*22 + voxel.N*voxel.N*8
	require.Equal(t, chunk.Data()[idxA], chunk.TempData()[idxA])
	idxB := 24 + voxel.N*22 + voxel.N*voxel.N*24
	require.NotEqual(t, chunk.Data()[idxB], chunk.TempData()[idxB])
}

func TestZeroEffectPreviewDispatchesNothing(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)
	pv := New(w)

	// Subtracting from empty air changes nothing: no batch, no active
	// preview chunks, no staging data left behind.
	pv.UpdatePreview(mgl32.Vec3{4, 6, 4}, mgl32.QuatIdent(),
		sdf.Config{Shape: sdf.Sphere, Mode: sdf.Subtract, Size: mgl32.Vec3{2, 2, 2}})

	require.False(t, pv.batchInFlight)
	require.Empty(t, pv.activePreviewChunks)
	chunk := mustChunk(t, w, 0, 0, 0)
	require.False(t, chunk.HasTemp())
}

func TestCommitThenUnloadDrainsPendingCommit(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)
	pv := New(w)

	pv.UpdatePreview(mgl32.Vec3{4, 4, 4}, mgl32.QuatIdent(),
		sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{2, 2, 2}, Material: 9})
	drainPreview(t, w, pv)

	pv.CommitPreview()
	require.NotEmpty(t, pv.pendingCommitChunks)

	// The player sprints away before the authoritative remesh lands: the
	// unload listener must drain the held chunks rather than leaving
	// dangling preview state.
	far := mgl32.Vec3{float32(voxel.N) * voxel.VoxelScale * 100, 0, 0}
	require.Eventually(t, func() bool {
		w.Update(far)
		return len(pv.pendingCommitChunks) == 0
	}, time.Second, time.Millisecond)
}

func TestOnChunkUnloadedDropsPendingCommit(t *testing.T) {
	w, _ := newTestWorld(t, 1)
	drain(t, w)

	pv := New(w)
	key := voxel.NewChunkKey(0, 0, 0)
	pv.pendingCommitChunks[key] = struct{}{}
	pv.activePreviewChunks[key] = struct{}{}

	pv.onChunkUnloaded(key)

	_, stillPending := pv.pendingCommitChunks[key]
	_, stillActive := pv.activePreviewChunks[key]
	require.False(t, stillPending)
	require.False(t, stillActive)
}

func mustChunk(t *testing.T, w *world.World, cx, cy, cz int32) *voxel.Chunk {
	t.Helper()
	c, ok := w.Chunk(voxel.NewChunkKey(cx, cy, cz))
	require.True(t, ok)
	return c
}
