package worker

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/leterax/voxelcore/pkg/voxel"
)

func TestDispatchBatchFiresCallbackOnceAllComplete(t *testing.T) {
	p := New(2, time.Second)
	defer p.Close()

	items := []Item{
		{ChunkKey: voxel.NewChunkKey(0, 0, 0), Grid: p.TakeGrid()},
		{ChunkKey: voxel.NewChunkKey(1, 0, 0), Grid: p.TakeGrid()},
		{ChunkKey: voxel.NewChunkKey(2, 0, 0), Grid: p.TakeGrid()},
	}

	var got []Result
	fired := 0
	p.DispatchBatch(items, func(results []Result) {
		fired++
		got = results
	})

	require.Eventually(t, func() bool {
		p.Poll()
		return fired == 1
	}, time.Second, time.Millisecond)

	require.Equal(t, 1, fired)
	require.Len(t, got, 3)
}

func TestDispatchBatchEmptyFiresImmediately(t *testing.T) {
	p := New(1, time.Second)
	defer p.Close()

	fired := false
	p.DispatchBatch(nil, func(results []Result) {
		fired = true
		require.Empty(t, results)
	})

	require.Eventually(t, func() bool {
		p.Poll()
		return fired
	}, time.Second, time.Millisecond)
}

func TestCancelBatchSuppressesCallback(t *testing.T) {
	p := New(1, time.Second)
	defer p.Close()

	items := []Item{{ChunkKey: voxel.NewChunkKey(0, 0, 0), Grid: p.TakeGrid()}}
	fired := false
	cancel := p.DispatchBatch(items, func(results []Result) { fired = true })
	cancel()

	time.Sleep(20 * time.Millisecond)
	p.Poll()
	require.False(t, fired)
}

func TestWatchdogExpiresStuckBatch(t *testing.T) {
	p := New(1, 10*time.Millisecond)
	defer p.Close()

	// Register a batch with one outstanding item and never submit a job
	// for it, simulating a worker that never returns.
	var got []Result
	fired := false
	id := uuid.New()
	p.mu.Lock()
	p.batches[id] = &batchState{total: 1, callback: func(r []Result) {
		fired = true
		got = r
	}}
	p.mu.Unlock()
	p.batches[id].timer = time.AfterFunc(10*time.Millisecond, func() { p.expire(id) })

	require.Eventually(t, func() bool {
		p.Poll()
		return fired
	}, time.Second, time.Millisecond)
	require.Empty(t, got)
}
