// Package worker implements the fixed-size meshing worker pool: a free
// list of reusable expanded-grid buffers plus a batch dispatch protocol
// whose callback always runs on the caller of Poll, never on a worker
// goroutine. Items within a batch complete in any order; the batch
// completes exactly once, when every item has.
package worker

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/leterax/voxelcore/pkg/mesh"
	"github.com/leterax/voxelcore/pkg/voxel"
)

// Item is one chunk's meshing job within a batch.
type Item struct {
	ChunkKey         voxel.ChunkKey
	Grid             *voxel.Grid
	SkipHighBoundary [3]bool
}

// Result is one chunk's meshing output.
type Result struct {
	ChunkKey    voxel.ChunkKey
	Solid       *mesh.Output
	Transparent *mesh.Output
	Liquid      *mesh.Output
}

// CancelFunc stops a dispatched batch's callback from ever firing.
// In-flight items keep running on their worker and still release their
// grid back to the free list; the batch simply produces no callback.
type CancelFunc func()

// DefaultWatchdog is how long a batch may sit with outstanding items
// before the pool gives up on it and fires the callback with no results.
const DefaultWatchdog = 5 * time.Second

// Pool is a fixed-size pool of meshing workers plus a grid free list.
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	grids sync.Pool

	watchdog time.Duration

	mu      sync.Mutex
	batches map[uuid.UUID]*batchState

	done chan uuid.UUID
}

type job struct {
	batchID uuid.UUID
	item    Item
}

type batchState struct {
	total     int
	completed int
	cancelled bool
	results   []Result
	callback  func([]Result)
	timer     *time.Timer
}

// New starts a pool of numWorkers goroutines, each pulling meshing jobs
// off a shared channel. watchdog <= 0 selects DefaultWatchdog.
func New(numWorkers int, watchdog time.Duration) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if watchdog <= 0 {
		watchdog = DefaultWatchdog
	}
	p := &Pool{
		jobs:     make(chan job, numWorkers*4),
		watchdog: watchdog,
		batches:  make(map[uuid.UUID]*batchState),
		done:     make(chan uuid.UUID, numWorkers*4),
	}
	p.grids.New = func() any { return voxel.NewGrid() }

	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for j := range p.jobs {
		solid, transparent, liquid := mesh.Mesh(j.item.Grid)
		p.complete(j.batchID, Result{
			ChunkKey:    j.item.ChunkKey,
			Solid:       solid,
			Transparent: transparent,
			Liquid:      liquid,
		}, j.item.Grid)
	}
}

// TakeGrid pops a reusable expanded-grid buffer from the free list,
// allocating one if the list is empty.
func (p *Pool) TakeGrid() *voxel.Grid {
	return p.grids.Get().(*voxel.Grid)
}

// ReturnGrid releases a grid buffer back to the free list. Callers must
// not touch the buffer afterward.
func (p *Pool) ReturnGrid(g *voxel.Grid) {
	p.grids.Put(g)
}

// DispatchBatch submits items as one logical batch. callback fires
// exactly once, when every item has completed or the watchdog gives up,
// whichever happens first — always from a call to Poll, never from a
// worker goroutine.
func (p *Pool) DispatchBatch(items []Item, callback func([]Result)) CancelFunc {
	id := uuid.New()
	state := &batchState{
		total:    len(items),
		callback: callback,
		results:  make([]Result, 0, len(items)),
	}

	p.mu.Lock()
	p.batches[id] = state
	p.mu.Unlock()

	if len(items) == 0 {
		p.done <- id
		return func() { p.cancel(id) }
	}

	state.timer = time.AfterFunc(p.watchdog, func() { p.expire(id) })

	for _, it := range items {
		p.jobs <- job{batchID: id, item: it}
	}
	return func() { p.cancel(id) }
}

func (p *Pool) complete(id uuid.UUID, result Result, grid *voxel.Grid) {
	p.mu.Lock()
	state, ok := p.batches[id]
	if !ok {
		p.mu.Unlock()
		p.ReturnGrid(grid)
		return
	}
	if !state.cancelled {
		state.results = append(state.results, result)
	}
	state.completed++
	ready := state.completed >= state.total
	p.mu.Unlock()

	p.ReturnGrid(grid)
	if ready {
		p.done <- id
	}
}

func (p *Pool) expire(id uuid.UUID) {
	p.mu.Lock()
	_, ok := p.batches[id]
	p.mu.Unlock()
	if ok {
		p.done <- id
	}
}

func (p *Pool) cancel(id uuid.UUID) {
	p.mu.Lock()
	if state, ok := p.batches[id]; ok {
		state.cancelled = true
	}
	p.mu.Unlock()
}

// Poll drains every batch that has finished (or expired) since the last
// call and invokes its callback. Cancelled batches are cleaned up
// silently. Call this once per frame from the main loop; this is the
// only place callbacks run.
func (p *Pool) Poll() {
	for {
		select {
		case id := <-p.done:
			p.finish(id)
		default:
			return
		}
	}
}

func (p *Pool) finish(id uuid.UUID) {
	p.mu.Lock()
	state, ok := p.batches[id]
	if !ok {
		p.mu.Unlock()
		return
	}
	delete(p.batches, id)
	p.mu.Unlock()

	if state.timer != nil {
		state.timer.Stop()
	}
	if state.cancelled {
		return
	}

	results := state.results
	if len(results) < state.total {
		// Watchdog fired before every item completed: fire an empty
		// result set rather than a partial one, so the preview/world
		// layer treats it uniformly as "no change" rather than guessing
		// which chunks are stale.
		results = nil
	}
	if state.callback != nil {
		state.callback(results)
	}
}

// Close stops accepting new jobs and waits for in-flight workers to
// drain. No further batches may be dispatched afterward.
func (p *Pool) Close() {
	close(p.jobs)
	p.wg.Wait()
}
