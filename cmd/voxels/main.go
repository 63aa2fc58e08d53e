// Command voxels is a headless console demo of the engine: it loads a
// patch of terrain, meshes it on background workers, runs a preview
// edit through the non-destructive pipeline, commits it, and reports
// the resulting mesh statistics. This is the same end-to-end wiring a
// graphical client would drive, with console output standing in for
// draw calls.
package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/leterax/voxelcore/pkg/build"
	"github.com/leterax/voxelcore/pkg/mesh"
	"github.com/leterax/voxelcore/pkg/preview"
	"github.com/leterax/voxelcore/pkg/sdf"
	"github.com/leterax/voxelcore/pkg/voxel"
	"github.com/leterax/voxelcore/pkg/worker"
	"github.com/leterax/voxelcore/pkg/world"
)

func main() {
	seed := flag.Int64("seed", 1, "terrain seed")
	radius := flag.Int("radius", 2, "visibility radius, in chunks")
	workers := flag.Int("workers", 4, "meshing worker count")
	watchdog := flag.Duration("watchdog", worker.DefaultWatchdog, "stuck-batch watchdog timeout")
	flag.Parse()

	// Material 1/2/3 are grass/dirt/stone (pkg/terrain); register them
	// all as solid surfaces for this demo. 9 is a transparent "glass"
	// material used below to exercise the preview's multi-surface split.
	voxel.SetMaterialType(1, voxel.Solid)
	voxel.SetMaterialType(2, voxel.Solid)
	voxel.SetMaterialType(3, voxel.Solid)
	voxel.SetMaterialType(9, voxel.Transparent)

	pool := worker.New(*workers, *watchdog)
	defer pool.Close()

	w := world.New(int32(*radius), *seed, pool, nil)
	pv := preview.New(w)

	// Anchor near the terrain surface (baseHeight is 48 voxels, i.e. 12
	// world units) so the loaded ball of chunks actually contains ground.
	anchor := mgl32.Vec3{0, 12, 0}
	fmt.Printf("loading terrain around origin, radius=%d chunks, seed=%d\n", *radius, *seed)
	drainUntilIdle(w, anchor)
	stats := w.Stats()
	fmt.Printf("loaded %d chunks, %d still queued\n", stats.LoadedChunks, stats.QueueDepth)

	// Preview a glass sphere near the origin (inside chunk (0,1,0)), then hold and
	// commit it, draining the world between each step the same way a
	// real main loop's per-frame Update would.
	op := build.NewOperation(
		mgl32.Vec3{2, 12, 2},
		mgl32.QuatIdent(),
		sdf.Config{Shape: sdf.Sphere, Mode: sdf.Add, Size: mgl32.Vec3{4, 4, 4}, Material: 9},
	)

	fmt.Println("dispatching preview batch for a glass sphere edit...")
	pv.UpdatePreview(op.Center, op.Rotation, op.Config)
	drainUntilIdle(w, anchor)

	fmt.Println("committing edit...")
	changed := pv.CommitPreview()
	drainUntilIdle(w, anchor)

	fmt.Printf("committed, %d chunks changed\n", len(changed))
	for _, key := range changed {
		cm := w.MeshFor(key)
		fmt.Printf("  chunk %v: solid=%d transparent=%d liquid=%d vertices\n",
			key, vertexCount(cm.Solid), vertexCount(cm.Transparent), vertexCount(cm.Liquid))
	}
}

func vertexCount(g *mesh.Geometry) int {
	if g == nil {
		return 0
	}
	return len(g.Vertices)
}

// drainUntilIdle polls the world until no remesh batch is in flight and
// the queue is empty, or a generous timeout elapses. Standing in for
// the per-frame Update calls a real main loop would make anyway.
func drainUntilIdle(w *world.World, anchor mgl32.Vec3) {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		w.Update(anchor)
		s := w.Stats()
		if !s.BatchInFlight && s.QueueDepth == 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
}
