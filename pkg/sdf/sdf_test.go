package sdf

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/require"
)

func TestSphereSDFSignAtCenterAndSurface(t *testing.T) {
	require.InDelta(t, -2.0, SphereSDF(mgl32.Vec3{0, 0, 0}, 2), 1e-6)
	require.InDelta(t, 0.0, SphereSDF(mgl32.Vec3{2, 0, 0}, 2), 1e-6)
	require.Greater(t, SphereSDF(mgl32.Vec3{3, 0, 0}, 2), float32(0))
}

func TestBoxSDFCorners(t *testing.T) {
	b := mgl32.Vec3{1, 1, 1}
	require.Less(t, BoxSDF(mgl32.Vec3{0, 0, 0}, b, 0), float32(0))
	require.InDelta(t, 0.0, BoxSDF(mgl32.Vec3{1, 0, 0}, b, 0), 1e-6)
	require.Greater(t, BoxSDF(mgl32.Vec3{2, 0, 0}, b, 0), float32(0))
}

func TestCylinderSDF(t *testing.T) {
	require.Less(t, CylinderSDF(mgl32.Vec3{0, 0, 0}, 2, 1), float32(0))
	require.Greater(t, CylinderSDF(mgl32.Vec3{0, 3, 0}, 2, 1), float32(0))
	require.Greater(t, CylinderSDF(mgl32.Vec3{2, 0, 0}, 2, 1), float32(0))
}

func TestShellProducesHollowSurface(t *testing.T) {
	d := SphereSDF(mgl32.Vec3{0, 0, 0}, 2)
	shelled := Shell(d, 0.2)
	// Center of a solid sphere is well inside; the shell pushes it
	// outside once the thickness no longer reaches the center.
	require.Greater(t, shelled, float32(0))
}

func TestEvalDispatchesOnShape(t *testing.T) {
	cfg := Config{Shape: Sphere, Size: mgl32.Vec3{2, 2, 2}}
	require.InDelta(t, -2.0, Eval(mgl32.Vec3{0, 0, 0}, cfg), 1e-6)

	cfg.Shape = Cube
	cfg.Size = mgl32.Vec3{1, 1, 1}
	require.Less(t, Eval(mgl32.Vec3{0, 0, 0}, cfg), float32(0))
}

func TestEvalShellClosedControlsTopCap(t *testing.T) {
	cfg := Config{Shape: Sphere, Size: mgl32.Vec3{3, 3, 3}, Thickness: 0.5}

	// A point inside the wall near the top pole: removed on an open
	// shell, kept on a closed one.
	top := mgl32.Vec3{0, 2.9, 0}
	require.Greater(t, Eval(top, cfg), float32(0))
	cfg.Closed = true
	require.Less(t, Eval(top, cfg), float32(0))

	// The side wall is present either way.
	side := mgl32.Vec3{2.9, 0, 0}
	require.Less(t, Eval(side, cfg), float32(0))
	cfg.Closed = false
	require.Less(t, Eval(side, cfg), float32(0))
}

func TestValidateClampsBadInputs(t *testing.T) {
	cfg := Config{
		Size:      mgl32.Vec3{-1, 0, 1e9},
		Material:  200,
		Thickness: -5,
		ArcSweep:  100,
	}
	got := Validate(cfg)
	require.GreaterOrEqual(t, got.Size.X(), float32(0))
	require.GreaterOrEqual(t, got.Size.Y(), float32(0))
	require.LessOrEqual(t, got.Material, uint8(127))
	require.GreaterOrEqual(t, got.Thickness, float32(0))
	require.LessOrEqual(t, float64(got.ArcSweep), 2*3.14159265+1e-6)
}
