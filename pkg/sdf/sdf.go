// Package sdf implements the primitive signed-distance functions consumed
// by the build operation model, following the standard inigo-quilez
// formulations. Distances are in voxel units, negative inside, and every
// primitive keeps its gradient magnitude at or below 1 so downstream
// zero-crossing interpolation stays well-behaved.
package sdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Shape names a primitive SDF. Each maps to a pure function of a local
// point and the BuildConfig's Size/Thickness/ArcSweep/Closed fields.
type Shape int

const (
	Cube Shape = iota
	Sphere
	Cylinder
	Prism
)

// SphereSDF evaluates a sphere: p is in local space, radius in voxel
// units.
func SphereSDF(p mgl32.Vec3, radius float32) float32 {
	return p.Len() - radius
}

// BoxSDF evaluates a round box with half-extents b and corner radius r.
func BoxSDF(p mgl32.Vec3, b mgl32.Vec3, r float32) float32 {
	q := mgl32.Vec3{absf(p.X()) - b.X(), absf(p.Y()) - b.Y(), absf(p.Z()) - b.Z()}
	maxQ := mgl32.Vec3{maxf(q.X(), 0), maxf(q.Y(), 0), maxf(q.Z(), 0)}
	outside := maxQ.Len()
	inside := minf(maxf(q.X(), maxf(q.Y(), q.Z())), 0)
	return outside + inside - r
}

// CylinderSDF evaluates a cylinder SDF aligned to the Y axis: halfHeight
// is the half-length along Y, radius the radius in the XZ plane.
func CylinderSDF(p mgl32.Vec3, halfHeight, radius float32) float32 {
	dx := math32Hypot(p.X(), p.Z()) - radius
	dy := absf(p.Y()) - halfHeight
	outside := math32Hypot(maxf(dx, 0), maxf(dy, 0))
	inside := minf(maxf(dx, dy), 0)
	return outside + inside
}

// TriPrismSDF evaluates a triangular-prism SDF: h.X is the half-width of
// the triangular cross-section, h.Y is the half-depth along Z.
func TriPrismSDF(p mgl32.Vec3, h mgl32.Vec2) float32 {
	q := mgl32.Vec3{absf(p.X()), absf(p.Y()), absf(p.Z())}
	a := q.Z() - h.Y()
	b := maxf(q.X()*0.866025+p.Y()*0.5, -p.Y()) - h.X()*0.5
	return maxf(a, b)
}

// Shell turns a solid SDF into a hollow shell whose wall extends thickness
// on each side of the original surface (a wall 2*thickness thick).
func Shell(d, thickness float32) float32 {
	return absf(d) - thickness
}

// ArcCut intersects an SDF with the complement of a wedge of the given
// angular sweep (radians) about the Y axis, implementing BuildConfig's
// optional ArcSweep modifier. A sweep of 2π (or 0) is a no-op.
func ArcCut(p mgl32.Vec3, d, sweep float32) float32 {
	if sweep <= 0 || sweep >= 2*math.Pi {
		return d
	}
	half := sweep / 2
	// Angular offset (radians) from the wedge's bounding half-planes, in
	// the XZ plane; not a Euclidean distance.
	angle := float32(math.Atan2(float64(p.Z()), float64(p.X())))
	wedge := absf(angle) - half
	// wedge <= 0 inside the allowed sweep; keep the larger (more outside)
	// of the shape distance and the wedge distance so material is removed
	// outside the swept arc.
	return maxf(d, wedge)
}

func absf(v float32) float32 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(a, b float32) float32 {
	if a > b {
		return a
	}
	return b
}

func minf(a, b float32) float32 {
	if a < b {
		return a
	}
	return b
}

func math32Hypot(a, b float32) float32 {
	return float32(math.Hypot(float64(a), float64(b)))
}
