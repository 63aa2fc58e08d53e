package sdf

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Mode describes how a build operation's SDF sample combines with a
// chunk's existing voxel weight.
type Mode int

const (
	Add Mode = iota
	Subtract
	Paint
	Fill
)

// Config parameterizes a primitive shape for one build operation.
type Config struct {
	Shape     Shape
	Mode      Mode
	Size      mgl32.Vec3 // half-extents, in voxels
	Material  uint8
	Thickness float32 // optional shell thickness; 0 disables
	ArcSweep  float32 // optional angular slice in radians; 0 disables
	Closed    bool    // seal a shell's +Y cap; ignored when Thickness is 0
}

// Validate clamps a Config to well-formed values instead of letting a
// malformed caller-supplied config reach the mesher. Malformed input is a
// caller bug, handled by clamping rather than by returning an error.
func Validate(c Config) Config {
	out := c
	out.Size = clampFiniteVec3(c.Size, 1e-3)
	if out.Material > 127 {
		out.Material = 127
	}
	if !finite32(out.Thickness) || out.Thickness < 0 {
		out.Thickness = 0
	}
	if !finite32(out.ArcSweep) || out.ArcSweep < 0 {
		out.ArcSweep = 0
	}
	if out.ArcSweep > 2*math.Pi {
		out.ArcSweep = float32(2 * math.Pi)
	}
	return out
}

func finite32(v float32) bool {
	return !math.IsNaN(float64(v)) && !math.IsInf(float64(v), 0)
}

func clampFiniteVec3(v mgl32.Vec3, min float32) mgl32.Vec3 {
	out := v
	for i := 0; i < 3; i++ {
		if !finite32(out[i]) || out[i] < min {
			out[i] = min
		}
	}
	return out
}

// Eval dispatches on config.Shape to the matching primitive, applying the
// optional Thickness (shell) and ArcSweep (angular slice) modifiers.
// point is in the shape's local, unrotated frame.
func Eval(point mgl32.Vec3, c Config) float32 {
	var d float32
	switch c.Shape {
	case Sphere:
		// Size is stored as half-extents; use the largest component as
		// the radius so non-uniform Size still yields a well-formed SDF.
		d = SphereSDF(point, maxComponent(c.Size))
	case Cylinder:
		d = CylinderSDF(point, c.Size.Y(), maxf(c.Size.X(), c.Size.Z()))
	case Prism:
		d = TriPrismSDF(point, mgl32.Vec2{c.Size.X(), c.Size.Z()})
	default: // Cube
		d = BoxSDF(point, c.Size, 0)
	}

	if c.Thickness > 0 {
		d = Shell(d, c.Thickness)
		if !c.Closed {
			// An open shell loses its +Y cap: tubes and bowls instead of
			// sealed hulls. The cut plane sits at the inner rim so the
			// remaining wall still reaches full thickness.
			d = maxf(d, point.Y()-(c.Size.Y()-c.Thickness))
		}
	}
	if c.ArcSweep > 0 {
		d = ArcCut(point, d, c.ArcSweep)
	}
	return d
}

func maxComponent(v mgl32.Vec3) float32 {
	return maxf(v.X(), maxf(v.Y(), v.Z()))
}
