package voxel

import "math"

// Voxel is a packed 16-bit voxel: 5 bits weight, 7 bits material, 4 bits
// flags. Bit layout, low to high: material[0..6], flags[7..10], weight[11..15].
type Voxel uint16

// MaterialType classifies a material index into one of the three
// independent surfaces the mesher can emit.
type MaterialType uint8

const (
	Solid MaterialType = iota
	Transparent
	Liquid
)

const (
	materialBits = 7
	flagsBits    = 4
	weightBits   = 5

	materialShift = 0
	flagsShift    = materialBits
	weightShift   = materialBits + flagsBits

	materialMask = (1 << materialBits) - 1
	flagsMask    = (1 << flagsBits) - 1
	weightMask   = (1 << weightBits) - 1

	weightLevels = weightMask // 31
)

// materialTypeLUT is the process-wide material-type lookup table: 128
// entries, one per material index. It is populated once at program start
// via SetMaterialType and never mutates afterward.
var materialTypeLUT [128]MaterialType

// SetMaterialType assigns the surface type for a material index. Intended
// to be called during process startup (e.g. from a palette loader) before
// any chunk is meshed; the core never calls it itself.
func SetMaterialType(material uint8, t MaterialType) {
	materialTypeLUT[material&materialMask] = t
}

// MaterialTypeOf returns the configured surface type for a material index.
func MaterialTypeOf(material uint8) MaterialType {
	return materialTypeLUT[material&materialMask]
}

// Pack encodes a weight/material/flags triple into a Voxel. weight is
// clamped to [-0.5, 0.5] and quantized to one of 32 levels before packing.
func Pack(weight float32, material uint8, flags uint8) Voxel {
	if weight < -0.5 {
		weight = -0.5
	} else if weight > 0.5 {
		weight = 0.5
	}
	w5 := uint16(math.Round(float64((weight + 0.5) * weightLevels)))
	if w5 > weightMask {
		w5 = weightMask
	}
	v := uint16(material&materialMask) << materialShift
	v |= uint16(flags&flagsMask) << flagsShift
	v |= w5 << weightShift
	return Voxel(v)
}

// Unpacked is the decoded form of a Voxel.
type Unpacked struct {
	Weight   float32
	Material uint8
	Flags    uint8
}

// Unpack decodes a Voxel. Packing is total: every 16-bit value decodes to
// some valid Unpacked value.
func Unpack(v Voxel) Unpacked {
	return Unpacked{
		Weight:   GetWeight(v),
		Material: GetMaterial(v),
		Flags:    GetFlags(v),
	}
}

// GetWeight extracts the signed-distance weight from a packed voxel.
func GetWeight(v Voxel) float32 {
	w5 := (uint16(v) >> weightShift) & weightMask
	return float32(w5)/weightLevels - 0.5
}

// GetMaterial extracts the material index from a packed voxel.
func GetMaterial(v Voxel) uint8 {
	return uint8((uint16(v) >> materialShift) & materialMask)
}

// GetFlags extracts the reserved flag bits from a packed voxel.
func GetFlags(v Voxel) uint8 {
	return uint8((uint16(v) >> flagsShift) & flagsMask)
}

// SdfToWeight maps a signed-distance sample (voxel units, negative inside
// the surface) into the weight domain, preserving sign and monotonicity.
func SdfToWeight(sdf float32) float32 {
	w := -sdf * sdfGain
	if w < -0.5 {
		return -0.5
	}
	if w > 0.5 {
		return 0.5
	}
	return w
}
