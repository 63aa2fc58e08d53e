// Package voxel implements the packed voxel format, chunk storage, and the
// boundary-stitching grid expander that feeds the SurfaceNets mesher.
package voxel

// N is the fixed edge length of a chunk, in voxels.
const N = 32

// VoxelScale is the world-space size of one voxel, in meters.
const VoxelScale = 0.25

// MeshMargin is the number of low-boundary voxel layers inspected when
// deciding whether an edit requires re-meshing a negative-axis neighbor.
const MeshMargin = 2

// FilterWeight is substituted for a corner's weight when that corner's
// material type doesn't belong to the mesh type currently being swept,
// pushing the corner just outside the surface for that pass.
const FilterWeight = -1e-5

// sdfGain is the scale factor in SdfToWeight. SDF samples reaching this
// function are already expressed in voxel units and scale-1 Lipschitz, so
// a gain of 1 makes weight track the signed distance directly near the
// zero crossing: weight ≈ -sdf for |sdf| < 0.5, a half-voxel swing per
// voxel of surface offset.
const sdfGain = 1.0

// AirVoxel is the packed value representing empty space: minimum weight,
// material 0, no flags.
const AirVoxel = Voxel(0)
