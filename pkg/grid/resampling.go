// Package grid computes resampling lattices that pad or crop an image
// grid without moving any of its existing sample positions, and provides
// a nearest-neighbour resampler that works on those lattices.
package grid

import (
	"fmt"
	"math"

	"regconvert/pkg/geometry"
)

// Compute returns the geometry of a grid with spacing targetSpacing that
// extends base by pad physical units on both sides of every axis.
// Negative pad crops. Direction is copied from base, the new origin is
//
//	origin = base.Origin - Σ_i pad[i]·e_i
//
// with e_i the i-th direction column, and the size along axis i is
//
//	round(base.Size[i]·base.Spacing[i]/targetSpacing[i] + 2·pad[i]/targetSpacing[i])
//
// rounded half away from zero and clamped at zero. Non-finite padding and
// axes of 2^31 voxels or more are rejected.
func Compute(base geometry.ImageGeometry, targetSpacing, pad []float64) (geometry.ImageGeometry, error) {
	if base.Dim != 2 && base.Dim != 3 {
		return geometry.ImageGeometry{}, fmt.Errorf("%w: unsupported base dimension %d", geometry.ErrDimension, base.Dim)
	}
	if len(targetSpacing) != base.Dim || len(pad) != base.Dim {
		return geometry.ImageGeometry{}, fmt.Errorf("%w: base is %d-D, spacing has %d entries, pad has %d",
			geometry.ErrDimension, base.Dim, len(targetSpacing), len(pad))
	}
	for i, s := range targetSpacing {
		if !(s > 0) || math.IsInf(s, 1) {
			return geometry.ImageGeometry{}, fmt.Errorf("%w: target spacing[%d] = %g", geometry.ErrInvalidSpacing, i, s)
		}
		if !(base.Spacing[i] > 0) {
			return geometry.ImageGeometry{}, fmt.Errorf("%w: base spacing[%d] = %g", geometry.ErrInvalidSpacing, i, base.Spacing[i])
		}
	}
	for i, p := range pad {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return geometry.ImageGeometry{}, fmt.Errorf("%w: pad[%d] = %g", geometry.ErrInvalidPadding, i, p)
		}
	}

	out := geometry.ImageGeometry{
		Dim:       base.Dim,
		Origin:    base.Origin,
		Direction: base.Direction,
	}
	for i := 0; i < base.Dim; i++ {
		out.Spacing[i] = targetSpacing[i]

		extent := math.Round(float64(base.Size[i])*base.Spacing[i]/targetSpacing[i] + 2*pad[i]/targetSpacing[i])
		if math.IsNaN(extent) || extent >= math.MaxInt32 {
			return geometry.ImageGeometry{}, fmt.Errorf("%w: axis %d would hold %g voxels", geometry.ErrInvalidPadding, i, extent)
		}
		out.Size[i] = int(math.Max(0, extent))

		for r := 0; r < base.Dim; r++ {
			out.Origin[r] -= base.Direction[r][i] * pad[i]
		}
	}
	return out, nil
}

// RegionOfInterest returns the geometry of the index box [start, start+size)
// of base. The lattice points it keeps are unchanged.
func RegionOfInterest(base geometry.ImageGeometry, start, size []int) (geometry.ImageGeometry, error) {
	if len(start) != base.Dim || len(size) != base.Dim {
		return geometry.ImageGeometry{}, fmt.Errorf("%w: base is %d-D, start has %d entries, size has %d",
			geometry.ErrDimension, base.Dim, len(start), len(size))
	}
	idx := make([]float64, base.Dim)
	for i := 0; i < base.Dim; i++ {
		if start[i] < 0 || size[i] < 0 || start[i]+size[i] > base.Size[i] {
			return geometry.ImageGeometry{}, fmt.Errorf("region [%d, %d) outside axis %d of size %d",
				start[i], start[i]+size[i], i, base.Size[i])
		}
		idx[i] = float64(start[i])
	}

	out := base
	copy(out.Size[:], size)
	copy(out.Origin[:], base.IndexToPhysicalPoint(idx))
	return out, nil
}

// TrimToMultiple crops every axis of base from the upper end so that its
// size is a multiple of factor.
func TrimToMultiple(base geometry.ImageGeometry, factor int) (geometry.ImageGeometry, error) {
	if factor <= 0 {
		return geometry.ImageGeometry{}, fmt.Errorf("trim factor must be positive, got %d", factor)
	}
	start := make([]int, base.Dim)
	size := make([]int, base.Dim)
	for i := 0; i < base.Dim; i++ {
		size[i] = base.Size[i] - base.Size[i]%factor
	}
	return RegionOfInterest(base, start, size)
}
