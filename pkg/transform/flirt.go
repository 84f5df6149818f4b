package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"regconvert/pkg/geometry"
)

// fslVoxelToScaled returns the homogeneous matrix taking a voxel index of g
// to FSL scaled-voxel coordinates (index times spacing).
//
// FSL works in radiological order. When the voxel→world mapping has a
// positive determinant the first index axis is mirrored, so coordinate 0
// sits at the last voxel along that axis.
func fslVoxelToScaled(g *geometry.ImageGeometry) *mat.Dense {
	m := mat.NewDense(4, 4, nil)
	for i := 0; i < 3; i++ {
		m.Set(i, i, g.Spacing[i])
	}
	m.Set(3, 3, 1)
	if mat.Det(g.VoxelToPhysical()) > 0 {
		m.Set(0, 0, -g.Spacing[0])
		m.Set(0, 3, float64(g.Size[0]-1)*g.Spacing[0])
	}
	return m
}

// scaledToPhysical returns the homogeneous map from FSL scaled-voxel
// coordinates of g to its LPS physical space, and its inverse.
func scaledToPhysical(g *geometry.ImageGeometry) (*mat.Dense, *mat.Dense, error) {
	voxToScaled := fslVoxelToScaled(g)
	scaledToVox, err := geometry.Invert(voxToScaled)
	if err != nil {
		return nil, nil, err
	}
	forward := geometry.Mul(g.VoxelToPhysical(), scaledToVox)
	inverse, err := geometry.Invert(forward)
	if err != nil {
		return nil, nil, err
	}
	return forward, inverse, nil
}

func checkFLIRTInputs(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) error {
	if t.Dim != 3 {
		return fmt.Errorf("%w: FLIRT conversion is only defined in 3-D, got %d-D transform", geometry.ErrDimension, t.Dim)
	}
	if fixed == nil || moving == nil {
		return fmt.Errorf("%w: FLIRT conversion needs both fixed and moving geometry", geometry.ErrMissingGeometry)
	}
	if fixed.Dim != 3 || moving.Dim != 3 {
		return fmt.Errorf("%w: FLIRT needs 3-D geometries, got fixed %d-D and moving %d-D",
			geometry.ErrDimension, fixed.Dim, moving.Dim)
	}
	return nil
}

// ToFLIRT converts an ITK transform (fixed→moving physical points) into a
// FLIRT matrix (moving→fixed scaled-voxel coordinates):
//
//	FLIRT = Pf⁻¹ · T⁻¹ · Pm
//
// where Pf and Pm map scaled-voxel coordinates of the fixed and moving
// image to physical space.
func ToFLIRT(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error) {
	if err := checkFLIRTInputs(t, fixed, moving); err != nil {
		return geometry.AffineTransform{}, err
	}
	_, fixedInv, err := scaledToPhysical(fixed)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("fixed geometry: %w", err)
	}
	movingFwd, _, err := scaledToPhysical(moving)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("moving geometry: %w", err)
	}
	tInv, err := geometry.Invert(t.Homogeneous())
	if err != nil {
		return geometry.AffineTransform{}, err
	}
	return geometry.FromHomogeneous(geometry.Mul(fixedInv, tInv, movingFwd))
}

// FromFLIRT is the inverse of ToFLIRT:
//
//	T = Pm · FLIRT⁻¹ · Pf⁻¹
func FromFLIRT(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error) {
	if err := checkFLIRTInputs(t, fixed, moving); err != nil {
		return geometry.AffineTransform{}, err
	}
	_, fixedInv, err := scaledToPhysical(fixed)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("fixed geometry: %w", err)
	}
	movingFwd, _, err := scaledToPhysical(moving)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("moving geometry: %w", err)
	}
	flirtInv, err := geometry.Invert(t.Homogeneous())
	if err != nil {
		return geometry.AffineTransform{}, err
	}
	return geometry.FromHomogeneous(geometry.Mul(movingFwd, flirtInv, fixedInv))
}
