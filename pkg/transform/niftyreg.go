package transform

import (
	"gonum.org/v1/gonum/mat"

	"regconvert/pkg/geometry"
)

// rasFlip is the homogeneous LPS<->RAS change of basis: the first two
// physical axes are negated, any further axis is kept.
func rasFlip(dim int) *mat.Dense {
	return geometry.AxisFlip(dim+1, 2)
}

// ToNiftyReg converts an ITK transform into a reg_aladin matrix.
//
// The result is F·inv(T)·F with F the LPS/RAS flip. F is its own inverse,
// so flipping and inverting commute and FromNiftyReg is the same formula.
func ToNiftyReg(t geometry.AffineTransform) (geometry.AffineTransform, error) {
	return flipAndInvert(t)
}

// FromNiftyReg converts a reg_aladin matrix into an ITK transform.
func FromNiftyReg(t geometry.AffineTransform) (geometry.AffineTransform, error) {
	return flipAndInvert(t)
}

func flipAndInvert(t geometry.AffineTransform) (geometry.AffineTransform, error) {
	if err := t.Validate(); err != nil {
		return geometry.AffineTransform{}, err
	}
	inv, err := geometry.Invert(t.Homogeneous())
	if err != nil {
		return geometry.AffineTransform{}, err
	}
	f := rasFlip(t.Dim)
	return geometry.FromHomogeneous(geometry.Mul(f, inv, f))
}
