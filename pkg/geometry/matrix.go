package geometry

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Invert returns the inverse of the square matrix m.
// Any ill-conditioning reported by gonum is treated as singularity.
func Invert(m mat.Matrix) (*mat.Dense, error) {
	r, c := m.Dims()
	if r != c {
		return nil, fmt.Errorf("%w: cannot invert %dx%d matrix", ErrDimension, r, c)
	}
	var inv mat.Dense
	if err := inv.Inverse(m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSingularMatrix, err)
	}
	return &inv, nil
}

// Mul returns the product of the given matrices, left to right.
func Mul(ms ...mat.Matrix) *mat.Dense {
	out := mat.DenseCopyOf(ms[0])
	for _, m := range ms[1:] {
		next := new(mat.Dense)
		next.Mul(out, m)
		out = next
	}
	return out
}

// AxisFlip returns the n×n diagonal matrix whose first k diagonal entries are -1.
func AxisFlip(n, k int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if i < k {
			m.Set(i, i, -1)
		} else {
			m.Set(i, i, 1)
		}
	}
	return m
}
