// Package geometry provides the value types shared by the transform
// converters and the grid resampler: affine transforms, image sampling
// geometries and the homogeneous matrix helpers built on gonum.
//
// All types are plain values. Methods never modify the receiver; anything
// that looks like a mutation returns a new value.
package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxDim is the largest supported spatial dimension.
const MaxDim = 3

// AffineTransform is y = Linear·x + Translation in d dimensions.
// Only the top-left Dim×Dim block of Linear and the first Dim entries of
// Translation are meaningful.
type AffineTransform struct {
	Dim         int
	Linear      [MaxDim][MaxDim]float64
	Translation [MaxDim]float64
}

// Identity returns the identity transform of dimension dim.
func Identity(dim int) AffineTransform {
	t := AffineTransform{Dim: dim}
	for i := 0; i < dim && i < MaxDim; i++ {
		t.Linear[i][i] = 1
	}
	return t
}

// NewAffineTransform builds a transform from a row-major linear part and a translation.
func NewAffineTransform(dim int, linear []float64, translation []float64) (AffineTransform, error) {
	if err := checkDim(dim); err != nil {
		return AffineTransform{}, err
	}
	if len(linear) != dim*dim || len(translation) != dim {
		return AffineTransform{}, fmt.Errorf("%w: expected %d linear and %d translation values, got %d and %d",
			ErrDimension, dim*dim, dim, len(linear), len(translation))
	}
	t := AffineTransform{Dim: dim}
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			t.Linear[i][j] = linear[i*dim+j]
		}
		t.Translation[i] = translation[i]
	}
	return t, nil
}

// FromParameters builds a transform from an ITK-ordered parameter vector:
// the linear part row-major followed by the translation.
func FromParameters(dim int, params []float64) (AffineTransform, error) {
	if err := checkDim(dim); err != nil {
		return AffineTransform{}, err
	}
	if len(params) != dim*dim+dim {
		return AffineTransform{}, fmt.Errorf("%w: %d-D affine needs %d parameters, got %d",
			ErrDimension, dim, dim*dim+dim, len(params))
	}
	return NewAffineTransform(dim, params[:dim*dim], params[dim*dim:])
}

// Parameters returns the ITK-ordered parameter vector.
func (t AffineTransform) Parameters() []float64 {
	params := make([]float64, 0, t.Dim*t.Dim+t.Dim)
	for i := 0; i < t.Dim; i++ {
		params = append(params, t.Linear[i][:t.Dim]...)
	}
	return append(params, t.Translation[:t.Dim]...)
}

// Homogeneous returns the (Dim+1)×(Dim+1) homogeneous matrix of t.
func (t AffineTransform) Homogeneous() *mat.Dense {
	n := t.Dim + 1
	m := mat.NewDense(n, n, nil)
	for i := 0; i < t.Dim; i++ {
		for j := 0; j < t.Dim; j++ {
			m.Set(i, j, t.Linear[i][j])
		}
		m.Set(i, t.Dim, t.Translation[i])
	}
	m.Set(t.Dim, t.Dim, 1)
	return m
}

// FromHomogeneous reads a transform out of a (d+1)×(d+1) homogeneous matrix.
// The bottom row is ignored.
func FromHomogeneous(m mat.Matrix) (AffineTransform, error) {
	r, c := m.Dims()
	if r != c {
		return AffineTransform{}, fmt.Errorf("%w: homogeneous matrix must be square, got %dx%d", ErrDimension, r, c)
	}
	dim := r - 1
	if err := checkDim(dim); err != nil {
		return AffineTransform{}, err
	}
	t := AffineTransform{Dim: dim}
	for i := 0; i < dim; i++ {
		for j := 0; j < dim; j++ {
			t.Linear[i][j] = m.At(i, j)
		}
		t.Translation[i] = m.At(i, dim)
	}
	return t, nil
}

// Apply maps point p (length Dim) through t.
func (t AffineTransform) Apply(p []float64) []float64 {
	out := make([]float64, t.Dim)
	for i := 0; i < t.Dim; i++ {
		v := t.Translation[i]
		for j := 0; j < t.Dim; j++ {
			v += t.Linear[i][j] * p[j]
		}
		out[i] = v
	}
	return out
}

// Validate reports an unsupported dimension.
func (t AffineTransform) Validate() error {
	return checkDim(t.Dim)
}

// Inverse returns the inverse transform.
func (t AffineTransform) Inverse() (AffineTransform, error) {
	if err := t.Validate(); err != nil {
		return AffineTransform{}, err
	}
	inv, err := Invert(t.Homogeneous())
	if err != nil {
		return AffineTransform{}, err
	}
	return FromHomogeneous(inv)
}

// ParameterDistance is the sum of absolute differences over all parameters.
func (t AffineTransform) ParameterDistance(other AffineTransform) float64 {
	a, b := t.Parameters(), other.Parameters()
	if len(a) != len(b) {
		return math.Inf(1)
	}
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum
}

func checkDim(dim int) error {
	if dim != 2 && dim != 3 {
		return fmt.Errorf("%w: unsupported dimension %d", ErrDimension, dim)
	}
	return nil
}
