package geometry

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// directionTolerance bounds the deviation from orthonormality accepted in
// a direction matrix. Direction cosines read from float32 image headers
// are only accurate to about 1e-6.
const directionTolerance = 1e-4

// ImageGeometry describes an image sampling lattice:
// physical = Direction·diag(Spacing)·index + Origin.
type ImageGeometry struct {
	Dim       int
	Size      [MaxDim]int
	Spacing   [MaxDim]float64
	Origin    [MaxDim]float64
	Direction [MaxDim][MaxDim]float64
}

// NewImageGeometry builds a geometry from slices. direction is row-major;
// an empty direction means identity.
func NewImageGeometry(size []int, spacing, origin, direction []float64) (ImageGeometry, error) {
	dim := len(size)
	if err := checkDim(dim); err != nil {
		return ImageGeometry{}, err
	}
	if len(spacing) != dim || len(origin) != dim {
		return ImageGeometry{}, fmt.Errorf("%w: size has %d entries, spacing %d, origin %d",
			ErrDimension, dim, len(spacing), len(origin))
	}
	if len(direction) != 0 && len(direction) != dim*dim {
		return ImageGeometry{}, fmt.Errorf("%w: direction needs %d entries, got %d", ErrDimension, dim*dim, len(direction))
	}

	g := ImageGeometry{Dim: dim}
	for i := 0; i < dim; i++ {
		g.Size[i] = size[i]
		g.Spacing[i] = spacing[i]
		g.Origin[i] = origin[i]
		for j := 0; j < dim; j++ {
			if len(direction) == 0 {
				if i == j {
					g.Direction[i][j] = 1
				}
				continue
			}
			g.Direction[i][j] = direction[i*dim+j]
		}
	}
	if err := g.Validate(); err != nil {
		return ImageGeometry{}, err
	}
	return g, nil
}

// Validate checks dimension, spacing positivity, size non-negativity and
// orthonormality of the direction matrix.
func (g ImageGeometry) Validate() error {
	if err := checkDim(g.Dim); err != nil {
		return err
	}
	for i := 0; i < g.Dim; i++ {
		if !(g.Spacing[i] > 0) {
			return fmt.Errorf("%w: spacing[%d] = %g", ErrInvalidSpacing, i, g.Spacing[i])
		}
		if g.Size[i] < 0 {
			return fmt.Errorf("%w: size[%d] = %d is negative", ErrDimension, i, g.Size[i])
		}
	}
	for a := 0; a < g.Dim; a++ {
		for b := a; b < g.Dim; b++ {
			dot := 0.0
			for i := 0; i < g.Dim; i++ {
				dot += g.Direction[i][a] * g.Direction[i][b]
			}
			want := 0.0
			if a == b {
				want = 1
			}
			if math.Abs(dot-want) > directionTolerance {
				return fmt.Errorf("%w: direction matrix is not orthonormal (columns %d,%d dot %g)",
					ErrSingularMatrix, a, b, dot)
			}
		}
	}
	return nil
}

// Axis returns the unit vector of the i-th index axis in physical space,
// i.e. the i-th column of Direction.
func (g ImageGeometry) Axis(i int) []float64 {
	e := make([]float64, g.Dim)
	for r := 0; r < g.Dim; r++ {
		e[r] = g.Direction[r][i]
	}
	return e
}

// IndexToPhysicalPoint maps a continuous index to physical coordinates.
func (g ImageGeometry) IndexToPhysicalPoint(index []float64) []float64 {
	p := make([]float64, g.Dim)
	for r := 0; r < g.Dim; r++ {
		v := g.Origin[r]
		for c := 0; c < g.Dim; c++ {
			v += g.Direction[r][c] * g.Spacing[c] * index[c]
		}
		p[r] = v
	}
	return p
}

// PhysicalPointToIndex maps physical coordinates to a continuous index.
// Direction is orthonormal, so its transpose is its inverse.
func (g ImageGeometry) PhysicalPointToIndex(p []float64) []float64 {
	idx := make([]float64, g.Dim)
	for c := 0; c < g.Dim; c++ {
		v := 0.0
		for r := 0; r < g.Dim; r++ {
			v += g.Direction[r][c] * (p[r] - g.Origin[r])
		}
		idx[c] = v / g.Spacing[c]
	}
	return idx
}

// VoxelToPhysical returns the homogeneous voxel→physical matrix.
func (g ImageGeometry) VoxelToPhysical() *mat.Dense {
	n := g.Dim + 1
	m := mat.NewDense(n, n, nil)
	for r := 0; r < g.Dim; r++ {
		for c := 0; c < g.Dim; c++ {
			m.Set(r, c, g.Direction[r][c]*g.Spacing[c])
		}
		m.Set(r, g.Dim, g.Origin[r])
	}
	m.Set(g.Dim, g.Dim, 1)
	return m
}

// NumVoxels returns the number of lattice points.
func (g ImageGeometry) NumVoxels() int {
	n := 1
	for i := 0; i < g.Dim; i++ {
		n *= g.Size[i]
	}
	return n
}

// Equal reports whether two geometries agree to within tol on every real
// component and exactly on dimension and size.
func (g ImageGeometry) Equal(o ImageGeometry, tol float64) bool {
	if g.Dim != o.Dim {
		return false
	}
	for i := 0; i < g.Dim; i++ {
		if g.Size[i] != o.Size[i] ||
			math.Abs(g.Spacing[i]-o.Spacing[i]) > tol ||
			math.Abs(g.Origin[i]-o.Origin[i]) > tol {
			return false
		}
		for j := 0; j < g.Dim; j++ {
			if math.Abs(g.Direction[i][j]-o.Direction[i][j]) > tol {
				return false
			}
		}
	}
	return true
}
