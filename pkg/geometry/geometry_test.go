package geometry

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

// TestFromParameters verifies the ITK parameter layout
func TestFromParameters(t *testing.T) {
	params := []float64{1, 2, 3, 4, 5, 6, 7, 8, 10, -1, -2, -3}
	tr, err := FromParameters(3, params)
	if err != nil {
		t.Fatalf("FromParameters failed: %v", err)
	}
	if tr.Linear[1][2] != 6 || tr.Linear[2][2] != 10 || tr.Translation[2] != -3 {
		t.Errorf("Unexpected layout: %+v", tr)
	}
	for i, v := range tr.Parameters() {
		if v != params[i] {
			t.Errorf("Parameter %d: expected %f, got %f", i, params[i], v)
		}
	}

	if _, err := FromParameters(3, params[:6]); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for short parameters, got %v", err)
	}
	if _, err := FromParameters(4, make([]float64, 20)); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for 4D, got %v", err)
	}
}

// TestHomogeneous checks the homogeneous layout and FromHomogeneous
func TestHomogeneous(t *testing.T) {
	tr, _ := FromParameters(2, []float64{1, 2, 3, 4, 5, 6})
	h := tr.Homogeneous()

	expected := mat.NewDense(3, 3, []float64{1, 2, 5, 3, 4, 6, 0, 0, 1})
	if !mat.Equal(h, expected) {
		t.Errorf("Expected %v, got %v", mat.Formatted(expected), mat.Formatted(h))
	}

	back, err := FromHomogeneous(h)
	if err != nil {
		t.Fatalf("FromHomogeneous failed: %v", err)
	}
	if back != tr {
		t.Errorf("Expected %+v, got %+v", tr, back)
	}

	if _, err := FromHomogeneous(mat.NewDense(3, 4, nil)); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for non-square matrix, got %v", err)
	}
	if _, err := FromHomogeneous(mat.NewDense(2, 2, nil)); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for 1D matrix, got %v", err)
	}
}

// TestInverse verifies that t∘t⁻¹ is the identity and singular transforms fail
func TestInverse(t *testing.T) {
	tr, _ := FromParameters(3, []float64{2, 0.1, 0, 0, 1, 0.3, 0.2, 0, 0.5, 1, 2, 3})
	inv, err := tr.Inverse()
	if err != nil {
		t.Fatalf("Inverse failed: %v", err)
	}

	p := []float64{4, -5, 6}
	q := inv.Apply(tr.Apply(p))
	for i := range p {
		if math.Abs(q[i]-p[i]) > 1e-12 {
			t.Errorf("Component %d: expected %f, got %f", i, p[i], q[i])
		}
	}

	if _, err := (AffineTransform{Dim: 4}).Inverse(); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for 4D transform, got %v", err)
	}

	singular, _ := FromParameters(2, []float64{1, 2, 2, 4, 0, 0})
	if _, err := singular.Inverse(); !errors.Is(err, ErrSingularMatrix) {
		t.Errorf("Expected ErrSingularMatrix, got %v", err)
	}
}

// TestParameterDistance verifies the sum of absolute differences
func TestParameterDistance(t *testing.T) {
	a := Identity(2)
	b := Identity(2)
	b.Linear[0][1] = 0.5
	b.Translation[1] = -1

	if d := a.ParameterDistance(b); d != 1.5 {
		t.Errorf("Expected distance 1.5, got %f", d)
	}
	if d := a.ParameterDistance(Identity(3)); !math.IsInf(d, 1) {
		t.Errorf("Expected infinite distance across dimensions, got %f", d)
	}
}

// TestNewImageGeometry verifies defaults and validation
func TestNewImageGeometry(t *testing.T) {
	g, err := NewImageGeometry([]int{10, 20, 30}, []float64{1, 2, 3}, []float64{0, 0, 0}, nil)
	if err != nil {
		t.Fatalf("NewImageGeometry failed: %v", err)
	}
	if g.Direction[0][0] != 1 || g.Direction[1][1] != 1 || g.Direction[2][2] != 1 || g.Direction[0][1] != 0 {
		t.Errorf("Expected identity direction, got %v", g.Direction)
	}
	if g.NumVoxels() != 6000 {
		t.Errorf("Expected 6000 voxels, got %d", g.NumVoxels())
	}

	if _, err := NewImageGeometry([]int{10, 20}, []float64{1, 0}, []float64{0, 0}, nil); !errors.Is(err, ErrInvalidSpacing) {
		t.Errorf("Expected ErrInvalidSpacing, got %v", err)
	}
	if _, err := NewImageGeometry([]int{10, 20}, []float64{1}, []float64{0, 0}, nil); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension, got %v", err)
	}
	if _, err := NewImageGeometry([]int{10}, []float64{1}, []float64{0}, nil); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for 1D, got %v", err)
	}
	if _, err := NewImageGeometry([]int{10, 20}, []float64{1, 1}, []float64{0, 0}, []float64{1, 1, 0, 1}); err == nil {
		t.Error("Expected error for non-orthonormal direction")
	}
	if _, err := NewImageGeometry([]int{10, 20}, []float64{1, 1}, []float64{0, 0}, []float64{1, 0, 0}); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for short direction, got %v", err)
	}
}

// TestIndexPhysicalRoundTrip maps indices to physical space and back
func TestIndexPhysicalRoundTrip(t *testing.T) {
	c, s := math.Cos(0.7), math.Sin(0.7)
	g, err := NewImageGeometry([]int{5, 6, 7}, []float64{0.5, 1.5, 2}, []float64{10, -20, 30},
		[]float64{c, -s, 0, s, c, 0, 0, 0, -1})
	if err != nil {
		t.Fatalf("NewImageGeometry failed: %v", err)
	}

	idx := []float64{1, 2.5, -3}
	p := g.IndexToPhysicalPoint(idx)
	back := g.PhysicalPointToIndex(p)
	for i := range idx {
		if math.Abs(back[i]-idx[i]) > 1e-12 {
			t.Errorf("Index %d: expected %f, got %f", i, idx[i], back[i])
		}
	}

	// the homogeneous voxel→physical matrix agrees with IndexToPhysicalPoint
	v := mat.NewVecDense(4, []float64{idx[0], idx[1], idx[2], 1})
	var hp mat.VecDense
	hp.MulVec(g.VoxelToPhysical(), v)
	for i := 0; i < 3; i++ {
		if math.Abs(hp.AtVec(i)-p[i]) > 1e-12 {
			t.Errorf("Component %d: expected %f, got %f", i, p[i], hp.AtVec(i))
		}
	}

	axis := g.Axis(1)
	if math.Abs(axis[0]+s) > 1e-15 || math.Abs(axis[1]-c) > 1e-15 {
		t.Errorf("Unexpected axis 1: %v", axis)
	}
}

// TestEqual verifies the tolerance comparison of geometries
func TestEqual(t *testing.T) {
	g, _ := NewImageGeometry([]int{4, 4}, []float64{1, 1}, []float64{0, 0}, nil)
	h := g
	h.Origin[0] = 1e-10
	if !g.Equal(h, 1e-9) {
		t.Error("Expected geometries to be equal within tolerance")
	}
	h.Size[1] = 5
	if g.Equal(h, 1e-9) {
		t.Error("Expected geometries with different sizes to differ")
	}
}

// TestAxisFlipAndMul checks the helper matrices
func TestAxisFlipAndMul(t *testing.T) {
	f := AxisFlip(4, 2)
	expected := mat.NewDense(4, 4, []float64{-1, 0, 0, 0, 0, -1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1})
	if !mat.Equal(f, expected) {
		t.Errorf("Unexpected flip %v", mat.Formatted(f))
	}

	id := Mul(f, f)
	if !mat.Equal(id, Identity(3).Homogeneous()) {
		t.Errorf("Expected flip to be an involution, got %v", mat.Formatted(id))
	}

	if _, err := Invert(mat.NewDense(2, 3, nil)); !errors.Is(err, ErrDimension) {
		t.Errorf("Expected ErrDimension for non-square inverse, got %v", err)
	}
}
