// Package matrixio reads and writes the transform files exchanged with
// registration tools: whitespace separated numeric matrices (NiftyReg and
// FLIRT) and ITK transform text files.
package matrixio

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/mat"

	"regconvert/pkg/geometry"
)

// ReadMatrix parses a whitespace separated numeric matrix, one row per
// line. Blank lines and lines starting with '#' are skipped.
func ReadMatrix(r io.Reader) (*mat.Dense, error) {
	var rows [][]float64
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		row := make([]float64, len(fields))
		for i, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			row[i] = v
		}
		if len(rows) > 0 && len(row) != len(rows[0]) {
			return nil, fmt.Errorf("line %d: expected %d columns, got %d", line, len(rows[0]), len(row))
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading matrix: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no matrix rows found")
	}

	m := mat.NewDense(len(rows), len(rows[0]), nil)
	for i, row := range rows {
		m.SetRow(i, row)
	}
	return m, nil
}

// LoadMatrix reads a matrix file.
func LoadMatrix(path string) (*mat.Dense, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("error opening matrix file: %w", err)
	}
	defer f.Close()

	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// formatFloat writes v with the given number of decimals, or with the
// shortest exact representation when precision is negative.
func formatFloat(v float64, precision int) string {
	if precision < 0 {
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strconv.FormatFloat(v, 'f', precision, 64)
}

// WriteMatrix writes m one row per line with space separated values.
func WriteMatrix(w io.Writer, m mat.Matrix, precision int) error {
	r, c := m.Dims()
	bw := bufio.NewWriter(w)
	for i := 0; i < r; i++ {
		fields := make([]string, c)
		for j := 0; j < c; j++ {
			fields[j] = formatFloat(m.At(i, j), precision)
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveMatrix writes m to path.
func SaveMatrix(path string, m mat.Matrix, precision int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating matrix file: %w", err)
	}
	if err := WriteMatrix(f, m, precision); err != nil {
		f.Close()
		return fmt.Errorf("error writing matrix file: %w", err)
	}
	return f.Close()
}

// zBlockTolerance bounds the deviation from an identity z row and column
// that still counts as an embedded 2-D transform.
const zBlockTolerance = 1e-9

// IdentityZBlock reports whether m is 4x4 and its z row and column are
// those of the identity, the layout reg_aladin uses for 2-D registrations.
func IdentityZBlock(m mat.Matrix) bool {
	r, c := m.Dims()
	if r != 4 || c != 4 {
		return false
	}
	for k := 0; k < 4; k++ {
		want := 0.0
		if k == 2 {
			want = 1
		}
		if math.Abs(m.At(2, k)-want) > zBlockTolerance || math.Abs(m.At(k, 2)-want) > zBlockTolerance {
			return false
		}
	}
	return true
}

// InferDim guesses the dimension of a NiftyReg matrix: 2 for a 4x4
// matrix with an identity z block, otherwise one less than the row count.
// A 3-D transform confined to the xy plane reads as 2-D.
func InferDim(m mat.Matrix) int {
	if IdentityZBlock(m) {
		return 2
	}
	r, _ := m.Dims()
	return r - 1
}

// AffineFromMatrix interprets a homogeneous matrix as a dim-dimensional
// transform. dim 0 infers the dimension from the matrix size. A 2-D
// transform may be given as 4x4 with an identity z block; rows and
// columns 0, 1 and 3 are then used.
func AffineFromMatrix(m mat.Matrix, dim int) (geometry.AffineTransform, error) {
	r, c := m.Dims()
	if dim == 0 {
		dim = r - 1
	}
	if dim == 2 && r == 4 && c == 4 {
		if !IdentityZBlock(m) {
			return geometry.AffineTransform{}, fmt.Errorf("%w: 4x4 matrix couples z and cannot hold a 2-D transform",
				geometry.ErrDimension)
		}
		keep := []int{0, 1, 3}
		reduced := mat.NewDense(3, 3, nil)
		for i, ri := range keep {
			for j, cj := range keep {
				reduced.Set(i, j, m.At(ri, cj))
			}
		}
		return geometry.FromHomogeneous(reduced)
	}
	if r != dim+1 {
		return geometry.AffineTransform{}, fmt.Errorf("%w: %dx%d matrix cannot hold a %d-D transform",
			geometry.ErrDimension, r, c, dim)
	}
	return geometry.FromHomogeneous(m)
}

// MatrixFromAffine returns the homogeneous matrix of t. With embed3D set,
// a 2-D transform is written as 4x4 with an identity z block.
func MatrixFromAffine(t geometry.AffineTransform, embed3D bool) *mat.Dense {
	h := t.Homogeneous()
	if t.Dim != 2 || !embed3D {
		return h
	}
	out := mat.NewDense(4, 4, nil)
	keep := []int{0, 1, 3}
	for i, ri := range keep {
		for j, cj := range keep {
			out.Set(ri, cj, h.At(i, j))
		}
	}
	out.Set(2, 2, 1)
	return out
}
