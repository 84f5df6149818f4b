package matrixio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"regconvert/pkg/geometry"
)

const itkHeader = "#Insight Transform File V1.0"

// ITKTransform is the first transform of an ITK transform text file.
type ITKTransform struct {
	// Type is the ITK class name, e.g. AffineTransform_double_3_3.
	Type string

	// Parameters holds the linear part row-major followed by the translation.
	Parameters []float64

	// FixedParameters holds the centre of rotation.
	FixedParameters []float64
}

// itkAffineTypes lists the class names that carry a plain matrix plus translation.
var itkAffineTypes = []string{"AffineTransform", "MatrixOffsetTransformBase"}

// Dim returns the dimension encoded in the type name suffix.
func (t ITKTransform) Dim() (int, error) {
	parts := strings.Split(t.Type, "_")
	if len(parts) < 3 {
		return 0, fmt.Errorf("cannot read dimension from transform type %q", t.Type)
	}
	dim, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("cannot read dimension from transform type %q: %w", t.Type, err)
	}
	return dim, nil
}

// Affine folds the centre into the translation and returns the transform
// y = A·(x - c) + t + c as y = A·x + offset.
func (t ITKTransform) Affine() (geometry.AffineTransform, error) {
	supported := false
	for _, prefix := range itkAffineTypes {
		if strings.HasPrefix(t.Type, prefix+"_") {
			supported = true
			break
		}
	}
	if !supported {
		return geometry.AffineTransform{}, fmt.Errorf("unsupported ITK transform type %q", t.Type)
	}
	dim, err := t.Dim()
	if err != nil {
		return geometry.AffineTransform{}, err
	}
	affine, err := geometry.FromParameters(dim, t.Parameters)
	if err != nil {
		return geometry.AffineTransform{}, err
	}

	switch len(t.FixedParameters) {
	case 0:
	case dim:
		center := t.FixedParameters
		rotated := make([]float64, dim)
		for i := 0; i < dim; i++ {
			for j := 0; j < dim; j++ {
				rotated[i] += affine.Linear[i][j] * center[j]
			}
		}
		for i := 0; i < dim; i++ {
			affine.Translation[i] += center[i] - rotated[i]
		}
	default:
		return geometry.AffineTransform{}, fmt.Errorf("%w: expected %d fixed parameters, got %d",
			geometry.ErrDimension, dim, len(t.FixedParameters))
	}
	return affine, nil
}

// NewITKTransform describes t as an AffineTransform_double_D_D with a zero centre.
func NewITKTransform(t geometry.AffineTransform) ITKTransform {
	return ITKTransform{
		Type:            fmt.Sprintf("AffineTransform_double_%d_%d", t.Dim, t.Dim),
		Parameters:      t.Parameters(),
		FixedParameters: make([]float64, t.Dim),
	}
}

func parseFloats(s string) ([]float64, error) {
	fields := strings.Fields(s)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// ReadITKTransform parses the first transform in an ITK transform file.
func ReadITKTransform(r io.Reader) (ITKTransform, error) {
	var t ITKTransform
	seen := 0
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		key, value, ok := strings.Cut(text, ":")
		if !ok {
			return ITKTransform{}, fmt.Errorf("line %d: expected 'Key: value'", line)
		}
		value = strings.TrimSpace(value)

		var err error
		switch strings.TrimSpace(key) {
		case "Transform":
			seen++
			if seen > 1 {
				return t, nil
			}
			t.Type = value
		case "Parameters":
			t.Parameters, err = parseFloats(value)
		case "FixedParameters":
			t.FixedParameters, err = parseFloats(value)
		}
		if err != nil {
			return ITKTransform{}, fmt.Errorf("line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return ITKTransform{}, fmt.Errorf("error reading transform: %w", err)
	}
	if t.Type == "" {
		return ITKTransform{}, fmt.Errorf("no transform found")
	}
	return t, nil
}

// LoadITKTransform reads an ITK transform file and returns it as an affine transform.
func LoadITKTransform(path string) (geometry.AffineTransform, error) {
	f, err := os.Open(path)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("error opening transform file: %w", err)
	}
	defer f.Close()

	t, err := ReadITKTransform(f)
	if err != nil {
		return geometry.AffineTransform{}, fmt.Errorf("%s: %w", path, err)
	}
	return t.Affine()
}

// WriteITKTransform writes t in ITK transform file format.
func WriteITKTransform(w io.Writer, t ITKTransform, precision int) error {
	format := func(vs []float64) string {
		fields := make([]string, len(vs))
		for i, v := range vs {
			fields[i] = formatFloat(v, precision)
		}
		return strings.Join(fields, " ")
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, itkHeader)
	fmt.Fprintln(bw, "#Transform 0")
	fmt.Fprintf(bw, "Transform: %s\n", t.Type)
	fmt.Fprintf(bw, "Parameters: %s\n", format(t.Parameters))
	fmt.Fprintf(bw, "FixedParameters: %s\n", format(t.FixedParameters))
	return bw.Flush()
}

// SaveITKTransform writes an affine transform to path as an ITK transform file.
func SaveITKTransform(path string, t geometry.AffineTransform, precision int) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating transform file: %w", err)
	}
	if err := WriteITKTransform(f, NewITKTransform(t), precision); err != nil {
		f.Close()
		return fmt.Errorf("error writing transform file: %w", err)
	}
	return f.Close()
}
