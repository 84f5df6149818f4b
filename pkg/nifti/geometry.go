package nifti

import (
	"fmt"
	"math"

	"regconvert/pkg/geometry"
)

// rasAffine returns the 3x3 voxel→RAS matrix and RAS offset of the header.
// The sform wins when set, then the qform, then plain pixdim scaling.
func (h Header) rasAffine() ([3][3]float64, [3]float64) {
	var m [3][3]float64
	var o [3]float64

	switch {
	case h.SformCode > XformUnknown:
		rows := [3][4]float32{h.SrowX, h.SrowY, h.SrowZ}
		for r := 0; r < 3; r++ {
			for c := 0; c < 3; c++ {
				m[r][c] = float64(rows[r][c])
			}
			o[r] = float64(rows[r][3])
		}

	case h.QformCode > XformUnknown:
		b, c, d := float64(h.QuaternB), float64(h.QuaternC), float64(h.QuaternD)
		a := 1 - (b*b + c*c + d*d)
		if a < 1e-7 {
			// 180 degree rotation: renormalise (b,c,d) and take a = 0
			n := 1 / math.Sqrt(b*b+c*c+d*d)
			b, c, d = b*n, c*n, d*n
			a = 0
		} else {
			a = math.Sqrt(a)
		}
		rot := [3][3]float64{
			{a*a + b*b - c*c - d*d, 2 * (b*c - a*d), 2 * (b*d + a*c)},
			{2 * (b*c + a*d), a*a + c*c - b*b - d*d, 2 * (c*d - a*b)},
			{2 * (b*d - a*c), 2 * (c*d + a*b), a*a + d*d - c*c - b*b},
		}
		qfac := 1.0
		if h.Pixdim[0] < 0 {
			qfac = -1
		}
		scale := [3]float64{
			pixdim(h.Pixdim[1]),
			pixdim(h.Pixdim[2]),
			qfac * pixdim(h.Pixdim[3]),
		}
		for r := 0; r < 3; r++ {
			for col := 0; col < 3; col++ {
				m[r][col] = rot[r][col] * scale[col]
			}
		}
		o = [3]float64{float64(h.QoffsetX), float64(h.QoffsetY), float64(h.QoffsetZ)}

	default:
		for i := 0; i < 3; i++ {
			m[i][i] = pixdim(h.Pixdim[i+1])
		}
	}
	return m, o
}

func pixdim(v float32) float64 {
	if v <= 0 {
		return 1
	}
	return float64(v)
}

// Geometry returns the image geometry in LPS physical coordinates, the
// frame ITK uses. Images with more than three dimensions report the
// geometry of their first 3-D volume.
func (h Header) Geometry() (geometry.ImageGeometry, error) {
	dim := int(h.Dim[0])
	if dim < 2 {
		return geometry.ImageGeometry{}, fmt.Errorf("%w: NIfTI image has %d dimensions", geometry.ErrDimension, dim)
	}
	if dim > 3 {
		dim = 3
	}

	m, o := h.rasAffine()
	// RAS -> LPS
	for c := 0; c < 3; c++ {
		m[0][c], m[1][c] = -m[0][c], -m[1][c]
	}
	o[0], o[1] = -o[0], -o[1]

	size := make([]int, dim)
	spacing := make([]float64, dim)
	origin := make([]float64, dim)
	direction := make([]float64, dim*dim)
	for c := 0; c < dim; c++ {
		size[c] = int(h.Dim[c+1])
		norm := 0.0
		for r := 0; r < dim; r++ {
			norm += m[r][c] * m[r][c]
		}
		spacing[c] = math.Sqrt(norm)
		origin[c] = o[c]
	}
	for r := 0; r < dim; r++ {
		for c := 0; c < dim; c++ {
			if spacing[c] > 0 {
				direction[r*dim+c] = m[r][c] / spacing[c]
			}
		}
	}
	return geometry.NewImageGeometry(size, spacing, origin, direction)
}

// LoadGeometry reads the geometry of the image at path.
func LoadGeometry(path string) (geometry.ImageGeometry, error) {
	h, err := LoadHeader(path)
	if err != nil {
		return geometry.ImageGeometry{}, err
	}
	g, err := h.Geometry()
	if err != nil {
		return geometry.ImageGeometry{}, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}
