package grid

import (
	"fmt"
	"math"

	"regconvert/pkg/geometry"
)

// Image is a scalar image on a sampling lattice. Data is stored with the
// first index axis varying fastest.
type Image struct {
	Geometry geometry.ImageGeometry
	Data     []float64
}

// NewImage allocates a zero image on g.
func NewImage(g geometry.ImageGeometry) Image {
	return Image{Geometry: g, Data: make([]float64, g.NumVoxels())}
}

// offset returns the linear position of index, or -1 if it lies outside.
func (img Image) offset(index []int) int {
	g := img.Geometry
	off, stride := 0, 1
	for i := 0; i < g.Dim; i++ {
		if index[i] < 0 || index[i] >= g.Size[i] {
			return -1
		}
		off += index[i] * stride
		stride *= g.Size[i]
	}
	return off
}

// At returns the value at index and whether index is inside the image.
func (img Image) At(index []int) (float64, bool) {
	off := img.offset(index)
	if off < 0 {
		return 0, false
	}
	return img.Data[off], true
}

// Set stores v at index. Indices outside the image are ignored.
func (img Image) Set(index []int, v float64) {
	if off := img.offset(index); off >= 0 {
		img.Data[off] = v
	}
}

// forEachIndex calls fn for every index of g in storage order.
func forEachIndex(g geometry.ImageGeometry, fn func(off int, index []int)) {
	n := g.NumVoxels()
	index := make([]int, g.Dim)
	for off := 0; off < n; off++ {
		fn(off, index)
		for i := 0; i < g.Dim; i++ {
			index[i]++
			if index[i] < g.Size[i] {
				break
			}
			index[i] = 0
		}
	}
}

// Resample samples img on target with nearest-neighbour lookup and the
// identity transform. Target points outside img get defaultValue.
//
// Rounding is floor(x+0.5), matching ITK's nearest-neighbour interpolator,
// so a target lattice computed by Compute picks up source samples without
// blending them.
func Resample(img Image, target geometry.ImageGeometry, defaultValue float64) (Image, error) {
	if img.Geometry.Dim != target.Dim {
		return Image{}, fmt.Errorf("%w: cannot resample %d-D image onto %d-D grid",
			geometry.ErrDimension, img.Geometry.Dim, target.Dim)
	}
	if err := target.Validate(); err != nil {
		return Image{}, fmt.Errorf("target grid: %w", err)
	}
	if len(img.Data) != img.Geometry.NumVoxels() {
		return Image{}, fmt.Errorf("image holds %d values for %d voxels", len(img.Data), img.Geometry.NumVoxels())
	}

	out := NewImage(target)
	cont := make([]float64, target.Dim)
	src := make([]int, target.Dim)
	forEachIndex(target, func(off int, index []int) {
		for i := range index {
			cont[i] = float64(index[i])
		}
		p := target.IndexToPhysicalPoint(cont)
		for i, x := range img.Geometry.PhysicalPointToIndex(p) {
			src[i] = int(math.Floor(x + 0.5))
		}
		if v, ok := img.At(src); ok {
			out.Data[off] = v
		} else {
			out.Data[off] = defaultValue
		}
	})
	return out, nil
}
