// Package transform converts affine transforms between the conventions
// used by ITK/SimpleITK, NiftyReg (reg_aladin) and FSL FLIRT.
//
// ITK is the hub: every other convention converts to and from it, and
// conversions between two non-ITK conventions go through it. All
// functions are pure; none of them perform I/O.
package transform

import (
	"fmt"
	"strings"

	"regconvert/pkg/geometry"
)

// Convention identifies how a stored affine matrix is to be interpreted.
type Convention int

const (
	// ITK maps points of the fixed (target) image to the moving (source)
	// image in LPS physical coordinates.
	ITK Convention = iota

	// NiftyReg is a homogeneous matrix in RAS physical coordinates mapping
	// in the opposite direction to ITK.
	NiftyReg

	// FLIRT is a homogeneous matrix between FSL scaled-voxel coordinate
	// systems of the moving and fixed images. It has no meaning without
	// both image geometries.
	FLIRT
)

var conventionNames = map[Convention]string{
	ITK:      "itk",
	NiftyReg: "niftyreg",
	FLIRT:    "flirt",
}

// String returns the lower-case name of the convention.
func (c Convention) String() string {
	if name, ok := conventionNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Convention(%d)", int(c))
}

// NeedsGeometry reports whether converting to or from c requires the
// fixed and moving image geometries.
func (c Convention) NeedsGeometry() bool {
	return c == FLIRT
}

// ParseConvention accepts the names returned by String plus a few aliases.
func ParseConvention(s string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "itk", "sitk", "simpleitk":
		return ITK, nil
	case "niftyreg", "regaladin", "reg_aladin", "nreg":
		return NiftyReg, nil
	case "flirt", "fsl":
		return FLIRT, nil
	}
	return 0, fmt.Errorf("unknown transform convention %q", s)
}

// converter is one edge of the conversion table.
type converter func(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error)

type conventionPair struct {
	from, to Convention
}

var conversions = map[conventionPair]converter{
	{ITK, ITK}:           same,
	{NiftyReg, NiftyReg}: same,
	{FLIRT, FLIRT}:       same,

	{ITK, NiftyReg}: func(t geometry.AffineTransform, _, _ *geometry.ImageGeometry) (geometry.AffineTransform, error) {
		return ToNiftyReg(t)
	},
	{NiftyReg, ITK}: func(t geometry.AffineTransform, _, _ *geometry.ImageGeometry) (geometry.AffineTransform, error) {
		return FromNiftyReg(t)
	},
	{ITK, FLIRT}: ToFLIRT,
	{FLIRT, ITK}: FromFLIRT,

	{NiftyReg, FLIRT}: func(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error) {
		internal, err := FromNiftyReg(t)
		if err != nil {
			return geometry.AffineTransform{}, err
		}
		return ToFLIRT(internal, fixed, moving)
	},
	{FLIRT, NiftyReg}: func(t geometry.AffineTransform, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error) {
		internal, err := FromFLIRT(t, fixed, moving)
		if err != nil {
			return geometry.AffineTransform{}, err
		}
		return ToNiftyReg(internal)
	},
}

func same(t geometry.AffineTransform, _, _ *geometry.ImageGeometry) (geometry.AffineTransform, error) {
	return t, nil
}

// Convert converts t from one convention to another. fixed and moving are
// only consulted when either side is FLIRT and may be nil otherwise.
func Convert(t geometry.AffineTransform, from, to Convention, fixed, moving *geometry.ImageGeometry) (geometry.AffineTransform, error) {
	conv, ok := conversions[conventionPair{from, to}]
	if !ok {
		return geometry.AffineTransform{}, fmt.Errorf("no conversion from %s to %s", from, to)
	}
	return conv(t, fixed, moving)
}
