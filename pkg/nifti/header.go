// Package nifti reads the geometry of NIfTI-1 images.
//
// Only the header is decoded. Voxel data is left to the image I/O layer.
package nifti

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
)

// HeaderSize is the size of the NIfTI-1 header in bytes.
const HeaderSize = 348

// Transform codes (NIFTI_XFORM_*).
const (
	XformUnknown     = 0
	XformScannerAnat = 1
	XformAlignedAnat = 2
	XformTalairach   = 3
	XformMNI152      = 4
)

// Header is the NIfTI-1 header.
type Header struct {
	SizeofHdr     int32
	DataType      [10]byte
	DBName        [18]byte
	Extents       int32
	SessionError  int16
	Regular       byte
	DimInfo       byte
	Dim           [8]int16
	IntentP1      float32
	IntentP2      float32
	IntentP3      float32
	IntentCode    int16
	Datatype      int16
	Bitpix        int16
	SliceStart    int16
	Pixdim        [8]float32
	VoxOffset     float32
	SclSlope      float32
	SclInter      float32
	SliceEnd      int16
	SliceCode     byte
	XyztUnits     byte
	CalMax        float32
	CalMin        float32
	SliceDuration float32
	Toffset       float32
	Glmax         int32
	Glmin         int32
	Descrip       [80]byte
	AuxFile       [24]byte
	QformCode     int16
	SformCode     int16
	QuaternB      float32
	QuaternC      float32
	QuaternD      float32
	QoffsetX      float32
	QoffsetY      float32
	QoffsetZ      float32
	SrowX         [4]float32
	SrowY         [4]float32
	SrowZ         [4]float32
	IntentName    [16]byte
	Magic         [4]byte
}

// ReadHeader decodes a NIfTI-1 header, detecting the byte order from sizeof_hdr.
func ReadHeader(r io.Reader) (Header, binary.ByteOrder, error) {
	buf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Header{}, nil, fmt.Errorf("error reading NIfTI header: %w", err)
	}

	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(buf[:4]) == HeaderSize:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(buf[:4]) == HeaderSize:
		order = binary.BigEndian
	default:
		return Header{}, nil, fmt.Errorf("not a NIfTI-1 header: sizeof_hdr is not %d", HeaderSize)
	}

	var h Header
	if err := binary.Read(bytes.NewReader(buf), order, &h); err != nil {
		return Header{}, nil, fmt.Errorf("error decoding NIfTI header: %w", err)
	}
	magic := string(h.Magic[:3])
	if magic != "n+1" && magic != "ni1" {
		return Header{}, nil, fmt.Errorf("unexpected NIfTI magic %q", magic)
	}
	return h, order, nil
}

// LoadHeader reads the header of a .nii, .hdr or .nii.gz file.
func LoadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return Header{}, fmt.Errorf("%s: %w", path, err)
		}
		defer gz.Close()
		r = gz
	}

	h, _, err := ReadHeader(r)
	if err != nil {
		return Header{}, fmt.Errorf("%s: %w", path, err)
	}
	return h, nil
}
