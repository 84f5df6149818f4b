package cli

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"regconvert/pkg/geometry"
	"regconvert/pkg/matrixio"
	"regconvert/pkg/nifti"
)

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	root := newRootCmd()
	var stdout, stderr bytes.Buffer
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// writeImage writes a NIfTI header with an sform to dir/name.
func writeImage(t *testing.T, dir, name string, size [3]int16, srow [3][4]float32) string {
	t.Helper()

	h := nifti.Header{SizeofHdr: nifti.HeaderSize, VoxOffset: 352, SformCode: nifti.XformScannerAnat}
	copy(h.Magic[:], "n+1\x00")
	h.Dim[0] = 3
	for i := 0; i < 3; i++ {
		h.Dim[i+1] = size[i]
		h.Pixdim[i+1] = 1
	}
	h.SrowX, h.SrowY, h.SrowZ = srow[0], srow[1], srow[2]

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, h); err != nil {
		t.Fatalf("binary.Write failed: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

func TestConvertITKNiftyRegRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr, _ := geometry.FromParameters(3, []float64{1.05, 0.02, 0, -0.02, 0.98, 0.1, 0, -0.1, 1.01, 3.5, -2, 12})
	in := filepath.Join(dir, "sitk.txt")
	if err := matrixio.SaveITKTransform(in, tr, -1); err != nil {
		t.Fatalf("SaveITKTransform failed: %v", err)
	}

	nreg := filepath.Join(dir, "nreg.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "itk", "--to", "niftyreg", "-i", in, "-o", nreg); err != nil {
		t.Fatalf("convert to niftyreg failed: %v\n%s", err, stderr)
	}
	back := filepath.Join(dir, "back.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "niftyreg", "--to", "itk", "-i", nreg, "-o", back); err != nil {
		t.Fatalf("convert to itk failed: %v\n%s", err, stderr)
	}

	got, err := matrixio.LoadITKTransform(back)
	if err != nil {
		t.Fatalf("LoadITKTransform failed: %v", err)
	}
	if d := got.ParameterDistance(tr); d > 1e-7 {
		t.Errorf("round trip through the CLI differs by %g", d)
	}
}

func TestConvertITKNiftyReg2DRoundTrip(t *testing.T) {
	dir := t.TempDir()
	tr, _ := geometry.FromParameters(2, []float64{1, 0.1, -0.1, 1, 3, 4})
	in := filepath.Join(dir, "sitk2d.txt")
	if err := matrixio.SaveITKTransform(in, tr, -1); err != nil {
		t.Fatalf("SaveITKTransform failed: %v", err)
	}

	nreg := filepath.Join(dir, "nreg2d.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "itk", "--to", "niftyreg", "-i", in, "-o", nreg); err != nil {
		t.Fatalf("convert to niftyreg failed: %v\n%s", err, stderr)
	}
	m, err := matrixio.LoadMatrix(nreg)
	if err != nil {
		t.Fatalf("LoadMatrix failed: %v", err)
	}
	if r, c := m.Dims(); r != 4 || c != 4 {
		t.Fatalf("Expected embedded 4x4 matrix, got %dx%d", r, c)
	}

	back := filepath.Join(dir, "back2d.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "niftyreg", "--to", "itk", "-i", nreg, "-o", back); err != nil {
		t.Fatalf("convert to itk failed: %v\n%s", err, stderr)
	}
	got, err := matrixio.LoadITKTransform(back)
	if err != nil {
		t.Fatalf("LoadITKTransform failed: %v", err)
	}
	if got.Dim != 2 {
		t.Fatalf("Expected a 2-D transform back, got %d-D", got.Dim)
	}
	if d := got.ParameterDistance(tr); d > 1e-7 {
		t.Errorf("2-D round trip through the CLI differs by %g", d)
	}

	forced := filepath.Join(dir, "forced3d.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "niftyreg", "--to", "itk", "-i", nreg, "-o", forced, "--dim", "3"); err != nil {
		t.Fatalf("convert with --dim 3 failed: %v\n%s", err, stderr)
	}
	if got, err := matrixio.LoadITKTransform(forced); err != nil || got.Dim != 3 {
		t.Errorf("Expected a 3-D transform with --dim 3, got %v (err %v)", got.Dim, err)
	}
}

func TestConvertFLIRT(t *testing.T) {
	dir := t.TempDir()
	fixed := writeImage(t, dir, "fixed.nii", [3]int16{40, 50, 30}, [3][4]float32{{-1, 0, 0, 20}, {0, 1, 0, -25}, {0, 0, 1, -15}})
	moving := writeImage(t, dir, "moving.nii", [3]int16{32, 32, 20}, [3][4]float32{{1.5, 0, 0, -24}, {0, 1.5, 0, -24}, {0, 0, 2, -20}})

	tr, _ := geometry.FromParameters(3, []float64{1, 0.05, 0, -0.05, 1, 0, 0, 0, 1, 2, -1, 0.5})
	in := filepath.Join(dir, "sitk.txt")
	if err := matrixio.SaveITKTransform(in, tr, -1); err != nil {
		t.Fatalf("SaveITKTransform failed: %v", err)
	}

	mat := filepath.Join(dir, "omat.mat")
	if _, stderr, err := runCLI(t, "convert", "--from", "itk", "--to", "flirt", "-i", in, "-o", mat,
		"--fixed", fixed, "--moving", moving); err != nil {
		t.Fatalf("convert to flirt failed: %v\n%s", err, stderr)
	}
	back := filepath.Join(dir, "back.txt")
	if _, stderr, err := runCLI(t, "convert", "--from", "flirt", "--to", "itk", "-i", mat, "-o", back,
		"--fixed", fixed, "--moving", moving); err != nil {
		t.Fatalf("convert to itk failed: %v\n%s", err, stderr)
	}

	got, err := matrixio.LoadITKTransform(back)
	if err != nil {
		t.Fatalf("LoadITKTransform failed: %v", err)
	}
	// FLIRT matrices are written with six decimals
	if d := got.ParameterDistance(tr); d > 1e-2 {
		t.Errorf("round trip through FLIRT differs by %g", d)
	}

	// without images the conversion must fail
	_, _, err = runCLI(t, "convert", "--from", "itk", "--to", "flirt", "-i", in, "-o", filepath.Join(dir, "x.mat"))
	if !errors.Is(err, geometry.ErrMissingGeometry) {
		t.Errorf("Expected ErrMissingGeometry, got %v", err)
	}
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "sitk.txt")
	if err := matrixio.SaveITKTransform(in, geometry.Identity(3), -1); err != nil {
		t.Fatalf("SaveITKTransform failed: %v", err)
	}

	if _, _, err := runCLI(t, "convert", "--from", "ants", "--to", "itk", "-i", in, "-o", filepath.Join(dir, "o")); err == nil {
		t.Error("Expected error for unknown convention")
	}
	if _, _, err := runCLI(t, "convert", "--from", "itk", "--to", "niftyreg", "-i", filepath.Join(dir, "missing"), "-o", filepath.Join(dir, "o")); err == nil {
		t.Error("Expected error for missing input")
	}
	if _, _, err := runCLI(t, "convert", "--from", "itk"); err == nil {
		t.Error("Expected error for missing required flags")
	}
}

func TestGridCommand(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir, "img.nii", [3]int16{130, 130, 65}, [3][4]float32{{-1, 0, 0, 0}, {0, -1, 0, 0}, {0, 0, 2, 0}})

	stdout, stderr, err := runCLI(t, "grid", "--image", image, "--spacing-factor", "13", "--pad-factor", "-3.5")
	if err != nil {
		t.Fatalf("grid failed: %v\n%s", err, stderr)
	}

	var doc geometryDocument
	if err := yaml.Unmarshal([]byte(stdout), &doc); err != nil {
		t.Fatalf("output is not YAML: %v\n%s", err, stdout)
	}
	// 130/13 - 7 = 3 and 65/13 - 7 = -2 (clamped)
	expected := []int{3, 3, 0}
	for i, want := range expected {
		if doc.Size[i] != want {
			t.Errorf("Expected size[%d] = %d, got %d", i, want, doc.Size[i])
		}
	}
	if doc.Spacing[2] != 26 {
		t.Errorf("Expected spacing[2] = 26, got %f", doc.Spacing[2])
	}
	if len(doc.Direction) != 3 || doc.Direction[0][0] != 1 {
		t.Errorf("Unexpected direction %v", doc.Direction)
	}
}

func TestGridCommandOutputFile(t *testing.T) {
	dir := t.TempDir()
	image := writeImage(t, dir, "img.nii", [3]int16{11, 11, 11}, [3][4]float32{{1, 0, 0, 0}, {0, 1, 0, 0}, {0, 0, 1, 0}})
	out := filepath.Join(dir, "grid.yaml")

	if _, stderr, err := runCLI(t, "grid", "--image", image, "--trim", "2", "--pad", "1,1,1", "-o", out); err != nil {
		t.Fatalf("grid failed: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	var doc geometryDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not YAML: %v", err)
	}
	// trimmed to 10, padded by one voxel on each side
	for i, n := range doc.Size {
		if n != 12 {
			t.Errorf("Expected size[%d] = 12, got %d", i, n)
		}
	}

	if _, _, err := runCLI(t, "grid", "--image", image, "--spacing", "1,0,1"); err == nil {
		t.Error("Expected error for zero spacing")
	}
	if _, _, err := runCLI(t, "grid", "--image", image, "--spacing", "1,1"); err == nil {
		t.Error("Expected error for spacing of the wrong length")
	}
}

func TestInitConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "regconvert.yaml")
	if _, stderr, err := runCLI(t, "init-config", path); err != nil {
		t.Fatalf("init-config failed: %v\n%s", err, stderr)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !strings.Contains(string(data), "flirtPrecision: 6") {
		t.Errorf("Expected default FLIRT precision in config, got:\n%s", data)
	}

	// a config with verbose logging is honoured
	if _, stderr, err := runCLI(t, "--config", path, "-v", "init-config", path); err != nil {
		t.Fatalf("init-config with --config failed: %v\n%s", err, stderr)
	} else if !strings.Contains(stderr, "configuration loaded") {
		t.Errorf("Expected debug output, got %q", stderr)
	}
}
