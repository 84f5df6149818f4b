package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"regconvert/pkg/config"
	"regconvert/pkg/geometry"
	"regconvert/pkg/matrixio"
	"regconvert/pkg/nifti"
	"regconvert/pkg/transform"
)

type convertOptions struct {
	from, to      string
	input, output string
	fixed, moving string
	dim           int
}

func newConvertCmd() *cobra.Command {
	var opts convertOptions

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert an affine transform between conventions",
		Long: `Convert an affine transform between conventions.

Conventions:
  itk       ITK/SimpleITK transform file (fixed -> moving, LPS)
  niftyreg  reg_aladin homogeneous matrix (RAS)
  flirt     FSL FLIRT matrix; needs --fixed and --moving images`,
		Example: `  regconvert convert --from flirt --to itk --input omat.mat --output sitk.txt --fixed t1.nii.gz --moving t2.nii.gz
  regconvert convert --from itk --to niftyreg --input sitk.txt --output aff.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.from, "from", "", "source convention (itk, niftyreg, flirt)")
	cmd.Flags().StringVar(&opts.to, "to", "", "target convention (itk, niftyreg, flirt)")
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "input transform file")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output transform file")
	cmd.Flags().StringVar(&opts.fixed, "fixed", "", "fixed (target) image, required for flirt")
	cmd.Flags().StringVar(&opts.moving, "moving", "", "moving (source) image, required for flirt")
	cmd.Flags().IntVar(&opts.dim, "dim", 0, "transform dimension for matrix inputs (0 infers it; a 4x4 NiftyReg matrix with an identity z block reads as 2-D)")
	for _, name := range []string{"from", "to", "input", "output"} {
		cmd.MarkFlagRequired(name)
	}

	return cmd
}

func runConvert(cmd *cobra.Command, opts convertOptions) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)
	cfg := configFromContext(ctx)

	from, err := transform.ParseConvention(opts.from)
	if err != nil {
		return err
	}
	to, err := transform.ParseConvention(opts.to)
	if err != nil {
		return err
	}

	t, err := readTransform(opts.input, from, opts.dim)
	if err != nil {
		return err
	}
	logger.Debug("read transform", "path", opts.input, "convention", from, "dim", t.Dim)

	var fixed, moving *geometry.ImageGeometry
	if from.NeedsGeometry() || to.NeedsGeometry() {
		if fixed, err = loadOptionalGeometry(opts.fixed); err != nil {
			return err
		}
		if moving, err = loadOptionalGeometry(opts.moving); err != nil {
			return err
		}
	}

	out, err := transform.Convert(t, from, to, fixed, moving)
	if err != nil {
		return fmt.Errorf("converting %s to %s: %w", from, to, err)
	}

	if err := writeTransform(opts.output, out, to, cfg); err != nil {
		return err
	}
	logger.Info("converted transform", "from", from, "to", to, "output", opts.output)
	return nil
}

func loadOptionalGeometry(path string) (*geometry.ImageGeometry, error) {
	if path == "" {
		return nil, nil
	}
	g, err := nifti.LoadGeometry(path)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func readTransform(path string, c transform.Convention, dim int) (geometry.AffineTransform, error) {
	if c == transform.ITK {
		return matrixio.LoadITKTransform(path)
	}
	m, err := matrixio.LoadMatrix(path)
	if err != nil {
		return geometry.AffineTransform{}, err
	}
	if c == transform.NiftyReg && dim == 0 {
		dim = matrixio.InferDim(m)
	}
	return matrixio.AffineFromMatrix(m, dim)
}

func writeTransform(path string, t geometry.AffineTransform, c transform.Convention, cfg *config.Config) error {
	switch c {
	case transform.ITK:
		return matrixio.SaveITKTransform(path, t, cfg.Output.Precision)
	case transform.NiftyReg:
		return matrixio.SaveMatrix(path, matrixio.MatrixFromAffine(t, cfg.Output.EmbedRegAladin2D), cfg.Output.Precision)
	default:
		return matrixio.SaveMatrix(path, t.Homogeneous(), cfg.Output.FLIRTPrecision)
	}
}
