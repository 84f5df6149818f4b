package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"regconvert/pkg/geometry"
	"regconvert/pkg/grid"
	"regconvert/pkg/nifti"
)

type gridOptions struct {
	image         string
	spacing       []float64
	spacingFactor float64
	pad           []float64
	padFactor     float64
	trim          int
	output        string
}

// geometryDocument is the YAML form of an image geometry.
type geometryDocument struct {
	Size      []int       `yaml:"size"`
	Spacing   []float64   `yaml:"spacing"`
	Origin    []float64   `yaml:"origin"`
	Direction [][]float64 `yaml:"direction"`
}

func newGeometryDocument(g geometry.ImageGeometry) geometryDocument {
	doc := geometryDocument{
		Size:    append([]int(nil), g.Size[:g.Dim]...),
		Spacing: append([]float64(nil), g.Spacing[:g.Dim]...),
		Origin:  append([]float64(nil), g.Origin[:g.Dim]...),
	}
	for r := 0; r < g.Dim; r++ {
		doc.Direction = append(doc.Direction, append([]float64(nil), g.Direction[r][:g.Dim]...))
	}
	return doc
}

func newGridCmd() *cobra.Command {
	var opts gridOptions

	cmd := &cobra.Command{
		Use:   "grid",
		Short: "Compute a resampling grid that pads or crops an image",
		Long: `Compute a resampling grid for an image.

The new grid has the requested spacing and extends the image by the pad
(in mm, negative values crop) on both sides of every axis. Existing voxel
positions are kept whenever they fall on the new lattice.

--spacing-factor multiplies the image spacing; --pad-factor is measured
in units of the new spacing.`,
		Example: `  regconvert grid --image t1.nii.gz --spacing-factor 2 --pad-factor -1
  regconvert grid --image t1.nii.gz --spacing 1,1,1 --pad 10,10,0 --output grid.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGrid(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.image, "image", "", "reference image (NIfTI)")
	cmd.Flags().Float64SliceVar(&opts.spacing, "spacing", nil, "target spacing per axis (defaults to the image spacing)")
	cmd.Flags().Float64Var(&opts.spacingFactor, "spacing-factor", 0, "target spacing as a multiple of the image spacing")
	cmd.Flags().Float64SliceVar(&opts.pad, "pad", nil, "physical padding per axis, negative crops")
	cmd.Flags().Float64Var(&opts.padFactor, "pad-factor", 0, "padding in units of the target spacing")
	cmd.Flags().IntVar(&opts.trim, "trim", 0, "crop each axis to a multiple of this many voxels first")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write the geometry as YAML to this file instead of stdout")
	cmd.MarkFlagRequired("image")
	cmd.MarkFlagsMutuallyExclusive("spacing", "spacing-factor")
	cmd.MarkFlagsMutuallyExclusive("pad", "pad-factor")

	return cmd
}

// resolveGridInputs turns the flags into per-axis spacing and pad vectors.
func resolveGridInputs(base geometry.ImageGeometry, opts gridOptions) ([]float64, []float64) {
	spacing := opts.spacing
	if spacing == nil {
		spacing = make([]float64, base.Dim)
		factor := opts.spacingFactor
		if factor == 0 {
			factor = 1
		}
		for i := range spacing {
			spacing[i] = factor * base.Spacing[i]
		}
	}

	pad := opts.pad
	if pad == nil {
		pad = make([]float64, base.Dim)
		if len(spacing) == base.Dim {
			for i := range pad {
				pad[i] = opts.padFactor * spacing[i]
			}
		}
	}
	return spacing, pad
}

func runGrid(cmd *cobra.Command, opts gridOptions) error {
	logger := loggerFromContext(cmd.Context())

	base, err := nifti.LoadGeometry(opts.image)
	if err != nil {
		return err
	}
	if opts.trim > 0 {
		if base, err = grid.TrimToMultiple(base, opts.trim); err != nil {
			return err
		}
		logger.Debug("trimmed image grid", "size", base.Size[:base.Dim])
	}

	spacing, pad := resolveGridInputs(base, opts)
	out, err := grid.Compute(base, spacing, pad)
	if err != nil {
		return fmt.Errorf("computing grid for %s: %w", opts.image, err)
	}
	logger.Debug("computed grid", "size", out.Size[:out.Dim], "spacing", out.Spacing[:out.Dim])

	data, err := yaml.Marshal(newGeometryDocument(out))
	if err != nil {
		return fmt.Errorf("error marshaling geometry: %w", err)
	}
	if opts.output == "" {
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0644); err != nil {
		return fmt.Errorf("error writing geometry: %w", err)
	}
	logger.Info("wrote grid geometry", "path", opts.output)
	return nil
}
