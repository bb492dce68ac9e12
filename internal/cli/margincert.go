package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/margin"
)

// MarginCertOptions holds flags for the margin-cert command.
type MarginCertOptions struct {
	*RootOptions
	Bounds      string
	T0          string
	T1          string
	Target      string
	MeshInitial int
	MeshMax     int
	Out         string
}

// NewMarginCertCommand creates the margin-cert command.
func NewMarginCertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MarginCertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "margin-cert",
		Short:         "Verify a uniform margin on [T0, T1] and emit the certificate",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMarginCert(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Bounds, "bounds", "", "analytic bounds artifact path")
	cmd.Flags().StringVar(&opts.T0, "T0", "", "domain left endpoint (decimal string)")
	cmd.Flags().StringVar(&opts.T1, "T1", "", "domain right endpoint (decimal string)")
	cmd.Flags().StringVar(&opts.Target, "target", "", "margin target (decimal string)")
	cmd.Flags().IntVar(&opts.MeshInitial, "mesh-initial", margin.DefaultMeshInitial, "initial mesh size")
	cmd.Flags().IntVar(&opts.MeshMax, "mesh-max", margin.DefaultMeshMax, "refinement mesh cap")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.MarkFlagRequired("bounds")
	cmd.MarkFlagRequired("T0")
	cmd.MarkFlagRequired("T1")
	cmd.MarkFlagRequired("target")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runMarginCert(opts *MarginCertOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	boundsArt, err := readArtifact(opts.Bounds)
	if err != nil {
		return err
	}
	p, err := margin.ParseBounds(c, boundsArt)
	if err != nil {
		return WrapExitError(ExitInputError, opts.Bounds, err)
	}
	if p.T0, err = parseFlag(c, "T0", opts.T0); err != nil {
		return err
	}
	if p.T1, err = parseFlag(c, "T1", opts.T1); err != nil {
		return err
	}
	if p.Target, err = parseFlag(c, "target", opts.Target); err != nil {
		return err
	}
	p.MeshInitial = opts.MeshInitial
	p.MeshMax = opts.MeshMax

	res, err := margin.Verify(c, p)
	if err != nil {
		_ = f.Error(ErrCodeCompute, err.Error(), nil)
		return WrapExitError(ExitInputError, "margin verification", err)
	}
	a := margin.BuildCertificate(c, p, res, nowUTC())

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	f.VerboseLog("verified %d intervals to depth %d", res.Intervals, res.MaxDepth)
	return f.Emit(
		map[string]any{
			"path":      opts.Out,
			"sha256":    sha,
			"pass":      res.Pass,
			"delta_min": c.Format(res.DeltaMin),
			"argmin_T":  c.Format(res.ArgminT),
		},
		fmt.Sprintf("wrote %s (PASS=%v delta_min=%s)", opts.Out, res.Pass, c.Format(res.DeltaMin)),
	)
}
