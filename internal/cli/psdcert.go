package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/gram"
)

// PSDCertOptions holds flags for the psd-cert command.
type PSDCertOptions struct {
	*RootOptions
	Atoms    int
	SigmaMin string
	SigmaMax string
	K0Min    string
	K0Max    string
	GridA    string
	MGrid    int
	Eta      string
	Threads  int
	Out      string
	CSV      string
}

// NewPSDCertCommand creates the psd-cert command.
func NewPSDCertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PSDCertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "psd-cert",
		Short:         "Certify positive semidefiniteness of the atom Gram matrix",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPSDCert(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Atoms, "atoms", 0, "number of basis atoms")
	cmd.Flags().StringVar(&opts.SigmaMin, "sigma-min", "", "smallest envelope width (decimal string)")
	cmd.Flags().StringVar(&opts.SigmaMax, "sigma-max", "", "largest envelope width (decimal string)")
	cmd.Flags().StringVar(&opts.K0Min, "k0-min", "", "smallest notch width (decimal string)")
	cmd.Flags().StringVar(&opts.K0Max, "k0-max", "", "largest notch width (decimal string)")
	cmd.Flags().StringVar(&opts.GridA, "grid-A", gram.DefaultGridA, "integration half-width")
	cmd.Flags().IntVar(&opts.MGrid, "mgrid", gram.DefaultMGrid, "trapezoid node count")
	cmd.Flags().StringVar(&opts.Eta, "eta", "", "diagonal jitter (decimal string, optional)")
	cmd.Flags().IntVar(&opts.Threads, "threads", 1, "worker count")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.Flags().StringVar(&opts.CSV, "csv", "", "optional Gram matrix CSV dump path")
	cmd.MarkFlagRequired("atoms")
	cmd.MarkFlagRequired("sigma-min")
	cmd.MarkFlagRequired("sigma-max")
	cmd.MarkFlagRequired("k0-min")
	cmd.MarkFlagRequired("k0-max")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runPSDCert(opts *PSDCertOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	gopts := gram.Options{
		Basis:   gram.BasisGaussian,
		Atoms:   opts.Atoms,
		MGrid:   opts.MGrid,
		Workers: opts.Threads,
	}
	var err error
	if gopts.SigmaMin, err = parseFlag(c, "sigma-min", opts.SigmaMin); err != nil {
		return err
	}
	if gopts.SigmaMax, err = parseFlag(c, "sigma-max", opts.SigmaMax); err != nil {
		return err
	}
	if gopts.K0Min, err = parseFlag(c, "k0-min", opts.K0Min); err != nil {
		return err
	}
	if gopts.K0Max, err = parseFlag(c, "k0-max", opts.K0Max); err != nil {
		return err
	}
	if gopts.GridA, err = parseFlag(c, "grid-A", opts.GridA); err != nil {
		return err
	}
	if opts.Eta != "" {
		if gopts.Eta, err = parseFlag(c, "eta", opts.Eta); err != nil {
			return err
		}
	}

	out, err := gram.Certify(cmd.Context(), c, gopts)
	if err != nil {
		_ = f.Error(ErrCodeCompute, err.Error(), nil)
		return WrapExitError(ExitInputError, "psd certification", err)
	}
	a := gram.BuildCertificate(c, gopts, out, nowUTC())

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	if opts.CSV != "" {
		cf, err := os.Create(opts.CSV)
		if err != nil {
			return WrapExitError(ExitInputError, opts.CSV, err)
		}
		werr := gram.WriteCSV(cf, c, out.Gram)
		if cerr := cf.Close(); werr == nil {
			werr = cerr
		}
		if werr != nil {
			return WrapExitError(ExitInputError, opts.CSV, werr)
		}
	}

	data := map[string]any{
		"path":          opts.Out,
		"sha256":        sha,
		"psd_certified": out.Certified,
		"rank":          out.Rank,
	}
	if out.MinDiagL != nil {
		data["min_diag_L"] = c.Format(out.MinDiagL)
	}
	if out.MinPivot != nil {
		data["min_pivot"] = c.Format(out.MinPivot)
	}
	return f.Emit(data,
		fmt.Sprintf("wrote %s (certified=%v rank=%d)", opts.Out, out.Certified, out.Rank))
}
