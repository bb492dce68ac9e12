package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/rollup"
)

// RollupOptions holds flags for the rollup command.
type RollupOptions struct {
	*RootOptions
	BandCert   string
	PrimeBlock string
	PrimeTail  string
	GammaTails string
	GridError  string
	WeilPSD    string
	T0         string
	Out        string
}

// NewRollupCommand creates the rollup command.
func NewRollupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RollupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "rollup",
		Short:         "Combine component certificates into the terminal verdict",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRollup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.BandCert, "band-cert", "", "band certificate path")
	cmd.Flags().StringVar(&opts.PrimeBlock, "prime-block", "", "prime block norm artifact path")
	cmd.Flags().StringVar(&opts.PrimeTail, "prime-tail", "", "prime tail envelope artifact path")
	cmd.Flags().StringVar(&opts.GammaTails, "gamma-tails", "", "gamma tails artifact path")
	cmd.Flags().StringVar(&opts.GridError, "grid-error", "", "grid error bound artifact path (optional)")
	cmd.Flags().StringVar(&opts.WeilPSD, "weil-psd", "", "PSD certificate path (optional)")
	cmd.Flags().StringVar(&opts.T0, "T0", "", "tail cut point (decimal string)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.MarkFlagRequired("band-cert")
	cmd.MarkFlagRequired("prime-block")
	cmd.MarkFlagRequired("prime-tail")
	cmd.MarkFlagRequired("gamma-tails")
	cmd.MarkFlagRequired("T0")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runRollup(opts *RollupOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	var in rollup.Inputs
	var err error
	if in.Band, err = readArtifact(opts.BandCert); err != nil {
		return err
	}
	if in.PrimeBlock, err = readArtifact(opts.PrimeBlock); err != nil {
		return err
	}
	if in.PrimeTail, err = readArtifact(opts.PrimeTail); err != nil {
		return err
	}
	if in.GammaTail, err = readArtifact(opts.GammaTails); err != nil {
		return err
	}
	if opts.GridError != "" {
		if in.Grid, err = readArtifact(opts.GridError); err != nil {
			return err
		}
	}
	if opts.WeilPSD != "" {
		if in.PSD, err = readArtifact(opts.WeilPSD); err != nil {
			return err
		}
	}
	t0, err := parseFlag(c, "T0", opts.T0)
	if err != nil {
		return err
	}

	v, err := rollup.Extract(c, in)
	if err != nil {
		if cert.IsMissingField(err) {
			_ = f.Error(ErrCodeInput, err.Error(), nil)
			return NewExitError(ExitInputError, err.Error())
		}
		return WrapExitError(ExitInputError, "rollup inputs", err)
	}
	res, err := rollup.Compute(c, v)
	if err != nil {
		return WrapExitError(ExitInputError, "rollup", err)
	}

	paths := rollup.Paths{
		CertsDir:   filepath.Dir(opts.BandCert),
		BandCert:   opts.BandCert,
		PrimeBlock: opts.PrimeBlock,
		PrimeTail:  opts.PrimeTail,
		GammaTail:  opts.GammaTails,
		GridError:  opts.GridError,
		WeilPSD:    opts.WeilPSD,
	}
	a := rollup.BuildCertificate(c, t0, paths, v, res, nowUTC())

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	return f.Emit(
		map[string]any{
			"path":        opts.Out,
			"sha256":      sha,
			"pass":        res.Pass,
			"lhs_total":   c.Format(res.LhsTotal),
			"epsilon_eff": c.Format(res.EpsilonEff),
		},
		fmt.Sprintf("wrote %s (PASS=%v lhs=%s eps=%s)",
			opts.Out, res.Pass, c.Format(res.LhsTotal), c.Format(res.EpsilonEff)),
	)
}
