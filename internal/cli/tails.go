package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/tails"
	"github.com/roach88/attest/internal/window"
)

// GammaTailOptions holds flags for the gamma-tail command.
type GammaTailOptions struct {
	*RootOptions
	WindowConfig string
	T0           string
	Out          string
}

// NewGammaTailCommand creates the gamma-tail command.
func NewGammaTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GammaTailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "gamma-tail",
		Short:         "Bound the gamma tail envelope at T0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGammaTail(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.WindowConfig, "window-config", "", "window artifact path")
	cmd.Flags().StringVar(&opts.T0, "T0", "", "tail cut point (decimal string)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.MarkFlagRequired("window-config")
	cmd.MarkFlagRequired("T0")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runGammaTail(opts *GammaTailOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	winArt, err := readArtifact(opts.WindowConfig)
	if err != nil {
		return err
	}
	w, err := window.ParseWindow(c, winArt)
	if err != nil {
		return WrapExitError(ExitInputError, opts.WindowConfig, err)
	}
	t0, err := parseFlag(c, "T0", opts.T0)
	if err != nil {
		return err
	}

	env, err := tails.GammaEnvAtT0(c, w.Sigma, w.K0, t0)
	if err != nil {
		return WrapExitError(ExitInputError, "gamma envelope", err)
	}
	a, err := tails.BuildGammaTails(c, t0, env, nowUTC())
	if err != nil {
		return WrapExitError(ExitInputError, "gamma envelope", err)
	}

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	return f.Emit(
		map[string]any{"path": opts.Out, "sha256": sha, "gamma_env_at_T0": c.Format(env)},
		fmt.Sprintf("wrote %s (env=%s)", opts.Out, c.Format(env)),
	)
}

// PrimeTailOptions holds flags for the prime-tail command.
type PrimeTailOptions struct {
	*RootOptions
	T0     string
	Sigma  string
	K0     string
	APrime string
	K      int
	Out    string
}

// NewPrimeTailCommand creates the prime-tail command.
func NewPrimeTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrimeTailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "prime-tail",
		Short:         "Bound the prime tail envelope at T0",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrimeTail(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.T0, "T0", "", "tail cut point (decimal string)")
	cmd.Flags().StringVar(&opts.Sigma, "sigma", "", "envelope width (decimal string)")
	cmd.Flags().StringVar(&opts.K0, "k0", "", "notch width (decimal string)")
	cmd.Flags().StringVar(&opts.APrime, "A-prime", "", "prime density constant (default built in)")
	cmd.Flags().IntVar(&opts.K, "K", tails.DefaultK, "smoothing order")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.MarkFlagRequired("T0")
	cmd.MarkFlagRequired("sigma")
	cmd.MarkFlagRequired("k0")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runPrimeTail(opts *PrimeTailOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	p := tails.PrimeParams{K: opts.K}
	var err error
	if p.T0, err = parseFlag(c, "T0", opts.T0); err != nil {
		return err
	}
	if p.Sigma, err = parseFlag(c, "sigma", opts.Sigma); err != nil {
		return err
	}
	if p.K0, err = parseFlag(c, "k0", opts.K0); err != nil {
		return err
	}
	if opts.APrime != "" {
		if p.APrime, err = parseFlag(c, "A-prime", opts.APrime); err != nil {
			return err
		}
	}

	env, err := tails.PrimeEnvAtT0(c, p)
	if err != nil {
		return WrapExitError(ExitInputError, "prime envelope", err)
	}
	a := tails.BuildPrimeTail(c, p, env, nowUTC())

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	return f.Emit(
		map[string]any{"path": opts.Out, "sha256": sha, "env_T0_hi": c.Format(env)},
		fmt.Sprintf("wrote %s (env=%s)", opts.Out, c.Format(env)),
	)
}
