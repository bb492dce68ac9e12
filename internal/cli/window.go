package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/rigor"
	"github.com/roach88/attest/internal/window"
)

// WindowOptions holds flags for the window command.
type WindowOptions struct {
	*RootOptions
	Mode  string
	Sigma string
	K0    string
	Out   string
}

// NewWindowCommand creates the window command.
func NewWindowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &WindowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "window",
		Short: "Generate a window configuration artifact",
		Long: `Generate the window configuration artifact other tools consume.

Shape parameters are decimal strings; nothing passes through a float.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWindow(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Mode, "mode", rigor.ModeGauss, "window mode")
	cmd.Flags().StringVar(&opts.Sigma, "sigma", "", "envelope width (decimal string)")
	cmd.Flags().StringVar(&opts.K0, "k0", "", "notch width (decimal string)")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.MarkFlagRequired("sigma")
	cmd.MarkFlagRequired("k0")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runWindow(opts *WindowOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)
	c := decCtx(opts.RootOptions)

	sigma, err := parseFlag(c, "sigma", opts.Sigma)
	if err != nil {
		return err
	}
	k0, err := parseFlag(c, "k0", opts.K0)
	if err != nil {
		return err
	}
	w, err := rigor.NewWindow(opts.Mode, sigma, k0)
	if err != nil {
		return WrapExitError(ExitInputError, "window", err)
	}

	a := window.BuildWindow(c, w, nowUTC())
	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	f.VerboseLog("window mode=%s sigma=%s k0=%s", w.Mode, opts.Sigma, opts.K0)
	return f.Emit(
		map[string]any{"path": opts.Out, "sha256": sha, "mode": w.Mode},
		fmt.Sprintf("wrote %s (%s)", opts.Out, sha),
	)
}
