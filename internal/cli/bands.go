package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/window"
)

// BandsOptions holds flags for the bands command.
type BandsOptions struct {
	*RootOptions
	WindowConfig  string
	Out           string
	Grid          int
	Digits        int
	CriticalLeft  string
	CriticalRight string
	Bands         []string
}

// NewBandsCommand creates the bands command.
func NewBandsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BandsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "bands",
		Short: "Generate the band grid artifact",
		Long: `Generate the uniform band grids the band certificate samples.

The critical band is built from --critical-left/--critical-right;
additional bands come from repeated --band label:left:right flags.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBands(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.WindowConfig, "window-config", "", "window artifact path")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.Flags().IntVar(&opts.Grid, "grid", window.DefaultGrid, "nodes per band")
	cmd.Flags().IntVar(&opts.Digits, "digits", window.DefaultDigits, "stored digits per node")
	cmd.Flags().StringVar(&opts.CriticalLeft, "critical-left", "-0.50", "critical band left endpoint")
	cmd.Flags().StringVar(&opts.CriticalRight, "critical-right", "0.50", "critical band right endpoint")
	cmd.Flags().StringArrayVar(&opts.Bands, "band", nil, "extra band as label:left:right (repeatable)")
	cmd.MarkFlagRequired("window-config")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runBands(opts *BandsOptions, cmd *cobra.Command) error {
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

	specs := []window.GridSpec{}
	critLeft, err := parseFlag(c, "critical-left", opts.CriticalLeft)
	if err != nil {
		return err
	}
	critRight, err := parseFlag(c, "critical-right", opts.CriticalRight)
	if err != nil {
		return err
	}
	specs = append(specs, window.GridSpec{Label: "critical", Left: critLeft, Right: critRight})

	for _, spec := range opts.Bands {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			return NewExitError(ExitInputError,
				fmt.Sprintf("--band %q: want label:left:right", spec))
		}
		left, err := parseFlag(c, "band", parts[1])
		if err != nil {
			return err
		}
		right, err := parseFlag(c, "band", parts[2])
		if err != nil {
			return err
		}
		specs = append(specs, window.GridSpec{Label: parts[0], Left: left, Right: right})
	}

	a, err := window.MakeBands(c, specs, window.BandsOptions{
		Grid:       opts.Grid,
		Digits:     opts.Digits,
		WindowPath: opts.WindowConfig,
		WindowMode: w.Mode,
	}, nowUTC())
	if err != nil {
		return WrapExitError(ExitInputError, "bands", err)
	}

	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	f.VerboseLog("bands=%d grid=%d digits=%d", len(specs), opts.Grid, opts.Digits)
	return f.Emit(
		map[string]any{"path": opts.Out, "sha256": sha, "bands": len(specs)},
		fmt.Sprintf("wrote %s (%d bands, %s)", opts.Out, len(specs), sha),
	)
}
