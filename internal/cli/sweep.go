package cli

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/store"
	"github.com/roach88/attest/internal/sweep"
)

// SweepOptions holds flags for the sweep command.
type SweepOptions struct {
	*RootOptions
	Config string
	DB     string
}

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SweepOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "sweep",
		Short:         "Run the certificate pipeline over a parameter grid",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Config, "config", "", "sweep configuration path (YAML)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "optional sqlite database path for run records")
	cmd.MarkFlagRequired("config")

	return cmd
}

func runSweep(opts *SweepOptions, cmd *cobra.Command) error {
	f := newFormatter(opts.RootOptions, cmd)

	cfg, err := sweep.Load(opts.Config)
	if err != nil {
		return WrapExitError(ExitInputError, opts.Config, err)
	}

	r := sweep.Runner{Config: cfg, Log: slog.Default()}
	if opts.DB != "" {
		st, err := store.Open(opts.DB)
		if err != nil {
			return WrapExitError(ExitInputError, opts.DB, err)
		}
		defer st.Close()
		r.Store = st
	}

	sum, err := r.Run(cmd.Context())
	if err != nil {
		return WrapExitError(ExitInputError, "sweep", err)
	}

	data := map[string]any{
		"run_id":   sum.RunID,
		"points":   sum.Points,
		"trials":   sum.Trials,
		"failures": len(sum.Failures),
		"csv":      sum.CSVPath,
	}
	text := fmt.Sprintf("run %s: %d points, %d trials, %d failures",
		sum.RunID, sum.Points, len(sum.Trials), len(sum.Failures))
	if sum.Best != nil {
		data["best_sigma"] = sum.Best.Sigma
		data["best_k0"] = sum.Best.K0
		data["best_gap"] = sum.Best.Gap
		text += fmt.Sprintf("; best gap %s at sigma=%s k0=%s",
			sum.Best.Gap, sum.Best.Sigma, sum.Best.K0)
	}
	return f.Emit(data, text)
}
