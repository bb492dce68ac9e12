package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/schema"
)

// VerifyOptions holds flags for the verify command.
type VerifyOptions struct {
	*RootOptions
}

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &VerifyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "verify <artifact>...",
		Short:         "Check artifact seals and schemas",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(opts, cmd, args)
		},
	}

	return cmd
}

func runVerify(opts *VerifyOptions, cmd *cobra.Command, args []string) error {
	f := newFormatter(opts.RootOptions, cmd)

	type report struct {
		Path     string   `json:"path"`
		Kind     string   `json:"kind"`
		Problems []string `json:"problems,omitempty"`
	}
	reports := make([]report, 0, len(args))
	bad := 0

	for _, path := range args {
		a, err := readArtifact(path)
		if err != nil {
			return err
		}
		rep := report{Path: path, Kind: a.Kind()}

		if err := cert.VerifySeal(a); err != nil {
			rep.Problems = append(rep.Problems, err.Error())
		}
		for _, ve := range schema.Validate(a) {
			rep.Problems = append(rep.Problems, ve.Error())
		}
		if len(rep.Problems) > 0 {
			bad++
			f.VerboseLog("%s: %s", path, strings.Join(rep.Problems, "; "))
		}
		reports = append(reports, rep)
	}

	if bad > 0 {
		var lines []string
		for _, rep := range reports {
			if len(rep.Problems) > 0 {
				lines = append(lines, fmt.Sprintf("%s: %s", rep.Path, strings.Join(rep.Problems, "; ")))
			}
		}
		msg := fmt.Sprintf("%d of %d artifacts failed verification", bad, len(args))
		_ = f.Error(ErrCodeVerify, msg, lines)
		return NewExitError(ExitVerifyFailure, msg)
	}

	return f.Emit(
		map[string]any{"verified": len(args), "artifacts": reports},
		fmt.Sprintf("verified %d artifact(s)", len(args)),
	)
}
