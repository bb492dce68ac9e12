package cli

import (
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// newFormatter builds the per-command formatter; verbose output goes to
// stderr so JSON on stdout stays parseable.
func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// decCtx builds the working context from the global --dps flag.
func decCtx(opts *RootOptions) *dec.Context {
	return dec.New(opts.DPS)
}

// readArtifact loads a certificate artifact from a JSON file. Any
// problem is an input error.
func readArtifact(path string) (cert.Artifact, error) {
	a, err := cert.ReadFile(path)
	if err != nil {
		return nil, WrapExitError(ExitInputError, fmt.Sprintf("reading %s", path), err)
	}
	return a, nil
}

// parseFlag parses a decimal flag value, naming the flag on failure.
func parseFlag(c *dec.Context, name, value string) (*apd.Decimal, error) {
	d, err := c.Parse(value)
	if err != nil {
		return nil, WrapExitError(ExitInputError, fmt.Sprintf("--%s", name), err)
	}
	return d, nil
}

// writeArtifact seals the artifact, writes it, and returns its hash.
func writeArtifact(path string, a cert.Artifact) (string, error) {
	if err := cert.WriteFile(path, a); err != nil {
		return "", WrapExitError(ExitInputError, fmt.Sprintf("writing %s", path), err)
	}
	sha, _ := a.Meta()["sha256"].(string)
	return sha, nil
}

// nowUTC exists so command tests can pin timestamps.
var nowUTC = func() time.Time { return time.Now().UTC() }
