package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/attest/internal/rigor"
	"github.com/roach88/attest/internal/window"
)

// BandCertOptions holds flags for the band-cert command.
type BandCertOptions struct {
	*RootOptions
	WindowConfig string
	Bands        string
	Out          string
	Tol          string
	MaxParts     int
	Workers      int
}

// NewBandCertCommand creates the band-cert command.
func NewBandCertCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BandCertOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "band-cert",
		Short: "Certify the window's minimum modulus over every band",
		Long: `Certify an enclosure of min |W| on each band by adaptive bisection
with outward-rounded interval arithmetic.

The verdict is data: a FAIL certificate still exits 0.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBandCert(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.WindowConfig, "window-config", "", "window artifact path")
	cmd.Flags().StringVar(&opts.Bands, "bands", "", "bands artifact path")
	cmd.Flags().StringVar(&opts.Out, "out", "", "output artifact path")
	cmd.Flags().StringVar(&opts.Tol, "tol", "1E-12", "target enclosure width")
	cmd.Flags().IntVar(&opts.MaxParts, "max-parts", 4096, "sub-interval budget per band")
	cmd.Flags().IntVar(&opts.Workers, "workers", 1, "band-level parallelism")
	cmd.MarkFlagRequired("window-config")
	cmd.MarkFlagRequired("bands")
	cmd.MarkFlagRequired("out")

	return cmd
}

func runBandCert(opts *BandCertOptions, cmd *cobra.Command) error {
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

	bandsArt, err := readArtifact(opts.Bands)
	if err != nil {
		return err
	}
	bands, err := window.ParseBands(c, map[string]any(bandsArt))
	if err != nil {
		return WrapExitError(ExitInputError, opts.Bands, err)
	}

	tol, err := parseFlag(c, "tol", opts.Tol)
	if err != nil {
		return err
	}
	searchOpts := rigor.SearchOptions{Tol: tol, MaxParts: opts.MaxParts, Workers: opts.Workers}

	res, err := rigor.CertifyBands(cmd.Context(), c, w.AbsBounds, bands, searchOpts)
	if err != nil {
		return WrapExitError(ExitInputError, "band search", err)
	}

	a := rigor.BuildCertificate(c, w, res, searchOpts, nowUTC())
	sha, err := writeArtifact(opts.Out, a)
	if err != nil {
		return err
	}

	f.VerboseLog("bands=%d margin_lo=%s margin_hi=%s",
		len(res.PerBand), c.Format(res.MarginLo), c.Format(res.MarginHi))
	return f.Emit(
		map[string]any{
			"path":      opts.Out,
			"sha256":    sha,
			"pass":      res.Pass,
			"margin_lo": c.Format(res.MarginLo),
			"margin_hi": c.Format(res.MarginHi),
		},
		fmt.Sprintf("wrote %s (PASS=%v margin_lo=%s)", opts.Out, res.Pass, c.Format(res.MarginLo)),
	)
}
