package rigor

import (
	"time"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// BuildCertificate assembles the band_cert artifact from a completed
// multi-band search. All real-valued fields are decimal strings; the
// caller seals and writes the artifact.
func BuildCertificate(c *dec.Context, w *Window, res *MarginResult, opts SearchOptions, now time.Time) cert.Artifact {
	perBand := make([]any, len(res.PerBand))
	for i, bb := range res.PerBand {
		perBand[i] = map[string]any{
			"label":      bb.Band.Label,
			"left":       c.Format(bb.Band.Left),
			"right":      c.Format(bb.Band.Right),
			"min_abs_lo": c.Format(bb.MinAbsLo),
			"min_abs_hi": c.Format(bb.MinAbsHi),
			"parts":      bb.Parts,
		}
	}

	status := "FAIL"
	if res.Pass {
		status = "PASS"
	}

	body := map[string]any{
		"band_margin": map[string]any{
			"lo": c.Format(res.MarginLo),
			"hi": c.Format(res.MarginHi),
		},
		"per_band": perBand,
		"status":   status,
	}
	// Mirror the critical band for quick inspection, when one exists.
	for _, bb := range res.PerBand {
		if bb.Band.Label == "critical" {
			body["critical_band"] = map[string]any{
				"left":  c.Format(bb.Band.Left),
				"right": c.Format(bb.Band.Right),
			}
			break
		}
	}

	return cert.Artifact{
		"kind": cert.KindBandCert,
		"inputs": map[string]any{
			"mode":      w.Mode,
			"sigma":     c.Format(w.Sigma),
			"k0":        c.Format(w.K0),
			"dps":       int(c.Precision()),
			"tol":       c.Format(opts.Tol),
			"max_parts": opts.MaxParts,
		},
		"numbers": map[string]any{
			"band_margin_lo": c.Format(res.MarginLo),
			"band_margin_hi": c.Format(res.MarginHi),
			"bands_count":    len(res.PerBand),
		},
		"band_cert": body,
		"PASS":      res.Pass,
		"meta":      cert.NewMeta("band_cert", c.Precision(), now),
	}
}
