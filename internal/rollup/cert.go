package rollup

import (
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// Paths echo where each input artifact came from. Empty entries are
// omitted from the certificate rather than written as nulls.
type Paths struct {
	CertsDir   string
	BandCert   string
	PrimeBlock string
	PrimeTail  string
	GammaTail  string
	GridError  string
	WeilPSD    string
}

// BuildCertificate assembles the terminal uniform_certificate artifact.
func BuildCertificate(c *dec.Context, t0 *apd.Decimal, paths Paths, v Values, r *Result, now time.Time) cert.Artifact {
	inputs := map[string]any{
		"T0": c.Format(t0),
	}
	for key, val := range map[string]string{
		"certs_dir":        paths.CertsDir,
		"band_cert_path":   paths.BandCert,
		"prime_block_path": paths.PrimeBlock,
		"prime_tail_path":  paths.PrimeTail,
		"gamma_tail_path":  paths.GammaTail,
		"grid_error_path":  paths.GridError,
		"weil_psd_path":    paths.WeilPSD,
	} {
		if val != "" {
			inputs[key] = val
		}
	}

	return cert.Artifact{
		"kind":   cert.KindUniform,
		"inputs": inputs,
		"uniform_certificate": map[string]any{
			"band_margin":     c.Format(v.BandMargin),
			"gamma_env_at_T0": c.Format(v.GammaEnvAtT0),
			"epsilon_eff":     c.Format(r.EpsilonEff),
			"prime_block_cap": c.Format(v.PrimeBlockCap),
			"prime_tail_norm": c.Format(v.PrimeTailNorm),
			"grid_error_norm": c.Format(v.GridErrorNorm),
			"lhs_total":       c.Format(r.LhsTotal),
			"PSD_verified":    v.PSDVerified,
		},
		"PASS": r.Pass,
		"meta": cert.NewMeta("uniform_rollup_cert", c.Precision(), now),
	}
}
