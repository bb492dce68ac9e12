package tails

import (
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// BuildGammaTails assembles the gamma_tails artifact. c1 = env * T0 is
// recorded for consumers that integrate the envelope over the tail.
func BuildGammaTails(c *dec.Context, t0, env *apd.Decimal, now time.Time) (cert.Artifact, error) {
	c1 := new(apd.Decimal)
	if _, err := c.Up().Mul(c1, env, t0); err != nil {
		return nil, err
	}
	return cert.Artifact{
		"kind": cert.KindGammaTail,
		"inputs": map[string]any{
			"T0":  c.Format(t0),
			"dps": int(c.Precision()),
		},
		"gamma_tails": map[string]any{
			"gamma_env_at_T0": c.Format(env),
			"c1":              c.Format(c1),
			"c2":              "0",
			"tails_total":     c.Format(env),
		},
		"meta": cert.NewMeta("gamma_tails", c.Precision(), now),
	}, nil
}

// BuildPrimeTail assembles the prime_tail_envelope artifact. The
// envelope value doubles as the scalar prime_tail_norm consumed by
// downstream rollups.
func BuildPrimeTail(c *dec.Context, p PrimeParams, env *apd.Decimal, now time.Time) cert.Artifact {
	aPrime := p.APrime
	if aPrime == nil {
		aPrime = c.MustParse(DefaultAPrime)
	}
	return cert.Artifact{
		"kind": cert.KindPrimeTail,
		"inputs": map[string]any{
			"T0":      c.Format(p.T0),
			"sigma":   c.Format(p.Sigma),
			"k0":      c.Format(p.K0),
			"A_prime": c.Format(aPrime),
			"K":       p.K,
		},
		"prime_tail": map[string]any{
			"env_T0_hi": c.Format(env),
			"norm":      c.Format(env),
		},
		"meta": cert.NewMeta("prime_tail_envelope", c.Precision(), now),
	}
}

// BuildTailFit assembles the analytic_tail_fit artifact whose bounds
// block feeds the margin verifier directly.
func BuildTailFit(c *dec.Context, in FitInputs, res *FitResult, now time.Time) cert.Artifact {
	return cert.Artifact{
		"kind": cert.KindTailFit,
		"inputs": map[string]any{
			"Ap":  c.Format(in.PrimeA),
			"Ag":  c.Format(in.GammaA),
			"dps": int(c.Precision()),
		},
		"bounds": map[string]any{
			"eps_eff_lo":    c.Format(in.EpsEffLo),
			"grid_error_hi": c.Format(in.GridHi),
			"prime_tail": map[string]any{
				"C":         c.Format(res.CPrime),
				"a":         c.Format(in.PrimeA),
				"T0":        c.Format(in.PrimeT0),
				"env_T0_hi": c.Format(in.PrimeEnv),
			},
			"gamma_tail": map[string]any{
				"C":         c.Format(res.CGamma),
				"a":         c.Format(in.GammaA),
				"T0":        c.Format(in.GammaT0),
				"env_T0_hi": c.Format(in.GammaEnv),
			},
		},
		"meta": cert.NewMeta("analytic_tail_fit", c.Precision(), now),
	}
}
