package rollup

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// Inputs are the upstream artifacts. Band, PrimeBlock, PrimeTail and
// GammaTail are required; Grid and PSD may be nil. An absent grid bound
// contributes zero (a valid, if weak, upper bound) and an absent PSD
// certificate does not veto.
type Inputs struct {
	Band       cert.Artifact
	PrimeBlock cert.Artifact
	PrimeTail  cert.Artifact
	GammaTail  cert.Artifact
	Grid       cert.Artifact
	PSD        cert.Artifact
}

// Values are the extracted quantities, each already oriented the safe
// way: BandMargin is a lower bound, everything else an upper bound.
type Values struct {
	BandMargin    *apd.Decimal
	PrimeBlockCap *apd.Decimal
	PrimeTailNorm *apd.Decimal
	GammaEnvAtT0  *apd.Decimal
	GridErrorNorm *apd.Decimal
	PSDVerified   bool
}

// Result is the computed verdict.
type Result struct {
	LhsTotal   *apd.Decimal
	EpsilonEff *apd.Decimal
	Pass       bool
}

// rollupFields carries the alias lists accumulated over every artifact
// layout the rollup has ever had to read. Canonical paths first,
// fallbacks in historical order. Each logical field is resolved against
// its own source artifact.
var rollupFields = cert.MustFieldMap(
	cert.Field{Logical: "band_margin", Aliases: []cert.Path{
		{"numbers", "band_margin_lo"},
		{"band_cert", "band_margin", "lo"},
		{"band_cert", "band_margin_lo"},
		{"numbers", "band_margin"},
		{"band_margin", "lo"},
		{"band_margin"},
	}},
	cert.Field{Logical: "prime_block_cap", Aliases: []cert.Path{
		{"prime_block_norm", "used_operator_norm"},
		{"used_operator_norm"},
		{"operator_norm_cap", "hi"},
		{"operator_norm_cap"},
		{"cap"},
	}},
	cert.Field{Logical: "prime_tail_norm", Aliases: []cert.Path{
		{"prime_tail", "env_T0_hi"},
		{"prime_tail_envelope", "env_T0_hi"},
		{"numbers", "prime_tail_norm"},
		{"env_T0_hi"},
		{"prime_tail_norm"},
	}},
	cert.Field{Logical: "gamma_env_at_T0", Aliases: []cert.Path{
		{"gamma_tails", "gamma_env_at_T0"},
		{"gamma_tail", "env_at_T0"},
		{"gamma_env_at_T0"},
		{"tails_total"},
		{"numbers", "gamma_env_at_T0"},
	}},
	cert.Field{Logical: "grid_error_norm", Optional: true, Default: "0", Aliases: []cert.Path{
		{"grid_error_bound", "bound_hi"},
		{"grid_error_norm"},
		{"numbers", "grid_error_norm"},
		{"hi"},
		{"lo"},
	}},
	cert.Field{Logical: "psd_verified", Optional: true, Aliases: []cert.Path{
		{"PSD_verified"},
		{"bochner_psd", "PSD_verified"},
		{"weil_psd", "PSD_verified"},
	}},
)

// Extract resolves every quantity from its source artifact. A required
// quantity that resolves under no alias returns a cert.MissingFieldError
// naming the logical field; optional quantities take their weak
// defaults.
func Extract(c *dec.Context, in Inputs) (Values, error) {
	var v Values

	lo := func(a cert.Artifact, logical string) (*apd.Decimal, error) {
		s, err := rollupFields.ResolveLo(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}
	hi := func(a cert.Artifact, logical string) (*apd.Decimal, error) {
		s, err := rollupFields.ResolveHi(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}

	var err error
	if v.BandMargin, err = lo(in.Band, "band_margin"); err != nil {
		return Values{}, err
	}
	if v.PrimeBlockCap, err = hi(in.PrimeBlock, "prime_block_cap"); err != nil {
		return Values{}, err
	}
	if v.PrimeTailNorm, err = hi(in.PrimeTail, "prime_tail_norm"); err != nil {
		return Values{}, err
	}
	if v.GammaEnvAtT0, err = hi(in.GammaTail, "gamma_env_at_T0"); err != nil {
		return Values{}, err
	}

	if in.Grid == nil {
		v.GridErrorNorm = dec.Zero()
	} else if v.GridErrorNorm, err = hi(in.Grid, "grid_error_norm"); err != nil {
		return Values{}, err
	}

	v.PSDVerified = true
	if in.PSD != nil {
		if v.PSDVerified, err = rollupFields.ResolveBool(in.PSD, "psd_verified", true); err != nil {
			return Values{}, err
		}
	}
	return v, nil
}

// Compute evaluates the rollup inequality. The cost side rounds up and
// the margin side rounds down, so Pass can only be understated.
func Compute(c *dec.Context, v Values) (*Result, error) {
	lhs := new(apd.Decimal)
	if _, err := c.Up().Add(lhs, v.PrimeBlockCap, v.PrimeTailNorm); err != nil {
		return nil, err
	}
	if _, err := c.Up().Add(lhs, lhs, v.GridErrorNorm); err != nil {
		return nil, err
	}

	eps := new(apd.Decimal)
	if _, err := c.Down().Sub(eps, v.BandMargin, v.GammaEnvAtT0); err != nil {
		return nil, err
	}

	return &Result{
		LhsTotal:   lhs,
		EpsilonEff: eps,
		Pass:       v.PSDVerified && lhs.Cmp(eps) <= 0,
	}, nil
}
