package margin

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// boundsFields maps the logical analytic-bound quantities onto the
// layouts historical bound files have used: quantities either at the top
// level or nested under a "bounds" block, endpoints as plain scalars,
// {lo, hi} objects, or "[lo, hi]" strings. Error-bound magnitudes are
// ingested as upper endpoints and exponents as lower endpoints, the
// worst case for the margin in each position.
var boundsFields = cert.MustFieldMap(
	cert.Field{Logical: "eps_eff_lo", Aliases: []cert.Path{
		{"bounds", "eps_eff_lo"}, {"eps_eff_lo"},
	}},
	cert.Field{Logical: "grid_error_hi", Aliases: []cert.Path{
		{"bounds", "grid_error_hi"}, {"grid_error_hi"},
	}},
	cert.Field{Logical: "prime_tail_C", Aliases: []cert.Path{
		{"bounds", "prime_tail", "C"}, {"prime_tail", "C"},
	}},
	cert.Field{Logical: "prime_tail_a", Aliases: []cert.Path{
		{"bounds", "prime_tail", "a"}, {"prime_tail", "a"},
	}},
	cert.Field{Logical: "prime_tail_T0", Optional: true, Aliases: []cert.Path{
		{"bounds", "prime_tail", "T0"}, {"prime_tail", "T0"},
	}},
	cert.Field{Logical: "gamma_tail_C", Aliases: []cert.Path{
		{"bounds", "gamma_tail", "C"}, {"gamma_tail", "C"},
	}},
	cert.Field{Logical: "gamma_tail_a", Aliases: []cert.Path{
		{"bounds", "gamma_tail", "a"}, {"gamma_tail", "a"},
	}},
	cert.Field{Logical: "gamma_tail_T0", Optional: true, Aliases: []cert.Path{
		{"bounds", "gamma_tail", "T0"}, {"gamma_tail", "T0"},
	}},
)

// ParseBounds extracts the analytic bound quantities from a bounds
// artifact into Params, leaving the domain and mesh fields for the
// caller. A required quantity that resolves under no alias returns a
// cert.MissingFieldError.
func ParseBounds(c *dec.Context, a cert.Artifact) (Params, error) {
	var p Params

	lo := func(logical string) (*apd.Decimal, error) {
		s, err := boundsFields.ResolveLo(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}
	hi := func(logical string) (*apd.Decimal, error) {
		s, err := boundsFields.ResolveHi(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}

	var err error
	if p.EpsEffLo, err = lo("eps_eff_lo"); err != nil {
		return Params{}, err
	}
	if p.GridHi, err = hi("grid_error_hi"); err != nil {
		return Params{}, err
	}
	if p.PrimeTail.C, err = hi("prime_tail_C"); err != nil {
		return Params{}, err
	}
	if p.PrimeTail.A, err = lo("prime_tail_a"); err != nil {
		return Params{}, err
	}
	if p.GammaTail.C, err = hi("gamma_tail_C"); err != nil {
		return Params{}, err
	}
	if p.GammaTail.A, err = lo("gamma_tail_a"); err != nil {
		return Params{}, err
	}

	if p.PrimeTail.T0, err = optionalLo(c, a, "prime_tail_T0"); err != nil {
		return Params{}, err
	}
	if p.GammaTail.T0, err = optionalLo(c, a, "gamma_tail_T0"); err != nil {
		return Params{}, err
	}
	return p, nil
}

// optionalLo resolves an optional lower endpoint, mapping absence to nil
// rather than zero: a declared tail domain of zero would be meaningful.
func optionalLo(c *dec.Context, a cert.Artifact, logical string) (*apd.Decimal, error) {
	s, err := boundsFields.ResolveLo(a, logical)
	if err != nil {
		return nil, err
	}
	if s == "" {
		return nil, nil
	}
	d, err := c.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", logical, err)
	}
	return d, nil
}
