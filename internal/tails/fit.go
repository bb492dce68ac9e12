package tails

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// FitInputs are the quantities the 1/T^a fit consumes: the proven
// margin lower bound and grid error, and each tail's envelope value at
// its own cutoff. Exponents select the decay model and must be positive.
type FitInputs struct {
	EpsEffLo *apd.Decimal
	GridHi   *apd.Decimal

	PrimeEnv *apd.Decimal
	PrimeT0  *apd.Decimal
	PrimeA   *apd.Decimal

	GammaEnv *apd.Decimal
	GammaT0  *apd.Decimal
	GammaA   *apd.Decimal
}

// FitResult carries the fitted decay coefficients.
type FitResult struct {
	CPrime *apd.Decimal
	CGamma *apd.Decimal
}

// FitC derives a conservative coefficient C so that C/T^a >= env at
// T = T0: C = env * T0^a, rounded up at every step.
func FitC(c *dec.Context, env, t0, a *apd.Decimal) (*apd.Decimal, error) {
	if a == nil || a.Sign() <= 0 {
		return nil, fmt.Errorf("tails: fit exponent must be > 0")
	}
	if err := checkPositive(t0, "T0"); err != nil {
		return nil, err
	}
	pow := new(apd.Decimal)
	if _, err := c.Up().Pow(pow, t0, a); err != nil {
		return nil, err
	}
	pow = c.NextAbove(pow)
	out := new(apd.Decimal)
	if _, err := c.Up().Mul(out, env, pow); err != nil {
		return nil, err
	}
	return out, nil
}

// Fit derives both tail coefficients from the gathered inputs.
func Fit(c *dec.Context, in FitInputs) (*FitResult, error) {
	cp, err := FitC(c, in.PrimeEnv, in.PrimeT0, in.PrimeA)
	if err != nil {
		return nil, fmt.Errorf("prime tail fit: %w", err)
	}
	cg, err := FitC(c, in.GammaEnv, in.GammaT0, in.GammaA)
	if err != nil {
		return nil, fmt.Errorf("gamma tail fit: %w", err)
	}
	return &FitResult{CPrime: cp, CGamma: cg}, nil
}

// fitFields locates the fit inputs across the historical layouts of the
// upstream artifacts: the margin source keeps epsilon_eff in a numbers
// block under either spelling, the envelope artifacts either nest their
// values or hoist them to the top level.
var fitFields = cert.MustFieldMap(
	cert.Field{Logical: "epsilon_eff", Aliases: []cert.Path{
		{"numbers", "epsilon_eff"}, {"numbers", "eps_eff"},
	}},
	cert.Field{Logical: "grid_error_hi", Optional: true, Default: "0", Aliases: []cert.Path{
		{"grid_error_bound", "bound_hi"}, {"numbers", "grid_error_norm"},
	}},
	cert.Field{Logical: "prime_T0", Aliases: []cert.Path{
		{"inputs", "T0"}, {"T0"}, {"prime_tail", "T0"},
	}},
	cert.Field{Logical: "prime_env", Aliases: []cert.Path{
		{"prime_tail", "env_T0_hi"}, {"prime_tail_envelope", "env_T0_hi"},
		{"numbers", "prime_tail_norm"},
	}},
	cert.Field{Logical: "gamma_T0", Aliases: []cert.Path{
		{"inputs", "T0"}, {"T0"}, {"gamma_tail", "T0"},
	}},
	cert.Field{Logical: "gamma_env", Aliases: []cert.Path{
		{"gamma_tails", "gamma_env_at_T0"}, {"gamma_tail", "gamma_env_at_T0"},
		{"gamma_env_at_T0"},
	}},
)

// GatherFitInputs resolves the fit inputs from the upstream artifacts.
// epsArt supplies epsilon_eff (lower endpoint), gridArt the grid error
// (upper endpoint, defaulting to zero when the artifact is nil),
// primeArt and gammaArt the respective envelopes (upper endpoints).
func GatherFitInputs(c *dec.Context, epsArt, gridArt, primeArt, gammaArt cert.Artifact,
	primeA, gammaA *apd.Decimal) (FitInputs, error) {

	in := FitInputs{PrimeA: primeA, GammaA: gammaA}

	lo := func(a cert.Artifact, logical string) (*apd.Decimal, error) {
		s, err := fitFields.ResolveLo(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}
	hi := func(a cert.Artifact, logical string) (*apd.Decimal, error) {
		s, err := fitFields.ResolveHi(a, logical)
		if err != nil {
			return nil, err
		}
		return c.Parse(s)
	}

	var err error
	if in.EpsEffLo, err = lo(epsArt, "epsilon_eff"); err != nil {
		return FitInputs{}, err
	}
	if gridArt == nil {
		in.GridHi = dec.Zero()
	} else if in.GridHi, err = hi(gridArt, "grid_error_hi"); err != nil {
		return FitInputs{}, err
	}
	if in.PrimeT0, err = lo(primeArt, "prime_T0"); err != nil {
		return FitInputs{}, err
	}
	if in.PrimeEnv, err = hi(primeArt, "prime_env"); err != nil {
		return FitInputs{}, err
	}
	if in.GammaT0, err = lo(gammaArt, "gamma_T0"); err != nil {
		return FitInputs{}, err
	}
	if in.GammaEnv, err = hi(gammaArt, "gamma_env"); err != nil {
		return FitInputs{}, err
	}
	return in, nil
}
