package tails

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// DefaultAPrime is the historical prime-tail model constant.
const DefaultAPrime = "0.0076384524109054769957964191958869400469835723173758547544266337342484501729838427610" +
	"5585333349922026737375344819040959339805474951892698656605316742311018265496226235760840" +
	"5931698972986515621555230774697452540257558441032535745760914086692541001577311615455938" +
	"56661222382687673426384518037616762448945"

// DefaultK is the default auxiliary integer shaping the prime envelope.
const DefaultK = 3

// scaleLo returns a lower bound on sigma*k0*T0. Multiplication under
// floor rounding is exactly rounded, so no extra widening is needed.
func scaleLo(c *dec.Context, sigma, k0, t0 *apd.Decimal) (*apd.Decimal, error) {
	x := new(apd.Decimal)
	if _, err := c.Down().Mul(x, sigma, k0); err != nil {
		return nil, err
	}
	if _, err := c.Down().Mul(x, x, t0); err != nil {
		return nil, err
	}
	return x, nil
}

// decayHi returns an upper bound on exp(-x^2/div) given a lower bound
// on x >= 0. The exponent argument is rounded toward zero and the
// exponential is widened one ulp upward to cover its rounding.
func decayHi(c *dec.Context, xLo *apd.Decimal, div int64) (*apd.Decimal, error) {
	sq := new(apd.Decimal)
	if _, err := c.Down().Mul(sq, xLo, xLo); err != nil {
		return nil, err
	}
	arg := new(apd.Decimal)
	if _, err := c.Down().Quo(arg, sq, apd.New(div, 0)); err != nil {
		return nil, err
	}
	arg.Neg(arg)
	out := new(apd.Decimal)
	if _, err := c.Up().Exp(out, arg); err != nil {
		return nil, err
	}
	return c.NextAbove(out), nil
}

// GammaEnvAtT0 returns a proven upper bound on the gamma tail envelope
//
//	exp(-(sigma*k0*T0)^2 / 2) / (1 + sigma*k0*T0)
//
// at the cutoff T0. Numerator rounds up, denominator rounds down.
func GammaEnvAtT0(c *dec.Context, sigma, k0, t0 *apd.Decimal) (*apd.Decimal, error) {
	if err := checkPositive(sigma, "sigma"); err != nil {
		return nil, err
	}
	if err := checkPositive(k0, "k0"); err != nil {
		return nil, err
	}
	if err := checkPositive(t0, "T0"); err != nil {
		return nil, err
	}

	x, err := scaleLo(c, sigma, k0, t0)
	if err != nil {
		return nil, err
	}
	num, err := decayHi(c, x, 2)
	if err != nil {
		return nil, err
	}
	den := new(apd.Decimal)
	if _, err := c.Down().Add(den, dec.One(), x); err != nil {
		return nil, err
	}
	env := new(apd.Decimal)
	if _, err := c.Up().Quo(env, num, den); err != nil {
		return nil, err
	}
	return env, nil
}

// PrimeParams parameterize the prime tail envelope model.
type PrimeParams struct {
	Sigma  *apd.Decimal
	K0     *apd.Decimal
	T0     *apd.Decimal
	APrime *apd.Decimal // nil selects DefaultAPrime
	K      int
}

// PrimeEnvAtT0 returns a proven upper bound on the prime tail envelope
//
//	A_prime * exp(-(sigma*k0*T0)^2 / 4) / (1 + K)
//
// at the cutoff T0.
func PrimeEnvAtT0(c *dec.Context, p PrimeParams) (*apd.Decimal, error) {
	if err := checkPositive(p.Sigma, "sigma"); err != nil {
		return nil, err
	}
	if err := checkPositive(p.K0, "k0"); err != nil {
		return nil, err
	}
	if err := checkPositive(p.T0, "T0"); err != nil {
		return nil, err
	}
	aPrime := p.APrime
	if aPrime == nil {
		var err error
		if aPrime, err = c.Parse(DefaultAPrime); err != nil {
			return nil, err
		}
	}
	if p.K < 0 {
		return nil, fmt.Errorf("tails: K must be non-negative, got %d", p.K)
	}

	x, err := scaleLo(c, p.Sigma, p.K0, p.T0)
	if err != nil {
		return nil, err
	}
	base, err := decayHi(c, x, 4)
	if err != nil {
		return nil, err
	}
	env := new(apd.Decimal)
	if _, err := c.Up().Mul(env, aPrime, base); err != nil {
		return nil, err
	}
	if _, err := c.Up().Quo(env, env, apd.New(int64(p.K)+1, 0)); err != nil {
		return nil, err
	}
	return env, nil
}

func checkPositive(d *apd.Decimal, name string) error {
	if d == nil || d.Sign() <= 0 {
		return fmt.Errorf("tails: %s must be > 0", name)
	}
	return nil
}
