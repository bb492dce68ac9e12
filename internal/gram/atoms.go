package gram

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Atom is one basis function h(x) = exp(-x^2/sigma^2) * (1 - exp(-(x-k0)^2)).
type Atom struct {
	Sigma *apd.Decimal
	K0    *apd.Decimal
}

// GridAtoms lays n atoms on a near-square (sigma, k0) parameter grid:
// ceil(sqrt(n)) values per axis, row-major, truncated to n.
func GridAtoms(c *dec.Context, n int, sigmaMin, sigmaMax, k0Min, k0Max *apd.Decimal) ([]Atom, error) {
	m := int(math.Floor(math.Sqrt(float64(n))))
	if m*m < n {
		m++
	}
	sigmas, err := axis(c, m, sigmaMin, sigmaMax)
	if err != nil {
		return nil, err
	}
	k0s, err := axis(c, m, k0Min, k0Max)
	if err != nil {
		return nil, err
	}

	atoms := make([]Atom, 0, n)
	for _, s := range sigmas {
		for _, k := range k0s {
			atoms = append(atoms, Atom{Sigma: s, K0: k})
			if len(atoms) == n {
				return atoms, nil
			}
		}
	}
	return atoms, nil
}

func axis(c *dec.Context, m int, lo, hi *apd.Decimal) ([]*apd.Decimal, error) {
	den := int64(m - 1)
	if den < 1 {
		den = 1
	}
	span := new(apd.Decimal)
	if _, err := c.Rounded().Sub(span, hi, lo); err != nil {
		return nil, err
	}
	out := make([]*apd.Decimal, m)
	for i := 0; i < m; i++ {
		t := new(apd.Decimal)
		if _, err := c.Rounded().Quo(t, apd.New(int64(i), 0), apd.New(den, 0)); err != nil {
			return nil, err
		}
		if _, err := c.Rounded().Mul(t, span, t); err != nil {
			return nil, err
		}
		if _, err := c.Rounded().Add(t, lo, t); err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

// Eval computes the atom at x.
func (a Atom) Eval(c *dec.Context, x *apd.Decimal) (*apd.Decimal, error) {
	ctx := c.Rounded()

	// exp(-x^2 / sigma^2)
	g := new(apd.Decimal)
	if _, err := ctx.Mul(g, x, x); err != nil {
		return nil, err
	}
	s2 := new(apd.Decimal)
	if _, err := ctx.Mul(s2, a.Sigma, a.Sigma); err != nil {
		return nil, err
	}
	if _, err := ctx.Quo(g, g, s2); err != nil {
		return nil, err
	}
	g.Neg(g)
	if _, err := ctx.Exp(g, g); err != nil {
		return nil, err
	}

	// 1 - exp(-(x - k0)^2)
	d := new(apd.Decimal)
	if _, err := ctx.Sub(d, x, a.K0); err != nil {
		return nil, err
	}
	if _, err := ctx.Mul(d, d, d); err != nil {
		return nil, err
	}
	d.Neg(d)
	if _, err := ctx.Exp(d, d); err != nil {
		return nil, err
	}
	notch := new(apd.Decimal)
	if _, err := ctx.Sub(notch, dec.One(), d); err != nil {
		return nil, err
	}

	out := new(apd.Decimal)
	if _, err := ctx.Mul(out, g, notch); err != nil {
		return nil, err
	}
	return out, nil
}
