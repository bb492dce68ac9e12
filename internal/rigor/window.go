package rigor

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// ModeGauss is the only window mode currently implemented: a Gaussian
// envelope multiplied by a Gaussian notch.
const ModeGauss = "gauss"

// Window is the spectral window family
//
//	W(x) = exp(-(x/sigma)^2) * (1 - exp(-(x/k0)^2))
//
// with shape parameters sigma > 0 (envelope width) and k0 > 0 (notch
// width). W vanishes at x = 0 and is positive everywhere else.
type Window struct {
	Mode  string
	Sigma *apd.Decimal
	K0    *apd.Decimal
}

// NewWindow validates the shape parameters and returns a Window.
func NewWindow(mode string, sigma, k0 *apd.Decimal) (*Window, error) {
	if mode == "" {
		mode = ModeGauss
	}
	if mode != ModeGauss {
		return nil, fmt.Errorf("unsupported window mode %q: only %q is implemented", mode, ModeGauss)
	}
	if sigma == nil || sigma.Sign() <= 0 {
		return nil, fmt.Errorf("window sigma must be > 0")
	}
	if k0 == nil || k0.Sign() <= 0 {
		return nil, fmt.Errorf("window k0 must be > 0")
	}
	return &Window{Mode: mode, Sigma: sigma, K0: k0}, nil
}

// Expr builds the window's expression tree.
func (w *Window) Expr() Expr {
	envelope := ExpOf{Arg: Neg{Arg: Sqr{Arg: Quot{Num: X{}, Den: Const{Value: w.Sigma}}}}}
	notch := Sum{Terms: []Expr{
		Const{Value: dec.One()},
		Neg{Arg: ExpOf{Arg: Neg{Arg: Sqr{Arg: Quot{Num: X{}, Den: Const{Value: w.K0}}}}}},
	}}
	return Prod{Factors: []Expr{envelope, notch}}
}

// AbsBounds is the interval bound oracle for |W| on [a, b].
//
// Returns (lo, hi) such that lo <= |W(x)| <= hi for every real x in
// [a, b]. Negative lower enclosures are clipped to zero; since |W| is
// nonnegative, zero is always a valid lower bound. Pure and total for
// any a <= b.
func (w *Window) AbsBounds(c *dec.Context, a, b *apd.Decimal) (lo, hi *apd.Decimal, err error) {
	enc, err := w.Expr().Enclose(c, Span(a, b))
	if err != nil {
		return nil, nil, fmt.Errorf("window bounds on [%s, %s]: %w", a, b, err)
	}
	abs := enc.Abs()
	lo = abs.Lo
	if lo.Sign() < 0 {
		lo = dec.Zero()
	}
	return lo, abs.Hi, nil
}
