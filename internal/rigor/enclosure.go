package rigor

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Enclosure is a proven [Lo, Hi] pair guaranteed to contain an unknown
// true value (or every value of a function over an interval).
//
// Enclosure values are treated as immutable: operations return fresh
// decimals and never mutate their operands.
type Enclosure struct {
	Lo *apd.Decimal
	Hi *apd.Decimal
}

// Point returns the degenerate enclosure [d, d].
func Point(d *apd.Decimal) Enclosure {
	return Enclosure{Lo: d, Hi: d}
}

// Span returns the enclosure [a, b]. Callers must pass a <= b.
func Span(a, b *apd.Decimal) Enclosure {
	return Enclosure{Lo: a, Hi: b}
}

// Contains reports whether d lies inside the enclosure.
func (e Enclosure) Contains(d *apd.Decimal) bool {
	return e.Lo.Cmp(d) <= 0 && d.Cmp(e.Hi) <= 0
}

// Width returns an upper bound on Hi - Lo.
func (e Enclosure) Width(c *dec.Context) *apd.Decimal {
	w := new(apd.Decimal)
	if _, err := c.Up().Sub(w, e.Hi, e.Lo); err != nil {
		panic(fmt.Sprintf("rigor: width: %v", err))
	}
	return w
}

// Add returns an enclosure of x+y for x in e, y in o.
// apd addition is exactly rounded, so the directed contexts alone make
// the endpoints valid bounds; no further widening is needed.
func (e Enclosure) Add(c *dec.Context, o Enclosure) (Enclosure, error) {
	lo, hi := new(apd.Decimal), new(apd.Decimal)
	if _, err := c.Down().Add(lo, e.Lo, o.Lo); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure add: %w", err)
	}
	if _, err := c.Up().Add(hi, e.Hi, o.Hi); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure add: %w", err)
	}
	return Enclosure{Lo: lo, Hi: hi}, nil
}

// Sub returns an enclosure of x-y for x in e, y in o.
func (e Enclosure) Sub(c *dec.Context, o Enclosure) (Enclosure, error) {
	lo, hi := new(apd.Decimal), new(apd.Decimal)
	if _, err := c.Down().Sub(lo, e.Lo, o.Hi); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure sub: %w", err)
	}
	if _, err := c.Up().Sub(hi, e.Hi, o.Lo); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure sub: %w", err)
	}
	return Enclosure{Lo: lo, Hi: hi}, nil
}

// Neg returns an enclosure of -x for x in e. Exact.
func (e Enclosure) Neg() Enclosure {
	lo, hi := new(apd.Decimal), new(apd.Decimal)
	lo.Neg(e.Hi)
	hi.Neg(e.Lo)
	return Enclosure{Lo: lo, Hi: hi}
}

// Mul returns an enclosure of x*y for x in e, y in o.
// All four endpoint products are evaluated under both rounding
// directions; the minimum of the down-rounded products and the maximum
// of the up-rounded products bracket every product in the rectangle.
func (e Enclosure) Mul(c *dec.Context, o Enclosure) (Enclosure, error) {
	var lo, hi *apd.Decimal
	for _, p := range [][2]*apd.Decimal{
		{e.Lo, o.Lo}, {e.Lo, o.Hi}, {e.Hi, o.Lo}, {e.Hi, o.Hi},
	} {
		down, up := new(apd.Decimal), new(apd.Decimal)
		if _, err := c.Down().Mul(down, p[0], p[1]); err != nil {
			return Enclosure{}, fmt.Errorf("enclosure mul: %w", err)
		}
		if _, err := c.Up().Mul(up, p[0], p[1]); err != nil {
			return Enclosure{}, fmt.Errorf("enclosure mul: %w", err)
		}
		if lo == nil || down.Cmp(lo) < 0 {
			lo = down
		}
		if hi == nil || up.Cmp(hi) > 0 {
			hi = up
		}
	}
	return Enclosure{Lo: lo, Hi: hi}, nil
}

// Sqr returns an enclosure of x*x for x in e.
// Tighter than Mul(e, e), which would treat the two factors as
// independent and lose the sign correlation.
func (e Enclosure) Sqr(c *dec.Context) (Enclosure, error) {
	sq := func(ctx *apd.Context, d *apd.Decimal) (*apd.Decimal, error) {
		out := new(apd.Decimal)
		if _, err := ctx.Mul(out, d, d); err != nil {
			return nil, fmt.Errorf("enclosure sqr: %w", err)
		}
		return out, nil
	}

	switch {
	case e.Lo.Sign() >= 0:
		lo, err := sq(c.Down(), e.Lo)
		if err != nil {
			return Enclosure{}, err
		}
		hi, err := sq(c.Up(), e.Hi)
		if err != nil {
			return Enclosure{}, err
		}
		return Enclosure{Lo: lo, Hi: hi}, nil
	case e.Hi.Sign() <= 0:
		lo, err := sq(c.Down(), e.Hi)
		if err != nil {
			return Enclosure{}, err
		}
		hi, err := sq(c.Up(), e.Lo)
		if err != nil {
			return Enclosure{}, err
		}
		return Enclosure{Lo: lo, Hi: hi}, nil
	default:
		// Interval straddles zero: minimum is 0, maximum at the endpoint
		// of larger magnitude.
		a, err := sq(c.Up(), e.Lo)
		if err != nil {
			return Enclosure{}, err
		}
		b, err := sq(c.Up(), e.Hi)
		if err != nil {
			return Enclosure{}, err
		}
		return Enclosure{Lo: dec.Zero(), Hi: dec.Max(a, b)}, nil
	}
}

// Quot returns an enclosure of x/y for x in e, y in o.
// The divisor enclosure must not contain zero.
func (e Enclosure) Quot(c *dec.Context, o Enclosure) (Enclosure, error) {
	if o.Lo.Sign() <= 0 && o.Hi.Sign() >= 0 {
		return Enclosure{}, fmt.Errorf("enclosure quot: divisor encloses zero [%s, %s]", o.Lo, o.Hi)
	}
	var lo, hi *apd.Decimal
	for _, p := range [][2]*apd.Decimal{
		{e.Lo, o.Lo}, {e.Lo, o.Hi}, {e.Hi, o.Lo}, {e.Hi, o.Hi},
	} {
		down, up := new(apd.Decimal), new(apd.Decimal)
		if _, err := c.Down().Quo(down, p[0], p[1]); err != nil {
			return Enclosure{}, fmt.Errorf("enclosure quot: %w", err)
		}
		if _, err := c.Up().Quo(up, p[0], p[1]); err != nil {
			return Enclosure{}, fmt.Errorf("enclosure quot: %w", err)
		}
		if lo == nil || down.Cmp(lo) < 0 {
			lo = down
		}
		if hi == nil || up.Cmp(hi) > 0 {
			hi = up
		}
	}
	return Enclosure{Lo: lo, Hi: hi}, nil
}

// Exp returns an enclosure of exp(x) for x in e.
// apd's Exp is accurate to within one ulp rather than exactly rounded,
// so both endpoints are widened one ulp outward. The lower endpoint is
// clipped at zero, which exp never reaches.
func (e Enclosure) Exp(c *dec.Context) (Enclosure, error) {
	lo, hi := new(apd.Decimal), new(apd.Decimal)
	if _, err := c.Down().Exp(lo, e.Lo); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure exp: %w", err)
	}
	if _, err := c.Up().Exp(hi, e.Hi); err != nil {
		return Enclosure{}, fmt.Errorf("enclosure exp: %w", err)
	}
	lo = c.NextBelow(lo)
	if lo.Sign() < 0 {
		lo = dec.Zero()
	}
	return Enclosure{Lo: lo, Hi: c.NextAbove(hi)}, nil
}

// Abs returns an enclosure of |x| for x in e.
func (e Enclosure) Abs() Enclosure {
	switch {
	case e.Lo.Sign() >= 0:
		return e
	case e.Hi.Sign() <= 0:
		return e.Neg()
	default:
		negLo := new(apd.Decimal)
		negLo.Neg(e.Lo)
		return Enclosure{Lo: dec.Zero(), Hi: dec.Max(negLo, e.Hi)}
	}
}
