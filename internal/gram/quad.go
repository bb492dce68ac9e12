package gram

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Integrand evaluates the function under the integral at x.
type Integrand func(x *apd.Decimal) (*apd.Decimal, error)

// KahanTrapezoid integrates fn over [a, b] on mgrid uniform nodes with
// a compensated running sum: endpoint values carry half weight, inner
// values full weight, and the rounding residue of every addition is
// folded back into the next term.
func KahanTrapezoid(c *dec.Context, fn Integrand, a, b *apd.Decimal, mgrid int) (*apd.Decimal, error) {
	if mgrid < 2 {
		return nil, fmt.Errorf("gram: mgrid must be >= 2, got %d", mgrid)
	}
	ctx := c.Rounded()

	h := new(apd.Decimal)
	if _, err := ctx.Sub(h, b, a); err != nil {
		return nil, err
	}
	if _, err := ctx.Quo(h, h, apd.New(int64(mgrid-1), 0)); err != nil {
		return nil, err
	}

	sum := dec.Zero()
	comp := dec.Zero()
	for k := 1; k < mgrid-1; k++ {
		x := new(apd.Decimal)
		if _, err := ctx.Mul(x, h, apd.New(int64(k), 0)); err != nil {
			return nil, err
		}
		if _, err := ctx.Add(x, a, x); err != nil {
			return nil, err
		}
		f, err := fn(x)
		if err != nil {
			return nil, err
		}

		y := new(apd.Decimal)
		if _, err := ctx.Sub(y, f, comp); err != nil {
			return nil, err
		}
		t := new(apd.Decimal)
		if _, err := ctx.Add(t, sum, y); err != nil {
			return nil, err
		}
		if _, err := ctx.Sub(comp, t, sum); err != nil {
			return nil, err
		}
		if _, err := ctx.Sub(comp, comp, y); err != nil {
			return nil, err
		}
		sum = t
	}

	f0, err := fn(a)
	if err != nil {
		return nil, err
	}
	fN, err := fn(b)
	if err != nil {
		return nil, err
	}
	ends := new(apd.Decimal)
	if _, err := ctx.Add(ends, f0, fN); err != nil {
		return nil, err
	}
	half := apd.New(5, -1)
	if _, err := ctx.Mul(ends, ends, half); err != nil {
		return nil, err
	}
	if _, err := ctx.Add(sum, sum, ends); err != nil {
		return nil, err
	}

	out := new(apd.Decimal)
	if _, err := ctx.Mul(out, h, sum); err != nil {
		return nil, err
	}
	return out, nil
}
