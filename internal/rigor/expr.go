package rigor

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Expr is a closed algebraic expression in one variable, built from
// constants, sums, products, quotients, squares and exponentials.
//
// Enclose is the interval extension: given an enclosure of the variable
// it returns an enclosure of the expression. The contract is inclusion:
// for every real x in the input enclosure, the true value of the
// expression at x lies inside the output enclosure.
type Expr interface {
	Enclose(c *dec.Context, x Enclosure) (Enclosure, error)
}

// Const is a constant expression.
type Const struct {
	Value *apd.Decimal
}

// Enclose implements Expr.
func (e Const) Enclose(_ *dec.Context, _ Enclosure) (Enclosure, error) {
	return Point(e.Value), nil
}

// X is the free variable.
type X struct{}

// Enclose implements Expr.
func (X) Enclose(_ *dec.Context, x Enclosure) (Enclosure, error) {
	return x, nil
}

// Neg negates its argument.
type Neg struct {
	Arg Expr
}

// Enclose implements Expr.
func (e Neg) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	a, err := e.Arg.Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	return a.Neg(), nil
}

// Sum adds its terms.
type Sum struct {
	Terms []Expr
}

// Enclose implements Expr.
func (e Sum) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	if len(e.Terms) == 0 {
		return Enclosure{}, fmt.Errorf("sum: no terms")
	}
	acc, err := e.Terms[0].Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	for _, t := range e.Terms[1:] {
		next, err := t.Enclose(c, x)
		if err != nil {
			return Enclosure{}, err
		}
		acc, err = acc.Add(c, next)
		if err != nil {
			return Enclosure{}, err
		}
	}
	return acc, nil
}

// Prod multiplies its factors.
type Prod struct {
	Factors []Expr
}

// Enclose implements Expr.
func (e Prod) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	if len(e.Factors) == 0 {
		return Enclosure{}, fmt.Errorf("prod: no factors")
	}
	acc, err := e.Factors[0].Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	for _, f := range e.Factors[1:] {
		next, err := f.Enclose(c, x)
		if err != nil {
			return Enclosure{}, err
		}
		acc, err = acc.Mul(c, next)
		if err != nil {
			return Enclosure{}, err
		}
	}
	return acc, nil
}

// Quot divides Num by Den. The divisor's enclosure must not contain zero.
type Quot struct {
	Num Expr
	Den Expr
}

// Enclose implements Expr.
func (e Quot) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	num, err := e.Num.Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	den, err := e.Den.Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	return num.Quot(c, den)
}

// Sqr squares its argument.
type Sqr struct {
	Arg Expr
}

// Enclose implements Expr.
func (e Sqr) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	a, err := e.Arg.Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	return a.Sqr(c)
}

// ExpOf exponentiates its argument.
type ExpOf struct {
	Arg Expr
}

// Enclose implements Expr.
func (e ExpOf) Enclose(c *dec.Context, x Enclosure) (Enclosure, error) {
	a, err := e.Arg.Enclose(c, x)
	if err != nil {
		return Enclosure{}, err
	}
	return a.Exp(c)
}
