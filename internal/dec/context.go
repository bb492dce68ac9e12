package dec

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// DefaultPrecision is the working precision (decimal digits) used by the
// CLI when none is requested. Generous by default: certificates are
// cheap to recompute and expensive to get wrong.
const DefaultPrecision = 60

// Context is an immutable precision context.
//
// It wraps three apd contexts sharing one precision but differing in
// rounding direction. Down() rounds toward negative infinity and is used
// for lower bounds, Up() rounds toward positive infinity and is used for
// upper bounds, Rounded() rounds to nearest and is used only for display
// quantities that carry no proof obligation.
type Context struct {
	prec uint32
	down *apd.Context
	up   *apd.Context
	half *apd.Context
}

// New creates a Context with the given precision in decimal digits.
// Precisions below 1 are clamped to DefaultPrecision.
func New(prec uint32) *Context {
	if prec < 1 {
		prec = DefaultPrecision
	}
	down := apd.BaseContext.WithPrecision(prec)
	down.Rounding = apd.RoundFloor

	up := apd.BaseContext.WithPrecision(prec)
	up.Rounding = apd.RoundCeiling

	half := apd.BaseContext.WithPrecision(prec)
	half.Rounding = apd.RoundHalfEven

	return &Context{prec: prec, down: down, up: up, half: half}
}

// Precision returns the working precision in decimal digits.
func (c *Context) Precision() uint32 { return c.prec }

// Down returns the apd context that rounds toward negative infinity.
func (c *Context) Down() *apd.Context { return c.down }

// Up returns the apd context that rounds toward positive infinity.
func (c *Context) Up() *apd.Context { return c.up }

// Rounded returns the round-to-nearest apd context.
// Results produced with it are NOT valid bounds.
func (c *Context) Rounded() *apd.Context { return c.half }

// Parse parses a decimal string into a finite decimal value.
// Non-finite values (NaN, Infinity) are rejected: certificates only ever
// carry finite reals.
func (c *Context) Parse(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("parse decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return nil, fmt.Errorf("parse decimal %q: non-finite value", s)
	}
	return d, nil
}

// MustParse is like Parse but panics on error.
// Use only in tests or for literal constants known to be valid.
func (c *Context) MustParse(s string) *apd.Decimal {
	d, err := c.Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders a decimal value as the canonical string stored in
// certificate artifacts. The rendering is exact: parsing it back yields
// the identical value.
func (c *Context) Format(d *apd.Decimal) string {
	return d.String()
}

// ulp returns one unit in the last place of d at the working precision:
// 10^(adjusted exponent - precision + 1) for a nonzero value, and
// 10^-precision for zero (where no adjusted exponent exists). The stored
// exponent alone is not usable here: apd keeps exact results with short
// coefficients (1 is 1x10^0), so 10^Exponent would widen an exact 1 by a
// whole unit instead of one working digit.
func (c *Context) ulp(d *apd.Decimal) *apd.Decimal {
	if d.IsZero() {
		return apd.New(1, -int32(c.prec))
	}
	adj := d.Exponent + int32(d.NumDigits()) - 1
	return apd.New(1, adj-int32(c.prec)+1)
}

// NextAbove returns a value strictly greater than d by one ulp.
// Used to widen computed upper bounds outward so that library operations
// accurate to within one ulp still yield valid enclosures.
func (c *Context) NextAbove(d *apd.Decimal) *apd.Decimal {
	wide := apd.BaseContext.WithPrecision(c.prec + 4)
	wide.Rounding = apd.RoundCeiling
	out := new(apd.Decimal)
	// Exact at the widened precision: the ulp is aligned with d's last digit.
	if _, err := wide.Add(out, d, c.ulp(d)); err != nil {
		panic(fmt.Sprintf("dec: ulp widening failed: %v", err))
	}
	return out
}

// NextBelow returns a value strictly less than d by one ulp.
// The lower-bound counterpart of NextAbove.
func (c *Context) NextBelow(d *apd.Decimal) *apd.Decimal {
	wide := apd.BaseContext.WithPrecision(c.prec + 4)
	wide.Rounding = apd.RoundFloor
	out := new(apd.Decimal)
	if _, err := wide.Sub(out, d, c.ulp(d)); err != nil {
		panic(fmt.Sprintf("dec: ulp widening failed: %v", err))
	}
	return out
}

// Zero returns a fresh decimal zero.
func Zero() *apd.Decimal { return apd.New(0, 0) }

// One returns a fresh decimal one.
func One() *apd.Decimal { return apd.New(1, 0) }

// Min returns the smaller of a and b (shared pointer, not a copy).
func Min(a, b *apd.Decimal) *apd.Decimal {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Max returns the larger of a and b (shared pointer, not a copy).
func Max(a, b *apd.Decimal) *apd.Decimal {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}
