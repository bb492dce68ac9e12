package dec

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Direction distinguishes lower bounds from upper bounds.
type Direction int

const (
	// LowerBound asserts value <= true quantity.
	LowerBound Direction = iota + 1
	// UpperBound asserts true quantity <= value.
	UpperBound
)

// String implements fmt.Stringer.
func (d Direction) String() string {
	switch d {
	case LowerBound:
		return "lower"
	case UpperBound:
		return "upper"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Bound is a proven one-sided bound on an unknown real quantity.
//
// Arithmetic on bounds preserves correctness by construction: operations
// are only defined where the directions compose, and every result is
// rounded outward in the bound's own direction.
type Bound struct {
	Dir   Direction
	Value *apd.Decimal
}

// ErrDirectionMismatch is returned when an operation is applied to bounds
// whose directions do not compose into a valid bound.
var ErrDirectionMismatch = errors.New("bound directions do not compose")

// NewLower creates a lower bound.
func NewLower(v *apd.Decimal) Bound { return Bound{Dir: LowerBound, Value: v} }

// NewUpper creates an upper bound.
func NewUpper(v *apd.Decimal) Bound { return Bound{Dir: UpperBound, Value: v} }

// apdCtx selects the rounding context matching the bound's direction:
// lower bounds round down, upper bounds round up. Either way the stored
// value moves away from the true quantity, never toward it.
func (b Bound) apdCtx(c *Context) *apd.Context {
	if b.Dir == LowerBound {
		return c.Down()
	}
	return c.Up()
}

// Add sums two bounds of the same direction.
// lower+lower is a lower bound of the sum; upper+upper an upper bound.
func (b Bound) Add(c *Context, o Bound) (Bound, error) {
	if b.Dir != o.Dir {
		return Bound{}, fmt.Errorf("add %s to %s: %w", o.Dir, b.Dir, ErrDirectionMismatch)
	}
	out := new(apd.Decimal)
	if _, err := b.apdCtx(c).Add(out, b.Value, o.Value); err != nil {
		return Bound{}, fmt.Errorf("bound add: %w", err)
	}
	return Bound{Dir: b.Dir, Value: out}, nil
}

// SubUpper subtracts an upper bound from a lower bound, yielding a lower
// bound of the difference. This is the rollup's epsilon_eff step:
// (proven lower bound) - (upper bound on subtracted terms).
func (b Bound) SubUpper(c *Context, o Bound) (Bound, error) {
	if b.Dir != LowerBound || o.Dir != UpperBound {
		return Bound{}, fmt.Errorf("sub %s from %s: %w", o.Dir, b.Dir, ErrDirectionMismatch)
	}
	out := new(apd.Decimal)
	if _, err := c.Down().Sub(out, b.Value, o.Value); err != nil {
		return Bound{}, fmt.Errorf("bound sub: %w", err)
	}
	return NewLower(out), nil
}

// Neg negates the bound, flipping its direction. Exact.
func (b Bound) Neg() Bound {
	out := new(apd.Decimal)
	out.Neg(b.Value)
	dir := LowerBound
	if b.Dir == LowerBound {
		dir = UpperBound
	}
	return Bound{Dir: dir, Value: out}
}

// AtMost reports whether the quantity bounded above by b is provably
// at most the quantity bounded below by other. b must be an upper bound
// and other a lower bound; any other pairing cannot prove the inequality.
func (b Bound) AtMost(other Bound) (bool, error) {
	if b.Dir != UpperBound || other.Dir != LowerBound {
		return false, fmt.Errorf("compare %s against %s: %w", b.Dir, other.Dir, ErrDirectionMismatch)
	}
	return b.Value.Cmp(other.Value) <= 0, nil
}
