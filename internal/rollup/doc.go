// Package rollup composes upstream certificates into the terminal
// uniform certificate at a cutoff T0.
//
// The algebra is one inequality: the sum of upper-bounded costs
// (prime block cap, prime tail norm, grid error) must not exceed the
// effective margin (band margin lower bound minus gamma envelope).
// Both sides are evaluated in one shared decimal context with outward
// rounding, so no intermediate rounding can silently flip the verdict.
package rollup
