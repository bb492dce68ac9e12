// Package dec provides the explicit-precision decimal foundation for all
// rigorous numeric work in attest.
//
// Every computation that produces a bound goes through a Context, which
// carries the working precision and exposes directional rounding modes.
// There is deliberately no process-wide precision setting: two searches
// running concurrently at different precisions each hold their own
// Context and cannot interfere.
//
// The Bound type implements the inequality algebra used by the rollup:
// a sum of lower bounds is a lower bound of the sum, a lower bound minus
// an upper bound is a lower bound of the difference, and every result of
// finite-precision arithmetic is rounded outward (away from the true
// value) before it is stored.
package dec
