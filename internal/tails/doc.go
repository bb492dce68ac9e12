// Package tails derives conservative analytic envelopes for the gamma
// and prime tail contributions above a cutoff T0, and fits 1/T^a decay
// models to them for the margin verifier.
//
// Every envelope is an upper bound: each operation rounds toward the
// direction that can only enlarge the result, so a downstream rollup
// that adds an envelope, or subtracts one from a proven lower bound,
// stays rigorous.
package tails
