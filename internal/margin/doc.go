// Package margin certifies that an analytic margin function stays above
// a target over a half-line segment [T0, T1].
//
// The margin delta_lo(T) = eps_eff_lo - Cp/T^ap - Cg/T^ag - grid_hi
// subtracts only terms that are strictly decreasing in T, so its minimum
// on any sub-interval occurs at the left endpoint. The verifier seeds a
// uniform mesh and refines failing pieces depth-first; a piece whose
// left endpoint clears the target is certified wholesale.
//
// Precondition, supplied by the upstream analytic constructions and not
// checked here: every subtracted tail term is monotone decreasing over
// the full domain. The left-endpoint rule is unsound without it.
package margin
