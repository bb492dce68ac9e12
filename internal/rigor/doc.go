// Package rigor implements the interval bound oracle and the adaptive
// subdivision search.
//
// The oracle evaluates a closed algebraic expression (sums, products,
// quotients, squares, exponentials) over an interval by extending every
// sub-operation to interval arguments. Each step is computed twice under
// opposite rounding directions and widened one unit in the last place
// outward, so the resulting Enclosure provably contains every value the
// expression takes on the interval.
//
// The subdivision search drives the oracle over a band with a
// min-priority queue keyed by each piece's lower enclosure, certifying a
// global lower bound for inf |f|. Exhausting the piece budget returns
// the best bounds found: the result can understate certainty but never
// overstate it, because every enclosure is rigorous.
package rigor
