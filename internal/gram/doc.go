// Package gram certifies positive semidefiniteness of a subspace
// spanned by parameterized Gaussian-notch atoms.
//
// The Gram matrix of pairwise inner products is built by compensated
// trapezoid quadrature on a worker pool, then factored: plain Cholesky
// first, pivoted Cholesky as the fallback. A pivot below -tol is a
// genuine negative direction and fails the certificate; pivots inside
// [-tol, 0] are numerical noise and only reduce the reported rank.
package gram
