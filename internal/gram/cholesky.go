package gram

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// AdaptiveTol returns the pivot tolerance 10^-(prec-k) used to separate
// numerical noise from genuine negative directions.
func AdaptiveTol(prec uint32, k int32) *apd.Decimal {
	e := int32(prec) - k
	if e < 1 {
		e = 1
	}
	return apd.New(1, -e)
}

// Cholesky attempts a plain factorization H = L L^T. It reports
// success and the minimal diagonal of L; a non-positive diagonal term
// aborts with ok=false, which is not an error but a signal to fall back
// to the pivoted variant.
func Cholesky(c *dec.Context, H *Matrix) (ok bool, minDiag *apd.Decimal, err error) {
	ctx := c.Rounded()
	n := H.N()
	L := NewMatrix(n)

	for j := 0; j < n; j++ {
		d := new(apd.Decimal).Set(H.At(j, j))
		for k := 0; k < j; k++ {
			sq := new(apd.Decimal)
			if _, err := ctx.Mul(sq, L.At(j, k), L.At(j, k)); err != nil {
				return false, nil, err
			}
			if _, err := ctx.Sub(d, d, sq); err != nil {
				return false, nil, err
			}
		}
		if d.Sign() <= 0 {
			return false, nil, nil
		}
		diag := new(apd.Decimal)
		if _, err := ctx.Sqrt(diag, d); err != nil {
			return false, nil, err
		}
		L.Set(j, j, diag)
		if minDiag == nil || diag.Cmp(minDiag) < 0 {
			minDiag = diag
		}

		for i := j + 1; i < n; i++ {
			s := new(apd.Decimal).Set(H.At(i, j))
			for k := 0; k < j; k++ {
				prod := new(apd.Decimal)
				if _, err := ctx.Mul(prod, L.At(i, k), L.At(j, k)); err != nil {
					return false, nil, err
				}
				if _, err := ctx.Sub(s, s, prod); err != nil {
					return false, nil, err
				}
			}
			if _, err := ctx.Quo(s, s, diag); err != nil {
				return false, nil, err
			}
			L.Set(i, j, s)
		}
	}
	return true, minDiag, nil
}

// PivotedCholesky runs diagonal-pivoted Cholesky on a copy of H.
// It fails only when a pivot candidate drops below -tol; candidates in
// [-tol, tol] terminate the factorization early as rank deficiency.
// The returned minPivot is the smallest accepted pivot on success, or
// the offending negative diagonal on failure.
func PivotedCholesky(c *dec.Context, H *Matrix, tol *apd.Decimal) (ok bool, minPivot *apd.Decimal, rank int, err error) {
	ctx := c.Rounded()
	n := H.N()
	H = H.Clone()

	diag := make([]*apd.Decimal, n)
	for i := 0; i < n; i++ {
		diag[i] = new(apd.Decimal).Set(H.At(i, i))
	}
	negTol := new(apd.Decimal).Neg(tol)
	L := NewMatrix(n)

	for k := 0; k < n; k++ {
		p := k
		for i := k + 1; i < n; i++ {
			if diag[i].Cmp(diag[p]) > 0 {
				p = i
			}
		}
		if diag[p].Cmp(negTol) < 0 {
			return false, new(apd.Decimal).Set(diag[p]), rank, nil
		}
		if diag[p].Cmp(tol) <= 0 {
			break
		}

		if p != k {
			diag[p], diag[k] = diag[k], diag[p]
			for t := 0; t < n; t++ {
				hk, hp := H.At(k, t), H.At(p, t)
				H.Set(k, t, hp)
				H.Set(p, t, hk)
			}
			for t := 0; t < n; t++ {
				hk, hp := H.At(t, k), H.At(t, p)
				H.Set(t, k, hp)
				H.Set(t, p, hk)
			}
			for t := 0; t < n; t++ {
				lk, lp := L.At(k, t), L.At(p, t)
				L.Set(k, t, lp)
				L.Set(p, t, lk)
			}
		}

		pivot := new(apd.Decimal)
		if _, err := ctx.Sqrt(pivot, diag[k]); err != nil {
			return false, nil, rank, err
		}
		L.Set(k, k, pivot)
		if minPivot == nil || pivot.Cmp(minPivot) < 0 {
			minPivot = pivot
		}
		rank++

		for i := k + 1; i < n; i++ {
			lik := new(apd.Decimal)
			if _, err := ctx.Quo(lik, H.At(i, k), pivot); err != nil {
				return false, nil, rank, err
			}
			L.Set(i, k, lik)

			sq := new(apd.Decimal)
			if _, err := ctx.Mul(sq, lik, lik); err != nil {
				return false, nil, rank, err
			}
			if _, err := ctx.Sub(diag[i], diag[i], sq); err != nil {
				return false, nil, rank, err
			}
			for j := k + 1; j <= i; j++ {
				prod := new(apd.Decimal)
				if _, err := ctx.Mul(prod, lik, L.At(j, k)); err != nil {
					return false, nil, rank, err
				}
				upd := new(apd.Decimal)
				if _, err := ctx.Sub(upd, H.At(i, j), prod); err != nil {
					return false, nil, rank, err
				}
				H.Set(i, j, upd)
				H.Set(j, i, new(apd.Decimal).Set(upd))
			}
		}
	}

	if minPivot == nil {
		minPivot = dec.Zero()
	}
	return true, minPivot, rank, nil
}
