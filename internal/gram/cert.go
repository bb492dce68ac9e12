package gram

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// Outcome is the result of one PSD certification run.
type Outcome struct {
	CholSuccess bool
	MinDiagL    *apd.Decimal // nil unless CholSuccess
	PivotOK     bool
	MinPivot    *apd.Decimal // nil unless the pivoted path ran
	Rank        int
	Certified   bool

	Gram *Matrix
}

// Certify builds the Gram matrix and certifies positive
// semidefiniteness: plain Cholesky first, pivoted Cholesky when the
// plain factorization hits a non-positive diagonal.
func Certify(ctx context.Context, c *dec.Context, opts Options) (*Outcome, error) {
	if err := opts.normalize(c); err != nil {
		return nil, err
	}
	atoms, err := GridAtoms(c, opts.Atoms, opts.SigmaMin, opts.SigmaMax, opts.K0Min, opts.K0Max)
	if err != nil {
		return nil, err
	}
	H, err := BuildGram(ctx, c, atoms, opts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Gram: H}
	out.CholSuccess, out.MinDiagL, err = Cholesky(c, H)
	if err != nil {
		return nil, err
	}
	if out.CholSuccess {
		out.Rank = H.N()
		out.Certified = true
		return out, nil
	}

	tol := AdaptiveTol(c.Precision(), 6)
	out.PivotOK, out.MinPivot, out.Rank, err = PivotedCholesky(c, H, tol)
	if err != nil {
		return nil, err
	}
	if !out.PivotOK {
		out.Rank = 0
	}
	out.Certified = out.PivotOK
	return out, nil
}

// BuildCertificate assembles the subspace_psd_cholesky artifact.
// Diagnostics that did not materialize (min_diag_L on a failed plain
// factorization, min_pivot when the pivoted path never ran) are omitted
// rather than stored as nulls.
func BuildCertificate(c *dec.Context, opts Options, out *Outcome, now time.Time) cert.Artifact {
	eta := opts.Eta
	if eta == nil {
		eta = dec.Zero()
	}
	result := map[string]any{
		"chol_success":  out.CholSuccess,
		"pivot_success": out.PivotOK,
		"rank":          out.Rank,
		"psd_certified": out.Certified,
	}
	if out.CholSuccess && out.MinDiagL != nil {
		result["min_diag_L"] = c.Format(out.MinDiagL)
	}
	if out.PivotOK && out.MinPivot != nil {
		result["min_pivot"] = c.Format(out.MinPivot)
	}

	return cert.Artifact{
		"kind": cert.KindPSDCert,
		"inputs": map[string]any{
			"basis_path": opts.Basis,
			"atoms":      opts.Atoms,
			"sigma_min":  c.Format(opts.SigmaMin),
			"sigma_max":  c.Format(opts.SigmaMax),
			"k0_min":     c.Format(opts.K0Min),
			"k0_max":     c.Format(opts.K0Max),
			"gridA":      c.Format(opts.GridA),
			"mgrid":      opts.MGrid,
			"eta":        c.Format(eta),
			"threads":    opts.Workers,
		},
		"result": result,
		"meta":   cert.NewMeta("subspace_psd_cholesky", c.Precision(), now),
	}
}

// WriteCSV emits the full Gram matrix as i,j,h_ij rows.
func WriteCSV(w io.Writer, c *dec.Context, H *Matrix) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"i", "j", "h_ij"}); err != nil {
		return err
	}
	n := H.N()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			row := []string{
				strconv.Itoa(i),
				strconv.Itoa(j),
				c.Format(H.At(i, j)),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}
