package gram

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

func testTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

func matrixFromStrings(t *testing.T, c *dec.Context, rows [][]string) *Matrix {
	t.Helper()
	n := len(rows)
	m := NewMatrix(n)
	for i, row := range rows {
		require.Len(t, row, n)
		for j, s := range row {
			m.Set(i, j, c.MustParse(s))
		}
	}
	return m
}

func TestKahanTrapezoid_LinearIsExact(t *testing.T) {
	c := dec.New(40)
	id := func(x *apd.Decimal) (*apd.Decimal, error) { return x, nil }

	got, err := KahanTrapezoid(c, id, dec.Zero(), dec.One(), 101)
	require.NoError(t, err)

	// Trapezoid is exact on linear integrands up to rounding.
	diff := new(apd.Decimal)
	_, err = c.Rounded().Sub(diff, got, c.MustParse("0.5"))
	require.NoError(t, err)
	diff.Abs(diff)
	assert.True(t, diff.Cmp(c.MustParse("1e-30")) < 0, "got %s", got.String())
}

func TestKahanTrapezoid_QuadraticConverges(t *testing.T) {
	c := dec.New(40)
	sq := func(x *apd.Decimal) (*apd.Decimal, error) {
		out := new(apd.Decimal)
		if _, err := c.Rounded().Mul(out, x, x); err != nil {
			return nil, err
		}
		return out, nil
	}

	got, err := KahanTrapezoid(c, sq, dec.Zero(), dec.One(), 1001)
	require.NoError(t, err)

	diff := new(apd.Decimal)
	_, err = c.Rounded().Sub(diff, got, c.MustParse("0.333333333333"))
	require.NoError(t, err)
	diff.Abs(diff)
	assert.True(t, diff.Cmp(c.MustParse("1e-6")) < 0, "got %s", got.String())
}

func TestKahanTrapezoid_RejectsTinyGrid(t *testing.T) {
	c := dec.New(40)
	id := func(x *apd.Decimal) (*apd.Decimal, error) { return x, nil }
	_, err := KahanTrapezoid(c, id, dec.Zero(), dec.One(), 1)
	require.Error(t, err)
}

func TestGridAtoms_CoversParameterBox(t *testing.T) {
	c := dec.New(40)
	atoms, err := GridAtoms(c, 9, c.MustParse("1"), c.MustParse("2"),
		c.MustParse("0.5"), c.MustParse("1.5"))
	require.NoError(t, err)
	require.Len(t, atoms, 9)

	// 3x3 grid: corners present, row-major order.
	assert.Zero(t, atoms[0].Sigma.Cmp(c.MustParse("1")))
	assert.Zero(t, atoms[0].K0.Cmp(c.MustParse("0.5")))
	assert.Zero(t, atoms[8].Sigma.Cmp(c.MustParse("2")))
	assert.Zero(t, atoms[8].K0.Cmp(c.MustParse("1.5")))
}

func TestGridAtoms_TruncatesToRequestedCount(t *testing.T) {
	c := dec.New(40)
	atoms, err := GridAtoms(c, 5, c.MustParse("1"), c.MustParse("2"),
		c.MustParse("0.5"), c.MustParse("1.5"))
	require.NoError(t, err)
	assert.Len(t, atoms, 5)
}

func TestBuildGram_SymmetricPositiveDiagonal(t *testing.T) {
	c := dec.New(30)
	opts := Options{
		Atoms:    4,
		SigmaMin: c.MustParse("1"), SigmaMax: c.MustParse("2"),
		K0Min: c.MustParse("0.5"), K0Max: c.MustParse("1.5"),
		GridA: c.MustParse("8"), MGrid: 129,
		Workers: 4,
	}
	require.NoError(t, opts.normalize(c))
	atoms, err := GridAtoms(c, opts.Atoms, opts.SigmaMin, opts.SigmaMax, opts.K0Min, opts.K0Max)
	require.NoError(t, err)

	H, err := BuildGram(context.Background(), c, atoms, opts)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		assert.True(t, H.At(i, i).Sign() > 0, "diagonal (%d,%d)", i, i)
		for j := 0; j < 4; j++ {
			assert.Zero(t, H.At(i, j).Cmp(H.At(j, i)), "symmetry (%d,%d)", i, j)
		}
	}
}

func TestCholesky_IdentityFactorsCleanly(t *testing.T) {
	c := dec.New(30)
	H := matrixFromStrings(t, c, [][]string{
		{"4", "0"},
		{"0", "9"},
	})

	ok, minDiag, err := Cholesky(c, H)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Zero(t, minDiag.Cmp(c.MustParse("2")))
}

func TestCholesky_IndefiniteAborts(t *testing.T) {
	c := dec.New(30)
	// Eigenvalues 3 and -1: not PSD.
	H := matrixFromStrings(t, c, [][]string{
		{"1", "2"},
		{"2", "1"},
	})

	ok, _, err := Cholesky(c, H)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPivotedCholesky_IndefiniteFailsWithNegativePivot(t *testing.T) {
	c := dec.New(30)
	H := matrixFromStrings(t, c, [][]string{
		{"1", "2"},
		{"2", "1"},
	})

	ok, minPivot, rank, err := PivotedCholesky(c, H, AdaptiveTol(30, 6))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, rank)
	assert.True(t, minPivot.Sign() < 0, "offending diagonal reported: %s", minPivot.String())
}

func TestPivotedCholesky_RankDeficientPasses(t *testing.T) {
	c := dec.New(30)
	// Rank 1, PSD: duplicated direction is noise, not a violation.
	H := matrixFromStrings(t, c, [][]string{
		{"1", "1"},
		{"1", "1"},
	})

	ok, minPivot, rank, err := PivotedCholesky(c, H, AdaptiveTol(30, 6))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 1, rank)
	assert.Zero(t, minPivot.Cmp(dec.One()))
}

func TestCertify_DistinctAtomsFullRank(t *testing.T) {
	c := dec.New(30)
	opts := Options{
		Atoms:    4,
		SigmaMin: c.MustParse("1"), SigmaMax: c.MustParse("2"),
		K0Min: c.MustParse("0.5"), K0Max: c.MustParse("1.5"),
		GridA: c.MustParse("8"), MGrid: 257,
		Workers: 2,
	}

	out, err := Certify(context.Background(), c, opts)
	require.NoError(t, err)

	assert.True(t, out.Certified)
	assert.True(t, out.CholSuccess)
	assert.Equal(t, 4, out.Rank)
	require.NotNil(t, out.MinDiagL)
	assert.True(t, out.MinDiagL.Sign() > 0)
}

func TestCertify_DuplicatedAtomsRankDeficient(t *testing.T) {
	c := dec.New(30)
	// A degenerate parameter box collapses every atom onto one
	// function: the Gram matrix has rank 1 and plain Cholesky cannot
	// factor it, but the pivoted fallback still certifies PSD.
	opts := Options{
		Atoms:    3,
		SigmaMin: c.MustParse("1"), SigmaMax: c.MustParse("1"),
		K0Min: c.MustParse("1"), K0Max: c.MustParse("1"),
		GridA: c.MustParse("8"), MGrid: 129,
		Workers: 2,
	}

	out, err := Certify(context.Background(), c, opts)
	require.NoError(t, err)

	assert.True(t, out.Certified)
	assert.False(t, out.CholSuccess)
	assert.True(t, out.PivotOK)
	assert.Less(t, out.Rank, 3)
	assert.GreaterOrEqual(t, out.Rank, 1)
}

func TestBuildCertificate_OmitsAbsentDiagnostics(t *testing.T) {
	c := dec.New(30)
	opts := Options{
		Atoms:    3,
		SigmaMin: c.MustParse("1"), SigmaMax: c.MustParse("1"),
		K0Min: c.MustParse("1"), K0Max: c.MustParse("1"),
		GridA: c.MustParse("8"), MGrid: 129,
	}

	out, err := Certify(context.Background(), c, opts)
	require.NoError(t, err)

	art := BuildCertificate(c, opts, out, testTime())
	assert.Equal(t, cert.KindPSDCert, art.Kind())

	result, ok := art["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["psd_certified"])
	_, hasDiag := result["min_diag_L"]
	assert.False(t, hasDiag, "failed plain factorization leaves no min_diag_L")
	_, hasPivot := result["min_pivot"]
	assert.True(t, hasPivot)

	require.NoError(t, cert.Seal(art))
	require.NoError(t, cert.VerifySeal(art))
}

func TestWriteCSV_Header(t *testing.T) {
	c := dec.New(30)
	H := matrixFromStrings(t, c, [][]string{
		{"1", "0.5"},
		{"0.5", "1"},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, c, H))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "i,j,h_ij", lines[0])
	assert.Equal(t, "0,1,0.5", lines[2])
}
