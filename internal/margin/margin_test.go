package margin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// reciprocalParams builds a synthetic margin delta_lo(T) = 1/T by
// routing the constant through a negative prime-tail coefficient.
func reciprocalParams(c *dec.Context, t0, t1, target string) Params {
	return Params{
		EpsEffLo:    dec.Zero(),
		GridHi:      dec.Zero(),
		PrimeTail:   TailTerm{C: c.MustParse("-1"), A: dec.One()},
		GammaTail:   TailTerm{C: dec.Zero(), A: dec.One()},
		T0:          c.MustParse(t0),
		T1:          c.MustParse(t1),
		Target:      c.MustParse(target),
		MeshInitial: 1,
		MeshMax:     100,
	}
}

func TestVerify_Reciprocal_PassWithoutRefinement(t *testing.T) {
	c := dec.New(50)
	p := reciprocalParams(c, "1", "10", "0.5")

	res, err := Verify(c, p)
	require.NoError(t, err)

	assert.True(t, res.Pass)
	assert.Equal(t, 1, res.Intervals, "single mesh piece, no refinement")
	assert.Equal(t, 0, res.MaxDepth)

	// delta_lo(1) is 1 up to one ulp of directed rounding.
	require.NotNil(t, res.DeltaMin)
	assert.True(t, res.DeltaMin.Cmp(c.MustParse("0.999")) > 0)
	assert.True(t, res.DeltaMin.Cmp(dec.One()) <= 0)
}

func TestVerify_Reciprocal_DegeneratePassWitness(t *testing.T) {
	c := dec.New(50)
	p := reciprocalParams(c, "1", "10", "0.5")

	res, err := Verify(c, p)
	require.NoError(t, err)
	require.True(t, res.Pass)

	w := res.Witness
	require.NotNil(t, w, "PASS runs still carry a diagnostic witness")
	assert.Equal(t, "argmin-degenerate", w.Mode)
	assert.Zero(t, w.TStar.Cmp(dec.One()), "argmin is the left domain edge")
	// Unit pad dominates |argmin| * 1e-12 here.
	assert.Zero(t, w.TLeft.Cmp(dec.Zero()))
	assert.Zero(t, w.TRight.Cmp(c.MustParse("2")))
	require.NotNil(t, w.DeltaAtTStar)
}

func TestVerify_Reciprocal_FailWitnessBracketsCrossing(t *testing.T) {
	c := dec.New(50)
	// Target 0.67 crosses delta_lo(T) = 1/T just below 1.5. With a
	// half-unit mesh the first failing left endpoint is the mesh point
	// near 1.5; refinement can never certify it, so the budget drains
	// there and the witness pins the crossing to mesh resolution.
	p := reciprocalParams(c, "1", "10", "0.67")
	p.MeshInitial = 18
	p.MeshMax = 64

	res, err := Verify(c, p)
	require.NoError(t, err)

	assert.False(t, res.Pass)
	assert.Equal(t, 64, res.Intervals, "budget fully consumed")
	assert.Greater(t, res.MaxDepth, 0)

	w := res.Witness
	require.NotNil(t, w)
	assert.Empty(t, w.Mode, "FAIL witness is a real unresolved piece")
	assert.True(t, w.TLeft.Cmp(c.MustParse("1.49")) > 0)
	assert.True(t, w.TLeft.Cmp(c.MustParse("1.51")) < 0)
	assert.True(t, w.TRight.Cmp(w.TLeft) > 0)
	assert.True(t, w.TRight.Cmp(c.MustParse("2.01")) < 0)

	require.NotNil(t, res.DeltaMin)
	assert.True(t, res.DeltaMin.Cmp(p.Target) < 0)
}

func TestVerify_ClampsToDeclaredTailDomain(t *testing.T) {
	c := dec.New(50)
	p := reciprocalParams(c, "1", "10", "0.1")
	p.PrimeTail.T0 = c.MustParse("3")
	p.MeshInitial = 7

	res, err := Verify(c, p)
	require.NoError(t, err)

	assert.True(t, res.Pass)
	assert.Zero(t, res.ClampedT0.Cmp(c.MustParse("3")))
	assert.True(t, res.ArgminT.Cmp(c.MustParse("3")) >= 0,
		"no sample below the declared tail domain")
}

func TestVerify_EmptyDomainAfterClampErrors(t *testing.T) {
	c := dec.New(50)
	p := reciprocalParams(c, "5", "2", "0.1")

	_, err := Verify(c, p)
	require.Error(t, err)
}

func TestParseBounds_NestedLayoutWithIntervalForms(t *testing.T) {
	c := dec.New(50)
	a := cert.Artifact{
		"bounds": map[string]any{
			"eps_eff_lo":    "0.5",
			"grid_error_hi": map[string]any{"lo": "0.009", "hi": "0.01"},
			"prime_tail": map[string]any{
				"C":  map[string]any{"lo": "0.29", "hi": "0.31"},
				"a":  "[1.9, 2.1]",
				"T0": "2",
			},
			"gamma_tail": map[string]any{"C": "0.02", "a": "1"},
		},
	}

	p, err := ParseBounds(c, a)
	require.NoError(t, err)

	assert.Zero(t, p.EpsEffLo.Cmp(c.MustParse("0.5")))
	assert.Zero(t, p.GridHi.Cmp(c.MustParse("0.01")), "error bound takes hi")
	assert.Zero(t, p.PrimeTail.C.Cmp(c.MustParse("0.31")), "coefficient takes hi")
	assert.Zero(t, p.PrimeTail.A.Cmp(c.MustParse("1.9")), "exponent takes lo")
	require.NotNil(t, p.PrimeTail.T0)
	assert.Zero(t, p.PrimeTail.T0.Cmp(c.MustParse("2")))
	assert.Nil(t, p.GammaTail.T0, "absent tail domain stays nil")
}

func TestParseBounds_FlatLayout(t *testing.T) {
	c := dec.New(50)
	a := cert.Artifact{
		"eps_eff_lo":    "0.48",
		"grid_error_hi": "0.01",
		"prime_tail":    map[string]any{"C": "0.3", "a": "2"},
		"gamma_tail":    map[string]any{"C": "0.02", "a": "1.5"},
	}

	p, err := ParseBounds(c, a)
	require.NoError(t, err)
	assert.Zero(t, p.EpsEffLo.Cmp(c.MustParse("0.48")))
	assert.Zero(t, p.GammaTail.A.Cmp(c.MustParse("1.5")))
}

func TestParseBounds_MissingRequiredFailsLoudly(t *testing.T) {
	c := dec.New(50)
	a := cert.Artifact{
		"eps_eff_lo":    "0.48",
		"grid_error_hi": "0.01",
		"prime_tail":    map[string]any{"C": "0.3", "a": "2"},
		// gamma_tail absent entirely
	}

	_, err := ParseBounds(c, a)
	require.Error(t, err)
	assert.True(t, cert.IsMissingField(err))
	assert.Contains(t, err.Error(), "gamma_tail_C")
}

func TestBuildCertificate_SealsAndRoundTrips(t *testing.T) {
	c := dec.New(50)
	p := reciprocalParams(c, "1", "10", "0.5")

	res, err := Verify(c, p)
	require.NoError(t, err)

	art := BuildCertificate(c, p, res, testTime())
	assert.Equal(t, cert.KindRollingT, art.Kind())
	assert.True(t, art.Pass())

	result, ok := art["result"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, result["PASS"])
	witness, ok := result["witness"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "argmin-degenerate", witness["mode"])

	require.NoError(t, cert.Seal(art))
	require.NoError(t, cert.VerifySeal(art))
}
