package dec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBound_Add_SameDirection(t *testing.T) {
	c := New(30)

	sum, err := NewUpper(c.MustParse("0.30")).Add(c, NewUpper(c.MustParse("0.05")))
	require.NoError(t, err)
	assert.Equal(t, UpperBound, sum.Dir)
	assert.Equal(t, "0.35", sum.Value.String())
}

func TestBound_Add_MixedDirectionsRejected(t *testing.T) {
	c := New(30)

	_, err := NewLower(One()).Add(c, NewUpper(One()))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDirectionMismatch)
}

func TestBound_SubUpper(t *testing.T) {
	c := New(30)

	eps, err := NewLower(c.MustParse("0.50")).SubUpper(c, NewUpper(c.MustParse("0.02")))
	require.NoError(t, err)
	assert.Equal(t, LowerBound, eps.Dir)
	assert.Equal(t, "0.48", eps.Value.String())
}

func TestBound_SubUpper_WrongPairingRejected(t *testing.T) {
	c := New(30)

	_, err := NewUpper(One()).SubUpper(c, NewUpper(One()))
	assert.ErrorIs(t, err, ErrDirectionMismatch)

	_, err = NewLower(One()).SubUpper(c, NewLower(One()))
	assert.ErrorIs(t, err, ErrDirectionMismatch)
}

func TestBound_OutwardRounding(t *testing.T) {
	// At 3 digits, 0.111 + 0.0005 = 0.1115 does not fit. An upper bound
	// must round up to 0.112; a lower bound must round down to 0.111.
	c := New(3)

	up, err := NewUpper(c.MustParse("0.111")).Add(c, NewUpper(c.MustParse("0.0005")))
	require.NoError(t, err)
	assert.Equal(t, "0.112", up.Value.String())

	lo, err := NewLower(c.MustParse("0.111")).Add(c, NewLower(c.MustParse("0.0005")))
	require.NoError(t, err)
	assert.Equal(t, "0.111", lo.Value.String())
}

func TestBound_Neg_FlipsDirection(t *testing.T) {
	n := NewLower(One()).Neg()
	assert.Equal(t, UpperBound, n.Dir)
	assert.Equal(t, "-1", n.Value.String())
}

func TestBound_AtMost(t *testing.T) {
	c := New(30)

	lhs := NewUpper(c.MustParse("0.36"))
	rhs := NewLower(c.MustParse("0.48"))

	ok, err := lhs.AtMost(rhs)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = NewUpper(c.MustParse("0.55")).AtMost(rhs)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = rhs.AtMost(lhs)
	assert.ErrorIs(t, err, ErrDirectionMismatch)
}
