package gram

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Matrix is a dense square matrix of decimals.
type Matrix struct {
	n    int
	data []*apd.Decimal
}

// NewMatrix returns an n x n zero matrix.
func NewMatrix(n int) *Matrix {
	m := &Matrix{n: n, data: make([]*apd.Decimal, n*n)}
	for i := range m.data {
		m.data[i] = dec.Zero()
	}
	return m
}

// N returns the dimension.
func (m *Matrix) N() int { return m.n }

// At returns the entry at (i, j).
func (m *Matrix) At(i, j int) *apd.Decimal { return m.data[i*m.n+j] }

// Set stores v at (i, j).
func (m *Matrix) Set(i, j int, v *apd.Decimal) { m.data[i*m.n+j] = v }

// Clone returns a deep copy.
func (m *Matrix) Clone() *Matrix {
	out := &Matrix{n: m.n, data: make([]*apd.Decimal, len(m.data))}
	for i, d := range m.data {
		out.data[i] = new(apd.Decimal).Set(d)
	}
	return out
}
