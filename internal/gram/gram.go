package gram

import (
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/attest/internal/dec"
)

// BasisGaussian is the only basis family currently implemented.
const BasisGaussian = "gaussian"

// Defaults matching the historical tool.
const (
	DefaultGridA = "50"
	DefaultMGrid = 2049
)

// Options configure a PSD certification run.
type Options struct {
	Basis string
	Atoms int

	SigmaMin *apd.Decimal
	SigmaMax *apd.Decimal
	K0Min    *apd.Decimal
	K0Max    *apd.Decimal

	GridA *apd.Decimal // half-width of the integration interval
	MGrid int          // trapezoid nodes
	Eta   *apd.Decimal // diagonal jitter, nil or zero for none

	Workers int
}

func (o *Options) normalize(c *dec.Context) error {
	if o.Basis == "" {
		o.Basis = BasisGaussian
	}
	if o.Basis != BasisGaussian {
		return fmt.Errorf("gram: unknown basis %q", o.Basis)
	}
	if o.Atoms < 1 {
		return fmt.Errorf("gram: atoms must be >= 1, got %d", o.Atoms)
	}
	if o.GridA == nil {
		o.GridA = c.MustParse(DefaultGridA)
	}
	if o.MGrid == 0 {
		o.MGrid = DefaultMGrid
	}
	if o.Workers < 1 {
		o.Workers = 1
	}
	return nil
}

// BuildGram computes the Gram matrix of the atom family over [-A, A].
// Entries are pairwise independent, so the upper triangle is fanned out
// to a bounded worker pool; each worker writes its own pair of cells.
func BuildGram(ctx context.Context, c *dec.Context, atoms []Atom, opts Options) (*Matrix, error) {
	n := len(atoms)
	H := NewMatrix(n)

	negA := new(apd.Decimal).Neg(opts.GridA)

	type pair struct{ i, j int }
	pairs := make([]pair, 0, n*(n+1)/2)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			pairs = append(pairs, pair{i, j})
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, p := range pairs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			ai, aj := atoms[p.i], atoms[p.j]
			entry, err := KahanTrapezoid(c, func(x *apd.Decimal) (*apd.Decimal, error) {
				fi, err := ai.Eval(c, x)
				if err != nil {
					return nil, err
				}
				fj, err := aj.Eval(c, x)
				if err != nil {
					return nil, err
				}
				out := new(apd.Decimal)
				if _, err := c.Rounded().Mul(out, fi, fj); err != nil {
					return nil, err
				}
				return out, nil
			}, negA, opts.GridA, opts.MGrid)
			if err != nil {
				return fmt.Errorf("gram entry (%d,%d): %w", p.i, p.j, err)
			}
			H.Set(p.i, p.j, entry)
			if p.i != p.j {
				H.Set(p.j, p.i, new(apd.Decimal).Set(entry))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if opts.Eta != nil && !opts.Eta.IsZero() {
		for i := 0; i < n; i++ {
			d := new(apd.Decimal)
			if _, err := c.Rounded().Add(d, H.At(i, i), opts.Eta); err != nil {
				return nil, err
			}
			H.Set(i, i, d)
		}
	}
	return H, nil
}
