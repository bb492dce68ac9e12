package rigor

import (
	"container/heap"
	"context"
	"fmt"

	"github.com/cockroachdb/apd/v3"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/attest/internal/dec"
)

// Band is a labeled sub-interval of the domain. Invariant: Left < Right.
type Band struct {
	Left  *apd.Decimal
	Right *apd.Decimal
	Label string
}

// NewBand validates the endpoint ordering and returns a Band.
func NewBand(left, right *apd.Decimal, label string) (Band, error) {
	if left.Cmp(right) >= 0 {
		return Band{}, fmt.Errorf("band %q has non-increasing interval [%s, %s]", label, left, right)
	}
	return Band{Left: left, Right: right, Label: label}, nil
}

// BoundsFunc is the oracle contract consumed by the search: rigorous
// (lo, hi) bounds enclosing inf/sup of |f| on [a, b].
type BoundsFunc func(c *dec.Context, a, b *apd.Decimal) (lo, hi *apd.Decimal, err error)

// SearchOptions controls the subdivision search.
type SearchOptions struct {
	// Tol is the target width of the global enclosure (hi - lo).
	Tol *apd.Decimal
	// MaxParts caps the number of sub-intervals created per band.
	MaxParts int
	// Workers bounds band-level parallelism in CertifyBands.
	// Zero or negative means sequential.
	Workers int
}

// BandBounds is the outcome of the search on one band: a proven
// enclosure of min |f| over the band. Invariant: 0 <= MinAbsLo <= MinAbsHi.
type BandBounds struct {
	Band     Band
	MinAbsLo *apd.Decimal
	MinAbsHi *apd.Decimal
	Parts    int
	Resolved bool // enclosure width reached Tol within the part budget
}

// piece is an ephemeral work item: a sub-interval with its current
// enclosure. Created and consumed by the search, never persisted.
type piece struct {
	left, right *apd.Decimal
	lo, hi      *apd.Decimal
}

// pieceHeap is a min-heap keyed by each piece's lower enclosure, so the
// most promising sub-interval (smallest proven lower bound) pops first.
type pieceHeap []*piece

func (h pieceHeap) Len() int            { return len(h) }
func (h pieceHeap) Less(i, j int) bool  { return h[i].lo.Cmp(h[j].lo) < 0 }
func (h pieceHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *pieceHeap) Push(x any)         { *h = append(*h, x.(*piece)) }
func (h *pieceHeap) Pop() any {
	old := *h
	n := len(old)
	p := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return p
}

// MinBounds certifies an enclosure of min |f| over the band by adaptive
// bisection.
//
// The queue is keyed by each piece's lower enclosure. Popping a piece
// updates the running global lower bound (minimum lo seen) and upper
// bound (minimum hi seen, monotonically tightening). A piece whose own
// enclosure is wider than Tol is bisected at the midpoint and both
// halves re-queued; otherwise it is left as resolved. The search stops
// when the global enclosure width reaches Tol or the part budget is
// exhausted. Budget exhaustion still returns valid bounds, only wider
// ones: a false negative is possible, a false positive is not.
func MinBounds(c *dec.Context, fn BoundsFunc, band Band, opts SearchOptions) (BandBounds, error) {
	if opts.MaxParts < 1 {
		return BandBounds{}, fmt.Errorf("min bounds: MaxParts must be >= 1")
	}
	if opts.Tol == nil || opts.Tol.Sign() <= 0 {
		return BandBounds{}, fmt.Errorf("min bounds: Tol must be > 0")
	}

	pq := &pieceHeap{}
	push := func(a, b *apd.Decimal) error {
		lo, hi, err := fn(c, a, b)
		if err != nil {
			return err
		}
		heap.Push(pq, &piece{left: a, right: b, lo: lo, hi: hi})
		return nil
	}
	if err := push(band.Left, band.Right); err != nil {
		return BandBounds{}, err
	}

	var bestLo, bestHi *apd.Decimal
	parts := 1
	resolved := false
	two := apd.New(2, 0)

	for pq.Len() > 0 && parts <= opts.MaxParts {
		p := heap.Pop(pq).(*piece)
		if bestLo == nil || p.lo.Cmp(bestLo) < 0 {
			bestLo = p.lo
		}
		if bestHi == nil || p.hi.Cmp(bestHi) < 0 {
			bestHi = p.hi
		}

		width := new(apd.Decimal)
		if _, err := c.Up().Sub(width, p.hi, p.lo); err != nil {
			return BandBounds{}, fmt.Errorf("min bounds: %w", err)
		}
		if width.Cmp(opts.Tol) > 0 {
			mid := new(apd.Decimal)
			if _, err := c.Rounded().Add(mid, p.left, p.right); err != nil {
				return BandBounds{}, fmt.Errorf("min bounds: %w", err)
			}
			if _, err := c.Rounded().Quo(mid, mid, two); err != nil {
				return BandBounds{}, fmt.Errorf("min bounds: %w", err)
			}
			if err := push(p.left, mid); err != nil {
				return BandBounds{}, err
			}
			if err := push(mid, p.right); err != nil {
				return BandBounds{}, err
			}
			parts++
		}

		gap := new(apd.Decimal)
		if _, err := c.Up().Sub(gap, bestHi, bestLo); err != nil {
			return BandBounds{}, fmt.Errorf("min bounds: %w", err)
		}
		if gap.Cmp(opts.Tol) <= 0 {
			resolved = true
			break
		}
	}

	return BandBounds{
		Band:     band,
		MinAbsLo: bestLo,
		MinAbsHi: bestHi,
		Parts:    parts,
		Resolved: resolved,
	}, nil
}

// MarginResult aggregates per-band searches over a whole domain.
// The authoritative margin is the minimum of all per-band lower bounds.
type MarginResult struct {
	PerBand  []BandBounds
	MarginLo *apd.Decimal
	MarginHi *apd.Decimal
	Pass     bool // MarginLo strictly positive
}

// CertifyBands runs MinBounds on every band and folds the results into
// a global margin. Bands are mutually independent, so they run on a
// bounded worker pool; each result lands in its own slot of the output
// slice, write-once, with no shared mutable state beyond that slice.
func CertifyBands(ctx context.Context, c *dec.Context, fn BoundsFunc, bands []Band, opts SearchOptions) (*MarginResult, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("certify bands: no bands")
	}

	results := make([]BandBounds, len(bands))
	g, ctx := errgroup.WithContext(ctx)
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, band := range bands {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			bb, err := MinBounds(c, fn, band, opts)
			if err != nil {
				return fmt.Errorf("band %q: %w", band.Label, err)
			}
			results[i] = bb
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &MarginResult{PerBand: results}
	for _, bb := range results {
		if res.MarginLo == nil || bb.MinAbsLo.Cmp(res.MarginLo) < 0 {
			res.MarginLo = bb.MinAbsLo
		}
		if res.MarginHi == nil || bb.MinAbsHi.Cmp(res.MarginHi) < 0 {
			res.MarginHi = bb.MinAbsHi
		}
	}
	res.Pass = res.MarginLo.Sign() > 0
	return res, nil
}
