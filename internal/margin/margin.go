package margin

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/dec"
)

// Default mesh parameters, matching the historical tool defaults.
const (
	DefaultMeshInitial = 128
	DefaultMeshMax     = 131072
)

// TailTerm is one decaying term C/T^a of the margin. T0 optionally
// declares the left edge of the domain on which the bound was derived;
// verification never samples below it.
type TailTerm struct {
	C  *apd.Decimal
	A  *apd.Decimal
	T0 *apd.Decimal
}

// Params collects everything Verify needs. EpsEffLo is a proven lower
// bound; GridHi and each tail C are proven upper bounds, so the
// assembled delta_lo is itself a proven lower bound on the true margin.
type Params struct {
	EpsEffLo *apd.Decimal
	GridHi   *apd.Decimal

	PrimeTail TailTerm
	GammaTail TailTerm

	T0     *apd.Decimal
	T1     *apd.Decimal
	Target *apd.Decimal

	MeshInitial int
	MeshMax     int
}

// Witness localizes a verification outcome. For a FAIL it is the
// unresolved sub-interval; for a degenerate PASS with no refinement it
// is a small symmetric window around the observed argmin, flagged by
// Mode so consumers can tell the two apart.
type Witness struct {
	TLeft  *apd.Decimal
	TRight *apd.Decimal

	// Set only for the degenerate PASS witness.
	TStar        *apd.Decimal
	DeltaAtTStar *apd.Decimal
	Mode         string

	Depth int
}

// Result is the outcome of one verification run. Pass=false with a
// witness is a legitimate negative verdict, not an error: the budget ran
// out before the witness interval could be certified.
type Result struct {
	Pass      bool
	DeltaMin  *apd.Decimal
	ArgminT   *apd.Decimal
	Witness   *Witness
	Intervals int
	MaxDepth  int

	// ClampedT0 is the effective left endpoint after respecting any
	// declared tail domain. Equal to the requested T0 when no clamp
	// applied.
	ClampedT0 *apd.Decimal
}

// tailHi returns a proven upper bound on C/T^a at the given T > 0.
// The power is evaluated under both rounding directions and widened one
// ulp outward, then the endpoint that maximizes the quotient for the
// sign of C is divided under ceiling rounding.
func tailHi(c *dec.Context, t *apd.Decimal, tt TailTerm) (*apd.Decimal, error) {
	if tt.C == nil || tt.C.IsZero() {
		return dec.Zero(), nil
	}
	powLo := new(apd.Decimal)
	if _, err := c.Down().Pow(powLo, t, tt.A); err != nil {
		return nil, fmt.Errorf("tail power at T=%s: %w", t.String(), err)
	}
	powLo = c.NextBelow(powLo)
	powHi := new(apd.Decimal)
	if _, err := c.Up().Pow(powHi, t, tt.A); err != nil {
		return nil, fmt.Errorf("tail power at T=%s: %w", t.String(), err)
	}
	powHi = c.NextAbove(powHi)

	den := powLo
	if tt.C.Sign() < 0 {
		den = powHi
	}
	if den.Sign() <= 0 {
		return nil, fmt.Errorf("tail power underflow at T=%s", t.String())
	}
	out := new(apd.Decimal)
	if _, err := c.Up().Quo(out, tt.C, den); err != nil {
		return nil, err
	}
	return out, nil
}

// DeltaLo evaluates the proven margin lower bound at T. Tail terms are
// rounded up before subtraction and every subtraction rounds down, so
// the result never overstates the margin.
func DeltaLo(c *dec.Context, t *apd.Decimal, p Params) (*apd.Decimal, error) {
	pt, err := tailHi(c, t, p.PrimeTail)
	if err != nil {
		return nil, err
	}
	gt, err := tailHi(c, t, p.GammaTail)
	if err != nil {
		return nil, err
	}
	d := new(apd.Decimal)
	if _, err := c.Down().Sub(d, p.EpsEffLo, pt); err != nil {
		return nil, err
	}
	if _, err := c.Down().Sub(d, d, gt); err != nil {
		return nil, err
	}
	if _, err := c.Down().Sub(d, d, p.GridHi); err != nil {
		return nil, err
	}
	return d, nil
}

type piece struct {
	a, b  *apd.Decimal
	depth int
}

// clampT0 raises T0 to the largest declared tail domain edge, if any.
func clampT0(t0 *apd.Decimal, tails ...TailTerm) *apd.Decimal {
	out := t0
	for _, tt := range tails {
		if tt.T0 != nil && out.Cmp(tt.T0) < 0 {
			out = tt.T0
		}
	}
	return out
}

// Verify runs the adaptive left-endpoint certification over [T0, T1].
//
// The mesh is processed as a stack, leftmost piece first. A piece whose
// left-endpoint margin clears the target is discarded as certified;
// otherwise it is bisected and both halves pushed, left half on top.
// Exhausting MeshMax returns FAIL with the offending piece as witness.
// PASS requires the stack to empty within budget.
func Verify(c *dec.Context, p Params) (*Result, error) {
	if p.MeshInitial <= 0 {
		p.MeshInitial = DefaultMeshInitial
	}
	if p.MeshMax <= 0 {
		p.MeshMax = DefaultMeshMax
	}
	t0 := clampT0(p.T0, p.PrimeTail, p.GammaTail)
	if t0.Cmp(p.T1) >= 0 {
		return nil, fmt.Errorf("margin: T0 %s must be below T1 %s", t0.String(), p.T1.String())
	}

	// Uniform seed mesh. The endpoints are stored decimals, so each
	// piece's left endpoint is sampled exactly where it sits.
	n := p.MeshInitial
	xs := make([]*apd.Decimal, n+1)
	xs[0] = t0
	xs[n] = p.T1
	span := new(apd.Decimal)
	if _, err := c.Rounded().Sub(span, p.T1, t0); err != nil {
		return nil, err
	}
	for i := 1; i < n; i++ {
		frac := new(apd.Decimal)
		if _, err := c.Rounded().Quo(frac, apd.New(int64(i), 0), apd.New(int64(n), 0)); err != nil {
			return nil, err
		}
		step := new(apd.Decimal)
		if _, err := c.Rounded().Mul(step, span, frac); err != nil {
			return nil, err
		}
		x := new(apd.Decimal)
		if _, err := c.Rounded().Add(x, t0, step); err != nil {
			return nil, err
		}
		xs[i] = x
	}

	// Reverse push so the stack pops left to right.
	work := make([]piece, 0, n)
	for i := n - 1; i >= 0; i-- {
		work = append(work, piece{a: xs[i], b: xs[i+1]})
	}

	res := &Result{ClampedT0: t0}
	two := apd.New(2, 0)
	for len(work) > 0 && res.Intervals < p.MeshMax {
		pc := work[len(work)-1]
		work = work[:len(work)-1]

		d, err := DeltaLo(c, pc.a, p)
		if err != nil {
			return nil, err
		}
		if res.DeltaMin == nil || d.Cmp(res.DeltaMin) < 0 {
			res.DeltaMin = d
			res.ArgminT = pc.a
		}
		res.Intervals++
		if pc.depth > res.MaxDepth {
			res.MaxDepth = pc.depth
		}

		if d.Cmp(p.Target) >= 0 {
			continue
		}
		if res.Intervals >= p.MeshMax {
			res.Witness = &Witness{TLeft: pc.a, TRight: pc.b, Depth: pc.depth}
			return res, nil
		}
		mid := new(apd.Decimal)
		if _, err := c.Rounded().Add(mid, pc.a, pc.b); err != nil {
			return nil, err
		}
		if _, err := c.Rounded().Quo(mid, mid, two); err != nil {
			return nil, err
		}
		work = append(work,
			piece{a: mid, b: pc.b, depth: pc.depth + 1},
			piece{a: pc.a, b: mid, depth: pc.depth + 1},
		)
	}

	if len(work) > 0 {
		// Budget gone with pieces still pending: conservative FAIL,
		// witnessed by the next piece that would have been processed.
		next := work[len(work)-1]
		res.Witness = &Witness{TLeft: next.a, TRight: next.b, Depth: next.depth}
		return res, nil
	}

	res.Pass = true
	w, err := degenerateWitness(c, p, res.ArgminT)
	if err != nil {
		return nil, err
	}
	res.Witness = w
	return res, nil
}

// degenerateWitness synthesizes a diagnostic window around the argmin
// for PASS runs, which otherwise carry no witness at all.
func degenerateWitness(c *dec.Context, p Params, argmin *apd.Decimal) (*Witness, error) {
	absT := new(apd.Decimal).Abs(argmin)
	pad := new(apd.Decimal)
	if _, err := c.Rounded().Mul(pad, absT, c.MustParse("1e-12")); err != nil {
		return nil, err
	}
	pad = dec.Max(pad, dec.One())

	left := new(apd.Decimal)
	if _, err := c.Rounded().Sub(left, argmin, pad); err != nil {
		return nil, err
	}
	right := new(apd.Decimal)
	if _, err := c.Rounded().Add(right, argmin, pad); err != nil {
		return nil, err
	}
	dAt, err := DeltaLo(c, argmin, p)
	if err != nil {
		return nil, err
	}
	return &Witness{
		TLeft:        left,
		TRight:       right,
		TStar:        argmin,
		DeltaAtTStar: dAt,
		Mode:         "argmin-degenerate",
	}, nil
}
