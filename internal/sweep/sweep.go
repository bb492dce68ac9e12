package sweep

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
	"github.com/roach88/attest/internal/rigor"
	"github.com/roach88/attest/internal/rollup"
	"github.com/roach88/attest/internal/store"
	"github.com/roach88/attest/internal/tails"
	"github.com/roach88/attest/internal/window"
)

// CSVName is the results file written under the output directory.
const CSVName = "param_search_results.csv"

var csvHeader = []string{
	"sigma", "k0", "lhs_total", "epsilon_eff", "gap", "pass",
	"band_margin", "prime_cap", "prime_tail", "gamma_tail",
}

// Failure is one ledger entry: a point that produced no certificate.
type Failure struct {
	Idx   int
	Sigma string
	K0    string
	Stage string
	Err   string
}

// Outcome is a fully evaluated point: its trial numbers plus the
// artifacts the pipeline produced, in write order.
type Outcome struct {
	Point
	Dir       string
	Trial     store.Trial
	Artifacts []cert.Artifact
}

// Summary is what a completed sweep hands back.
type Summary struct {
	RunID    string
	Points   int
	Trials   []store.Trial
	Failures []Failure
	// Best is the evaluated trial with the largest gap, pass or fail,
	// ties going to the lower index. Nil when every point failed.
	Best    *store.Trial
	CSVPath string
}

// Runner executes a sweep. Store is optional; Now exists so the harness
// can pin timestamps.
type Runner struct {
	Config Config
	Log    *slog.Logger
	Store  *store.Store
	Now    func() time.Time
}

// shared holds per-run decimals parsed once, read-only afterwards.
type shared struct {
	t0     *apd.Decimal
	tol    *apd.Decimal
	aprime *apd.Decimal // nil selects the default
	bands  []rigor.Band
	specs  []window.GridSpec
}

// Run sweeps the grid. A per-point failure is recorded and skipped;
// only setup errors (config, output dir, database) or cancellation of
// ctx abort the whole run.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	log := r.Log
	if log == nil {
		log = slog.Default()
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}

	c := dec.New(r.Config.DPS)
	sh, err := r.prepare(c)
	if err != nil {
		return nil, err
	}
	points, err := r.Config.Points(c)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(r.Config.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("sweep: run id: %w", err)
	}
	runID := id.String()
	log.Info("sweep start", "run_id", runID, "points", len(points), "workers", r.Config.Workers)

	if r.Store != nil {
		cfgJSON, err := json.Marshal(r.Config)
		if err != nil {
			return nil, fmt.Errorf("sweep: encode config: %w", err)
		}
		err = r.Store.WriteRun(ctx, store.Run{
			ID:         runID,
			CreatedUTC: now(),
			Config:     string(cfgJSON),
			DPS:        r.Config.DPS,
			Status:     "running",
		})
		if err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
	}

	// Each slot is written by exactly one worker.
	outcomes := make([]*Outcome, len(points))
	failures := make([]*Failure, len(points))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Config.Workers)
	for _, pt := range points {
		g.Go(func() error {
			pctx := gctx
			if r.Config.pointTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(gctx, r.Config.pointTimeout)
				defer cancel()
			}

			oc, stage, err := r.evaluate(pctx, c, sh, pt, runID, now)
			if err != nil {
				if gctx.Err() != nil {
					// The sweep itself is going down.
					return gctx.Err()
				}
				log.Warn("trial failed",
					"sigma", pt.Sigma, "k0", pt.K0, "stage", stage, "err", err)
				failures[pt.Idx] = &Failure{
					Idx: pt.Idx, Sigma: pt.Sigma, K0: pt.K0,
					Stage: stage, Err: err.Error(),
				}
				return nil
			}
			outcomes[pt.Idx] = oc
			log.Debug("trial done",
				"sigma", pt.Sigma, "k0", pt.K0,
				"pass", oc.Trial.Pass, "gap", oc.Trial.Gap)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}

	return r.collect(ctx, c, runID, points, outcomes, failures, now, log)
}

// prepare parses the run-wide decimals and the band layout.
func (r *Runner) prepare(c *dec.Context) (*shared, error) {
	sh := &shared{}
	var err error
	if sh.t0, err = c.Parse(r.Config.T0); err != nil {
		return nil, fmt.Errorf("sweep config: T0: %w", err)
	}
	if sh.tol, err = c.Parse(r.Config.Tol); err != nil {
		return nil, fmt.Errorf("sweep config: tol: %w", err)
	}
	if r.Config.APrime != "" {
		if sh.aprime, err = c.Parse(r.Config.APrime); err != nil {
			return nil, fmt.Errorf("sweep config: A_prime: %w", err)
		}
	}
	if _, err = c.Parse(r.Config.PrimeBlockCap); err != nil {
		return nil, fmt.Errorf("sweep config: prime_block_cap: %w", err)
	}
	for _, bs := range r.Config.Bands {
		left, err := c.Parse(bs.Left)
		if err != nil {
			return nil, fmt.Errorf("sweep config: band %q left: %w", bs.Label, err)
		}
		right, err := c.Parse(bs.Right)
		if err != nil {
			return nil, fmt.Errorf("sweep config: band %q right: %w", bs.Label, err)
		}
		band, err := rigor.NewBand(left, right, bs.Label)
		if err != nil {
			return nil, fmt.Errorf("sweep config: %w", err)
		}
		sh.bands = append(sh.bands, band)
		sh.specs = append(sh.specs, window.GridSpec{Label: bs.Label, Left: left, Right: right})
	}
	return sh, nil
}

// evaluate runs the whole pipeline for one point and writes its
// artifacts under a per-point directory. The returned stage names where
// a failure happened.
func (r *Runner) evaluate(ctx context.Context, c *dec.Context, sh *shared, pt Point, runID string, now func() time.Time) (*Outcome, string, error) {
	sigma, err := c.Parse(pt.Sigma)
	if err != nil {
		return nil, "window", err
	}
	k0, err := c.Parse(pt.K0)
	if err != nil {
		return nil, "window", err
	}
	w, err := rigor.NewWindow(rigor.ModeGauss, sigma, k0)
	if err != nil {
		return nil, "window", err
	}
	winArt := window.BuildWindow(c, w, now())

	bandsArt, err := window.MakeBands(c, sh.specs, window.BandsOptions{
		Grid:       r.Config.Grid,
		Digits:     r.Config.Digits,
		WindowPath: "window.json",
		WindowMode: w.Mode,
	}, now())
	if err != nil {
		return nil, "bands", err
	}

	if err := ctx.Err(); err != nil {
		return nil, "band_cert", err
	}
	opts := rigor.SearchOptions{Tol: sh.tol, MaxParts: r.Config.MaxParts, Workers: 1}
	res, err := rigor.CertifyBands(ctx, c, w.AbsBounds, sh.bands, opts)
	if err != nil {
		return nil, "band_cert", err
	}
	bcArt := rigor.BuildCertificate(c, w, res, opts, now())

	gammaEnv, err := tails.GammaEnvAtT0(c, sigma, k0, sh.t0)
	if err != nil {
		return nil, "gamma_tail", err
	}
	gtArt, err := tails.BuildGammaTails(c, sh.t0, gammaEnv, now())
	if err != nil {
		return nil, "gamma_tail", err
	}

	pp := tails.PrimeParams{Sigma: sigma, K0: k0, T0: sh.t0, APrime: sh.aprime, K: r.Config.K}
	primeEnv, err := tails.PrimeEnvAtT0(c, pp)
	if err != nil {
		return nil, "prime_tail", err
	}
	ptArt := tails.BuildPrimeTail(c, pp, primeEnv, now())

	pbArt := cert.Artifact{
		"kind": "prime_block_norm",
		"prime_block_norm": map[string]any{
			"used_operator_norm": r.Config.PrimeBlockCap,
		},
		"meta": cert.NewMeta("prime_block_norm", c.Precision(), now()),
	}
	var gridArt cert.Artifact
	if r.Config.GridError != "" {
		gridArt = cert.Artifact{
			"kind": "grid_error_bound",
			"grid_error_bound": map[string]any{
				"bound_hi": r.Config.GridError,
			},
			"meta": cert.NewMeta("op_grid_error_bound", c.Precision(), now()),
		}
	}

	// The relative name goes into the certificate so the artifact does
	// not depend on where the output tree happens to live.
	relDir := fmt.Sprintf("trial_s%s_k%s", pt.Sigma, pt.K0)
	dir := filepath.Join(r.Config.OutDir, relDir)
	vals, err := rollup.Extract(c, rollup.Inputs{
		Band:       bcArt,
		PrimeBlock: pbArt,
		PrimeTail:  ptArt,
		GammaTail:  gtArt,
		Grid:       gridArt,
	})
	if err != nil {
		return nil, "rollup", err
	}
	verdict, err := rollup.Compute(c, vals)
	if err != nil {
		return nil, "rollup", err
	}
	paths := rollup.Paths{
		CertsDir:   relDir,
		BandCert:   "band_cert.json",
		PrimeBlock: "prime_block_norm.json",
		PrimeTail:  "prime_tail_envelope.json",
		GammaTail:  "gamma_tails.json",
	}
	if gridArt != nil {
		paths.GridError = "grid_error_bound.json"
	}
	rollArt := rollup.BuildCertificate(c, sh.t0, paths, vals, verdict, now())

	gap := new(apd.Decimal)
	if _, err := c.Down().Sub(gap, verdict.EpsilonEff, verdict.LhsTotal); err != nil {
		return nil, "rollup", err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "write", err
	}
	files := []struct {
		name string
		art  cert.Artifact
	}{
		{"window.json", winArt},
		{"bands.json", bandsArt},
		{"band_cert.json", bcArt},
		{"prime_block_norm.json", pbArt},
		{"prime_tail_envelope.json", ptArt},
		{"gamma_tails.json", gtArt},
		{"grid_error_bound.json", gridArt},
		{"uniform_certificate.json", rollArt},
	}
	arts := make([]cert.Artifact, 0, len(files))
	for _, f := range files {
		if f.art == nil {
			continue
		}
		if err := cert.WriteFile(filepath.Join(dir, f.name), f.art); err != nil {
			return nil, "write", err
		}
		arts = append(arts, f.art)
	}

	trial := store.Trial{
		RunID:         runID,
		Idx:           pt.Idx,
		Sigma:         pt.Sigma,
		K0:            pt.K0,
		Pass:          verdict.Pass,
		LhsTotal:      c.Format(verdict.LhsTotal),
		EpsilonEff:    c.Format(verdict.EpsilonEff),
		Gap:           c.Format(gap),
		BandMargin:    c.Format(vals.BandMargin),
		PrimeBlockCap: c.Format(vals.PrimeBlockCap),
		PrimeTailNorm: c.Format(vals.PrimeTailNorm),
		GammaEnv:      c.Format(vals.GammaEnvAtT0),
		GridError:     c.Format(vals.GridErrorNorm),
	}
	return &Outcome{Point: pt, Dir: dir, Trial: trial, Artifacts: arts}, "", nil
}

// collect serializes results in index order: the CSV log, the trial
// ledger, the certificate rows, and the best-gap pick.
func (r *Runner) collect(ctx context.Context, c *dec.Context, runID string, points []Point, outcomes []*Outcome, failures []*Failure, now func() time.Time, log *slog.Logger) (*Summary, error) {
	sum := &Summary{
		RunID:   runID,
		Points:  len(points),
		CSVPath: filepath.Join(r.Config.OutDir, CSVName),
	}

	f, err := os.Create(sum.CSVPath)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	defer f.Close()
	cw := csv.NewWriter(f)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("sweep: csv: %w", err)
	}

	var bestGap *apd.Decimal
	for idx := range points {
		if fl := failures[idx]; fl != nil {
			sum.Failures = append(sum.Failures, *fl)
			if r.Store != nil {
				t := store.Trial{
					RunID: runID, Idx: fl.Idx, Sigma: fl.Sigma, K0: fl.K0,
					Err: fmt.Sprintf("%s: %s", fl.Stage, fl.Err),
				}
				if err := r.Store.WriteTrial(ctx, t); err != nil {
					return nil, fmt.Errorf("sweep: %w", err)
				}
			}
			continue
		}
		oc := outcomes[idx]
		if oc == nil {
			continue
		}
		t := oc.Trial
		sum.Trials = append(sum.Trials, t)

		row := []string{
			t.Sigma, t.K0, t.LhsTotal, t.EpsilonEff, t.Gap,
			strconv.FormatBool(t.Pass),
			t.BandMargin, t.PrimeBlockCap, t.PrimeTailNorm, t.GammaEnv,
		}
		if err := cw.Write(row); err != nil {
			return nil, fmt.Errorf("sweep: csv: %w", err)
		}

		gap, err := c.Parse(t.Gap)
		if err != nil {
			return nil, fmt.Errorf("sweep: gap: %w", err)
		}
		if bestGap == nil || gap.Cmp(bestGap) > 0 {
			bestGap = gap
			best := t
			sum.Best = &best
		}

		if r.Store != nil {
			if err := r.Store.WriteTrial(ctx, t); err != nil {
				return nil, fmt.Errorf("sweep: %w", err)
			}
			for _, a := range oc.Artifacts {
				if _, err := r.Store.WriteCertificate(ctx, runID, idx, a, now()); err != nil {
					return nil, fmt.Errorf("sweep: %w", err)
				}
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, fmt.Errorf("sweep: csv: %w", err)
	}

	if r.Store != nil {
		if err := r.Store.FinishRun(ctx, runID, "done"); err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
	}

	log.Info("sweep complete",
		"run_id", runID,
		"evaluated", len(sum.Trials),
		"failed", len(sum.Failures))
	return sum, nil
}
