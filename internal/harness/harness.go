package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/sweep"
)

// FixedTime is the timestamp every scenario runs at, so artifact hashes
// depend only on the scenario itself.
var FixedTime = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// chainFiles is the artifact chain in pipeline order. The grid error
// bound only exists when the scenario declares one.
var chainFiles = []string{
	"window.json",
	"bands.json",
	"band_cert.json",
	"prime_block_norm.json",
	"prime_tail_envelope.json",
	"gamma_tails.json",
	"grid_error_bound.json",
	"uniform_certificate.json",
}

// ChainEntry summarizes one sealed artifact.
type ChainEntry struct {
	Kind   string
	SHA256 string
}

// Result is the deterministic reduction of a scenario run.
type Result struct {
	Scenario string
	Pass     bool
	// Numbers holds the rollup quantities as decimal strings, keyed
	// lhs_total, epsilon_eff, gap, band_margin, prime_cap, prime_tail,
	// gamma_env, grid_error.
	Numbers map[string]string
	Chain   []ChainEntry
}

// Run executes the scenario's pipeline in a scratch directory at
// FixedTime, verifies every artifact seal, and checks the declared
// verdict. The scratch directory is removed before returning.
func Run(sc *Scenario) (*Result, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp("", "attest-harness-")
	if err != nil {
		return nil, fmt.Errorf("harness: %w", err)
	}
	defer os.RemoveAll(scratch)

	cfg, err := sc.config(scratch)
	if err != nil {
		return nil, err
	}

	runner := &sweep.Runner{
		Config: cfg,
		Log:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return FixedTime },
	}
	sum, err := runner.Run(context.Background())
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q: %w", sc.Name, err)
	}
	if len(sum.Failures) > 0 {
		f := sum.Failures[0]
		return nil, fmt.Errorf("harness: scenario %q: %s failed: %s", sc.Name, f.Stage, f.Err)
	}
	if len(sum.Trials) != 1 {
		return nil, fmt.Errorf("harness: scenario %q: expected one trial, got %d", sc.Name, len(sum.Trials))
	}
	trial := sum.Trials[0]

	dir := filepath.Join(scratch, fmt.Sprintf("trial_s%s_k%s", trial.Sigma, trial.K0))
	chain, err := readChain(dir)
	if err != nil {
		return nil, fmt.Errorf("harness: scenario %q: %w", sc.Name, err)
	}

	res := &Result{
		Scenario: sc.Name,
		Pass:     trial.Pass,
		Numbers: map[string]string{
			"lhs_total":   trial.LhsTotal,
			"epsilon_eff": trial.EpsilonEff,
			"gap":         trial.Gap,
			"band_margin": trial.BandMargin,
			"prime_cap":   trial.PrimeBlockCap,
			"prime_tail":  trial.PrimeTailNorm,
			"gamma_env":   trial.GammaEnv,
			"grid_error":  trial.GridError,
		},
		Chain: chain,
	}

	if sc.Expect != nil && sc.Expect.Pass != nil && *sc.Expect.Pass != res.Pass {
		return res, fmt.Errorf("harness: scenario %q: verdict %v, expected %v",
			sc.Name, res.Pass, *sc.Expect.Pass)
	}
	return res, nil
}

// readChain loads each artifact in pipeline order, verifies its seal,
// and records its kind and hash.
func readChain(dir string) ([]ChainEntry, error) {
	var chain []ChainEntry
	for _, name := range chainFiles {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var a cert.Artifact
		if err := dec.Decode(&a); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if err := cert.VerifySeal(a); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		sha, _ := a.Meta()["sha256"].(string)
		chain = append(chain, ChainEntry{Kind: a.Kind(), SHA256: sha})
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no artifacts under %s", dir)
	}
	return chain, nil
}
