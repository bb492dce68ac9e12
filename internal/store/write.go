package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/attest/internal/cert"
)

// Run is one sweep invocation.
type Run struct {
	ID         string
	CreatedUTC time.Time
	Config     string // canonical JSON of the sweep config
	DPS        uint32
	Status     string
}

// Trial is one (sigma, k0) point evaluated within a run. Decimal values
// are stored as strings so nothing is lost to float conversion; a failed
// point carries Err and empty value fields.
type Trial struct {
	RunID         string
	Idx           int
	Sigma         string
	K0            string
	Pass          bool
	LhsTotal      string
	EpsilonEff    string
	Gap           string
	BandMargin    string
	PrimeBlockCap string
	PrimeTailNorm string
	GammaEnv      string
	GridError     string
	Err           string
}

// CertRecord is a stored artifact body, addressed by its content hash.
type CertRecord struct {
	SHA256     string
	RunID      string
	TrialIdx   int
	Kind       string
	Body       []byte // canonical JSON
	CreatedUTC time.Time
}

// WriteRun inserts a run record.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) WriteRun(ctx context.Context, r Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, created_utc, config, dps, status)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.CreatedUTC.UTC().Format(time.RFC3339),
		r.Config,
		r.DPS,
		r.Status,
	)
	if err != nil {
		return fmt.Errorf("write run: %w", err)
	}
	return nil
}

// FinishRun records the terminal status of a run.
func (s *Store) FinishRun(ctx context.Context, runID, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ? WHERE id = ?
	`, status, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// WriteTrial inserts a trial record.
// Uses ON CONFLICT DO NOTHING for idempotency - re-running a point of a
// recorded run never overwrites the original outcome.
func (s *Store) WriteTrial(ctx context.Context, t Trial) error {
	pass := 0
	if t.Pass {
		pass = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO trials
		(run_id, idx, sigma, k0, pass, lhs_total, epsilon_eff, gap,
		 band_margin, prime_block_cap, prime_tail_norm, gamma_env, grid_error, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, idx) DO NOTHING
	`,
		t.RunID,
		t.Idx,
		t.Sigma,
		t.K0,
		pass,
		nullable(t.LhsTotal),
		nullable(t.EpsilonEff),
		nullable(t.Gap),
		nullable(t.BandMargin),
		nullable(t.PrimeBlockCap),
		nullable(t.PrimeTailNorm),
		nullable(t.GammaEnv),
		nullable(t.GridError),
		nullable(t.Err),
	)
	if err != nil {
		return fmt.Errorf("write trial: %w", err)
	}
	return nil
}

// WriteCertificate stores an artifact body under its content hash and
// returns the hash. Bodies are deduplicated: writing the same artifact
// twice (even from different trials) keeps the first record.
func (s *Store) WriteCertificate(ctx context.Context, runID string, trialIdx int, a cert.Artifact, now time.Time) (string, error) {
	digest, err := cert.ContentHash(a)
	if err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	body, err := cert.MarshalCanonical(map[string]any(a))
	if err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates (sha256, run_id, trial_idx, kind, body, created_utc)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(sha256) DO NOTHING
	`,
		digest,
		runID,
		trialIdx,
		a.Kind(),
		string(body),
		now.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return "", fmt.Errorf("write certificate: %w", err)
	}
	return digest, nil
}

// nullable maps the empty string to SQL NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
