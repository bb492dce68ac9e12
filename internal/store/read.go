package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/attest/internal/cert"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("store: not found")

// ReadRun returns the run with the given id.
func (s *Store) ReadRun(ctx context.Context, runID string) (Run, error) {
	var r Run
	var created string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, created_utc, config, dps, status
		FROM runs WHERE id = ?
	`, runID).Scan(&r.ID, &created, &r.Config, &r.DPS, &r.Status)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, ErrNotFound
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run: %w", err)
	}
	r.CreatedUTC, err = time.Parse(time.RFC3339, created)
	if err != nil {
		return Run{}, fmt.Errorf("read run: parse created_utc: %w", err)
	}
	return r, nil
}

// ReadTrials returns all trials for a run in deterministic order:
// ORDER BY idx ASC.
//
// Returns an empty slice (not nil) if the run has no trials.
func (s *Store) ReadTrials(ctx context.Context, runID string) ([]Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, sigma, k0, pass, lhs_total, epsilon_eff, gap,
		       band_margin, prime_block_cap, prime_tail_norm, gamma_env, grid_error, error
		FROM trials
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	trials := []Trial{}
	for rows.Next() {
		t, err := scanTrial(rows)
		if err != nil {
			return nil, err
		}
		trials = append(trials, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trials: %w", err)
	}
	return trials, nil
}

// BestTrial returns the passing trial with the largest gap between
// epsilon_eff and lhs_total. Ties break on idx ASC so repeated reads of
// the same run always agree. Returns ErrNotFound when no trial passed.
//
// gap is stored as a decimal string; CAST to REAL is safe for ordering
// because ties in the rounded value fall back to idx.
func (s *Store) BestTrial(ctx context.Context, runID string) (Trial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, idx, sigma, k0, pass, lhs_total, epsilon_eff, gap,
		       band_margin, prime_block_cap, prime_tail_norm, gamma_env, grid_error, error
		FROM trials
		WHERE run_id = ? AND pass = 1
		ORDER BY CAST(gap AS REAL) DESC, idx ASC
		LIMIT 1
	`, runID)
	if err != nil {
		return Trial{}, fmt.Errorf("query best trial: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Trial{}, fmt.Errorf("query best trial: %w", err)
		}
		return Trial{}, ErrNotFound
	}
	return scanTrial(rows)
}

// ReadCertificate returns the stored artifact with the given content
// hash, decoded from its canonical JSON body.
func (s *Store) ReadCertificate(ctx context.Context, digest string) (cert.Artifact, error) {
	var body string
	err := s.db.QueryRowContext(ctx, `
		SELECT body FROM certificates WHERE sha256 = ?
	`, digest).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read certificate: %w", err)
	}

	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var a cert.Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("read certificate: decode body: %w", err)
	}
	return a, nil
}

// ListCertificates returns the hash and kind of every certificate a run
// produced, ordered by trial_idx ASC, kind ASC, sha256 ASC COLLATE BINARY.
func (s *Store) ListCertificates(ctx context.Context, runID string) ([]CertRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT sha256, run_id, trial_idx, kind, created_utc
		FROM certificates
		WHERE run_id = ?
		ORDER BY trial_idx ASC, kind ASC, sha256 COLLATE BINARY ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query certificates: %w", err)
	}
	defer rows.Close()

	recs := []CertRecord{}
	for rows.Next() {
		var rec CertRecord
		var created string
		if err := rows.Scan(&rec.SHA256, &rec.RunID, &rec.TrialIdx, &rec.Kind, &created); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		rec.CreatedUTC, err = time.Parse(time.RFC3339, created)
		if err != nil {
			return nil, fmt.Errorf("scan certificate: parse created_utc: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate certificates: %w", err)
	}
	return recs, nil
}

// scanTrial scans a trial row from either a *sql.Row or *sql.Rows.
func scanTrial(rows *sql.Rows) (Trial, error) {
	var t Trial
	var pass int
	var lhs, eps, gap, band, primeCap, primeTail, gamma, grid, trialErr sql.NullString
	err := rows.Scan(&t.RunID, &t.Idx, &t.Sigma, &t.K0, &pass,
		&lhs, &eps, &gap, &band, &primeCap, &primeTail, &gamma, &grid, &trialErr)
	if err != nil {
		return Trial{}, fmt.Errorf("scan trial: %w", err)
	}
	t.Pass = pass != 0
	t.LhsTotal = lhs.String
	t.EpsilonEff = eps.String
	t.Gap = gap.String
	t.BandMargin = band.String
	t.PrimeBlockCap = primeCap.String
	t.PrimeTailNorm = primeTail.String
	t.GammaEnv = gamma.String
	t.GridError = grid.String
	t.Err = trialErr.String
	return t, nil
}
