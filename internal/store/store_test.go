package store

import (
	"context"
	"errors"
	"testing"

	"github.com/roach88/attest/internal/cert"
)

func TestOpen_AppliesPragmas(t *testing.T) {
	s := createTestStore(t)

	if err := s.verifyPragma("journal_mode", "wal"); err != nil {
		t.Errorf("journal_mode: %v", err)
	}
	if err := s.verifyPragma("foreign_keys", "1"); err != nil {
		t.Errorf("foreign_keys: %v", err)
	}
}

func TestOpen_SetsSchemaVersion(t *testing.T) {
	s := createTestStore(t)

	var version int
	if err := s.db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		t.Fatalf("query user_version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("user_version = %d, want %d", version, currentSchemaVersion)
	}
}

func TestWriteRun_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := createTestRun("run-1")
	if err := s.WriteRun(ctx, r); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Config != r.Config || got.DPS != r.DPS || got.Status != "running" {
		t.Errorf("ReadRun() = %+v, want %+v", got, r)
	}
	if !got.CreatedUTC.Equal(r.CreatedUTC) {
		t.Errorf("CreatedUTC = %v, want %v", got.CreatedUTC, r.CreatedUTC)
	}
}

func TestWriteRun_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	r := createTestRun("run-1")
	if err := s.WriteRun(ctx, r); err != nil {
		t.Fatalf("first WriteRun() failed: %v", err)
	}

	r.Config = `{"grid":12000}`
	if err := s.WriteRun(ctx, r); err != nil {
		t.Fatalf("second WriteRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Config != `{"grid":6000}` {
		t.Errorf("duplicate write overwrote config: %q", got.Config)
	}
}

func TestFinishRun_UpdatesStatus(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	if err := s.FinishRun(ctx, "run-1", "done"); err != nil {
		t.Fatalf("FinishRun() failed: %v", err)
	}

	got, err := s.ReadRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadRun() failed: %v", err)
	}
	if got.Status != "done" {
		t.Errorf("Status = %q, want %q", got.Status, "done")
	}
}

func TestReadRun_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadRun(context.Background(), "absent")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadRun() error = %v, want ErrNotFound", err)
	}
}

func TestReadTrials_OrderedByIdx(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	// Write out of order; reads must come back by idx.
	for _, idx := range []int{2, 0, 1} {
		if err := s.WriteTrial(ctx, createTestTrial("run-1", idx, "0.01")); err != nil {
			t.Fatalf("WriteTrial(%d) failed: %v", idx, err)
		}
	}

	trials, err := s.ReadTrials(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadTrials() failed: %v", err)
	}
	if len(trials) != 3 {
		t.Fatalf("len(trials) = %d, want 3", len(trials))
	}
	for i, tr := range trials {
		if tr.Idx != i {
			t.Errorf("trials[%d].Idx = %d, want %d", i, tr.Idx, i)
		}
	}
}

func TestReadTrials_EmptyRunReturnsEmptySlice(t *testing.T) {
	s := createTestStore(t)

	trials, err := s.ReadTrials(context.Background(), "run-1")
	if err != nil {
		t.Fatalf("ReadTrials() failed: %v", err)
	}
	if trials == nil {
		t.Error("ReadTrials() returned nil, want empty slice")
	}
	if len(trials) != 0 {
		t.Errorf("len(trials) = %d, want 0", len(trials))
	}
}

func TestWriteTrial_IdempotentAndNullableFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	failed := Trial{RunID: "run-1", Idx: 0, Sigma: "2", K0: "14", Err: "band margin is negative"}
	if err := s.WriteTrial(ctx, failed); err != nil {
		t.Fatalf("WriteTrial() failed: %v", err)
	}

	// Re-running the point must not overwrite the recorded failure.
	if err := s.WriteTrial(ctx, createTestTrial("run-1", 0, "0.01")); err != nil {
		t.Fatalf("second WriteTrial() failed: %v", err)
	}

	trials, err := s.ReadTrials(ctx, "run-1")
	if err != nil {
		t.Fatalf("ReadTrials() failed: %v", err)
	}
	if len(trials) != 1 {
		t.Fatalf("len(trials) = %d, want 1", len(trials))
	}
	if trials[0].Err != "band margin is negative" {
		t.Errorf("Err = %q, want original failure", trials[0].Err)
	}
	if trials[0].Pass {
		t.Error("Pass = true, want false")
	}
	if trials[0].LhsTotal != "" {
		t.Errorf("LhsTotal = %q, want empty for failed trial", trials[0].LhsTotal)
	}
}

func TestBestTrial_LargestGapWins(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	for idx, gap := range []string{"0.01", "0.05", "0.03"} {
		if err := s.WriteTrial(ctx, createTestTrial("run-1", idx, gap)); err != nil {
			t.Fatalf("WriteTrial(%d) failed: %v", idx, err)
		}
	}
	failing := createTestTrial("run-1", 3, "0.99")
	failing.Pass = false
	if err := s.WriteTrial(ctx, failing); err != nil {
		t.Fatalf("WriteTrial(3) failed: %v", err)
	}

	best, err := s.BestTrial(ctx, "run-1")
	if err != nil {
		t.Fatalf("BestTrial() failed: %v", err)
	}
	if best.Idx != 1 {
		t.Errorf("best.Idx = %d, want 1 (gap 0.05)", best.Idx)
	}
}

func TestBestTrial_TieBreaksOnIdx(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	for _, idx := range []int{5, 2, 9} {
		if err := s.WriteTrial(ctx, createTestTrial("run-1", idx, "0.04")); err != nil {
			t.Fatalf("WriteTrial(%d) failed: %v", idx, err)
		}
	}

	best, err := s.BestTrial(ctx, "run-1")
	if err != nil {
		t.Fatalf("BestTrial() failed: %v", err)
	}
	if best.Idx != 2 {
		t.Errorf("best.Idx = %d, want 2 (lowest idx among ties)", best.Idx)
	}
}

func TestBestTrial_NoPassingTrials(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}
	tr := createTestTrial("run-1", 0, "0.01")
	tr.Pass = false
	if err := s.WriteTrial(ctx, tr); err != nil {
		t.Fatalf("WriteTrial() failed: %v", err)
	}

	_, err := s.BestTrial(ctx, "run-1")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("BestTrial() error = %v, want ErrNotFound", err)
	}
}

func TestWriteCertificate_RoundTripAndDedup(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteRun(ctx, createTestRun("run-1")); err != nil {
		t.Fatalf("WriteRun() failed: %v", err)
	}

	a := cert.Artifact{
		"kind": cert.KindWindow,
		"mode": "gauss",
		"meta": map[string]any{"tool": "window_gen", "dps": 50, "created_utc": "2026-01-01T00:00:00Z"},
	}
	digest, err := s.WriteCertificate(ctx, "run-1", 0, a, testTime())
	if err != nil {
		t.Fatalf("WriteCertificate() failed: %v", err)
	}

	// Same body from a later trial dedupes to the first record.
	digest2, err := s.WriteCertificate(ctx, "run-1", 7, a, testTime())
	if err != nil {
		t.Fatalf("second WriteCertificate() failed: %v", err)
	}
	if digest2 != digest {
		t.Errorf("digest mismatch: %q vs %q", digest2, digest)
	}

	got, err := s.ReadCertificate(ctx, digest)
	if err != nil {
		t.Fatalf("ReadCertificate() failed: %v", err)
	}
	if got.Kind() != cert.KindWindow {
		t.Errorf("Kind() = %q, want %q", got.Kind(), cert.KindWindow)
	}

	recs, err := s.ListCertificates(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListCertificates() failed: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("len(recs) = %d, want 1 after dedup", len(recs))
	}
	if recs[0].TrialIdx != 0 {
		t.Errorf("TrialIdx = %d, want 0 (first writer wins)", recs[0].TrialIdx)
	}
}

func TestReadCertificate_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.ReadCertificate(context.Background(), "0000")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("ReadCertificate() error = %v, want ErrNotFound", err)
	}
}
