package store

import (
	"path/filepath"
	"testing"
	"time"
)

// createTestStore creates a file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testTime() time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
}

// createTestRun creates a run with minimal required fields.
func createTestRun(id string) Run {
	return Run{
		ID:         id,
		CreatedUTC: testTime(),
		Config:     `{"grid":6000}`,
		DPS:        50,
		Status:     "running",
	}
}

// createTestTrial creates a passing trial at the given index.
func createTestTrial(runID string, idx int, gap string) Trial {
	return Trial{
		RunID:      runID,
		Idx:        idx,
		Sigma:      "2",
		K0:         "14",
		Pass:       true,
		LhsTotal:   "0.35",
		EpsilonEff: "0.36",
		Gap:        gap,
	}
}
