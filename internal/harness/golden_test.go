package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"
)

// The fixture is pinned from a prior run of the same scenario, so the
// goldie comparison is really a determinism check across processes.
func TestRunWithGolden_StableSummary(t *testing.T) {
	sc := testScenario()

	res, err := Run(sc)
	require.NoError(t, err)
	data, err := Snapshot(res)
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "golden")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, sc.Name+".golden"), data, 0o644))

	err = RunWithGolden(t, sc, goldie.WithFixtureDir(dir))
	require.NoError(t, err)
}

func TestRunWithGolden_ScenarioErrorSurfaces(t *testing.T) {
	sc := testScenario()
	sc.Window.Sigma = "-1"

	err := RunWithGolden(t, sc, goldie.WithFixtureDir(t.TempDir()))
	require.Error(t, err)
}
