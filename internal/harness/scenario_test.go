package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: gauss-lower-band
description: single window, lower band only
window:
  mode: gauss
  sigma: "2"
  k0: "14"
bands:
  - label: lower
    left: "1"
    right: "2"
T0: "1"
dps: 30
grid: 10
digits: 20
tol: "1E-6"
max_parts: 256
prime_block_cap: "0.001"
expect:
  pass: true
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadScenario_RoundTrip(t *testing.T) {
	sc, err := LoadScenario(writeScenario(t, scenarioYAML))
	require.NoError(t, err)

	assert.Equal(t, "gauss-lower-band", sc.Name)
	assert.Equal(t, "2", sc.Window.Sigma)
	assert.Equal(t, "14", sc.Window.K0)
	require.Len(t, sc.Bands, 1)
	assert.Equal(t, "lower", sc.Bands[0].Label)
	assert.Equal(t, "0.001", sc.PrimeBlockCap)
	require.NotNil(t, sc.Expect)
	require.NotNil(t, sc.Expect.Pass)
	assert.True(t, *sc.Expect.Pass)
}

func TestLoadScenario_MissingName(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `window: {sigma: "2", k0: "14"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "name")
}

func TestLoadScenario_MissingCap(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, `
name: no-cap
window: {sigma: "2", k0: "14"}
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prime_block_cap")
}

func TestLoadScenario_BadYAML(t *testing.T) {
	_, err := LoadScenario(writeScenario(t, "name: [unclosed"))
	require.Error(t, err)
}

func TestLoadScenario_FileMissing(t *testing.T) {
	_, err := LoadScenario(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
