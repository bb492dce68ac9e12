package cert

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sampleArtifacts returns a minimal representative artifact per kind.
func sampleArtifacts() map[string]Artifact {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return map[string]Artifact{
		KindWindow: {
			"kind": KindWindow, "mode": "gauss", "sigma": "1.2", "k0": "0.75",
			"meta": NewMeta("window_gen", 60, now),
		},
		KindBands: {
			"kind": KindBands,
			"bands": []any{
				map[string]any{"label": "critical", "left": "-0.5", "right": "0.5"},
			},
			"meta": NewMeta("bands_make", 60, now),
		},
		KindBandCert: {
			"kind":    KindBandCert,
			"numbers": map[string]any{"band_margin_lo": "0.50", "band_margin_hi": "0.51", "bands_count": 1},
			"PASS":    true,
			"meta":    NewMeta("band_cert", 60, now),
		},
		KindRollingT: {
			"kind":   KindRollingT,
			"result": map[string]any{"PASS": true, "delta_min": "0.25"},
			"meta":   NewMeta("margin_cert", 60, now),
		},
		KindPSDCert: {
			"kind":   KindPSDCert,
			"result": map[string]any{"chol_success": true, "psd_certified": true, "rank": 4},
			"meta":   NewMeta("psd_cert", 60, now),
		},
		KindUniform: {
			"kind": KindUniform,
			"uniform_certificate": map[string]any{
				"lhs_total": "0.36", "epsilon_eff": "0.48", "PSD_verified": true,
			},
			"PASS": true,
			"meta": NewMeta("rollup", 60, now),
		},
		KindGammaTail: {
			"kind":        KindGammaTail,
			"gamma_tails": map[string]any{"gamma_env_at_T0": "0.02"},
			"meta":        NewMeta("gamma_tail", 60, now),
		},
		KindPrimeTail: {
			"kind":       KindPrimeTail,
			"prime_tail": map[string]any{"env_T0_hi": "0.05"},
			"meta":       NewMeta("prime_tail", 60, now),
		},
	}
}

func TestSeal_RoundTrip_EveryKind(t *testing.T) {
	for kind, a := range sampleArtifacts() {
		require.NoError(t, Seal(a), "seal %s", kind)
		stored, _ := a.Meta()["sha256"].(string)
		assert.Len(t, stored, 64, "%s: digest should be hex sha256", kind)

		// Blanking the stored hash and recomputing must reproduce it.
		require.NoError(t, VerifySeal(a), "verify %s", kind)
	}
}

func TestSeal_HashIgnoresStoredDigest(t *testing.T) {
	a := sampleArtifacts()[KindWindow]
	require.NoError(t, Seal(a))
	first, _ := a.Meta()["sha256"].(string)

	// Re-sealing over an already-sealed artifact yields the same digest:
	// the stored hash is blanked before hashing.
	require.NoError(t, Seal(a))
	second, _ := a.Meta()["sha256"].(string)
	assert.Equal(t, first, second)
}

func TestVerifySeal_DetectsTampering(t *testing.T) {
	a := sampleArtifacts()[KindUniform]
	require.NoError(t, Seal(a))

	a["uniform_certificate"].(map[string]any)["lhs_total"] = "0.55"
	err := VerifySeal(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "content hash mismatch")
}

func TestVerifySeal_MissingHash(t *testing.T) {
	a := Artifact{"kind": KindWindow, "meta": map[string]any{}}
	assert.Error(t, VerifySeal(a))
}

func TestWriteFile_ReadFile_HashSurvives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "window.json")
	a := sampleArtifacts()[KindWindow]
	require.NoError(t, WriteFile(path, a))

	loaded, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, KindWindow, loaded.Kind())

	// Loaded artifacts decode integers as json.Number; the canonical
	// serialization must agree with the pre-write form byte for byte,
	// so the stored digest still verifies.
	require.NoError(t, VerifySeal(loaded))
}

func TestHashWithDomain_Separation(t *testing.T) {
	a := hashWithDomain("attest/cert/v1", []byte("payload"))
	b := hashWithDomain("attest/other/v1", []byte("payload"))
	assert.NotEqual(t, a, b, "different domains must produce different digests")
}
