package cert

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Artifact is a certificate record: a JSON object with a kind tag, an
// input-echo block, one or more result blocks, an optional PASS verdict
// and a meta block (tool identity, precision, creation time, content
// hash). Write-once: downstream consumers treat artifacts as read-only.
type Artifact map[string]any

// Well-known artifact kinds. Kept verbatim from the historical toolchain
// so existing certificate chains remain readable.
const (
	KindWindow      = "window"
	KindBands       = "bands"
	KindBandCert    = "band_cert"
	KindRollingT    = "rolling_T_uniform"
	KindPSDCert     = "subspace_psd_cholesky"
	KindUniform     = "uniform_certificate"
	KindGammaTail   = "gamma_tails"
	KindPrimeTail   = "prime_tail_envelope"
	KindTailFit     = "analytic_tail_fit"
)

// Kind returns the artifact's kind tag, or "" when absent.
func (a Artifact) Kind() string {
	k, _ := a["kind"].(string)
	return k
}

// Pass returns the artifact's PASS verdict. Absent means false.
func (a Artifact) Pass() bool {
	p, _ := a["PASS"].(bool)
	return p
}

// Meta returns the artifact's meta block, creating it when absent.
func (a Artifact) Meta() map[string]any {
	if m, ok := a["meta"].(map[string]any); ok {
		return m
	}
	m := map[string]any{}
	a["meta"] = m
	return m
}

// NewMeta builds a standard meta block: tool identity, working
// precision and creation time. The content hash is added by Seal.
func NewMeta(tool string, dps uint32, now time.Time) map[string]any {
	return map[string]any{
		"tool":        tool,
		"dps":         int(dps),
		"created_utc": now.UTC().Truncate(time.Second).Format("2006-01-02T15:04:05Z"),
	}
}

// ReadFile loads an artifact from disk. Numbers decode to json.Number
// so no binary float ever materializes on the ingestion path.
func ReadFile(path string) (Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read artifact: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(f)
	dec.UseNumber()
	var a Artifact
	if err := dec.Decode(&a); err != nil {
		return nil, fmt.Errorf("read artifact %s: %w", path, err)
	}
	return a, nil
}

// WriteFile seals the artifact and writes it atomically: pretty JSON to
// a .tmp sibling, then rename. The artifact map is modified in place to
// carry the computed meta.sha256.
func WriteFile(path string, a Artifact) error {
	if err := Seal(a); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("write artifact: %w", err)
		}
	}

	blob, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	blob = append(blob, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, blob, 0o644); err != nil {
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write artifact: %w", err)
	}
	return nil
}
