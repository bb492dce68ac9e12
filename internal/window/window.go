package window

import (
	"fmt"
	"time"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
	"github.com/roach88/attest/internal/rigor"
)

// BuildWindow assembles the window artifact. The parameters appear both
// at the top level and inside a nested window block, the layout every
// historical consumer has been able to read.
func BuildWindow(c *dec.Context, w *rigor.Window, now time.Time) cert.Artifact {
	sigma := c.Format(w.Sigma)
	k0 := c.Format(w.K0)
	return cert.Artifact{
		"kind":  cert.KindWindow,
		"mode":  w.Mode,
		"sigma": sigma,
		"k0":    k0,
		"window": map[string]any{
			"mode":  w.Mode,
			"sigma": sigma,
			"k0":    k0,
		},
		"meta": cert.NewMeta("window_gen", c.Precision(), now),
	}
}

// ParseWindow extracts window parameters from any historical layout:
// values at the top level or nested under "window", "params" or "data",
// with the notch parameter stored as either "k0" or "notch_k0". Mode
// defaults to gauss when absent.
func ParseWindow(c *dec.Context, a cert.Artifact) (*rigor.Window, error) {
	candidates := []map[string]any{a}
	for _, key := range []string{"window", "params", "data"} {
		if nested, ok := a[key].(map[string]any); ok {
			candidates = append(candidates, nested)
		}
	}

	var sigmaS, k0S, mode string
	for _, obj := range candidates {
		if sigmaS == "" {
			if v, ok := obj["sigma"]; ok {
				sigmaS = fmt.Sprintf("%v", v)
			}
		}
		if k0S == "" {
			if v, ok := obj["notch_k0"]; ok {
				k0S = fmt.Sprintf("%v", v)
			} else if v, ok := obj["k0"]; ok {
				k0S = fmt.Sprintf("%v", v)
			}
		}
		if mode == "" {
			if v, ok := obj["mode"].(string); ok {
				mode = v
			}
		}
	}
	if sigmaS == "" {
		return nil, fmt.Errorf("window artifact missing sigma")
	}
	if k0S == "" {
		return nil, fmt.Errorf("window artifact missing notch_k0 / k0")
	}
	if mode == "" {
		mode = rigor.ModeGauss
	}

	sigma, err := c.Parse(sigmaS)
	if err != nil {
		return nil, fmt.Errorf("window sigma: %w", err)
	}
	k0, err := c.Parse(k0S)
	if err != nil {
		return nil, fmt.Errorf("window k0: %w", err)
	}
	return rigor.NewWindow(mode, sigma, k0)
}
