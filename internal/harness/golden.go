package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/attest/internal/cert"
)

// Snapshot renders a result as canonical JSON, the byte-stable form
// golden files store.
func Snapshot(res *Result) ([]byte, error) {
	chain := make([]any, len(res.Chain))
	for i, e := range res.Chain {
		chain[i] = map[string]any{
			"kind":   e.Kind,
			"sha256": e.SHA256,
		}
	}
	numbers := map[string]any{}
	for k, v := range res.Numbers {
		numbers[k] = v
	}
	return cert.MarshalCanonical(map[string]any{
		"scenario": res.Scenario,
		"pass":     res.Pass,
		"numbers":  numbers,
		"chain":    chain,
	})
}

// RunWithGolden executes a scenario and compares its summary against a
// golden file named after the scenario, stored in testdata/golden by
// default. Regenerate with:
//
//	go test ./internal/harness -update
//
// Returns an error if the scenario itself fails; a summary mismatch is
// reported through t by goldie.
func RunWithGolden(t *testing.T, sc *Scenario, opts ...goldie.Option) error {
	t.Helper()

	res, err := Run(sc)
	if err != nil {
		return err
	}
	data, err := Snapshot(res)
	if err != nil {
		return err
	}

	base := []goldie.Option{
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	}
	g := goldie.New(t, append(base, opts...)...)
	g.Assert(t, sc.Name, data)
	return nil
}
