package harness

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/attest/internal/sweep"
)

// WindowSpec names the window under test.
type WindowSpec struct {
	Mode  string `yaml:"mode"`
	Sigma string `yaml:"sigma"`
	K0    string `yaml:"k0"`
}

// ExpectClause is the scenario's declared verdict. A scenario with no
// expectation only checks that the pipeline completes.
type ExpectClause struct {
	Pass *bool `yaml:"pass,omitempty"`
}

// Scenario defines one conformance run: a single pipeline execution
// with every knob pinned. All real-valued fields are decimal strings.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`

	Window WindowSpec       `yaml:"window"`
	Bands  []sweep.BandSpec `yaml:"bands,omitempty"`

	T0     string `yaml:"T0,omitempty"`
	DPS    uint32 `yaml:"dps,omitempty"`
	Grid   int    `yaml:"grid,omitempty"`
	Digits int    `yaml:"digits,omitempty"`

	Tol      string `yaml:"tol,omitempty"`
	MaxParts int    `yaml:"max_parts,omitempty"`

	PrimeBlockCap string `yaml:"prime_block_cap"`
	APrime        string `yaml:"A_prime,omitempty"`
	K             int    `yaml:"K,omitempty"`
	GridError     string `yaml:"grid_error,omitempty"`

	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// LoadScenario reads and validates a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Validate checks the fields the pipeline cannot default.
func (sc *Scenario) Validate() error {
	if sc.Name == "" {
		return fmt.Errorf("scenario: name is required")
	}
	if sc.Window.Sigma == "" || sc.Window.K0 == "" {
		return fmt.Errorf("scenario %q: window sigma and k0 are required", sc.Name)
	}
	if sc.PrimeBlockCap == "" {
		return fmt.Errorf("scenario %q: prime_block_cap is required", sc.Name)
	}
	return nil
}

// config translates the scenario into a one-point sweep.
func (sc *Scenario) config(outDir string) (sweep.Config, error) {
	cfg := sweep.Config{
		SigmaMin: sc.Window.Sigma, SigmaMax: sc.Window.Sigma, SigmaStep: "1",
		K0Min: sc.Window.K0, K0Max: sc.Window.K0, K0Step: "1",
		T0:            sc.T0,
		DPS:           sc.DPS,
		Grid:          sc.Grid,
		Digits:        sc.Digits,
		Bands:         sc.Bands,
		Tol:           sc.Tol,
		MaxParts:      sc.MaxParts,
		PrimeBlockCap: sc.PrimeBlockCap,
		APrime:        sc.APrime,
		K:             sc.K,
		GridError:     sc.GridError,
		Workers:       1,
		OutDir:        outDir,
	}
	if err := cfg.Finalize(); err != nil {
		return sweep.Config{}, fmt.Errorf("scenario %q: %w", sc.Name, err)
	}
	return cfg, nil
}
