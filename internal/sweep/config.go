package sweep

import (
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/apd/v3"
	"gopkg.in/yaml.v3"

	"github.com/roach88/attest/internal/dec"
	"github.com/roach88/attest/internal/tails"
	"github.com/roach88/attest/internal/window"
)

// BandSpec is one band of the search domain, endpoints as decimal
// strings.
type BandSpec struct {
	Label string `yaml:"label"`
	Left  string `yaml:"left"`
	Right string `yaml:"right"`
}

// Config describes a sweep. All real-valued knobs are decimal strings;
// nothing passes through a float on the way in.
type Config struct {
	SigmaMin  string `yaml:"sigma_min"`
	SigmaMax  string `yaml:"sigma_max"`
	SigmaStep string `yaml:"sigma_step"`

	K0Min  string `yaml:"k0_min"`
	K0Max  string `yaml:"k0_max"`
	K0Step string `yaml:"k0_step"`

	// T0 anchors both tail envelopes.
	T0  string `yaml:"T0"`
	DPS uint32 `yaml:"dps"`

	Grid   int        `yaml:"grid"`
	Digits int        `yaml:"digits"`
	Bands  []BandSpec `yaml:"bands"`

	// Band search knobs.
	Tol      string `yaml:"tol"`
	MaxParts int    `yaml:"max_parts"`

	// PrimeBlockCap is the declared operator-norm cap carried into the
	// rollup; the sweep does not recompute it per point.
	PrimeBlockCap string `yaml:"prime_block_cap"`
	APrime        string `yaml:"A_prime"`
	K             int    `yaml:"K"`
	GridError     string `yaml:"grid_error"`

	Workers      int    `yaml:"workers"`
	PointTimeout string `yaml:"point_timeout"`
	OutDir       string `yaml:"outdir"`

	pointTimeout time.Duration
}

// Load reads and validates a sweep config from a YAML file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("sweep config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("sweep config: %w", err)
	}
	if err := cfg.Finalize(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Finalize fills defaults and checks the config. Must be called before
// the config is handed to a Runner; Load does it automatically.
func (cfg *Config) Finalize() error {
	for _, f := range []struct{ name, val string }{
		{"sigma_min", cfg.SigmaMin},
		{"sigma_max", cfg.SigmaMax},
		{"sigma_step", cfg.SigmaStep},
		{"k0_min", cfg.K0Min},
		{"k0_max", cfg.K0Max},
		{"k0_step", cfg.K0Step},
		{"prime_block_cap", cfg.PrimeBlockCap},
	} {
		if f.val == "" {
			return fmt.Errorf("sweep config: %s is required", f.name)
		}
	}

	if cfg.T0 == "" {
		cfg.T0 = "1000000000"
	}
	if cfg.DPS == 0 {
		cfg.DPS = dec.DefaultPrecision
	}
	if cfg.Grid == 0 {
		cfg.Grid = window.DefaultGrid
	}
	if cfg.Digits == 0 {
		cfg.Digits = window.DefaultDigits
	}
	if len(cfg.Bands) == 0 {
		cfg.Bands = []BandSpec{{Label: "critical", Left: "-0.50", Right: "0.50"}}
	}
	if cfg.Tol == "" {
		cfg.Tol = "1E-12"
	}
	if cfg.MaxParts == 0 {
		cfg.MaxParts = 4096
	}
	if cfg.K == 0 {
		cfg.K = tails.DefaultK
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.OutDir == "" {
		cfg.OutDir = "sweep_out"
	}
	if cfg.PointTimeout != "" {
		d, err := time.ParseDuration(cfg.PointTimeout)
		if err != nil {
			return fmt.Errorf("sweep config: point_timeout: %w", err)
		}
		if d < 0 {
			return fmt.Errorf("sweep config: point_timeout must be >= 0")
		}
		cfg.pointTimeout = d
	}
	return nil
}

// Point is one grid position, identified by its row-major index.
type Point struct {
	Idx   int
	Sigma string
	K0    string
}

// Points enumerates the inclusive grid in row-major order (sigma outer,
// k0 inner). Stepping is exact decimal arithmetic, so the endpoints are
// hit without the float-epsilon slop the inclusive range would otherwise
// need.
func (cfg *Config) Points(c *dec.Context) ([]Point, error) {
	sigmas, err := axisValues(c, cfg.SigmaMin, cfg.SigmaMax, cfg.SigmaStep, "sigma")
	if err != nil {
		return nil, err
	}
	k0s, err := axisValues(c, cfg.K0Min, cfg.K0Max, cfg.K0Step, "k0")
	if err != nil {
		return nil, err
	}

	points := make([]Point, 0, len(sigmas)*len(k0s))
	for _, s := range sigmas {
		for _, k := range k0s {
			points = append(points, Point{Idx: len(points), Sigma: s, K0: k})
		}
	}
	return points, nil
}

func axisValues(c *dec.Context, minS, maxS, stepS, name string) ([]string, error) {
	lo, err := c.Parse(minS)
	if err != nil {
		return nil, fmt.Errorf("sweep config: %s_min: %w", name, err)
	}
	hi, err := c.Parse(maxS)
	if err != nil {
		return nil, fmt.Errorf("sweep config: %s_max: %w", name, err)
	}
	step, err := c.Parse(stepS)
	if err != nil {
		return nil, fmt.Errorf("sweep config: %s_step: %w", name, err)
	}
	if step.Sign() <= 0 {
		return nil, fmt.Errorf("sweep config: %s_step must be > 0", name)
	}
	if lo.Cmp(hi) > 0 {
		return nil, fmt.Errorf("sweep config: %s_min > %s_max", name, name)
	}

	var out []string
	x := new(apd.Decimal).Set(lo)
	for x.Cmp(hi) <= 0 {
		s, err := axisKey(c, x)
		if err != nil {
			return nil, fmt.Errorf("sweep config: %s axis: %w", name, err)
		}
		out = append(out, s)
		next := new(apd.Decimal)
		if _, err := c.Rounded().Add(next, x, step); err != nil {
			return nil, fmt.Errorf("sweep config: %s axis: %w", name, err)
		}
		x = next
	}
	return out, nil
}

// axisKey renders a grid value with trailing fractional zeros stripped,
// so stepping 1.5 by 0.5 names the same trial "2" that a 2.0 endpoint
// would. Integers stay in plain notation: 10.0 reduces to 1E+1, which
// gets quantized back before rendering.
func axisKey(c *dec.Context, x *apd.Decimal) (string, error) {
	r, _ := new(apd.Decimal).Reduce(x)
	if r.Exponent > 0 {
		if _, err := c.Rounded().Quantize(r, r, 0); err != nil {
			return "", err
		}
	}
	return c.Format(r), nil
}
