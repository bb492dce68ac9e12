package window

import (
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
	"github.com/roach88/attest/internal/rigor"
)

// Defaults for band grid generation.
const (
	DefaultGrid   = 6000
	DefaultDigits = 80
)

// GridSpec names one band and its endpoints.
type GridSpec struct {
	Label string
	Left  *apd.Decimal
	Right *apd.Decimal
}

// BandsOptions configure grid generation. WindowPath and WindowMode are
// recorded for traceability only.
type BandsOptions struct {
	Grid       int
	Digits     int
	WindowPath string
	WindowMode string
}

// MakeBands builds the bands artifact: the flat band list plus a
// uniform named grid per band, all endpoints, steps and nodes stored as
// decimal strings quantized to the requested digit count. The last
// reconstructed node must round to the right endpoint, otherwise the
// grid does not close and the artifact is refused.
func MakeBands(c *dec.Context, specs []GridSpec, opts BandsOptions, now time.Time) (cert.Artifact, error) {
	if opts.Grid == 0 {
		opts.Grid = DefaultGrid
	}
	if opts.Grid < 2 {
		return nil, fmt.Errorf("bands: grid must be >= 2, got %d", opts.Grid)
	}
	if opts.Digits <= 0 {
		opts.Digits = DefaultDigits
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("bands: at least one band is required")
	}

	// Work a little above the storage digit count so quantization, not
	// arithmetic, decides every stored digit.
	prec := uint32(opts.Digits + 20)
	if prec < 100 {
		prec = 100
	}
	ctx := apd.BaseContext.WithPrecision(prec)
	quant := func(d *apd.Decimal) (string, error) {
		q := new(apd.Decimal)
		if _, err := ctx.Quantize(q, d, int32(-opts.Digits)); err != nil {
			return "", err
		}
		return q.String(), nil
	}

	flat := make([]any, 0, len(specs))
	grids := map[string]any{}
	var criticalLeft, criticalRight string
	for _, sp := range specs {
		if sp.Left.Cmp(sp.Right) >= 0 {
			return nil, fmt.Errorf("bands: %s band requires left < right", sp.Label)
		}

		span := new(apd.Decimal)
		if _, err := ctx.Sub(span, sp.Right, sp.Left); err != nil {
			return nil, err
		}
		h := new(apd.Decimal)
		if _, err := ctx.Quo(h, span, apd.New(int64(opts.Grid-1), 0)); err != nil {
			return nil, err
		}

		nodes := make([]string, opts.Grid)
		var last *apd.Decimal
		for i := 0; i < opts.Grid; i++ {
			x := new(apd.Decimal)
			if _, err := ctx.Mul(x, h, apd.New(int64(i), 0)); err != nil {
				return nil, err
			}
			if _, err := ctx.Add(x, sp.Left, x); err != nil {
				return nil, err
			}
			s, err := quant(x)
			if err != nil {
				return nil, err
			}
			nodes[i] = s
			last = x
		}

		rightS, err := quant(sp.Right)
		if err != nil {
			return nil, err
		}
		lastS, err := quant(last)
		if err != nil {
			return nil, err
		}
		if lastS != rightS {
			return nil, fmt.Errorf("bands: %s grid does not close: left + h*(n-1) = %s, right = %s",
				sp.Label, lastS, rightS)
		}
		leftS, err := quant(sp.Left)
		if err != nil {
			return nil, err
		}
		hS, err := quant(h)
		if err != nil {
			return nil, err
		}

		grids[sp.Label] = map[string]any{
			"left":  leftS,
			"right": rightS,
			"grid":  opts.Grid,
			"h":     hS,
			"nodes": nodes,
		}
		flat = append(flat, map[string]any{
			"label": sp.Label,
			"left":  leftS,
			"right": rightS,
		})
		if sp.Label == "critical" {
			criticalLeft, criticalRight = leftS, rightS
		}
	}

	meta := cert.NewMeta("bands_make", c.Precision(), now)
	meta["grid"] = opts.Grid

	a := cert.Artifact{
		"kind":    cert.KindBands,
		"version": "1.2",
		"source_window": map[string]any{
			"window_config_path": opts.WindowPath,
			"mode":               opts.WindowMode,
		},
		"bands":       flat,
		"named_grids": grids,
		"grid_N":      opts.Grid,
		"bands_count": len(flat),
		"meta":        meta,
	}
	if criticalLeft != "" {
		a["critical_left"] = criticalLeft
		a["critical_right"] = criticalRight
	}
	return a, nil
}

// ParseBands extracts a band list from any historical shape:
//
//  1. a bare list of {left, right, label?} objects
//  2. {"bands": [ ... ]}
//  3. {"bands": {name: {left, right}, ...}}
//  4. {"named_grids": {name: {left, right}, ...}}
//
// Named-object shapes are read in sorted name order so the result is
// deterministic.
func ParseBands(c *dec.Context, v any) ([]rigor.Band, error) {
	if list, ok := v.([]any); ok {
		return coerceBandList(c, list)
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("bands JSON has no recognizable band list")
	}
	if list, ok := obj["bands"].([]any); ok {
		return coerceBandList(c, list)
	}
	for _, key := range []string{"bands", "named_grids"} {
		named, ok := obj[key].(map[string]any)
		if !ok || len(named) == 0 {
			continue
		}
		names := make([]string, 0, len(named))
		for name := range named {
			names = append(names, name)
		}
		sort.Strings(names)

		out := make([]rigor.Band, 0, len(names))
		for _, name := range names {
			spec, ok := named[name].(map[string]any)
			if !ok {
				return nil, fmt.Errorf("%s[%q] is not an object", key, name)
			}
			b, err := coerceBand(c, spec, name)
			if err != nil {
				return nil, fmt.Errorf("%s[%q]: %w", key, name, err)
			}
			out = append(out, b)
		}
		return out, nil
	}
	return nil, fmt.Errorf("bands JSON has no recognizable band list")
}

func coerceBandList(c *dec.Context, list []any) ([]rigor.Band, error) {
	out := make([]rigor.Band, 0, len(list))
	for i, item := range list {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("band %d is not an object", i)
		}
		label := fmt.Sprintf("band_%d", i)
		if l, ok := obj["label"].(string); ok {
			label = l
		}
		b, err := coerceBand(c, obj, label)
		if err != nil {
			return nil, fmt.Errorf("band %d: %w", i, err)
		}
		out = append(out, b)
	}
	return out, nil
}

func coerceBand(c *dec.Context, obj map[string]any, label string) (rigor.Band, error) {
	lv, ok := obj["left"]
	if !ok {
		return rigor.Band{}, fmt.Errorf("missing 'left'")
	}
	rv, ok := obj["right"]
	if !ok {
		return rigor.Band{}, fmt.Errorf("missing 'right'")
	}
	left, err := c.Parse(fmt.Sprintf("%v", lv))
	if err != nil {
		return rigor.Band{}, fmt.Errorf("left endpoint: %w", err)
	}
	right, err := c.Parse(fmt.Sprintf("%v", rv))
	if err != nil {
		return rigor.Band{}, fmt.Errorf("right endpoint: %w", err)
	}
	return rigor.NewBand(left, right, label)
}
