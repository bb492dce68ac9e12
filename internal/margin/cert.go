package margin

import (
	"time"

	"github.com/roach88/attest/internal/cert"
	"github.com/roach88/attest/internal/dec"
)

// BuildCertificate assembles the rolling_T_uniform artifact from a
// completed verification. The bounds block echoes the worst-case
// endpoints actually used, not the raw input file, so the certificate
// stands alone.
func BuildCertificate(c *dec.Context, p Params, r *Result, now time.Time) cert.Artifact {
	witness := map[string]any{
		"T_left":  c.Format(r.Witness.TLeft),
		"T_right": c.Format(r.Witness.TRight),
	}
	if r.Witness.Mode != "" {
		witness["T_star"] = c.Format(r.Witness.TStar)
		witness["delta_at_T_star"] = c.Format(r.Witness.DeltaAtTStar)
		witness["depth"] = r.Witness.Depth
		witness["mode"] = r.Witness.Mode
	}

	return cert.Artifact{
		"kind": cert.KindRollingT,
		"inputs": map[string]any{
			"T0":           c.Format(r.ClampedT0),
			"T1":           c.Format(p.T1),
			"delta_target": c.Format(p.Target),
			"mesh_initial": p.MeshInitial,
			"mesh_max":     p.MeshMax,
			"dps":          int(c.Precision()),
		},
		"bounds": map[string]any{
			"eps_eff_lo":    c.Format(p.EpsEffLo),
			"grid_error_hi": c.Format(p.GridHi),
			"prime_tail": map[string]any{
				"C": c.Format(p.PrimeTail.C),
				"a": c.Format(p.PrimeTail.A),
			},
			"gamma_tail": map[string]any{
				"C": c.Format(p.GammaTail.C),
				"a": c.Format(p.GammaTail.A),
			},
		},
		"mesh": map[string]any{
			"intervals": r.Intervals,
			"max_depth": r.MaxDepth,
		},
		"result": map[string]any{
			"PASS":      r.Pass,
			"delta_min": c.Format(r.DeltaMin),
			"witness":   witness,
		},
		"PASS": r.Pass,
		"meta": cert.NewMeta("rolling_T_uniform_cert", c.Precision(), now),
	}
}
