package schema

import (
	"github.com/roach88/attest/internal/cert"
)

// artifactSchemas holds one CUE definition per artifact kind. Every
// struct is explicitly open: artifacts routinely carry extra diagnostic
// fields and tightening that retroactively would reject old chains.
const artifactSchemas = `
#Decimal: string & =~"^[+-]?[0-9]+(\\.[0-9]+)?([eE][+-]?[0-9]+)?$"

#Meta: {
	tool:        string
	dps:         int & >0
	created_utc: string
	sha256?:     string & =~"^[0-9a-f]{64}$"
	...
}

#window: {
	kind:  "window"
	mode:  string
	sigma: #Decimal
	k0:    #Decimal
	window: {
		mode:  string
		sigma: #Decimal
		k0:    #Decimal
		...
	}
	meta: #Meta
	...
}

#bands: {
	kind: "bands"
	bands: [...{
		label: string
		left:  #Decimal
		right: #Decimal
		...
	}]
	named_grids: {
		[string]: {
			left:  #Decimal
			right: #Decimal
			grid:  int & >1
			h:     #Decimal
			nodes: [...#Decimal]
			...
		}
	}
	meta: #Meta
	...
}

#band_cert: {
	kind:   "band_cert"
	inputs: {...}
	band_cert: {
		band_margin: {
			lo: #Decimal
			hi: #Decimal
			...
		}
		status: "PASS" | "FAIL"
		...
	}
	PASS: bool
	meta: #Meta
	...
}

#rolling_T_uniform: {
	kind:   "rolling_T_uniform"
	inputs: {...}
	bounds: {
		eps_eff_lo:    #Decimal
		grid_error_hi: #Decimal
		prime_tail: {
			C: #Decimal
			a: #Decimal
			...
		}
		gamma_tail: {
			C: #Decimal
			a: #Decimal
			...
		}
		...
	}
	mesh: {
		intervals: int & >=0
		max_depth: int & >=0
		...
	}
	result: {
		PASS:      bool
		delta_min: #Decimal
		witness: {
			T_left:  #Decimal
			T_right: #Decimal
			...
		}
		...
	}
	PASS: bool
	meta: #Meta
	...
}

#gamma_tails: {
	kind:   "gamma_tails"
	inputs: {...}
	gamma_tails: {
		gamma_env_at_T0: #Decimal
		tails_total:     #Decimal
		...
	}
	meta: #Meta
	...
}

#prime_tail_envelope: {
	kind: "prime_tail_envelope"
	inputs: {
		T0:      #Decimal
		sigma:   #Decimal
		k0:      #Decimal
		A_prime: #Decimal
		K:       int & >=0
		...
	}
	prime_tail: {
		env_T0_hi: #Decimal
		norm:      #Decimal
		...
	}
	meta: #Meta
	...
}

#analytic_tail_fit: {
	kind:   "analytic_tail_fit"
	inputs: {...}
	bounds: {
		eps_eff_lo:    #Decimal
		grid_error_hi: #Decimal
		prime_tail: {
			C:  #Decimal
			a:  #Decimal
			T0: #Decimal
			...
		}
		gamma_tail: {
			C:  #Decimal
			a:  #Decimal
			T0: #Decimal
			...
		}
		...
	}
	meta: #Meta
	...
}

#subspace_psd_cholesky: {
	kind:   "subspace_psd_cholesky"
	inputs: {...}
	result: {
		chol_success:  bool
		pivot_success: bool
		rank:          int & >=0
		psd_certified: bool
		min_diag_L?:   #Decimal
		min_pivot?:    #Decimal
		...
	}
	meta: #Meta
	...
}

#prime_block_norm: {
	kind: "prime_block_norm"
	prime_block_norm: {
		used_operator_norm: #Decimal
		...
	}
	meta: #Meta
	...
}

#grid_error_bound: {
	kind: "grid_error_bound"
	grid_error_bound: {
		bound_hi: #Decimal
		...
	}
	meta: #Meta
	...
}

#uniform_certificate: {
	kind:   "uniform_certificate"
	inputs: {...}
	uniform_certificate: {
		band_margin:     #Decimal
		gamma_env_at_T0: #Decimal
		epsilon_eff:     #Decimal
		prime_block_cap: #Decimal
		prime_tail_norm: #Decimal
		grid_error_norm: #Decimal
		lhs_total:       #Decimal
		PSD_verified:    bool
		...
	}
	PASS: bool
	meta: #Meta
	...
}
`

// kindDefs maps an artifact kind to its schema definition path.
var kindDefs = map[string]string{
	cert.KindWindow:    "#window",
	cert.KindBands:     "#bands",
	cert.KindBandCert:  "#band_cert",
	cert.KindRollingT:  "#rolling_T_uniform",
	cert.KindGammaTail: "#gamma_tails",
	cert.KindPrimeTail: "#prime_tail_envelope",
	cert.KindTailFit:   "#analytic_tail_fit",
	cert.KindPSDCert:   "#subspace_psd_cholesky",
	cert.KindUniform:   "#uniform_certificate",

	// Auxiliary chain members without their own packages.
	"prime_block_norm": "#prime_block_norm",
	"grid_error_bound": "#grid_error_bound",
}
