package cert

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMap(t *testing.T) *FieldMap {
	t.Helper()
	m, err := NewFieldMap(
		Field{
			Logical: "band_margin",
			Aliases: []Path{
				{"numbers", "band_margin_lo"},
				{"band_cert", "band_margin", "lo"},
				{"band_margin_lo"},
			},
		},
		Field{
			Logical:  "grid_error",
			Aliases:  []Path{{"grid_error_bound", "bound_hi"}, {"grid_error_norm"}},
			Optional: true,
			Default:  "0",
		},
		Field{
			Logical:  "psd_verified",
			Aliases:  []Path{{"PSD_verified"}, {"bochner_psd", "PSD_verified"}},
			Optional: true,
			Default:  "true",
		},
	)
	require.NoError(t, err)
	return m
}

func TestFieldMap_FirstAliasWins(t *testing.T) {
	m := testMap(t)
	a := Artifact{
		"numbers":   map[string]any{"band_margin_lo": "0.50"},
		"band_cert": map[string]any{"band_margin": map[string]any{"lo": "0.49"}},
	}
	v, err := m.Resolve(a, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.50", v)
}

func TestFieldMap_FallsBackThroughAliases(t *testing.T) {
	m := testMap(t)

	// Canonical path absent: the nested historical layout still resolves.
	nested := Artifact{"band_cert": map[string]any{"band_margin": map[string]any{"lo": "0.49"}}}
	v, err := m.Resolve(nested, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.49", v)

	// Oldest flat layout.
	flat := Artifact{"band_margin_lo": "0.48"}
	v, err = m.Resolve(flat, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.48", v)
}

func TestFieldMap_RequiredMissingFailsLoudly(t *testing.T) {
	m := testMap(t)
	_, err := m.Resolve(Artifact{"unrelated": "x"}, "band_margin")
	require.Error(t, err)
	assert.True(t, IsMissingField(err))
	assert.Contains(t, err.Error(), `"band_margin"`, "error must name the logical field")
}

func TestFieldMap_OptionalDefaultsQuietly(t *testing.T) {
	m := testMap(t)
	v, err := m.Resolve(Artifact{}, "grid_error")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestFieldMap_EmptyAndNullTextCountAsAbsent(t *testing.T) {
	m := testMap(t)
	a := Artifact{
		"numbers":        map[string]any{"band_margin_lo": "null"},
		"band_margin_lo": "0.47",
	}
	v, err := m.Resolve(a, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.47", v)
}

func TestFieldMap_ResolveEndpoints(t *testing.T) {
	m := testMap(t)

	// {lo, hi} object form.
	obj := Artifact{"numbers": map[string]any{"band_margin_lo": map[string]any{"lo": "0.4", "hi": "0.5"}}}
	lo, err := m.ResolveLo(obj, "band_margin")
	require.NoError(t, err)
	hi, err := m.ResolveHi(obj, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.4", lo)
	assert.Equal(t, "0.5", hi)

	// "[lo, hi]" interval string form.
	str := Artifact{"numbers": map[string]any{"band_margin_lo": "[0.4, 0.5]"}}
	lo, err = m.ResolveLo(str, "band_margin")
	require.NoError(t, err)
	hi, err = m.ResolveHi(str, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.4", lo)
	assert.Equal(t, "0.5", hi)

	// Plain scalar serves as both endpoints.
	plain := Artifact{"numbers": map[string]any{"band_margin_lo": "0.45"}}
	lo, err = m.ResolveLo(plain, "band_margin")
	require.NoError(t, err)
	hi, err = m.ResolveHi(plain, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.45", lo)
	assert.Equal(t, "0.45", hi)
}

func TestFieldMap_ResolveBool(t *testing.T) {
	m := testMap(t)

	v, err := m.ResolveBool(Artifact{"PSD_verified": true}, "psd_verified", true)
	require.NoError(t, err)
	assert.True(t, v)

	v, err = m.ResolveBool(Artifact{"PSD_verified": "false"}, "psd_verified", true)
	require.NoError(t, err)
	assert.False(t, v)

	// Absent optional: default applies.
	v, err = m.ResolveBool(Artifact{}, "psd_verified", true)
	require.NoError(t, err)
	assert.True(t, v)
}

func TestFieldMap_JSONNumberScalars(t *testing.T) {
	m := testMap(t)
	a := Artifact{"numbers": map[string]any{"band_margin_lo": json.Number("0.50")}}
	v, err := m.Resolve(a, "band_margin")
	require.NoError(t, err)
	assert.Equal(t, "0.50", v)
}

func TestNewFieldMap_RegistrationValidation(t *testing.T) {
	_, err := NewFieldMap(Field{Logical: "", Aliases: []Path{{"x"}}})
	assert.Error(t, err, "empty logical name rejected")

	_, err = NewFieldMap(Field{Logical: "a", Aliases: nil})
	assert.Error(t, err, "alias-free field rejected")

	_, err = NewFieldMap(Field{Logical: "a", Aliases: []Path{{}}})
	assert.Error(t, err, "empty alias path rejected")

	_, err = NewFieldMap(
		Field{Logical: "a", Aliases: []Path{{"x"}}},
		Field{Logical: "a", Aliases: []Path{{"y"}}},
	)
	assert.Error(t, err, "duplicate logical name rejected")
}
