package cert

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Path addresses a nested field inside an artifact, outermost key first.
type Path []string

func (p Path) String() string { return strings.Join(p, ".") }

// Field declares one logical quantity and the ordered structural aliases
// under which historical artifact layouts have stored it. The first
// resolvable alias wins.
//
// Optional fields fall back to Default when no alias resolves; this is
// reserved for genuinely optional additive terms (an absent grid-error
// bound defaults to "0", itself a valid if weak upper bound). Required
// fields with no resolvable alias fail loudly with MissingFieldError.
type Field struct {
	Logical  string
	Aliases  []Path
	Optional bool
	Default  string
}

// FieldMap is a declared mapping from logical field names to alias
// lists, validated once at registration time rather than re-interpreted
// at each lookup site.
type FieldMap struct {
	fields map[string]Field
}

// NewFieldMap validates and registers the given fields.
// Validation errors here are programming errors in the registering
// package, so they surface immediately rather than at first lookup.
func NewFieldMap(fields ...Field) (*FieldMap, error) {
	m := &FieldMap{fields: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Logical == "" {
			return nil, fmt.Errorf("field map: empty logical name")
		}
		if _, dup := m.fields[f.Logical]; dup {
			return nil, fmt.Errorf("field map: duplicate logical field %q", f.Logical)
		}
		if len(f.Aliases) == 0 {
			return nil, fmt.Errorf("field map: logical field %q has no aliases", f.Logical)
		}
		for _, p := range f.Aliases {
			if len(p) == 0 {
				return nil, fmt.Errorf("field map: logical field %q has an empty alias path", f.Logical)
			}
			for _, k := range p {
				if k == "" {
					return nil, fmt.Errorf("field map: logical field %q has an alias with an empty key", f.Logical)
				}
			}
		}
		m.fields[f.Logical] = f
	}
	return m, nil
}

// MustFieldMap is like NewFieldMap but panics on error. For package-level
// registries built from literals.
func MustFieldMap(fields ...Field) *FieldMap {
	m, err := NewFieldMap(fields...)
	if err != nil {
		panic(err)
	}
	return m
}

// MissingFieldError reports a required logical field that resolved under
// none of its declared aliases. This is MalformedInput: fatal, with the
// logical field named explicitly.
type MissingFieldError struct {
	Logical string
	Aliases []Path
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	paths := make([]string, len(e.Aliases))
	for i, p := range e.Aliases {
		paths[i] = p.String()
	}
	return fmt.Sprintf("missing bound: required field %q not found under any of [%s]",
		e.Logical, strings.Join(paths, ", "))
}

// IsMissingField reports whether err is (or wraps) a MissingFieldError.
func IsMissingField(err error) bool {
	var m *MissingFieldError
	return errors.As(err, &m)
}

// dig walks a nested path through the artifact. Returns (nil, false)
// when any step is absent or not an object.
func dig(a Artifact, p Path) (any, bool) {
	var cur any = map[string]any(a)
	for _, k := range p {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[k]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// resolveRaw returns the first alias hit, or the default, or a
// MissingFieldError. Empty strings and explicit "null" text count as
// absent, matching historical artifacts that stored placeholder text.
func (m *FieldMap) resolveRaw(a Artifact, logical string) (any, error) {
	f, ok := m.fields[logical]
	if !ok {
		return nil, fmt.Errorf("field map: unregistered logical field %q", logical)
	}
	for _, p := range f.Aliases {
		v, ok := dig(a, p)
		if !ok || v == nil {
			continue
		}
		if s, isStr := v.(string); isStr && (s == "" || s == "null") {
			continue
		}
		return v, nil
	}
	if f.Optional {
		return f.Default, nil
	}
	return nil, &MissingFieldError{Logical: logical, Aliases: f.Aliases}
}

// Resolve returns the logical field as a decimal string.
// Values stored as {lo, hi} objects or "[lo, hi]" interval strings are
// rejected here; use ResolveLo/ResolveHi for those.
func (m *FieldMap) Resolve(a Artifact, logical string) (string, error) {
	v, err := m.resolveRaw(a, logical)
	if err != nil {
		return "", err
	}
	s, err := scalarString(v)
	if err != nil {
		return "", fmt.Errorf("field %q: %w", logical, err)
	}
	return s, nil
}

// ResolveLo returns the lower endpoint of the logical field, accepting a
// plain decimal string, an "[lo, hi]" interval string, or a {lo, hi}
// object. A plain scalar serves as both of its own endpoints.
func (m *FieldMap) ResolveLo(a Artifact, logical string) (string, error) {
	return m.resolveEndpoint(a, logical, "lo")
}

// ResolveHi returns the upper endpoint of the logical field.
func (m *FieldMap) ResolveHi(a Artifact, logical string) (string, error) {
	return m.resolveEndpoint(a, logical, "hi")
}

func (m *FieldMap) resolveEndpoint(a Artifact, logical, side string) (string, error) {
	v, err := m.resolveRaw(a, logical)
	if err != nil {
		return "", err
	}
	switch val := v.(type) {
	case map[string]any:
		ep, ok := val[side]
		if !ok {
			return "", fmt.Errorf("field %q: object value lacks %q endpoint", logical, side)
		}
		s, err := scalarString(ep)
		if err != nil {
			return "", fmt.Errorf("field %q: %w", logical, err)
		}
		return s, nil
	case string:
		if lo, hi, ok := splitIntervalString(val); ok {
			if side == "lo" {
				return lo, nil
			}
			return hi, nil
		}
		return val, nil
	default:
		return scalarString(v)
	}
}

// ResolveBool returns the logical field as a boolean, with def as the
// fallback when the field is optional and absent. Historical artifacts
// sometimes stored booleans as "true"/"false" text.
func (m *FieldMap) ResolveBool(a Artifact, logical string, def bool) (bool, error) {
	v, err := m.resolveRaw(a, logical)
	if err != nil {
		if IsMissingField(err) {
			return def, nil
		}
		return false, err
	}
	switch val := v.(type) {
	case bool:
		return val, nil
	case string:
		switch strings.ToLower(val) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "0", "": // optional default passthrough
			return def, nil
		}
		return false, fmt.Errorf("field %q: not a boolean: %q", logical, val)
	default:
		return false, fmt.Errorf("field %q: not a boolean: %T", logical, v)
	}
}

// scalarString renders a scalar artifact value as its decimal string.
func scalarString(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case json.Number:
		return string(val), nil
	case int:
		return fmt.Sprintf("%d", val), nil
	case int64:
		return fmt.Sprintf("%d", val), nil
	default:
		return "", fmt.Errorf("not a scalar value: %T", v)
	}
}

// splitIntervalString parses the legacy "[lo, hi]" textual interval form.
func splitIntervalString(s string) (lo, hi string, ok bool) {
	t := strings.TrimSpace(s)
	if len(t) < 5 || t[0] != '[' || t[len(t)-1] != ']' || !strings.Contains(t, ",") {
		return "", "", false
	}
	parts := strings.SplitN(t[1:len(t)-1], ",", 2)
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1]), true
}
