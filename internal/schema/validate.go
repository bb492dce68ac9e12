package schema

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"

	"github.com/roach88/attest/internal/cert"
)

// Validation error codes (E120-E139)
const (
	ErrMissingKind     = "E120" // artifact has no kind field
	ErrUnknownKind     = "E121" // no schema registered for kind
	ErrEncodeArtifact  = "E122" // artifact cannot be rendered as JSON
	ErrSchemaCompile   = "E123" // schema source failed to compile
	ErrSchemaViolation = "E124" // artifact violates its kind schema
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var compileSchemas = sync.OnceValues(func() (*cue.Context, cue.Value) {
	ctx := cuecontext.New()
	return ctx, ctx.CompileString(artifactSchemas)
})

// Validate checks an artifact against the schema for its kind.
// Returns all errors found (does not fail-fast).
func Validate(a cert.Artifact) []ValidationError {
	kind := a.Kind()
	if kind == "" {
		return []ValidationError{{
			Field:   "kind",
			Message: "artifact has no kind",
			Code:    ErrMissingKind,
		}}
	}

	defPath, ok := kindDefs[kind]
	if !ok {
		return []ValidationError{{
			Field:   "kind",
			Message: fmt.Sprintf("no schema for kind %q", kind),
			Code:    ErrUnknownKind,
		}}
	}

	data, err := json.Marshal(a)
	if err != nil {
		return []ValidationError{{
			Field:   "artifact",
			Message: err.Error(),
			Code:    ErrEncodeArtifact,
		}}
	}

	ctx, root := compileSchemas()
	if err := root.Err(); err != nil {
		return []ValidationError{{
			Field:   "schema",
			Message: err.Error(),
			Code:    ErrSchemaCompile,
		}}
	}
	def := root.LookupPath(cue.ParsePath(defPath))

	val := ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return []ValidationError{{
			Field:   "artifact",
			Message: err.Error(),
			Code:    ErrEncodeArtifact,
		}}
	}

	// Concrete(true) turns a missing required field into an incomplete
	// value error instead of a silently satisfiable constraint.
	unified := def.Unify(val)
	verr := unified.Validate(cue.Concrete(true))
	if verr == nil {
		return nil
	}

	var out []ValidationError
	for _, e := range errors.Errors(verr) {
		out = append(out, ValidationError{
			Field:   fieldPath(e),
			Message: e.Error(),
			Code:    ErrSchemaViolation,
		})
	}
	return out
}

// fieldPath renders a CUE error path as a dotted field reference.
func fieldPath(e errors.Error) string {
	path := e.Path()
	if len(path) == 0 {
		return "artifact"
	}
	return strings.Join(path, ".")
}
