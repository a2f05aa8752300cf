// Package schema validates decoded JSON payloads against compiled JSON Schemas.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemasFS embed.FS

// Names of the built-in schemas.
const (
	CreateTask   = "create_task"
	ReplaceLists = "replace_lists"
)

// Schema is a compiled schema. Compile once and share; it is safe for
// concurrent use.
type Schema struct {
	compiled *jsonschema.Schema
}

// FieldError is a single violation located by JSON pointer into the payload.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) String() string {
	return e.Path + ": " + e.Message
}

// Compile compiles a JSON Schema document.
func Compile(name string, source []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = true

	url := "https://taskboard.local/schemas/" + name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(source)); err != nil {
		return nil, fmt.Errorf("add schema %s: %w", name, err)
	}
	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %s: %w", name, err)
	}
	return &Schema{compiled: compiled}, nil
}

// Builtin compiles one of the schemas shipped with the package.
func Builtin(name string) (*Schema, error) {
	source, err := schemasFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}
	return Compile(name, source)
}

// MustBuiltin is like Builtin but panics on error.
func MustBuiltin(name string) *Schema {
	s, err := Builtin(name)
	if err != nil {
		panic(err)
	}
	return s
}

// Validate checks payload against s and returns every violation, or nil
// when the payload is accepted. payload must be a decoded JSON value
// (map[string]any, []any, string, float64, bool or nil).
func Validate(s *Schema, payload any) []FieldError {
	err := s.compiled.Validate(payload)
	if err == nil {
		return nil
	}

	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []FieldError{{Path: "/", Message: err.Error()}}
	}

	var out []FieldError
	collectFieldErrors(ve, &out)
	if len(out) == 0 {
		out = append(out, FieldError{Path: pointer(ve.InstanceLocation), Message: ve.Message})
	}
	return out
}

func collectFieldErrors(err *jsonschema.ValidationError, out *[]FieldError) {
	if len(err.Causes) == 0 {
		*out = append(*out, FieldError{
			Path:    pointer(err.InstanceLocation),
			Message: err.Message,
		})
		return
	}
	for _, cause := range err.Causes {
		collectFieldErrors(cause, out)
	}
}

func pointer(loc string) string {
	loc = strings.TrimPrefix(loc, "#")
	if loc == "" {
		return "/"
	}
	return loc
}

// Decode reads a JSON document into a generic value suitable for Validate.
// Trailing data after the first value is rejected.
func Decode(r io.Reader) (any, error) {
	dec := json.NewDecoder(r)
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	if dec.More() {
		return nil, errors.New("decode json: unexpected data after top-level value")
	}
	return v, nil
}
