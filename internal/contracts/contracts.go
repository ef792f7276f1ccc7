// Package contracts validates request bodies against embedded JSON schemas
// before they are decoded into DTOs.
package contracts

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Schema names an embedded payload schema.
type Schema string

const (
	SchemaListing      Schema = "listing"
	SchemaAgencyCreate Schema = "agency-create"
	SchemaAgencyUpdate Schema = "agency-update"
	SchemaRegister     Schema = "register"
	SchemaLogin        Schema = "login"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// FieldError points at one offending location in the payload.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned when a body is malformed or violates its schema.
type ValidationError struct {
	Message string
	Fields  []FieldError
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Details renders the field errors for an error response body.
func (e *ValidationError) Details() map[string]any {
	if len(e.Fields) == 0 {
		return nil
	}
	return map[string]any{"fields": e.Fields}
}

// Validator holds the compiled schemas.
type Validator struct {
	schemas map[Schema]*jsonschema.Schema
}

// NewValidator compiles every embedded schema.
func NewValidator() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7

	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, err
	}

	v := &Validator{schemas: make(map[Schema]*jsonschema.Schema, len(entries))}
	for _, entry := range entries {
		name := entry.Name()
		data, err := schemaFS.ReadFile("schemas/" + name)
		if err != nil {
			return nil, err
		}
		if err := compiler.AddResource(name, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		compiled, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[Schema(strings.TrimSuffix(name, ".json"))] = compiled
	}
	return v, nil
}

// MustNewValidator panics when an embedded schema does not compile.
func MustNewValidator() *Validator {
	v, err := NewValidator()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks body against the named schema.
func (v *Validator) Validate(name Schema, body []byte) error {
	schema, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("schema %q not registered", name)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return &ValidationError{Message: "invalid JSON payload"}
	}

	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	var verr *jsonschema.ValidationError
	if !errors.As(err, &verr) {
		return err
	}

	out := &ValidationError{Message: "payload failed validation"}
	for _, unit := range verr.BasicOutput().Errors {
		// the root unit only repeats "doesn't validate with ..."
		if unit.KeywordLocation == "" {
			continue
		}
		field := strings.TrimPrefix(unit.InstanceLocation, "/")
		if field == "" {
			field = "body"
		}
		out.Fields = append(out.Fields, FieldError{Field: field, Message: unit.Error})
	}
	return out
}
