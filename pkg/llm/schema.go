package llm

import (
	"embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema is a compiled JSON Schema for one phase's payload.
type Schema struct {
	name   string
	schema *gojsonschema.Schema
}

// SchemaFieldError is one schema violation.
type SchemaFieldError struct {
	Field   string
	Message string
}

// SchemaValidationError lists every violation in a document.
type SchemaValidationError struct {
	Schema string
	Errors []SchemaFieldError
}

func (e *SchemaValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fmt.Sprintf("%s: %s", fe.Field, fe.Message))
	}
	return fmt.Sprintf("%s schema: %s", e.Schema, strings.Join(parts, "; "))
}

// Phase payload schemas.
var (
	UnderstandingSchema   = mustLoadSchema("understanding")
	PainPointsSchema      = mustLoadSchema("pain_points")
	RecommendationsSchema = mustLoadSchema("recommendations")
	TargetProcessSchema   = mustLoadSchema("target_process")
)

func mustLoadSchema(name string) *Schema {
	content, err := schemaFS.ReadFile("schemas/" + name + ".json")
	if err != nil {
		panic(fmt.Sprintf("read schema %s: %v", name, err))
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(content))
	if err != nil {
		panic(fmt.Sprintf("compile schema %s: %v", name, err))
	}
	return &Schema{name: name, schema: s}
}

// Name returns the schema's file name without extension.
func (s *Schema) Name() string { return s.name }

// Validate checks doc against the schema.
func (s *Schema) Validate(doc []byte) error {
	result, err := s.schema.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("validate against %s schema: %w", s.name, err)
	}
	if result.Valid() {
		return nil
	}

	verr := &SchemaValidationError{
		Schema: s.name,
		Errors: make([]SchemaFieldError, 0, len(result.Errors())),
	}
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		verr.Errors = append(verr.Errors, SchemaFieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}
	return verr
}
