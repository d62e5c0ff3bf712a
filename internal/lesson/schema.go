package lesson

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// lessonSchemaJSON is the contract the model's output must satisfy before any
// field-level checks run.
const lessonSchemaJSON = `{
  "type": "object",
  "required": ["title", "intro", "questions"],
  "additionalProperties": true,
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "intro": {
      "type": "array",
      "minItems": 1,
      "maxItems": 4,
      "items": {"type": "string", "minLength": 1}
    },
    "questions": {
      "type": "array",
      "minItems": 3,
      "maxItems": 3,
      "items": {
        "type": "object",
        "required": ["q", "options", "ans", "explain"],
        "properties": {
          "q": {"type": "string", "minLength": 1},
          "options": {
            "type": "array",
            "minItems": 4,
            "maxItems": 4,
            "items": {"type": "string"}
          },
          "ans": {"type": "string", "enum": ["A", "B", "C", "D"]},
          "explain": {"type": "string"}
        }
      }
    }
  }
}`

var (
	compiledSchema     *jsonschema.Schema
	compileSchemaOnce  sync.Once
	compileSchemaError error
)

// lessonSchema compiles the lesson schema once and caches it.
func lessonSchema() (*jsonschema.Schema, error) {
	compileSchemaOnce.Do(func() {
		var parsed any
		if err := json.Unmarshal([]byte(lessonSchemaJSON), &parsed); err != nil {
			compileSchemaError = fmt.Errorf("parse lesson schema: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		const schemaURL = "schema://lesson.json"
		if err := c.AddResource(schemaURL, parsed); err != nil {
			compileSchemaError = fmt.Errorf("add lesson schema resource: %w", err)
			return
		}
		compiledSchema, compileSchemaError = c.Compile(schemaURL)
		if compileSchemaError != nil {
			compileSchemaError = fmt.Errorf("compile lesson schema: %w", compileSchemaError)
		}
	})
	return compiledSchema, compileSchemaError
}

// validateAgainstSchema checks raw lesson JSON against the compiled schema.
func validateAgainstSchema(raw []byte) error {
	schema, err := lessonSchema()
	if err != nil {
		return err
	}
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
