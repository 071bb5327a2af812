// Package config validates the JSON payloads accepted by the engine's
// load_config surface (§6) against a fixed JSON Schema before they are
// merged into the engine. Deserialization itself stays plain
// encoding/json — spec.md places "JSON (de)serialization of
// configuration" out of scope — but schema validation of the resulting
// structure is a domain concern worth carrying, following the same
// compile-then-validate idiom the teacher uses for runbook documents.
package config

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// deviceTypeSchema and testStepSchema are intentionally permissive: they
// check the shape the engine's merge logic depends on (required keys,
// basic types) without duplicating every invariant already enforced by
// Go's own struct decoding.
const deviceTypeSchemaJSON = `{
  "type": "object",
  "required": ["type_name", "plugin_id"],
  "properties": {
    "type_name": {"type": "string", "minLength": 1},
    "display_name": {"type": "string"},
    "plugin_id": {"type": "string", "minLength": 1},
    "instances": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "display_name": {"type": "string"},
          "address": {"type": "string"}
        }
      }
    },
    "commands": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": {"type": "string", "minLength": 1},
          "description": {"type": "string"}
        }
      }
    }
  }
}`

const testStepSchemaJSON = `{
  "type": "object",
  "required": ["step_id", "step_name", "execution_mode"],
  "properties": {
    "step_id": {"type": "integer"},
    "step_name": {"type": "string", "minLength": 1},
    "execution_mode": {"type": "integer", "minimum": 0, "maximum": 1},
    "check_type": {"type": "integer", "minimum": 0, "maximum": 2}
  }
}`

// Validator compiles the engine's config schemas once and validates
// arbitrary JSON payloads against them.
type Validator struct {
	deviceType *sjsonschema.Schema
	testStep   *sjsonschema.Schema
}

// NewValidator compiles the device-type and test-step schemas.
func NewValidator() (*Validator, error) {
	deviceType, err := compile("device_type.json", deviceTypeSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile device type schema: %w", err)
	}
	testStep, err := compile("test_step.json", testStepSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile test step schema: %w", err)
	}
	return &Validator{deviceType: deviceType, testStep: testStep}, nil
}

func compile(name, schemaJSON string) (*sjsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(schemaJSON), &doc); err != nil {
		return nil, err
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, doc); err != nil {
		return nil, err
	}
	return c.Compile(name)
}

// ValidateDeviceType validates a single device-type JSON document.
func (v *Validator) ValidateDeviceType(raw []byte) error {
	return validateAgainst(v.deviceType, raw)
}

// ValidateTestStep validates a single test-step JSON document.
func (v *Validator) ValidateTestStep(raw []byte) error {
	return validateAgainst(v.testStep, raw)
}

func validateAgainst(schema *sjsonschema.Schema, raw []byte) error {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			return fmt.Errorf("schema validation failed: %s", summarize(ve))
		}
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}

func summarize(ve *sjsonschema.ValidationError) string {
	var parts []string
	var walk func(*sjsonschema.ValidationError)
	walk = func(e *sjsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			path := strings.Join(e.InstanceLocation, "/")
			parts = append(parts, fmt.Sprintf("%s: %v", path, e.ErrorKind))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	return strings.Join(parts, "; ")
}
