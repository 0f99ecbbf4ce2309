// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package config

import (
	"encoding/json"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// Compiled schema, cached because the reflected Config schema is immutable
// at runtime.
var (
	schemaOnce sync.Once
	schemaComp *jschema.Schema
	schemaErr  error
)

// SchemaID is the schema $id for use in config files.
const SchemaID = "https://sessionforge.dev/schemas/config.schema.json"

// GenerateSchema generates a JSON Schema from the Config struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Config{})
	schema.ID = jsonschema.ID(SchemaID)
	schema.Title = "SessionForge Server Configuration"
	schema.Description = "Schema for sessionforge.yaml configuration files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_MARSHAL_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema validates YAML config data against the generated schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return oops.Code("CONFIG_INVALID").Errorf("config data is empty")
	}

	var yamlData any
	if err := yaml.Unmarshal(data, &yamlData); err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "parse yaml").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}

	if err := sch.Validate(convertToJSONTypes(yamlData)); err != nil {
		return oops.Code("CONFIG_INVALID").With("operation", "schema validation").Wrap(err)
	}
	return nil
}

// compiledSchema returns the cached compiled schema.
func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		schemaBytes, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}

		var schemaData any
		if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").With("operation", "parse schema json").Wrap(err)
			return
		}

		c := jschema.NewCompiler()
		if err := c.AddResource("config.schema.json", schemaData); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").With("operation", "add resource").Wrap(err)
			return
		}
		schemaComp, schemaErr = c.Compile("config.schema.json")
		if schemaErr != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(schemaErr)
		}
	})
	return schemaComp, schemaErr
}

// convertToJSONTypes recursively converts YAML-parsed values into the
// JSON-compatible types the schema validator expects.
func convertToJSONTypes(v any) any {
	switch val := v.(type) {
	case map[string]any:
		result := make(map[string]any, len(val))
		for k, item := range val {
			result[k] = convertToJSONTypes(item)
		}
		return result
	case []any:
		result := make([]any, len(val))
		for i, item := range val {
			result[i] = convertToJSONTypes(item)
		}
		return result
	default:
		return val
	}
}
