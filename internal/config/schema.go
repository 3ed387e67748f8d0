// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Connectix Contributors

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

// SchemaID is the $id of the config file schema.
const SchemaID = "https://connectix.dev/schemas/config.schema.json"

var (
	schemaOnce sync.Once
	schema     *jschema.Schema
	schemaErr  error
)

// GenerateSchema reflects the JSON Schema for config files from Config.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	s := r.Reflect(&Config{})
	s.ID = jsonschema.ID(SchemaID)
	s.Title = "Connectix Configuration"
	s.Description = "Schema for connectix.yaml config files"

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
	}
	return data, nil
}

// ValidateSchema checks YAML config data against the generated schema.
// An empty document is valid.
func ValidateSchema(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return oops.Code("CONFIG_INVALID_YAML").Wrap(err)
	}
	if doc == nil {
		return nil
	}

	// Round-trip through JSON so numbers reach the validator as json.Number.
	raw, err := json.Marshal(doc)
	if err != nil {
		return oops.Code("CONFIG_INVALID_YAML").With("operation", "convert yaml to json").Wrap(err)
	}
	inst, err := jschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return oops.Code("CONFIG_INVALID_YAML").With("operation", "decode json").Wrap(err)
	}

	sch, err := compiledSchema()
	if err != nil {
		return err
	}
	if err := sch.Validate(inst); err != nil {
		return oops.Code("CONFIG_SCHEMA_VIOLATION").Wrap(err)
	}
	return nil
}

func compiledSchema() (*jschema.Schema, error) {
	schemaOnce.Do(func() {
		data, err := GenerateSchema()
		if err != nil {
			schemaErr = err
			return
		}
		doc, err := jschema.UnmarshalJSON(bytes.NewReader(data))
		if err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		c := jschema.NewCompiler()
		if err := c.AddResource(SchemaID, doc); err != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(err)
			return
		}
		schema, schemaErr = c.Compile(SchemaID)
		if schemaErr != nil {
			schemaErr = oops.Code("SCHEMA_COMPILE_FAILED").Wrap(schemaErr)
		}
	})
	return schema, schemaErr
}

// FormatSchemaError returns the validator's own message when err carries a
// schema violation.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	var verr *jschema.ValidationError
	if errors.As(err, &verr) {
		return strings.TrimSpace(verr.Error())
	}
	return err.Error()
}
