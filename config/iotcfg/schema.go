package iotcfg

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiledSchema, schemaErr = jsonschema.CompileString("iotops://schema.json", schemaJSON)
	})
	return compiledSchema, schemaErr
}

// validateSchema checks raw YAML against the embedded document schema.
func validateSchema(data []byte) error {
	schema, err := documentSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to unmarshal YAML: %w", err)
	}
	if doc == nil {
		doc = map[string]any{}
	}

	// The validator expects values shaped like encoding/json output.
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(jsonData, &jsonDoc); err != nil {
		return fmt.Errorf("failed to convert YAML to JSON: %w", err)
	}
	return schema.Validate(jsonDoc)
}
