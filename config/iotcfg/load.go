package iotcfg

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"

	"github.com/yaegashi/iotops/domain/model"
)

// DefaultPath is used when neither --config nor IOTOPS_CONFIG is given.
const DefaultPath = "iotops.yml"

// Load reads and strictly decodes the document at path.
func Load(path string) (*ComponentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	return Parse(data)
}

// Parse strictly decodes a document. Unknown fields at any level are rejected
// first by the embedded schema and then by the decoder.
func Parse(data []byte) (*ComponentConfig, error) {
	if err := validateSchema(data); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return nil, model.NewConfigError(schemaLocation(ve), "%s", schemaMessage(ve))
		}
		return nil, model.NewConfigError("", "%v", err)
	}

	var cfg ComponentConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, model.NewConfigError("", "%v", err)
	}
	return &cfg, nil
}

// schemaLocation returns the instance location of the innermost cause.
func schemaLocation(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	if leaf.InstanceLocation == "" {
		return "/"
	}
	return leaf.InstanceLocation
}

func schemaMessage(ve *jsonschema.ValidationError) string {
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	return leaf.Message
}
