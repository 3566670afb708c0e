package validate

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/build-context.schema.json
var buildContextSchema []byte

//go:embed schema/config.schema.json
var configSchema []byte

// ValidateAgainstSchema compiles schema under name and validates the JSON
// document data against it, optionally starting from the fragment ref.
func ValidateAgainstSchema(name string, schema []byte, data []byte, ref string) error {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(name, bytes.NewReader(schema)); err != nil {
		return fmt.Errorf("loading schema %s: %w", name, err)
	}

	sch, err := compiler.Compile(name + ref)
	if err != nil {
		return fmt.Errorf("compiling schema %s: %w", name, err)
	}

	var doc interface{}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		var verr *jsonschema.ValidationError
		if errors.As(err, &verr) {
			return fmt.Errorf("schema validation against %s failed: %s", name, verr.Error())
		}
		return fmt.Errorf("schema validation against %s failed: %w", name, err)
	}
	return nil
}

// ValidateBuildContextJSON validates a resolved build context document.
func ValidateBuildContextJSON(data []byte) error {
	return ValidateAgainstSchema("build-context.schema.json", buildContextSchema, data, "")
}

// ValidateConfigJSON validates the global configuration document.
func ValidateConfigJSON(data []byte) error {
	return ValidateAgainstSchema("config.schema.json", configSchema, data, "")
}
