package keepaliveconfig

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema/config_schema.json
var configSchemaJSON string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func compiled() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		var doc any
		if err := json.Unmarshal([]byte(configSchemaJSON), &doc); err != nil {
			schemaErr = fmt.Errorf("keepaliveconfig: parse embedded schema: %w", err)
			return
		}
		const url = "http://contoso.com/keepalive-config-schema.json"
		if err := compiler.AddResource(url, doc); err != nil {
			schemaErr = fmt.Errorf("keepaliveconfig: add schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile(url)
	})
	return compiledSchema, schemaErr
}

// validate checks a decoded config object against the embedded schema.
func validate(obj map[string]any) error {
	schema, err := compiled()
	if err != nil {
		return err
	}
	if err := schema.Validate(obj); err != nil {
		return fmt.Errorf("keepalive-config: %w", err)
	}
	return nil
}
