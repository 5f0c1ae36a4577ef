package handlers

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Request body schema names.
const (
	SchemaBook           = "book"
	SchemaReschedule     = "reschedule"
	SchemaNote           = "note"
	SchemaCode           = "code"
	SchemaDispute        = "dispute"
	SchemaResolve        = "resolve"
	SchemaMoneyRequest   = "money_request"
	SchemaCommissionRate = "rate"
)

var errSchema = errors.New("request body does not match schema")

// Schemas holds the compiled JSON schemas request bodies are checked against
// before they are decoded.
type Schemas struct {
	byName map[string]*jsonschema.Schema
}

// LoadSchemas compiles every embedded schemas/*.json file.
func LoadSchemas() (*Schemas, error) {
	entries, err := fs.ReadDir(schemaFS, "schemas")
	if err != nil {
		return nil, fmt.Errorf("read schemas: %w", err)
	}
	s := &Schemas{byName: make(map[string]*jsonschema.Schema, len(entries))}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := schemaFS.ReadFile(path.Join("schemas", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %q: %w", e.Name(), err)
		}
		name := strings.TrimSuffix(e.Name(), ".json")
		compiled, err := jsonschema.CompileString("https://stylebook.dev/schemas/"+e.Name(), string(data))
		if err != nil {
			return nil, fmt.Errorf("compile schema %q: %w", name, err)
		}
		s.byName[name] = compiled
	}
	return s, nil
}

// Validate checks raw against the named schema. The returned error message
// points at the first offending field.
func (s *Schemas) Validate(name string, raw []byte) error {
	schema, ok := s.byName[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", errSchema, leafMessage(ve))
		}
		return fmt.Errorf("%w: %v", errSchema, err)
	}
	return nil
}

func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	field := strings.TrimPrefix(ve.InstanceLocation, "/")
	if field == "" {
		return ve.Message
	}
	return field + ": " + ve.Message
}
