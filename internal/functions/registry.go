package functions

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/lumenvoice/turnengine/pkg/models"
)

// Registry holds the compiled JSON schemas for the closed function
// catalogue, compiled once and reused across every evaluation as a
// read-only global registry.
type Registry struct {
	mu       sync.RWMutex
	decls    map[string]models.ToolDeclaration
	compiled map[string]*jsonschema.Schema
}

// NewRegistry compiles the catalogue's schemas up front so a malformed
// schema fails at startup rather than mid-evaluation.
func NewRegistry() (*Registry, error) {
	r := &Registry{
		decls:    make(map[string]models.ToolDeclaration),
		compiled: make(map[string]*jsonschema.Schema),
	}
	for _, decl := range Declarations() {
		raw, err := toolSchemaToJSONSchema(decl.Parameters)
		if err != nil {
			return nil, fmt.Errorf("functions: marshal schema for %s: %w", decl.Name, err)
		}
		compiled, err := jsonschema.CompileString(decl.Name+".schema.json", raw)
		if err != nil {
			return nil, fmt.Errorf("functions: compile schema for %s: %w", decl.Name, err)
		}
		r.decls[decl.Name] = decl
		r.compiled[decl.Name] = compiled
	}
	return r, nil
}

// Declarations returns the tool declarations to hand the function-caller
// LLM.
func (r *Registry) Declarations() []models.ToolDeclaration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.ToolDeclaration, 0, len(r.decls))
	for _, decl := range r.decls {
		out = append(out, decl)
	}
	return out
}

// Validate checks parameters against the named function's compiled schema.
// Unknown function name is reported distinctly from a schema mismatch so
// the executor can apply its own distinct error messages.
func (r *Registry) Validate(name string, parameters map[string]any) error {
	r.mu.RLock()
	schema, ok := r.compiled[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown function")
	}
	return schema.Validate(parameters)
}

// toolSchemaToJSONSchema renders a models.ToolSchema as the minimal JSON
// Schema document jsonschema.CompileString expects.
func toolSchemaToJSONSchema(s models.ToolSchema) (string, error) {
	doc := toolSchemaToMap(s)
	b, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toolSchemaToMap(s models.ToolSchema) map[string]any {
	doc := map[string]any{"type": s.Type}
	if s.Description != "" {
		doc["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		enum := make([]any, len(s.Enum))
		for i, v := range s.Enum {
			enum[i] = v
		}
		doc["enum"] = enum
	}
	if len(s.Required) > 0 {
		doc["required"] = s.Required
	}
	if len(s.Properties) > 0 {
		props := make(map[string]any, len(s.Properties))
		for name, prop := range s.Properties {
			props[name] = toolSchemaToMap(prop)
		}
		doc["properties"] = props
	}
	if s.Items != nil {
		doc["items"] = toolSchemaToMap(*s.Items)
	}
	return doc
}
