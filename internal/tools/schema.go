package tools

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// schema builds the JSON Schema for t's parameters: an object whose
// properties are all required and which rejects unknown keys.
func (t Tool) schema() *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:                 "object",
		Properties:           make(map[string]*jsonschema.Schema, len(t.Params)),
		Required:             make([]string, 0, len(t.Params)),
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
		PropertyOrder:        make([]string, 0, len(t.Params)),
	}
	for _, p := range t.Params {
		s.Properties[p.Name] = &jsonschema.Schema{
			Type:        p.Type.jsonType(),
			Description: p.Description,
		}
		s.Required = append(s.Required, p.Name)
		s.PropertyOrder = append(s.PropertyOrder, p.Name)
	}
	return s
}

// schemaMap renders the parameter schema as a generic map for provider
// requests. It omits additionalProperties, which several providers reject;
// unknown keys are still refused by [Set.Invoke].
func (t Tool) schemaMap() map[string]any {
	props := make(map[string]any, len(t.Params))
	required := make([]any, 0, len(t.Params))
	for _, p := range t.Params {
		prop := map[string]any{"type": p.Type.jsonType()}
		if p.Description != "" {
			prop["description"] = p.Description
		}
		props[p.Name] = prop
		required = append(required, p.Name)
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

// resolveSchema validates t's declaration and returns its resolved schema.
func (t Tool) resolveSchema() (*jsonschema.Resolved, error) {
	seen := make(map[string]bool, len(t.Params))
	for _, p := range t.Params {
		if p.Name == "" {
			return nil, fmt.Errorf("tools: tool %q: parameter name must not be empty", t.Definition.Name)
		}
		if seen[p.Name] {
			return nil, fmt.Errorf("tools: tool %q: duplicate parameter %q", t.Definition.Name, p.Name)
		}
		seen[p.Name] = true
		if !p.Type.IsValid() {
			return nil, fmt.Errorf("tools: tool %q: parameter %q has unknown type %q", t.Definition.Name, p.Name, p.Type)
		}
	}
	rs, err := t.schema().Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("tools: tool %q: resolve schema: %w", t.Definition.Name, err)
	}
	return rs, nil
}
