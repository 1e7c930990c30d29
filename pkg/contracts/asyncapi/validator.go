package asyncapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
	"gopkg.in/yaml.v3"
)

// EventValidator validates event payloads against the schemas declared in an
// AsyncAPI specification.
type EventValidator struct {
	schemas    map[string]*jsonschema.Schema
	rawSchemas map[string]interface{}
	compiler   *jsonschema.Compiler
}

// Spec represents the relevant parts of an AsyncAPI specification.
type Spec struct {
	AsyncAPI   string             `yaml:"asyncapi"`
	Info       Info               `yaml:"info"`
	Channels   map[string]Channel `yaml:"channels"`
	Components Components         `yaml:"components"`
}

// Info contains the AsyncAPI info section.
type Info struct {
	Title   string `yaml:"title"`
	Version string `yaml:"version"`
}

// Channel represents a channel in the AsyncAPI document.
type Channel struct {
	Address  string                 `yaml:"address"`
	Messages map[string]interface{} `yaml:"messages"`
}

// Components contains reusable components.
type Components struct {
	Schemas  map[string]interface{} `yaml:"schemas"`
	Messages map[string]interface{} `yaml:"messages"`
}

// NewEventValidator creates an event validator from an AsyncAPI file.
func NewEventValidator(specPath string) (*EventValidator, error) {
	data, err := os.ReadFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read AsyncAPI spec: %w", err)
	}

	return NewEventValidatorFromBytes(data)
}

// NewEventValidatorFromBytes creates an event validator from AsyncAPI bytes.
func NewEventValidatorFromBytes(specBytes []byte) (*EventValidator, error) {
	var spec Spec
	if err := yaml.Unmarshal(specBytes, &spec); err != nil {
		return nil, fmt.Errorf("failed to parse AsyncAPI spec: %w", err)
	}

	compiler := jsonschema.NewCompiler()
	schemas := make(map[string]*jsonschema.Schema)
	rawSchemas := make(map[string]interface{})

	for schemaName, schema := range spec.Components.Schemas {
		schemaMap, ok := schema.(map[string]interface{})
		if !ok {
			continue
		}

		eventType := deriveEventTypeFromSchemaName(schemaName)
		if eventType == "" {
			continue
		}

		schemaJSON, err := json.Marshal(schemaMap)
		if err != nil {
			continue
		}

		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
		if err != nil {
			continue
		}

		schemaURI := fmt.Sprintf("asyncapi://schemas/%s", schemaName)
		if err := compiler.AddResource(schemaURI, doc); err != nil {
			continue
		}

		compiled, err := compiler.Compile(schemaURI)
		if err != nil {
			continue
		}

		schemas[eventType] = compiled
		rawSchemas[eventType] = schemaMap
	}

	return &EventValidator{
		schemas:    schemas,
		rawSchemas: rawSchemas,
		compiler:   compiler,
	}, nil
}

// ValidatePayload validates a raw event payload against the schema registered
// for the event type.
func (v *EventValidator) ValidatePayload(eventType string, payload []byte) error {
	if eventType == "" {
		return fmt.Errorf("event type is required")
	}

	schema, ok := v.schemas[eventType]
	if !ok {
		return fmt.Errorf("no schema found for event type: %s", eventType)
	}

	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to parse event payload: %w", err)
	}

	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("event payload validation failed for type %s: %w", eventType, err)
	}

	return nil
}

// SupportedEventTypes returns all event types with registered schemas.
func (v *EventValidator) SupportedEventTypes() []string {
	types := make([]string, 0, len(v.schemas))
	for eventType := range v.schemas {
		types = append(types, eventType)
	}
	return types
}

// HasSchema checks whether a schema exists for the given event type.
func (v *EventValidator) HasSchema(eventType string) bool {
	_, ok := v.schemas[eventType]
	return ok
}

// Schema returns the raw schema for a given event type.
func (v *EventValidator) Schema(eventType string) (interface{}, bool) {
	schema, ok := v.rawSchemas[eventType]
	return schema, ok
}

// RegisterSchema adds a custom schema for an event type.
func (v *EventValidator) RegisterSchema(eventType string, schemaJSON []byte) error {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	schemaURI := fmt.Sprintf("custom://schemas/%s", eventType)
	if err := v.compiler.AddResource(schemaURI, doc); err != nil {
		return fmt.Errorf("failed to add schema resource: %w", err)
	}

	compiled, err := v.compiler.Compile(schemaURI)
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	v.schemas[eventType] = compiled

	var rawSchema interface{}
	if err := json.Unmarshal(schemaJSON, &rawSchema); err != nil {
		return fmt.Errorf("failed to parse schema JSON: %w", err)
	}
	v.rawSchemas[eventType] = rawSchema

	return nil
}

// deriveEventTypeFromSchemaName maps component schema names to the event
// types carried in the message eventType header.
func deriveEventTypeFromSchemaName(schemaName string) string {
	name := strings.TrimSuffix(schemaName, "Event")

	mappings := map[string]string{
		"InventoryChange": "inventory.updated",
		"OrderAccepted":   "order.accepted",
	}

	return mappings[name]
}
