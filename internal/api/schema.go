package api

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema names one response shape the client validates before decoding.
type Schema struct {
	Name       string
	Definition map[string]any
}

var (
	gameStateDef = map[string]any{
		"type":     "object",
		"required": []string{"problem_id", "solved", "target"},
		"properties": map[string]any{
			"user_id":    map[string]any{"type": "integer", "minimum": 0},
			"problem_id": map[string]any{"type": "integer", "minimum": 0},
			"video_id":   map[string]any{"type": "integer", "minimum": 0},
			"solved":     map[string]any{"type": "integer", "minimum": 0},
			"target":     map[string]any{"type": "integer", "minimum": 0},
		},
	}

	problemDef = map[string]any{
		"type":     "object",
		"required": []string{"id", "expression"},
		"properties": map[string]any{
			"id":         map[string]any{"type": "integer", "minimum": 0},
			"expression": map[string]any{"type": "string"},
			"answer":     map[string]any{"type": "string"},
		},
	}

	videoDef = map[string]any{
		"type":     "object",
		"required": []string{"id"},
		"properties": map[string]any{
			"id":    map[string]any{"type": "integer", "minimum": 0},
			"title": map[string]any{"type": "string"},
			"url":   map[string]any{"type": "string"},
		},
	}

	eventDef = map[string]any{
		"type":     "object",
		"required": []string{"event_type", "timestamp"},
		"properties": map[string]any{
			"event_type": map[string]any{"type": "string"},
			"value":      map[string]any{"type": "string"},
			"timestamp":  map[string]any{"type": "string"},
		},
	}
)

func nullable(def map[string]any) map[string]any {
	return map[string]any{"anyOf": []any{map[string]any{"type": "null"}, def}}
}

// Response schemas.
var (
	GameStateSchema = &Schema{Name: "gamestate", Definition: gameStateDef}
	ProblemSchema   = &Schema{Name: "problem", Definition: problemDef}
	VideoSchema     = &Schema{Name: "video", Definition: videoDef}
	PlaySchema      = &Schema{Name: "play", Definition: map[string]any{
		"type":     "object",
		"required": []string{"gamestate"},
		"properties": map[string]any{
			"gamestate": gameStateDef,
			"problem":   nullable(problemDef),
			"video":     nullable(videoDef),
		},
	}}
	EventsSchema = &Schema{Name: "events", Definition: map[string]any{
		"type":  "array",
		"items": eventDef,
	}}
)

// schemaCache caches compiled JSON schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// validateResponse validates raw JSON against schema. Returns
// *InvalidResponseError on failure.
func validateResponse(op string, schema *Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &InvalidResponseError{Op: op, Body: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := getCompiledSchema(schema)
	if err != nil {
		return &InvalidResponseError{Op: op, Body: raw, Err: fmt.Errorf("compile schema %q: %w", schema.Name, err)}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &InvalidResponseError{Op: op, Body: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

// getCompiledSchema returns a cached compiled schema or compiles and caches it.
func getCompiledSchema(schema *Schema) (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(schema.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	// The compiler wants a parsed JSON value, so round-trip the Go literal.
	defBytes, err := json.Marshal(schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	schemaURL := fmt.Sprintf("schema://%s.json", schema.Name)
	if err := c.AddResource(schemaURL, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}

	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(schema.Name, compiled)
	return compiled, nil
}
