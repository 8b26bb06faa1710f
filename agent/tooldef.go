package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// ToolDef describes a locally-handled tool advertised to a backend. The
// input schema is generated from the handler's parameter struct tags.
type ToolDef struct {
	Schema      json.RawMessage
	Name        string
	Description string
}

// ToolSet is a registry of locally-handled tools. Backends that accept
// advertised tools receive the names in their CLI arguments; when the stream
// announces a call to one of these tools, the consumer invokes it here and
// feeds the result back.
type ToolSet struct {
	defs    []ToolDef
	invokes map[string]func(context.Context, json.RawMessage) (string, error)
}

// NewToolSet creates an empty ToolSet.
func NewToolSet() *ToolSet {
	return &ToolSet{invokes: make(map[string]func(context.Context, json.RawMessage) (string, error))}
}

// AddTool registers a type-safe tool handler. T should be a struct with json
// and jsonschema tags; its schema is derived automatically.
//
//	type askParams struct {
//	    Question string `json:"question" jsonschema:"required,description=Question for the user"`
//	}
//	AddTool(set, "AskUser", "Ask the user a question", func(ctx context.Context, p askParams) (string, error) { ... })
func AddTool[T any](set *ToolSet, name, description string, handler func(context.Context, T) (string, error)) *ToolSet {
	set.defs = append(set.defs, ToolDef{
		Name:        name,
		Description: description,
		Schema:      generateSchema[T](),
	})
	set.invokes[name] = func(ctx context.Context, args json.RawMessage) (string, error) {
		var params T
		if err := json.Unmarshal(args, &params); err != nil {
			return "", fmt.Errorf("invalid arguments for tool %s: %w", name, err)
		}
		return handler(ctx, params)
	}
	return set
}

// Definitions returns the registered tool definitions.
func (s *ToolSet) Definitions() []ToolDef {
	return s.defs
}

// Names returns the registered tool names in registration order.
func (s *ToolSet) Names() []string {
	names := make([]string, 0, len(s.defs))
	for _, d := range s.defs {
		names = append(names, d.Name)
	}
	return names
}

// Has reports whether a tool with the given name is registered.
func (s *ToolSet) Has(name string) bool {
	_, ok := s.invokes[name]
	return ok
}

// Invoke runs the named tool with the given input map.
func (s *ToolSet) Invoke(ctx context.Context, name string, input map[string]interface{}) (string, error) {
	invoke, ok := s.invokes[name]
	if !ok {
		return "", fmt.Errorf("unknown tool %q", name)
	}
	args, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("marshaling input for tool %s: %w", name, err)
	}
	return invoke(ctx, args)
}

// generateSchema derives a JSON schema from T's struct tags.
func generateSchema[T any]() json.RawMessage {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	var v T
	schema := reflector.Reflect(&v)
	data, err := json.Marshal(schema)
	if err != nil {
		return json.RawMessage(`{"type":"object"}`)
	}
	return data
}
