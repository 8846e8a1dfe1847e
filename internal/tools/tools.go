// Package tools holds the fixed set of external-lookup capabilities the
// router may invoke: book search, author search, and image generation.
package tools

import (
	"context"
	"fmt"
	"strings"
)

// Field describes one named input in a tool's schema.
type Field struct {
	Name        string
	Type        string
	Description string
}

// Tool is a named, independently invocable lookup capability. Execute
// performs exactly one outbound call; arguments are validated against
// the schema before Execute is reached.
type Tool interface {
	Name() string
	Description() string
	Schema() []Field
	Execute(ctx context.Context, args map[string]any) (any, error)
}

// ArgumentError reports arguments that fail the named tool's schema.
// Recovered locally; the request falls back to the no-tool path.
type ArgumentError struct {
	Tool   string
	Reason string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("tool %s: invalid arguments: %s", e.Tool, e.Reason)
}

// ExecutionError reports a failed outbound call for the named tool.
// Recorded as the tool's result; never aborts the request.
type ExecutionError struct {
	Tool string
	Err  error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("tool %s: execution failed: %v", e.Tool, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Registry is the fixed, name-keyed set of registered tools. The
// registration order is kept for rendering.
type Registry struct {
	order []string
	tools map[string]Tool
}

func NewRegistry(ts ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	for _, t := range ts {
		r.order = append(r.order, t.Name())
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns a tool by exact name match.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Names returns the registered tool names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Validate checks the arguments against the named tool's schema. Every
// schema field is required and must be a non-empty string.
func (r *Registry) Validate(name string, args map[string]any) error {
	t, ok := r.tools[name]
	if !ok {
		return &ArgumentError{Tool: name, Reason: "unknown tool"}
	}
	for _, f := range t.Schema() {
		v, ok := args[f.Name]
		if !ok {
			return &ArgumentError{Tool: name, Reason: "missing field " + f.Name}
		}
		s, ok := v.(string)
		if !ok {
			return &ArgumentError{Tool: name, Reason: "field " + f.Name + " must be a string"}
		}
		if strings.TrimSpace(s) == "" {
			return &ArgumentError{Tool: name, Reason: "field " + f.Name + " is empty"}
		}
	}
	return nil
}

// Render produces the natural-language tool listing given to the
// routing model: name, description, and schema per tool.
func (r *Registry) Render() string {
	var b strings.Builder
	for _, name := range r.order {
		t := r.tools[name]
		fmt.Fprintf(&b, "%s: %s", t.Name(), t.Description())
		for _, f := range t.Schema() {
			fmt.Fprintf(&b, "\n  - %s (%s): %s", f.Name, f.Type, f.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func stringArg(args map[string]any, name string) string {
	s, _ := args[name].(string)
	return s
}
