// Package router decides which tool, if any, runs for a conversational
// turn, and invokes it.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"bookrag/internal/domain"
	"bookrag/internal/tools"
)

// NoToolMessage is the recorded result when no tool ran, whether the
// model declined, misbehaved, or produced unusable arguments.
const NoToolMessage = "No valid tool was invoked for this request."

const decisionPrompt = `You are an assistant that has access to the following set of tools. Here are the names, descriptions, and input fields for each tool:

%s
When analyzing user input, identify whether the user asks about a specific book, a specific author, or requests an image to be generated.

If a tool applies, respond with only a JSON object in this exact format:

{"name": "<TOOL_NAME>", "arguments": {"<FIELD>": "<VALUE>"}}

If no tool should be used, always respond with:

{"name": "none", "arguments": {}}

### Important Notes:
- Only output a valid JSON object, and do not add anything else.
- Always use the exact key names and structure as shown.
- Choose at most one tool.
- If the user input is ambiguous, assume the mentioned title or name is the one that was provided.

Example output:
{"name": "bookSearch", "arguments": {"title": "Atlas Shrugged"}}`

// Router prompts the chat model with the rendered tool list and parses
// its decision. The system stays usable when the routing model
// misbehaves: anything unparseable degrades to the no-tool decision.
type Router struct {
	model    domain.ChatModel
	registry *tools.Registry
	logger   *zap.Logger
}

func New(model domain.ChatModel, registry *tools.Registry, logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{model: model, registry: registry, logger: logger}
}

// Decide returns the tool decision for the user input. Invalid JSON and
// unknown tool names degrade to the "none" decision; a known tool with
// arguments failing its schema returns the decision alongside a
// *tools.ArgumentError so the caller can fall back to the no-tool path.
func (r *Router) Decide(ctx context.Context, userInput string) (domain.ToolDecision, error) {
	none := domain.ToolDecision{Name: domain.NoTool, Arguments: map[string]any{}}

	raw, err := r.model.Complete(ctx, []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: fmt.Sprintf(decisionPrompt, r.registry.Render())},
		{Role: domain.RoleUser, Content: userInput},
	})
	if err != nil {
		r.logger.Warn("routing model call failed, continuing without a tool", zap.Error(err))
		return none, nil
	}

	var decision domain.ToolDecision
	if err := json.Unmarshal([]byte(raw), &decision); err != nil {
		r.logger.Warn("routing output was not valid JSON", zap.String("output", raw))
		return none, nil
	}
	if decision.Name == "" || decision.Name == domain.NoTool {
		return none, nil
	}
	if _, ok := r.registry.Get(decision.Name); !ok {
		r.logger.Warn("routing output named an unknown tool", zap.String("tool", decision.Name))
		return none, nil
	}
	if decision.Arguments == nil {
		decision.Arguments = map[string]any{}
	}
	if err := r.registry.Validate(decision.Name, decision.Arguments); err != nil {
		return decision, err
	}
	return decision, nil
}

// Invoke executes the decided tool and wraps the outcome into an
// invocation record. Execution failures are recorded, never propagated;
// at most one tool runs per request.
func (r *Router) Invoke(ctx context.Context, decision domain.ToolDecision) domain.ToolInvocation {
	if decision.Name == domain.NoTool {
		return domain.ToolInvocation{Tool: domain.NoTool, Result: NoToolMessage}
	}
	tool, ok := r.registry.Get(decision.Name)
	if !ok {
		return domain.ToolInvocation{Tool: domain.NoTool, Result: NoToolMessage}
	}
	result, err := tool.Execute(ctx, decision.Arguments)
	if err != nil {
		var execErr *tools.ExecutionError
		if !errors.As(err, &execErr) {
			execErr = &tools.ExecutionError{Tool: decision.Name, Err: err}
		}
		r.logger.Warn("tool execution failed", zap.String("tool", decision.Name), zap.Error(err))
		return domain.ToolInvocation{
			Tool:      decision.Name,
			Arguments: decision.Arguments,
			Result:    execErr.Error(),
			IsError:   true,
		}
	}
	return domain.ToolInvocation{
		Tool:      decision.Name,
		Arguments: decision.Arguments,
		Result:    result,
	}
}
