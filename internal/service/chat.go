// Package service runs the request pipeline: tool routing, query
// reformulation, passage retrieval, grounded prompt assembly, and
// streamed generation, with conversation memory appended at the end.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"bookrag/internal/domain"
	"bookrag/internal/memory"
	"bookrag/internal/tools"
)

// GenerationError marks a failed completion call on the serving path:
// reformulation or answer generation. Fatal for the request.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string { return "generation failed: " + e.Err.Error() }
func (e *GenerationError) Unwrap() error { return e.Err }

// ToolRouter decides and runs at most one tool per request.
type ToolRouter interface {
	Decide(ctx context.Context, userInput string) (domain.ToolDecision, error)
	Invoke(ctx context.Context, decision domain.ToolDecision) domain.ToolInvocation
}

// Retriever returns grounding passages for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// ChatService orchestrates one conversational turn end to end.
type ChatService struct {
	model     domain.ChatModel
	retriever Retriever
	router    ToolRouter
	memory    *memory.Store
	logger    *zap.Logger
}

func New(model domain.ChatModel, retriever Retriever, router ToolRouter, mem *memory.Store, logger *zap.Logger) *ChatService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{model: model, retriever: retriever, router: router, memory: mem, logger: logger}
}

// Reply is the outcome of one turn. Stream yields the answer's text
// increments; it is finite and not restartable. ImageURL is set when
// the request's tool produced a direct image URL.
type Reply struct {
	Stream     <-chan domain.StreamChunk
	Invocation domain.ToolInvocation
	ImageURL   string
}

// Chat runs the pipeline for the latest user turn in the given session.
// Tool-layer failures degrade to the no-tool path; reformulation,
// retrieval, and generation failures abort the request before any
// output is produced. Memory is appended only once a stream has been
// started, with whatever answer text accumulated.
func (s *ChatService) Chat(ctx context.Context, sessionID, userInput string) (*Reply, error) {
	conv := s.memory.Session(sessionID)
	history, toolHistory := conv.Snapshot()

	record := s.route(ctx, userInput)

	query, err := s.reformulate(ctx, history, userInput)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	results, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return nil, err
	}

	imageURL := imageURLFrom(record)
	prompt := s.compose(history, toolHistory, record, results, userInput, imageURL)

	src, err := s.model.Stream(ctx, prompt)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}

	out := make(chan domain.StreamChunk)
	go func() {
		var answer strings.Builder
		defer close(out)
		defer func() {
			conv.AppendExchange(
				domain.Turn{Role: domain.RoleUser, Content: userInput},
				domain.Turn{Role: domain.RoleAssistant, Content: answer.String()},
				record,
			)
		}()
		for chunk := range src {
			if chunk.Err != nil {
				// Already-flushed output stands; log what accumulated.
				s.logger.Warn("answer stream broke mid-flight", zap.Error(chunk.Err))
				select {
				case out <- chunk:
				case <-ctx.Done():
				}
				return
			}
			answer.WriteString(chunk.Delta)
			select {
			case out <- chunk:
			case <-ctx.Done():
				return
			}
		}
	}()

	return &Reply{Stream: out, Invocation: record, ImageURL: imageURL}, nil
}

// route runs the ROUTING stage. Never fatal: schema failures become an
// error-flagged no-tool record, everything else degrades to "none".
func (s *ChatService) route(ctx context.Context, userInput string) domain.ToolInvocation {
	decision, err := s.router.Decide(ctx, userInput)
	if err != nil {
		s.logger.Warn("tool decision rejected, continuing without a tool", zap.Error(err))
		return domain.ToolInvocation{Tool: domain.NoTool, Result: err.Error(), IsError: true}
	}
	return s.router.Invoke(ctx, decision)
}

// reformulate produces the retrieval query. The first turn passes
// through unchanged; later turns are rewritten into a standalone
// question against the conversation history.
func (s *ChatService) reformulate(ctx context.Context, history []domain.Turn, latest string) (string, error) {
	if len(history) == 0 {
		return latest, nil
	}
	msgs := make([]domain.ChatMessage, 0, len(history)+2)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: reformulatePrompt})
	for _, t := range history {
		msgs = append(msgs, domain.ChatMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: latest})
	return s.model.Complete(ctx, msgs)
}

// compose assembles the grounded prompt: system instruction with the
// retrieved passages, the conversation so far, the serialized tool
// results, and the latest user turn.
func (s *ChatService) compose(history []domain.Turn, toolHistory []domain.ToolInvocation, record domain.ToolInvocation, results []domain.SearchResult, latest, imageURL string) []domain.ChatMessage {
	var contextText strings.Builder
	for i, r := range results {
		if i > 0 {
			contextText.WriteString("\n\n")
		}
		contextText.WriteString(r.Passage.Content)
	}
	system := fmt.Sprintf(systemTemplate, contextText.String())
	if imageURL != "" {
		system += fmt.Sprintf(imageContract, imageURL)
	}

	msgs := make([]domain.ChatMessage, 0, len(history)+4)
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleSystem, Content: system})
	for _, t := range history {
		msgs = append(msgs, domain.ChatMessage{Role: t.Role, Content: t.Content})
	}
	msgs = append(msgs, domain.ChatMessage{
		Role:    domain.RoleSystem,
		Content: "Tool result for the current request:\n" + toJSON(record),
	})
	if len(toolHistory) > 0 {
		msgs = append(msgs, domain.ChatMessage{
			Role:    domain.RoleSystem,
			Content: "Tool result history:\n" + toJSON(toolHistory),
		})
	}
	msgs = append(msgs, domain.ChatMessage{Role: domain.RoleUser, Content: latest})
	return msgs
}

func imageURLFrom(record domain.ToolInvocation) string {
	if record.Tool != tools.ImageToolName || record.IsError {
		return ""
	}
	url, _ := record.Result.(string)
	return url
}

func toJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}
