package domain

import "context"

// Roles used in conversation turns and model prompts.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one conversational message. Immutable once created.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Passage is a unit of retrieval: a chunk of source content with its
// precomputed embedding. The full set is loaded at process start and
// never mutated afterwards.
type Passage struct {
	ID        string         `json:"id"`
	Content   string         `json:"content"`
	Embedding []float64      `json:"embedding"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// SearchResult is a retrieved passage with its cosine similarity score.
type SearchResult struct {
	Passage Passage
	Score   float64
}

// ToolDecision is the router's output: the name of the tool to run
// (or "none") and arguments matching that tool's schema.
type ToolDecision struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// NoTool is the sentinel decision name when no tool should run.
const NoTool = "none"

// ToolInvocation records one tool run (or the absence of one) for a
// single request. Result holds the tool's structured output on success
// or an explanatory string otherwise.
type ToolInvocation struct {
	Tool      string         `json:"tool"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Result    any            `json:"result"`
	IsError   bool           `json:"is_error,omitempty"`
}

// ChatMessage is a single message in a model prompt.
type ChatMessage struct {
	Role    string
	Content string
}

// StreamChunk is one increment of a streamed completion. A non-nil Err
// terminates the stream; any text already delivered stands.
type StreamChunk struct {
	Delta string
	Err   error
}

// ChatModel is the hosted chat-completion service.
type ChatModel interface {
	// Complete returns the model's full text response for the prompt.
	Complete(ctx context.Context, messages []ChatMessage) (string, error)
	// Stream returns a channel of text increments. The channel is closed
	// when generation finishes or fails; it is not restartable.
	Stream(ctx context.Context, messages []ChatMessage) (<-chan StreamChunk, error)
}

// Embedder converts free text into a fixed-dimension vector using the
// same model the index was built with.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// VectorStore answers nearest-neighbor queries over passage vectors.
type VectorStore interface {
	Init(dimension int) error
	Upsert(passages []Passage) error
	Search(ctx context.Context, vector []float64, topK int) ([]SearchResult, error)
}
