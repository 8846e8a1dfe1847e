// Package server exposes the chat pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookrag/internal/domain"
	"bookrag/internal/index"
	"bookrag/internal/service"
)

// SessionHeader carries the conversation key. A missing header gets a
// fresh id, echoed back so the client can continue the conversation.
const SessionHeader = "X-Session-ID"

// Chatter runs one conversational turn.
type Chatter interface {
	Chat(ctx context.Context, sessionID, userInput string) (*service.Reply, error)
}

// ChatRequest is the inbound body: the conversation so far, latest
// user turn last.
type ChatRequest struct {
	Messages []domain.Turn `json:"messages"`
}

type imageResponse struct {
	AIResponse string `json:"aiResponse"`
	ImageURL   string `json:"imageUrl"`
}

// Server handles POST /api/chat. Answers stream as text/plain unless
// the request's tool produced an image URL, in which case the response
// is a single JSON object.
type Server struct {
	chatter Chatter
	timeout time.Duration
	logger  *zap.Logger
}

func New(chatter Chatter, timeout time.Duration, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{chatter: chatter, timeout: timeout, logger: logger}
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/chat", s.handleChat)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return mux
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	userInput := latestUserContent(req.Messages)
	if userInput == "" {
		http.Error(w, "no user message provided", http.StatusBadRequest)
		return
	}

	sessionID := r.Header.Get(SessionHeader)
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	w.Header().Set(SessionHeader, sessionID)

	// Client disconnect cancels the in-flight model stream through ctx.
	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	reply, err := s.chatter.Chat(ctx, sessionID, userInput)
	if err != nil {
		status := http.StatusInternalServerError
		var retErr *index.RetrievalError
		var genErr *service.GenerationError
		switch {
		case errors.As(err, &retErr):
			s.logger.Error("retrieval failed", zap.Error(err))
		case errors.As(err, &genErr):
			s.logger.Error("generation failed", zap.Error(err))
		default:
			s.logger.Error("chat request failed", zap.Error(err))
		}
		http.Error(w, "failed to answer request", status)
		return
	}

	if reply.ImageURL != "" {
		s.writeImageResponse(w, reply)
		return
	}
	s.streamText(w, reply)
}

// streamText forwards answer increments as they arrive, flushing each
// one so the first byte reaches the client before generation finishes.
func (s *Server) streamText(w http.ResponseWriter, reply *service.Reply) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	flusher, _ := w.(http.Flusher)
	for chunk := range reply.Stream {
		if chunk.Err != nil {
			// Partial output already flushed stands; terminate early.
			s.logger.Warn("stream terminated early", zap.Error(chunk.Err))
			return
		}
		if _, err := w.Write([]byte(chunk.Delta)); err != nil {
			return
		}
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// writeImageResponse drains the stream and responds with one JSON
// object carrying the accumulated answer and the image URL.
func (s *Server) writeImageResponse(w http.ResponseWriter, reply *service.Reply) {
	var answer strings.Builder
	for chunk := range reply.Stream {
		if chunk.Err != nil {
			s.logger.Warn("stream terminated early", zap.Error(chunk.Err))
			break
		}
		answer.WriteString(chunk.Delta)
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(imageResponse{
		AIResponse: answer.String(),
		ImageURL:   reply.ImageURL,
	})
}

// latestUserContent returns the content of the last user turn.
func latestUserContent(messages []domain.Turn) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == domain.RoleUser {
			return strings.TrimSpace(messages[i].Content)
		}
	}
	return ""
}
