package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookrag/internal/domain"
	"bookrag/internal/index"
	"bookrag/internal/service"
)

type fakeChatter struct {
	chunks   []domain.StreamChunk
	imageURL string
	err      error

	sessionID string
	userInput string
}

func (f *fakeChatter) Chat(_ context.Context, sessionID, userInput string) (*service.Reply, error) {
	f.sessionID = sessionID
	f.userInput = userInput
	if f.err != nil {
		return nil, f.err
	}
	ch := make(chan domain.StreamChunk, len(f.chunks))
	for _, c := range f.chunks {
		ch <- c
	}
	close(ch)
	return &service.Reply{Stream: ch, ImageURL: f.imageURL}, nil
}

func postChat(t *testing.T, handler http.Handler, body ChatRequest, session string) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(raw))
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func userTurn(content string) domain.Turn {
	return domain.Turn{Role: domain.RoleUser, Content: content}
}

func TestChatStreamsPlainText(t *testing.T) {
	chatter := &fakeChatter{chunks: []domain.StreamChunk{{Delta: "He lived "}, {Delta: "by the pond."}}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("Where did he live?")}}, "s1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "He lived by the pond.", string(body))
	assert.Equal(t, "Where did he live?", chatter.userInput)
}

func TestChatUsesLastUserTurn(t *testing.T) {
	chatter := &fakeChatter{chunks: []domain.StreamChunk{{Delta: "ok"}}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{
		userTurn("first question"),
		{Role: domain.RoleAssistant, Content: "first answer"},
		userTurn("second question"),
	}}, "s1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "second question", chatter.userInput)
}

func TestChatImageVariantRespondsJSON(t *testing.T) {
	chatter := &fakeChatter{
		chunks:   []domain.StreamChunk{{Delta: "https://img.example/pond.png"}},
		imageURL: "https://img.example/pond.png",
	}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("draw the pond")}}, "s1")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var got struct {
		AIResponse string `json:"aiResponse"`
		ImageURL   string `json:"imageUrl"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "https://img.example/pond.png", got.ImageURL)
	assert.Equal(t, "https://img.example/pond.png", got.AIResponse)
}

func TestChatRetrievalFailureReturns500(t *testing.T) {
	chatter := &fakeChatter{err: &index.RetrievalError{Err: errors.New("vector store down")}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("anything")}}, "s1")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.NotContains(t, string(body), "vector store down", "internal detail must not leak")
}

func TestChatGenerationFailureReturns500(t *testing.T) {
	chatter := &fakeChatter{err: &service.GenerationError{Err: errors.New("model unavailable")}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("anything")}}, "s1")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestChatRejectsMissingUserTurn(t *testing.T) {
	chatter := &fakeChatter{}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{
		{Role: domain.RoleAssistant, Content: "only me here"},
	}}, "s1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsBadBody(t *testing.T) {
	srv := New(&fakeChatter{}, 0, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestChatRejectsNonPost(t *testing.T) {
	srv := New(&fakeChatter{}, 0, nil)
	req := httptest.NewRequest(http.MethodGet, "/api/chat", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestChatEchoesSessionHeader(t *testing.T) {
	chatter := &fakeChatter{chunks: []domain.StreamChunk{{Delta: "ok"}}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("hi")}}, "known-session")
	assert.Equal(t, "known-session", rec.Header().Get(SessionHeader))
	assert.Equal(t, "known-session", chatter.sessionID)
}

func TestChatIssuesSessionWhenMissing(t *testing.T) {
	chatter := &fakeChatter{chunks: []domain.StreamChunk{{Delta: "ok"}}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("hi")}}, "")
	issued := rec.Header().Get(SessionHeader)
	assert.NotEmpty(t, issued)
	assert.Equal(t, issued, chatter.sessionID)
}

func TestChatMidStreamFailureKeepsPartialBody(t *testing.T) {
	chatter := &fakeChatter{chunks: []domain.StreamChunk{
		{Delta: "partial "},
		{Err: errors.New("connection reset")},
	}}
	srv := New(chatter, 0, nil)

	rec := postChat(t, srv.Handler(), ChatRequest{Messages: []domain.Turn{userTurn("anything")}}, "s1")

	assert.Equal(t, http.StatusOK, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, "partial ", string(body))
}

func TestHealthz(t *testing.T) {
	srv := New(&fakeChatter{}, 0, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
