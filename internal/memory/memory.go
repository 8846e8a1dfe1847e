// Package memory holds process-lifetime conversation history, keyed by
// session id so concurrent conversations never interleave.
package memory

import (
	"sync"

	"bookrag/internal/domain"
)

// Store maps session ids to their conversations. Conversations are
// created on first use and live until the process exits.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Conversation
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Conversation)}
}

// Session returns the conversation for the given id, creating it if
// needed.
func (s *Store) Session(id string) *Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.sessions[id]
	if !ok {
		c = &Conversation{}
		s.sessions[id] = c
	}
	return c
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Conversation is an append-only log of turns plus a parallel log of
// tool invocations. Appends happen once per completed request; entries
// are never edited or truncated.
type Conversation struct {
	mu          sync.Mutex
	turns       []domain.Turn
	invocations []domain.ToolInvocation
}

// Snapshot returns copies of the turn and invocation logs as they stand.
func (c *Conversation) Snapshot() ([]domain.Turn, []domain.ToolInvocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	turns := append([]domain.Turn(nil), c.turns...)
	invocations := append([]domain.ToolInvocation(nil), c.invocations...)
	return turns, invocations
}

// AppendExchange records one completed request: the user turn, the
// accumulated assistant answer, and the request's tool invocation, in
// arrival order.
func (c *Conversation) AppendExchange(user, assistant domain.Turn, inv domain.ToolInvocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, user, assistant)
	c.invocations = append(c.invocations, inv)
}

// Turns reports the number of logged turns.
func (c *Conversation) Turns() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.turns)
}

// Invocations reports the number of logged tool invocations.
func (c *Conversation) Invocations() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.invocations)
}
