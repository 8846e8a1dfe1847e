package memory

import (
	"context"
	"errors"
	"math"
	"sort"
	"sync"

	"bookrag/internal/domain"
)

// Store is an in-memory vector store using brute-force cosine similarity.
// The serving path loads it once at startup and only reads afterwards,
// but the lock keeps Upsert safe for reuse in the index builder.
type Store struct {
	mu        sync.RWMutex
	dimension int
	passages  []domain.Passage
}

func NewStore() *Store { return &Store{} }

func (s *Store) Init(dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dimension = dimension
	s.passages = nil
	return nil
}

func (s *Store) Upsert(passages []domain.Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range passages {
		if len(p.Embedding) != s.dimension {
			return errors.New("vector dimension mismatch")
		}
	}
	s.passages = append(s.passages, passages...)
	return nil
}

// Search returns up to topK passages by descending cosine similarity.
// Ties keep insertion order. An empty store returns an empty result.
func (s *Store) Search(_ context.Context, vector []float64, topK int) ([]domain.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if topK <= 0 {
		topK = 4
	}
	scores := make([]float64, len(s.passages))
	for i := range s.passages {
		scores[i] = cosine(s.passages[i].Embedding, vector)
	}
	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })
	if topK > len(idxs) {
		topK = len(idxs)
	}
	results := make([]domain.SearchResult, 0, topK)
	for _, j := range idxs[:topK] {
		results = append(results, domain.SearchResult{Passage: s.passages[j], Score: scores[j]})
	}
	return results, nil
}

// Len reports the number of stored passages.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.passages)
}

func cosine(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
