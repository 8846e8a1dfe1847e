package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"bookrag/internal/domain"
)

// RetrievalError marks a failure on the retrieval path: the query could
// not be embedded or the store could not be searched. Fatal for the
// request; never retried.
type RetrievalError struct {
	Err error
}

func (e *RetrievalError) Error() string { return "retrieval failed: " + e.Err.Error() }
func (e *RetrievalError) Unwrap() error { return e.Err }

// Index answers nearest-neighbor queries over a fixed passage set.
// Passages are loaded once at startup and never mutated afterwards.
type Index struct {
	embedder domain.Embedder
	store    domain.VectorStore
	topK     int
	count    int
}

// New creates an index over the given store. topK is fixed for the
// lifetime of the index.
func New(embedder domain.Embedder, store domain.VectorStore, topK int) *Index {
	if topK <= 0 {
		topK = 4
	}
	return &Index{embedder: embedder, store: store, topK: topK}
}

// LoadFile reads a JSON array of passage records and loads them.
func (ix *Index) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read index file: %w", err)
	}
	var passages []domain.Passage
	if err := json.Unmarshal(data, &passages); err != nil {
		return fmt.Errorf("parse index file: %w", err)
	}
	return ix.Load(passages)
}

// Load builds the store from precomputed records. Every record must
// carry a vector of the majority dimension.
func (ix *Index) Load(passages []domain.Passage) error {
	if len(passages) == 0 {
		ix.count = 0
		return nil
	}
	dim := majorityDimension(passages)
	for _, p := range passages {
		if len(p.Embedding) != dim {
			return fmt.Errorf("passage %s: vector dimension %d, want %d", p.ID, len(p.Embedding), dim)
		}
	}
	if err := ix.store.Init(dim); err != nil {
		return err
	}
	if err := ix.store.Upsert(passages); err != nil {
		return err
	}
	ix.count = len(passages)
	return nil
}

// Retrieve embeds the query and returns up to topK passages by
// descending similarity. An empty index yields an empty result, not an
// error. Embedding or store failures surface as a RetrievalError.
func (ix *Index) Retrieve(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if ix.count == 0 {
		return nil, nil
	}
	vec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}
	results, err := ix.store.Search(ctx, vec, ix.topK)
	if err != nil {
		return nil, &RetrievalError{Err: err}
	}
	return results, nil
}

// Len reports the number of loaded passages.
func (ix *Index) Len() int { return ix.count }

func majorityDimension(passages []domain.Passage) int {
	counts := make(map[int]int)
	for _, p := range passages {
		counts[len(p.Embedding)]++
	}
	best, bestN := 0, 0
	for dim, n := range counts {
		if n > bestN {
			best, bestN = dim, n
		}
	}
	return best
}
