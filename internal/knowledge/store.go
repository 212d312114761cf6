// Package knowledge holds the FAQ knowledge base used for retrieval
// augmented answers and output grounding checks.
package knowledge

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/resto-ai/support-engine/internal/intent"
	"github.com/resto-ai/support-engine/internal/llm"
	"github.com/resto-ai/support-engine/pkg/logger"
)

// Passage is one retrievable knowledge base entry.
type Passage struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Text     string   `json:"text"`
	Language string   `json:"language,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

// Hit is one search result.
type Hit struct {
	Passage Passage `json:"passage"`
	Score   float64 `json:"score"`
}

// Store is an in-memory vector index over the knowledge base. Passages
// are embedded lazily on first search and cached.
type Store struct {
	embedder llm.Embedder
	logger   *logger.Logger

	mu       sync.RWMutex
	passages []Passage
	vectors  [][]float32
}

// NewStore creates a store over the given passages.
func NewStore(embedder llm.Embedder, passages []Passage, log *logger.Logger) *Store {
	return &Store{
		embedder: embedder,
		logger:   log,
		passages: passages,
	}
}

// Add appends passages and invalidates the cached vectors.
func (s *Store) Add(passages ...Passage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.passages = append(s.passages, passages...)
	s.vectors = nil
}

// Search returns the top k passages by cosine similarity to the query.
// An embedding failure degrades to an empty result, never an error the
// turn has to handle.
func (s *Store) Search(ctx context.Context, query string, k int) []Hit {
	if k <= 0 {
		return nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Warn("knowledge base query embedding failed", zap.Error(err))
		return nil
	}

	if err := s.ensureVectors(ctx); err != nil {
		s.logger.Warn("knowledge base indexing failed", zap.Error(err))
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]Hit, 0, len(s.passages))
	for i, p := range s.passages {
		score := intent.Cosine(queryVec, s.vectors[i])
		if score <= 0 {
			continue
		}
		hits = append(hits, Hit{Passage: p, Score: score})
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}

// Texts extracts the passage bodies from a hit list, for the output
// filter's grounding check.
func Texts(hits []Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Passage.Text
	}
	return out
}

func (s *Store) ensureVectors(ctx context.Context) error {
	s.mu.RLock()
	ready := s.vectors != nil
	s.mu.RUnlock()
	if ready {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vectors != nil {
		return nil
	}

	vectors := make([][]float32, len(s.passages))
	for i, p := range s.passages {
		vec, err := s.embedder.Embed(ctx, p.Title+" "+p.Text)
		if err != nil {
			return err
		}
		vectors[i] = vec
	}
	s.vectors = vectors
	return nil
}
