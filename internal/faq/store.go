package faq

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/healthcareplus/scheduling-agent/pkg/logging"
)

// EmbeddingClient is the slice of the OpenAI client the store needs.
type EmbeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Result is one retrieved chunk with its similarity score.
type Result struct {
	Chunk Chunk
	Score float64
}

// Store keeps chunk embeddings in memory and answers top-K cosine
// similarity queries. Hydrate once at startup; queries afterwards are
// read-only apart from the per-query question embedding call.
type Store struct {
	client EmbeddingClient
	model  string
	logger *logging.Logger

	mu   sync.RWMutex
	docs []storedChunk
}

type storedChunk struct {
	chunk     Chunk
	embedding []float32
}

func NewStore(client EmbeddingClient, model string, logger *logging.Logger) *Store {
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{
		client: client,
		model:  model,
		logger: logger,
	}
}

// Hydrate embeds the chunks in one batched call and replaces the
// store's contents.
func (s *Store) Hydrate(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return errors.New("faq: no chunks to hydrate")
	}

	inputs := make([]string, len(chunks))
	for i, c := range chunks {
		inputs[i] = c.Text
	}

	resp, err := s.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: inputs,
	})
	if err != nil {
		return fmt.Errorf("embed knowledge chunks: %w", err)
	}
	if len(resp.Data) != len(chunks) {
		return errors.New("faq: embedding response size mismatch")
	}

	docs := make([]storedChunk, len(chunks))
	for i, item := range resp.Data {
		docs[i] = storedChunk{chunk: chunks[i], embedding: item.Embedding}
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()

	s.logger.Info("knowledge base hydrated", "chunks", len(docs))
	return nil
}

// Search embeds the query and returns the topK most similar chunks.
func (s *Store) Search(ctx context.Context, query string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 3
	}

	resp, err := s.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(s.model),
		Input: []string{query},
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, len(s.docs))
	for _, doc := range s.docs {
		results = append(results, Result{
			Chunk: doc.chunk,
			Score: cosineSimilarity(queryVec, doc.embedding),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Size reports the number of hydrated chunks.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
