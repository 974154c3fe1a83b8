package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"sort"
	"strconv"
	"strings"

	"aimsite/internal/model"
)

const (
	defaultTopK                = 5
	defaultSimilarityThreshold = 0.7
	defaultFallbackScanLimit   = 1000
)

// VectorSearch turns a natural-language query into a ranked set of relevant
// chunks. It prefers the database-side similarity routine and falls back to
// an in-process cosine scan when that routine is unavailable.
type VectorSearch struct {
	chunks            ChunkStore
	embedder          Embedder
	threshold         float64
	fallbackScanLimit int
}

func NewVectorSearch(chunks ChunkStore, embedder Embedder, threshold float64, fallbackScanLimit int) *VectorSearch {
	if threshold <= 0 || threshold > 1 {
		threshold = defaultSimilarityThreshold
	}
	if fallbackScanLimit <= 0 {
		fallbackScanLimit = defaultFallbackScanLimit
	}
	return &VectorSearch{
		chunks:            chunks,
		embedder:          embedder,
		threshold:         threshold,
		fallbackScanLimit: fallbackScanLimit,
	}
}

// SearchSimilarChunks returns up to limit chunks with similarity to query at
// or above the configured threshold, ranked descending. An empty result is a
// valid outcome, not an error; only provider and infrastructure failures
// surface as errors. docType "" searches every type.
func (s *VectorSearch) SearchSimilarChunks(ctx context.Context, query string, limit int, docType string) ([]model.ChunkMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrInvalidInput
	}
	if limit <= 0 {
		limit = defaultTopK
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
	}

	matches, err := s.chunks.MatchChunks(queryVec, s.threshold, limit, docType)
	if err == nil {
		return matches, nil
	}
	// Degraded mode: the similarity routine is missing or broken. Scan and
	// score in process instead; results keep the same shape.
	log.Printf("native similarity search unavailable, falling back to in-process scan: %v", err)
	return s.scanAndRank(queryVec, limit, docType)
}

func (s *VectorSearch) scanAndRank(queryVec []float32, limit int, docType string) ([]model.ChunkMatch, error) {
	candidates, err := s.chunks.ListByType(docType, s.fallbackScanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	matches := make([]model.ChunkMatch, 0, len(candidates))
	for _, cand := range candidates {
		vec, ok := parseEmbedding(cand.Embedding)
		if !ok {
			// A malformed row degrades that one candidate, not the search.
			continue
		}
		score := cosineSimilarity(queryVec, vec)
		if score < s.threshold {
			continue
		}
		matches = append(matches, model.ChunkMatch{
			DocumentID: cand.DocumentID,
			DocType:    cand.DocType,
			ChunkText:  cand.ChunkText,
			ChunkIndex: cand.ChunkIndex,
			Metadata:   cand.MetadataMap(),
			Similarity: score,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// SearchWithContext formats the top matches as the grounding block handed to
// the chat completion prompt. No matches yields an empty string so the chat
// flow can answer ungrounded instead of failing.
func (s *VectorSearch) SearchWithContext(ctx context.Context, query string, contextLimit int, docType string) (string, error) {
	matches, err := s.SearchSimilarChunks(ctx, query, contextLimit, docType)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", nil
	}

	var b strings.Builder
	b.WriteString("Relevant excerpts from our documents:\n\n")
	for i, m := range matches {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString("[Context ")
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString("]: ")
		b.WriteString(m.ChunkText)
	}
	return b.String(), nil
}

// parseEmbedding normalizes a stored embedding into a float32 vector. The
// storage layer may hand back a JSON-encoded string ("[0.1,0.2,...]") or an
// already-decoded numeric sequence; both are accepted. Returns false for
// missing or malformed values.
func parseEmbedding(raw any) ([]float32, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case []float32:
		if len(v) == 0 {
			return nil, false
		}
		return v, true
	case []float64:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float32, len(v))
		for i, f := range v {
			out[i] = float32(f)
		}
		return out, true
	case []any:
		if len(v) == 0 {
			return nil, false
		}
		out := make([]float32, len(v))
		for i, item := range v {
			f, ok := item.(float64)
			if !ok {
				return nil, false
			}
			out[i] = float32(f)
		}
		return out, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" || trimmed == "[]" {
			return nil, false
		}
		var out []float32
		if err := json.Unmarshal([]byte(trimmed), &out); err != nil || len(out) == 0 {
			return nil, false
		}
		return out, true
	default:
		return nil, false
	}
}

// cosineSimilarity returns dot(a,b)/(|a|*|b|), and 0 when the vectors
// differ in length or either norm is zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
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
