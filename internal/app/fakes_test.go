package app

import (
	"context"
	"fmt"

	"aimsite/internal/model"
)

// fakeEmbedder returns canned vectors keyed by input text, falling back to
// defaultVec for unknown inputs.
type fakeEmbedder struct {
	vectors    map[string][]float32
	defaultVec []float32
	err        error
	batchCalls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	if f.defaultVec != nil {
		return f.defaultVec, nil
	}
	return nil, fmt.Errorf("no vector for %q", text)
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.batchCalls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// fakeChunkStore is an in-memory ChunkStore. matchErr simulates the
// database-side similarity routine being unavailable.
type fakeChunkStore struct {
	rows []model.DocumentChunk

	createErr   error
	createCalls int

	matches    []model.ChunkMatch
	matchErr   error
	matchCalls int

	listErr error
}

func (f *fakeChunkStore) CreateBatch(chunks []model.DocumentChunk) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.rows = append(f.rows, chunks...)
	return nil
}

func (f *fakeChunkStore) CountByDocument(documentID uint, docType string) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.DocumentID == documentID && r.DocType == docType {
			n++
		}
	}
	return n, nil
}

func (f *fakeChunkStore) DeleteByDocument(documentID uint, docType string) error {
	kept := f.rows[:0]
	for _, r := range f.rows {
		if r.DocumentID != documentID || r.DocType != docType {
			kept = append(kept, r)
		}
	}
	f.rows = kept
	return nil
}

func (f *fakeChunkStore) ListByType(docType string, limit int) ([]model.DocumentChunk, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []model.DocumentChunk
	for _, r := range f.rows {
		if docType != "" && r.DocType != docType {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeChunkStore) MatchChunks(_ []float32, _ float64, _ int, _ string) ([]model.ChunkMatch, error) {
	f.matchCalls++
	if f.matchErr != nil {
		return nil, f.matchErr
	}
	return f.matches, nil
}

type fakeDocSource struct {
	docs []model.Document
	err  error
}

func (f *fakeDocSource) List(docType string) ([]model.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	if docType == "" {
		return f.docs, nil
	}
	var out []model.Document
	for _, d := range f.docs {
		if d.DocType == docType {
			out = append(out, d)
		}
	}
	return out, nil
}
