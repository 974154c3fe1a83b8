package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"aimsite/internal/model"
)

func newTestProcessor(docs *fakeDocSource, store *fakeChunkStore, emb *fakeEmbedder) *DocumentProcessor {
	return NewDocumentProcessor(docs, store, emb, 40, 5, 2)
}

func TestProcessDocumentPersistsChunks(t *testing.T) {
	store := &fakeChunkStore{}
	emb := &fakeEmbedder{defaultVec: []float32{0.1, 0.2, 0.3}}
	p := newTestProcessor(&fakeDocSource{}, store, emb)

	content := "First paragraph of the document.\n\nSecond paragraph, which carries on for a while and forces several chunks to be produced."
	err := p.ProcessDocument(context.Background(), 7, model.DocTypeRAG, content, map[string]any{"title": "guide"})
	if err != nil {
		t.Fatal(err)
	}
	if len(store.rows) < 2 {
		t.Fatalf("persisted %d chunks, want several", len(store.rows))
	}

	for i, row := range store.rows {
		if row.DocumentID != 7 || row.DocType != model.DocTypeRAG {
			t.Errorf("chunk %d has wrong document identity: %+v", i, row)
		}
		if row.ChunkIndex != i {
			t.Errorf("chunk %d has index %d, indices must be dense in split order", i, row.ChunkIndex)
		}
		if row.Embedding == "" || row.Embedding == "[]" {
			t.Errorf("chunk %d persisted without an embedding", i)
		}

		meta := row.MetadataMap()
		if meta["title"] != "guide" {
			t.Errorf("chunk %d lost caller metadata: %v", i, meta)
		}
		if got, want := meta["total_chunks"], float64(len(store.rows)); got != want {
			t.Errorf("chunk %d total_chunks = %v, want %v", i, got, want)
		}
		if got, want := meta["chunk_length"], float64(len([]rune(row.ChunkText))); got != want {
			t.Errorf("chunk %d chunk_length = %v, want %v", i, got, want)
		}
	}
}

func TestProcessDocumentSingleChunk(t *testing.T) {
	store := &fakeChunkStore{}
	emb := &fakeEmbedder{defaultVec: []float32{1}}
	p := newTestProcessor(&fakeDocSource{}, store, emb)

	if err := p.ProcessDocument(context.Background(), 5, model.DocTypeResearch, "A B C D E", nil); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 1 {
		t.Fatalf("got %d chunks, want 1", len(store.rows))
	}
	row := store.rows[0]
	if row.ChunkIndex != 0 || row.ChunkText != "A B C D E" {
		t.Fatalf("row = %+v", row)
	}
	if got := row.MetadataMap()["total_chunks"]; got != float64(1) {
		t.Fatalf("total_chunks = %v, want 1", got)
	}
}

func TestProcessDocumentIdempotent(t *testing.T) {
	store := &fakeChunkStore{}
	store.rows = append(store.rows, storedChunk(7, model.DocTypeRAG, "existing", 0, []float32{1}))
	emb := &fakeEmbedder{defaultVec: []float32{1}}
	p := newTestProcessor(&fakeDocSource{}, store, emb)

	if err := p.ProcessDocument(context.Background(), 7, model.DocTypeRAG, "fresh content", nil); err != nil {
		t.Fatal(err)
	}
	if emb.batchCalls != 0 {
		t.Fatalf("embedder called %d times for an already-processed document", emb.batchCalls)
	}
	if store.createCalls != 0 {
		t.Fatalf("store written %d times for an already-processed document", store.createCalls)
	}
}

func TestProcessDocumentValidation(t *testing.T) {
	p := newTestProcessor(&fakeDocSource{}, &fakeChunkStore{}, &fakeEmbedder{defaultVec: []float32{1}})

	if err := p.ProcessDocument(context.Background(), 1, "poetry", "content", nil); !errors.Is(err, ErrUnknownDocType) {
		t.Fatalf("unknown type: got %v, want ErrUnknownDocType", err)
	}
	if err := p.ProcessDocument(context.Background(), 1, model.DocTypeRAG, "   \n ", nil); !errors.Is(err, ErrEmptyContent) {
		t.Fatalf("blank content: got %v, want ErrEmptyContent", err)
	}
}

func TestProcessDocumentEmbedderFailure(t *testing.T) {
	store := &fakeChunkStore{}
	emb := &fakeEmbedder{err: fmt.Errorf("provider down")}
	p := newTestProcessor(&fakeDocSource{}, store, emb)

	err := p.ProcessDocument(context.Background(), 1, model.DocTypeRAG, "some content to embed", nil)
	if !errors.Is(err, ErrEmbeddingProvider) {
		t.Fatalf("got %v, want ErrEmbeddingProvider", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("persisted %d chunks despite embedding failure, partial writes are forbidden", len(store.rows))
	}
}

func TestProcessDocumentPersistenceFailure(t *testing.T) {
	store := &fakeChunkStore{createErr: fmt.Errorf("deadlock")}
	emb := &fakeEmbedder{defaultVec: []float32{1}}
	p := newTestProcessor(&fakeDocSource{}, store, emb)

	err := p.ProcessDocument(context.Background(), 1, model.DocTypeRAG, "some content to embed", nil)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("got %v, want ErrPersistence", err)
	}
}

func TestExtractFileText(t *testing.T) {
	t.Run("plain text", func(t *testing.T) {
		got, err := ExtractFileText("notes.txt", []byte("  hello world \n"))
		if err != nil {
			t.Fatal(err)
		}
		if got != "hello world" {
			t.Fatalf("got %q", got)
		}
	})
	t.Run("markdown", func(t *testing.T) {
		got, err := ExtractFileText("README.md", []byte("# Title\n\nBody"))
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(got, "Body") {
			t.Fatalf("got %q", got)
		}
	})
	t.Run("pdf fails fast", func(t *testing.T) {
		if _, err := ExtractFileText("paper.pdf", []byte("%PDF-1.4")); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("got %v, want ErrUnsupportedFormat", err)
		}
	})
	t.Run("unknown extension", func(t *testing.T) {
		if _, err := ExtractFileText("image.png", []byte{0x89}); !errors.Is(err, ErrUnsupportedFormat) {
			t.Fatalf("got %v, want ErrUnsupportedFormat", err)
		}
	})
	t.Run("empty text file", func(t *testing.T) {
		if _, err := ExtractFileText("empty.txt", []byte("  \n")); !errors.Is(err, ErrEmptyContent) {
			t.Fatalf("got %v, want ErrEmptyContent", err)
		}
	})
	t.Run("extension is case-insensitive", func(t *testing.T) {
		got, err := ExtractFileText("NOTES.TXT", []byte("content"))
		if err != nil || got != "content" {
			t.Fatalf("got %q, %v", got, err)
		}
	})
}

func TestDeleteDocumentEmbeddings(t *testing.T) {
	store := &fakeChunkStore{}
	store.rows = append(store.rows,
		storedChunk(1, model.DocTypeRAG, "keep", 0, []float32{1}),
		storedChunk(2, model.DocTypeRAG, "drop", 0, []float32{1}),
	)
	p := newTestProcessor(&fakeDocSource{}, store, &fakeEmbedder{defaultVec: []float32{1}})

	if err := p.DeleteDocumentEmbeddings(2, model.DocTypeRAG); err != nil {
		t.Fatal(err)
	}
	if len(store.rows) != 1 || store.rows[0].DocumentID != 1 {
		t.Fatalf("rows after delete: %v", store.rows)
	}
	// Deleting again is a no-op, not an error.
	if err := p.DeleteDocumentEmbeddings(2, model.DocTypeRAG); err != nil {
		t.Fatal(err)
	}
}

func TestProcessAllDocuments(t *testing.T) {
	docs := &fakeDocSource{docs: []model.Document{
		{ID: 1, Title: "already embedded", DocType: model.DocTypeRAG, Content: "text"},
		{ID: 2, Title: "fresh", DocType: model.DocTypeResearch, Content: "research text to embed"},
		{ID: 3, Title: "broken", DocType: model.DocTypeRAG, Content: "   "},
	}}
	store := &fakeChunkStore{}
	store.rows = append(store.rows, storedChunk(1, model.DocTypeRAG, "existing", 0, []float32{1}))
	emb := &fakeEmbedder{defaultVec: []float32{1}}
	p := newTestProcessor(docs, store, emb)

	report, err := p.ProcessAllDocuments(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if report.Total != 3 || report.Skipped != 1 || report.Processed != 1 {
		t.Fatalf("report = %+v", report)
	}
	if len(report.Failures) != 1 || report.Failures[0].DocumentID != 3 {
		t.Fatalf("failures = %+v, want document 3 only", report.Failures)
	}
	if report.Processed+report.Skipped+len(report.Failures) != report.Total {
		t.Fatalf("report does not account for every document: %+v", report)
	}
}

func TestProcessAllDocumentsHonorsCancellation(t *testing.T) {
	docs := &fakeDocSource{docs: []model.Document{
		{ID: 1, Title: "a", DocType: model.DocTypeRAG, Content: "text"},
	}}
	p := newTestProcessor(docs, &fakeChunkStore{}, &fakeEmbedder{defaultVec: []float32{1}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.ProcessAllDocuments(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
