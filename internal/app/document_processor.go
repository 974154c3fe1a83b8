package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"aimsite/internal/model"
	"aimsite/internal/pkg/docxextract"
)

var (
	ErrEmbeddingProvider = errors.New("embedding provider failed")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyContent      = errors.New("document content is empty")
	ErrPersistence       = errors.New("chunk persistence failed")
	ErrUnknownDocType    = errors.New("unknown document type")
)

// Embedder converts text into fixed-dimension vectors via an external
// provider.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkStore is the persistence contract for document chunks. MatchChunks
// is the optional database-side similarity routine; its failure is a
// degraded-mode signal, not a fatal error.
type ChunkStore interface {
	CreateBatch(chunks []model.DocumentChunk) error
	CountByDocument(documentID uint, docType string) (int64, error)
	DeleteByDocument(documentID uint, docType string) error
	ListByType(docType string, limit int) ([]model.DocumentChunk, error)
	MatchChunks(queryVec []float32, threshold float64, limit int, docType string) ([]model.ChunkMatch, error)
}

// DocumentSource lists the documents eligible for batch processing.
type DocumentSource interface {
	List(docType string) ([]model.Document, error)
}

// DocumentProcessor turns raw document content (or an uploaded file) into
// persisted, searchable chunks.
type DocumentProcessor struct {
	docs         DocumentSource
	chunks       ChunkStore
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
	batchSize    int
}

func NewDocumentProcessor(docs DocumentSource, chunks ChunkStore, embedder Embedder, chunkSize, chunkOverlap, batchSize int) *DocumentProcessor {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = defaultChunkOverlap
	}
	if batchSize <= 0 {
		batchSize = 10 // many providers cap batch input size
	}
	return &DocumentProcessor{
		docs:         docs,
		chunks:       chunks,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		batchSize:    batchSize,
	}
}

// ProcessDocument chunks content, embeds every chunk, and persists the full
// chunk set in one batched insert. A document that already has chunks for
// the given type is skipped, so re-invoking is a no-op rather than a source
// of duplicate embeddings. Concurrent reprocessing of the same document is
// the caller's responsibility to serialize.
func (p *DocumentProcessor) ProcessDocument(ctx context.Context, documentID uint, docType, content string, metadata map[string]any) error {
	if !model.ValidDocType(docType) {
		return fmt.Errorf("%w: %q", ErrUnknownDocType, docType)
	}
	if strings.TrimSpace(content) == "" {
		return ErrEmptyContent
	}

	existing, err := p.chunks.CountByDocument(documentID, docType)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if existing > 0 {
		return nil
	}

	texts, err := SplitText(content, p.chunkSize, p.chunkOverlap)
	if err != nil {
		return err
	}
	if len(texts) == 0 {
		return ErrEmptyContent
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += p.batchSize {
		end := start + p.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := p.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("%w: %v", ErrEmbeddingProvider, err)
		}
		embeddings = append(embeddings, batch...)
	}

	rows := make([]model.DocumentChunk, len(texts))
	for i, text := range texts {
		meta := make(map[string]any, len(metadata)+2)
		for k, v := range metadata {
			meta[k] = v
		}
		meta["chunk_length"] = len([]rune(text))
		meta["total_chunks"] = len(texts)

		rows[i] = model.DocumentChunk{
			DocumentID: documentID,
			DocType:    docType,
			ChunkText:  text,
			ChunkIndex: i,
		}
		rows[i].SetEmbedding(embeddings[i])
		rows[i].SetMetadata(meta)
	}
	if err := p.chunks.CreateBatch(rows); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// ProcessFile extracts text from an uploaded file and delegates to
// ProcessDocument. Plain text and Markdown are read directly; .docx goes
// through the extraction package. PDF has no extraction path here and fails
// fast rather than producing garbage text.
func (p *DocumentProcessor) ProcessFile(ctx context.Context, documentID uint, docType, filename string, data []byte, metadata map[string]any) error {
	content, err := ExtractFileText(filename, data)
	if err != nil {
		return err
	}
	return p.ProcessDocument(ctx, documentID, docType, content, metadata)
}

// ExtractFileText returns the plain text of an uploaded file based on its
// extension.
func ExtractFileText(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		text := strings.TrimSpace(string(data))
		if text == "" {
			return "", ErrEmptyContent
		}
		return text, nil
	case ".docx":
		text, err := docxextract.ExtractText(data)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyContent
		}
		return text, nil
	case ".pdf":
		return "", fmt.Errorf("%w: PDF extraction is not supported", ErrUnsupportedFormat)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// DeleteDocumentEmbeddings removes every chunk for the document/type pair.
// Deleting a document that has no chunks is not an error.
func (p *DocumentProcessor) DeleteDocumentEmbeddings(documentID uint, docType string) error {
	if err := p.chunks.DeleteByDocument(documentID, docType); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return nil
}

// BatchFailure records one document that could not be processed.
type BatchFailure struct {
	DocumentID uint   `json:"document_id"`
	Title      string `json:"title"`
	Error      string `json:"error"`
}

// BatchReport summarizes a process-all run. Processed + Skipped +
// len(Failures) == Total.
type BatchReport struct {
	Total     int            `json:"total"`
	Processed int            `json:"processed"`
	Skipped   int            `json:"skipped"`
	Failures  []BatchFailure `json:"failures,omitempty"`
}

// ProcessAllDocuments embeds every stored document that has no chunks yet.
// Per-document failures are collected and the batch continues; a half-failed
// batch reports exactly which documents need attention instead of aborting.
func (p *DocumentProcessor) ProcessAllDocuments(ctx context.Context) (*BatchReport, error) {
	docs, err := p.docs.List("")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	report := &BatchReport{Total: len(docs)}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		existing, err := p.chunks.CountByDocument(doc.ID, doc.DocType)
		if err == nil && existing > 0 {
			report.Skipped++
			continue
		}

		meta := map[string]any{"title": doc.Title}
		if err := p.ProcessDocument(ctx, doc.ID, doc.DocType, doc.Content, meta); err != nil {
			report.Failures = append(report.Failures, BatchFailure{
				DocumentID: doc.ID,
				Title:      doc.Title,
				Error:      err.Error(),
			})
			continue
		}
		report.Processed++
	}
	return report, nil
}
