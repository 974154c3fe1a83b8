package repository

import (
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	"aimsite/internal/model"
)

type ChunkRepository struct {
	db *gorm.DB
}

func NewChunkRepository(db *gorm.DB) *ChunkRepository {
	return &ChunkRepository{db: db}
}

// CreateBatch inserts all chunks in a single statement so a document's chunk
// set is written all-or-nothing.
func (r *ChunkRepository) CreateBatch(chunks []model.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if err := r.db.Create(&chunks).Error; err != nil {
		return fmt.Errorf("create chunk batch failed: %w", err)
	}
	return nil
}

func (r *ChunkRepository) CountByDocument(documentID uint, docType string) (int64, error) {
	var count int64
	err := r.db.Model(&model.DocumentChunk{}).
		Where("document_id = ? AND doc_type = ?", documentID, docType).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count chunks failed: %w", err)
	}
	return count, nil
}

func (r *ChunkRepository) ListByDocument(documentID uint, docType string) ([]model.DocumentChunk, error) {
	var chunks []model.DocumentChunk
	err := r.db.Where("document_id = ? AND doc_type = ?", documentID, docType).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, fmt.Errorf("list chunks by document failed: %w", err)
	}
	return chunks, nil
}

// ListByType is the raw scan used by the similarity fallback: chunks with
// their stored embeddings, no server-side scoring. docType "" means all types.
func (r *ChunkRepository) ListByType(docType string, limit int) ([]model.DocumentChunk, error) {
	q := r.db.Model(&model.DocumentChunk{})
	if docType != "" {
		q = q.Where("doc_type = ?", docType)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var chunks []model.DocumentChunk
	if err := q.Find(&chunks).Error; err != nil {
		return nil, fmt.Errorf("scan chunks failed: %w", err)
	}
	return chunks, nil
}

func (r *ChunkRepository) DeleteByDocument(documentID uint, docType string) error {
	err := r.db.Where("document_id = ? AND doc_type = ?", documentID, docType).
		Delete(&model.DocumentChunk{}).Error
	if err != nil {
		return fmt.Errorf("delete chunks by document failed: %w", err)
	}
	return nil
}

// chunkMatchRow is the scan target for the database-side similarity routine.
type chunkMatchRow struct {
	DocumentID uint    `gorm:"column:document_id"`
	DocType    string  `gorm:"column:doc_type"`
	ChunkText  string  `gorm:"column:chunk_text"`
	ChunkIndex int     `gorm:"column:chunk_index"`
	Metadata   string  `gorm:"column:metadata"`
	Similarity float64 `gorm:"column:similarity"`
}

// MatchChunks calls the optional match_document_chunks database routine. The
// routine may not be provisioned; callers treat any error here as a signal to
// fall back to the in-process scan, not as a fatal failure.
func (r *ChunkRepository) MatchChunks(queryVec []float32, threshold float64, limit int, docType string) ([]model.ChunkMatch, error) {
	vec, err := json.Marshal(queryVec)
	if err != nil {
		return nil, fmt.Errorf("encode query vector failed: %w", err)
	}

	var rows []chunkMatchRow
	err = r.db.Raw(
		"SELECT document_id, doc_type, chunk_text, chunk_index, metadata, similarity "+
			"FROM match_document_chunks(?, ?, ?, ?)",
		string(vec), threshold, limit, docType,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("match_document_chunks failed: %w", err)
	}

	matches := make([]model.ChunkMatch, len(rows))
	for i, row := range rows {
		meta := map[string]any{}
		if row.Metadata != "" {
			_ = json.Unmarshal([]byte(row.Metadata), &meta)
		}
		matches[i] = model.ChunkMatch{
			DocumentID: row.DocumentID,
			DocType:    row.DocType,
			ChunkText:  row.ChunkText,
			ChunkIndex: row.ChunkIndex,
			Metadata:   meta,
			Similarity: row.Similarity,
		}
	}
	return matches, nil
}
