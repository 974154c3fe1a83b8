package model

import (
	"encoding/json"
	"time"
)

// DocumentChunk is one embedded segment of a document. ChunkIndex values for
// a document form a dense 0..N-1 range in split order. The embedding is
// stored as a JSON array of float32 in a text column for portability; all
// stored vectors share the dimensionality of the embedding model in use.
type DocumentChunk struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	DocumentID uint      `gorm:"not null;index:idx_chunk_doc" json:"document_id"`
	DocType    string    `gorm:"size:32;not null;index:idx_chunk_doc" json:"doc_type"`
	ChunkText  string    `gorm:"type:text;not null" json:"chunk_text"`
	ChunkIndex int       `gorm:"not null" json:"chunk_index"`
	Embedding  string    `gorm:"type:text" json:"-"` // JSON array of float32
	Metadata   string    `gorm:"type:text" json:"-"` // JSON object
	CreatedAt  time.Time `json:"created_at"`
}

// SetEmbedding stores the vector as its JSON text form.
func (c *DocumentChunk) SetEmbedding(vec []float32) {
	if len(vec) == 0 {
		c.Embedding = "[]"
		return
	}
	b, _ := json.Marshal(vec)
	c.Embedding = string(b)
}

// SetMetadata stores the metadata map as JSON; nil maps become "{}".
func (c *DocumentChunk) SetMetadata(meta map[string]any) {
	if len(meta) == 0 {
		c.Metadata = "{}"
		return
	}
	b, err := json.Marshal(meta)
	if err != nil {
		c.Metadata = "{}"
		return
	}
	c.Metadata = string(b)
}

// MetadataMap returns the parsed metadata; empty map on parse error.
func (c *DocumentChunk) MetadataMap() map[string]any {
	meta := map[string]any{}
	if c.Metadata == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(c.Metadata), &meta)
	return meta
}

// ChunkMatch is a retrieval hit: a chunk plus its similarity to the query.
// Rows come either from the database-side similarity routine or from the
// in-process cosine fallback; both paths produce this shape.
type ChunkMatch struct {
	DocumentID uint           `json:"document_id"`
	DocType    string         `json:"doc_type"`
	ChunkText  string         `json:"chunk_text"`
	ChunkIndex int            `json:"chunk_index"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity"`
}
