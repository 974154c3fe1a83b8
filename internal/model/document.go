package model

import (
	"encoding/json"
	"time"
)

// Document types form a closed set; chunks duplicate the type so retrieval
// can filter without a join.
const (
	DocTypeResearch = "research"
	DocTypeRAG      = "rag"
)

// Document is an admin-managed source text. Content holds inline text for
// documents entered directly; FileName is set when the text came from an
// uploaded file.
type Document struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:256;not null" json:"title"`
	DocType   string    `gorm:"size:32;not null;index" json:"doc_type"`
	Content   string    `gorm:"type:longtext" json:"content,omitempty"`
	FileName  string    `gorm:"size:256" json:"file_name,omitempty"`
	Metadata  string    `gorm:"type:text" json:"-"` // JSON object
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// MetadataMap returns the parsed metadata; empty map on parse error.
func (d *Document) MetadataMap() map[string]any {
	meta := map[string]any{}
	if d.Metadata == "" {
		return meta
	}
	_ = json.Unmarshal([]byte(d.Metadata), &meta)
	return meta
}

// ValidDocType reports whether t is one of the known document types.
func ValidDocType(t string) bool {
	return t == DocTypeResearch || t == DocTypeRAG
}
