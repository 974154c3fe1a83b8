package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"aimsite/internal/app"
	"aimsite/internal/model"
	"aimsite/internal/repository"
	"aimsite/internal/transport/http/response"
)

const maxUploadSize = 10 << 20 // 10 MB

// DocumentHandler exposes the admin document-management routes: documents go
// in, embedded chunks come out.
type DocumentHandler struct {
	docRepo   *repository.DocumentRepository
	chunkRepo *repository.ChunkRepository
	processor *app.DocumentProcessor
}

type CreateDocumentRequest struct {
	Title    string         `json:"title" binding:"required,max=256"`
	DocType  string         `json:"doc_type" binding:"required"`
	Content  string         `json:"content" binding:"required"`
	Metadata map[string]any `json:"metadata"`
}

func NewDocumentHandler(docRepo *repository.DocumentRepository, chunkRepo *repository.ChunkRepository, processor *app.DocumentProcessor) *DocumentHandler {
	return &DocumentHandler{docRepo: docRepo, chunkRepo: chunkRepo, processor: processor}
}

// CreateDocument stores inline text and embeds it immediately.
func (h *DocumentHandler) CreateDocument(c *gin.Context) {
	var req CreateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if !model.ValidDocType(req.DocType) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid doc_type")
		return
	}

	doc := &model.Document{
		Title:   strings.TrimSpace(req.Title),
		DocType: req.DocType,
		Content: req.Content,
	}
	if len(req.Metadata) > 0 {
		if raw, err := json.Marshal(req.Metadata); err == nil {
			doc.Metadata = string(raw)
		}
	}
	if err := h.docRepo.Create(doc); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		return
	}

	if err := h.processor.ProcessDocument(c.Request.Context(), doc.ID, doc.DocType, doc.Content, req.Metadata); err != nil {
		h.processingError(c, doc.Title, err)
		return
	}

	response.OK(c, doc)
}

// UploadDocument accepts a multipart file (.txt, .md, .docx), extracts its
// text, and embeds it. PDF and other formats are rejected up front.
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "missing file")
		return
	}
	if file.Size > maxUploadSize {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "file too large (max 10MB)")
		return
	}

	docType := c.PostForm("doc_type")
	if !model.ValidDocType(docType) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid doc_type")
		return
	}

	f, err := file.Open()
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "failed to read file")
		return
	}

	content, err := app.ExtractFileText(file.Filename, data)
	if err != nil {
		h.processingError(c, file.Filename, err)
		return
	}

	title := strings.TrimSpace(c.PostForm("title"))
	if title == "" {
		title = file.Filename
	}

	doc := &model.Document{
		Title:    title,
		DocType:  docType,
		Content:  content,
		FileName: file.Filename,
	}
	if err := h.docRepo.Create(doc); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "create document failed")
		return
	}

	meta := map[string]any{"file_name": file.Filename}
	if err := h.processor.ProcessDocument(c.Request.Context(), doc.ID, doc.DocType, content, meta); err != nil {
		h.processingError(c, doc.Title, err)
		return
	}

	response.OK(c, doc)
}

func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docType := c.Query("doc_type")
	if docType != "" && !model.ValidDocType(docType) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid doc_type")
		return
	}

	docs, err := h.docRepo.List(docType)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list documents failed")
		return
	}
	response.OK(c, docs)
}

type UpdateDocumentRequest struct {
	Title   string `json:"title" binding:"omitempty,max=256"`
	Content string `json:"content"`
}

// UpdateDocument replaces a document's title and/or content. A content
// change drops the old chunks and embeds the new text so search never
// serves stale excerpts.
func (h *DocumentHandler) UpdateDocument(c *gin.Context) {
	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	var req UpdateDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}

	doc, err := h.docRepo.GetByID(uint(docID64))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	if title := strings.TrimSpace(req.Title); title != "" {
		doc.Title = title
	}
	contentChanged := req.Content != "" && req.Content != doc.Content
	if contentChanged {
		doc.Content = req.Content
	}
	if err := h.docRepo.Update(doc); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "update document failed")
		return
	}

	if contentChanged {
		if err := h.processor.DeleteDocumentEmbeddings(doc.ID, doc.DocType); err != nil {
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete stale embeddings failed")
			return
		}
		if err := h.processor.ProcessDocument(c.Request.Context(), doc.ID, doc.DocType, doc.Content, doc.MetadataMap()); err != nil {
			h.processingError(c, doc.Title, err)
			return
		}
	}

	response.OK(c, doc)
}

// GetDocument returns one document together with its embedded chunks, for
// inspecting how a source text was split.
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.docRepo.GetByID(uint(docID64))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	chunks, err := h.chunkRepo.ListByDocument(doc.ID, doc.DocType)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list chunks failed")
		return
	}

	type chunkView struct {
		ChunkIndex int            `json:"chunk_index"`
		ChunkText  string         `json:"chunk_text"`
		Metadata   map[string]any `json:"metadata,omitempty"`
	}
	views := make([]chunkView, len(chunks))
	for i, ch := range chunks {
		views[i] = chunkView{
			ChunkIndex: ch.ChunkIndex,
			ChunkText:  ch.ChunkText,
			Metadata:   ch.MetadataMap(),
		}
	}

	response.OK(c, gin.H{
		"document": doc,
		"chunks":   views,
	})
}

// DeleteDocument removes the document and every chunk embedded from it, so
// no orphaned chunks survive.
func (h *DocumentHandler) DeleteDocument(c *gin.Context) {
	docID64, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || docID64 == 0 {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid document id")
		return
	}

	doc, err := h.docRepo.GetByID(uint(docID64))
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "get document failed")
		return
	}
	if doc == nil {
		response.Error(c, http.StatusNotFound, response.CodeDocumentNotFound, "document not found")
		return
	}

	if err := h.processor.DeleteDocumentEmbeddings(doc.ID, doc.DocType); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete embeddings failed")
		return
	}
	if err := h.docRepo.Delete(doc.ID); err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "delete document failed")
		return
	}

	response.OK(c, gin.H{"deleted_document_id": doc.ID})
}

// ReprocessAll embeds every document that has no chunks yet and reports
// per-document outcomes instead of stopping at the first failure.
func (h *DocumentHandler) ReprocessAll(c *gin.Context) {
	report, err := h.processor.ProcessAllDocuments(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "reprocess failed")
		return
	}
	response.OK(c, report)
}

// processingError maps the document-processing error taxonomy onto the API
// envelope, naming the document that failed.
func (h *DocumentHandler) processingError(c *gin.Context, title string, err error) {
	switch {
	case errors.Is(err, app.ErrUnsupportedFormat):
		response.Error(c, http.StatusBadRequest, response.CodeUnsupportedFormat, err.Error())
	case errors.Is(err, app.ErrEmptyContent):
		response.Error(c, http.StatusBadRequest, response.CodeEmptyContent, err.Error())
	case errors.Is(err, app.ErrUnknownDocType), errors.Is(err, app.ErrChunkerConfig):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrEmbeddingProvider):
		response.Error(c, http.StatusBadGateway, response.CodeProviderFailure, "embedding failed for "+strconv.Quote(title)+": "+err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "processing failed for "+strconv.Quote(title)+": "+err.Error())
	}
}
