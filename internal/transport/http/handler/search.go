package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"aimsite/internal/app"
	"aimsite/internal/model"
	"aimsite/internal/transport/http/response"
)

// SearchHandler is the admin debug route for exercising retrieval directly.
type SearchHandler struct {
	search *app.VectorSearch
}

type SearchRequest struct {
	Query       string `json:"query" binding:"required"`
	Limit       int    `json:"limit"`
	DocType     string `json:"doc_type"`
	WithContext bool   `json:"with_context"`
}

func NewSearchHandler(search *app.VectorSearch) *SearchHandler {
	return &SearchHandler{search: search}
}

func (h *SearchHandler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
		return
	}
	if req.DocType != "" && !model.ValidDocType(req.DocType) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid doc_type")
		return
	}

	matches, err := h.search.SearchSimilarChunks(c.Request.Context(), req.Query, req.Limit, req.DocType)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
		case errors.Is(err, app.ErrEmbeddingProvider):
			response.Error(c, http.StatusBadGateway, response.CodeProviderFailure, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "search failed")
		}
		return
	}

	result := gin.H{"matches": matches}
	if req.WithContext {
		contextBlock, ctxErr := h.search.SearchWithContext(c.Request.Context(), req.Query, req.Limit, req.DocType)
		if ctxErr == nil {
			result["context"] = contextBlock
		}
	}
	response.OK(c, result)
}
