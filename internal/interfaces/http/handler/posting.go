package handler

import (
	"context"
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/erp/ledger/internal/application/posting"
	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/erp/ledger/internal/interfaces/http/middleware"
)

// DocumentPoster posts documents
type DocumentPoster interface {
	Post(ctx context.Context, cmd posting.PostCommand) (*posting.Result, error)
}

// PostingHandler exposes the posting orchestrator
type PostingHandler struct {
	BaseHandler
	poster DocumentPoster
}

// NewPostingHandler creates a PostingHandler
func NewPostingHandler(poster DocumentPoster) *PostingHandler {
	return &PostingHandler{poster: poster}
}

// PostDocument posts a draft document of any type. The optional
// treasury_id overrides the document's treasury for the cash effect.
//
//	POST /documents/:id/post
func (h *PostingHandler) PostDocument(c *gin.Context) {
	documentID, ok := h.UUIDParam(c, "id")
	if !ok {
		return
	}
	// the body is optional
	var req dto.PostDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		middleware.HandleBindError(c, err)
		return
	}

	result, err := h.poster.Post(c.Request.Context(), posting.PostCommand{
		DocumentID: documentID,
		TreasuryID: req.TreasuryID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
