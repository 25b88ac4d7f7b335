package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/pkg/errcode"
	"github.com/xxxsen/curato/internal/pkg/response"
	"github.com/xxxsen/curato/internal/service"
)

type CommentHandler struct {
	comments *service.CommentService
}

func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

type createCommentRequest struct {
	ContentID     string  `json:"content_id"`
	AuthorName    string  `json:"author_name"`
	AuthorEmail   string  `json:"author_email"`
	AuthorWebsite string  `json:"author_website"`
	Body          string  `json:"body"`
	ParentID      *string `json:"parent_id"`
}

func (h *CommentHandler) List(c *gin.Context) {
	items, err := h.comments.ListComments(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

// Create stores a visitor comment. Visitor comments wait for approval.
func (h *CommentHandler) Create(c *gin.Context) {
	var req createCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if strings.TrimSpace(req.Body) == "" {
		response.Error(c, errcode.ErrMissingParameter, "body is required")
		return
	}
	comment, err := h.comments.CreateComment(c.Request.Context(), service.CommentInput{
		ContentID:     req.ContentID,
		AuthorName:    req.AuthorName,
		AuthorEmail:   req.AuthorEmail,
		AuthorWebsite: req.AuthorWebsite,
		Body:          req.Body,
		ParentID:      req.ParentID,
		Approved:      false,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, comment)
}
