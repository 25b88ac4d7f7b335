package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/pkg/errcode"
	"github.com/xxxsen/curato/internal/pkg/response"
	"github.com/xxxsen/curato/internal/service"
)

type CategoryHandler struct {
	categories *service.CategoryService
}

func NewCategoryHandler(categories *service.CategoryService) *CategoryHandler {
	return &CategoryHandler{categories: categories}
}

func (h *CategoryHandler) List(c *gin.Context) {
	items, err := h.categories.List(c.Request.Context(), true)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *CategoryHandler) AdminList(c *gin.Context) {
	items, err := h.categories.List(c.Request.Context(), false)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, items)
}

func (h *CategoryHandler) GetBySlug(c *gin.Context) {
	category, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, category)
}

func (h *CategoryHandler) Create(c *gin.Context) {
	var req service.CategoryInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	category, err := h.categories.Create(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, category)
}
