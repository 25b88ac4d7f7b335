package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/imageproxy"
	"github.com/xxxsen/curato/internal/model"
	"github.com/xxxsen/curato/internal/pkg/errcode"
	"github.com/xxxsen/curato/internal/pkg/response"
	"github.com/xxxsen/curato/internal/service"
)

type ContentHandler struct {
	contents *service.ContentService
	resolver *imageproxy.Resolver
}

func NewContentHandler(contents *service.ContentService, resolver *imageproxy.Resolver) *ContentHandler {
	return &ContentHandler{contents: contents, resolver: resolver}
}

type contentResponse struct {
	model.Content
	CoverDisplayURL    string   `json:"cover_display_url"`
	GalleryDisplayURLs []string `json:"gallery_display_urls"`
}

func (h *ContentHandler) present(content *model.Content) contentResponse {
	cover, _ := h.resolver.ResolveDisplayURL(content.CoverImageURL)
	return contentResponse{
		Content:            *content,
		CoverDisplayURL:    cover,
		GalleryDisplayURLs: h.resolver.ResolveAll(content.GalleryImageURLs),
	}
}

func (h *ContentHandler) presentAll(items []model.Content) []contentResponse {
	out := make([]contentResponse, 0, len(items))
	for i := range items {
		out = append(out, h.present(&items[i]))
	}
	return out
}

func (h *ContentHandler) filter(c *gin.Context, includeUnpublished bool) model.ContentFilter {
	return model.ContentFilter{
		CategoryID:         c.Query("category_id"),
		Featured:           queryBool(c, "featured"),
		Search:             c.Query("q"),
		IncludeUnpublished: includeUnpublished,
		Offset:             queryInt(c, "offset", 0),
		Limit:              queryInt(c, "limit", 20),
	}
}

func (h *ContentHandler) List(c *gin.Context) {
	items, err := h.contents.ListContents(c.Request.Context(), h.filter(c, false))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.presentAll(items))
}

func (h *ContentHandler) Get(c *gin.Context) {
	content, err := h.contents.ViewContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.present(content))
}

func (h *ContentHandler) Like(c *gin.Context) {
	content, err := h.contents.LikeContent(c.Request.Context(), c.Param("id"))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"like_count": content.LikeCount})
}

func (h *ContentHandler) AdminList(c *gin.Context) {
	items, err := h.contents.ListContents(c.Request.Context(), h.filter(c, true))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.presentAll(items))
}

func (h *ContentHandler) AdminGet(c *gin.Context) {
	content, err := h.contents.GetContent(c.Request.Context(), c.Param("id"), true)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.present(content))
}

func (h *ContentHandler) Create(c *gin.Context) {
	var req service.ContentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	content, err := h.contents.CreateContent(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.present(content))
}

func (h *ContentHandler) Update(c *gin.Context) {
	var req service.ContentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	content, err := h.contents.UpdateContent(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, h.present(content))
}

func (h *ContentHandler) Delete(c *gin.Context) {
	if err := h.contents.DeleteContent(c.Request.Context(), c.Param("id")); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, nil)
}
