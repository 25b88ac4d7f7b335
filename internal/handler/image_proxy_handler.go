package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/imageproxy"
)

type ImageProxyHandler struct {
	proxy *imageproxy.Proxy
}

func NewImageProxyHandler(proxy *imageproxy.Proxy) *ImageProxyHandler {
	return &ImageProxyHandler{proxy: proxy}
}

func (h *ImageProxyHandler) Get(c *gin.Context) {
	img, err := h.proxy.Fetch(c.Request.Context(), c.Query("url"))
	if err != nil {
		handleError(c, err)
		return
	}
	etag := `"` + img.ETag + `"`
	if c.GetHeader("If-None-Match") == etag {
		c.Status(http.StatusNotModified)
		return
	}
	c.Header("Cache-Control", "public, max-age=86400")
	c.Header("ETag", etag)
	c.Header("Cross-Origin-Resource-Policy", "cross-origin")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}
