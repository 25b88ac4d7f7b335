package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/middleware"
)

type RouterDeps struct {
	Contents         *ContentHandler
	Categories       *CategoryHandler
	Comments         *CommentHandler
	Imports          *ImportHandler
	Files            *FileHandler
	ImageProxy       *ImageProxyHandler
	CommentRateLimit time.Duration
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.GET("/contents", deps.Contents.List)
	api.GET("/contents/:id", deps.Contents.Get)
	api.POST("/contents/:id/like", deps.Contents.Like)
	api.GET("/contents/:id/comments", deps.Comments.List)
	api.POST("/comments", middleware.RateLimit(deps.CommentRateLimit), deps.Comments.Create)
	api.GET("/categories", deps.Categories.List)
	api.GET("/categories/:slug", deps.Categories.GetBySlug)
	api.GET("/image-proxy", deps.ImageProxy.Get)
	api.GET("/files/*key", deps.Files.Get)

	admin := api.Group("/admin")
	admin.GET("/contents", deps.Contents.AdminList)
	admin.POST("/contents", deps.Contents.Create)
	admin.GET("/contents/:id", deps.Contents.AdminGet)
	admin.PUT("/contents/:id", deps.Contents.Update)
	admin.DELETE("/contents/:id", deps.Contents.Delete)
	admin.GET("/categories", deps.Categories.AdminList)
	admin.POST("/categories", deps.Categories.Create)
	admin.POST("/sync/xiaohongshu", deps.Imports.Sync)
	admin.GET("/imports", deps.Imports.Runs)
	admin.POST("/upload", deps.Files.Upload)
}
