package handler

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/filestore"
	"github.com/xxxsen/curato/internal/media"
	"github.com/xxxsen/curato/internal/pkg/errcode"
	"github.com/xxxsen/curato/internal/pkg/response"
	"github.com/xxxsen/curato/internal/pkg/timeutil"
)

const uploadPrefix = "uploads"

type FileHandler struct {
	store         filestore.Store
	maxUploadSize int64
}

type UploadResponse struct {
	URL         string `json:"url"`
	Key         string `json:"key"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
}

func NewFileHandler(store filestore.Store, maxUploadSize int64) *FileHandler {
	return &FileHandler{store: store, maxUploadSize: maxUploadSize}
}

// Upload stores an image sent by the admin UI.
func (h *FileHandler) Upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "file is required")
		return
	}
	if h.maxUploadSize > 0 && file.Size > h.maxUploadSize {
		response.Error(c, errcode.ErrInvalidFile, "file too large (max "+formatUploadLimit(h.maxUploadSize)+")")
		return
	}
	opened, err := file.Open()
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to open file")
		return
	}
	defer opened.Close()

	contentType, err := sniffContentType(opened)
	if err != nil {
		response.Error(c, errcode.ErrInvalidFile, "failed to read file")
		return
	}
	if !media.IsSupportedImageType(contentType) {
		response.Error(c, errcode.ErrUnsupportedMediaType, "only jpeg, png, gif and webp images are accepted")
		return
	}
	key := fmt.Sprintf("%s/%d_%s.%s", uploadPrefix, timeutil.NowMilli(), randomHex(4), media.ExtensionFor(contentType))
	if err := h.store.Save(c.Request.Context(), key, opened, file.Size, filestore.PutOptions{
		ContentType: contentType,
		Public:      true,
	}); err != nil {
		handleError(c, fmt.Errorf("save upload: %w", err))
		return
	}
	response.Success(c, UploadResponse{
		URL:         h.store.URL(key),
		Key:         key,
		Name:        file.Filename,
		ContentType: contentType,
	})
}

// Get serves objects of the local store.
func (h *FileHandler) Get(c *gin.Context) {
	if h.store.Type() != "local" {
		c.Status(http.StatusNotFound)
		return
	}
	key, err := filestore.CleanKey(c.Param("key"))
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}
	file, err := h.store.Open(c.Request.Context(), key)
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer file.Close()
	contentType := mime.TypeByExtension(filepath.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	c.Header("Cache-Control", "public, max-age=31536000, immutable")
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}

func sniffContentType(file multipart.File) (string, error) {
	buf := make([]byte, 512)
	read, err := file.Read(buf)
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(buf[:read]), nil
}

func randomHex(size int) string {
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return ""
	}
	return hex.EncodeToString(buf)
}
