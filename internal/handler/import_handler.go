package handler

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/xxxsen/curato/internal/pkg/errcode"
	"github.com/xxxsen/curato/internal/pkg/response"
	"github.com/xxxsen/curato/internal/service"
)

type ImportHandler struct {
	imports *service.ImportService
}

func NewImportHandler(imports *service.ImportService) *ImportHandler {
	return &ImportHandler{imports: imports}
}

type syncRequest struct {
	Method         string          `json:"method"`
	URL            string          `json:"url"`
	CategoryID     string          `json:"categoryId"`
	Data           json.RawMessage `json:"data"`
	AutoSaveImages *bool           `json:"autoSaveImages"`
}

type syncResponse struct {
	Success  bool     `json:"success"`
	Count    int      `json:"count"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

func (h *ImportHandler) Sync(c *gin.Context) {
	var req syncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrImportInvalidJSON, "invalid json")
		return
	}
	switch req.Method {
	case service.ImportMethodLink:
		h.syncLink(c, req)
	case service.ImportMethodJSON:
		h.syncJSON(c, req)
	default:
		response.Error(c, errcode.ErrInvalid, "invalid method, supported: link, json")
	}
}

func (h *ImportHandler) syncLink(c *gin.Context, req syncRequest) {
	err := h.imports.ImportByLink(c.Request.Context(), req.URL, req.CategoryID)
	var notImpl *service.NotImplementedError
	if errors.As(err, &notImpl) {
		response.ErrorWithData(c, errcode.ErrNotImplemented, notImpl.Error(), gin.H{
			"url":  notImpl.URL,
			"note": notImpl.Hint,
		})
		return
	}
	handleError(c, err)
}

func (h *ImportHandler) syncJSON(c *gin.Context, req syncRequest) {
	if len(bytes.TrimSpace(req.Data)) == 0 {
		response.Error(c, errcode.ErrInvalid, "data must be an array")
		return
	}
	records, err := service.ParseRecords(req.Data)
	if err != nil {
		handleError(c, err)
		return
	}
	opts := service.DefaultImportOptions()
	if req.AutoSaveImages != nil {
		opts.AutoRelocateImages = *req.AutoSaveImages
	}
	opts.CategoryID = req.CategoryID
	result, err := h.imports.ImportBatch(c.Request.Context(), records, opts)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, syncResponse{
		Success:  result.Succeeded > 0,
		Count:    result.Succeeded,
		Failed:   result.Failed,
		Errors:   result.Errors,
		Warnings: result.Warnings,
	})
}

func (h *ImportHandler) Runs(c *gin.Context) {
	runs, err := h.imports.ListRuns(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, runs)
}
