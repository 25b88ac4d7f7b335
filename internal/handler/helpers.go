package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/curato/internal/middleware"
	"github.com/xxxsen/curato/internal/pkg/errcode"
	appErr "github.com/xxxsen/curato/internal/pkg/errors"
	"github.com/xxxsen/curato/internal/pkg/response"
)

func handleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	logutil.GetLogger(c.Request.Context()).Error("request failed",
		zap.String("request_id", c.GetString(middleware.ContextRequestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	switch {
	case errors.Is(err, appErr.ErrNotFound):
		response.Error(c, errcode.ErrNotFound, "not found")
	case errors.Is(err, appErr.ErrConflict):
		response.Error(c, errcode.ErrConflict, "conflict")
	case errors.Is(err, appErr.ErrMissingParameter):
		response.Error(c, errcode.ErrMissingParameter, err.Error())
	case errors.Is(err, appErr.ErrNotImplemented):
		response.Error(c, errcode.ErrNotImplemented, err.Error())
	case errors.Is(err, appErr.ErrValidation):
		response.Error(c, errcode.ErrValidation, err.Error())
	case errors.Is(err, appErr.ErrInvalidJSON):
		response.Error(c, errcode.ErrImportInvalidJSON, "invalid json")
	case errors.Is(err, appErr.ErrInvalidURL):
		response.Error(c, errcode.ErrInvalidURL, "invalid url")
	case errors.Is(err, appErr.ErrUnsupportedMediaType):
		response.Error(c, errcode.ErrUnsupportedMediaType, "unsupported media type")
	case errors.Is(err, appErr.ErrUpstreamFetch):
		response.Error(c, errcode.ErrUpstreamFetch, "upstream fetch failed")
	case errors.Is(err, appErr.ErrInvalid):
		response.Error(c, errcode.ErrInvalid, err.Error())
	case errors.Is(err, appErr.ErrTooMany):
		response.Error(c, errcode.ErrTooMany, "too many requests")
	default:
		response.Error(c, errcode.ErrInternal, "internal error")
	}
}

func queryInt(c *gin.Context, key string, fallback int) int {
	value := c.Query(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

func queryBool(c *gin.Context, key string) *bool {
	value := c.Query(key)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil
	}
	return &parsed
}
