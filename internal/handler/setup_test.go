package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"github.com/xxxsen/common/webapi"

	"github.com/xxxsen/curato/internal/config"
	"github.com/xxxsen/curato/internal/filestore"
	"github.com/xxxsen/curato/internal/handler"
	"github.com/xxxsen/curato/internal/imageproxy"
	"github.com/xxxsen/curato/internal/media"
	"github.com/xxxsen/curato/internal/middleware"
	"github.com/xxxsen/curato/internal/repo"
	"github.com/xxxsen/curato/internal/service"
	"github.com/xxxsen/curato/internal/testutil"
)

type envelope struct {
	Code int             `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	gin.SetMode(gin.TestMode)

	conn := testutil.OpenTestDB(t)
	contentRepo := repo.NewContentRepo(conn)
	commentRepo := repo.NewCommentRepo(conn)
	categoryRepo := repo.NewCategoryRepo(conn)
	runRepo := repo.NewImportRunRepo(conn)

	store, err := filestore.New(config.FileStoreConfig{
		Type: "local",
		Data: map[string]interface{}{
			"dir": t.TempDir(),
		},
	})
	require.NoError(t, err)

	contentService := service.NewContentService(contentRepo, commentRepo, categoryRepo)
	commentService := service.NewCommentService(commentRepo, contentRepo)
	categoryService := service.NewCategoryService(categoryRepo)
	relocator := media.NewRelocator(store, media.Config{FetchTimeout: 5 * time.Second})
	importService := service.NewImportService(contentService, commentService, relocator, runRepo, service.ImportConfig{})
	resolver := imageproxy.NewResolver("", nil)

	deps := handler.RouterDeps{
		Contents:         handler.NewContentHandler(contentService, resolver),
		Categories:       handler.NewCategoryHandler(categoryService),
		Comments:         handler.NewCommentHandler(commentService),
		Imports:          handler.NewImportHandler(importService),
		Files:            handler.NewFileHandler(store, 1024*1024),
		ImageProxy:       handler.NewImageProxyHandler(imageproxy.NewProxy(resolver, imageproxy.ProxyConfig{})),
		CommentRateLimit: time.Minute,
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		"",
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(nil),
		),
	)
	require.NoError(t, err)
	return engine
}

func doJSON(t *testing.T, router http.Handler, method, path string, body interface{}) envelope {
	t.Helper()
	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		payload, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	var out envelope
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	return out
}
