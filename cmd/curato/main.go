package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/curato/internal/config"
	"github.com/xxxsen/curato/internal/db"
	"github.com/xxxsen/curato/internal/filestore"
	"github.com/xxxsen/curato/internal/handler"
	"github.com/xxxsen/curato/internal/imageproxy"
	"github.com/xxxsen/curato/internal/job"
	"github.com/xxxsen/curato/internal/media"
	"github.com/xxxsen/curato/internal/middleware"
	"github.com/xxxsen/curato/internal/repo"
	"github.com/xxxsen/curato/internal/schedule"
	"github.com/xxxsen/curato/internal/service"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "curato",
		Short: "curato content backend",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
				logutil.GetLogger(context.Background()).Warn("load .env failed", zap.Error(err))
			}
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run curato server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			logutil.GetLogger(context.Background()).Info("migrations applied")
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, migrateCmd, newImportCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

// bootstrap loads the config, initializes logging and opens a migrated database.
func bootstrap(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded",
		zap.String("config", configPath),
		zap.String("db_driver", cfg.Database.Driver),
	)

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

type app struct {
	contents   *service.ContentService
	comments   *service.CommentService
	categories *service.CategoryService
	imports    *service.ImportService
	runs       *repo.ImportRunRepo
	store      filestore.Store
}

func buildApp(cfg *config.Config, conn *sql.DB) (*app, error) {
	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}
	contentRepo := repo.NewContentRepo(conn)
	commentRepo := repo.NewCommentRepo(conn)
	categoryRepo := repo.NewCategoryRepo(conn)
	runRepo := repo.NewImportRunRepo(conn)

	contents := service.NewContentService(contentRepo, commentRepo, categoryRepo)
	comments := service.NewCommentService(commentRepo, contentRepo)
	relocator := media.NewRelocator(store, media.Config{
		UserAgent:    cfg.Media.UserAgent,
		FetchTimeout: time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second,
		MaxBytes:     cfg.Media.MaxBytes,
		MaxRetries:   cfg.Media.MaxRetries,
		HostInterval: time.Duration(cfg.Media.HostIntervalMS) * time.Millisecond,
	})
	imports := service.NewImportService(contents, comments, relocator, runRepo, service.ImportConfig{
		ImagePrefix:  cfg.Import.ImagePrefix,
		AvatarPrefix: cfg.Import.AvatarPrefix,
	})
	return &app{
		contents:   contents,
		comments:   comments,
		categories: service.NewCategoryService(categoryRepo),
		imports:    imports,
		runs:       runRepo,
		store:      store,
	}, nil
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("file_store", cfg.FileStore.Type),
	)
	a, err := buildApp(cfg, conn)
	if err != nil {
		return err
	}

	resolver := imageproxy.NewResolver(cfg.ImageProxy.Endpoint, cfg.ImageProxy.Domains)
	proxy := imageproxy.NewProxy(resolver, imageproxy.ProxyConfig{
		UserAgent: cfg.Media.UserAgent,
		Timeout:   time.Duration(cfg.Media.FetchTimeoutSeconds) * time.Second,
		MaxBytes:  cfg.Media.MaxBytes,
		CacheSize: cfg.ImageProxy.CacheSize,
		CacheTTL:  time.Duration(cfg.ImageProxy.CacheTTLMinutes) * time.Minute,
	})

	deps := handler.RouterDeps{
		Contents:         handler.NewContentHandler(a.contents, resolver),
		Categories:       handler.NewCategoryHandler(a.categories),
		Comments:         handler.NewCommentHandler(a.comments),
		Imports:          handler.NewImportHandler(a.imports),
		Files:            handler.NewFileHandler(a.store, int64(cfg.MaxUploadSizeMB)*1024*1024),
		ImageProxy:       handler.NewImageProxyHandler(proxy),
		CommentRateLimit: time.Duration(cfg.CommentRateLimitSeconds) * time.Second,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORS),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewImportRunCleanupJob(a.runs, time.Duration(cfg.Import.RunMaxAgeDays)*24*time.Hour)
	if err := scheduler.AddJob(cleanup, cfg.Import.CleanupCron); err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
