package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/dept-records-api/api/swagger"
	"github.com/noah-isme/dept-records-api/internal/handler"
	"github.com/noah-isme/dept-records-api/internal/middleware"
	"github.com/noah-isme/dept-records-api/internal/models"
	"github.com/noah-isme/dept-records-api/internal/repository"
	"github.com/noah-isme/dept-records-api/internal/service"
	"github.com/noah-isme/dept-records-api/pkg/cache"
	"github.com/noah-isme/dept-records-api/pkg/config"
	"github.com/noah-isme/dept-records-api/pkg/database"
	"github.com/noah-isme/dept-records-api/pkg/logger"
	"github.com/noah-isme/dept-records-api/pkg/middleware/cors"
	"github.com/noah-isme/dept-records-api/pkg/middleware/requestid"
	"github.com/noah-isme/dept-records-api/pkg/storage"
)

// @title Department Records API
// @version 1.0
// @description Archive register, postgraduate tracker and alert dashboard for a university department.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, dashboard cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	files, err := storage.NewLocalStorage(cfg.Uploads.StorageDir)
	if err != nil {
		log.Fatal("init upload storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Uploads.SignedURLSecret, cfg.Uploads.SignedURLTTL)

	timeout := cfg.Database.QueryTimeout
	documentRepo := repository.NewDocumentRepository(db, timeout)
	studentRepo := repository.NewPostgraduateRepository(db, timeout)
	portfolioRepo := repository.NewPortfolioRepository(db, timeout)
	userRepo := repository.NewUserRepository(db, timeout)
	cacheRepo := repository.NewCacheRepository(redisClient, log)

	authService := service.NewAuthService(userRepo, cfg.JWT, log)
	registryService := service.NewRegistryService(documentRepo, userRepo, files, signer, log)
	trackerService := service.NewTrackerService(studentRepo, portfolioRepo, userRepo, files, cacheRepo, log)
	dashboardService := service.NewDashboardService(studentRepo, cacheRepo, cfg.Dashboard.CacheTTL, log)
	exportService := service.NewExportService(registryService, studentRepo, log)
	crossrefService := service.NewCrossRefService(portfolioRepo, documentRepo, signer, log)

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(registryService, cfg.Uploads.MaxFileSizeBytes)
	studentHandler := handler.NewPostgraduateHandler(trackerService, crossrefService, cfg.Uploads.MaxFileSizeBytes)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	exportHandler := handler.NewExportHandler(exportService)

	promRegistry := prometheus.NewRegistry()
	promRegistry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := middleware.NewMetrics(promRegistry)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.Middleware())
	router.Use(logger.GinMiddleware(log))
	router.Use(cors.New(cfg.CORS.AllowedOrigins))
	router.Use(metrics.Handler())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promRegistry, promhttp.HandlerOpts{})))
	router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	api := router.Group(cfg.APIPrefix)
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.POST("/logout", authHandler.Logout)
		}

		// Signed tokens carry their own authorization.
		api.GET("/files/:token", documentHandler.Download)

		authenticated := api.Group("")
		authenticated.Use(middleware.Authenticate(authService))
		{
			documents := authenticated.Group("/documents")
			{
				documents.GET("", documentHandler.List)
				documents.GET("/:id", documentHandler.Get)
				documents.GET("/:id/download", documentHandler.DownloadURL)

				write := documents.Group("")
				write.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
				{
					write.POST("", documentHandler.Create)
					write.PATCH("/:id", documentHandler.Update)
					write.POST("/:id/file", documentHandler.Upload)
				}
				documents.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), documentHandler.Delete)
			}

			students := authenticated.Group("/students")
			{
				students.GET("", studentHandler.List)
				students.GET("/:id", studentHandler.Get)
				students.GET("/:id/portfolio", studentHandler.GetPortfolio)
				students.GET("/:id/portfolio/entries/:docId/resolve", studentHandler.ResolvePortfolioDoc)

				write := students.Group("")
				write.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
				{
					write.POST("", studentHandler.Create)
					write.PATCH("/:id/dates", studentHandler.UpdateDates)
					write.PATCH("/:id/status", studentHandler.UpdateStatus)
					write.PATCH("/:id/portfolio", studentHandler.UpdatePortfolio)
					write.POST("/:id/portfolio/archive-links", studentHandler.LinkArchive)
					write.POST("/:id/portfolio/files", studentHandler.UploadPortfolioDoc)
					write.DELETE("/:id/portfolio/entries/:docId", studentHandler.RemovePortfolioDoc)
					write.POST("/:id/artifacts/:kind", studentHandler.UploadArtifact)
				}
			}

			if cfg.Dashboard.Enabled {
				authenticated.GET("/dashboard/alerts", dashboardHandler.AlertCounts)
			}
			if cfg.Exports.Enabled {
				exports := authenticated.Group("/exports")
				exports.Use(middleware.RequireRoles(models.RoleAdmin, models.RoleStaff))
				{
					exports.GET("/register", exportHandler.Register)
					exports.GET("/postgraduates", exportHandler.Roster)
				}
			}
		}
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
