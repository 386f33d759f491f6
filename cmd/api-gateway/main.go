package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/arkivet/document-api/api/swagger"
	"github.com/arkivet/document-api/internal/events"
	"github.com/arkivet/document-api/internal/handler"
	"github.com/arkivet/document-api/internal/middleware"
	"github.com/arkivet/document-api/internal/models"
	"github.com/arkivet/document-api/internal/repository"
	"github.com/arkivet/document-api/internal/service"
	"github.com/arkivet/document-api/pkg/cache"
	"github.com/arkivet/document-api/pkg/config"
	"github.com/arkivet/document-api/pkg/database"
	"github.com/arkivet/document-api/pkg/export"
	"github.com/arkivet/document-api/pkg/logger"
	corsmiddleware "github.com/arkivet/document-api/pkg/middleware/cors"
	reqidmiddleware "github.com/arkivet/document-api/pkg/middleware/requestid"
	"github.com/arkivet/document-api/pkg/storage"
)

// @title Arkivet Document API
// @version 0.1.0
// @description Document compliance, retention and lifecycle services
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close() //nolint:errcheck

	contentStore, err := storage.NewLocalStorage(cfg.Documents.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init content storage", "error", err)
	}
	artifactStore, err := storage.NewLocalStorage(cfg.Archives.ArtifactDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init artifact storage", "error", err)
	}

	userRepo := repository.NewUserRepository(db)
	documentRepo := repository.NewDocumentRepository(db)
	archiveRepo := repository.NewArchiveRepository(db)
	signatureRepo := repository.NewSignatureRepository(db)
	templateRepo := repository.NewTemplateRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	bus := events.NewBus(logr)
	locks := service.NewDocumentLocks()
	signer := storage.NewSignedURLSigner(cfg.Documents.SignedURLSecret, cfg.Documents.SignedURLTTL)

	metricsService := service.NewMetricsService()
	policyService := service.NewPolicyService(cfg.Compliance)
	authService := service.NewAuthService(userRepo, auditRepo, validator.New(), logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "document-api",
	})
	documentService := service.NewDocumentService(documentRepo, contentStore, archiveRepo, auditRepo,
		policyService, signer, bus, locks, cfg.Documents, cfg.Compliance, logr)
	versionService := service.NewVersionService(documentRepo, contentStore, auditRepo, bus, locks, logr)
	complianceService := service.NewComplianceService(documentRepo, policyService, bus, logr)
	archiveService := service.NewArchiveService(archiveRepo, documentRepo, contentStore, artifactStore,
		cacheRepo, auditRepo, bus, locks, cfg.Archives, logr)
	archiveService.SetMetrics(metricsService)
	signatureService := service.NewSignatureService(signatureRepo, documentRepo, auditRepo, bus, logr)
	service.RegisterEnabledDispatchers(signatureService, cfg.Signatures.EnabledProviders)
	templateService := service.NewTemplateService(templateRepo, auditRepo, bus, logr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archiveService.Start(ctx)
	defer archiveService.Stop()

	authHandler := handler.NewAuthHandler(authService)
	documentHandler := handler.NewDocumentHandler(documentService, metricsService)
	versionHandler := handler.NewVersionHandler(versionService)
	complianceHandler := handler.NewComplianceHandler(complianceService, export.NewPDFExporter(), metricsService)
	archiveHandler := handler.NewArchiveHandler(archiveService)
	signatureHandler := handler.NewSignatureHandler(signatureService)
	templateHandler := handler.NewTemplateHandler(templateService)
	auditHandler := handler.NewAuditHandler(auditRepo)
	metricsHandler := handler.NewMetricsHandler(metricsService)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/logout", middleware.JWT(authService), authHandler.Logout)

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	documents := protected.Group("/documents")
	documents.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), documentHandler.Upload)
	documents.GET("", documentHandler.List)
	documents.GET("/:id", documentHandler.Get)
	documents.GET("/:id/download", documentHandler.Download)
	documents.GET("/:id/download-url", documentHandler.DownloadURL)
	documents.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), documentHandler.Delete)
	documents.POST("/:id/versions", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), versionHandler.Create)
	documents.GET("/:id/versions", versionHandler.List)
	documents.POST("/:id/versions/restore", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), versionHandler.Restore)
	documents.GET("/:id/compliance",
		middleware.Audit(auditRepo, models.AuditActionComplianceView, "document"),
		complianceHandler.Report)
	documents.GET("/:id/compliance/export",
		middleware.RequireRoles(models.RoleAdmin, models.RoleAuditor),
		middleware.Audit(auditRepo, models.AuditActionComplianceExport, "document"),
		complianceHandler.ExportReport)
	documents.POST("/:id/audit", middleware.RequireRoles(models.RoleAdmin, models.RoleAuditor), complianceHandler.Audit)
	documents.GET("/:id/audit-trail", middleware.RequireRoles(models.RoleAdmin, models.RoleAuditor), auditHandler.DocumentTrail)

	archives := protected.Group("/archive")
	archives.PUT("/policy", middleware.RequireRoles(models.RoleAdmin), archiveHandler.UpsertPolicy)
	archives.GET("/policy", archiveHandler.GetPolicy)
	archives.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), archiveHandler.Archive)
	archives.GET("/records/:id", archiveHandler.GetRecord)

	signatures := protected.Group("/signatures")
	signatures.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), signatureHandler.Initiate)
	signatures.GET("/:id", signatureHandler.Get)
	signatures.POST("/:id/complete", signatureHandler.Complete)

	if cfg.Templates.Enabled {
		templates := protected.Group("/templates")
		templates.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleCaseWorker), templateHandler.Create)
		templates.GET("", templateHandler.List)
		templates.GET("/:id", templateHandler.Get)
		templates.POST("/:id/render", templateHandler.Render)
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: r,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("shutdown failed", "error", err)
	}
}
