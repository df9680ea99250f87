package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"shopcsv/internal/api/handlers"
	"shopcsv/internal/api/middleware"
	"shopcsv/internal/cache"
	"shopcsv/internal/config"
	"shopcsv/internal/database"
	"shopcsv/internal/logger"
	"shopcsv/internal/report"
	"shopcsv/internal/services/shopify"

	"github.com/gin-gonic/gin"
)

type Server struct {
	config *config.Config
	logger *logger.Logger
	db     *database.Database
	router *gin.Engine
	server *http.Server
}

// Dependencies are the collaborators the routes need beyond the database.
type Dependencies struct {
	OAuth     *shopify.OAuthService
	States    cache.StateStore
	Generator *report.Generator
	Jobs      handlers.JobQueue
}

func New(cfg *config.Config, logger *logger.Logger, db *database.Database, deps Dependencies) *Server {
	// Set Gin mode
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(logger))
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.CORS())

	storeHandler := handlers.NewStoreHandler(db, logger, cfg, deps.OAuth, deps.States, deps.Generator, deps.Jobs)

	router.GET("/", storeHandler.Welcome)
	router.GET("/auth/shopify/callback", storeHandler.Callback)
	router.POST("/webhooks/shopify", storeHandler.Webhook)

	stores := router.Group("/stores")
	{
		stores.GET("/welcome", storeHandler.Welcome)
		stores.GET("/create_permission", storeHandler.CreatePermission)
		stores.GET("/download_csv", storeHandler.DownloadCSV)
		stores.GET("/download_csv_async", storeHandler.DownloadCSVAsync)

		reports := stores.Group("/reports")
		{
			reports.GET("/:id", storeHandler.GetReport)
			reports.GET("/:id/download", storeHandler.DownloadReport)
		}
	}

	return &Server{
		config: cfg,
		logger: logger,
		db:     db,
		router: router,
	}
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%s", s.config.APIHost, s.config.APIPort)

	s.server = &http.Server{
		Addr:        addr,
		Handler:     s.router,
		ReadTimeout: 15 * time.Second,
		// download_csv builds the whole report inside the request
		WriteTimeout: 10 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server on " + addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for serverless entry points and tests.
func (s *Server) Router() *gin.Engine {
	return s.router
}
