package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/anvil-lab/catalogue/internal/api/handlers"
	"github.com/anvil-lab/catalogue/internal/api/middleware"
	"github.com/anvil-lab/catalogue/internal/config"
	"github.com/anvil-lab/catalogue/internal/database"
	"github.com/anvil-lab/catalogue/internal/services/csvimport"
	"github.com/anvil-lab/catalogue/internal/services/upload"
)

// Server is the catalogue ingestion core's HTTP server.
type Server struct {
	config       *config.Config
	db           *database.DB
	uploadEngine *upload.Engine
	importEngine *csvimport.Engine
	logger       *zap.Logger
	router       *gin.Engine
}

// NewServer builds a Server and wires its router.
func NewServer(cfg *config.Config, db *database.DB, uploadEngine *upload.Engine, importEngine *csvimport.Engine, importHandler *handlers.ImportHandler, logger *zap.Logger) *Server {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{config: cfg, db: db, uploadEngine: uploadEngine, importEngine: importEngine, logger: logger}
	s.setupRouter(importHandler)
	return s
}

// Router returns the HTTP handler for this server.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter(importHandler *handlers.ImportHandler) {
	r := gin.New()

	// Multipart forms (the CSV import upload) are held in memory up to
	// 128 MiB before spilling to disk. JSON chunk bodies are not
	// affected by this setting; a base-64 chunk at the 100 MiB ceiling
	// is about 133 MiB encoded.
	r.MaxMultipartMemory = 128 << 20

	r.Use(gin.Recovery())
	r.Use(middleware.Logger(s.logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS())
	r.Use(middleware.SecurityHeaders())

	r.GET("/healthz", s.healthCheck)

	uploadHandler := handlers.NewUploadHandler(s.uploadEngine, s.logger)
	uploads := r.Group("/uploads")
	{
		uploads.POST("/initialize", uploadHandler.Initialize)
		uploads.POST("/chunk", uploadHandler.ReceiveChunk)
		uploads.POST("/:id/complete", uploadHandler.Complete)
		uploads.GET("/:id/status", uploadHandler.Status)
		uploads.GET("/:id/resume", uploadHandler.Resume)
		uploads.GET("/:id/verify", uploadHandler.VerifyChecksum)
		uploads.DELETE("/:id/cancel", uploadHandler.Cancel)
	}

	imports := r.Group("/imports")
	{
		imports.POST("/products", importHandler.Import)
		imports.POST("/products/validate", importHandler.Validate)
		imports.GET("/products/columns", importHandler.Columns)
		imports.GET("/history", importHandler.History)
		imports.GET("/statistics", importHandler.Statistics)
		imports.GET("/:id", importHandler.Get)
	}

	s.router = r
}

func (s *Server) healthCheck(c *gin.Context) {
	ctx := c.Request.Context()
	status := "healthy"
	dbStatus := "connected"
	if err := s.db.Pool.Ping(ctx); err != nil {
		status = "degraded"
		dbStatus = "disconnected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status": status,
		"services": gin.H{
			"database": dbStatus,
		},
	})
}
