package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/attestx/attestx-backend/internal/verifier/api/handlers"
	"github.com/attestx/attestx-backend/internal/verifier/core/verification"
	"github.com/attestx/attestx-backend/pkg/logging"
	"github.com/attestx/attestx-backend/pkg/metrics"
)

// Server exposes the verifier over HTTP.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	logger     logging.Logger
}

func NewServer(verifier *verification.Verifier, collector *metrics.Collector, logger logging.Logger, port string) *Server {
	router := gin.New()
	router.Use(gin.Recovery())

	// Configure CORS
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Accept, Content-Length, Accept-Encoding, Origin")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	handler := handlers.NewHandler(verifier, logger)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(collector.Handler()))

	apiGroup := router.Group("/api")
	{
		apiGroup.POST("/tasks/vote", handler.SubmitVote)
		apiGroup.GET("/tasks/info", handler.GetTaskInfo)
		apiGroup.GET("/tasks/vote", handler.GetOperatorVote)
		apiGroup.GET("/config", handler.GetConfig)
		apiGroup.GET("/operators/slashed", handler.GetSlashedOperators)
	}

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf(":%s", port),
			Handler: router,
		},
		logger: logger,
	}
}

// Start blocks serving HTTP until the server is shut down.
func (s *Server) Start() error {
	s.logger.Info("Starting verifier API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
