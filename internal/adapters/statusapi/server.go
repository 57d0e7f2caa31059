package statusapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/ghalamif/opcbridge/internal/domain"
	"github.com/ghalamif/opcbridge/internal/ports"
)

// StatusSource reports the connection manager state.
type StatusSource interface {
	Status() ports.ConnectionStatus
}

type Server struct {
	router   *gin.Engine
	reg      *domain.Registry
	conn     StatusSource
	gatherer prometheus.Gatherer
	logger   *zap.Logger
	server   *http.Server
}

func NewServer(addr string, reg *domain.Registry, conn StatusSource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		router:   gin.New(),
		reg:      reg,
		conn:     conn,
		gatherer: gatherer,
		logger:   logger,
	}
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	s.logger.Info("starting status server", zap.String("address", s.server.Addr))
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("status server exited", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down status server")
	if err := s.server.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRoutes() {
	s.router.Use(gin.Recovery())
	s.router.Use(requestLogger(s.logger))

	s.router.GET("/healthz", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/points", s.listPoints)
		v1.GET("/points/:identifier", s.getPoint)
		v1.GET("/connection", s.getConnection)
	}
}

// GET /healthz
func (s *Server) healthCheck(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// GET /api/v1/points
func (s *Server) listPoints(c *gin.Context) {
	points := make([]gin.H, 0, s.reg.Len())
	for b := range s.reg.Bindings() {
		points = append(points, pointView(b))
	}
	c.JSON(http.StatusOK, gin.H{
		"points": points,
		"count":  len(points),
	})
}

// GET /api/v1/points/:identifier
func (s *Server) getPoint(c *gin.Context) {
	b, ok := s.reg.Lookup(c.Param("identifier"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "point not found"})
		return
	}
	c.JSON(http.StatusOK, pointView(b))
}

// GET /api/v1/connection
func (s *Server) getConnection(c *gin.Context) {
	if s.conn == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no connection manager"})
		return
	}
	c.JSON(http.StatusOK, s.conn.Status())
}

func pointView(b *domain.Binding) gin.H {
	view := gin.H{
		"slot":       b.Slot.Name,
		"identifier": b.Identifier,
		"kind":       b.Kind.String(),
		"category":   b.Kind.Category(),
		"available":  b.Available(),
	}
	if v, ok := b.LastKnownGood(); ok {
		view["last_value"] = v.Format()
	}
	if at := b.UpdatedAt(); !at.IsZero() {
		view["updated_at"] = at.UTC().Format(time.RFC3339Nano)
	}
	return view
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
