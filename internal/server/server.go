package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"stevedore/internal/api"
	"stevedore/internal/dependency"
	"stevedore/internal/events"
	"stevedore/internal/formatting"
	"stevedore/internal/metrics"
	"stevedore/internal/orchestrator"
	"stevedore/internal/status"
	"stevedore/pkg/logging"
)

const subsystem = "Server"

// Engine is the part of the orchestrator the API serves.
type Engine interface {
	Run(ctx context.Context, req api.RunRequest) (*orchestrator.RunResult, error)
	Status() status.Report
	Observe(ctx context.Context, targets []string) (status.Report, error)
	Plan(targets []string) (*dependency.Plan, error)
	LastRun() (*orchestrator.RunResult, bool)
}

// EventSource lists recent service events.
type EventSource interface {
	Recent(limit int) []events.Event
}

// Server is the serve-mode HTTP API.
type Server struct {
	engine  Engine
	events  EventSource
	router  *gin.Engine
	version string
	started time.Time

	// runCtx bounds runs started over HTTP.
	runCtx    context.Context
	cancelRun context.CancelFunc

	httpServer *http.Server
}

// New builds the router for engine.
func New(engine Engine, version string) *Server {
	metrics.RegisterMetrics()

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger())
	r.Use(RequestMetrics())
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:    engine,
		router:    r,
		version:   version,
		started:   time.Now(),
		runCtx:    runCtx,
		cancelRun: cancel,
	}
	s.registerRoutes()
	return s
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/status", s.handleStatus)
	s.router.GET("/status/:service", s.handleServiceStatus)
	s.router.POST("/runs", s.handleRun)
	s.router.GET("/runs/last", s.handleLastRun)
	s.router.GET("/plan", s.handlePlan)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler()))
	s.router.GET("/events", s.handleEvents)
}

// WithEvents serves src on /events. Without it the route answers 404.
func (s *Server) WithEvents(src EventSource) *Server {
	s.events = src
	return s
}

// Start listens on addr and serves in the background. It returns once the
// listener is bound, with the address actually used.
func (s *Server) Start(addr string) (net.Addr, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error(subsystem, err, "HTTP server stopped")
		}
	}()
	logging.Info(subsystem, "API listening on %s", ln.Addr())
	return ln.Addr(), nil
}

// Shutdown cancels runs started over HTTP and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.cancelRun()
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"uptime":  time.Since(s.started).Round(time.Second).String(),
		"version": s.version,
	})
}

func (s *Server) report(c *gin.Context) (status.Report, bool) {
	if c.Query("live") != "true" {
		return s.engine.Status(), true
	}
	report, err := s.engine.Observe(c.Request.Context(), nil)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return status.Report{}, false
	}
	return report, true
}

func (s *Server) handleStatus(c *gin.Context) {
	report, ok := s.report(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleServiceStatus(c *gin.Context) {
	report, ok := s.report(c)
	if !ok {
		return
	}
	row, found := report.Service(c.Param("service"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown service " + c.Param("service")})
		return
	}
	c.JSON(http.StatusOK, row)
}

type runRequest struct {
	Action   string   `json:"action" binding:"required"`
	Services []string `json:"services"`
}

func (s *Server) handleRun(c *gin.Context) {
	var body runRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	action, err := api.ParseAction(body.Action)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := s.engine.Run(s.runCtx, api.RunRequest{Action: action, Services: body.Services})
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.events == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event journal is not enabled"})
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	c.JSON(http.StatusOK, gin.H{"events": s.events.Recent(limit)})
}

func (s *Server) handleLastRun(c *gin.Context) {
	res, ok := s.engine.LastRun()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has completed yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handlePlan(c *gin.Context) {
	var targets []string
	if raw := c.Query("services"); raw != "" {
		targets = strings.Split(raw, ",")
	}
	plan, err := s.engine.Plan(targets)
	if err != nil {
		c.JSON(errorStatus(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, formatting.NewPlanView(plan))
}

func errorStatus(err error) int {
	var unknown *dependency.UnknownServiceError
	if errors.As(err, &unknown) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}
