// Package httpapi exposes the verification pipeline, objective registry,
// and dashboard over HTTP.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/cmc3bear/objectivegate/internal/certificate"
	"github.com/cmc3bear/objectivegate/internal/dashboard"
	"github.com/cmc3bear/objectivegate/internal/model"
	"github.com/cmc3bear/objectivegate/internal/objective"
	"github.com/cmc3bear/objectivegate/internal/pipeline"
)

// Server wires the service components behind a gin router.
type Server struct {
	registry   *objective.Registry
	verifier   *pipeline.Verifier
	dashboard  *dashboard.Dashboard
	certs      *certificate.Store
	configPath string
}

// NewServer creates the HTTP server. The certificate store may be nil when
// persistence is disabled.
func NewServer(reg *objective.Registry, verifier *pipeline.Verifier, dash *dashboard.Dashboard, certs *certificate.Store, configPath string) *Server {
	return &Server{
		registry:   reg,
		verifier:   verifier,
		dashboard:  dash,
		certs:      certs,
		configPath: configPath,
	}
}

// Router builds the route table.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	v1.POST("/verify", s.handleVerify)
	v1.GET("/objectives", s.handleObjectives)
	v1.POST("/objectives/:id/value", s.handleUpdateValue)
	v1.GET("/dashboard", s.handleDashboard)
	v1.GET("/certificates", s.handleListCertificates)
	v1.GET("/certificates/:id", s.handleGetCertificate)
	v1.POST("/alerts/:objective/resolve", s.handleResolveAlert)

	return r
}

// Run serves until the context is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	fmt.Fprintf(os.Stderr, "http: listening on %s\n", addr)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ReloadObjectives re-reads the objectives config and swaps the registry
// contents. Called by the file watcher.
func (s *Server) ReloadObjectives() error {
	cfg, hash, err := objective.LoadConfigWithHash(s.configPath)
	if err != nil {
		return err
	}
	return s.registry.Reload(cfg, hash)
}

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"objectives":  s.registry.Len(),
		"config_hash": s.registry.ConfigHash(),
	})
}

// handleVerify runs the full pipeline on a submitted change.
func (s *Server) handleVerify(c *gin.Context) {
	var change model.Change
	if err := c.ShouldBindJSON(&change); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid change: %v", err)})
		return
	}
	if change.Description == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "change description is required"})
		return
	}
	if change.Timestamp.IsZero() {
		change.Timestamp = time.Now().UTC()
	}

	result, err := s.verifier.VerifyChange(c.Request.Context(), change)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleObjectives(c *gin.Context) {
	objectives := s.registry.All()
	type entry struct {
		model.Objective
		Health    model.HealthStatus `json:"health"`
		Deviation float64            `json:"deviation"`
	}
	out := make([]entry, 0, len(objectives))
	for _, obj := range objectives {
		out = append(out, entry{
			Objective: obj,
			Health:    objective.Health(obj),
			Deviation: objective.Deviation(obj),
		})
	}
	c.JSON(http.StatusOK, gin.H{"objectives": out, "config_hash": s.registry.ConfigHash()})
}

// handleUpdateValue is the sole external mutation path into the registry.
func (s *Server) handleUpdateValue(c *gin.Context) {
	var req struct {
		Value float64 `json:"value"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("invalid body: %v", err)})
		return
	}
	id := c.Param("id")
	if err := s.registry.UpdateValue(id, req.Value); err != nil {
		if errors.Is(err, objective.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	obj, _ := s.registry.Get(id)
	c.JSON(http.StatusOK, gin.H{
		"id":     id,
		"value":  req.Value,
		"health": objective.Health(obj),
	})
}

func (s *Server) handleDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, s.dashboard.Take())
}

func (s *Server) handleListCertificates(c *gin.Context) {
	if s.certs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "certificate store not configured"})
		return
	}
	limit := 50
	if v := c.Query("limit"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &limit); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
	}
	certs, err := s.certs.List(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

func (s *Server) handleGetCertificate(c *gin.Context) {
	if s.certs == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "certificate store not configured"})
		return
	}
	cert, err := s.certs.Get(c.Param("id"))
	if err != nil {
		if errors.Is(err, certificate.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (s *Server) handleResolveAlert(c *gin.Context) {
	id := c.Param("objective")
	if !s.dashboard.ResolveAlert(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no active alert for objective %q", id)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"resolved": id})
}
