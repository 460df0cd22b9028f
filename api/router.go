// Package api exposes the order workflow over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/infra/logger"
)

// Config carries the HTTP server parameters.
type Config struct {
	Addr           string   `json:"addr"`
	AllowedOrigins []string `json:"allowed_origins"`
	ReleaseMode    bool     `json:"release_mode"`
}

// SetDefaults applies the default server parameters.
func (c *Config) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8000"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"http://localhost:5173"}
	}
}

// Validate checks the server configuration.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("api: addr is required")
	}
	return nil
}

// Server holds the handler dependencies.
type Server struct {
	svc *orders.Service
	log logger.Logger
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(svc *orders.Service, log logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.NopLogger{}
	}
	s := &Server{svc: svc, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/health", s.health)
	r.GET("/meters/:dataset_origin", s.listMeters)

	r.POST("/vanilla/:pricing_mechanism", s.submitVanilla)
	r.GET("/vanilla/:order_id", s.getVanilla)

	r.POST("/dual", s.submitDual)
	r.GET("/dual/:order_id", s.getDual)

	r.POST("/loop/:lem_organization/:pricing_mechanism", s.submitLoop)
	r.GET("/loop/pool/:order_id", s.getLoopPool)
	r.GET("/loop/bilateral/:order_id", s.getLoopBilateral)

	return r
}

// Handler wraps the router with the CORS policy.
func Handler(cfg Config, svc *orders.Service, log logger.Logger) http.Handler {
	cfg.SetDefaults()
	if cfg.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	return cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(NewRouter(svc, log))
}

func requestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		started := time.Now()
		c.Next()
		log.Debugw("request", map[string]any{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"elapsed": time.Since(started).String(),
		})
	}
}
