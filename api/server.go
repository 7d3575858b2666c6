// Package api exposes the facilitator HTTP surface: payment verification and
// settlement plus the informational endpoints.
package api

import (
	"database/sql"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ctrl-shift-projects/b402-facilitator-go/auth"
	"github.com/ctrl-shift-projects/b402-facilitator-go/config"
	"github.com/ctrl-shift-projects/b402-facilitator-go/core"
	"github.com/ctrl-shift-projects/b402-facilitator-go/events"
	"github.com/ctrl-shift-projects/b402-facilitator-go/metrics"
)

// ServiceName identifies the facilitator in health and metadata responses.
const ServiceName = "b402-facilitator"

// ServiceVersion is reported by the informational endpoints.
const ServiceVersion = "1.0.0"

// Server composes the validator, replay guard, settlement executor and token
// resolver behind the HTTP API. All collaborators are injected so tests can
// substitute doubles.
type Server struct {
	cfg      *config.Config
	client   core.EthClient
	resolver *core.TokenInfoResolver
	sink     *events.Sink
	metrics  *metrics.Metrics
	auth     *auth.Authenticator
}

// NewServer wires a server from its collaborators. sink may be nil to
// disable event recording, db may be nil to disable database API keys.
func NewServer(cfg *config.Config, client core.EthClient, sink *events.Sink, m *metrics.Metrics, db *sql.DB) *Server {
	return &Server{
		cfg:      cfg,
		client:   client,
		resolver: core.NewTokenInfoResolver(client),
		sink:     sink,
		metrics:  m,
		auth:     auth.New(cfg.StaticAPIKey, db),
	}
}

// Router builds the gin engine with the full route table and middleware
// stack.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.Default())
	router.Use(s.rateLimit())
	router.Use(s.observe())

	router.GET("/", s.Root)
	router.GET("/health", s.Health)
	router.GET("/list", s.List)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	authed := router.Group("/", s.authenticate())
	authed.POST("/verify", s.Verify)
	authed.POST("/settle", s.Settle)

	return router
}
