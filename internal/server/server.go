package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/audit"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/dedup"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/otel"
	"github.com/abhijyotiba/Flusso-Automation-sub000/internal/trigger"
)

const defaultTimeout = 60 * time.Second

// Server holds the HTTP surface: the webhook intake plus the operator
// endpoints for audit inspection and health.
type Server struct {
	router      *chi.Mux
	webhook     *trigger.WebhookHandler
	auditStore  *audit.Store
	ring        *audit.Ring
	dedupCache  *dedup.Cache
	apiKeys     map[string]string
	corsOrigins []string
	version     string
	startTime   time.Time
}

// Option configures the Server.
type Option func(*Server)

// WithCORSOrigins sets allowed CORS origins (e.g. ["*"]).
func WithCORSOrigins(origins []string) Option {
	return func(s *Server) { s.corsOrigins = origins }
}

// WithVersion sets the version string reported by /v1/status.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithAPIKeys sets the operator API keys (key -> operator name). With no
// keys configured the operator endpoints are open; intended for local use
// only.
func WithAPIKeys(keys map[string]string) Option {
	return func(s *Server) { s.apiKeys = keys }
}

// NewServer builds a Server. ring and dedupCache may be nil; the related
// endpoints degrade gracefully.
func NewServer(webhook *trigger.WebhookHandler, auditStore *audit.Store, ring *audit.Ring, dedupCache *dedup.Cache, opts ...Option) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		webhook:     webhook,
		auditStore:  auditStore,
		ring:        ring,
		dedupCache:  dedupCache,
		corsOrigins: []string{"*"},
		startTime:   time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Routes returns the configured http.Handler. The webhook route is
// registered without the default request timeout: a ticket run owns its own
// deadline and can legitimately take minutes.
func (s *Server) Routes() http.Handler {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(otel.Middleware())
	r.Use(CORSMiddleware(s.corsOrigins))

	// Unauthenticated probes
	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)

	// Webhook intake (the ticketing system cannot send API keys)
	r.Post("/webhook/ticket", s.webhook.HandleTicket)

	// Operator API
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(s.apiKeys))
		r.Use(middleware.Timeout(defaultTimeout))

		r.Get("/v1/status", s.handleStatus)
		r.Get("/v1/audit", s.handleAuditList)
		r.Get("/v1/audit/recent", s.handleAuditRecent)
		r.Get("/v1/audit/{id}", s.handleAuditGet)
		r.Get("/v1/audit/{id}/verify", s.handleAuditVerify)
	})

	return r
}
