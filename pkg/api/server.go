package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rampline/rampline/pkg/auth"
	"github.com/rampline/rampline/pkg/config"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/integrations"
	"github.com/rampline/rampline/pkg/middleware"
	"github.com/rampline/rampline/pkg/workspaces"
)

// Server represents our API server
type Server struct {
	router   *mux.Router
	pipeline *middleware.Pipeline
}

// Dependencies carries everything the route table needs. Construct once in
// main and hand to NewServer.
type Dependencies struct {
	Pipeline     *middleware.Pipeline
	Verifier     auth.CredentialVerifier
	Workspaces   workspaces.Service
	Integrations integrations.Store
	Approvals    ApprovalStore
	RateLimits   config.RateLimitConfig
	Logger       *logrus.Logger
}

// NewServer creates a new API server and registers all routes
func NewServer(deps Dependencies) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		pipeline: deps.Pipeline,
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}

	NewAuthHandlers(deps.Pipeline.Sessions, deps.Verifier, deps.Workspaces, deps.Pipeline.Limiter, deps.RateLimits, logger).RegisterRoutes(s.router, deps.Pipeline)
	NewMemberHandlers(deps.Workspaces, logger).RegisterRoutes(s.router, deps.Pipeline)
	NewApprovalHandlers(deps.Approvals, logger).RegisterRoutes(s.router, deps.Pipeline)
	integrations.NewHandlers(deps.Integrations, logger).RegisterRoutes(s.router, deps.Pipeline)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteNotFoundError(w, "not found")
	})

	return s
}

// Router exposes the underlying router so main can wrap it with the
// request-scoped middlewares (request id, logging, metrics, audit).
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
