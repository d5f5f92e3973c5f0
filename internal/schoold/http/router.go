package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/service"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/pkg/httpx"
	"github.com/aussiebroadwan/neoschool/pkg/jwtx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
)

// APIPrefix is where the dashboard API is mounted.
const APIPrefix = "/api"

// RateLimits holds the limiter profiles the router applies.
type RateLimits struct {
	Login   httpx.RateLimitConfig
	Refresh httpx.RateLimitConfig
	API     httpx.RateLimitConfig
}

// DefaultRateLimits reads RATELIMIT_* overrides on top of the httpx profiles.
func DefaultRateLimits() RateLimits {
	return RateLimits{
		Login:   httpx.RateLimitFromEnv("login", httpx.LoginLimit),
		Refresh: httpx.RateLimitFromEnv("refresh", httpx.RefreshLimit),
		API:     httpx.RateLimitFromEnv("api", httpx.APILimit),
	}
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	limits       RateLimits

	store           store.Store
	AuthService     *service.AuthService
	ResourceService *service.ResourceService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	limits RateLimits,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		limits:       limits,
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerResources()
	r.registerResults()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// authn verifies the bearer token and rejects logged-out tokens.
func (r *Router) authn() httpx.Middleware {
	return httpx.AuthnMiddleware(r.verifier, r.AuthService)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{AuthService: r.AuthService}

	// Strict limit by IP: password guessing.
	login := httpx.NewLimiter(r.limits.Login)
	r.Mux.Handle("POST "+APIPrefix+"/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			login.Middleware(httpx.ClientIP),
		),
	)

	refresh := httpx.NewLimiter(r.limits.Refresh)
	r.Mux.Handle("POST "+APIPrefix+"/auth/refresh-token",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			refresh.Middleware(httpx.ClientIP),
		),
	)

	r.Mux.Handle("POST "+APIPrefix+"/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.authn(),
		),
	)

	// No authn middleware: an unusable token is an answer, not an error.
	r.Mux.Handle("GET "+APIPrefix+"/auth/check-session", http.HandlerFunc(h.HandleCheckSession))
}

// collectionRoles lists who may use each collection. Student records are
// admin-only; everything else is shared with teachers.
func collectionRoles(resource string) []string {
	if resource == "students" {
		return []string{domain.RoleAdmin}
	}
	return []string{domain.RoleAdmin, domain.RoleTeacher}
}

// apiKey charges API calls to the signed-in user, or to the client address
// for tokens without a subject.
var apiKey = httpx.FirstKey(httpx.AuthenticatedUser, httpx.ClientIP)

func (r *Router) registerResources() {
	api := httpx.NewLimiter(r.limits.API)

	for _, name := range service.Collections {
		h := &ResourceHandler{Resource: name, ResourceService: r.ResourceService}
		secure := func(fn http.HandlerFunc) http.Handler {
			return httpx.Chain(fn,
				r.authn(),
				httpx.RequireAnyRole(collectionRoles(name)...),
				api.Middleware(apiKey),
			)
		}

		base := APIPrefix + "/" + name
		r.Mux.Handle("GET "+base, secure(h.HandleList))
		r.Mux.Handle("POST "+base, secure(h.HandleCreate))
		r.Mux.Handle("GET "+base+"/{id}", secure(h.HandleGet))
		r.Mux.Handle("PUT "+base+"/{id}", secure(h.HandleUpdate))
		r.Mux.Handle("DELETE "+base+"/{id}", secure(h.HandleDelete))

		if name == "exam-marks" {
			r.Mux.Handle("POST "+base+"/bulk", secure(h.HandleBulkCreate))
		}
	}
}

func (r *Router) registerResults() {
	h := &ResultsHandler{}
	api := httpx.NewLimiter(r.limits.API)
	secure := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			r.authn(),
			httpx.RequireAnyRole(domain.RoleAdmin, domain.RoleTeacher),
			api.Middleware(apiKey),
		)
	}

	base := APIPrefix + "/results"
	r.Mux.Handle("GET "+base+"/tabulation-pdf/{year}/{exam}/{class}", secure(h.HandleTabulation))
	r.Mux.Handle("GET "+base+"/merit-pdf/{year}/{exam}/{class}", secure(h.HandleMeritList))
	r.Mux.Handle("GET "+base+"/mark-sheet/{student}/{exam}", secure(h.HandleMarkSheet))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
}
