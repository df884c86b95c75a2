package http

import (
	"crypto/rsa"
	"log/slog"
	"net/http"
	"time"

	"github.com/govsignin/accountsvc/internal/accounts/registry"
	"github.com/govsignin/accountsvc/internal/accounts/service"
	"github.com/govsignin/accountsvc/internal/accounts/store"
	"github.com/govsignin/accountsvc/pkg/httpx"
	"github.com/govsignin/accountsvc/pkg/metricsx"
	"github.com/govsignin/accountsvc/pkg/slogx"

	_ "github.com/govsignin/accountsvc/api/accounts" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store    store.Store
	registry *registry.Registry

	// Private key the api authorize variant uses to unwrap JWE request
	// objects. The frontend variant never decrypts.
	EncryptionKey *rsa.PrivateKey

	StartSessionURL string
	ErrorPageURL    string
	CookieDomain    string

	SessionService    *service.SessionService
	AuthorizeService  *service.AuthorizeService
	JourneyService    *service.JourneyService
	CompletionService *service.CompletionService
	TokenService      *service.TokenService
	OutcomeService    *service.OutcomeService
}

func NewRouter(
	buildVersion string,
	st store.Store,
	reg *registry.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		registry:     reg,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuthorize()
	r.registerJourneys()
	r.registerOAuth2()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Account Management Components API
//	@version		0.1.0
//	@description	Authorization, session, and journey endpoints for account management components.
//	@description
//	@description				Relying parties enter with a signed (optionally encrypted) OAuth2 request object
//	@description				and redeem the issued authorization code at the token endpoint using private_key_jwt.
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Opaque access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuthorize() {
	h := &AuthorizeHandler{
		Authorize:       r.AuthorizeService,
		Sessions:        r.SessionService,
		EncryptionKey:   r.EncryptionKey,
		StartSessionURL: r.StartSessionURL,
		ErrorPageURL:    r.ErrorPageURL,
		CookieDomain:    r.CookieDomain,
	}

	// GET /authorize - moderate rate limit (entry point for relying parties)
	r.Mux.Handle("GET /authorize",
		httpx.Chain(http.HandlerFunc(h.HandleAPI),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// GET /frontend/authorize - moderate rate limit (plaintext request objects)
	r.Mux.Handle("GET /frontend/authorize",
		httpx.Chain(http.HandlerFunc(h.HandleFrontend),
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	startHandler := &StartSessionHandler{
		Sessions:     r.SessionService,
		ErrorPageURL: r.ErrorPageURL,
		CookieDomain: r.CookieDomain,
	}
	r.Mux.Handle("GET /frontend/start-session",
		httpx.Chain(startHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerJourneys() {
	h := &JourneyHandler{
		Sessions:     r.SessionService,
		Journeys:     r.JourneyService,
		Completion:   r.CompletionService,
		ErrorPageURL: r.ErrorPageURL,
		CookieDomain: r.CookieDomain,
	}

	page := httpx.Chain(http.HandlerFunc(h.HandlePage),
		httpx.RateLimitByIP(httpx.LenientLimit),
	)

	// Journey step pages plus the single-segment utility pages
	// (/frontend/error, /frontend/cookies, /frontend/signed-out). The
	// literal authorize and start-session patterns above win precedence.
	r.Mux.Handle("GET /frontend/{journey}/{step}", page)
	r.Mux.Handle("GET /frontend/{page}", page)

	// POST advances the state machine - strict rate limit (mutating)
	r.Mux.Handle("POST /frontend/{journey}/continue",
		httpx.Chain(http.HandlerFunc(h.HandleEvent),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerOAuth2() {
	// POST /token - strict rate limit by IP (code redemption)
	tokenHandler := &TokenHandler{Tokens: r.TokenService}
	r.Mux.Handle("POST /token",
		httpx.Chain(tokenHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// GET /journey-outcome - moderate rate limit (bearer authenticated)
	outcomeHandler := &JourneyOutcomeHandler{Outcomes: r.OutcomeService}
	r.Mux.Handle("GET /journey-outcome",
		httpx.Chain(outcomeHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.registry),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /metrics", metricsx.Handler())
}
