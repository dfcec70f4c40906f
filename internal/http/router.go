// Package httpapi wires the HTTP transport (Gin) to application services,
// middleware, and route handlers. It centralizes cross-cutting concerns such
// as tracing, correlation IDs, logging/redaction, panic recovery, metrics,
// CORS, security headers, session resolution, access guarding, and rate
// limiting.
//
// Design goals:
//   - Put observability first (OTel + Prometheus)
//   - Safe-by-default middleware ordering (RequestID → logging → recovery)
//   - Deterministic, minimal router setup; all dependencies injected
//   - Production-ready CORS and security header posture
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/Georgechisom/alx-polling/internal/config"
	"github.com/Georgechisom/alx-polling/internal/domain"
	"github.com/Georgechisom/alx-polling/internal/http/handlers"
	"github.com/Georgechisom/alx-polling/internal/http/middleware"
	"github.com/Georgechisom/alx-polling/internal/notify"
	"github.com/Georgechisom/alx-polling/internal/ratelimit"
	"github.com/Georgechisom/alx-polling/internal/repo"
	"github.com/Georgechisom/alx-polling/internal/services"
	"github.com/Georgechisom/alx-polling/internal/token"
)

// pollRepoShim adapts the repository free functions to the services.PollRepo
// interface expected by the PollService. This keeps services decoupled from
// the concrete repo package while reusing existing functions.
type pollRepoShim struct{}

// CreatePoll proxies repo.CreatePoll.
func (pollRepoShim) CreatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string, shareSlug string) (*domain.Poll, error) {
	return repo.CreatePoll(ctx, db, id, userID, question, options, shareSlug)
}

// GetPoll proxies repo.GetPoll.
func (pollRepoShim) GetPoll(ctx context.Context, db *gorm.DB, id string) (*domain.Poll, error) {
	return repo.GetPoll(ctx, db, id)
}

// GetPollBySlug proxies repo.GetPollBySlug.
func (pollRepoShim) GetPollBySlug(ctx context.Context, db *gorm.DB, slug string) (*domain.Poll, error) {
	return repo.GetPollBySlug(ctx, db, slug)
}

// GetPollOwned proxies repo.GetPollOwned.
func (pollRepoShim) GetPollOwned(ctx context.Context, db *gorm.DB, id, userID string) (*domain.Poll, error) {
	return repo.GetPollOwned(ctx, db, id, userID)
}

// CountPolls proxies repo.CountPolls (pagination support).
func (pollRepoShim) CountPolls(ctx context.Context, db *gorm.DB, userID string) (int64, error) {
	return repo.CountPolls(ctx, db, userID)
}

// ListPollsPage proxies repo.ListPollsPage (pagination support).
func (pollRepoShim) ListPollsPage(ctx context.Context, db *gorm.DB, userID string, offset, limit int) ([]domain.Poll, error) {
	return repo.ListPollsPage(ctx, db, userID, offset, limit)
}

// UpdatePoll proxies repo.UpdatePoll.
func (pollRepoShim) UpdatePoll(ctx context.Context, db *gorm.DB, id, userID, question string, options []string) error {
	return repo.UpdatePoll(ctx, db, id, userID, question, options)
}

// DeletePoll proxies repo.DeletePoll.
func (pollRepoShim) DeletePoll(ctx context.Context, db *gorm.DB, id, userID string) error {
	return repo.DeletePoll(ctx, db, id, userID)
}

// PollsStats proxies repo.PollsStats (ETag support).
func (pollRepoShim) PollsStats(ctx context.Context, db *gorm.DB, userID string) (int64, *time.Time, error) {
	return repo.PollsStats(ctx, db, userID)
}

// RegisterRoutes attaches all middleware and HTTP endpoints to the given Gin
// engine. It configures observability (tracing, metrics), rate limiting,
// CORS and security headers, session resolution and access guarding, health
// and metrics endpoints, and then mounts the versioned public API under
// /api/v*.
//
// Middleware order matters:
//  1. OpenTelemetry: trace everything
//  2. RequestID: generate/propagate correlation id
//  3. Logger: structured logs with query redaction
//  4. Recovery: capture panics after logger
//  5. Body size limiter
//  6. Metrics
//  7. Rate limiter (per user/IP)
//  8. CORS and Security headers
//  9. Gzip compression
//  10. Session: resolve identity from bearer token or refresh cookie
//  11. Guard: route access rules (redirect HTML clients, 401 API clients)
func RegisterRoutes(r *gin.Engine, db *gorm.DB, events *notify.Broker, cfg config.Config) {
	r.HandleMethodNotAllowed = true

	// 1) Trace all HTTP requests
	r.Use(otelgin.Middleware(cfg.OTEL.ServiceName))

	// 2) Correlate requests and logs
	r.Use(middleware.RequestID())

	// 3) Structured logging with sensitive-query redaction
	r.Use(middleware.Logger())

	// 4) Panic recovery to JSON 500 (with request id)
	r.Use(middleware.Recovery())

	// 5) Global body size limit (1 MiB)
	r.Use(limitBody(1 << 20))

	// 6) Prometheus metrics and /metrics endpoint
	r.Use(middleware.Metrics())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// 7) Token-bucket rate limiter per user/IP
	rl := middleware.NewRateLimiter(cfg.RateRPS, cfg.RateBurst, middleware.KeyByUserOrIP())
	r.Use(rl.Handler())

	// 8) CORS posture (safe defaults: allow all if none configured)
	if len(cfg.CORS.AllowedOrigins) == 0 {
		// Force ACAO: * even for requests without an Origin header (helps tests and simple health checks).
		r.Use(func(c *gin.Context) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowAllOrigins:  true,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Access-Token", "Content-Length"},
			AllowCredentials: false, // must remain false with AllowAllOrigins
			MaxAge:           12 * time.Hour,
		}))
	} else {
		// Cookie-based session refresh requires credentialed CORS, which in
		// turn requires an explicit origin allowlist.
		allowed := make(map[string]struct{}, len(cfg.CORS.AllowedOrigins))
		for _, o := range cfg.CORS.AllowedOrigins {
			allowed[o] = struct{}{}
		}
		r.Use(func(c *gin.Context) {
			if origin := c.GetHeader("Origin"); origin != "" {
				if _, ok := allowed[origin]; ok {
					h := c.Writer.Header()
					h.Set("Access-Control-Allow-Origin", origin)
					h.Add("Vary", "Origin")
				}
			}
			c.Next()
		})
		r.Use(cors.New(cors.Config{
			AllowOrigins:     cfg.CORS.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
			ExposeHeaders:    []string{"X-Request-ID", "X-Access-Token", "Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// Security headers (HSTS only when enabled and request is HTTPS)
	r.Use(middleware.SecurityHeaders(middleware.SecurityOptions{
		EnableHSTS:   cfg.Security.EnableHSTS,
		HSTSMaxAge:   cfg.Security.HSTSMaxAge,
		NoStore:      false,
		EnablePolicy: true,
	}))

	// 9) Compress responses for clients that accept it
	r.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/metrics"})))

	// Dependency injection: services ← repo/db/config
	accounts := &services.AccountService{
		DB:             db,
		Limiter:        ratelimit.New(),
		Tokens:         token.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL),
		RefreshTTL:     cfg.Auth.RefreshTTL,
		LoginPolicy:    ratelimit.Policy{MaxAttempts: cfg.Auth.LoginMaxAttempts, Window: cfg.Auth.LoginWindow},
		RegisterPolicy: ratelimit.Policy{MaxAttempts: cfg.Auth.RegisterMaxAttempts, Window: cfg.Auth.RegisterWindow},
		StoreTimeout:   cfg.StoreTimeout,
	}
	pollSvc := &services.PollService{
		DB:           db,
		Repo:         pollRepoShim{},
		Events:       events,
		SlugSecret:   cfg.Auth.SlugSecret,
		StoreTimeout: cfg.StoreTimeout,
	}
	voteSvc := &services.VoteService{
		DB:           db,
		Events:       events,
		StoreTimeout: cfg.StoreTimeout,
	}

	sessOpt := middleware.SessionOptions{
		Accounts:     accounts,
		CookieName:   cfg.Auth.CookieName,
		CookieSecure: cfg.Security.EnableHSTS,
		RefreshTTL:   cfg.Auth.RefreshTTL,
	}

	// 10) Resolve identity before any access decision
	r.Use(middleware.Session(sessOpt))

	// 11) Route access rules: first match wins; unmatched paths are public.
	apiBase := cfg.APIBasePath // e.g. "/api/v1"
	r.Use(middleware.Guard(middleware.GuardOptions{
		Rules: []middleware.Rule{
			{Pattern: apiBase + "/admin/*rest", Access: middleware.AccessAdmin},
			{Pattern: apiBase + "/auth/register", Access: middleware.AccessAnonymous},
			{Pattern: apiBase + "/auth/login", Access: middleware.AccessAnonymous},
			{Pattern: apiBase + "/auth/me", Access: middleware.AccessProtected},
			{Pattern: apiBase + "/polls/:id/edit", Access: middleware.AccessProtected},
			{Pattern: apiBase + "/polls/:id/votes", Access: middleware.AccessPublic},
			{Pattern: apiBase + "/polls/:id/results", Access: middleware.AccessPublic},
			{Pattern: apiBase + "/polls/:id", Access: middleware.AccessPublic},
			{Pattern: apiBase + "/polls", Access: middleware.AccessProtected},
			{Pattern: apiBase + "/shared/:slug", Access: middleware.AccessPublic},
		},
		LoginPath: "/login",
		HomePath:  "/polls",
		Cookies:   sessOpt,
	}))

	// Fallbacks
	r.NoRoute(func(c *gin.Context) {
		handlers.Fail(c, http.StatusNotFound, handlers.ErrCodeNotFound, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		handlers.Fail(c, http.StatusMethodNotAllowed, handlers.ErrCodeMethodNotAllowed, "method not allowed")
	})

	// Liveness/health
	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	h := handlers.New(pollSvc, voteSvc, accounts, sessOpt)

	// Public API
	api := groupWithPrefix(r, apiBase)
	{
		// Accounts
		api.POST("/auth/register", h.Register)
		api.POST("/auth/login", h.Login)
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)

		// Polls
		api.POST("/polls", h.CreatePoll)
		api.GET("/polls", h.ListPolls)
		api.GET("/polls/:id", h.GetPoll)
		api.GET("/polls/:id/edit", h.GetPollForEdit)
		api.PUT("/polls/:id", h.UpdatePoll)
		api.DELETE("/polls/:id", h.DeletePoll)
		api.GET("/shared/:slug", h.GetSharedPoll)

		// Votes
		api.POST("/polls/:id/votes", h.SubmitVote)
		api.GET("/polls/:id/results", h.GetResults)
	}
}

// limitBody returns a Gin middleware that caps the request body size for all
// endpoints to maxBytes using http.MaxBytesReader. Requests exceeding the cap
// will cause downstream body reads to error.
func limitBody(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// groupWithPrefix mounts a group at prefix, treating "/" (or empty) as root.
func groupWithPrefix(r *gin.Engine, prefix string) *gin.RouterGroup {
	if prefix == "" || prefix == "/" {
		return r.Group("")
	}
	return r.Group(prefix)
}
