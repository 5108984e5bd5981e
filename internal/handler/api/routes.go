// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/olegiv/magazine-api/internal/middleware"
	"github.com/olegiv/magazine-api/internal/model"
)

const (
	requestTimeout = 30 * time.Second

	// Tracking is called once per page view by the frontend.
	trackRateLimit = 2
	trackRateBurst = 10
)

// RouterConfig carries everything NewRouter needs beyond the handlers.
type RouterConfig struct {
	Handler *Handler
	Health  *HealthHandler

	UploadsDir     string
	CORSOrigins    []string
	TrustedProxies []*net.IPNet
	IsDevelopment  bool

	RateLimit float64
	RateBurst int
	CSRFKey   []byte

	Logger *slog.Logger
}

// NewRouter builds the HTTP router: health probes, uploaded files and the
// JSON API under /api.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	h := cfg.Handler

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(middleware.RealIP(cfg.TrustedProxies))
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Compress(5))
	r.Use(chimw.GetHead)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))
	r.Use(middleware.RequestPath)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	apiLimiter := middleware.NewRateLimiter("api", cfg.RateLimit, cfg.RateBurst, logger, "/health")
	r.Use(apiLimiter.Middleware())

	r.Get("/health", cfg.Health.Liveness)
	r.Get("/health/live", cfg.Health.Liveness)
	r.With(middleware.OptionalAuthenticate(h.auth)).Get("/health/ready", cfg.Health.Readiness)

	r.Handle("/uploads/*", http.StripPrefix("/uploads/", uploadsHandler(cfg.UploadsDir)))

	authn := middleware.Authenticate(h.auth, logger)
	editor := middleware.RequireRole(model.RoleEditor, logger)
	admin := middleware.RequireRole(model.RoleAdmin, logger)
	csrf := middleware.CSRF(middleware.NewCSRFConfig(cfg.CSRFKey, cfg.CORSOrigins, logger))
	trackLimiter := middleware.NewRateLimiter("track", trackRateLimit, trackRateBurst, logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/articles", func(r chi.Router) {
			r.With(middleware.OptionalAuthenticate(h.auth)).Get("/", h.ListArticles)
			r.With(middleware.OptionalAuthenticate(h.auth)).Get("/{idOrSlug}", h.GetArticle)
			r.Get("/{idOrSlug}/related", h.RelatedArticles)

			r.Group(func(r chi.Router) {
				r.Use(authn, editor)
				r.Post("/", h.CreateArticle)
				r.Put("/{id}", h.UpdateArticle)
				r.Patch("/{id}", h.UpdateArticle)
			})
			r.With(authn, admin).Delete("/{id}", h.DeleteArticle)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.With(authn, editor).Post("/", h.CreateCategory)
			r.With(authn, admin).Delete("/{id}", h.DeleteCategory)
		})

		r.With(authn, editor).Post("/upload", h.Upload)

		r.Route("/auth", func(r chi.Router) {
			if h.login != nil {
				r.With(h.login.Middleware()).Post("/login", h.Login)
			} else {
				r.Post("/login", h.Login)
			}
			r.With(csrf).Post("/logout", h.Logout)
			r.With(csrf).Post("/refresh", h.Refresh)

			r.Group(func(r chi.Router) {
				r.Use(authn)
				r.Get("/me", h.Me)
				r.Post("/change-password", h.ChangePassword)
			})
		})

		r.Route("/analytics", func(r chi.Router) {
			r.With(trackLimiter.Middleware()).Post("/track", h.Track)

			r.Group(func(r chi.Router) {
				r.Use(authn, editor)
				r.Get("/dashboard", h.Dashboard)
				r.Get("/article/{id}", h.ArticleStats)
			})
		})

		r.Route("/subscribers", func(r chi.Router) {
			r.Post("/", h.Subscribe)

			r.Group(func(r chi.Router) {
				r.Use(authn, admin)
				r.Get("/", h.ListSubscribers)
				r.Delete("/{id}", h.DeleteSubscriber)
			})
		})

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			WriteNotFound(w, "Route not found")
		})
		r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		})
	})

	return r
}

// uploadsHandler serves stored uploads without directory listings.
func uploadsHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Content-Type-Options", "nosniff")
		files.ServeHTTP(w, r)
	})
}
