package http

import (
	"context"
	"net/http"

	"github.com/go-admin-auth/internal/config"
	"github.com/go-admin-auth/internal/transport/http/handler"
	appmiddleware "github.com/go-admin-auth/internal/transport/http/middleware"
	"github.com/go-admin-auth/internal/transport/http/page"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work started for the router.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP)
	}
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	authMw := appmiddleware.Auth(deps.Verifier, deps.Sessions)
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)

	healthH := handler.NewHealthHandler()
	sessionH := handler.NewSessionHandler(deps.Sessions)
	magicH := handler.NewMagicLinkHandler(deps.Guardian)
	pages := page.NewMagicLink(deps.Guardian, page.Options{
		LoginURL:      cfg.LoginURL,
		AfterLoginURL: cfg.AfterLoginURL,
		SecureCookie:  cfg.IsProduction(),
		Logger:        deps.Logger,
	})

	pageRL := sensitiveRL.LimitWith(pages.TooManyRequests)

	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Language)
		r.Get(page.RequestPath, pages.ShowRequest)
		r.With(pageRL).Post(page.RequestPath, pages.RequestLink)
		r.Get(page.SubmitPath, pages.ShowSubmit)
		r.With(pageRL).Post(page.SubmitPath, pages.SubmitCode)
	})

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health-check/{action}", healthH.Ping)
		r.Post("/health-check/{action}", healthH.Ping)
		r.With(sensitiveRL.Limit).Post("/magic-link/request", magicH.Request)
		r.With(sensitiveRL.Limit).Post("/magic-link/submit", magicH.Submit)

		r.Group(func(r chi.Router) {
			r.Use(authMw)

			r.Get("/sessions", sessionH.GetCurrent)
			r.Post("/sessions/logout", sessionH.Logout)
			r.Post("/sessions/logout-all", sessionH.LogoutAll)
		})
	})

	return r
}
