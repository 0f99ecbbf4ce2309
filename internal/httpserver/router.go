// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SessionForge Contributors

package httpserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions controls router construction. The zero value is valid
// apart from Handler, which is required.
type RouterOptions struct {
	Handler     *Handler
	Logger      *slog.Logger
	CORSOptions *cors.Options
}

// DefaultCORSOptions returns the CORS policy used when none is configured.
func DefaultCORSOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"http://localhost:*", "http://127.0.0.1:*"}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the chi router with shared middleware and the user
// and token endpoints mounted.
func NewRouter(opts RouterOptions) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	r.Use(middleware.Recoverer)

	corsCfg := DefaultCORSOptions(nil)
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	if opts.Handler != nil {
		r.Use(CountRequests(opts.Handler.metrics))

		r.Get("/", opts.Handler.handleIndex)
		r.Route("/user", func(r chi.Router) {
			r.Post("/login", opts.Handler.handleLogin)
			r.Post("/register", opts.Handler.handleRegister)
			r.Route("/token", func(r chi.Router) {
				r.Post("/verify", opts.Handler.handleVerify)
				r.Post("/logout", opts.Handler.handleLogout)
			})
		})
	}

	return r
}
