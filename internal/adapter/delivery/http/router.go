// Package http provides the HTTP delivery layer for the link shortener service.
// It contains the router, the handlers and the request and response schemas.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/recaptcha"
	"github.com/vadimbarashkov/link-shortener/pkg/middleware/metrics"
	"github.com/vadimbarashkov/link-shortener/pkg/middleware/recoverer"

	pkgmw "github.com/vadimbarashkov/link-shortener/pkg/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

const docsPath = "./docs/swagger.yml"

type routerOptions struct {
	baseURL           string
	captcha           captchaVerifier
	alerter           alerter
	rateLimit         pkgmw.Middleware
	metrics           *metrics.Metrics
	trustProxyHeaders bool
}

type RouterOption func(*routerOptions)

// WithBaseURL fixes the scheme and host used in short URLs.
func WithBaseURL(baseURL string) RouterOption {
	return func(o *routerOptions) {
		o.baseURL = baseURL
	}
}

// WithCaptcha checks captcha tokens on the public write endpoints.
func WithCaptcha(captcha captchaVerifier) RouterOption {
	return func(o *routerOptions) {
		o.captcha = captcha
	}
}

// WithAlerter notifies the operator about panics and unexpected errors.
func WithAlerter(a alerter) RouterOption {
	return func(o *routerOptions) {
		o.alerter = a
	}
}

func WithRateLimit(mw pkgmw.Middleware) RouterOption {
	return func(o *routerOptions) {
		o.rateLimit = mw
	}
}

// WithMetrics records request metrics and serves them on /metrics.
func WithMetrics(m *metrics.Metrics) RouterOption {
	return func(o *routerOptions) {
		o.metrics = m
	}
}

// WithTrustProxyHeaders takes the client IP from X-Forwarded-For and
// X-Real-IP. Without it the rate limiter keys on the connection address.
func WithTrustProxyHeaders(trust bool) RouterOption {
	return func(o *routerOptions) {
		o.trustProxyHeaders = trust
	}
}

// NewRouter initializes and returns a new Chi router configured with middleware and routes for the link shortener API.
func NewRouter(logger *httplog.Logger, urlUseCase urlUseCase, opts ...RouterOption) *chi.Mux {
	o := routerOptions{
		captcha: recaptcha.Nop{},
	}
	for _, opt := range opts {
		opt(&o)
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"POST", "GET", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Accept"},
		AllowCredentials: false,
		MaxAge:           86400,
	}))
	r.Use(middleware.RequestID)
	if o.trustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	r.Use(httplog.RequestLogger(logger))
	r.Use(recoverer.New(logger.Logger, o.alerter))
	if o.metrics != nil {
		r.Use(o.metrics.Middleware())
		r.Handle("/metrics", o.metrics.Handler())
	}

	r.NotFound(handleNotFound)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/swagger.yml"),
	))

	r.Get("/docs/swagger.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, docsPath)
	})

	h := newURLHandler(urlUseCase, o.captcha, o.alerter, o.baseURL)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", handlePing)

		r.Group(func(r chi.Router) {
			if o.rateLimit != nil {
				r.Use(o.rateLimit)
			}

			r.Post("/shorten", h.shortenURL)
			r.Post("/resolve", h.resolveShortURL)
		})

		r.Get("/urls/{slug}/stats", h.getURLStats)
	})

	r.Get("/{slug}", h.redirect)

	return r
}
