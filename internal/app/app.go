package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/notifier"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/recaptcha"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/repository/postgres"
	"github.com/vadimbarashkov/link-shortener/internal/adapter/safebrowsing"
	"github.com/vadimbarashkov/link-shortener/internal/config"
	"github.com/vadimbarashkov/link-shortener/internal/slug"
	"github.com/vadimbarashkov/link-shortener/internal/usecase"
	"github.com/vadimbarashkov/link-shortener/pkg/middleware/metrics"
	"github.com/vadimbarashkov/link-shortener/pkg/middleware/ratelimit"
	"golang.org/x/sync/errgroup"

	rediscache "github.com/vadimbarashkov/link-shortener/internal/adapter/cache/redis"
	delivery "github.com/vadimbarashkov/link-shortener/internal/adapter/delivery/http"
	pgpkg "github.com/vadimbarashkov/link-shortener/pkg/postgres"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger, logCloser, err := newLogger(cfg.Env, cfg.Log)
	if err != nil {
		return fmt.Errorf("%s: failed to set up logger: %w", op, err)
	}
	defer logCloser.Close()

	db, err := pgpkg.New(
		ctx,
		cfg.Postgres.DSN(),
		pgpkg.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
		pgpkg.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
		pgpkg.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
		pgpkg.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
	)
	if err != nil {
		return fmt.Errorf("%s: failed to connect to database: %w", op, err)
	}
	defer db.Close()

	version, err := pgpkg.RunMigrations(cfg.Postgres.MigrationsPath, cfg.Postgres.DSN())
	if err != nil {
		return fmt.Errorf("%s: failed to run migrations: %w", op, err)
	}
	logger.Info("database migrated", slog.Uint64("version", uint64(version)))

	ucOpts := []usecase.Option{
		usecase.WithMaxRetries(cfg.Slug.MaxRetries),
	}

	if cfg.Redis.Enabled {
		client, err := rediscache.Connect(ctx, cfg.Redis.URL)
		if err != nil {
			logger.Warn("redis unavailable, running without cache", slog.Any("err", err))
		} else {
			defer client.Close()
			ucOpts = append(ucOpts, usecase.WithCache(rediscache.NewURLCache(client, cfg.Redis.TTL)))
		}
	}

	alerts := newNotifier(cfg.Notifier, logger.Logger)

	urlUseCase := usecase.New(
		postgres.NewURLRepository(db),
		safebrowsing.New(safebrowsing.Config{
			APIKey:        cfg.SafeBrowsing.APIKey,
			Endpoint:      cfg.SafeBrowsing.Endpoint,
			ClientID:      cfg.SafeBrowsing.ClientID,
			ClientVersion: cfg.SafeBrowsing.ClientVersion,
			Timeout:       cfg.SafeBrowsing.Timeout,
		}),
		alerts,
		slug.NewGenerator(cfg.Slug.Length),
		logger.Logger,
		ucOpts...,
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	routerOpts := []delivery.RouterOption{
		delivery.WithBaseURL(cfg.BaseURL),
		delivery.WithMetrics(metrics.New(reg)),
		delivery.WithAlerter(alerts),
		delivery.WithTrustProxyHeaders(cfg.HTTPServer.TrustProxyHeaders),
	}

	if cfg.Recaptcha.Enabled() {
		routerOpts = append(routerOpts, delivery.WithCaptcha(recaptcha.New(recaptcha.Config{
			SecretKey: cfg.Recaptcha.SecretKey,
			Endpoint:  cfg.Recaptcha.Endpoint,
			Timeout:   cfg.Recaptcha.Timeout,
		})))
	} else {
		logger.Warn("recaptcha secret not set, captcha checks disabled")
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		routerOpts = append(routerOpts, delivery.WithRateLimit(limiter.Middleware()))

		g.Go(func() error {
			limiter.Run(ctx)
			return nil
		})
	}

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        delivery.NewRouter(logger, urlUseCase, routerOpts...),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ErrorLog:       slog.NewLogLogger(logger.Handler(), slog.LevelError),
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr), slog.String("env", cfg.Env))

		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		logger.Info("shutting down server")

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}

type alerter interface {
	Notify(ctx context.Context, subject, body string) error
}

// newNotifier mails alerts through SendGrid when an API key is configured
// and only logs them otherwise.
func newNotifier(cfg config.Notifier, logger *slog.Logger) alerter {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("sendgrid api key not set, alerts are only logged")
		return notifier.NewLog(logger)
	}

	return notifier.NewSendGrid(notifier.Config{
		APIKey:     cfg.SendGridAPIKey,
		Host:       cfg.Host,
		From:       cfg.From,
		AdminEmail: cfg.AdminEmail,
		SiteName:   cfg.SiteName,
	})
}
