package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"circulog/internal/catalog"
	"circulog/internal/circulation"
	"circulog/internal/config"
	"circulog/internal/membership"
	"circulog/internal/metrics"
	"circulog/internal/reconcile"
	"circulog/internal/reports"
	"circulog/internal/telemetry"
	"circulog/pkg/eventstore"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "circulog", cfg.OTELEndpoint)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	db, err := sqlx.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		return err
	}

	for _, schema := range []string{eventstore.Schema, catalog.Schema, membership.Schema} {
		if _, err := db.ExecContext(ctx, schema); err != nil {
			return err
		}
	}

	m := metrics.New()
	ledger := eventstore.NewPostgres(db.DB)
	books := catalog.NewPostgresStore(db)
	members := membership.NewPostgresStore(db)

	circService := circulation.NewService(ledger, books, members,
		circulation.WithLogger(logger),
		circulation.WithMetrics(m),
	)
	reconciler := reconcile.New(ledger, books,
		reconcile.WithLogger(logger),
		reconcile.WithMetrics(m),
	)
	catalogService := catalog.NewService(books, logger)
	memberService := membership.NewService(members, logger)
	reportService := reports.NewService(books, members, circService)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))
	r.Use(rateLimit(cfg.RatePerMinute, cfg.RateBurst))

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/circulation", circulation.NewHandler(circService).Routes)
		r.Route("/catalog", catalog.NewHandler(catalogService).Routes)
		r.Route("/members", membership.NewHandler(memberService).Routes)
		r.Route("/admin", reconcile.NewHandler(reconciler).Routes)
		reports.NewHandler(reportService).Routes(r)
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Addr)
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		logger.Info("server stopped")
		return nil
	}
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func rateLimit(perMinute, burst int) func(http.Handler) http.Handler {
	limiter := rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
