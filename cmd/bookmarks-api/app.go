package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/BearBump/trackmarks/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

type bookmarksAPIOpts struct {
	httpAddr    string
	swaggerPath string
	corsOrigins []string

	onListen func(httpAddr string)
}

type httpHandler interface {
	Init(r chi.Router)
}

type pinger interface {
	Ping(ctx context.Context) error
}

func runBookmarksAPI(ctx context.Context, logger *slog.Logger, opts bookmarksAPIOpts, h httpHandler, deps map[string]pinger) error {
	if opts.swaggerPath != "" {
		if _, err := os.Stat(opts.swaggerPath); os.IsNotExist(err) {
			return fmt.Errorf("swagger file not found: %s", opts.swaggerPath)
		}
	}

	lis, err := net.Listen("tcp", opts.httpAddr)
	if err != nil {
		return err
	}
	if opts.onListen != nil {
		opts.onListen(lis.Addr().String())
	}

	srv := &http.Server{
		Handler:           newRouter(logger, opts, h, deps),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		_ = lis.Close()
	}()

	logger.Info("HTTP server listening", slog.String("addr", lis.Addr().String()))
	err = srv.Serve(lis)
	if err == http.ErrServerClosed {
		return ctx.Err()
	}
	return err
}

func newRouter(logger *slog.Logger, opts bookmarksAPIOpts, h httpHandler, deps map[string]pinger) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	if len(opts.corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.corsOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		}))
	}
	r.Use(metrics.Middleware)
	r.Use(requestLogger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		for name, d := range deps {
			if err := d.Ping(ctx); err != nil {
				logger.WarnContext(ctx, "dependency not ready", slog.String("dep", name), slog.Any("error", err))
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = fmt.Fprintf(w, `{"status":"not ready","dep":%q}`, name)
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	if opts.swaggerPath != "" {
		r.Get("/swagger.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "no-store")
			http.ServeFile(w, r, opts.swaggerPath)
		})
		swaggerURL := "/swagger.json"
		if fi, err := os.Stat(opts.swaggerPath); err == nil {
			swaggerURL = fmt.Sprintf("/swagger.json?v=%d", fi.ModTime().Unix())
		}
		r.Get("/docs/*", httpSwagger.Handler(httpSwagger.URL(swaggerURL)))
	}

	h.Init(r)
	return r
}

func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := metrics.NewStatusRecorder(w)
			next.ServeHTTP(rw, r)

			logger.DebugContext(r.Context(), "request",
				slog.Int("status", rw.Status),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("duration", time.Since(start).String()),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
