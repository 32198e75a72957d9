package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/sbconlon/mlb-scraper/internal/pkg/health/handlers"
)

// Options wires the optional parts of the router. A nil Registry or Stream
// leaves the matching route out.
type Options struct {
	Store    *Store
	Registry *prometheus.Registry
	Stream   http.Handler
}

// NewRouter builds the HTTP handler.
func NewRouter(opts Options) http.Handler {
	if opts.Store == nil {
		opts.Store = NewStore()
	}
	router := mux.NewRouter()
	router.HandleFunc("/ping", handlers.HandlePing).Methods(http.MethodGet)
	router.HandleFunc("/health", handlers.HandleHealth(opts.Store)).Methods(http.MethodGet)
	router.HandleFunc("/games", handlers.HandleGames(opts.Store)).Methods(http.MethodGet)
	router.HandleFunc("/games/{id}", handlers.HandleGame(opts.Store)).Methods(http.MethodGet)
	if opts.Registry != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{}))
	}
	if opts.Stream != nil {
		router.Handle("/ws", opts.Stream)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(router)
}

// Run serves the router on addr until ctx is done.
func Run(ctx context.Context, addr string, service string, opts Options, readHeaderTimeout time.Duration) error {
	if readHeaderTimeout <= 0 {
		return errors.New("read_header_timeout must be specified in config")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		slog.Info("Health server listening", "service", service, "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Health server error", "service", service, "error", err)
		}
	}()
	return nil
}

func AddrFor(port int) (string, error) {
	if port <= 0 {
		return "", errors.New("port must be greater than 0")
	}
	return fmt.Sprintf(":%d", port), nil
}
