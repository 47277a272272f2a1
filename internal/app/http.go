package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServeAmbientHTTP starts the /healthz, /readyz, and /metrics server at
// addr, returning immediately; the server runs until ctx is cancelled, at
// which point it shuts down with a 5-second grace period. Serving errors
// other than the expected shutdown close are logged, not returned, since
// the ambient server is never load-bearing for the pipeline itself.
//
// Prometheus scrapes /metrics against the default registerer, which
// observe.InitProvider already wired the OTel metrics bridge into — no
// further metrics plumbing is needed here.
func (a *App) ServeAmbientHTTP(ctx context.Context, addr string) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.health.Healthz)
	mux.HandleFunc("/readyz", a.health.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("app: ambient http server shutdown", "err", err)
		}
	}()

	go func() {
		slog.Info("app: ambient http server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Warn("app: ambient http server exited", "err", err)
		}
	}()
}
