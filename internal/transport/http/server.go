// Package httptransport builds the HTTP servers used by the workout binaries.
package httptransport

import (
	"context"
	"errors"
	"net/http"
	"time"

	jerrors "github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
	"github.com/luno/jettison/log"
)

// ServerConfig contains tunables for the HTTP server. Zero timeouts take the defaults below.
type ServerConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

const (
	defaultReadTimeout  = 5 * time.Second
	defaultWriteTimeout = 10 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// NewServer creates *http.Server with provided handler.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: orDefault(cfg.ReadTimeout, defaultReadTimeout),
		ReadTimeout:       orDefault(cfg.ReadTimeout, defaultReadTimeout),
		WriteTimeout:      orDefault(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(cfg.IdleTimeout, defaultIdleTimeout),
	}
}

// Serve runs srv in the background. Failures other than a clean shutdown are logged.
func Serve(ctx context.Context, name string, srv *http.Server) {
	go func() {
		log.Info(ctx, "listening", j.KV("server", name), j.KV("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, jerrors.Wrap(err, "server stopped", j.KV("server", name)))
		}
	}()
}

// Logging logs the method and path of every request.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug(r.Context(), "request", j.KV("method", r.Method), j.KV("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

func orDefault(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
