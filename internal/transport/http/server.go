// Package httptransport builds the process's *http.Server.
package httptransport

import (
	"context"
	stdlog "log"
	"net"
	"net/http"
	"time"

	"example.com/marathon/internal/logging"
)

// ServerConfig contains tunables for the HTTP server. Zero timeouts fall
// back to the defaults below.
type ServerConfig struct {
	Address           string
	ReadTimeout       time.Duration
	ReadHeaderTimeout time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

const (
	defaultReadTimeout       = 15 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultWriteTimeout      = 15 * time.Second
	defaultIdleTimeout       = 60 * time.Second
)

// NewServer creates *http.Server with provided handler. net/http's own
// error output is routed through zerolog.
func NewServer(cfg ServerConfig, handler http.Handler) *http.Server {
	errLog := logging.Logger().With().Str("component", "http_server").Logger()

	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadTimeout:       orDefault(cfg.ReadTimeout, defaultReadTimeout),
		ReadHeaderTimeout: orDefault(cfg.ReadHeaderTimeout, defaultReadHeaderTimeout),
		WriteTimeout:      orDefault(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       orDefault(cfg.IdleTimeout, defaultIdleTimeout),
		ErrorLog:          stdlog.New(errLog, "", 0),
		BaseContext: func(net.Listener) context.Context {
			return context.Background()
		},
	}
}

func orDefault(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}
