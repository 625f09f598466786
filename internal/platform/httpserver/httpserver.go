// Package httpserver builds the process's one HTTP server.
package httpserver

import (
	"net/http"
	"time"

	"sportsfest/internal/platform/config"
)

// New applies the API's deadlines around the router. The write deadline
// sits above the request timeout so the timeout middleware's own response
// still reaches the client.
func New(cfg config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}
