package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server for the approval API. The write timeout leaves
// room for the per-request timeout applied by the router.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
