package httpserver

import (
	"net/http"
	"time"
)

// New returns an HTTP server for the registration API. The write timeout
// leaves room for an approval to complete its directory round-trips, which
// are themselves bounded at ten seconds per call.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
