package httpserver

import (
	"net/http"
	"time"
)

// New returns the API server. The write timeout leaves room for the request
// timeout middleware plus the notification dispatch budget of a step 8 save.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       20 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       90 * time.Second,
		MaxHeaderBytes:    64 << 10,
	}
}
