package httpapi

import (
	"net/http"
	"time"

	"github.com/doakesbacon/sqlalchemy-challenge/internal/config"
)

// NewServer wraps mux with request id, request logging and CORS, outermost
// first.
func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           Handler(cfg, mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func Handler(cfg config.Config, mux *http.ServeMux) http.Handler {
	return requestID(requestLogger(corsHandler(cfg.CORSAllowedOrigins)(mux)))
}
