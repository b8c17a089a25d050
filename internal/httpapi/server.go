package httpapi

import (
	"net/http"
	"time"

	"skladi/internal/config"
)

func NewServer(cfg config.ServerConfig, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           requestLogger(corsMiddleware(cfg.CORSAllowedOrigins)(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}
