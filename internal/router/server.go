package router

import (
	"net/http"
	"time"

	"calevid/config"
)

// NewHTTPServer wraps the handler in an http.Server with the configured
// timeouts. The server carries no WriteTimeout: the generate endpoint holds
// its response open while the render queue runs (minutes, not seconds) and
// the progress websocket outlives any fixed deadline, so a connection-level
// write deadline would cut both off mid-flight. Slow-path bounds live in the
// handlers instead (request contexts, websocket deadlines).
func NewHTTPServer(cfg *config.ServerConfig, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: 60 * time.Second,
	}
}
