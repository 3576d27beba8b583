package mediator

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// NewServer builds the admin HTTP surface's mux, bound to addr. Grounded on
// teranos-QNTX/server/routing.go's use of net/http.ServeMux with Go 1.22+
// method-and-wildcard patterns. REDESIGN FLAG #1: the bind address now
// actually honors the configured listen port instead of hardcoding it.
func NewServer(addr string, admin *Admin, log *zap.SugaredLogger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /gw", admin.SpawnGateway)
	mux.HandleFunc("GET /gw", admin.ListSessions)
	mux.HandleFunc("GET /gw/{session_id}", admin.SessionStats)

	return &http.Server{
		Addr:              addr,
		Handler:           loggingMiddleware(log, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func loggingMiddleware(log *zap.SugaredLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Debugw("admin request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start))
	})
}

// Shutdown gracefully stops srv, waiting up to the given timeout.
func Shutdown(ctx context.Context, srv *http.Server) error {
	return srv.Shutdown(ctx)
}
