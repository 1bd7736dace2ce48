package telemetry

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"
)

// StartMetricsServer serves handler under /metrics on addr in the
// background. The returned server's Addr holds the bound address, which
// matters when addr asks for port 0.
func StartMetricsServer(addr string, handler http.Handler) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("Starting metrics server", "addr", srv.Addr)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "error", err)
		}
	}()
	return srv, nil
}
