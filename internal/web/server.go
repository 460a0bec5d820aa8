package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hpungsan/murmur/internal/logging"
	"github.com/hpungsan/murmur/internal/ops"
)

// NewServer creates and configures the HTTP server for the meeting API.
func NewServer(p *ops.Pipeline, version, bind string, port int) *http.Server {
	h := &Handlers{p: p, version: version}

	mux := http.NewServeMux()

	// Routes using Go 1.22+ pattern syntax
	mux.HandleFunc("GET /healthz", h.HandleHealth)
	mux.HandleFunc("GET /meetings", h.HandleList)
	mux.HandleFunc("GET /meetings/{id}", h.HandleDetail)
	mux.HandleFunc("DELETE /meetings/{id}", h.HandleDelete)
	mux.HandleFunc("POST /meetings/{id}/embeddings", h.HandleIndex)
	mux.HandleFunc("GET /meetings/{id}/chat", h.HandleHistory)
	mux.HandleFunc("POST /meetings/{id}/chat", h.HandleAsk)
	mux.HandleFunc("GET /meetings/{id}/summary", h.HandleSummary)
	mux.HandleFunc("POST /meetings/{id}/summary", h.HandleSummary)
	mux.HandleFunc("PUT /meetings/{id}/speakers", h.HandleUpdateSpeaker)
	mux.HandleFunc("PUT /meetings/{id}/segments/{segment}", h.HandleReassignSegment)

	// Wrap with security headers
	handler := securityHeaders(mux)

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", bind, port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// securityHeaders adds security-related HTTP headers to all responses.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and handles graceful shutdown on SIGINT/SIGTERM.
func Run(srv *http.Server, log *logging.Logger) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	log.Infof("murmur API running at http://%s", srv.Addr)

	if strings.Contains(srv.Addr, "0.0.0.0") || strings.Contains(srv.Addr, "::") {
		log.Warnf("server is binding to all interfaces and may be accessible from the network")
	}

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Infof("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
