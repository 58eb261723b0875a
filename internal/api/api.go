// Package api serves the overlay engine over HTTP and WebSocket, and
// optionally the generated static site.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

var logger = log.WithField("package", "api")

// maxBody caps request bodies; patches for a single file are small.
const maxBody = 8 << 20

// Server is the prview HTTP server.
type Server struct {
	siteDir string
	handler http.Handler
	http    *http.Server
}

// Option configures a Server.
type Option func(*Server)

// WithSite serves the generated site in dir at "/".
func WithSite(dir string) Option {
	return func(s *Server) { s.siteDir = dir }
}

// New builds a server listening on addr once Serve is called.
func New(addr string, opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}

	mux := http.NewServeMux()
	routes := map[string]http.HandlerFunc{
		"GET /health":          s.handleHealth,
		"POST /api/parse":      s.handleParse,
		"POST /api/apply":      s.handleApply,
		"POST /api/interleave": s.handleInterleave,
		"POST /api/analyze":    s.handleAnalyze,
		"GET /api/ws":          s.handleWebSocket,
	}
	for pattern, h := range routes {
		mux.HandleFunc(pattern, h)
	}
	if s.siteDir != "" {
		mux.Handle("GET /", http.FileServer(http.Dir(s.siteDir)))
	}
	s.handler = logRequests(mux)

	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Serve listens until ctx is cancelled, then drains open requests.
func (s *Server) Serve(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- s.http.ListenAndServe() }()
	logger.WithFields(log.Fields{"addr": s.http.Addr, "site": s.siteDir}).Info("listening")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(start),
		}).Debug("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		logger.WithError(err).Warn("encoding response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// readJSON decodes the request body into v, rejecting empty and oversized bodies.
func readJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty request body")
	}
	body := http.MaxBytesReader(w, r.Body, maxBody)
	defer body.Close()
	if err := json.NewDecoder(body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("empty request body")
		}
		return err
	}
	return nil
}
