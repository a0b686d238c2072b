package webhook

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"
)

// HealthFunc reports whether the search engine is reachable.
type HealthFunc func(ctx context.Context) bool

// NewMux mounts the webhook endpoints together with /healthz and, when
// metrics is non-nil, /metrics.
func NewMux(h *Handler, metrics http.Handler, health HealthFunc) *http.ServeMux {
	mux := http.NewServeMux()
	h.Register(mux)
	if metrics != nil {
		mux.Handle("/metrics", metrics)
	}
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if health != nil && !health(r.Context()) {
			writeJSON(w, http.StatusServiceUnavailable, Response{Status: "unreachable"})
			return
		}
		writeJSON(w, http.StatusOK, Response{Status: "ok"})
	})
	return mux
}

// Server runs an http.Handler on a TCP address.
type Server struct {
	mu       sync.Mutex
	addr     string
	handler  http.Handler
	server   *http.Server
	listener net.Listener
	errChan  chan error
}

// NewServer creates a server for handler on addr. An addr with port 0
// picks a free port.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{
		addr:    addr,
		handler: handler,
		errChan: make(chan error, 1),
	}
}

// Start begins serving in the background.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener
	s.addr = listener.Addr().String()

	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case s.errChan <- err:
			default:
			}
		}
	}()

	return nil
}

// Addr returns the listen address; after Start it carries the real port.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Errors delivers a serve failure, if one happens.
func (s *Server) Errors() <-chan error {
	return s.errChan
}

// Stop shuts the server down, waiting up to five seconds for requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
