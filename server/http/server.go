package http

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/julienstroheker/pairrelay/internal/logging"
	"github.com/julienstroheker/pairrelay/server/http/handlers"
	"github.com/julienstroheker/pairrelay/server/http/middleware"
)

// Server is the HTTP front of the relay: health checks and, for the websocket
// transport, the endpoint peers upgrade on
type Server struct {
	server  *http.Server
	handler http.Handler
}

// Options configures the HTTP server
type Options struct {
	// Addr is the host:port to listen on
	Addr string

	// Transport and AdvertisedAddr are reported by /healthz
	Transport      string
	AdvertisedAddr string

	// WebSocketPath and WebSocket mount the peer endpoint; both optional
	WebSocketPath string
	WebSocket     http.Handler

	// Logger is optional
	Logger *logging.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(opts *Options) *Server {
	if opts == nil {
		opts = &Options{Addr: ":8080"}
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", handlers.NewHealthHandler(opts.Transport, opts.AdvertisedAddr))
	if opts.WebSocket != nil && opts.WebSocketPath != "" {
		mux.Handle(opts.WebSocketPath, opts.WebSocket)
	}

	handler := middleware.RequestID(middleware.Logger(opts.Logger)(mux))

	return &Server{
		server: &http.Server{
			Addr:              opts.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		handler: handler,
	}
}

// Handler returns the routed handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe() error {
	return s.server.ListenAndServe()
}

// Serve accepts connections on l
func (s *Server) Serve(l net.Listener) error {
	return s.server.Serve(l)
}

// Shutdown gracefully shuts down the server. Hijacked WebSocket connections
// are not tracked and stay with their sessions.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Close immediately closes the server
func (s *Server) Close() error {
	return s.server.Close()
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.server.Addr
}
