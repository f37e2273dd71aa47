// Package server is the HTTP front end of the doc server: it binds the
// listening socket, routes requests to the documentation handler and, when
// enabled, hosts the live reload endpoints.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/netutil"

	"github.com/conneroisu/cargo-docserver/internal/config"
	"github.com/conneroisu/cargo-docserver/internal/errors"
	"github.com/conneroisu/cargo-docserver/internal/livereload"
	"github.com/conneroisu/cargo-docserver/internal/logging"
	"github.com/conneroisu/cargo-docserver/internal/metadata"
	"github.com/conneroisu/cargo-docserver/internal/validation"
)

const readHeaderTimeout = 10 * time.Second

// Server serves generated documentation over HTTP.
type Server struct {
	config  *config.Config
	logger  logging.Logger
	handler http.Handler
	hub     *livereload.Hub

	mu         sync.RWMutex
	httpServer *http.Server
	listener   net.Listener

	shutdownOnce sync.Once
}

// New creates a server for the documentation root reported by provider.
func New(cfg *config.Config, provider metadata.Provider, logger logging.Logger, opts ...DocOption) *Server {
	if logger == nil {
		logger = logging.Discard()
	}

	s := &Server{
		config: cfg,
		logger: logger.WithComponent("server"),
	}

	routes := Routes{}
	if cfg.Development.LiveReload {
		s.hub = livereload.NewHub(nil, logger)
		routes.LiveReload = s.hub
		opts = append(opts, WithLiveReload(true))
	}
	routes.Docs = NewDocHandler(provider, logger, opts...)

	s.handler = NewRouter(routes, logger)
	return s
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Listen binds the configured address.
func (s *Server) Listen() error {
	addr := s.config.Server.Addr()

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return errors.NewBindError(addr, err)
	}

	if limit := s.config.Server.MaxConnections; limit > 0 {
		ln = netutil.LimitListener(ln, limit)
	}

	s.mu.Lock()
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	s.mu.Unlock()

	s.logger.Info(context.Background(), "Listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound address, or nil before Listen.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// URL returns a browsable URL for the bound address.
func (s *Server) URL() string {
	addr := s.Addr()
	if addr == nil {
		return ""
	}

	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); ip == nil || ip.IsUnspecified() {
		host = "localhost"
	}

	return "http://" + net.JoinHostPort(host, port)
}

// Start listens (unless Listen was already called) and serves until ctx is
// cancelled or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.Addr() == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}

	s.mu.RLock()
	server, ln := s.httpServer, s.listener
	s.mu.RUnlock()

	if s.config.Server.Open {
		go s.openBrowser(s.URL())
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			s.Shutdown(shutdownCtx)
		case <-stop:
		}
	}()

	if err := server.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// Reload tells live reload clients about a finished build. It does nothing
// when live reload is disabled.
func (s *Server) Reload(buildErr error) {
	if s.hub == nil {
		return
	}

	if buildErr != nil {
		s.hub.Broadcast(livereload.Message{
			Type:    livereload.MessageBuildError,
			Content: buildErr.Error(),
		})
		return
	}

	s.hub.Broadcast(livereload.Message{Type: livereload.MessageReload})
}

// LiveReloadClients returns the number of connected live reload pages.
func (s *Server) LiveReloadClients() int {
	if s.hub == nil {
		return 0
	}
	return s.hub.Count()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.logger.Info(ctx, "Shutting down server")

		if s.hub != nil {
			s.hub.Close()
		}

		s.mu.RLock()
		server, ln := s.httpServer, s.listener
		s.mu.RUnlock()

		if server != nil {
			shutdownErr = server.Shutdown(ctx)
		}
		// Shutdown only closes listeners that Serve has seen.
		if ln != nil {
			ln.Close()
		}
	})

	return shutdownErr
}

func (s *Server) openBrowser(url string) {
	time.Sleep(100 * time.Millisecond)

	// Validate URL before passing it to a system command.
	if err := validation.ValidateURL(url); err != nil {
		s.logger.Warn(context.Background(), err, "Browser open failed due to invalid URL")
		return
	}

	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", url).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	case "darwin":
		err = exec.Command("open", url).Start()
	default:
		err = fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}

	if err != nil {
		s.logger.Warn(context.Background(), err, "Failed to open browser")
	}
}

// Port extracts the numeric port from a bound address.
func Port(addr net.Addr) int {
	if addr == nil {
		return 0
	}
	_, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return 0
	}
	n, _ := strconv.Atoi(port)
	return n
}
