package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	// readHeaderTimeout is the timeout for reading request headers.
	readHeaderTimeout = 10 * time.Second
	// shutdownTimeout is the timeout for graceful server shutdown.
	shutdownTimeout = 5 * time.Second
	// writeTimeout bounds handlers that probe the service.
	writeTimeout = 30 * time.Second
)

// API represents the HTTP server exposing metrics and status.
type API struct {
	Token       string // Bearer token; empty disables authentication.
	Addr        string
	hasHandlers bool
	mux         *http.ServeMux
	server      HTTPServer // Optional injected server for testing.
}

// HTTPServer interface for RunHTTPServer.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// New is a factory function creating a new API instance.
// The server parameter is optional and allows dependency injection for testing.
func New(token, addr string, server ...HTTPServer) *API {
	var injectedServer HTTPServer
	if len(server) > 0 {
		injectedServer = server[0]
	}

	api := &API{
		Token:  token,
		Addr:   addr,
		mux:    http.NewServeMux(),
		server: injectedServer,
	}

	logrus.WithFields(logrus.Fields{
		"addr": addr,
		"auth": token != "",
	}).Debug("Initialized new API instance")

	return api
}

// RegisterFunc registers an HTTP handler function for the given path.
func (a *API) RegisterFunc(path string, handler func(http.ResponseWriter, *http.Request)) {
	a.RegisterHandler(path, http.HandlerFunc(handler))
}

// RegisterHandler registers an HTTP handler for the given path, behind the token check if a token is set.
func (a *API) RegisterHandler(path string, handler http.Handler) {
	if a.Token != "" {
		handler = a.RequireToken(handler.ServeHTTP)
	}

	a.mux.Handle(path, handler)
	a.hasHandlers = true
}

// Handler returns the request router.
func (a *API) Handler() http.Handler {
	return a.mux
}

// Start starts the HTTP API server.
// If blocking is true, it runs in the foreground and blocks until ctx is cancelled.
// If blocking is false, it runs in the background and shuts down when ctx is cancelled.
func (a *API) Start(ctx context.Context, blocking bool) error {
	if !a.hasHandlers {
		logrus.Debug("No handlers registered, HTTP API skipped")

		return nil
	}

	server := a.server
	if server == nil {
		server = &http.Server{
			Addr:              a.Addr,
			Handler:           a.mux,
			ReadHeaderTimeout: readHeaderTimeout,
			WriteTimeout:      writeTimeout,
			BaseContext:       func(_ net.Listener) context.Context { return ctx },
		}
	}

	logrus.WithField("addr", a.Addr).Info("Starting HTTP API server")

	if blocking {
		return RunHTTPServer(ctx, server)
	}

	go func() {
		if err := RunHTTPServer(ctx, server); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	return nil
}

// RequireToken wraps a handler function with bearer-token authentication.
func (a *API) RequireToken(handler func(http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" || !strings.HasPrefix(auth, "Bearer ") ||
			strings.TrimPrefix(auth, "Bearer ") != a.Token {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)

			return
		}

		handler(w, r)
	}
}

// RunHTTPServer starts the HTTP server and handles graceful shutdown.
func RunHTTPServer(ctx context.Context, server HTTPServer) error {
	errChan := make(chan error, 1)

	go func() {
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}

		return nil
	}
}
