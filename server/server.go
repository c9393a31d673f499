// Package server assembles the HTTP surface and owns its lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	glog "github.com/goliatone/go-logger/glog"

	"github.com/maskia-arch/esimconnect/core"
	"github.com/maskia-arch/esimconnect/dashboard"
	"github.com/maskia-arch/esimconnect/webhooks"
)

// Server binds the webhook edge and the admin dashboard onto one listener.
type Server struct {
	Addr     string
	Webhook  *webhooks.Handler
	Admin    *dashboard.Handler
	Logger   core.Logger
	listener *http.Server
}

func New(addr string, webhook *webhooks.Handler, admin *dashboard.Handler) (*Server, error) {
	if webhook == nil {
		return nil, fmt.Errorf("server: webhook handler is required")
	}
	if admin == nil {
		return nil, fmt.Errorf("server: admin handler is required")
	}
	return &Server{
		Addr:    addr,
		Webhook: webhook,
		Admin:   admin,
	}, nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "Bot is awake and ready.")
	})
	mux.Handle("/webhook", s.Webhook)
	s.Admin.Register(mux)
	return mux
}

// ListenAndServe blocks until ctx is cancelled or the listener fails, then
// shuts down gracefully. Write timeouts stay unset: a webhook response can
// legitimately take the full provisioning poll budget.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s == nil || s.Webhook == nil || s.Admin == nil {
		return fmt.Errorf("server: not configured")
	}

	s.listener = &http.Server{
		Addr:              s.Addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger().Info("http server listening", "addr", s.Addr)
		errCh <- s.listener.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.listener.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	s.logger().Info("http server stopped")
	return nil
}

func (s *Server) logger() core.Logger {
	if s != nil && s.Logger != nil {
		return s.Logger
	}
	return glog.Ensure(nil)
}
