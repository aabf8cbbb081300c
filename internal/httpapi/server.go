// Package httpapi serves the JSON API through which the bridge/application
// layer reads and writes identity records. It carries no protocol logic:
// session blobs pass through opaque (base64 in JSON).
package httpapi

import (
	"context"
	"crypto/hmac"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bigbes/tg-identity-store/internal/store"
)

// Server serves the identity store JSON API.
type Server struct {
	store     *store.Store
	authToken string
	listen    string
	logger    *slog.Logger
}

// New creates a new API server. authToken must be non-empty; every request
// is checked against it.
func New(st *store.Store, authToken, listen string, logger *slog.Logger) *Server {
	return &Server{
		store:     st,
		authToken: authToken,
		listen:    listen,
		logger:    logger,
	}
}

// Handler returns the routed API handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/peers", s.authMiddleware(s.handlePeers))
	mux.HandleFunc("/api/peers/", s.authMiddleware(s.handlePeerRoute))
	mux.HandleFunc("/api/sessions", s.authMiddleware(s.handleSessions))
	mux.HandleFunc("/api/sessions/", s.authMiddleware(s.handleSessionRoute))
	mux.HandleFunc("/api/chats", s.authMiddleware(s.handleChats))
	mux.HandleFunc("/api/chats/", s.authMiddleware(s.handleChatRoute))
	mux.HandleFunc("/api/health", s.handleHealth)

	return mux
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}

	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("httpapi: listen %s: %w", s.listen, err)
	}

	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server started", "listen", s.listen)
	if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("httpapi: serve: %w", err)
	}
	return nil
}

// handlePeerRoute dispatches GET/DELETE /api/peers/<username>.
func (s *Server) handlePeerRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetPeer(w, r)
	case http.MethodDelete:
		s.handleDeletePeer(w, r)
	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// handleSessionRoute dispatches GET/DELETE /api/sessions/<phone>.
func (s *Server) handleSessionRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetSession(w, r)
	case http.MethodDelete:
		s.handleDeleteSession(w, r)
	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

// handleChatRoute dispatches GET/DELETE /api/chats/<chat_id>.
func (s *Server) handleChatRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetChat(w, r)
	case http.MethodDelete:
		s.handleDeleteChat(w, r)
	default:
		writeJSON(w, r, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if token == "" {
			writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "missing token"})
			return
		}
		if !hmac.Equal([]byte(token), []byte(s.authToken)) {
			s.logger.Debug("httpapi: auth failed", "remote", r.RemoteAddr)
			writeJSON(w, r, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			return
		}
		next.ServeHTTP(w, r)
	}
}
