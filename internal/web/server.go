package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"kioskidle/internal/config"
)

// Server is the localhost REST control server. It exposes status and
// manual display power control; it never re-arms or mutates the blank
// state machine.
type Server struct {
	config  *config.Config
	handler *Handler
	server  *http.Server
}

func NewServer(cfg *config.Config, handler *Handler) *Server {
	mux := http.NewServeMux()
	handler.SetupRoutes(mux)

	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      authMiddleware(cfg.Web.Token, mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		config:  cfg,
		handler: handler,
		server:  httpServer,
	}
}

func (s *Server) Start() error {
	log.Printf("Starting REST control server on http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down REST control server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) GetAddress() string {
	return s.server.Addr
}

// authMiddleware enforces the bearer token when one is configured. An
// empty token bypasses authorization, matching the add-on's behavior
// on a trusted localhost.
func authMiddleware(token string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token != "" {
			if r.Header.Get("Authorization") != "Bearer "+token {
				log.Println("REST request rejected: invalid or missing Authorization token")
				respondError(w, http.StatusUnauthorized, "Invalid or missing Authorization token")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
