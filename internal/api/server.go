// ABOUTME: HTTP API server exposing notes and tags over chi.
// ABOUTME: Identifies the caller by the X-User-ID header.

package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/harper/marknote/internal/notes"
	"go.uber.org/zap"
)

// UserHeader carries the caller's user ID. Issuing identities is left to a
// fronting proxy.
const UserHeader = "X-User-ID"

const maxBodyBytes = 1 << 20

type contextKey string

const contextKeyUserID contextKey = "user_id"

type Server struct {
	svc    *notes.Service
	logger *zap.Logger
	router *chi.Mux
}

func NewServer(svc *notes.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		svc:    svc,
		logger: logger,
		router: chi.NewRouter(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.logRequests)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.requireUser)

		r.Route("/tags", func(r chi.Router) {
			r.Get("/", s.handleListTags)
			r.Post("/", s.handleCreateTag)
			r.Get("/tree", s.handleTagTree)
			r.Get("/suggest", s.handleSuggestTags)
			r.Patch("/{id}", s.handleRenameTag)
			r.Delete("/{id}", s.handleDeleteTag)
		})

		r.Route("/notes", func(r chi.Router) {
			r.Get("/", s.handleListNotes)
			r.Post("/", s.handleCreateNote)
			r.Get("/search", s.handleSearchNotes)
			r.Get("/{id}", s.handleGetNote)
			r.Patch("/{id}", s.handleUpdateNote)
			r.Delete("/{id}", s.handleDeleteNote)
			r.Post("/{id}/tags", s.handleTagNote)
			r.Delete("/{id}/tags", s.handleUntagNote)
		})

		r.Post("/metadata", s.handleFetchMetadata)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get(UserHeader))
		if userID == "" {
			failure(w, http.StatusUnauthorized, "missing "+UserHeader+" header", s.logger)
			return
		}
		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func getUserID(ctx context.Context) string {
	if userID, ok := ctx.Value(contextKeyUserID).(string); ok {
		return userID
	}
	return ""
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	success(w, http.StatusOK, map[string]string{"status": "ok"}, s.logger)
}
