// Package server wires the HTTP surface: routing, session middleware
// and the mapping from domain errors to status codes.
package server

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"boardd/internal/kanban"
)

type Server struct {
	router   *mux.Router
	svc      *kanban.Service
	sessions *kanban.Sessions
	log      *zap.Logger
}

func New(svc *kanban.Service, sessions *kanban.Sessions, staticDir string, log *zap.Logger) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		svc:      svc,
		sessions: sessions,
		log:      log,
	}

	r := s.router
	r.Use(s.logRequests)

	r.HandleFunc("/session", s.requireUser(s.handleGetSession)).Methods("GET")
	r.HandleFunc("/session", s.handleCreateSession).Methods("POST")

	r.HandleFunc("/boards", s.requireUser(s.handleListBoards)).Methods("GET")
	r.HandleFunc("/boards", s.requireUser(s.handleCreateBoard)).Methods("POST")
	r.HandleFunc("/boards/{id}", s.requireUser(s.handleGetBoard)).Methods("GET")
	r.HandleFunc("/boards/{id}", s.requireUser(s.handleDeleteBoard)).Methods("DELETE")
	r.HandleFunc("/boards/{id}/export.json", s.requireUser(s.handleExportBoard)).Methods("GET")
	r.HandleFunc("/boards/{id}/links/{provider}", s.requireUser(s.handleUpdateLinks)).Methods("PUT")
	r.HandleFunc("/boards/{id}/cards/{provider}", s.requireUser(s.handleImportCards)).Methods("POST")
	r.HandleFunc("/boards/{id}/cards/{cardId}/move", s.requireUser(s.handleMoveCard)).Methods("PUT")
	r.HandleFunc("/boards/{id}/authorizedUsers/{userId}", s.requireUser(s.handleAddAuthorizedUser)).Methods("POST")
	r.HandleFunc("/boards/{id}/authorizedUsers/{userId}", s.requireUser(s.handleRemoveAuthorizedUser)).Methods("DELETE")
	r.HandleFunc("/boards/{id}/columns/{col}/cards", s.requireUser(s.handleAddCard)).Methods("POST")
	r.HandleFunc("/boards/{id}/columns/{col}/cards/{row}", s.requireUser(s.handleRemoveCard)).Methods("DELETE")
	r.HandleFunc("/boards/{id}/columns/{col}", s.requireUser(s.handleRemoveColumn)).Methods("DELETE")

	// Webhooks carry no session token.
	r.HandleFunc("/boards/{id}/{provider}/{repoId}/webhook", s.handleWebhook).Methods("POST")

	if staticDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(staticDir)))
	}

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Debug("request", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		next.ServeHTTP(w, r)
	})
}

// writeError maps the error taxonomy onto status codes. Board-scoped
// authorization failures return 404 so unauthorized callers cannot
// probe board existence. Anything unclassified is a 500 with an opaque
// body; detail stays in the log.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		authErr    *kanban.AuthError
		forbidden  *kanban.ForbiddenError
		notFound   *kanban.NotFoundError
		conflict   *kanban.ConflictError
		validation *kanban.ValidationError
	)
	switch {
	case errors.As(err, &authErr):
		http.Error(w, authErr.Reason, http.StatusUnauthorized)
	case errors.As(err, &forbidden):
		s.log.Warn("unauthorized board access",
			zap.String("path", r.URL.Path),
			zap.String("user", forbidden.UserID))
		http.Error(w, "not found", http.StatusNotFound)
	case errors.As(err, &notFound):
		http.Error(w, notFound.Error(), http.StatusNotFound)
	case errors.As(err, &conflict):
		http.Error(w, conflict.Reason, http.StatusBadRequest)
	case errors.As(err, &validation):
		http.Error(w, validation.Reason, http.StatusBadRequest)
	default:
		s.log.Error("internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
	}
}
