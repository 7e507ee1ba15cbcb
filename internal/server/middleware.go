package server

import (
	"context"
	"net/http"

	"boardd/internal/model"
)

type contextKey int

const userKey contextKey = iota

// requireUser resolves the session token (X-Auth-Token header or token
// query parameter) to a user and stores it in the request context. No
// user, no handler.
func (s *Server) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}
		user, err := s.sessions.Authenticate(r.Context(), token)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx := context.WithValue(r.Context(), userKey, user)
		next(w, r.WithContext(ctx))
	}
}

// userFrom returns the authenticated user placed by requireUser.
func userFrom(r *http.Request) *model.User {
	user, _ := r.Context().Value(userKey).(*model.User)
	return user
}
