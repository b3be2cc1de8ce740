package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/sharedtable/fare/internal/domain"
)

type contextKey string

const userKey contextKey = "fare.user"

// requireSession resolves the Authorization bearer token to a user and puts
// the user on the request context. Missing or unknown tokens get a 401
// envelope; handlers below this middleware can assume a valid user.
func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeErr(w, r, domain.ErrUnauthorized)
			return
		}

		user, err := s.db.UserForToken(token)
		if err != nil {
			s.writeErr(w, r, err)
			return
		}
		if user == nil {
			s.writeErr(w, r, domain.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser returns the authenticated user placed by requireSession.
func currentUser(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userKey).(*domain.User)
	return u
}
