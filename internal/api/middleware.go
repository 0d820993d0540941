// Package api implements the Scriptorium REST API using chi.
package api

import (
	"context"
	"net/http"

	"github.com/starford/scriptorium/internal/prompt"
)

// SessionCookie carries the prompt session id.
const SessionCookie = "scriptorium_session"

type sessionKey struct{}

// SessionMiddleware resolves the prompt session from the session cookie,
// allocating a new session (and setting the cookie) when absent or unknown.
func SessionMiddleware(sessions *prompt.Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var id string
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
			newID, sess := sessions.Get(id)
			if newID != id {
				http.SetCookie(w, &http.Cookie{
					Name:     SessionCookie,
					Value:    newID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the session attached by SessionMiddleware.
func sessionFrom(ctx context.Context) *prompt.Session {
	if s, ok := ctx.Value(sessionKey{}).(*prompt.Session); ok {
		return s
	}
	return &prompt.Session{}
}
