package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/skygear-market/messaging/internal/entity"
	"github.com/skygear-market/messaging/internal/service"
)

type contextKey struct{}

var userKey contextKey

// Auth resolves the bearer token through the identity service and puts the
// user into the request context. Requests without a valid token never reach
// the wrapped handler.
func Auth(auth service.AuthService, next func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		user, err := auth.Verify(token)
		if err != nil {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userKey, user)
		next(w, r.WithContext(ctx))
	}
}

func UserFrom(ctx context.Context) (*entity.User, bool) {
	user, ok := ctx.Value(userKey).(*entity.User)
	return user, ok
}
