package handler

import (
	"encoding/json"
	"net/http"

	"github.com/skygear-market/messaging/internal/apperr"
	"github.com/skygear-market/messaging/internal/entity"
	"github.com/skygear-market/messaging/internal/middleware"
)

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func messageKind(kind string) entity.MessageKind {
	if kind == "" {
		return entity.KindText
	}
	return entity.MessageKind(kind)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]string{"message": err.Error()})
}

// requestUser pulls the authenticated user out of the context; the auth
// middleware guarantees it is there on every protected route.
func requestUser(w http.ResponseWriter, r *http.Request) (*entity.User, bool) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "not authenticated"})
	}
	return user, ok
}
