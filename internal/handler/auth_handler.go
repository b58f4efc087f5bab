package handler

import (
	"net/http"

	"github.com/skygear-market/messaging/internal/nlog"
	"github.com/skygear-market/messaging/internal/service"
)

type registerFields struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first-name"`
	LastName  string `json:"last-name"`
	Role      string `json:"role"`
}

type loginFields struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthHandler struct {
	authService service.AuthService
	logger      nlog.Logger
}

func NewAuthHandler(authService service.AuthService, logger nlog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var fields registerFields
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}

	user, err := h.authService.Register(fields.Email, fields.Password, fields.FirstName, fields.LastName, fields.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var fields loginFields
	if err := decodeBody(r, &fields); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "malformed request body"})
		return
	}

	token, user, err := h.authService.Login(fields.Email, fields.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": user})
}
