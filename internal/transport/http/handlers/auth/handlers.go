package authhandler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"rosterd/internal/domain/auth"
	"rosterd/internal/transport/http/api"
	"rosterd/internal/transport/http/middleware"
)

type Handler struct {
	Store     *auth.Store
	JWTSecret string
	TokenTTL  time.Duration
}

func NewHandler(store *auth.Store, jwtSecret string, tokenTTL time.Duration) *Handler {
	return &Handler{Store: store, JWTSecret: jwtSecret, TokenTTL: tokenTTL}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	user, err := h.Store.FindByEmail(r.Context(), payload.Email)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", requestID)
			return
		}
		api.Fail(w, http.StatusInternalServerError, "internal_error", "login failed", requestID)
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(payload.Password)); err != nil {
		api.Fail(w, http.StatusUnauthorized, "invalid_credentials", "invalid email or password", requestID)
		return
	}

	token, err := auth.MintToken(h.JWTSecret, user.ID, user.DisplayName, user.Role, h.TokenTTL)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "login failed", requestID)
		return
	}

	api.Success(w, map[string]any{"token": token, "user": user}, requestID)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	users, err := h.Store.ListUsers(r.Context())
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "internal_error", "listing users failed", requestID)
		return
	}
	api.Success(w, users, requestID)
}
