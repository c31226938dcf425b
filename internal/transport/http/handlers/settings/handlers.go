package settingshandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/settings"
	"rosterd/internal/transport/http/api"
	"rosterd/internal/transport/http/middleware"
	"rosterd/internal/transport/http/shared"
)

type Handler struct {
	Store *settings.Store
}

func NewHandler(store *settings.Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/settings", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleGet)
		r.With(middleware.RequireRole(auth.RoleWorkforceManager)).Put("/", h.handleUpdate)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	st, err := h.Store.Get(r.Context())
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, st, requestID)
}

type updateSettingsPayload struct {
	AutoApproveOnTL      bool `json:"autoApproveOnTl"`
	AllowLeaveExceptions bool `json:"allowLeaveExceptions"`
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload updateSettingsPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	if err := h.Store.Update(r.Context(), settings.Settings{
		AutoApproveOnTL:      payload.AutoApproveOnTL,
		AllowLeaveExceptions: payload.AllowLeaveExceptions,
	}); err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}

	st, err := h.Store.Get(r.Context())
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, st, requestID)
}
