package shifthandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/shift"
	"rosterd/internal/transport/http/api"
	"rosterd/internal/transport/http/middleware"
	"rosterd/internal/transport/http/shared"
)

type Handler struct {
	Store *shift.Store
}

func NewHandler(store *shift.Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/shifts", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/", h.handleRange)
		r.With(middleware.RequireRole(auth.RoleWorkforceManager)).Put("/", h.handleUpsert)
		r.With(middleware.RequireRole(auth.RoleWorkforceManager)).Post("/import", h.handleImport)
	})
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	v := shared.NewValidator()
	from, _ := v.Date("from", r.URL.Query().Get("from"))
	to, _ := v.Date("to", r.URL.Query().Get("to"))
	v.DateOrder("from", from, "to", to)
	if v.Reject(w, requestID) {
		return
	}

	shifts, err := h.Store.Range(r.Context(), from, to, r.URL.Query().Get("userId"))
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, shifts, requestID)
}

type upsertShiftPayload struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Type   string `json:"type"`
}

func (h *Handler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	var payload upsertShiftPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "user is required")
	date, _ := v.Date("date", payload.Date)
	if !shift.ValidType(payload.Type) {
		v.Add("type", "unknown shift type")
	}
	if v.Reject(w, requestID) {
		return
	}

	updated, err := h.Store.Upsert(r.Context(), payload.UserID, date, payload.Type)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, updated, requestID)
}

// handleImport takes a roster CSV body and merges it into the stored shifts.
// Blank cells are reported as skipped rather than clearing existing entries.
func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	rows, err := shift.ParseRosterCSV(r.Body)
	if err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_roster", err.Error(), requestID)
		return
	}

	summary, err := h.Store.ImportRoster(r.Context(), rows)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, summary, requestID)
}
