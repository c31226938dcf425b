package swaphandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/comments"
	"rosterd/internal/domain/swap"
	"rosterd/internal/domain/workflow"
	"rosterd/internal/transport/http/api"
	"rosterd/internal/transport/http/middleware"
	"rosterd/internal/transport/http/shared"
)

type Handler struct {
	Service  *swap.Service
	Comments *comments.Recorder
}

func NewHandler(service *swap.Service, commentStore *comments.Recorder) *Handler {
	return &Handler{Service: service, Comments: commentStore}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/swap", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/requests", h.handleListRequests)
		r.With(middleware.RequireAuth).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequireAuth).Get("/requests/{id}", h.handleGetRequest)
		r.With(middleware.RequireAuth).Post("/requests/{id}/accept", h.action(workflow.ActionAccept))
		r.With(middleware.RequireRole(auth.RoleTeamLead, auth.RoleWorkforceManager)).
			Post("/requests/{id}/approve", h.action(workflow.ActionApprove))
		r.With(middleware.RequireRole(auth.RoleTeamLead, auth.RoleWorkforceManager)).
			Post("/requests/{id}/reject", h.action(workflow.ActionReject))
		r.With(middleware.RequireAuth).Post("/requests/{id}/cancel", h.action(workflow.ActionCancel))
		r.With(middleware.RequireAuth).Get("/requests/{id}/comments", h.handleListComments)
		r.With(middleware.RequireAuth).Post("/requests/{id}/comments", h.handleAddComment)
	})
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	// Agents see swaps they requested or are the target of.
	userFilter := r.URL.Query().Get("userId")
	if user.Role == auth.RoleAgent {
		userFilter = user.UserID
	}

	var statuses []workflow.Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, value := range strings.Split(raw, ",") {
			status := workflow.Status(strings.TrimSpace(value))
			if !workflow.ValidStatus(status) {
				api.Fail(w, http.StatusBadRequest, "invalid_status", "unknown status filter", requestID)
				return
			}
			statuses = append(statuses, status)
		}
	}

	limit, offset := shared.Pagination(r)
	requests, err := h.Service.List(r.Context(), userFilter, statuses, limit, offset)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, requests, requestID)
}

type createSwapPayload struct {
	RequesterShiftID string `json:"requesterShiftId"`
	TargetShiftID    string `json:"targetShiftId"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createSwapPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("requesterShiftId", payload.RequesterShiftID, "requester shift is required")
	v.Required("targetShiftId", payload.TargetShiftID, "target shift is required")
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), user.UserID, payload.RequesterShiftID, payload.TargetShiftID)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	if user.Role == auth.RoleAgent && req.RequesterID != user.UserID && req.TargetID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your request", requestID)
		return
	}
	api.Success(w, req, requestID)
}

type transitionPayload struct {
	ExpectedStatus string `json:"expectedStatus"`
}

func (h *Handler) action(action workflow.Action) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestID(r.Context())
		user, _ := middleware.GetUser(r.Context())

		var payload transitionPayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
			return
		}
		expected := workflow.Status(payload.ExpectedStatus)
		if !workflow.ValidStatus(expected) {
			api.Fail(w, http.StatusBadRequest, "invalid_status", "expectedStatus is required", requestID)
			return
		}

		actor := workflow.Actor{UserID: user.UserID, Role: user.Role}
		updated, err := h.Service.Transition(r.Context(), chi.URLParam(r, "id"), expected, action, actor)
		if err != nil {
			shared.FailDomain(w, err, requestID)
			return
		}
		api.Success(w, updated, requestID)
	}
}

func (h *Handler) handleListComments(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	list, err := h.Comments.List(r.Context(), workflow.KindSwap, chi.URLParam(r, "id"))
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, list, requestID)
}

func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		Body string `json:"body"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}
	if strings.TrimSpace(payload.Body) == "" {
		api.Fail(w, http.StatusBadRequest, "validation_error", "comment body is required", requestID)
		return
	}

	comment, err := h.Comments.Add(r.Context(), workflow.KindSwap, chi.URLParam(r, "id"), user.UserID, payload.Body)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Created(w, comment, requestID)
}
