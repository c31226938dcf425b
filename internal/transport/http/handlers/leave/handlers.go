package leavehandler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"rosterd/internal/domain/auth"
	"rosterd/internal/domain/comments"
	"rosterd/internal/domain/leave"
	"rosterd/internal/domain/workflow"
	"rosterd/internal/platform/jobs"
	"rosterd/internal/transport/http/api"
	"rosterd/internal/transport/http/middleware"
	"rosterd/internal/transport/http/shared"
)

type Handler struct {
	Service  *leave.Service
	Comments *comments.Recorder
	Jobs     *jobs.Service
}

func NewHandler(service *leave.Service, commentStore *comments.Recorder, jobsSvc *jobs.Service) *Handler {
	return &Handler{Service: service, Comments: commentStore, Jobs: jobsSvc}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/leave", func(r chi.Router) {
		r.With(middleware.RequireAuth).Get("/types", h.handleListTypes)
		r.With(middleware.RequireAuth).Get("/requests", h.handleListRequests)
		r.With(middleware.RequireAuth).Post("/requests", h.handleCreateRequest)
		r.With(middleware.RequireAuth).Post("/requests/validate", h.handleValidate)
		r.With(middleware.RequireAuth).Get("/requests/{id}", h.handleGetRequest)
		r.With(middleware.RequireRole(auth.RoleTeamLead, auth.RoleWorkforceManager)).
			Post("/requests/{id}/approve", h.action(workflow.ActionApprove))
		r.With(middleware.RequireRole(auth.RoleTeamLead, auth.RoleWorkforceManager)).
			Post("/requests/{id}/reject", h.action(workflow.ActionReject))
		r.With(middleware.RequireAuth).Post("/requests/{id}/cancel", h.action(workflow.ActionCancel))
		r.With(middleware.RequireAuth).Post("/requests/{id}/exception", h.action(workflow.ActionAskException))
		r.With(middleware.RequireAuth).Get("/requests/{id}/comments", h.handleListComments)
		r.With(middleware.RequireAuth).Post("/requests/{id}/comments", h.handleAddComment)
		r.With(middleware.RequireAuth).Get("/balances", h.handleListBalances)
		r.With(middleware.RequireRole(auth.RoleWorkforceManager)).Post("/balances/adjust", h.handleAdjustBalance)
		r.With(middleware.RequireRole(auth.RoleWorkforceManager)).Post("/accruals/run", h.handleRunAccrual)
	})
}

func (h *Handler) handleListTypes(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	types, err := h.Service.ListTypes(r.Context())
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, types, requestID)
}

func (h *Handler) handleListRequests(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	// Agents only ever see their own requests; approvers may scope by user.
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

type createRequestPayload struct {
	LeaveType string `json:"leaveType"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Notes     string `json:"notes"`
}

func (h *Handler) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload createRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "leave type is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	v.DateOrder("startDate", start, "endDate", end)
	if v.Reject(w, requestID) {
		return
	}

	created, err := h.Service.CreateRequest(r.Context(), user.UserID, payload.LeaveType, start, end, payload.Notes)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Created(w, created, requestID)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload struct {
		createRequestPayload
		ExcludeRequestID string `json:"excludeRequestId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("leaveType", payload.LeaveType, "leave type is required")
	start, _ := v.Date("startDate", payload.StartDate)
	end, _ := v.Date("endDate", payload.EndDate)
	if v.Reject(w, requestID) {
		return
	}

	result, err := h.Service.Validate(r.Context(), user.UserID, payload.LeaveType, start, end, payload.ExcludeRequestID)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, result, requestID)
}

func (h *Handler) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	req, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	if user.Role == auth.RoleAgent && req.UserID != user.UserID {
		api.Fail(w, http.StatusForbidden, "forbidden", "not your request", requestID)
		return
	}
	api.Success(w, req, requestID)
}

type transitionPayload struct {
	ExpectedStatus string `json:"expectedStatus"`
}

// action builds the handler for one approval-chain action. The caller sends
// the status it last saw; a stale value comes back as 409.
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
	list, err := h.Comments.List(r.Context(), workflow.KindLeave, chi.URLParam(r, "id"))
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

	comment, err := h.Comments.Add(r.Context(), workflow.KindLeave, chi.URLParam(r, "id"), user.UserID, payload.Body)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Created(w, comment, requestID)
}

func (h *Handler) handleListBalances(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	userID := r.URL.Query().Get("userId")
	if user.Role == auth.RoleAgent || userID == "" {
		userID = user.UserID
	}

	balances, err := h.Service.Balances(r.Context(), userID)
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, balances, requestID)
}

type adjustBalancePayload struct {
	UserID    string  `json:"userId"`
	LeaveType string  `json:"leaveType"`
	Amount    float64 `json:"amount"`
	Reason    string  `json:"reason"`
}

func (h *Handler) handleAdjustBalance(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var payload adjustBalancePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_json", "invalid request body", requestID)
		return
	}

	v := shared.NewValidator()
	v.Required("userId", payload.UserID, "user is required")
	v.Required("leaveType", payload.LeaveType, "leave type is required")
	v.Required("reason", payload.Reason, "reason is required")
	if payload.Amount == 0 {
		v.Add("amount", "must be non-zero")
	}
	if v.Reject(w, requestID) {
		return
	}

	if err := h.Service.AdjustBalance(r.Context(), payload.UserID, payload.LeaveType, payload.Amount, payload.Reason, user.UserID); err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, map[string]any{"adjusted": true}, requestID)
}

func (h *Handler) handleRunAccrual(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	summary, err := h.Jobs.RunAccrualNow(r.Context())
	if err != nil {
		shared.FailDomain(w, err, requestID)
		return
	}
	api.Success(w, summary, requestID)
}
