package api

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/rampline/rampline/pkg/audit"
	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/httputil"
	"github.com/rampline/rampline/pkg/middleware"
)

// ApprovalHandlers handles approval API endpoints
type ApprovalHandlers struct {
	store  ApprovalStore
	logger *logrus.Logger
}

// NewApprovalHandlers creates a new approval handlers instance
func NewApprovalHandlers(store ApprovalStore, logger *logrus.Logger) *ApprovalHandlers {
	return &ApprovalHandlers{store: store, logger: logger}
}

// RegisterRoutes registers approval routes. Reading admits members;
// deciding needs admin; the escalation config is readable by admins but
// writable only by the owner.
func (h *ApprovalHandlers) RegisterRoutes(r *mux.Router, pipeline *middleware.Pipeline) {
	readers := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin, authz.RoleMember)}
	deciders := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin)}
	owners := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner)}

	// Literal segments before {id}, or mux would capture them as ids
	r.Handle("/v1/workspaces/{workspace_id}/approvals/bulk", pipeline.ProtectFunc(deciders, h.bulkDecide)).Methods("POST")
	r.Handle("/v1/workspaces/{workspace_id}/approvals/escalation-config", pipeline.ProtectFunc(deciders, h.getEscalationConfig)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/approvals/escalation-config", pipeline.ProtectFunc(owners, h.updateEscalationConfig)).Methods("PUT")
	r.Handle("/v1/workspaces/{workspace_id}/approvals", pipeline.ProtectFunc(readers, h.listApprovals)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/approvals/{id}", pipeline.ProtectFunc(readers, h.getApproval)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/approvals/{id}/approve", pipeline.ProtectFunc(deciders, h.approve)).Methods("POST")
	r.Handle("/v1/workspaces/{workspace_id}/approvals/{id}/reject", pipeline.ProtectFunc(deciders, h.reject)).Methods("POST")
}

// DecisionRequest is the approve/reject request body
type DecisionRequest struct {
	Note string `json:"note,omitempty"`
}

// BulkDecisionRequest decides several approvals in one call
type BulkDecisionRequest struct {
	IDs     []int64 `json:"ids"`
	Approve bool    `json:"approve"`
	Note    string  `json:"note,omitempty"`
}

// BulkDecisionResponse reports per-id outcomes. A failed id never aborts
// the rest of the batch.
type BulkDecisionResponse struct {
	Decided []int64          `json:"decided"`
	Failed  map[int64]string `json:"failed,omitempty"`
}

// listApprovals handles GET /v1/workspaces/{workspace_id}/approvals
func (h *ApprovalHandlers) listApprovals(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)

	status := ApprovalStatus(r.URL.Query().Get("status"))
	switch status {
	case "", ApprovalPending, ApprovalApproved, ApprovalRejected:
	default:
		httputil.WriteGuardError(w, authz.NewValidationError("status", "unknown status"))
		return
	}

	approvals, err := h.store.ListApprovals(r.Context(), membership.WorkspaceID, status)
	if err != nil {
		h.logger.Errorf("Failed to list approvals: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, approvals)
}

// getApproval handles GET /v1/workspaces/{workspace_id}/approvals/{id}
func (h *ApprovalHandlers) getApproval(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	approval, err := h.store.GetApproval(r.Context(), membership.WorkspaceID, id)
	if errors.Is(err, ErrApprovalNotFound) {
		httputil.WriteNotFoundError(w, "approval not found")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get approval %d: %v", id, err)
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, approval)
}

// approve handles POST /v1/workspaces/{workspace_id}/approvals/{id}/approve
func (h *ApprovalHandlers) approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, ApprovalApproved)
}

// reject handles POST /v1/workspaces/{workspace_id}/approvals/{id}/reject
func (h *ApprovalHandlers) reject(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, ApprovalRejected)
}

func (h *ApprovalHandlers) decide(w http.ResponseWriter, r *http.Request, status ApprovalStatus) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req DecisionRequest
	if r.ContentLength > 0 && !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	approval, err := h.store.DecideApproval(r.Context(), membership.WorkspaceID, id, status, sc.UserID, req.Note)
	if errors.Is(err, ErrApprovalNotFound) {
		httputil.WriteNotFoundError(w, "approval not found")
		return
	}
	if errors.Is(err, ErrAlreadyDecided) {
		httputil.WriteErrorMessage(w, http.StatusConflict, "approval already decided")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to decide approval %d: %v", id, err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditDecision(r, sc.UserID, approval)
	httputil.WriteSuccess(w, approval)
}

// bulkDecide handles POST /v1/workspaces/{workspace_id}/approvals/bulk
func (h *ApprovalHandlers) bulkDecide(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)

	var req BulkDecisionRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteGuardError(w, authz.NewValidationError("ids", "required"))
		return
	}

	status := ApprovalRejected
	if req.Approve {
		status = ApprovalApproved
	}

	resp := BulkDecisionResponse{Decided: make([]int64, 0, len(req.IDs))}
	for _, id := range req.IDs {
		approval, err := h.store.DecideApproval(r.Context(), membership.WorkspaceID, id, status, sc.UserID, req.Note)
		if err != nil {
			if resp.Failed == nil {
				resp.Failed = make(map[int64]string)
			}
			resp.Failed[id] = err.Error()
			continue
		}
		resp.Decided = append(resp.Decided, id)
		h.auditDecision(r, sc.UserID, approval)
	}
	httputil.WriteSuccess(w, resp)
}

// getEscalationConfig handles GET /v1/workspaces/{workspace_id}/approvals/escalation-config
func (h *ApprovalHandlers) getEscalationConfig(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)

	cfg, err := h.store.GetEscalationConfig(r.Context(), membership.WorkspaceID)
	if err != nil {
		h.logger.Errorf("Failed to get escalation config: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, cfg)
}

// updateEscalationConfig handles PUT /v1/workspaces/{workspace_id}/approvals/escalation-config
func (h *ApprovalHandlers) updateEscalationConfig(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)

	var cfg EscalationConfig
	if !httputil.ParseJSONOrError(w, r, &cfg) {
		return
	}
	cfg.WorkspaceID = membership.WorkspaceID
	if err := cfg.Validate(); err != nil {
		httputil.WriteGuardError(w, err)
		return
	}

	if err := h.store.UpdateEscalationConfig(r.Context(), &cfg); err != nil {
		h.logger.Errorf("Failed to update escalation config: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	event := audit.NewEvent(r.Context(), r, audit.EventTypeEscalationUpdated, audit.EventStatusSuccess)
	event.UserID = &sc.UserID
	event.Message = "escalation config updated"
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}

	httputil.WriteSuccess(w, &cfg)
}

func (h *ApprovalHandlers) auditDecision(r *http.Request, userID int64, approval *Approval) {
	event := audit.NewEvent(r.Context(), r, audit.EventTypeApprovalDecided, audit.EventStatusSuccess)
	event.UserID = &userID
	event.Message = "approval " + string(approval.Status)
	event.Metadata = map[string]interface{}{"approval_id": approval.ID}
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}
}
