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
	"github.com/rampline/rampline/pkg/workspaces"
)

// MemberHandlers handles workspace and membership endpoints
type MemberHandlers struct {
	workspaces workspaces.Service
	logger     *logrus.Logger
}

// NewMemberHandlers creates a new member handlers instance
func NewMemberHandlers(ws workspaces.Service, logger *logrus.Logger) *MemberHandlers {
	return &MemberHandlers{workspaces: ws, logger: logger}
}

// RegisterRoutes registers workspace and member routes. Listing members is
// the one workspace read viewers get; management needs admin. Invitation
// accept skips the workspace guard because the caller is not a member yet.
func (h *MemberHandlers) RegisterRoutes(r *mux.Router, pipeline *middleware.Pipeline) {
	viewers := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin, authz.RoleMember, authz.RoleViewer)}
	managers := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin)}
	owners := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner)}
	sessionOnly := middleware.RouteConfig{SkipWorkspace: true}

	r.Handle("/v1/workspaces", pipeline.ProtectFunc(sessionOnly, h.createWorkspace)).Methods("POST")
	r.Handle("/v1/workspaces/{workspace_id}/owner", pipeline.ProtectFunc(owners, h.transferOwnership)).Methods("PUT")
	r.Handle("/v1/workspaces/{workspace_id}/members", pipeline.ProtectFunc(viewers, h.listMembers)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/members", pipeline.ProtectFunc(managers, h.inviteMember)).Methods("POST")
	r.Handle("/v1/workspaces/{workspace_id}/members/{user_id}", pipeline.ProtectFunc(managers, h.updateMemberRole)).Methods("PUT")
	r.Handle("/v1/workspaces/{workspace_id}/members/{user_id}", pipeline.ProtectFunc(managers, h.removeMember)).Methods("DELETE")
	r.Handle("/v1/workspaces/{workspace_id}/invitation/accept", pipeline.ProtectFunc(sessionOnly, h.acceptInvitation)).Methods("POST")
}

// CreateWorkspaceRequest is the workspace creation request body
type CreateWorkspaceRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// createWorkspace handles POST /v1/workspaces
func (h *MemberHandlers) createWorkspace(w http.ResponseWriter, r *http.Request) {
	sc := middleware.GetSessionContext(r)

	var req CreateWorkspaceRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" {
		httputil.WriteGuardError(w, authz.NewValidationError("name", "required"))
		return
	}
	if req.Slug == "" {
		httputil.WriteGuardError(w, authz.NewValidationError("slug", "required"))
		return
	}

	workspace, err := h.workspaces.CreateWorkspace(r.Context(), req.Name, req.Slug, sc.UserID)
	if err != nil {
		h.logger.Errorf("Failed to create workspace: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	event := audit.NewEvent(r.Context(), r, audit.EventTypeWorkspaceCreated, audit.EventStatusSuccess)
	event.UserID = &sc.UserID
	event.Metadata = map[string]interface{}{"workspace_id": workspace.ID, "slug": workspace.Slug}
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}

	httputil.WriteCreated(w, workspace)
}

// listMembers handles GET /v1/workspaces/{workspace_id}/members
func (h *MemberHandlers) listMembers(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)

	members, err := h.workspaces.ListMembers(r.Context(), membership.WorkspaceID)
	if err != nil {
		h.logger.Errorf("Failed to list members: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteSuccess(w, members)
}

// inviteMember handles POST /v1/workspaces/{workspace_id}/members
func (h *MemberHandlers) inviteMember(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)

	var req workspaces.InviteMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteGuardError(w, authz.NewValidationError("user_id", "required"))
		return
	}
	if !authz.AssignableRole(req.Role) {
		httputil.WriteGuardError(w, authz.NewValidationError("role", "not assignable"))
		return
	}

	err := h.workspaces.InviteMember(r.Context(), membership.WorkspaceID, req.UserID, req.Role, sc.UserID)
	if errors.Is(err, workspaces.ErrMemberExists) {
		httputil.WriteErrorMessage(w, http.StatusConflict, "user is already a member")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to invite member: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditMemberChange(r, sc.UserID, audit.EventTypeMemberInvited, req.UserID, string(req.Role))
	httputil.WriteCreated(w, map[string]interface{}{"user_id": req.UserID, "role": req.Role, "status": "invited"})
}

// updateMemberRole handles PUT /v1/workspaces/{workspace_id}/members/{user_id}
func (h *MemberHandlers) updateMemberRole(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	var req workspaces.UpdateMemberRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !authz.AssignableRole(req.Role) {
		httputil.WriteGuardError(w, authz.NewValidationError("role", "not assignable"))
		return
	}

	err := h.workspaces.UpdateMemberRole(r.Context(), membership.WorkspaceID, userID, req.Role)
	if errors.Is(err, workspaces.ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if errors.Is(err, workspaces.ErrOwnerImmutable) {
		httputil.WriteErrorMessage(w, http.StatusConflict, "workspace owner cannot be modified")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to update member role: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditMemberChange(r, sc.UserID, audit.EventTypeMemberRoleChanged, userID, string(req.Role))
	httputil.WriteSuccess(w, map[string]interface{}{"user_id": userID, "role": req.Role})
}

// removeMember handles DELETE /v1/workspaces/{workspace_id}/members/{user_id}
func (h *MemberHandlers) removeMember(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)
	userID, ok := httputil.ParsePathInt64OrError(w, r, "user_id")
	if !ok {
		return
	}

	err := h.workspaces.RemoveMember(r.Context(), membership.WorkspaceID, userID)
	if errors.Is(err, workspaces.ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if errors.Is(err, workspaces.ErrOwnerImmutable) {
		httputil.WriteErrorMessage(w, http.StatusConflict, "workspace owner cannot be removed")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to remove member: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditMemberChange(r, sc.UserID, audit.EventTypeMemberRemoved, userID, "")
	httputil.WriteNoContent(w)
}

// TransferOwnershipRequest is the ownership transfer request body
type TransferOwnershipRequest struct {
	UserID int64 `json:"user_id"`
}

// transferOwnership handles PUT /v1/workspaces/{workspace_id}/owner. The
// invite and role-update paths never assign owner; this is the one gate
// through which the role moves, and only the current owner may open it.
func (h *MemberHandlers) transferOwnership(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)

	var req TransferOwnershipRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.UserID <= 0 {
		httputil.WriteGuardError(w, authz.NewValidationError("user_id", "required"))
		return
	}

	err := h.workspaces.TransferOwnership(r.Context(), membership.WorkspaceID, req.UserID)
	if errors.Is(err, workspaces.ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, "member not found")
		return
	}
	if authz.IsValidation(err) {
		httputil.WriteGuardError(w, err)
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to transfer ownership: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	event := audit.NewEvent(r.Context(), r, audit.EventTypeOwnershipTransferred, audit.EventStatusSuccess)
	event.UserID = &sc.UserID
	event.WorkspaceID = &membership.WorkspaceID
	event.Metadata = map[string]interface{}{"new_owner_id": req.UserID}
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}

	httputil.WriteSuccess(w, map[string]interface{}{"workspace_id": membership.WorkspaceID, "owner_id": req.UserID})
}

// acceptInvitation handles POST /v1/workspaces/{workspace_id}/invitation/accept.
// Session guard only: a pending invitee is still a non-member, so the
// workspace guard would turn them away at the door they are trying to open.
func (h *MemberHandlers) acceptInvitation(w http.ResponseWriter, r *http.Request) {
	sc := middleware.GetSessionContext(r)
	workspaceID, ok := httputil.ParsePathInt64OrError(w, r, "workspace_id")
	if !ok {
		return
	}

	err := h.workspaces.AcceptInvitation(r.Context(), workspaceID, sc.UserID)
	if errors.Is(err, workspaces.ErrMembershipNotFound) {
		httputil.WriteNotFoundError(w, "invitation not found")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to accept invitation: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	event := audit.NewEvent(r.Context(), r, audit.EventTypeMemberAccepted, audit.EventStatusSuccess)
	event.UserID = &sc.UserID
	event.WorkspaceID = &workspaceID
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}

	httputil.WriteSuccess(w, map[string]interface{}{"workspace_id": workspaceID, "status": "accepted"})
}

func (h *MemberHandlers) auditMemberChange(r *http.Request, actorID int64, eventType audit.EventType, subjectID int64, role string) {
	event := audit.NewEvent(r.Context(), r, eventType, audit.EventStatusSuccess)
	event.UserID = &actorID
	event.Role = role
	event.Metadata = map[string]interface{}{"subject_user_id": subjectID}
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}
}
