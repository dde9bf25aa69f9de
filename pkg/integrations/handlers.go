package integrations

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

// Handlers handles integration API endpoints
type Handlers struct {
	store  Store
	logger *logrus.Logger
}

// NewHandlers creates a new integration handlers instance
func NewHandlers(store Store, logger *logrus.Logger) *Handlers {
	return &Handlers{store: store, logger: logger}
}

// RegisterRoutes registers integration API routes behind the guard chain.
// Reads admit members; writes need admin; redaction is per-caller inside
// the read handlers.
func (h *Handlers) RegisterRoutes(r *mux.Router, pipeline *middleware.Pipeline) {
	readers := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin, authz.RoleMember)}
	writers := middleware.RouteConfig{Roles: authz.NewRoleSet(authz.RoleOwner, authz.RoleAdmin)}

	r.Handle("/v1/workspaces/{workspace_id}/integrations", pipeline.ProtectFunc(readers, h.listIntegrations)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/integrations/{id}", pipeline.ProtectFunc(readers, h.getIntegration)).Methods("GET")
	r.Handle("/v1/workspaces/{workspace_id}/integrations", pipeline.ProtectFunc(writers, h.createIntegration)).Methods("POST")
	r.Handle("/v1/workspaces/{workspace_id}/integrations/{id}", pipeline.ProtectFunc(writers, h.updateIntegration)).Methods("PUT")
	r.Handle("/v1/workspaces/{workspace_id}/integrations/{id}", pipeline.ProtectFunc(writers, h.deleteIntegration)).Methods("DELETE")
}

// IntegrationRequest is the create/update request body
type IntegrationRequest struct {
	Name        string            `json:"name"`
	AccessLevel int               `json:"access_level"`
	AllowTools  []string          `json:"allow_tools,omitempty"`
	DenyTools   []string          `json:"deny_tools,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
}

// listIntegrations handles GET /v1/workspaces/{workspace_id}/integrations
func (h *Handlers) listIntegrations(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)

	integrations, err := h.store.List(r.Context(), membership.WorkspaceID)
	if err != nil {
		h.logger.Errorf("Failed to list integrations: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	out := make([]*Integration, 0, len(integrations))
	for _, integration := range integrations {
		out = append(out, integration.RedactFor(membership.Role))
	}
	httputil.WriteSuccess(w, out)
}

// getIntegration handles GET /v1/workspaces/{workspace_id}/integrations/{id}
func (h *Handlers) getIntegration(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	integration, err := h.store.Get(r.Context(), membership.WorkspaceID, id)
	if errors.Is(err, ErrIntegrationNotFound) {
		httputil.WriteNotFoundError(w, "integration not found")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to get integration %d: %v", id, err)
		httputil.WriteInternalError(w, err)
		return
	}

	httputil.WriteSuccess(w, integration.RedactFor(membership.Role))
}

// createIntegration handles POST /v1/workspaces/{workspace_id}/integrations
func (h *Handlers) createIntegration(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)

	var req IntegrationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	integration := &Integration{
		WorkspaceID: membership.WorkspaceID,
		Name:        req.Name,
		AccessLevel: AccessLevel(req.AccessLevel),
		AllowTools:  req.AllowTools,
		DenyTools:   req.DenyTools,
		Headers:     req.Headers,
		Env:         req.Env,
		CreatedBy:   sc.UserID,
	}
	if err := integration.Validate(); err != nil {
		httputil.WriteGuardError(w, err)
		return
	}

	if err := h.store.Create(r.Context(), integration); err != nil {
		h.logger.Errorf("Failed to create integration: %v", err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditChange(r, sc.UserID, integration, "integration created")
	httputil.WriteCreated(w, integration.RedactFor(membership.Role))
}

// updateIntegration handles PUT /v1/workspaces/{workspace_id}/integrations/{id}
func (h *Handlers) updateIntegration(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	var req IntegrationRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	integration := &Integration{
		ID:          id,
		WorkspaceID: membership.WorkspaceID,
		Name:        req.Name,
		AccessLevel: AccessLevel(req.AccessLevel),
		AllowTools:  req.AllowTools,
		DenyTools:   req.DenyTools,
		Headers:     req.Headers,
		Env:         req.Env,
	}
	if err := integration.Validate(); err != nil {
		httputil.WriteGuardError(w, err)
		return
	}

	err := h.store.Update(r.Context(), integration)
	if errors.Is(err, ErrIntegrationNotFound) {
		httputil.WriteNotFoundError(w, "integration not found")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to update integration %d: %v", id, err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditChange(r, sc.UserID, integration, "integration updated")
	httputil.WriteSuccess(w, integration.RedactFor(membership.Role))
}

// deleteIntegration handles DELETE /v1/workspaces/{workspace_id}/integrations/{id}
func (h *Handlers) deleteIntegration(w http.ResponseWriter, r *http.Request) {
	membership := middleware.GetMembership(r)
	sc := middleware.GetSessionContext(r)
	id, ok := httputil.ParsePathInt64OrError(w, r, "id")
	if !ok {
		return
	}

	err := h.store.Delete(r.Context(), membership.WorkspaceID, id)
	if errors.Is(err, ErrIntegrationNotFound) {
		httputil.WriteNotFoundError(w, "integration not found")
		return
	}
	if err != nil {
		h.logger.Errorf("Failed to delete integration %d: %v", id, err)
		httputil.WriteInternalError(w, err)
		return
	}

	h.auditChange(r, sc.UserID, &Integration{ID: id, WorkspaceID: membership.WorkspaceID}, "integration deleted")
	httputil.WriteNoContent(w)
}

func (h *Handlers) auditChange(r *http.Request, userID int64, integration *Integration, message string) {
	event := audit.NewEvent(r.Context(), r, audit.EventTypeIntegrationUpdated, audit.EventStatusSuccess)
	event.UserID = &userID
	event.Message = message
	event.Metadata = map[string]interface{}{"integration_id": integration.ID, "name": integration.Name}
	if err := audit.FromContext(r.Context()).Log(r.Context(), event); err != nil {
		h.logger.Warnf("Failed to write audit event: %v", err)
	}
}
