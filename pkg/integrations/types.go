package integrations

import (
	"errors"
	"time"

	"github.com/rampline/rampline/pkg/authz"
)

// ErrIntegrationNotFound is returned when no integration matches the id
var ErrIntegrationNotFound = errors.New("integration not found")

// Integration describes an external tool connection scoped to a workspace.
// AllowTools and DenyTools are validated to be disjoint before persistence;
// Headers and Env carry secrets and are redacted for callers below admin.
type Integration struct {
	ID          int64             `json:"id"`
	WorkspaceID int64             `json:"workspace_id"`
	Name        string            `json:"name"`
	AccessLevel AccessLevel       `json:"access_level"`
	AccessName  string            `json:"access_name,omitempty"`
	AllowTools  []string          `json:"allow_tools,omitempty"`
	DenyTools   []string          `json:"deny_tools,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Redacted    bool              `json:"redacted,omitempty"`
	CreatedBy   int64             `json:"created_by"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Validate checks the descriptor at config time, before persistence
func (i *Integration) Validate() error {
	if i.Name == "" {
		return authz.NewValidationError("name", "required")
	}
	if !Valid(int(i.AccessLevel)) {
		return authz.NewValidationError("access_level", "must be between 0 and 7")
	}

	denied := make(map[string]struct{}, len(i.DenyTools))
	for _, tool := range i.DenyTools {
		if tool == "" {
			return authz.NewValidationError("deny_tools", "tool names must be non-empty")
		}
		denied[tool] = struct{}{}
	}
	for _, tool := range i.AllowTools {
		if tool == "" {
			return authz.NewValidationError("allow_tools", "tool names must be non-empty")
		}
		if _, ok := denied[tool]; ok {
			return authz.NewValidationError("allow_tools", "tool "+tool+" appears in both allow and deny lists")
		}
	}

	return nil
}

// RedactFor returns a copy shaped for the caller's role. Admin and owner
// see everything; everyone else gets header and env key names with the
// values stripped. The request itself still succeeds.
func (i *Integration) RedactFor(role authz.Role) *Integration {
	out := *i
	out.AccessName = out.AccessLevel.Name()

	if role == authz.RoleOwner || role == authz.RoleAdmin {
		return &out
	}

	out.Redacted = true
	if len(i.Headers) > 0 {
		out.Headers = make(map[string]string, len(i.Headers))
		for k := range i.Headers {
			out.Headers[k] = ""
		}
	}
	if len(i.Env) > 0 {
		out.Env = make(map[string]string, len(i.Env))
		for k := range i.Env {
			out.Env[k] = ""
		}
	}
	return &out
}
