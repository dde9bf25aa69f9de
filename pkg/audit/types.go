package audit

import (
	"encoding/json"
	"time"
)

// EventType represents the category of audit event
type EventType string

const (
	// Authentication events
	EventTypeAuthSignin       EventType = "auth.signin"
	EventTypeAuthSigninFailed EventType = "auth.signin_failed"
	EventTypeAuthSignout      EventType = "auth.signout"

	// Authorization events
	EventTypeAuthzAccessDenied EventType = "authz.access_denied"
	EventTypeAuthzRateLimited  EventType = "authz.rate_limited"

	// Membership events
	EventTypeMemberInvited     EventType = "member.invited"
	EventTypeMemberAccepted    EventType = "member.accepted"
	EventTypeMemberRoleChanged EventType = "member.role_changed"
	EventTypeMemberRemoved     EventType = "member.removed"

	// Workspace events
	EventTypeWorkspaceCreated     EventType = "workspace.created"
	EventTypeOwnershipTransferred EventType = "workspace.ownership_transferred"

	// Approval events
	EventTypeApprovalDecided    EventType = "approval.decided"
	EventTypeEscalationUpdated  EventType = "config.escalation_updated"
	EventTypeIntegrationUpdated EventType = "integration.updated"
)

// EventStatus represents the outcome of an event
type EventStatus string

const (
	EventStatusSuccess EventStatus = "success"
	EventStatusFailure EventStatus = "failure"
	EventStatusDenied  EventStatus = "denied"
)

// Event represents a single audit log entry
type Event struct {
	Timestamp time.Time   `json:"timestamp"`
	EventType EventType   `json:"event_type"`
	Status    EventStatus `json:"status"`

	// Actor information
	UserID      *int64 `json:"user_id,omitempty"`
	UserEmail   string `json:"user_email,omitempty"`
	WorkspaceID *int64 `json:"workspace_id,omitempty"`
	Role        string `json:"role,omitempty"`

	// Request context
	IPAddress string `json:"ip_address,omitempty"`
	UserAgent string `json:"user_agent,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Method    string `json:"method,omitempty"`
	Path      string `json:"path,omitempty"`

	// Additional details
	Message      string                 `json:"message,omitempty"`
	ErrorMessage string                 `json:"error_message,omitempty"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// ToJSON converts the audit event to JSON
func (e *Event) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

// FromJSON parses an audit event from JSON
func FromJSON(data []byte) (*Event, error) {
	var event Event
	err := json.Unmarshal(data, &event)
	return &event, err
}
