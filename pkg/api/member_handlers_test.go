package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/rampline/rampline/pkg/authz"
	"github.com/rampline/rampline/pkg/workspaces"
)

func (f *apiFixture) membersPath() string {
	return fmt.Sprintf("/v1/workspaces/%d/members", f.wsID)
}

func TestListMembersRoles(t *testing.T) {
	f := newAPIFixture(t)

	// Every accepted role down to viewer can read the roster
	for userID := int64(1); userID <= 4; userID++ {
		rec := f.do(t, http.MethodGet, f.membersPath(), f.tokens[userID], nil)
		if rec.Code != http.StatusOK {
			t.Errorf("user %d list = %d, want 200", userID, rec.Code)
		}
	}

	// Pending invitee and outsider are non-members
	for _, userID := range []int64{5, 6} {
		rec := f.do(t, http.MethodGet, f.membersPath(), f.tokens[userID], nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("user %d list = %d, want 403", userID, rec.Code)
		}
	}
}

func TestInviteMember(t *testing.T) {
	f := newAPIFixture(t)
	invite := workspaces.InviteMemberRequest{UserID: 6, Role: authz.RoleMember}

	if rec := f.do(t, http.MethodPost, f.membersPath(), f.tokens[3], invite); rec.Code != http.StatusForbidden {
		t.Errorf("member invite = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, f.membersPath(), f.tokens[4], invite); rec.Code != http.StatusForbidden {
		t.Errorf("viewer invite = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPost, f.membersPath(), f.tokens[2], invite); rec.Code != http.StatusCreated {
		t.Errorf("admin invite = %d, want 201", rec.Code)
	}

	// Owner is never grantable through the invite path
	rec := f.do(t, http.MethodPost, f.membersPath(), f.tokens[2], workspaces.InviteMemberRequest{UserID: 7, Role: authz.RoleOwner})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("owner invite = %d, want 400", rec.Code)
	}

	// Re-inviting an existing member conflicts
	rec = f.do(t, http.MethodPost, f.membersPath(), f.tokens[2], workspaces.InviteMemberRequest{UserID: 3, Role: authz.RoleViewer})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate invite = %d, want 409", rec.Code)
	}
}

func TestUpdateMemberRole(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("%s/3", f.membersPath())

	if rec := f.do(t, http.MethodPut, path, f.tokens[3], workspaces.UpdateMemberRequest{Role: authz.RoleAdmin}); rec.Code != http.StatusForbidden {
		t.Errorf("member self-promote = %d, want 403", rec.Code)
	}

	rec := f.do(t, http.MethodPut, path, f.tokens[2], workspaces.UpdateMemberRequest{Role: authz.RoleViewer})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin demote = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// The demoted member now fails a member-gated route
	approvalsPath := fmt.Sprintf("/v1/workspaces/%d/approvals", f.wsID)
	if rec := f.do(t, http.MethodGet, approvalsPath, f.tokens[3], nil); rec.Code != http.StatusForbidden {
		t.Errorf("demoted user on member route = %d, want 403", rec.Code)
	}

	// Owner row is immutable through this path
	ownerPath := fmt.Sprintf("%s/1", f.membersPath())
	if rec := f.do(t, http.MethodPut, ownerPath, f.tokens[2], workspaces.UpdateMemberRequest{Role: authz.RoleMember}); rec.Code != http.StatusConflict {
		t.Errorf("owner demote = %d, want 409", rec.Code)
	}

	missing := fmt.Sprintf("%s/999", f.membersPath())
	if rec := f.do(t, http.MethodPut, missing, f.tokens[2], workspaces.UpdateMemberRequest{Role: authz.RoleViewer}); rec.Code != http.StatusNotFound {
		t.Errorf("missing member = %d, want 404", rec.Code)
	}
}

func TestRemoveMember(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("%s/4", f.membersPath())

	if rec := f.do(t, http.MethodDelete, path, f.tokens[3], nil); rec.Code != http.StatusForbidden {
		t.Errorf("member remove = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodDelete, path, f.tokens[2], nil); rec.Code != http.StatusNoContent {
		t.Fatalf("admin remove = %d, want 204", rec.Code)
	}

	// Removed viewer is now an outsider
	if rec := f.do(t, http.MethodGet, f.membersPath(), f.tokens[4], nil); rec.Code != http.StatusForbidden {
		t.Errorf("removed user list = %d, want 403", rec.Code)
	}

	ownerPath := fmt.Sprintf("%s/1", f.membersPath())
	if rec := f.do(t, http.MethodDelete, ownerPath, f.tokens[2], nil); rec.Code != http.StatusConflict {
		t.Errorf("owner remove = %d, want 409", rec.Code)
	}
}

func TestAcceptInvitation(t *testing.T) {
	f := newAPIFixture(t)
	acceptPath := fmt.Sprintf("/v1/workspaces/%d/invitation/accept", f.wsID)

	// Pending invitee cannot reach workspace routes yet
	if rec := f.do(t, http.MethodGet, f.membersPath(), f.tokens[5], nil); rec.Code != http.StatusForbidden {
		t.Fatalf("pending invitee list = %d, want 403", rec.Code)
	}

	rec := f.do(t, http.MethodPost, acceptPath, f.tokens[5], nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("accept = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp["status"] != "accepted" {
		t.Errorf("status = %v", resp["status"])
	}

	// Acceptance opens the door
	if rec := f.do(t, http.MethodGet, f.membersPath(), f.tokens[5], nil); rec.Code != http.StatusOK {
		t.Errorf("accepted invitee list = %d, want 200", rec.Code)
	}

	// No invite, nothing to accept
	if rec := f.do(t, http.MethodPost, acceptPath, f.tokens[6], nil); rec.Code != http.StatusNotFound {
		t.Errorf("outsider accept = %d, want 404", rec.Code)
	}
}

func TestTransferOwnershipEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	path := fmt.Sprintf("/v1/workspaces/%d/owner", f.wsID)

	// Owner-only: even admin is turned away
	if rec := f.do(t, http.MethodPut, path, f.tokens[2], TransferOwnershipRequest{UserID: 3}); rec.Code != http.StatusForbidden {
		t.Errorf("admin transfer = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPut, path, f.tokens[3], TransferOwnershipRequest{UserID: 2}); rec.Code != http.StatusForbidden {
		t.Errorf("member transfer = %d, want 403", rec.Code)
	}

	// Pending invitee is not a valid target
	if rec := f.do(t, http.MethodPut, path, f.tokens[1], TransferOwnershipRequest{UserID: 5}); rec.Code != http.StatusNotFound {
		t.Errorf("transfer to pending invitee = %d, want 404", rec.Code)
	}

	// Transferring to yourself is a validation failure
	if rec := f.do(t, http.MethodPut, path, f.tokens[1], TransferOwnershipRequest{UserID: 1}); rec.Code != http.StatusBadRequest {
		t.Errorf("transfer to self = %d, want 400", rec.Code)
	}

	rec := f.do(t, http.MethodPut, path, f.tokens[1], TransferOwnershipRequest{UserID: 2})
	if rec.Code != http.StatusOK {
		t.Fatalf("owner transfer = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	// The role moved: the new owner holds the gate, the old owner does not
	if rec := f.do(t, http.MethodPut, path, f.tokens[1], TransferOwnershipRequest{UserID: 3}); rec.Code != http.StatusForbidden {
		t.Errorf("demoted owner transfer = %d, want 403", rec.Code)
	}
	if rec := f.do(t, http.MethodPut, path, f.tokens[2], TransferOwnershipRequest{UserID: 1}); rec.Code != http.StatusOK {
		t.Errorf("new owner transfer back = %d, want 200", rec.Code)
	}
}
