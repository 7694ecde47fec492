package models

import "slices"

type GroupRole string

const (
	GroupRoleAdmin  GroupRole = "admin"
	GroupRoleMember GroupRole = "member"
)

type GroupMember struct {
	UserID string    `json:"userId"`
	Role   GroupRole `json:"role"`
}

// Group keeps members and pending join requests as disjoint sets. The owner is
// an admin member from creation.
type Group struct {
	ID               string        `json:"id"`
	Name             string        `json:"name"`
	OwnerID          string        `json:"ownerId"`
	Members          []GroupMember `json:"members"`
	PendingMemberIDs []string      `json:"pendingMemberIds,omitempty"`
}

func (g Group) HasMember(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func (g Group) IsPending(userID string) bool {
	return slices.Contains(g.PendingMemberIDs, userID)
}

func (g Group) IsAdmin(userID string) bool {
	for _, m := range g.Members {
		if m.UserID == userID {
			return m.Role == GroupRoleAdmin
		}
	}
	return false
}

// Approve returns a copy of g with userID moved from the pending list into the
// members as a regular member. Unknown requests leave the group unchanged.
func (g Group) Approve(userID string) Group {
	if !g.IsPending(userID) {
		return g
	}
	out := g.Reject(userID)
	if !out.HasMember(userID) {
		out.Members = append(slices.Clone(out.Members), GroupMember{UserID: userID, Role: GroupRoleMember})
	}
	return out
}

// Reject returns a copy of g with userID removed from the pending list.
func (g Group) Reject(userID string) Group {
	pending := make([]string, 0, len(g.PendingMemberIDs))
	for _, id := range g.PendingMemberIDs {
		if id != userID {
			pending = append(pending, id)
		}
	}
	g.PendingMemberIDs = pending
	return g
}
