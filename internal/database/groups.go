package database

import (
	"context"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
)

// CreateGroup creates a group administered by its owner.
func (s *Store) CreateGroup(ctx context.Context, name, ownerID string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}

	group := models.Group{
		ID:               s.newID(),
		Name:             strings.TrimSpace(name),
		OwnerID:          ownerID,
		Members:          []models.GroupMember{{UserID: ownerID, Role: models.GroupRoleAdmin}},
		PendingMemberIDs: []string{},
	}
	groups = append(groups, group)
	if err := s.saveGroups(ctx, groups); err != nil {
		return nil, err
	}
	s.log.Info("group created", "group_id", group.ID, "owner_id", ownerID)
	return &group, nil
}

// RequestToJoinGroup queues userID for approval. Members and users already
// waiting are left as they are.
func (s *Store) RequestToJoinGroup(ctx context.Context, groupID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return err
	}
	for i := range groups {
		g := &groups[i]
		if g.ID != groupID {
			continue
		}
		if g.HasMember(userID) || g.IsPending(userID) {
			return nil
		}
		g.PendingMemberIDs = append(g.PendingMemberIDs, userID)
		return s.saveGroups(ctx, groups)
	}
	return nil
}

// UpdateGroup replaces the stored group with the same id. Approvals and
// rejections are built with Group.Approve and Group.Reject.
func (s *Store) UpdateGroup(ctx context.Context, group models.Group) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return err
	}
	for i := range groups {
		if groups[i].ID == group.ID {
			if group.Members == nil {
				group.Members = []models.GroupMember{}
			}
			groups[i] = group
			return s.saveGroups(ctx, groups)
		}
	}
	return nil
}

// DeleteGroup removes the group and unshares every note that was shared with it.
func (s *Store) DeleteGroup(ctx context.Context, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.Group, 0, len(groups))
	for _, g := range groups {
		if g.ID != groupID {
			kept = append(kept, g)
		}
	}
	if err := s.saveGroups(ctx, kept); err != nil {
		return err
	}

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}
	for i := range notes {
		shared := notes[i].SharedWith.Groups
		ids := make([]string, 0, len(shared))
		for _, id := range shared {
			if id != groupID {
				ids = append(ids, id)
			}
		}
		notes[i].SharedWith.Groups = ids
	}
	return s.saveNotes(ctx, notes)
}

func (s *Store) Groups(ctx context.Context) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.loadGroups(ctx)
}

// GroupsForUser lists the groups userID is a member of.
func (s *Store) GroupsForUser(ctx context.Context, userID string) ([]models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	mine := []models.Group{}
	for _, g := range groups {
		if g.HasMember(userID) {
			mine = append(mine, g)
		}
	}
	return mine, nil
}

// Group returns the group with id, or nil.
func (s *Store) Group(ctx context.Context, id string) (*models.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	groups, err := s.loadGroups(ctx)
	if err != nil {
		return nil, err
	}
	for _, g := range groups {
		if g.ID == id {
			return &g, nil
		}
	}
	return nil, nil
}
