package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
)

func (h *UpdateHandler) listGroups(ctx context.Context, chatID int64) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}

	groups, err := session.GroupsForUser(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "list groups", err)
		return
	}
	if len(groups) == 0 {
		h.msgHandler.reply(chatID, "👥 You are not in any group. Create one with /newgroup <name> or ask for an invite id and /join it.", CreateMainMenuKeyboard())
		return
	}

	users, err := session.Users(ctx)
	if err != nil {
		h.fail(chatID, "list users", err)
		return
	}
	names := make(map[string]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Username
	}

	var b strings.Builder
	b.WriteString("👥 Your groups:\n")
	for _, g := range groups {
		role := "member"
		if g.IsAdmin(user.ID) {
			role = "admin"
		}
		fmt.Fprintf(&b, "\n%s (%s, %d members) · %s", g.Name, role, len(g.Members), g.ID)
		if g.IsAdmin(user.ID) {
			for _, id := range g.PendingMemberIDs {
				fmt.Fprintf(&b, "\n   ⏳ %s wants to join: /approve %s %s", displayName(names, id), g.ID, displayName(names, id))
			}
		}
	}
	h.msgHandler.reply(chatID, b.String(), CreateMainMenuKeyboard())
}

func displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func (h *UpdateHandler) createGroup(ctx context.Context, chatID int64, name string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if name == "" {
		h.msgHandler.reply(chatID, "Usage: /newgroup <name>", CreateMainMenuKeyboard())
		return
	}

	g, err := session.CreateGroup(ctx, name, user.ID)
	if err != nil {
		h.fail(chatID, "create group", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("👥 Group \"%s\" created. Others can ask to join with:\n/join %s", g.Name, g.ID), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) joinGroup(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /join <groupId>", CreateMainMenuKeyboard())
		return
	}

	g, err := session.Group(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load group", err)
		return
	}
	if g == nil {
		h.msgHandler.reply(chatID, "❌ Group not found", CreateMainMenuKeyboard())
		return
	}
	if g.HasMember(user.ID) {
		h.msgHandler.reply(chatID, fmt.Sprintf("ℹ️ You are already in \"%s\"", g.Name), CreateMainMenuKeyboard())
		return
	}

	if err := session.RequestToJoinGroup(ctx, g.ID, user.ID); err != nil {
		h.fail(chatID, "join group", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("⏳ Asked to join \"%s\". An admin has to approve you.", g.Name), CreateMainMenuKeyboard())
}

// approveMember accepts a pending request. The member may be given by
// username or by user id.
func (h *UpdateHandler) approveMember(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 2 {
		h.msgHandler.reply(chatID, "Usage: /approve <groupId> <username>", CreateMainMenuKeyboard())
		return
	}

	g, err := session.Group(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load group", err)
		return
	}
	if g == nil || !g.IsAdmin(user.ID) {
		h.msgHandler.reply(chatID, "❌ Only group admins can approve members", CreateMainMenuKeyboard())
		return
	}

	memberID := args[1]
	other, err := session.UserByUsername(ctx, args[1])
	switch {
	case err == nil:
		memberID = other.ID
	case !errors.Is(err, database.ErrUserNotFound):
		h.fail(chatID, "find user", err)
		return
	}

	if !g.IsPending(memberID) {
		h.msgHandler.reply(chatID, fmt.Sprintf("❌ %s has not asked to join", args[1]), CreateMainMenuKeyboard())
		return
	}
	if err := session.UpdateGroup(ctx, g.Approve(memberID)); err != nil {
		h.fail(chatID, "approve member", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("✅ %s joined \"%s\"", args[1], g.Name), CreateMainMenuKeyboard())
}

// deleteGroup removes a group the user owns. Notes shared with it stay with
// their owners.
func (h *UpdateHandler) deleteGroup(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /delgroup <groupId>", CreateMainMenuKeyboard())
		return
	}

	g, err := session.Group(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load group", err)
		return
	}
	if g == nil || g.OwnerID != user.ID {
		h.msgHandler.reply(chatID, "❌ Only the group owner can delete it", CreateMainMenuKeyboard())
		return
	}

	if err := session.DeleteGroup(ctx, g.ID); err != nil {
		h.fail(chatID, "delete group", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("🗑️ Group \"%s\" deleted", g.Name), CreateMainMenuKeyboard())
}
