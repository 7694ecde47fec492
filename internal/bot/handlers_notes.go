package bot

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	pmodels "github.com/efrenluis/agenda-inteligente-ai/pkg/models"
)

const groupPrefix = "group:"

// askForNote waits for the next message to become a note, under parentID or
// inside projectID when they are set.
func (h *UpdateHandler) askForNote(ctx context.Context, chatID int64, parentID, projectID string) {
	if _, _, ok := h.requireUser(ctx, chatID); !ok {
		return
	}
	h.chats.SetUserData(chatID, pmodels.ChatData{NoteID: parentID, ProjectID: projectID})
	h.chats.SetUserState(chatID, StateWaitingForNoteText)
	h.msgHandler.reply(chatID, "✏️ What should the note say?", CreateBackKeyboard())
}

// createNote stores text as a note. A sub-note inherits its parent's
// projects; otherwise projectID, when set, must be a project the user owns.
func (h *UpdateHandler) createNote(ctx context.Context, chatID int64, text, parentID, projectID string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" {
		h.msgHandler.reply(chatID, "❌ A note cannot be empty", CreateMainMenuKeyboard())
		return
	}

	draft := models.NoteDraft{NoteFields: models.NoteFields{
		Text:      text,
		OwnerID:   user.ID,
		OwnerName: user.Username,
		ParentID:  parentID,
	}}

	switch {
	case parentID != "":
		parent, err := session.Note(ctx, parentID)
		if err != nil {
			h.fail(chatID, "load parent note", err)
			return
		}
		if parent == nil || !h.canSee(ctx, session, user.ID, parent) {
			h.msgHandler.reply(chatID, "❌ Note not found", CreateMainMenuKeyboard())
			return
		}
		draft.ProjectIDs = slices.Clone(parent.ProjectIDs)
	case projectID != "":
		p, err := session.Project(ctx, projectID)
		if err != nil {
			h.fail(chatID, "load project", err)
			return
		}
		if p == nil || p.OwnerID != user.ID {
			h.msgHandler.reply(chatID, "❌ Project not found", CreateMainMenuKeyboard())
			return
		}
		draft.ProjectIDs = []string{p.ID}
	}

	h.normalize(ctx, session, user.ID, &draft)

	note, err := session.AddNote(ctx, draft)
	if err != nil {
		h.fail(chatID, "add note", err)
		return
	}
	h.msgHandler.reply(chatID, "✅ Note saved\n\n"+describeNote(note), CreateMainMenuKeyboard())
}

// normalize runs the draft through the assistant when one is configured. A
// failing assistant leaves the draft as typed. Project notes are offered the
// project's categories, the rest the user's general ones.
func (h *UpdateHandler) normalize(ctx context.Context, session *database.Store, userID string, draft *models.NoteDraft) {
	if h.assist == nil {
		return
	}
	var (
		settings models.CategorySettings
		err      error
	)
	if len(draft.ProjectIDs) > 0 {
		settings, err = session.ProjectCategories(ctx, draft.ProjectIDs[0])
	} else {
		settings, err = session.GeneralCategories(ctx, userID)
	}
	if err != nil {
		h.log.Warn("load categories for assist", "user_id", userID, "error", err)
		return
	}
	sg, err := h.assist.Normalize(ctx, draft.Text, settings.ActiveNames())
	if err != nil {
		h.log.Warn("assist failed, keeping note as typed", "user_id", userID, "error", err)
		return
	}
	sg.Apply(draft)
}

func (h *UpdateHandler) createSubNote(ctx context.Context, chatID int64, args []string) {
	switch len(args) {
	case 0:
		h.msgHandler.reply(chatID, "Usage: /sub <noteId> <text>", CreateMainMenuKeyboard())
	case 1:
		h.askForNote(ctx, chatID, args[0], "")
	default:
		h.createNote(ctx, chatID, strings.Join(args[1:], " "), args[0], "")
	}
}

func (h *UpdateHandler) createProjectNote(ctx context.Context, chatID int64, args []string) {
	switch len(args) {
	case 0:
		h.msgHandler.reply(chatID, "Usage: /pnote <projectId> <text>", CreateMainMenuKeyboard())
	case 1:
		h.askForNote(ctx, chatID, "", args[0])
	default:
		h.createNote(ctx, chatID, strings.Join(args[1:], " "), "", args[0])
	}
}

func (h *UpdateHandler) listNotes(ctx context.Context, chatID int64) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}

	buckets, err := session.NotesForUser(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "list notes", err)
		return
	}
	if len(buckets.Mine) == 0 && len(buckets.Shared) == 0 {
		h.msgHandler.reply(chatID, "📝 You have no notes yet", CreateMainMenuKeyboard())
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "📋 Your notes (%d):\n", len(buckets.Mine))
	b.WriteString(formatNoteTree(buckets.Mine))
	if len(buckets.Shared) > 0 {
		fmt.Fprintf(&b, "\n\n🤝 Shared with you (%d):\n", len(buckets.Shared))
		b.WriteString(formatNoteTree(buckets.Shared))
	}
	h.msgHandler.reply(chatID, b.String(), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) completeNote(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /done <noteId>", CreateMainMenuKeyboard())
		return
	}

	note, err := session.Note(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load note", err)
		return
	}
	if note == nil || !h.canSee(ctx, session, user.ID, note) {
		h.msgHandler.reply(chatID, "❌ Note not found", CreateMainMenuKeyboard())
		return
	}

	if _, err := session.SetNoteCompleted(ctx, note.ID, !note.IsCompleted); err != nil {
		h.fail(chatID, "complete note", err)
		return
	}
	status := "✅ Done"
	if note.IsCompleted {
		status = "↩️ Reopened"
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("%s: %s", status, note.Text), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) deleteNote(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /delete <noteId>", CreateMainMenuKeyboard())
		return
	}

	note, err := session.Note(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load note", err)
		return
	}
	if note == nil || note.OwnerID != user.ID {
		h.msgHandler.reply(chatID, "❌ Only notes you own can be deleted", CreateMainMenuKeyboard())
		return
	}

	if err := session.DeleteNote(ctx, note.ID); err != nil {
		h.fail(chatID, "delete note", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("🗑️ Deleted \"%s\" and its sub-notes", note.Text), CreateMainMenuKeyboard())
}

// shareNote shares a note with a user, by username, or with a group the owner
// belongs to, written as group:<groupId>.
func (h *UpdateHandler) shareNote(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 2 {
		h.msgHandler.reply(chatID, "Usage: /share <noteId> <username | group:groupId>", CreateMainMenuKeyboard())
		return
	}

	note, err := session.Note(ctx, args[0])
	if err != nil {
		h.fail(chatID, "load note", err)
		return
	}
	if note == nil || note.OwnerID != user.ID {
		h.msgHandler.reply(chatID, "❌ Only notes you own can be shared", CreateMainMenuKeyboard())
		return
	}

	shared := note.SharedWith
	target := args[1]
	if groupID, isGroup := strings.CutPrefix(target, groupPrefix); isGroup {
		group, err := session.Group(ctx, groupID)
		if err != nil {
			h.fail(chatID, "load group", err)
			return
		}
		if group == nil || !group.HasMember(user.ID) {
			h.msgHandler.reply(chatID, "❌ You are not a member of that group", CreateMainMenuKeyboard())
			return
		}
		if !slices.Contains(shared.Groups, group.ID) {
			shared.Groups = append(shared.Groups, group.ID)
		}
		target = "👥 " + group.Name
	} else {
		other, err := session.UserByUsername(ctx, target)
		if errors.Is(err, database.ErrUserNotFound) {
			h.msgHandler.reply(chatID, "❌ No user called "+target, CreateMainMenuKeyboard())
			return
		}
		if err != nil {
			h.fail(chatID, "find user", err)
			return
		}
		if !slices.Contains(shared.Users, other.ID) {
			shared.Users = append(shared.Users, other.ID)
		}
		target = "👤 " + other.Username
	}

	if _, err := session.UpdateNoteSharing(ctx, note.ID, shared); err != nil {
		h.fail(chatID, "share note", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("🤝 \"%s\" is now shared with %s", note.Text, target), CreateMainMenuKeyboard())
}

// canSee reports whether userID owns the note or has it shared with them.
func (h *UpdateHandler) canSee(ctx context.Context, session *database.Store, userID string, note *models.Note) bool {
	if note.OwnerID == userID {
		return true
	}
	groups, err := session.GroupsForUser(ctx, userID)
	if err != nil {
		h.log.Warn("load groups", "user_id", userID, "error", err)
		return false
	}
	memberOf := make(map[string]bool, len(groups))
	for _, g := range groups {
		memberOf[g.ID] = true
	}
	return note.VisibleTo(userID, memberOf)
}

func describeNote(n *models.Note) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 %s\n🆔 %s", n.Text, n.ID)
	if n.Date != "" {
		fmt.Fprintf(&b, "\n📅 %s", n.Date)
		if n.Time != "" {
			fmt.Fprintf(&b, " %s", n.Time)
		}
	}
	if n.Location != "" {
		fmt.Fprintf(&b, "\n📍 %s", n.Location)
	}
	if len(n.Categories) > 0 {
		fmt.Fprintf(&b, "\n📂 %s", strings.Join(n.Categories, ", "))
	}
	return b.String()
}

// formatNoteTree renders notes as an indented outline. Notes whose parent is
// not among notes are shown at the top level.
func formatNoteTree(notes []models.Note) string {
	present := make(map[string]bool, len(notes))
	for _, n := range notes {
		present[n.ID] = true
	}
	children := make(map[string][]models.Note)
	var roots []models.Note
	for _, n := range notes {
		if !n.IsRoot() && present[n.ParentID] {
			children[n.ParentID] = append(children[n.ParentID], n)
		} else {
			roots = append(roots, n)
		}
	}

	var lines []string
	seen := make(map[string]bool, len(notes))
	var walk func(n models.Note, depth int)
	walk = func(n models.Note, depth int) {
		if seen[n.ID] {
			return
		}
		seen[n.ID] = true
		lines = append(lines, strings.Repeat("   ", depth)+noteLine(n))
		for _, c := range children[n.ID] {
			walk(c, depth+1)
		}
	}
	for _, r := range roots {
		walk(r, 0)
	}
	// Parent cycles leave notes without a root.
	for _, n := range notes {
		walk(n, 0)
	}
	return strings.Join(lines, "\n")
}

func noteLine(n models.Note) string {
	box := "⬜"
	if n.IsCompleted {
		box = "✅"
	}
	line := fmt.Sprintf("%s %s", box, n.Text)
	if n.Date != "" {
		line += " 📅 " + n.Date
	}
	return line + " · " + n.ID
}
