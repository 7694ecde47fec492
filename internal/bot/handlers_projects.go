package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	pmodels "github.com/efrenluis/agenda-inteligente-ai/pkg/models"
)

// Color dots shown next to categories and projects.
var colorDots = map[string]string{
	"cat-red":    "🔴",
	"cat-orange": "🟠",
	"cat-amber":  "🟡",
	"cat-lime":   "🟢",
	"cat-green":  "🟢",
	"cat-teal":   "🔵",
	"cat-sky":    "🔵",
	"cat-blue":   "🔵",
	"cat-indigo": "🟣",
	"cat-purple": "🟣",
	"cat-pink":   "🟤",
	"cat-rose":   "🔴",
}

func colorDot(color string) string {
	if dot, ok := colorDots[color]; ok {
		return dot
	}
	return "⚪"
}

func (h *UpdateHandler) listCategories(ctx context.Context, chatID int64) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}

	settings, err := session.GeneralCategories(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "list categories", err)
		return
	}
	if len(settings.MasterList) == 0 {
		h.msgHandler.reply(chatID, "📂 You have no categories. Add one with /addcategory <name>", CreateMainMenuKeyboard())
		return
	}

	var b strings.Builder
	b.WriteString("📂 Your categories:\n")
	for _, c := range settings.MasterList {
		state := ""
		if !settings.IsActive(c.Name) {
			state = " (hidden)"
		}
		fmt.Fprintf(&b, "\n%s %s%s", colorDot(c.Color), c.Name, state)
	}
	h.msgHandler.reply(chatID, b.String(), CreateMainMenuKeyboard())
}

// askForCategory waits for the next message to become a category name, in
// projectID's scope when it is set.
func (h *UpdateHandler) askForCategory(ctx context.Context, chatID int64, projectID string) {
	if _, _, ok := h.requireUser(ctx, chatID); !ok {
		return
	}
	h.chats.SetUserData(chatID, pmodels.ChatData{ProjectID: projectID})
	h.chats.SetUserState(chatID, StateWaitingForCategoryName)
	h.msgHandler.reply(chatID, "📝 Name of the new category:", CreateBackKeyboard())
}

func (h *UpdateHandler) addCategory(ctx context.Context, chatID int64, name, projectID string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	name = strings.TrimSpace(name)
	if name == "" {
		h.msgHandler.reply(chatID, "❌ A category needs a name", CreateMainMenuKeyboard())
		return
	}

	scope := ""
	if projectID != "" {
		p, ok := h.ownProject(ctx, chatID, session, user.ID, projectID)
		if !ok {
			return
		}
		scope = fmt.Sprintf(" in \"%s\"", p.Name)
	}

	added, err := session.AddCategory(ctx, user.ID, models.Category{Name: name}, projectID)
	if err != nil {
		h.fail(chatID, "add category", err)
		return
	}
	if !added {
		h.msgHandler.reply(chatID, fmt.Sprintf("ℹ️ \"%s\" already exists%s", name, scope), CreateMainMenuKeyboard())
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("%s Category \"%s\" created%s", colorDot(models.ColorForName(name)), name, scope), CreateMainMenuKeyboard())
}

// addProjectCategory takes "<projectId> [name]"; without a name it asks for one.
func (h *UpdateHandler) addProjectCategory(ctx context.Context, chatID int64, args []string) {
	switch len(args) {
	case 0:
		h.msgHandler.reply(chatID, "Usage: /pcategory <projectId> <name>", CreateMainMenuKeyboard())
	case 1:
		h.askForCategory(ctx, chatID, args[0])
	default:
		h.addCategory(ctx, chatID, strings.Join(args[1:], " "), args[0])
	}
}

func (h *UpdateHandler) setCategoryActive(ctx context.Context, chatID int64, name string, active bool) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	settings, err := session.GeneralCategories(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "load categories", err)
		return
	}
	c, found := settings.Find(name)
	if name == "" || !found {
		h.msgHandler.reply(chatID, fmt.Sprintf("❌ No category called \"%s\"", name), CreateMainMenuKeyboard())
		return
	}

	if err := session.SetCategoryActive(ctx, user.ID, c.Name, "", active); err != nil {
		h.fail(chatID, "toggle category", err)
		return
	}
	state := "🙈 hidden"
	if active {
		state = "👀 shown"
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("%s Category \"%s\" is now %s", colorDot(c.Color), c.Name, state), CreateMainMenuKeyboard())
}

// resetCategories replaces the general categories with the predefined set.
// Notes keep their tags.
func (h *UpdateHandler) resetCategories(ctx context.Context, chatID int64) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if err := session.SaveGeneralCategories(ctx, user.ID, models.DefaultCategorySettings()); err != nil {
		h.fail(chatID, "reset categories", err)
		return
	}
	h.msgHandler.reply(chatID, "♻️ Categories restored to the defaults", CreateMainMenuKeyboard())
}

func (h *UpdateHandler) deleteCategory(ctx context.Context, chatID int64, name string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if name == "" {
		h.msgHandler.reply(chatID, "Usage: /delcategory <name>", CreateMainMenuKeyboard())
		return
	}

	settings, err := session.GeneralCategories(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "load categories", err)
		return
	}
	c, found := settings.Find(name)
	if !found {
		h.msgHandler.reply(chatID, fmt.Sprintf("❌ No category called \"%s\"", name), CreateMainMenuKeyboard())
		return
	}

	if err := session.DeleteCategory(ctx, user.ID, c.Name, ""); err != nil {
		h.fail(chatID, "delete category", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("🗑️ Category \"%s\" deleted and removed from every note", c.Name), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) listProjects(ctx context.Context, chatID int64) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}

	projects, err := session.ProjectsForUser(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "list projects", err)
		return
	}
	if len(projects) == 0 {
		h.msgHandler.reply(chatID, "📁 No projects yet. Start one with /newproject <name>", CreateMainMenuKeyboard())
		return
	}

	var b strings.Builder
	b.WriteString("📁 Your projects:\n")
	for _, p := range projects {
		fmt.Fprintf(&b, "\n%s %s · %s", colorDot(p.Color), p.Name, p.ID)
		if p.Description != "" {
			fmt.Fprintf(&b, "\n   %s", p.Description)
		}
		if names := p.Categories.ActiveNames(); len(names) > 0 {
			fmt.Fprintf(&b, "\n   📂 %s", strings.Join(names, ", "))
		}
	}
	h.msgHandler.reply(chatID, b.String(), CreateMainMenuKeyboard())
}

// createProject takes "<name>" or "<name> | <description>".
func (h *UpdateHandler) createProject(ctx context.Context, chatID int64, input string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	name, description, _ := strings.Cut(input, "|")
	name, description = strings.TrimSpace(name), strings.TrimSpace(description)
	if name == "" {
		h.msgHandler.reply(chatID, "Usage: /newproject <name> [| description]", CreateMainMenuKeyboard())
		return
	}

	p, err := session.CreateProject(ctx, name, description, user.ID, models.EmptyCategorySettings())
	if err != nil {
		h.fail(chatID, "create project", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("%s Project \"%s\" created\n🆔 %s", colorDot(p.Color), p.Name, p.ID), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) deleteProject(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /delproject <projectId>", CreateMainMenuKeyboard())
		return
	}

	p, ok := h.ownProject(ctx, chatID, session, user.ID, args[0])
	if !ok {
		return
	}
	if err := session.DeleteProject(ctx, p.ID); err != nil {
		h.fail(chatID, "delete project", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("🗑️ Project \"%s\" and its notes were deleted", p.Name), CreateMainMenuKeyboard())
}

// copyCategoriesToProject replaces a project's categories with the user's
// general ones.
func (h *UpdateHandler) copyCategoriesToProject(ctx context.Context, chatID int64, args []string) {
	user, session, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}
	if len(args) != 1 {
		h.msgHandler.reply(chatID, "Usage: /copycategories <projectId>", CreateMainMenuKeyboard())
		return
	}

	p, ok := h.ownProject(ctx, chatID, session, user.ID, args[0])
	if !ok {
		return
	}
	settings, err := session.GeneralCategories(ctx, user.ID)
	if err != nil {
		h.fail(chatID, "load categories", err)
		return
	}
	if err := session.SaveProjectCategories(ctx, p.ID, settings); err != nil {
		h.fail(chatID, "save project categories", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("📂 \"%s\" now uses your %d categories", p.Name, len(settings.MasterList)), CreateMainMenuKeyboard())
}

// ownProject loads a project owned by userID, replying to the chat when there
// is none.
func (h *UpdateHandler) ownProject(ctx context.Context, chatID int64, session *database.Store, userID, projectID string) (*models.Project, bool) {
	p, err := session.Project(ctx, projectID)
	if err != nil {
		h.fail(chatID, "load project", err)
		return nil, false
	}
	if p == nil || p.OwnerID != userID {
		h.msgHandler.reply(chatID, "❌ Only projects you own can be changed", CreateMainMenuKeyboard())
		return nil, false
	}
	return p, true
}
