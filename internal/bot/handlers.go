package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/assist"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const genericError = "⚠️ Something went wrong. Please try again later."

type UpdateHandler struct {
	store       *database.Store
	chats       storage.ChatStorage
	assist      assist.Normalizer
	adminChatID int64
	msgHandler  *MessageHandler
	log         *slog.Logger
}

// NewUpdateHandler wires the bot to the store. normalizer may be nil, in which
// case notes are saved as typed. A non-zero adminChatID restricts the bot to
// that chat.
func NewUpdateHandler(bot Sender, store *database.Store, chats storage.ChatStorage, normalizer assist.Normalizer, adminChatID int64, log *slog.Logger) *UpdateHandler {
	if log == nil {
		log = slog.Default()
	}
	return &UpdateHandler{
		store:       store,
		chats:       chats,
		assist:      normalizer,
		adminChatID: adminChatID,
		msgHandler:  NewMessageHandler(bot, chats, log),
		log:         log,
	}
}

func (h *UpdateHandler) GetMessageHandler() *MessageHandler {
	return h.msgHandler
}

// HandleUpdates processes updates until the channel closes or ctx is done.
func (h *UpdateHandler) HandleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			h.HandleUpdate(ctx, update)
		}
	}
}

func (h *UpdateHandler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.Chat == nil || message.From == nil || message.From.IsBot {
		return
	}

	chatID := message.Chat.ID
	if h.adminChatID != 0 && h.adminChatID != chatID {
		h.log.Info("ignoring chat outside admin restriction", "chat_id", chatID)
		return
	}
	h.chats.Touch(chatID)

	if message.IsCommand() {
		h.chats.SetUserState(chatID, "")
		h.handleCommand(ctx, chatID, message)
		return
	}

	text := strings.TrimSpace(message.Text)
	if text == ButtonBack {
		h.chats.SetUserState(chatID, "")
		h.chats.ClearUserData(chatID)
		h.msgHandler.DeleteLastBotMessage(chatID)
		h.msgHandler.reply(chatID, "🏠 Main menu", CreateMainMenuKeyboard())
		return
	}

	if state, exists := h.chats.GetUserState(chatID); exists {
		if h.handleUserState(ctx, chatID, state, text) {
			return
		}
	}

	switch text {
	case ButtonNewNote:
		h.askForNote(ctx, chatID, "", "")
	case ButtonMyNotes:
		h.listNotes(ctx, chatID)
	case ButtonCategories:
		h.listCategories(ctx, chatID)
	case ButtonProjects:
		h.listProjects(ctx, chatID)
	case ButtonGroups:
		h.listGroups(ctx, chatID)
	case ButtonProfile:
		h.showProfile(ctx, chatID)
	default:
		h.msgHandler.reply(chatID, "Use the menu or /help to see what I can do", CreateMainMenuKeyboard())
	}
}

func (h *UpdateHandler) handleUserState(ctx context.Context, chatID int64, state, text string) bool {
	switch state {
	case StateWaitingForNoteText:
		data, _ := h.chats.GetUserData(chatID)
		h.chats.SetUserState(chatID, "")
		h.chats.ClearUserData(chatID)
		h.createNote(ctx, chatID, text, data.NoteID, data.ProjectID)
		return true

	case StateWaitingForCategoryName:
		data, _ := h.chats.GetUserData(chatID)
		h.chats.SetUserState(chatID, "")
		h.chats.ClearUserData(chatID)
		h.addCategory(ctx, chatID, text, data.ProjectID)
		return true
	}
	return false
}

func (h *UpdateHandler) handleCommand(ctx context.Context, chatID int64, message *tgbotapi.Message) {
	args := strings.Fields(message.CommandArguments())
	rest := strings.TrimSpace(message.CommandArguments())

	switch message.Command() {
	case "start":
		user, _ := h.currentUser(ctx, chatID)
		h.msgHandler.SendStartMessage(chatID, user != nil)
	case "help":
		h.msgHandler.SendHelp(chatID)
	case "register":
		h.msgHandler.DeleteMessage(chatID, message.MessageID)
		h.register(ctx, chatID, args)
	case "login":
		h.msgHandler.DeleteMessage(chatID, message.MessageID)
		h.login(ctx, chatID, args)
	case "logout":
		h.logout(ctx, chatID)
	case "me":
		h.showProfile(ctx, chatID)

	case "note":
		if rest == "" {
			h.askForNote(ctx, chatID, "", "")
			return
		}
		h.createNote(ctx, chatID, rest, "", "")
	case "sub":
		h.createSubNote(ctx, chatID, args)
	case "pnote":
		h.createProjectNote(ctx, chatID, args)
	case "notes":
		h.listNotes(ctx, chatID)
	case "done":
		h.completeNote(ctx, chatID, args)
	case "delete":
		h.deleteNote(ctx, chatID, args)
	case "share":
		h.shareNote(ctx, chatID, args)

	case "categories":
		h.listCategories(ctx, chatID)
	case "addcategory":
		if rest == "" {
			h.askForCategory(ctx, chatID, "")
			return
		}
		h.addCategory(ctx, chatID, rest, "")
	case "pcategory":
		h.addProjectCategory(ctx, chatID, args)
	case "delcategory":
		h.deleteCategory(ctx, chatID, rest)
	case "hidecategory":
		h.setCategoryActive(ctx, chatID, rest, false)
	case "showcategory":
		h.setCategoryActive(ctx, chatID, rest, true)
	case "resetcategories":
		h.resetCategories(ctx, chatID)

	case "projects":
		h.listProjects(ctx, chatID)
	case "newproject":
		h.createProject(ctx, chatID, rest)
	case "delproject":
		h.deleteProject(ctx, chatID, args)
	case "copycategories":
		h.copyCategoriesToProject(ctx, chatID, args)

	case "groups":
		h.listGroups(ctx, chatID)
	case "newgroup":
		h.createGroup(ctx, chatID, rest)
	case "join":
		h.joinGroup(ctx, chatID, args)
	case "approve":
		h.approveMember(ctx, chatID, args)
	case "delgroup":
		h.deleteGroup(ctx, chatID, args)

	default:
		h.msgHandler.reply(chatID, "🤔 Unknown command. Try /help", CreateMainMenuKeyboard())
	}
}

// currentUser resolves the account logged in from this chat.
func (h *UpdateHandler) currentUser(ctx context.Context, chatID int64) (*models.PublicUser, *database.Store) {
	session := h.store.ForChat(chatID)
	user, err := session.CurrentUser(ctx)
	if err != nil {
		h.log.Error("load session", "chat_id", chatID, "error", err)
		return nil, session
	}
	return user, session
}

// requireUser is currentUser that tells the chat to log in when nobody is.
func (h *UpdateHandler) requireUser(ctx context.Context, chatID int64) (*models.PublicUser, *database.Store, bool) {
	user, session := h.currentUser(ctx, chatID)
	if user == nil {
		h.msgHandler.reply(chatID, "🔒 You are not logged in.\n\n"+loginHelp, CreateLoggedOutKeyboard())
		return nil, nil, false
	}
	return user, session, true
}

func (h *UpdateHandler) fail(chatID int64, action string, err error) {
	h.log.Error(action, "chat_id", chatID, "error", err)
	h.msgHandler.reply(chatID, genericError, CreateMainMenuKeyboard())
}

func (h *UpdateHandler) register(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.msgHandler.reply(chatID, "Usage: /register <username> <password>", CreateLoggedOutKeyboard())
		return
	}

	session := h.store.ForChat(chatID)
	if _, err := session.Register(ctx, args[0], args[1]); err != nil {
		if errors.Is(err, database.ErrUsernameTaken) {
			h.msgHandler.reply(chatID, "❌ That username is taken, please pick another one.", CreateLoggedOutKeyboard())
			return
		}
		h.fail(chatID, "register", err)
		return
	}

	user, err := session.Login(ctx, args[0], args[1])
	if err != nil {
		h.fail(chatID, "login after register", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("✅ Welcome, %s! Your account is ready.", user.Username), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) login(ctx context.Context, chatID int64, args []string) {
	if len(args) != 2 {
		h.msgHandler.reply(chatID, "Usage: /login <username> <password>", CreateLoggedOutKeyboard())
		return
	}

	user, err := h.store.ForChat(chatID).Login(ctx, args[0], args[1])
	if errors.Is(err, database.ErrInvalidCredentials) {
		h.msgHandler.reply(chatID, "❌ Wrong username or password.", CreateLoggedOutKeyboard())
		return
	}
	if err != nil {
		h.fail(chatID, "login", err)
		return
	}
	h.msgHandler.reply(chatID, fmt.Sprintf("👋 Hello again, %s!", user.Username), CreateMainMenuKeyboard())
}

func (h *UpdateHandler) logout(ctx context.Context, chatID int64) {
	if err := h.store.ForChat(chatID).Logout(ctx); err != nil {
		h.fail(chatID, "logout", err)
		return
	}
	h.chats.ClearUserData(chatID)
	h.msgHandler.reply(chatID, "👋 Logged out.", CreateLoggedOutKeyboard())
}

func (h *UpdateHandler) showProfile(ctx context.Context, chatID int64) {
	user, _, ok := h.requireUser(ctx, chatID)
	if !ok {
		return
	}

	var b strings.Builder
	fmt.Fprintf(&b, "👤 %s\n🆔 %s", user.Username, user.ID)
	if user.Company != "" {
		fmt.Fprintf(&b, "\n🏢 %s", user.Company)
	}
	if user.Email != "" {
		fmt.Fprintf(&b, "\n✉️ %s", user.Email)
	}
	if user.Phone != "" {
		fmt.Fprintf(&b, "\n📞 %s", user.Phone)
	}
	h.msgHandler.reply(chatID, b.String(), CreateMainMenuKeyboard())
}
