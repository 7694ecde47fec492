package bot

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram rejects messages longer than this many bytes of text.
const maxMessageLength = 4096

const (
	StateWaitingForNoteText     = "waiting_for_note_text"
	StateWaitingForCategoryName = "waiting_for_category_name"
)

// Sender is the part of *tgbotapi.BotAPI the bot uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type MessageHandler struct {
	bot   Sender
	chats storage.ChatStorage
	log   *slog.Logger
}

func NewMessageHandler(bot Sender, chats storage.ChatStorage, log *slog.Logger) *MessageHandler {
	return &MessageHandler{bot: bot, chats: chats, log: log}
}

func (h *MessageHandler) sendMessage(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) error {
	msg := tgbotapi.NewMessage(chatID, text)

	if keyboard.Keyboard != nil {
		msg.ReplyMarkup = keyboard
	} else {
		msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	}

	sentMsg, err := h.bot.Send(msg)
	if err != nil {
		return fmt.Errorf("send message failed: %w", err)
	}

	h.chats.SetLastMessageID(chatID, sentMsg.MessageID)
	return nil
}

// reply sends text and logs instead of returning a failure.
func (h *MessageHandler) reply(chatID int64, text string, keyboard tgbotapi.ReplyKeyboardMarkup) {
	for _, part := range splitMessage(text, maxMessageLength) {
		if err := h.sendMessage(chatID, part, keyboard); err != nil {
			h.log.Error("reply failed", "chat_id", chatID, "error", err)
			return
		}
	}
}

// Notify sends an unsolicited message with the main menu attached.
func (h *MessageHandler) Notify(chatID int64, text string) error {
	for _, part := range splitMessage(text, maxMessageLength) {
		if err := h.sendMessage(chatID, part, CreateMainMenuKeyboard()); err != nil {
			return err
		}
	}
	return nil
}

func (h *MessageHandler) SendStartMessage(chatID int64, loggedIn bool) {
	text := `👋 Welcome to your agenda!

✨ What I can do:
• 📝 Notes and tasks, with sub-tasks
• 📂 Colored categories
• 📁 Projects with their own categories
• 👥 Groups to share notes with
• 🔔 A morning reminder of what is due today`

	if loggedIn {
		h.reply(chatID, text, CreateMainMenuKeyboard())
		return
	}
	h.reply(chatID, text+"\n\n"+loginHelp, CreateLoggedOutKeyboard())
}

const loginHelp = `🔑 Sign in with /login <username> <password>
🆕 or create an account with /register <username> <password>`

func (h *MessageHandler) SendHelp(chatID int64) {
	h.reply(chatID, `📖 Commands

/note <text> create a note
/sub <noteId> <text> add a sub-note
/pnote <projectId> <text> add a note to a project
/notes list your notes
/done <noteId> mark a note done
/delete <noteId> delete a note and its sub-notes
/share <noteId> <username | group:groupId> share a note
/categories list categories
/addcategory <name>, /delcategory <name>
/hidecategory <name>, /showcategory <name>, /resetcategories
/projects, /newproject <name>, /delproject <projectId>
/pcategory <projectId> <name>, /copycategories <projectId>
/groups, /newgroup <name>, /join <groupId>, /delgroup <groupId>
/approve <groupId> <username>
/me, /logout`, CreateMainMenuKeyboard())
}

// DeleteMessage removes a message, e.g. one that carried a password.
func (h *MessageHandler) DeleteMessage(chatID int64, messageID int) {
	deleteConfig := tgbotapi.NewDeleteMessage(chatID, messageID)
	if _, err := h.bot.Request(deleteConfig); err != nil {
		h.log.Debug("delete message failed", "chat_id", chatID, "error", err)
	}
}

func (h *MessageHandler) DeleteLastBotMessage(chatID int64) {
	if messageID, exists := h.chats.GetLastMessageID(chatID); exists {
		h.DeleteMessage(chatID, messageID)
	}
}

// splitMessage cuts text into parts of at most maxLength bytes, preferring
// line breaks and never splitting a UTF-8 sequence.
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var parts []string
	for len(text) > 0 {
		if len(text) <= maxLength {
			parts = append(parts, text)
			break
		}

		splitIndex := strings.LastIndex(text[:maxLength], "\n")
		if splitIndex <= 0 {
			splitIndex = maxLength
			for splitIndex > 0 && !isRuneStart(text[splitIndex]) {
				splitIndex--
			}
			if splitIndex == 0 {
				splitIndex = maxLength
			}
		}

		parts = append(parts, text[:splitIndex])
		text = strings.TrimPrefix(text[splitIndex:], "\n")
	}
	return parts
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
