package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	ButtonNewNote    = "📝 New note"
	ButtonMyNotes    = "📋 My notes"
	ButtonCategories = "📂 Categories"
	ButtonProjects   = "📁 Projects"
	ButtonGroups     = "👥 Groups"
	ButtonProfile    = "👤 Profile"
	ButtonBack       = "⬅️ Back"
)

func CreateMainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonNewNote),
			tgbotapi.NewKeyboardButton(ButtonMyNotes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonCategories),
			tgbotapi.NewKeyboardButton(ButtonProjects),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonGroups),
			tgbotapi.NewKeyboardButton(ButtonProfile),
		),
	)
}

func CreateBackKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(ButtonBack),
		),
	)
}

// CreateLoggedOutKeyboard returns an empty markup; sendMessage removes the
// keyboard for it.
func CreateLoggedOutKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{}
}
