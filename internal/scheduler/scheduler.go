package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
)

// Notifier delivers a reminder to a chat.
type Notifier interface {
	Notify(chatID int64, text string) error
}

type Scheduler struct {
	chats    storage.ChatStorage
	store    *database.Store
	notifier Notifier
	hour     int
	minute   int
	now      func() time.Time
	log      *slog.Logger
}

func NewScheduler(chats storage.ChatStorage, store *database.Store, notifier Notifier, hour, minute int, log *slog.Logger) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		chats:    chats,
		store:    store,
		notifier: notifier,
		hour:     hour,
		minute:   minute,
		now:      time.Now,
		log:      log,
	}
}

// NextRun returns the first hour:minute strictly after now, in now's location.
func NextRun(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start sends the daily reminders in the background until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		for {
			nextRun := NextRun(s.now(), s.hour, s.minute)
			wait := time.Until(nextRun)
			s.log.Info("next reminder run scheduled", "at", nextRun, "in", wait)

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}

			s.SendReminders(ctx)
		}
	}()
}

// SendReminders tells every active, logged-in chat which of its open notes are
// due today.
func (s *Scheduler) SendReminders(ctx context.Context) {
	today := s.now().Format("2006-01-02")

	for _, chatID := range s.chats.ActiveChats() {
		user, err := s.store.ForChat(chatID).CurrentUser(ctx)
		if err != nil {
			s.log.Error("load session", "chat_id", chatID, "error", err)
			continue
		}
		if user == nil {
			continue
		}

		due, err := s.store.DueNotes(ctx, user.ID, today)
		if err != nil {
			s.log.Error("load due notes", "user_id", user.ID, "error", err)
			continue
		}
		if len(due) == 0 {
			continue
		}

		if err := s.notifier.Notify(chatID, formatReminder(due)); err != nil {
			s.log.Error("send reminder", "chat_id", chatID, "error", err)
		}
	}
}

func formatReminder(notes []models.Note) string {
	var b strings.Builder
	b.WriteString("🌅 Good morning! Due today:\n")
	for _, n := range notes {
		fmt.Fprintf(&b, "\n⬜ %s", n.Text)
		if n.Time != "" {
			fmt.Fprintf(&b, " 🕒 %s", n.Time)
		}
		if n.Location != "" {
			fmt.Fprintf(&b, " 📍 %s", n.Location)
		}
	}
	return b.String()
}
