package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/internal/assist"
	"github.com/efrenluis/agenda-inteligente-ai/internal/bot"
	"github.com/efrenluis/agenda-inteligente-ai/internal/config"
	"github.com/efrenluis/agenda-inteligente-ai/internal/database"
	"github.com/efrenluis/agenda-inteligente-ai/internal/scheduler"
	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
)

type statsProvider interface {
	GetStats() map[string]interface{}
}

func monitorStorage(ctx context.Context, log *slog.Logger, sources map[string]any) {
	ticker := time.NewTicker(30 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for name, src := range sources {
				if s, ok := src.(statsProvider); ok {
					log.Info("storage stats", "source", name, "stats", s.GetStats())
				}
			}
		}
	}
}

func loadEnv() error {
	possiblePaths := []string{
		".env",
		"./.env",
		"../.env",
		"../../.env",
	}

	for _, path := range possiblePaths {
		if err := godotenv.Load(path); err == nil {
			slog.Info("loaded .env", "path", path)
			return nil
		}
	}

	wd, _ := os.Getwd()
	files, _ := filepath.Glob("*")
	slog.Debug("no .env found", "cwd", wd, "files", files)
	return fmt.Errorf("could not load .env file from any path")
}

func main() {
	if err := loadEnv(); err != nil {
		slog.Warn("continuing with system environment variables", "reason", err)
	}

	cfg := config.Load()
	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	for name, value := range map[string]string{"BOT_TOKEN": cfg.BotToken, "BOT_WEBHOOK_URL": cfg.WebhookURL} {
		if value == "" {
			log.Warn("environment variable is not set", "name", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kv := storage.Open(ctx, cfg.Storage, log)
	defer func() {
		if err := kv.Close(); err != nil {
			log.Error("close storage", "error", err)
		}
	}()
	store := database.New(kv, database.WithLogger(log))

	chats, err := storage.NewMemoryStorage(storage.DefaultChatCacheSize, storage.DefaultChatTTL)
	if err != nil {
		log.Error("create chat storage", "error", err)
		os.Exit(1)
	}
	go chats.StartCleanupRoutine(ctx, storage.DefaultCleanupInterval)
	go monitorStorage(ctx, log, map[string]any{"chats": chats, "kv": kv})

	var normalizer assist.Normalizer
	if cfg.Assist.Enabled() {
		normalizer = assist.New(cfg.Assist, log)
		log.Info("note assistant enabled", "model", cfg.Assist.Model)
	}

	api, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		log.Error("connect to telegram", "error", err)
		os.Exit(1)
	}
	log.Info("authorized", "account", api.Self.UserName)

	webhook, err := tgbotapi.NewWebhook(cfg.WebhookURL)
	if err != nil {
		log.Error("build webhook", "error", err)
		os.Exit(1)
	}
	if _, err := api.Request(webhook); err != nil {
		log.Error("register webhook", "error", err)
		os.Exit(1)
	}

	info, err := api.GetWebhookInfo()
	if err != nil {
		log.Error("get webhook info", "error", err)
		os.Exit(1)
	}
	if info.LastErrorDate != 0 {
		log.Warn("telegram reported a webhook error", "message", info.LastErrorMessage)
	}

	updates := api.ListenForWebhook("/")

	server := http.Server{Addr: ":" + cfg.HTTPPort}
	go func() {
		log.Info("listening", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	updateHandler := bot.NewUpdateHandler(api, store, chats, normalizer, cfg.AdminChatID, log)
	go updateHandler.HandleUpdates(ctx, updates)

	reminders := scheduler.NewScheduler(chats, store, updateHandler.GetMessageHandler(), cfg.ReminderHour, cfg.ReminderMinute, log)
	reminders.Start(ctx)

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", "error", err)
	}
	log.Info("server gracefully stopped")
}
