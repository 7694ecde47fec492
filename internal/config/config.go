package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/assist"
	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
)

type Config struct {
	Storage storage.Config

	BotToken    string
	HTTPPort    string
	WebhookURL  string
	AdminChatID int64

	Assist assist.Config

	ReminderHour   int
	ReminderMinute int

	LogLevel slog.Level
}

func Load() Config {
	return Config{
		Storage: storage.Config{
			Driver:     getenv("STORAGE_DRIVER", storage.DriverMemory),
			SQLitePath: getenv("SQLITE_PATH", "./data/agenda.db"),
			MySQLDSN:   mysqlDSN(),
			RedisURL:   getenv("REDIS_URL", "redis://localhost:6379/0"),
			Prefix:     getenv("STORAGE_PREFIX", "agenda:"),
			CacheSize:  getenvInt("STORAGE_CACHE_SIZE", storage.DefaultCacheSize),
		},
		BotToken:    getenv("BOT_TOKEN", ""),
		HTTPPort:    getenv("HTTP_PORT", "8080"),
		WebhookURL:  getenv("BOT_WEBHOOK_URL", ""),
		AdminChatID: int64(getenvInt("ADMIN_CHAT_ID", 0)),
		// Assist is disabled when no API key is set.
		Assist: assist.Config{
			APIKey:  getenv("OPENAI_API_KEY", ""),
			BaseURL: getenv("OPENAI_BASE_URL", ""),
			Model:   getenv("OPENAI_MODEL", assist.DefaultModel),
		},
		ReminderHour:   clamp(getenvInt("REMINDER_HOUR", 9), 0, 23),
		ReminderMinute: clamp(getenvInt("REMINDER_MINUTE", 0), 0, 59),
		LogLevel:       parseLevel(getenv("LOG_LEVEL", "info")),
	}
}

// mysqlDSN is empty unless DB_HOST is set.
func mysqlDSN() string {
	host := getenv("DB_HOST", "")
	if host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		getenv("DB_USERNAME", "root"),
		getenv("DB_PASSWORD", ""),
		host,
		getenv("DB_PORT", "3306"),
		getenv("DB_DATABASE", "agenda"),
	)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
