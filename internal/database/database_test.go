package database

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testNow = time.Date(2025, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) (*Store, *storage.MemoryKV) {
	t.Helper()

	kv := storage.NewMemoryKV()
	seq := 0
	s := New(kv,
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithHashCost(bcrypt.MinCost),
		WithClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string {
			seq++
			return fmt.Sprintf("id-%d", seq)
		}),
		WithRandom(func(int) int { return 0 }),
	)
	return s, kv
}

// readSlot decodes the raw JSON stored under key.
func readSlot(t *testing.T, kv storage.KeyValue, key string, dst any) {
	t.Helper()

	raw, ok, err := kv.Get(context.Background(), key)
	require.NoError(t, err)
	require.True(t, ok, "slot %q is empty", key)
	require.NoError(t, json.Unmarshal([]byte(raw), dst))
}

func writeSlot(t *testing.T, kv storage.KeyValue, key, raw string) {
	t.Helper()
	require.NoError(t, kv.Set(context.Background(), key, raw))
}
