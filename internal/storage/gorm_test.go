package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestSQLite(t *testing.T, path string) *GormKV {
	t.Helper()
	kv, err := OpenGorm(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	return kv
}

func TestGormKV(t *testing.T) {
	kv := openTestSQLite(t, filepath.Join(t.TempDir(), "agenda.db"))
	defer kv.Close()

	exerciseKeyValue(t, kv)
	assert.True(t, IsDurable(kv))
}

func TestGormKVSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "agenda.db")

	kv := openTestSQLite(t, path)
	require.NoError(t, kv.Set(ctx, "projects", `[{"id":"p1"}]`))
	require.NoError(t, kv.Close())

	reopened := openTestSQLite(t, path)
	defer reopened.Close()

	v, ok, err := reopened.Get(ctx, "projects")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"p1"}]`, v)
}

func TestOpenGormRejectsUnknownDriver(t *testing.T) {
	_, err := OpenGorm(context.Background(), "oracle", "dsn")
	assert.Error(t, err)
}
