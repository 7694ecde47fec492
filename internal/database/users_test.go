package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestRegisterThenLogin(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	registered, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NotNil(t, registered)
	assert.Equal(t, "alice", registered.Username)
	assert.NotEmpty(t, registered.ID)

	loggedIn, err := s.Login(ctx, "alice", "pw1")
	require.NoError(t, err)
	require.NotNil(t, loggedIn)
	assert.Equal(t, registered.ID, loggedIn.ID)

	data, err := json.Marshal(loggedIn)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")

	var users []models.User
	readSlot(t, kv, KeyUsers, &users)
	require.Len(t, users, 1)
	assert.NotEqual(t, "pw1", users[0].Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("pw1")))
}

func TestRegisterDuplicateUsername(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	dup, err := s.Register(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Nil(t, dup)

	users, err := s.Users(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	// Case matters.
	_, err = s.Register(ctx, "Alice", "pw")
	assert.NoError(t, err)
}

func TestRegisterSeedsGeneralCategories(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	settings, err := s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategorySettings(), settings)
	assert.Len(t, settings.MasterList, 9)
	assert.Len(t, settings.Active, 9)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	u, err := s.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.Nil(t, u)

	_, err = s.Login(ctx, "bob", "pw1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	current, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)
}

func TestLoginUpgradesPlaintextPassword(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyUsers, `[{"id":"u1","username":"bob","password":"secret"}]`)

	u, err := s.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)

	var users []models.User
	readSlot(t, kv, KeyUsers, &users)
	require.Len(t, users, 1)
	assert.NotEqual(t, "secret", users[0].Password)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(users[0].Password), []byte("secret")))

	again, err := s.Login(ctx, "bob", "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", again.ID)
}

func TestSessionLifecycle(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = s.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	current, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, u.ID, current.ID)

	require.NoError(t, s.Logout(ctx))
	current, err = s.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, current)

	_, ok, err := kv.Get(ctx, KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCurrentUserClearsStaleSession(t *testing.T) {
	tests := []struct {
		name    string
		session string
	}{
		{"deleted user", `{"id":"ghost","username":"ghost"}`},
		{"not json", `not json at all`},
		{"array", `[]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, kv := newTestStore(t)
			ctx := context.Background()
			writeSlot(t, kv, KeySession, tt.session)

			current, err := s.CurrentUser(ctx)
			require.NoError(t, err)
			assert.Nil(t, current)

			_, ok, err := kv.Get(ctx, KeySession)
			require.NoError(t, err)
			assert.False(t, ok, "stale session must be removed")
		})
	}
}

func TestSessionSlotsAreIndependent(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	_, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	first, second := s.ForChat(1), s.ForChat(2)
	assert.Equal(t, "session:chat:1", first.SessionKey())

	_, err = first.Login(ctx, "alice", "pw1")
	require.NoError(t, err)

	u, err := first.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, u)

	u, err = second.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, u)

	_, ok, err := kv.Get(ctx, KeySession)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateUser(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	alice, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = s.Register(ctx, "bob", "pw2")
	require.NoError(t, err)

	profile := *alice
	profile.Company = "Acme"
	profile.Email = "alice@example.com"
	updated, err := s.UpdateUser(ctx, profile)
	require.NoError(t, err)
	assert.Equal(t, "Acme", updated.Company)

	current, err := s.CurrentUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, "alice@example.com", current.Email)

	// The password survives a profile update.
	_, err = s.Login(ctx, "alice", "pw1")
	assert.NoError(t, err)

	profile.Username = "bob"
	_, err = s.UpdateUser(ctx, profile)
	assert.ErrorIs(t, err, ErrUsernameTaken)

	_, err = s.UpdateUser(ctx, models.PublicUser{ID: "missing", Username: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
