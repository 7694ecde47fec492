package database

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"golang.org/x/crypto/bcrypt"
)

// Register creates an account and seeds its general categories. Usernames are
// compared case-sensitively.
func (s *Store) Register(ctx context.Context, username, password string) (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return nil, ErrUsernameTaken
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{
		ID:       s.newID(),
		Username: username,
		Password: string(hash),
	}
	users = append(users, user)
	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}

	settings, err := s.loadCategoryMap(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.putGeneralCategories(ctx, settings, user.ID, models.DefaultCategorySettings()); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)
	pub := user.Public()
	return &pub, nil
}

// Login checks the credentials and stores the public projection in the
// session slot. Accounts still holding a plaintext password are upgraded to a
// bcrypt hash on their first successful login.
func (s *Store) Login(ctx context.Context, username, password string) (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	for i, u := range users {
		if u.Username != username {
			continue
		}
		ok, legacy := checkPassword(u.Password, password)
		if !ok {
			continue
		}
		if legacy {
			if err := s.upgradePassword(ctx, users, i, password); err != nil {
				return nil, err
			}
		}

		pub := u.Public()
		if err := s.saveObject(ctx, s.sessionKey, pub); err != nil {
			return nil, err
		}
		return &pub, nil
	}
	return nil, ErrInvalidCredentials
}

func (s *Store) upgradePassword(ctx context.Context, users []models.User, i int, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	users[i].Password = string(hash)
	s.log.Info("upgraded plaintext password", "user_id", users[i].ID)
	return s.saveUsers(ctx, users)
}

// checkPassword compares against a bcrypt hash, or against a legacy plaintext
// value, which is reported through legacy.
func checkPassword(stored, given string) (ok, legacy bool) {
	if isBcryptHash(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(given)) == nil, false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(given)) == 1, true
}

func isBcryptHash(s string) bool {
	if len(s) != 60 {
		return false
	}
	_, err := bcrypt.Cost([]byte(s))
	return err == nil && strings.HasPrefix(s, "$2")
}

// Logout clears the session slot.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.kv.Remove(ctx, s.sessionKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CurrentUser returns the logged-in user, or nil. A session that cannot be
// read or that points at a user who no longer exists is cleared.
func (s *Store) CurrentUser(ctx context.Context) (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var session models.PublicUser
	ok, err := s.loadObject(ctx, s.sessionKey, &session)
	if err != nil || !ok {
		return nil, err
	}

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if session.ID != "" && u.ID == session.ID {
			pub := u.Public()
			return &pub, nil
		}
	}

	s.log.Info("stale session cleared", "key", s.sessionKey, "user_id", session.ID)
	if err := s.kv.Remove(ctx, s.sessionKey); err != nil {
		return nil, fmt.Errorf("clear session: %w", err)
	}
	return nil, nil
}

// UpdateUser merges the profile fields of p into the stored user with the same
// id and refreshes the session.
func (s *Store) UpdateUser(ctx context.Context, p models.PublicUser) (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}

	idx := -1
	for i, u := range users {
		if u.ID == p.ID {
			idx = i
		} else if u.Username == p.Username {
			return nil, ErrUsernameTaken
		}
	}
	if idx < 0 {
		return nil, ErrUserNotFound
	}

	users[idx].Merge(p)
	if err := s.saveUsers(ctx, users); err != nil {
		return nil, err
	}

	pub := users[idx].Public()
	if err := s.saveObject(ctx, s.sessionKey, pub); err != nil {
		return nil, err
	}
	return &pub, nil
}

// Users lists every account's public projection.
func (s *Store) Users(ctx context.Context) ([]models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}
	return out, nil
}

// UserByUsername finds an account by exact username.
func (s *Store) UserByUsername(ctx context.Context, username string) (*models.PublicUser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsers(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			pub := u.Public()
			return &pub, nil
		}
	}
	return nil, ErrUserNotFound
}
