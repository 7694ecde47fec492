// Package database is the persistence and consistency layer of the agenda.
//
// A Store keeps five ledgers (users, notes, projects, groups and per-user
// category settings) as whole JSON documents in a storage.KeyValue. Every
// operation loads what it needs, transforms it and writes it back; operations
// that touch several ledgers (deleting a category, a group or a project) keep
// the references between them consistent, since the substrate enforces none.
package database

import (
	"errors"
	"log/slog"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/efrenluis/agenda-inteligente-ai/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Persisted slot names.
const (
	KeyUsers            = "users"
	KeyNotes            = "notes"
	KeyGroups           = "groups"
	KeyProjects         = "projects"
	KeySession          = "session"
	KeyCategorySettings = "categorySettings"
	KeyCustomTabs       = "customTabs"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrUserNotFound       = errors.New("user not found")
)

// Store is safe for use by several goroutines: operations are serialized so a
// load and its matching save are never interleaved with another operation of
// the same process. Writers in other processes are not coordinated.
type Store struct {
	kv         storage.KeyValue
	log        *slog.Logger
	mu         *sync.Mutex
	sessionKey string
	hashCost   int
	now        func() time.Time
	newID      func() string
	pick       func(n int) int
}

type Option func(*Store)

func WithLogger(log *slog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithClock overrides the time source used for creation timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides how new entity ids are produced.
func WithIDGenerator(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// WithHashCost sets the bcrypt cost for new password hashes.
func WithHashCost(cost int) Option {
	return func(s *Store) { s.hashCost = cost }
}

// WithRandom overrides the source used to pick project colors; pick returns a
// number in [0, n).
func WithRandom(pick func(n int) int) Option {
	return func(s *Store) { s.pick = pick }
}

func New(kv storage.KeyValue, opts ...Option) *Store {
	s := &Store{
		kv:         kv,
		log:        slog.Default(),
		mu:         &sync.Mutex{},
		sessionKey: KeySession,
		hashCost:   bcrypt.DefaultCost,
		now:        time.Now,
		newID:      uuid.NewString,
		pick:       rand.Intn,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithSessionSlot returns a view of the store whose login session lives in its
// own slot. Ledgers and the operation lock are shared with s.
func (s *Store) WithSessionSlot(client string) *Store {
	view := *s
	view.sessionKey = KeySession + ":" + client
	return &view
}

// ForChat is WithSessionSlot for a Telegram chat.
func (s *Store) ForChat(chatID int64) *Store {
	return s.WithSessionSlot("chat:" + strconv.FormatInt(chatID, 10))
}

func (s *Store) SessionKey() string {
	return s.sessionKey
}
