package database

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
)

// fieldCheck is a minimal structural validator over a decoded record.
type fieldCheck func(fields map[string]any) bool

// fieldMigration rewrites legacy fields in place and reports whether it
// changed anything.
type fieldMigration func(fields map[string]any) bool

// loadLedger reads a JSON array slot. A slot that is not a JSON array is wiped
// and read as empty. Records that fail check are skipped; they stay in the slot
// until the ledger is saved again. dirty reports whether migrate rewrote any
// record.
func loadLedger[T any](ctx context.Context, s *Store, key string, migrate fieldMigration, check fieldCheck) (items []T, dirty bool, err error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return []T{}, false, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elems); err != nil || elems == nil {
		if err == nil {
			err = fmt.Errorf("top-level value is not an array")
		}
		if werr := s.wipe(ctx, key, err); werr != nil {
			return nil, false, werr
		}
		return []T{}, false, nil
	}

	items = make([]T, 0, len(elems))
	for i, elem := range elems {
		var fields map[string]any
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			s.log.Warn("dropping malformed record", "ledger", key, "index", i)
			continue
		}
		if migrate != nil && migrate(fields) {
			dirty = true
			if elem, err = json.Marshal(fields); err != nil {
				continue
			}
		}
		if !check(fields) {
			s.log.Warn("dropping invalid record", "ledger", key, "index", i)
			continue
		}
		var item T
		if err := json.Unmarshal(elem, &item); err != nil {
			s.log.Warn("dropping undecodable record", "ledger", key, "index", i, "error", err)
			continue
		}
		items = append(items, item)
	}
	return items, dirty, nil
}

func saveLedger[T any](ctx context.Context, s *Store, key string, items []T) error {
	if items == nil {
		items = []T{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// loadObject decodes a JSON object slot into dst. It returns false when the
// slot is absent or was corrupt; a corrupt slot is wiped.
func (s *Store) loadObject(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok {
		return false, nil
	}

	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return false, s.wipe(ctx, key, fmt.Errorf("top-level value is not an object"))
	}
	if err := json.Unmarshal(trimmed, dst); err != nil {
		return false, s.wipe(ctx, key, err)
	}
	return true, nil
}

func (s *Store) saveObject(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.kv.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (s *Store) wipe(ctx context.Context, key string, cause error) error {
	s.log.Warn("corrupted slot reset", "key", key, "error", cause)
	if err := s.kv.Remove(ctx, key); err != nil {
		return fmt.Errorf("reset %s: %w", key, err)
	}
	return nil
}

func (s *Store) loadUsers(ctx context.Context) ([]models.User, error) {
	users, _, err := loadLedger[models.User](ctx, s, KeyUsers, nil, validUser)
	return users, err
}

func (s *Store) saveUsers(ctx context.Context, users []models.User) error {
	return saveLedger(ctx, s, KeyUsers, users)
}

func (s *Store) loadNotes(ctx context.Context) ([]models.Note, error) {
	notes, _, err := loadLedger[models.Note](ctx, s, KeyNotes, migrateLegacyProjectID, validNote)
	if err != nil {
		return nil, err
	}
	for i := range notes {
		normalizeNote(&notes[i])
	}
	return notes, nil
}

func (s *Store) saveNotes(ctx context.Context, notes []models.Note) error {
	return saveLedger(ctx, s, KeyNotes, notes)
}

func (s *Store) loadGroups(ctx context.Context) ([]models.Group, error) {
	groups, _, err := loadLedger[models.Group](ctx, s, KeyGroups, nil, validGroup)
	return groups, err
}

func (s *Store) saveGroups(ctx context.Context, groups []models.Group) error {
	return saveLedger(ctx, s, KeyGroups, groups)
}

// loadProjects also migrates each project's category settings; migrated
// reports whether any project needed it.
func (s *Store) loadProjects(ctx context.Context) (projects []models.Project, migrated bool, err error) {
	projects, migrated, err = loadLedger[models.Project](ctx, s, KeyProjects, migrateProjectCategories, validProject)
	if err != nil {
		return nil, false, err
	}
	for i := range projects {
		if projects[i].Tabs == nil {
			projects[i].Tabs = []models.CustomTab{}
		}
	}
	return projects, migrated, nil
}

func (s *Store) saveProjects(ctx context.Context, projects []models.Project) error {
	return saveLedger(ctx, s, KeyProjects, projects)
}

func validUser(f map[string]any) bool {
	return hasStrings(f, "id", "username", "password")
}

func validNote(f map[string]any) bool {
	return hasStrings(f, "id", "text", "ownerId") &&
		optional[[]any](f, "categories") &&
		optional[bool](f, "isCompleted")
}

func validProject(f map[string]any) bool {
	return hasStrings(f, "id", "name", "ownerId")
}

func validGroup(f map[string]any) bool {
	_, ok := f["members"].([]any)
	return ok && hasStrings(f, "id", "name", "ownerId")
}

func hasStrings(f map[string]any, keys ...string) bool {
	for _, k := range keys {
		if _, ok := f[k].(string); !ok {
			return false
		}
	}
	return true
}

// optional accepts a field that is absent, null or of type T.
func optional[T any](f map[string]any, key string) bool {
	v, ok := f[key]
	if !ok || v == nil {
		return true
	}
	_, ok = v.(T)
	return ok
}

// migrateLegacyProjectID turns the old singular projectId into projectIds.
func migrateLegacyProjectID(f map[string]any) bool {
	legacy, ok := f["projectId"]
	if !ok {
		return false
	}
	delete(f, "projectId")

	id, ok := legacy.(string)
	if !ok || id == "" {
		return true
	}
	ids, _ := f["projectIds"].([]any)
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	f["projectIds"] = append(ids, id)
	return true
}

func normalizeNote(n *models.Note) {
	if n.Categories == nil {
		n.Categories = []string{}
	}
	n.SharedWith = n.SharedWith.Normalize()
}
