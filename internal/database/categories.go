package database

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
)

var ErrEmptyTab = errors.New("custom tab has no value")

// MigrateCategories turns any stored category shape into CategorySettings.
// Accepted inputs are a bare list of names, an object whose masterList holds
// names or {name, color} objects, and the current shape. Anything else yields
// empty settings. Feeding the result back in returns it unchanged.
func MigrateCategories(raw json.RawMessage) models.CategorySettings {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return models.EmptyCategorySettings()
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(raw, &list); err != nil {
			return models.EmptyCategorySettings()
		}
		master := resolveCategories(list)
		return models.CategorySettings{MasterList: master, Active: namesOf(master)}

	case '{':
		var obj struct {
			MasterList json.RawMessage `json:"masterList"`
			Active     json.RawMessage `json:"active"`
		}
		if err := json.Unmarshal(raw, &obj); err != nil {
			return models.EmptyCategorySettings()
		}
		var list []json.RawMessage
		if err := json.Unmarshal(obj.MasterList, &list); err != nil || list == nil {
			return models.EmptyCategorySettings()
		}
		master := resolveCategories(list)

		var active []json.RawMessage
		if err := json.Unmarshal(obj.Active, &active); err != nil || active == nil {
			return models.CategorySettings{MasterList: master, Active: namesOf(master)}
		}
		names := make([]string, 0, len(active))
		for _, a := range active {
			if name, ok := jsonString(a); ok {
				names = append(names, name)
			}
		}
		return models.CategorySettings{MasterList: master, Active: names}
	}
	return models.EmptyCategorySettings()
}

func resolveCategories(list []json.RawMessage) []models.Category {
	master := make([]models.Category, 0, len(list))
	for _, elem := range list {
		if name, ok := jsonString(elem); ok {
			master = append(master, models.Category{Name: name, Color: models.ColorForName(name)})
			continue
		}
		var c struct {
			Name  *string `json:"name"`
			Color string  `json:"color"`
		}
		if json.Unmarshal(elem, &c) != nil || c.Name == nil {
			continue
		}
		if c.Color == "" {
			c.Color = models.ColorForName(*c.Name)
		}
		master = append(master, models.Category{Name: *c.Name, Color: c.Color})
	}
	return master
}

func jsonString(raw json.RawMessage) (string, bool) {
	var s string
	if len(raw) == 0 || raw[0] != '"' || json.Unmarshal(raw, &s) != nil {
		return "", false
	}
	return s, true
}

func namesOf(master []models.Category) []string {
	names := make([]string, 0, len(master))
	for _, c := range master {
		names = append(names, c.Name)
	}
	return names
}

// canonicalJSON re-encodes v with object keys sorted so two documents can be
// compared byte for byte.
func canonicalJSON(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil
	}
	out, _ := json.Marshal(generic)
	return out
}

func sameJSON(a, b any) bool {
	ca, cb := canonicalJSON(a), canonicalJSON(b)
	return ca != nil && bytes.Equal(ca, cb)
}

// migrateProjectCategories rewrites a project's categories field into the
// current shape.
func migrateProjectCategories(f map[string]any) bool {
	current, ok := f["categories"]
	var raw []byte
	if ok && current != nil {
		raw, _ = json.Marshal(current)
	}
	migrated := MigrateCategories(raw)
	if ok && sameJSON(current, migrated) {
		return false
	}
	f["categories"] = migrated
	return true
}

func (s *Store) loadCategoryMap(ctx context.Context) (map[string]json.RawMessage, error) {
	var m map[string]json.RawMessage
	if _, err := s.loadObject(ctx, KeyCategorySettings, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string]json.RawMessage)
	}
	return m, nil
}

func (s *Store) putGeneralCategories(ctx context.Context, m map[string]json.RawMessage, userID string, settings models.CategorySettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode categories: %w", err)
	}
	m[userID] = data
	return s.saveObject(ctx, KeyCategorySettings, m)
}

// generalCategories returns the user's settings, seeding defaults for a user
// without any and persisting a migrated shape.
func (s *Store) generalCategories(ctx context.Context, m map[string]json.RawMessage, userID string) (models.CategorySettings, error) {
	raw, ok := m[userID]
	if !ok {
		settings := models.DefaultCategorySettings()
		return settings, s.putGeneralCategories(ctx, m, userID, settings)
	}

	settings := MigrateCategories(raw)
	var stored any
	if json.Unmarshal(raw, &stored) != nil || !sameJSON(stored, settings) {
		s.log.Info("migrated general categories", "user_id", userID)
		return settings, s.putGeneralCategories(ctx, m, userID, settings)
	}
	return settings, nil
}

// GeneralCategories returns the categories of userID that are not tied to a
// project.
func (s *Store) GeneralCategories(ctx context.Context, userID string) (models.CategorySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadCategoryMap(ctx)
	if err != nil {
		return models.EmptyCategorySettings(), err
	}
	return s.generalCategories(ctx, m, userID)
}

func (s *Store) SaveGeneralCategories(ctx context.Context, userID string, settings models.CategorySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.loadCategoryMap(ctx)
	if err != nil {
		return err
	}
	return s.putGeneralCategories(ctx, m, userID, normalizeSettings(settings))
}

// ProjectCategories returns a project's categories. Unknown projects have none.
func (s *Store) ProjectCategories(ctx context.Context, projectID string) (models.CategorySettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, migrated, err := s.loadProjects(ctx)
	if err != nil {
		return models.EmptyCategorySettings(), err
	}
	if migrated {
		s.log.Info("migrated project categories")
		if err := s.saveProjects(ctx, projects); err != nil {
			return models.EmptyCategorySettings(), err
		}
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p.Categories, nil
		}
	}
	return models.EmptyCategorySettings(), nil
}

func (s *Store) SaveProjectCategories(ctx context.Context, projectID string, settings models.CategorySettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectID == "" {
		return nil
	}
	return s.updateScope(ctx, "", projectID, func(cur *models.CategorySettings) bool {
		*cur = normalizeSettings(settings)
		return true
	})
}

// updateScope applies change to the general settings of userID, or to the
// settings of projectID when it is set. Unknown projects are left alone.
func (s *Store) updateScope(ctx context.Context, userID, projectID string, change func(*models.CategorySettings) bool) error {
	if projectID == "" {
		m, err := s.loadCategoryMap(ctx)
		if err != nil {
			return err
		}
		settings, err := s.generalCategories(ctx, m, userID)
		if err != nil {
			return err
		}
		if !change(&settings) {
			return nil
		}
		return s.putGeneralCategories(ctx, m, userID, settings)
	}

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID != projectID {
			continue
		}
		if !change(&projects[i].Categories) {
			return nil
		}
		return s.saveProjects(ctx, projects)
	}
	return nil
}

// AddCategory appends c to the scope and activates it. It reports false when
// the name is blank, already present (ignoring case) or the project is unknown.
func (s *Store) AddCategory(ctx context.Context, userID string, c models.Category, projectID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return false, nil
	}
	if c.Color == "" {
		c.Color = models.ColorForName(c.Name)
	}

	added := false
	err := s.updateScope(ctx, userID, projectID, func(cur *models.CategorySettings) bool {
		if _, exists := cur.Find(c.Name); exists {
			return false
		}
		cur.MasterList = append(cur.MasterList, c)
		if !cur.IsActive(c.Name) {
			cur.Active = append(cur.Active, c.Name)
		}
		added = true
		return true
	})
	return added, err
}

// SetCategoryActive turns a category of the scope on or off. Names missing from
// the master list are ignored.
func (s *Store) SetCategoryActive(ctx context.Context, userID, name, projectID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateScope(ctx, userID, projectID, func(cur *models.CategorySettings) bool {
		c, ok := cur.Find(name)
		if !ok || cur.IsActive(c.Name) == active {
			return false
		}
		if active {
			cur.Active = append(cur.Active, c.Name)
			return true
		}
		kept := make([]string, 0, len(cur.Active))
		for _, a := range cur.Active {
			if a != c.Name {
				kept = append(kept, a)
			}
		}
		cur.Active = kept
		return true
	})
}

// DeleteCategory removes name from the general scope of userID, or from the
// project's scope when projectID is set, then strips it from every note in the
// ledger whichever scope the note was tagged in.
func (s *Store) DeleteCategory(ctx context.Context, userID, name, projectID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.updateScope(ctx, userID, projectID, func(cur *models.CategorySettings) bool {
		*cur = cur.Without(name)
		return true
	})
	if err != nil {
		return err
	}

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}
	for i := range notes {
		kept := make([]string, 0, len(notes[i].Categories))
		for _, c := range notes[i].Categories {
			if c != name {
				kept = append(kept, c)
			}
		}
		notes[i].Categories = kept
	}
	return s.saveNotes(ctx, notes)
}

func normalizeSettings(settings models.CategorySettings) models.CategorySettings {
	if settings.MasterList == nil {
		settings.MasterList = []models.Category{}
	}
	if settings.Active == nil {
		settings.Active = []string{}
	}
	return settings
}

func (s *Store) loadTabMap(ctx context.Context) (map[string][]models.CustomTab, error) {
	var m map[string][]models.CustomTab
	if _, err := s.loadObject(ctx, KeyCustomTabs, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = make(map[string][]models.CustomTab)
	}
	return m, nil
}

// updateTabs applies change to the general tabs of userID, or to the tabs of
// projectID when it is set.
func (s *Store) updateTabs(ctx context.Context, userID, projectID string, change func([]models.CustomTab) ([]models.CustomTab, bool)) error {
	if projectID == "" {
		m, err := s.loadTabMap(ctx)
		if err != nil {
			return err
		}
		tabs, changed := change(m[userID])
		if !changed {
			return nil
		}
		m[userID] = tabs
		return s.saveObject(ctx, KeyCustomTabs, m)
	}

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID != projectID {
			continue
		}
		tabs, changed := change(projects[i].Tabs)
		if !changed {
			return nil
		}
		projects[i].Tabs = tabs
		return s.saveProjects(ctx, projects)
	}
	return nil
}

// AddCustomTab saves a view over tab.Value. The tab id is derived from the
// value, so adding a selection that already has a tab returns that tab and
// false instead of creating a second one.
func (s *Store) AddCustomTab(ctx context.Context, userID, projectID string, tab models.CustomTab) (models.CustomTab, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(tab.Value) == 0 {
		return models.CustomTab{}, false, ErrEmptyTab
	}
	tab.ID = models.TabID(tab.Value)
	if tab.Name == "" {
		tab.Name = strings.Join(tab.Value, " + ")
	}
	if tab.Type == "" {
		tab.Type = defaultTabType(projectID != "", len(tab.Value) > 1)
	}

	result, added := tab, false
	err := s.updateTabs(ctx, userID, projectID, func(tabs []models.CustomTab) ([]models.CustomTab, bool) {
		for _, existing := range tabs {
			if existing.ID == tab.ID {
				result = existing
				return tabs, false
			}
		}
		added = true
		return append(tabs, tab), true
	})
	return result, added, err
}

func defaultTabType(project, multi bool) models.TabType {
	switch {
	case project && multi:
		return models.TabTypeProjectMultiCategory
	case project:
		return models.TabTypeProjectCategory
	case multi:
		return models.TabTypeMultiCategory
	}
	return models.TabTypeCategory
}

// CustomTabs lists the general tabs of userID, or the tabs of projectID.
func (s *Store) CustomTabs(ctx context.Context, userID, projectID string) ([]models.CustomTab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if projectID == "" {
		m, err := s.loadTabMap(ctx)
		if err != nil {
			return nil, err
		}
		if tabs := m[userID]; tabs != nil {
			return tabs, nil
		}
		return []models.CustomTab{}, nil
	}

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == projectID {
			return p.Tabs, nil
		}
	}
	return []models.CustomTab{}, nil
}

func (s *Store) RemoveCustomTab(ctx context.Context, userID, projectID, tabID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.updateTabs(ctx, userID, projectID, func(tabs []models.CustomTab) ([]models.CustomTab, bool) {
		kept := make([]models.CustomTab, 0, len(tabs))
		for _, t := range tabs {
			if t.ID != tabID {
				kept = append(kept, t)
			}
		}
		return kept, len(kept) != len(tabs)
	})
}
