package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrateCategories(t *testing.T) {
	gym := models.ColorForName("Gym")

	tests := []struct {
		name string
		raw  string
		want models.CategorySettings
	}{
		{
			name: "bare list of names",
			raw:  `["Work","Gym"]`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "Work", Color: "cat-blue"}, {Name: "Gym", Color: gym}},
				Active:     []string{"Work", "Gym"},
			},
		},
		{
			name: "master list of names keeps active",
			raw:  `{"masterList":["work","Gym"],"active":["Gym"]}`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "work", Color: "cat-blue"}, {Name: "Gym", Color: gym}},
				Active:     []string{"Gym"},
			},
		},
		{
			name: "current shape",
			raw:  `{"masterList":[{"name":"Design","color":"cat-sky"}],"active":["Design"]}`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "Design", Color: "cat-sky"}},
				Active:     []string{"Design"},
			},
		},
		{
			name: "missing active means all",
			raw:  `{"masterList":[{"name":"Design","color":"cat-sky"}]}`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "Design", Color: "cat-sky"}},
				Active:     []string{"Design"},
			},
		},
		{
			name: "object without color",
			raw:  `[{"name":"Gym"}]`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "Gym", Color: gym}},
				Active:     []string{"Gym"},
			},
		},
		{
			name: "junk elements skipped",
			raw:  `{"masterList":["Gym",null,7,{"color":"cat-red"}],"active":["Gym",null,3]}`,
			want: models.CategorySettings{
				MasterList: []models.Category{{Name: "Gym", Color: gym}},
				Active:     []string{"Gym"},
			},
		},
		{name: "master list not an array", raw: `{"masterList":"Work","active":[]}`, want: models.EmptyCategorySettings()},
		{name: "empty object", raw: `{}`, want: models.EmptyCategorySettings()},
		{name: "string", raw: `"Work"`, want: models.EmptyCategorySettings()},
		{name: "null", raw: `null`, want: models.EmptyCategorySettings()},
		{name: "empty input", raw: ``, want: models.EmptyCategorySettings()},
		{name: "broken json", raw: `{"masterList":[`, want: models.EmptyCategorySettings()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MigrateCategories(json.RawMessage(tt.raw))
			assert.Equal(t, tt.want, got)

			encoded, err := json.Marshal(got)
			require.NoError(t, err)
			assert.Equal(t, got, MigrateCategories(encoded), "migration must be idempotent")
		})
	}
}

func TestColorForName(t *testing.T) {
	assert.Equal(t, "cat-orange", models.ColorForName("a"))
	assert.Equal(t, "cat-purple", models.ColorForName("ab"))
	assert.Equal(t, "cat-blue", models.ColorForName("WORK"))

	for _, name := range []string{"Gym", "Reading list", "Überweisung", "日本語", "🎉 party"} {
		first := models.ColorForName(name)
		assert.Contains(t, models.Palette, first)
		assert.Equal(t, first, models.ColorForName(name))
	}
}

func TestGeneralCategoriesMigratesStoredShape(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyCategorySettings, `{"u1":["Work","Gym"],"u2":{"masterList":[],"active":[]}}`)

	settings, err := s.GeneralCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Work", "Gym"}, settings.Active)

	var stored map[string]models.CategorySettings
	readSlot(t, kv, KeyCategorySettings, &stored)
	assert.Equal(t, settings, stored["u1"])
	assert.Equal(t, models.EmptyCategorySettings(), stored["u2"])
}

func TestGeneralCategoriesRecoversCorruptSlot(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyCategorySettings, `[1,2,3]`)

	settings, err := s.GeneralCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultCategorySettings(), settings)

	var stored map[string]models.CategorySettings
	readSlot(t, kv, KeyCategorySettings, &stored)
	assert.Len(t, stored, 1)
}

func TestProjectCategoriesMigratesStoredShape(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyProjects, `[
		{"id":"p1","name":"Launch","ownerId":"u1","color":"cat-red","categories":["Design"]},
		{"id":"p2","name":"Bare","ownerId":"u1","color":"cat-red"}
	]`)

	settings, err := s.ProjectCategories(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, models.CategorySettings{
		MasterList: []models.Category{{Name: "Design", Color: models.ColorForName("Design")}},
		Active:     []string{"Design"},
	}, settings)

	var stored []map[string]json.RawMessage
	readSlot(t, kv, KeyProjects, &stored)
	require.Len(t, stored, 2)
	assert.Equal(t, settings, MigrateCategories(stored[0]["categories"]))
	assert.JSONEq(t, `{"masterList":[],"active":[]}`, string(stored[1]["categories"]))
	assert.JSONEq(t, `[]`, string(stored[1]["tabs"]))

	missing, err := s.ProjectCategories(ctx, "nope")
	require.NoError(t, err)
	assert.Equal(t, models.EmptyCategorySettings(), missing)
}

func TestSaveGeneralCategories(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveGeneralCategories(ctx, "u1", models.CategorySettings{}))

	var stored map[string]json.RawMessage
	readSlot(t, kv, KeyCategorySettings, &stored)
	assert.JSONEq(t, `{"masterList":[],"active":[]}`, string(stored["u1"]))

	settings, err := s.GeneralCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.EmptyCategorySettings(), settings, "an empty set is not reseeded")

	replacement := models.CategorySettings{
		MasterList: []models.Category{{Name: "Garden", Color: "cat-lime"}, {Name: "Music", Color: "cat-pink"}},
		Active:     []string{"Music", "Ghost"},
	}
	require.NoError(t, s.SaveGeneralCategories(ctx, "u1", replacement))
	before, _, err := kv.Get(ctx, KeyCategorySettings)
	require.NoError(t, err)

	settings, err = s.GeneralCategories(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, replacement, settings)

	after, _, err := kv.Get(ctx, KeyCategorySettings)
	require.NoError(t, err)
	assert.Equal(t, before, after, "reading back does not rewrite the slot")
}

func TestSaveProjectCategories(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "Launch", "", "u1", models.DefaultCategorySettings())
	require.NoError(t, err)

	require.NoError(t, s.SaveProjectCategories(ctx, p.ID, models.CategorySettings{
		MasterList: []models.Category{{Name: "Design", Color: "cat-blue"}},
	}))

	settings, err := s.ProjectCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySettings{
		MasterList: []models.Category{{Name: "Design", Color: "cat-blue"}},
		Active:     []string{},
	}, settings)

	before, _, err := kv.Get(ctx, KeyProjects)
	require.NoError(t, err)
	require.NoError(t, s.SaveProjectCategories(ctx, "missing", models.DefaultCategorySettings()))
	require.NoError(t, s.SaveProjectCategories(ctx, "", models.DefaultCategorySettings()))
	after, _, err := kv.Get(ctx, KeyProjects)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestAddCategory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	added, err := s.AddCategory(ctx, u.ID, models.Category{Name: "work"}, "")
	require.NoError(t, err)
	assert.False(t, added, "names are unique ignoring case")

	added, err = s.AddCategory(ctx, u.ID, models.Category{Name: "  "}, "")
	require.NoError(t, err)
	assert.False(t, added)

	added, err = s.AddCategory(ctx, u.ID, models.Category{Name: " Gym "}, "")
	require.NoError(t, err)
	assert.True(t, added)

	settings, err := s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	c, ok := settings.Find("gym")
	require.True(t, ok)
	assert.Equal(t, models.Category{Name: "Gym", Color: models.ColorForName("Gym")}, c)
	assert.True(t, settings.IsActive("Gym"))

	p, err := s.CreateProject(ctx, "Launch", "", u.ID, models.EmptyCategorySettings())
	require.NoError(t, err)
	added, err = s.AddCategory(ctx, u.ID, models.Category{Name: "Design", Color: "cat-sky"}, p.ID)
	require.NoError(t, err)
	assert.True(t, added)

	projectSettings, err := s.ProjectCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.Category{{Name: "Design", Color: "cat-sky"}}, projectSettings.MasterList)

	added, err = s.AddCategory(ctx, u.ID, models.Category{Name: "Design"}, "missing-project")
	require.NoError(t, err)
	assert.False(t, added)
}

func TestSetCategoryActive(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)

	require.NoError(t, s.SetCategoryActive(ctx, u.ID, "work", "", false))
	settings, err := s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, settings.IsActive("Work"))
	assert.Len(t, settings.MasterList, 9)

	require.NoError(t, s.SetCategoryActive(ctx, u.ID, "Work", "", true))
	settings, err = s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Work", settings.Active[len(settings.Active)-1])

	require.NoError(t, s.SetCategoryActive(ctx, u.ID, "Unknown", "", true))
	settings, err = s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	assert.False(t, settings.IsActive("Unknown"))
}

func TestDeleteCategoryScrubsEveryNote(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	u, err := s.Register(ctx, "alice", "pw1")
	require.NoError(t, err)
	_, err = s.AddCategory(ctx, u.ID, models.Category{Name: "X"}, "")
	require.NoError(t, err)

	p, err := s.CreateProject(ctx, "Launch", "", u.ID, models.CategorySettings{
		MasterList: []models.Category{{Name: "X", Color: "cat-red"}},
		Active:     []string{"X"},
	})
	require.NoError(t, err)

	n1 := addNote(t, s, models.NoteFields{Text: "general", OwnerID: u.ID, Categories: []string{"X", "Work"}})
	n2 := addNote(t, s, models.NoteFields{Text: "project", OwnerID: u.ID, Categories: []string{"X"}, ProjectIDs: []string{p.ID}})
	n3 := addNote(t, s, models.NoteFields{Text: "someone else", OwnerID: "bob", Categories: []string{"X"}})

	require.NoError(t, s.DeleteCategory(ctx, u.ID, "X", ""))

	for id, want := range map[string][]string{n1.ID: {"Work"}, n2.ID: {}, n3.ID: {}} {
		n, err := s.Note(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, n)
		assert.Equal(t, want, n.Categories)
	}

	general, err := s.GeneralCategories(ctx, u.ID)
	require.NoError(t, err)
	_, found := general.Find("X")
	assert.False(t, found)
	assert.False(t, general.IsActive("X"))

	projectSettings, err := s.ProjectCategories(ctx, p.ID)
	require.NoError(t, err)
	_, found = projectSettings.Find("X")
	assert.True(t, found, "only the invoking scope loses the category")
}

func TestDeleteProjectCategory(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	p, err := s.CreateProject(ctx, "Launch", "", "u1", models.CategorySettings{
		MasterList: []models.Category{{Name: "Design", Color: "cat-sky"}, {Name: "QA", Color: "cat-red"}},
		Active:     []string{"Design", "QA"},
	})
	require.NoError(t, err)
	n := addNote(t, s, models.NoteFields{Text: "t", OwnerID: "u1", Categories: []string{"Design", "QA"}, ProjectIDs: []string{p.ID}})

	require.NoError(t, s.DeleteCategory(ctx, "u1", "Design", p.ID))

	settings, err := s.ProjectCategories(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CategorySettings{
		MasterList: []models.Category{{Name: "QA", Color: "cat-red"}},
		Active:     []string{"QA"},
	}, settings)

	stored, err := s.Note(ctx, n.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"QA"}, stored.Categories)
}

func TestCustomTabs(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	tab, added, err := s.AddCustomTab(ctx, "u1", "", models.CustomTab{Value: models.TabValue{"Work", "Home"}})
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, models.CustomTab{
		ID:    "Work+Home",
		Name:  "Work + Home",
		Type:  models.TabTypeMultiCategory,
		Value: models.TabValue{"Work", "Home"},
	}, tab)

	again, added, err := s.AddCustomTab(ctx, "u1", "", models.CustomTab{Name: "Chores", Value: models.TabValue{"Work", "Home"}})
	require.NoError(t, err)
	assert.False(t, added)
	assert.Equal(t, tab, again, "an existing selection returns the stored tab")

	_, _, err = s.AddCustomTab(ctx, "u1", "", models.CustomTab{})
	assert.ErrorIs(t, err, ErrEmptyTab)

	tabs, err := s.CustomTabs(ctx, "u1", "")
	require.NoError(t, err)
	assert.Len(t, tabs, 1)

	others, err := s.CustomTabs(ctx, "u2", "")
	require.NoError(t, err)
	assert.Empty(t, others)

	p, err := s.CreateProject(ctx, "Launch", "", "u1", models.EmptyCategorySettings())
	require.NoError(t, err)
	projectTab, added, err := s.AddCustomTab(ctx, "u1", p.ID, models.CustomTab{Value: models.TabValue{"Design"}})
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, models.TabTypeProjectCategory, projectTab.Type)

	stored, err := s.Project(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.CustomTab{projectTab}, stored.Tabs)

	require.NoError(t, s.RemoveCustomTab(ctx, "u1", "", "Work+Home"))
	tabs, err = s.CustomTabs(ctx, "u1", "")
	require.NoError(t, err)
	assert.Empty(t, tabs)

	require.NoError(t, s.RemoveCustomTab(ctx, "u1", p.ID, "Design"))
	tabs, err = s.CustomTabs(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Empty(t, tabs)
}
