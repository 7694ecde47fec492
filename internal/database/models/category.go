package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf16"
)

// Palette holds the color tokens categories and projects are drawn from.
// The order is part of the persisted contract: ColorForName indexes into it.
var Palette = []string{
	"cat-red",
	"cat-orange",
	"cat-amber",
	"cat-lime",
	"cat-green",
	"cat-teal",
	"cat-sky",
	"cat-blue",
	"cat-indigo",
	"cat-purple",
	"cat-pink",
	"cat-rose",
}

// PredefinedCategories seed every new account's general settings.
var PredefinedCategories = []Category{
	{Name: "Work", Color: "cat-blue"},
	{Name: "Personal", Color: "cat-green"},
	{Name: "Shopping", Color: "cat-amber"},
	{Name: "Health", Color: "cat-red"},
	{Name: "Finance", Color: "cat-teal"},
	{Name: "Study", Color: "cat-indigo"},
	{Name: "Home", Color: "cat-orange"},
	{Name: "Travel", Color: "cat-sky"},
	{Name: "Ideas", Color: "cat-purple"},
}

type Category struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// CategorySettings is one category scope: a user's general set or a project's set.
// Active lists the names currently offered; it is not forced to be a subset of
// MasterList.
type CategorySettings struct {
	MasterList []Category `json:"masterList"`
	Active     []string   `json:"active"`
}

func DefaultCategorySettings() CategorySettings {
	master := make([]Category, len(PredefinedCategories))
	copy(master, PredefinedCategories)
	active := make([]string, 0, len(master))
	for _, c := range master {
		active = append(active, c.Name)
	}
	return CategorySettings{MasterList: master, Active: active}
}

func EmptyCategorySettings() CategorySettings {
	return CategorySettings{MasterList: []Category{}, Active: []string{}}
}

// Find returns the category whose name matches case-insensitively.
func (s CategorySettings) Find(name string) (Category, bool) {
	for _, c := range s.MasterList {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return Category{}, false
}

func (s CategorySettings) IsActive(name string) bool {
	for _, a := range s.Active {
		if a == name {
			return true
		}
	}
	return false
}

// Without returns a copy of s with name removed from both lists.
func (s CategorySettings) Without(name string) CategorySettings {
	out := EmptyCategorySettings()
	for _, c := range s.MasterList {
		if c.Name != name {
			out.MasterList = append(out.MasterList, c)
		}
	}
	for _, a := range s.Active {
		if a != name {
			out.Active = append(out.Active, a)
		}
	}
	return out
}

// ActiveNames returns the active list restricted to names present in the master list.
func (s CategorySettings) ActiveNames() []string {
	names := make([]string, 0, len(s.Active))
	for _, a := range s.Active {
		for _, c := range s.MasterList {
			if c.Name == a {
				names = append(names, a)
				break
			}
		}
	}
	return names
}

// ColorForName resolves the color of a category name: the predefined color when
// the name is one of PredefinedCategories, otherwise a palette entry picked by a
// stable string hash. The hash matches the web client bit for bit
// (hash = code + ((hash << 5) - hash) over UTF-16 code units, int32 shifts).
func ColorForName(name string) string {
	for _, c := range PredefinedCategories {
		if strings.EqualFold(c.Name, name) {
			return c.Color
		}
	}
	return Palette[paletteIndex(name)]
}

func paletteIndex(name string) int {
	var hash int64
	for _, unit := range utf16.Encode([]rune(name)) {
		shifted := int64(int32(uint32(hash) << 5))
		hash = int64(unit) + (shifted - hash)
	}
	if hash < 0 {
		hash = -hash
	}
	return int(hash % int64(len(Palette)))
}

type TabType string

const (
	TabTypeCategory             TabType = "category"
	TabTypeMultiCategory        TabType = "multi-category"
	TabTypeProjectCategory      TabType = "project-category"
	TabTypeProjectMultiCategory TabType = "project-multi-category"
)

// TabValue is the selection a custom tab filters on. It is stored as a bare
// string when it holds a single value and as an array otherwise.
type TabValue []string

func (v TabValue) MarshalJSON() ([]byte, error) {
	if len(v) == 1 {
		return json.Marshal(v[0])
	}
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(v))
}

func (v *TabValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = nil
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = TabValue{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("tab value: %w", err)
	}
	*v = list
	return nil
}

// CustomTab is a saved view over one or more categories.
type CustomTab struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Type  TabType  `json:"type"`
	Value TabValue `json:"value"`
}

// TabID derives a tab's identity from its selection.
func TabID(value TabValue) string {
	return strings.Join(value, "+")
}
