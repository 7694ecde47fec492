package models

// Project scopes tasks and owns a category set and custom tabs independent of
// the owner's general categories.
type Project struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	OwnerID     string           `json:"ownerId"`
	Color       string           `json:"color"`
	Tabs        []CustomTab      `json:"tabs"`
	Categories  CategorySettings `json:"categories"`
}

func (p Project) Tab(id string) (CustomTab, bool) {
	for _, t := range p.Tabs {
		if t.ID == id {
			return t, true
		}
	}
	return CustomTab{}, false
}
