package database

import (
	"context"
	"strings"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
)

// CreateProject creates a project with a color drawn from the palette and the
// given category settings.
func (s *Store) CreateProject(ctx context.Context, name, description, ownerID string, categories models.CategorySettings) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return nil, err
	}

	project := models.Project{
		ID:          s.newID(),
		Name:        strings.TrimSpace(name),
		Description: description,
		OwnerID:     ownerID,
		Color:       models.Palette[s.pick(len(models.Palette))],
		Tabs:        []models.CustomTab{},
		Categories:  normalizeSettings(categories),
	}
	projects = append(projects, project)
	if err := s.saveProjects(ctx, projects); err != nil {
		return nil, err
	}
	s.log.Info("project created", "project_id", project.ID, "owner_id", ownerID)
	return &project, nil
}

// UpdateProject replaces the stored project with the same id.
func (s *Store) UpdateProject(ctx context.Context, project models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return err
	}
	for i := range projects {
		if projects[i].ID != project.ID {
			continue
		}
		if project.Tabs == nil {
			project.Tabs = []models.CustomTab{}
		}
		project.Categories = normalizeSettings(project.Categories)
		projects[i] = project
		return s.saveProjects(ctx, projects)
	}
	return nil
}

// DeleteProject removes the project together with its notes. Sub-notes of
// those notes go too, so no note is left pointing at a deleted parent.
func (s *Store) DeleteProject(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	if err := s.saveProjects(ctx, kept); err != nil {
		return err
	}

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}
	var roots []string
	for _, n := range notes {
		if n.InProject(id) {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		return nil
	}
	doomed := subtreeIDs(notes, roots)
	s.log.Info("project notes removed", "project_id", id, "count", len(doomed))
	return s.saveNotes(ctx, withoutNotes(notes, doomed))
}

// Project returns the project with id, or nil.
func (s *Store) Project(ctx context.Context, id string) (*models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range projects {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, nil
}

// ProjectsForUser lists the projects owned by ownerID.
func (s *Store) ProjectsForUser(ctx context.Context, ownerID string) ([]models.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	projects, _, err := s.loadProjects(ctx)
	if err != nil {
		return nil, err
	}
	owned := []models.Project{}
	for _, p := range projects {
		if p.OwnerID == ownerID {
			owned = append(owned, p)
		}
	}
	return owned, nil
}
