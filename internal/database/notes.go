package database

import (
	"context"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
)

// NotesForUser splits the notes userID can see into the ones they own and the
// ones shared with them directly or through a group they belong to. Group
// membership is read from the group ledger at call time.
func (s *Store) NotesForUser(ctx context.Context, userID string) (models.NoteBuckets, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.notesForUser(ctx, userID)
}

func (s *Store) notesForUser(ctx context.Context, userID string) (models.NoteBuckets, error) {
	buckets := models.NoteBuckets{Mine: []models.Note{}, Shared: []models.Note{}}

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return buckets, err
	}
	groups, err := s.loadGroups(ctx)
	if err != nil {
		return buckets, err
	}

	memberOf := make(map[string]bool)
	for _, g := range groups {
		if g.HasMember(userID) {
			memberOf[g.ID] = true
		}
	}

	for _, n := range notes {
		switch {
		case n.OwnerID == userID:
			buckets.Mine = append(buckets.Mine, n)
		case n.VisibleTo(userID, memberOf):
			buckets.Shared = append(buckets.Shared, n)
		}
	}
	return buckets, nil
}

// AddNote stores a new note with a fresh id and the current time.
func (s *Store) AddNote(ctx context.Context, draft models.NoteDraft) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}

	note := models.Note{
		ID:         s.newID(),
		CreatedAt:  s.now().UTC(),
		NoteFields: draft.NoteFields,
	}
	normalizeNote(&note)

	notes = append(notes, note)
	if err := s.saveNotes(ctx, notes); err != nil {
		return nil, err
	}
	return &note, nil
}

// UpdateNote replaces the stored note with the same id. Unknown ids are ignored.
func (s *Store) UpdateNote(ctx context.Context, note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}

	for i := range notes {
		if notes[i].ID != note.ID {
			continue
		}
		if note.CreatedAt.IsZero() {
			note.CreatedAt = notes[i].CreatedAt
		}
		normalizeNote(&note)
		notes[i] = note
		return s.saveNotes(ctx, notes)
	}
	return nil
}

// DeleteNote removes the note and every note below it in the hierarchy. Notes
// whose parent is id go even when id itself is no longer stored.
func (s *Store) DeleteNote(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return err
	}

	doomed := subtreeIDs(notes, []string{id})
	kept := withoutNotes(notes, doomed)
	if len(kept) == len(notes) {
		return nil
	}
	return s.saveNotes(ctx, kept)
}

// UpdateNoteSharing replaces who a note is shared with. It returns nil when
// the note does not exist.
func (s *Store) UpdateNoteSharing(ctx context.Context, id string, shared models.SharedWith) (*models.Note, error) {
	return s.modifyNote(ctx, id, func(n *models.Note) {
		n.SharedWith = shared.Normalize()
	})
}

// SetNoteCompleted marks a note done or open. It returns nil when the note
// does not exist.
func (s *Store) SetNoteCompleted(ctx context.Context, id string, completed bool) (*models.Note, error) {
	return s.modifyNote(ctx, id, func(n *models.Note) {
		n.IsCompleted = completed
	})
}

func (s *Store) modifyNote(ctx context.Context, id string, change func(*models.Note)) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}

	i := indexOfNote(notes, id)
	if i < 0 {
		return nil, nil
	}
	change(&notes[i])
	if err := s.saveNotes(ctx, notes); err != nil {
		return nil, err
	}
	note := notes[i]
	return &note, nil
}

// Note returns the note with id, or nil.
func (s *Store) Note(ctx context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOfNote(notes, id); i >= 0 {
		note := notes[i]
		return &note, nil
	}
	return nil, nil
}

// ChildNotes returns the direct children of parentID in ledger order.
func (s *Store) ChildNotes(ctx context.Context, parentID string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	notes, err := s.loadNotes(ctx)
	if err != nil {
		return nil, err
	}
	children := []models.Note{}
	for _, n := range notes {
		if n.ParentID == parentID && parentID != "" {
			children = append(children, n)
		}
	}
	return children, nil
}

// DueNotes returns the open notes visible to userID that are dated on date
// (YYYY-MM-DD).
func (s *Store) DueNotes(ctx context.Context, userID, date string) ([]models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	buckets, err := s.notesForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	due := []models.Note{}
	for _, group := range [][]models.Note{buckets.Mine, buckets.Shared} {
		for _, n := range group {
			if n.Date == date && !n.IsCompleted {
				due = append(due, n)
			}
		}
	}
	return due, nil
}

func indexOfNote(notes []models.Note, id string) int {
	for i := range notes {
		if notes[i].ID == id {
			return i
		}
	}
	return -1
}

// subtreeIDs walks the parent/child relation breadth-first from roots and
// returns the roots plus all their descendants. Each id is visited once, so
// corrupted cyclic parent links still terminate.
func subtreeIDs(notes []models.Note, roots []string) map[string]bool {
	children := make(map[string][]string)
	for _, n := range notes {
		if n.ParentID != "" {
			children[n.ParentID] = append(children[n.ParentID], n.ID)
		}
	}

	seen := make(map[string]bool, len(roots))
	queue := make([]string, 0, len(roots))
	for _, id := range roots {
		if !seen[id] {
			seen[id] = true
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, child := range children[current] {
			if !seen[child] {
				seen[child] = true
				queue = append(queue, child)
			}
		}
	}
	return seen
}

func withoutNotes(notes []models.Note, ids map[string]bool) []models.Note {
	kept := make([]models.Note, 0, len(notes))
	for _, n := range notes {
		if !ids[n.ID] {
			kept = append(kept, n)
		}
	}
	return kept
}
