package models

import (
	"slices"
	"time"
)

type AttachmentType string

const (
	AttachmentTypeLink AttachmentType = "link"
	AttachmentTypeFile AttachmentType = "file"
)

// Attachment belongs to exactly one note. Content is a URL for links and a
// data URL for files.
type Attachment struct {
	ID      string         `json:"id"`
	Type    AttachmentType `json:"type"`
	Name    string         `json:"name"`
	Content string         `json:"content"`
}

// SharedWith lists the users and groups a note is visible to besides its owner.
type SharedWith struct {
	Users  []string `json:"users"`
	Groups []string `json:"groups"`
}

// Normalize replaces nil lists with empty ones so the persisted form is stable.
func (s SharedWith) Normalize() SharedWith {
	if s.Users == nil {
		s.Users = []string{}
	}
	if s.Groups == nil {
		s.Groups = []string{}
	}
	return s
}

// NoteFields are the caller-editable parts of a note.
type NoteFields struct {
	Text        string       `json:"text"`
	Description string       `json:"description,omitempty"`
	Attachments []Attachment `json:"attachments,omitempty"`
	IsCompleted bool         `json:"isCompleted"`
	Date        string       `json:"date,omitempty"`
	Time        string       `json:"time,omitempty"`
	Location    string       `json:"location,omitempty"`
	Categories  []string     `json:"categories"`
	OwnerID     string       `json:"ownerId"`
	OwnerName   string       `json:"ownerName"`
	SharedWith  SharedWith   `json:"sharedWith"`
	ProjectIDs  []string     `json:"projectIds,omitempty"`
	ParentID    string       `json:"parentId,omitempty"`
}

// NoteDraft is a note that has not been stored yet: no id, no creation time.
type NoteDraft struct {
	NoteFields
}

// Note is a stored note or task. Category names, project ids, group ids and the
// parent id are soft references: their targets may have been deleted.
type Note struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	NoteFields
}

func (n Note) InProject(projectID string) bool {
	return slices.Contains(n.ProjectIDs, projectID)
}

func (n Note) IsRoot() bool {
	return n.ParentID == ""
}

// VisibleTo reports whether the note is shared with userID directly or through
// one of groupIDs. Ownership is not considered.
func (n Note) VisibleTo(userID string, groupIDs map[string]bool) bool {
	if slices.Contains(n.SharedWith.Users, userID) {
		return true
	}
	for _, g := range n.SharedWith.Groups {
		if groupIDs[g] {
			return true
		}
	}
	return false
}

// NoteBuckets splits the notes a user can see by ownership.
type NoteBuckets struct {
	Mine   []Note `json:"myNotes"`
	Shared []Note `json:"sharedNotes"`
}
