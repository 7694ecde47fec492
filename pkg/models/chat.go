package models

// ChatData is the scratch state a chat carries between two bot messages.
type ChatData struct {
	NoteID    string // parent of the note being written
	ProjectID string // project scope of the pending action
}
