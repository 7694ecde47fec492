package database

import (
	"context"
	"testing"

	"github.com/efrenluis/agenda-inteligente-ai/internal/database/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCorruptLedgerIsWiped(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", `%%% not json`},
		{"object", `{"id":"n1"}`},
		{"null", `null`},
		{"truncated", `[{"id":"n1","text":"a"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, kv := newTestStore(t)
			ctx := context.Background()
			writeSlot(t, kv, KeyNotes, tt.raw)

			buckets, err := s.NotesForUser(ctx, "u1")
			require.NoError(t, err)
			assert.Empty(t, buckets.Mine)
			assert.Empty(t, buckets.Shared)

			_, ok, err := kv.Get(ctx, KeyNotes)
			require.NoError(t, err)
			assert.False(t, ok, "corrupt slot must be reset")
		})
	}
}

func TestInvalidRecordsAreSkipped(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	raw := `[
		{"id":"n1","text":"ok","ownerId":"u1"},
		{"id":"n2","ownerId":"u1"},
		{"id":"n3","text":"bad categories","ownerId":"u1","categories":"Work"},
		{"id":"n4","text":"bad flag","ownerId":"u1","isCompleted":"yes"},
		"just a string",
		{"id":"n5","text":"null categories","ownerId":"u1","categories":null}
	]`
	writeSlot(t, kv, KeyNotes, raw)

	buckets, err := s.NotesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n1", "n5"}, noteIDs(buckets.Mine))

	stored, _, err := kv.Get(ctx, KeyNotes)
	require.NoError(t, err)
	assert.Equal(t, raw, stored, "reads never rewrite the slot")

	_, err = s.SetNoteCompleted(ctx, "n1", true)
	require.NoError(t, err)

	var notes []models.Note
	readSlot(t, kv, KeyNotes, &notes)
	assert.Len(t, notes, 2)
}

func TestLegacyProjectIDMigrates(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyNotes, `[
		{"id":"n1","text":"old","ownerId":"u1","projectId":"p1"},
		{"id":"n2","text":"both","ownerId":"u1","projectId":"p1","projectIds":["p1","p2"]},
		{"id":"n3","text":"empty","ownerId":"u1","projectId":""}
	]`)

	n1, err := s.Note(ctx, "n1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, n1.ProjectIDs)
	assert.True(t, n1.InProject("p1"))

	n2, err := s.Note(ctx, "n2")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, n2.ProjectIDs)

	n3, err := s.Note(ctx, "n3")
	require.NoError(t, err)
	assert.Empty(t, n3.ProjectIDs)

	require.NoError(t, s.DeleteProject(ctx, "p1"))
	buckets, err := s.NotesForUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"n3"}, noteIDs(buckets.Mine))

	raw, _, err := kv.Get(ctx, KeyNotes)
	require.NoError(t, err)
	assert.NotContains(t, raw, `"projectId"`)
}

func TestGroupWithoutMembersIsDropped(t *testing.T) {
	s, kv := newTestStore(t)
	ctx := context.Background()

	writeSlot(t, kv, KeyGroups, `[{"id":"g1","name":"Team","ownerId":"u1"}]`)
	addNote(t, s, models.NoteFields{Text: "mine", OwnerID: "u1",
		SharedWith: models.SharedWith{Groups: []string{"g1"}}})

	buckets, err := s.NotesForUser(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, buckets.Shared)

	groups, err := s.Groups(ctx)
	require.NoError(t, err)
	assert.Empty(t, groups, "a group without members is not a valid record")
}
