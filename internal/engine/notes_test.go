package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

func trackerAt(t *testing.T, ts time.Time) *NoteTracker {
	t.Helper()

	tr := NewNoteTracker()
	tr.now = func() time.Time { return ts }

	return tr
}

func TestNoteHistoryOnDivergenceExactlyOnce(t *testing.T) {
	commitTime := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	tr := trackerAt(t, commitTime)
	l := &deal.Lender{ID: "l1", Notes: "A"}

	_, committed := tr.Commit(l)
	require.True(t, committed)

	// Typing "A1" then "A2" archives "A" exactly once.
	archived := tr.Keystroke(l, "A1")
	assert.True(t, archived)

	archived = tr.Keystroke(l, "A2")
	assert.False(t, archived)

	require.Len(t, l.NotesHistory, 1)
	assert.Equal(t, "A", l.NotesHistory[0].Text)
	assert.Equal(t, commitTime, l.NotesHistory[0].UpdatedAt)
	assert.Equal(t, "A2", l.Notes)
}

func TestNoteKeystrokeWithoutCommitNoArchive(t *testing.T) {
	tr := NewNoteTracker()
	l := &deal.Lender{ID: "l1"}

	tr.Keystroke(l, "f")
	tr.Keystroke(l, "fi")
	tr.Keystroke(l, "first note")

	assert.Empty(t, l.NotesHistory)
	assert.Equal(t, "first note", l.Notes)
}

func TestNoteNewHistoryEntryPrepended(t *testing.T) {
	tr := NewNoteTracker()
	l := &deal.Lender{ID: "l1", Notes: "A"}

	_, _ = tr.Commit(l)
	tr.Keystroke(l, "B")
	_, _ = tr.Commit(l)
	tr.Keystroke(l, "C")

	require.Len(t, l.NotesHistory, 2)
	// Newest first.
	assert.Equal(t, "B", l.NotesHistory[0].Text)
	assert.Equal(t, "A", l.NotesHistory[1].Text)
}

func TestNoteCommitEmptyIsNoOp(t *testing.T) {
	tr := NewNoteTracker()

	for _, text := range []string{"", "   ", "\t\n"} {
		l := &deal.Lender{ID: "l1", Notes: text}

		_, committed := tr.Commit(l)

		assert.False(t, committed, "text %q", text)
		assert.Empty(t, l.NotesHistory)

		_, ok := tr.Committed("l1")
		assert.False(t, ok)
	}
}

func TestNoteCommitTrimsAndNormalizes(t *testing.T) {
	tr := NewNoteTracker()
	// "é" as combining sequence; NFC folds it to a single rune.
	l := &deal.Lender{ID: "l1", Notes: "  procédé agreed  "}

	text, committed := tr.Commit(l)

	require.True(t, committed)
	assert.Equal(t, "procédé agreed", text)
	assert.Equal(t, text, l.Notes)

	saved, ok := tr.Committed("l1")
	require.True(t, ok)
	assert.Equal(t, text, saved)
}

func TestNoteRetypingCommittedValueNoArchive(t *testing.T) {
	tr := NewNoteTracker()
	l := &deal.Lender{ID: "l1", Notes: "A"}

	_, _ = tr.Commit(l)

	// Same text again is not a divergence.
	archived := tr.Keystroke(l, "A")

	assert.False(t, archived)
	assert.Empty(t, l.NotesHistory)

	// But the following differing keystroke is.
	archived = tr.Keystroke(l, "AB")
	assert.True(t, archived)
}

func TestNoteForgetDropsState(t *testing.T) {
	tr := NewNoteTracker()
	l := &deal.Lender{ID: "l1", Notes: "A"}

	_, _ = tr.Commit(l)
	tr.Forget("l1")

	archived := tr.Keystroke(l, "B")

	assert.False(t, archived)
	assert.Empty(t, l.NotesHistory)
}
