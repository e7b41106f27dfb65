package engine

import (
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// noteStateKind tags the per-lender note state machine.
type noteStateKind int

const (
	// noteUntouched: no commit this session, nothing to diverge from.
	noteUntouched noteStateKind = iota

	// noteCommitted: the user explicitly saved the current text. The
	// next keystroke that differs from it is a divergence.
	noteCommitted

	// noteDrafting: the user is typing on top of a committed note whose
	// value has already been archived. No further archiving until the
	// next commit.
	noteDrafting
)

// noteState is the tagged union for one lender's note field:
// Untouched | Committed{value, at} | Drafting.
type noteState struct {
	kind        noteStateKind
	committed   string    // set when kind == noteCommitted
	committedAt time.Time // commit time, used for the archived entry
}

// NoteTracker turns each lender's free-text note field into an
// append-only audit trail. A commit freezes the current text; the first
// keystroke that diverges from the frozen value prepends it to the
// lender's NotesHistory, exactly once per divergence, with no external
// commit markers. State is transient and session-scoped.
//
// Not safe for concurrent use; the Session serializes access.
type NoteTracker struct {
	states map[string]noteState
	now    func() time.Time
}

// NewNoteTracker returns a tracker with no per-lender state.
func NewNoteTracker() *NoteTracker {
	return &NoteTracker{
		states: make(map[string]noteState),
		now:    time.Now,
	}
}

// Keystroke applies one edit of the lender's note text. If this is the
// first keystroke diverging from a committed value (the stored text
// still equals the committed value and the new text does not), the
// committed value is archived into NotesHistory first. Returns true
// when an archive entry was created.
func (t *NoteTracker) Keystroke(l *deal.Lender, newText string) bool {
	st := t.states[l.ID]

	archived := false

	if st.kind == noteCommitted && l.Notes == st.committed && newText != st.committed {
		l.NotesHistory = append([]deal.NoteHistoryEntry{{
			Text:      st.committed,
			UpdatedAt: st.committedAt,
		}}, l.NotesHistory...)

		t.states[l.ID] = noteState{kind: noteDrafting}
		archived = true
	}

	l.Notes = newText

	return archived
}

// Commit freezes the lender's current note text as the saved value for
// divergence detection. Empty or whitespace-only text is a deliberate
// no-op; blank entries never reach the audit trail or the store.
// Returns the normalized text to persist and whether the commit applied.
func (t *NoteTracker) Commit(l *deal.Lender) (string, bool) {
	text := norm.NFC.String(strings.TrimSpace(l.Notes))
	if text == "" {
		return "", false
	}

	now := t.now()
	l.Notes = text
	l.NotesUpdatedAt = now

	t.states[l.ID] = noteState{
		kind:        noteCommitted,
		committed:   text,
		committedAt: now,
	}

	return text, true
}

// Committed returns the last committed text for the lender, if any.
func (t *NoteTracker) Committed(id string) (string, bool) {
	st, ok := t.states[id]
	if !ok || st.kind != noteCommitted {
		return "", false
	}

	return st.committed, true
}

// Forget drops tracking state for a lender (removed or session reset).
func (t *NoteTracker) Forget(id string) {
	delete(t.states, id)
}
