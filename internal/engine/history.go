package engine

import (
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// EditHistoryEntry is one element of the undo stack: the full deal
// exactly as it was immediately before the mutation named by Field.
type EditHistoryEntry struct {
	Snapshot  deal.Deal
	Field     string
	Timestamp time.Time
}

// UndoStack is a LIFO stack of whole-deal snapshots. Every mutating user
// action pushes the pre-mutation state; undo pops and restores it
// verbatim, so one undo reverses compound side effects (an auto-computed
// total fee alongside a success-fee change, a removal alongside its
// activity log entry). Unbounded; lives for the editing session.
//
// Not safe for concurrent use; the Session serializes access.
type UndoStack struct {
	entries []EditHistoryEntry
	now     func() time.Time
}

// NewUndoStack returns an empty stack.
func NewUndoStack() *UndoStack {
	return &UndoStack{now: time.Now}
}

// Push records the pre-mutation deal. The snapshot is deep-cloned at
// push time so later mutations of the draft cannot reach into it.
func (s *UndoStack) Push(d deal.Deal, field string) {
	s.entries = append(s.entries, EditHistoryEntry{
		Snapshot:  d.Clone(),
		Field:     field,
		Timestamp: s.now(),
	})
}

// Pop removes and returns the most recent entry. The second return is
// false when the stack is empty.
func (s *UndoStack) Pop() (EditHistoryEntry, bool) {
	if len(s.entries) == 0 {
		return EditHistoryEntry{}, false
	}

	top := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]

	return top, true
}

// Peek returns the most recent entry without removing it.
func (s *UndoStack) Peek() (EditHistoryEntry, bool) {
	if len(s.entries) == 0 {
		return EditHistoryEntry{}, false
	}

	return s.entries[len(s.entries)-1], true
}

// Len returns the number of undoable entries.
func (s *UndoStack) Len() int {
	return len(s.entries)
}

// Clear drops all entries. Called when the editing session ends.
func (s *UndoStack) Clear() {
	s.entries = nil
}
