package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// RemovedLender is a soft-deleted lender held for restore. Distinct from
// the undo stack: restore re-appends just this lender, while undo rolls
// the whole deal back.
type RemovedLender struct {
	ID        string
	Lender    deal.Lender
	Timestamp time.Time
}

// RemovedBuffer is the session-scoped holding area for soft-deleted
// lenders. Unbounded, no automatic expiry; entries live until restored
// or the session ends.
//
// Not safe for concurrent use; the Session serializes access.
type RemovedBuffer struct {
	entries []RemovedLender
	now     func() time.Time
	newID   func() string
}

// NewRemovedBuffer returns an empty buffer.
func NewRemovedBuffer() *RemovedBuffer {
	return &RemovedBuffer{
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
}

// Add stores a removed lender and returns the buffer entry ID used for
// the restore affordance. The lender is cloned on the way in.
func (b *RemovedBuffer) Add(l deal.Lender) string {
	id := b.newID()
	b.entries = append(b.entries, RemovedLender{
		ID:        id,
		Lender:    l.Clone(),
		Timestamp: b.now(),
	})

	return id
}

// Take removes and returns the entry with the given buffer ID.
func (b *RemovedBuffer) Take(id string) (RemovedLender, bool) {
	for i := range b.entries {
		if b.entries[i].ID == id {
			entry := b.entries[i]
			b.entries = append(b.entries[:i], b.entries[i+1:]...)

			return entry, true
		}
	}

	return RemovedLender{}, false
}

// Put re-inserts a previously taken entry, keeping its ID. Used when a
// restore fails after the entry was taken out.
func (b *RemovedBuffer) Put(entry RemovedLender) {
	b.entries = append(b.entries, entry)
}

// Entries returns a snapshot of the buffer contents, oldest first.
func (b *RemovedBuffer) Entries() []RemovedLender {
	out := make([]RemovedLender, len(b.entries))
	copy(out, b.entries)

	return out
}

// Len returns the number of buffered removals.
func (b *RemovedBuffer) Len() int {
	return len(b.entries)
}

// Clear drops all entries. Called when the editing session ends.
func (b *RemovedBuffer) Clear() {
	b.entries = nil
}
