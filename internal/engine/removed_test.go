package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

func TestRemovedBufferAddTake(t *testing.T) {
	b := NewRemovedBuffer()

	id1 := b.Add(deal.Lender{ID: "l1", Name: "First Capital"})
	id2 := b.Add(deal.Lender{ID: "l2", Name: "Second Street"})

	require.NotEqual(t, id1, id2)
	assert.Equal(t, 2, b.Len())

	entry, ok := b.Take(id1)
	require.True(t, ok)
	assert.Equal(t, "First Capital", entry.Lender.Name)
	assert.Equal(t, 1, b.Len())

	// Taking the same entry twice fails.
	_, ok = b.Take(id1)
	assert.False(t, ok)
}

func TestRemovedBufferTakeUnknown(t *testing.T) {
	b := NewRemovedBuffer()

	_, ok := b.Take("missing")

	assert.False(t, ok)
}

func TestRemovedBufferEntriesAreSnapshot(t *testing.T) {
	b := NewRemovedBuffer()
	b.Add(deal.Lender{ID: "l1"})

	entries := b.Entries()
	require.Len(t, entries, 1)

	b.Clear()

	// The snapshot is unaffected by the clear.
	assert.Len(t, entries, 1)
	assert.Equal(t, 0, b.Len())
}

func TestRemovedBufferClonesLender(t *testing.T) {
	b := NewRemovedBuffer()
	l := deal.Lender{ID: "l1", NotesHistory: []deal.NoteHistoryEntry{{Text: "A"}}}

	id := b.Add(l)

	// Mutating the original after Add must not reach the buffered copy.
	l.NotesHistory[0].Text = "mutated"

	entry, ok := b.Take(id)
	require.True(t, ok)
	assert.Equal(t, "A", entry.Lender.NotesHistory[0].Text)
}
