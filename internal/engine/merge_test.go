package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// testDeal builds a deal with two lenders in a known state.
func testDeal(t *testing.T) deal.Deal {
	t.Helper()

	ts := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	return deal.Deal{
		ID:          "deal-1",
		Name:        "Project Alder",
		Status:      "open",
		Stage:       "marketing",
		Value:       5_000_000,
		Manager:     "pat",
		RetainerFee: 25_000,
		TotalFee:    125_000,
		Lenders: []deal.Lender{
			{ID: "l1", Name: "First Capital", Stage: deal.StageContacted, TrackingStatus: deal.TrackingActive, Notes: "intro call done", UpdatedAt: ts},
			{ID: "l2", Name: "Second Street", Stage: deal.StageIdentified, TrackingStatus: deal.TrackingActive, UpdatedAt: ts},
		},
		UpdatedAt: ts,
	}
}

func TestMergeFirstLoad(t *testing.T) {
	incoming := testDeal(t)

	got := Merge(nil, incoming)

	assert.Equal(t, incoming, got)

	// The result must not alias the incoming snapshot.
	got.Lenders[0].Notes = "mutated"
	assert.Equal(t, "intro call done", incoming.Lenders[0].Notes)
}

func TestMergeCanonicalWinsForScalars(t *testing.T) {
	local := testDeal(t)
	incoming := testDeal(t)
	incoming.Status = "closing"
	incoming.Manager = "alex"
	incoming.Narrative = "updated by a colleague"

	got := Merge(&local, incoming)

	assert.Equal(t, "closing", got.Status)
	assert.Equal(t, "alex", got.Manager)
	assert.Equal(t, "updated by a colleague", got.Narrative)
}

func TestMergeFeeOverridesKeepLocal(t *testing.T) {
	local := testDeal(t)
	local.RetainerFee = 30_000
	local.SuccessFeePercent = 2.5
	local.TotalFee = 155_000
	local.PreSigningHours = 12

	incoming := testDeal(t)
	// Stale canonical values that have not round-tripped yet.
	incoming.RetainerFee = 25_000
	incoming.SuccessFeePercent = 0
	incoming.TotalFee = 125_000
	incoming.PreSigningHours = 0

	got := Merge(&local, incoming)

	assert.Equal(t, 30_000.0, got.RetainerFee)
	assert.Equal(t, 2.5, got.SuccessFeePercent)
	assert.Equal(t, 155_000.0, got.TotalFee)
	assert.Equal(t, 12.0, got.PreSigningHours)
}

func TestMergeKeepsLocalLenderOrder(t *testing.T) {
	local := testDeal(t)
	// User dragged l2 above l1.
	local.Lenders[0], local.Lenders[1] = local.Lenders[1], local.Lenders[0]

	got := Merge(&local, testDeal(t))

	require.Len(t, got.Lenders, 2)
	assert.Equal(t, "l2", got.Lenders[0].ID)
	assert.Equal(t, "l1", got.Lenders[1].ID)
}

func TestMergeRemoteDeletionWins(t *testing.T) {
	local := testDeal(t)
	incoming := testDeal(t)
	incoming.Lenders = incoming.Lenders[:1] // l2 deleted remotely

	got := Merge(&local, incoming)

	require.Len(t, got.Lenders, 1)
	assert.Equal(t, "l1", got.Lenders[0].ID)
}

func TestMergeRemoteInsertionAppended(t *testing.T) {
	local := testDeal(t)
	incoming := testDeal(t)
	incoming.Lenders = append([]deal.Lender{{ID: "l3", Name: "Third Bank"}}, incoming.Lenders...)

	got := Merge(&local, incoming)

	require.Len(t, got.Lenders, 3)
	// Local order first, insertion at the end regardless of incoming position.
	assert.Equal(t, []string{"l1", "l2", "l3"},
		[]string{got.Lenders[0].ID, got.Lenders[1].ID, got.Lenders[2].ID})
}

func TestMergeUncommittedNoteSurvives(t *testing.T) {
	local := testDeal(t)
	local.Lenders[0].Notes = "half-typed sente"

	incoming := testDeal(t)
	incoming.Lenders[0].Notes = "server copy"
	incoming.Lenders[0].Stage = deal.StageDiligence

	got := Merge(&local, incoming)

	// Notes stay local; everything else on the lender is canonical.
	assert.Equal(t, "half-typed sente", got.Lenders[0].Notes)
	assert.Equal(t, deal.StageDiligence, got.Lenders[0].Stage)
}

func TestMergeNotesHistoryAlwaysIncoming(t *testing.T) {
	local := testDeal(t)
	local.Lenders[0].NotesHistory = []deal.NoteHistoryEntry{{Text: "stale local view"}}

	incoming := testDeal(t)
	incoming.Lenders[0].NotesHistory = []deal.NoteHistoryEntry{
		{Text: "newest"},
		{Text: "older"},
	}

	got := Merge(&local, incoming)

	require.Len(t, got.Lenders[0].NotesHistory, 2)
	assert.Equal(t, "newest", got.Lenders[0].NotesHistory[0].Text)
}

func TestMergeIdempotent(t *testing.T) {
	local := testDeal(t)
	local.Lenders[0].Notes = "uncommitted draft"
	local.RetainerFee = 99_999

	incoming := testDeal(t)
	incoming.Status = "closing"

	once := Merge(&local, incoming)
	twice := Merge(&once, incoming)

	assert.Equal(t, once, twice)
}

func TestMergeDoesNotMutateInputs(t *testing.T) {
	local := testDeal(t)
	incoming := testDeal(t)
	incoming.Lenders = incoming.Lenders[:1]

	localBefore := local.Clone()
	incomingBefore := incoming.Clone()

	_ = Merge(&local, incoming)

	assert.Equal(t, localBefore, local)
	assert.Equal(t, incomingBefore, incoming)
}
