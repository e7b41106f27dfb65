// Package deal defines the core record types for the deal pipeline:
// the Deal root entity, its ordered Lender sub-records, and the
// append-only note history. These are plain values; all reconciliation
// and editing behavior lives in internal/engine.
package deal

import "time"

// TrackingStatus indicates whether a lender is actively being worked.
type TrackingStatus string

// Tracking statuses as stored in the lenders tracking_status column.
const (
	TrackingActive   TrackingStatus = "active"
	TrackingInactive TrackingStatus = "inactive"
	TrackingPassed   TrackingStatus = "passed"
)

// Stage is a lender's position in the outreach workflow.
type Stage string

// Lender workflow stages, in pipeline order.
const (
	StageIdentified Stage = "identified"
	StageContacted  Stage = "contacted"
	StageDiligence  Stage = "diligence"
	StageTermSheet  Stage = "term_sheet"
	StageClosed     Stage = "closed"
	StageDeclined   Stage = "declined"
)

// NoteHistoryEntry is one frozen note in a lender's audit trail.
// Entries are immutable once created; ordering is newest first.
type NoteHistoryEntry struct {
	Text      string    `json:"text"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lender is a sub-record owned by exactly one Deal (contained by value
// in the Deal's list). Notes always holds the latest, possibly
// uncommitted, draft text, never a historical value.
type Lender struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Stage          Stage              `json:"stage"`
	Substage       string             `json:"substage"`
	TrackingStatus TrackingStatus     `json:"tracking_status"`
	Notes          string             `json:"notes"`
	NotesHistory   []NoteHistoryEntry `json:"notes_history,omitempty"`
	NotesUpdatedAt time.Time          `json:"notes_updated_at"`
	EquityAmount   float64            `json:"equity_amount"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// Referrer is an optional reference to whoever sourced the deal.
type Referrer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Deal is the root entity. Lenders is ordered; the order is user-visible
// and survives reconciliation with remote snapshots.
type Deal struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Status    string  `json:"status"`
	Stage     string  `json:"stage"`
	Value     float64 `json:"value"`
	Manager   string  `json:"manager"`
	Narrative string  `json:"narrative"`
	Notes     string  `json:"notes"`

	// Fee fields are edited via on-blur-commit inputs and are protected
	// from remote overwrite until they round-trip (engine merge rules).
	RetainerFee       float64 `json:"retainer_fee"`
	MilestoneFee      float64 `json:"milestone_fee"`
	SuccessFeePercent float64 `json:"success_fee_percent"`
	TotalFee          float64 `json:"total_fee"`
	PreSigningHours   float64 `json:"pre_signing_hours"`
	PostSigningHours  float64 `json:"post_signing_hours"`

	Referrer  *Referrer `json:"referrer,omitempty"`
	Lenders   []Lender  `json:"lenders"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the deal: the lender slice, each lender's
// history slice, and the referrer are all duplicated. Undo snapshots and
// merge results rely on clones never aliasing the original.
func (d Deal) Clone() Deal {
	out := d

	if d.Referrer != nil {
		ref := *d.Referrer
		out.Referrer = &ref
	}

	out.Lenders = make([]Lender, len(d.Lenders))
	for i := range d.Lenders {
		out.Lenders[i] = d.Lenders[i].Clone()
	}

	return out
}

// Clone returns a deep copy of the lender, duplicating the history slice.
func (l Lender) Clone() Lender {
	out := l

	if l.NotesHistory != nil {
		out.NotesHistory = make([]NoteHistoryEntry, len(l.NotesHistory))
		copy(out.NotesHistory, l.NotesHistory)
	}

	return out
}

// FindLender returns a pointer into the deal's lender slice for the given
// ID, or nil if absent. The pointer is invalidated by any append to the
// slice; callers mutate through it synchronously only.
func (d *Deal) FindLender(id string) *Lender {
	for i := range d.Lenders {
		if d.Lenders[i].ID == id {
			return &d.Lenders[i]
		}
	}

	return nil
}

// LenderIndex returns the position of the lender with the given ID,
// or -1 if absent.
func (d *Deal) LenderIndex(id string) int {
	for i := range d.Lenders {
		if d.Lenders[i].ID == id {
			return i
		}
	}

	return -1
}
