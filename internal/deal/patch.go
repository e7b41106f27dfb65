package deal

import "time"

// DealPatch carries a partial update for a deal's scalar fields.
// Pointer fields distinguish "not specified" (nil) from "explicitly set
// to zero value"; a nil field is left untouched by the store.
type DealPatch struct {
	Name              *string
	Status            *string
	Stage             *string
	Value             *float64
	Manager           *string
	Narrative         *string
	Notes             *string
	RetainerFee       *float64
	MilestoneFee      *float64
	SuccessFeePercent *float64
	TotalFee          *float64
	PreSigningHours   *float64
	PostSigningHours  *float64
	ReferrerID        *string
}

// IsZero reports whether the patch sets no fields at all.
func (p DealPatch) IsZero() bool {
	return p == DealPatch{}
}

// LenderPatch carries a partial update for a single lender.
type LenderPatch struct {
	Name           *string
	Stage          *Stage
	Substage       *string
	TrackingStatus *TrackingStatus
	Notes          *string
	NotesUpdatedAt *time.Time
	EquityAmount   *float64
}

// NewLender describes a lender to be created remotely. The store assigns
// the identifier and returns the full record.
type NewLender struct {
	Name           string
	Stage          Stage
	Substage       string
	TrackingStatus TrackingStatus
	Notes          string
	EquityAmount   float64
}

// String returns a pointer to s, for concise patch construction.
func String(s string) *string { return &s }

// Float returns a pointer to f, for concise patch construction.
func Float(f float64) *float64 { return &f }
