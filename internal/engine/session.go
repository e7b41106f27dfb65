package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Sentinel errors for the mutation path. Validation failures are
// returned before any mutation: no undo entry, no persistence call.
var (
	ErrUnknownField = errors.New("engine: unknown field")
	ErrInvalidValue = errors.New("engine: invalid value")
	ErrNoSuchLender = errors.New("engine: no such lender")
	ErrNoRemoval    = errors.New("engine: no such removal")
)

// Deal field names accepted by UpdateField. These double as the Field
// value recorded on undo entries.
const (
	FieldStatus            = "status"
	FieldStage             = "stage"
	FieldValue             = "value"
	FieldManager           = "manager"
	FieldNarrative         = "narrative"
	FieldNotes             = "notes"
	FieldRetainerFee       = "retainer_fee"
	FieldMilestoneFee      = "milestone_fee"
	FieldSuccessFeePercent = "success_fee_percent"
	FieldPreSigningHours   = "pre_signing_hours"
	FieldPostSigningHours  = "post_signing_hours"
)

const maxPercent = 100

// ActivityEntry is a best-effort audit event dispatched to the store.
// Not required for engine correctness.
type ActivityEntry struct {
	Type        string
	Description string
	Metadata    map[string]string
}

// Store is the record-store collaborator as consumed by the session.
// All writes are dispatched optimistically: the local draft is updated
// before any of these are called, and failures are never rolled back.
type Store interface {
	UpdateDeal(ctx context.Context, id string, patch deal.DealPatch) error
	AddLender(ctx context.Context, dealID string, nl deal.NewLender) (deal.Lender, error)
	UpdateLender(ctx context.Context, dealID, lenderID string, patch deal.LenderPatch) error
	DeleteLender(ctx context.Context, dealID, lenderID string) error
	AppendNoteHistory(ctx context.Context, dealID, lenderID string, entry deal.NoteHistoryEntry) error
	LogActivity(ctx context.Context, dealID string, entry ActivityEntry) error
}

// Notifier surfaces engine events to the presentation layer: failed
// background persistence (the draft stays ahead of the store until the
// next refresh) and the dismissible restore affordance for removals.
type Notifier interface {
	PersistFailed(op string, err error)
	LenderRemoved(bufferID string, l deal.Lender)
}

// nopNotifier is the default when the caller passes nil.
type nopNotifier struct{}

func (nopNotifier) PersistFailed(string, error)       {}
func (nopNotifier) LenderRemoved(string, deal.Lender) {}

// Options tunes session timing and staleness policies. Zero values fall
// back to defaults.
type Options struct {
	// CommitAckInterval is how long the transient saved-acknowledgement
	// stays visible after a note commit.
	CommitAckInterval time.Duration

	// DebounceQuiet is the keystroke quiet interval before a debounced
	// field (equity amount) is persisted.
	DebounceQuiet time.Duration

	Calendar    CalendarPolicy
	ListTiers   BusinessDayPolicy
	HeaderTiers BusinessDayPolicy
}

// Default timing and policy values, used when Options fields are zero.
const (
	DefaultCommitAckInterval = 1500 * time.Millisecond
	DefaultDebounceQuiet     = 800 * time.Millisecond
)

func (o *Options) fillDefaults() {
	if o.CommitAckInterval == 0 {
		o.CommitAckInterval = DefaultCommitAckInterval
	}

	if o.DebounceQuiet == 0 {
		o.DebounceQuiet = DefaultDebounceQuiet
	}

	if o.Calendar == (CalendarPolicy{}) {
		o.Calendar = CalendarPolicy{YellowDays: 3, RedDays: 5}
	}

	if o.ListTiers == (BusinessDayPolicy{}) {
		o.ListTiers = BusinessDayPolicy{WarnAfter: 3, DangerAt: 5}
	}

	if o.HeaderTiers == (BusinessDayPolicy{}) {
		o.HeaderTiers = BusinessDayPolicy{WarnAfter: 5, DangerAt: 10}
	}
}

// Session owns the local draft for one deal-editing session. It is the
// single writer: every user action and every incoming snapshot goes
// through its mutex, which is what lets the undo stack, note tracker,
// and removal buffer stay consistent with the draft without any
// transactional coordination between them.
//
// Persistence is optimistic. The draft mutates first; the store call
// runs in a background goroutine and a failure only produces a
// Notifier.PersistFailed; local state stays ahead of the store until
// the next canonical snapshot reconciles it.
type Session struct {
	dealID   string
	store    Store
	notifier Notifier
	logger   *slog.Logger
	opts     Options

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	draft    *deal.Deal
	undo     *UndoStack
	notes    *NoteTracker
	removed  *RemovedBuffer
	acks     map[string]*time.Timer // lender ID → ack clear timer
	ackShown map[string]bool
	debounce map[string]*time.Timer // lender ID → equity persist timer

	now func() time.Time
}

// NewSession creates a session for the given deal ID. The draft starts
// empty; the first ApplySnapshot installs the initial load. A nil
// notifier is replaced with a no-op; a nil logger with slog.Default().
func NewSession(dealID string, store Store, notifier Notifier, logger *slog.Logger, opts Options) *Session {
	if notifier == nil {
		notifier = nopNotifier{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	opts.fillDefaults()

	ctx, cancel := context.WithCancel(context.Background())

	return &Session{
		dealID:   dealID,
		store:    store,
		notifier: notifier,
		logger:   logger,
		opts:     opts,
		ctx:      ctx,
		cancel:   cancel,
		undo:     NewUndoStack(),
		notes:    NewNoteTracker(),
		removed:  NewRemovedBuffer(),
		acks:     make(map[string]*time.Timer),
		ackShown: make(map[string]bool),
		debounce: make(map[string]*time.Timer),
		now:      time.Now,
	}
}

// ApplySnapshot merges an incoming canonical snapshot into the draft.
// Safe to call on any cadence, including back-to-back with no local
// mutation in between (merge is idempotent).
func (s *Session) ApplySnapshot(incoming deal.Deal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := Merge(s.draft, incoming)
	s.draft = &merged

	s.logger.Debug("snapshot applied",
		slog.String("deal_id", s.dealID),
		slog.Int("lenders", len(merged.Lenders)),
	)
}

// Draft returns a deep copy of the current local draft. The second
// return is false before the first snapshot arrives.
func (s *Session) Draft() (deal.Deal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return deal.Deal{}, false
	}

	return s.draft.Clone(), true
}

// UndoDepth returns the number of undoable mutations.
func (s *Session) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.undo.Len()
}

// UpdateField applies one scalar field edit to the draft, pushes the
// pre-mutation snapshot, recomputes the derived total fee when a fee
// input changed, and dispatches the persistence patch. Unknown fields
// and out-of-range values are rejected before any mutation.
func (s *Session) UpdateField(field string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return fmt.Errorf("update %s: no deal loaded", field)
	}

	patch, err := buildFieldPatch(field, value)
	if err != nil {
		return err
	}

	s.undo.Push(*s.draft, field)
	applyDealPatch(s.draft, patch)

	if isFeeField(field) {
		total := s.draft.RetainerFee + s.draft.MilestoneFee +
			s.draft.Value*s.draft.SuccessFeePercent/maxPercent
		s.draft.TotalFee = total
		patch.TotalFee = &total
	}

	s.draft.UpdatedAt = s.now()

	s.persist("update deal", func(ctx context.Context) error {
		return s.store.UpdateDeal(ctx, s.dealID, patch)
	})

	return nil
}

// buildFieldPatch validates a (field, value) pair and returns the
// corresponding store patch. Percentage fields must lie in [0, 100];
// money and hour fields must be non-negative.
func buildFieldPatch(field string, value any) (deal.DealPatch, error) {
	switch field {
	case FieldStatus, FieldStage, FieldManager, FieldNarrative, FieldNotes:
		str, ok := value.(string)
		if !ok {
			return deal.DealPatch{}, fmt.Errorf("%w: %s wants a string", ErrInvalidValue, field)
		}

		return stringPatch(field, str), nil

	case FieldValue, FieldRetainerFee, FieldMilestoneFee,
		FieldSuccessFeePercent, FieldPreSigningHours, FieldPostSigningHours:
		num, ok := value.(float64)
		if !ok {
			return deal.DealPatch{}, fmt.Errorf("%w: %s wants a number", ErrInvalidValue, field)
		}

		if num < 0 {
			return deal.DealPatch{}, fmt.Errorf("%w: %s must be non-negative", ErrInvalidValue, field)
		}

		if field == FieldSuccessFeePercent && num > maxPercent {
			return deal.DealPatch{}, fmt.Errorf("%w: %s must be at most 100", ErrInvalidValue, field)
		}

		return numberPatch(field, num), nil

	default:
		return deal.DealPatch{}, fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
}

func stringPatch(field, v string) deal.DealPatch {
	var p deal.DealPatch

	switch field {
	case FieldStatus:
		p.Status = &v
	case FieldStage:
		p.Stage = &v
	case FieldManager:
		p.Manager = &v
	case FieldNarrative:
		p.Narrative = &v
	case FieldNotes:
		p.Notes = &v
	}

	return p
}

func numberPatch(field string, v float64) deal.DealPatch {
	var p deal.DealPatch

	switch field {
	case FieldValue:
		p.Value = &v
	case FieldRetainerFee:
		p.RetainerFee = &v
	case FieldMilestoneFee:
		p.MilestoneFee = &v
	case FieldSuccessFeePercent:
		p.SuccessFeePercent = &v
	case FieldPreSigningHours:
		p.PreSigningHours = &v
	case FieldPostSigningHours:
		p.PostSigningHours = &v
	}

	return p
}

// applyDealPatch copies the patch's set fields onto the draft.
func applyDealPatch(d *deal.Deal, p deal.DealPatch) {
	if p.Status != nil {
		d.Status = *p.Status
	}

	if p.Stage != nil {
		d.Stage = *p.Stage
	}

	if p.Manager != nil {
		d.Manager = *p.Manager
	}

	if p.Narrative != nil {
		d.Narrative = *p.Narrative
	}

	if p.Notes != nil {
		d.Notes = *p.Notes
	}

	if p.Value != nil {
		d.Value = *p.Value
	}

	if p.RetainerFee != nil {
		d.RetainerFee = *p.RetainerFee
	}

	if p.MilestoneFee != nil {
		d.MilestoneFee = *p.MilestoneFee
	}

	if p.SuccessFeePercent != nil {
		d.SuccessFeePercent = *p.SuccessFeePercent
	}

	if p.PreSigningHours != nil {
		d.PreSigningHours = *p.PreSigningHours
	}

	if p.PostSigningHours != nil {
		d.PostSigningHours = *p.PostSigningHours
	}
}

// isFeeField reports whether the field feeds the derived total fee.
func isFeeField(field string) bool {
	switch field {
	case FieldValue, FieldRetainerFee, FieldMilestoneFee, FieldSuccessFeePercent:
		return true
	default:
		return false
	}
}

// Undo pops the most recent edit and restores its snapshot verbatim: a
// full replace, not a per-field revert, so one undo reverses compound
// side effects. Returns false when there is nothing to undo. Undo never
// issues a store call; the draft simply falls behind or ahead of the
// store until the next refresh.
func (s *Session) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.undo.Pop()
	if !ok {
		return false
	}

	restored := entry.Snapshot.Clone()
	s.draft = &restored

	s.logger.Debug("undo applied",
		slog.String("deal_id", s.dealID),
		slog.String("field", entry.Field),
	)

	return true
}

// Close stops pending debounce and ack timers, waits for in-flight
// persistence goroutines to finish their store calls, then cancels the
// session context. The draft and undo history do not survive Close.
func (s *Session) Close() {
	s.mu.Lock()

	for _, t := range s.debounce {
		t.Stop()
	}

	for _, t := range s.acks {
		t.Stop()
	}

	s.debounce = make(map[string]*time.Timer)
	s.acks = make(map[string]*time.Timer)
	s.undo.Clear()
	s.removed.Clear()

	s.mu.Unlock()

	// Drain before canceling: store calls against the local database
	// are fast, and canceling first would abort writes the user already
	// saw succeed optimistically.
	s.wg.Wait()
	s.cancel()
}

// persist runs a store call in the background. The draft was already
// mutated; a failure is logged and surfaced but never rolled back.
func (s *Session) persist(op string, call func(ctx context.Context) error) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := call(s.ctx); err != nil {
			s.logger.Warn("persistence failed",
				slog.String("op", op),
				slog.String("deal_id", s.dealID),
				slog.String("error", err.Error()),
			)
			s.notifier.PersistFailed(op, err)
		}
	}()
}

// logActivity dispatches a best-effort activity event.
func (s *Session) logActivity(entry ActivityEntry) {
	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if err := s.store.LogActivity(s.ctx, s.dealID, entry); err != nil {
			s.logger.Debug("activity log failed",
				slog.String("type", entry.Type),
				slog.String("error", err.Error()),
			)
		}
	}()
}
