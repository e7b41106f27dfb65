package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// Activity types recorded against the deal's activity log.
const (
	activityLenderAdded    = "lender_added"
	activityLenderRemoved  = "lender_removed"
	activityLenderRestored = "lender_restored"
	activityNoteCommitted  = "note_committed"
)

// AddLender creates a lender remotely and appends it to the draft. The
// store call is synchronous; unlike scalar updates, the server-assigned
// identifier must be known before the next snapshot merge, or the merge
// would treat the new lender as a remote deletion and drop it.
func (s *Session) AddLender(nl deal.NewLender) (deal.Lender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return deal.Lender{}, fmt.Errorf("add lender: no deal loaded")
	}

	if nl.TrackingStatus == "" {
		nl.TrackingStatus = deal.TrackingActive
	}

	created, err := s.store.AddLender(s.ctx, s.dealID, nl)
	if err != nil {
		return deal.Lender{}, fmt.Errorf("add lender: %w", err)
	}

	s.undo.Push(*s.draft, "lenders")
	s.draft.Lenders = append(s.draft.Lenders, created.Clone())
	s.draft.UpdatedAt = s.now()

	s.logActivity(ActivityEntry{
		Type:        activityLenderAdded,
		Description: "Added lender " + created.Name,
		Metadata:    map[string]string{"lender_id": created.ID},
	})

	return created, nil
}

// RemoveLender soft-deletes a lender: undo snapshot first, then local
// list removal, then the buffer entry that backs the restore affordance.
// The remote delete is issued immediately (fire-and-forget); the buffer
// only serves the local undo gesture. Returns the buffer entry ID.
func (s *Session) RemoveLender(lenderID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	if s.draft != nil {
		idx = s.draft.LenderIndex(lenderID)
	}

	if idx < 0 {
		return "", fmt.Errorf("remove lender %s: %w", lenderID, ErrNoSuchLender)
	}

	s.undo.Push(*s.draft, "lenders")

	removed := s.draft.Lenders[idx]
	s.draft.Lenders = append(s.draft.Lenders[:idx], s.draft.Lenders[idx+1:]...)
	s.draft.UpdatedAt = s.now()
	s.notes.Forget(lenderID)

	bufferID := s.removed.Add(removed)

	s.persist("delete lender", func(ctx context.Context) error {
		return s.store.DeleteLender(ctx, s.dealID, lenderID)
	})

	s.notifier.LenderRemoved(bufferID, removed.Clone())
	s.logActivity(ActivityEntry{
		Type:        activityLenderRemoved,
		Description: "Removed lender " + removed.Name,
		Metadata:    map[string]string{"lender_id": lenderID},
	})

	return bufferID, nil
}

// RestoreLender takes a buffered removal and re-appends the lender at
// the end of the list (not its original position). Because removal
// already deleted the record remotely, restore re-creates it with a
// synchronous store call and adopts the newly assigned identifier;
// otherwise the next snapshot merge would drop it again.
func (s *Session) RestoreLender(bufferID string) (deal.Lender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.draft == nil {
		return deal.Lender{}, fmt.Errorf("restore lender: no deal loaded")
	}

	entry, ok := s.removed.Take(bufferID)
	if !ok {
		return deal.Lender{}, fmt.Errorf("restore %s: %w", bufferID, ErrNoRemoval)
	}

	restored := entry.Lender.Clone()

	created, err := s.store.AddLender(s.ctx, s.dealID, deal.NewLender{
		Name:           restored.Name,
		Stage:          restored.Stage,
		Substage:       restored.Substage,
		TrackingStatus: restored.TrackingStatus,
		Notes:          restored.Notes,
		EquityAmount:   restored.EquityAmount,
	})
	if err != nil {
		// Put the entry back so the affordance survives a transient failure.
		s.removed.Put(entry)
		return deal.Lender{}, fmt.Errorf("restore lender: %w", err)
	}

	restored.ID = created.ID
	restored.UpdatedAt = s.now()

	s.undo.Push(*s.draft, "lenders")
	s.draft.Lenders = append(s.draft.Lenders, restored)
	s.draft.UpdatedAt = s.now()

	s.logActivity(ActivityEntry{
		Type:        activityLenderRestored,
		Description: "Restored lender " + restored.Name,
		Metadata:    map[string]string{"lender_id": restored.ID},
	})

	return restored.Clone(), nil
}

// Removals returns the current soft-delete buffer contents.
func (s *Session) Removals() []RemovedLender {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removed.Entries()
}

// MoveLender repositions a lender within the list. The new order is
// local-only state; the merge engine preserves it across refreshes, and
// it is not persisted.
func (s *Session) MoveLender(lenderID string, newIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	if s.draft != nil {
		idx = s.draft.LenderIndex(lenderID)
	}

	if idx < 0 {
		return fmt.Errorf("move lender %s: %w", lenderID, ErrNoSuchLender)
	}

	if newIndex < 0 || newIndex >= len(s.draft.Lenders) {
		return fmt.Errorf("%w: index %d out of range", ErrInvalidValue, newIndex)
	}

	if newIndex == idx {
		return nil
	}

	s.undo.Push(*s.draft, "lender_order")

	moved := s.draft.Lenders[idx]
	rest := append(s.draft.Lenders[:idx], s.draft.Lenders[idx+1:]...)
	s.draft.Lenders = append(rest[:newIndex], append([]deal.Lender{moved}, rest[newIndex:]...)...)

	return nil
}

// UpdateLenderStage moves a lender to a new workflow position and
// persists the change optimistically.
func (s *Session) UpdateLenderStage(lenderID string, stage deal.Stage, substage string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return fmt.Errorf("update stage %s: %w", lenderID, ErrNoSuchLender)
	}

	s.undo.Push(*s.draft, "lender_stage")

	l.Stage = stage
	l.Substage = substage
	l.UpdatedAt = s.now()
	s.draft.UpdatedAt = l.UpdatedAt

	s.persist("update lender stage", func(ctx context.Context) error {
		return s.store.UpdateLender(ctx, s.dealID, lenderID, deal.LenderPatch{
			Stage:    &stage,
			Substage: &substage,
		})
	})

	return nil
}

// UpdateLenderTracking flips a lender's tracking status and persists it.
func (s *Session) UpdateLenderTracking(lenderID string, status deal.TrackingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return fmt.Errorf("update tracking %s: %w", lenderID, ErrNoSuchLender)
	}

	s.undo.Push(*s.draft, "lender_tracking")

	l.TrackingStatus = status
	l.UpdatedAt = s.now()
	s.draft.UpdatedAt = l.UpdatedAt

	s.persist("update lender tracking", func(ctx context.Context) error {
		return s.store.UpdateLender(ctx, s.dealID, lenderID, deal.LenderPatch{
			TrackingStatus: &status,
		})
	})

	return nil
}

// NoteKeystroke applies one live edit of a lender's note text. The first
// keystroke diverging from a committed value archives that value into
// the lender's history (see NoteTracker). Keystrokes are transient draft
// state: they push no undo entry and trigger no persistence; only
// CommitNote does.
func (s *Session) NoteKeystroke(lenderID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return fmt.Errorf("note keystroke %s: %w", lenderID, ErrNoSuchLender)
	}

	if s.notes.Keystroke(l, text) {
		s.logger.Debug("note divergence archived",
			slog.String("lender_id", lenderID),
			slog.Int("history_len", len(l.NotesHistory)),
		)

		// Persist the archived entry so the next canonical snapshot
		// carries it; merge always takes history from incoming.
		entry := l.NotesHistory[0]
		s.persist("append note history", func(ctx context.Context) error {
			return s.store.AppendNoteHistory(ctx, s.dealID, lenderID, entry)
		})
	}

	return nil
}

// CommitNote freezes the lender's current note text as the saved value,
// persists it, and shows the transient saved acknowledgement. Empty or
// whitespace-only text is a no-op.
func (s *Session) CommitNote(lenderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return fmt.Errorf("commit note %s: %w", lenderID, ErrNoSuchLender)
	}

	s.undo.Push(*s.draft, "lender_notes")

	text, committed := s.notes.Commit(l)
	if !committed {
		// Nothing to save; drop the snapshot we just pushed.
		s.undo.Pop()
		return nil
	}

	l.UpdatedAt = s.now()
	s.draft.UpdatedAt = l.UpdatedAt
	notesAt := l.NotesUpdatedAt

	s.persist("commit note", func(ctx context.Context) error {
		return s.store.UpdateLender(ctx, s.dealID, lenderID, deal.LenderPatch{
			Notes:          &text,
			NotesUpdatedAt: &notesAt,
		})
	})

	s.showAck(lenderID)
	s.logActivity(ActivityEntry{
		Type:        activityNoteCommitted,
		Description: "Saved note for " + l.Name,
		Metadata:    map[string]string{"lender_id": lenderID},
	})

	return nil
}

// AckVisible reports whether the saved-acknowledgement is currently
// showing for the lender.
func (s *Session) AckVisible(lenderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ackShown[lenderID]
}

// showAck sets the acknowledgement flag and arms its self-clear timer,
// restarting the timer if one is already pending. Caller holds s.mu.
func (s *Session) showAck(lenderID string) {
	s.ackShown[lenderID] = true

	if t, ok := s.acks[lenderID]; ok {
		t.Stop()
	}

	s.acks[lenderID] = time.AfterFunc(s.opts.CommitAckInterval, func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		delete(s.ackShown, lenderID)
		delete(s.acks, lenderID)
	})
}

// SetEquityAmount applies a debounced edit of a lender's equity amount.
// The draft updates immediately; persistence waits for the quiet
// interval, restarting on every keystroke so only the final value is
// written. One undo entry is pushed per burst, not per keystroke.
func (s *Session) SetEquityAmount(lenderID string, amount float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 0 {
		return fmt.Errorf("%w: equity amount must be non-negative", ErrInvalidValue)
	}

	l := s.findLender(lenderID)
	if l == nil {
		return fmt.Errorf("set equity %s: %w", lenderID, ErrNoSuchLender)
	}

	if _, pending := s.debounce[lenderID]; !pending {
		s.undo.Push(*s.draft, "lender_equity")
	} else {
		s.debounce[lenderID].Stop()
	}

	l.EquityAmount = amount
	l.UpdatedAt = s.now()

	s.debounce[lenderID] = time.AfterFunc(s.opts.DebounceQuiet, func() {
		s.flushEquity(lenderID)
	})

	return nil
}

// flushEquity persists the final equity value after the quiet interval.
func (s *Session) flushEquity(lenderID string) {
	s.mu.Lock()

	delete(s.debounce, lenderID)

	l := s.findLender(lenderID)
	if l == nil {
		// Removed while the timer was pending; nothing to persist.
		s.mu.Unlock()
		return
	}

	amount := l.EquityAmount
	s.mu.Unlock()

	s.persist("update equity", func(ctx context.Context) error {
		return s.store.UpdateLender(ctx, s.dealID, lenderID, deal.LenderPatch{
			EquityAmount: &amount,
		})
	})
}

// Classify applies the session's calendar-day staleness policy.
func (s *Session) Classify(lenderID string) (Staleness, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return Staleness{}, fmt.Errorf("classify %s: %w", lenderID, ErrNoSuchLender)
	}

	return s.opts.Calendar.Classify(l, s.now()), nil
}

// ListTier applies the lender-list business-day tiering.
func (s *Session) ListTier(lenderID string) (Tier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l := s.findLender(lenderID)
	if l == nil {
		return TierFresh, fmt.Errorf("tier %s: %w", lenderID, ErrNoSuchLender)
	}

	return s.opts.ListTiers.Tier(l, s.now()), nil
}

// HeaderTier returns the most severe header-scale tier across all
// lenders, for the header-level rollup display.
func (s *Session) HeaderTier() Tier {
	s.mu.Lock()
	defer s.mu.Unlock()

	worst := TierFresh

	if s.draft == nil {
		return worst
	}

	now := s.now()

	for i := range s.draft.Lenders {
		if t := s.opts.HeaderTiers.Tier(&s.draft.Lenders[i], now); t > worst {
			worst = t
		}
	}

	return worst
}

// findLender returns a pointer into the draft's lender slice. Caller
// holds s.mu; the pointer must not outlive the critical section.
func (s *Session) findLender(lenderID string) *deal.Lender {
	if s.draft == nil {
		return nil
	}

	return s.draft.FindLender(lenderID)
}
