package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// listLenders returns the deal's lenders in position order with their
// note history attached, newest entry first.
func (s *SQLiteStore) listLenders(ctx context.Context, dealID string) ([]deal.Lender, error) {
	rows, err := s.lenderStmts.listByDeal.QueryContext(ctx, dealID)
	if err != nil {
		return nil, fmt.Errorf("list lenders: %w", err)
	}
	defer rows.Close()

	var lenders []deal.Lender

	for rows.Next() {
		var (
			l         deal.Lender
			dID       string
			position  int
			notesAt   sql.NullInt64
			updatedAt int64
		)

		err := rows.Scan(&l.ID, &dID, &position, &l.Name, &l.Stage, &l.Substage,
			&l.TrackingStatus, &l.Notes, &notesAt, &l.EquityAmount, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan lender: %w", err)
		}

		if notesAt.Valid {
			l.NotesUpdatedAt = timeOf(notesAt.Int64)
		}

		l.UpdatedAt = timeOf(updatedAt)
		lenders = append(lenders, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list lenders: %w", err)
	}

	for i := range lenders {
		history, err := s.listNoteHistory(ctx, lenders[i].ID)
		if err != nil {
			return nil, err
		}

		lenders[i].NotesHistory = history
	}

	return lenders, nil
}

func (s *SQLiteStore) listNoteHistory(ctx context.Context, lenderID string) ([]deal.NoteHistoryEntry, error) {
	rows, err := s.historyStmts.listByLender.QueryContext(ctx, lenderID)
	if err != nil {
		return nil, fmt.Errorf("list note history: %w", err)
	}
	defer rows.Close()

	var history []deal.NoteHistoryEntry

	for rows.Next() {
		var (
			entry deal.NoteHistoryEntry
			at    int64
		)

		if err := rows.Scan(&entry.Text, &at); err != nil {
			return nil, fmt.Errorf("scan note history: %w", err)
		}

		entry.UpdatedAt = timeOf(at)
		history = append(history, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list note history: %w", err)
	}

	return history, nil
}

// AddLender creates a lender at the end of the deal's list and returns
// the full record with its assigned identifier. Names are normalized to
// NFC so two clients typing the same name compare equal.
func (s *SQLiteStore) AddLender(ctx context.Context, dealID string, nl deal.NewLender) (deal.Lender, error) {
	var maxPos int
	if err := s.lenderStmts.maxPosition.QueryRowContext(ctx, dealID).Scan(&maxPos); err != nil {
		return deal.Lender{}, fmt.Errorf("add lender: %w", err)
	}

	now := time.Now()

	l := deal.Lender{
		ID:             uuid.NewString(),
		Name:           norm.NFC.String(nl.Name),
		Stage:          nl.Stage,
		Substage:       nl.Substage,
		TrackingStatus: nl.TrackingStatus,
		Notes:          nl.Notes,
		EquityAmount:   nl.EquityAmount,
		UpdatedAt:      now,
	}

	_, err := s.lenderStmts.insert.ExecContext(ctx,
		l.ID, dealID, maxPos+1, l.Name, string(l.Stage), l.Substage,
		string(l.TrackingStatus), l.Notes, sql.NullInt64{}, l.EquityAmount,
		nanosOf(now))
	if err != nil {
		return deal.Lender{}, fmt.Errorf("add lender: %w", err)
	}

	if _, err := s.dealStmts.touch.ExecContext(ctx, nanosOf(now), dealID); err != nil {
		return deal.Lender{}, fmt.Errorf("add lender: touch deal: %w", err)
	}

	return l, nil
}

// lenderPatchColumns maps set patch fields to column assignments.
func lenderPatchColumns(p deal.LenderPatch) ([]string, []any) {
	var (
		cols []string
		args []any
	)

	set := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}

	if p.Name != nil {
		set("name", norm.NFC.String(*p.Name))
	}

	if p.Stage != nil {
		set("stage", string(*p.Stage))
	}

	if p.Substage != nil {
		set("substage", *p.Substage)
	}

	if p.TrackingStatus != nil {
		set("tracking_status", string(*p.TrackingStatus))
	}

	if p.Notes != nil {
		set("notes", *p.Notes)
	}

	if p.NotesUpdatedAt != nil {
		set("notes_updated_at", nanosOf(*p.NotesUpdatedAt))
	}

	if p.EquityAmount != nil {
		set("equity_amount", *p.EquityAmount)
	}

	return cols, args
}

// UpdateLender applies a partial update and bumps both the lender's and
// the deal's updated_at.
func (s *SQLiteStore) UpdateLender(ctx context.Context, dealID, lenderID string, patch deal.LenderPatch) error {
	now := time.Now().UnixNano()

	cols, args := lenderPatchColumns(patch)
	cols = append(cols, "updated_at = ?")
	args = append(args, now, dealID, lenderID)

	query := "UPDATE lenders SET " + strings.Join(cols, ", ") + " WHERE deal_id = ? AND id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update lender %s: %w", lenderID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lender %s: %w", lenderID, err)
	}

	if affected == 0 {
		return fmt.Errorf("update lender %s: %w", lenderID, ErrNotFound)
	}

	if _, err := s.dealStmts.touch.ExecContext(ctx, now, dealID); err != nil {
		return fmt.Errorf("update lender %s: touch deal: %w", lenderID, err)
	}

	return nil
}

// DeleteLender removes a lender; its note history goes with it via
// ON DELETE CASCADE. Deleting an already-deleted lender is not an
// error, since the optimistic local removal may race a remote deletion.
func (s *SQLiteStore) DeleteLender(ctx context.Context, dealID, lenderID string) error {
	if _, err := s.lenderStmts.delete.ExecContext(ctx, dealID, lenderID); err != nil {
		return fmt.Errorf("delete lender %s: %w", lenderID, err)
	}

	if _, err := s.dealStmts.touch.ExecContext(ctx, time.Now().UnixNano(), dealID); err != nil {
		return fmt.Errorf("delete lender %s: touch deal: %w", lenderID, err)
	}

	return nil
}

// AppendNoteHistory records one immutable audit-trail entry for the
// lender. Entries are never updated or deleted individually.
func (s *SQLiteStore) AppendNoteHistory(ctx context.Context, dealID, lenderID string, entry deal.NoteHistoryEntry) error {
	if _, err := s.historyStmts.insert.ExecContext(ctx, lenderID, entry.Text, nanosOf(entry.UpdatedAt)); err != nil {
		return fmt.Errorf("append note history %s: %w", lenderID, err)
	}

	if _, err := s.dealStmts.touch.ExecContext(ctx, time.Now().UnixNano(), dealID); err != nil {
		return fmt.Errorf("append note history %s: touch deal: %w", lenderID, err)
	}

	return nil
}
