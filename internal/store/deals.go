package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jturner-5thline/dealdesk/internal/deal"
)

// nanosOf converts a time to the Unix-nanosecond representation used in
// every timestamp column.
func nanosOf(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.UnixNano()
}

// timeOf is the inverse of nanosOf; zero maps back to the zero time.
func timeOf(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}

	return time.Unix(0, n).UTC()
}

// FetchDeal loads a deal with its ordered lender list and each lender's
// note history (newest first). Returns ErrNotFound for unknown IDs.
func (s *SQLiteStore) FetchDeal(ctx context.Context, id string) (*deal.Deal, error) {
	row := s.dealStmts.get.QueryRowContext(ctx, id)

	var (
		d                        deal.Deal
		referrerID, referrerName sql.NullString
		updatedAt                int64
	)

	err := row.Scan(&d.ID, &d.Name, &d.Status, &d.Stage, &d.Value, &d.Manager,
		&d.Narrative, &d.Notes,
		&d.RetainerFee, &d.MilestoneFee, &d.SuccessFeePercent, &d.TotalFee,
		&d.PreSigningHours, &d.PostSigningHours,
		&referrerID, &referrerName, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("fetch deal %s: %w", id, ErrNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("fetch deal %s: %w", id, err)
	}

	d.UpdatedAt = timeOf(updatedAt)

	if referrerID.Valid {
		d.Referrer = &deal.Referrer{ID: referrerID.String, Name: referrerName.String}
	}

	lenders, err := s.listLenders(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch deal %s: %w", id, err)
	}

	d.Lenders = lenders

	return &d, nil
}

// SaveDeal upserts the full deal snapshot: scalar fields, the lender
// list (positions rewritten from list order), and note history. Used by
// snapshot import and tests; incremental edits go through UpdateDeal
// and the lender methods.
func (s *SQLiteStore) SaveDeal(ctx context.Context, d deal.Deal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}
	defer tx.Rollback()

	var referrerID, referrerName sql.NullString
	if d.Referrer != nil {
		referrerID = sql.NullString{String: d.Referrer.ID, Valid: true}
		referrerName = sql.NullString{String: d.Referrer.Name, Valid: true}
	}

	_, err = tx.StmtContext(ctx, s.dealStmts.upsert).ExecContext(ctx,
		d.ID, d.Name, d.Status, d.Stage, d.Value, d.Manager, d.Narrative, d.Notes,
		d.RetainerFee, d.MilestoneFee, d.SuccessFeePercent, d.TotalFee,
		d.PreSigningHours, d.PostSigningHours,
		referrerID, referrerName, nanosOf(d.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}

	// Replace the lender list wholesale; ON DELETE CASCADE clears the
	// old history rows.
	if _, err := tx.ExecContext(ctx, `DELETE FROM lenders WHERE deal_id = ?`, d.ID); err != nil {
		return fmt.Errorf("save deal %s: clear lenders: %w", d.ID, err)
	}

	insertLender := tx.StmtContext(ctx, s.lenderStmts.insert)
	insertHistory := tx.StmtContext(ctx, s.historyStmts.insert)

	for i := range d.Lenders {
		l := &d.Lenders[i]

		var notesAt sql.NullInt64
		if !l.NotesUpdatedAt.IsZero() {
			notesAt = sql.NullInt64{Int64: nanosOf(l.NotesUpdatedAt), Valid: true}
		}

		_, err := insertLender.ExecContext(ctx,
			l.ID, d.ID, i+1, l.Name, string(l.Stage), l.Substage,
			string(l.TrackingStatus), l.Notes, notesAt, l.EquityAmount,
			nanosOf(l.UpdatedAt))
		if err != nil {
			return fmt.Errorf("save deal %s: lender %s: %w", d.ID, l.ID, err)
		}

		for _, entry := range l.NotesHistory {
			if _, err := insertHistory.ExecContext(ctx, l.ID, entry.Text, nanosOf(entry.UpdatedAt)); err != nil {
				return fmt.Errorf("save deal %s: history for %s: %w", d.ID, l.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save deal %s: %w", d.ID, err)
	}

	return nil
}

// dealPatchColumns maps each set patch field to its column assignment.
// The returned slices are parallel.
func dealPatchColumns(p deal.DealPatch) ([]string, []any) {
	var (
		cols []string
		args []any
	)

	set := func(col string, v any) {
		cols = append(cols, col+" = ?")
		args = append(args, v)
	}

	if p.Name != nil {
		set("name", *p.Name)
	}

	if p.Status != nil {
		set("status", *p.Status)
	}

	if p.Stage != nil {
		set("stage", *p.Stage)
	}

	if p.Value != nil {
		set("value", *p.Value)
	}

	if p.Manager != nil {
		set("manager", *p.Manager)
	}

	if p.Narrative != nil {
		set("narrative", *p.Narrative)
	}

	if p.Notes != nil {
		set("notes", *p.Notes)
	}

	if p.RetainerFee != nil {
		set("retainer_fee", *p.RetainerFee)
	}

	if p.MilestoneFee != nil {
		set("milestone_fee", *p.MilestoneFee)
	}

	if p.SuccessFeePercent != nil {
		set("success_fee_percent", *p.SuccessFeePercent)
	}

	if p.TotalFee != nil {
		set("total_fee", *p.TotalFee)
	}

	if p.PreSigningHours != nil {
		set("pre_signing_hours", *p.PreSigningHours)
	}

	if p.PostSigningHours != nil {
		set("post_signing_hours", *p.PostSigningHours)
	}

	if p.ReferrerID != nil {
		set("referrer_id", *p.ReferrerID)
	}

	return cols, args
}

// UpdateDeal applies a partial scalar update and bumps updated_at.
// Patches are built dynamically, so this is plain Exec rather than a
// prepared statement. An empty patch still refreshes updated_at.
func (s *SQLiteStore) UpdateDeal(ctx context.Context, id string, patch deal.DealPatch) error {
	now := time.Now().UnixNano()

	cols, args := dealPatchColumns(patch)
	cols = append(cols, "updated_at = ?")
	args = append(args, now, id)

	query := "UPDATE deals SET " + strings.Join(cols, ", ") + " WHERE id = ?"

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update deal %s: %w", id, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update deal %s: %w", id, err)
	}

	if affected == 0 {
		return fmt.Errorf("update deal %s: %w", id, ErrNotFound)
	}

	return nil
}
