package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jturner-5thline/dealdesk/internal/engine"
)

// ActivityRecord is one persisted activity-log row.
type ActivityRecord struct {
	Type        string
	Description string
	Metadata    map[string]string
	CreatedAt   time.Time
}

// LogActivity appends a best-effort audit event for the deal. Metadata
// is stored as a JSON object.
func (s *SQLiteStore) LogActivity(ctx context.Context, dealID string, entry engine.ActivityEntry) error {
	meta := entry.Metadata
	if meta == nil {
		meta = map[string]string{}
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}

	_, err = s.activityStmts.insert.ExecContext(ctx,
		uuid.NewString(), dealID, entry.Type, entry.Description,
		string(encoded), time.Now().UnixNano())
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}

	return nil
}

// ListActivity returns the deal's most recent activity, newest first.
func (s *SQLiteStore) ListActivity(ctx context.Context, dealID string, limit int) ([]ActivityRecord, error) {
	rows, err := s.activityStmts.listByDeal.QueryContext(ctx, dealID, limit)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	var records []ActivityRecord

	for rows.Next() {
		var (
			rec       ActivityRecord
			meta      string
			createdAt int64
		)

		if err := rows.Scan(&rec.Type, &rec.Description, &meta, &createdAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}

		if err := json.Unmarshal([]byte(meta), &rec.Metadata); err != nil {
			return nil, fmt.Errorf("decode activity metadata: %w", err)
		}

		rec.CreatedAt = timeOf(createdAt)
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}

	return records, nil
}
