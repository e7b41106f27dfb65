// Package store implements the record-store collaborator for the deal
// engine: a SQLite-backed persistence layer holding deals, lenders,
// note history, the activity log, and saved view preferences. The
// engine only sees the narrow interfaces it declares; this package is
// the concrete implementation used by the CLI and integration tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// ErrNotFound indicates the requested deal or lender does not exist.
var ErrNotFound = errors.New("store: not found")

// walJournalSizeLimit caps the WAL journal at 64 MiB.
const walJournalSizeLimit = 67108864

// SQLiteStore persists all deal-tracking state in an embedded SQLite
// database with WAL mode. Use ":memory:" for tests.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger

	// Prepared statements for repeated queries, grouped by domain.
	dealStmts     dealStatements
	lenderStmts   lenderStatements
	historyStmts  historyStatements
	activityStmts activityStatements
	prefStmts     prefStatements
}

// Statement groups to keep the store struct readable.
type dealStatements struct {
	get, upsert, touch *sql.Stmt
}

type lenderStatements struct {
	listByDeal, insert, delete, maxPosition *sql.Stmt
}

type historyStatements struct {
	listByLender, insert *sql.Stmt
}

type activityStatements struct {
	insert, listByDeal *sql.Stmt
}

type prefStatements struct {
	get, save *sql.Stmt
}

// NewStore opens the database at dbPath, applies migrations, and
// prepares all repeated statements.
func NewStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("opening deal database", "path", dbPath)

	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := setPragmas(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(context.Background(), db, logger); err != nil {
		db.Close()
		return nil, err
	}

	s := &SQLiteStore{db: db, logger: logger}

	if err := s.prepareAllStatements(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// Close releases prepared statements and the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	pragmas := []struct {
		sql  string
		desc string
	}{
		{"PRAGMA journal_mode = WAL", "WAL mode"},
		{"PRAGMA synchronous = FULL", "synchronous FULL"},
		{"PRAGMA foreign_keys = ON", "foreign keys"},
		{fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit), "journal size limit"},
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p.sql); err != nil {
			return fmt.Errorf("set pragma %s: %w", p.desc, err)
		}

		logger.Debug("pragma set", "pragma", p.desc)
	}

	return nil
}

// prepareAllStatements prepares every repeated query up front so a
// typo'd column fails at startup, not mid-session.
func (s *SQLiteStore) prepareAllStatements(ctx context.Context) error {
	prep := func(dst **sql.Stmt, query string) error {
		stmt, err := s.db.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare %q: %w", query, err)
		}

		*dst = stmt

		return nil
	}

	steps := []struct {
		dst   **sql.Stmt
		query string
	}{
		{&s.dealStmts.get, sqlGetDeal},
		{&s.dealStmts.upsert, sqlUpsertDeal},
		{&s.dealStmts.touch, sqlTouchDeal},
		{&s.lenderStmts.listByDeal, sqlListLenders},
		{&s.lenderStmts.insert, sqlInsertLender},
		{&s.lenderStmts.delete, sqlDeleteLender},
		{&s.lenderStmts.maxPosition, sqlMaxLenderPosition},
		{&s.historyStmts.listByLender, sqlListNoteHistory},
		{&s.historyStmts.insert, sqlInsertNoteHistory},
		{&s.activityStmts.insert, sqlInsertActivity},
		{&s.activityStmts.listByDeal, sqlListActivity},
		{&s.prefStmts.get, sqlGetPref},
		{&s.prefStmts.save, sqlSavePref},
	}

	for _, step := range steps {
		if err := prep(step.dst, step.query); err != nil {
			return err
		}
	}

	return nil
}

// --- SQL query constants, grouped by domain ---

const (
	sqlDealColumns = `id, name, status, stage, value, manager, narrative, notes,
		retainer_fee, milestone_fee, success_fee_percent, total_fee,
		pre_signing_hours, post_signing_hours,
		referrer_id, referrer_name, updated_at`

	sqlGetDeal = `SELECT ` + sqlDealColumns + ` FROM deals WHERE id = ?`

	sqlUpsertDeal = `INSERT INTO deals (` + sqlDealColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, status = excluded.status, stage = excluded.stage,
			value = excluded.value, manager = excluded.manager,
			narrative = excluded.narrative, notes = excluded.notes,
			retainer_fee = excluded.retainer_fee, milestone_fee = excluded.milestone_fee,
			success_fee_percent = excluded.success_fee_percent, total_fee = excluded.total_fee,
			pre_signing_hours = excluded.pre_signing_hours,
			post_signing_hours = excluded.post_signing_hours,
			referrer_id = excluded.referrer_id, referrer_name = excluded.referrer_name,
			updated_at = excluded.updated_at`

	sqlTouchDeal = `UPDATE deals SET updated_at = ? WHERE id = ?`
)

const (
	sqlLenderColumns = `id, deal_id, position, name, stage, substage,
		tracking_status, notes, notes_updated_at, equity_amount, updated_at`

	sqlListLenders = `SELECT ` + sqlLenderColumns +
		` FROM lenders WHERE deal_id = ? ORDER BY position ASC`

	sqlInsertLender = `INSERT INTO lenders (` + sqlLenderColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	sqlDeleteLender = `DELETE FROM lenders WHERE deal_id = ? AND id = ?`

	sqlMaxLenderPosition = `SELECT COALESCE(MAX(position), 0) FROM lenders WHERE deal_id = ?`
)

const (
	sqlListNoteHistory = `SELECT text, updated_at FROM note_history
		WHERE lender_id = ? ORDER BY updated_at DESC, id DESC`

	sqlInsertNoteHistory = `INSERT INTO note_history (lender_id, text, updated_at)
		VALUES (?, ?, ?)`
)

const (
	sqlInsertActivity = `INSERT INTO activity_log (id, deal_id, type, description, metadata, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	sqlListActivity = `SELECT type, description, metadata, created_at FROM activity_log
		WHERE deal_id = ? ORDER BY created_at DESC LIMIT ?`
)

const (
	sqlGetPref  = `SELECT value FROM view_prefs WHERE key = ?`
	sqlSavePref = `INSERT INTO view_prefs (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
)
