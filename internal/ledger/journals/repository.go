package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/shared"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, limit int) ([]JournalEntry, error)
	GetWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	// WithTx runs fn inside a serializable transaction; any error rolls the
	// whole unit back so no partial entry or lines remain.
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	// Join exposes the tx-scoped operations on a transaction owned by
	// another flow (payment posting voids/posts inside its own tx).
	Join(tx pgx.Tx) TxRepository
}

// TxRepository exposes operations available within a transaction.
type TxRepository interface {
	NextEntryRef(ctx context.Context, entryType string) (string, error)
	InsertEntry(ctx context.Context, in EntryInput, ref string, posted bool, status ApprovalStatus) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) error
	GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error)
	MarkVoided(ctx context.Context, entryID int64, reason string) error
	SetApprovalOutcome(ctx context.Context, entryID int64, status ApprovalStatus, posted bool) error
	ListBySource(ctx context.Context, module string, ref uuid.UUID) ([]JournalEntry, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, entry_ref, entry_date, entry_type, description, source_module, source_ref, student_id, staff_id, term_id, posted, approval_status, voided, void_reason, created_by, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	var sourceRef *uuid.UUID
	var voidReason *string
	err := row.Scan(&e.ID, &e.EntryRef, &e.EntryDate, &e.EntryType, &e.Description, &e.SourceModule, &sourceRef,
		&e.StudentID, &e.StaffID, &e.TermID, &e.Posted, &e.ApprovalStatus, &e.Voided, &voidReason,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return JournalEntry{}, err
	}
	if sourceRef != nil {
		e.SourceRef = *sourceRef
	}
	if voidReason != nil {
		e.VoidReason = *voidReason
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) GetWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.db, entryID)
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *repository) Join(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextEntryRef(ctx context.Context, entryType string) (string, error) {
	var seq int64
	if err := r.tx.QueryRow(ctx, `SELECT nextval('journal_entry_ref_seq')`).Scan(&seq); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%06d", RefPrefix(entryType), time.Now().Format("20060102"), seq), nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in EntryInput, ref string, posted bool, status ApprovalStatus) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(entry_ref, entry_date, entry_type, description, source_module, source_ref, student_id, staff_id, term_id, posted, approval_status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id, created_at, updated_at`,
		ref, in.EntryDate, in.EntryType, in.Description, in.SourceModule, nullUUID(in.SourceRef),
		in.StudentID, in.StaffID, in.TermID, posted, status, nullInt(in.CreatedBy))
	entry := JournalEntry{
		EntryRef:       ref,
		EntryDate:      in.EntryDate,
		EntryType:      in.EntryType,
		Description:    in.Description,
		SourceModule:   in.SourceModule,
		SourceRef:      in.SourceRef,
		StudentID:      in.StudentID,
		StaffID:        in.StaffID,
		TermID:         in.TermID,
		Posted:         posted,
		ApprovalStatus: status,
		CreatedBy:      in.CreatedBy,
	}
	if err := row.Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return JournalEntry{}, shared.Conflictf("journals: source %s/%s already has an entry", in.SourceModule, in.SourceRef)
		}
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) error {
	for idx, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_entry_lines (entry_id, line_number, account_code, debit, credit, description)
VALUES ($1,$2,$3,$4,$5,$6)`, entryID, idx+1, line.AccountCode, line.Debit, line.Credit, line.Description); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, entryID int64) (JournalEntry, error) {
	return getEntryWithLines(ctx, r.tx, entryID)
}

func (r *txRepository) MarkVoided(ctx context.Context, entryID int64, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET voided=TRUE, void_reason=$2, updated_at=NOW()
WHERE id=$1 AND posted AND NOT voided`, entryID, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("journals: entry %d not found or already voided", entryID)
	}
	return nil
}

func (r *txRepository) SetApprovalOutcome(ctx context.Context, entryID int64, status ApprovalStatus, posted bool) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET approval_status=$2, posted=$3, updated_at=NOW()
WHERE id=$1 AND approval_status='PENDING' AND NOT voided`, entryID, status, posted)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("journals: entry %d is not awaiting approval", entryID)
	}
	return nil
}

func (r *txRepository) ListBySource(ctx context.Context, module string, ref uuid.UUID) ([]JournalEntry, error) {
	rows, err := r.tx.Query(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE source_module=$1 AND source_ref=$2 ORDER BY id`, module, ref)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *txRepository) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, r.tx, log)
}

type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func getEntryWithLines(ctx context.Context, q querier, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(q.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.NotFoundf("journals: entry %d not found", entryID)
		}
		return JournalEntry{}, err
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_number, account_code, debit, credit, description, created_at
FROM journal_entry_lines WHERE entry_id=$1 ORDER BY line_number`, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.LineNumber, &line.AccountCode, &line.Debit, &line.Credit, &line.Description, &line.CreatedAt); err != nil {
			return JournalEntry{}, err
		}
		entry.Lines = append(entry.Lines, line)
	}
	return entry, rows.Err()
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullUUID(val uuid.UUID) any {
	if val == uuid.Nil {
		return nil
	}
	return val
}
