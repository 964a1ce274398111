package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/platform/db"
	"github.com/campusledger/campusledger/internal/shared"
)

// Repository provides transaction rows and owns the serializable scope the
// payment flows run in.
type Repository interface {
	GetTransaction(ctx context.Context, id int64) (LedgerTransaction, error)
	ListRecent(ctx context.Context, limit int) ([]LedgerTransaction, error)
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
}

// TxStore bundles the writes a payment or void performs. Tx exposes the
// underlying transaction so billing and journal work joins the same scope.
type TxStore interface {
	Tx() pgx.Tx
	CheckIdempotency(ctx context.Context, key string) error
	NextTransactionRef(ctx context.Context) (string, error)
	InsertTransaction(ctx context.Context, txn LedgerTransaction) (LedgerTransaction, error)
	GetTransactionForUpdate(ctx context.Context, id int64) (LedgerTransaction, error)
	MarkVoided(ctx context.Context, id int64, reason string) error
	LinkJournalEntry(ctx context.Context, txnID, entryID int64) error
	NextReceiptNumber(ctx context.Context) (string, error)
	InsertReceipt(ctx context.Context, rec Receipt) (Receipt, error)
	InsertVoidAudit(ctx context.Context, audit VoidAudit) (VoidAudit, error)
	RecordAudit(ctx context.Context, log shared.AuditLog) error
}

type repository struct {
	pool *pgxpool.Pool
	idem *shared.IdempotencyStore
}

// NewRepository constructs the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool, idem *shared.IdempotencyStore) Repository {
	return &repository{pool: pool, idem: idem}
}

const txnColumns = `id, public_id, transaction_ref, type, category, amount, debit_credit, description, method, student_id, term_id, linked_txn_id, journal_entry_id, voided, void_reason, idempotency_key, transaction_at, created_by, created_at, updated_at`

func scanTransaction(row pgx.Row) (LedgerTransaction, error) {
	var txn LedgerTransaction
	var voidReason, idemKey *string
	err := row.Scan(&txn.ID, &txn.PublicID, &txn.Ref, &txn.Type, &txn.Category,
		&txn.AmountCents, &txn.DebitCredit, &txn.Description, &txn.Method,
		&txn.StudentID, &txn.TermID, &txn.LinkedTxnID, &txn.JournalEntryID,
		&txn.Voided, &voidReason, &idemKey, &txn.TransactionAt,
		&txn.CreatedBy, &txn.CreatedAt, &txn.UpdatedAt)
	if err != nil {
		return LedgerTransaction{}, err
	}
	if voidReason != nil {
		txn.VoidReason = *voidReason
	}
	if idemKey != nil {
		txn.IdempotencyKey = *idemKey
	}
	return txn, nil
}

func (r *repository) GetTransaction(ctx context.Context, id int64) (LedgerTransaction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM ledger_transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerTransaction{}, shared.NotFoundf("payments: transaction %d not found", id)
	}
	if err != nil {
		return LedgerTransaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return txn, nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]LedgerTransaction, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+txnColumns+` FROM ledger_transactions ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []LedgerTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, txn)
	}
	return out, rows.Err()
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithSerializableTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txStore{tx: tx, idem: r.idem})
	})
}

type txStore struct {
	tx   pgx.Tx
	idem *shared.IdempotencyStore
}

func (s *txStore) Tx() pgx.Tx { return s.tx }

func (s *txStore) CheckIdempotency(ctx context.Context, key string) error {
	return s.idem.CheckAndInsert(ctx, s.tx, key, "payments")
}

func (s *txStore) NextTransactionRef(ctx context.Context) (string, error) {
	var n int64
	if err := s.tx.QueryRow(ctx, `SELECT nextval('ledger_txn_ref_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next transaction ref: %w", err)
	}
	return fmt.Sprintf("TXN-%s-%06d", time.Now().UTC().Format("20060102"), n), nil
}

func (s *txStore) InsertTransaction(ctx context.Context, txn LedgerTransaction) (LedgerTransaction, error) {
	row := s.tx.QueryRow(ctx, `
		INSERT INTO ledger_transactions
			(public_id, transaction_ref, type, category, amount, debit_credit,
			 description, method, student_id, term_id, linked_txn_id,
			 idempotency_key, transaction_at, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING `+txnColumns,
		txn.PublicID, txn.Ref, txn.Type, txn.Category, txn.AmountCents, txn.DebitCredit,
		txn.Description, txn.Method, txn.StudentID, txn.TermID, txn.LinkedTxnID,
		nullString(txn.IdempotencyKey), txn.TransactionAt, txn.CreatedBy)
	inserted, err := scanTransaction(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return LedgerTransaction{}, shared.Conflictf("payments: duplicate transaction ref %s", txn.Ref)
		}
		return LedgerTransaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return inserted, nil
}

func (s *txStore) GetTransactionForUpdate(ctx context.Context, id int64) (LedgerTransaction, error) {
	row := s.tx.QueryRow(ctx,
		`SELECT `+txnColumns+` FROM ledger_transactions WHERE id = $1 FOR UPDATE NOWAIT`, id)
	txn, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerTransaction{}, shared.NotFoundf("payments: transaction %d not found", id)
	}
	if err != nil {
		return LedgerTransaction{}, fmt.Errorf("lock transaction: %w", err)
	}
	return txn, nil
}

// MarkVoided flips the voided flag; the guard makes a concurrent double
// void lose with a conflict instead of silently re-voiding.
func (s *txStore) MarkVoided(ctx context.Context, id int64, reason string) error {
	tag, err := s.tx.Exec(ctx, `
		UPDATE ledger_transactions
		SET voided = TRUE, void_reason = $2, updated_at = NOW()
		WHERE id = $1 AND NOT voided`, id, reason)
	if err != nil {
		return fmt.Errorf("mark transaction voided: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.Conflictf("payments: transaction %d not found or already voided", id)
	}
	return nil
}

func (s *txStore) LinkJournalEntry(ctx context.Context, txnID, entryID int64) error {
	if _, err := s.tx.Exec(ctx, `
		UPDATE ledger_transactions SET journal_entry_id = $2, updated_at = NOW()
		WHERE id = $1`, txnID, entryID); err != nil {
		return fmt.Errorf("link journal entry: %w", err)
	}
	return nil
}

func (s *txStore) NextReceiptNumber(ctx context.Context) (string, error) {
	var n int64
	if err := s.tx.QueryRow(ctx, `SELECT nextval('receipt_number_seq')`).Scan(&n); err != nil {
		return "", fmt.Errorf("next receipt number: %w", err)
	}
	return fmt.Sprintf("RCT-%s-%06d", time.Now().UTC().Format("20060102"), n), nil
}

func (s *txStore) InsertReceipt(ctx context.Context, rec Receipt) (Receipt, error) {
	row := s.tx.QueryRow(ctx, `
		INSERT INTO receipts (receipt_number, transaction_id, amount, method, issued_at)
		VALUES ($1,$2,$3,$4,NOW())
		RETURNING id, receipt_number, transaction_id, amount, method, issued_at`,
		rec.ReceiptNumber, rec.TransactionID, rec.AmountCents, rec.Method)
	var out Receipt
	if err := row.Scan(&out.ID, &out.ReceiptNumber, &out.TransactionID,
		&out.AmountCents, &out.Method, &out.IssuedAt); err != nil {
		return Receipt{}, fmt.Errorf("insert receipt: %w", err)
	}
	return out, nil
}

func (s *txStore) InsertVoidAudit(ctx context.Context, audit VoidAudit) (VoidAudit, error) {
	row := s.tx.QueryRow(ctx, `
		INSERT INTO void_audits (transaction_id, reversal_id, reason, actor_id)
		VALUES ($1,$2,$3,$4)
		RETURNING id, transaction_id, reversal_id, reason, actor_id, created_at`,
		audit.TransactionID, audit.ReversalID, audit.Reason, audit.ActorID)
	var out VoidAudit
	if err := row.Scan(&out.ID, &out.TransactionID, &out.ReversalID,
		&out.Reason, &out.ActorID, &out.CreatedAt); err != nil {
		return VoidAudit{}, fmt.Errorf("insert void audit: %w", err)
	}
	return out, nil
}

func (s *txStore) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	return shared.RecordAudit(ctx, s.tx, log)
}

func nullString(val string) any {
	if val == "" {
		return nil
	}
	return val
}
