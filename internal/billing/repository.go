package billing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/shared"
)

// Store exposes the invoice/allocation/credit operations the allocator
// needs. The production implementation is bound to the caller's transaction
// so a batch allocation commits or rolls back as one unit.
type Store interface {
	GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, error)
	ListOutstandingForUpdate(ctx context.Context, studentID int64) ([]Invoice, error)
	UpdateInvoicePaid(ctx context.Context, invoiceID, amountPaid int64, status InvoiceStatus) error
	InsertAllocation(ctx context.Context, transactionID, invoiceID, applied int64) (Allocation, error)
	ListActiveAllocations(ctx context.Context, transactionID int64) ([]Allocation, error)
	MarkAllocationReversed(ctx context.Context, allocationID int64) error
	AddCredit(ctx context.Context, studentID, delta int64) (int64, error)
	GetCredit(ctx context.Context, studentID int64) (int64, error)
	InsertCreditAdjustment(ctx context.Context, studentID, transactionID, amount int64, kind string) error
}

// Repository provides pool-level invoice reads and tx-scoped stores.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Tx binds a Store to an open transaction.
func (r *Repository) Tx(tx pgx.Tx) Store {
	return &txStore{tx: tx}
}

const invoiceColumns = `id, student_id, invoice_date, description, total, amount_paid, status, created_at, updated_at`

// GetInvoice reads one invoice outside any transaction.
func (r *Repository) GetInvoice(ctx context.Context, invoiceID int64) (Invoice, error) {
	return scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM fee_invoices WHERE id=$1`, invoiceID), invoiceID)
}

// CreateInvoice inserts a new fee invoice (billing side, used by setup and
// tests; fee schedules live outside the engine).
func (r *Repository) CreateInvoice(ctx context.Context, inv Invoice) (Invoice, error) {
	if inv.Total <= 0 {
		return Invoice{}, shared.Validationf("billing: invoice total must be positive")
	}
	inv.Status = StatusFor(inv.Total, inv.AmountPaid)
	err := r.pool.QueryRow(ctx, `INSERT INTO fee_invoices (student_id, invoice_date, description, total, amount_paid, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at, updated_at`,
		inv.StudentID, inv.InvoiceDate, inv.Description, inv.Total, inv.AmountPaid, inv.Status).
		Scan(&inv.ID, &inv.CreatedAt, &inv.UpdatedAt)
	return inv, err
}

func scanInvoice(row pgx.Row, invoiceID int64) (Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.StudentID, &inv.InvoiceDate, &inv.Description, &inv.Total, &inv.AmountPaid, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, shared.NotFoundf("billing: invoice %d not found", invoiceID)
		}
		return Invoice{}, err
	}
	return inv, nil
}

type txStore struct {
	tx pgx.Tx
}

func (s *txStore) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, error) {
	return scanInvoice(s.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM fee_invoices WHERE id=$1 FOR UPDATE NOWAIT`, invoiceID), invoiceID)
}

func (s *txStore) ListOutstandingForUpdate(ctx context.Context, studentID int64) ([]Invoice, error) {
	rows, err := s.tx.Query(ctx, `SELECT `+invoiceColumns+` FROM fee_invoices
WHERE student_id=$1 AND status NOT IN ('PAID','CANCELLED') AND amount_paid < total
ORDER BY invoice_date ASC, id ASC
FOR UPDATE NOWAIT`, studentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Invoice
	for rows.Next() {
		var inv Invoice
		if err := rows.Scan(&inv.ID, &inv.StudentID, &inv.InvoiceDate, &inv.Description, &inv.Total, &inv.AmountPaid, &inv.Status, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *txStore) UpdateInvoicePaid(ctx context.Context, invoiceID, amountPaid int64, status InvoiceStatus) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE fee_invoices SET amount_paid=$2, status=$3, updated_at=NOW() WHERE id=$1`, invoiceID, amountPaid, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("billing: invoice %d not found", invoiceID)
	}
	return nil
}

func (s *txStore) InsertAllocation(ctx context.Context, transactionID, invoiceID, applied int64) (Allocation, error) {
	var alloc Allocation
	err := s.tx.QueryRow(ctx, `INSERT INTO payment_allocations (transaction_id, invoice_id, applied)
VALUES ($1,$2,$3) RETURNING id, created_at`, transactionID, invoiceID, applied).
		Scan(&alloc.ID, &alloc.CreatedAt)
	if err != nil {
		return Allocation{}, err
	}
	alloc.TransactionID = transactionID
	alloc.InvoiceID = invoiceID
	alloc.Applied = applied
	return alloc, nil
}

func (s *txStore) ListActiveAllocations(ctx context.Context, transactionID int64) ([]Allocation, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, transaction_id, invoice_id, applied, reversed, created_at
FROM payment_allocations WHERE transaction_id=$1 AND NOT reversed ORDER BY id`, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Allocation
	for rows.Next() {
		var a Allocation
		if err := rows.Scan(&a.ID, &a.TransactionID, &a.InvoiceID, &a.Applied, &a.Reversed, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *txStore) MarkAllocationReversed(ctx context.Context, allocationID int64) error {
	cmd, err := s.tx.Exec(ctx, `UPDATE payment_allocations SET reversed=TRUE WHERE id=$1 AND NOT reversed`, allocationID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("billing: allocation %d already reversed", allocationID)
	}
	return nil
}

func (s *txStore) AddCredit(ctx context.Context, studentID, delta int64) (int64, error) {
	var balance int64
	err := s.tx.QueryRow(ctx, `INSERT INTO student_credit_balances (student_id, balance)
VALUES ($1,$2)
ON CONFLICT (student_id) DO UPDATE SET balance = student_credit_balances.balance + EXCLUDED.balance, updated_at=NOW()
RETURNING balance`, studentID, delta).Scan(&balance)
	return balance, err
}

func (s *txStore) GetCredit(ctx context.Context, studentID int64) (int64, error) {
	var balance int64
	err := s.tx.QueryRow(ctx, `SELECT balance FROM student_credit_balances WHERE student_id=$1`, studentID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return balance, err
}

func (s *txStore) InsertCreditAdjustment(ctx context.Context, studentID, transactionID, amount int64, kind string) error {
	_, err := s.tx.Exec(ctx, `INSERT INTO credit_adjustments (student_id, transaction_id, amount, kind)
VALUES ($1,$2,$3,$4)`, studentID, transactionID, amount, kind)
	return err
}
