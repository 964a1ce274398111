package recon

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads the figures the checks compare and persists run history.
type Repository interface {
	CreditMismatches(ctx context.Context, tolerance int64) ([]CreditMismatch, error)
	TrialBalanceTotals(ctx context.Context) (debits, credits int64, err error)
	OrphanTransactionRefs(ctx context.Context) ([]string, error)
	InvoiceMismatches(ctx context.Context, tolerance int64) ([]InvoiceMismatch, error)
	AbnormalBalances(ctx context.Context, tolerance int64) ([]AbnormalBalance, error)
	UnlinkedTransactionRefs(ctx context.Context, since time.Time) ([]string, error)
	InsertRun(ctx context.Context, report Report) (Report, error)
	ListRuns(ctx context.Context, limit int) ([]Report, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

// CreditMismatches compares each student's recorded credit balance against
// the net of their credit adjustments.
func (r *repository) CreditMismatches(ctx context.Context, tolerance int64) ([]CreditMismatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT b.student_id, b.balance, COALESCE(SUM(a.amount), 0)
		FROM student_credit_balances b
		LEFT JOIN credit_adjustments a ON a.student_id = b.student_id
		GROUP BY b.student_id, b.balance
		HAVING ABS(b.balance - COALESCE(SUM(a.amount), 0)) > $1`, tolerance)
	if err != nil {
		return nil, fmt.Errorf("credit mismatches: %w", err)
	}
	defer rows.Close()
	var out []CreditMismatch
	for rows.Next() {
		var m CreditMismatch
		if err := rows.Scan(&m.StudentID, &m.Recorded, &m.Derived); err != nil {
			return nil, fmt.Errorf("scan credit mismatch: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *repository) TrialBalanceTotals(ctx context.Context) (int64, int64, error) {
	var debits, credits int64
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.posted AND NOT e.voided`).Scan(&debits, &credits)
	if err != nil {
		return 0, 0, fmt.Errorf("trial balance totals: %w", err)
	}
	return debits, credits, nil
}

func (r *repository) OrphanTransactionRefs(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT transaction_ref FROM ledger_transactions
		WHERE type IN ('PAYMENT', 'INVOICE') AND student_id IS NULL AND NOT voided
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("orphan transactions: %w", err)
	}
	defer rows.Close()
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan orphan ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *repository) InvoiceMismatches(ctx context.Context, tolerance int64) ([]InvoiceMismatch, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.amount_paid, COALESCE(SUM(a.applied), 0)
		FROM fee_invoices i
		LEFT JOIN payment_allocations a ON a.invoice_id = i.id AND NOT a.reversed
		LEFT JOIN ledger_transactions t ON t.id = a.transaction_id AND NOT t.voided
		WHERE i.status <> 'CANCELLED'
		GROUP BY i.id, i.amount_paid
		HAVING ABS(i.amount_paid - COALESCE(SUM(a.applied), 0)) > $1`, tolerance)
	if err != nil {
		return nil, fmt.Errorf("invoice mismatches: %w", err)
	}
	defer rows.Close()
	var out []InvoiceMismatch
	for rows.Next() {
		var m InvoiceMismatch
		if err := rows.Scan(&m.InvoiceID, &m.Recorded, &m.Allocated); err != nil {
			return nil, fmt.Errorf("scan invoice mismatch: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// AbnormalBalances finds asset accounts with net credit balances and
// liability accounts with net debit balances beyond tolerance.
func (r *repository) AbnormalBalances(ctx context.Context, tolerance int64) ([]AbnormalBalance, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.code, a.type,
		       CASE WHEN a.type = 'ASSET'
		            THEN COALESCE(SUM(l.debit - l.credit), 0)
		            ELSE COALESCE(SUM(l.credit - l.debit), 0)
		       END AS balance
		FROM gl_accounts a
		LEFT JOIN journal_entry_lines l ON l.account_code = a.code
		LEFT JOIN journal_entries e ON e.id = l.entry_id AND e.posted AND NOT e.voided
		WHERE a.type IN ('ASSET', 'LIABILITY')
		GROUP BY a.code, a.type
		HAVING CASE WHEN a.type = 'ASSET'
		            THEN COALESCE(SUM(l.debit - l.credit), 0)
		            ELSE COALESCE(SUM(l.credit - l.debit), 0)
		       END < -$1`, tolerance)
	if err != nil {
		return nil, fmt.Errorf("abnormal balances: %w", err)
	}
	defer rows.Close()
	var out []AbnormalBalance
	for rows.Next() {
		var b AbnormalBalance
		if err := rows.Scan(&b.AccountCode, &b.AccountType, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan abnormal balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) UnlinkedTransactionRefs(ctx context.Context, since time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT transaction_ref FROM ledger_transactions
		WHERE journal_entry_id IS NULL AND NOT voided AND created_at >= $1
		ORDER BY id`, since)
	if err != nil {
		return nil, fmt.Errorf("unlinked transactions: %w", err)
	}
	defer rows.Close()
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			return nil, fmt.Errorf("scan unlinked ref: %w", err)
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

func (r *repository) InsertRun(ctx context.Context, report Report) (Report, error) {
	payload, err := json.Marshal(report.Results)
	if err != nil {
		return Report{}, fmt.Errorf("marshal run payload: %w", err)
	}
	row := r.pool.QueryRow(ctx, `
		INSERT INTO recon_runs (ran_by, overall_status, results)
		VALUES ($1, $2, $3)
		RETURNING id, ran_at`,
		report.RanBy, report.Overall, payload)
	if err := row.Scan(&report.ID, &report.RanAt); err != nil {
		return Report{}, fmt.Errorf("insert recon run: %w", err)
	}
	return report, nil
}

func (r *repository) ListRuns(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, ran_at, ran_by, overall_status, results
		FROM recon_runs ORDER BY id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recon runs: %w", err)
	}
	defer rows.Close()
	var out []Report
	for rows.Next() {
		var report Report
		var payload []byte
		if err := rows.Scan(&report.ID, &report.RanAt, &report.RanBy, &report.Overall, &payload); err != nil {
			return nil, fmt.Errorf("scan recon run: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &report.Results); err != nil {
				return nil, fmt.Errorf("unmarshal run payload: %w", err)
			}
		}
		out = append(out, report)
	}
	return out, rows.Err()
}
