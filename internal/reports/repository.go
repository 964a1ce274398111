package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates posted, non-voided journal lines per account.
// Entries pending or rejected approval never reach a report.
type Repository interface {
	BalancesInRange(ctx context.Context, start, end time.Time) ([]AccountBalance, error)
	BalancesAsOf(ctx context.Context, asOf time.Time) ([]AccountBalance, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs the pgx-backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const balanceQuery = `
	SELECT a.code, a.name, a.type, a.normal_balance,
	       COALESCE(SUM(m.debit), 0), COALESCE(SUM(m.credit), 0)
	FROM gl_accounts a
	LEFT JOIN (
		SELECT l.account_code, l.debit, l.credit
		FROM journal_entry_lines l
		JOIN journal_entries e ON e.id = l.entry_id
		WHERE e.posted AND NOT e.voided AND e.entry_date >= $1 AND e.entry_date <= $2
	) m ON m.account_code = a.code
	GROUP BY a.code, a.name, a.type, a.normal_balance
	ORDER BY a.code`

func (r *repository) BalancesInRange(ctx context.Context, start, end time.Time) ([]AccountBalance, error) {
	return r.balances(ctx, start, end)
}

func (r *repository) BalancesAsOf(ctx context.Context, asOf time.Time) ([]AccountBalance, error) {
	// All history up to the date.
	return r.balances(ctx, time.Time{}, asOf)
}

func (r *repository) balances(ctx context.Context, start, end time.Time) ([]AccountBalance, error) {
	rows, err := r.pool.Query(ctx, balanceQuery, start, end)
	if err != nil {
		return nil, fmt.Errorf("account balances: %w", err)
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountCode, &b.AccountName, &b.AccountType,
			&b.NormalBalance, &b.Debits, &b.Credits); err != nil {
			return nil, fmt.Errorf("scan account balance: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}
