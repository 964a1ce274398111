package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/shared"
)

// Repository encapsulates DB operations for the chart of accounts.
type Repository interface {
	List(ctx context.Context) ([]Account, error)
	GetByCode(ctx context.Context, code string) (Account, error)
	Upsert(ctx context.Context, a Account) (Account, error)
	SetActive(ctx context.Context, code string, active bool) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, code, name, type, normal_balance, is_active, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM gl_accounts ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *repository) GetByCode(ctx context.Context, code string) (Account, error) {
	var a Account
	err := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM gl_accounts WHERE code=$1`, code).
		Scan(&a.ID, &a.Code, &a.Name, &a.Type, &a.NormalBalance, &a.IsActive, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.NotFoundf("accounts: code %s not found", code)
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) Upsert(ctx context.Context, a Account) (Account, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO gl_accounts (code, name, type, normal_balance, is_active)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (code) DO UPDATE SET name=EXCLUDED.name, is_active=EXCLUDED.is_active, updated_at=NOW()
RETURNING id, created_at, updated_at`, a.Code, a.Name, a.Type, a.NormalBalance, a.IsActive).
		Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return Account{}, err
	}
	return a, nil
}

func (r *repository) SetActive(ctx context.Context, code string, active bool) error {
	cmd, err := r.db.Exec(ctx, `UPDATE gl_accounts SET is_active=$2, updated_at=NOW() WHERE code=$1`, code, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.NotFoundf("accounts: code %s not found", code)
	}
	return nil
}
