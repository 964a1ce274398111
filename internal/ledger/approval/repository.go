package approval

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/campusledger/campusledger/internal/shared"
)

// Repository encapsulates DB operations for approval rules and requests.
type Repository interface {
	ListActiveRules(ctx context.Context, transactionType string) ([]Rule, error)
	ListRules(ctx context.Context) ([]Rule, error)
	PutRule(ctx context.Context, r Rule) (Rule, error)

	GetRequest(ctx context.Context, id int64) (Request, error)
	FindPendingRequest(ctx context.Context, entityType, entityID string) (Request, error)
	InsertRequest(ctx context.Context, req Request) (Request, error)
	ResolveRequest(ctx context.Context, id int64, status RequestStatus, resolvedBy int64, comments string) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const ruleColumns = `id, transaction_type, min_amount, days_since_txn, required_role, active, created_at, updated_at`

func (r *repository) ListActiveRules(ctx context.Context, transactionType string) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM approval_rules WHERE active AND transaction_type=$1 ORDER BY id`, transactionType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func (r *repository) ListRules(ctx context.Context) ([]Rule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+ruleColumns+` FROM approval_rules ORDER BY transaction_type, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRules(rows)
}

func scanRules(rows pgx.Rows) ([]Rule, error) {
	var rules []Rule
	for rows.Next() {
		var rule Rule
		if err := rows.Scan(&rule.ID, &rule.TransactionType, &rule.MinAmount, &rule.DaysSinceTxn, &rule.RequiredRole, &rule.Active, &rule.CreatedAt, &rule.UpdatedAt); err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

func (r *repository) PutRule(ctx context.Context, rule Rule) (Rule, error) {
	if rule.ID == 0 {
		err := r.db.QueryRow(ctx, `INSERT INTO approval_rules (transaction_type, min_amount, days_since_txn, required_role, active)
VALUES ($1,$2,$3,$4,$5) RETURNING id, created_at, updated_at`,
			rule.TransactionType, rule.MinAmount, rule.DaysSinceTxn, rule.RequiredRole, rule.Active).
			Scan(&rule.ID, &rule.CreatedAt, &rule.UpdatedAt)
		return rule, err
	}
	err := r.db.QueryRow(ctx, `UPDATE approval_rules SET transaction_type=$2, min_amount=$3, days_since_txn=$4, required_role=$5, active=$6, updated_at=NOW()
WHERE id=$1 RETURNING created_at, updated_at`,
		rule.ID, rule.TransactionType, rule.MinAmount, rule.DaysSinceTxn, rule.RequiredRole, rule.Active).
		Scan(&rule.CreatedAt, &rule.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Rule{}, shared.NotFoundf("approval: rule %d not found", rule.ID)
	}
	return rule, err
}

const requestColumns = `id, entity_type, entity_id, status, requested_by, note, resolved_by, resolved_at, comments, created_at`

func (r *repository) GetRequest(ctx context.Context, id int64) (Request, error) {
	var req Request
	err := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM approval_requests WHERE id=$1`, id).
		Scan(&req.ID, &req.EntityType, &req.EntityID, &req.Status, &req.RequestedBy, &req.Note, &req.ResolvedBy, &req.ResolvedAt, &req.Comments, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.NotFoundf("approval: request %d not found", id)
	}
	return req, err
}

func (r *repository) FindPendingRequest(ctx context.Context, entityType, entityID string) (Request, error) {
	var req Request
	err := r.db.QueryRow(ctx, `SELECT `+requestColumns+` FROM approval_requests WHERE entity_type=$1 AND entity_id=$2 AND status='PENDING' LIMIT 1`, entityType, entityID).
		Scan(&req.ID, &req.EntityType, &req.EntityID, &req.Status, &req.RequestedBy, &req.Note, &req.ResolvedBy, &req.ResolvedAt, &req.Comments, &req.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Request{}, shared.NotFoundf("approval: no pending request for %s %s", entityType, entityID)
	}
	return req, err
}

func (r *repository) InsertRequest(ctx context.Context, req Request) (Request, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO approval_requests (entity_type, entity_id, status, requested_by, note)
VALUES ($1,$2,'PENDING',$3,$4) RETURNING id, status, created_at`,
		req.EntityType, req.EntityID, req.RequestedBy, req.Note).
		Scan(&req.ID, &req.Status, &req.CreatedAt)
	return req, err
}

func (r *repository) ResolveRequest(ctx context.Context, id int64, status RequestStatus, resolvedBy int64, comments string) error {
	cmd, err := r.db.Exec(ctx, `UPDATE approval_requests SET status=$2, resolved_by=$3, resolved_at=NOW(), comments=$4 WHERE id=$1 AND status='PENDING'`,
		id, status, resolvedBy, comments)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.Conflictf("approval: request %d not pending", id)
	}
	return nil
}
