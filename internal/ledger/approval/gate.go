package approval

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusledger/campusledger/internal/shared"
)

// Gate decides whether a proposed mutation needs multi-level sign-off before
// it may post. When gated, the action is not executed; callers persist the
// entity as pending and hand back a "submitted for approval" result.
type Gate struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewGate constructs a Gate.
func NewGate(repo Repository, logger *slog.Logger) *Gate {
	return &Gate{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (g *Gate) WithNow(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// RequiresApproval reports whether any active amount rule for the
// transaction type matches the total. Rules are independent: any match gates.
func (g *Gate) RequiresApproval(ctx context.Context, transactionType string, totalAmount int64) (bool, error) {
	rules, err := g.repo.ListActiveRules(ctx, transactionType)
	if err != nil {
		return false, err
	}
	for _, rule := range rules {
		if rule.MinAmount > 0 && totalAmount >= rule.MinAmount {
			return true, nil
		}
	}
	return false, nil
}

// RequiresVoidApproval applies the second dimension for voids: an old enough
// original transaction triggers gating independent of amount.
func (g *Gate) RequiresVoidApproval(ctx context.Context, transactionType string, amount int64, transactionDate time.Time) (bool, error) {
	rules, err := g.repo.ListActiveRules(ctx, transactionType)
	if err != nil {
		return false, err
	}
	age := int(g.now().Sub(transactionDate).Hours() / 24)
	for _, rule := range rules {
		if rule.MinAmount > 0 && amount >= rule.MinAmount {
			return true, nil
		}
		if rule.DaysSinceTxn > 0 && age >= rule.DaysSinceTxn {
			return true, nil
		}
	}
	return false, nil
}

// EnsureRequest is the idempotent workflow bootstrap: it returns the existing
// pending request for the entity or creates one.
func (g *Gate) EnsureRequest(ctx context.Context, entityType, entityID string, actorID int64, note string) (Request, error) {
	existing, err := g.repo.FindPendingRequest(ctx, entityType, entityID)
	if err == nil {
		return existing, nil
	}
	if !shared.IsNotFound(err) {
		return Request{}, err
	}
	req, err := g.repo.InsertRequest(ctx, Request{
		EntityType:  entityType,
		EntityID:    entityID,
		RequestedBy: actorID,
		Note:        note,
	})
	if err != nil {
		return Request{}, err
	}
	if g.logger != nil {
		g.logger.Info("approval requested",
			slog.String("entity_type", entityType),
			slog.String("entity_id", entityID),
			slog.Int64("request_id", req.ID))
	}
	return req, nil
}

// Resolve records an approver decision on a pending request. The pending
// entity itself is posted or discarded by its owning service afterwards.
func (g *Gate) Resolve(ctx context.Context, requestID int64, decision Decision, approverID int64, comments string) (Request, error) {
	if decision != DecisionApprove && decision != DecisionReject {
		return Request{}, shared.Validationf("approval: unknown decision %q", decision)
	}
	status := StatusApproved
	if decision == DecisionReject {
		status = StatusRejected
	}
	if err := g.repo.ResolveRequest(ctx, requestID, status, approverID, comments); err != nil {
		return Request{}, err
	}
	return g.repo.GetRequest(ctx, requestID)
}

// PutRule creates or updates an approval rule.
func (g *Gate) PutRule(ctx context.Context, rule Rule) (Rule, error) {
	if rule.TransactionType == "" {
		return Rule{}, shared.Validationf("approval: rule transaction type required")
	}
	if rule.MinAmount < 0 || rule.DaysSinceTxn < 0 {
		return Rule{}, shared.Validationf("approval: rule thresholds must be non-negative")
	}
	return g.repo.PutRule(ctx, rule)
}

// ListRules returns all configured rules.
func (g *Gate) ListRules(ctx context.Context) ([]Rule, error) {
	return g.repo.ListRules(ctx)
}
