package recon

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Check names used in results and run history.
const (
	CheckCreditBalances = "student_credit_balances"
	CheckTrialBalance   = "trial_balance"
	CheckOrphans        = "orphaned_transactions"
	CheckInvoicePayment = "invoice_payment_consistency"
	CheckAbnormal       = "abnormal_account_balances"
	CheckLinkage        = "ledger_journal_linkage"
)

// unlinkedLookback bounds the linkage check to recent transactions.
const unlinkedLookback = 90 * 24 * time.Hour

// Engine runs the reconciliation checks. Checks are independent: one
// blowing up yields a FAIL for itself and the rest still run.
type Engine struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewEngine constructs an Engine.
func NewEngine(repo Repository, logger *slog.Logger) *Engine {
	return &Engine{repo: repo, logger: logger, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (e *Engine) WithNow(now func() time.Time) { e.now = now }

// Run executes every check, persists the run and returns the report.
func (e *Engine) Run(ctx context.Context, actorID int64) (Report, error) {
	checks := []struct {
		name string
		fn   func(context.Context) (Result, error)
	}{
		{CheckCreditBalances, e.checkCreditBalances},
		{CheckTrialBalance, e.checkTrialBalance},
		{CheckOrphans, e.checkOrphans},
		{CheckInvoicePayment, e.checkInvoicePayments},
		{CheckAbnormal, e.checkAbnormalBalances},
		{CheckLinkage, e.checkLinkage},
	}

	report := Report{RanAt: e.now(), RanBy: actorID, Overall: StatusPass}
	for _, check := range checks {
		result := e.runCheck(ctx, check.name, check.fn)
		report.Overall = Worse(report.Overall, result.Status)
		report.Results = append(report.Results, result)
		if e.logger != nil {
			e.logger.Info("reconciliation check finished",
				slog.String("check", result.Name),
				slog.String("status", string(result.Status)),
				slog.String("message", result.Message))
		}
	}

	saved, err := e.repo.InsertRun(ctx, report)
	if err != nil {
		return Report{}, fmt.Errorf("persist reconciliation run: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("reconciliation run complete",
			slog.Int64("run_id", saved.ID),
			slog.String("overall", string(saved.Overall)))
	}
	return saved, nil
}

func (e *Engine) runCheck(ctx context.Context, name string, fn func(context.Context) (Result, error)) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Name:    name,
				Status:  StatusFail,
				Message: fmt.Sprintf("check panicked: %v", r),
			}
		}
	}()
	result, err := fn(ctx)
	if err != nil {
		return Result{
			Name:    name,
			Status:  StatusFail,
			Message: fmt.Sprintf("check failed to run: %v", err),
		}
	}
	result.Name = name
	return result
}

func (e *Engine) checkCreditBalances(ctx context.Context) (Result, error) {
	mismatches, err := e.repo.CreditMismatches(ctx, Tolerance)
	if err != nil {
		return Result{}, err
	}
	if len(mismatches) == 0 {
		return Result{Status: StatusPass, Message: "all student credit balances match their movements"}, nil
	}
	var variance int64
	for _, m := range mismatches {
		variance += abs64(m.Recorded - m.Derived)
	}
	return Result{
		Status:        StatusFail,
		Message:       fmt.Sprintf("%d student credit balance(s) out of line with recorded movements", len(mismatches)),
		VarianceCents: variance,
		Details:       map[string]any{"mismatches": mismatches},
	}, nil
}

func (e *Engine) checkTrialBalance(ctx context.Context) (Result, error) {
	debits, credits, err := e.repo.TrialBalanceTotals(ctx)
	if err != nil {
		return Result{}, err
	}
	diff := abs64(debits - credits)
	if diff <= Tolerance {
		return Result{Status: StatusPass, Message: fmt.Sprintf("posted debits and credits balance at %d", debits)}, nil
	}
	return Result{
		Status:        StatusFail,
		Message:       fmt.Sprintf("posted ledger out of balance: debits %d, credits %d", debits, credits),
		VarianceCents: diff,
	}, nil
}

func (e *Engine) checkOrphans(ctx context.Context) (Result, error) {
	refs, err := e.repo.OrphanTransactionRefs(ctx)
	if err != nil {
		return Result{}, err
	}
	count := len(refs)
	switch {
	case count == 0:
		return Result{Status: StatusPass, Message: "no transactions without a student link"}, nil
	case count <= OrphanWarnLimit:
		return Result{
			Status:  StatusWarning,
			Message: fmt.Sprintf("%d transaction(s) without a student link", count),
			Details: map[string]any{"refs": refs},
		}, nil
	default:
		return Result{
			Status:  StatusFail,
			Message: fmt.Sprintf("%d transaction(s) without a student link", count),
			Details: map[string]any{"refs": refs},
		}, nil
	}
}

func (e *Engine) checkInvoicePayments(ctx context.Context) (Result, error) {
	mismatches, err := e.repo.InvoiceMismatches(ctx, Tolerance)
	if err != nil {
		return Result{}, err
	}
	if len(mismatches) == 0 {
		return Result{Status: StatusPass, Message: "invoice paid amounts match their allocations"}, nil
	}
	var variance int64
	for _, m := range mismatches {
		variance += abs64(m.Recorded - m.Allocated)
	}
	return Result{
		Status:        StatusFail,
		Message:       fmt.Sprintf("%d invoice(s) disagree with their payment allocations", len(mismatches)),
		VarianceCents: variance,
		Details:       map[string]any{"mismatches": mismatches},
	}, nil
}

func (e *Engine) checkAbnormalBalances(ctx context.Context) (Result, error) {
	abnormal, err := e.repo.AbnormalBalances(ctx, Tolerance)
	if err != nil {
		return Result{}, err
	}
	if len(abnormal) == 0 {
		return Result{Status: StatusPass, Message: "no accounts violate their sign convention"}, nil
	}
	return Result{
		Status:  StatusWarning,
		Message: fmt.Sprintf("%d account(s) carry a balance against their normal side", len(abnormal)),
		Details: map[string]any{"accounts": abnormal},
	}, nil
}

func (e *Engine) checkLinkage(ctx context.Context) (Result, error) {
	refs, err := e.repo.UnlinkedTransactionRefs(ctx, e.now().Add(-unlinkedLookback))
	if err != nil {
		return Result{}, err
	}
	if len(refs) == 0 {
		return Result{Status: StatusPass, Message: "every recent transaction has a journal entry"}, nil
	}
	return Result{
		Status:  StatusWarning,
		Message: fmt.Sprintf("%d recent transaction(s) lack a linked journal entry", len(refs)),
		Details: map[string]any{"refs": refs},
	}, nil
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
