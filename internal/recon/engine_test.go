package recon

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "github.com/campusledger/campusledger/testing"
)

// memoryReconRepo serves canned figures to the checks.
type memoryReconRepo struct {
	creditMismatches  []CreditMismatch
	debits, credits   int64
	orphanRefs        []string
	invoiceMismatches []InvoiceMismatch
	abnormal          []AbnormalBalance
	unlinkedRefs      []string

	creditErr   error
	panicCredit bool

	runs []Report
}

func (r *memoryReconRepo) CreditMismatches(ctx context.Context, tolerance int64) ([]CreditMismatch, error) {
	if r.panicCredit {
		panic("nil pointer dereference in credit scan")
	}
	if r.creditErr != nil {
		return nil, r.creditErr
	}
	return r.creditMismatches, nil
}

func (r *memoryReconRepo) TrialBalanceTotals(ctx context.Context) (int64, int64, error) {
	return r.debits, r.credits, nil
}

func (r *memoryReconRepo) OrphanTransactionRefs(ctx context.Context) ([]string, error) {
	return r.orphanRefs, nil
}

func (r *memoryReconRepo) InvoiceMismatches(ctx context.Context, tolerance int64) ([]InvoiceMismatch, error) {
	return r.invoiceMismatches, nil
}

func (r *memoryReconRepo) AbnormalBalances(ctx context.Context, tolerance int64) ([]AbnormalBalance, error) {
	return r.abnormal, nil
}

func (r *memoryReconRepo) UnlinkedTransactionRefs(ctx context.Context, since time.Time) ([]string, error) {
	return r.unlinkedRefs, nil
}

func (r *memoryReconRepo) InsertRun(ctx context.Context, report Report) (Report, error) {
	report.ID = int64(len(r.runs) + 1)
	r.runs = append(r.runs, report)
	return report, nil
}

func (r *memoryReconRepo) ListRuns(ctx context.Context, limit int) ([]Report, error) {
	return r.runs, nil
}

func resultByName(t *testing.T, report Report, name string) Result {
	t.Helper()
	for _, res := range report.Results {
		if res.Name == name {
			return res
		}
	}
	t.Fatalf("no result named %s", name)
	return Result{}
}

func orphans(n int) []string {
	refs := make([]string, n)
	for i := range refs {
		refs[i] = fmt.Sprintf("TXN-20260101-%06d", i+1)
	}
	return refs
}

func TestRunAllClean(t *testing.T) {
	repo := &memoryReconRepo{debits: 100_000, credits: 100_000}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusPass, report.Overall)
	require.Len(t, report.Results, 6)
	for _, res := range report.Results {
		require.Equal(t, StatusPass, res.Status, res.Name)
	}
	require.Len(t, repo.runs, 1, "run persisted")
	require.NotZero(t, report.ID)
}

func TestTrialBalanceTolerance(t *testing.T) {
	repo := &memoryReconRepo{debits: 100_000, credits: 99_999}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusPass, resultByName(t, report, CheckTrialBalance).Status,
		"one minor unit is within tolerance")

	repo = &memoryReconRepo{debits: 100_000, credits: 99_998}
	report, err = NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	res := resultByName(t, report, CheckTrialBalance)
	require.Equal(t, StatusFail, res.Status)
	require.Equal(t, int64(2), res.VarianceCents)
	require.Equal(t, StatusFail, report.Overall)
}

// Eleven orphans fail the orphan check; five only warn.
func TestOrphanThreshold(t *testing.T) {
	repo := &memoryReconRepo{debits: 1, credits: 1, orphanRefs: orphans(11)}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusFail, resultByName(t, report, CheckOrphans).Status)
	require.Equal(t, StatusFail, report.Overall)

	repo = &memoryReconRepo{debits: 1, credits: 1, orphanRefs: orphans(5)}
	report, err = NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusWarning, resultByName(t, report, CheckOrphans).Status)
	require.Equal(t, StatusWarning, report.Overall)
}

func TestCreditMismatchReportsVariance(t *testing.T) {
	repo := &memoryReconRepo{
		debits: 1, credits: 1,
		creditMismatches: []CreditMismatch{
			{StudentID: 7, Recorded: 5000, Derived: 4750},
			{StudentID: 9, Recorded: 100, Derived: 250},
		},
	}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	res := resultByName(t, report, CheckCreditBalances)
	require.Equal(t, StatusFail, res.Status)
	require.Equal(t, int64(400), res.VarianceCents)
}

func TestAbnormalAndLinkageOnlyWarn(t *testing.T) {
	repo := &memoryReconRepo{
		debits: 1, credits: 1,
		abnormal:     []AbnormalBalance{{AccountCode: "1000", AccountType: "ASSET", Balance: -500}},
		unlinkedRefs: []string{"TXN-20260101-000042"},
	}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, StatusWarning, resultByName(t, report, CheckAbnormal).Status)
	require.Equal(t, StatusWarning, resultByName(t, report, CheckLinkage).Status)
	require.Equal(t, StatusWarning, report.Overall)
}

// A check that errors or panics fails itself without aborting the run.
func TestFailingCheckDoesNotAbortRun(t *testing.T) {
	repo := &memoryReconRepo{debits: 1, credits: 1, creditErr: errors.New("relation does not exist")}
	report, err := NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Results, 6)
	require.Equal(t, StatusFail, resultByName(t, report, CheckCreditBalances).Status)
	require.Equal(t, StatusPass, resultByName(t, report, CheckTrialBalance).Status)

	repo = &memoryReconRepo{debits: 1, credits: 1, panicCredit: true}
	report, err = NewEngine(repo, nil).Run(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, report.Results, 6)
	res := resultByName(t, report, CheckCreditBalances)
	require.Equal(t, StatusFail, res.Status)
	require.Contains(t, res.Message, "panicked")
}

func TestWorse(t *testing.T) {
	require.Equal(t, StatusFail, Worse(StatusWarning, StatusFail))
	require.Equal(t, StatusFail, Worse(StatusFail, StatusPass))
	require.Equal(t, StatusWarning, Worse(StatusPass, StatusWarning))
	require.Equal(t, StatusPass, Worse(StatusPass, StatusPass))
}
