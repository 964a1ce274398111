package billing

import (
	"context"
	"log/slog"

	"github.com/campusledger/campusledger/internal/shared"
)

// Allocator applies payment amounts across fee invoices and routes any
// excess to the student's standing credit balance. It always runs on a
// transaction-bound Store supplied by the orchestrating flow.
type Allocator struct {
	logger *slog.Logger
}

// NewAllocator constructs an Allocator.
func NewAllocator(logger *slog.Logger) *Allocator {
	return &Allocator{logger: logger}
}

// ApplyToInvoice applies up to amount against one invoice and returns the
// unapplied remainder. Overpayment of a single invoice is not an error; the
// excess flows back to the caller.
func (a *Allocator) ApplyToInvoice(ctx context.Context, store Store, transactionID, invoiceID, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, shared.Validationf("billing: allocation amount must be positive")
	}
	inv, err := store.GetInvoiceForUpdate(ctx, invoiceID)
	if err != nil {
		return 0, err
	}
	if inv.Status == InvoiceCancelled {
		return 0, shared.Validationf("billing: invoice %d is cancelled", invoiceID)
	}
	applied := min64(amount, inv.Outstanding())
	if applied == 0 {
		return amount, nil
	}
	newPaid := inv.AmountPaid + applied
	if err := store.UpdateInvoicePaid(ctx, invoiceID, newPaid, StatusFor(inv.Total, newPaid)); err != nil {
		return 0, err
	}
	if _, err := store.InsertAllocation(ctx, transactionID, invoiceID, applied); err != nil {
		return 0, err
	}
	return amount - applied, nil
}

// ApplyAcrossOutstanding greedily pays the student's outstanding invoices
// oldest-first until funds or invoices run out. Any remainder becomes
// standing credit, logged as a CREDIT_RECEIVED adjustment.
func (a *Allocator) ApplyAcrossOutstanding(ctx context.Context, store Store, transactionID, studentID, amount int64) (AllocationOutcome, error) {
	if amount <= 0 {
		return AllocationOutcome{}, shared.Validationf("billing: allocation amount must be positive")
	}
	invoices, err := store.ListOutstandingForUpdate(ctx, studentID)
	if err != nil {
		return AllocationOutcome{}, err
	}
	outcome := AllocationOutcome{}
	remaining := amount
	for _, inv := range invoices {
		if remaining == 0 {
			break
		}
		applied := min64(remaining, inv.Outstanding())
		if applied == 0 {
			continue
		}
		newPaid := inv.AmountPaid + applied
		if err := store.UpdateInvoicePaid(ctx, inv.ID, newPaid, StatusFor(inv.Total, newPaid)); err != nil {
			return AllocationOutcome{}, err
		}
		alloc, err := store.InsertAllocation(ctx, transactionID, inv.ID, applied)
		if err != nil {
			return AllocationOutcome{}, err
		}
		outcome.Applied = append(outcome.Applied, alloc)
		remaining -= applied
	}
	if remaining > 0 {
		if err := a.credit(ctx, store, studentID, transactionID, remaining); err != nil {
			return AllocationOutcome{}, err
		}
		outcome.Remainder = remaining
	}
	return outcome, nil
}

// CreditRemainder records an overpayment remainder as standing credit. The
// single-invoice path uses this after ApplyToInvoice returns a remainder.
func (a *Allocator) CreditRemainder(ctx context.Context, store Store, studentID, transactionID, remainder int64) error {
	if remainder <= 0 {
		return nil
	}
	return a.credit(ctx, store, studentID, transactionID, remainder)
}

func (a *Allocator) credit(ctx context.Context, store Store, studentID, transactionID, amount int64) error {
	balance, err := store.AddCredit(ctx, studentID, amount)
	if err != nil {
		return err
	}
	if err := store.InsertCreditAdjustment(ctx, studentID, transactionID, amount, CreditReceived); err != nil {
		return err
	}
	if a.logger != nil {
		a.logger.Info("overpayment credited",
			slog.Int64("student_id", studentID),
			slog.Int64("amount", amount),
			slog.Int64("balance", balance))
	}
	return nil
}

// ReverseAllocations unwinds every active allocation of a voided payment,
// restoring each invoice's amount_paid and status. A payment that carried no
// allocations was pure credit, so the student's credit balance is reduced by
// up to the original amount instead.
func (a *Allocator) ReverseAllocations(ctx context.Context, store Store, transactionID, studentID, originalAmount int64) error {
	allocations, err := store.ListActiveAllocations(ctx, transactionID)
	if err != nil {
		return err
	}
	if len(allocations) == 0 {
		balance, err := store.GetCredit(ctx, studentID)
		if err != nil {
			return err
		}
		back := min64(balance, originalAmount)
		if back > 0 {
			if _, err := store.AddCredit(ctx, studentID, -back); err != nil {
				return err
			}
			if err := store.InsertCreditAdjustment(ctx, studentID, transactionID, -back, CreditReversed); err != nil {
				return err
			}
		}
		return nil
	}
	var creditUsed int64
	for _, alloc := range allocations {
		inv, err := store.GetInvoiceForUpdate(ctx, alloc.InvoiceID)
		if err != nil {
			return err
		}
		newPaid := inv.AmountPaid - alloc.Applied
		if newPaid < 0 {
			newPaid = 0
		}
		if err := store.UpdateInvoicePaid(ctx, alloc.InvoiceID, newPaid, StatusFor(inv.Total, newPaid)); err != nil {
			return err
		}
		if err := store.MarkAllocationReversed(ctx, alloc.ID); err != nil {
			return err
		}
		creditUsed += alloc.Applied
	}
	// The unallocated slice of the payment, if any, sat in credit.
	if over := originalAmount - creditUsed; over > 0 {
		balance, err := store.GetCredit(ctx, studentID)
		if err != nil {
			return err
		}
		back := min64(balance, over)
		if back > 0 {
			if _, err := store.AddCredit(ctx, studentID, -back); err != nil {
				return err
			}
			if err := store.InsertCreditAdjustment(ctx, studentID, transactionID, -back, CreditReversed); err != nil {
				return err
			}
		}
	}
	return nil
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
