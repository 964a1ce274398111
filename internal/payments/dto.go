package payments

import (
	"time"

	"github.com/campusledger/campusledger/internal/shared"
)

// PaymentInput carries everything needed to record one student payment.
type PaymentInput struct {
	StudentID      int64
	AmountCents    int64
	Method         string
	Description    string
	Category       string
	InvoiceID      *int64
	TermID         *int64
	PaymentDate    time.Time
	IdempotencyKey string
	ActorID        int64
}

// Validate checks the request shape before any write happens.
func (in PaymentInput) Validate() error {
	if in.StudentID <= 0 {
		return shared.Validationf("payments: student id is required")
	}
	if in.AmountCents <= 0 {
		return shared.Validationf("payments: amount must be positive")
	}
	if in.InvoiceID != nil && *in.InvoiceID <= 0 {
		return shared.Validationf("payments: invoice id must be positive when given")
	}
	return nil
}

// PaymentResult reports a processed payment back to the caller.
type PaymentResult struct {
	TransactionID  int64
	Ref            string
	ReceiptNumber  string
	JournalEntryID int64
	AllocatedCents int64
	CreditedCents  int64
}

// TransactionInput records a manual expense or grant transaction. The
// account code is the expense or income account the cash leg offsets.
type TransactionInput struct {
	Type           string
	Category       string
	AmountCents    int64
	Description    string
	AccountCode    string
	TransactionAt  time.Time
	IdempotencyKey string
	ActorID        int64
}

// Validate checks a manual transaction request.
func (in TransactionInput) Validate() error {
	if in.Type != TxnExpense && in.Type != TxnGrant {
		return shared.Validationf("payments: unsupported transaction type %q", in.Type)
	}
	if in.AmountCents <= 0 {
		return shared.Validationf("payments: amount must be positive")
	}
	if in.AccountCode == "" {
		return shared.Validationf("payments: account code is required")
	}
	return nil
}

// TransactionResult reports a recorded manual transaction.
type TransactionResult struct {
	TransactionID  int64
	Ref            string
	JournalEntryID int64
}

// VoidInput requests the void of a previously recorded transaction.
type VoidInput struct {
	TransactionID int64
	Reason        string
	ActorID       int64
}

// VoidPaymentResult reports a void request's outcome. When the void is
// routed to approval nothing has been reversed yet and ApprovalRequest
// carries the pending request id.
type VoidPaymentResult struct {
	Voided               bool
	RequiresApproval     bool
	ReversalID           int64
	ReversalRef          string
	ApprovalRequest      int64
	JournalEntriesVoided []int64
}
