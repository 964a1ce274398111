package billing

import "time"

// InvoiceStatus enumerates fee invoice states. OUTSTANDING is a query view
// (any unpaid, uncancelled invoice), not a stored value.
type InvoiceStatus string

const (
	InvoicePending   InvoiceStatus = "PENDING"
	InvoicePartial   InvoiceStatus = "PARTIAL"
	InvoicePaid      InvoiceStatus = "PAID"
	InvoiceCancelled InvoiceStatus = "CANCELLED"
)

// StatusFor derives the status from amounts. Status is a pure function of
// amount_paid vs total; nothing stores a divergent value.
func StatusFor(total, amountPaid int64) InvoiceStatus {
	switch {
	case amountPaid <= 0:
		return InvoicePending
	case amountPaid >= total:
		return InvoicePaid
	default:
		return InvoicePartial
	}
}

// Invoice is an amount owed by a student for a billing period. Amounts are
// integer minor units; amount_paid never exceeds total.
type Invoice struct {
	ID          int64
	StudentID   int64
	InvoiceDate time.Time
	Description string
	Total       int64
	AmountPaid  int64
	Status      InvoiceStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Outstanding returns the unpaid portion.
func (i Invoice) Outstanding() int64 {
	out := i.Total - i.AmountPaid
	if out < 0 {
		return 0
	}
	return out
}

// Allocation links one payment transaction to an invoice it paid.
type Allocation struct {
	ID            int64
	TransactionID int64
	InvoiceID     int64
	Applied       int64
	Reversed      bool
	CreatedAt     time.Time
}

// Credit adjustment kinds recorded alongside credit balance movements.
const (
	CreditReceived = "CREDIT_RECEIVED"
	CreditReversed = "CREDIT_REVERSED"
)

// AllocationOutcome reports what a batch allocation did.
type AllocationOutcome struct {
	Applied   []Allocation
	Remainder int64 // routed to the student credit balance
}
