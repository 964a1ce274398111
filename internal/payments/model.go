package payments

import (
	"time"

	"github.com/google/uuid"
)

// Ledger transaction types.
const (
	TxnPayment = "PAYMENT"
	TxnExpense = "EXPENSE"
	TxnGrant   = "GRANT"
	TxnRefund  = "REFUND"
)

// Debit/credit markers on the legacy-style transaction row, relative to
// the student account: money received is a CREDIT, money out a DEBIT.
const (
	SideDebit  = "DEBIT"
	SideCredit = "CREDIT"
)

// sides maps a transaction type to its student-account side.
var sides = map[string]string{
	TxnPayment: SideCredit,
	TxnGrant:   SideCredit,
	TxnExpense: SideDebit,
	TxnRefund:  SideDebit,
}

// SideFor returns the debit/credit marker for a transaction type.
func SideFor(txnType string) string {
	if s, ok := sides[txnType]; ok {
		return s
	}
	return SideDebit
}

// LedgerTransaction is the flat transaction row kept alongside the journal
// for receipt numbering, reporting continuity and reconciliation. PublicID
// links the row to its mirror journal entries (journal source_ref).
type LedgerTransaction struct {
	ID             int64
	PublicID       uuid.UUID
	Ref            string
	Type           string
	Category       string
	AmountCents    int64
	DebitCredit    string
	Description    string
	Method         string
	StudentID      *int64
	TermID         *int64
	LinkedTxnID    *int64
	JournalEntryID *int64
	Voided         bool
	VoidReason     string
	IdempotencyKey string
	TransactionAt  time.Time
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Receipt is issued for every processed payment.
type Receipt struct {
	ID            int64
	ReceiptNumber string
	TransactionID int64
	AmountCents   int64
	Method        string
	IssuedAt      time.Time
}

// VoidAudit records who voided which transaction, and the reversal that
// replaced it.
type VoidAudit struct {
	ID            int64
	TransactionID int64
	ReversalID    int64
	Reason        string
	ActorID       int64
	CreatedAt     time.Time
}
