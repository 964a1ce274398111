package journals

import (
	"time"

	"github.com/google/uuid"
)

// Entry types recognised by the ledger. Callers translate financial actions
// into one of these before requesting a posting.
const (
	EntryTypeJournal      = "JOURNAL_ENTRY"
	EntryTypePayment      = "PAYMENT"
	EntryTypeExpense      = "EXPENSE"
	EntryTypeGrant        = "GRANT"
	EntryTypeInvoice      = "INVOICE"
	EntryTypeAdjustment   = "ADJUSTMENT"
	EntryTypeVoidReversal = "VOID_REVERSAL"
)

// ApprovalStatus enumerates entry approval lifecycle values.
type ApprovalStatus string

const (
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

// JournalEntry is one atomic financial event. Once posted it is immutable
// except for void metadata; corrections happen through reversal entries.
type JournalEntry struct {
	ID             int64
	EntryRef       string
	EntryDate      time.Time
	EntryType      string
	Description    string
	SourceModule   string
	SourceRef      uuid.UUID
	StudentID      *int64
	StaffID        *int64
	TermID         *int64
	Posted         bool
	ApprovalStatus ApprovalStatus
	Voided         bool
	VoidReason     string
	CreatedBy      int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []JournalLine
}

// JournalLine is one debit or credit leg of an entry. Amounts are integer
// minor units; exactly one side is non-zero per line.
type JournalLine struct {
	ID          int64
	EntryID     int64
	LineNumber  int
	AccountCode string
	Debit       int64
	Credit      int64
	Description string
	CreatedAt   time.Time
}

// refPrefixes maps entry types to their reference prefix.
var refPrefixes = map[string]string{
	EntryTypeJournal:      "JE",
	EntryTypePayment:      "PAY",
	EntryTypeExpense:      "EXP",
	EntryTypeGrant:        "GRN",
	EntryTypeInvoice:      "INV",
	EntryTypeAdjustment:   "ADJ",
	EntryTypeVoidReversal: "VRV",
}

// RefPrefix returns the entry_ref prefix for an entry type.
func RefPrefix(entryType string) string {
	if p, ok := refPrefixes[entryType]; ok {
		return p
	}
	return "JE"
}
