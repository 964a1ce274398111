package journals

import (
	"time"

	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/shared"
)

// LineInput describes a journal line for a posting request.
type LineInput struct {
	AccountCode string
	Debit       int64
	Credit      int64
	Description string
}

// EntryInput groups fields required to create a journal entry.
type EntryInput struct {
	EntryDate    time.Time
	EntryType    string
	Description  string
	SourceModule string
	SourceRef    uuid.UUID
	StudentID    *int64
	StaffID      *int64
	TermID       *int64
	CreatedBy    int64
	Lines        []LineInput
}

// ValidateLineCount fails unless the entry carries at least two lines.
func ValidateLineCount(lines []LineInput) error {
	if len(lines) < 2 {
		return shared.Validationf("journals: entry requires at least 2 lines, got %d", len(lines))
	}
	return nil
}

// ValidateBalancing sums debits and credits in integer minor units and fails
// with the computed totals and their difference when they are not equal.
func ValidateBalancing(lines []LineInput) error {
	var debit, credit int64
	for _, line := range lines {
		debit += line.Debit
		credit += line.Credit
	}
	if debit != credit {
		diff := debit - credit
		if diff < 0 {
			diff = -diff
		}
		return shared.Validationf("journals: entry is unbalanced: debits %d, credits %d, difference %d", debit, credit, diff)
	}
	return nil
}

// Validate runs every structural check. It is pure and runs before any
// account lookup or persistence; failure aborts with no side effects.
func (in EntryInput) Validate() error {
	if in.EntryType == "" {
		return shared.Validationf("journals: entry type required")
	}
	if in.EntryDate.IsZero() {
		return shared.Validationf("journals: entry date required")
	}
	if err := ValidateLineCount(in.Lines); err != nil {
		return err
	}
	for idx, line := range in.Lines {
		if line.AccountCode == "" {
			return shared.Validationf("journals: line %d missing account code", idx+1)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return shared.Validationf("journals: line %d has a negative amount", idx+1)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return shared.Validationf("journals: line %d cannot be both debit and credit", idx+1)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return shared.Validationf("journals: line %d has no amount", idx+1)
		}
	}
	return ValidateBalancing(in.Lines)
}

// TotalDebits returns the entry total in minor units. The input is assumed
// balanced, so this is also the credit total.
func (in EntryInput) TotalDebits() int64 {
	var total int64
	for _, line := range in.Lines {
		total += line.Debit
	}
	return total
}

// AccountCodes lists the codes referenced by the entry, in line order.
func (in EntryInput) AccountCodes() []string {
	codes := make([]string, 0, len(in.Lines))
	for _, line := range in.Lines {
		codes = append(codes, line.AccountCode)
	}
	return codes
}

// CreateResult reports the outcome of a posting request.
type CreateResult struct {
	Posted           bool
	RequiresApproval bool
	EntryID          int64
	EntryRef         string
	ApprovalRequest  int64
}

// VoidResult reports the outcome of a void request.
type VoidResult struct {
	Voided           bool
	RequiresApproval bool
	ReversalID       int64
	ReversalRef      string
	ApprovalRequest  int64
}
