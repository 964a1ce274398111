package finance

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusledger/campusledger/internal/shared"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func checkRequest(req any) error {
	if err := validate.Struct(req); err != nil {
		return shared.Validationf("finance: invalid request: %v", err)
	}
	return nil
}

// JournalLineRequest is one debit or credit leg of a posting request.
type JournalLineRequest struct {
	AccountCode string `validate:"required"`
	Debit       int64  `validate:"gte=0"`
	Credit      int64  `validate:"gte=0"`
	Description string
}

// JournalEntryRequest asks for a manual journal entry.
type JournalEntryRequest struct {
	EntryType   string `validate:"required"`
	EntryDate   time.Time
	Description string
	StudentID   *int64
	StaffID     *int64
	TermID      *int64
	Lines       []JournalLineRequest `validate:"required,min=2,dive"`
	ActorID     int64                `validate:"required,gt=0"`
}

// JournalEntryResponse reports a posting request's outcome.
type JournalEntryResponse struct {
	Posted           bool
	RequiresApproval bool
	EntryID          int64
	EntryRef         string
}

// PaymentRequest asks for a student payment to be recorded.
type PaymentRequest struct {
	StudentID      int64 `validate:"required,gt=0"`
	AmountCents    int64 `validate:"required,gt=0"`
	Method         string
	Description    string
	Category       string
	InvoiceID      *int64
	TermID         *int64
	PaymentDate    time.Time
	IdempotencyKey string
	ActorID        int64 `validate:"required,gt=0"`
}

// PaymentResponse reports a recorded payment.
type PaymentResponse struct {
	TransactionID int64
	Ref           string
	ReceiptNumber string
}

// VoidPaymentRequest asks for a transaction to be voided.
type VoidPaymentRequest struct {
	TransactionID int64  `validate:"required,gt=0"`
	Reason        string `validate:"required"`
	ActorID       int64  `validate:"required,gt=0"`
}

// VoidPaymentResponse reports a void request's outcome.
type VoidPaymentResponse struct {
	Voided           bool
	RequiresApproval bool
	ReversalID       int64
}

// VoidJournalEntryRequest asks for a journal entry to be voided.
type VoidJournalEntryRequest struct {
	EntryID int64  `validate:"required,gt=0"`
	Reason  string `validate:"required"`
	ActorID int64  `validate:"required,gt=0"`
}

// VoidJournalEntryResponse reports a journal void's outcome.
type VoidJournalEntryResponse struct {
	Voided           bool
	RequiresApproval bool
	ReversalID       int64
	ReversalRef      string
}
