package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusledger/campusledger/internal/billing"
	"github.com/campusledger/campusledger/internal/ledger/journals"
	"github.com/campusledger/campusledger/internal/shared"
)

// sourceModule tags journal entries created from this package so voids can
// find them again.
const sourceModule = "payments"

// BillingGateway binds the invoice store to the payment's transaction.
// *billing.Repository satisfies it.
type BillingGateway interface {
	Tx(tx pgx.Tx) billing.Store
}

// InvoiceAllocator is the slice of billing.Allocator the flows use.
type InvoiceAllocator interface {
	ApplyToInvoice(ctx context.Context, store billing.Store, transactionID, invoiceID, amount int64) (int64, error)
	ApplyAcrossOutstanding(ctx context.Context, store billing.Store, transactionID, studentID, amount int64) (billing.AllocationOutcome, error)
	CreditRemainder(ctx context.Context, store billing.Store, studentID, transactionID, remainder int64) error
	ReverseAllocations(ctx context.Context, store billing.Store, transactionID, studentID, originalAmount int64) error
}

// JournalGateway posts and voids the GL mirror inside the payment's
// transaction. *journals.Service satisfies it.
type JournalGateway interface {
	CreateEntryInTx(ctx context.Context, tx pgx.Tx, in journals.EntryInput) (journals.JournalEntry, error)
	VoidLinkedEntriesInTx(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, reason string, actorID int64) ([]int64, error)
}

// Config holds the GL wiring a payment mirror needs.
type Config struct {
	CashAccountCode       string
	ReceivableAccountCode string
	DefaultCategory       string
}

// Processor records payments and manual transactions. Every mutation runs
// as one serializable transaction: ledger row, receipt, allocations and the
// GL mirror commit together or not at all.
type Processor struct {
	repo      Repository
	billing   BillingGateway
	allocator InvoiceAllocator
	journals  JournalGateway
	cfg       Config
	logger    *slog.Logger
	now       func() time.Time
}

// NewProcessor constructs a Processor.
func NewProcessor(repo Repository, bg BillingGateway, alloc InvoiceAllocator, jg JournalGateway, cfg Config, logger *slog.Logger) *Processor {
	return &Processor{
		repo:      repo,
		billing:   bg,
		allocator: alloc,
		journals:  jg,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (p *Processor) WithNow(now func() time.Time) { p.now = now }

// ProcessPayment records one student payment. A duplicate idempotency key
// returns ErrIdempotencyConflict with no effects; any later failure,
// including the GL mirror, rolls the whole payment back.
func (p *Processor) ProcessPayment(ctx context.Context, in PaymentInput) (PaymentResult, error) {
	if err := in.Validate(); err != nil {
		return PaymentResult{}, err
	}
	category := in.Category
	if category == "" {
		category = p.cfg.DefaultCategory
	}
	paymentDate := in.PaymentDate
	if paymentDate.IsZero() {
		paymentDate = p.now()
	}

	var result PaymentResult
	err := p.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		if in.IdempotencyKey != "" {
			if err := store.CheckIdempotency(ctx, in.IdempotencyKey); err != nil {
				return err
			}
		}
		ref, err := store.NextTransactionRef(ctx)
		if err != nil {
			return err
		}
		studentID := in.StudentID
		txn, err := store.InsertTransaction(ctx, LedgerTransaction{
			PublicID:       uuid.New(),
			Ref:            ref,
			Type:           TxnPayment,
			Category:       category,
			AmountCents:    in.AmountCents,
			DebitCredit:    SideFor(TxnPayment),
			Description:    in.Description,
			Method:         in.Method,
			StudentID:      &studentID,
			TermID:         in.TermID,
			IdempotencyKey: in.IdempotencyKey,
			TransactionAt:  paymentDate,
			CreatedBy:      in.ActorID,
		})
		if err != nil {
			return err
		}

		receiptNo, err := store.NextReceiptNumber(ctx)
		if err != nil {
			return err
		}
		receipt, err := store.InsertReceipt(ctx, Receipt{
			ReceiptNumber: receiptNo,
			TransactionID: txn.ID,
			AmountCents:   in.AmountCents,
			Method:        in.Method,
		})
		if err != nil {
			return err
		}

		invoices := p.billing.Tx(store.Tx())
		var allocated, credited int64
		if in.InvoiceID != nil {
			remainder, err := p.allocator.ApplyToInvoice(ctx, invoices, txn.ID, *in.InvoiceID, in.AmountCents)
			if err != nil {
				return err
			}
			if err := p.allocator.CreditRemainder(ctx, invoices, in.StudentID, txn.ID, remainder); err != nil {
				return err
			}
			allocated = in.AmountCents - remainder
			credited = remainder
		} else {
			outcome, err := p.allocator.ApplyAcrossOutstanding(ctx, invoices, txn.ID, in.StudentID, in.AmountCents)
			if err != nil {
				return err
			}
			for _, alloc := range outcome.Applied {
				allocated += alloc.Applied
			}
			credited = outcome.Remainder
		}

		if err := store.RecordAudit(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "payment.process",
			Entity:   "ledger_transaction",
			EntityID: txn.Ref,
			Meta: map[string]any{
				"amount_cents":   in.AmountCents,
				"student_id":     in.StudentID,
				"allocated":      allocated,
				"credited":       credited,
				"receipt_number": receipt.ReceiptNumber,
			},
		}); err != nil {
			return err
		}

		// GL mirror. A payment is not recorded unless its journal entry is.
		entry, err := p.journals.CreateEntryInTx(ctx, store.Tx(), journals.EntryInput{
			EntryDate:    paymentDate,
			EntryType:    journals.EntryTypePayment,
			Description:  fmt.Sprintf("Payment %s from student %d", txn.Ref, in.StudentID),
			SourceModule: sourceModule,
			SourceRef:    txn.PublicID,
			StudentID:    &studentID,
			TermID:       in.TermID,
			CreatedBy:    in.ActorID,
			Lines: []journals.LineInput{
				{AccountCode: p.cfg.CashAccountCode, Debit: in.AmountCents, Description: "Cash received"},
				{AccountCode: p.cfg.ReceivableAccountCode, Credit: in.AmountCents, Description: "Fees receivable settled"},
			},
		})
		if err != nil {
			return fmt.Errorf("payment journal mirror: %w", err)
		}
		if err := store.LinkJournalEntry(ctx, txn.ID, entry.ID); err != nil {
			return err
		}

		result = PaymentResult{
			TransactionID:  txn.ID,
			Ref:            txn.Ref,
			ReceiptNumber:  receipt.ReceiptNumber,
			JournalEntryID: entry.ID,
			AllocatedCents: allocated,
			CreditedCents:  credited,
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	if p.logger != nil {
		p.logger.Info("payment processed",
			slog.String("ref", result.Ref),
			slog.Int64("student_id", in.StudentID),
			slog.Int64("amount_cents", in.AmountCents),
			slog.Int64("credited_cents", result.CreditedCents))
	}
	return result, nil
}

// RecordTransaction records a manual expense or grant with its GL mirror:
// expenses debit the named account against cash, grants debit cash against
// the named income account.
func (p *Processor) RecordTransaction(ctx context.Context, in TransactionInput) (TransactionResult, error) {
	if err := in.Validate(); err != nil {
		return TransactionResult{}, err
	}
	at := in.TransactionAt
	if at.IsZero() {
		at = p.now()
	}

	var result TransactionResult
	err := p.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		if in.IdempotencyKey != "" {
			if err := store.CheckIdempotency(ctx, in.IdempotencyKey); err != nil {
				return err
			}
		}
		ref, err := store.NextTransactionRef(ctx)
		if err != nil {
			return err
		}
		txn, err := store.InsertTransaction(ctx, LedgerTransaction{
			PublicID:       uuid.New(),
			Ref:            ref,
			Type:           in.Type,
			Category:       in.Category,
			AmountCents:    in.AmountCents,
			DebitCredit:    SideFor(in.Type),
			Description:    in.Description,
			IdempotencyKey: in.IdempotencyKey,
			TransactionAt:  at,
			CreatedBy:      in.ActorID,
		})
		if err != nil {
			return err
		}

		entryType := journals.EntryTypeExpense
		lines := []journals.LineInput{
			{AccountCode: in.AccountCode, Debit: in.AmountCents},
			{AccountCode: p.cfg.CashAccountCode, Credit: in.AmountCents},
		}
		if in.Type == TxnGrant {
			entryType = journals.EntryTypeGrant
			lines = []journals.LineInput{
				{AccountCode: p.cfg.CashAccountCode, Debit: in.AmountCents},
				{AccountCode: in.AccountCode, Credit: in.AmountCents},
			}
		}
		entry, err := p.journals.CreateEntryInTx(ctx, store.Tx(), journals.EntryInput{
			EntryDate:    at,
			EntryType:    entryType,
			Description:  fmt.Sprintf("%s %s: %s", in.Type, txn.Ref, in.Description),
			SourceModule: sourceModule,
			SourceRef:    txn.PublicID,
			CreatedBy:    in.ActorID,
			Lines:        lines,
		})
		if err != nil {
			return fmt.Errorf("transaction journal mirror: %w", err)
		}
		if err := store.LinkJournalEntry(ctx, txn.ID, entry.ID); err != nil {
			return err
		}
		if err := store.RecordAudit(ctx, shared.AuditLog{
			ActorID:  in.ActorID,
			Action:   "transaction.record",
			Entity:   "ledger_transaction",
			EntityID: txn.Ref,
			Meta: map[string]any{
				"type":         in.Type,
				"amount_cents": in.AmountCents,
			},
		}); err != nil {
			return err
		}

		result = TransactionResult{TransactionID: txn.ID, Ref: txn.Ref, JournalEntryID: entry.ID}
		return nil
	})
	if err != nil {
		return TransactionResult{}, err
	}
	if p.logger != nil {
		p.logger.Info("transaction recorded",
			slog.String("ref", result.Ref),
			slog.String("type", in.Type),
			slog.Int64("amount_cents", in.AmountCents))
	}
	return result, nil
}
