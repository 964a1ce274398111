package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/campusledger/campusledger/internal/ledger/approval"
	"github.com/campusledger/campusledger/internal/shared"
)

// approvalEntityVoid names void requests in the approval queue.
const approvalEntityVoid = "payment_void"

// VoidGate is the slice of approval.Gate the void flow needs.
type VoidGate interface {
	RequiresVoidApproval(ctx context.Context, transactionType string, amount int64, transactionDate time.Time) (bool, error)
	EnsureRequest(ctx context.Context, entityType, entityID string, actorID int64, note string) (approval.Request, error)
	Resolve(ctx context.Context, requestID int64, decision approval.Decision, approverID int64, comments string) (approval.Request, error)
}

// Voider reverses recorded transactions: a REFUND row linked to the
// original, the original flagged voided, allocations unwound and the GL
// mirror voided, all in one transaction.
type Voider struct {
	repo      Repository
	billing   BillingGateway
	allocator InvoiceAllocator
	journals  JournalGateway
	gate      VoidGate
	logger    *slog.Logger
	now       func() time.Time
}

// NewVoider constructs a Voider.
func NewVoider(repo Repository, bg BillingGateway, alloc InvoiceAllocator, jg JournalGateway, gate VoidGate, logger *slog.Logger) *Voider {
	return &Voider{
		repo:      repo,
		billing:   bg,
		allocator: alloc,
		journals:  jg,
		gate:      gate,
		logger:    logger,
		now:       time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (v *Voider) WithNow(now func() time.Time) { v.now = now }

// VoidPayment voids a transaction. An active void rule (amount or age of
// the transaction) routes the request to the approval queue; nothing is
// reversed until an approver signs off.
func (v *Voider) VoidPayment(ctx context.Context, in VoidInput) (VoidPaymentResult, error) {
	if in.Reason == "" {
		return VoidPaymentResult{}, shared.Validationf("payments: void reason is required")
	}
	txn, err := v.repo.GetTransaction(ctx, in.TransactionID)
	if err != nil {
		return VoidPaymentResult{}, err
	}
	if txn.Voided {
		return VoidPaymentResult{}, shared.Conflictf("payments: transaction %d not found or already voided", txn.ID)
	}

	gated, err := v.gate.RequiresVoidApproval(ctx, txn.Type, txn.AmountCents, txn.TransactionAt)
	if err != nil {
		return VoidPaymentResult{}, err
	}
	if gated {
		req, err := v.gate.EnsureRequest(ctx, approvalEntityVoid,
			strconv.FormatInt(txn.ID, 10), in.ActorID, in.Reason)
		if err != nil {
			return VoidPaymentResult{}, err
		}
		if v.logger != nil {
			v.logger.Info("payment void pending approval",
				slog.String("ref", txn.Ref), slog.Int64("request_id", req.ID))
		}
		return VoidPaymentResult{RequiresApproval: true, ApprovalRequest: req.ID}, nil
	}
	return v.executeVoid(ctx, txn.ID, in.Reason, in.ActorID)
}

// ResolveVoidApproval applies an approver's decision to a pending void
// request. Approval executes the reversal; rejection leaves the original
// transaction untouched.
func (v *Voider) ResolveVoidApproval(ctx context.Context, requestID int64, decision approval.Decision, approverID int64, comments string) (VoidPaymentResult, error) {
	req, err := v.gate.Resolve(ctx, requestID, decision, approverID, comments)
	if err != nil {
		return VoidPaymentResult{}, err
	}
	if req.Status != approval.StatusApproved {
		return VoidPaymentResult{}, nil
	}
	txnID, err := strconv.ParseInt(req.EntityID, 10, 64)
	if err != nil {
		return VoidPaymentResult{}, fmt.Errorf("parse void request entity %q: %w", req.EntityID, err)
	}
	reason := req.Note
	if reason == "" {
		reason = comments
	}
	return v.executeVoid(ctx, txnID, reason, approverID)
}

func (v *Voider) executeVoid(ctx context.Context, txnID int64, reason string, actorID int64) (VoidPaymentResult, error) {
	var result VoidPaymentResult
	err := v.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		txn, err := store.GetTransactionForUpdate(ctx, txnID)
		if err != nil {
			return err
		}
		if txn.Voided {
			return shared.Conflictf("payments: transaction %d not found or already voided", txn.ID)
		}

		ref, err := store.NextTransactionRef(ctx)
		if err != nil {
			return err
		}
		reversal, err := store.InsertTransaction(ctx, LedgerTransaction{
			PublicID:      uuid.New(),
			Ref:           ref,
			Type:          TxnRefund,
			Category:      txn.Category,
			AmountCents:   txn.AmountCents,
			DebitCredit:   oppositeSide(txn.DebitCredit),
			Description:   fmt.Sprintf("Reversal of %s: %s", txn.Ref, reason),
			Method:        txn.Method,
			StudentID:     txn.StudentID,
			TermID:        txn.TermID,
			LinkedTxnID:   &txn.ID,
			TransactionAt: v.now(),
			CreatedBy:     actorID,
		})
		if err != nil {
			return err
		}
		if err := store.MarkVoided(ctx, txn.ID, reason); err != nil {
			return err
		}
		if _, err := store.InsertVoidAudit(ctx, VoidAudit{
			TransactionID: txn.ID,
			ReversalID:    reversal.ID,
			Reason:        reason,
			ActorID:       actorID,
		}); err != nil {
			return err
		}

		var studentID int64
		if txn.StudentID != nil {
			studentID = *txn.StudentID
		}
		invoices := v.billing.Tx(store.Tx())
		if err := v.allocator.ReverseAllocations(ctx, invoices, txn.ID, studentID, txn.AmountCents); err != nil {
			return err
		}

		voided, err := v.journals.VoidLinkedEntriesInTx(ctx, store.Tx(), sourceModule, txn.PublicID, reason, actorID)
		if err != nil {
			return err
		}

		if err := store.RecordAudit(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "payment.void",
			Entity:   "ledger_transaction",
			EntityID: txn.Ref,
			Meta: map[string]any{
				"reversal_ref":   reversal.Ref,
				"reason":         reason,
				"voided_entries": voided,
			},
		}); err != nil {
			return err
		}

		result = VoidPaymentResult{
			Voided:               true,
			ReversalID:           reversal.ID,
			ReversalRef:          reversal.Ref,
			JournalEntriesVoided: voided,
		}
		return nil
	})
	if err != nil {
		return VoidPaymentResult{}, err
	}
	if v.logger != nil {
		v.logger.Info("payment voided",
			slog.Int64("transaction_id", txnID),
			slog.String("reversal_ref", result.ReversalRef),
			slog.Int("journal_entries_voided", len(result.JournalEntriesVoided)))
	}
	return result, nil
}

func oppositeSide(side string) string {
	if side == SideDebit {
		return SideCredit
	}
	return SideDebit
}
