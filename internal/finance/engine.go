// Package finance is the engine's front door: request structs in, results
// out. Callers authenticate and authorise upstream; ActorID arrives
// trusted.
package finance

import (
	"context"
	"log/slog"
	"time"

	"github.com/campusledger/campusledger/internal/ledger/journals"
	"github.com/campusledger/campusledger/internal/payments"
	"github.com/campusledger/campusledger/internal/recon"
	"github.com/campusledger/campusledger/internal/reports"
)

// JournalService is the slice of journals.Service the facade dispatches to.
type JournalService interface {
	CreateEntry(ctx context.Context, in journals.EntryInput) (journals.CreateResult, error)
	VoidEntry(ctx context.Context, entryID int64, reason string, actorID int64) (journals.VoidResult, error)
}

// PaymentService joins the payment processor and voider.
type PaymentService interface {
	ProcessPayment(ctx context.Context, in payments.PaymentInput) (payments.PaymentResult, error)
}

// VoidService voids recorded transactions.
type VoidService interface {
	VoidPayment(ctx context.Context, in payments.VoidInput) (payments.VoidPaymentResult, error)
}

// ReportService serves the three statements.
type ReportService interface {
	TrialBalance(ctx context.Context, start, end time.Time) (reports.TrialBalance, error)
	BalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error)
	ProfitAndLoss(ctx context.Context, start, end time.Time) (reports.ProfitAndLoss, error)
}

// ReconService runs reconciliation.
type ReconService interface {
	Run(ctx context.Context, actorID int64) (recon.Report, error)
}

// Engine composes the domain services behind one synchronous surface.
type Engine struct {
	journals JournalService
	payments PaymentService
	voids    VoidService
	reports  ReportService
	recon    ReconService
	logger   *slog.Logger
}

// NewEngine constructs the facade.
func NewEngine(js JournalService, ps PaymentService, vs VoidService, rs ReportService, re ReconService, logger *slog.Logger) *Engine {
	return &Engine{journals: js, payments: ps, voids: vs, reports: rs, recon: re, logger: logger}
}

// CreateJournalEntry validates and posts (or queues for approval) a manual
// journal entry.
func (e *Engine) CreateJournalEntry(ctx context.Context, req JournalEntryRequest) (JournalEntryResponse, error) {
	if err := checkRequest(req); err != nil {
		return JournalEntryResponse{}, err
	}
	in := journals.EntryInput{
		EntryDate:   req.EntryDate,
		EntryType:   req.EntryType,
		Description: req.Description,
		StudentID:   req.StudentID,
		StaffID:     req.StaffID,
		TermID:      req.TermID,
		CreatedBy:   req.ActorID,
	}
	for _, line := range req.Lines {
		in.Lines = append(in.Lines, journals.LineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	res, err := e.journals.CreateEntry(ctx, in)
	if err != nil {
		return JournalEntryResponse{}, err
	}
	return JournalEntryResponse{
		Posted:           res.Posted,
		RequiresApproval: res.RequiresApproval,
		EntryID:          res.EntryID,
		EntryRef:         res.EntryRef,
	}, nil
}

// RecordPayment validates and processes a student payment.
func (e *Engine) RecordPayment(ctx context.Context, req PaymentRequest) (PaymentResponse, error) {
	if err := checkRequest(req); err != nil {
		return PaymentResponse{}, err
	}
	res, err := e.payments.ProcessPayment(ctx, payments.PaymentInput{
		StudentID:      req.StudentID,
		AmountCents:    req.AmountCents,
		Method:         req.Method,
		Description:    req.Description,
		Category:       req.Category,
		InvoiceID:      req.InvoiceID,
		TermID:         req.TermID,
		PaymentDate:    req.PaymentDate,
		IdempotencyKey: req.IdempotencyKey,
		ActorID:        req.ActorID,
	})
	if err != nil {
		return PaymentResponse{}, err
	}
	return PaymentResponse{
		TransactionID: res.TransactionID,
		Ref:           res.Ref,
		ReceiptNumber: res.ReceiptNumber,
	}, nil
}

// VoidPayment validates and voids a recorded transaction.
func (e *Engine) VoidPayment(ctx context.Context, req VoidPaymentRequest) (VoidPaymentResponse, error) {
	if err := checkRequest(req); err != nil {
		return VoidPaymentResponse{}, err
	}
	res, err := e.voids.VoidPayment(ctx, payments.VoidInput{
		TransactionID: req.TransactionID,
		Reason:        req.Reason,
		ActorID:       req.ActorID,
	})
	if err != nil {
		return VoidPaymentResponse{}, err
	}
	return VoidPaymentResponse{
		Voided:           res.Voided,
		RequiresApproval: res.RequiresApproval,
		ReversalID:       res.ReversalID,
	}, nil
}

// VoidJournalEntry validates and voids a journal entry.
func (e *Engine) VoidJournalEntry(ctx context.Context, req VoidJournalEntryRequest) (VoidJournalEntryResponse, error) {
	if err := checkRequest(req); err != nil {
		return VoidJournalEntryResponse{}, err
	}
	res, err := e.journals.VoidEntry(ctx, req.EntryID, req.Reason, req.ActorID)
	if err != nil {
		return VoidJournalEntryResponse{}, err
	}
	return VoidJournalEntryResponse{
		Voided:           res.Voided,
		RequiresApproval: res.RequiresApproval,
		ReversalID:       res.ReversalID,
		ReversalRef:      res.ReversalRef,
	}, nil
}

// GetTrialBalance returns the trial balance over [start, end].
func (e *Engine) GetTrialBalance(ctx context.Context, start, end time.Time) (reports.TrialBalance, error) {
	return e.reports.TrialBalance(ctx, start, end)
}

// GetBalanceSheet returns the balance sheet as of a date.
func (e *Engine) GetBalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error) {
	return e.reports.BalanceSheet(ctx, asOf)
}

// GetProfitAndLoss returns the income statement over [start, end].
func (e *Engine) GetProfitAndLoss(ctx context.Context, start, end time.Time) (reports.ProfitAndLoss, error) {
	return e.reports.ProfitAndLoss(ctx, start, end)
}

// RunReconciliation runs all checks and returns the persisted report.
func (e *Engine) RunReconciliation(ctx context.Context, actorID int64) (recon.Report, error) {
	return e.recon.Run(ctx, actorID)
}
