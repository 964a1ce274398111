package journals

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/campusledger/campusledger/internal/ledger/approval"
	"github.com/campusledger/campusledger/internal/shared"
)

// approvalEntityEntry names the gated entity types in approval requests.
const (
	approvalEntityEntry = "journal_entry"
	approvalEntityVoid  = "journal_entry_void"
)

// AccountCatalog validates the GL accounts referenced by entry lines.
type AccountCatalog interface {
	ValidateLineAccounts(ctx context.Context, codes []string) error
}

// ApprovalGate decides whether a posting or void needs sign-off.
type ApprovalGate interface {
	RequiresApproval(ctx context.Context, transactionType string, totalAmount int64) (bool, error)
	RequiresVoidApproval(ctx context.Context, transactionType string, amount int64, transactionDate time.Time) (bool, error)
	EnsureRequest(ctx context.Context, entityType, entityID string, actorID int64, note string) (approval.Request, error)
	Resolve(ctx context.Context, requestID int64, decision approval.Decision, approverID int64, comments string) (approval.Request, error)
}

// Service is the journal store: it validates, gates, and atomically persists
// journal entries, and drives the void/reversal state machine.
type Service struct {
	repo    Repository
	catalog AccountCatalog
	gate    ApprovalGate
	logger  *slog.Logger
	now     func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, catalog AccountCatalog, gate ApprovalGate, logger *slog.Logger) *Service {
	return &Service{repo: repo, catalog: catalog, gate: gate, logger: logger, now: time.Now}
}

// WithNow overrides the clock, used by tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// List returns recent entries, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]JournalEntry, error) {
	return s.repo.List(ctx, limit)
}

// Get returns one entry with its lines.
func (s *Service) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	return s.repo.GetWithLines(ctx, entryID)
}

// CreateEntry validates, gates, and persists a journal entry. Gated entries
// are stored as PENDING and excluded from reports until resolved; everything
// else posts atomically.
func (s *Service) CreateEntry(ctx context.Context, in EntryInput) (CreateResult, error) {
	if err := in.Validate(); err != nil {
		return CreateResult{}, err
	}
	if err := s.catalog.ValidateLineAccounts(ctx, in.AccountCodes()); err != nil {
		return CreateResult{}, err
	}
	gated, err := s.gate.RequiresApproval(ctx, in.EntryType, in.TotalDebits())
	if err != nil {
		return CreateResult{}, err
	}

	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err = s.insertEntryTx(ctx, tx, in, !gated)
		return err
	})
	if err != nil {
		return CreateResult{}, err
	}

	result := CreateResult{Posted: !gated, EntryID: entry.ID, EntryRef: entry.EntryRef, RequiresApproval: gated}
	if gated {
		req, err := s.gate.EnsureRequest(ctx, approvalEntityEntry, strconv.FormatInt(entry.ID, 10), in.CreatedBy,
			fmt.Sprintf("journal entry %s for %d", entry.EntryRef, in.TotalDebits()))
		if err != nil {
			return CreateResult{}, err
		}
		result.ApprovalRequest = req.ID
	}
	if s.logger != nil {
		s.logger.Info("journal entry created",
			slog.String("entry_ref", entry.EntryRef),
			slog.Bool("posted", result.Posted),
			slog.Int64("total", in.TotalDebits()))
	}
	return result, nil
}

// CreateEntryTx posts an entry inside a transaction owned by another flow.
// The caller is responsible for validation context (the payment processor
// uses this so the GL mirror and the ledger row commit or roll back
// together). Gating does not apply: the outer flow was already gated.
func (s *Service) CreateEntryTx(ctx context.Context, tx TxRepository, in EntryInput) (JournalEntry, error) {
	if err := in.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if err := s.catalog.ValidateLineAccounts(ctx, in.AccountCodes()); err != nil {
		return JournalEntry{}, err
	}
	return s.insertEntryTx(ctx, tx, in, true)
}

func (s *Service) insertEntryTx(ctx context.Context, tx TxRepository, in EntryInput, post bool) (JournalEntry, error) {
	ref, err := tx.NextEntryRef(ctx, in.EntryType)
	if err != nil {
		return JournalEntry{}, err
	}
	status := ApprovalApproved
	if !post {
		status = ApprovalPending
	}
	entry, err := tx.InsertEntry(ctx, in, ref, post, status)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, entry.ID, in.Lines); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.RecordAudit(ctx, shared.AuditLog{
		ActorID:  in.CreatedBy,
		Action:   "journal.create",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entry.ID, 10),
		Meta: map[string]any{
			"entry_ref": ref,
			"type":      in.EntryType,
			"total":     in.TotalDebits(),
			"posted":    post,
		},
		At: s.now(),
	}); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// VoidEntry drives the void state machine. A posted, unvoided entry either
// goes to pending void approval (when a void rule matches) or is voided
// immediately with a mirror-image reversal entry. The original's lines are
// never altered.
func (s *Service) VoidEntry(ctx context.Context, entryID int64, reason string, actorID int64) (VoidResult, error) {
	if reason == "" {
		return VoidResult{}, shared.Validationf("journals: void reason required")
	}
	current, err := s.repo.GetWithLines(ctx, entryID)
	if err != nil {
		return VoidResult{}, err
	}
	if current.Voided {
		return VoidResult{}, shared.Conflictf("journals: entry %d not found or already voided", entryID)
	}
	if !current.Posted {
		return VoidResult{}, shared.Validationf("journals: entry %d is not posted", entryID)
	}

	gated, err := s.gate.RequiresVoidApproval(ctx, "VOID", entryTotal(current), current.EntryDate)
	if err != nil {
		return VoidResult{}, err
	}
	if gated {
		req, err := s.gate.EnsureRequest(ctx, approvalEntityVoid, strconv.FormatInt(entryID, 10), actorID, reason)
		if err != nil {
			return VoidResult{}, err
		}
		return VoidResult{RequiresApproval: true, ApprovalRequest: req.ID}, nil
	}

	var reversal JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		reversal, err = s.voidEntryTx(ctx, tx, entryID, reason, actorID)
		return err
	})
	if err != nil {
		return VoidResult{}, err
	}
	if s.logger != nil {
		s.logger.Info("journal entry voided",
			slog.Int64("entry_id", entryID),
			slog.String("reversal_ref", reversal.EntryRef))
	}
	return VoidResult{Voided: true, ReversalID: reversal.ID, ReversalRef: reversal.EntryRef}, nil
}

// voidEntryTx flags the original and posts the reversal in one unit.
func (s *Service) voidEntryTx(ctx context.Context, tx TxRepository, entryID int64, reason string, actorID int64) (JournalEntry, error) {
	original, err := tx.GetEntryWithLines(ctx, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.MarkVoided(ctx, entryID, reason); err != nil {
		return JournalEntry{}, err
	}
	reversalInput := EntryInput{
		EntryDate:    s.now(),
		EntryType:    EntryTypeVoidReversal,
		Description:  fmt.Sprintf("Reversal of %s: %s", original.EntryRef, reason),
		SourceModule: original.SourceModule,
		StudentID:    original.StudentID,
		StaffID:      original.StaffID,
		TermID:       original.TermID,
		CreatedBy:    actorID,
		Lines:        reverseLines(original.Lines),
	}
	ref, err := tx.NextEntryRef(ctx, EntryTypeVoidReversal)
	if err != nil {
		return JournalEntry{}, err
	}
	reversal, err := tx.InsertEntry(ctx, reversalInput, ref, true, ApprovalApproved)
	if err != nil {
		return JournalEntry{}, err
	}
	if err := tx.InsertLines(ctx, reversal.ID, reversalInput.Lines); err != nil {
		return JournalEntry{}, err
	}
	if err := tx.RecordAudit(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "journal.void",
		Entity:   "journal_entry",
		EntityID: strconv.FormatInt(entryID, 10),
		Meta: map[string]any{
			"reason":       reason,
			"reversal_id":  reversal.ID,
			"reversal_ref": reversal.EntryRef,
		},
		At: s.now(),
	}); err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

// VoidLinkedEntries voids every posted entry linked to a source record, on
// the caller's transaction. The payment void flow uses this for step six so
// the whole unwind commits or rolls back together. Gating happened at the
// payment level, so it is not re-applied here.
func (s *Service) VoidLinkedEntries(ctx context.Context, tx TxRepository, module string, ref uuid.UUID, reason string, actorID int64) ([]int64, error) {
	entries, err := tx.ListBySource(ctx, module, ref)
	if err != nil {
		return nil, err
	}
	var reversals []int64
	for _, entry := range entries {
		if !entry.Posted || entry.Voided || entry.EntryType == EntryTypeVoidReversal {
			continue
		}
		reversal, err := s.voidEntryTx(ctx, tx, entry.ID, reason, actorID)
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, reversal.ID)
	}
	return reversals, nil
}

// ResolveEntryApproval applies an approver decision to a pending entry:
// approve posts it, reject discards it (the row stays for audit, flagged
// REJECTED and never posted).
func (s *Service) ResolveEntryApproval(ctx context.Context, requestID int64, decision approval.Decision, approverID int64, comments string) (CreateResult, error) {
	req, err := s.gate.Resolve(ctx, requestID, decision, approverID, comments)
	if err != nil {
		return CreateResult{}, err
	}
	if req.EntityType != approvalEntityEntry && req.EntityType != approvalEntityVoid {
		return CreateResult{}, shared.Validationf("journals: request %d does not target a journal entry", requestID)
	}
	entryID, err := strconv.ParseInt(req.EntityID, 10, 64)
	if err != nil {
		return CreateResult{}, fmt.Errorf("journals: bad entity id %q: %w", req.EntityID, err)
	}

	if req.EntityType == approvalEntityVoid {
		if req.Status != approval.StatusApproved {
			return CreateResult{EntryID: entryID}, nil
		}
		var reversal JournalEntry
		err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
			reversal, err = s.voidEntryTx(ctx, tx, entryID, "approved void: "+comments, approverID)
			return err
		})
		if err != nil {
			return CreateResult{}, err
		}
		return CreateResult{Posted: true, EntryID: reversal.ID, EntryRef: reversal.EntryRef}, nil
	}

	post := req.Status == approval.StatusApproved
	status := ApprovalApproved
	if !post {
		status = ApprovalRejected
	}
	var entry JournalEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.SetApprovalOutcome(ctx, entryID, status, post); err != nil {
			return err
		}
		entry, err = tx.GetEntryWithLines(ctx, entryID)
		if err != nil {
			return err
		}
		return tx.RecordAudit(ctx, shared.AuditLog{
			ActorID:  approverID,
			Action:   "journal.approval." + string(decision),
			Entity:   "journal_entry",
			EntityID: req.EntityID,
			Meta:     map[string]any{"comments": comments},
			At:       s.now(),
		})
	})
	if err != nil {
		return CreateResult{}, err
	}
	return CreateResult{Posted: post, EntryID: entry.ID, EntryRef: entry.EntryRef}, nil
}

// CreateEntryInTx is CreateEntryTx against a raw pgx transaction.
func (s *Service) CreateEntryInTx(ctx context.Context, tx pgx.Tx, in EntryInput) (JournalEntry, error) {
	return s.CreateEntryTx(ctx, s.repo.Join(tx), in)
}

// VoidLinkedEntriesInTx is VoidLinkedEntries against a raw pgx transaction.
func (s *Service) VoidLinkedEntriesInTx(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, reason string, actorID int64) ([]int64, error) {
	return s.VoidLinkedEntries(ctx, s.repo.Join(tx), module, ref, reason, actorID)
}

func reverseLines(lines []JournalLine) []LineInput {
	out := make([]LineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, LineInput{
			AccountCode: line.AccountCode,
			Debit:       line.Credit,
			Credit:      line.Debit,
			Description: line.Description,
		})
	}
	return out
}

func entryTotal(entry JournalEntry) int64 {
	var total int64
	for _, line := range entry.Lines {
		total += line.Debit
	}
	return total
}
