package payments

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/billing"
	"github.com/campusledger/campusledger/internal/ledger/approval"
	"github.com/campusledger/campusledger/internal/ledger/journals"
	"github.com/campusledger/campusledger/internal/shared"
	_ "github.com/campusledger/campusledger/testing"
)

// memoryPaymentsRepo fakes Repository and TxStore in one. WithTx snapshots
// every participating fake so a failing step rolls the whole flow back,
// the way the serializable transaction does in production.
type memoryPaymentsRepo struct {
	txns       map[int64]*LedgerTransaction
	receipts   []Receipt
	voidAudits []VoidAudit
	audits     []shared.AuditLog
	idemKeys   map[string]bool
	seq        int64

	billing *memoryBillingStore
	journal *fakeJournal
}

func newMemoryPaymentsRepo() *memoryPaymentsRepo {
	return &memoryPaymentsRepo{
		txns:     make(map[int64]*LedgerTransaction),
		idemKeys: make(map[string]bool),
		billing:  newMemoryBillingStore(),
		journal:  &fakeJournal{},
	}
}

type repoSnapshot struct {
	txns       map[int64]LedgerTransaction
	receipts   []Receipt
	voidAudits []VoidAudit
	audits     []shared.AuditLog
	idemKeys   map[string]bool
	seq        int64
	billing    billingSnapshot
	journal    []journals.JournalEntry
}

func (r *memoryPaymentsRepo) snapshot() repoSnapshot {
	snap := repoSnapshot{
		txns:       make(map[int64]LedgerTransaction, len(r.txns)),
		receipts:   append([]Receipt(nil), r.receipts...),
		voidAudits: append([]VoidAudit(nil), r.voidAudits...),
		audits:     append([]shared.AuditLog(nil), r.audits...),
		idemKeys:   make(map[string]bool, len(r.idemKeys)),
		seq:        r.seq,
		billing:    r.billing.snapshot(),
		journal:    append([]journals.JournalEntry(nil), r.journal.entries...),
	}
	for id, txn := range r.txns {
		snap.txns[id] = *txn
	}
	for k := range r.idemKeys {
		snap.idemKeys[k] = true
	}
	return snap
}

func (r *memoryPaymentsRepo) restore(snap repoSnapshot) {
	r.txns = make(map[int64]*LedgerTransaction, len(snap.txns))
	for id, txn := range snap.txns {
		copied := txn
		r.txns[id] = &copied
	}
	r.receipts = snap.receipts
	r.voidAudits = snap.voidAudits
	r.audits = snap.audits
	r.idemKeys = snap.idemKeys
	r.seq = snap.seq
	r.billing.restore(snap.billing)
	r.journal.entries = snap.journal
}

func (r *memoryPaymentsRepo) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	snap := r.snapshot()
	if err := fn(ctx, r); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryPaymentsRepo) GetTransaction(ctx context.Context, id int64) (LedgerTransaction, error) {
	txn, ok := r.txns[id]
	if !ok {
		return LedgerTransaction{}, shared.NotFoundf("payments: transaction %d not found", id)
	}
	return *txn, nil
}

func (r *memoryPaymentsRepo) ListRecent(ctx context.Context, limit int) ([]LedgerTransaction, error) {
	var out []LedgerTransaction
	for _, txn := range r.txns {
		out = append(out, *txn)
	}
	return out, nil
}

func (r *memoryPaymentsRepo) Tx() pgx.Tx { return nil }

func (r *memoryPaymentsRepo) CheckIdempotency(ctx context.Context, key string) error {
	if r.idemKeys[key] {
		return shared.ErrIdempotencyConflict
	}
	r.idemKeys[key] = true
	return nil
}

func (r *memoryPaymentsRepo) NextTransactionRef(ctx context.Context) (string, error) {
	r.seq++
	return time.Now().UTC().Format("TXN-20060102-") + pad6(r.seq), nil
}

func (r *memoryPaymentsRepo) InsertTransaction(ctx context.Context, txn LedgerTransaction) (LedgerTransaction, error) {
	r.seq++
	txn.ID = r.seq
	txn.CreatedAt = time.Now()
	copied := txn
	r.txns[txn.ID] = &copied
	return txn, nil
}

func (r *memoryPaymentsRepo) GetTransactionForUpdate(ctx context.Context, id int64) (LedgerTransaction, error) {
	return r.GetTransaction(ctx, id)
}

func (r *memoryPaymentsRepo) MarkVoided(ctx context.Context, id int64, reason string) error {
	txn, ok := r.txns[id]
	if !ok || txn.Voided {
		return shared.Conflictf("payments: transaction %d not found or already voided", id)
	}
	txn.Voided = true
	txn.VoidReason = reason
	return nil
}

func (r *memoryPaymentsRepo) LinkJournalEntry(ctx context.Context, txnID, entryID int64) error {
	txn, ok := r.txns[txnID]
	if !ok {
		return shared.NotFoundf("payments: transaction %d not found", txnID)
	}
	txn.JournalEntryID = &entryID
	return nil
}

func (r *memoryPaymentsRepo) NextReceiptNumber(ctx context.Context) (string, error) {
	r.seq++
	return "RCT-20260101-" + pad6(r.seq), nil
}

func (r *memoryPaymentsRepo) InsertReceipt(ctx context.Context, rec Receipt) (Receipt, error) {
	r.seq++
	rec.ID = r.seq
	rec.IssuedAt = time.Now()
	r.receipts = append(r.receipts, rec)
	return rec, nil
}

func (r *memoryPaymentsRepo) InsertVoidAudit(ctx context.Context, audit VoidAudit) (VoidAudit, error) {
	r.seq++
	audit.ID = r.seq
	audit.CreatedAt = time.Now()
	r.voidAudits = append(r.voidAudits, audit)
	return audit, nil
}

func (r *memoryPaymentsRepo) RecordAudit(ctx context.Context, log shared.AuditLog) error {
	r.audits = append(r.audits, log)
	return nil
}

func pad6(n int64) string {
	s := "00000" + itoa(n)
	return s[len(s)-6:]
}

func itoa(n int64) string {
	if n == 0 {
		return "0"
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	return string(b)
}

// memoryBillingStore fakes billing.Store.
type memoryBillingStore struct {
	invoices    map[int64]*billing.Invoice
	allocations map[int64]*billing.Allocation
	credits     map[int64]int64
	nextID      int64
}

func newMemoryBillingStore() *memoryBillingStore {
	return &memoryBillingStore{
		invoices:    make(map[int64]*billing.Invoice),
		allocations: make(map[int64]*billing.Allocation),
		credits:     make(map[int64]int64),
	}
}

type billingSnapshot struct {
	invoices    map[int64]billing.Invoice
	allocations map[int64]billing.Allocation
	credits     map[int64]int64
	nextID      int64
}

func (s *memoryBillingStore) snapshot() billingSnapshot {
	snap := billingSnapshot{
		invoices:    make(map[int64]billing.Invoice, len(s.invoices)),
		allocations: make(map[int64]billing.Allocation, len(s.allocations)),
		credits:     make(map[int64]int64, len(s.credits)),
		nextID:      s.nextID,
	}
	for id, inv := range s.invoices {
		snap.invoices[id] = *inv
	}
	for id, a := range s.allocations {
		snap.allocations[id] = *a
	}
	for id, c := range s.credits {
		snap.credits[id] = c
	}
	return snap
}

func (s *memoryBillingStore) restore(snap billingSnapshot) {
	s.invoices = make(map[int64]*billing.Invoice, len(snap.invoices))
	for id, inv := range snap.invoices {
		copied := inv
		s.invoices[id] = &copied
	}
	s.allocations = make(map[int64]*billing.Allocation, len(snap.allocations))
	for id, a := range snap.allocations {
		copied := a
		s.allocations[id] = &copied
	}
	s.credits = make(map[int64]int64, len(snap.credits))
	for id, c := range snap.credits {
		s.credits[id] = c
	}
	s.nextID = snap.nextID
}

func (s *memoryBillingStore) addInvoice(studentID int64, date time.Time, total, paid int64) *billing.Invoice {
	s.nextID++
	inv := &billing.Invoice{
		ID:          s.nextID,
		StudentID:   studentID,
		InvoiceDate: date,
		Total:       total,
		AmountPaid:  paid,
		Status:      billing.StatusFor(total, paid),
	}
	s.invoices[inv.ID] = inv
	return inv
}

func (s *memoryBillingStore) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (billing.Invoice, error) {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return billing.Invoice{}, shared.NotFoundf("billing: invoice %d not found", invoiceID)
	}
	return *inv, nil
}

func (s *memoryBillingStore) ListOutstandingForUpdate(ctx context.Context, studentID int64) ([]billing.Invoice, error) {
	var out []billing.Invoice
	for _, inv := range s.invoices {
		if inv.StudentID == studentID && inv.Status != billing.InvoicePaid &&
			inv.Status != billing.InvoiceCancelled && inv.AmountPaid < inv.Total {
			out = append(out, *inv)
		}
	}
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].InvoiceDate.Before(out[i].InvoiceDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memoryBillingStore) UpdateInvoicePaid(ctx context.Context, invoiceID, amountPaid int64, status billing.InvoiceStatus) error {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return shared.NotFoundf("billing: invoice %d not found", invoiceID)
	}
	inv.AmountPaid = amountPaid
	inv.Status = status
	return nil
}

func (s *memoryBillingStore) InsertAllocation(ctx context.Context, transactionID, invoiceID, applied int64) (billing.Allocation, error) {
	s.nextID++
	alloc := billing.Allocation{ID: s.nextID, TransactionID: transactionID, InvoiceID: invoiceID, Applied: applied}
	s.allocations[alloc.ID] = &alloc
	return alloc, nil
}

func (s *memoryBillingStore) ListActiveAllocations(ctx context.Context, transactionID int64) ([]billing.Allocation, error) {
	var out []billing.Allocation
	for _, a := range s.allocations {
		if a.TransactionID == transactionID && !a.Reversed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memoryBillingStore) MarkAllocationReversed(ctx context.Context, allocationID int64) error {
	a, ok := s.allocations[allocationID]
	if !ok || a.Reversed {
		return shared.Conflictf("billing: allocation %d already reversed", allocationID)
	}
	a.Reversed = true
	return nil
}

func (s *memoryBillingStore) AddCredit(ctx context.Context, studentID, delta int64) (int64, error) {
	s.credits[studentID] += delta
	return s.credits[studentID], nil
}

func (s *memoryBillingStore) GetCredit(ctx context.Context, studentID int64) (int64, error) {
	return s.credits[studentID], nil
}

func (s *memoryBillingStore) InsertCreditAdjustment(ctx context.Context, studentID, transactionID, amount int64, kind string) error {
	return nil
}

type fakeBillingGateway struct{ store *memoryBillingStore }

func (g fakeBillingGateway) Tx(tx pgx.Tx) billing.Store { return g.store }

// fakeJournal fakes JournalGateway in the shape the journals service
// behaves: posted entries, void-by-source with swapped reversal lines.
type fakeJournal struct {
	entries    []journals.JournalEntry
	nextID     int64
	failCreate error
}

func (j *fakeJournal) CreateEntryInTx(ctx context.Context, tx pgx.Tx, in journals.EntryInput) (journals.JournalEntry, error) {
	if j.failCreate != nil {
		return journals.JournalEntry{}, j.failCreate
	}
	if err := in.Validate(); err != nil {
		return journals.JournalEntry{}, err
	}
	j.nextID++
	entry := journals.JournalEntry{
		ID:           j.nextID,
		EntryRef:     journals.RefPrefix(in.EntryType) + "-" + pad6(j.nextID),
		EntryDate:    in.EntryDate,
		EntryType:    in.EntryType,
		Description:  in.Description,
		SourceModule: in.SourceModule,
		SourceRef:    in.SourceRef,
		Posted:       true,
		CreatedBy:    in.CreatedBy,
	}
	for i, line := range in.Lines {
		entry.Lines = append(entry.Lines, journals.JournalLine{
			EntryID:     entry.ID,
			LineNumber:  i + 1,
			AccountCode: line.AccountCode,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
		})
	}
	j.entries = append(j.entries, entry)
	return entry, nil
}

func (j *fakeJournal) VoidLinkedEntriesInTx(ctx context.Context, tx pgx.Tx, module string, ref uuid.UUID, reason string, actorID int64) ([]int64, error) {
	var voided []int64
	for i := range j.entries {
		entry := &j.entries[i]
		if entry.SourceModule != module || entry.SourceRef != ref {
			continue
		}
		if !entry.Posted || entry.Voided || entry.EntryType == journals.EntryTypeVoidReversal {
			continue
		}
		entry.Voided = true
		entry.VoidReason = reason
		j.nextID++
		reversal := journals.JournalEntry{
			ID:           j.nextID,
			EntryRef:     journals.RefPrefix(journals.EntryTypeVoidReversal) + "-" + pad6(j.nextID),
			EntryType:    journals.EntryTypeVoidReversal,
			Description:  "Reversal of " + entry.EntryRef + ": " + reason,
			SourceModule: module,
			SourceRef:    ref,
			Posted:       true,
			CreatedBy:    actorID,
		}
		for _, line := range entry.Lines {
			reversal.Lines = append(reversal.Lines, journals.JournalLine{
				EntryID:     reversal.ID,
				LineNumber:  line.LineNumber,
				AccountCode: line.AccountCode,
				Debit:       line.Credit,
				Credit:      line.Debit,
			})
		}
		j.entries = append(j.entries, reversal)
		voided = append(voided, entry.ID)
	}
	return voided, nil
}

func (j *fakeJournal) bySource(module string, ref uuid.UUID) []journals.JournalEntry {
	var out []journals.JournalEntry
	for _, entry := range j.entries {
		if entry.SourceModule == module && entry.SourceRef == ref {
			out = append(out, entry)
		}
	}
	return out
}

// stubGate fakes VoidGate.
type stubGate struct {
	gateAmount  int64
	gateAgeDays int
	now         func() time.Time
	requests    map[int64]*approval.Request
	nextID      int64
}

func newStubGate() *stubGate {
	return &stubGate{now: time.Now, requests: make(map[int64]*approval.Request)}
}

func (g *stubGate) RequiresVoidApproval(ctx context.Context, transactionType string, amount int64, transactionDate time.Time) (bool, error) {
	if g.gateAmount > 0 && amount >= g.gateAmount {
		return true, nil
	}
	if g.gateAgeDays > 0 {
		age := int(g.now().Sub(transactionDate).Hours() / 24)
		if age >= g.gateAgeDays {
			return true, nil
		}
	}
	return false, nil
}

func (g *stubGate) EnsureRequest(ctx context.Context, entityType, entityID string, actorID int64, note string) (approval.Request, error) {
	for _, req := range g.requests {
		if req.EntityType == entityType && req.EntityID == entityID && req.Status == approval.StatusPending {
			return *req, nil
		}
	}
	g.nextID++
	req := &approval.Request{
		ID:          g.nextID,
		EntityType:  entityType,
		EntityID:    entityID,
		Status:      approval.StatusPending,
		RequestedBy: actorID,
		Note:        note,
	}
	g.requests[req.ID] = req
	return *req, nil
}

func (g *stubGate) Resolve(ctx context.Context, requestID int64, decision approval.Decision, approverID int64, comments string) (approval.Request, error) {
	req, ok := g.requests[requestID]
	if !ok {
		return approval.Request{}, shared.NotFoundf("approval: request %d not found", requestID)
	}
	if req.Status != approval.StatusPending {
		return approval.Request{}, shared.Conflictf("approval: request %d already resolved", requestID)
	}
	if decision == approval.DecisionApprove {
		req.Status = approval.StatusApproved
	} else {
		req.Status = approval.StatusRejected
	}
	req.Comments = comments
	return *req, nil
}

type paymentsEnv struct {
	repo      *memoryPaymentsRepo
	gate      *stubGate
	processor *Processor
	voider    *Voider
}

func newPaymentsEnv() *paymentsEnv {
	repo := newMemoryPaymentsRepo()
	gate := newStubGate()
	cfg := Config{CashAccountCode: "1000", ReceivableAccountCode: "1200", DefaultCategory: "FEE_PAYMENT"}
	alloc := billing.NewAllocator(nil)
	bg := fakeBillingGateway{store: repo.billing}
	return &paymentsEnv{
		repo:      repo,
		gate:      gate,
		processor: NewProcessor(repo, bg, alloc, repo.journal, cfg, nil),
		voider:    NewVoider(repo, bg, alloc, repo.journal, gate, nil),
	}
}

func testDay(d int) time.Time {
	return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC)
}

func TestProcessPaymentRecordsEverythingAtomically(t *testing.T) {
	env := newPaymentsEnv()
	inv := env.repo.billing.addInvoice(9, testDay(1), 10000, 0)

	res, err := env.processor.ProcessPayment(context.Background(), PaymentInput{
		StudentID:   9,
		AmountCents: 4000,
		Method:      "CASH",
		ActorID:     1,
	})
	require.NoError(t, err)
	require.NotZero(t, res.TransactionID)
	require.True(t, strings.HasPrefix(res.Ref, "TXN-"))
	require.True(t, strings.HasPrefix(res.ReceiptNumber, "RCT-"))
	require.Equal(t, int64(4000), res.AllocatedCents)
	require.Zero(t, res.CreditedCents)

	txn := env.repo.txns[res.TransactionID]
	require.Equal(t, TxnPayment, txn.Type)
	require.Equal(t, SideCredit, txn.DebitCredit)
	require.Equal(t, "FEE_PAYMENT", txn.Category)
	require.NotNil(t, txn.JournalEntryID)
	require.Equal(t, res.JournalEntryID, *txn.JournalEntryID)

	require.Equal(t, int64(4000), env.repo.billing.invoices[inv.ID].AmountPaid)
	require.Equal(t, billing.InvoicePartial, env.repo.billing.invoices[inv.ID].Status)

	mirrors := env.repo.journal.bySource(sourceModule, txn.PublicID)
	require.Len(t, mirrors, 1)
	entry := mirrors[0]
	require.Equal(t, journals.EntryTypePayment, entry.EntryType)
	require.Len(t, entry.Lines, 2)
	require.Equal(t, "1000", entry.Lines[0].AccountCode)
	require.Equal(t, int64(4000), entry.Lines[0].Debit)
	require.Equal(t, "1200", entry.Lines[1].AccountCode)
	require.Equal(t, int64(4000), entry.Lines[1].Credit)

	require.Len(t, env.repo.receipts, 1)
	require.Len(t, env.repo.audits, 1)
	require.Equal(t, "payment.process", env.repo.audits[0].Action)
}

func TestProcessPaymentOverpaymentBecomesCredit(t *testing.T) {
	env := newPaymentsEnv()
	env.repo.billing.addInvoice(9, testDay(1), 3000, 0)

	res, err := env.processor.ProcessPayment(context.Background(), PaymentInput{
		StudentID:   9,
		AmountCents: 5000,
		ActorID:     1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(3000), res.AllocatedCents)
	require.Equal(t, int64(2000), res.CreditedCents)
	require.Equal(t, int64(2000), env.repo.billing.credits[9])
}

func TestProcessPaymentSpecificInvoice(t *testing.T) {
	env := newPaymentsEnv()
	target := env.repo.billing.addInvoice(9, testDay(1), 2000, 0)
	other := env.repo.billing.addInvoice(9, testDay(2), 8000, 0)

	invoiceID := target.ID
	res, err := env.processor.ProcessPayment(context.Background(), PaymentInput{
		StudentID:   9,
		AmountCents: 2500,
		InvoiceID:   &invoiceID,
		ActorID:     1,
	})
	require.NoError(t, err)
	require.Equal(t, int64(2000), res.AllocatedCents)
	require.Equal(t, int64(500), res.CreditedCents)
	require.Equal(t, billing.InvoicePaid, env.repo.billing.invoices[target.ID].Status)
	require.Zero(t, env.repo.billing.invoices[other.ID].AmountPaid, "untargeted invoice untouched")
	require.Equal(t, int64(500), env.repo.billing.credits[9])
}

// A failed GL mirror must leave no trace of the payment at all.
func TestProcessPaymentJournalFailureRollsBackEverything(t *testing.T) {
	env := newPaymentsEnv()
	inv := env.repo.billing.addInvoice(9, testDay(1), 10000, 0)
	env.repo.journal.failCreate = errors.New("journals: insert entry: connection reset")

	_, err := env.processor.ProcessPayment(context.Background(), PaymentInput{
		StudentID:   9,
		AmountCents: 4000,
		ActorID:     1,
	})
	require.Error(t, err)

	require.Empty(t, env.repo.txns, "no transaction row survives")
	require.Empty(t, env.repo.receipts, "no receipt survives")
	require.Empty(t, env.repo.audits)
	require.Zero(t, env.repo.billing.invoices[inv.ID].AmountPaid, "allocation rolled back")
	require.Equal(t, billing.InvoicePending, env.repo.billing.invoices[inv.ID].Status)
	require.Zero(t, env.repo.billing.credits[9])
}

func TestProcessPaymentDuplicateIdempotencyKey(t *testing.T) {
	env := newPaymentsEnv()
	env.repo.billing.addInvoice(9, testDay(1), 10000, 0)
	ctx := context.Background()
	in := PaymentInput{StudentID: 9, AmountCents: 4000, IdempotencyKey: "pay-abc-1", ActorID: 1}

	_, err := env.processor.ProcessPayment(ctx, in)
	require.NoError(t, err)

	_, err = env.processor.ProcessPayment(ctx, in)
	require.ErrorIs(t, err, shared.ErrIdempotencyConflict)
	require.True(t, shared.IsConflict(err))

	count := 0
	for _, txn := range env.repo.txns {
		if txn.Type == TxnPayment {
			count++
		}
	}
	require.Equal(t, 1, count, "one ledger effect, not two")
	require.Len(t, env.repo.journal.entries, 1, "one journal effect, not two")
}

func TestProcessPaymentRejectsBadInput(t *testing.T) {
	env := newPaymentsEnv()
	ctx := context.Background()

	_, err := env.processor.ProcessPayment(ctx, PaymentInput{AmountCents: 100, ActorID: 1})
	require.True(t, shared.IsValidation(err))

	_, err = env.processor.ProcessPayment(ctx, PaymentInput{StudentID: 9, AmountCents: 0, ActorID: 1})
	require.True(t, shared.IsValidation(err))
	require.Empty(t, env.repo.txns)
}

func TestRecordTransactionExpenseAndGrant(t *testing.T) {
	env := newPaymentsEnv()
	ctx := context.Background()

	res, err := env.processor.RecordTransaction(ctx, TransactionInput{
		Type:        TxnExpense,
		Category:    "UTILITIES",
		AmountCents: 7500,
		Description: "Electricity for February",
		AccountCode: "5100",
		ActorID:     1,
	})
	require.NoError(t, err)
	txn := env.repo.txns[res.TransactionID]
	require.Equal(t, SideDebit, txn.DebitCredit)
	entry := env.repo.journal.bySource(sourceModule, txn.PublicID)[0]
	require.Equal(t, journals.EntryTypeExpense, entry.EntryType)
	require.Equal(t, "5100", entry.Lines[0].AccountCode)
	require.Equal(t, int64(7500), entry.Lines[0].Debit)
	require.Equal(t, "1000", entry.Lines[1].AccountCode)
	require.Equal(t, int64(7500), entry.Lines[1].Credit)

	res, err = env.processor.RecordTransaction(ctx, TransactionInput{
		Type:        TxnGrant,
		Category:    "CAPITATION",
		AmountCents: 200000,
		Description: "Term capitation grant",
		AccountCode: "4200",
		ActorID:     1,
	})
	require.NoError(t, err)
	txn = env.repo.txns[res.TransactionID]
	require.Equal(t, SideCredit, txn.DebitCredit)
	entry = env.repo.journal.bySource(sourceModule, txn.PublicID)[0]
	require.Equal(t, journals.EntryTypeGrant, entry.EntryType)
	require.Equal(t, "1000", entry.Lines[0].AccountCode)
	require.Equal(t, int64(200000), entry.Lines[0].Debit)
	require.Equal(t, "4200", entry.Lines[1].AccountCode)
	require.Equal(t, int64(200000), entry.Lines[1].Credit)
}

func TestRecordTransactionRejectsUnknownType(t *testing.T) {
	env := newPaymentsEnv()
	_, err := env.processor.RecordTransaction(context.Background(), TransactionInput{
		Type:        TxnPayment,
		AmountCents: 100,
		AccountCode: "5100",
		ActorID:     1,
	})
	require.True(t, shared.IsValidation(err))
}
