package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campusledger/campusledger/internal/shared"
	_ "github.com/campusledger/campusledger/testing"
)

type memoryStore struct {
	invoices    map[int64]*Invoice
	allocations map[int64]*Allocation
	credits     map[int64]int64
	adjustments []string
	nextID      int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		invoices:    make(map[int64]*Invoice),
		allocations: make(map[int64]*Allocation),
		credits:     make(map[int64]int64),
	}
}

func (s *memoryStore) addInvoice(studentID int64, date time.Time, total, paid int64) *Invoice {
	s.nextID++
	inv := &Invoice{
		ID:          s.nextID,
		StudentID:   studentID,
		InvoiceDate: date,
		Total:       total,
		AmountPaid:  paid,
		Status:      StatusFor(total, paid),
	}
	s.invoices[inv.ID] = inv
	return inv
}

func (s *memoryStore) GetInvoiceForUpdate(ctx context.Context, invoiceID int64) (Invoice, error) {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return Invoice{}, shared.NotFoundf("billing: invoice %d not found", invoiceID)
	}
	return *inv, nil
}

func (s *memoryStore) ListOutstandingForUpdate(ctx context.Context, studentID int64) ([]Invoice, error) {
	var out []Invoice
	for _, inv := range s.invoices {
		if inv.StudentID == studentID && inv.Status != InvoicePaid && inv.Status != InvoiceCancelled && inv.AmountPaid < inv.Total {
			out = append(out, *inv)
		}
	}
	// oldest first
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].InvoiceDate.Before(out[i].InvoiceDate) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memoryStore) UpdateInvoicePaid(ctx context.Context, invoiceID, amountPaid int64, status InvoiceStatus) error {
	inv, ok := s.invoices[invoiceID]
	if !ok {
		return shared.NotFoundf("billing: invoice %d not found", invoiceID)
	}
	inv.AmountPaid = amountPaid
	inv.Status = status
	return nil
}

func (s *memoryStore) InsertAllocation(ctx context.Context, transactionID, invoiceID, applied int64) (Allocation, error) {
	s.nextID++
	alloc := Allocation{ID: s.nextID, TransactionID: transactionID, InvoiceID: invoiceID, Applied: applied, CreatedAt: time.Now()}
	s.allocations[alloc.ID] = &alloc
	return alloc, nil
}

func (s *memoryStore) ListActiveAllocations(ctx context.Context, transactionID int64) ([]Allocation, error) {
	var out []Allocation
	for _, a := range s.allocations {
		if a.TransactionID == transactionID && !a.Reversed {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *memoryStore) MarkAllocationReversed(ctx context.Context, allocationID int64) error {
	a, ok := s.allocations[allocationID]
	if !ok || a.Reversed {
		return shared.Conflictf("billing: allocation %d already reversed", allocationID)
	}
	a.Reversed = true
	return nil
}

func (s *memoryStore) AddCredit(ctx context.Context, studentID, delta int64) (int64, error) {
	s.credits[studentID] += delta
	return s.credits[studentID], nil
}

func (s *memoryStore) GetCredit(ctx context.Context, studentID int64) (int64, error) {
	return s.credits[studentID], nil
}

func (s *memoryStore) InsertCreditAdjustment(ctx context.Context, studentID, transactionID, amount int64, kind string) error {
	s.adjustments = append(s.adjustments, kind)
	return nil
}

func day(d int) time.Time {
	return time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestStatusFor(t *testing.T) {
	require.Equal(t, InvoicePending, StatusFor(10000, 0))
	require.Equal(t, InvoicePending, StatusFor(10000, -5))
	require.Equal(t, InvoicePartial, StatusFor(10000, 4000))
	require.Equal(t, InvoicePaid, StatusFor(10000, 10000))
	require.Equal(t, InvoicePaid, StatusFor(10000, 12000))
}

// Invoice of 10000: pay 4000, then pay off the remaining 6000.
func TestApplyToInvoicePartialThenPaid(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	inv := store.addInvoice(1, day(1), 10000, 0)
	ctx := context.Background()

	rem, err := alloc.ApplyToInvoice(ctx, store, 100, inv.ID, 4000)
	require.NoError(t, err)
	require.Zero(t, rem)
	require.Equal(t, int64(4000), store.invoices[inv.ID].AmountPaid)
	require.Equal(t, InvoicePartial, store.invoices[inv.ID].Status)

	rem, err = alloc.ApplyToInvoice(ctx, store, 101, inv.ID, 6000)
	require.NoError(t, err)
	require.Zero(t, rem)
	require.Equal(t, int64(10000), store.invoices[inv.ID].AmountPaid)
	require.Equal(t, InvoicePaid, store.invoices[inv.ID].Status)
}

func TestApplyToInvoiceReturnsRemainder(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	inv := store.addInvoice(1, day(1), 3000, 1000)

	rem, err := alloc.ApplyToInvoice(context.Background(), store, 100, inv.ID, 5000)
	require.NoError(t, err)
	require.Equal(t, int64(3000), rem)
	require.Equal(t, InvoicePaid, store.invoices[inv.ID].Status)
}

func TestApplyToInvoiceRejectsCancelled(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	inv := store.addInvoice(1, day(1), 3000, 0)
	inv.Status = InvoiceCancelled

	_, err := alloc.ApplyToInvoice(context.Background(), store, 100, inv.ID, 1000)
	require.True(t, shared.IsValidation(err))
}

func TestApplyAcrossOutstandingOldestFirst(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	newer := store.addInvoice(1, day(20), 5000, 0)
	older := store.addInvoice(1, day(5), 3000, 0)

	outcome, err := alloc.ApplyAcrossOutstanding(context.Background(), store, 100, 1, 6000)
	require.NoError(t, err)
	require.Len(t, outcome.Applied, 2)
	require.Zero(t, outcome.Remainder)

	require.Equal(t, InvoicePaid, store.invoices[older.ID].Status, "older invoice paid first")
	require.Equal(t, int64(3000), store.invoices[newer.ID].AmountPaid)
	require.Equal(t, InvoicePartial, store.invoices[newer.ID].Status)
}

// No outstanding invoices: the full amount becomes standing credit.
func TestApplyAcrossOutstandingAllCredit(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)

	outcome, err := alloc.ApplyAcrossOutstanding(context.Background(), store, 100, 7, 5000)
	require.NoError(t, err)
	require.Empty(t, outcome.Applied)
	require.Equal(t, int64(5000), outcome.Remainder)
	require.Equal(t, int64(5000), store.credits[7])
	require.Equal(t, []string{CreditReceived}, store.adjustments)
}

func TestApplyAcrossOutstandingOverpayment(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	inv := store.addInvoice(1, day(5), 3000, 0)

	outcome, err := alloc.ApplyAcrossOutstanding(context.Background(), store, 100, 1, 4500)
	require.NoError(t, err)
	require.Equal(t, int64(1500), outcome.Remainder)
	require.Equal(t, InvoicePaid, store.invoices[inv.ID].Status)
	require.Equal(t, int64(1500), store.credits[1])
}

// Apply then reverse returns each touched invoice to its pre-payment state.
func TestReverseAllocationsRestoresInvoices(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	first := store.addInvoice(1, day(1), 2500, 0)
	second := store.addInvoice(1, day(2), 4000, 1000)
	ctx := context.Background()

	_, err := alloc.ApplyAcrossOutstanding(ctx, store, 100, 1, 5500)
	require.NoError(t, err)
	require.Equal(t, InvoicePaid, store.invoices[first.ID].Status)
	require.Equal(t, InvoicePaid, store.invoices[second.ID].Status)

	require.NoError(t, alloc.ReverseAllocations(ctx, store, 100, 1, 5500))
	require.Equal(t, int64(0), store.invoices[first.ID].AmountPaid)
	require.Equal(t, InvoicePending, store.invoices[first.ID].Status)
	require.Equal(t, int64(1000), store.invoices[second.ID].AmountPaid)
	require.Equal(t, InvoicePartial, store.invoices[second.ID].Status)
}

func TestReverseAllocationsPureCreditPayment(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	ctx := context.Background()

	_, err := alloc.ApplyAcrossOutstanding(ctx, store, 100, 7, 5000)
	require.NoError(t, err)
	require.Equal(t, int64(5000), store.credits[7])

	require.NoError(t, alloc.ReverseAllocations(ctx, store, 100, 7, 5000))
	require.Equal(t, int64(0), store.credits[7])
}

func TestReverseAllocationsClampsCredit(t *testing.T) {
	store := newMemoryStore()
	alloc := NewAllocator(nil)
	ctx := context.Background()

	// Credit was partially consumed elsewhere; reversal takes only what is
	// left rather than driving the balance negative.
	_, err := alloc.ApplyAcrossOutstanding(ctx, store, 100, 7, 5000)
	require.NoError(t, err)
	store.credits[7] = 2000

	require.NoError(t, alloc.ReverseAllocations(ctx, store, 100, 7, 5000))
	require.Equal(t, int64(0), store.credits[7])
}
