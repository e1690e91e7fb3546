package ledger

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLedgerTx is an in-memory LedgerTx for exercising the allocation
// service without a database.
type memoryLedgerTx struct {
	charges     map[uuid.UUID]*Charge
	payments    map[uuid.UUID]*Payment
	allocations []PaymentAllocation
}

func newMemoryLedgerTx() *memoryLedgerTx {
	return &memoryLedgerTx{
		charges:  make(map[uuid.UUID]*Charge),
		payments: make(map[uuid.UUID]*Payment),
	}
}

func (m *memoryLedgerTx) addCharge(c *Charge) {
	m.charges[c.ID] = c
}

func (m *memoryLedgerTx) ChargeForUpdate(_ context.Context, orgID, chargeID uuid.UUID) (*Charge, error) {
	c, ok := m.charges[chargeID]
	if !ok || c.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (m *memoryLedgerTx) OutstandingChargesForUpdate(_ context.Context, orgID, leaseID uuid.UUID) ([]Charge, error) {
	out := make([]Charge, 0)
	for _, c := range m.charges {
		if c.OrgID == orgID && c.LeaseID == leaseID && c.Status.CanReceivePayment() {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].DueDate, out[j].DueDate
		if di != nil && dj != nil && !di.Equal(*dj) {
			return di.Before(*dj)
		}
		if di != nil && dj == nil {
			return true
		}
		if di == nil && dj != nil {
			return false
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (m *memoryLedgerTx) ChargesForUpdate(_ context.Context, orgID uuid.UUID, chargeIDs []uuid.UUID) ([]Charge, error) {
	out := make([]Charge, 0, len(chargeIDs))
	for _, id := range chargeIDs {
		if c, ok := m.charges[id]; ok && c.OrgID == orgID {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *memoryLedgerTx) SaveCharge(_ context.Context, charge *Charge) error {
	saved := *charge
	m.charges[charge.ID] = &saved
	return nil
}

func (m *memoryLedgerTx) PaymentForUpdate(_ context.Context, orgID, paymentID uuid.UUID) (*Payment, error) {
	p, ok := m.payments[paymentID]
	if !ok || p.OrgID != orgID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

func (m *memoryLedgerTx) CreatePayment(_ context.Context, payment *Payment) error {
	saved := *payment
	m.payments[payment.ID] = &saved
	return nil
}

func (m *memoryLedgerTx) SavePayment(_ context.Context, payment *Payment) error {
	saved := *payment
	m.payments[payment.ID] = &saved
	return nil
}

func (m *memoryLedgerTx) CreateAllocations(_ context.Context, allocations []PaymentAllocation) error {
	m.allocations = append(m.allocations, allocations...)
	return nil
}

func (m *memoryLedgerTx) DeleteAllocationsByPayment(_ context.Context, paymentID uuid.UUID) ([]PaymentAllocation, error) {
	kept := m.allocations[:0]
	removed := make([]PaymentAllocation, 0)
	for _, a := range m.allocations {
		if a.PaymentID == paymentID {
			removed = append(removed, a)
		} else {
			kept = append(kept, a)
		}
	}
	m.allocations = kept
	return removed, nil
}

func (m *memoryLedgerTx) AllocatedTotal(_ context.Context, chargeID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, a := range m.allocations {
		if a.ChargeID != chargeID {
			continue
		}
		if p, ok := m.payments[a.PaymentID]; ok && p.Status.CountsTowardCharges() {
			total = total.Add(a.Amount)
		}
	}
	return total, nil
}

func (m *memoryLedgerTx) AllocatedTotals(ctx context.Context, chargeIDs []uuid.UUID) (map[uuid.UUID]decimal.Decimal, error) {
	totals := make(map[uuid.UUID]decimal.Decimal, len(chargeIDs))
	for _, id := range chargeIDs {
		total, err := m.AllocatedTotal(ctx, id)
		if err != nil {
			return nil, err
		}
		totals[id] = total
	}
	return totals, nil
}

type ledgerFixture struct {
	orgID    uuid.UUID
	leaseID  uuid.UUID
	tenantID uuid.UUID
	tx       *memoryLedgerTx
	svc      *AllocationService
}

func newLedgerFixture() *ledgerFixture {
	return &ledgerFixture{
		orgID:    uuid.New(),
		leaseID:  uuid.New(),
		tenantID: uuid.New(),
		tx:       newMemoryLedgerTx(),
		svc:      NewAllocationService(),
	}
}

func (f *ledgerFixture) charge(t *testing.T, amount float64, dueDate time.Time) *Charge {
	t.Helper()
	c, err := NewCharge(f.orgID, f.leaseID, f.tenantID, ChargeTypeRent, "Rent",
		valueobject.NewMoneyUSDFromFloat(amount), &dueDate)
	require.NoError(t, err)
	f.tx.addCharge(c)
	return c
}

func (f *ledgerFixture) payment(t *testing.T, amount float64) *Payment {
	t.Helper()
	p, err := NewPayment(f.orgID, f.leaseID, f.tenantID,
		valueobject.NewMoneyUSDFromFloat(amount), PaymentMethodACH, time.Now(), "")
	require.NoError(t, err)
	require.NoError(t, f.tx.CreatePayment(context.Background(), p))
	return p
}

func TestAllocationServiceAutoAllocate(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	t.Run("oldest charge is satisfied first", func(t *testing.T) {
		f := newLedgerFixture()
		janCharge := f.charge(t, 500, jan)
		febCharge := f.charge(t, 500, feb)
		p := f.payment(t, 700)

		outcome, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.NoError(t, err)

		require.Len(t, outcome.Allocations, 2)
		assert.Equal(t, janCharge.ID, outcome.Allocations[0].ChargeID)
		assert.True(t, outcome.Allocations[0].Amount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, febCharge.ID, outcome.Allocations[1].ChargeID)
		assert.True(t, outcome.Allocations[1].Amount.Equal(decimal.NewFromInt(200)))

		assert.Equal(t, ChargeStatusPaid, f.tx.charges[janCharge.ID].Status)
		assert.Equal(t, ChargeStatusPartial, f.tx.charges[febCharge.ID].Status)
		assert.True(t, outcome.RemainingAmount.IsZero())
	})

	t.Run("exact coverage pays the charge in full", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)
		p := f.payment(t, 500)

		outcome, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.NoError(t, err)

		require.Len(t, outcome.Allocations, 1)
		assert.True(t, outcome.Allocations[0].Amount.Equal(decimal.NewFromInt(500)))
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)
	})

	t.Run("overpayment stays unallocated", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)
		p := f.payment(t, 1000)

		outcome, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.NoError(t, err)

		require.Len(t, outcome.Allocations, 1)
		assert.True(t, outcome.TotalAllocated.Equal(decimal.NewFromInt(500)))
		assert.True(t, outcome.RemainingAmount.Equal(decimal.NewFromInt(500)))
		assert.False(t, outcome.FullyAllocated)
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)
		assert.Len(t, f.tx.allocations, 1)
	})

	t.Run("no outstanding charges leaves the whole payment unallocated", func(t *testing.T) {
		f := newLedgerFixture()
		p := f.payment(t, 300)

		outcome, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.NoError(t, err)
		assert.Empty(t, outcome.Allocations)
		assert.True(t, outcome.RemainingAmount.Equal(decimal.NewFromInt(300)))
	})

	t.Run("second payment tops up a partially paid charge", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)

		p1 := f.payment(t, 300)
		_, err := f.svc.Allocate(context.Background(), f.tx, p1, nil)
		require.NoError(t, err)
		assert.Equal(t, ChargeStatusPartial, f.tx.charges[c.ID].Status)

		p2 := f.payment(t, 300)
		outcome, err := f.svc.Allocate(context.Background(), f.tx, p2, nil)
		require.NoError(t, err)

		// Only the $200 balance is taken; $100 stays unallocated.
		require.Len(t, outcome.Allocations, 1)
		assert.True(t, outcome.Allocations[0].Amount.Equal(decimal.NewFromInt(200)))
		assert.True(t, outcome.RemainingAmount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)
	})

	t.Run("rejects a payment that is not COMPLETED", func(t *testing.T) {
		f := newLedgerFixture()
		f.charge(t, 500, jan)
		p := f.payment(t, 500)
		require.NoError(t, p.Reverse(PaymentStatusCancelled, "keyed in error"))

		_, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_STATE", domainErr.Code)
	})
}

func TestAllocationServiceExplicitAllocate(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("honors caller-specified split", func(t *testing.T) {
		f := newLedgerFixture()
		c1 := f.charge(t, 500, jan)
		c2 := f.charge(t, 300, jan.AddDate(0, 1, 0))
		p := f.payment(t, 400)

		outcome, err := f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: c2.ID, Amount: decimal.NewFromInt(300)},
			{ChargeID: c1.ID, Amount: decimal.NewFromInt(100)},
		})
		require.NoError(t, err)

		require.Len(t, outcome.Allocations, 2)
		assert.Equal(t, c2.ID, outcome.Allocations[0].ChargeID)
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c2.ID].Status)
		assert.Equal(t, ChargeStatusPartial, f.tx.charges[c1.ID].Status)
	})

	t.Run("rejects a charge from another lease with no writes", func(t *testing.T) {
		f := newLedgerFixture()
		foreign, err := NewCharge(f.orgID, uuid.New(), f.tenantID, ChargeTypeRent, "Rent",
			valueobject.NewMoneyUSDFromFloat(500), &jan)
		require.NoError(t, err)
		f.tx.addCharge(foreign)
		p := f.payment(t, 500)

		_, err = f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: foreign.ID, Amount: decimal.NewFromInt(500)},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
		assert.Empty(t, f.tx.allocations)
	})

	t.Run("rejects an unknown charge", func(t *testing.T) {
		f := newLedgerFixture()
		p := f.payment(t, 500)

		_, err := f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: uuid.New(), Amount: decimal.NewFromInt(500)},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "NOT_FOUND", domainErr.Code)
	})

	t.Run("rejects overdrawing the payment", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 900, jan)
		p := f.payment(t, 500)

		_, err := f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: c.ID, Amount: decimal.NewFromInt(600)},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALLOCATION_ERROR", domainErr.Code)
		assert.Empty(t, f.tx.allocations)
	})

	t.Run("rejects overpaying a charge", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 200, jan)
		p := f.payment(t, 500)

		_, err := f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: c.ID, Amount: decimal.NewFromInt(300)},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALLOCATION_ERROR", domainErr.Code)
	})

	t.Run("rejects allocating to a waived charge", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)
		require.NoError(t, f.tx.charges[c.ID].Waive("forgiven"))
		p := f.payment(t, 500)

		_, err := f.svc.Allocate(context.Background(), f.tx, p, []ExplicitAllocationRequest{
			{ChargeID: c.ID, Amount: decimal.NewFromInt(500)},
		})
		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "ALLOCATION_ERROR", domainErr.Code)
	})
}

func TestAllocationServiceReverse(t *testing.T) {
	jan := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("reversal round-trip restores DUE and is reproducible", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)

		p1 := f.payment(t, 500)
		first, err := f.svc.Allocate(context.Background(), f.tx, p1, nil)
		require.NoError(t, err)
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)

		outcome, err := f.svc.Reverse(context.Background(), f.tx, p1, PaymentStatusRefunded, "refund issued")
		require.NoError(t, err)

		assert.Len(t, outcome.RemovedAllocations, 1)
		assert.True(t, outcome.AmountUnapplied.Equal(decimal.NewFromInt(500)))
		assert.Empty(t, f.tx.allocations)
		assert.Equal(t, ChargeStatusDue, f.tx.charges[c.ID].Status)
		assert.Equal(t, PaymentStatusRefunded, f.tx.payments[p1.ID].Status)

		// A fresh identical payment reproduces the original allocation.
		p2 := f.payment(t, 500)
		second, err := f.svc.Allocate(context.Background(), f.tx, p2, nil)
		require.NoError(t, err)
		require.Len(t, second.Allocations, len(first.Allocations))
		assert.Equal(t, first.Allocations[0].ChargeID, second.Allocations[0].ChargeID)
		assert.True(t, first.Allocations[0].Amount.Equal(second.Allocations[0].Amount))
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)
	})

	t.Run("partial reversal with two payments", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)

		p1 := f.payment(t, 300)
		_, err := f.svc.Allocate(context.Background(), f.tx, p1, nil)
		require.NoError(t, err)
		assert.Equal(t, ChargeStatusPartial, f.tx.charges[c.ID].Status)

		p2 := f.payment(t, 300)
		second, err := f.svc.Allocate(context.Background(), f.tx, p2, nil)
		require.NoError(t, err)
		// min() rule: the second payment only takes the $200 balance.
		assert.True(t, second.TotalAllocated.Equal(decimal.NewFromInt(200)))
		assert.True(t, second.RemainingAmount.Equal(decimal.NewFromInt(100)))
		assert.Equal(t, ChargeStatusPaid, f.tx.charges[c.ID].Status)

		outcome, err := f.svc.Reverse(context.Background(), f.tx, p1, PaymentStatusFailed, "nsf")
		require.NoError(t, err)

		// Only the second payment's $200 remains applied.
		assert.True(t, outcome.AmountUnapplied.Equal(decimal.NewFromInt(300)))
		assert.Equal(t, ChargeStatusPartial, f.tx.charges[c.ID].Status)
		require.Len(t, outcome.ChargeChanges, 1)
		assert.True(t, outcome.ChargeChanges[0].TotalAllocated.Equal(decimal.NewFromInt(200)))
	})

	t.Run("reversing a payment with no allocations only flips its status", func(t *testing.T) {
		f := newLedgerFixture()
		p := f.payment(t, 300)

		outcome, err := f.svc.Reverse(context.Background(), f.tx, p, PaymentStatusCancelled, "duplicate entry")
		require.NoError(t, err)
		assert.Empty(t, outcome.RemovedAllocations)
		assert.True(t, outcome.AmountUnapplied.IsZero())
		assert.Equal(t, PaymentStatusCancelled, f.tx.payments[p.ID].Status)
	})

	t.Run("waived charge keeps its terminal status on reversal", func(t *testing.T) {
		f := newLedgerFixture()
		c := f.charge(t, 500, jan)
		p := f.payment(t, 200)
		_, err := f.svc.Allocate(context.Background(), f.tx, p, nil)
		require.NoError(t, err)

		require.NoError(t, f.tx.charges[c.ID].Waive("settled"))

		outcome, err := f.svc.Reverse(context.Background(), f.tx, p, PaymentStatusRefunded, "refund issued")
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{c.ID}, outcome.SkippedTerminal)
		assert.Equal(t, ChargeStatusWaived, f.tx.charges[c.ID].Status)
	})

	t.Run("status consistency holds across an allocation and reversal storm", func(t *testing.T) {
		f := newLedgerFixture()
		charges := []*Charge{
			f.charge(t, 400, jan),
			f.charge(t, 250, jan.AddDate(0, 1, 0)),
			f.charge(t, 600, jan.AddDate(0, 2, 0)),
		}

		p1 := f.payment(t, 500)
		_, err := f.svc.Allocate(context.Background(), f.tx, p1, nil)
		require.NoError(t, err)
		p2 := f.payment(t, 450)
		_, err = f.svc.Allocate(context.Background(), f.tx, p2, nil)
		require.NoError(t, err)
		_, err = f.svc.Reverse(context.Background(), f.tx, p1, PaymentStatusRefunded, "chargeback")
		require.NoError(t, err)

		for _, c := range charges {
			stored := f.tx.charges[c.ID]
			total, err := f.tx.AllocatedTotal(context.Background(), c.ID)
			require.NoError(t, err)
			assert.True(t, total.LessThanOrEqual(stored.Amount), "charge must never be overpaid")

			expected := projectStatus(stored.Status, stored.Amount, total)
			assert.Equal(t, expected, stored.Status)
		}
	})
}
