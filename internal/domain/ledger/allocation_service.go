package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationService is the domain service that distributes payments across a
// lease's charges and keeps charge statuses consistent with their allocation
// sums. Every operation runs against a LedgerTx supplied by the caller, so
// reads, allocation writes and status reprojections all commit or roll back
// together.
type AllocationService struct{}

// NewAllocationService creates a new allocation service
func NewAllocationService() *AllocationService {
	return &AllocationService{}
}

// ChargeChange describes one charge touched by an allocation or reversal
type ChargeChange struct {
	Charge         *Charge
	PreviousStatus ChargeStatus
	NewStatus      ChargeStatus
	TotalAllocated decimal.Decimal
}

// AllocationOutcome is the full result of allocating one payment
type AllocationOutcome struct {
	Payment         *Payment
	Allocations     []PaymentAllocation
	ChargeChanges   []ChargeChange
	TotalAllocated  decimal.Decimal
	RemainingAmount decimal.Decimal
	FullyAllocated  bool
}

// Allocate distributes a COMPLETED payment across its lease's charges. When
// explicit requests are given each one is honored exactly or the whole
// operation fails; otherwise the payment walks the outstanding charges oldest
// due date first. Created allocations and the resulting charge status changes
// are persisted through tx before returning, so the ledger is never observable
// in a half-applied state.
func (s *AllocationService) Allocate(
	ctx context.Context,
	tx LedgerTx,
	payment *Payment,
	explicit []ExplicitAllocationRequest,
) (*AllocationOutcome, error) {
	if payment == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment cannot be nil")
	}
	if !payment.IsCompleted() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Cannot allocate payment in %s status", payment.Status))
	}
	if payment.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment amount must be positive")
	}

	if len(explicit) > 0 {
		return s.allocateExplicit(ctx, tx, payment, explicit)
	}
	return s.allocateAuto(ctx, tx, payment)
}

func (s *AllocationService) allocateAuto(ctx context.Context, tx LedgerTx, payment *Payment) (*AllocationOutcome, error) {
	charges, err := tx.OutstandingChargesForUpdate(ctx, payment.OrgID, payment.LeaseID)
	if err != nil {
		return nil, err
	}

	targets, totals, chargeMap, err := s.buildTargets(ctx, tx, charges, true)
	if err != nil {
		return nil, err
	}

	plan, err := PlanAutoAllocation(payment.Amount, targets)
	if err != nil {
		return nil, err
	}

	return s.applyPlan(ctx, tx, payment, plan, totals, chargeMap)
}

func (s *AllocationService) allocateExplicit(ctx context.Context, tx LedgerTx, payment *Payment, requests []ExplicitAllocationRequest) (*AllocationOutcome, error) {
	chargeIDs := make([]uuid.UUID, 0, len(requests))
	seen := make(map[uuid.UUID]bool, len(requests))
	for _, req := range requests {
		if req.ChargeID == uuid.Nil {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation charge ID cannot be empty")
		}
		if !seen[req.ChargeID] {
			seen[req.ChargeID] = true
			chargeIDs = append(chargeIDs, req.ChargeID)
		}
	}

	charges, err := tx.ChargesForUpdate(ctx, payment.OrgID, chargeIDs)
	if err != nil {
		return nil, err
	}
	if len(charges) != len(chargeIDs) {
		return nil, shared.NewDomainError("NOT_FOUND", "One or more charges do not exist")
	}
	for i := range charges {
		if charges[i].LeaseID != payment.LeaseID {
			return nil, shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Charge %s does not belong to the payment's lease", charges[i].ID))
		}
		if charges[i].Status.IsTerminal() {
			return nil, shared.NewDomainError("ALLOCATION_ERROR",
				fmt.Sprintf("Cannot allocate to charge %s in %s status", charges[i].ID, charges[i].Status))
		}
	}

	targets, totals, chargeMap, err := s.buildTargets(ctx, tx, charges, false)
	if err != nil {
		return nil, err
	}

	plan, err := PlanExplicitAllocation(payment.Amount, requests, targets)
	if err != nil {
		return nil, err
	}

	return s.applyPlan(ctx, tx, payment, plan, totals, chargeMap)
}

// buildTargets loads the allocated totals for the given charges and converts
// them to planner targets. When skipUnpayable is set, charges that cannot
// receive payments are silently dropped instead of failing validation.
func (s *AllocationService) buildTargets(
	ctx context.Context,
	tx LedgerTx,
	charges []Charge,
	skipUnpayable bool,
) ([]AllocationTarget, map[uuid.UUID]decimal.Decimal, map[uuid.UUID]*Charge, error) {
	ids := make([]uuid.UUID, len(charges))
	for i := range charges {
		ids[i] = charges[i].ID
	}

	totals, err := tx.AllocatedTotals(ctx, ids)
	if err != nil {
		return nil, nil, nil, err
	}

	targets := make([]AllocationTarget, 0, len(charges))
	chargeMap := make(map[uuid.UUID]*Charge, len(charges))
	for i := range charges {
		c := &charges[i]
		chargeMap[c.ID] = c

		if skipUnpayable && !c.Status.CanReceivePayment() {
			continue
		}

		outstanding, err := c.RemainingBalance(totals[c.ID])
		if err != nil {
			return nil, nil, nil, err
		}
		targets = append(targets, AllocationTarget{
			ChargeID:    c.ID,
			Outstanding: outstanding,
			DueDate:     c.DueDate,
			CreatedAt:   c.CreatedAt,
		})
	}

	return targets, totals, chargeMap, nil
}

// applyPlan persists the planned allocations, reprojects every touched
// charge, and emits the payment's allocation event.
func (s *AllocationService) applyPlan(
	ctx context.Context,
	tx LedgerTx,
	payment *Payment,
	plan *AllocationPlan,
	totals map[uuid.UUID]decimal.Decimal,
	chargeMap map[uuid.UUID]*Charge,
) (*AllocationOutcome, error) {
	allocations := make([]PaymentAllocation, 0, len(plan.Allocations))
	perCharge := make(map[uuid.UUID]decimal.Decimal, len(plan.Allocations))
	for _, planned := range plan.Allocations {
		alloc, err := NewPaymentAllocation(payment.OrgID, payment.ID, planned.ChargeID, planned.Amount)
		if err != nil {
			return nil, err
		}
		allocations = append(allocations, *alloc)
		perCharge[planned.ChargeID] = perCharge[planned.ChargeID].Add(planned.Amount)
	}

	if len(allocations) > 0 {
		if err := tx.CreateAllocations(ctx, allocations); err != nil {
			return nil, err
		}
	}

	changes := make([]ChargeChange, 0, len(perCharge))
	for chargeID, added := range perCharge {
		charge := chargeMap[chargeID]
		newTotal := totals[chargeID].Add(added)

		previous := charge.Status
		changed, err := charge.Reproject(newTotal)
		if err != nil {
			return nil, err
		}
		if changed {
			if err := tx.SaveCharge(ctx, charge); err != nil {
				return nil, err
			}
		}
		changes = append(changes, ChargeChange{
			Charge:         charge,
			PreviousStatus: previous,
			NewStatus:      charge.Status,
			TotalAllocated: newTotal,
		})
	}

	payment.AddDomainEvent(NewPaymentAllocatedEvent(payment, plan))

	return &AllocationOutcome{
		Payment:         payment,
		Allocations:     allocations,
		ChargeChanges:   changes,
		TotalAllocated:  plan.TotalAllocated,
		RemainingAmount: plan.RemainingAmount,
		FullyAllocated:  plan.FullyAllocated,
	}, nil
}

// ReversalOutcome is the full result of reversing one payment
type ReversalOutcome struct {
	Payment            *Payment
	RemovedAllocations []PaymentAllocation
	ChargeChanges      []ChargeChange
	AmountUnapplied    decimal.Decimal
	SkippedTerminal    []uuid.UUID // Charges left untouched because they were WAIVED or VOID
}

// Reverse moves a payment into a reversal status, deletes its allocation rows
// and reprojects every charge those rows funded, all within tx. Charges that
// were waived or voided since the allocation keep their terminal status; they
// are reported in SkippedTerminal so the caller can log them.
func (s *AllocationService) Reverse(
	ctx context.Context,
	tx LedgerTx,
	payment *Payment,
	newStatus PaymentStatus,
	reason string,
) (*ReversalOutcome, error) {
	if payment == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Payment cannot be nil")
	}

	if err := payment.Reverse(newStatus, reason); err != nil {
		return nil, err
	}

	removed, err := tx.DeleteAllocationsByPayment(ctx, payment.ID)
	if err != nil {
		return nil, err
	}

	unapplied := decimal.Zero
	chargeIDs := make([]uuid.UUID, 0, len(removed))
	seen := make(map[uuid.UUID]bool, len(removed))
	for _, alloc := range removed {
		unapplied = unapplied.Add(alloc.Amount)
		if !seen[alloc.ChargeID] {
			seen[alloc.ChargeID] = true
			chargeIDs = append(chargeIDs, alloc.ChargeID)
		}
	}

	changes := make([]ChargeChange, 0, len(chargeIDs))
	skipped := make([]uuid.UUID, 0)

	if len(chargeIDs) > 0 {
		charges, err := tx.ChargesForUpdate(ctx, payment.OrgID, chargeIDs)
		if err != nil {
			return nil, err
		}
		totals, err := tx.AllocatedTotals(ctx, chargeIDs)
		if err != nil {
			return nil, err
		}

		for i := range charges {
			charge := &charges[i]
			if charge.Status.IsTerminal() {
				skipped = append(skipped, charge.ID)
				continue
			}

			previous := charge.Status
			changed, err := charge.Reproject(totals[charge.ID])
			if err != nil {
				return nil, err
			}
			if changed {
				if err := tx.SaveCharge(ctx, charge); err != nil {
					return nil, err
				}
			}
			changes = append(changes, ChargeChange{
				Charge:         charge,
				PreviousStatus: previous,
				NewStatus:      charge.Status,
				TotalAllocated: totals[charge.ID],
			})
		}
	}

	if err := tx.SavePayment(ctx, payment); err != nil {
		return nil, err
	}

	return &ReversalOutcome{
		Payment:            payment,
		RemovedAllocations: removed,
		ChargeChanges:      changes,
		AmountUnapplied:    unapplied,
		SkippedTerminal:    skipped,
	}, nil
}
