package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AllocationTarget is a charge viewed through the eyes of the planner: just
// its identity, outstanding balance, and the dates that drive ordering.
type AllocationTarget struct {
	ChargeID    uuid.UUID       // ID of the charge
	Outstanding decimal.Decimal // Amount still unpaid
	DueDate     *time.Time      // Due date for oldest-first ordering
	CreatedAt   time.Time       // Creation time as tie-breaker
}

// PlannedAllocation is a single (charge, amount) pair the planner decided on
type PlannedAllocation struct {
	ChargeID uuid.UUID
	Amount   decimal.Decimal
}

// AllocationPlan is the complete outcome of planning one payment's allocations
type AllocationPlan struct {
	Allocations          []PlannedAllocation // Allocations to create, in order
	TotalAllocated       decimal.Decimal     // Sum of all planned allocations
	RemainingAmount      decimal.Decimal     // Payment amount left unallocated
	FullyAllocated       bool                // True if the whole payment was consumed
	ChargesFullyPaid     []uuid.UUID         // Charges the plan pays in full
	ChargesPartiallyPaid []uuid.UUID         // Charges the plan pays partially
}

// sortTargetsOldestFirst orders targets by due date ascending with nil due
// dates last, breaking ties by creation time then ID so the plan is
// deterministic for identical inputs.
func sortTargetsOldestFirst(targets []AllocationTarget) []AllocationTarget {
	sorted := make([]AllocationTarget, len(targets))
	copy(sorted, targets)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := sorted[i].DueDate, sorted[j].DueDate
		if di != nil && dj != nil {
			if !di.Equal(*dj) {
				return di.Before(*dj)
			}
		} else if di != nil {
			return true
		} else if dj != nil {
			return false
		}
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ChargeID.String() < sorted[j].ChargeID.String()
	})
	return sorted
}

// PlanAutoAllocation distributes a payment amount across outstanding charges
// oldest due date first. Each charge gets min(remaining, outstanding); the
// walk stops when the payment is exhausted. Any amount left after all
// charges are covered stays unallocated; no charge is ever overpaid and no
// synthetic credit is invented.
//
// The function is pure: it never touches storage, so the ordering and
// splitting rules can be tested in isolation.
func PlanAutoAllocation(amount decimal.Decimal, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation amount must be positive")
	}

	plan := &AllocationPlan{
		Allocations:          make([]PlannedAllocation, 0, len(targets)),
		TotalAllocated:       decimal.Zero,
		RemainingAmount:      amount,
		ChargesFullyPaid:     make([]uuid.UUID, 0),
		ChargesPartiallyPaid: make([]uuid.UUID, 0),
	}
	if len(targets) == 0 {
		return plan, nil
	}

	for _, target := range sortTargetsOldestFirst(targets) {
		if plan.RemainingAmount.LessThanOrEqual(decimal.Zero) {
			break
		}
		// Guards against a racing payment shrinking the balance between the
		// ledger query and this walk.
		if target.Outstanding.LessThanOrEqual(decimal.Zero) {
			continue
		}

		allocAmount := decimal.Min(plan.RemainingAmount, target.Outstanding)

		plan.Allocations = append(plan.Allocations, PlannedAllocation{
			ChargeID: target.ChargeID,
			Amount:   allocAmount,
		})
		plan.TotalAllocated = plan.TotalAllocated.Add(allocAmount)
		plan.RemainingAmount = plan.RemainingAmount.Sub(allocAmount)

		if allocAmount.GreaterThanOrEqual(target.Outstanding) {
			plan.ChargesFullyPaid = append(plan.ChargesFullyPaid, target.ChargeID)
		} else {
			plan.ChargesPartiallyPaid = append(plan.ChargesPartiallyPaid, target.ChargeID)
		}
	}

	plan.FullyAllocated = plan.RemainingAmount.IsZero()

	return plan, nil
}

// ExplicitAllocationRequest is a caller-specified (charge, amount) pair
type ExplicitAllocationRequest struct {
	ChargeID uuid.UUID
	Amount   decimal.Decimal
}

// PlanExplicitAllocation validates caller-specified allocations against the
// payment amount and the targeted charges' outstanding balances. Unlike auto
// allocation nothing is capped: the caller stated exact intent, so any
// request that would overdraw the payment or a charge fails outright.
func PlanExplicitAllocation(amount decimal.Decimal, requests []ExplicitAllocationRequest, targets []AllocationTarget) (*AllocationPlan, error) {
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation amount must be positive")
	}
	if len(requests) == 0 {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "Explicit allocations cannot be empty")
	}

	outstanding := make(map[uuid.UUID]decimal.Decimal, len(targets))
	for _, target := range targets {
		outstanding[target.ChargeID] = target.Outstanding
	}

	plan := &AllocationPlan{
		Allocations:          make([]PlannedAllocation, 0, len(requests)),
		TotalAllocated:       decimal.Zero,
		RemainingAmount:      amount,
		ChargesFullyPaid:     make([]uuid.UUID, 0),
		ChargesPartiallyPaid: make([]uuid.UUID, 0),
	}

	for _, req := range requests {
		if req.ChargeID == uuid.Nil {
			return nil, shared.NewDomainError("VALIDATION_ERROR", "Allocation charge ID cannot be empty")
		}
		if req.Amount.LessThanOrEqual(decimal.Zero) {
			return nil, shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Allocation amount for charge %s must be positive", req.ChargeID))
		}

		balance, ok := outstanding[req.ChargeID]
		if !ok {
			return nil, shared.NewDomainError("VALIDATION_ERROR",
				fmt.Sprintf("Charge %s does not belong to the payment's lease", req.ChargeID))
		}
		if req.Amount.GreaterThan(plan.RemainingAmount) {
			return nil, shared.NewDomainError("ALLOCATION_ERROR",
				fmt.Sprintf("Allocations exceed the payment amount by %s", req.Amount.Sub(plan.RemainingAmount)))
		}
		if req.Amount.GreaterThan(balance) {
			return nil, shared.NewDomainError("ALLOCATION_ERROR",
				fmt.Sprintf("Allocation of %s would overpay charge %s with balance %s", req.Amount, req.ChargeID, balance))
		}

		remaining := balance.Sub(req.Amount)
		outstanding[req.ChargeID] = remaining

		plan.Allocations = append(plan.Allocations, PlannedAllocation{
			ChargeID: req.ChargeID,
			Amount:   req.Amount,
		})
		plan.TotalAllocated = plan.TotalAllocated.Add(req.Amount)
		plan.RemainingAmount = plan.RemainingAmount.Sub(req.Amount)

		if remaining.IsZero() {
			plan.ChargesFullyPaid = append(plan.ChargesFullyPaid, req.ChargeID)
		} else {
			plan.ChargesPartiallyPaid = append(plan.ChargesPartiallyPaid, req.ChargeID)
		}
	}

	plan.FullyAllocated = plan.RemainingAmount.IsZero()

	return plan, nil
}
