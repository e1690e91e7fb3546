package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// PaymentService records tenant payments, runs them through the allocator and
// handles status changes including the reversal path.
type PaymentService struct {
	uow         ledger.LedgerUnitOfWork
	allocator   *ledger.AllocationService
	leaseRepo   leasing.LeaseRepository
	paymentRepo ledger.PaymentRepository
	allocRepo   ledger.AllocationRepository
	auditRepo   ledger.AuditRepository
	metrics     *telemetry.LedgerMetrics
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	uow ledger.LedgerUnitOfWork,
	allocator *ledger.AllocationService,
	leaseRepo leasing.LeaseRepository,
	paymentRepo ledger.PaymentRepository,
	allocRepo ledger.AllocationRepository,
	auditRepo ledger.AuditRepository,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		uow:         uow,
		allocator:   allocator,
		leaseRepo:   leaseRepo,
		paymentRepo: paymentRepo,
		allocRepo:   allocRepo,
		auditRepo:   auditRepo,
		logger:      logger,
	}
}

// SetLedgerMetrics sets the business metrics collector
func (s *PaymentService) SetLedgerMetrics(lm *telemetry.LedgerMetrics) {
	s.metrics = lm
}

// Record creates a COMPLETED payment against a lease and allocates it in the
// same transaction. With no explicit allocations the payment is applied to
// outstanding charges oldest due date first.
func (s *PaymentService) Record(ctx context.Context, orgID, leaseID uuid.UUID, req RecordPaymentRequest) (*RecordPaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "record")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLeaseID, leaseID.String(),
		telemetry.SpanAttrTenantID, req.TenantID.String(),
		telemetry.SpanAttrAmount, req.Amount.String(),
	)

	lease, err := s.leaseRepo.FindByIDForOrg(ctx, orgID, leaseID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !lease.HasParty(req.TenantID) {
		err := shared.NewDomainError("VALIDATION_ERROR", "Tenant is not a party to this lease")
		telemetry.RecordError(span, err)
		return nil, err
	}

	method := ledger.PaymentMethod(req.Method)
	receivedAt := time.Time{}
	if req.ReceivedAt != nil {
		receivedAt = *req.ReceivedAt
	}

	explicit := make([]ledger.ExplicitAllocationRequest, 0, len(req.Allocations))
	for _, a := range req.Allocations {
		explicit = append(explicit, ledger.ExplicitAllocationRequest{
			ChargeID: a.ChargeID,
			Amount:   a.Amount,
		})
	}

	var outcome *ledger.AllocationOutcome
	err = s.withConflictRetry(ctx, func() error {
		// The payment aggregate is rebuilt on retry so a failed attempt
		// leaves no stale version counter behind.
		payment, err := ledger.NewPayment(orgID, leaseID, req.TenantID,
			valueobject.NewMoneyUSD(req.Amount), method, receivedAt, req.Memo)
		if err != nil {
			return err
		}

		return s.uow.Execute(ctx, func(tx ledger.LedgerTx) error {
			if err := tx.CreatePayment(ctx, payment); err != nil {
				return err
			}
			outcome, err = s.allocator.Allocate(ctx, tx, payment, explicit)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordPayment(ctx, orgID, req.Method, req.Amount)
	}

	if !outcome.FullyAllocated {
		s.logger.Info("payment partially allocated",
			zap.String("payment_id", outcome.Payment.ID.String()),
			zap.String("unallocated", outcome.RemainingAmount.String()),
		)
	}
	telemetry.AddEvent(span, "payment_allocated",
		"payment_id", outcome.Payment.ID.String(),
		"total_allocated", outcome.TotalAllocated.String(),
	)

	s.appendAudit(ctx, orgID, leaseID, req.ActorID, ledger.AuditActionPaymentRecorded,
		fmt.Sprintf("Payment of %s via %s recorded", outcome.Payment.Amount.StringFixed(2), req.Method),
		map[string]any{
			"payment_id":      outcome.Payment.ID,
			"amount":          outcome.Payment.Amount,
			"method":          req.Method,
			"total_allocated": outcome.TotalAllocated,
			"charge_ids":      chargeIDsOf(outcome.Allocations),
		})

	return &RecordPaymentResponse{
		Payment:         ToPaymentResponse(outcome.Payment),
		Allocations:     ToAllocationResponses(outcome.Allocations),
		ChargeChanges:   ToChargeStatusChanges(outcome.ChargeChanges),
		TotalAllocated:  outcome.TotalAllocated,
		UnallocatedLeft: outcome.RemainingAmount,
	}, nil
}

// UpdateStatus changes a payment's status. The only transitions offered are
// the reversal statuses, and those always run the full reversal path: the
// payment's allocations are deleted and every affected charge is reprojected.
func (s *PaymentService) UpdateStatus(ctx context.Context, orgID, paymentID uuid.UUID, req UpdatePaymentStatusRequest) (*ReversePaymentResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "payment", "update_status")
	defer span.End()
	telemetry.SetAttributes(span, telemetry.SpanAttrPaymentID, paymentID.String())

	newStatus := ledger.PaymentStatus(req.Status)
	if !newStatus.IsReversal() {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Payment status can only be changed to a reversal status, got %s", req.Status))
	}

	var outcome *ledger.ReversalOutcome
	err := s.withConflictRetry(ctx, func() error {
		return s.uow.Execute(ctx, func(tx ledger.LedgerTx) error {
			payment, err := tx.PaymentForUpdate(ctx, orgID, paymentID)
			if err != nil {
				return err
			}
			outcome, err = s.allocator.Reverse(ctx, tx, payment, newStatus, req.Reason)
			return err
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordReversal(ctx, orgID, req.Status)
	}

	for _, chargeID := range outcome.SkippedTerminal {
		s.logger.Warn("reversal left terminal charge untouched",
			zap.String("payment_id", paymentID.String()),
			zap.String("charge_id", chargeID.String()),
		)
	}

	s.appendAudit(ctx, orgID, outcome.Payment.LeaseID, req.ActorID, ledger.AuditActionPaymentReversed,
		fmt.Sprintf("Payment of %s reversed to %s", outcome.Payment.Amount.StringFixed(2), req.Status),
		map[string]any{
			"payment_id":       paymentID,
			"status":           req.Status,
			"reason":           req.Reason,
			"amount_unapplied": outcome.AmountUnapplied,
			"charge_ids":       chargeIDsOf(outcome.RemovedAllocations),
		})

	return &ReversePaymentResponse{
		Payment:         ToPaymentResponse(outcome.Payment),
		AmountUnapplied: outcome.AmountUnapplied,
		ChargeChanges:   ToChargeStatusChanges(outcome.ChargeChanges),
	}, nil
}

// GetByID retrieves a payment with its allocations
func (s *PaymentService) GetByID(ctx context.Context, orgID, paymentID uuid.UUID) (*RecordPaymentResponse, error) {
	payment, err := s.paymentRepo.FindByIDForOrg(ctx, orgID, paymentID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.allocRepo.FindByPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	total := totalOf(allocations)
	return &RecordPaymentResponse{
		Payment:         ToPaymentResponse(payment),
		Allocations:     ToAllocationResponses(allocations),
		ChargeChanges:   []ChargeStatusChange{},
		TotalAllocated:  total,
		UnallocatedLeft: payment.Amount.Sub(total),
	}, nil
}

// ListByLease retrieves a lease's payments with filtering and pagination
func (s *PaymentService) ListByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter PaymentListFilter) ([]PaymentResponse, int64, error) {
	domainFilter := ledger.PaymentFilter{Filter: shared.DefaultFilter()}
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	if filter.Status != "" {
		status := ledger.PaymentStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Method != "" {
		method := ledger.PaymentMethod(filter.Method)
		domainFilter.Method = &method
	}

	payments, err := s.paymentRepo.FindByLease(ctx, orgID, leaseID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	domainFilter.LeaseID = &leaseID
	count, err := s.paymentRepo.CountForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out := make([]PaymentResponse, 0, len(payments))
	for i := range payments {
		out = append(out, ToPaymentResponse(&payments[i]))
	}
	return out, count, nil
}

// withConflictRetry runs fn and retries it once if it lost an optimistic
// locking race. Two concurrent payments against the same lease serialize on
// the row locks; the version conflict only surfaces when a non-transactional
// writer slipped in between.
func (s *PaymentService) withConflictRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "CONCURRENCY_CONFLICT" {
		s.logger.Warn("retrying after concurrency conflict", zap.Error(err))
		return fn()
	}
	return err
}

// appendAudit writes an audit entry outside the ledger transaction. A failed
// audit write is logged, not surfaced: the financial operation itself already
// committed.
func (s *PaymentService) appendAudit(ctx context.Context, orgID, leaseID uuid.UUID, actorID *uuid.UUID, action ledger.AuditAction, summary string, detail map[string]any) {
	payload, err := json.Marshal(detail)
	if err != nil {
		s.logger.Error("failed to marshal audit detail", zap.Error(err))
		payload = []byte("{}")
	}
	entry, err := ledger.NewAuditEntry(orgID, leaseID, actorID, action, summary, string(payload))
	if err != nil {
		s.logger.Error("failed to build audit entry", zap.Error(err))
		return
	}
	if err := s.auditRepo.Save(ctx, entry); err != nil {
		s.logger.Error("failed to save audit entry",
			zap.String("lease_id", leaseID.String()),
			zap.Error(err),
		)
	}
}

func chargeIDsOf(allocations []ledger.PaymentAllocation) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(allocations))
	seen := make(map[uuid.UUID]bool, len(allocations))
	for _, a := range allocations {
		if !seen[a.ChargeID] {
			seen[a.ChargeID] = true
			ids = append(ids, a.ChargeID)
		}
	}
	return ids
}

func totalOf(allocations []ledger.PaymentAllocation) decimal.Decimal {
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	return total
}
