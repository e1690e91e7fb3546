package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/propfolio/backend/internal/domain/ledger"
	"github.com/propfolio/backend/internal/domain/leasing"
	"github.com/propfolio/backend/internal/domain/shared"
	"github.com/propfolio/backend/internal/domain/shared/valueobject"
	"github.com/propfolio/backend/internal/infrastructure/telemetry"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ChargeService handles the charge ledger: creating manual charges, waiving
// and voiding them, and the lease-level query surface.
type ChargeService struct {
	chargeRepo ledger.ChargeRepository
	leaseRepo  leasing.LeaseRepository
	auditRepo  ledger.AuditRepository
	metrics    *telemetry.LedgerMetrics
	logger     *zap.Logger
}

// NewChargeService creates a new ChargeService
func NewChargeService(
	chargeRepo ledger.ChargeRepository,
	leaseRepo leasing.LeaseRepository,
	auditRepo ledger.AuditRepository,
	logger *zap.Logger,
) *ChargeService {
	return &ChargeService{
		chargeRepo: chargeRepo,
		leaseRepo:  leaseRepo,
		auditRepo:  auditRepo,
		logger:     logger,
	}
}

// SetLedgerMetrics sets the business metrics collector
func (s *ChargeService) SetLedgerMetrics(lm *telemetry.LedgerMetrics) {
	s.metrics = lm
}

// Create creates a manual charge against a lease. New charges start DUE.
func (s *ChargeService) Create(ctx context.Context, orgID, leaseID uuid.UUID, req CreateChargeRequest) (*ChargeResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "charge", "create")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrLeaseID, leaseID.String(),
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

	charge, err := ledger.NewCharge(orgID, leaseID, req.TenantID,
		ledger.ChargeType(req.Type), req.Description,
		valueobject.NewMoneyUSD(req.Amount), req.DueDate)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.chargeRepo.Save(ctx, charge); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordChargeCreated(ctx, orgID, req.Type)
	}

	s.appendAudit(ctx, orgID, leaseID, req.ActorID, ledger.AuditActionChargeCreated,
		fmt.Sprintf("%s charge of %s created", req.Type, charge.Amount.StringFixed(2)),
		map[string]any{
			"charge_id": charge.ID,
			"type":      req.Type,
			"amount":    charge.Amount,
			"due_date":  req.DueDate,
		})

	response := ToChargeResponse(charge, decimal.Zero)
	return &response, nil
}

// Waive forgives a charge. Waived charges keep their applied payments but
// stop counting toward the outstanding balance.
func (s *ChargeService) Waive(ctx context.Context, orgID, chargeID uuid.UUID, req WaiveChargeRequest) (*ChargeResponse, error) {
	charge, err := s.chargeRepo.FindByIDForOrg(ctx, orgID, chargeID)
	if err != nil {
		return nil, err
	}

	if err := charge.Waive(req.Reason); err != nil {
		return nil, err
	}
	if err := s.chargeRepo.SaveWithLock(ctx, charge); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, orgID, charge.LeaseID, req.ActorID, ledger.AuditActionChargeWaived,
		fmt.Sprintf("Charge of %s waived", charge.Amount.StringFixed(2)),
		map[string]any{"charge_id": chargeID, "reason": req.Reason})

	paid, err := s.chargeRepo.AllocatedTotal(ctx, chargeID)
	if err != nil {
		return nil, err
	}
	response := ToChargeResponse(charge, paid)
	return &response, nil
}

// Void cancels a charge that was entered in error. A charge with applied
// payments cannot be voided; reverse or reallocate the payments first.
func (s *ChargeService) Void(ctx context.Context, orgID, chargeID uuid.UUID, req VoidChargeRequest) (*ChargeResponse, error) {
	charge, err := s.chargeRepo.FindByIDForOrg(ctx, orgID, chargeID)
	if err != nil {
		return nil, err
	}
	paid, err := s.chargeRepo.AllocatedTotal(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	if err := charge.Void(req.Reason, paid); err != nil {
		return nil, err
	}
	if err := s.chargeRepo.SaveWithLock(ctx, charge); err != nil {
		return nil, err
	}

	s.appendAudit(ctx, orgID, charge.LeaseID, req.ActorID, ledger.AuditActionChargeVoided,
		fmt.Sprintf("Charge of %s voided", charge.Amount.StringFixed(2)),
		map[string]any{"charge_id": chargeID, "reason": req.Reason})

	response := ToChargeResponse(charge, paid)
	return &response, nil
}

// GetByID retrieves a charge with its paid total
func (s *ChargeService) GetByID(ctx context.Context, orgID, chargeID uuid.UUID) (*ChargeResponse, error) {
	charge, err := s.chargeRepo.FindByIDForOrg(ctx, orgID, chargeID)
	if err != nil {
		return nil, err
	}
	paid, err := s.chargeRepo.AllocatedTotal(ctx, chargeID)
	if err != nil {
		return nil, err
	}

	response := ToChargeResponse(charge, paid)
	return &response, nil
}

// ListByLease retrieves a lease's charges with filtering and pagination.
// Outstanding=true narrows to DUE and PARTIAL charges in oldest-first order.
func (s *ChargeService) ListByLease(ctx context.Context, orgID, leaseID uuid.UUID, filter ChargeListFilter) ([]ChargeResponse, int64, error) {
	if filter.Outstanding {
		charges, err := s.chargeRepo.FindOutstandingByLease(ctx, orgID, leaseID)
		if err != nil {
			return nil, 0, err
		}
		out, err := s.withPaidTotals(ctx, charges)
		if err != nil {
			return nil, 0, err
		}
		return out, int64(len(out)), nil
	}

	domainFilter := ledger.ChargeFilter{Filter: shared.DefaultFilter()}
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
		status := ledger.ChargeStatus(filter.Status)
		domainFilter.Status = &status
	}
	if filter.Type != "" {
		chargeType := ledger.ChargeType(filter.Type)
		domainFilter.Type = &chargeType
	}
	if filter.Overdue {
		overdue := true
		domainFilter.Overdue = &overdue
	}

	charges, err := s.chargeRepo.FindByLease(ctx, orgID, leaseID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	domainFilter.LeaseID = &leaseID
	count, err := s.chargeRepo.CountForOrg(ctx, orgID, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	out, err := s.withPaidTotals(ctx, charges)
	if err != nil {
		return nil, 0, err
	}
	return out, count, nil
}

// LedgerSummary builds the per-lease financial rollup: totals plus every
// charge with its balance.
func (s *ChargeService) LedgerSummary(ctx context.Context, orgID, leaseID uuid.UUID) (*LedgerSummaryResponse, error) {
	if _, err := s.leaseRepo.FindByIDForOrg(ctx, orgID, leaseID); err != nil {
		return nil, err
	}

	filter := ledger.ChargeFilter{Filter: shared.DefaultFilter()}
	filter.PageSize = 0 // No pagination for the rollup
	charges, err := s.chargeRepo.FindByLease(ctx, orgID, leaseID, filter)
	if err != nil {
		return nil, err
	}

	responses, err := s.withPaidTotals(ctx, charges)
	if err != nil {
		return nil, err
	}

	summary := &LedgerSummaryResponse{
		LeaseID:          leaseID,
		TotalBilled:      decimal.Zero,
		TotalPaid:        decimal.Zero,
		TotalOutstanding: decimal.Zero,
		Charges:          responses,
	}
	for _, r := range responses {
		summary.TotalPaid = summary.TotalPaid.Add(r.AmountPaid)
		// Waived and voided charges drop out of the billed total.
		if r.Status == ledger.ChargeStatusWaived.String() || r.Status == ledger.ChargeStatusVoid.String() {
			continue
		}
		summary.TotalBilled = summary.TotalBilled.Add(r.Amount)
		summary.TotalOutstanding = summary.TotalOutstanding.Add(r.Balance)
	}

	return summary, nil
}

// AuditTrail lists a lease's audit entries, newest first
func (s *ChargeService) AuditTrail(ctx context.Context, orgID, leaseID uuid.UUID, page, pageSize int) ([]AuditEntryResponse, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}

	entries, err := s.auditRepo.FindByLease(ctx, orgID, leaseID, filter)
	if err != nil {
		return nil, err
	}
	return ToAuditEntryResponses(entries), nil
}

func (s *ChargeService) withPaidTotals(ctx context.Context, charges []ledger.Charge) ([]ChargeResponse, error) {
	out := make([]ChargeResponse, 0, len(charges))
	for i := range charges {
		paid, err := s.chargeRepo.AllocatedTotal(ctx, charges[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, ToChargeResponse(&charges[i], paid))
	}
	return out, nil
}

func (s *ChargeService) appendAudit(ctx context.Context, orgID, leaseID uuid.UUID, actorID *uuid.UUID, action ledger.AuditAction, summary string, detail map[string]any) {
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
