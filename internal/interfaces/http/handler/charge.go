package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/propfolio/backend/internal/application/ledger"
)

// ChargeHandler handles charge-related API endpoints
type ChargeHandler struct {
	BaseHandler
	chargeService *ledgerapp.ChargeService
}

// NewChargeHandler creates a new ChargeHandler
func NewChargeHandler(chargeService *ledgerapp.ChargeService) *ChargeHandler {
	return &ChargeHandler{
		chargeService: chargeService,
	}
}

// Create godoc
// @ID           createCharge
//
//	@Summary		Create a charge on a lease
//	@Description	Bill a tenant by adding a charge to the lease ledger
//	@Tags			charges
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string							false	"Org ID (optional for dev)"
//	@Param			id			path		string							true	"Lease ID"	format(uuid)
//	@Param			request		body		ledgerapp.CreateChargeRequest	true	"Charge creation request"
//	@Success		201			{object}	APIResponse[ledgerapp.ChargeResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/charges [post]
func (h *ChargeHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	var req ledgerapp.CreateChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Attribute the action to the authenticated user when available
	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		req.ActorID = &userID
	}

	charge, err := h.chargeService.Create(c.Request.Context(), orgID, leaseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, charge)
}

// GetByID godoc
// @ID           getChargeById
//
//	@Summary		Get charge by ID
//	@Description	Retrieve a charge with its paid amount and remaining balance
//	@Tags			charges
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Charge ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.ChargeResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/charges/{id} [get]
func (h *ChargeHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	chargeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID format")
		return
	}

	charge, err := h.chargeService.GetByID(c.Request.Context(), orgID, chargeID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

// ListByLease godoc
// @ID           listLeaseCharges
//
//	@Summary		List charges on a lease
//	@Description	Retrieve a paginated list of charges for a lease with optional filtering
//	@Tags			charges
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"		format(uuid)
//	@Param			status		query		string	false	"Charge status"	Enums(PENDING, DUE, PARTIAL, PAID, WAIVED, VOID)
//	@Param			type		query		string	false	"Charge type"	Enums(RENT, LATE_FEE, SECURITY_DEPOSIT, UTILITY, MAINTENANCE, OTHER)
//	@Param			outstanding	query		boolean	false	"Only charges with an unpaid balance"
//	@Param			overdue		query		boolean	false	"Only charges past their due date"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]ledgerapp.ChargeResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/charges [get]
func (h *ChargeHandler) ListByLease(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	var filter ledgerapp.ChargeListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Set defaults
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	charges, total, err := h.chargeService.ListByLease(c.Request.Context(), orgID, leaseID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, charges, total, filter.Page, filter.PageSize)
}

// Waive godoc
// @ID           waiveCharge
//
//	@Summary		Waive a charge
//	@Description	Forgive an unpaid charge; any allocated payments remain applied
//	@Tags			charges
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string						false	"Org ID (optional for dev)"
//	@Param			id			path		string						true	"Charge ID"	format(uuid)
//	@Param			request		body		ledgerapp.WaiveChargeRequest	true	"Waive request"
//	@Success		200			{object}	APIResponse[ledgerapp.ChargeResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/charges/{id}/waive [post]
func (h *ChargeHandler) Waive(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	chargeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID format")
		return
	}

	var req ledgerapp.WaiveChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		req.ActorID = &userID
	}

	charge, err := h.chargeService.Waive(c.Request.Context(), orgID, chargeID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

// Void godoc
// @ID           voidCharge
//
//	@Summary		Void a charge
//	@Description	Cancel a charge that was entered in error; charges with applied payments cannot be voided
//	@Tags			charges
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string						false	"Org ID (optional for dev)"
//	@Param			id			path		string						true	"Charge ID"	format(uuid)
//	@Param			request		body		ledgerapp.VoidChargeRequest	true	"Void request"
//	@Success		200			{object}	APIResponse[ledgerapp.ChargeResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/charges/{id}/void [post]
func (h *ChargeHandler) Void(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	chargeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid charge ID format")
		return
	}

	var req ledgerapp.VoidChargeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		req.ActorID = &userID
	}

	charge, err := h.chargeService.Void(c.Request.Context(), orgID, chargeID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, charge)
}

// LedgerSummary godoc
// @ID           getLeaseLedger
//
//	@Summary		Get the lease ledger summary
//	@Description	Retrieve the per-lease financial rollup: total billed, total paid, outstanding balance, and all charges
//	@Tags			charges
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.LedgerSummaryResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/ledger/leases/{id}/ledger [get]
func (h *ChargeHandler) LedgerSummary(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	summary, err := h.chargeService.LedgerSummary(c.Request.Context(), orgID, leaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, summary)
}

// AuditTrail godoc
// @ID           getLeaseAuditTrail
//
//	@Summary		Get the lease audit trail
//	@Description	Retrieve ledger audit entries for a lease ordered newest first
//	@Tags			charges
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"		format(uuid)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]ledgerapp.AuditEntryResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/audit [get]
func (h *ChargeHandler) AuditTrail(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	leaseID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid lease ID format")
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	entries, err := h.chargeService.AuditTrail(c.Request.Context(), orgID, leaseID, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, entries)
}
