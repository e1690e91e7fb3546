package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ledgerapp "github.com/propfolio/backend/internal/application/ledger"
)

// PaymentHandler handles payment-related API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *ledgerapp.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *ledgerapp.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
	}
}

// Record godoc
// @ID           recordPayment
//
//	@Summary		Record a payment on a lease
//	@Description	Record a tenant payment and allocate it across outstanding charges. Without an explicit allocations list the payment is applied oldest due first.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string							false	"Org ID (optional for dev)"
//	@Param			id			path		string							true	"Lease ID"	format(uuid)
//	@Param			request		body		ledgerapp.RecordPaymentRequest	true	"Payment record request"
//	@Success		201			{object}	APIResponse[ledgerapp.RecordPaymentResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/payments [post]
func (h *PaymentHandler) Record(c *gin.Context) {
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

	var req ledgerapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	// Attribute the action to the authenticated user when available
	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		req.ActorID = &userID
	}

	result, err := h.paymentService.Record(c.Request.Context(), orgID, leaseID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, result)
}

// GetByID godoc
// @ID           getPaymentById
//
//	@Summary		Get payment by ID
//	@Description	Retrieve a payment with its allocations by ID
//	@Tags			payments
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Payment ID"	format(uuid)
//	@Success		200			{object}	APIResponse[ledgerapp.RecordPaymentResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/payments/{id} [get]
func (h *PaymentHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	payment, err := h.paymentService.GetByID(c.Request.Context(), orgID, paymentID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, payment)
}

// ListByLease godoc
// @ID           listLeasePayments
//
//	@Summary		List payments on a lease
//	@Description	Retrieve a paginated list of payments for a lease with optional filtering
//	@Tags			payments
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"			format(uuid)
//	@Param			status		query		string	false	"Payment status"	Enums(PENDING, COMPLETED, FAILED, REFUNDED, CANCELLED)
//	@Param			method		query		string	false	"Payment method"	Enums(ACH, CARD, CASH, CHECK, MONEY_ORDER, OTHER)
//	@Param			page		query		int		false	"Page number"		default(1)
//	@Param			page_size	query		int		false	"Page size"			default(20)	maximum(100)
//	@Param			order_by	query		string	false	"Order by field"	default(received_at)
//	@Param			order_dir	query		string	false	"Order direction"	Enums(asc, desc)	default(desc)
//	@Success		200			{object}	APIResponse[[]ledgerapp.PaymentResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/payments [get]
func (h *PaymentHandler) ListByLease(c *gin.Context) {
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

	var filter ledgerapp.PaymentListFilter
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

	payments, total, err := h.paymentService.ListByLease(c.Request.Context(), orgID, leaseID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, payments, total, filter.Page, filter.PageSize)
}

// UpdateStatus godoc
// @ID           updatePaymentStatus
//
//	@Summary		Update payment status
//	@Description	Move a completed payment into FAILED, REFUNDED, or CANCELLED. Reversal unapplies all of the payment's allocations and reprojects affected charges.
//	@Tags			payments
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string								false	"Org ID (optional for dev)"
//	@Param			id			path		string								true	"Payment ID"	format(uuid)
//	@Param			request		body		ledgerapp.UpdatePaymentStatusRequest	true	"Status update request"
//	@Success		200			{object}	APIResponse[ledgerapp.ReversePaymentResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/payments/{id}/status [patch]
func (h *PaymentHandler) UpdateStatus(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid payment ID format")
		return
	}

	var req ledgerapp.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	if userID, err := getUserID(c); err == nil && userID != uuid.Nil {
		req.ActorID = &userID
	}

	result, err := h.paymentService.UpdateStatus(c.Request.Context(), orgID, paymentID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, result)
}
