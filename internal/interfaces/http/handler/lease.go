package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leasingapp "github.com/propfolio/backend/internal/application/leasing"
)

// LeaseHandler handles lease-related API endpoints
type LeaseHandler struct {
	BaseHandler
	leaseService *leasingapp.LeaseService
}

// NewLeaseHandler creates a new LeaseHandler
func NewLeaseHandler(leaseService *leasingapp.LeaseService) *LeaseHandler {
	return &LeaseHandler{
		leaseService: leaseService,
	}
}

// Create godoc
// @ID           createLease
//
//	@Summary		Create a new lease
//	@Description	Create a draft lease binding a unit to a primary tenant and optional co-tenants or guarantors
//	@Tags			leases
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string							false	"Org ID (optional for dev)"
//	@Param			request		body		leasingapp.CreateLeaseRequest	true	"Lease creation request"
//	@Success		201			{object}	APIResponse[leasingapp.LeaseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases [post]
func (h *LeaseHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	var req leasingapp.CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lease, err := h.leaseService.Create(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, lease)
}

// Activate godoc
// @ID           activateLease
//
//	@Summary		Activate a lease
//	@Description	Transition a draft lease to active so charges and payments can be recorded against it
//	@Tags			leases
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"	format(uuid)
//	@Success		200			{object}	APIResponse[leasingapp.LeaseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		422			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id}/activate [post]
func (h *LeaseHandler) Activate(c *gin.Context) {
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

	lease, err := h.leaseService.Activate(c.Request.Context(), orgID, leaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lease)
}

// GetByID godoc
// @ID           getLeaseById
//
//	@Summary		Get lease by ID
//	@Description	Retrieve a lease with its parties by ID
//	@Tags			leases
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Lease ID"	format(uuid)
//	@Success		200			{object}	APIResponse[leasingapp.LeaseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases/{id} [get]
func (h *LeaseHandler) GetByID(c *gin.Context) {
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

	lease, err := h.leaseService.GetByID(c.Request.Context(), orgID, leaseID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, lease)
}

// List godoc
// @ID           listLeases
//
//	@Summary		List leases
//	@Description	Retrieve a paginated list of leases with optional filtering
//	@Tags			leases
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			property_id	query		string	false	"Property ID"	format(uuid)
//	@Param			tenant_id	query		string	false	"Tenant ID"		format(uuid)
//	@Param			status		query		string	false	"Lease status"	Enums(DRAFT, ACTIVE, ENDED, TERMINATED)
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]leasingapp.LeaseResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/leases [get]
func (h *LeaseHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	var filter leasingapp.LeaseListFilter
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

	leases, total, err := h.leaseService.List(c.Request.Context(), orgID, filter)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, leases, total, filter.Page, filter.PageSize)
}
