package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leasingapp "github.com/propfolio/backend/internal/application/leasing"
)

// TenantHandler handles tenant (renter) related API endpoints
type TenantHandler struct {
	BaseHandler
	tenantService *leasingapp.TenantService
}

// NewTenantHandler creates a new TenantHandler
func NewTenantHandler(tenantService *leasingapp.TenantService) *TenantHandler {
	return &TenantHandler{
		tenantService: tenantService,
	}
}

// Create godoc
// @ID           createTenant
//
//	@Summary		Create a new tenant
//	@Description	Register a new tenant (renter) record for the organization
//	@Tags			tenants
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string							false	"Org ID (optional for dev)"
//	@Param			request		body		leasingapp.CreateTenantRequest	true	"Tenant creation request"
//	@Success		201			{object}	APIResponse[leasingapp.TenantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/tenants [post]
func (h *TenantHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	var req leasingapp.CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	tenant, err := h.tenantService.Create(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, tenant)
}

// GetByID godoc
// @ID           getTenantById
//
//	@Summary		Get tenant by ID
//	@Description	Retrieve a tenant record by its ID
//	@Tags			tenants
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Tenant ID"	format(uuid)
//	@Success		200			{object}	APIResponse[leasingapp.TenantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/tenants/{id} [get]
func (h *TenantHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	tenantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid tenant ID format")
		return
	}

	tenant, err := h.tenantService.GetByID(c.Request.Context(), orgID, tenantID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, tenant)
}

// List godoc
// @ID           listTenants
//
//	@Summary		List tenants
//	@Description	Retrieve a paginated list of tenants with optional name/email search
//	@Tags			tenants
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			search		query		string	false	"Search term (name, email)"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]leasingapp.TenantResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/tenants [get]
func (h *TenantHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	search := c.Query("search")
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if page <= 0 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}

	tenants, total, err := h.tenantService.List(c.Request.Context(), orgID, search, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, tenants, total, page, pageSize)
}
