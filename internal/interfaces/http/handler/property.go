package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	leasingapp "github.com/propfolio/backend/internal/application/leasing"
)

// PropertyHandler handles property-related API endpoints
type PropertyHandler struct {
	BaseHandler
	propertyService *leasingapp.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler
func NewPropertyHandler(propertyService *leasingapp.PropertyService) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
	}
}

// Create godoc
// @ID           createProperty
//
//	@Summary		Create a new property
//	@Description	Create a new rental property with its street address
//	@Tags			properties
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string								false	"Org ID (optional for dev)"
//	@Param			request		body		leasingapp.CreatePropertyRequest	true	"Property creation request"
//	@Success		201			{object}	APIResponse[leasingapp.PropertyResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/properties [post]
func (h *PropertyHandler) Create(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	var req leasingapp.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	property, err := h.propertyService.Create(c.Request.Context(), orgID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, property)
}

// AddUnit godoc
// @ID           addPropertyUnit
//
//	@Summary		Add a unit to a property
//	@Description	Register a new rentable unit under an existing property
//	@Tags			properties
//	@Accept			json
//	@Produce		json
//	@Param			X-Org-ID	header		string						false	"Org ID (optional for dev)"
//	@Param			id			path		string						true	"Property ID"	format(uuid)
//	@Param			request		body		leasingapp.AddUnitRequest	true	"Unit creation request"
//	@Success		201			{object}	APIResponse[leasingapp.PropertyResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		409			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/properties/{id}/units [post]
func (h *PropertyHandler) AddUnit(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid property ID format")
		return
	}

	var req leasingapp.AddUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	property, err := h.propertyService.AddUnit(c.Request.Context(), orgID, propertyID, req)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Created(c, property)
}

// GetByID godoc
// @ID           getPropertyById
//
//	@Summary		Get property by ID
//	@Description	Retrieve a property with its units by ID
//	@Tags			properties
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			id			path		string	true	"Property ID"	format(uuid)
//	@Success		200			{object}	APIResponse[leasingapp.PropertyResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		404			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/properties/{id} [get]
func (h *PropertyHandler) GetByID(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
		return
	}

	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid property ID format")
		return
	}

	property, err := h.propertyService.GetByID(c.Request.Context(), orgID, propertyID)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.Success(c, property)
}

// List godoc
// @ID           listProperties
//
//	@Summary		List properties
//	@Description	Retrieve a paginated list of properties
//	@Tags			properties
//	@Produce		json
//	@Param			X-Org-ID	header		string	false	"Org ID (optional for dev)"
//	@Param			page		query		int		false	"Page number"	default(1)
//	@Param			page_size	query		int		false	"Page size"		default(20)	maximum(100)
//	@Success		200			{object}	APIResponse[[]leasingapp.PropertyResponse]
//	@Failure		400			{object}	ErrorResponse
//	@Failure		401			{object}	ErrorResponse
//	@Failure		500			{object}	ErrorResponse
//	@Security		BearerAuth
//	@Router			/leasing/properties [get]
func (h *PropertyHandler) List(c *gin.Context) {
	orgID, err := getOrgID(c)
	if err != nil {
		h.BadRequest(c, "Invalid org ID")
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

	properties, total, err := h.propertyService.List(c.Request.Context(), orgID, page, pageSize)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	h.SuccessWithMeta(c, properties, total, page, pageSize)
}
