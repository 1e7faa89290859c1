package handler

import (
	"net/http"

	"almoxarifado-api/internal/middleware"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/service"
	"almoxarifado-api/internal/workflow"
	"almoxarifado-api/pkg/pagination"
	"almoxarifado-api/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type RequestHandler struct {
	requestService service.RequestService
}

// NewRequestHandler sets up the routing dependencies for request endpoints
func NewRequestHandler(requestService service.RequestService) *RequestHandler {
	return &RequestHandler{requestService: requestService}
}

// TransitionBody is the optional body accepted by every transition endpoint.
// Quantity maps are keyed by item ID.
type TransitionBody struct {
	Note                string         `json:"note"`
	Reason              string         `json:"reason"`
	ApprovedQuantities  map[string]int `json:"approvedQuantities"`
	DeliveredQuantities map[string]int `json:"deliveredQuantities"`
}

// RegisterRoutes binds the endpoints to the gin Engine or RouterGroup
func (h *RequestHandler) RegisterRoutes(router *gin.RouterGroup) {
	requests := router.Group("/api/requests", middleware.RequireAuth())
	{
		requests.POST("", h.CreateRequest)
		requests.GET("", h.ListRequests)
		requests.GET("/:id", h.GetRequest)
		requests.PUT("/:id", h.UpdateRequest)
		requests.GET("/:id/history", h.GetHistory)

		requests.POST("/:id/submit", h.transition(model.ActionSubmit))
		requests.POST("/:id/cancel", h.transition(model.ActionCancel))
		requests.POST("/:id/approve", h.transition(model.ActionApprove))
		requests.POST("/:id/reject", h.transition(model.ActionReject))
		requests.POST("/:id/stock-accept", h.transition(model.ActionStockAccept))
		requests.POST("/:id/stock-reject", h.transition(model.ActionStockReject))
		requests.POST("/:id/deliver", h.transition(model.ActionDeliver))
	}
}

// CreateRequest handles POST /api/requests
// @Summary      Create a resource request
// @Description  Creates a new request in DRAFT with at least one item. The requester is taken from the token.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.CreateRequestDTO  true  "Create Request Payload"
// @Success      201      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/requests [post]
func (h *RequestHandler) CreateRequest(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	var req service.CreateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, result))
}

// ListRequests handles GET /api/requests with status/department/mine filters
// @Summary      List requests
// @Description  Retrieves a paginated list of requests, optionally filtered by status, department, or ownership
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        status      query     string  false  "Filter by status"
// @Param        department  query     string  false  "Filter by department"
// @Param        mine        query     bool    false  "Only the caller's own requests"
// @Param        page        query     int     false  "Page number (default 1)"
// @Param        limit       query     int     false  "Items per page (default 20)"
// @Success      200         {object}  response.Response{data=object}
// @Failure      403         {object}  response.Response
// @Router       /api/requests [get]
func (h *RequestHandler) ListRequests(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	filter := service.ListRequestsFilter{
		Status:     c.Query("status"),
		Department: c.Query("department"),
		Mine:       c.Query("mine") == "true",
		Page:       params.Page,
		Limit:      params.Limit,
	}

	requests, total, err := h.requestService.List(c.Request.Context(), actor, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"requests": requests,
		"total":    total,
		"page":     params.Page,
		"limit":    params.Limit,
	}))
}

// GetRequest handles GET /api/requests/:id
// @Summary      Get request by ID
// @Description  Fetch a single request with its items and full history
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=service.RequestResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id} [get]
func (h *RequestHandler) GetRequest(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	result, err := h.requestService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// UpdateRequest handles PUT /api/requests/:id (drafts only, owner only)
// @Summary      Update a draft request
// @Description  Replaces title, description, priority and items. Only the requester may edit, and only while the request is a draft.
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Request ID"
// @Param        payload  body      service.UpdateRequestDTO  true  "Update Request Payload"
// @Success      200      {object}  response.Response{data=service.RequestResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/requests/{id} [put]
func (h *RequestHandler) UpdateRequest(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	var req service.UpdateRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	result, err := h.requestService.UpdateDraft(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
}

// GetHistory handles GET /api/requests/:id/history
// @Summary      Get request history
// @Description  Returns the append-only audit trail of a request, oldest first
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Request ID"
// @Success      200  {object}  response.Response{data=[]service.AuditEntryResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/requests/{id}/history [get]
func (h *RequestHandler) GetHistory(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	history, err := h.requestService.History(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, history))
}

// transition builds the handler for a single lifecycle action. The body is
// optional for actions without payload requirements (submit, cancel).
func (h *RequestHandler) transition(action string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := middleware.CurrentActor(c)
		if err != nil {
			c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
			return
		}

		var body TransitionBody
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
				return
			}
		}

		payload, err := body.toPayload()
		if err != nil {
			respondError(c, err)
			return
		}

		result, err := h.requestService.Transition(c.Request.Context(), actor, c.Param("id"), action, payload)
		if err != nil {
			respondError(c, err)
			return
		}

		c.JSON(http.StatusOK, response.Success(http.StatusOK, result))
	}
}

func (b TransitionBody) toPayload() (workflow.Payload, error) {
	payload := workflow.Payload{
		Note:   b.Note,
		Reason: b.Reason,
	}

	if len(b.ApprovedQuantities) > 0 {
		payload.ApprovedQuantities = make(map[uuid.UUID]int, len(b.ApprovedQuantities))
		for key, qty := range b.ApprovedQuantities {
			id, err := uuid.Parse(key)
			if err != nil {
				return payload, workflow.Validation("", "invalid item id %q in approvedQuantities", key)
			}
			payload.ApprovedQuantities[id] = qty
		}
	}

	if len(b.DeliveredQuantities) > 0 {
		payload.DeliveredQuantities = make(map[uuid.UUID]int, len(b.DeliveredQuantities))
		for key, qty := range b.DeliveredQuantities {
			id, err := uuid.Parse(key)
			if err != nil {
				return payload, workflow.Validation("", "invalid item id %q in deliveredQuantities", key)
			}
			payload.DeliveredQuantities[id] = qty
		}
	}

	return payload, nil
}
