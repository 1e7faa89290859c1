package handler

import (
	"net/http"

	"almoxarifado-api/internal/middleware"
	"almoxarifado-api/internal/service"
	"almoxarifado-api/pkg/pagination"
	"almoxarifado-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type QueueHandler struct {
	queueService service.QueueService
}

func NewQueueHandler(queueService service.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

func (h *QueueHandler) RegisterRoutes(router *gin.RouterGroup) {
	queues := router.Group("/api/queues", middleware.RequireAuth())
	{
		queues.GET("/pending-approval", h.PendingApproval)
		queues.GET("/stock", h.Stock)
		queues.GET("/counts", h.Counts)
	}
}

// PendingApproval handles GET /api/queues/pending-approval
// @Summary      Approval queue
// @Description  Lists requests awaiting a decision, excluding the caller's own. Requires approval capability.
// @Tags         queues
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/queues/pending-approval [get]
func (h *QueueHandler) PendingApproval(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	requests, total, err := h.queueService.PendingApproval(c.Request.Context(), actor, params.Page, params.Limit)
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

// Stock handles GET /api/queues/stock
// @Summary      Stock queue
// @Description  Lists approved and in-processing requests for warehouse actors. Requires stock processing capability.
// @Tags         queues
// @Produce      json
// @Security     BearerAuth
// @Param        page   query     int  false  "Page number (default 1)"
// @Param        limit  query     int  false  "Items per page (default 20)"
// @Success      200    {object}  response.Response{data=object}
// @Failure      403    {object}  response.Response
// @Router       /api/queues/stock [get]
func (h *QueueHandler) Stock(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	requests, total, err := h.queueService.Stock(c.Request.Context(), actor, params.Page, params.Limit)
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

// Counts handles GET /api/queues/counts for dashboard badges
// @Summary      Queue counts
// @Description  Returns the size of each queue the caller may see. Queues outside the caller's capabilities report zero.
// @Tags         queues
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  response.Response{data=service.QueueCounts}
// @Router       /api/queues/counts [get]
func (h *QueueHandler) Counts(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	counts, err := h.queueService.Counts(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, counts))
}
