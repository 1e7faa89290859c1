package handler

import (
	"net/http"

	"almoxarifado-api/internal/middleware"
	"almoxarifado-api/internal/service"
	"almoxarifado-api/pkg/pagination"
	"almoxarifado-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService service.AuditService
}

func NewAuditHandler(auditService service.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

func (h *AuditHandler) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/api/audit", middleware.RequireAuth())
	{
		group.GET("", h.ListAuditEntries)
	}
}

// ListAuditEntries retrieves the global audit trail across all requests
// @Summary      List audit entries
// @Description  Retrieves a paginated view of the append-only audit trail, optionally filtered by action
// @Tags         audit
// @Security     BearerAuth
// @Produce      json
// @Param        action  query     string  false  "Filter by action (SUBMIT, APPROVE, ...)"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Failure      403     {object}  response.Response
// @Router       /api/audit [get]
func (h *AuditHandler) ListAuditEntries(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	entries, total, err := h.auditService.List(c.Request.Context(), actor, c.Query("action"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   total,
		"page":    params.Page,
		"limit":   params.Limit,
	}))
}
