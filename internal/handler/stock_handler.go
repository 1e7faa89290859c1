package handler

import (
	"net/http"

	"almoxarifado-api/internal/middleware"
	"almoxarifado-api/internal/service"
	"almoxarifado-api/pkg/pagination"
	"almoxarifado-api/pkg/response"

	"github.com/gin-gonic/gin"
)

type StockHandler struct {
	stockService service.StockService
}

func NewStockHandler(stockService service.StockService) *StockHandler {
	return &StockHandler{stockService: stockService}
}

func (h *StockHandler) RegisterRoutes(router *gin.RouterGroup) {
	stock := router.Group("/api/stock", middleware.RequireAuth())
	{
		stock.GET("", h.ListStockItems)
		stock.POST("", h.RegisterStockItem)
		stock.GET("/:id", h.GetStockItem)
		stock.GET("/movements", h.ListMovements)
	}
}

// RegisterStockItem handles POST /api/stock
// @Summary      Register a stock item
// @Description  Registers a new catalog item in the warehouse. SKU must be unique.
// @Tags         stock
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        payload  body      service.RegisterStockItemDTO  true  "Register Stock Item Payload"
// @Success      201      {object}  response.Response{data=model.StockItem}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Router       /api/stock [post]
func (h *StockHandler) RegisterStockItem(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	var req service.RegisterStockItemDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	item, err := h.stockService.Register(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, item))
}

// ListStockItems handles GET /api/stock with an optional name/SKU search
// @Summary      List stock items
// @Description  Retrieves a paginated list of catalog items, optionally filtered by a search term
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        search  query     string  false  "Search by name or SKU"
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Items per page (default 20)"
// @Success      200     {object}  response.Response{data=object}
// @Router       /api/stock [get]
func (h *StockHandler) ListStockItems(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	items, total, err := h.stockService.List(c.Request.Context(), actor, c.Query("search"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"items": items,
		"total": total,
		"page":  params.Page,
		"limit": params.Limit,
	}))
}

// GetStockItem handles GET /api/stock/:id
// @Summary      Get stock item
// @Description  Fetch a single catalog item by its UUID
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Stock Item ID"
// @Success      200  {object}  response.Response{data=model.StockItem}
// @Failure      404  {object}  response.Response
// @Router       /api/stock/{id} [get]
func (h *StockHandler) GetStockItem(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	item, err := h.stockService.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, item))
}

// ListMovements handles GET /api/stock/movements
// @Summary      List stock movements
// @Description  Retrieves the movement ledger, optionally filtered by stock item. Requires stock processing capability.
// @Tags         stock
// @Produce      json
// @Security     BearerAuth
// @Param        stock_item_id  query     string  false  "Filter by stock item ID"
// @Param        page           query     int     false  "Page number (default 1)"
// @Param        limit          query     int     false  "Items per page (default 20)"
// @Success      200            {object}  response.Response{data=object}
// @Failure      403            {object}  response.Response
// @Router       /api/stock/movements [get]
func (h *StockHandler) ListMovements(c *gin.Context) {
	actor, err := middleware.CurrentActor(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, response.Error(http.StatusUnauthorized, err.Error()))
		return
	}

	params := pagination.Parse(c)
	movements, total, err := h.stockService.Movements(c.Request.Context(), actor, c.Query("stock_item_id"), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"movements": movements,
		"total":     total,
		"page":      params.Page,
		"limit":     params.Limit,
	}))
}
