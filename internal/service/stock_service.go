package service

import (
	"context"
	"fmt"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/repository"
	"almoxarifado-api/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type RegisterStockItemDTO struct {
	SKU          string `json:"sku" binding:"required"`
	Name         string `json:"name" binding:"required"`
	Unit         string `json:"unit"`
	InitialStock int    `json:"initial_stock" binding:"gte=0"`
	UnitValue    string `json:"unit_value"` // decimal string
}

type StockMovementResponse struct {
	ID              string `json:"id"`
	StockItemID     string `json:"stock_item_id"`
	StockItemName   string `json:"stock_item_name"`
	RequestID       *string `json:"request_id"`
	MovementType    string `json:"movement_type"`
	QuantityChanged int    `json:"quantity_changed"`
	StockAfter      int    `json:"stock_after"`
	CreatedAt       string `json:"created_at"`
}

// --- Interface ---

type StockService interface {
	Register(ctx context.Context, actor authz.Actor, req RegisterStockItemDTO) (*model.StockItem, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*model.StockItem, error)
	List(ctx context.Context, actor authz.Actor, search string, page, limit int) ([]model.StockItem, int64, error)
	Movements(ctx context.Context, actor authz.Actor, stockItemID string, page, limit int) ([]StockMovementResponse, int64, error)
}

type stockService struct {
	stock repository.StockRepository
}

func NewStockService(stock repository.StockRepository) StockService {
	return &stockService{stock: stock}
}

// --- Implementation ---

func (s *stockService) Register(ctx context.Context, actor authz.Actor, req RegisterStockItemDTO) (*model.StockItem, error) {
	if !actor.Capabilities.CanRegisterStock {
		return nil, fmt.Errorf("%w: role %s cannot register stock", authz.ErrUnauthorized, actor.Role)
	}

	if _, err := s.stock.FindBySKU(ctx, req.SKU); err == nil {
		return nil, workflow.Validation("", "sku %q already registered", req.SKU)
	}

	unitValue := decimal.Zero
	if req.UnitValue != "" {
		parsed, err := decimal.NewFromString(req.UnitValue)
		if err != nil {
			return nil, workflow.Validation("", "invalid unit value %q", req.UnitValue)
		}
		unitValue = parsed
	}

	item := &model.StockItem{
		SKU:          req.SKU,
		Name:         req.Name,
		Unit:         req.Unit,
		CurrentStock: req.InitialStock,
		UnitValue:    unitValue,
	}
	if err := s.stock.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to register stock item: %w", err)
	}
	return item, nil
}

func (s *stockService) Get(ctx context.Context, actor authz.Actor, id string) (*model.StockItem, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, err
	}

	itemID, err := uuid.Parse(id)
	if err != nil {
		return nil, workflow.Validation("", "invalid stock item id %q", id)
	}

	item, err := s.stock.FindByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("%w: stock item %s", workflow.ErrNotFound, id)
	}
	return item, nil
}

func (s *stockService) List(ctx context.Context, actor authz.Actor, search string, page, limit int) ([]model.StockItem, int64, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, 0, err
	}
	return s.stock.List(ctx, search, page, limit)
}

func (s *stockService) Movements(ctx context.Context, actor authz.Actor, stockItemID string, page, limit int) ([]StockMovementResponse, int64, error) {
	if !actor.Capabilities.CanProcessStock {
		return nil, 0, fmt.Errorf("%w: role %s cannot view stock movements",
			authz.ErrUnauthorized, actor.Role)
	}

	var filterID *uuid.UUID
	if stockItemID != "" {
		parsed, err := uuid.Parse(stockItemID)
		if err != nil {
			return nil, 0, workflow.Validation("", "invalid stock item id %q", stockItemID)
		}
		filterID = &parsed
	}

	movements, total, err := s.stock.ListMovements(ctx, filterID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock movements: %w", err)
	}

	result := make([]StockMovementResponse, 0, len(movements))
	for _, m := range movements {
		resp := StockMovementResponse{
			ID:              m.ID.String(),
			StockItemID:     m.StockItemID.String(),
			MovementType:    m.MovementType,
			QuantityChanged: m.QuantityChanged,
			StockAfter:      m.StockAfter,
			CreatedAt:       m.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
		if m.StockItem != nil {
			resp.StockItemName = m.StockItem.Name
		}
		if m.RequestID != nil {
			id := m.RequestID.String()
			resp.RequestID = &id
		}
		result = append(result, resp)
	}

	return result, total, nil
}
