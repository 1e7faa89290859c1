package repository

import (
	"context"

	"almoxarifado-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StockRepository interface {
	Create(ctx context.Context, item *model.StockItem) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	FindBySKU(ctx context.Context, sku string) (*model.StockItem, error)
	// FindByIDForUpdate locks the row for the duration of the transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockItem, error)
	List(ctx context.Context, search string, page, limit int) ([]model.StockItem, int64, error)
	UpdateStock(ctx context.Context, id uuid.UUID, stockAfter int) error
	CreateMovement(ctx context.Context, movement *model.StockMovement) error
	ListMovements(ctx context.Context, stockItemID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error)
}

type stockRepository struct {
	db *gorm.DB
}

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) Create(ctx context.Context, item *model.StockItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *stockRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	var item model.StockItem
	if err := GetDB(ctx, r.db).First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepository) FindBySKU(ctx context.Context, sku string) (*model.StockItem, error) {
	var item model.StockItem
	if err := GetDB(ctx, r.db).First(&item, "sku = ?", sku).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.StockItem, error) {
	db := GetDB(ctx, r.db)
	// Row locking is postgres-only; sqlite serializes writers on its own
	if db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var item model.StockItem
	if err := db.First(&item, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *stockRepository) List(ctx context.Context, search string, page, limit int) ([]model.StockItem, int64, error) {
	var items []model.StockItem
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.StockItem{})
	if search != "" {
		query = query.Where("name LIKE ? OR sku LIKE ?", "%"+search+"%", "%"+search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Order("name ASC").Offset(offset).Limit(limit)
	if search != "" {
		fetch = fetch.Where("name LIKE ? OR sku LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if err := fetch.Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *stockRepository) UpdateStock(ctx context.Context, id uuid.UUID, stockAfter int) error {
	return GetDB(ctx, r.db).Model(&model.StockItem{}).
		Where("id = ?", id).
		Update("current_stock", stockAfter).Error
}

func (r *stockRepository) CreateMovement(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockRepository) ListMovements(ctx context.Context, stockItemID *uuid.UUID, page, limit int) ([]model.StockMovement, int64, error) {
	var movements []model.StockMovement
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.StockMovement{})
	if stockItemID != nil {
		query = query.Where("stock_item_id = ?", *stockItemID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("StockItem").Order("created_at DESC").Offset(offset).Limit(limit)
	if stockItemID != nil {
		fetch = fetch.Where("stock_item_id = ?", *stockItemID)
	}
	if err := fetch.Find(&movements).Error; err != nil {
		return nil, 0, err
	}

	return movements, total, nil
}
