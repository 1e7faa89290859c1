package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// StockItem represents a catalog entry in the warehouse. Request items may
// reference one via catalogRef; deliveries then move its stock level.
type StockItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	SKU          string          `gorm:"type:varchar(100);uniqueIndex;not null" json:"sku"`
	Name         string          `gorm:"type:varchar(255);not null" json:"name"`
	Unit         string          `gorm:"type:varchar(30)" json:"unit"` // un, cx, kg...
	CurrentStock int             `gorm:"type:int;not null;default:0" json:"current_stock"`
	UnitValue    decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unit_value"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `gorm:"index" json:"-"`
}

func (s *StockItem) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// MovementType constants
const (
	MovementIn  = "IN"  // purchase delivery entering the warehouse
	MovementOut = "OUT" // withdrawal delivery leaving the warehouse
)

// StockMovement records every stock change strictly, with the resulting level
type StockMovement struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	StockItemID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"stock_item_id"`
	StockItem       *StockItem `gorm:"foreignKey:StockItemID" json:"stock_item,omitempty"`
	RequestID       *uuid.UUID `gorm:"type:uuid;index" json:"request_id"` // nil for manual adjustments
	MovementType    string     `gorm:"type:varchar(10);not null" json:"movement_type"`
	QuantityChanged int        `gorm:"type:int;not null" json:"quantity_changed"`
	StockAfter      int        `gorm:"type:int;not null" json:"stock_after"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (m *StockMovement) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
