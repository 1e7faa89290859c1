package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestType enum constants
const (
	RequestTypeWithdrawal = "WITHDRAWAL"
	RequestTypePurchase   = "PURCHASE"
)

// Priority constants
const (
	PriorityUrgent = "URGENT"
	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
	PriorityLow    = "LOW"
)

// RequestStatus constants — the lifecycle states of a requisition
const (
	StatusDraft           = "DRAFT"
	StatusPendingApproval = "PENDING_APPROVAL"
	StatusApproved        = "APPROVED"
	StatusRejected        = "REJECTED"
	StatusProcessingStock = "PROCESSING_STOCK"
	StatusRejectedByStock = "REJECTED_BY_STOCK"
	StatusDelivered       = "DELIVERED"
	StatusCancelled       = "CANCELLED"
)

// ItemStatus constants
const (
	ItemStatusPending   = "PENDING"
	ItemStatusApproved  = "APPROVED"
	ItemStatusRejected  = "REJECTED"
	ItemStatusDelivered = "DELIVERED"
)

// Request represents a requisition (solicitação) flowing through the approval
// pipeline: Draft -> PendingApproval -> Approved -> ProcessingStock -> Delivered,
// with rejection/cancellation exits along the way. Once a terminal state is
// reached the record becomes read-only.
type Request struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	Code             string        `gorm:"type:varchar(20);uniqueIndex;not null" json:"code"` // e.g. SOL-00001
	Title            string        `gorm:"type:varchar(255);not null" json:"title"`
	Description      string        `gorm:"type:text" json:"description"`
	RequestType      string        `gorm:"type:varchar(20);not null" json:"requestType"` // WITHDRAWAL, PURCHASE
	Priority         string        `gorm:"type:varchar(10);not null;default:'MEDIUM'" json:"priority"`
	Status           string        `gorm:"type:varchar(30);not null;default:'DRAFT';index" json:"status"`
	RequesterID      uuid.UUID     `gorm:"type:uuid;not null;index" json:"requesterId"`
	Requester        *User         `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`
	Department       string        `gorm:"type:varchar(100);index" json:"department"`
	ApproverID       *uuid.UUID    `gorm:"type:uuid" json:"approverId"`
	Approver         *User         `gorm:"foreignKey:ApproverID" json:"approver,omitempty"`
	RejectionReason  string        `gorm:"type:text" json:"rejectionReason"`
	Items            []RequestItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`
	History          []AuditEntry  `gorm:"foreignKey:RequestID" json:"history,omitempty"`
	CreatedAt        time.Time     `json:"createdAt"`
	UpdatedAt        time.Time     `json:"updatedAt"`
	SubmittedAt      *time.Time    `json:"submittedAt"`
	DecidedAt        *time.Time    `json:"decidedAt"` // approval or rejection time
	StockProcessedAt *time.Time    `json:"stockProcessedAt"`
	DeliveredAt      *time.Time    `json:"deliveredAt"`
}

// BeforeCreate assigns the UUID application-side so the model works on any dialect
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// IsTerminal reports whether the request reached a state with no outgoing transitions
func (r *Request) IsTerminal() bool {
	return IsTerminalStatus(r.Status)
}

// IsTerminalStatus reports whether a status admits no further transitions
func IsTerminalStatus(status string) bool {
	switch status {
	case StatusRejected, StatusRejectedByStock, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// EstimatedTotalValue recomputes the request total from its items.
// Always derived, never stored: sum(unitValueEstimate * quantityRequested).
func (r *Request) EstimatedTotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.UnitValueEstimate.Mul(decimal.NewFromInt(int64(item.QuantityRequested))))
	}
	return total
}

// DeliveredTotalValue sums unitValueEstimate * quantityDelivered over all items
func (r *Request) DeliveredTotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.UnitValueEstimate.Mul(decimal.NewFromInt(int64(item.QuantityDelivered))))
	}
	return total
}

// RequestItem is a line entry within a requisition. Requested, approved and
// delivered quantities are tracked independently per item.
type RequestItem struct {
	ID                uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID         uuid.UUID       `gorm:"type:uuid;not null;index" json:"requestId"`
	Position          int             `gorm:"type:int;not null" json:"position"`
	Name              string          `gorm:"type:varchar(255);not null" json:"name"`
	CatalogRef        *uuid.UUID      `gorm:"type:uuid;index" json:"catalogRef"` // optional link to a StockItem
	StockItem         *StockItem      `gorm:"foreignKey:CatalogRef" json:"-"`
	QuantityRequested int             `gorm:"type:int;not null" json:"quantityRequested"`
	QuantityApproved  int             `gorm:"type:int;not null;default:0" json:"quantityApproved"`
	QuantityDelivered int             `gorm:"type:int;not null;default:0" json:"quantityDelivered"`
	UnitValueEstimate decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"unitValueEstimate"`
	UsageReason       string          `gorm:"type:text" json:"usageReason"`
	ItemStatus        string          `gorm:"type:varchar(20);not null;default:'PENDING'" json:"itemStatus"`
}

func (i *RequestItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Validate checks the per-item quantity invariant:
// 0 <= quantityDelivered <= quantityApproved <= quantityRequested
func (i *RequestItem) Validate() error {
	if i.Name == "" {
		return errors.New("item name is required")
	}
	if i.QuantityRequested <= 0 {
		return errors.New("quantityRequested must be positive")
	}
	if i.QuantityApproved < 0 || i.QuantityApproved > i.QuantityRequested {
		return errors.New("quantityApproved must be between 0 and quantityRequested")
	}
	if i.QuantityDelivered < 0 || i.QuantityDelivered > i.QuantityApproved {
		return errors.New("quantityDelivered must be between 0 and quantityApproved")
	}
	if i.UnitValueEstimate.IsNegative() {
		return errors.New("unitValueEstimate cannot be negative")
	}
	return nil
}
