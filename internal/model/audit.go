package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Lifecycle actions recorded in the audit trail
const (
	ActionCreate      = "CREATE"
	ActionSubmit      = "SUBMIT"
	ActionCancel      = "CANCEL"
	ActionApprove     = "APPROVE"
	ActionReject      = "REJECT"
	ActionStockAccept = "STOCK_ACCEPT"
	ActionStockReject = "STOCK_REJECT"
	ActionDeliver     = "DELIVER"

	// Owner edit of a draft — authorization-relevant but not a status transition,
	// so it never appears in a request's history
	ActionUpdateDraft = "UPDATE_DRAFT"
)

// AuditEntry records Who, What, and When for a single lifecycle transition.
// Entries are append-only: they are created inside the same transaction as the
// status change and are never updated or deleted. Replaying a request's entries
// in order reproduces its current status.
type AuditEntry struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequestID      uuid.UUID `gorm:"type:uuid;not null;index" json:"requestId"`
	ActorID        uuid.UUID `gorm:"type:uuid;not null;index" json:"actorId"`
	Actor          *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	ActorRole      string    `gorm:"type:varchar(30);not null" json:"actorRole"`
	Action         string    `gorm:"type:varchar(30);not null;index" json:"action"`
	PreviousStatus string    `gorm:"type:varchar(30)" json:"previousStatus"` // empty on CREATE
	NewStatus      string    `gorm:"type:varchar(30);not null" json:"newStatus"`
	Description    string    `gorm:"type:text" json:"description"`
	CreatedAt      time.Time `gorm:"not null;index" json:"timestamp"`
}

func (e *AuditEntry) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
