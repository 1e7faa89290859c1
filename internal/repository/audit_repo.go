package repository

import (
	"context"

	"almoxarifado-api/internal/model"

	"gorm.io/gorm"
)

// AuditRepository reads the audit trail across all requests. Writing happens
// exclusively through RequestRepository.AppendHistory inside the transition
// transaction; this interface is read-only on purpose.
type AuditRepository interface {
	List(ctx context.Context, action string, page, limit int) ([]model.AuditEntry, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) List(ctx context.Context, action string, page, limit int) ([]model.AuditEntry, int64, error) {
	var entries []model.AuditEntry
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.AuditEntry{})
	if action != "" {
		query = query.Where("action = ?", action)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	fetch := db.Preload("Actor").Order("created_at desc").Offset(offset).Limit(limit)
	if action != "" {
		fetch = fetch.Where("action = ?", action)
	}
	if err := fetch.Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
