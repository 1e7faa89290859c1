package repository

import (
	"context"
	"fmt"

	"almoxarifado-api/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// RequestFilter narrows request listings
type RequestFilter struct {
	Status      string
	RequesterID *uuid.UUID
	Department  string
	Page        int
	Limit       int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error)

	// SaveDraft persists the draft-editable columns, guarded by the DRAFT
	// status so a stale read can never overwrite a concurrent transition.
	// Returns false without error when the request already left DRAFT.
	SaveDraft(ctx context.Context, req *model.Request) (bool, error)

	ReplaceItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error
	SaveItem(ctx context.Context, item *model.RequestItem) error

	// CompareAndSwapStatus moves the request from one exact status to another,
	// applying extra column updates atomically. Returns false without error
	// when the request is no longer in the expected status — the optimistic
	// concurrency check of the transition engine.
	CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error)

	AppendHistory(ctx context.Context, entry *model.AuditEntry) error
	ListHistory(ctx context.Context, requestID uuid.UUID) ([]model.AuditEntry, error)

	// NextCode issues the next sequential human-readable code (SOL-NNNNN)
	NextCode(ctx context.Context) (string, error)

	// Derived queue projections
	ListPendingApproval(ctx context.Context, excludeRequester uuid.UUID, page, limit int) ([]model.Request, int64, error)
	ListStockQueue(ctx context.Context, page, limit int) ([]model.Request, int64, error)
	CountByStatuses(ctx context.Context, statuses []string, excludeRequester *uuid.UUID) (int64, error)
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("History", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Requester").
		Preload("Approver").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, filter RequestFilter) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db)
	apply := func(q *gorm.DB) *gorm.DB {
		if filter.Status != "" {
			q = q.Where("status = ?", filter.Status)
		}
		if filter.RequesterID != nil {
			q = q.Where("requester_id = ?", *filter.RequesterID)
		}
		if filter.Department != "" {
			q = q.Where("department = ?", filter.Department)
		}
		return q
	}

	if err := apply(db.Model(&model.Request{})).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := apply(db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Requester").
		Order("created_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) SaveDraft(ctx context.Context, req *model.Request) (bool, error) {
	res := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", req.ID, model.StatusDraft).
		Updates(map[string]interface{}{
			"title":       req.Title,
			"description": req.Description,
			"priority":    req.Priority,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepository) ReplaceItems(ctx context.Context, requestID uuid.UUID, items []model.RequestItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", requestID).Delete(&model.RequestItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].RequestID = requestID
		if err := db.Create(&items[i]).Error; err != nil {
			return err
		}
	}
	return nil
}

func (r *requestRepository) SaveItem(ctx context.Context, item *model.RequestItem) error {
	return GetDB(ctx, r.db).Save(item).Error
}

func (r *requestRepository) CompareAndSwapStatus(ctx context.Context, id uuid.UUID, from, to string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = to

	res := GetDB(ctx, r.db).Model(&model.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *requestRepository) AppendHistory(ctx context.Context, entry *model.AuditEntry) error {
	return GetDB(ctx, r.db).Create(entry).Error
}

func (r *requestRepository) ListHistory(ctx context.Context, requestID uuid.UUID) ([]model.AuditEntry, error) {
	var entries []model.AuditEntry
	if err := GetDB(ctx, r.db).
		Preload("Actor").
		Where("request_id = ?", requestID).
		Order("created_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *requestRepository) NextCode(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)

	// Advisory lock prevents concurrent duplicate codes; requests are never
	// deleted, so count+1 stays monotonic
	if db.Dialector.Name() == "postgres" {
		if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", "requests_code").Error; err != nil {
			return "", err
		}
	}

	var count int64
	if err := db.Model(&model.Request{}).Count(&count).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("SOL-%05d", count+1), nil
}

func (r *requestRepository) ListPendingApproval(ctx context.Context, excludeRequester uuid.UUID, page, limit int) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	db := GetDB(ctx, r.db)
	base := db.Model(&model.Request{}).
		Where("status = ?", model.StatusPendingApproval).
		Where("requester_id <> ?", excludeRequester)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Where("status = ?", model.StatusPendingApproval).
		Where("requester_id <> ?", excludeRequester).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Requester").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) ListStockQueue(ctx context.Context, page, limit int) ([]model.Request, int64, error) {
	var requests []model.Request
	var total int64

	statuses := []string{model.StatusApproved, model.StatusProcessingStock}
	db := GetDB(ctx, r.db)

	if err := db.Model(&model.Request{}).Where("status IN ?", statuses).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Where("status IN ?", statuses).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Requester").
		Order("created_at ASC").
		Offset(offset).Limit(limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) CountByStatuses(ctx context.Context, statuses []string, excludeRequester *uuid.UUID) (int64, error) {
	var total int64
	query := GetDB(ctx, r.db).Model(&model.Request{}).Where("status IN ?", statuses)
	if excludeRequester != nil {
		query = query.Where("requester_id <> ?", *excludeRequester)
	}
	err := query.Count(&total).Error
	return total, err
}
