package service

import (
	"context"
	"fmt"
	"time"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReportSummary is the read-only aggregate consumed by export tooling.
// Strictly derived from request state; no write-back.
type ReportSummary struct {
	TimeRangeStart       time.Time        `json:"timeRangeStart"`
	TimeRangeEnd         time.Time        `json:"timeRangeEnd"`
	CountsByStatus       map[string]int64 `json:"countsByStatus"`
	CountsByDepartment   map[string]int64 `json:"countsByDepartment"`
	DeliveredTotalValue  string           `json:"deliveredTotalValue"`
	EstimatedTotalValue  string           `json:"estimatedTotalValue"`
	RequestsCreated      int64            `json:"requestsCreated"`
	RequestsDelivered    int64            `json:"requestsDelivered"`
}

type ReportService interface {
	Summary(ctx context.Context, actor authz.Actor, startDate, endDate time.Time) (ReportSummary, error)
}

type reportService struct {
	db *gorm.DB
}

func NewReportService(db *gorm.DB) ReportService {
	return &reportService{db: db}
}

func (s *reportService) Summary(ctx context.Context, actor authz.Actor, startDate, endDate time.Time) (ReportSummary, error) {
	summary := ReportSummary{
		TimeRangeStart:     startDate,
		TimeRangeEnd:       endDate,
		CountsByStatus:     map[string]int64{},
		CountsByDepartment: map[string]int64{},
	}

	if err := authz.AuthorizeView(actor); err != nil {
		return summary, err
	}

	inRange := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("created_at >= ? AND created_at <= ?", startDate, endDate)

	if err := inRange.Count(&summary.RequestsCreated).Error; err != nil {
		return summary, fmt.Errorf("failed to count requests: %w", err)
	}

	var statusRows []struct {
		Status string
		Total  int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Select("status, COUNT(*) as total").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("status").
		Scan(&statusRows).Error; err != nil {
		return summary, fmt.Errorf("failed to aggregate by status: %w", err)
	}
	for _, row := range statusRows {
		summary.CountsByStatus[row.Status] = row.Total
	}
	summary.RequestsDelivered = summary.CountsByStatus[model.StatusDelivered]

	var departmentRows []struct {
		Department string
		Total      int64
	}
	if err := s.db.WithContext(ctx).Model(&model.Request{}).
		Select("department, COUNT(*) as total").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Group("department").
		Scan(&departmentRows).Error; err != nil {
		return summary, fmt.Errorf("failed to aggregate by department: %w", err)
	}
	for _, row := range departmentRows {
		summary.CountsByDepartment[row.Department] = row.Total
	}

	// Values are summed item-by-item in decimal rather than in SQL floats
	var deliveredRequests []model.Request
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("status = ? AND delivered_at >= ? AND delivered_at <= ?",
			model.StatusDelivered, startDate, endDate).
		Find(&deliveredRequests).Error; err != nil {
		return summary, fmt.Errorf("failed to load delivered requests: %w", err)
	}
	deliveredTotal := decimal.Zero
	for i := range deliveredRequests {
		deliveredTotal = deliveredTotal.Add(deliveredRequests[i].DeliveredTotalValue())
	}
	summary.DeliveredTotalValue = deliveredTotal.StringFixed(2)

	var createdRequests []model.Request
	if err := s.db.WithContext(ctx).
		Preload("Items").
		Where("created_at >= ? AND created_at <= ?", startDate, endDate).
		Find(&createdRequests).Error; err != nil {
		return summary, fmt.Errorf("failed to load requests: %w", err)
	}
	estimatedTotal := decimal.Zero
	for i := range createdRequests {
		estimatedTotal = estimatedTotal.Add(createdRequests[i].EstimatedTotalValue())
	}
	summary.EstimatedTotalValue = estimatedTotal.StringFixed(2)

	return summary, nil
}
