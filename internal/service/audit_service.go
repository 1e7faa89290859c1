package service

import (
	"context"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/repository"
)

// AuditService exposes the global audit trail for compliance views and
// export. Read-only: entries are written exclusively by the transition engine.
type AuditService interface {
	List(ctx context.Context, actor authz.Actor, action string, page, limit int) ([]AuditEntryResponse, int64, error)
}

type auditService struct {
	audit repository.AuditRepository
}

// NewAuditService creates a new AuditService instance
func NewAuditService(audit repository.AuditRepository) AuditService {
	return &auditService{audit: audit}
}

func (s *auditService) List(ctx context.Context, actor authz.Actor, action string, page, limit int) ([]AuditEntryResponse, int64, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.audit.List(ctx, action, page, limit)
	if err != nil {
		return nil, 0, err
	}

	result := make([]AuditEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toAuditEntryResponse(&entries[i]))
	}

	return result, total, nil
}
