package service

import (
	"context"
	"fmt"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/repository"
)

// QueueCounts powers dashboard badges with a single read per queue, replacing
// per-screen polling of the same projection
type QueueCounts struct {
	PendingApproval int64 `json:"pendingApproval"`
	Stock           int64 `json:"stock"`
}

// QueueService exposes the derived queues. Both are pure projections over
// current request state — recomputed on every read, never stored.
type QueueService interface {
	// PendingApproval lists requests awaiting a decision, excluding the
	// viewer's own (self-approval is impossible, so showing them is noise)
	PendingApproval(ctx context.Context, actor authz.Actor, page, limit int) ([]RequestResponse, int64, error)

	// Stock lists approved and in-processing requests for warehouse actors
	Stock(ctx context.Context, actor authz.Actor, page, limit int) ([]RequestResponse, int64, error)

	Counts(ctx context.Context, actor authz.Actor) (QueueCounts, error)
}

type queueService struct {
	requests repository.RequestRepository
}

func NewQueueService(requests repository.RequestRepository) QueueService {
	return &queueService{requests: requests}
}

func (s *queueService) PendingApproval(ctx context.Context, actor authz.Actor, page, limit int) ([]RequestResponse, int64, error) {
	if !actor.Capabilities.CanApprove {
		return nil, 0, fmt.Errorf("%w: role %s cannot view the approval queue",
			authz.ErrUnauthorized, actor.Role)
	}

	requests, total, err := s.requests.ListPendingApproval(ctx, actor.ID, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approval queue: %w", err)
	}
	return toResponses(requests), total, nil
}

func (s *queueService) Stock(ctx context.Context, actor authz.Actor, page, limit int) ([]RequestResponse, int64, error) {
	if !actor.Capabilities.CanProcessStock {
		return nil, 0, fmt.Errorf("%w: role %s cannot view the stock queue",
			authz.ErrUnauthorized, actor.Role)
	}

	requests, total, err := s.requests.ListStockQueue(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stock queue: %w", err)
	}
	return toResponses(requests), total, nil
}

func (s *queueService) Counts(ctx context.Context, actor authz.Actor) (QueueCounts, error) {
	var counts QueueCounts

	if actor.Capabilities.CanApprove {
		excludeID := actor.ID
		total, err := s.requests.CountByStatuses(ctx,
			[]string{model.StatusPendingApproval}, &excludeID)
		if err != nil {
			return counts, fmt.Errorf("failed to count approval queue: %w", err)
		}
		counts.PendingApproval = total
	}

	if actor.Capabilities.CanProcessStock {
		total, err := s.requests.CountByStatuses(ctx,
			[]string{model.StatusApproved, model.StatusProcessingStock}, nil)
		if err != nil {
			return counts, fmt.Errorf("failed to count stock queue: %w", err)
		}
		counts.Stock = total
	}

	return counts, nil
}

func toResponses(requests []model.Request) []RequestResponse {
	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toRequestResponse(&requests[i], false))
	}
	return result
}
