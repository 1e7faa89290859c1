package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/repository"
	"almoxarifado-api/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

type ItemInput struct {
	Name              string `json:"name" binding:"required"`
	CatalogRef        string `json:"catalogRef"`
	QuantityRequested int    `json:"quantityRequested" binding:"required,gt=0"`
	UnitValueEstimate string `json:"unitValueEstimate"` // decimal string, e.g. "12.50"
	UsageReason       string `json:"usageReason"`
}

type CreateRequestDTO struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description"`
	RequestType string      `json:"requestType" binding:"required,oneof=WITHDRAWAL PURCHASE"`
	Priority    string      `json:"priority" binding:"omitempty,oneof=URGENT HIGH MEDIUM LOW"`
	Department  string      `json:"department"`
	Items       []ItemInput `json:"items" binding:"required,min=1,dive"`
}

type UpdateRequestDTO struct {
	Title       string      `json:"title" binding:"required"`
	Description string      `json:"description"`
	Priority    string      `json:"priority" binding:"omitempty,oneof=URGENT HIGH MEDIUM LOW"`
	Items       []ItemInput `json:"items" binding:"required,min=1,dive"`
}

type ListRequestsFilter struct {
	Status     string
	Mine       bool
	Department string
	Page       int
	Limit      int
}

type AuditEntryResponse struct {
	ID             string `json:"id"`
	RequestID      string `json:"requestId"`
	ActorID        string `json:"actorId"`
	ActorName      string `json:"actorName"`
	ActorRole      string `json:"actorRole"`
	Action         string `json:"action"`
	PreviousStatus string `json:"previousStatus"`
	NewStatus      string `json:"newStatus"`
	Description    string `json:"description"`
	Timestamp      string `json:"timestamp"`
}

type RequestResponse struct {
	ID                  string               `json:"id"`
	Code                string               `json:"code"`
	Title               string               `json:"title"`
	Description         string               `json:"description"`
	RequestType         string               `json:"requestType"`
	Priority            string               `json:"priority"`
	Status              string               `json:"status"`
	RequesterID         string               `json:"requesterId"`
	RequesterName       string               `json:"requesterName"`
	Department          string               `json:"department"`
	ApproverID          *string              `json:"approverId"`
	ApproverName        string               `json:"approverName"`
	RejectionReason     string               `json:"rejectionReason"`
	Items               []model.RequestItem  `json:"items"`
	History             []AuditEntryResponse `json:"history,omitempty"`
	EstimatedTotalValue string               `json:"estimatedTotalValue"`
	CreatedAt           string               `json:"createdAt"`
	SubmittedAt         *string              `json:"submittedAt"`
	DecidedAt           *string              `json:"decidedAt"`
	StockProcessedAt    *string              `json:"stockProcessedAt"`
	DeliveredAt         *string              `json:"deliveredAt"`
}

// TransitionEvent is handed to the notification collaborator after a commit
type TransitionEvent struct {
	RequestID   string `json:"requestId"`
	Code        string `json:"code"`
	Action      string `json:"action"`
	NewStatus   string `json:"newStatus"`
	ActorID     string `json:"actorId"`
	RequesterID string `json:"requesterId"`
}

// Notifier delivers transition events. Failures never affect the transition.
type Notifier interface {
	NotifyTransition(event TransitionEvent)
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateRequestDTO) (*RequestResponse, error)
	Get(ctx context.Context, actor authz.Actor, id string) (*RequestResponse, error)
	List(ctx context.Context, actor authz.Actor, filter ListRequestsFilter) ([]RequestResponse, int64, error)
	UpdateDraft(ctx context.Context, actor authz.Actor, id string, req UpdateRequestDTO) (*RequestResponse, error)

	// Transition reads the request and applies the action against that read
	Transition(ctx context.Context, actor authz.Actor, id string, action string, payload workflow.Payload) (*RequestResponse, error)

	// ApplyTransition runs the action against a request the caller already
	// read. The compare-and-swap inside re-checks the source status, so a
	// stale read surfaces as ErrConflict rather than a lost update.
	ApplyTransition(ctx context.Context, actor authz.Actor, req *model.Request, action string, payload workflow.Payload) (*RequestResponse, error)

	History(ctx context.Context, actor authz.Actor, id string) ([]AuditEntryResponse, error)
}

type requestService struct {
	requests repository.RequestRepository
	stock    repository.StockRepository
	tx       repository.TransactionManager
	notifier Notifier
	limits   authz.Limits
}

func NewRequestService(
	requests repository.RequestRepository,
	stock repository.StockRepository,
	tx repository.TransactionManager,
	notifier Notifier,
	limits authz.Limits,
) RequestService {
	return &requestService{
		requests: requests,
		stock:    stock,
		tx:       tx,
		notifier: notifier,
		limits:   limits,
	}
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, actor authz.Actor, req CreateRequestDTO) (*RequestResponse, error) {
	if err := authz.AuthorizeCreate(actor); err != nil {
		return nil, err
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	priority := req.Priority
	if priority == "" {
		priority = model.PriorityMedium
	}

	request := &model.Request{
		Title:       req.Title,
		Description: req.Description,
		RequestType: req.RequestType,
		Priority:    priority,
		Status:      model.StatusDraft,
		RequesterID: actor.ID,
		Department:  req.Department,
		Items:       items,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		code, codeErr := s.requests.NextCode(txCtx)
		if codeErr != nil {
			return fmt.Errorf("failed to generate request code: %w", codeErr)
		}
		request.Code = code

		if createErr := s.requests.Create(txCtx, request); createErr != nil {
			return fmt.Errorf("failed to create request: %w", createErr)
		}

		entry := &model.AuditEntry{
			RequestID:      request.ID,
			ActorID:        actor.ID,
			ActorRole:      actor.Role,
			Action:         model.ActionCreate,
			PreviousStatus: "",
			NewStatus:      model.StatusDraft,
			Description:    fmt.Sprintf("request %s created with %d items", code, len(items)),
		}
		if auditErr := s.requests.AppendHistory(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write history: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, request.ID)
}

func (s *requestService) Get(ctx context.Context, actor authz.Actor, id string) (*RequestResponse, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, err
	}

	requestID, err := parseRequestID(id)
	if err != nil {
		return nil, err
	}
	return s.reload(ctx, requestID)
}

func (s *requestService) List(ctx context.Context, actor authz.Actor, filter ListRequestsFilter) ([]RequestResponse, int64, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, 0, err
	}

	repoFilter := repository.RequestFilter{
		Status:     filter.Status,
		Department: filter.Department,
		Page:       filter.Page,
		Limit:      filter.Limit,
	}
	if filter.Mine {
		requesterID := actor.ID
		repoFilter.RequesterID = &requesterID
	}

	requests, total, err := s.requests.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *toRequestResponse(&requests[i], false))
	}
	return result, total, nil
}

func (s *requestService) UpdateDraft(ctx context.Context, actor authz.Actor, id string, req UpdateRequestDTO) (*RequestResponse, error) {
	requestID, err := parseRequestID(id)
	if err != nil {
		return nil, err
	}

	items, err := buildItems(req.Items)
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByID(txCtx, requestID)
		if findErr != nil {
			return notFoundOr(findErr, requestID)
		}

		if authErr := authz.Authorize(actor, model.ActionUpdateDraft, request, authz.Limits{}); authErr != nil {
			return authErr
		}
		if request.Status != model.StatusDraft {
			return workflow.Validation(model.ActionUpdateDraft,
				"request %s is %s; only drafts can be edited", request.Code, request.Status)
		}

		request.Title = req.Title
		request.Description = req.Description
		if req.Priority != "" {
			request.Priority = req.Priority
		}

		// The write re-checks DRAFT so a submit landing between our read and
		// this update cannot be reverted by the stale struct
		saved, saveErr := s.requests.SaveDraft(txCtx, request)
		if saveErr != nil {
			return fmt.Errorf("failed to update request: %w", saveErr)
		}
		if !saved {
			fresh, freshErr := s.requests.FindByID(txCtx, request.ID)
			if freshErr != nil {
				return notFoundOr(freshErr, request.ID)
			}
			return workflow.Conflict(model.ActionUpdateDraft, fresh.Status)
		}
		if itemsErr := s.requests.ReplaceItems(txCtx, request.ID, items); itemsErr != nil {
			return fmt.Errorf("failed to replace items: %w", itemsErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, requestID)
}

func (s *requestService) Transition(ctx context.Context, actor authz.Actor, id string, action string, payload workflow.Payload) (*RequestResponse, error) {
	requestID, err := parseRequestID(id)
	if err != nil {
		return nil, err
	}

	current, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, notFoundOr(err, requestID)
	}

	return s.ApplyTransition(ctx, actor, current, action, payload)
}

func (s *requestService) ApplyTransition(ctx context.Context, actor authz.Actor, req *model.Request, action string, payload workflow.Payload) (*RequestResponse, error) {
	t, ok := workflow.Lookup(action)
	if !ok {
		return nil, workflow.Validation(action, "unknown action %q", action)
	}

	// Retry after a communication failure: the request already sits in the
	// target state. Only the actor whose audit entry got recorded may treat
	// this as success; anyone else lost a race.
	if req.Status == t.Target {
		if lastEntryMatches(req.History, action, actor.ID) {
			return toRequestResponse(req, true), nil
		}
		return nil, workflow.Conflict(action, req.Status)
	}

	if err := workflow.Validate(req, actor, action, payload, s.limits); err != nil {
		return nil, err
	}

	now := time.Now()
	updates := transitionUpdates(action, actor, payload, now)

	var idempotent *model.Request
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		swapped, swapErr := s.requests.CompareAndSwapStatus(txCtx, req.ID, req.Status, t.Target, updates)
		if swapErr != nil {
			return fmt.Errorf("failed to update status: %w", swapErr)
		}
		if !swapped {
			// The read was stale. Either our own earlier attempt already
			// landed (idempotent success) or another actor moved the request.
			fresh, freshErr := s.requests.FindByID(txCtx, req.ID)
			if freshErr != nil {
				return notFoundOr(freshErr, req.ID)
			}
			if fresh.Status == t.Target && lastEntryMatches(fresh.History, action, actor.ID) {
				idempotent = fresh
				return nil
			}
			return workflow.Conflict(action, fresh.Status)
		}

		if effectErr := s.applyItemEffects(txCtx, req, action, payload); effectErr != nil {
			return effectErr
		}

		entry := &model.AuditEntry{
			RequestID:      req.ID,
			ActorID:        actor.ID,
			ActorRole:      actor.Role,
			Action:         action,
			PreviousStatus: req.Status,
			NewStatus:      t.Target,
			Description:    describeTransition(action, payload),
		}
		if auditErr := s.requests.AppendHistory(txCtx, entry); auditErr != nil {
			return fmt.Errorf("failed to write history: %w", auditErr)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if idempotent != nil {
		return toRequestResponse(idempotent, true), nil
	}

	result, err := s.reload(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if s.notifier != nil {
		s.notifier.NotifyTransition(TransitionEvent{
			RequestID:   req.ID.String(),
			Code:        req.Code,
			Action:      action,
			NewStatus:   t.Target,
			ActorID:     actor.ID.String(),
			RequesterID: req.RequesterID.String(),
		})
	}

	return result, nil
}

func (s *requestService) History(ctx context.Context, actor authz.Actor, id string) ([]AuditEntryResponse, error) {
	if err := authz.AuthorizeView(actor); err != nil {
		return nil, err
	}

	requestID, err := parseRequestID(id)
	if err != nil {
		return nil, err
	}

	if _, err := s.requests.FindByID(ctx, requestID); err != nil {
		return nil, notFoundOr(err, requestID)
	}

	entries, err := s.requests.ListHistory(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	result := make([]AuditEntryResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toAuditEntryResponse(&entries[i]))
	}
	return result, nil
}

// applyItemEffects mutates item-level fields and stock as part of the
// transition transaction. Any error rolls the whole transition back.
func (s *requestService) applyItemEffects(ctx context.Context, req *model.Request, action string, payload workflow.Payload) error {
	switch action {
	case model.ActionApprove:
		for i := range req.Items {
			item := &req.Items[i]
			qty, overridden := payload.ApprovedQuantities[item.ID]
			if !overridden {
				qty = item.QuantityRequested
			}
			item.QuantityApproved = qty
			if qty == 0 {
				item.ItemStatus = model.ItemStatusRejected
			} else {
				item.ItemStatus = model.ItemStatusApproved
			}
			if err := s.requests.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.Name, err)
			}
		}

	case model.ActionReject, model.ActionStockReject:
		for i := range req.Items {
			item := &req.Items[i]
			item.ItemStatus = model.ItemStatusRejected
			if err := s.requests.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.Name, err)
			}
		}

	case model.ActionDeliver:
		for i := range req.Items {
			item := &req.Items[i]
			if item.QuantityApproved == 0 {
				continue
			}
			qty := payload.DeliveredQuantities[item.ID]
			item.QuantityDelivered = qty
			item.ItemStatus = model.ItemStatusDelivered
			if err := s.requests.SaveItem(ctx, item); err != nil {
				return fmt.Errorf("failed to update item %s: %w", item.Name, err)
			}
			if item.CatalogRef != nil && qty > 0 {
				if err := s.moveStock(ctx, req, item, qty); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// moveStock records the warehouse effect of a delivered item: withdrawals
// leave the warehouse, purchases enter it. Row-locked to keep stock levels
// consistent under concurrent deliveries.
func (s *requestService) moveStock(ctx context.Context, req *model.Request, item *model.RequestItem, qty int) error {
	stockItem, err := s.stock.FindByIDForUpdate(ctx, *item.CatalogRef)
	if err != nil {
		return workflow.Validation(model.ActionDeliver, "catalog item for %q not found", item.Name)
	}

	delta := qty
	movementType := model.MovementIn
	if req.RequestType == model.RequestTypeWithdrawal {
		if stockItem.CurrentStock < qty {
			return workflow.Validation(model.ActionDeliver,
				"insufficient stock for %q (current: %d, delivering: %d)",
				stockItem.Name, stockItem.CurrentStock, qty)
		}
		delta = -qty
		movementType = model.MovementOut
	}

	stockAfter := stockItem.CurrentStock + delta
	if err := s.stock.UpdateStock(ctx, stockItem.ID, stockAfter); err != nil {
		return fmt.Errorf("failed to update stock for %s: %w", stockItem.Name, err)
	}

	movement := &model.StockMovement{
		StockItemID:     stockItem.ID,
		RequestID:       &req.ID,
		MovementType:    movementType,
		QuantityChanged: delta,
		StockAfter:      stockAfter,
	}
	if err := s.stock.CreateMovement(ctx, movement); err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

func (s *requestService) reload(ctx context.Context, id uuid.UUID) (*RequestResponse, error) {
	request, err := s.requests.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, id)
	}
	return toRequestResponse(request, true), nil
}

// --- Helpers ---

func parseRequestID(id string) (uuid.UUID, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return uuid.Nil, workflow.Validation("", "invalid request id %q", id)
	}
	return requestID, nil
}

func notFoundOr(err error, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s", workflow.ErrNotFound, id)
	}
	return err
}

func buildItems(inputs []ItemInput) ([]model.RequestItem, error) {
	items := make([]model.RequestItem, 0, len(inputs))
	for i, input := range inputs {
		unitValue := decimal.Zero
		if input.UnitValueEstimate != "" {
			parsed, parseErr := decimal.NewFromString(input.UnitValueEstimate)
			if parseErr != nil {
				return nil, workflow.Validation("", "invalid unit value %q for item %q",
					input.UnitValueEstimate, input.Name)
			}
			unitValue = parsed
		}

		var catalogRef *uuid.UUID
		if input.CatalogRef != "" {
			parsed, parseErr := uuid.Parse(input.CatalogRef)
			if parseErr != nil {
				return nil, workflow.Validation("", "invalid catalog reference for item %q", input.Name)
			}
			catalogRef = &parsed
		}

		item := model.RequestItem{
			Position:          i,
			Name:              input.Name,
			CatalogRef:        catalogRef,
			QuantityRequested: input.QuantityRequested,
			UnitValueEstimate: unitValue,
			UsageReason:       input.UsageReason,
			ItemStatus:        model.ItemStatusPending,
		}
		if err := item.Validate(); err != nil {
			return nil, workflow.Validation("", "item %q: %s", input.Name, err.Error())
		}
		items = append(items, item)
	}
	return items, nil
}

func transitionUpdates(action string, actor authz.Actor, payload workflow.Payload, now time.Time) map[string]interface{} {
	updates := map[string]interface{}{}
	switch action {
	case model.ActionSubmit:
		updates["submitted_at"] = now
	case model.ActionApprove:
		updates["approver_id"] = actor.ID
		updates["decided_at"] = now
	case model.ActionReject:
		updates["approver_id"] = actor.ID
		updates["decided_at"] = now
		updates["rejection_reason"] = payload.Reason
	case model.ActionStockAccept:
		updates["stock_processed_at"] = now
	case model.ActionStockReject:
		updates["stock_processed_at"] = now
		updates["rejection_reason"] = payload.Reason
	case model.ActionDeliver:
		updates["delivered_at"] = now
	}
	return updates
}

func lastEntryMatches(history []model.AuditEntry, action string, actorID uuid.UUID) bool {
	if len(history) == 0 {
		return false
	}
	last := history[len(history)-1]
	return last.Action == action && last.ActorID == actorID
}

func describeTransition(action string, payload workflow.Payload) string {
	switch action {
	case model.ActionSubmit:
		return "submitted for approval"
	case model.ActionCancel:
		return "cancelled by requester"
	case model.ActionApprove:
		if payload.Note != "" {
			return "approved: " + payload.Note
		}
		return "approved"
	case model.ActionReject:
		return "rejected: " + payload.Reason
	case model.ActionStockAccept:
		if payload.Note != "" {
			return "accepted for stock processing: " + payload.Note
		}
		return "accepted for stock processing"
	case model.ActionStockReject:
		return "rejected by stock: " + payload.Reason
	case model.ActionDeliver:
		return "delivered"
	}
	return action
}

func toAuditEntryResponse(e *model.AuditEntry) AuditEntryResponse {
	resp := AuditEntryResponse{
		ID:             e.ID.String(),
		RequestID:      e.RequestID.String(),
		ActorID:        e.ActorID.String(),
		ActorRole:      e.ActorRole,
		Action:         e.Action,
		PreviousStatus: e.PreviousStatus,
		NewStatus:      e.NewStatus,
		Description:    e.Description,
		Timestamp:      e.CreatedAt.Format(time.RFC3339),
	}
	if e.Actor != nil {
		resp.ActorName = e.Actor.Username
	}
	return resp
}

func toRequestResponse(r *model.Request, includeHistory bool) *RequestResponse {
	resp := &RequestResponse{
		ID:                  r.ID.String(),
		Code:                r.Code,
		Title:               r.Title,
		Description:         r.Description,
		RequestType:         r.RequestType,
		Priority:            r.Priority,
		Status:              r.Status,
		RequesterID:         r.RequesterID.String(),
		Department:          r.Department,
		RejectionReason:     r.RejectionReason,
		Items:               r.Items,
		EstimatedTotalValue: r.EstimatedTotalValue().StringFixed(2),
		CreatedAt:           r.CreatedAt.Format(time.RFC3339),
		SubmittedAt:         formatTimePtr(r.SubmittedAt),
		DecidedAt:           formatTimePtr(r.DecidedAt),
		StockProcessedAt:    formatTimePtr(r.StockProcessedAt),
		DeliveredAt:         formatTimePtr(r.DeliveredAt),
	}

	if r.Requester != nil {
		resp.RequesterName = r.Requester.Username
	}
	if r.ApproverID != nil {
		id := r.ApproverID.String()
		resp.ApproverID = &id
	}
	if r.Approver != nil {
		resp.ApproverName = r.Approver.Username
	}
	if includeHistory {
		resp.History = make([]AuditEntryResponse, 0, len(r.History))
		for i := range r.History {
			resp.History = append(resp.History, toAuditEntryResponse(&r.History[i]))
		}
	}

	return resp
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}
