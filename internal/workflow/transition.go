package workflow

import (
	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"

	"github.com/google/uuid"
)

// Payload carries the action-specific data of a transition command.
type Payload struct {
	// Note is an optional remark recorded on approve and stock_accept
	Note string `json:"note"`

	// Reason is required on reject and stock_reject
	Reason string `json:"reason"`

	// ApprovedQuantities optionally overrides per-item approved quantities on
	// approve. Items absent from the map are approved in full; a zero entry
	// rejects the item.
	ApprovedQuantities map[uuid.UUID]int `json:"approvedQuantities"`

	// DeliveredQuantities is required on deliver, one entry per approved item
	DeliveredQuantities map[uuid.UUID]int `json:"deliveredQuantities"`
}

// Transition describes one edge of the lifecycle graph
type Transition struct {
	Action  string
	Sources []string
	Target  string
}

// AllowsSource reports whether the transition may start from status
func (t Transition) AllowsSource(status string) bool {
	for _, s := range t.Sources {
		if s == status {
			return true
		}
	}
	return false
}

// transitions is the lifecycle graph. The capability each edge requires lives
// in the authorization policy, keyed by the same action names.
var transitions = map[string]Transition{
	model.ActionSubmit: {
		Action:  model.ActionSubmit,
		Sources: []string{model.StatusDraft},
		Target:  model.StatusPendingApproval,
	},
	model.ActionCancel: {
		Action:  model.ActionCancel,
		Sources: []string{model.StatusDraft, model.StatusPendingApproval},
		Target:  model.StatusCancelled,
	},
	model.ActionApprove: {
		Action:  model.ActionApprove,
		Sources: []string{model.StatusPendingApproval},
		Target:  model.StatusApproved,
	},
	model.ActionReject: {
		Action:  model.ActionReject,
		Sources: []string{model.StatusPendingApproval},
		Target:  model.StatusRejected,
	},
	model.ActionStockAccept: {
		Action:  model.ActionStockAccept,
		Sources: []string{model.StatusApproved},
		Target:  model.StatusProcessingStock,
	},
	model.ActionStockReject: {
		Action:  model.ActionStockReject,
		Sources: []string{model.StatusApproved, model.StatusProcessingStock},
		Target:  model.StatusRejectedByStock,
	},
	model.ActionDeliver: {
		Action:  model.ActionDeliver,
		Sources: []string{model.StatusProcessingStock},
		Target:  model.StatusDelivered,
	},
}

// Lookup returns the transition for an action, if the action is a lifecycle edge
func Lookup(action string) (Transition, bool) {
	t, ok := transitions[action]
	return t, ok
}

// Validate checks a transition command against the request as read by the
// caller. It is pure — success means the command may be attempted; the
// compare-and-swap at the storage boundary still arbitrates races.
//
// Check order: transition legality, then authorization, then payload.
func Validate(req *model.Request, actor authz.Actor, action string, payload Payload, limits authz.Limits) error {
	t, ok := Lookup(action)
	if !ok {
		return Validation(action, "unknown action %q", action)
	}

	if !t.AllowsSource(req.Status) {
		return invalidTransition(action, req.Status)
	}

	if err := authz.Authorize(actor, action, req, limits); err != nil {
		return err
	}

	return validatePayload(req, action, payload)
}

func validatePayload(req *model.Request, action string, payload Payload) error {
	switch action {
	case model.ActionReject, model.ActionStockReject:
		if payload.Reason == "" {
			return Validation(action, "a reason is required")
		}

	case model.ActionApprove:
		for itemID, qty := range payload.ApprovedQuantities {
			item := findItem(req, itemID)
			if item == nil {
				return Validation(action, "item %s does not belong to request %s", itemID, req.Code)
			}
			if qty < 0 || qty > item.QuantityRequested {
				return Validation(action, "approved quantity %d for %q must be between 0 and %d",
					qty, item.Name, item.QuantityRequested)
			}
		}

	case model.ActionDeliver:
		for itemID, qty := range payload.DeliveredQuantities {
			item := findItem(req, itemID)
			if item == nil {
				return Validation(action, "item %s does not belong to request %s", itemID, req.Code)
			}
			if qty < 0 || qty > item.QuantityApproved {
				return Validation(action, "delivered quantity %d for %q must be between 0 and %d",
					qty, item.Name, item.QuantityApproved)
			}
		}
		for i := range req.Items {
			item := &req.Items[i]
			if item.QuantityApproved == 0 {
				continue
			}
			if _, ok := payload.DeliveredQuantities[item.ID]; !ok {
				return Validation(action, "delivered quantity missing for item %q", item.Name)
			}
		}
	}
	return nil
}

func findItem(req *model.Request, itemID uuid.UUID) *model.RequestItem {
	for i := range req.Items {
		if req.Items[i].ID == itemID {
			return &req.Items[i]
		}
	}
	return nil
}

// Replay walks a request's history in order and returns the final status.
// It fails if the chain does not start at CREATE->DRAFT, breaks continuity, or
// uses an edge that is not in the lifecycle graph.
func Replay(history []model.AuditEntry) (string, error) {
	if len(history) == 0 {
		return "", Validation("replay", "history is empty")
	}

	first := history[0]
	if first.Action != model.ActionCreate || first.PreviousStatus != "" || first.NewStatus != model.StatusDraft {
		return "", Validation("replay", "history must start with CREATE into DRAFT")
	}

	status := first.NewStatus
	for _, entry := range history[1:] {
		if entry.PreviousStatus != status {
			return "", Validation("replay", "entry %s starts from %s but request was %s",
				entry.Action, entry.PreviousStatus, status)
		}
		t, ok := Lookup(entry.Action)
		if !ok {
			return "", Validation("replay", "unknown action %q in history", entry.Action)
		}
		if !t.AllowsSource(entry.PreviousStatus) || t.Target != entry.NewStatus {
			return "", Validation("replay", "%s from %s to %s is not a lifecycle edge",
				entry.Action, entry.PreviousStatus, entry.NewStatus)
		}
		status = entry.NewStatus
	}
	return status, nil
}
