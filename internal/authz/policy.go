package authz

import (
	"errors"
	"fmt"

	"almoxarifado-api/internal/model"

	"github.com/shopspring/decimal"
)

// Sentinel errors for policy decisions.
var (
	// ErrUnauthorized is returned when role, ownership or the self-approval
	// rule forbids the action.
	ErrUnauthorized = errors.New("authz: unauthorized")

	// ErrLimitExceeded is returned when a deployment-configured submit ceiling
	// is violated.
	ErrLimitExceeded = errors.New("authz: submit limit exceeded")
)

// Limits holds optional per-request ceilings enforced at submit time.
// Zero values disable the corresponding check.
type Limits struct {
	MaxItems int
	MaxValue decimal.Decimal
}

// Enabled reports whether any ceiling is configured
func (l Limits) Enabled() bool {
	return l.MaxItems > 0 || l.MaxValue.IsPositive()
}

// ownerOnly actions may only be performed by the requester of the request
var ownerOnly = map[string]bool{
	model.ActionSubmit:      true,
	model.ActionCancel:      true,
	model.ActionUpdateDraft: true,
}

// decisionActions are forbidden to the requester regardless of role
var decisionActions = map[string]bool{
	model.ActionApprove:     true,
	model.ActionReject:      true,
	model.ActionStockAccept: true,
	model.ActionStockReject: true,
}

// requiredCapability maps each per-request action to its capability flag.
// Owner-only actions need ownership, not a flag (except draft edits).
func hasCapability(caps Capabilities, action string) bool {
	switch action {
	case model.ActionSubmit, model.ActionCancel:
		return true // ownership is the capability
	case model.ActionUpdateDraft:
		return caps.CanEditOwn
	case model.ActionApprove, model.ActionReject:
		return caps.CanApprove
	case model.ActionStockAccept, model.ActionStockReject, model.ActionDeliver:
		return caps.CanProcessStock
	}
	return false
}

// Authorize is the single policy decision point for per-request actions.
// It is pure: the verdict depends only on the arguments.
//
// Evaluation order:
//  1. ownership — owner-only actions require actor == requester
//  2. self-approval — decision actions are always denied to the requester
//  3. capability — the actor's role must carry the matching flag
//  4. ceilings — optional submit-time limits, when configured
func Authorize(actor Actor, action string, req *model.Request, limits Limits) error {
	if ownerOnly[action] && actor.ID != req.RequesterID {
		return fmt.Errorf("%w: only the requester may %s request %s",
			ErrUnauthorized, action, req.Code)
	}

	if decisionActions[action] && actor.ID == req.RequesterID {
		return fmt.Errorf("%w: %s cannot %s their own request %s",
			ErrUnauthorized, actor.Role, action, req.Code)
	}

	if !hasCapability(actor.Capabilities, action) {
		return fmt.Errorf("%w: role %s lacks the capability for %s",
			ErrUnauthorized, actor.Role, action)
	}

	if action == model.ActionSubmit && limits.Enabled() {
		if limits.MaxItems > 0 && len(req.Items) > limits.MaxItems {
			return fmt.Errorf("%w: request has %d items, maximum is %d",
				ErrLimitExceeded, len(req.Items), limits.MaxItems)
		}
		if limits.MaxValue.IsPositive() {
			if total := req.EstimatedTotalValue(); total.GreaterThan(limits.MaxValue) {
				return fmt.Errorf("%w: estimated value %s exceeds maximum %s",
					ErrLimitExceeded, total.StringFixed(2), limits.MaxValue.StringFixed(2))
			}
		}
	}

	return nil
}

// AuthorizeCreate gates request creation, which has no target entity yet
func AuthorizeCreate(actor Actor) error {
	if !actor.Capabilities.CanCreateRequest {
		return fmt.Errorf("%w: role %s cannot create requests", ErrUnauthorized, actor.Role)
	}
	return nil
}

// AuthorizeView gates read access to requests and queues
func AuthorizeView(actor Actor) error {
	if !actor.Capabilities.CanView {
		return fmt.Errorf("%w: role %s cannot view requests", ErrUnauthorized, actor.Role)
	}
	return nil
}
