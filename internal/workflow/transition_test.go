package workflow

import (
	"testing"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pendingRequest(requester uuid.UUID) *model.Request {
	return &model.Request{
		ID:          uuid.New(),
		Code:        "SOL-00042",
		Status:      model.StatusPendingApproval,
		RequesterID: requester,
		Items: []model.RequestItem{
			{ID: uuid.New(), Name: "cabo de rede", QuantityRequested: 10},
		},
	}
}

func TestLookup(t *testing.T) {
	for _, action := range []string{
		model.ActionSubmit, model.ActionCancel, model.ActionApprove, model.ActionReject,
		model.ActionStockAccept, model.ActionStockReject, model.ActionDeliver,
	} {
		_, ok := Lookup(action)
		assert.True(t, ok, action)
	}

	// CREATE and UPDATE_DRAFT are not lifecycle edges
	_, ok := Lookup(model.ActionCreate)
	assert.False(t, ok)
	_, ok = Lookup(model.ActionUpdateDraft)
	assert.False(t, ok)
}

func TestTransitionGraph(t *testing.T) {
	cases := []struct {
		action  string
		from    string
		allowed bool
	}{
		{model.ActionSubmit, model.StatusDraft, true},
		{model.ActionSubmit, model.StatusPendingApproval, false},
		{model.ActionSubmit, model.StatusRejected, false},

		{model.ActionCancel, model.StatusDraft, true},
		{model.ActionCancel, model.StatusPendingApproval, true},
		{model.ActionCancel, model.StatusApproved, false},
		{model.ActionCancel, model.StatusDelivered, false},

		{model.ActionApprove, model.StatusPendingApproval, true},
		{model.ActionApprove, model.StatusDraft, false},
		{model.ActionApprove, model.StatusRejected, false},

		{model.ActionReject, model.StatusPendingApproval, true},
		{model.ActionReject, model.StatusApproved, false},

		{model.ActionStockAccept, model.StatusApproved, true},
		{model.ActionStockAccept, model.StatusPendingApproval, false},

		{model.ActionStockReject, model.StatusApproved, true},
		{model.ActionStockReject, model.StatusProcessingStock, true},
		{model.ActionStockReject, model.StatusDelivered, false},

		{model.ActionDeliver, model.StatusProcessingStock, true},
		{model.ActionDeliver, model.StatusDraft, false},
		{model.ActionDeliver, model.StatusApproved, false},
	}

	for _, tc := range cases {
		tr, ok := Lookup(tc.action)
		require.True(t, ok, tc.action)
		assert.Equal(t, tc.allowed, tr.AllowsSource(tc.from), "%s from %s", tc.action, tc.from)
	}
}

func TestTerminalStatusesHaveNoEdges(t *testing.T) {
	terminals := []string{
		model.StatusRejected, model.StatusRejectedByStock,
		model.StatusDelivered, model.StatusCancelled,
	}
	actions := []string{
		model.ActionSubmit, model.ActionCancel, model.ActionApprove, model.ActionReject,
		model.ActionStockAccept, model.ActionStockReject, model.ActionDeliver,
	}

	for _, status := range terminals {
		require.True(t, model.IsTerminalStatus(status), status)
		for _, action := range actions {
			tr, _ := Lookup(action)
			assert.False(t, tr.AllowsSource(status), "%s from %s", action, status)
		}
	}
}

func TestValidate_ChecksLegalityBeforeAuthorization(t *testing.T) {
	// An unauthorized actor hitting an illegal edge sees the transition error;
	// status legality is evaluated first
	req := pendingRequest(uuid.New())
	req.Status = model.StatusDraft
	viewer := authz.NewActor(uuid.New(), authz.RoleAprendiz)

	err := Validate(req, viewer, model.ActionApprove, Payload{}, authz.Limits{})
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestValidate_RejectRequiresReason(t *testing.T) {
	req := pendingRequest(uuid.New())
	approver := authz.NewActor(uuid.New(), authz.RoleGerente)

	err := Validate(req, approver, model.ActionReject, Payload{}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)

	err = Validate(req, approver, model.ActionReject, Payload{Reason: "sem orçamento"}, authz.Limits{})
	assert.NoError(t, err)
}

func TestValidate_StockRejectRequiresReason(t *testing.T) {
	req := pendingRequest(uuid.New())
	req.Status = model.StatusApproved
	warehouse := authz.NewActor(uuid.New(), authz.RoleAdminEstoque)

	err := Validate(req, warehouse, model.ActionStockReject, Payload{}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)

	err = Validate(req, warehouse, model.ActionStockReject, Payload{Reason: "item esgotado"}, authz.Limits{})
	assert.NoError(t, err)
}

func TestValidate_ApproveQuantityBounds(t *testing.T) {
	req := pendingRequest(uuid.New())
	itemID := req.Items[0].ID
	approver := authz.NewActor(uuid.New(), authz.RoleGerente)

	// Full approval needs no quantities
	assert.NoError(t, Validate(req, approver, model.ActionApprove, Payload{}, authz.Limits{}))

	// Partial approval within bounds
	assert.NoError(t, Validate(req, approver, model.ActionApprove, Payload{
		ApprovedQuantities: map[uuid.UUID]int{itemID: 5},
	}, authz.Limits{}))

	// Zero rejects the item, still valid
	assert.NoError(t, Validate(req, approver, model.ActionApprove, Payload{
		ApprovedQuantities: map[uuid.UUID]int{itemID: 0},
	}, authz.Limits{}))

	// Above the requested quantity
	err := Validate(req, approver, model.ActionApprove, Payload{
		ApprovedQuantities: map[uuid.UUID]int{itemID: 11},
	}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)

	// Unknown item id
	err = Validate(req, approver, model.ActionApprove, Payload{
		ApprovedQuantities: map[uuid.UUID]int{uuid.New(): 1},
	}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestValidate_DeliverQuantities(t *testing.T) {
	req := pendingRequest(uuid.New())
	req.Status = model.StatusProcessingStock
	req.Items[0].QuantityApproved = 8
	itemID := req.Items[0].ID
	warehouse := authz.NewActor(uuid.New(), authz.RoleAdminEstoque)

	// Every approved item needs a delivered quantity
	err := Validate(req, warehouse, model.ActionDeliver, Payload{}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)

	// Within the approved quantity
	assert.NoError(t, Validate(req, warehouse, model.ActionDeliver, Payload{
		DeliveredQuantities: map[uuid.UUID]int{itemID: 8},
	}, authz.Limits{}))

	// Above the approved quantity
	err = Validate(req, warehouse, model.ActionDeliver, Payload{
		DeliveredQuantities: map[uuid.UUID]int{itemID: 9},
	}, authz.Limits{})
	assert.ErrorIs(t, err, ErrValidation)

	// Items rejected at approval need no entry
	req.Items = append(req.Items, model.RequestItem{
		ID: uuid.New(), Name: "mouse", QuantityRequested: 2, QuantityApproved: 0,
	})
	assert.NoError(t, Validate(req, warehouse, model.ActionDeliver, Payload{
		DeliveredQuantities: map[uuid.UUID]int{itemID: 4},
	}, authz.Limits{}))
}

func TestReplay(t *testing.T) {
	reqID := uuid.New()
	actor := uuid.New()
	entry := func(action, from, to string) model.AuditEntry {
		return model.AuditEntry{
			RequestID:      reqID,
			ActorID:        actor,
			Action:         action,
			PreviousStatus: from,
			NewStatus:      to,
		}
	}

	t.Run("full lifecycle", func(t *testing.T) {
		status, err := Replay([]model.AuditEntry{
			entry(model.ActionCreate, "", model.StatusDraft),
			entry(model.ActionSubmit, model.StatusDraft, model.StatusPendingApproval),
			entry(model.ActionApprove, model.StatusPendingApproval, model.StatusApproved),
			entry(model.ActionStockAccept, model.StatusApproved, model.StatusProcessingStock),
			entry(model.ActionDeliver, model.StatusProcessingStock, model.StatusDelivered),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusDelivered, status)
	})

	t.Run("empty history", func(t *testing.T) {
		_, err := Replay(nil)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("must start with create", func(t *testing.T) {
		_, err := Replay([]model.AuditEntry{
			entry(model.ActionSubmit, model.StatusDraft, model.StatusPendingApproval),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("broken chain", func(t *testing.T) {
		_, err := Replay([]model.AuditEntry{
			entry(model.ActionCreate, "", model.StatusDraft),
			entry(model.ActionApprove, model.StatusPendingApproval, model.StatusApproved),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("edge not in the graph", func(t *testing.T) {
		_, err := Replay([]model.AuditEntry{
			entry(model.ActionCreate, "", model.StatusDraft),
			entry(model.ActionDeliver, model.StatusDraft, model.StatusDelivered),
		})
		assert.ErrorIs(t, err, ErrValidation)
	})
}
