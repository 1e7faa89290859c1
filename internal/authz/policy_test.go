package authz

import (
	"testing"

	"almoxarifado-api/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRequest(requester uuid.UUID, status string, items int) *model.Request {
	req := &model.Request{
		ID:          uuid.New(),
		Code:        "SOL-00001",
		Status:      status,
		RequesterID: requester,
	}
	for i := 0; i < items; i++ {
		req.Items = append(req.Items, model.RequestItem{
			QuantityRequested: 2,
			UnitValueEstimate: decimal.NewFromInt(10),
		})
	}
	return req
}

func TestAuthorize_OwnerOnlyActions(t *testing.T) {
	owner := NewActor(uuid.New(), RoleTecnico)
	other := NewActor(uuid.New(), RoleTecnico)
	req := newRequest(owner.ID, model.StatusDraft, 1)

	for _, action := range []string{model.ActionSubmit, model.ActionCancel, model.ActionUpdateDraft} {
		assert.NoError(t, Authorize(owner, action, req, Limits{}), action)

		err := Authorize(other, action, req, Limits{})
		assert.ErrorIs(t, err, ErrUnauthorized, action)
	}
}

func TestAuthorize_SelfApprovalDenied(t *testing.T) {
	// A gerente may approve, but never their own request — not even admin
	for _, role := range []string{RoleGerente, RoleCoordenador, RoleAdmin} {
		actor := NewActor(uuid.New(), role)
		own := newRequest(actor.ID, model.StatusPendingApproval, 1)

		err := Authorize(actor, model.ActionApprove, own, Limits{})
		require.ErrorIs(t, err, ErrUnauthorized, role)

		err = Authorize(actor, model.ActionReject, own, Limits{})
		require.ErrorIs(t, err, ErrUnauthorized, role)
	}
}

func TestAuthorize_CapabilityMatrix(t *testing.T) {
	requester := uuid.New()
	pending := newRequest(requester, model.StatusPendingApproval, 1)
	approved := newRequest(requester, model.StatusApproved, 1)

	cases := []struct {
		role    string
		action  string
		req     *model.Request
		allowed bool
	}{
		{RoleGerente, model.ActionApprove, pending, true},
		{RoleCoordenador, model.ActionApprove, pending, true},
		{RoleAdmin, model.ActionApprove, pending, true},
		{RoleTecnico, model.ActionApprove, pending, false},
		{RoleAnalista, model.ActionApprove, pending, false},
		{RoleAprendiz, model.ActionApprove, pending, false},
		{RoleEstagiario, model.ActionApprove, pending, false},
		// admin_estoque processes stock but never approves
		{RoleAdminEstoque, model.ActionApprove, pending, false},
		{RoleAdminEstoque, model.ActionStockAccept, approved, true},
		{RoleAdminEstoque, model.ActionStockReject, approved, true},
		{RoleAdmin, model.ActionStockAccept, approved, true},
		{RoleGerente, model.ActionStockAccept, approved, false},
		{RoleTecnico, model.ActionStockAccept, approved, false},
	}

	for _, tc := range cases {
		actor := NewActor(uuid.New(), tc.role)
		err := Authorize(actor, tc.action, tc.req, Limits{})
		if tc.allowed {
			assert.NoError(t, err, "%s %s", tc.role, tc.action)
		} else {
			assert.ErrorIs(t, err, ErrUnauthorized, "%s %s", tc.role, tc.action)
		}
	}
}

func TestAuthorizeCreate(t *testing.T) {
	allowed := []string{RoleTecnico, RoleAnalista, RoleCoordenador, RoleGerente, RoleAdminEstoque, RoleAdmin}
	for _, role := range allowed {
		assert.NoError(t, AuthorizeCreate(NewActor(uuid.New(), role)), role)
	}

	for _, role := range []string{RoleAprendiz, RoleEstagiario} {
		assert.ErrorIs(t, AuthorizeCreate(NewActor(uuid.New(), role)), ErrUnauthorized, role)
	}
}

func TestAuthorizeView(t *testing.T) {
	for _, role := range Roles() {
		assert.NoError(t, AuthorizeView(NewActor(uuid.New(), role)), role)
	}
	assert.ErrorIs(t, AuthorizeView(NewActor(uuid.New(), "unknown")), ErrUnauthorized)
}

func TestAuthorize_SubmitLimits(t *testing.T) {
	owner := NewActor(uuid.New(), RoleTecnico)

	t.Run("disabled by default", func(t *testing.T) {
		req := newRequest(owner.ID, model.StatusDraft, 50)
		assert.NoError(t, Authorize(owner, model.ActionSubmit, req, Limits{}))
	})

	t.Run("max items", func(t *testing.T) {
		limits := Limits{MaxItems: 2}
		within := newRequest(owner.ID, model.StatusDraft, 2)
		assert.NoError(t, Authorize(owner, model.ActionSubmit, within, limits))

		over := newRequest(owner.ID, model.StatusDraft, 3)
		assert.ErrorIs(t, Authorize(owner, model.ActionSubmit, over, limits), ErrLimitExceeded)
	})

	t.Run("max value", func(t *testing.T) {
		limits := Limits{MaxValue: decimal.NewFromInt(50)}
		// 2 items * qty 2 * 10.00 = 40.00
		within := newRequest(owner.ID, model.StatusDraft, 2)
		assert.NoError(t, Authorize(owner, model.ActionSubmit, within, limits))

		// 3 items * qty 2 * 10.00 = 60.00
		over := newRequest(owner.ID, model.StatusDraft, 3)
		assert.ErrorIs(t, Authorize(owner, model.ActionSubmit, over, limits), ErrLimitExceeded)
	})

	t.Run("limits only apply to submit", func(t *testing.T) {
		limits := Limits{MaxItems: 1}
		req := newRequest(owner.ID, model.StatusDraft, 5)
		assert.NoError(t, Authorize(owner, model.ActionCancel, req, limits))
	})
}

func TestHas(t *testing.T) {
	assert.True(t, Has(RoleGerente, "can_approve"))
	assert.False(t, Has(RoleAdminEstoque, "can_approve"))
	assert.True(t, Has(RoleAdminEstoque, "can_process_stock"))
	assert.True(t, Has(RoleAdmin, "can_manage_users"))
	assert.False(t, Has(RoleGerente, "can_manage_users"))
	assert.False(t, Has(RoleEstagiario, "can_create_request"))
	assert.False(t, Has("unknown", "can_view"))
	assert.False(t, Has(RoleAdmin, "not_a_capability"))
}
