package service

import (
	"context"
	"testing"
	"time"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/repository"
	"almoxarifado-api/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApprovalQueue(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	queues := NewQueueService(f.requests)

	tecnico := f.seedUser(t, authz.RoleTecnico)
	gerente := f.seedUser(t, authz.RoleGerente)

	// Two pending requests from tecnico, one from gerente, one still draft
	a := f.createDraft(t, tecnico)
	b := f.createDraft(t, tecnico)
	own := f.createDraft(t, gerente)
	f.createDraft(t, tecnico)

	for _, r := range []*RequestResponse{a, b} {
		_, err := f.svc.Transition(ctx, tecnico, r.ID, model.ActionSubmit, workflow.Payload{})
		require.NoError(t, err)
	}
	_, err := f.svc.Transition(ctx, gerente, own.ID, model.ActionSubmit, workflow.Payload{})
	require.NoError(t, err)

	// The approver never sees their own submission in the queue
	pending, total, err := queues.PendingApproval(ctx, gerente, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	for _, r := range pending {
		assert.NotEqual(t, own.ID, r.ID)
		assert.Equal(t, model.StatusPendingApproval, r.Status)
	}

	// Roles without the approval capability are denied
	_, _, err = queues.PendingApproval(ctx, tecnico, 1, 10)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
}

func TestStockQueue(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	queues := NewQueueService(f.requests)

	tecnico := f.seedUser(t, authz.RoleTecnico)
	gerente := f.seedUser(t, authz.RoleGerente)
	estoque := f.seedUser(t, authz.RoleAdminEstoque)

	approved := f.createDraft(t, tecnico)
	processing := f.createDraft(t, tecnico)
	f.createDraft(t, tecnico) // stays in draft

	for _, r := range []*RequestResponse{approved, processing} {
		_, err := f.svc.Transition(ctx, tecnico, r.ID, model.ActionSubmit, workflow.Payload{})
		require.NoError(t, err)
		_, err = f.svc.Transition(ctx, gerente, r.ID, model.ActionApprove, workflow.Payload{})
		require.NoError(t, err)
	}
	_, err := f.svc.Transition(ctx, estoque, processing.ID, model.ActionStockAccept, workflow.Payload{})
	require.NoError(t, err)

	// Both APPROVED and PROCESSING_STOCK sit in the warehouse queue
	queue, total, err := queues.Stock(ctx, estoque, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, queue, 2)

	_, _, err = queues.Stock(ctx, gerente, 1, 10)
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
}

func TestQueueCounts(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	queues := NewQueueService(f.requests)

	tecnico := f.seedUser(t, authz.RoleTecnico)
	gerente := f.seedUser(t, authz.RoleGerente)
	estoque := f.seedUser(t, authz.RoleAdminEstoque)
	admin := f.seedUser(t, authz.RoleAdmin)

	pending := f.createDraft(t, tecnico)
	approved := f.createDraft(t, tecnico)
	for _, r := range []*RequestResponse{pending, approved} {
		_, err := f.svc.Transition(ctx, tecnico, r.ID, model.ActionSubmit, workflow.Payload{})
		require.NoError(t, err)
	}
	_, err := f.svc.Transition(ctx, gerente, approved.ID, model.ActionApprove, workflow.Payload{})
	require.NoError(t, err)

	counts, err := queues.Counts(ctx, gerente)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.PendingApproval)
	assert.EqualValues(t, 0, counts.Stock) // no stock capability

	counts, err = queues.Counts(ctx, estoque)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts.PendingApproval)
	assert.EqualValues(t, 1, counts.Stock)

	counts, err = queues.Counts(ctx, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 1, counts.PendingApproval)
	assert.EqualValues(t, 1, counts.Stock)

	counts, err = queues.Counts(ctx, tecnico)
	require.NoError(t, err)
	assert.EqualValues(t, 0, counts.PendingApproval)
	assert.EqualValues(t, 0, counts.Stock)
}

func TestStockServiceRegisterAndList(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	stockSvc := NewStockService(f.stock)

	estoque := f.seedUser(t, authz.RoleAdminEstoque)
	tecnico := f.seedUser(t, authz.RoleTecnico)

	item, err := stockSvc.Register(ctx, estoque, RegisterStockItemDTO{
		SKU:          "CB-USB-C",
		Name:         "cabo USB-C",
		Unit:         "un",
		InitialStock: 25,
		UnitValue:    "19.90",
	})
	require.NoError(t, err)
	assert.Equal(t, 25, item.CurrentStock)

	// Duplicate SKU
	_, err = stockSvc.Register(ctx, estoque, RegisterStockItemDTO{SKU: "CB-USB-C", Name: "outro"})
	assert.ErrorIs(t, err, workflow.ErrValidation)

	// Registration needs the stock capability
	_, err = stockSvc.Register(ctx, tecnico, RegisterStockItemDTO{SKU: "X", Name: "x"})
	assert.ErrorIs(t, err, authz.ErrUnauthorized)

	// Any viewer can browse the catalog
	items, total, err := stockSvc.List(ctx, tecnico, "usb", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, items, 1)

	got, err := stockSvc.Get(ctx, tecnico, item.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "CB-USB-C", got.SKU)
}

func TestAuditServiceList(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()

	auditSvc := NewAuditService(repository.NewAuditRepository(f.db))

	tecnico := f.seedUser(t, authz.RoleTecnico)
	gerente := f.seedUser(t, authz.RoleGerente)

	resp := f.createDraft(t, tecnico)
	_, err := f.svc.Transition(ctx, tecnico, resp.ID, model.ActionSubmit, workflow.Payload{})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, gerente, resp.ID, model.ActionApprove, workflow.Payload{})
	require.NoError(t, err)

	entries, total, err := auditSvc.List(ctx, gerente, "", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 3)

	approvals, total, err := auditSvc.List(ctx, gerente, model.ActionApprove, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, approvals, 1)
	assert.Equal(t, gerente.ID.String(), approvals[0].ActorID)
}

func TestReportSummary(t *testing.T) {
	f := newFixture(t, authz.Limits{})
	ctx := context.Background()
	reports := NewReportService(f.db)

	tecnico := f.seedUser(t, authz.RoleTecnico)
	gerente := f.seedUser(t, authz.RoleGerente)
	estoque := f.seedUser(t, authz.RoleAdminEstoque)

	// One delivered, one still pending
	delivered := f.createDraft(t, tecnico, ItemInput{Name: "cabo", QuantityRequested: 2, UnitValueEstimate: "10.00"})
	_, err := f.svc.Transition(ctx, tecnico, delivered.ID, model.ActionSubmit, workflow.Payload{})
	require.NoError(t, err)
	resp, err := f.svc.Transition(ctx, gerente, delivered.ID, model.ActionApprove, workflow.Payload{})
	require.NoError(t, err)
	resp, err = f.svc.Transition(ctx, estoque, delivered.ID, model.ActionStockAccept, workflow.Payload{})
	require.NoError(t, err)
	_, err = f.svc.Transition(ctx, estoque, delivered.ID, model.ActionDeliver, f.deliverAll(resp))
	require.NoError(t, err)

	pending := f.createDraft(t, tecnico, ItemInput{Name: "mouse", QuantityRequested: 1, UnitValueEstimate: "45.00"})
	_, err = f.svc.Transition(ctx, tecnico, pending.ID, model.ActionSubmit, workflow.Payload{})
	require.NoError(t, err)

	start := time.Now().Add(-time.Hour)
	end := time.Now().Add(time.Hour)
	summary, err := reports.Summary(ctx, gerente, start, end)
	require.NoError(t, err)

	assert.EqualValues(t, 2, summary.RequestsCreated)
	assert.EqualValues(t, 1, summary.RequestsDelivered)
	assert.EqualValues(t, 1, summary.CountsByStatus[model.StatusDelivered])
	assert.EqualValues(t, 1, summary.CountsByStatus[model.StatusPendingApproval])
	assert.EqualValues(t, 2, summary.CountsByDepartment["TI"])
	assert.Equal(t, "20.00", summary.DeliveredTotalValue)
	assert.Equal(t, "65.00", summary.EstimatedTotalValue)
}
