package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"almoxarifado-api/internal/authz"
	"almoxarifado-api/internal/model"
	"almoxarifado-api/internal/service"
	"almoxarifado-api/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRequestService struct {
	resp *service.RequestResponse
	err  error

	lastAction string
}

func (s *stubRequestService) Create(ctx context.Context, actor authz.Actor, req service.CreateRequestDTO) (*service.RequestResponse, error) {
	return s.resp, s.err
}

func (s *stubRequestService) Get(ctx context.Context, actor authz.Actor, id string) (*service.RequestResponse, error) {
	return s.resp, s.err
}

func (s *stubRequestService) List(ctx context.Context, actor authz.Actor, filter service.ListRequestsFilter) ([]service.RequestResponse, int64, error) {
	return nil, 0, s.err
}

func (s *stubRequestService) UpdateDraft(ctx context.Context, actor authz.Actor, id string, req service.UpdateRequestDTO) (*service.RequestResponse, error) {
	return s.resp, s.err
}

func (s *stubRequestService) Transition(ctx context.Context, actor authz.Actor, id string, action string, payload workflow.Payload) (*service.RequestResponse, error) {
	s.lastAction = action
	return s.resp, s.err
}

func (s *stubRequestService) ApplyTransition(ctx context.Context, actor authz.Actor, req *model.Request, action string, payload workflow.Payload) (*service.RequestResponse, error) {
	return s.resp, s.err
}

func (s *stubRequestService) History(ctx context.Context, actor authz.Actor, id string) ([]service.AuditEntryResponse, error) {
	return nil, s.err
}

func newRouter(t *testing.T, stub *stubRequestService) *gin.Engine {
	t.Helper()
	t.Setenv("JWT_SECRET", "test_secret")
	gin.SetMode(gin.TestMode)

	router := gin.New()
	NewRequestHandler(stub).RegisterRoutes(router.Group(""))
	return router
}

func bearer(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  uuid.NewString(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte("test_secret"))
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(router *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body != "" {
		reader = strings.NewReader(body)
	} else {
		reader = strings.NewReader("")
	}
	req := httptest.NewRequest(method, path, reader)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRequestRoutesRequireAuth(t *testing.T) {
	router := newRouter(t, &stubRequestService{})

	w := doRequest(router, http.MethodGet, "/api/requests", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doRequest(router, http.MethodPost, "/api/requests/"+uuid.NewString()+"/submit", "Bearer nonsense", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestErrorStatusMapping(t *testing.T) {
	id := uuid.NewString()
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"unauthorized", authz.ErrUnauthorized, http.StatusForbidden},
		{"limit exceeded", authz.ErrLimitExceeded, http.StatusUnprocessableEntity},
		{"conflict", workflow.Conflict("", ""), http.StatusConflict},
		{"not found", workflow.ErrNotFound, http.StatusNotFound},
		{"validation", workflow.Validation("SUBMIT", "bad payload"), http.StatusBadRequest},
		{"illegal edge", workflow.ErrInvalidTransition, http.StatusUnprocessableEntity},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newRouter(t, &stubRequestService{err: tc.err})
			w := doRequest(router, http.MethodPost, "/api/requests/"+id+"/submit", bearer(t, authz.RoleTecnico), "")
			assert.Equal(t, tc.status, w.Code)
		})
	}
}

func TestTransitionRoutesDispatchActions(t *testing.T) {
	id := uuid.NewString()
	routes := map[string]string{
		"submit":       model.ActionSubmit,
		"cancel":       model.ActionCancel,
		"approve":      model.ActionApprove,
		"reject":       model.ActionReject,
		"stock-accept": model.ActionStockAccept,
		"stock-reject": model.ActionStockReject,
		"deliver":      model.ActionDeliver,
	}

	for path, action := range routes {
		stub := &stubRequestService{resp: &service.RequestResponse{ID: id}}
		router := newRouter(t, stub)

		w := doRequest(router, http.MethodPost, "/api/requests/"+id+"/"+path, bearer(t, authz.RoleAdmin), "")
		assert.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, action, stub.lastAction, path)
	}
}

func TestTransitionBodyToPayload(t *testing.T) {
	itemID := uuid.New()

	payload, err := TransitionBody{
		Reason:              "sem estoque",
		ApprovedQuantities:  map[string]int{itemID.String(): 3},
		DeliveredQuantities: map[string]int{itemID.String(): 2},
	}.toPayload()
	require.NoError(t, err)
	assert.Equal(t, "sem estoque", payload.Reason)
	assert.Equal(t, 3, payload.ApprovedQuantities[itemID])
	assert.Equal(t, 2, payload.DeliveredQuantities[itemID])

	_, err = TransitionBody{ApprovedQuantities: map[string]int{"not-a-uuid": 1}}.toPayload()
	assert.ErrorIs(t, err, workflow.ErrValidation)
}

func TestCreateRequestValidatesBody(t *testing.T) {
	router := newRouter(t, &stubRequestService{resp: &service.RequestResponse{}})

	// Missing required fields
	w := doRequest(router, http.MethodPost, "/api/requests", bearer(t, authz.RoleTecnico), `{"title":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Unknown request type
	w = doRequest(router, http.MethodPost, "/api/requests", bearer(t, authz.RoleTecnico),
		`{"title":"x","requestType":"LOAN","items":[{"name":"a","quantityRequested":1}]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/requests", bearer(t, authz.RoleTecnico),
		`{"title":"x","requestType":"WITHDRAWAL","items":[{"name":"a","quantityRequested":1}]}`)
	assert.Equal(t, http.StatusCreated, w.Code)
}
