package actions

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"trade_portal_backend/internal/actions/domain"
	"trade_portal_backend/internal/actions/repository"
	"trade_portal_backend/internal/events"
	apphttp "trade_portal_backend/internal/http"
	orderdomain "trade_portal_backend/internal/orders/domain"
	"trade_portal_backend/platform/clock"
	platformevents "trade_portal_backend/platform/events"
	"trade_portal_backend/platform/httpkit"
	"trade_portal_backend/platform/logger"
	"trade_portal_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type admins []uuid.UUID

func (a admins) ListAdminIDs(context.Context) ([]uuid.UUID, error) { return a, nil }

type harness struct {
	repo *repository.MemoryRepository
	bus  *platformevents.InMemoryBus
	mod  *Module
}

func newHarness(adminIDs ...uuid.UUID) *harness {
	h := &harness{
		repo: repository.NewMemory(),
		bus:  platformevents.NewInMemoryBus(logger.Discard()),
	}
	h.mod = NewModule(Deps{
		Repo:      h.repo,
		Admins:    admins(adminIDs),
		Bus:       h.bus,
		Validator: validator.New(),
		Clock:     clock.NewFixed(time.Date(2026, 7, 1, 9, 0, 0, 0, time.UTC)),
		Log:       logger.Discard(),
	})
	return h
}

func (h *harness) publish(t *testing.T, e events.Event) {
	t.Helper()
	if err := h.bus.PublishSync(context.Background(), e); err != nil {
		t.Fatalf("publish %s: %v", e.EventName(), err)
	}
}

func (h *harness) open(userID uuid.UUID) []domain.Notification {
	items, _ := h.repo.ListPending(context.Background(), userID, 0)
	return items
}

func TestActionRequired_EmitsForUserAndAdmins(t *testing.T) {
	admin := uuid.New()
	h := newHarness(admin)
	customer, order := uuid.New(), uuid.New()

	h.publish(t, events.ActionRequired{
		UserID:     customer,
		ActionType: string(domain.TypeAddressRequired),
		Payload:    json.RawMessage(`{"orderId":"` + order.String() + `"}`),
	})
	h.publish(t, events.ActionRequired{
		ActionType: string(domain.TypeOrderAtRisk),
		Payload:    json.RawMessage(`{"orderId":"` + order.String() + `","status":"processing","riskLevel":"breached","daysInCurrentStage":6}`),
	})

	if got := h.open(customer); len(got) != 1 || got[0].Type != domain.TypeAddressRequired {
		t.Fatalf("unexpected customer actions %+v", got)
	}
	if got := h.open(admin); len(got) != 1 || got[0].Type != domain.TypeOrderAtRisk {
		t.Fatalf("unexpected admin actions %+v", got)
	}
}

func TestActionRequired_RejectsBadPayload(t *testing.T) {
	h := newHarness()
	err := h.bus.PublishSync(context.Background(), events.ActionRequired{
		UserID:     uuid.New(),
		ActionType: string(domain.TypeQuoteReady),
		Payload:    json.RawMessage(`{}`),
	})
	if err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestPaymentProofUploaded_ResolvesPaymentActions(t *testing.T) {
	h := newHarness()
	customer, order := uuid.New(), uuid.New()
	mgr := h.mod.Manager()
	ctx := context.Background()

	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.PaymentRequired{OrderID: order, AmountCents: 100}})
	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.BalanceRequested{OrderID: order, BalanceCents: 100}})
	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.AddressRequired{OrderID: order}})

	h.publish(t, events.OrderPaymentProofUploaded{OrderID: order, CustomerID: customer})

	got := h.open(customer)
	if len(got) != 1 || got[0].Type != domain.TypeAddressRequired {
		t.Fatalf("only the address action should stay open, got %+v", got)
	}
}

func TestActionCompleted_NarrowsByType(t *testing.T) {
	h := newHarness()
	customer, quote := uuid.New(), uuid.New()
	ctx := context.Background()
	mgr := h.mod.Manager()

	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.QuoteReady{QuoteID: quote}})
	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.QuoteExpiring{QuoteID: quote, ExpiresAt: time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC)}})

	h.publish(t, events.ActionCompleted{EntityType: "quote", EntityID: quote, ActionTypes: []string{"quote_expiring"}})
	if got := h.open(customer); len(got) != 1 || got[0].Type != domain.TypeQuoteReady {
		t.Fatalf("unexpected open actions %+v", got)
	}

	h.publish(t, events.ActionCompleted{EntityType: "quote", EntityID: quote})
	if got := h.open(customer); len(got) != 0 {
		t.Fatalf("expected all quote actions resolved, got %+v", got)
	}
}

func TestOrdersAssigned_NotifiesAssignee(t *testing.T) {
	h := newHarness()
	operator, lead := uuid.New(), uuid.New()
	orders := []uuid.UUID{uuid.New(), uuid.New()}

	h.publish(t, events.OrdersAssigned{OrderIDs: orders, AssigneeID: operator, AssignedBy: lead})
	if got := h.open(operator); len(got) != 2 {
		t.Fatalf("expected two order_assigned actions, got %d", len(got))
	}

	h.publish(t, events.OrdersAssigned{OrderIDs: []uuid.UUID{uuid.New()}, AssigneeID: lead, AssignedBy: lead})
	if got := h.open(lead); len(got) != 0 {
		t.Fatalf("self-assignment must not notify, got %d", len(got))
	}
}

func TestOrderStatusChanged_ResolvesStaleActions(t *testing.T) {
	h := newHarness()
	customer, order := uuid.New(), uuid.New()
	ctx := context.Background()
	mgr := h.mod.Manager()

	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.PaymentRequired{OrderID: order, AmountCents: 100}})
	_, _ = mgr.Emit(ctx, domain.ActionEvent{UserID: customer, Variant: domain.AddressRequired{OrderID: order}})

	h.publish(t, events.OrderStatusChanged{OrderID: order, CustomerID: customer, PreviousStatus: "pending_payment", NewStatus: "processing"})
	if got := h.open(customer); len(got) != 1 || got[0].Type != domain.TypeAddressRequired {
		t.Fatalf("payment should resolve on processing, got %+v", got)
	}

	h.publish(t, events.OrderStatusChanged{OrderID: order, CustomerID: customer, PreviousStatus: "processing", NewStatus: "cancelled"})
	if got := h.open(customer); len(got) != 0 {
		t.Fatalf("cancelled orders keep no actions, got %+v", got)
	}
}

func TestStaleActionTypes(t *testing.T) {
	if got := staleActionTypes(orderdomain.StatusPendingPayment); got != nil {
		t.Fatalf("pending payment resolves nothing, got %v", got)
	}
	if got := staleActionTypes(orderdomain.StatusDelivered); got == nil || len(got) != 0 {
		t.Fatalf("terminal status resolves everything, got %v", got)
	}
	if got := staleActionTypes(orderdomain.StatusShipped); len(got) != 3 {
		t.Fatalf("shipped resolves payment, balance and address, got %v", got)
	}
}

func newRouter(h *harness, userID uuid.UUID, roles ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	v1 := engine.Group("/api/v1")
	protected := v1.Group("", func(c *gin.Context) {
		c.Set(httpkit.ContextUserIDKey, userID)
		c.Set(httpkit.ContextRolesKey, roles)
		c.Next()
	})
	h.mod.RegisterRoutes(&apphttp.RouterContext{
		Engine:    engine,
		V1:        v1,
		Protected: protected,
		Admin:     protected.Group(""),
	})
	return engine
}

func do(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestHTTP_EmitListAndResolve(t *testing.T) {
	h := newHarness()
	customer, order := uuid.New(), uuid.New()
	adminRouter := newRouter(h, uuid.New(), "admin")
	customerRouter := newRouter(h, customer, "user")

	rec := do(adminRouter, http.MethodPost, "/api/v1/operations/actions", map[string]any{
		"userId":  customer,
		"type":    "address_required",
		"payload": map[string]any{"orderId": order},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("emit: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = do(customerRouter, http.MethodGet, "/api/v1/actions", nil)
	var list struct {
		Items []struct {
			ID   uuid.UUID `json:"id"`
			Type string    `json:"type"`
		} `json:"items"`
		Total int `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || rec.Code != http.StatusOK {
		t.Fatalf("list: %d %v", rec.Code, err)
	}
	if list.Total != 1 || len(list.Items) != 1 || list.Items[0].Type != "address_required" {
		t.Fatalf("unexpected list %+v", list)
	}

	rec = do(adminRouter, http.MethodPost, "/api/v1/operations/actions/"+list.Items[0].ID.String()+"/resolve", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"resolved":true`)) {
		t.Fatalf("resolve: %d %s", rec.Code, rec.Body.String())
	}
	rec = do(adminRouter, http.MethodPost, "/api/v1/operations/actions/"+list.Items[0].ID.String()+"/resolve", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"resolved":false`)) {
		t.Fatalf("second resolve should be a no-op: %d %s", rec.Code, rec.Body.String())
	}

	rec = do(customerRouter, http.MethodGet, "/api/v1/actions/count", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"count":0`)) {
		t.Fatalf("count: %d %s", rec.Code, rec.Body.String())
	}
}

func TestHTTP_ValidationErrors(t *testing.T) {
	h := newHarness()
	router := newRouter(h, uuid.New(), "admin")

	cases := []struct {
		name string
		path string
		body any
	}{
		{"unknown type", "/api/v1/operations/actions", map[string]any{"userId": uuid.New(), "type": "teleport", "payload": map[string]any{}}},
		{"missing user", "/api/v1/operations/actions", map[string]any{"type": "quote_ready", "payload": map[string]any{"quoteId": uuid.New()}}},
		{"bad entity type", "/api/v1/operations/actions/resolve", map[string]any{"entityType": "lead", "entityId": uuid.New()}},
		{"customer action to admins", "/api/v1/operations/actions/admins", map[string]any{"type": "quote_ready", "payload": map[string]any{"quoteId": uuid.New()}}},
	}
	for _, tc := range cases {
		if rec := do(router, http.MethodPost, tc.path, tc.body); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d: %s", tc.name, rec.Code, rec.Body.String())
		}
	}

	if rec := do(router, http.MethodPost, "/api/v1/operations/actions/not-a-uuid/resolve", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}
