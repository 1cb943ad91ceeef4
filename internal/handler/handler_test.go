package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feiralocal/storefront/internal/backend"
	"github.com/feiralocal/storefront/internal/catalog"
	"github.com/feiralocal/storefront/internal/customer"
	"github.com/feiralocal/storefront/internal/payment"
)

// --- Mock backend slices ---

type mockOrderAPI struct {
	calls   atomic.Int64
	orderID string
	err     error
}

func (m *mockOrderAPI) CreateOrder(_ context.Context, _ backend.OrderRequest) (string, error) {
	m.calls.Add(1)
	return m.orderID, m.err
}

type mockPaymentAPI struct {
	calls atomic.Int64
	pref  *backend.Preference
	err   error
}

func (m *mockPaymentAPI) CreatePreference(_ context.Context, orderID string) (*backend.Preference, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	pref := *m.pref
	pref.OrderID = orderID
	return &pref, nil
}

type mockStatusAPI struct {
	fetches atomic.Int64
	payment *backend.Payment
	err     error
}

func (m *mockStatusAPI) PaymentByOrder(_ context.Context, _ string) (*backend.Payment, error) {
	m.fetches.Add(1)
	return m.payment, m.err
}

func (m *mockStatusAPI) RefreshStatus(_ context.Context, _ string) (*backend.Payment, error) {
	m.fetches.Add(1)
	return m.payment, m.err
}

type mockCatalogAPI struct {
	products []backend.Product
	stores   []backend.Store
	err      error
}

func (m *mockCatalogAPI) ListProducts(_ context.Context, _ backend.ProductFilter) ([]backend.Product, error) {
	return m.products, m.err
}

func (m *mockCatalogAPI) GetProduct(_ context.Context, id string) (*backend.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, &backend.StatusError{Code: 404}
}

func (m *mockCatalogAPI) ListStores(_ context.Context, _, _ int) ([]backend.Store, error) {
	return m.stores, m.err
}

func (m *mockCatalogAPI) GetStore(_ context.Context, id string) (*backend.Store, error) {
	for _, s := range m.stores {
		if s.ID == id {
			return &s, nil
		}
	}
	return nil, &backend.StatusError{Code: 404}
}

func (m *mockCatalogAPI) ListProductImages(_ context.Context, _ string) ([]backend.ProductImage, error) {
	return nil, nil
}

type mockAccountAPI struct {
	customer *backend.Customer
	err      error
}

func (m *mockAccountAPI) CustomerByEmail(_ context.Context, _ string) (*backend.Customer, error) {
	return m.customer, m.err
}

func (m *mockAccountAPI) CustomerByCPF(_ context.Context, _ string) (*backend.Customer, error) {
	return m.customer, m.err
}

func (m *mockAccountAPI) CreateCustomer(_ context.Context, _ backend.NewCustomer) (*backend.Customer, error) {
	return m.customer, m.err
}

// --- Harness ---

type env struct {
	srv      *httptest.Server
	client   *http.Client
	orders   *mockOrderAPI
	payments *mockPaymentAPI
	status   *mockStatusAPI
	accounts *mockAccountAPI
}

func newEnv(t *testing.T) *env {
	t.Helper()

	orders := &mockOrderAPI{orderID: "o1"}
	payments := &mockPaymentAPI{pref: &backend.Preference{
		ID:               "pref1",
		InitPoint:        "https://pago.example.com/init",
		SandboxInitPoint: "https://sandbox.pago.example.com/init",
		PaymentID:        "pay1",
	}}
	status := &mockStatusAPI{}
	accounts := &mockAccountAPI{}
	catalogAPI := &mockCatalogAPI{
		stores: []backend.Store{{ID: "loja1", Name: "Mercearia Central", Active: true}},
		products: []backend.Product{
			{ID: "p1", Name: "Pão de Queijo", Price: decimal.RequireFromString("10.00"), StoreID: "loja1"},
		},
	}

	sessions := NewSessionManager(orders, payments, false, time.Hour)
	h := NewHandler(
		sessions,
		catalog.NewService(catalogAPI),
		customer.NewService(accounts, customer.NewSession(nil, nil)),
		payment.NewResolver(status),
	)

	srv := httptest.NewServer(h.Routes())
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &env{
		srv:      srv,
		client:   &http.Client{Jar: jar},
		orders:   orders,
		payments: payments,
		status:   status,
		accounts: accounts,
	}
}

func (e *env) do(t *testing.T, method, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := e.client.Do(req)
	require.NoError(t, err)
	return resp
}

func decodeResp[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	defer resp.Body.Close()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func addItem(t *testing.T, e *env, id, price string) {
	t.Helper()
	resp := e.do(t, http.MethodPost, "/api/cart/items", map[string]any{
		"id":         id,
		"name":       "Produto " + id,
		"store_id":   "loja1",
		"store_name": "Mercearia Central",
		"price":      price,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

// --- Cart ---

func TestCartFlow(t *testing.T) {
	e := newEnv(t)

	addItem(t, e, "p1", "10.00")
	addItem(t, e, "p1", "10.00")
	addItem(t, e, "p2", "5.50")

	got := decodeResp[cartResponse](t, e.do(t, http.MethodGet, "/api/cart", nil))
	require.Len(t, got.Items, 2)
	assert.Equal(t, 3, got.Count)
	assert.Equal(t, 2, got.Items[0].Quantity)
	assert.True(t, decimal.RequireFromString("25.50").Equal(got.Subtotal))
	assert.True(t, decimal.RequireFromString("8.00").Equal(got.DeliveryFee))
	assert.True(t, decimal.RequireFromString("33.50").Equal(got.Total))

	// Clamp at one.
	resp := e.do(t, http.MethodPatch, "/api/cart/items/p2", map[string]any{"delta": -10})
	got = decodeResp[cartResponse](t, resp)
	assert.Equal(t, 1, got.Items[1].Quantity)

	resp = e.do(t, http.MethodDelete, "/api/cart/items/p1", nil)
	got = decodeResp[cartResponse](t, resp)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "p2", got.Items[0].ID)
}

func TestAddItem_MissingID(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/cart/items", map[string]any{"name": "x"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// --- Checkout ---

func TestCheckout_EmptyCart(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int64(0), e.orders.calls.Load())
}

func TestCheckout_SubmitOnce(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")

	got := decodeResp[submitOrderResponse](t, e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}))
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "created", got.State)

	// Re-entering checkout does not create a second order.
	got = decodeResp[submitOrderResponse](t, e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}))
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, int64(1), e.orders.calls.Load())
}

func TestCheckout_BackendFailureIsRetryable(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")
	e.orders.err = errors.New("connection refused")

	resp := e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"})
	got := decodeResp[errorResponse](t, resp)
	assert.Equal(t, http.StatusBadGateway, got.Code)
	assert.True(t, got.Retryable)

	// Cart untouched; retry succeeds.
	e.orders.err = nil
	got2 := decodeResp[submitOrderResponse](t, e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}))
	assert.Equal(t, "o1", got2.OrderID)
}

func TestPay_WithoutOrder(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")

	resp := e.do(t, http.MethodPost, "/api/checkout/pay", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, int64(0), e.payments.calls.Load())
}

func TestPay_ReturnsRedirect(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")
	e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}).Body.Close()

	got := decodeResp[payResponse](t, e.do(t, http.MethodPost, "/api/checkout/pay", nil))
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "https://pago.example.com/init", got.RedirectURL)
}

// --- Payment return ---

func TestPaymentReturn_MissingReference(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/payment/return?payment_id=pay1&status=approved", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, int64(0), e.status.fetches.Load())
}

func TestPaymentReturn_ApprovedClearsCart(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")
	e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}).Body.Close()

	e.status.payment = &backend.Payment{
		ID:            "pay1",
		OrderID:       "o1",
		Status:        backend.StatusApproved,
		Amount:        decimal.RequireFromString("18.00"),
		PaymentMethod: "visa",
	}

	got := decodeResp[outcomeResponse](t, e.do(t, http.MethodGet, "/api/payment/return?external_reference=o1&payment_id=pay1&status=approved", nil))
	assert.Equal(t, "approved", got.Outcome)
	assert.Equal(t, "o1", got.OrderID)
	assert.Equal(t, "pay1", got.PaymentID)
	assert.True(t, decimal.RequireFromString("18.00").Equal(got.Amount))
	assert.False(t, got.Retryable)

	cartNow := decodeResp[cartResponse](t, e.do(t, http.MethodGet, "/api/cart", nil))
	assert.Empty(t, cartNow.Items)
}

func TestPaymentReturn_RejectedKeepsOrderForRetry(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")
	e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}).Body.Close()

	e.status.payment = &backend.Payment{ID: "pay1", OrderID: "o1", Status: backend.StatusRejected}

	got := decodeResp[outcomeResponse](t, e.do(t, http.MethodGet, "/api/payment/return?external_reference=o1", nil))
	assert.Equal(t, "rejected", got.Outcome)
	assert.Equal(t, "Pagamento recusado", got.Message)
	assert.True(t, got.Retryable)

	// Same order id remains for the retry; no new order is created.
	got2 := decodeResp[submitOrderResponse](t, e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}))
	assert.Equal(t, "o1", got2.OrderID)
	assert.Equal(t, int64(1), e.orders.calls.Load())
}

func TestPaymentReturn_StatusParamNeverTrusted(t *testing.T) {
	e := newEnv(t)
	// URL claims approved; backend says rejected. Backend wins.
	e.status.payment = &backend.Payment{ID: "pay1", OrderID: "o1", Status: backend.StatusRejected}

	got := decodeResp[outcomeResponse](t, e.do(t, http.MethodGet, "/api/payment/return?external_reference=o1&status=approved", nil))
	assert.Equal(t, "rejected", got.Outcome)
	assert.Equal(t, int64(1), e.status.fetches.Load())
}

func TestPaymentReturn_NotFoundDistinctFromRejected(t *testing.T) {
	e := newEnv(t)
	e.status.err = &backend.StatusError{Code: 404}

	got := decodeResp[outcomeResponse](t, e.do(t, http.MethodGet, "/api/payment/return?external_reference=o1", nil))
	assert.Equal(t, "not_found", got.Outcome)
}

func TestPaymentRecheck_RequiresPaymentID(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/payment/recheck", map[string]any{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPaymentRecheck_UsesSessionPaymentID(t *testing.T) {
	e := newEnv(t)
	addItem(t, e, "p1", "10.00")
	e.do(t, http.MethodPost, "/api/checkout", map[string]any{"address": "Rua A, 1"}).Body.Close()
	e.do(t, http.MethodPost, "/api/checkout/pay", nil).Body.Close()

	e.status.payment = &backend.Payment{ID: "pay1", OrderID: "o1", Status: backend.StatusPending}

	got := decodeResp[outcomeResponse](t, e.do(t, http.MethodPost, "/api/payment/recheck", map[string]any{}))
	assert.Equal(t, "pending", got.Outcome)
}

// --- Catalog ---

func TestFrontPage(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/home", nil)
	got := decodeResp[map[string]json.RawMessage](t, resp)
	require.Contains(t, got, "stores")
	require.Contains(t, got, "products")

	var products []productResponse
	require.NoError(t, json.Unmarshal(got["products"], &products))
	require.Len(t, products, 1)
	assert.Equal(t, "Mercearia Central", products[0].StoreName)
}

func TestListEndpoints(t *testing.T) {
	e := newEnv(t)

	stores := decodeResp[[]storeResponse](t, e.do(t, http.MethodGet, "/api/stores", nil))
	require.Len(t, stores, 1)
	assert.Equal(t, "Mercearia Central", stores[0].Name)

	products := decodeResp[[]productResponse](t, e.do(t, http.MethodGet, "/api/products", nil))
	require.Len(t, products, 1)
	assert.Equal(t, "p1", products[0].ID)
}

func TestProductDetail_NotFound(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodGet, "/api/products/missing", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// --- Account ---

func TestLogin_InvalidEmail(t *testing.T) {
	e := newEnv(t)

	resp := e.do(t, http.MethodPost, "/api/login", map[string]any{"email": "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogin_AccountNotFound(t *testing.T) {
	e := newEnv(t)
	e.accounts.err = &backend.StatusError{Code: 404}

	resp := e.do(t, http.MethodPost, "/api/login", map[string]any{"email": "ana@example.com"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLoginLogoutMe(t *testing.T) {
	e := newEnv(t)
	e.accounts.customer = &backend.Customer{ID: "c1", Name: "Ana", Email: "ana@example.com"}

	got := decodeResp[customerResponse](t, e.do(t, http.MethodPost, "/api/login", map[string]any{"email": "ana@example.com"}))
	assert.Equal(t, "c1", got.ID)

	me := decodeResp[customerResponse](t, e.do(t, http.MethodGet, "/api/me", nil))
	assert.Equal(t, "Ana", me.Name)

	resp := e.do(t, http.MethodPost, "/api/logout", nil)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/me", nil)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	e := newEnv(t)
	e.accounts.customer = &backend.Customer{ID: "c1", Name: "Ana"}

	resp := e.do(t, http.MethodPost, "/api/register", map[string]any{
		"name":  "Ana",
		"email": "ana@example.com",
		"phone": "11999990000",
		"cpf":   "123.456.789-01",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
}

// --- Sessions ---

func TestSessionManager_Eviction(t *testing.T) {
	m := NewSessionManager(&mockOrderAPI{}, &mockPaymentAPI{}, false, time.Minute)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
	s := m.Get(w, r)
	require.NotNil(t, s)
	require.Equal(t, 1, m.Len())

	m.evict(time.Now().Add(2 * time.Minute))
	assert.Equal(t, 0, m.Len())
}
