// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"golang.org/x/crypto/bcrypt"

	"github.com/essence-shop/essence/internal/audit"
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/authz"
	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/flags"
	"github.com/essence-shop/essence/internal/middleware"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/scheduler"
	"github.com/essence-shop/essence/internal/shop"
)

// =====================================================
// Test Helpers
// =====================================================

const (
	adminEmail    = "admin@essence.test"
	adminPassword = "admin-password"
)

type envelope struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
	Error  *models.APIError
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	svc     *shop.Service
	jobs    *scheduler.Scheduler
	mail    *notify.MemoryMailer
	audit   *audit.Logger
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	ctx := context.Background()

	store, err := database.OpenBadgerInMemory()
	if err != nil {
		t.Fatalf("OpenBadgerInMemory: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	if err := store.EnsureIndexes(ctx, database.DefaultIndexes); err != nil {
		t.Fatalf("EnsureIndexes: %v", err)
	}

	mail := &notify.MemoryMailer{}
	svc := shop.New(shop.Deps{
		Store:  store,
		Mailer: mail,
		Hasher: &auth.Hasher{Cost: bcrypt.MinCost},
		Shop: config.ShopConfig{
			Name:                  "Essence",
			Currency:              "EUR",
			ShippingFee:           5,
			FreeShippingThreshold: 100,
			LowStockThreshold:     3,
			MaxItemsPerOrder:      20,
		},
		API:       config.APIConfig{DefaultPageSize: 24, MaxPageSize: 100},
		ShopInbox: "shop@essence.test",
	})
	if _, err := svc.EnsureAdmin(ctx, adminEmail, adminPassword); err != nil {
		t.Fatalf("EnsureAdmin: %v", err)
	}

	tokens, err := auth.NewTokenManager(config.SecurityConfig{JWTSecret: "test-secret-with-enough-entropy-0123456789", TokenTTL: time.Hour}, nil)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	enforcer, err := authz.NewEnforcer(authz.DefaultEnforcerConfig())
	if err != nil {
		t.Fatalf("NewEnforcer: %v", err)
	}

	jobs := scheduler.New(scheduler.Config{Clock: clockwork.NewFakeClock()})
	t.Cleanup(func() { jobs.CancelAll() })
	recomputer := flags.New(svc, flags.DefaultConfig())
	if err := recomputer.Register(jobs); err != nil {
		t.Fatalf("Register: %v", err)
	}

	auditLog := audit.NewLogger(audit.NewStore(store, nil), audit.DefaultConfig(), nil)

	perfMon := middleware.NewPerformanceMonitor(100, time.Second)
	h := NewHandler(HandlerDeps{
		Shop:    svc,
		Tokens:  tokens,
		Jobs:    jobs,
		Flags:   recomputer,
		PerfMon: perfMon,
		Audit:   auditLog,
	})
	mw := NewChiMiddleware(&ChiMiddlewareConfig{RateLimitDisabled: true})
	router := NewRouter(h, tokens, enforcer, mw, perfMon)

	return &testServer{t: t, handler: router.SetupChi(), svc: svc, jobs: jobs, mail: mail, audit: auditLog}
}

// flushAudit writes every queued audit event.
func (s *testServer) flushAudit() {
	s.t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = s.audit.Serve(ctx)
}

func (s *testServer) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: unmarshal %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func (s *testServer) expect(method, path, token string, body any, status int) envelope {
	s.t.Helper()
	w, env := s.do(method, path, token, body)
	if w.Code != status {
		s.t.Fatalf("%s %s: status = %d, want %d; body %s", method, path, w.Code, status, w.Body.String())
	}
	return env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(env.Data, &v); err != nil {
		t.Fatalf("decode data %s: %v", env.Data, err)
	}
	return v
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	env := s.expect(http.MethodPost, "/api/v1/auth/login", "", shop.LoginInput{Email: email, Password: password}, http.StatusOK)
	return decodeData[TokenResponse](s.t, env).Token
}

func (s *testServer) createProduct(token, name, sku string, price float64, stock int) *models.Product {
	s.t.Helper()
	in := shop.ProductInput{
		Name:          name,
		Gender:        models.Gender("unisex"),
		Concentration: models.Concentration("edp"),
		Variants:      []shop.VariantInput{{SizeML: 50, SKU: sku, Price: price, Stock: stock}},
	}
	env := s.expect(http.MethodPost, "/api/v1/admin/products", token, in, http.StatusCreated)
	return decodeData[*models.Product](s.t, env)
}

func guestCheckout(p *models.Product, qty int) shop.CheckoutInput {
	return shop.CheckoutInput{
		Email: "guest@example.com",
		Items: []shop.CheckoutItem{{ProductID: p.ID, SKU: p.Variants[0].SKU, Quantity: qty}},
		Shipping: &shop.PostalInput{
			FullName:   "Ada Guest",
			Phone:      "+33 1 23 45 67 89",
			Line1:      "1 rue de la Paix",
			City:       "Paris",
			PostalCode: "75002",
			Country:    "FR",
		},
	}
}

// =====================================================
// Endpoint tests
// =====================================================

func TestHealthEndpoints(t *testing.T) {
	s := newTestServer(t)

	env := s.expect(http.MethodGet, "/health", "", nil, http.StatusOK)
	if got := decodeData[HealthStatus](t, env); got.Status != "alive" || !got.DatabaseConnected {
		t.Errorf("health = %+v", got)
	}
	env = s.expect(http.MethodGet, "/health/ready", "", nil, http.StatusOK)
	if got := decodeData[HealthStatus](t, env); got.Status != "ready" {
		t.Errorf("ready = %+v", got)
	}

	w, _ := s.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("essence_api_requests_total")) {
		t.Errorf("metrics status = %d, want 200 with request counter", w.Code)
	}
}

func TestSwaggerDocument(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(http.MethodGet, "/swagger/doc.json", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("doc.json status = %d, want 200", w.Code)
	}
	var doc struct {
		Swagger string                    `json:"swagger"`
		Info    struct{ Title string }    `json:"info"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &doc); err != nil {
		t.Fatalf("doc.json is not JSON: %v", err)
	}
	if doc.Swagger != "2.0" || doc.Info.Title != "Essence API" {
		t.Errorf("doc = swagger %q title %q", doc.Swagger, doc.Info.Title)
	}
	for path, method := range map[string]string{
		"/api/v1/store/checkout":   "post",
		"/api/v1/admin/users/{id}": "put",
		"/api/v1/admin/audit":      "get",
		"/health/ready":            "get",
	} {
		if _, ok := doc.Paths[path][method]; !ok {
			t.Errorf("doc.json has no %s %s", method, path)
		}
	}

	w, _ = s.do(http.MethodGet, "/swagger/index.html", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("index.html status = %d, want 200", w.Code)
	}
}

func TestHealthReady_StoreDown(t *testing.T) {
	s := newTestServer(t)
	h := NewHandler(HandlerDeps{Shop: s.svc, DB: failingPinger{}})

	w := httptest.NewRecorder()
	h.HealthReady(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return fmt.Errorf("connection refused") }

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	env := s.expect(http.MethodGet, "/nope", "", nil, http.StatusNotFound)
	if env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("error = %+v, want NOT_FOUND", env.Error)
	}
	w, _ := s.do(http.MethodGet, "/health", "", nil)
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers missing")
	}
}

// =====================================================
// Authentication and authorization
// =====================================================

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	reg := shop.RegisterInput{Email: "Jo@Example.com", Name: "Jo", Password: "correct-horse"}
	env := s.expect(http.MethodPost, "/api/v1/auth/register", "", reg, http.StatusCreated)
	tok := decodeData[TokenResponse](t, env)
	if tok.Token == "" || tok.TokenType != "Bearer" {
		t.Fatalf("token response = %+v", tok)
	}
	if tok.User.Email != "jo@example.com" || tok.User.Role != models.RoleCustomer {
		t.Errorf("user = %+v", tok.User)
	}

	s.expect(http.MethodPost, "/api/v1/auth/register", "", reg, http.StatusConflict)
	s.expect(http.MethodPost, "/api/v1/auth/login", "", shop.LoginInput{Email: "jo@example.com", Password: "wrong-password"}, http.StatusUnauthorized)

	token := s.login("jo@example.com", "correct-horse")
	env = s.expect(http.MethodGet, "/api/v1/auth/me", token, nil, http.StatusOK)
	if me := decodeData[models.User](t, env); me.Email != "jo@example.com" {
		t.Errorf("me = %+v", me)
	}

	w, _ := s.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", w.Code)
	}
	s.expect(http.MethodGet, "/api/v1/auth/me", token, nil, http.StatusUnauthorized)
}

func TestAuthorization(t *testing.T) {
	s := newTestServer(t)
	s.expect(http.MethodPost, "/api/v1/auth/register", "", shop.RegisterInput{Email: "c@example.com", Name: "C", Password: "password-123"}, http.StatusCreated)
	customer := s.login("c@example.com", "password-123")
	admin := s.login(adminEmail, adminPassword)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"anonymous storefront", http.MethodGet, "/api/v1/store/products", "", http.StatusOK},
		{"anonymous account", http.MethodGet, "/api/v1/account/profile", "", http.StatusUnauthorized},
		{"anonymous admin", http.MethodGet, "/api/v1/admin/products", "", http.StatusUnauthorized},
		{"customer account", http.MethodGet, "/api/v1/account/profile", customer, http.StatusOK},
		{"customer admin", http.MethodGet, "/api/v1/admin/products", customer, http.StatusForbidden},
		{"customer dashboard", http.MethodGet, "/api/v1/admin/dashboard", customer, http.StatusForbidden},
		{"admin dashboard", http.MethodGet, "/api/v1/admin/dashboard", admin, http.StatusOK},
		{"admin storefront", http.MethodGet, "/api/v1/store/home", admin, http.StatusOK},
		{"garbage token", http.MethodGet, "/api/v1/store/products", "not-a-jwt", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, _ := s.do(tt.method, tt.path, tt.token, nil)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d; body %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestTokensFollowAccountChanges(t *testing.T) {
	s := newTestServer(t)
	root := s.login(adminEmail, adminPassword)

	env := s.expect(http.MethodPost, "/api/v1/auth/register", "", shop.RegisterInput{Email: "b@example.com", Name: "B", Password: "password-b1"}, http.StatusCreated)
	b := decodeData[TokenResponse](t, env).User
	admin := models.RoleAdmin
	s.expect(http.MethodPut, "/api/v1/admin/users/"+b.ID, root, shop.UserUpdate{Role: &admin}, http.StatusOK)

	adminToken := s.login("b@example.com", "password-b1")
	s.expect(http.MethodGet, "/api/v1/admin/users", adminToken, nil, http.StatusOK)

	customer := models.RoleCustomer
	s.expect(http.MethodPut, "/api/v1/admin/users/"+b.ID, root, shop.UserUpdate{Role: &customer}, http.StatusOK)
	s.expect(http.MethodGet, "/api/v1/admin/users", adminToken, nil, http.StatusUnauthorized)

	s.expect(http.MethodPut, "/api/v1/admin/users/"+b.ID, root, shop.UserUpdate{Role: &admin}, http.StatusOK)
	adminToken = s.login("b@example.com", "password-b1")
	s.expect(http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil, http.StatusOK)

	disabled := false
	s.expect(http.MethodPut, "/api/v1/admin/users/"+b.ID, root, shop.UserUpdate{Active: &disabled}, http.StatusOK)
	s.expect(http.MethodGet, "/api/v1/admin/users", adminToken, nil, http.StatusUnauthorized)

	enabled := true
	s.expect(http.MethodPut, "/api/v1/admin/users/"+b.ID, root, shop.UserUpdate{Active: &enabled}, http.StatusOK)
	s.expect(http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil, http.StatusOK)

	s.expect(http.MethodDelete, "/api/v1/admin/users/"+b.ID, root, nil, http.StatusNoContent)
	s.expect(http.MethodGet, "/api/v1/admin/dashboard", adminToken, nil, http.StatusUnauthorized)
	s.expect(http.MethodGet, "/api/v1/account/profile", adminToken, nil, http.StatusUnauthorized)

	s.expect(http.MethodGet, "/api/v1/admin/dashboard", root, nil, http.StatusOK)
}

// =====================================================
// Catalog, checkout and back-office
// =====================================================

func TestCatalogAndCheckout(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)

	p := s.createProduct(admin, "Oud Nocturne", "OUD-50", 60, 4)
	if p.Slug != "oud-nocturne" || p.Version != 1 {
		t.Fatalf("product = %+v", p)
	}

	env := s.expect(http.MethodGet, "/api/v1/store/products", "", nil, http.StatusOK)
	page := decodeData[models.Page[*models.Product]](t, env)
	if page.Total != 1 || len(page.Items) != 1 || page.Items[0].ID != p.ID {
		t.Fatalf("store products = %+v", page)
	}
	s.expect(http.MethodGet, "/api/v1/store/products/oud-nocturne", "", nil, http.StatusOK)
	s.expect(http.MethodGet, "/api/v1/store/products/missing", "", nil, http.StatusNotFound)

	env = s.expect(http.MethodPost, "/api/v1/store/checkout", "", guestCheckout(p, 2), http.StatusCreated)
	order := decodeData[models.Order](t, env)
	if order.Status != models.OrderStatus("pending") || order.Total != 120 || order.ShippingFee != 0 {
		t.Errorf("order = status %s total %v fee %v", order.Status, order.Total, order.ShippingFee)
	}
	if len(s.mail.Sent()) == 0 {
		t.Error("no confirmation mail sent")
	}

	env = s.expect(http.MethodPost, "/api/v1/store/checkout", "", guestCheckout(p, 5), http.StatusConflict)
	if env.Error == nil || env.Error.Code != ErrCodeConflict {
		t.Errorf("oversell error = %+v", env.Error)
	}

	env = s.expect(http.MethodGet, "/api/v1/admin/products/"+p.ID, admin, nil, http.StatusOK)
	if got := decodeData[models.Product](t, env); got.Variants[0].Stock != 2 || got.SoldCount != 2 {
		t.Errorf("after checkout stock = %d sold = %d", got.Variants[0].Stock, got.SoldCount)
	}

	// Transition with a stale version.
	s.expect(http.MethodPut, "/api/v1/admin/orders/"+order.ID+"/status", admin,
		shop.TransitionInput{Status: models.OrderStatus("processing"), Version: order.Version + 5}, http.StatusConflict)
	env = s.expect(http.MethodPut, "/api/v1/admin/orders/"+order.ID+"/status", admin,
		shop.TransitionInput{Status: models.OrderStatus("processing"), Version: order.Version}, http.StatusOK)
	if got := decodeData[models.Order](t, env); got.Status != models.OrderStatus("processing") {
		t.Errorf("status = %s, want processing", got.Status)
	}
	s.expect(http.MethodPut, "/api/v1/admin/orders/"+order.ID+"/status", admin,
		shop.TransitionInput{Status: models.OrderStatus("pending")}, http.StatusConflict)
}

func TestProductOptimisticConcurrency(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	p := s.createProduct(admin, "Iris Poudre", "IRIS-100", 95, 10)

	update := shop.ProductInput{
		Name:          "Iris Poudre Intense",
		Gender:        models.Gender("women"),
		Concentration: models.Concentration("parfum"),
		Variants:      []shop.VariantInput{{SizeML: 100, SKU: "IRIS-100", Price: 110, Stock: 10}},
		Version:       p.Version,
	}
	env := s.expect(http.MethodPut, "/api/v1/admin/products/"+p.ID, admin, update, http.StatusOK)
	updated := decodeData[models.Product](t, env)
	if updated.Version != p.Version+1 {
		t.Errorf("version = %d, want %d", updated.Version, p.Version+1)
	}

	// A second writer still holding the old version loses.
	env = s.expect(http.MethodPut, "/api/v1/admin/products/"+p.ID, admin, update, http.StatusConflict)
	if env.Error == nil || env.Error.Code != ErrCodeConflict {
		t.Errorf("error = %+v, want CONFLICT", env.Error)
	}

	s.expect(http.MethodPost, "/api/v1/admin/products", admin, shop.ProductInput{Name: ""}, http.StatusBadRequest)
	s.expect(http.MethodPost, "/api/v1/admin/products", admin, map[string]any{"name": "x", "rating": 5}, http.StatusBadRequest)
}

func TestAccountAddressesAndOrders(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	p := s.createProduct(admin, "Neroli Sun", "NEROLI-30", 40, 10)

	s.expect(http.MethodPost, "/api/v1/auth/register", "", shop.RegisterInput{Email: "a@example.com", Name: "A", Password: "password-a1"}, http.StatusCreated)
	s.expect(http.MethodPost, "/api/v1/auth/register", "", shop.RegisterInput{Email: "b@example.com", Name: "B", Password: "password-b1"}, http.StatusCreated)
	alice := s.login("a@example.com", "password-a1")
	bob := s.login("b@example.com", "password-b1")

	addr := shop.AddressInput{PostalInput: *guestCheckout(p, 1).Shipping, Label: "Home"}
	env := s.expect(http.MethodPost, "/api/v1/account/addresses", alice, addr, http.StatusCreated)
	saved := decodeData[models.Address](t, env)

	in := shop.CheckoutInput{
		Items:     []shop.CheckoutItem{{ProductID: p.ID, SKU: "NEROLI-30", Quantity: 1}},
		AddressID: saved.ID,
	}
	env = s.expect(http.MethodPost, "/api/v1/store/checkout", alice, in, http.StatusCreated)
	order := decodeData[models.Order](t, env)
	if order.Email != "a@example.com" || order.ShippingFee != 5 {
		t.Errorf("order email %s fee %v", order.Email, order.ShippingFee)
	}

	env = s.expect(http.MethodGet, "/api/v1/account/orders", alice, nil, http.StatusOK)
	if mine := decodeData[models.Page[*models.Order]](t, env); mine.Total != 1 {
		t.Errorf("alice orders = %d, want 1", mine.Total)
	}
	s.expect(http.MethodGet, "/api/v1/account/orders/"+order.ID, bob, nil, http.StatusNotFound)
	s.expect(http.MethodDelete, "/api/v1/account/addresses/"+saved.ID, bob, nil, http.StatusNotFound)

	env = s.expect(http.MethodPost, "/api/v1/account/orders/"+order.ID+"/cancel", alice, nil, http.StatusOK)
	if got := decodeData[models.Order](t, env); got.Status != models.OrderStatus("cancelled") {
		t.Errorf("status = %s, want cancelled", got.Status)
	}
}

func TestAdminJobsAndCache(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)
	s.createProduct(admin, "Ambre Gris", "AMBRE-50", 80, 5)

	env := s.expect(http.MethodGet, "/api/v1/admin/jobs", admin, nil, http.StatusOK)
	if jobs := decodeData[[]scheduler.Status](t, env); len(jobs) != 4 {
		t.Errorf("jobs = %d, want 4", len(jobs))
	}
	s.expect(http.MethodPost, "/api/v1/admin/jobs/unknown/run", admin, nil, http.StatusNotFound)

	env = s.expect(http.MethodPost, "/api/v1/admin/flags/new/recompute", admin, nil, http.StatusOK)
	if res := decodeData[flags.Result](t, env); res.Set != 1 {
		t.Errorf("new flag result = %+v, want 1 set", res)
	}
	s.expect(http.MethodPost, "/api/v1/admin/flags/sparkly/recompute", admin, nil, http.StatusBadRequest)

	s.expect(http.MethodGet, "/api/v1/store/home", "", nil, http.StatusOK)
	env = s.expect(http.MethodGet, "/api/v1/admin/cache", admin, nil, http.StatusOK)
	if stats := decodeData[CacheStats](t, env); stats.Entries == 0 {
		t.Errorf("cache entries = 0 after storefront read")
	}
	env = s.expect(http.MethodPost, "/api/v1/admin/cache/invalidate", admin, InvalidateRequest{Prefix: shop.PrefixStore}, http.StatusOK)
	if got := decodeData[map[string]any](t, env); got["removed"].(float64) < 1 {
		t.Errorf("removed = %v, want >= 1", got["removed"])
	}

	env = s.expect(http.MethodGet, "/api/v1/admin/performance", admin, nil, http.StatusOK)
	if stats := decodeData[[]middleware.EndpointStats](t, env); len(stats) == 0 {
		t.Error("performance stats empty")
	}

	s.jobs.CancelAll()
	s.expect(http.MethodPost, "/api/v1/admin/jobs/"+flags.TaskName(models.FlagNew)+"/run", admin, nil, http.StatusConflict)
}

// =====================================================
// Audit trail
// =====================================================

func TestAdminAuditTrail(t *testing.T) {
	s := newTestServer(t)
	admin := s.login(adminEmail, adminPassword)

	p := s.createProduct(admin, "Cuir Sauvage", "CS-50", 80, 4)
	s.expect(http.MethodPost, "/api/v1/admin/products", admin, shop.ProductInput{}, http.StatusBadRequest)
	s.expect(http.MethodDelete, "/api/v1/admin/products/"+p.ID, admin, nil, http.StatusNoContent)
	s.expect(http.MethodDelete, "/api/v1/admin/products/"+p.ID, admin, nil, http.StatusNotFound)
	s.expect(http.MethodPost, "/api/v1/admin/cache/invalidate", admin, InvalidateRequest{Prefix: "store:"}, http.StatusOK)
	s.flushAudit()

	env := s.expect(http.MethodGet, "/api/v1/admin/audit?target_type=product", admin, nil, http.StatusOK)
	page := decodeData[models.Page[*audit.Event]](t, env)
	if page.Total != 3 {
		t.Fatalf("product events = %d, want 3 (invalid input is not recorded)", page.Total)
	}
	counts := map[string]int{}
	for _, e := range page.Items {
		counts[string(e.Action)+"/"+string(e.Outcome)]++
		if e.Actor.Email != adminEmail || e.Actor.Role != string(models.RoleAdmin) {
			t.Errorf("actor = %+v, want the admin", e.Actor)
		}
		if e.Target.ID != p.ID {
			t.Errorf("target = %+v, want product %s", e.Target, p.ID)
		}
	}
	want := map[string]int{"product.create/success": 1, "product.delete/success": 1, "product.delete/failure": 1}
	for k, n := range want {
		if counts[k] != n {
			t.Errorf("%s = %d, want %d (all: %v)", k, counts[k], n, counts)
		}
	}

	env = s.expect(http.MethodGet, "/api/v1/admin/audit?action=product.delete&outcome=failure", admin, nil, http.StatusOK)
	page = decodeData[models.Page[*audit.Event]](t, env)
	if page.Total != 1 || page.Items[0].Detail != "not_found" {
		t.Errorf("failed deletes = %+v, want one not_found", page.Items)
	}

	env = s.expect(http.MethodGet, "/api/v1/admin/audit?action=cache.invalidate", admin, nil, http.StatusOK)
	page = decodeData[models.Page[*audit.Event]](t, env)
	if page.Total != 1 || page.Items[0].Target.ID != "store:" {
		t.Errorf("cache events = %+v, want one for prefix store:", page.Items)
	}

	s.expect(http.MethodGet, "/api/v1/admin/audit?since=yesterday", admin, nil, http.StatusBadRequest)
	s.expect(http.MethodGet, "/api/v1/admin/audit", "", nil, http.StatusUnauthorized)
}
