package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestServer(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	jwtSecret = []byte("test-secret")

	var err error
	db, err = gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "server.db")), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	autoMigrateAll(db)
	seedDB()
	initServices()

	r := gin.New()
	setupRoutes(r)
	return r
}

func performRequest(r *gin.Engine, method, path string, body any, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func loginAs(t *testing.T, r *gin.Engine, username, password string) string {
	t.Helper()
	w := performRequest(r, http.MethodPost, "/login", gin.H{"username": username, "password": password}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login %s: status %d body %s", username, w.Code, w.Body.String())
	}
	token, _ := decodeBody(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("login %s returned no token", username)
	}
	return token
}

func TestFullFlow(t *testing.T) {
	r := setupTestServer(t)

	w := performRequest(r, http.MethodGet, "/health", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("health: status %d", w.Code)
	}

	// register + login
	w = performRequest(r, http.MethodPost, "/register", gin.H{"username": "budi", "password": "secret123"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d body %s", w.Code, w.Body.String())
	}
	w = performRequest(r, http.MethodPost, "/register", gin.H{"username": "budi", "password": "secret123"}, "")
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate register: status %d, want 409", w.Code)
	}
	token := loginAs(t, r, "budi", "secret123")

	// protected routes reject missing tokens
	w = performRequest(r, http.MethodGet, "/accounts", nil, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated list: status %d, want 401", w.Code)
	}

	// accounts: parent + pocket, balance starts at zero
	w = performRequest(r, http.MethodPost, "/accounts", gin.H{"name": "BCA", "type": "bank"}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create account: status %d body %s", w.Code, w.Body.String())
	}
	parent := decodeBody(t, w)
	if parent["balance"].(float64) != 0 {
		t.Fatalf("new account balance = %v, want 0", parent["balance"])
	}
	parentID := uint(parent["id"].(float64))

	w = performRequest(r, http.MethodPost, "/accounts",
		gin.H{"name": "Tabungan", "type": "bank", "parent_account_id": parentID}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create pocket: status %d body %s", w.Code, w.Body.String())
	}

	w = performRequest(r, http.MethodGet, fmt.Sprintf("/accounts/%d/balance", parentID), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("effective balance: status %d body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["effective_balance"].(float64); got != 0 {
		t.Fatalf("effective balance = %v, want 0", got)
	}

	// parent cannot be deleted while the pocket exists
	w = performRequest(r, http.MethodDelete, fmt.Sprintf("/accounts/%d", parentID), nil, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("delete parent with pocket: status %d, want 409", w.Code)
	}

	// budgets: empty list is [], create, duplicate conflicts, copy is idempotent
	w = performRequest(r, http.MethodGet, "/budgets?month=12&year=2025", nil, token)
	if w.Code != http.StatusOK || w.Body.String() != "[]" {
		t.Fatalf("empty budget list: status %d body %q, want []", w.Code, w.Body.String())
	}
	w = performRequest(r, http.MethodPost, "/budgets",
		gin.H{"category": "Food", "amount": 1000000, "budget_month": 12, "budget_year": 2025}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create budget: status %d body %s", w.Code, w.Body.String())
	}
	w = performRequest(r, http.MethodPost, "/budgets",
		gin.H{"category": "Food", "amount": 2000000, "budget_month": 12, "budget_year": 2025}, token)
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate budget: status %d, want 409", w.Code)
	}
	copyReq := gin.H{"from_month": 12, "from_year": 2025, "to_month": 1, "to_year": 2026}
	w = performRequest(r, http.MethodPost, "/budgets/copy", copyReq, token)
	if w.Code != http.StatusOK {
		t.Fatalf("copy budgets: status %d body %s", w.Code, w.Body.String())
	}
	if got := decodeBody(t, w)["copied"].(float64); got != 1 {
		t.Fatalf("copied = %v, want 1", got)
	}
	w = performRequest(r, http.MethodPost, "/budgets/copy", copyReq, token)
	if got := decodeBody(t, w)["copied"].(float64); got != 0 {
		t.Fatalf("second copy = %v, want 0", got)
	}

	// gold: summary fails before the feed is seeded
	w = performRequest(r, http.MethodGet, "/gold/summary", nil, token)
	if w.Code != http.StatusNotFound {
		t.Fatalf("summary before seed: status %d, want 404", w.Code)
	}

	// only the administrator may record a price
	w = performRequest(r, http.MethodPost, "/gold/price", gin.H{"price_per_gram": 1450000}, token)
	if w.Code != http.StatusForbidden {
		t.Fatalf("record price as user: status %d, want 403", w.Code)
	}
	adminToken := loginAs(t, r, "admin", "admin123")
	w = performRequest(r, http.MethodPost, "/gold/price", gin.H{"price_per_gram": 1450000}, adminToken)
	if w.Code != http.StatusCreated {
		t.Fatalf("record price as admin: status %d body %s", w.Code, w.Body.String())
	}

	// price reads are public
	w = performRequest(r, http.MethodGet, "/gold/price", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("public price read: status %d", w.Code)
	}
	if got := decodeBody(t, w)["price_per_gram"].(float64); got != 1450000 {
		t.Fatalf("current price = %v, want 1450000", got)
	}

	// asset derived values against the seeded price
	w = performRequest(r, http.MethodPost, "/gold/assets", gin.H{
		"name": "Antam 10g", "gold_type": "antam", "weight_gram": 10.0,
		"purchase_price_per_gram": 1400000, "purchase_date": "2025-12-01",
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create gold asset: status %d body %s", w.Code, w.Body.String())
	}
	asset := decodeBody(t, w)
	if asset["purchase_value"].(float64) != 14000000 ||
		asset["current_value"].(float64) != 14500000 ||
		asset["profit_loss"].(float64) != 500000 {
		t.Fatalf("asset derived values: %v", asset)
	}

	w = performRequest(r, http.MethodGet, "/gold/summary", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("summary: status %d body %s", w.Code, w.Body.String())
	}
	sum := decodeBody(t, w)
	if sum["current_price_per_gram"].(float64) != 1450000 {
		t.Fatalf("summary price = %v, want 1450000", sum["current_price_per_gram"])
	}
	if sum["total_profit_loss"].(float64) != 500000 {
		t.Fatalf("summary profit/loss = %v, want 500000", sum["total_profit_loss"])
	}

	// credit cards
	w = performRequest(r, http.MethodPost, "/cards", gin.H{
		"card_name": "BCA Everyday", "last_four_digits": "1234",
		"credit_limit": 10000000, "current_balance": 0,
		"billing_date": 25, "payment_due_date": 10,
	}, token)
	if w.Code != http.StatusCreated {
		t.Fatalf("create card: status %d body %s", w.Code, w.Body.String())
	}
	cardID := uint(decodeBody(t, w)["id"].(float64))
	w = performRequest(r, http.MethodPost, "/cards", gin.H{
		"card_name": "Bad", "last_four_digits": "12ab",
		"credit_limit": 1000, "billing_date": 25, "payment_due_date": 10,
	}, token)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad card: status %d, want 400", w.Code)
	}
	w = performRequest(r, http.MethodDelete, fmt.Sprintf("/cards/%d", cardID), nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("delete card: status %d", w.Code)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	r := setupTestServer(t)
	w := performRequest(r, http.MethodPost, "/register", gin.H{"username": "sari", "password": "secret123"}, "")
	if w.Code != http.StatusCreated {
		t.Fatalf("register: status %d", w.Code)
	}
	w = performRequest(r, http.MethodPost, "/login", gin.H{"username": "sari", "password": "secret123"}, "")
	refresh, _ := decodeBody(t, w)["refresh_token"].(string)
	if refresh == "" {
		t.Fatal("login returned no refresh token")
	}

	w = performRequest(r, http.MethodPost, "/refresh", gin.H{"refresh_token": refresh}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("refresh: status %d body %s", w.Code, w.Body.String())
	}
	rotated := decodeBody(t, w)
	if rotated["token"].(string) == "" || rotated["refresh_token"].(string) == "" {
		t.Fatalf("refresh response incomplete: %v", rotated)
	}

	// the used refresh token was revoked by rotation
	w = performRequest(r, http.MethodPost, "/refresh", gin.H{"refresh_token": refresh}, "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh token: status %d, want 401", w.Code)
	}
}
