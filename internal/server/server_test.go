package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"flexvault/internal/config"
	"flexvault/internal/handler"
	"flexvault/internal/infra/lock"
	"flexvault/internal/infra/memory"
	"flexvault/internal/usecase"
	auth "flexvault/internal/usecase/auth_usecase"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// =====================
// Helper
// =====================

type uuidGen struct{}

func (uuidGen) NewID() string { return uuid.NewString() }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := config.Config{
		CORSAllowedOrigins: "*",
		DefaultCountry:     "India",
		LoginRateLimit:     10,
		LoginRateWindow:    time.Minute,
	}

	store := memory.NewStore()
	ids := uuidGen{}
	clock := realClock{}

	issuer := auth.NewJWTIssuer([]byte("server-test-secret"), auth.AccessTokenTTL)
	hasher := auth.NewBcryptPasswordHasher(bcrypt.MinCost)
	verifier := auth.NewBcryptPasswordVerifier()

	itemUC := usecase.NewItemUsecase(store.Items(), nil, ids, clock, log)
	cartUC := usecase.NewCartUsecase(store.Carts(), ids, clock, log)
	checkoutUC := usecase.NewCheckoutUsecase(memory.NewTxManager(store), store.Orders(), lock.NewLocalLocker(time.Second), nil, ids, clock, log, cfg.DefaultCountry)
	orderUC := usecase.NewOrderUsecase(store.Orders(), log)

	h := Handlers{
		Auth: handler.NewAuthHandler(
			auth.NewSignupUsecase(store.Users(), hasher, issuer, ids, clock, true),
			auth.NewLoginUsecase(store.Users(), hasher, verifier, issuer, clock),
			auth.NewMeUsecase(store.Users()),
			log,
		),
		Items:  handler.NewItemHandler(itemUC, log),
		Cart:   handler.NewCartHandler(cartUC, checkoutUC, log),
		Orders: handler.NewOrderHandler(orderUC, log),
	}
	return New(cfg, log, h, issuer, nil)
}

func do(t *testing.T, e *echo.Echo, method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type authBody struct {
	Message string `json:"message"`
	Token   string `json:"token"`
	User    struct {
		ID   string `json:"id"`
		Role string `json:"role"`
	} `json:"user"`
}

type errBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details"`
}

type itemBody struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	SellerID *string         `json:"seller_id"`
}

type orderBody struct {
	ID          string          `json:"id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	Items       []struct {
		NameSnapshot  string          `json:"name_snapshot"`
		PriceSnapshot decimal.Decimal `json:"price_snapshot"`
		Quantity      int64           `json:"quantity"`
	} `json:"items"`
}

func signup(t *testing.T, e *echo.Echo, email, role string) authBody {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "User " + email, "email": email, "password": "secret1", "role": role,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[authBody](t, rec)
}

func createItem(t *testing.T, e *echo.Echo, token, name, price, discount string) itemBody {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/api/items", token, map[string]any{
		"name": name, "brand": "Brand", "description": "desc", "category": "sneakers",
		"price": price, "discount": discount, "images": []string{"https://img/" + name + ".png"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[itemBody](t, rec)
}

// =====================
// Tests
// =====================

// Test: ヘルスチェック
func TestHealth(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","service":"Flex Vault API"}`, rec.Body.String())
}

// Test: signup → login → me
func TestAuthFlow(t *testing.T) {
	e := newTestServer(t)

	s := signup(t, e, "alice@test.com", "")
	assert.Equal(t, "User created successfully", s.Message)
	assert.Equal(t, "customer", s.User.Role)
	assert.NotEmpty(t, s.Token)

	rec := do(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@test.com", "password": "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	l := decode[authBody](t, rec)
	assert.Equal(t, "Login successful", l.Message)

	rec = do(t, e, http.MethodGet, "/api/auth/me", l.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice@test.com")
	assert.NotContains(t, rec.Body.String(), "password")

	// 重複は400
	rec = do(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{"name": "A", "email": "alice@test.com", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user already exists", decode[errBody](t, rec).Error)
}

// Test: ログイン失敗はどちらも同じメッセージ
func TestLogin_GenericFailure(t *testing.T) {
	e := newTestServer(t)
	signup(t, e, "bob@test.com", "")

	wrongPass := do(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "bob@test.com", "password": "nope123"})
	unknown := do(t, e, http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ghost@test.com", "password": "nope123"})

	assert.Equal(t, http.StatusBadRequest, wrongPass.Code)
	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, wrongPass.Body.String(), unknown.Body.String())
	assert.Equal(t, "invalid credentials", decode[errBody](t, wrongPass).Error)
}

// Test: 入力不正は400 + details
func TestSignup_ValidationDetails(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{"email": "bad", "password": "1"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[errBody](t, rec)
	assert.Contains(t, body.Details, "name")
	assert.Contains(t, body.Details, "email")
	assert.Contains(t, body.Details, "password")
}

// Test: トークンなし・不正は401
func TestProtectedRoutes_RequireToken(t *testing.T) {
	e := newTestServer(t)

	rec := do(t, e, http.MethodGet, "/api/cart", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "access token required", decode[errBody](t, rec).Error)

	rec = do(t, e, http.MethodGet, "/api/orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid or expired token", decode[errBody](t, rec).Error)
}

// Test: 購入者は出品できず、他の出品者の商品は消せない、管理者は消せる
func TestItems_Ownership(t *testing.T) {
	e := newTestServer(t)
	s1 := signup(t, e, "s1@test.com", "seller")
	s2 := signup(t, e, "s2@test.com", "seller")
	buyer := signup(t, e, "c@test.com", "customer")
	adm := signup(t, e, "admin@test.com", "admin")

	rec := do(t, e, http.MethodPost, "/api/items", buyer.Token, map[string]any{"name": "x", "brand": "b", "description": "d", "price": 1})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "insufficient permissions", decode[errBody](t, rec).Error)

	it := createItem(t, e, s2.Token, "Jordan", "200", "0")
	require.NotNil(t, it.SellerID)
	assert.Equal(t, s2.User.ID, *it.SellerID)

	rec = do(t, e, http.MethodDelete, "/api/items/"+it.ID, s1.Token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/items/"+it.ID, "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, e, http.MethodDelete, "/api/items/"+it.ID, adm.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/items/"+it.ID, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Test: 一覧のページングと自分の出品
func TestItems_ListAndMine(t *testing.T) {
	e := newTestServer(t)
	s1 := signup(t, e, "s1@test.com", "seller")
	s2 := signup(t, e, "s2@test.com", "seller")
	for _, n := range []string{"A", "B", "C"} {
		createItem(t, e, s1.Token, n, "10", "0")
	}
	createItem(t, e, s2.Token, "D", "10", "0")

	rec := do(t, e, http.MethodGet, "/api/items?limit=3&page=2&sortBy=name&order=asc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	page := decode[struct {
		Items      []itemBody `json:"items"`
		Total      int64      `json:"total"`
		TotalPages int64      `json:"total_pages"`
	}](t, rec)
	assert.EqualValues(t, 4, page.Total)
	assert.EqualValues(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "D", page.Items[0].Name)

	rec = do(t, e, http.MethodGet, "/api/items/seller/my-items", s1.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	mine := decode[struct {
		Total int64 `json:"total"`
	}](t, rec)
	assert.EqualValues(t, 3, mine.Total)

	rec = do(t, e, http.MethodGet, "/api/items?priceMin=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Test: 検索はログインが必要で、ストア検索にフォールバック
func TestSearch(t *testing.T) {
	e := newTestServer(t)
	s := signup(t, e, "s@test.com", "seller")
	createItem(t, e, s.Token, "Jordan", "10", "0")
	createItem(t, e, s.Token, "Hoodie", "10", "0")

	rec := do(t, e, http.MethodGet, "/api/search?q=jor", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(t, e, http.MethodGet, "/api/search?q=jor", s.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[struct {
		Items []itemBody `json:"items"`
	}](t, rec)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Jordan", res.Items[0].Name)
}

// Test: カート → checkout → 注文一覧。合計230でカートは空
func TestCartCheckoutOrders(t *testing.T) {
	e := newTestServer(t)
	s := signup(t, e, "s@test.com", "seller")
	buyer := signup(t, e, "buyer@test.com", "customer")
	other := signup(t, e, "other@test.com", "customer")

	a := createItem(t, e, s.Token, "Air Max", "100", "10")
	b := createItem(t, e, s.Token, "Cap", "50", "0")

	rec := do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"item_id": a.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"item_id": a.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode[struct {
		Quantity int64 `json:"quantity"`
	}](t, rec).Quantity)

	rec = do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"item_id": b.ID})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	// 他人の明細は404
	rec = do(t, e, http.MethodPut, "/api/cart/"+entry.ID, other.Token, map[string]any{"quantity": 3})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = do(t, e, http.MethodPut, "/api/cart/"+entry.ID, buyer.Token, map[string]any{"quantity": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// 住所なしは400
	rec = do(t, e, http.MethodPost, "/api/cart/checkout", buyer.Token, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	addr := map[string]any{"shipping_address": map[string]string{"street": "1 Main St", "city": "Pune", "state": "MH", "zip_code": "411001"}}
	rec = do(t, e, http.MethodPost, "/api/cart/checkout", buyer.Token, addr, "X-Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	o := decode[orderBody](t, rec)
	assert.Equal(t, "230", o.TotalAmount.String())
	assert.Equal(t, "pending", o.Status)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "90", o.Items[0].PriceSnapshot.String())
	assert.EqualValues(t, 2, o.Items[0].Quantity)

	// 同じキーなら同じ注文
	rec = do(t, e, http.MethodPost, "/api/cart/checkout", buyer.Token, addr, "X-Idempotency-Key", "key-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, o.ID, decode[orderBody](t, rec).ID)

	rec = do(t, e, http.MethodGet, "/api/cart", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"items":[]}`, rec.Body.String())

	// 空のカートは400
	rec = do(t, e, http.MethodPost, "/api/cart/checkout", buyer.Token, addr)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "cart is empty", decode[errBody](t, rec).Error)

	rec = do(t, e, http.MethodGet, "/api/orders", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Orders []orderBody `json:"orders"`
	}](t, rec)
	require.Len(t, list.Orders, 1)

	rec = do(t, e, http.MethodGet, "/api/orders/"+o.ID, buyer.Token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, e, http.MethodGet, "/api/orders/"+o.ID, other.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Test: カート明細の削除は204、2回目は404
func TestCart_Remove(t *testing.T) {
	e := newTestServer(t)
	s := signup(t, e, "s@test.com", "seller")
	buyer := signup(t, e, "buyer@test.com", "customer")
	a := createItem(t, e, s.Token, "A", "10", "0")

	rec := do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"item_id": a.ID, "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	entry := decode[struct {
		ID string `json:"id"`
	}](t, rec)

	rec = do(t, e, http.MethodDelete, "/api/cart/"+entry.ID, buyer.Token, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = do(t, e, http.MethodDelete, "/api/cart/"+entry.ID, buyer.Token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"item_id": uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// Test: 役割は大文字小文字を区別しない
func TestSignup_RoleIsCaseInsensitive(t *testing.T) {
	e := newTestServer(t)

	s := signup(t, e, "seller@test.com", "Seller")
	assert.Equal(t, "seller", s.User.Role)

	rec := do(t, e, http.MethodPost, "/api/auth/signup", "", map[string]string{
		"name": "X", "email": "x@test.com", "password": "secret1", "role": "root",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// Test: itemId / address / shippingAddress / zipCode でも受け付ける
func TestCart_CamelCaseBodies(t *testing.T) {
	e := newTestServer(t)
	s := signup(t, e, "s@test.com", "seller")
	buyer := signup(t, e, "buyer@test.com", "customer")
	a := createItem(t, e, s.Token, "Air Max", "100", "10")

	rec := do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "is required", decode[errBody](t, rec).Details["item_id"])

	addr := map[string]string{"street": "1 Main St", "city": "Pune", "state": "MH", "zipCode": "411001"}
	for _, field := range []string{"address", "shippingAddress", "shipping_address"} {
		rec = do(t, e, http.MethodPost, "/api/cart", buyer.Token, map[string]any{"itemId": a.ID, "quantity": 1})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = do(t, e, http.MethodPost, "/api/cart/checkout", buyer.Token, map[string]any{field: addr})
		require.Equal(t, http.StatusCreated, rec.Code, field+": "+rec.Body.String())
		// 金額は数値
		assert.Contains(t, rec.Body.String(), `"total_amount":90`)
		assert.Contains(t, rec.Body.String(), `"zip_code":"411001"`)
	}

	rec = do(t, e, http.MethodGet, "/api/orders", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[struct {
		Orders []orderBody `json:"orders"`
	}](t, rec).Orders, 3)
}

// goroutineから呼ぶのでrequireは使わない
func rawDo(e *echo.Echo, method, path, token string, body []byte) int {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec.Code
}

// Test: 同時の追加は全部数量に入り、同時のcheckoutは注文1件だけ
func TestCart_ConcurrentAddAndCheckout(t *testing.T) {
	const adders, checkouts = 20, 10

	e := newTestServer(t)
	s := signup(t, e, "s@test.com", "seller")
	buyer := signup(t, e, "buyer@test.com", "customer")
	a := createItem(t, e, s.Token, "Cap", "50", "0")

	addBody, err := json.Marshal(map[string]any{"item_id": a.ID, "quantity": 1})
	require.NoError(t, err)

	var wg sync.WaitGroup
	addCodes := make([]int, adders)
	for i := 0; i < adders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			addCodes[i] = rawDo(e, http.MethodPost, "/api/cart", buyer.Token, addBody)
		}(i)
	}
	wg.Wait()
	for _, code := range addCodes {
		assert.Equal(t, http.StatusOK, code)
	}

	rec := do(t, e, http.MethodGet, "/api/cart", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	cart := decode[struct {
		Items []struct {
			Quantity int64 `json:"quantity"`
		} `json:"items"`
	}](t, rec)
	require.Len(t, cart.Items, 1)
	assert.EqualValues(t, adders, cart.Items[0].Quantity)

	checkoutBody, err := json.Marshal(map[string]any{
		"shipping_address": map[string]string{"street": "1 Main St", "city": "Pune", "state": "MH", "zip_code": "411001"},
	})
	require.NoError(t, err)

	codes := make([]int, checkouts)
	for i := 0; i < checkouts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = rawDo(e, http.MethodPost, "/api/cart/checkout", buyer.Token, checkoutBody)
		}(i)
	}
	wg.Wait()

	created := 0
	for _, code := range codes {
		if code == http.StatusCreated {
			created++
			continue
		}
		assert.Equal(t, http.StatusBadRequest, code)
	}
	assert.Equal(t, 1, created)

	rec = do(t, e, http.MethodGet, "/api/orders", buyer.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Orders []orderBody `json:"orders"`
	}](t, rec)
	require.Len(t, list.Orders, 1)
	require.Len(t, list.Orders[0].Items, 1)
	assert.EqualValues(t, adders, list.Orders[0].Items[0].Quantity)
	assert.Equal(t, "1000", list.Orders[0].TotalAmount.String())
}
