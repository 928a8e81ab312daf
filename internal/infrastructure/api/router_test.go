package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"target-onchain-shopify-app/internal/application"
	"target-onchain-shopify-app/internal/domain"
	"target-onchain-shopify-app/internal/infrastructure/pubsub"
	"target-onchain-shopify-app/internal/infrastructure/repository"
	shopifyinfra "target-onchain-shopify-app/internal/infrastructure/shopify"

	shopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	testShop   = "shop.myshopify.com"
	testKey    = "api-key"
	testSecret = "api-secret"
)

type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
}

func (m *memorySessions) Save(ctx context.Context, s *domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = *s
	return nil
}

func (m *memorySessions) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *memorySessions) SetClerkDbJwt(ctx context.Context, id string, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.sessions[id]
	s.ClerkDbJwt = token
	m.sessions[id] = s
	return nil
}

func (m *memorySessions) ClearClerkDbJwt(ctx context.Context, id string) error {
	return m.SetClerkDbJwt(ctx, id, "")
}

func (m *memorySessions) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

func (m *memorySessions) DeleteByShop(ctx context.Context, shop string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if s.Shop == shop {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

type stubClerk struct{}

func (stubClerk) GetClient(ctx context.Context, token string) (*domain.ClerkClientResponse, error) {
	return nil, &domain.StatusError{StatusCode: http.StatusUnauthorized}
}

type stubShopify struct{}

func (stubShopify) AuthorizeURL(shop string, state string) string {
	return "https://" + shop + "/admin/oauth/authorize?state=" + state
}
func (stubShopify) VerifyCallback(u *url.URL) (bool, error) { return false, nil }
func (stubShopify) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	return "", fmt.Errorf("not used")
}
func (stubShopify) VerifyWebhook(r *http.Request) bool { return false }
func (stubShopify) GetProduct(ctx context.Context, shop string, accessToken string, productID uint64) (*shopify.Product, error) {
	return nil, fmt.Errorf("not used")
}

type testServer struct {
	handler  http.Handler
	sessions *memorySessions
	frames   *repository.GormFrameRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := zerolog.Nop()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, repository.Migrate(db))

	frameRepo := repository.NewGormFrameRepository(db).(*repository.GormFrameRepository)
	sessions := &memorySessions{sessions: map[string]domain.Session{
		domain.OfflineSessionID(testShop): {
			ID:          domain.OfflineSessionID(testShop),
			Shop:        testShop,
			AccessToken: "shpat_1",
			ClerkDbJwt:  "dvb_stale",
		},
	}}

	shopifyService := application.NewShopifyService(sessions, stubShopify{}, "read_products", logger)
	frameService := application.NewFrameService(frameRepo, nil, nil, logger)
	accountService := application.NewAccountService(sessions, stubClerk{},
		pubsub.NewMemoryMessageBus(logger), pubsub.NewMemoryHandshakeStore(time.Minute), nil, logger,
		application.LinkerConfig{AppOrigin: "https://targetonchain.com", SignInURL: "https://targetonchain.com/sign-in"})
	webhookService := application.NewWebhookService(nil, nil, logger)

	handler := NewRouter(RouterConfig{
		Frames:   frameService,
		Accounts: accountService,
		Shopify:  shopifyService,
		Webhooks: webhookService,
		Verifier: shopifyinfra.NewSessionTokenVerifier(testKey, testSecret),
		AppURL:   "https://app.example.com",
		APIKey:   testKey,
		TermsURL: "https://targetonchain.com/termsAndConditions",
		Logger:   logger,
	})

	return &testServer{handler: handler, sessions: sessions, frames: frameRepo}
}

func sessionToken(t *testing.T, shop string) string {
	t.Helper()
	now := time.Now()
	claims := shopifyinfra.SessionTokenClaims{
		Dest: "https://" + shop,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{testKey},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return raw
}

func (s *testServer) do(t *testing.T, method, target string, body string, contentType string, authed bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authed {
		req.Header.Set("Authorization", "Bearer "+sessionToken(t, testShop))
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) createFrame(t *testing.T, frame *domain.Frame) *domain.Frame {
	t.Helper()
	require.NoError(t, s.frames.Create(context.Background(), frame))
	return frame
}

func TestRouter_Scan(t *testing.T) {
	srv := newTestServer(t)
	frame := srv.createFrame(t, &domain.Frame{
		Shop:             testShop,
		Title:            "Spring drop",
		Destination:      domain.DestinationCart,
		ProductID:        "gid://shopify/Product/1",
		ProductVariantID: "gid://shopify/ProductVariant/42",
	})

	rec := srv.do(t, http.MethodGet, fmt.Sprintf("/frames/%d/scan", frame.ID), "", "", false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://shop.myshopify.com/cart/42:1", rec.Header().Get("Location"))

	for _, id := range []string{"abc", "999"} {
		rec := srv.do(t, http.MethodGet, "/frames/"+id+"/scan", "", "", false)
		assert.Equal(t, http.StatusNotFound, rec.Code, id)
	}

	stored, err := srv.frames.GetByID(context.Background(), frame.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.Scans)
}

func TestRouter_ScanInvalidVariant(t *testing.T) {
	srv := newTestServer(t)
	frame := srv.createFrame(t, &domain.Frame{
		Shop:             testShop,
		Title:            "Broken",
		Destination:      domain.DestinationCart,
		ProductVariantID: "42",
	})

	rec := srv.do(t, http.MethodGet, fmt.Sprintf("/frames/%d/scan", frame.ID), "", "", false)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	stored, err := srv.frames.GetByID(context.Background(), frame.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stored.Scans)
}

func TestRouter_Image(t *testing.T) {
	srv := newTestServer(t)
	frame := srv.createFrame(t, &domain.Frame{Shop: testShop, Title: "Tee & Co", Destination: domain.DestinationProduct})

	rec := srv.do(t, http.MethodGet, fmt.Sprintf("/frames/%d/image", frame.ID), "", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "Tee &amp; Co")
}

func TestRouter_AdminRequiresSessionToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/app/frames", "", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/app/frames", nil)
	req.Header.Set("Authorization", "Bearer "+sessionToken(t, "uninstalled.myshopify.com"))
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Shopify-API-Request-Failure-Reauthorize"))
}

func TestRouter_FrameForm(t *testing.T) {
	srv := newTestServer(t)

	form := url.Values{"title": {""}, "productId": {""}, "destination": {"product"}}
	rec := srv.do(t, http.MethodPost, "/app/frames/new", form.Encode(), "application/x-www-form-urlencoded", true)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Errors map[string]string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, map[string]string{
		"title":     "Title is required",
		"productId": "Product is required",
	}, body.Errors)

	payload := `{"title":"Spring drop","productId":"gid://shopify/Product/1","productHandle":"spring-tee","destination":"product"}`
	rec = srv.do(t, http.MethodPost, "/app/frames/new", payload, "application/json", true)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	location := rec.Header().Get("Location")
	assert.True(t, strings.HasPrefix(location, "/app/frames/"))

	rec = srv.do(t, http.MethodGet, location, "", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var view domain.FrameView
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&view))
	assert.Equal(t, "Spring drop", view.Title)
	assert.Equal(t, "https://shop.myshopify.com/products/spring-tee", view.DestinationURL)

	rec = srv.do(t, http.MethodPost, location, url.Values{"action": {"delete"}}.Encode(), "application/x-www-form-urlencoded", true)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/app/frames/home", rec.Header().Get("Location"))

	rec = srv.do(t, http.MethodGet, location, "", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_FrameList(t *testing.T) {
	srv := newTestServer(t)
	srv.createFrame(t, &domain.Frame{Shop: testShop, Title: "first", Destination: domain.DestinationProduct})
	srv.createFrame(t, &domain.Frame{Shop: testShop, Title: "second", Destination: domain.DestinationProduct})
	srv.createFrame(t, &domain.Frame{Shop: "other.myshopify.com", Title: "theirs", Destination: domain.DestinationProduct})

	rec := srv.do(t, http.MethodGet, "/app/frames/home", "", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Frames []domain.FrameView `json:"frames"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Frames, 2)
	assert.Equal(t, "second", body.Frames[0].Title)
	assert.Equal(t, "first", body.Frames[1].Title)
}

func TestRouter_AccountReconcilesStaleToken(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/app/account", "", "", true)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, "disconnected", body["state"])
	assert.Equal(t, "https://targetonchain.com/termsAndConditions", body["termsUrl"])

	session, err := srv.sessions.GetByID(context.Background(), domain.OfflineSessionID(testShop))
	require.NoError(t, err)
	assert.Empty(t, session.ClerkDbJwt)
}

func TestRouter_Handshake(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodPost, "/app/account/handshakes", `{"screenWidth":1920,"screenHeight":1080}`, "application/json", true)
	require.Equal(t, http.StatusCreated, rec.Code)

	var handshake domain.Handshake
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&handshake))
	assert.Equal(t, domain.StateAwaitingPopup, handshake.State)
	assert.Equal(t, "merchantWindow", handshake.Popup.Name)

	rec = srv.do(t, http.MethodPost, "/app/account/handshakes/"+handshake.ID+"/events", `{"type":"blocked"}`, "application/json", true)
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = srv.do(t, http.MethodPost, "/app/account/handshakes/unknown/events", `{"type":"opened"}`, "application/json", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Eventually(t, func() bool {
		rec := srv.do(t, http.MethodGet, "/app/account/handshakes/"+handshake.ID, "", "", true)
		var snapshot domain.Handshake
		if rec.Code != http.StatusOK || json.NewDecoder(rec.Body).Decode(&snapshot) != nil {
			return false
		}
		return snapshot.Error == domain.ErrPopupBlocked.Error()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestRouter_WebhookRequiresSignature(t *testing.T) {
	srv := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{}`))
	req.Header.Set("X-Shopify-Topic", "app/uninstalled")
	req.Header.Set("X-Shopify-Shop-Domain", testShop)
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/webhooks", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_WebhookDeliveries(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/app/webhooks", "", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"deliveries":[]}`, rec.Body.String())
}

func TestRouter_BeginAuth(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/auth?shop="+testShop, "", "", false)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Location"), "https://shop.myshopify.com/admin/oauth/authorize"))

	rec = srv.do(t, http.MethodGet, "/auth?shop=evil.com", "", "", false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_SecurityHeaders(t *testing.T) {
	srv := newTestServer(t)

	rec := srv.do(t, http.MethodGet, "/health?shop="+testShop, "", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frame-ancestors https://shop.myshopify.com https://admin.shopify.com;", rec.Header().Get("Content-Security-Policy"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}
