package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"interior-design-backend/internal/billing"
	"interior-design-backend/internal/cache"
	"interior-design-backend/internal/config"
	"interior-design-backend/internal/events"
	"interior-design-backend/internal/generation"
	"interior-design-backend/internal/handlers"
	"interior-design-backend/internal/logger"
	"interior-design-backend/internal/middleware"
	"interior-design-backend/internal/models"
	"interior-design-backend/internal/replicate"
	"interior-design-backend/internal/services"
	"interior-design-backend/internal/storage"
	"interior-design-backend/internal/supabase"
)

const userID = "7d3c5f1e-2a4b-4c6d-8e9f-0a1b2c3d4e5f"

// fakeReplicate answers POST /predictions with one job and replies to polls
// with the given statuses, repeating the last one.
type fakeReplicate struct {
	statuses []string
	polls    atomic.Int32
}

func (f *fakeReplicate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/predictions":
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"pred-1","status":"starting"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/predictions/pred-1":
		n := int(f.polls.Add(1))
		w.Write([]byte(f.statuses[min(n, len(f.statuses))-1]))
	default:
		http.NotFound(w, r)
	}
}

type memoryStore struct{}

func (memoryStore) Upload(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "https://storage.example/" + key, nil
}

func (memoryStore) Delete(context.Context, string) error { return nil }

type staticSubscriptions struct {
	sub *models.Subscription
}

func (s *staticSubscriptions) GetSubscription(context.Context, string) (*models.Subscription, error) {
	if s.sub == nil {
		return nil, supabase.ErrNotFound
	}
	return s.sub, nil
}

func (s *staticSubscriptions) CreateFreeSubscription(_ context.Context, userID string, maxUsage int) (*models.Subscription, error) {
	s.sub = &models.Subscription{UserID: userID, Plan: models.PlanFree, Status: models.SubscriptionActive, MaxUsage: maxUsage}
	return s.sub, nil
}

func (s *staticSubscriptions) IncrementUsage(context.Context, string) (*models.Subscription, bool, error) {
	if s.sub.UsageCount >= s.sub.MaxUsage {
		return nil, false, nil
	}
	s.sub.UsageCount++
	return s.sub, true, nil
}

type testServer struct {
	router *gin.Engine
	temp   *storage.TempStore
	subs   *staticSubscriptions
}

func newTestServer(t *testing.T, provider http.Handler, ready bool) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	temp, err := storage.NewTempStore(t.TempDir())
	require.NoError(t, err)

	baseURL := "http://127.0.0.1:1"
	if provider != nil {
		ts := httptest.NewServer(provider)
		t.Cleanup(ts.Close)
		baseURL = ts.URL
	}
	client := replicate.NewClient(baseURL, "r8_test", time.Second)
	poller := generation.NewPoller(time.Millisecond, 60, log)
	design := generation.NewChain(poller, log,
		generation.NewDesignStrategy(client, "design-v"),
		generation.NewBackupDesignStrategy(client, "backup-v"),
	)
	enhance := generation.NewChain(poller, log, generation.NewEnhanceStrategy(client, "enhance-v"))
	designService := services.NewDesignService(temp, memoryStore{}, design, enhance, events.NoopPublisher{}, ready, log)

	subs := &staticSubscriptions{}
	statusCache := cache.NewCache[models.SubscriptionStatusResponse](nil, "subscription", time.Minute)
	usageService := services.NewUsageService(subs, statusCache, 3, log)

	cfg := &config.Config{
		DemoMode:  false,
		Replicate: config.ReplicateConfig{APIKey: "r8_test"},
		Supabase:  config.SupabaseConfig{URL: "https://x.supabase.co", AnonKey: "anon"},
		Stripe:    config.StripeConfig{WebhookSecret: "whsec_test", MonthlyPriceID: "price_m"},
	}
	billingService := billing.NewService(nil, nil, statusCache, cfg.Stripe, 3, log)

	designHandler := handlers.NewDesignHandler(designService, usageService, temp, 10<<20, log)
	healthHandler := handlers.NewHealthHandler(cfg, nil)
	billingHandler := handlers.NewBillingHandler(billingService, log)
	subscriptionHandler := handlers.NewSubscriptionHandler(usageService)
	projectsHandler := handlers.NewProjectsHandler(nil)

	router := gin.New()
	api := router.Group("/api")
	api.GET("/health", healthHandler.Health)
	api.POST("/generate-design", designHandler.GenerateDesign)
	api.POST("/enhance-image", designHandler.EnhanceImage)
	api.POST("/stripe-webhook", billingHandler.Webhook)

	account := api.Group("", middleware.AuthMiddleware(""))
	account.POST("/stripe-checkout", billingHandler.Checkout)
	account.GET("/subscription-status", subscriptionHandler.Status)
	account.POST("/update-usage", subscriptionHandler.UpdateUsage)
	account.POST("/save-project", projectsHandler.SaveProject)

	return &testServer{router: router, temp: temp, subs: subs}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) assertNoTempFiles(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(s.temp.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	for x := 0; x < 32; x++ {
		for y := 0; y < 24; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 8), G: uint8(y * 8), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func multipartRequest(t *testing.T, path string, image []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		part, err := mw.CreateFormFile("image", "room.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func jsonRequest(method, path string, body interface{}) *http.Request {
	raw, _ := json.Marshal(body)
	req, _ := http.NewRequest(method, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	return resp
}

func TestGenerateDesign_Success(t *testing.T) {
	provider := &fakeReplicate{statuses: []string{
		`{"id":"pred-1","status":"processing"}`,
		`{"id":"pred-1","status":"processing"}`,
		`{"id":"pred-1","status":"succeeded","output":["https://cdn/first.png","https://cdn/second.png"]}`,
	}}
	s := newTestServer(t, provider, true)

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), map[string]string{
		"options": `{"style":"Industrial","roomType":"Kitchen"}`,
	}))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp models.GenerateDesignResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "https://cdn/first.png", resp.ImageURL)
	assert.Contains(t, resp.Prompt, "industrial")
	assert.GreaterOrEqual(t, resp.ProcessingTime, int64(0))
	assert.Equal(t, int32(3), provider.polls.Load())
	s.assertNoTempFiles(t)
}

func TestGenerateDesign_NoImage(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(multipartRequest(t, "/api/generate-design", nil, map[string]string{"options": "{}"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "No image provided", decodeError(t, w).Error)
}

func TestGenerateDesign_InvalidOptions(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), map[string]string{"options": "{style"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.assertNoTempFiles(t)
}

func TestGenerateDesign_Timeout(t *testing.T) {
	provider := &fakeReplicate{statuses: []string{`{"id":"pred-1","status":"processing"}`}}
	s := newTestServer(t, provider, true)

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), nil))
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.Equal(t, int32(60), provider.polls.Load())
	s.assertNoTempFiles(t)
}

func TestGenerateDesign_ProviderFailed(t *testing.T) {
	provider := &fakeReplicate{statuses: []string{
		`{"id":"pred-1","status":"processing"}`,
		`{"id":"pred-1","status":"failed","error":"CUDA out of memory"}`,
	}}
	s := newTestServer(t, provider, true)

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, decodeError(t, w).Details, "CUDA out of memory")
	s.assertNoTempFiles(t)
}

func TestGenerateDesign_ProviderNotConfigured(t *testing.T) {
	s := newTestServer(t, nil, false)

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	s.assertNoTempFiles(t)
}

func TestGenerateDesign_UsageLimitReached(t *testing.T) {
	provider := &fakeReplicate{}
	s := newTestServer(t, provider, true)
	s.subs.sub = &models.Subscription{UserID: userID, Plan: models.PlanFree, Status: models.SubscriptionActive, UsageCount: 3, MaxUsage: 3}

	w := s.do(multipartRequest(t, "/api/generate-design", pngBytes(t), map[string]string{"userId": userID}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Usage limit reached", decodeError(t, w).Error)
	assert.Equal(t, int32(0), provider.polls.Load())
	s.assertNoTempFiles(t)
}

func TestEnhanceImage_Success(t *testing.T) {
	provider := &fakeReplicate{statuses: []string{
		`{"id":"pred-1","status":"succeeded","output":"https://cdn/upscaled.png"}`,
	}}
	s := newTestServer(t, provider, true)

	w := s.do(multipartRequest(t, "/api/enhance-image", pngBytes(t), nil))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp models.EnhanceImageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "https://cdn/upscaled.png", resp.ImageURL)
	s.assertNoTempFiles(t)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, true)

	req, _ := http.NewRequest(http.MethodGet, "/api/health", nil)
	w := s.do(req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp models.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.APIs["replicate"])
	assert.True(t, resp.APIs["supabase"])
	assert.False(t, resp.APIs["stripe"])
	assert.False(t, resp.APIs["database"])
	assert.False(t, resp.DemoMode)
}

func TestUpdateUsage(t *testing.T) {
	s := newTestServer(t, nil, true)
	s.subs.sub = &models.Subscription{UserID: userID, Plan: models.PlanFree, Status: models.SubscriptionActive, UsageCount: 2, MaxUsage: 3}

	w := s.do(jsonRequest(http.MethodPost, "/api/update-usage", models.UpdateUsageRequest{UserID: userID}))
	require.Equal(t, http.StatusOK, w.Code)
	var resp models.UpdateUsageResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.UsageCount)
	assert.True(t, resp.LimitReached)

	w = s.do(jsonRequest(http.MethodPost, "/api/update-usage", models.UpdateUsageRequest{UserID: userID}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 3, s.subs.sub.UsageCount)
}

func TestSubscriptionStatus_InvalidUserID(t *testing.T) {
	s := newTestServer(t, nil, true)

	req, _ := http.NewRequest(http.MethodGet, "/api/subscription-status?userId=abc", nil)
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionStatus_NewUser(t *testing.T) {
	s := newTestServer(t, nil, true)

	req, _ := http.NewRequest(http.MethodGet, "/api/subscription-status?userId="+userID, nil)
	w := s.do(req)
	require.Equal(t, http.StatusOK, w.Code)

	var resp models.SubscriptionStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, models.PlanFree, resp.Plan)
	assert.Equal(t, 3, resp.MaxUsage)
	assert.True(t, resp.CanGenerate)
}

func TestStripeWebhook_BadSignature(t *testing.T) {
	s := newTestServer(t, nil, true)

	req, _ := http.NewRequest(http.MethodPost, "/api/stripe-webhook", bytes.NewReader([]byte(`{"id":"evt_1"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=bad")
	w := s.do(req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStripeCheckout_MissingFields(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(jsonRequest(http.MethodPost, "/api/stripe-checkout", map[string]string{"planType": "monthly"}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Missing required fields", decodeError(t, w).Error)
}

func TestSaveProject_NoDatabase(t *testing.T) {
	s := newTestServer(t, nil, true)

	w := s.do(jsonRequest(http.MethodPost, "/api/save-project", models.SaveProjectRequest{
		ProjectName: "x", UserID: userID, OriginalImageURL: "https://cdn/o.jpg",
	}))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
