package controllers_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"payment-sync-service/controllers"
	"payment-sync-service/models"
	"payment-sync-service/routes"
	"payment-sync-service/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---- mocks ----

type mockPaymentRepo struct {
	mu             sync.Mutex
	payments       map[string]*models.Payment
	cursor         int64
	hasCursor      bool
	setCursorCalls int
}

func (m *mockPaymentRepo) GetPaymentByTransferID(_ context.Context, transferID string) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payments[transferID], nil
}

func (m *mockPaymentRepo) UpdatePaymentStatus(_ context.Context, paymentID uuid.UUID, status models.Status, _ uuid.UUID, errorMessage string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.payments {
		if p.ID == paymentID {
			p.Status = status
			p.ErrorMessage = errorMessage
		}
	}
	return nil
}

func (m *mockPaymentRepo) GetLastSyncNum(_ context.Context) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cursor, m.hasCursor, nil
}

func (m *mockPaymentRepo) SetLastSyncNum(_ context.Context, num int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cursor = num
	m.hasCursor = true
	m.setCursorCalls++
	return nil
}

func (m *mockPaymentRepo) cursorPersists() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.setCursorCalls
}

type mockRail struct {
	mu    sync.Mutex
	pages []*models.EventPage
	calls int
}

func (m *mockRail) SyncEvents(_ context.Context, _ int64, _ int) (*models.EventPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls >= len(m.pages) {
		m.calls++
		return &models.EventPage{}, nil
	}
	page := m.pages[m.calls]
	m.calls++
	return page, nil
}

func (m *mockRail) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type blockingRail struct {
	entered chan struct{}
	release chan struct{}
}

func (r *blockingRail) SyncEvents(_ context.Context, _ int64, _ int) (*models.EventPage, error) {
	r.entered <- struct{}{}
	<-r.release
	return &models.EventPage{}, nil
}

// ---- helpers ----

func newTestRouter(rail services.TransferRail, repo *mockPaymentRepo, webhookSecret, debugToken string) *gin.Engine {
	if repo.payments == nil {
		repo.payments = make(map[string]*models.Payment)
	}
	syncService := services.NewSyncService(repo, rail, nil, 0, zap.NewNop())
	wc := controllers.NewWebhookController(syncService, webhookSecret, zap.NewNop())

	r := gin.New()
	routes.RegisterWebhookRoutes(r, wc, debugToken)
	return r
}

func postWebhook(r *gin.Engine, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/server/receive_webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---- webhook dispatch ----

func TestReceiveWebhook_TransferEventsUpdateTriggersSync(t *testing.T) {
	payment := &models.Payment{
		ID:         uuid.New(),
		BillID:     uuid.New(),
		TransferID: "transfer-1",
		Status:     models.StatusPending,
	}
	repo := &mockPaymentRepo{payments: map[string]*models.Payment{"transfer-1": payment}}
	rail := &mockRail{pages: []*models.EventPage{{
		TransferEvents: []models.TransferEvent{
			{EventID: 1, TransferID: "transfer-1", EventType: models.StatusPosted},
		},
	}}}
	r := newTestRouter(rail, repo, "", "")

	w := postWebhook(r, `{"webhook_type":"TRANSFER","webhook_code":"TRANSFER_EVENTS_UPDATE"}`, nil)

	// Acknowledged immediately; the sync runs in the background.
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"received"}`, w.Body.String())

	assert.Eventually(t, func() bool {
		return repo.cursorPersists() == 1
	}, time.Second, 10*time.Millisecond, "webhook should trigger a full sync pass")

	repo.mu.Lock()
	defer repo.mu.Unlock()
	assert.Equal(t, models.StatusPosted, payment.Status)
	assert.Equal(t, int64(1), repo.cursor)
}

func TestReceiveWebhook_ItemWebhooksAreAcknowledgedWithoutSync(t *testing.T) {
	codes := []string{
		"ERROR", "NEW_ACCOUNTS_AVAILABLE", "PENDING_EXPIRATION",
		"PENDING_DISCONNECT", "USER_PERMISSION_REVOKED", "WEBHOOK_UPDATE_ACKNOWLEDGED",
	}
	for _, code := range codes {
		t.Run(code, func(t *testing.T) {
			rail := &mockRail{}
			repo := &mockPaymentRepo{}
			r := newTestRouter(rail, repo, "", "")

			body := `{"webhook_type":"ITEM","webhook_code":"` + code + `","item_id":"item-1","error":{"error_message":"boom"}}`
			w := postWebhook(r, body, nil)

			assert.Equal(t, http.StatusOK, w.Code)
			assert.JSONEq(t, `{"status":"received"}`, w.Body.String())
			assert.Zero(t, rail.callCount(), "item webhooks must not trigger a sync")
		})
	}
}

func TestReceiveWebhook_RecurringCodesAreAcknowledgedWithoutSync(t *testing.T) {
	rail := &mockRail{}
	repo := &mockPaymentRepo{}
	r := newTestRouter(rail, repo, "", "")

	w := postWebhook(r, `{"webhook_type":"TRANSFER","webhook_code":"RECURRING_NEW_TRANSFER"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, rail.callCount())
}

func TestReceiveWebhook_UnknownTypeAndCodeAreAcknowledged(t *testing.T) {
	// The rail retries on non-2xx, so an unknown webhook must still ack.
	rail := &mockRail{}
	repo := &mockPaymentRepo{}
	r := newTestRouter(rail, repo, "", "")

	for _, body := range []string{
		`{"webhook_type":"INCOME","webhook_code":"WHATEVER"}`,
		`{"webhook_type":"TRANSFER","webhook_code":"SOMETHING_NEW"}`,
		`{"webhook_type":"ITEM","webhook_code":"SOMETHING_NEW"}`,
	} {
		w := postWebhook(r, body, nil)
		assert.Equal(t, http.StatusOK, w.Code, "body: %s", body)
		assert.JSONEq(t, `{"status":"received"}`, w.Body.String())
	}
	assert.Zero(t, rail.callCount())
}

func TestReceiveWebhook_MalformedBodyIsRejected(t *testing.T) {
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, "", "")

	w := postWebhook(r, `{not json`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---- signature verification ----

func TestReceiveWebhook_ValidSignatureAccepted(t *testing.T) {
	secret := "whsec-test"
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, secret, "")

	body := `{"webhook_type":"ITEM","webhook_code":"ERROR"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	w := postWebhook(r, body, map[string]string{
		"X-Rail-Timestamp": ts,
		"X-Rail-Signature": controllers.SignWebhook(secret, ts, []byte(body)),
	})

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestReceiveWebhook_InvalidSignatureRejected(t *testing.T) {
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, "whsec-test", "")

	body := `{"webhook_type":"ITEM","webhook_code":"ERROR"}`
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	w := postWebhook(r, body, map[string]string{
		"X-Rail-Timestamp": ts,
		"X-Rail-Signature": controllers.SignWebhook("wrong-secret", ts, []byte(body)),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiveWebhook_MissingSignatureHeadersRejected(t *testing.T) {
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, "whsec-test", "")

	w := postWebhook(r, `{"webhook_type":"ITEM","webhook_code":"ERROR"}`, nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiveWebhook_StaleTimestampRejected(t *testing.T) {
	secret := "whsec-test"
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, secret, "")

	body := `{"webhook_type":"ITEM","webhook_code":"ERROR"}`
	ts := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)
	w := postWebhook(r, body, map[string]string{
		"X-Rail-Timestamp": ts,
		"X-Rail-Signature": controllers.SignWebhook(secret, ts, []byte(body)),
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReceiveWebhook_NoSecretSkipsVerification(t *testing.T) {
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, "", "")

	w := postWebhook(r, `{"webhook_type":"ITEM","webhook_code":"ERROR"}`, nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

// ---- debug sync endpoint ----

func TestTriggerSync_ReturnsResultingCursor(t *testing.T) {
	repo := &mockPaymentRepo{}
	rail := &mockRail{pages: []*models.EventPage{{
		TransferEvents: []models.TransferEvent{
			{EventID: 17, TransferID: "unknown", EventType: models.StatusPending},
		},
	}}}
	r := newTestRouter(rail, repo, "", "")

	req := httptest.NewRequest(http.MethodPost, "/debug/sync", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","last_sync_num":17}`, w.Body.String())
	assert.Equal(t, 1, repo.cursorPersists())
}

func TestTriggerSync_ConflictsWhileSyncInProgress(t *testing.T) {
	repo := &mockPaymentRepo{}
	rail := &blockingRail{
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	r := newTestRouter(rail, repo, "", "")

	// Webhook kicks off a background pass that parks inside the rail call.
	w := postWebhook(r, `{"webhook_type":"TRANSFER","webhook_code":"TRANSFER_EVENTS_UPDATE"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	<-rail.entered

	req := httptest.NewRequest(http.MethodPost, "/debug/sync", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	close(rail.release)
	assert.Eventually(t, func() bool {
		return repo.cursorPersists() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestTriggerSync_RequiresDebugToken(t *testing.T) {
	r := newTestRouter(&mockRail{}, &mockPaymentRepo{}, "", "op-token")

	req := httptest.NewRequest(http.MethodPost, "/debug/sync", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/debug/sync", nil)
	req.Header.Set("X-Debug-Token", "op-token")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
