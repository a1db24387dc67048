// AngelaMos | 2026
// handler_test.go

package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // provider mandated
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
	"github.com/valera277/rag-converter-pro/internal/middleware"
	"github.com/valera277/rag-converter-pro/internal/payment"
)

const (
	wfpAccount = "test_merch_n1"
	wfpSecret  = "flk3409refn54t54t*FNJRET"
)

type handlerFixture struct {
	repo   *memoryRepo
	router chi.Router
}

func fakeAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := middleware.WithClaims(r.Context(), &middleware.AccessTokenClaims{
			UserID: testUser,
			Email:  "reader@example.com",
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newHandlerFixture(t *testing.T, maxBody int64) *handlerFixture {
	t.Helper()

	reg := payment.NewRegistry(payment.PayPro)
	paypro := payment.NewPayPro(config.PayProConfig{
		SecretKey:   payproKey,
		CheckoutURL: "https://store.payproglobal.com/checkout",
	}, payment.KeyPolicy{})
	reg.Register(paypro, paypro, nil)

	wfp := payment.NewWayForPay(config.WayForPayConfig{
		MerchantAccount: wfpAccount,
		SecretKey:       wfpSecret,
		Currency:        "UAH",
	}, payment.KeyPolicy{}, time.Second)
	reg.Register(wfp, wfp, wfp)

	liqpay := payment.NewLiqPay(config.LiqPayConfig{}, payment.KeyPolicy{}, time.Second)
	reg.Register(liqpay, liqpay, liqpay)

	repo := newMemoryRepo(testUser)
	svc := NewService(repo, reg, ServiceConfig{
		Policies:     testPolicies(),
		Price:        9,
		DashboardURL: "https://app.example.com/dashboard",
	}, quietLogger())
	svc.now = func() time.Time { return fixedNow }

	r := chi.NewRouter()
	NewHandler(svc, reg, quietLogger(), maxBody).RegisterRoutes(r, fakeAuth, nil)

	return &handlerFixture{repo: repo, router: r}
}

func (f *handlerFixture) do(method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestCallbackAppliesPrimaryProvider(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodPost, "/payment/callback", payproIPN("1", "OrderCharged", testUser))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.Equal(t, StatusActive, f.repo.snapshot(testUser).Status)
}

func TestWebhookRejectsTamperedSignature(t *testing.T) {
	f := newHandlerFixture(t, 0)

	body := payproIPN("1", "OrderCharged", testUser)
	body = bytes.Replace(body, []byte("9.00"), []byte("0.01"), 1)

	rec := f.do(http.MethodPost, "/payment/webhooks/paypro", body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, StatusFreeTier, f.repo.snapshot(testUser).Status)
}

func TestWebhookMalformedBody(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodPost, "/payment/webhooks/paypro", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWebhookMissingSecretFailsClosed(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodPost, "/payment/webhooks/liqpay", []byte("data=e30%3D&signature=x"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWebhookUnknownProvider(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodPost, "/payment/webhooks/stripe", []byte("{}"))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWebhookBodyLimit(t *testing.T) {
	f := newHandlerFixture(t, 64)

	rec := f.do(http.MethodPost, "/payment/webhooks/paypro", payproIPN("1", "OrderCharged", testUser))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func wfpSign(parts ...string) string {
	mac := hmac.New(md5.New, []byte(wfpSecret))
	mac.Write([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestWayForPayWebhookIsAcknowledged(t *testing.T) {
	f := newHandlerFixture(t, 0)

	ref := payment.NewOrderRef(testUser, fixedNow)
	body, err := json.Marshal(map[string]any{
		"merchantAccount":   wfpAccount,
		"orderReference":    ref,
		"amount":            9,
		"currency":          "UAH",
		"authCode":          "541963",
		"cardPan":           "41****8217",
		"transactionStatus": "Approved",
		"reasonCode":        1100,
		"merchantSignature": wfpSign(
			wfpAccount, ref, "9", "UAH", "541963", "41****8217", "Approved", "1100",
		),
	})
	require.NoError(t, err)

	rec := f.do(http.MethodPost, "/payment/webhooks/wayforpay", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var ack map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ack))
	assert.Equal(t, ref, ack["orderReference"])
	assert.Equal(t, "accept", ack["status"])

	sub := f.repo.snapshot(testUser)
	assert.Equal(t, StatusActive, sub.Status)
	assert.True(t, sub.ExpiresAt.After(fixedNow))
}

func TestUnknownUserWebhookReturnsOK(t *testing.T) {
	f := newHandlerFixture(t, 0)

	other := "0f8fad5b-d9cb-469f-a165-70867728950e"
	rec := f.do(http.MethodPost, "/payment/webhooks/paypro", payproIPN("1", "OrderCharged", other))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder, into any) core.Envelope {
	t.Helper()
	env := core.Envelope{Data: into}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func TestSubscribeEndpoint(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodGet, "/payment/subscribe", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res SubscribeResult
	env := decodeEnvelope(t, rec, &res)
	assert.True(t, env.Success)
	assert.False(t, res.Subscribed)
	require.NotNil(t, res.Checkout)
	assert.Contains(t, res.Checkout.Action, "x-user-id="+testUser)
}

func TestCancelEndpoint(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodPost, "/payment/cancel", nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	next := fixedNow.Add(72 * time.Hour)
	_, err := f.repo.Activate(context.Background(), Activation{
		UserID: testUser, Provider: string(payment.PayPro), ExpiresAt: next,
	})
	require.NoError(t, err)

	rec = f.do(http.MethodPost, "/payment/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res SubscriptionResponse
	decodeEnvelope(t, rec, &res)
	assert.Equal(t, StatusCancelled, res.Status)
	assert.True(t, res.Access)
	require.NotNil(t, res.ExpiresAt)
	assert.True(t, res.ExpiresAt.Equal(next))
}

func TestStatusEndpoint(t *testing.T) {
	f := newHandlerFixture(t, 0)

	rec := f.do(http.MethodGet, "/payment/status", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var res SubscriptionResponse
	decodeEnvelope(t, rec, &res)
	assert.Equal(t, StatusFreeTier, res.Status)
	assert.False(t, res.Access)
}
