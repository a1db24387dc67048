// AngelaMos | 2026
// liqpay_test.go

package payment

import (
	"context"
	"crypto/sha1" //nolint:gosec // provider mandated
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/config"
)

const liqpayPrivate = "sandbox_private_key"

func liqpaySign(data string) string {
	sum := sha1.Sum([]byte(liqpayPrivate + data + liqpayPrivate)) //nolint:gosec // provider mandated
	return base64.StdEncoding.EncodeToString(sum[:])
}

func liqpayBody(t *testing.T, payload map[string]any) []byte {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data := base64.StdEncoding.EncodeToString(raw)
	return []byte(url.Values{
		"data":      {data},
		"signature": {liqpaySign(data)},
	}.Encode())
}

func newTestLiqPay(apiURL string) *LiqPayClient {
	c := NewLiqPay(config.LiqPayConfig{
		PublicKey:   "sandbox_public",
		PrivateKey:  liqpayPrivate,
		Currency:    "UAH",
		APIURL:      apiURL,
		CheckoutURL: "https://www.liqpay.ua/api/3/checkout",
	}, KeyPolicy{}, time.Second)
	c.now = clock
	return c
}

func TestLiqPayVerify(t *testing.T) {
	c := newTestLiqPay("")
	ref := NewOrderRef(testUser, fixedNow)

	body := liqpayBody(t, map[string]any{
		"action":   "subscribe",
		"status":   "subscribed",
		"order_id": ref,
		"end_date": fixedNow.UnixMilli(),
	})

	ev, err := c.Verify(&Request{Body: body})
	require.NoError(t, err)
	assert.Equal(t, LiqPay, ev.Provider)
	assert.Equal(t, KindActivation, ev.Kind)
	assert.Equal(t, ref, ev.OrderRef)
	assert.Equal(t, testUser, ev.UserID)
	assert.True(t, ev.OccurredAt.Equal(fixedNow))
	assert.False(t, ev.Unsigned)
}

func TestLiqPayKinds(t *testing.T) {
	assert.Equal(t, KindActivation, liqpayKind("success"))
	assert.Equal(t, KindTermination, liqpayKind("unsubscribed"))
	assert.Equal(t, KindTermination, liqpayKind("reversed"))
	assert.Equal(t, KindUnknown, liqpayKind("wait_accept"))
}

func TestLiqPayRejectsEveryByteMutation(t *testing.T) {
	c := newTestLiqPay("")
	body := liqpayBody(t, map[string]any{
		"status":   "subscribed",
		"order_id": NewOrderRef(testUser, fixedNow),
	})

	_, err := c.Verify(&Request{Body: body})
	require.NoError(t, err)

	for i := range body {
		_, err := c.Verify(&Request{Body: flip(body, i)})
		assert.Error(t, err, "mutation at byte %d accepted", i)
	}
}

func TestLiqPayMalformed(t *testing.T) {
	c := newTestLiqPay("")

	_, err := c.Verify(&Request{Body: nil})
	requireRejection(t, err, ReasonMalformed)

	_, err = c.Verify(&Request{Body: []byte("signature=abc")})
	requireRejection(t, err, ReasonMalformed)

	data := base64.StdEncoding.EncodeToString([]byte("not json"))
	body := url.Values{"data": {data}, "signature": {liqpaySign(data)}}.Encode()
	_, err = c.Verify(&Request{Body: []byte(body)})
	requireRejection(t, err, ReasonMalformed)
}

func TestLiqPayMissingSecret(t *testing.T) {
	body := liqpayBody(t, map[string]any{
		"status":   "subscribed",
		"order_id": "rag_x",
	})

	strict := NewLiqPay(config.LiqPayConfig{}, KeyPolicy{}, time.Second)
	_, err := strict.Verify(&Request{Body: body})
	requireRejection(t, err, ReasonMissingSecret)

	lax := NewLiqPay(config.LiqPayConfig{}, KeyPolicy{AllowUnsigned: true}, time.Second)
	ev, err := lax.Verify(&Request{Body: body})
	require.NoError(t, err)
	assert.True(t, ev.Unsigned)
	assert.Empty(t, ev.UserID)
}

func TestLiqPayCheckout(t *testing.T) {
	c := newTestLiqPay("")
	ref := NewOrderRef(testUser, fixedNow)

	co, err := c.Checkout(CheckoutRequest{
		UserID:      testUser,
		OrderRef:    ref,
		Amount:      9,
		Description: "RAG Converter Pro monthly",
		ServerURL:   "https://api.example.com/payment/webhooks/liqpay",
		ResultURL:   "https://app.example.com/dashboard",
	})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, co.Method)

	data := co.Fields.Get("data")
	assert.Equal(t, liqpaySign(data), co.Fields.Get("signature"))

	raw, err := base64.StdEncoding.DecodeString(data)
	require.NoError(t, err)

	var params map[string]any
	require.NoError(t, json.Unmarshal(raw, &params))
	assert.Equal(t, "subscribe", params["action"])
	assert.Equal(t, ref, params["order_id"])
	assert.Equal(t, "month", params["subscribe_periodicity"])
	assert.Equal(t, "2026-10-15 12:05:00", params["subscribe_date_start"])
	assert.Equal(t, "9", params["amount"])
}

func TestLiqPayCancel(t *testing.T) {
	var gotAction, gotOrder string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		form, _ := url.ParseQuery(string(raw))

		data := form.Get("data")
		if liqpaySign(data) != form.Get("signature") {
			w.WriteHeader(http.StatusForbidden)
			return
		}

		decoded, _ := base64.StdEncoding.DecodeString(data)
		var params map[string]any
		_ = json.Unmarshal(decoded, &params)
		gotAction, _ = params["action"].(string)
		gotOrder, _ = params["order_id"].(string)

		_, _ = w.Write([]byte(`{"status":"unsubscribed"}`))
	}))
	defer srv.Close()

	c := newTestLiqPay(srv.URL)
	require.NoError(t, c.Cancel(context.Background(), "rag_order"))
	assert.Equal(t, "unsubscribe", gotAction)
	assert.Equal(t, "rag_order", gotOrder)
}

func TestLiqPayCancelProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"error","err_description":"order_not_found"}`))
	}))
	defer srv.Close()

	err := newTestLiqPay(srv.URL).Cancel(context.Background(), "rag_order")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order_not_found")
}
