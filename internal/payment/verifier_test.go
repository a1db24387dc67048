// AngelaMos | 2026
// verifier_test.go

package payment

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valera277/rag-converter-pro/internal/config"
)

const testUser = "7b0c1d8e-3f2a-4c5b-9d6e-1a2b3c4d5e6f"

var fixedNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }

func flip(b []byte, i int) []byte {
	out := bytes.Clone(b)
	out[i] ^= 0x01
	return out
}

func requireRejection(t *testing.T, err error, reason RejectReason) {
	t.Helper()
	var rej *RejectionError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, reason, rej.Reason, rej.Detail)
}

func TestOrderRefRoundTrip(t *testing.T) {
	ref := NewOrderRef(testUser, fixedNow)
	assert.Equal(t, "rag_"+testUser+"_1792065600", ref)

	id, ok := UserFromOrderRef(ref)
	require.True(t, ok)
	assert.Equal(t, testUser, id)

	for _, suffixed := range []string{ref + "_WFPREG-1", ref + "_WFPREG-12_retry"} {
		id, ok := UserFromOrderRef(suffixed)
		require.True(t, ok, suffixed)
		assert.Equal(t, testUser, id)
	}

	for _, bad := range []string{
		"",
		"order_123",
		"rag_",
		"rag_not-a-uuid_1792065600",
		"rag__1792065600",
		"rag_" + testUser,
		"rag_" + testUser + "1792065600",
		"rag_{" + testUser + "}_1792065600",
	} {
		_, ok := UserFromOrderRef(bad)
		assert.False(t, ok, bad)
	}
}

func TestRejectionErrorStatus(t *testing.T) {
	cases := map[RejectReason]int{
		ReasonMalformed:     http.StatusBadRequest,
		ReasonSignature:     http.StatusForbidden,
		ReasonMissingSecret: http.StatusForbidden,
	}

	for reason, status := range cases {
		err := error(&RejectionError{Provider: PayPro, Reason: reason})
		assert.True(t, errors.Is(err, ErrRejected))

		var rej *RejectionError
		require.ErrorAs(t, err, &rej)
		assert.Equal(t, status, rej.StatusCode(), reason.String())
	}
}

func TestKeyPolicy(t *testing.T) {
	check, err := KeyPolicy{}.requireSecret(Paddle, "secret")
	require.NoError(t, err)
	assert.True(t, check)

	_, err = KeyPolicy{}.requireSecret(Paddle, "")
	requireRejection(t, err, ReasonMissingSecret)

	check, err = KeyPolicy{AllowUnsigned: true}.requireSecret(Paddle, "")
	require.NoError(t, err)
	assert.False(t, check)
}

func TestRegistryFromConfig(t *testing.T) {
	cfg := config.PaymentConfig{
		Provider:         "wayforpay",
		AllowUnsignedDev: true,
		CancelTimeout:    time.Second,
	}

	r := NewRegistryFromConfig(cfg, config.EnvProduction)
	assert.Equal(t, WayForPay, r.Primary())
	assert.Equal(t, []Provider{LiqPay, Paddle, PayPro, WayForPay}, r.Providers())

	_, ok := r.Canceller(PayPro)
	assert.False(t, ok)
	_, ok = r.Canceller(LiqPay)
	assert.True(t, ok)

	_, err := r.Verifier("stripe")
	require.Error(t, err)

	v, err := r.Verifier(Paddle)
	require.NoError(t, err)
	_, err = v.Verify(&Request{Body: []byte(`{}`), Header: http.Header{}})
	requireRejection(t, err, ReasonMissingSecret)

	dev := NewRegistryFromConfig(cfg, config.EnvDevelopment)
	v, err = dev.Verifier(Paddle)
	require.NoError(t, err)
	ev, err := v.Verify(&Request{
		Body:   []byte(`{"event_type":"subscription.activated","data":{"id":"sub_1","status":"active"}}`),
		Header: http.Header{},
	})
	require.NoError(t, err)
	assert.True(t, ev.Unsigned)
}
