// AngelaMos | 2026
// paypro.go

package payment

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

// payproHashFields is the order PayPro Global concatenates IPN values in
// before hashing. The secret key sits between CUSTOMER_EMAIL and TEST_MODE.
var payproHashFields = [...]string{
	"ORDER_ID",
	"ORDER_STATUS",
	"ORDER_TOTAL_AMOUNT",
	"CUSTOMER_EMAIL",
	"",
	"TEST_MODE",
	"IPN_TYPE_NAME",
}

const payproUserField = "x-user-id"

// payproTypes maps the signed IPN_TYPE_NAME to its unsigned IPN_TYPE_ID and
// the kind it carries. Names outside this table never change state.
var payproTypes = map[string]struct {
	id   string
	kind Kind
}{
	"OrderCharged":              {"1", KindActivation},
	"SubscriptionChargeSucceed": {"6", KindActivation},
	"SubscriptionRenewed":       {"9", KindActivation},
	"SubscriptionTerminated":    {"10", KindTermination},
	"SubscriptionFinished":      {"11", KindTermination},
}

type PayProClient struct {
	secretKey   string
	checkoutURL string
	keys        KeyPolicy
}

func NewPayPro(cfg config.PayProConfig, keys KeyPolicy) *PayProClient {
	return &PayProClient{
		secretKey:   cfg.SecretKey,
		checkoutURL: cfg.CheckoutURL,
		keys:        keys,
	}
}

func (c *PayProClient) Provider() Provider { return PayPro }

func (c *PayProClient) hash(form url.Values) string {
	var b strings.Builder
	for _, field := range payproHashFields {
		if field == "" {
			b.WriteString(c.secretKey)
			continue
		}
		b.WriteString(form.Get(field))
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:])
}

func (c *PayProClient) Verify(req *Request) (*Event, error) {
	form, err := parseForm(PayPro, req.Body)
	if err != nil {
		return nil, err
	}

	if form.Get("ORDER_ID") == "" || form.Get("IPN_TYPE_ID") == "" {
		return nil, malformed(PayPro, "missing ORDER_ID or IPN_TYPE_ID")
	}

	check, err := c.keys.requireSecret(PayPro, c.secretKey)
	if err != nil {
		return nil, err
	}
	if check {
		received := strings.ToLower(form.Get("IPN_HASH"))
		if !core.EqualDigest(c.hash(form), received) {
			return nil, badSignature(PayPro, "IPN_HASH mismatch")
		}
	}

	typeID := form.Get("IPN_TYPE_ID")
	kind, err := payproKind(form.Get("IPN_TYPE_NAME"), typeID)
	if err != nil {
		return nil, err
	}

	ev := &Event{
		Provider: PayPro,
		Type:     typeID,
		Kind:     kind,
		OrderRef: form.Get("SUBSCRIPTION_ID"),
		UserID:   customField(form.Get("ORDER_CUSTOM_FIELDS"), payproUserField),
		Unsigned: !check,
	}

	if next := form.Get("NEXT_REBILL_DATE"); next != "" {
		if t, err := time.ParseInLocation(time.DateOnly, next, time.UTC); err == nil {
			ev.NextBillAt = &t
		}
	}

	return ev, nil
}

// payproKind trusts only the hashed IPN_TYPE_NAME. IPN_TYPE_ID is outside the
// hash, so it is checked against the name and never used to pick the kind.
func payproKind(typeName, typeID string) (Kind, error) {
	t, ok := payproTypes[typeName]
	if !ok {
		return KindUnknown, nil
	}
	if t.id != typeID {
		return KindUnknown, malformed(PayPro, "IPN_TYPE_ID %s does not match IPN_TYPE_NAME", typeID)
	}
	return t.kind, nil
}

// customField reads one key out of "k1=v1,k2=v2".
func customField(fields, key string) string {
	for pair := range strings.SplitSeq(fields, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if ok && strings.TrimSpace(k) == key {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func (c *PayProClient) Checkout(req CheckoutRequest) (*Checkout, error) {
	u, err := url.Parse(c.checkoutURL)
	if err != nil {
		return nil, fmt.Errorf("parse paypro checkout url: %w", err)
	}

	q := u.Query()
	q.Set(payproUserField, req.UserID)
	if req.Email != "" {
		q.Set("billing-email", req.Email)
	}
	u.RawQuery = q.Encode()

	return &Checkout{
		Provider: PayPro,
		Action:   u.String(),
		Method:   http.MethodGet,
	}, nil
}
