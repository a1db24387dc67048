// AngelaMos | 2026
// liqpay.go

package payment

import (
	"context"
	"crypto/sha1" //nolint:gosec // LiqPay mandates SHA-1 signatures
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

const liqpayAPIVersion = 3

type LiqPayClient struct {
	publicKey   string
	privateKey  string
	currency    string
	apiURL      string
	checkoutURL string
	keys        KeyPolicy
	http        *http.Client
	now         func() time.Time
}

func NewLiqPay(cfg config.LiqPayConfig, keys KeyPolicy, timeout time.Duration) *LiqPayClient {
	return &LiqPayClient{
		publicKey:   cfg.PublicKey,
		privateKey:  cfg.PrivateKey,
		currency:    cfg.Currency,
		apiURL:      cfg.APIURL,
		checkoutURL: cfg.CheckoutURL,
		keys:        keys,
		http:        newHTTPClient(timeout),
		now:         time.Now,
	}
}

func (c *LiqPayClient) Provider() Provider { return LiqPay }

// sign is base64(sha1(private + data + private)).
func (c *LiqPayClient) sign(data string) string {
	sum := sha1.Sum([]byte(c.privateKey + data + c.privateKey)) //nolint:gosec // provider mandated
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (c *LiqPayClient) encode(params map[string]any) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("encode liqpay params: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

type liqpayCallback struct {
	Action     string `json:"action"`
	Status     string `json:"status"`
	OrderID    string `json:"order_id"`
	CreateDate int64  `json:"create_date"`
	EndDate    int64  `json:"end_date"`
}

func (c *LiqPayClient) Verify(req *Request) (*Event, error) {
	form, err := parseForm(LiqPay, req.Body)
	if err != nil {
		return nil, err
	}

	data := form.Get("data")
	if data == "" {
		return nil, malformed(LiqPay, "missing data field")
	}

	check, err := c.keys.requireSecret(LiqPay, c.privateKey)
	if err != nil {
		return nil, err
	}
	if check && !core.EqualDigest(c.sign(data), form.Get("signature")) {
		return nil, badSignature(LiqPay, "signature mismatch")
	}

	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, malformed(LiqPay, "decode data: %v", err)
	}

	var cb liqpayCallback
	if err := json.Unmarshal(raw, &cb); err != nil {
		return nil, malformed(LiqPay, "parse data: %v", err)
	}
	if cb.OrderID == "" {
		return nil, malformed(LiqPay, "missing order_id")
	}

	ev := &Event{
		Provider: LiqPay,
		Type:     cb.Status,
		Kind:     liqpayKind(cb.Status),
		OrderRef: cb.OrderID,
		Unsigned: !check,
	}
	ev.UserID, _ = UserFromOrderRef(cb.OrderID)

	switch {
	case cb.EndDate > 0:
		ev.OccurredAt = time.UnixMilli(cb.EndDate).UTC()
	case cb.CreateDate > 0:
		ev.OccurredAt = time.UnixMilli(cb.CreateDate).UTC()
	}

	return ev, nil
}

func liqpayKind(status string) Kind {
	switch status {
	case "subscribed", "success", "sandbox":
		return KindActivation
	case "unsubscribed", "failure", "error", "reversed":
		return KindTermination
	default:
		return KindUnknown
	}
}

func (c *LiqPayClient) Checkout(req CheckoutRequest) (*Checkout, error) {
	start := c.now().UTC().Add(5 * time.Minute)

	data, err := c.encode(map[string]any{
		"version":               liqpayAPIVersion,
		"public_key":            c.publicKey,
		"action":                "subscribe",
		"amount":                strconv.Itoa(req.Amount),
		"currency":              c.currency,
		"description":           req.Description,
		"order_id":              req.OrderRef,
		"subscribe":             "1",
		"subscribe_periodicity": "month",
		"subscribe_date_start":  start.Format(time.DateTime),
		"result_url":            req.ResultURL,
		"server_url":            req.ServerURL,
	})
	if err != nil {
		return nil, err
	}

	return &Checkout{
		Provider: LiqPay,
		Action:   c.checkoutURL,
		Method:   http.MethodPost,
		Fields: url.Values{
			"data":      {data},
			"signature": {c.sign(data)},
		},
	}, nil
}

type liqpayAPIResponse struct {
	Status         string `json:"status"`
	ErrDescription string `json:"err_description"`
}

func (c *LiqPayClient) Cancel(ctx context.Context, orderRef string) error {
	data, err := c.encode(map[string]any{
		"version":    liqpayAPIVersion,
		"public_key": c.publicKey,
		"action":     "unsubscribe",
		"order_id":   orderRef,
	})
	if err != nil {
		return err
	}

	form := url.Values{
		"data":      {data},
		"signature": {c.sign(data)},
	}

	var resp liqpayAPIResponse
	if err := postJSON(
		ctx,
		c.http,
		c.apiURL,
		"application/x-www-form-urlencoded",
		[]byte(form.Encode()),
		nil,
		&resp,
	); err != nil {
		return fmt.Errorf("liqpay unsubscribe: %w", err)
	}

	if resp.Status == "error" || resp.Status == "failure" {
		return fmt.Errorf("liqpay unsubscribe: %s", resp.ErrDescription)
	}
	return nil
}
