// AngelaMos | 2026
// wayforpay.go

package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5" //nolint:gosec // WayForPay mandates HMAC-MD5
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/core"
)

// wayforpayCallbackFields are signed in this order, joined by ';'.
var wayforpayCallbackFields = [...]string{
	"merchantAccount",
	"orderReference",
	"amount",
	"currency",
	"authCode",
	"cardPan",
	"transactionStatus",
	"reasonCode",
}

const (
	wayforpayAccept   = "accept"
	wayforpayReasonOK = 1100
	wayforpayRemoveOK = 4100
)

type WayForPayClient struct {
	merchantAccount  string
	secretKey        string
	merchantPassword string
	merchantDomain   string
	currency         string
	apiURL           string
	payURL           string
	keys             KeyPolicy
	http             *http.Client
	now              func() time.Time
}

func NewWayForPay(cfg config.WayForPayConfig, keys KeyPolicy, timeout time.Duration) *WayForPayClient {
	password := cfg.MerchantPassword
	if password == "" {
		password = cfg.SecretKey
	}

	return &WayForPayClient{
		merchantAccount:  cfg.MerchantAccount,
		secretKey:        cfg.SecretKey,
		merchantPassword: password,
		merchantDomain:   cfg.MerchantDomain,
		currency:         cfg.Currency,
		apiURL:           cfg.APIURL,
		payURL:           cfg.PayURL,
		keys:             keys,
		http:             newHTTPClient(timeout),
		now:              time.Now,
	}
}

func (c *WayForPayClient) Provider() Provider { return WayForPay }

// Sign is the hex HMAC-MD5 of parts joined by ';'.
func (c *WayForPayClient) Sign(parts ...string) string {
	mac := hmac.New(md5.New, []byte(c.secretKey))
	mac.Write([]byte(strings.Join(parts, ";")))
	return hex.EncodeToString(mac.Sum(nil))
}

// scalar renders a decoded JSON value the way it appeared on the wire.
func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

func (c *WayForPayClient) Verify(req *Request) (*Event, error) {
	if len(bytes.TrimSpace(req.Body)) == 0 {
		return nil, malformed(WayForPay, "empty body")
	}

	dec := json.NewDecoder(bytes.NewReader(req.Body))
	dec.UseNumber()

	var payload map[string]any
	if err := dec.Decode(&payload); err != nil {
		return nil, malformed(WayForPay, "parse body: %v", err)
	}

	parts := make([]string, 0, len(wayforpayCallbackFields))
	missing := ""
	for _, name := range wayforpayCallbackFields {
		v, ok := scalar(payload[name])
		if !ok && missing == "" {
			missing = name
		}
		parts = append(parts, v)
	}
	if missing != "" {
		// A signed callback with a null or absent signed field cannot
		// match its signature, and says so without naming the field.
		if _, signed := scalar(payload["merchantSignature"]); signed {
			return nil, badSignature(WayForPay, "merchantSignature mismatch")
		}
		return nil, malformed(WayForPay, "missing %s", missing)
	}
	orderRef := parts[1]
	status := parts[6]
	if orderRef == "" {
		return nil, malformed(WayForPay, "empty orderReference")
	}

	check, err := c.keys.requireSecret(WayForPay, c.secretKey)
	if err != nil {
		return nil, err
	}
	if check {
		received, _ := scalar(payload["merchantSignature"])
		if !core.EqualDigest(c.Sign(parts...), received) {
			return nil, badSignature(WayForPay, "merchantSignature mismatch")
		}
	}

	ev := &Event{
		Provider: WayForPay,
		Type:     status,
		Kind:     wayforpayKind(status),
		OrderRef: orderRef,
		Unsigned: !check,
	}
	ev.UserID, _ = UserFromOrderRef(orderRef)

	for _, key := range []string{"processingDate", "createdDate"} {
		raw, ok := scalar(payload[key])
		if !ok {
			continue
		}
		if sec, err := strconv.ParseInt(raw, 10, 64); err == nil && sec > 0 {
			ev.OccurredAt = time.Unix(sec, 0).UTC()
			break
		}
	}

	return ev, nil
}

func wayforpayKind(status string) Kind {
	switch status {
	case "Approved":
		return KindActivation
	case "Declined", "Expired", "Refunded", "Voided":
		return KindTermination
	default:
		return KindUnknown
	}
}

type wayforpayAck struct {
	OrderReference string `json:"orderReference"`
	Status         string `json:"status"`
	Time           int64  `json:"time"`
	Signature      string `json:"signature"`
}

// Acknowledge builds the signed "accept" body WayForPay waits for before it
// stops redelivering a callback.
func (c *WayForPayClient) Acknowledge(ev *Event) (string, []byte, error) {
	ts := c.now().Unix()
	ack := wayforpayAck{
		OrderReference: ev.OrderRef,
		Status:         wayforpayAccept,
		Time:           ts,
		Signature:      c.Sign(ev.OrderRef, wayforpayAccept, strconv.FormatInt(ts, 10)),
	}

	body, err := json.Marshal(ack)
	if err != nil {
		return "", nil, fmt.Errorf("encode wayforpay ack: %w", err)
	}
	return "application/json", body, nil
}

func (c *WayForPayClient) Checkout(req CheckoutRequest) (*Checkout, error) {
	now := c.now().UTC()
	orderDate := strconv.FormatInt(now.Unix(), 10)
	amount := strconv.Itoa(req.Amount)

	names := []string{req.Description}
	counts := []string{"1"}
	prices := []string{amount}

	parts := []string{
		c.merchantAccount,
		c.merchantDomain,
		req.OrderRef,
		orderDate,
		amount,
		c.currency,
	}
	parts = append(parts, names...)
	parts = append(parts, counts...)
	parts = append(parts, prices...)

	return &Checkout{
		Provider: WayForPay,
		Action:   c.payURL,
		Method:   http.MethodPost,
		Fields: url.Values{
			"merchantAccount":               {c.merchantAccount},
			"merchantAuthType":              {"SimpleSignature"},
			"merchantDomainName":            {c.merchantDomain},
			"merchantTransactionSecureType": {"AUTO"},
			"merchantSignature":             {c.Sign(parts...)},
			"orderReference":                {req.OrderRef},
			"orderDate":                     {orderDate},
			"amount":                        {amount},
			"currency":                      {c.currency},
			"productName[]":                 names,
			"productCount[]":                counts,
			"productPrice[]":                prices,
			"returnUrl":                     {req.ResultURL},
			"serviceUrl":                    {req.ServerURL},
			"regularMode":                   {"monthly"},
			"regularAmount":                 {amount},
			"regularBehavior":               {"preset"},
			"dateNext":                      {now.AddDate(0, 0, 30).Format("02.01.2006")},
		},
	}, nil
}

type wayforpayRegularResponse struct {
	ReasonCode int    `json:"reasonCode"`
	Reason     string `json:"reason"`
}

func (c *WayForPayClient) Cancel(ctx context.Context, orderRef string) error {
	body, err := json.Marshal(map[string]string{
		"requestType":      "REMOVE",
		"merchantAccount":  c.merchantAccount,
		"merchantPassword": c.merchantPassword,
		"orderReference":   orderRef,
	})
	if err != nil {
		return fmt.Errorf("encode wayforpay remove: %w", err)
	}

	var resp wayforpayRegularResponse
	if err := postJSON(ctx, c.http, c.apiURL, "application/json", body, nil, &resp); err != nil {
		return fmt.Errorf("wayforpay remove: %w", err)
	}

	if resp.ReasonCode != wayforpayRemoveOK && resp.ReasonCode != wayforpayReasonOK {
		return fmt.Errorf("wayforpay remove: %d %s", resp.ReasonCode, resp.Reason)
	}
	return nil
}
