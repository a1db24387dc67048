// AngelaMos | 2026
// paddle.go

package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
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

const PaddleSignatureHeader = "Paddle-Signature"

type PaddleClient struct {
	secret  string
	apiKey  string
	apiURL  string
	priceID string
	maxSkew time.Duration
	keys    KeyPolicy
	http    *http.Client
	now     func() time.Time
}

func NewPaddle(cfg config.PaddleConfig, keys KeyPolicy, timeout time.Duration) *PaddleClient {
	return &PaddleClient{
		secret:  cfg.WebhookSecret,
		apiKey:  cfg.APIKey,
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		priceID: cfg.PriceID,
		maxSkew: cfg.MaxSkew,
		keys:    keys,
		http:    newHTTPClient(timeout),
		now:     time.Now,
	}
}

func (c *PaddleClient) Provider() Provider { return Paddle }

// parseSignatureHeader splits "ts=123;h1=abc;h1=def". Several h1 values are
// sent while a secret is being rotated.
func parseSignatureHeader(header string) (string, []string) {
	var ts string
	var digests []string
	for part := range strings.SplitSeq(header, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "ts":
			ts = v
		case "h1":
			digests = append(digests, v)
		}
	}
	return ts, digests
}

func (c *PaddleClient) digest(ts string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(c.secret))
	mac.Write([]byte(ts + ":"))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

type paddleNotification struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       struct {
		ID           string     `json:"id"`
		Status       string     `json:"status"`
		NextBilledAt *time.Time `json:"next_billed_at"`
		CustomData   struct {
			UserID string `json:"user_id"`
		} `json:"custom_data"`
		CurrentBillingPeriod *struct {
			EndsAt time.Time `json:"ends_at"`
		} `json:"current_billing_period"`
	} `json:"data"`
}

func (c *PaddleClient) Verify(req *Request) (*Event, error) {
	if len(req.Body) == 0 {
		return nil, malformed(Paddle, "empty body")
	}

	check, err := c.keys.requireSecret(Paddle, c.secret)
	if err != nil {
		return nil, err
	}
	if check {
		if err := c.checkSignature(req); err != nil {
			return nil, err
		}
	}

	var n paddleNotification
	if err := json.Unmarshal(req.Body, &n); err != nil {
		return nil, malformed(Paddle, "parse body: %v", err)
	}
	if n.EventType == "" || n.Data.ID == "" {
		return nil, malformed(Paddle, "missing event_type or subscription id")
	}

	ev := &Event{
		Provider:   Paddle,
		Type:       n.EventType,
		Kind:       paddleKind(n.EventType, n.Data.Status),
		OrderRef:   n.Data.ID,
		UserID:     n.Data.CustomData.UserID,
		OccurredAt: n.OccurredAt.UTC(),
		Unsigned:   !check,
	}

	switch {
	case n.Data.NextBilledAt != nil:
		t := n.Data.NextBilledAt.UTC()
		ev.NextBillAt = &t
	case n.Data.CurrentBillingPeriod != nil && !n.Data.CurrentBillingPeriod.EndsAt.IsZero():
		t := n.Data.CurrentBillingPeriod.EndsAt.UTC()
		ev.NextBillAt = &t
	}

	return ev, nil
}

func (c *PaddleClient) checkSignature(req *Request) error {
	ts, digests := parseSignatureHeader(req.Header.Get(PaddleSignatureHeader))
	if ts == "" || len(digests) == 0 {
		return badSignature(Paddle, "signature header missing ts or h1")
	}

	sec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return badSignature(Paddle, "invalid ts")
	}
	if c.maxSkew > 0 {
		skew := c.now().Sub(time.Unix(sec, 0))
		if skew > c.maxSkew || skew < -c.maxSkew {
			return badSignature(Paddle, "timestamp outside tolerance")
		}
	}

	expected := c.digest(ts, req.Body)
	matched := false
	for _, d := range digests {
		if core.EqualDigest(expected, d) {
			matched = true
		}
	}
	if !matched {
		return badSignature(Paddle, "h1 mismatch")
	}
	return nil
}

func paddleKind(eventType, status string) Kind {
	switch eventType {
	case "subscription.canceled":
		return KindTermination
	case "subscription.activated",
		"subscription.created",
		"subscription.resumed",
		"subscription.updated":
		switch status {
		case "active", "trialing":
			return KindActivation
		case "canceled":
			return KindTermination
		}
	}
	return KindUnknown
}

func (c *PaddleClient) Checkout(req CheckoutRequest) (*Checkout, error) {
	custom, err := json.Marshal(map[string]string{"user_id": req.UserID})
	if err != nil {
		return nil, fmt.Errorf("encode paddle custom data: %w", err)
	}

	fields := url.Values{
		"price_id":    {c.priceID},
		"quantity":    {"1"},
		"custom_data": {string(custom)},
	}
	if req.Email != "" {
		fields.Set("customer_email", req.Email)
	}

	return &Checkout{
		Provider: Paddle,
		Action:   "paddle.js",
		Method:   "overlay",
		Fields:   fields,
	}, nil
}

func (c *PaddleClient) Cancel(ctx context.Context, subscriptionID string) error {
	body, err := json.Marshal(map[string]string{
		"effective_from": "next_billing_period",
	})
	if err != nil {
		return fmt.Errorf("encode paddle cancel: %w", err)
	}

	endpoint := c.apiURL + "/subscriptions/" + url.PathEscape(subscriptionID) + "/cancel"
	header := http.Header{"Authorization": {"Bearer " + c.apiKey}}

	if err := postJSON(ctx, c.http, endpoint, "application/json", body, header, nil); err != nil {
		return fmt.Errorf("paddle cancel: %w", err)
	}
	return nil
}
