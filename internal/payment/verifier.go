// AngelaMos | 2026
// verifier.go

package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Provider string

const (
	LiqPay    Provider = "liqpay"
	PayPro    Provider = "paypro"
	Paddle    Provider = "paddle"
	WayForPay Provider = "wayforpay"
)

// Kind classifies a provider event by its effect on a subscription.
type Kind int

const (
	KindUnknown Kind = iota
	KindActivation
	KindTermination
)

func (k Kind) String() string {
	switch k {
	case KindActivation:
		return "activation"
	case KindTermination:
		return "termination"
	default:
		return "unknown"
	}
}

// Event is a webhook that passed signature verification.
type Event struct {
	Provider   Provider
	Type       string
	Kind       Kind
	OrderRef   string
	UserID     string
	NextBillAt *time.Time
	OccurredAt time.Time
	Unsigned   bool
}

type Request struct {
	Body   []byte
	Header http.Header
}

// Verifier authenticates and decodes one provider's webhook format. It never
// touches storage and returns *RejectionError on any failure.
type Verifier interface {
	Provider() Provider
	Verify(req *Request) (*Event, error)
}

// Acknowledger is implemented by providers that expect a signed response body.
type Acknowledger interface {
	Acknowledge(ev *Event) (contentType string, body []byte, err error)
}

// Canceller notifies a provider that recurring billing should stop.
type Canceller interface {
	Cancel(ctx context.Context, orderRef string) error
}

type CheckoutRequest struct {
	UserID      string
	Email       string
	OrderRef    string
	Amount      int
	Description string
	ServerURL   string
	ResultURL   string
}

type Checkout struct {
	Provider Provider   `json:"provider"`
	Action   string     `json:"action"`
	Method   string     `json:"method"`
	Fields   url.Values `json:"fields,omitempty"`
}

type CheckoutBuilder interface {
	Checkout(req CheckoutRequest) (*Checkout, error)
}

var ErrRejected = errors.New("webhook rejected")

type RejectReason int

const (
	ReasonMalformed RejectReason = iota
	ReasonSignature
	ReasonMissingSecret
)

func (r RejectReason) String() string {
	switch r {
	case ReasonMalformed:
		return "malformed"
	case ReasonSignature:
		return "signature"
	case ReasonMissingSecret:
		return "missing_secret"
	default:
		return "unknown"
	}
}

// RejectionError carries the reason a webhook was refused. Detail is for
// server logs only.
type RejectionError struct {
	Provider Provider
	Reason   RejectReason
	Detail   string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s webhook rejected (%s): %s", e.Provider, e.Reason, e.Detail)
}

func (e *RejectionError) Unwrap() error {
	return ErrRejected
}

func (e *RejectionError) StatusCode() int {
	if e.Reason == ReasonMalformed {
		return http.StatusBadRequest
	}
	return http.StatusForbidden
}

func malformed(p Provider, format string, args ...any) error {
	return &RejectionError{Provider: p, Reason: ReasonMalformed, Detail: fmt.Sprintf(format, args...)}
}

func badSignature(p Provider, detail string) error {
	return &RejectionError{Provider: p, Reason: ReasonSignature, Detail: detail}
}

// KeyPolicy decides what happens when a verifier has no key material.
// AllowUnsigned must only be set for development deployments.
type KeyPolicy struct {
	AllowUnsigned bool
}

// requireSecret reports whether signature checks should run. A missing
// secret fails closed unless the policy explicitly allows unsigned traffic.
func (k KeyPolicy) requireSecret(p Provider, secret string) (bool, error) {
	if secret != "" {
		return true, nil
	}
	if k.AllowUnsigned {
		return false, nil
	}
	return false, &RejectionError{
		Provider: p,
		Reason:   ReasonMissingSecret,
		Detail:   "no shared secret configured",
	}
}

const orderRefPrefix = "rag_"

// NewOrderRef builds the merchant-side order reference embedded in checkout
// forms. The user id can be recovered with UserFromOrderRef.
func NewOrderRef(userID string, now time.Time) string {
	return orderRefPrefix + userID + "_" + strconv.FormatInt(now.Unix(), 10)
}

func UserFromOrderRef(ref string) (string, bool) {
	rest, ok := strings.CutPrefix(ref, orderRefPrefix)
	if !ok {
		return "", false
	}

	// Providers may append their own suffix after the timestamp, so the id
	// is read by its fixed length rather than by the last separator.
	const idLen = 36
	if len(rest) <= idLen || rest[idLen] != '_' {
		return "", false
	}

	id, err := uuid.Parse(rest[:idLen])
	if err != nil {
		return "", false
	}
	return id.String(), true
}

func parseForm(p Provider, body []byte) (url.Values, error) {
	if len(body) == 0 {
		return nil, malformed(p, "empty body")
	}
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, malformed(p, "decode form: %v", err)
	}
	return values, nil
}
