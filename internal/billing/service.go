// AngelaMos | 2026
// service.go

package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/valera277/rag-converter-pro/internal/core"
	"github.com/valera277/rag-converter-pro/internal/payment"
)

var (
	ErrNoActiveSubscription = errors.New("no active subscription")
	ErrCheckoutUnavailable  = errors.New("checkout unavailable")
)

// Result describes what ApplyEvent did with a verified event.
type Result string

const (
	ResultApplied     Result = "applied"
	ResultIgnored     Result = "ignored"
	ResultUnknownUser Result = "unknown_user"
)

// Gateways is the subset of the payment registry the service needs.
type Gateways interface {
	Primary() payment.Provider
	Checkout(p payment.Provider) (payment.CheckoutBuilder, bool)
	Canceller(p payment.Provider) (payment.Canceller, bool)
}

type ServiceConfig struct {
	Policies      Policies
	Price         int
	Description   string
	PublicURL     string
	ResultURL     string
	DashboardURL  string
	CancelTimeout time.Duration
}

type Service struct {
	repo     Repository
	gateways Gateways
	cfg      ServiceConfig
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

func NewService(
	repo Repository,
	gateways Gateways,
	cfg ServiceConfig,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Description == "" {
		cfg.Description = "RAG Converter Pro monthly subscription"
	}
	if cfg.CancelTimeout <= 0 {
		cfg.CancelTimeout = 10 * time.Second
	}

	return &Service{
		repo:     repo,
		gateways: gateways,
		cfg:      cfg,
		logger:   logger,
		tracer:   core.Tracer("billing"),
		now:      time.Now,
	}
}

// ApplyEvent drives the state machine from a verified webhook. Every write is
// an absolute assignment so duplicate deliveries converge on the same row.
func (s *Service) ApplyEvent(ctx context.Context, ev *payment.Event) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "billing.ApplyEvent", trace.WithAttributes(
		attribute.String("payment.provider", string(ev.Provider)),
		attribute.String("payment.event_type", ev.Type),
		attribute.String("payment.kind", ev.Kind.String()),
	))
	defer span.End()

	log := s.logger.With(
		"provider", ev.Provider,
		"event_type", ev.Type,
		"order_ref", ev.OrderRef,
	)

	if ev.Kind == payment.KindUnknown {
		log.Info("unmapped webhook event acknowledged")
		return ResultIgnored, nil
	}

	userID, err := s.resolveUser(ctx, ev)
	if errors.Is(err, core.ErrNotFound) {
		log.Warn("webhook for unknown subscriber acknowledged", "user_id", ev.UserID)
		return ResultUnknownUser, nil
	}
	if err != nil {
		core.FailSpan(span, "resolve user", err)
		return "", err
	}

	policy := s.cfg.Policies.For(ev.Provider)

	var sub *Subscription
	switch ev.Kind {
	case payment.KindActivation:
		sub, err = s.repo.Activate(ctx, Activation{
			UserID:    userID,
			Provider:  string(ev.Provider),
			OrderRef:  ev.OrderRef,
			ExpiresAt: s.expiry(ev, policy),
		})
	case payment.KindTermination:
		sub, err = s.repo.Terminate(ctx, userID, policy.Termination)
	}

	if errors.Is(err, core.ErrNotFound) {
		log.Warn("webhook for unknown subscriber acknowledged", "user_id", userID)
		return ResultUnknownUser, nil
	}
	if err != nil {
		core.FailSpan(span, "apply event", err)
		return "", fmt.Errorf("apply %s event: %w", ev.Kind, err)
	}

	log.Info("subscription updated",
		"user_id", userID,
		"status", sub.Status,
		"expires_at", sub.ExpiresAt,
	)
	return ResultApplied, nil
}

// expiry prefers the provider's next billing date. Otherwise the grace period
// is counted from the event's own timestamp so replays compute the same value.
func (s *Service) expiry(ev *payment.Event, policy Policy) time.Time {
	if ev.NextBillAt != nil {
		return ev.NextBillAt.UTC()
	}
	base := ev.OccurredAt
	if base.IsZero() {
		base = s.now()
	}
	return base.UTC().Add(policy.GracePeriod)
}

func (s *Service) resolveUser(ctx context.Context, ev *payment.Event) (string, error) {
	if id, err := uuid.Parse(strings.TrimSpace(ev.UserID)); err == nil {
		return id.String(), nil
	}
	if ev.OrderRef == "" {
		return "", fmt.Errorf("resolve subscriber: %w", core.ErrNotFound)
	}
	return s.repo.FindUserByOrderRef(ctx, string(ev.Provider), ev.OrderRef)
}

// CheckAccess returns the subscription after lazy expiry. Users without a
// row are reported as free tier.
func (s *Service) CheckAccess(ctx context.Context, userID string) (*Subscription, error) {
	sub, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, core.ErrNotFound) {
		return &Subscription{UserID: userID, Status: StatusFreeTier}, nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	if !sub.Expired(now) {
		return sub, nil
	}

	expired, err := s.repo.Expire(ctx, userID, now)
	if err != nil {
		return nil, err
	}
	s.logger.Info("subscription expired on access",
		"user_id", userID,
		"expires_at", sub.ExpiresAt,
	)
	return expired, nil
}

// HasPaidAccess is the gate consumed by the usage limiter.
func (s *Service) HasPaidAccess(ctx context.Context, userID string) (bool, error) {
	sub, err := s.CheckAccess(ctx, userID)
	if err != nil {
		return false, err
	}
	return sub.HasAccess(s.now()), nil
}

// Cancel moves an active subscription to cancelled, keeping expires_at so the
// paid window runs out naturally. The provider is told afterwards on a best
// effort basis; its failure never reverts the local transition.
func (s *Service) Cancel(ctx context.Context, userID string) (*Subscription, error) {
	current, err := s.CheckAccess(ctx, userID)
	if err != nil {
		return nil, err
	}
	if current.Status != StatusActive {
		return nil, ErrNoActiveSubscription
	}

	sub, err := s.repo.Cancel(ctx, userID)
	if err != nil {
		return nil, err
	}

	s.notifyProvider(ctx, sub)
	return sub, nil
}

func (s *Service) notifyProvider(ctx context.Context, sub *Subscription) {
	if sub.Provider == nil || sub.ProviderOrderID == nil {
		return
	}

	provider := payment.Provider(*sub.Provider)
	log := s.logger.With(
		"provider", provider,
		"user_id", sub.UserID,
		"order_ref", *sub.ProviderOrderID,
	)

	canceller, ok := s.gateways.Canceller(provider)
	if !ok {
		log.Info("provider has no cancellation api, customer portal required")
		return
	}

	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.CancelTimeout)
	defer cancel()

	if err := canceller.Cancel(callCtx, *sub.ProviderOrderID); err != nil {
		log.Error("provider cancellation failed", "error", err)
		return
	}
	log.Info("provider cancellation sent")
}

type SubscribeResult struct {
	Subscribed  bool              `json:"subscribed"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Price       int               `json:"price,omitempty"`
	OrderRef    string            `json:"order_ref,omitempty"`
	Checkout    *payment.Checkout `json:"checkout,omitempty"`
}

// Subscribe returns checkout parameters for the primary provider, or a
// redirect when the user already has paid access.
func (s *Service) Subscribe(
	ctx context.Context,
	userID, email string,
) (*SubscribeResult, error) {
	sub, err := s.CheckAccess(ctx, userID)
	if err != nil {
		return nil, err
	}

	if sub.HasAccess(s.now()) {
		return &SubscribeResult{
			Subscribed:  true,
			RedirectURL: s.cfg.DashboardURL,
		}, nil
	}

	provider := s.gateways.Primary()
	builder, ok := s.gateways.Checkout(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCheckoutUnavailable, provider)
	}

	orderRef := payment.NewOrderRef(userID, s.now())
	checkout, err := builder.Checkout(payment.CheckoutRequest{
		UserID:      userID,
		Email:       email,
		OrderRef:    orderRef,
		Amount:      s.cfg.Price,
		Description: s.cfg.Description,
		ServerURL:   strings.TrimRight(s.cfg.PublicURL, "/") + "/payment/webhooks/" + string(provider),
		ResultURL:   s.cfg.ResultURL,
	})
	if err != nil {
		return nil, fmt.Errorf("build checkout: %w", err)
	}

	return &SubscribeResult{
		Price:    s.cfg.Price,
		OrderRef: orderRef,
		Checkout: checkout,
	}, nil
}
