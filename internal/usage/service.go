// AngelaMos | 2026
// service.go

package usage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/valera277/rag-converter-pro/internal/billing"
)

var ErrQuotaExceeded = errors.New("free conversion limit reached")

const (
	QuotaReason         = "Free conversion limit reached. Subscribe to keep converting."
	dashboardHistoryLen = 10
)

// SubscriptionReader returns the subscription after lazy expiry.
type SubscriptionReader interface {
	CheckAccess(ctx context.Context, userID string) (*billing.Subscription, error)
}

type Service struct {
	repo          Repository
	subscriptions SubscriptionReader
	freeLimit     int
	logger        *slog.Logger
	now           func() time.Time
}

func NewService(
	repo Repository,
	subscriptions SubscriptionReader,
	freeLimit int,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:          repo,
		subscriptions: subscriptions,
		freeLimit:     freeLimit,
		logger:        logger,
		now:           time.Now,
	}
}

func (s *Service) FreeLimit() int {
	return s.freeLimit
}

// CanConvert lets paid subscribers through unconditionally and free users
// while their counter is below the limit.
func (s *Service) CanConvert(ctx context.Context, userID string) (Decision, error) {
	sub, err := s.subscriptions.CheckAccess(ctx, userID)
	if err != nil {
		return Decision{}, fmt.Errorf("check subscription: %w", err)
	}
	if sub.HasAccess(s.now()) {
		return Decision{Allowed: true, Paid: true}, nil
	}

	used, err := s.repo.FreeUses(ctx, userID)
	if err != nil {
		return Decision{}, err
	}

	d := Decision{
		FreeUsed:      used,
		FreeRemaining: max(0, s.freeLimit-used),
	}
	if used < s.freeLimit {
		d.Allowed = true
		return d, nil
	}

	d.Reason = QuotaReason
	return d, nil
}

// RecordConversion stores the history row for a finished conversion. Free
// users spend one slot in the same transaction; paid users never do.
func (s *Service) RecordConversion(
	ctx context.Context,
	userID string,
	decision Decision,
	filename string,
	chunks int,
) (*HistoryEntry, error) {
	entry, err := s.repo.Record(ctx, Record{
		UserID:    userID,
		Filename:  filename,
		Chunks:    chunks,
		CountFree: !decision.Paid,
		Limit:     s.freeLimit,
	})
	if err != nil {
		if errors.Is(err, ErrQuotaExceeded) {
			s.logger.Info("free slot taken by a concurrent conversion", "user_id", userID)
		}
		return nil, err
	}
	return entry, nil
}

func (s *Service) History(
	ctx context.Context,
	userID string,
	params ListHistoryParams,
) ([]HistoryEntry, int, error) {
	params.Normalize()
	return s.repo.History(ctx, userID, params)
}

func (s *Service) Dashboard(ctx context.Context, userID string) (*DashboardResponse, error) {
	sub, err := s.subscriptions.CheckAccess(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("check subscription: %w", err)
	}

	used, err := s.repo.FreeUses(ctx, userID)
	if err != nil {
		return nil, err
	}

	entries, _, err := s.repo.History(ctx, userID, ListHistoryParams{
		Page:     1,
		PageSize: dashboardHistoryLen,
	})
	if err != nil {
		return nil, err
	}

	return &DashboardResponse{
		Subscription:  billing.ToSubscriptionResponse(sub, s.now()),
		FreeLimit:     s.freeLimit,
		FreeRemaining: max(0, s.freeLimit-used),
		History:       ToHistoryResponseList(entries),
	}, nil
}
