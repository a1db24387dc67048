// AngelaMos | 2026
// repository.go

package billing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/valera277/rag-converter-pro/internal/core"
)

type Repository interface {
	GetByUserID(ctx context.Context, userID string) (*Subscription, error)
	FindUserByOrderRef(ctx context.Context, provider, orderRef string) (string, error)
	Activate(ctx context.Context, in Activation) (*Subscription, error)
	Terminate(ctx context.Context, userID string, status Status) (*Subscription, error)
	Cancel(ctx context.Context, userID string) (*Subscription, error)
	Expire(ctx context.Context, userID string, now time.Time) (*Subscription, error)
}

// Activation is the absolute state written by an activation event.
type Activation struct {
	UserID    string
	Provider  string
	OrderRef  string
	ExpiresAt time.Time
}

const subscriptionColumns = `id, user_id, status, provider, provider_order_id,
		       expires_at, created_at, updated_at`

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

func (r *repository) GetByUserID(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE user_id = $1`

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get subscription: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get subscription: %w", err)
	}

	return &sub, nil
}

func (r *repository) FindUserByOrderRef(
	ctx context.Context,
	provider, orderRef string,
) (string, error) {
	query := `
		SELECT user_id
		FROM subscriptions
		WHERE provider = $1 AND provider_order_id = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	var userID string
	err := r.db.GetContext(ctx, &userID, query, provider, orderRef)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("find subscription by order: %w", core.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("find subscription by order: %w", err)
	}

	return userID, nil
}

// Activate upserts so a user whose subscription row is missing still gets
// one. A missing user surfaces as core.ErrNotFound via the foreign key.
func (r *repository) Activate(
	ctx context.Context,
	in Activation,
) (*Subscription, error) {
	query := `
		INSERT INTO subscriptions (id, user_id, status, provider, provider_order_id, expires_at)
		VALUES ($1, $2, 'active', $3, NULLIF($4, ''), $5)
		ON CONFLICT (user_id) DO UPDATE
		SET status = 'active',
		    provider = EXCLUDED.provider,
		    provider_order_id = COALESCE(EXCLUDED.provider_order_id, subscriptions.provider_order_id),
		    expires_at = EXCLUDED.expires_at,
		    updated_at = NOW()
		RETURNING ` + subscriptionColumns

	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query,
		uuid.New().String(),
		in.UserID,
		in.Provider,
		in.OrderRef,
		in.ExpiresAt,
	)
	if err != nil {
		if isForeignKeyError(err) {
			return nil, fmt.Errorf("activate subscription: %w", core.ErrNotFound)
		}
		return nil, fmt.Errorf("activate subscription: %w", err)
	}

	return &sub, nil
}

// Terminate only touches subscriptions inside the paid window, so a stray
// termination can never grant or revoke a free tier.
func (r *repository) Terminate(
	ctx context.Context,
	userID string,
	status Status,
) (*Subscription, error) {
	query := `
		UPDATE subscriptions
		SET status = $2, updated_at = NOW()
		WHERE user_id = $1 AND status IN ('active', 'cancelled')
		RETURNING ` + subscriptionColumns

	return r.transition(ctx, "terminate subscription", userID, query, userID, status)
}

func (r *repository) Cancel(
	ctx context.Context,
	userID string,
) (*Subscription, error) {
	query := `
		UPDATE subscriptions
		SET status = 'cancelled', updated_at = NOW()
		WHERE user_id = $1 AND status = 'active'
		RETURNING ` + subscriptionColumns

	sub, err := r.transition(ctx, "cancel subscription", userID, query, userID)
	if err != nil {
		return nil, err
	}
	if sub.Status != StatusCancelled {
		return nil, fmt.Errorf("cancel subscription: %w", ErrNoActiveSubscription)
	}
	return sub, nil
}

func (r *repository) Expire(
	ctx context.Context,
	userID string,
	now time.Time,
) (*Subscription, error) {
	query := `
		UPDATE subscriptions
		SET status = 'inactive', updated_at = NOW()
		WHERE user_id = $1
		  AND status IN ('active', 'cancelled')
		  AND expires_at < $2
		RETURNING ` + subscriptionColumns

	return r.transition(ctx, "expire subscription", userID, query, userID, now)
}

// transition runs a guarded UPDATE. When the guard filters the row out the
// current state is returned unchanged.
func (r *repository) transition(
	ctx context.Context,
	op string,
	userID string,
	query string,
	args ...any,
) (*Subscription, error) {
	var sub Subscription
	err := r.db.GetContext(ctx, &sub, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return r.GetByUserID(ctx, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &sub, nil
}

func isForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}
