// AngelaMos | 2026
// entity.go

package billing

import (
	"time"
)

type Status string

const (
	StatusFreeTier  Status = "free_tier"
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusInactive  Status = "inactive"
)

// Paid reports whether the status belongs to the paid access window.
func (s Status) Paid() bool {
	return s == StatusActive || s == StatusCancelled
}

type Subscription struct {
	ID              string     `db:"id"`
	UserID          string     `db:"user_id"`
	Status          Status     `db:"status"`
	Provider        *string    `db:"provider"`
	ProviderOrderID *string    `db:"provider_order_id"`
	ExpiresAt       *time.Time `db:"expires_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

// Expired is true for a paid subscription whose window has elapsed and
// which must be demoted to inactive on read.
func (s *Subscription) Expired(now time.Time) bool {
	return s.Status.Paid() && s.ExpiresAt != nil && s.ExpiresAt.Before(now)
}

// HasAccess requires a paid status and a known, future expiry.
func (s *Subscription) HasAccess(now time.Time) bool {
	return s.Status.Paid() && s.ExpiresAt != nil && !s.ExpiresAt.Before(now)
}
