// AngelaMos | 2026
// dto.go

package billing

import (
	"time"
)

type SubscriptionResponse struct {
	Status    Status     `json:"status"`
	Provider  string     `json:"provider,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Access    bool       `json:"access"`
}

func ToSubscriptionResponse(s *Subscription, now time.Time) SubscriptionResponse {
	resp := SubscriptionResponse{
		Status:    s.Status,
		ExpiresAt: s.ExpiresAt,
		Access:    s.HasAccess(now),
	}
	if s.Provider != nil {
		resp.Provider = *s.Provider
	}
	return resp
}
