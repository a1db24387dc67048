// AngelaMos | 2026
// policy.go

package billing

import (
	"time"

	"github.com/valera277/rag-converter-pro/internal/config"
	"github.com/valera277/rag-converter-pro/internal/payment"
)

const defaultGracePeriod = 30 * 24 * time.Hour

// Policy is the per-provider contract: what a termination event does and how
// long an activation lasts when no next billing date is supplied.
type Policy struct {
	Termination Status
	GracePeriod time.Duration
}

type Policies map[payment.Provider]Policy

func PoliciesFromConfig(cfg map[string]config.PolicyConfig) Policies {
	out := make(Policies, len(cfg))
	for name, p := range cfg {
		out[payment.Provider(name)] = Policy{
			Termination: Status(p.Termination),
			GracePeriod: p.GracePeriod,
		}
	}
	return out
}

func (p Policies) For(provider payment.Provider) Policy {
	policy, ok := p[provider]
	if !ok {
		policy = Policy{Termination: StatusCancelled}
	}
	if policy.Termination != StatusInactive {
		policy.Termination = StatusCancelled
	}
	if policy.GracePeriod <= 0 {
		policy.GracePeriod = defaultGracePeriod
	}
	return policy
}
