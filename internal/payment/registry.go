// AngelaMos | 2026
// registry.go

package payment

import (
	"fmt"
	"slices"

	"github.com/valera277/rag-converter-pro/internal/config"
)

// Registry resolves provider capabilities by name. Webhook routes select a
// verifier through it; nothing inspects concrete types.
type Registry struct {
	primary    Provider
	verifiers  map[Provider]Verifier
	checkouts  map[Provider]CheckoutBuilder
	cancellers map[Provider]Canceller
}

func NewRegistry(primary Provider) *Registry {
	return &Registry{
		primary:    primary,
		verifiers:  make(map[Provider]Verifier),
		checkouts:  make(map[Provider]CheckoutBuilder),
		cancellers: make(map[Provider]Canceller),
	}
}

// NewRegistryFromConfig wires all four providers. Unsigned webhooks are only
// tolerated when the deployment is development and the flag is set.
func NewRegistryFromConfig(cfg config.PaymentConfig, environment string) *Registry {
	keys := KeyPolicy{
		AllowUnsigned: environment == config.EnvDevelopment && cfg.AllowUnsignedDev,
	}

	liqpay := NewLiqPay(cfg.LiqPay, keys, cfg.CancelTimeout)
	paypro := NewPayPro(cfg.PayPro, keys)
	paddle := NewPaddle(cfg.Paddle, keys, cfg.CancelTimeout)
	wfp := NewWayForPay(cfg.WayForPay, keys, cfg.CancelTimeout)

	r := NewRegistry(Provider(cfg.Provider))
	r.Register(liqpay, liqpay, liqpay)
	r.Register(paypro, paypro, nil)
	r.Register(paddle, paddle, paddle)
	r.Register(wfp, wfp, wfp)
	return r
}

// Register adds a provider. checkout and canceller may be nil when the
// provider has no such capability.
func (r *Registry) Register(v Verifier, checkout CheckoutBuilder, canceller Canceller) {
	p := v.Provider()
	r.verifiers[p] = v
	if checkout != nil {
		r.checkouts[p] = checkout
	}
	if canceller != nil {
		r.cancellers[p] = canceller
	}
}

func (r *Registry) Primary() Provider {
	return r.primary
}

func (r *Registry) Verifier(p Provider) (Verifier, error) {
	v, ok := r.verifiers[p]
	if !ok {
		return nil, fmt.Errorf("unknown payment provider %q", p)
	}
	return v, nil
}

func (r *Registry) Checkout(p Provider) (CheckoutBuilder, bool) {
	c, ok := r.checkouts[p]
	return c, ok
}

func (r *Registry) Canceller(p Provider) (Canceller, bool) {
	c, ok := r.cancellers[p]
	return c, ok
}

func (r *Registry) Providers() []Provider {
	out := make([]Provider, 0, len(r.verifiers))
	for p := range r.verifiers {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
