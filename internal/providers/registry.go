package providers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// AllowListFunc reports whether a provider name is permitted by the
// running configuration's allow-list.
type AllowListFunc func(providerName string) bool

// Chain iterates a configured [primary, fallback₁, …, fallbackₙ] model
// chain, skipping providers the allow-list rejects, rate-limiting
// queries per minute, and falling through to the next descriptor on
// error. Grounded on the teacher's model-selection/fallback pattern in
// its agent loop, generalized here to single-turn classification.
type Chain struct {
	descriptors []Descriptor
	providers   map[string]Provider
	allowed     AllowListFunc
	limiter     *rate.Limiter

	mu        sync.Mutex
	unhealthy map[string]bool
}

// NewChain builds a Chain from an ordered descriptor list, a lookup of
// constructed providers keyed by name, the configured allow-list check,
// and a queries-per-minute budget (<=0 disables limiting).
func NewChain(descriptors []Descriptor, registered map[string]Provider, allowed AllowListFunc, queriesPerMinute int) *Chain {
	var limiter *rate.Limiter
	if queriesPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(queriesPerMinute)/60.0), queriesPerMinute)
	}
	return &Chain{
		descriptors: descriptors,
		providers:   registered,
		allowed:     allowed,
		limiter:     limiter,
		unhealthy:   make(map[string]bool),
	}
}

// ChainError accumulates what went wrong with each descriptor tried,
// returned only when every descriptor in the chain failed.
type ChainError struct {
	Attempts []string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("all providers in chain exhausted: %v", e.Attempts)
}

// Classify tries each descriptor in order, skipping disallowed or
// previously unhealthy providers, until one succeeds.
func (c *Chain) Classify(ctx context.Context, systemPrompt, userPrompt string) (*ClassifyResponse, Descriptor, error) {
	var attempts []string

	for _, d := range c.descriptors {
		if !c.allowed(d.Provider) {
			attempts = append(attempts, d.String()+" (not allow-listed)")
			continue
		}
		c.mu.Lock()
		unhealthy := c.unhealthy[d.Provider]
		c.mu.Unlock()
		if unhealthy {
			attempts = append(attempts, d.String()+" (unhealthy)")
			continue
		}

		provider, ok := c.providers[d.Provider]
		if !ok {
			attempts = append(attempts, d.String()+" (not configured)")
			continue
		}

		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, Descriptor{}, err
			}
		}

		resp, err := provider.Classify(ctx, ClassifyRequest{
			Model:        d.Model,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
		})
		if err != nil {
			attempts = append(attempts, fmt.Sprintf("%s (%v)", d.String(), err))
			continue
		}
		return resp, d, nil
	}

	return nil, Descriptor{}, &ChainError{Attempts: attempts}
}

// HealthCheck probes every registered, allow-listed provider
// concurrently with a short timeout and marks the failing ones
// unhealthy so Classify skips them for the remainder of the session —
// this runs once at startup to surface availability in the banner, and
// can be re-run to let previously unhealthy providers recover.
func (c *Chain) HealthCheck(ctx context.Context, timeout time.Duration) map[string]error {
	results := make(map[string]error)
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for name, provider := range c.providers {
		name, provider := name, provider
		if !c.allowed(name) {
			continue
		}
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, timeout)
			defer cancel()
			_, err := provider.Classify(checkCtx, ClassifyRequest{
				Model:        provider.DefaultModel(),
				SystemPrompt: "health check",
				UserPrompt:   "respond with {\"action\": \"allow\", \"reason\": \"ok\", \"confidence\": 1}",
			})

			mu.Lock()
			results[name] = err
			mu.Unlock()

			c.mu.Lock()
			c.unhealthy[name] = err != nil
			c.mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}
