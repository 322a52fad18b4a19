package stripewebhook

import (
	"context"
	"errors"
	"time"

	"github.com/phuoc-stack/foodapp-backend/pkg/redis"
)

const provider = "stripe"

// DeliveryGuard claims Stripe event ids in Redis. Stripe retries a delivery
// until it sees a 2xx, so a claimed id means the event was applied or is
// being applied right now.
type DeliveryGuard struct {
	claims redis.EventClaimStore
	ttl    time.Duration
}

// NewDeliveryGuard keeps claims for ttl; zero keeps them until evicted.
func NewDeliveryGuard(claims redis.EventClaimStore, ttl time.Duration) (*DeliveryGuard, error) {
	if claims == nil {
		return nil, errors.New("event claim store is required")
	}
	if ttl < 0 {
		return nil, errors.New("claim ttl cannot be negative")
	}
	return &DeliveryGuard{claims: claims, ttl: ttl}, nil
}

// Claim returns true when this call is the first to see eventID.
func (g *DeliveryGuard) Claim(ctx context.Context, eventID string) (bool, error) {
	if eventID == "" {
		return false, errors.New("event id is required")
	}
	return g.claims.SetNX(ctx, g.claims.WebhookEventKey(provider, eventID), time.Now().UTC().Unix(), g.ttl)
}

// Release drops a claim after a failed apply so Stripe's retry is processed.
func (g *DeliveryGuard) Release(ctx context.Context, eventID string) error {
	if eventID == "" {
		return nil
	}
	return g.claims.Del(ctx, g.claims.WebhookEventKey(provider, eventID))
}
