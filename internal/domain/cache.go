package domain

import (
	"context"
	"time"
)

const ExchangeRatesCacheNamespace = "exchangeRates"

type RateCache interface {
	Get(ctx context.Context, namespace, key string) (any, bool)
	Set(ctx context.Context, namespace, key string, value any, ttl time.Duration) error
	EvictAll(ctx context.Context, namespace string) error
}
