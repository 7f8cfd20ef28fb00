package ecommerce

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/storelink/backend/internal/domain/storefront"
)

// withRetry retries fn with fibonacci backoff. Only idempotent reads go
// through here; mutations are never retried by the adapter because the
// reconciler owns their failure handling. Transient classifications
// (TRANSPORT, RATE_LIMITED) retry, everything else fails immediately.
func (a *ShopifyAdapter) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if a.config.RetryMaxAttempts <= 1 {
		return fn(ctx)
	}

	base := a.config.RetryBaseDelay
	if base <= 0 {
		base = 500 * time.Millisecond
	}

	backoff := retry.WithMaxRetries(uint64(a.config.RetryMaxAttempts-1), retry.NewFibonacci(base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		switch storefront.CodeOf(err) {
		case storefront.ErrorCodeTransport, storefront.ErrorCodeRateLimited:
			return retry.RetryableError(err)
		default:
			return err
		}
	})
}
