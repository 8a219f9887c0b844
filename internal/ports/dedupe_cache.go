//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"
	"time"
)

//counterfeiter:generate -o ../mocks/dedupe_cache.go . DedupeCache

// DedupeCache answers whether a key has already been recorded within
// its dedupe window, marking it seen for future checks if not. Used by
// the direct publisher as an idempotency fast-check before it writes a
// failed-event record to the DLQ, so a caller that retries the same
// failing publish doesn't flood the dead-letter topic with duplicates.
type DedupeCache interface {
	SeenOrMark(ctx context.Context, key string, ttl time.Duration) (alreadySeen bool, err error)
}
