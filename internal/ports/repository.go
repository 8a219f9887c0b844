//go:generate go tool github.com/maxbrunsfeld/counterfeiter/v6 -generate

package ports

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/architeacher/outboxrelay/internal/domain"
)

//counterfeiter:generate -o ../mocks/outbox_repository.go . OutboxRepository
type (
	// OutboxRepository persists outbox rows and drives their state
	// machine from the relay side. SaveInTx is the only method called
	// from business-transaction code; the rest belong to the relay loop.
	OutboxRepository interface {
		// SaveInTx writes a new PENDING row inside the caller's own
		// transaction, so the outbox write commits atomically with the
		// business state change that produced it.
		SaveInTx(ctx context.Context, tx *sqlx.Tx, row *domain.OutboxRow) error

		// FindPendingForProcessing locks and returns up to limit rows
		// that are PENDING and due (next_retry_at <= now), using
		// SELECT ... FOR UPDATE SKIP LOCKED so concurrent relay
		// replicas never claim the same row twice.
		FindPendingForProcessing(ctx context.Context, limit int) ([]*domain.OutboxRow, error)

		// FindByAggregate returns outbox rows for one aggregate, most
		// recent first.
		FindByAggregate(ctx context.Context, aggregateType, aggregateID string, limit int) ([]*domain.OutboxRow, error)

		// FindByStatus returns rows in the given status, oldest first.
		FindByStatus(ctx context.Context, status domain.OutboxStatus, limit int) ([]*domain.OutboxRow, error)

		// MarkPublished transitions a row to PUBLISHED.
		MarkPublished(ctx context.Context, eventID domain.EventID, publishedAt time.Time) error

		// MarkRetry records a failed publish attempt: either reschedules
		// the row for another attempt or marks it terminally FAILED,
		// depending on whether maxRetries has been reached.
		MarkRetry(ctx context.Context, eventID domain.EventID, errMessage string, nextRetryAt time.Time, maxRetries int) error

		// DeleteByStatusAndOccurredAtBefore removes up to limit terminal
		// rows older than cutoff, used by the cleanup tick, which calls
		// this repeatedly until the returned count falls below limit.
		DeleteByStatusAndOccurredAtBefore(ctx context.Context, status domain.OutboxStatus, cutoff time.Time, limit int) (int64, error)

		// CountByStatus reports how many rows currently sit in status.
		CountByStatus(ctx context.Context, status domain.OutboxStatus) (int64, error)

		// Count reports the total number of outbox rows.
		Count(ctx context.Context) (int64, error)
	}
)
