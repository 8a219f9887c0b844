package repos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/outboxrelay/internal/domain"
)

const outboxRowsTable = "outbox_rows"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var outboxColumns = []string{
	"event_id", "aggregate_type", "aggregate_id", "event_type", "payload",
	"occurred_at", "status", "retry_count", "next_retry_at", "published_at",
	"error_message", "version",
}

type (
	// OutboxRepository is the Postgres implementation of
	// ports.OutboxRepository, built on sqlx + squirrel.
	OutboxRepository struct {
		conn *sqlx.DB
	}

	outboxRow struct {
		EventID       string     `db:"event_id"`
		AggregateType string     `db:"aggregate_type"`
		AggregateID   string     `db:"aggregate_id"`
		EventType     string     `db:"event_type"`
		Payload       []byte     `db:"payload"`
		OccurredAt    time.Time  `db:"occurred_at"`
		Status        string     `db:"status"`
		RetryCount    int        `db:"retry_count"`
		NextRetryAt   *time.Time `db:"next_retry_at"`
		PublishedAt   *time.Time `db:"published_at"`
		ErrorMessage  *string    `db:"error_message"`
		Version       *int       `db:"version"`
	}
)

func NewOutboxRepository(db *sqlx.DB) *OutboxRepository {
	return &OutboxRepository{conn: db}
}

// SaveInTx writes a new row inside the caller's own transaction so the
// outbox write commits atomically with the business change it records.
func (r *OutboxRepository) SaveInTx(ctx context.Context, tx *sqlx.Tx, row *domain.OutboxRow) error {
	query, args, err := psql.Insert(outboxRowsTable).
		Columns(outboxColumns...).
		Values(
			string(row.EventID), row.AggregateType, row.AggregateID, row.EventType, row.Payload,
			row.OccurredAt, string(row.Status), row.RetryCount, row.NextRetryAt, row.PublishedAt,
			row.ErrorMessage, row.Version,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return &domain.StoreError{Retryable: true, Cause: fmt.Errorf("save outbox row: %w", err)}
	}

	return nil
}

// FindPendingForProcessing locks and returns up to limit due PENDING
// rows in a single round trip: SELECT ... FOR UPDATE SKIP LOCKED lets
// concurrent relay replicas each claim a disjoint batch without
// blocking on one another, resolving the ambiguity between the two
// claim strategies the relay used to carry.
func (r *OutboxRepository) FindPendingForProcessing(ctx context.Context, limit int) ([]*domain.OutboxRow, error) {
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("begin transaction: %w", err)}
	}
	defer func() { _ = tx.Rollback() }()

	selectQuery, args, err := psql.Select(outboxColumns...).
		From(outboxRowsTable).
		Where(sq.And{
			sq.Eq{"status": string(domain.OutboxStatusPending)},
			sq.LtOrEq{"next_retry_at": sq.Expr("NOW()")},
		}).
		OrderBy("occurred_at ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim select query: %w", err)
	}

	var rows []outboxRow
	if err := tx.SelectContext(ctx, &rows, selectQuery, args...); err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("claim pending outbox rows: %w", err)}
	}

	if len(rows) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("commit empty claim: %w", err)}
		}

		return nil, nil
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.EventID)
	}

	touchQuery, touchArgs, err := psql.Update(outboxRowsTable).
		Set("next_retry_at", sq.Expr("NOW() + INTERVAL '30 seconds'")).
		Where(sq.Eq{"event_id": ids}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claim touch query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, touchQuery, touchArgs...); err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("touch claimed outbox rows: %w", err)}
	}

	if err := tx.Commit(); err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("commit claim: %w", err)}
	}

	result := make([]*domain.OutboxRow, 0, len(rows))
	for _, row := range rows {
		result = append(result, toDomain(row))
	}

	return result, nil
}

// FindByAggregate returns rows for one aggregate, most recent first.
func (r *OutboxRepository) FindByAggregate(ctx context.Context, aggregateType, aggregateID string, limit int) ([]*domain.OutboxRow, error) {
	query, args, err := psql.Select(outboxColumns...).
		From(outboxRowsTable).
		Where(sq.And{
			sq.Eq{"aggregate_type": aggregateType},
			sq.Eq{"aggregate_id": aggregateID},
		}).
		OrderBy("occurred_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select-by-aggregate query: %w", err)
	}

	var rows []outboxRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("find outbox rows by aggregate: %w", err)}
	}

	return toDomainSlice(rows), nil
}

// FindByStatus returns rows in status, oldest first.
func (r *OutboxRepository) FindByStatus(ctx context.Context, status domain.OutboxStatus, limit int) ([]*domain.OutboxRow, error) {
	query, args, err := psql.Select(outboxColumns...).
		From(outboxRowsTable).
		Where(sq.Eq{"status": string(status)}).
		OrderBy("occurred_at ASC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select-by-status query: %w", err)
	}

	var rows []outboxRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("find outbox rows by status: %w", err)}
	}

	return toDomainSlice(rows), nil
}

// MarkPublished transitions a row to PUBLISHED.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID domain.EventID, publishedAt time.Time) error {
	query, args, err := psql.Update(outboxRowsTable).
		Set("status", string(domain.OutboxStatusPublished)).
		Set("published_at", publishedAt).
		Set("error_message", nil).
		Set("next_retry_at", nil).
		Where(sq.And{
			sq.Eq{"event_id": string(eventID)},
			sq.Eq{"status": string(domain.OutboxStatusPending)},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark-published query: %w", err)
	}

	return r.execExpectingOneRow(ctx, query, args, eventID)
}

// MarkRetry either reschedules the row for another attempt or marks it
// terminally FAILED once maxRetries has been reached.
func (r *OutboxRepository) MarkRetry(ctx context.Context, eventID domain.EventID, errMessage string, nextRetryAt time.Time, maxRetries int) error {
	// error_message keeps at most the first 500 characters of the failure.
	if runes := []rune(errMessage); len(runes) > 500 {
		errMessage = string(runes[:500])
	}

	builder := psql.Update(outboxRowsTable).
		Set("retry_count", sq.Expr("retry_count + 1")).
		Set("error_message", errMessage).
		Where(sq.And{
			sq.Eq{"event_id": string(eventID)},
			sq.Eq{"status": string(domain.OutboxStatusPending)},
		})

	// maxRetries bounds retries, not total attempts: with maxRetries=3 the
	// row gets one initial send plus three retries (four attempts total)
	// before it is marked FAILED, so the threshold is retry_count+1 >
	// maxRetries rather than >=.
	query, args, err := builder.
		Set("status", sq.Expr("CASE WHEN retry_count + 1 > ? THEN ? ELSE ? END", maxRetries, string(domain.OutboxStatusFailed), string(domain.OutboxStatusPending))).
		Set("next_retry_at", sq.Expr("CASE WHEN retry_count + 1 > ? THEN NULL ELSE ? END", maxRetries, nextRetryAt)).
		ToSql()
	if err != nil {
		return fmt.Errorf("build mark-retry query: %w", err)
	}

	return r.execExpectingOneRow(ctx, query, args, eventID)
}

// DeleteByStatusAndOccurredAtBefore removes up to limit terminal rows
// older than cutoff. Postgres has no DELETE ... LIMIT, so the batch is
// selected by ctid first and the delete targets exactly that set.
func (r *OutboxRepository) DeleteByStatusAndOccurredAtBefore(ctx context.Context, status domain.OutboxStatus, cutoff time.Time, limit int) (int64, error) {
	selectQuery, selectArgs, err := psql.Select("ctid").
		From(outboxRowsTable).
		Where(sq.And{
			sq.Eq{"status": string(status)},
			sq.Lt{"occurred_at": cutoff},
		}).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup select query: %w", err)
	}

	query, args, err := psql.Delete(outboxRowsTable).
		Where(fmt.Sprintf("ctid IN (%s)", selectQuery), selectArgs...).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build cleanup delete query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("delete old outbox rows: %w", err)}
	}

	return result.RowsAffected()
}

// CountByStatus reports how many rows currently sit in status.
func (r *OutboxRepository) CountByStatus(ctx context.Context, status domain.OutboxStatus) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From(outboxRowsTable).Where(sq.Eq{"status": string(status)}).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count-by-status query: %w", err)
	}

	var count int64
	if err := r.conn.GetContext(ctx, &count, query, args...); err != nil {
		return 0, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("count outbox rows by status: %w", err)}
	}

	return count, nil
}

// Count reports the total number of outbox rows.
func (r *OutboxRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := psql.Select("COUNT(*)").From(outboxRowsTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count query: %w", err)
	}

	var count int64
	if err := r.conn.GetContext(ctx, &count, query, args...); err != nil {
		return 0, &domain.StoreError{Retryable: true, Cause: fmt.Errorf("count outbox rows: %w", err)}
	}

	return count, nil
}

func (r *OutboxRepository) execExpectingOneRow(ctx context.Context, query string, args []any, eventID domain.EventID) error {
	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return &domain.StoreError{Retryable: true, Cause: fmt.Errorf("update outbox row %s: %w", eventID, err)}
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return &domain.StoreError{Retryable: true, Cause: fmt.Errorf("read rows affected for %s: %w", eventID, err)}
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrEventNotFound, eventID)
	}

	return nil
}

func toDomain(row outboxRow) *domain.OutboxRow {
	return &domain.OutboxRow{
		EventID:       domain.EventID(row.EventID),
		AggregateType: row.AggregateType,
		AggregateID:   row.AggregateID,
		EventType:     row.EventType,
		Payload:       row.Payload,
		OccurredAt:    row.OccurredAt,
		Status:        domain.OutboxStatus(row.Status),
		RetryCount:    row.RetryCount,
		NextRetryAt:   row.NextRetryAt,
		PublishedAt:   row.PublishedAt,
		ErrorMessage:  row.ErrorMessage,
		Version:       row.Version,
	}
}

func toDomainSlice(rows []outboxRow) []*domain.OutboxRow {
	out := make([]*domain.OutboxRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDomain(row))
	}

	return out
}
