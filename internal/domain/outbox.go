package domain

import "time"

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"

	SeverityInfo     Severity = "INFO"
	SeverityWarn     Severity = "WARN"
	SeverityError    Severity = "ERROR"
	SeverityCritical Severity = "CRITICAL"
)

type (
	// EventID is the decimal string representation of a Snowflake-shaped
	// 64-bit identifier minted by the id generator.
	EventID string

	OutboxStatus string

	Severity string

	// OutboxRow is a durable outbox queue entry. Rows are created by the
	// writer inside the caller's transaction, then owned exclusively by
	// the relay loop until they reach a terminal status.
	OutboxRow struct {
		EventID       EventID
		AggregateType string
		AggregateID   string
		EventType     string
		Payload       []byte
		OccurredAt    time.Time
		Status        OutboxStatus
		RetryCount    int
		NextRetryAt   *time.Time
		PublishedAt   *time.Time
		ErrorMessage  *string
		Version       *int
	}
)

func (id EventID) String() string {
	return string(id)
}

// NewOutboxRow builds a fresh PENDING row out of an already-serialized
// envelope payload. nextRetryAt starts equal to occurredAt so the row is
// immediately eligible for the relay's claim query.
func NewOutboxRow(eventID EventID, aggregateType, aggregateID, eventType string, payload []byte, occurredAt time.Time) *OutboxRow {
	nextRetryAt := occurredAt

	return &OutboxRow{
		EventID:       eventID,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       payload,
		OccurredAt:    occurredAt,
		Status:        OutboxStatusPending,
		RetryCount:    0,
		NextRetryAt:   &nextRetryAt,
	}
}

// MarkPublished transitions a row to PUBLISHED. Only PENDING rows may be
// published; PUBLISHED/FAILED are terminal.
func (r *OutboxRow) MarkPublished(publishedAt time.Time) error {
	if r.Status != OutboxStatusPending {
		return &InvalidStateTransitionError{From: string(r.Status), To: string(OutboxStatusPublished)}
	}

	now := publishedAt
	r.Status = OutboxStatusPublished
	r.PublishedAt = &now
	r.ErrorMessage = nil
	r.NextRetryAt = nil

	return nil
}

// MarkRetry schedules another attempt: retryCount increments, nextRetryAt
// moves into the future per backoff, row stays PENDING. If retryCount
// reaches maxRetries the row becomes terminally FAILED instead.
func (r *OutboxRow) MarkRetry(errMessage string, nextRetryAt time.Time, maxRetries int) error {
	if r.Status != OutboxStatusPending {
		return &InvalidStateTransitionError{From: string(r.Status), To: string(OutboxStatusPending)}
	}

	truncated := truncateErrorMessage(errMessage)
	n := r.RetryCount + 1

	if n >= maxRetries {
		r.Status = OutboxStatusFailed
		r.RetryCount = n
		r.ErrorMessage = &truncated
		r.NextRetryAt = nil

		return nil
	}

	r.RetryCount = n
	r.ErrorMessage = &truncated
	r.NextRetryAt = &nextRetryAt

	return nil
}

// CanRetry reports whether the row may still be retried.
func (r *OutboxRow) CanRetry(maxRetries int) bool {
	return r.Status == OutboxStatusPending && r.RetryCount < maxRetries
}

const maxErrorMessageLen = 500

func truncateErrorMessage(msg string) string {
	if len(msg) <= maxErrorMessageLen {
		return msg
	}

	return msg[:maxErrorMessageLen]
}
