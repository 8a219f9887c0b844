package envelope

import (
	"github.com/architeacher/outboxrelay/internal/domain"
)

// Validator checks an Envelope's structural invariants before it is
// written to the outbox or sent directly to the broker.
type Validator interface {
	Validate(env *domain.Envelope) error
}

type defaultValidator struct{}

// NewValidator returns the canonical Validator. There is a single
// implementation; callers needing stricter or looser rules compose
// their own Validator rather than configuring this one.
func NewValidator() Validator {
	return defaultValidator{}
}

func (defaultValidator) Validate(env *domain.Envelope) error {
	if env == nil {
		return &domain.InvalidEventError{Reason: "envelope is nil"}
	}

	if env.EventID == "" {
		return &domain.InvalidEventError{Reason: "event_id is required"}
	}

	if env.EventType == "" {
		return &domain.InvalidEventError{Reason: "event_type is required"}
	}

	if !ValidateDefault(env.Severity) {
		return &domain.InvalidEventError{Reason: "severity is invalid"}
	}

	if env.Metadata.Source.Service == "" {
		return &domain.InvalidEventError{Reason: "metadata.source.service is required"}
	}

	if env.OccurredAt.IsZero() {
		return &domain.InvalidEventError{Reason: "occurred_at is required"}
	}

	if env.PublishedAt.IsZero() {
		return &domain.InvalidEventError{Reason: "published_at is required"}
	}

	if env.OccurredAt.After(env.PublishedAt) {
		return &domain.InvalidEventError{Reason: "occurred_at must not be after published_at"}
	}

	if env.Payload == nil {
		return &domain.InvalidEventError{Reason: "payload is required"}
	}

	return nil
}

// ValidateDefault reports whether severity is one of the known levels.
func ValidateDefault(severity domain.Severity) bool {
	switch severity {
	case domain.SeverityInfo, domain.SeverityWarn, domain.SeverityError, domain.SeverityCritical:
		return true
	default:
		return false
	}
}
