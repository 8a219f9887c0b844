package envelope_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
)

func validEnvelope() *domain.Envelope {
	occurredAt := time.Now()

	return &domain.Envelope{
		EventID:   "12345",
		EventType: "order.created",
		Severity:  domain.SeverityInfo,
		Metadata: domain.Metadata{
			Source: domain.Source{Service: "orders"},
		},
		Payload:     map[string]any{"order_id": "abc"},
		OccurredAt:  occurredAt,
		PublishedAt: occurredAt,
	}
}

func TestValidator_Validate_AcceptsWellFormedEnvelope(t *testing.T) {
	err := envelope.NewValidator().Validate(validEnvelope())
	require.NoError(t, err)
}

func TestValidator_Validate_RejectsMissingFields(t *testing.T) {
	cases := map[string]func(*domain.Envelope){
		"missing event id":       func(e *domain.Envelope) { e.EventID = "" },
		"missing event type":     func(e *domain.Envelope) { e.EventType = "" },
		"invalid severity":       func(e *domain.Envelope) { e.Severity = "NOTICE" },
		"missing source service": func(e *domain.Envelope) { e.Metadata.Source.Service = "" },
		"zero occurred at":       func(e *domain.Envelope) { e.OccurredAt = time.Time{} },
		"zero published at":      func(e *domain.Envelope) { e.PublishedAt = time.Time{} },
		"occurred after published": func(e *domain.Envelope) {
			e.PublishedAt = e.OccurredAt.Add(-time.Second)
		},
		"nil payload": func(e *domain.Envelope) { e.Payload = nil },
	}

	validator := envelope.NewValidator()

	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			env := validEnvelope()
			mutate(env)

			err := validator.Validate(env)
			require.Error(t, err)

			var invalidErr *domain.InvalidEventError
			assert.ErrorAs(t, err, &invalidErr)
		})
	}
}

func TestValidator_Validate_RejectsNilEnvelope(t *testing.T) {
	err := envelope.NewValidator().Validate(nil)
	require.Error(t, err)
}
