package envelope_test

import (
	stdcontext "context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
)

type stubIDGenerator struct {
	id  domain.EventID
	err error
}

func (s stubIDGenerator) Generate() (domain.EventID, error) {
	return s.id, s.err
}

func TestFactory_New_StampsIdentityAndMetadata(t *testing.T) {
	fake := clock.NewFake(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))
	provider := outboxcontext.NewProvider(domain.Source{Service: "orders"})
	factory := envelope.NewFactory(stubIDGenerator{id: "12345"}, fake, provider)

	env, err := factory.New(stdcontext.Background(), "order.created", domain.SeverityInfo, map[string]any{"order_id": "abc"})
	require.NoError(t, err)

	assert.Equal(t, domain.EventID("12345"), env.EventID)
	assert.Equal(t, "order.created", env.EventType)
	assert.Equal(t, domain.SeverityInfo, env.Severity)
	assert.Equal(t, "orders", env.Metadata.Source.Service)
	assert.True(t, fake.Now().Equal(env.OccurredAt))
}

func TestFactory_New_RunsTransformerPipelineInOrder(t *testing.T) {
	fake := clock.NewFake(time.Now())
	provider := outboxcontext.NewProvider(domain.Source{Service: "orders"})

	var order []string
	first := envelope.TransformerFunc(func(_ stdcontext.Context, payload any) (any, error) {
		order = append(order, "first")

		return payload, nil
	})
	second := envelope.TransformerFunc(func(_ stdcontext.Context, payload any) (any, error) {
		order = append(order, "second")

		return payload, nil
	})

	factory := envelope.NewFactory(stubIDGenerator{id: "1"}, fake, provider, envelope.WithTransformers(first, second))

	_, err := factory.New(stdcontext.Background(), "evt", domain.SeverityInfo, map[string]any{})
	require.NoError(t, err)

	assert.Equal(t, []string{"first", "second"}, order)
}

func TestFactory_New_PropagatesIDGeneratorError(t *testing.T) {
	fake := clock.NewFake(time.Now())
	provider := outboxcontext.NewProvider(domain.Source{Service: "orders"})
	wantErr := errors.New("clock moved backwards")
	factory := envelope.NewFactory(stubIDGenerator{err: wantErr}, fake, provider)

	_, err := factory.New(stdcontext.Background(), "evt", domain.SeverityInfo, map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}

func TestFieldMasker_RedactsConfiguredFields(t *testing.T) {
	masker := envelope.NewFieldMasker("ssn")

	result, err := masker.Transform(stdcontext.Background(), map[string]any{"ssn": "123-45-6789", "name": "ana"})
	require.NoError(t, err)

	asMap, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", asMap["ssn"])
	assert.Equal(t, "ana", asMap["name"])
}
