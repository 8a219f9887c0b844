package directpublish_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/directpublish"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
	"github.com/architeacher/outboxrelay/internal/config"
)

type stubIDGen struct{ n int }

func (s *stubIDGen) Generate() (domain.EventID, error) {
	s.n++

	return domain.EventID("evt-" + string(rune('a'+s.n))), nil
}

type fakeBroker struct {
	failuresBeforeSuccess int
	calls                 int
	sendFunc              func(topic string) error
}

func (f *fakeBroker) Send(_ context.Context, topic, _ string, _ []byte, _ time.Duration) (ports.Ack, error) {
	f.calls++

	if f.sendFunc != nil {
		if err := f.sendFunc(topic); err != nil {
			return ports.Ack{}, err
		}

		return ports.Ack{Topic: topic}, nil
	}

	if f.calls <= f.failuresBeforeSuccess {
		return ports.Ack{}, errors.New("broker unavailable")
	}

	return ports.Ack{Topic: topic}, nil
}

type zeroBackoff struct{}

func (zeroBackoff) Backoff(int) time.Duration { return time.Millisecond }

func testLogger() infrastructure.Logger {
	return infrastructure.NewLogger(config.AppConfig{ServiceName: "directpublish-test"}, config.LoggingConfig{Level: "error"})
}

func newFactory() *envelope.Factory {
	provider := outboxcontext.NewProvider(domain.Source{Service: "orders"})

	return envelope.NewFactory(&stubIDGen{}, clock.NewFake(time.Now()), provider)
}

func TestPublisher_Publish_SucceedsAfterTransientFailures(t *testing.T) {
	broker := &fakeBroker{failuresBeforeSuccess: 2}
	dlq := directpublish.NewDLQ(broker, "dlq", time.Second, t.TempDir(), testLogger(), nil)

	pub := directpublish.NewPublisher(newFactory(), envelope.NewValidator(), broker, zeroBackoff{}, directpublish.Config{
		Topic:       "orders",
		DLQTopic:    "dlq",
		MaxAttempts: 5,
		SendTimeout: time.Second,
	}, testLogger(), dlq)

	err := pub.Publish(context.Background(), "order.created", domain.SeverityInfo, map[string]any{"order_id": "1"})
	require.NoError(t, err)
	assert.Equal(t, 3, broker.calls)
}

func TestPublisher_Publish_RoutesToDLQOnExhaustion(t *testing.T) {
	dir := t.TempDir()

	broker := &fakeBroker{
		sendFunc: func(topic string) error {
			if topic == "dlq" {
				return nil
			}

			return errors.New("broker down")
		},
	}
	dlq := directpublish.NewDLQ(broker, "dlq", time.Second, dir, testLogger(), nil)

	pub := directpublish.NewPublisher(newFactory(), envelope.NewValidator(), broker, zeroBackoff{}, directpublish.Config{
		Topic:       "orders",
		DLQTopic:    "dlq",
		MaxAttempts: 2,
		SendTimeout: time.Second,
	}, testLogger(), dlq)

	err := pub.Publish(context.Background(), "order.created", domain.SeverityInfo, map[string]any{"order_id": "1"})
	require.NoError(t, err)
}

func TestPublisher_Publish_FallsBackToLocalFileWhenDLQSendFails(t *testing.T) {
	dir := t.TempDir()

	broker := &fakeBroker{
		sendFunc: func(_ string) error {
			return errors.New("broker entirely down")
		},
	}
	dlq := directpublish.NewDLQ(broker, "dlq", time.Second, dir, testLogger(), nil)

	pub := directpublish.NewPublisher(newFactory(), envelope.NewValidator(), broker, zeroBackoff{}, directpublish.Config{
		Topic:       "orders",
		DLQTopic:    "dlq",
		MaxAttempts: 1,
		SendTimeout: time.Second,
	}, testLogger(), dlq)

	err := pub.Publish(context.Background(), "order.created", domain.SeverityInfo, map[string]any{"order_id": "1"})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, filepath.Ext(entries[0].Name()), ".json")
}
