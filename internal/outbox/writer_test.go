package outbox_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	outboxcontext "github.com/architeacher/outboxrelay/internal/context"
	"github.com/architeacher/outboxrelay/internal/domain"
	"github.com/architeacher/outboxrelay/internal/envelope"
	"github.com/architeacher/outboxrelay/internal/outbox"
	"github.com/architeacher/outboxrelay/internal/outbox/expr"
	"github.com/architeacher/outboxrelay/internal/shared/clock"
)

type stubIDGenerator struct{ n int }

func (s *stubIDGenerator) Generate() (domain.EventID, error) {
	s.n++

	return domain.EventID(fmt.Sprintf("id-%d", s.n)), nil
}

type recordingRepo struct {
	saved []*domain.OutboxRow
	err   error
}

func (r *recordingRepo) SaveInTx(_ context.Context, _ *sqlx.Tx, row *domain.OutboxRow) error {
	if r.err != nil {
		return r.err
	}

	r.saved = append(r.saved, row)

	return nil
}

func newWriter(repo *recordingRepo) *outbox.Writer {
	provider := outboxcontext.NewProvider(domain.Source{Service: "orders"})
	factory := envelope.NewFactory(&stubIDGenerator{}, clock.NewFake(time.Now()), provider)

	return outbox.NewWriter(factory, envelope.NewValidator(), repo)
}

func TestWriter_WriteOutbox_PersistsPendingRow(t *testing.T) {
	repo := &recordingRepo{}
	writer := newWriter(repo)

	err := writer.WriteOutbox(context.Background(), nil, map[string]any{"order_id": "abc"}, outbox.WriteOptions{
		EventType:     "order.created",
		Severity:      domain.SeverityInfo,
		AggregateType: "order",
		AggregateID:   "order-1",
		FailOnError:   true,
	})
	require.NoError(t, err)

	require.Len(t, repo.saved, 1)
	assert.Equal(t, domain.OutboxStatusPending, repo.saved[0].Status)
	assert.Equal(t, "order-1", repo.saved[0].AggregateID)
}

func TestWriter_WriteOutbox_ResolvesAggregateIDFromExpr(t *testing.T) {
	repo := &recordingRepo{}
	writer := newWriter(repo)

	err := writer.WriteOutbox(context.Background(), nil, map[string]any{"order_id": "abc"}, outbox.WriteOptions{
		EventType:       "order.created",
		Severity:        domain.SeverityInfo,
		AggregateType:   "order",
		AggregateIDExpr: expr.MustParse("args[0]"),
		Call:            expr.Call{Args: []any{"order-2"}},
		FailOnError:     true,
	})
	require.NoError(t, err)
	require.Len(t, repo.saved, 1)
	assert.Equal(t, "order-2", repo.saved[0].AggregateID)
}

func TestWriter_WriteOutbox_MissingAggregateIDFailsWhenFailOnError(t *testing.T) {
	repo := &recordingRepo{}
	writer := newWriter(repo)

	err := writer.WriteOutbox(context.Background(), nil, map[string]any{}, outbox.WriteOptions{
		EventType:     "order.created",
		Severity:      domain.SeverityInfo,
		AggregateType: "order",
		FailOnError:   true,
	})
	require.Error(t, err)
	assert.Empty(t, repo.saved)
}

func TestWriter_WriteOutbox_StoreErrorSwallowedWhenNotFailOnError(t *testing.T) {
	repo := &recordingRepo{err: errors.New("db down")}
	writer := newWriter(repo)

	err := writer.WriteOutbox(context.Background(), nil, map[string]any{}, outbox.WriteOptions{
		EventType:     "order.created",
		Severity:      domain.SeverityInfo,
		AggregateType: "order",
		AggregateID:   "order-3",
		FailOnError:   false,
	})
	require.NoError(t, err)
}

func TestWriter_WriteOutbox_StoreErrorPropagatedWhenFailOnError(t *testing.T) {
	repo := &recordingRepo{err: errors.New("db down")}
	writer := newWriter(repo)

	err := writer.WriteOutbox(context.Background(), nil, map[string]any{}, outbox.WriteOptions{
		EventType:     "order.created",
		Severity:      domain.SeverityInfo,
		AggregateType: "order",
		AggregateID:   "order-4",
		FailOnError:   true,
	})
	require.Error(t, err)
}
