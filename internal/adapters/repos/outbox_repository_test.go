package repos_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/architeacher/outboxrelay/internal/adapters/repos"
	"github.com/architeacher/outboxrelay/internal/domain"
)

const schema = `
CREATE TABLE outbox_rows (
	event_id       TEXT PRIMARY KEY,
	aggregate_type TEXT NOT NULL,
	aggregate_id   TEXT NOT NULL,
	event_type     TEXT NOT NULL,
	payload        BYTEA NOT NULL,
	occurred_at    TIMESTAMPTZ NOT NULL,
	status         TEXT NOT NULL,
	retry_count    INT NOT NULL DEFAULT 0,
	next_retry_at  TIMESTAMPTZ,
	published_at   TIMESTAMPTZ,
	error_message  TEXT,
	version        INT
);`

// OutboxRepositorySuite runs against a real Postgres instance started via
// testcontainers. Gated behind OUTBOXRELAY_INTEGRATION since it needs a
// working Docker daemon.
type OutboxRepositorySuite struct {
	suite.Suite

	container *tcpostgres.PostgresContainer
	db        *sqlx.DB
	repo      *repos.OutboxRepository
}

func TestOutboxRepositorySuite(t *testing.T) {
	if os.Getenv("OUTBOXRELAY_INTEGRATION") == "" {
		t.Skip("set OUTBOXRELAY_INTEGRATION=1 to run Postgres-backed repository tests")
	}

	suite.Run(t, new(OutboxRepositorySuite))
}

func (s *OutboxRepositorySuite) SetupSuite() {
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("outboxrelay"),
		tcpostgres.WithUsername("outboxrelay"),
		tcpostgres.WithPassword("outboxrelay"),
		tc.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2)),
	)
	require.NoError(s.T(), err)
	s.container = container

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T(), err)

	db, err := sqlx.Connect("postgres", connStr)
	require.NoError(s.T(), err)
	s.db = db

	_, err = db.ExecContext(ctx, schema)
	require.NoError(s.T(), err)

	s.repo = repos.NewOutboxRepository(db)
}

func (s *OutboxRepositorySuite) TearDownSuite() {
	if s.db != nil {
		_ = s.db.Close()
	}

	if s.container != nil {
		_ = s.container.Terminate(context.Background())
	}
}

func (s *OutboxRepositorySuite) TearDownTest() {
	_, _ = s.db.Exec("TRUNCATE outbox_rows")
}

func (s *OutboxRepositorySuite) saveRow(row *domain.OutboxRow) {
	tx, err := s.db.Beginx()
	require.NoError(s.T(), err)

	err = s.repo.SaveInTx(context.Background(), tx, row)
	require.NoError(s.T(), err)
	require.NoError(s.T(), tx.Commit())
}

func (s *OutboxRepositorySuite) TestSaveAndFindPendingForProcessing() {
	ctx := context.Background()
	now := time.Now().UTC().Add(-time.Second)

	row := domain.NewOutboxRow("1", "order", "order-1", "order.created", []byte(`{}`), now)
	s.saveRow(row)

	claimed, err := s.repo.FindPendingForProcessing(ctx, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), claimed, 1)
	assert.Equal(s.T(), domain.EventID("1"), claimed[0].EventID)
}

func (s *OutboxRepositorySuite) TestFindPendingForProcessing_SkipsFutureNextRetry() {
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	row := domain.NewOutboxRow("2", "order", "order-2", "order.created", []byte(`{}`), time.Now().UTC())
	row.NextRetryAt = &future
	s.saveRow(row)

	claimed, err := s.repo.FindPendingForProcessing(ctx, 10)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), claimed)
}

func (s *OutboxRepositorySuite) TestMarkPublished() {
	ctx := context.Background()
	row := domain.NewOutboxRow("3", "order", "order-3", "order.created", []byte(`{}`), time.Now().UTC().Add(-time.Second))
	s.saveRow(row)

	err := s.repo.MarkPublished(ctx, "3", time.Now().UTC())
	require.NoError(s.T(), err)

	claimed, err := s.repo.FindByStatus(ctx, domain.OutboxStatusPublished, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), claimed, 1)
}

func (s *OutboxRepositorySuite) TestMarkRetry_TerminalAfterMaxRetries() {
	ctx := context.Background()
	row := domain.NewOutboxRow("4", "order", "order-4", "order.created", []byte(`{}`), time.Now().UTC().Add(-time.Second))
	s.saveRow(row)

	// maxRetries=1 allows one retry beyond the initial send, so the row
	// only reaches FAILED once MarkRetry has been called twice.
	err := s.repo.MarkRetry(ctx, "4", "broker unavailable", time.Now().UTC().Add(time.Minute), 1)
	require.NoError(s.T(), err)

	pending, err := s.repo.FindByStatus(ctx, domain.OutboxStatusPending, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)

	err = s.repo.MarkRetry(ctx, "4", "broker unavailable", time.Now().UTC().Add(time.Minute), 1)
	require.NoError(s.T(), err)

	failed, err := s.repo.FindByStatus(ctx, domain.OutboxStatusFailed, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), failed, 1)
	assert.Equal(s.T(), 2, failed[0].RetryCount)
}

func (s *OutboxRepositorySuite) TestDeleteByStatusAndOccurredAtBefore() {
	ctx := context.Background()
	old := time.Now().UTC().Add(-48 * time.Hour)

	row := domain.NewOutboxRow("5", "order", "order-5", "order.created", []byte(`{}`), old)
	s.saveRow(row)
	require.NoError(s.T(), s.repo.MarkPublished(ctx, "5", old.Add(time.Minute)))

	deleted, err := s.repo.DeleteByStatusAndOccurredAtBefore(ctx, domain.OutboxStatusPublished, time.Now().UTC().Add(-24*time.Hour), 1000)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(1), deleted)
}
