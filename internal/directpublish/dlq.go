package directpublish

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/architeacher/outboxrelay/internal/infrastructure"
	"github.com/architeacher/outboxrelay/internal/ports"
)

// dedupeWindow bounds how long an identical failed-event record is
// suppressed from being written to the DLQ again.
const dedupeWindow = 10 * time.Minute

// FailedEventRecord is the wire shape written to the dead-letter topic
// (and, on DLQ-send failure, to the local backup file) once
// DirectPublisher exhausts its retry budget.
type FailedEventRecord struct {
	EventID          string `json:"eventId"`
	OriginalTopic    string `json:"originalTopic"`
	OriginalPayload  string `json:"originalPayload"`
	ExceptionType    string `json:"exceptionType"`
	ExceptionMessage string `json:"exceptionMessage"`
	FailedAt         int64  `json:"failedAt"`
}

// DLQ sends a FailedEventRecord to the configured dead-letter topic
// synchronously. If that send itself fails, the record is written to
// a local "{eventId}.json" backup file instead of being dropped — the
// async-DLQ pattern that silently loses events on a second failure is
// deliberately not used here.
type DLQ struct {
	broker    ports.BrokerClient
	topic     string
	timeout   time.Duration
	backupDir string
	logger    infrastructure.Logger

	dedupe ports.DedupeCache
}

// NewDLQ builds a DLQ. dedupe may be nil, in which case every record is
// sent unconditionally.
func NewDLQ(broker ports.BrokerClient, topic string, timeout time.Duration, backupDir string, logger infrastructure.Logger, dedupe ports.DedupeCache) *DLQ {
	return &DLQ{
		broker:    broker,
		topic:     topic,
		timeout:   timeout,
		backupDir: backupDir,
		logger:    logger,
		dedupe:    dedupe,
	}
}

// dedupeKey derives a stable key from the record's origin and failure,
// not its EventID — EventID is freshly minted per Publish call, so
// retries of the same logical failure would never collide on it.
func dedupeKey(record FailedEventRecord) string {
	sum := sha256.Sum256([]byte(record.OriginalTopic + "|" + record.ExceptionType + "|" + record.OriginalPayload))

	return hex.EncodeToString(sum[:])
}

func (d *DLQ) Send(ctx context.Context, record FailedEventRecord) error {
	if d.dedupe != nil {
		seen, err := d.dedupe.SeenOrMark(ctx, dedupeKey(record), dedupeWindow)
		if err != nil {
			d.logger.Warn().Err(err).Str("event_id", record.EventID).Msg("dlq dedupe check failed, sending anyway")
		} else if seen {
			d.logger.Debug().Str("event_id", record.EventID).Msg("duplicate failed-event record suppressed")

			return nil
		}
	}

	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("serialize failed-event record: %w", err)
	}

	_, sendErr := d.broker.Send(ctx, d.topic, record.EventID, body, d.timeout)
	if sendErr == nil {
		return nil
	}

	d.logger.Error().
		Str("event_id", record.EventID).
		Err(sendErr).
		Msg("dlq send failed, falling back to local backup file")

	if backupErr := d.writeBackupFile(record.EventID, body); backupErr != nil {
		return fmt.Errorf("dlq send failed (%w) and backup file write failed: %w", sendErr, backupErr)
	}

	return nil
}

func (d *DLQ) writeBackupFile(eventID string, body []byte) error {
	if err := os.MkdirAll(d.backupDir, 0o755); err != nil {
		return fmt.Errorf("create dlq backup dir: %w", err)
	}

	path := filepath.Join(d.backupDir, eventID+".json")

	if err := os.WriteFile(path, body, 0o644); err != nil {
		return fmt.Errorf("write dlq backup file %s: %w", path, err)
	}

	return nil
}
