// Package ingest runs the Kafka ingestion loop: poll the transactions
// topic with a bounded wait, decode each record, and hand it to the
// detector. A single bad event never halts the loop.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"tradewatch/internal/config"
	"tradewatch/internal/detector"
)

type Loop struct {
	reader  *kafka.Reader
	det     *detector.Detector
	logger  *slog.Logger
	backoff time.Duration
}

func NewLoop(cfg *config.Config, det *detector.Detector, logger *slog.Logger) *Loop {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Kafka.Brokers,
		Topic:       cfg.Kafka.TransactionsTopic,
		GroupID:     cfg.Kafka.GroupID,
		MinBytes:    1e3,
		MaxBytes:    10e6,
		MaxWait:     1 * time.Second,
		StartOffset: kafka.LastOffset,
	})
	return &Loop{
		reader:  reader,
		det:     det,
		logger:  logger,
		backoff: cfg.Ingest.PollBackoff,
	}
}

// Run consumes until ctx is cancelled, then releases the reader. Decode and
// pipeline failures are logged and skipped; poll failures back off and
// retry.
func (l *Loop) Run(ctx context.Context) error {
	defer l.reader.Close()
	if l.logger != nil {
		l.logger.Info("ingestion loop started",
			"topic", l.reader.Config().Topic,
			"group_id", l.reader.Config().GroupID,
		)
	}
	for {
		if ctx.Err() != nil {
			break
		}
		m, err := l.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			if l.logger != nil {
				l.logger.Warn("kafka read error", "err", err)
			}
			if !BackoffSleep(ctx, l.backoff) {
				break
			}
			continue
		}

		ev, err := DecodeEvent(m.Value)
		if err != nil {
			if l.logger != nil {
				l.logger.Error("malformed event skipped", "offset", m.Offset, "err", err)
			}
			continue
		}
		if _, err := l.det.Process(ctx, ev); err != nil {
			if l.logger != nil {
				l.logger.Error("event processing failed", "transaction_id", ev.TransactionID, "err", err)
			}
			continue
		}
	}
	if l.logger != nil {
		l.logger.Info("ingestion loop stopped")
	}
	return nil
}

// BackoffSleep waits d unless the context is cancelled first; it reports
// whether the full wait elapsed.
func BackoffSleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = 200 * time.Millisecond
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
