// Package emit publishes verdicts to the outbound Kafka topics. Publishes
// are fire-and-forget: failures are logged, never retried, and never block
// the ingestion loop.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/segmentio/kafka-go"

	"tradewatch/internal/config"
	"tradewatch/internal/model"
)

type Publisher struct {
	alerts *kafka.Writer
	valid  *kafka.Writer
	logger *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewPublisher(cfg config.KafkaConfig, logger *slog.Logger) *Publisher {
	return &Publisher{
		alerts: newWriter(cfg.Brokers, cfg.AlertsTopic, logger),
		valid:  newWriter(cfg.Brokers, cfg.ValidTopic, logger),
		logger: logger,
	}
}

// newWriter builds a topic writer keyed for account partition affinity.
func newWriter(brokers []string, topic string, logger *slog.Logger) *kafka.Writer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.Hash{},
	}
	if logger != nil {
		w.ErrorLogger = kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Error(fmt.Sprintf(msg, args...), "component", "kafka-writer", "topic", topic)
		})
	}
	return w
}

func (p *Publisher) EmitAlert(ctx context.Context, alert model.Alert) {
	p.publish(ctx, p.alerts, alert.AccountID, alert, "alert", alert.AlertID)
}

func (p *Publisher) EmitValid(ctx context.Context, ev model.Event) {
	p.publish(ctx, p.valid, ev.AccountID, ev, "valid", ev.TransactionID)
}

func (p *Publisher) publish(ctx context.Context, w *kafka.Writer, key string, payload any, kind, id string) {
	data, err := json.Marshal(payload)
	if err != nil {
		if p.logger != nil {
			p.logger.Error("encode outbound message", "kind", kind, "id", id, "err", err)
		}
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		err := w.WriteMessages(ctx, kafka.Message{
			Key:   []byte(key),
			Value: data,
		})
		if err != nil && p.logger != nil {
			// Lost messages are an accepted limitation; the core does not
			// retry delivery.
			p.logger.Error("publish failed", "kind", kind, "id", id, "err", err)
		}
	}()
}

// Close waits for in-flight publishes and releases both writers. Safe to
// call more than once.
func (p *Publisher) Close() error {
	var err error
	p.closeOnce.Do(func() {
		p.wg.Wait()
		if e := p.alerts.Close(); e != nil {
			err = e
		}
		if e := p.valid.Close(); e != nil && err == nil {
			err = e
		}
	})
	return err
}
