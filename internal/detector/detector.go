// Package detector runs the per-event pipeline: record history, evaluate
// rules, compose an alert or pass the event through, and emit the verdict.
package detector

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"tradewatch/internal/alerts"
	"tradewatch/internal/metrics"
	"tradewatch/internal/model"
	"tradewatch/internal/rules"
	"tradewatch/internal/storage"
	"tradewatch/internal/store"
)

// Emitter publishes verdicts downstream. Implementations must not block on
// delivery acknowledgment; publish failures are a transport concern.
type Emitter interface {
	EmitAlert(ctx context.Context, alert model.Alert)
	EmitValid(ctx context.Context, ev model.Event)
}

type Detector struct {
	logger  *slog.Logger
	store   *store.Store
	engine  *rules.Engine
	alerts  *alerts.Store
	stats   *metrics.Store
	persist storage.Store
	emitter Emitter

	flagThreshold float64
}

func New(logger *slog.Logger, st *store.Store, engine *rules.Engine, alertStore *alerts.Store,
	stats *metrics.Store, persist storage.Store, emitter Emitter, flagThreshold float64) *Detector {
	return &Detector{
		logger:        logger,
		store:         st,
		engine:        engine,
		alerts:        alertStore,
		stats:         stats,
		persist:       persist,
		emitter:       emitter,
		flagThreshold: flagThreshold,
	}
}

// Process runs the full pipeline for one event. It returns the composed
// alert when any rule triggered, nil when the event cleared. Errors cover
// this event only; the ingestion loop logs and moves on.
func (d *Detector) Process(ctx context.Context, ev model.Event) (*model.Alert, error) {
	if ev.AccountID == "" || ev.TransactionID == "" {
		return nil, errors.New("event missing account or transaction identifier")
	}
	ev.Normalize()

	d.store.Record(ev)
	if d.stats != nil {
		d.stats.RecordEvent(ev.AccountID)
	}

	recent := d.store.Recent(ev.AccountID, d.engine.Window())
	res := d.engine.Evaluate(ev, recent, d.store.IsFlagged(ev.AccountID))

	if len(res.Triggered) == 0 {
		if d.emitter != nil {
			d.emitter.EmitValid(ctx, ev)
		}
		if d.logger != nil {
			d.logger.Debug("event cleared", "transaction_id", ev.TransactionID, "account_id", ev.AccountID)
		}
		return nil, nil
	}

	alert := Compose(ev, res)

	// Flagging is independent of alert delivery and happens at most once
	// per qualifying event.
	if res.RawScore >= d.flagThreshold {
		d.store.Flag(ev.AccountID)
		if d.persist != nil {
			if err := d.persist.SaveFlag(ctx, ev.AccountID, alert.DetectedAt.Time); err != nil && d.logger != nil {
				d.logger.Warn("persist flag failed", "account_id", ev.AccountID, "err", err)
			}
		}
	}

	if d.alerts != nil {
		d.alerts.Add(alert)
	}
	if d.stats != nil {
		d.stats.RecordAlert(ev.AccountID, alert.RiskScore, alert.Severity, d.store.IsFlagged(ev.AccountID))
	}
	if d.persist != nil {
		if err := d.persist.SaveAlert(ctx, alert); err != nil && d.logger != nil {
			d.logger.Warn("persist alert failed", "alert_id", alert.AlertID, "err", err)
		}
	}
	if d.emitter != nil {
		d.emitter.EmitAlert(ctx, alert)
	}

	if d.logger != nil {
		d.logger.Warn("fraud alert",
			"alert_id", alert.AlertID,
			"account_id", alert.AccountID,
			"fraud_type", alert.FraudType,
			"severity", alert.Severity,
			"risk_score", alert.RiskScore,
			"rules", alert.TriggeredRules,
		)
	}
	return &alert, nil
}

// Compose builds the immutable alert for a triggered evaluation.
func Compose(ev model.Event, res rules.Result) model.Alert {
	severity := rules.SeverityFor(res.Score)
	return model.Alert{
		AlertID:           "ALERT-" + uuid.NewString()[:8],
		TransactionID:     ev.TransactionID,
		AccountID:         ev.AccountID,
		FraudType:         rules.CategoryFor(res.Triggered),
		Description:       rules.Describe(res.Triggered, ev),
		Severity:          severity,
		RiskScore:         res.Score,
		DetectedAt:        model.NewWireTime(time.Now()),
		SuspiciousEvent:   ev,
		TriggeredRules:    res.Triggered,
		RecommendedAction: rules.ActionFor(severity, res.Score),
	}
}
