// Package rules evaluates the fraud detection rule set against one event
// plus its account's recent history. Evaluation is pure: rules read state
// and contribute score, nothing here mutates the store or emits.
package rules

import (
	"strconv"
	"strings"
	"time"

	"tradewatch/internal/config"
	"tradewatch/internal/model"
)

// Engine holds the resolved rule thresholds. Rules fire independently, in a
// fixed order, and their increments sum; only the value rules are mutually
// exclusive.
type Engine struct {
	highValue    float64
	unusualValue float64
	rapidCount   int
	rapidWindow  time.Duration
	openSec      int
	closeSec     int
	weights      config.WeightsConfig
}

// Result is the outcome of evaluating all rules for a single event.
type Result struct {
	Triggered []string
	Score     float64 // clamped to [0, 1]
	RawScore  float64 // sum of increments before clamping
}

func New(cfg config.DetectionConfig) (*Engine, error) {
	openMin, err := config.ParseClock(cfg.MarketOpen)
	if err != nil {
		return nil, err
	}
	closeMin, err := config.ParseClock(cfg.MarketClose)
	if err != nil {
		return nil, err
	}
	return &Engine{
		highValue:    cfg.HighValueThreshold,
		unusualValue: cfg.UnusualValueThreshold,
		rapidCount:   cfg.RapidTradeCount,
		rapidWindow:  cfg.RapidTradeWindow,
		openSec:      openMin * 60,
		closeSec:     closeMin * 60,
		weights:      cfg.Weights,
	}, nil
}

// Window is the history span the engine evaluates frequency rules over.
func (e *Engine) Window() time.Duration {
	return e.rapidWindow
}

// Evaluate runs every rule against the event. The recent slice is the
// account's trailing window including the event itself, which has already
// been recorded; flagged reports flagged-set membership.
func (e *Engine) Evaluate(ev model.Event, recent []model.Event, flagged bool) Result {
	var res Result

	switch {
	case ev.TotalValue >= e.highValue:
		res.trigger(model.RuleHighValue, e.weights.HighValue)
	case ev.TotalValue >= e.unusualValue:
		res.trigger(model.RuleUnusualValue, e.weights.UnusualValue)
	}

	if len(recent) >= e.rapidCount {
		res.trigger(model.RuleRapidTrading, e.weights.RapidTrading)
	}

	if e.offHours(ev.Timestamp.Time) {
		res.trigger(model.RuleOffHours, e.weights.OffHours)
	}

	if suspiciousPattern(ev, recent) {
		res.trigger(model.RuleSuspiciousPattern, e.weights.SuspiciousPattern)
	}

	if flagged {
		res.trigger(model.RuleFlaggedAccount, e.weights.FlaggedAccount)
	}

	res.Score = res.RawScore
	if res.Score > 1.0 {
		res.Score = 1.0
	}
	return res
}

func (r *Result) trigger(name string, weight float64) {
	r.Triggered = append(r.Triggered, name)
	r.RawScore += weight
}

func (r Result) Has(name string) bool {
	for _, n := range r.Triggered {
		if n == name {
			return true
		}
	}
	return false
}

// offHours reports whether the event's clock time falls before market open
// or after market close. No date or holiday awareness.
func (e *Engine) offHours(ts time.Time) bool {
	sec := ts.Hour()*3600 + ts.Minute()*60 + ts.Second()
	return sec < e.openSec || sec > e.closeSec
}

// suspiciousPattern detects rapid same-symbol churn: at least three window
// events, every one trading the event's symbol, with both sides present and
// four or more trades total.
func suspiciousPattern(ev model.Event, recent []model.Event) bool {
	if len(recent) < 3 {
		return false
	}
	var buys, sells int
	for _, r := range recent {
		if r.Symbol != ev.Symbol {
			return false
		}
		switch r.Side {
		case model.SideBuy:
			buys++
		case model.SideSell:
			sells++
		}
	}
	return buys > 0 && sells > 0 && buys+sells >= 4
}

// SeverityFor maps a clamped risk score onto the severity ladder.
func SeverityFor(score float64) model.Severity {
	switch {
	case score >= 0.8:
		return model.SeverityCritical
	case score >= 0.6:
		return model.SeverityHigh
	case score >= 0.3:
		return model.SeverityMedium
	default:
		return model.SeverityLow
	}
}

// CategoryFor selects the fraud category from the triggered rules, first
// match wins. UNUSUAL_VALUE_TRANSACTION and PREVIOUSLY_FLAGGED_ACCOUNT only
// contribute score and never select a category on their own.
func CategoryFor(triggered []string) model.FraudCategory {
	has := func(name string) bool {
		for _, n := range triggered {
			if n == name {
				return true
			}
		}
		return false
	}
	switch {
	case has(model.RuleHighValue):
		return model.CategoryHighVolume
	case has(model.RuleRapidTrading):
		return model.CategoryRapidTrading
	case has(model.RuleOffHours):
		return model.CategoryOffHoursTrading
	case has(model.RuleSuspiciousPattern):
		return model.CategoryPumpAndDump
	default:
		return model.CategoryUnusualPattern
	}
}

// ActionFor derives the recommended action from severity and clamped score.
func ActionFor(severity model.Severity, score float64) model.Action {
	switch {
	case severity == model.SeverityCritical || score >= 0.8:
		return model.ActionBlockTransaction
	case severity == model.SeverityHigh || score >= 0.6:
		return model.ActionManualReview
	default:
		return model.ActionMonitor
	}
}

// Describe builds the human-readable alert description from the triggered
// rule set, one fixed clause per rule in priority order.
func Describe(triggered []string, ev model.Event) string {
	has := func(name string) bool {
		for _, n := range triggered {
			if n == name {
				return true
			}
		}
		return false
	}
	var b strings.Builder
	b.WriteString("Suspicious activity detected: ")
	if has(model.RuleHighValue) {
		b.WriteString("High-value transaction ($" + strconv.FormatFloat(ev.TotalValue, 'f', 2, 64) + "). ")
	}
	if has(model.RuleRapidTrading) {
		b.WriteString("Rapid trading pattern detected. ")
	}
	if has(model.RuleOffHours) {
		b.WriteString("Trading outside market hours. ")
	}
	if has(model.RuleSuspiciousPattern) {
		b.WriteString("Suspicious account trading pattern. ")
	}
	if has(model.RuleFlaggedAccount) {
		b.WriteString("Previously flagged account activity. ")
	}
	return strings.TrimSpace(b.String())
}
