package model

import (
	"fmt"
	"strings"
	"time"
)

// WireLayout is the timestamp layout used on every topic, matching the
// upstream producers.
const WireLayout = "2006-01-02 15:04:05"

// WireTime wraps time.Time with the wire timestamp layout.
type WireTime struct {
	time.Time
}

func NewWireTime(t time.Time) WireTime {
	return WireTime{t.UTC().Truncate(time.Second)}
}

func (t WireTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.UTC().Format(WireLayout) + `"`), nil
}

func (t *WireTime) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(WireLayout, s, time.UTC)
	if err != nil {
		return fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	t.Time = parsed
	return nil
}

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

type OrderType string

const (
	OrderMarket OrderType = "MARKET"
	OrderLimit  OrderType = "LIMIT"
)

type OrderStatus string

const (
	StatusFilled  OrderStatus = "FILLED"
	StatusPartial OrderStatus = "PARTIAL"
	StatusPending OrderStatus = "PENDING"
)

// Event is a single trade ingested from the transactions topic. TotalValue
// is derived from quantity and price at construction and backfilled on
// decode; it is never set independently.
type Event struct {
	TransactionID string      `json:"transactionId"`
	AccountID     string      `json:"accountId"`
	Symbol        string      `json:"symbol"`
	Side          Side        `json:"side"`
	Quantity      float64     `json:"quantity"`
	Price         float64     `json:"price"`
	TotalValue    float64     `json:"totalValue"`
	Timestamp     WireTime    `json:"timestamp"`
	OrderType     OrderType   `json:"orderType"`
	Status        OrderStatus `json:"status"`
}

func NewEvent(id, accountID, symbol string, side Side, quantity, price float64, ts time.Time) Event {
	return Event{
		TransactionID: id,
		AccountID:     accountID,
		Symbol:        symbol,
		Side:          side,
		Quantity:      quantity,
		Price:         price,
		TotalValue:    quantity * price,
		Timestamp:     NewWireTime(ts),
		OrderType:     OrderMarket,
		Status:        StatusFilled,
	}
}

// Normalize backfills the derived total value after decoding.
func (e *Event) Normalize() {
	if e.TotalValue == 0 && e.Quantity != 0 && e.Price != 0 {
		e.TotalValue = e.Quantity * e.Price
	}
}

func (e Event) String() string {
	return fmt.Sprintf("Event{id=%s account=%s %s %.0f %s@$%.2f total=$%.2f time=%s}",
		e.TransactionID, e.AccountID, e.Side, e.Quantity, e.Symbol, e.Price, e.TotalValue,
		e.Timestamp.UTC().Format(WireLayout))
}

type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

type FraudCategory string

const (
	CategoryHighVolume        FraudCategory = "HIGH_VOLUME"
	CategoryRapidTrading      FraudCategory = "RAPID_TRADING"
	CategoryOffHoursTrading   FraudCategory = "OFF_HOURS_TRADING"
	CategoryPriceManipulation FraudCategory = "PRICE_MANIPULATION"
	CategoryUnusualPattern    FraudCategory = "UNUSUAL_PATTERN"
	CategoryAccountTakeover   FraudCategory = "ACCOUNT_TAKEOVER"
	CategoryPumpAndDump       FraudCategory = "PUMP_AND_DUMP"
)

type Action string

const (
	ActionBlockTransaction Action = "BLOCK_TRANSACTION"
	ActionManualReview     Action = "MANUAL_REVIEW"
	ActionMonitor          Action = "MONITOR"
)

// Rule names as they appear in triggeredRules.
const (
	RuleHighValue         = "HIGH_VALUE_TRANSACTION"
	RuleUnusualValue      = "UNUSUAL_VALUE_TRANSACTION"
	RuleRapidTrading      = "RAPID_TRADING"
	RuleOffHours          = "OFF_HOURS_TRADING"
	RuleSuspiciousPattern = "SUSPICIOUS_ACCOUNT_PATTERN"
	RuleFlaggedAccount    = "PREVIOUSLY_FLAGGED_ACCOUNT"
)

// Alert is the composed fraud verdict published on the fraud-alerts topic.
// Built once per triggering event, never mutated afterwards.
type Alert struct {
	AlertID           string        `json:"alertId"`
	TransactionID     string        `json:"transactionId"`
	AccountID         string        `json:"accountId"`
	FraudType         FraudCategory `json:"fraudType"`
	Description       string        `json:"description"`
	Severity          Severity      `json:"severity"`
	RiskScore         float64       `json:"riskScore"`
	DetectedAt        WireTime      `json:"detectedAt"`
	SuspiciousEvent   Event         `json:"suspiciousTransaction"`
	TriggeredRules    []string      `json:"triggeredRules"`
	RecommendedAction Action        `json:"recommendedAction"`
}

func (a Alert) String() string {
	return fmt.Sprintf("Alert{id=%s type=%s severity=%s score=%.2f account=%s}",
		a.AlertID, a.FraudType, a.Severity, a.RiskScore, a.AccountID)
}
