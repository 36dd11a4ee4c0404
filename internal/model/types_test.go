package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestWireTimeFormat(t *testing.T) {
	wt := NewWireTime(time.Date(2026, 3, 2, 11, 15, 30, 987654321, time.UTC))
	data, err := json.Marshal(wt)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `"2026-03-02 11:15:30"` {
		t.Fatalf("marshaled = %s", data)
	}

	var back WireTime
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !back.Equal(wt.Time) {
		t.Fatalf("round trip: %s != %s", back, wt)
	}
}

func TestWireTimeParsesAsUTC(t *testing.T) {
	var wt WireTime
	if err := json.Unmarshal([]byte(`"2026-03-02 09:30:00"`), &wt); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if wt.Location() != time.UTC {
		t.Fatalf("location = %s, want UTC", wt.Location())
	}
	if wt.Hour() != 9 || wt.Minute() != 30 {
		t.Fatalf("clock = %02d:%02d, want 09:30", wt.Hour(), wt.Minute())
	}
}

func TestWireTimeNullAndEmpty(t *testing.T) {
	for _, raw := range []string{`null`, `""`} {
		var wt WireTime
		if err := json.Unmarshal([]byte(raw), &wt); err != nil {
			t.Fatalf("unmarshal %s: %v", raw, err)
		}
		if !wt.IsZero() {
			t.Fatalf("unmarshal %s: want zero time, got %s", raw, wt)
		}
	}
}

func TestNewEventDerivesTotalValue(t *testing.T) {
	ev := NewEvent("TXN-1", "ACC001", "AAPL", SideBuy, 40, 175.25, time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	if ev.TotalValue != 40*175.25 {
		t.Fatalf("totalValue = %v, want %v", ev.TotalValue, 40*175.25)
	}
	if ev.OrderType != OrderMarket || ev.Status != StatusFilled {
		t.Fatalf("defaults = %s/%s", ev.OrderType, ev.Status)
	}
}

func TestNormalizeBackfillsOnlyWhenMissing(t *testing.T) {
	ev := Event{Quantity: 10, Price: 5}
	ev.Normalize()
	if ev.TotalValue != 50 {
		t.Fatalf("totalValue = %v, want 50", ev.TotalValue)
	}

	ev = Event{Quantity: 10, Price: 5, TotalValue: 999}
	ev.Normalize()
	if ev.TotalValue != 999 {
		t.Fatalf("normalize overwrote an explicit total: %v", ev.TotalValue)
	}
}

func TestAlertWireNames(t *testing.T) {
	alert := Alert{
		AlertID:           "ALERT-deadbeef",
		TransactionID:     "TXN-1",
		AccountID:         "ACC002",
		FraudType:         CategoryHighVolume,
		Severity:          SeverityMedium,
		RiskScore:         0.4,
		DetectedAt:        NewWireTime(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)),
		TriggeredRules:    []string{RuleHighValue},
		RecommendedAction: ActionMonitor,
	}
	data, err := json.Marshal(alert)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{
		`"alertId"`, `"fraudType"`, `"riskScore"`, `"detectedAt"`,
		`"suspiciousTransaction"`, `"triggeredRules"`, `"recommendedAction"`,
	} {
		if !strings.Contains(string(data), key) {
			t.Errorf("payload missing %s: %s", key, data)
		}
	}
}
