package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestDefaultConfigValidates(t *testing.T) {
	cfg := DefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Detection.RapidTradeCount != 5 || cfg.Detection.RapidTradeWindow != 5*time.Minute {
		t.Fatalf("rapid defaults = %d/%s", cfg.Detection.RapidTradeCount, cfg.Detection.RapidTradeWindow)
	}
	if cfg.Kafka.TransactionsTopic != "transactions" || cfg.Kafka.AlertsTopic != "fraud-alerts" {
		t.Fatalf("topic defaults = %s/%s", cfg.Kafka.TransactionsTopic, cfg.Kafka.AlertsTopic)
	}
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	path := writeTemp(t, "config.yaml", `
log_level: debug
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
  group_id: fraud-staging
detection:
  high_value_threshold: 250000
  unusual_value_threshold: 80000
  flag_threshold: 0.7
retention:
  history: 30m
  sweep_horizon: 1h
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("log_level = %s", cfg.LogLevel)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.GroupID != "fraud-staging" {
		t.Fatalf("kafka = %v/%s", cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	}
	if cfg.Detection.HighValueThreshold != 250000 || cfg.Detection.FlagThreshold != 0.7 {
		t.Fatalf("detection overrides lost: %+v", cfg.Detection)
	}
	if cfg.Retention.History != 30*time.Minute || cfg.Retention.SweepHorizon != time.Hour {
		t.Fatalf("retention overrides lost: %+v", cfg.Retention)
	}
	// Untouched sections keep their defaults.
	if cfg.Kafka.TransactionsTopic != "transactions" {
		t.Fatalf("transactions topic default lost: %s", cfg.Kafka.TransactionsTopic)
	}
	if cfg.Detection.Weights.HighValue != 0.40 {
		t.Fatalf("weight default lost: %v", cfg.Detection.Weights.HighValue)
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeTemp(t, "config.json", `{
		"log_level": "warn",
		"detection": {"high_value_threshold": 150000, "unusual_value_threshold": 60000, "rapid_trade_count": 8, "flag_threshold": 0.5}
	}`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "warn" || cfg.Detection.RapidTradeCount != 8 {
		t.Fatalf("json overrides lost: %s/%d", cfg.LogLevel, cfg.Detection.RapidTradeCount)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := []struct {
		name    string
		content string
	}{
		{"empty file", "   \n"},
		{"inverted thresholds", "detection:\n  high_value_threshold: 50000\n  unusual_value_threshold: 100000\n  flag_threshold: 0.6\n"},
		{"bad market open", "detection:\n  high_value_threshold: 100000\n  unusual_value_threshold: 50000\n  rapid_trade_count: 5\n  flag_threshold: 0.6\n  market_open: \"9.30am\"\n"},
		{"flag threshold out of range", "detection:\n  high_value_threshold: 100000\n  unusual_value_threshold: 50000\n  rapid_trade_count: 5\n  flag_threshold: 1.5\n"},
		{"sweep tighter than history", "retention:\n  history: 2h\n  sweep_horizon: 1h\n"},
	}
	for _, tc := range cases {
		path := writeTemp(t, "bad.yaml", tc.content)
		if _, err := Load(path); err == nil {
			t.Errorf("%s: expected load error", tc.name)
		}
	}
}

func TestParseClock(t *testing.T) {
	if got, err := ParseClock("09:30"); err != nil || got != 9*60+30 {
		t.Fatalf("ParseClock(09:30) = %d, %v", got, err)
	}
	if got, err := ParseClock("16:00"); err != nil || got != 16*60 {
		t.Fatalf("ParseClock(16:00) = %d, %v", got, err)
	}
	if _, err := ParseClock("25:00"); err == nil {
		t.Fatal("ParseClock(25:00): expected error")
	}
}

func TestManagerReload(t *testing.T) {
	path := writeTemp(t, "config.yaml", "log_level: info\n")
	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if mgr.Get().LogLevel != "info" {
		t.Fatalf("initial log_level = %s", mgr.Get().LogLevel)
	}

	if err := os.WriteFile(path, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	cfg, err := mgr.Reload()
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if cfg.LogLevel != "debug" || mgr.Get().LogLevel != "debug" {
		t.Fatalf("reload not visible: %s", mgr.Get().LogLevel)
	}
}

func TestStaticManager(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LogLevel = "warn"
	mgr := NewStaticManager(cfg)
	if mgr.Get().LogLevel != "warn" {
		t.Fatalf("static manager returned %s", mgr.Get().LogLevel)
	}
	if reloaded, err := mgr.Reload(); err != nil || reloaded.LogLevel != "warn" {
		t.Fatalf("static reload = %v, %v", reloaded, err)
	}
}
