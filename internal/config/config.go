package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LogLevel  string          `json:"log_level" yaml:"log_level"`
	Kafka     KafkaConfig     `json:"kafka" yaml:"kafka"`
	Ingest    IngestConfig    `json:"ingest" yaml:"ingest"`
	Detection DetectionConfig `json:"detection" yaml:"detection"`
	Retention RetentionConfig `json:"retention" yaml:"retention"`
	API       APIConfig       `json:"api" yaml:"api"`
	Storage   StorageConfig   `json:"storage" yaml:"storage"`
	Alerts    AlertsConfig    `json:"alerts" yaml:"alerts"`
	Metrics   MetricsConfig   `json:"metrics" yaml:"metrics"`
	Simulator SimulatorConfig `json:"simulator" yaml:"simulator"`
}

type KafkaConfig struct {
	Brokers           []string `json:"brokers" yaml:"brokers"`
	TransactionsTopic string   `json:"transactions_topic" yaml:"transactions_topic"`
	AlertsTopic       string   `json:"alerts_topic" yaml:"alerts_topic"`
	ValidTopic        string   `json:"valid_topic" yaml:"valid_topic"`
	GroupID           string   `json:"group_id" yaml:"group_id"`
}

type IngestConfig struct {
	PollBackoff time.Duration `json:"poll_backoff" yaml:"poll_backoff"`
}

type DetectionConfig struct {
	HighValueThreshold    float64       `json:"high_value_threshold" yaml:"high_value_threshold"`
	UnusualValueThreshold float64       `json:"unusual_value_threshold" yaml:"unusual_value_threshold"`
	RapidTradeCount       int           `json:"rapid_trade_count" yaml:"rapid_trade_count"`
	RapidTradeWindow      time.Duration `json:"rapid_trade_window" yaml:"rapid_trade_window"`
	MarketOpen            string        `json:"market_open" yaml:"market_open"`
	MarketClose           string        `json:"market_close" yaml:"market_close"`
	FlagThreshold         float64       `json:"flag_threshold" yaml:"flag_threshold"`
	Weights               WeightsConfig `json:"weights" yaml:"weights"`
}

// WeightsConfig holds the per-rule risk increments.
type WeightsConfig struct {
	HighValue         float64 `json:"high_value" yaml:"high_value"`
	UnusualValue      float64 `json:"unusual_value" yaml:"unusual_value"`
	RapidTrading      float64 `json:"rapid_trading" yaml:"rapid_trading"`
	OffHours          float64 `json:"off_hours" yaml:"off_hours"`
	SuspiciousPattern float64 `json:"suspicious_pattern" yaml:"suspicious_pattern"`
	FlaggedAccount    float64 `json:"flagged_account" yaml:"flagged_account"`
}

type RetentionConfig struct {
	History       time.Duration `json:"history" yaml:"history"`
	SweepHorizon  time.Duration `json:"sweep_horizon" yaml:"sweep_horizon"`
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval"`
}

type APIConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
}

type StorageConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Driver  string `json:"driver" yaml:"driver"`
	DSN     string `json:"dsn" yaml:"dsn"`
}

type AlertsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type MetricsConfig struct {
	StoreLimit int `json:"store_limit" yaml:"store_limit"`
}

type SimulatorConfig struct {
	Accounts           []string      `json:"accounts" yaml:"accounts"`
	Symbols            []string      `json:"symbols" yaml:"symbols"`
	NormalInterval     time.Duration `json:"normal_interval" yaml:"normal_interval"`
	SuspiciousInterval time.Duration `json:"suspicious_interval" yaml:"suspicious_interval"`
	BurstInterval      time.Duration `json:"burst_interval" yaml:"burst_interval"`
}

func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		Kafka: KafkaConfig{
			Brokers:           []string{"localhost:9092"},
			TransactionsTopic: "transactions",
			AlertsTopic:       "fraud-alerts",
			ValidTopic:        "valid-transactions",
			GroupID:           "fraud-detection-service",
		},
		Ingest: IngestConfig{PollBackoff: 1 * time.Second},
		Detection: DetectionConfig{
			HighValueThreshold:    100000,
			UnusualValueThreshold: 50000,
			RapidTradeCount:       5,
			RapidTradeWindow:      5 * time.Minute,
			MarketOpen:            "09:30",
			MarketClose:           "16:00",
			FlagThreshold:         0.6,
			Weights: WeightsConfig{
				HighValue:         0.40,
				UnusualValue:      0.20,
				RapidTrading:      0.30,
				OffHours:          0.25,
				SuspiciousPattern: 0.20,
				FlaggedAccount:    0.15,
			},
		},
		Retention: RetentionConfig{
			History:       1 * time.Hour,
			SweepHorizon:  2 * time.Hour,
			SweepInterval: 5 * time.Minute,
		},
		API:     APIConfig{Enabled: true, Addr: ":8081"},
		Storage: StorageConfig{Enabled: false, Driver: "sqlite", DSN: "file:tradewatch.db?_pragma=busy_timeout(5000)"},
		Alerts:  AlertsConfig{StoreLimit: 1000},
		Metrics: MetricsConfig{StoreLimit: 5000},
		Simulator: SimulatorConfig{
			Accounts: []string{
				"ACC001", "ACC002", "ACC003", "ACC004", "ACC005",
				"ACC006", "ACC007", "ACC008", "ACC009", "ACC010",
			},
			Symbols: []string{
				"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "NVDA", "META", "NFLX", "BABA", "AMD",
				"INTC", "CRM", "ORCL", "ADBE", "PYPL", "UBER", "LYFT", "SPOT", "ZOOM", "SQ",
			},
			NormalInterval:     5 * time.Second,
			SuspiciousInterval: 60 * time.Second,
			BurstInterval:      180 * time.Second,
		},
	}
}

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()

	trimmed := strings.TrimSpace(string(content))
	if len(trimmed) == 0 {
		return nil, errors.New("config file is empty")
	}
	var decodeErr error
	if looksLikeJSON(trimmed) {
		decodeErr = json.Unmarshal([]byte(trimmed), cfg)
	} else {
		decodeErr = yaml.Unmarshal([]byte(trimmed), cfg)
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	if path == "" || cfg == nil {
		return errors.New("config path or config is empty")
	}
	var data []byte
	var err error
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".json" {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func looksLikeJSON(s string) bool {
	for _, ch := range s {
		if ch == '{' || ch == '[' {
			return true
		}
		if ch > ' ' {
			return false
		}
	}
	return false
}

func applyDefaults(cfg *Config) {
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{"localhost:9092"}
	}
	if cfg.Kafka.TransactionsTopic == "" {
		cfg.Kafka.TransactionsTopic = "transactions"
	}
	if cfg.Kafka.AlertsTopic == "" {
		cfg.Kafka.AlertsTopic = "fraud-alerts"
	}
	if cfg.Kafka.ValidTopic == "" {
		cfg.Kafka.ValidTopic = "valid-transactions"
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = "fraud-detection-service"
	}
	if cfg.Ingest.PollBackoff <= 0 {
		cfg.Ingest.PollBackoff = 1 * time.Second
	}
	if cfg.Detection.RapidTradeWindow <= 0 {
		cfg.Detection.RapidTradeWindow = 5 * time.Minute
	}
	if cfg.Detection.MarketOpen == "" {
		cfg.Detection.MarketOpen = "09:30"
	}
	if cfg.Detection.MarketClose == "" {
		cfg.Detection.MarketClose = "16:00"
	}
	if cfg.Retention.History <= 0 {
		cfg.Retention.History = 1 * time.Hour
	}
	if cfg.Retention.SweepHorizon <= 0 {
		cfg.Retention.SweepHorizon = 2 * time.Hour
	}
	if cfg.Retention.SweepInterval <= 0 {
		cfg.Retention.SweepInterval = 5 * time.Minute
	}
	if cfg.Alerts.StoreLimit <= 0 {
		cfg.Alerts.StoreLimit = 1000
	}
	if cfg.Metrics.StoreLimit <= 0 {
		cfg.Metrics.StoreLimit = 5000
	}
}

func Validate(cfg *Config) error {
	if len(cfg.Kafka.Brokers) == 0 || cfg.Kafka.TransactionsTopic == "" || cfg.Kafka.GroupID == "" {
		return errors.New("kafka requires brokers, transactions_topic, group_id")
	}
	if cfg.Kafka.AlertsTopic == "" || cfg.Kafka.ValidTopic == "" {
		return errors.New("kafka requires alerts_topic and valid_topic")
	}
	if cfg.API.Enabled && cfg.API.Addr == "" {
		return errors.New("api.addr required when api.enabled is true")
	}
	if cfg.Detection.HighValueThreshold <= 0 {
		return errors.New("detection.high_value_threshold must be > 0")
	}
	if cfg.Detection.UnusualValueThreshold <= 0 {
		return errors.New("detection.unusual_value_threshold must be > 0")
	}
	if cfg.Detection.UnusualValueThreshold >= cfg.Detection.HighValueThreshold {
		return errors.New("detection.unusual_value_threshold must be below high_value_threshold")
	}
	if cfg.Detection.RapidTradeCount <= 0 {
		return errors.New("detection.rapid_trade_count must be > 0")
	}
	if cfg.Detection.FlagThreshold <= 0 || cfg.Detection.FlagThreshold > 1 {
		return errors.New("detection.flag_threshold must be in (0, 1]")
	}
	if _, err := ParseClock(cfg.Detection.MarketOpen); err != nil {
		return fmt.Errorf("detection.market_open: %w", err)
	}
	if _, err := ParseClock(cfg.Detection.MarketClose); err != nil {
		return fmt.Errorf("detection.market_close: %w", err)
	}
	if cfg.Retention.SweepHorizon < cfg.Retention.History {
		return errors.New("retention.sweep_horizon must not be tighter than retention.history")
	}
	return nil
}

// ParseClock parses an HH:MM trading-day clock value into minutes since
// midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

type Manager struct {
	path    string
	cfg     atomic.Value
	modTime time.Time
}

func NewManager(path string) (*Manager, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	m := &Manager{path: path}
	m.cfg.Store(cfg)
	info, err := os.Stat(path)
	if err == nil {
		m.modTime = info.ModTime()
	}
	return m, nil
}

// NewStaticManager wraps an in-memory config with no backing file.
func NewStaticManager(cfg *Config) *Manager {
	m := &Manager{}
	m.cfg.Store(cfg)
	return m
}

func (m *Manager) Get() *Config {
	if v := m.cfg.Load(); v != nil {
		return v.(*Config)
	}
	return DefaultConfig()
}

func (m *Manager) Path() string {
	return m.path
}

func (m *Manager) Reload() (*Config, error) {
	if m.path == "" {
		return m.Get(), nil
	}
	cfg, err := Load(m.path)
	if err != nil {
		return nil, err
	}
	m.cfg.Store(cfg)
	if info, err := os.Stat(m.path); err == nil {
		m.modTime = info.ModTime()
	}
	return cfg, nil
}

func ResolvePath(path string) string {
	if path == "" {
		return path
	}
	if filepath.IsAbs(path) {
		return path
	}
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}
	return filepath.Join(cwd, path)
}
