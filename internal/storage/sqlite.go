package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"tradewatch/internal/model"
)

type sqliteStore struct {
	baseStore
}

func NewSQLite(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "file:tradewatch.db?_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	return &sqliteStore{baseStore{db: db}}, nil
}

func (s *sqliteStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			alert_id TEXT NOT NULL,
			detected_at TEXT NOT NULL,
			transaction_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			fraud_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			risk_score REAL NOT NULL,
			recommended_action TEXT NOT NULL,
			description TEXT NOT NULL,
			rules_json TEXT NOT NULL,
			event_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_detected_at ON alerts(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_account ON alerts(account_id)`,
		`CREATE TABLE IF NOT EXISTS flagged_accounts (
			account_id TEXT PRIMARY KEY,
			flagged_at TEXT NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *sqliteStore) SaveAlert(ctx context.Context, alert model.Alert) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, detected_at, transaction_id, account_id, fraud_type, severity, risk_score, recommended_action, description, rules_json, event_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		alert.AlertID,
		alert.DetectedAt.UTC(),
		alert.TransactionID,
		alert.AccountID,
		string(alert.FraudType),
		string(alert.Severity),
		alert.RiskScore,
		string(alert.RecommendedAction),
		alert.Description,
		encodeJSON(alert.TriggeredRules),
		encodeJSON(alert.SuspiciousEvent),
	)
	return err
}

func (s *sqliteStore) SaveFlag(ctx context.Context, accountID string, flaggedAt time.Time) error {
	if s.db == nil || accountID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flagged_accounts (account_id, flagged_at) VALUES (?, ?)
		ON CONFLICT(account_id) DO NOTHING`,
		accountID,
		flaggedAt.UTC(),
	)
	return err
}
