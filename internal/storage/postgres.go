package storage

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"tradewatch/internal/model"
)

type postgresStore struct {
	baseStore
}

func NewPostgres(dsn string) (Store, error) {
	if strings.TrimSpace(dsn) == "" {
		dsn = "postgres://localhost:5432/tradewatch?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &postgresStore{baseStore{db: db}}, nil
}

func (s *postgresStore) Init(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS alerts (
			id BIGSERIAL PRIMARY KEY,
			alert_id TEXT NOT NULL,
			detected_at TIMESTAMPTZ NOT NULL,
			transaction_id TEXT NOT NULL,
			account_id TEXT NOT NULL,
			fraud_type TEXT NOT NULL,
			severity TEXT NOT NULL,
			risk_score DOUBLE PRECISION NOT NULL,
			recommended_action TEXT NOT NULL,
			description TEXT NOT NULL,
			rules_json JSONB NOT NULL,
			event_json JSONB NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_detected_at ON alerts(detected_at)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_account ON alerts(account_id)`,
		`CREATE TABLE IF NOT EXISTS flagged_accounts (
			account_id TEXT PRIMARY KEY,
			flagged_at TIMESTAMPTZ NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *postgresStore) SaveAlert(ctx context.Context, alert model.Alert) error {
	if s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (alert_id, detected_at, transaction_id, account_id, fraud_type, severity, risk_score, recommended_action, description, rules_json, event_json)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
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

func (s *postgresStore) SaveFlag(ctx context.Context, accountID string, flaggedAt time.Time) error {
	if s.db == nil || accountID == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO flagged_accounts (account_id, flagged_at) VALUES ($1, $2)
		ON CONFLICT (account_id) DO NOTHING`,
		accountID,
		flaggedAt.UTC(),
	)
	return err
}
