// Package metrics tracks lightweight per-account processing counters for
// the read API. It is observational only; rule evaluation never reads it.
package metrics

import (
	"sync"
	"time"

	"tradewatch/internal/model"
)

// AccountStats summarizes processing activity for one account.
type AccountStats struct {
	AccountID     string         `json:"accountId"`
	Events        int64          `json:"events"`
	Alerts        int64          `json:"alerts"`
	LastRiskScore float64        `json:"lastRiskScore"`
	LastSeverity  model.Severity `json:"lastSeverity,omitempty"`
	Flagged       bool           `json:"flagged"`
}

type Store struct {
	mu        sync.RWMutex
	byAccount map[string]*AccountStats
	updatedAt map[string]time.Time
	limit     int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{
		byAccount: make(map[string]*AccountStats),
		updatedAt: make(map[string]time.Time),
		limit:     limit,
	}
}

// RecordEvent counts a processed event for the account.
func (s *Store) RecordEvent(accountID string) {
	if accountID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	st.Events++
	s.touch(accountID)
}

// RecordAlert counts a composed alert and remembers its score and severity.
func (s *Store) RecordAlert(accountID string, score float64, severity model.Severity, flagged bool) {
	if accountID == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.get(accountID)
	st.Alerts++
	st.LastRiskScore = score
	st.LastSeverity = severity
	if flagged {
		st.Flagged = true
	}
	s.touch(accountID)
}

func (s *Store) get(accountID string) *AccountStats {
	st, ok := s.byAccount[accountID]
	if !ok {
		st = &AccountStats{AccountID: accountID}
		s.byAccount[accountID] = st
	}
	return st
}

func (s *Store) touch(accountID string) {
	s.updatedAt[accountID] = time.Now().UTC()
	if len(s.byAccount) > s.limit {
		s.evictOldest()
	}
}

func (s *Store) Get(accountID string) (AccountStats, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.byAccount[accountID]
	if !ok {
		return AccountStats{}, time.Time{}, false
	}
	return *st, s.updatedAt[accountID], true
}

func (s *Store) GetAll() map[string]AccountStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]AccountStats, len(s.byAccount))
	for id, st := range s.byAccount {
		out[id] = *st
	}
	return out
}

func (s *Store) evictOldest() {
	var oldestAccount string
	var oldest time.Time
	for id, ts := range s.updatedAt {
		if oldestAccount == "" || ts.Before(oldest) {
			oldestAccount = id
			oldest = ts
		}
	}
	if oldestAccount != "" {
		delete(s.byAccount, oldestAccount)
		delete(s.updatedAt, oldestAccount)
	}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byAccount = make(map[string]*AccountStats)
	s.updatedAt = make(map[string]time.Time)
}
