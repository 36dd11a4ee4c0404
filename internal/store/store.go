// Package store holds the per-account rolling event history and the
// flagged-account set shared by the ingestion pipeline and the sweeper.
package store

import (
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"tradewatch/internal/model"
)

const shardCount = 16

// Store is safe for concurrent append/read from the ingestion loop and
// concurrent removal from the sweeper. Locking is striped per shard so
// unrelated accounts never serialize on a global lock.
type Store struct {
	shards  [shardCount]*shard
	history time.Duration
	horizon time.Duration

	flagMu  sync.RWMutex
	flagged map[string]struct{}

	nowFn func() time.Time
}

type shard struct {
	mu       sync.RWMutex
	accounts map[string]*accountState
}

type accountState struct {
	events   []model.Event
	lastSeen time.Time
}

// New creates a Store with the given per-write trim horizon and the looser
// sweep horizon.
func New(history, sweepHorizon time.Duration) *Store {
	s := &Store{
		history: history,
		horizon: sweepHorizon,
		flagged: make(map[string]struct{}),
		nowFn:   time.Now,
	}
	for i := range s.shards {
		s.shards[i] = &shard{accounts: make(map[string]*accountState)}
	}
	return s
}

// SetNow overrides the store clock, for tests.
func (s *Store) SetNow(fn func() time.Time) {
	if fn != nil {
		s.nowFn = fn
	}
}

func (s *Store) shardFor(accountID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(accountID))
	return s.shards[h.Sum32()%shardCount]
}

// Record appends the event to its account's history, updates the last-seen
// timestamp, and trims entries older than the retention horizon for that
// account only.
func (s *Store) Record(ev model.Event) {
	sh := s.shardFor(ev.AccountID)
	cutoff := s.nowFn().UTC().Add(-s.history)

	sh.mu.Lock()
	defer sh.mu.Unlock()
	acct, ok := sh.accounts[ev.AccountID]
	if !ok {
		acct = &accountState{events: make([]model.Event, 0, 8)}
		sh.accounts[ev.AccountID] = acct
	}
	acct.events = append(acct.events, ev)
	acct.lastSeen = ev.Timestamp.Time
	acct.events = retain(acct.events, cutoff)
}

// Recent returns a snapshot of the account's events with timestamps strictly
// after now minus the window, ordered most-recent-first. Unknown accounts
// yield an empty slice.
func (s *Store) Recent(accountID string, window time.Duration) []model.Event {
	sh := s.shardFor(accountID)
	cutoff := s.nowFn().UTC().Add(-window)

	sh.mu.RLock()
	acct, ok := sh.accounts[accountID]
	if !ok {
		sh.mu.RUnlock()
		return []model.Event{}
	}
	out := make([]model.Event, 0, len(acct.events))
	for _, ev := range acct.events {
		if ev.Timestamp.After(cutoff) {
			out = append(out, ev)
		}
	}
	sh.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

// LastSeen reports the timestamp of the account's most recent event.
func (s *Store) LastSeen(accountID string) (time.Time, bool) {
	sh := s.shardFor(accountID)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	acct, ok := sh.accounts[accountID]
	if !ok {
		return time.Time{}, false
	}
	return acct.lastSeen, true
}

// Flag marks the account as high risk. Idempotent; no code path unflags.
func (s *Store) Flag(accountID string) {
	s.flagMu.Lock()
	s.flagged[accountID] = struct{}{}
	s.flagMu.Unlock()
}

func (s *Store) IsFlagged(accountID string) bool {
	s.flagMu.RLock()
	_, ok := s.flagged[accountID]
	s.flagMu.RUnlock()
	return ok
}

// FlaggedAccounts returns a snapshot of the flagged set.
func (s *Store) FlaggedAccounts() []string {
	s.flagMu.RLock()
	out := make([]string, 0, len(s.flagged))
	for id := range s.flagged {
		out = append(out, id)
	}
	s.flagMu.RUnlock()
	sort.Strings(out)
	return out
}

// Sweep removes history entries older than the sweep horizon for every
// account and drops accounts whose history emptied. Returns the number of
// accounts removed.
func (s *Store) Sweep() int {
	cutoff := s.nowFn().UTC().Add(-s.horizon)
	removed := 0
	for _, sh := range s.shards {
		sh.mu.Lock()
		for id, acct := range sh.accounts {
			acct.events = retain(acct.events, cutoff)
			if len(acct.events) == 0 {
				delete(sh.accounts, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// Accounts returns the identifiers currently holding history.
func (s *Store) Accounts() []string {
	out := make([]string, 0)
	for _, sh := range s.shards {
		sh.mu.RLock()
		for id := range sh.accounts {
			out = append(out, id)
		}
		sh.mu.RUnlock()
	}
	sort.Strings(out)
	return out
}

// retain keeps events with timestamps at or after the cutoff, preserving
// insertion order.
func retain(events []model.Event, cutoff time.Time) []model.Event {
	kept := events[:0]
	for _, ev := range events {
		if !ev.Timestamp.Before(cutoff) {
			kept = append(kept, ev)
		}
	}
	return kept
}
