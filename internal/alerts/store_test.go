package alerts

import (
	"fmt"
	"testing"
	"time"

	"tradewatch/internal/model"
)

func alertAt(i int, account string, ts time.Time) model.Alert {
	return model.Alert{
		AlertID:    fmt.Sprintf("ALERT-%08d", i),
		AccountID:  account,
		DetectedAt: model.NewWireTime(ts),
	}
}

func TestRingEvictsOldest(t *testing.T) {
	s := NewStore(3)
	base := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s.Add(alertAt(i, "ACC001", base.Add(time.Duration(i)*time.Minute)))
	}

	got := s.List(0)
	if len(got) != 3 {
		t.Fatalf("retained %d alerts, want 3", len(got))
	}
	if got[0].AlertID != "ALERT-00000002" || got[2].AlertID != "ALERT-00000004" {
		t.Fatalf("wrong window retained: %s..%s", got[0].AlertID, got[2].AlertID)
	}
}

func TestListLimit(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	for i := 0; i < 6; i++ {
		s.Add(alertAt(i, "ACC001", base))
	}
	if got := s.List(2); len(got) != 2 || got[1].AlertID != "ALERT-00000005" {
		t.Fatalf("List(2) = %v", got)
	}
	if got := s.List(100); len(got) != 6 {
		t.Fatalf("List(100) = %d alerts, want all 6", len(got))
	}
}

func TestSinceAndForAccount(t *testing.T) {
	s := NewStore(10)
	base := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	s.Add(alertAt(0, "ACC001", base))
	s.Add(alertAt(1, "ACC002", base.Add(5*time.Minute)))
	s.Add(alertAt(2, "ACC001", base.Add(10*time.Minute)))

	if got := s.Since(base.Add(5 * time.Minute)); len(got) != 2 {
		t.Fatalf("Since = %d alerts, want 2", len(got))
	}
	got := s.ForAccount("ACC001")
	if len(got) != 2 || got[0].AlertID != "ALERT-00000000" {
		t.Fatalf("ForAccount = %v", got)
	}
}
