package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"FareWatch/internal/collector"
	"FareWatch/internal/health"
	"FareWatch/internal/model"
	"FareWatch/internal/store"
)

// fakeSender captures outgoing messages.
type fakeSender struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeSender) Send(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, text)
	return nil
}

func (f *fakeSender) SendWithRetry(_ context.Context, text string, _ int) error {
	return f.Send(text)
}

func (f *fakeSender) messages() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.sent...)
}

func newTestScheduler(t *testing.T, fetcher collector.Fetcher) (*Scheduler, *fakeSender) {
	t.Helper()
	dir := t.TempDir()

	st, err := store.NewSQLiteStore(filepath.Join(dir, "fares.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hm, err := health.NewMonitor(filepath.Join(dir, "health.json"), 2)
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}

	sender := &fakeSender{}
	s := NewScheduler(context.Background(), fetcher, st, sender, hm, Options{
		RouteLabel:            "Bus Nagaoka → Shinjuku",
		AlertThresholdPercent: 10,
		RetentionDays:         90,
	})
	return s, sender
}

func TestFareCheck_DigestAndAlerts(t *testing.T) {
	fetcher := &collector.MockFetcher{Calendar: model.PriceBatch{
		"2025-06-18": 8000,
		"2025-06-19": 8200,
	}}
	s, sender := newTestScheduler(t, fetcher)

	// First run: inserts only, one digest, no alerts.
	s.RunCheckNow()
	msgs := sender.messages()
	if len(msgs) != 1 {
		t.Fatalf("expected only the digest, got %d messages", len(msgs))
	}
	if !strings.Contains(msgs[0], "Lowest fare this week: ¥8,000") {
		t.Errorf("unexpected digest:\n%s", msgs[0])
	}

	// Second run: a -10% drop on a known date triggers one alert, a small
	// +1.2% move on the other date does not.
	fetcher.Calendar = model.PriceBatch{
		"2025-06-18": 7200,
		"2025-06-19": 8300,
	}
	s.RunCheckNow()
	msgs = sender.messages()
	if len(msgs) != 3 {
		t.Fatalf("expected digest + one alert, got %d messages", len(msgs))
	}
	alert := msgs[2]
	if !strings.Contains(alert, "📉") || !strings.Contains(alert, "-¥800") {
		t.Errorf("unexpected alert:\n%s", alert)
	}

	if state := s.Health.GetState(); state.ErrorStreak != 0 || state.TotalRuns != 2 {
		t.Errorf("unexpected health state: %+v", state)
	}
}

func TestFareCheck_FailureSkipsReportAndEscalates(t *testing.T) {
	fetcher := &collector.MockFetcher{Err: errors.New("page unreachable")}
	s, sender := newTestScheduler(t, fetcher)

	// First failure: counted, no report, no escalation yet (max is 2).
	s.RunCheckNow()
	if msgs := sender.messages(); len(msgs) != 0 {
		t.Fatalf("failed cycle must not send a report, got %d messages", len(msgs))
	}

	// Second failure reaches the threshold and escalates.
	s.RunCheckNow()
	msgs := sender.messages()
	if len(msgs) != 1 || !strings.Contains(msgs[0], "🚨") {
		t.Fatalf("expected escalation alert, got %v", msgs)
	}

	// Recovery: the next cycle runs normally and clears the streak.
	fetcher.Err = nil
	fetcher.Calendar = model.PriceBatch{"2025-06-18": 8000}
	s.RunCheckNow()
	if state := s.Health.GetState(); state.ErrorStreak != 0 {
		t.Errorf("expected cleared streak after recovery, got %d", state.ErrorStreak)
	}
}

func TestHandleCommand(t *testing.T) {
	fetcher := &collector.MockFetcher{Calendar: model.PriceBatch{
		"2025-06-18": 8000,
	}}
	s, sender := newTestScheduler(t, fetcher)

	// Seed the store through a normal check.
	s.RunCheckNow()
	fetcher.Calendar = model.PriceBatch{"2025-06-18": 7200}
	s.RunCheckNow()

	if reply := s.HandleCommand("/stats"); !strings.Contains(reply, "Lowest ever: ¥7,200") {
		t.Errorf("unexpected /stats reply:\n%s", reply)
	}
	if reply := s.HandleCommand("/changes"); !strings.Contains(reply, "🔻 18/06/2025") {
		t.Errorf("unexpected /changes reply:\n%s", reply)
	}
	if reply := s.HandleCommand("/health"); !strings.Contains(reply, "Bus fare bot is running") {
		t.Errorf("unexpected /health reply:\n%s", reply)
	}
	if reply := s.HandleCommand("definitely not a command"); !strings.Contains(reply, "Available commands") {
		t.Errorf("unexpected help reply:\n%s", reply)
	}

	// /prices triggers a full check and replies through the notifier.
	before := len(sender.messages())
	if reply := s.HandleCommand("/prices"); reply != "" {
		t.Errorf("expected empty inline reply, got %q", reply)
	}
	if after := len(sender.messages()); after <= before {
		t.Error("/prices should have sent a digest")
	}
}

func TestRegisterAll_BadCron(t *testing.T) {
	s, _ := newTestScheduler(t, collector.NewMockFetcher())
	if err := s.RegisterAll("not a cron spec", "0 0 9 * * *", "0 0 3 * * 1"); err == nil {
		t.Fatal("expected error for invalid cron spec")
	}
}
