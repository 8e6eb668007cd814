package scheduler

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"FareWatch/internal/aggregator"
	"FareWatch/internal/collector"
	"FareWatch/internal/detector"
	"FareWatch/internal/health"
	"FareWatch/internal/model"
	"FareWatch/internal/notifier"
	"FareWatch/internal/store"

	"github.com/robfig/cron/v3"
)

// trendWindowDays is how far back the /stats trend looks.
const trendWindowDays = 7

// Options carries the tracker knobs the scheduler needs.
type Options struct {
	RouteLabel            string
	AlertThresholdPercent float64
	RetentionDays         int
}

// Scheduler manages all cron tasks and keyword commands.
type Scheduler struct {
	Cron       *cron.Cron
	Fetcher    collector.Fetcher
	Store      store.Store
	Detector   *detector.Detector
	Aggregator *aggregator.Aggregator
	Notifier   notifier.Sender
	Health     *health.Monitor
	Opts       Options
	Ctx        context.Context
}

// NewScheduler creates a new Scheduler.
func NewScheduler(ctx context.Context, f collector.Fetcher, st store.Store, n notifier.Sender, hm *health.Monitor, opts Options) *Scheduler {
	return &Scheduler{
		Cron:       cron.New(cron.WithSeconds()),
		Fetcher:    f,
		Store:      st,
		Detector:   detector.New(st),
		Aggregator: aggregator.New(st),
		Notifier:   n,
		Health:     hm,
		Opts:       opts,
		Ctx:        ctx,
	}
}

// RegisterAll registers the fare checks, health report, emergency re-check,
// and retention pruning.
func (s *Scheduler) RegisterAll(checkCron, healthCron, pruneCron string) error {
	if _, err := s.Cron.AddFunc(checkCron, s.fareCheckTask); err != nil {
		return fmt.Errorf("register fare check: %w", err)
	}
	if _, err := s.Cron.AddFunc(healthCron, s.healthTask); err != nil {
		return fmt.Errorf("register health check: %w", err)
	}
	if _, err := s.Cron.AddFunc(pruneCron, s.pruneTask); err != nil {
		return fmt.Errorf("register pruning: %w", err)
	}
	// Emergency re-check every 6 hours; only runs when the failure streak is high.
	if _, err := s.Cron.AddFunc("0 0 */6 * * *", s.emergencyTask); err != nil {
		return fmt.Errorf("register emergency check: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.Cron.Stop()
	log.Println("[INFO] scheduler stopped")
}

// RunCheckNow executes the fare check immediately (for manual trigger / RUN_ON_START).
func (s *Scheduler) RunCheckNow() {
	s.fareCheckTask()
}

func (s *Scheduler) fareCheckTask() {
	log.Println("[INFO] running fare check")
	if err := s.runFareCheck(); err != nil {
		// A failed cycle skips its report; the next scheduled cycle
		// starts clean. The process never dies over a bad scrape.
		log.Printf("[ERROR] fare check: %v", err)
		streak, escalate := s.Health.RecordFailure(err)
		if escalate {
			s.trySend(fmt.Sprintf("🚨 Fare checker failed %d times in a row!\n\nLast error: %v", streak, err))
		}
		return
	}
	s.Health.RecordSuccess()
}

func (s *Scheduler) runFareCheck() error {
	batch, err := s.Fetcher.FetchCalendar()
	if err != nil {
		return fmt.Errorf("fetch calendar: %w", err)
	}
	if len(batch) == 0 {
		s.trySend("🚍 No bus fares found today")
		return nil
	}

	changes, err := s.Detector.ApplyBatch(batch)
	if err != nil {
		return err
	}

	now := time.Now()
	lowest, ok, err := s.Aggregator.LowestFareInWeek(now)
	if err != nil {
		return err
	}
	recent, err := s.Store.GetRecent(notifier.DigestDays)
	if err != nil {
		return fmt.Errorf("recent fares: %w", err)
	}

	s.trySend(notifier.FormatFareDigest(s.Opts.RouteLabel, lowest, ok, recent, now))

	for _, c := range changes {
		if math.Abs(c.ChangePercentage) >= s.Opts.AlertThresholdPercent {
			s.trySend(notifier.FormatChangeAlert(c))
		}
	}

	log.Printf("[INFO] fare check done: %d calendar entries, %d changes", len(batch), len(changes))
	return nil
}

func (s *Scheduler) healthTask() {
	log.Println("[INFO] running health report")
	state := s.Health.GetState()
	s.trySend(notifier.FormatHealthStatus(state.LastSuccessAt, state.ErrorStreak, s.Health.MaxErrors(), time.Now()))
}

func (s *Scheduler) pruneTask() {
	log.Println("[INFO] running retention pruning")
	prices, changes, err := s.Store.PruneOlderThan(s.Opts.RetentionDays)
	if err != nil {
		log.Printf("[ERROR] prune: %v", err)
		return
	}
	log.Printf("[INFO] pruning done: %d fare rows, %d change rows removed (keeping %d days)",
		prices, changes, s.Opts.RetentionDays)
}

func (s *Scheduler) emergencyTask() {
	if !s.Health.NeedsEmergencyCheck() {
		return
	}
	log.Println("[WARN] running emergency fare check due to failure streak")
	s.fareCheckTask()
}

// HandleCommand processes a user command and returns a reply.
func (s *Scheduler) HandleCommand(command string) string {
	switch strings.ToLower(strings.TrimSpace(command)) {
	case "/prices", "bus", "fares":
		s.fareCheckTask()
		return ""
	case "/stats":
		stats, err := s.Aggregator.HistoricalExtremes()
		if err != nil {
			log.Printf("[ERROR] stats command: %v", err)
			return "⚠️ Statistics are unavailable right now, try again later."
		}
		trend, err := s.Aggregator.RecentTrend(trendWindowDays)
		if err != nil {
			log.Printf("[ERROR] trend command: %v", err)
			trend = model.TrendInsufficient
		}
		return notifier.FormatStatsReport(stats, trend)
	case "/changes":
		changes, err := s.Aggregator.SignificantChanges(s.Opts.AlertThresholdPercent)
		if err != nil {
			log.Printf("[ERROR] changes command: %v", err)
			return "⚠️ The change log is unavailable right now, try again later."
		}
		return notifier.FormatChangeList(changes, s.Opts.AlertThresholdPercent)
	case "/health":
		state := s.Health.GetState()
		return notifier.FormatHealthStatus(state.LastSuccessAt, state.ErrorStreak, s.Health.MaxErrors(), time.Now())
	default:
		return "Available commands:\n• /prices — fetch the fare calendar now\n• /stats — fare statistics\n• /changes — significant fare changes\n• /health — bot status"
	}
}

func (s *Scheduler) trySend(text string) {
	if err := s.Notifier.SendWithRetry(s.Ctx, text, 3); err != nil {
		log.Printf("[ERROR] send notification: %v", err)
	}
}
