package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"FareWatch/internal/collector"
	"FareWatch/internal/config"
	"FareWatch/internal/health"
	"FareWatch/internal/notifier"
	"FareWatch/internal/scheduler"
	"FareWatch/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] FareWatch starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init fetcher
	var fetcher collector.Fetcher
	if cfg.Source.URL != "" {
		fetcher = collector.NewCalendarFetcher(cfg.Source.URL, cfg.Source.Month,
			cfg.Tracker.MinPlausibleFare, cfg.Tracker.MaxPlausibleFare, cfg.Proxy)
	} else {
		log.Println("[WARN] no source.url configured, using mock calendar data")
		fetcher = collector.NewMockFetcher()
	}
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init price store; the store is the product, so failing to open it is fatal.
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] open price store: %v", err)
	}
	defer st.Close()

	// Init health monitor
	hm, err := health.NewMonitor(cfg.Health.StateFile, cfg.Health.MaxErrors)
	if err != nil {
		log.Fatalf("[FATAL] init health monitor: %v", err)
	}

	// Init notifier
	var sender notifier.Sender
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
		sender = tn
	} else {
		log.Println("[WARN] no Telegram credentials, running with noop notifier")
		sender = notifier.NewNoopNotifier()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, fetcher, st, sender, hm, scheduler.Options{
		RouteLabel:            cfg.Source.RouteLabel,
		AlertThresholdPercent: cfg.Tracker.AlertThresholdPercent,
		RetentionDays:         cfg.Tracker.RetentionDays,
	})
	if err := sched.RegisterAll(cfg.Schedule.CheckCron, cfg.Schedule.HealthCron, cfg.Schedule.PruneCron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// Start Telegram polling for keyword commands
	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	// Optional: run immediately on start
	if os.Getenv("RUN_ON_START") == "true" {
		log.Println("[INFO] RUN_ON_START enabled, executing fare check now")
		go sched.RunCheckNow()
	}

	log.Println("[INFO] FareWatch is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	cancel()
	log.Println("[INFO] FareWatch stopped")
}
