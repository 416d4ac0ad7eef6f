package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/yuya-0906/investment-watchlist/internal/api"
	"github.com/yuya-0906/investment-watchlist/internal/config"
	"github.com/yuya-0906/investment-watchlist/internal/model"
	"github.com/yuya-0906/investment-watchlist/internal/notifier"
	"github.com/yuya-0906/investment-watchlist/internal/persist"
	"github.com/yuya-0906/investment-watchlist/internal/quote"
	"github.com/yuya-0906/investment-watchlist/internal/refresh"
	"github.com/yuya-0906/investment-watchlist/internal/relay"
	"github.com/yuya-0906/investment-watchlist/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] watchlistd starting...")

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init persistence adapter
	var adapter persist.Adapter
	var seed []model.WatchEntry
	switch cfg.Storage.Mode {
	case "sqlite":
		sa, err := persist.NewSQLiteAdapter(cfg.Storage.SQLitePath, cfg.Storage.Owner)
		if err != nil {
			log.Printf("[WARN] init sqlite store failed, using in-memory: %v", err)
			adapter = persist.NewMemoryAdapter()
		} else {
			adapter = sa
		}
	default:
		adapter = persist.NewFileAdapter(cfg.Storage.FilePath)
		seed = store.SeedEntries()
	}
	defer adapter.Close()

	// Init store
	st := store.New()
	if err := st.Bind(ctx, adapter, seed); err != nil {
		log.Fatalf("[FATAL] bind watchlist store: %v", err)
	}
	defer st.Unbind()
	log.Printf("[INFO] watchlist loaded: %d entries, %d triggered", st.Count(), st.TriggeredCount())

	// Init quote fetcher
	var fetcher quote.Fetcher
	if cfg.Quote.Source == "mock" {
		fetcher = &quote.MockFetcher{}
	} else {
		fetcher = quote.NewYahooFetcher(cfg.Proxy, time.Duration(cfg.Quote.TimeoutSeconds)*time.Second)
	}
	log.Printf("[INFO] quote source: %s", fetcher.Name())

	// Init notifier
	var alerts notifier.Notifier
	if cfg.Telegram.BotToken != "" {
		alerts = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	} else {
		alerts = notifier.NewLogNotifier()
	}
	log.Printf("[INFO] alert channel: %s", alerts.Name())

	// Init refresh job
	if cfg.Refresh.Cron != "" {
		job := refresh.NewJob(ctx, st, fetcher, alerts)
		if err := job.Register(cfg.Refresh.Cron); err != nil {
			log.Fatalf("[FATAL] register refresh task: %v", err)
		}
		job.Start()
		defer job.Stop()
		if cfg.Refresh.RunOnStart {
			log.Println("[INFO] refresh.run_on_start enabled, executing refresh now")
			go job.RunNow()
		}
	}

	// HTTP server
	server := &http.Server{
		Addr:    cfg.Server.Listen,
		Handler: api.NewServer(st, relay.NewHandler(fetcher)),
	}
	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.Listen)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	cancel()
	log.Println("[INFO] watchlistd stopped")
}
