package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealio/dealio/internal/config"
	"github.com/dealio/dealio/internal/ingest"
	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/metrics"
	"github.com/dealio/dealio/internal/pacer"
	"github.com/dealio/dealio/internal/scheduler"
	"github.com/dealio/dealio/internal/store"
	"github.com/dealio/dealio/pkg/alert"
	"github.com/dealio/dealio/pkg/craigslist"
	"github.com/dealio/dealio/pkg/server"
)

// app holds what every command needs.
type app struct {
	cfg   *config.Config
	log   logger.Logger
	store *store.SQLStore
}

func setup() (*app, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	dsn, fallback := cfg.Database.DatabaseURL()
	if fallback {
		log.Warn("DATABASE_URL not set, using local default", logger.String("url", dsn))
	}
	db, err := store.Open(cfg.Database.Driver, dsn, log.With(logger.String("component", "store")))
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("open store: %w", err)
	}

	return &app{cfg: cfg, log: log, store: db}, nil
}

func (a *app) Close() {
	a.store.Close()
	a.log.Sync()
}

func buildPacer(mode string, lo, hi time.Duration, ratePerSecond float64, burst int) pacer.Pacer {
	switch strings.ToLower(mode) {
	case "none", "off":
		return pacer.Nop{}
	case "token_bucket":
		return pacer.NewTokenBucket(ratePerSecond, burst)
	default:
		return pacer.NewRandom(lo, hi)
	}
}

func buildSource(cfg config.ScrapeConfig, log logger.Logger, fetchPacer pacer.Pacer) (craigslist.Fetcher, craigslist.Extractor, error) {
	opts := []craigslist.FetcherOption{
		craigslist.WithTimeout(cfg.ParseTimeout()),
		craigslist.WithUserAgent(cfg.UserAgent),
		craigslist.WithPacer(fetchPacer),
	}

	fetchLog := log.With(logger.String("component", "fetcher"))
	extractLog := log.With(logger.String("component", "extractor"))

	switch strings.ToLower(cfg.Mode) {
	case "", "html":
		return craigslist.NewHTTPFetcher(fetchLog, opts...), craigslist.NewHTMLExtractor(extractLog), nil
	case "rss":
		opts = append(opts, craigslist.WithURLBuilder(craigslist.FeedURL))
		return craigslist.NewHTTPFetcher(fetchLog, opts...), craigslist.NewFeedExtractor(extractLog), nil
	case "browser":
		return craigslist.NewBrowserFetcher(fetchLog, cfg.ChromePath, opts...), craigslist.NewHTMLExtractor(extractLog), nil
	}
	return nil, nil, fmt.Errorf("unknown scrape mode %q", cfg.Mode)
}

func buildAlertManager(cfg *config.Config) *alert.Manager {
	var notifiers []alert.Notifier

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewSlack(cfg.Alerts.Slack.WebhookURL))
	}
	if cfg.Alerts.Discord.Enabled && cfg.Alerts.Discord.WebhookURL != "" {
		notifiers = append(notifiers, alert.NewDiscord(cfg.Alerts.Discord.WebhookURL))
	}
	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alert.NewWebhook(cfg.Alerts.Webhook.URL, cfg.Alerts.Webhook.Secret))
	}

	return alert.NewManager(notifiers)
}

// selectMarkets narrows the configured markets to the requested ones.
func selectMarkets(configured, wanted []string) ([]string, error) {
	if len(wanted) == 0 {
		return configured, nil
	}
	var markets []string
	for _, w := range wanted {
		w = strings.ToLower(strings.TrimSpace(w))
		if slices.Contains(configured, w) {
			markets = append(markets, w)
		}
	}
	if len(markets) == 0 {
		return nil, fmt.Errorf("no matching markets for: %s", strings.Join(wanted, ", "))
	}
	return markets, nil
}

func (a *app) orchestrator(m *metrics.Metrics, markets []string) (*ingest.Orchestrator, error) {
	sc := a.cfg.Scrape

	fetchMin, fetchMax := sc.FetchDelay()
	pairMin, pairMax := sc.PairDelay()

	fetcher, extractor, err := buildSource(sc, a.log, buildPacer(sc.Pacer, fetchMin, fetchMax, sc.RatePerSecond, sc.Burst))
	if err != nil {
		return nil, err
	}

	return ingest.New(a.store, fetcher, extractor, a.log.With(logger.String("component", "ingest")), ingest.Options{
		Markets:        markets,
		Categories:     sc.Categories,
		PairPacer:      buildPacer(sc.Pacer, pairMin, pairMax, sc.RatePerSecond, sc.Burst),
		Alerts:         buildAlertManager(a.cfg),
		AlertThreshold: sc.AlertThreshold,
		Metrics:        m,
	}), nil
}

func runScrape(reset, seed bool, wantMarkets []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	markets, err := selectMarkets(a.cfg.Scrape.Markets, wantMarkets)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if reset {
		if err := a.store.ResetSchema(ctx); err != nil {
			return err
		}
	}
	if seed {
		if err := a.store.EnsureSchema(ctx); err != nil {
			return err
		}
		if _, err := a.store.Seed(ctx); err != nil {
			return err
		}
	}

	orch, err := a.orchestrator(nil, markets)
	if err != nil {
		return err
	}
	sum, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("scrape: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\nrun %s: %d pairs processed, %d skipped, %d listings saved, %d failed (%s)\n",
		sum.RunID, sum.PairsProcessed, sum.PairsSkipped, sum.ListingsSaved, sum.ListingsFailed, sum.Duration.Round(time.Second))
	return nil
}

func runServe(port int) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.store.EnsureSchema(ctx); err != nil {
		a.log.Error("schema setup failed, serving anyway", logger.Error(err))
	}

	srv := server.New(a.store, a.log.With(logger.String("component", "api")), server.Options{Port: port})
	return srv.ListenAndServe(ctx)
}

func runDaemon(port int) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if port == 0 {
		port = a.cfg.Server.Port
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	orch, err := a.orchestrator(m, a.cfg.Scrape.Markets)
	if err != nil {
		return err
	}
	sched, err := scheduler.New(orch, a.cfg.Schedule.Cron, a.log.With(logger.String("component", "scheduler")))
	if err != nil {
		return err
	}
	srv := server.New(a.store, a.log.With(logger.String("component", "api")), server.Options{Port: port, Gatherer: reg})

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Start scheduler in background.
	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("scheduler stopped", logger.Error(err))
		}
	}()

	err = srv.ListenAndServe(ctx)
	cancel()
	<-schedDone
	a.log.Info("shut down")
	return err
}

func runDeals(jsonOutput bool, minScore float64, limit int) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	deals, err := a.store.TopDeals(context.Background(), limit, minScore)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(deals)
	}

	if len(deals) == 0 {
		fmt.Println("no deals found (try scraping first: dealio scrape)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tPRICE\tCATEGORY\tTITLE\tURL")
	for _, d := range deals {
		fmt.Fprintf(w, "%.1f\t$%.2f\t%s\t%s\t%s\n", d.DealScore, d.Price, d.Category, d.Title, d.URL)
	}
	return w.Flush()
}

func runReset(seed bool) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if err := a.store.ResetSchema(ctx); err != nil {
		return err
	}
	fmt.Fprintln(os.Stderr, "listings table recreated")

	if seed {
		n, err := a.store.Seed(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "seeded %d sample listings\n", n)
	}
	return nil
}

func runPing() error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.store.Ping(context.Background()) {
		return errors.New("database connection failed")
	}
	fmt.Println("database connection successful")
	return nil
}
