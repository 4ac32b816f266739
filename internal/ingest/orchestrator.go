// Package ingest runs one scrape over every market and category and stores
// the scored listings.
package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/metrics"
	"github.com/dealio/dealio/internal/pacer"
	"github.com/dealio/dealio/pkg/alert"
	"github.com/dealio/dealio/pkg/craigslist"
	"github.com/dealio/dealio/pkg/listing"
)

// DefaultAlertThreshold is the deal score from which a listing is "hot".
const DefaultAlertThreshold = 85.0

// Store is the part of the persistence gateway a run needs.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Upsert(ctx context.Context, l listing.Listing) error
}

// Summary describes a finished run.
type Summary struct {
	RunID          string        `json:"run_id"`
	PairsProcessed int           `json:"pairs_processed"`
	PairsSkipped   int           `json:"pairs_skipped"`
	ListingsSaved  int           `json:"listings_saved"`
	ListingsFailed int           `json:"listings_failed"`
	HotDeals       int           `json:"hot_deals"`
	StartedAt      time.Time     `json:"started_at"`
	Duration       time.Duration `json:"duration"`
}

// Options tunes an Orchestrator. Zero values fall back to the defaults.
type Options struct {
	Markets        []string
	Categories     []craigslist.Category
	PairPacer      pacer.Pacer
	Alerts         *alert.Manager
	AlertThreshold float64
	Metrics        *metrics.Metrics
}

// Orchestrator drives fetch, extract and upsert for each pair in turn.
type Orchestrator struct {
	store     Store
	fetcher   craigslist.Fetcher
	extractor craigslist.Extractor
	logger    logger.Logger

	markets    []string
	categories []craigslist.Category
	pairPacer  pacer.Pacer
	alerts     *alert.Manager
	threshold  float64
	metrics    *metrics.Metrics

	newRunID func() string
	now      func() time.Time
}

// New creates an Orchestrator. Markets and categories default to the
// craigslist package lists and pairs are spaced 2-5s apart.
func New(s Store, f craigslist.Fetcher, e craigslist.Extractor, log logger.Logger, opts Options) *Orchestrator {
	if len(opts.Markets) == 0 {
		opts.Markets = craigslist.DefaultMarkets()
	}
	if len(opts.Categories) == 0 {
		opts.Categories = craigslist.DefaultCategories()
	}
	if opts.PairPacer == nil {
		opts.PairPacer = pacer.NewRandom(2*time.Second, 5*time.Second)
	}
	if opts.AlertThreshold <= 0 {
		opts.AlertThreshold = DefaultAlertThreshold
	}

	return &Orchestrator{
		store:      s,
		fetcher:    f,
		extractor:  e,
		logger:     log,
		markets:    opts.Markets,
		categories: opts.Categories,
		pairPacer:  opts.PairPacer,
		alerts:     opts.Alerts,
		threshold:  opts.AlertThreshold,
		metrics:    opts.Metrics,
		newRunID:   uuid.NewString,
		now:        time.Now,
	}
}

// Run performs one ingestion pass. Only a schema failure or cancellation
// ends it early; fetch and upsert failures are logged and counted.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	sum := Summary{RunID: o.newRunID(), StartedAt: o.now()}
	log := o.logger.With(logger.String("run_id", sum.RunID))

	log.Info("ingestion run started",
		logger.Int("markets", len(o.markets)),
		logger.Int("categories", len(o.categories)))

	if err := o.store.EnsureSchema(ctx); err != nil {
		log.Error("schema setup failed", logger.Error(err))
		return sum, fmt.Errorf("prepare store: %w", err)
	}

	var hot []listing.Listing
	for _, market := range o.markets {
		for _, category := range o.categories {
			hot = append(hot, o.runPair(ctx, log, market, category, &sum)...)

			if err := o.pairPacer.Wait(ctx); err != nil {
				o.finish(log, &sum)
				return sum, fmt.Errorf("run interrupted: %w", err)
			}
		}
	}

	sum.HotDeals = len(hot)
	o.notify(ctx, log, sum.RunID, hot)
	o.finish(log, &sum)
	return sum, nil
}

// runPair handles one market and category and returns its hot listings.
func (o *Orchestrator) runPair(ctx context.Context, log logger.Logger, market string, category craigslist.Category, sum *Summary) []listing.Listing {
	log = log.With(logger.String("market", market), logger.String("category", string(category.Name)))

	started := o.now()
	document, err := o.fetcher.Fetch(ctx, market, category.Code)
	o.metrics.ObserveFetch(market, o.now().Sub(started))
	if err != nil {
		log.Warn("skipping pair", logger.Error(err))
		sum.PairsSkipped++
		o.metrics.Pair(metrics.ResultSkipped)
		return nil
	}

	var hot []listing.Listing
	saved, failed := 0, 0
	for l := range o.extractor.Extract(market, category.Name, document) {
		if err := o.store.Upsert(ctx, l); err != nil {
			log.Error("save listing failed", logger.String("id", l.ID), logger.Error(err))
			failed++
			o.metrics.Failed(string(l.Category))
			continue
		}
		saved++
		o.metrics.Saved(string(l.Category))
		if l.DealScore >= o.threshold {
			hot = append(hot, l)
		}
	}

	sum.PairsProcessed++
	sum.ListingsSaved += saved
	sum.ListingsFailed += failed
	o.metrics.Pair(metrics.ResultProcessed)

	log.Info("pair done", logger.Int("saved", saved), logger.Int("failed", failed))
	return hot
}

func (o *Orchestrator) notify(ctx context.Context, log logger.Logger, runID string, hot []listing.Listing) {
	if len(hot) == 0 || !o.alerts.HasNotifiers() {
		return
	}
	n := alert.NewDealNotification(runID, hot, o.threshold)
	if err := o.alerts.Broadcast(ctx, n); err != nil {
		log.Warn("deal alert failed", logger.Error(err))
		return
	}
	log.Info("deal alert sent", logger.Int("hot_deals", len(hot)))
}

func (o *Orchestrator) finish(log logger.Logger, sum *Summary) {
	sum.Duration = o.now().Sub(sum.StartedAt)
	o.metrics.RunFinished(sum.StartedAt.Add(sum.Duration), sum.Duration)

	log.Info("ingestion run finished",
		logger.Int("pairs_processed", sum.PairsProcessed),
		logger.Int("pairs_skipped", sum.PairsSkipped),
		logger.Int("listings_saved", sum.ListingsSaved),
		logger.Int("listings_failed", sum.ListingsFailed),
		logger.Int("hot_deals", sum.HotDeals),
		logger.Duration("duration", sum.Duration))
}
