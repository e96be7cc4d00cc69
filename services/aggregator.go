package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rotisserie/eris"

	"property-feeds/models"
	"property-feeds/scraper/feed"
	"property-feeds/utils"
)

// ErrAllProvidersFailed is returned by Aggregate when no provider produced a
// document.
var ErrAllProvidersFailed = errors.New("all providers failed")

// AggregateResult is the output of one full pipeline run.
type AggregateResult struct {
	Properties []*models.Property
	Providers  []models.ProviderStatus
	FetchedAt  time.Time
}

// AggregatorOptions configure fan-out pacing and the cycle deadline.
type AggregatorOptions struct {
	RateLimitMs    int
	OverallTimeout time.Duration
}

// Aggregator fetches every provider concurrently and runs the
// normalize → dedup → enrich pass over whatever came back.
type Aggregator struct {
	fetchers   []feed.Fetcher
	opts       AggregatorOptions
	normalizer *Normalizer
	dedup      *Deduplicator
	enricher   *Enricher
	logger     *utils.Logger
}

func NewAggregator(fetchers []feed.Fetcher, opts AggregatorOptions, enricher *Enricher, logger *utils.Logger) *Aggregator {
	return &Aggregator{
		fetchers:   fetchers,
		opts:       opts,
		normalizer: NewNormalizer(logger),
		dedup:      NewDeduplicator(logger),
		enricher:   enricher,
		logger:     logger,
	}
}

type fetchOutcome struct {
	doc     *feed.Document
	err     error
	settled bool
}

// Aggregate runs the pipeline once. A provider failure is recorded in its
// status and never aborts the run; an error is returned only when every
// provider failed, together with the statuses.
func (a *Aggregator) Aggregate(ctx context.Context) (*AggregateResult, error) {
	start := time.Now()
	if a.opts.OverallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.OverallTimeout)
		defer cancel()
	}

	a.logger.Info("[aggregator] Fetching %d providers", len(a.fetchers))

	var mu sync.Mutex
	outcomes := make([]fetchOutcome, len(a.fetchers))
	// one slot per provider so a slow feed never holds another back
	pool := utils.NewWorkerPool(len(a.fetchers), a.opts.RateLimitMs)

	for i, f := range a.fetchers {
		i, f := i, f
		pool.Submit(func() {
			doc, err := f.Fetch(ctx)
			mu.Lock()
			outcomes[i] = fetchOutcome{doc: doc, err: err, settled: true}
			mu.Unlock()
		})
	}

	select {
	case <-pool.Done():
	case <-ctx.Done():
		a.logger.Warn("[aggregator] overall deadline reached before every provider settled")
	}

	mu.Lock()
	settled := make([]fetchOutcome, len(outcomes))
	copy(settled, outcomes)
	mu.Unlock()

	result := &AggregateResult{
		Providers: make([]models.ProviderStatus, len(a.fetchers)),
		FetchedAt: time.Now().UTC(),
	}

	var raw []*models.RawListing
	var firstErr error
	succeeded := 0

	for i, f := range a.fetchers {
		o := settled[i]
		status := models.ProviderStatus{Name: f.Name()}

		switch {
		case !o.settled:
			o.err = eris.Errorf("%s did not settle before the overall deadline", f.Name())
			status.Error = o.err.Error()
		case o.err != nil:
			status.Error = o.err.Error()
		default:
			status.OK = true
			status.Records = len(o.doc.Listings)
			raw = append(raw, o.doc.Listings...)
			succeeded++
		}

		if o.err != nil {
			a.logger.Error("[aggregator] provider %s failed: %v", f.Name(), o.err)
			if firstErr == nil {
				firstErr = o.err
			}
		}
		result.Providers[i] = status
	}

	if succeeded == 0 {
		if firstErr == nil {
			return result, eris.Wrap(ErrAllProvidersFailed, "no providers configured")
		}
		return result, eris.Wrapf(ErrAllProvidersFailed, "%d providers, first error: %v", len(a.fetchers), firstErr)
	}

	normalized := a.normalizer.Normalize(raw)
	merged := a.dedup.Merge(normalized)
	result.Properties = a.enricher.Enrich(merged)

	a.logger.Info("[aggregator] Pipeline complete: %d/%d providers ok, %d properties in %v",
		succeeded, len(a.fetchers), len(result.Properties), time.Since(start).Round(time.Millisecond))
	return result, nil
}
