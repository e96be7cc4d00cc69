// Package cache serves the unified property collection from an in-memory
// snapshot and revalidates it in the background. Readers never wait on an
// upstream fetch.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/singleflight"

	"property-feeds/models"
	"property-feeds/services"
	"property-feeds/utils"
)

// coldRetryDelay spaces out refreshes triggered by reads while no snapshot
// exists.
const coldRetryDelay = 15 * time.Second

// Pipeline produces a fresh unified collection.
type Pipeline interface {
	Aggregate(ctx context.Context) (*services.AggregateResult, error)
}

// Sink receives every freshly built snapshot, e.g. to archive it.
type Sink interface {
	ArchiveSnapshot(ctx context.Context, id string, fetchedAt time.Time, props []*models.Property) error
}

// Options configure revalidation.
type Options struct {
	TTL                time.Duration
	RevalidateInterval time.Duration
	Sink               Sink
}

// Cache holds the current snapshot and refreshes it.
type Cache struct {
	pipeline Pipeline
	opts     Options
	logger   *utils.Logger

	current       atomic.Pointer[Snapshot]
	invalidatedAt atomic.Int64
	lastAttempt   atomic.Int64
	refreshing    atomic.Bool
	group         singleflight.Group

	now func() time.Time
}

func New(pipeline Pipeline, opts Options, logger *utils.Logger) *Cache {
	if opts.RevalidateInterval <= 0 {
		opts.RevalidateInterval = time.Hour
	}
	if opts.TTL <= 0 {
		opts.TTL = opts.RevalidateInterval
	}
	return &Cache{
		pipeline: pipeline,
		opts:     opts,
		logger:   logger,
		now:      time.Now,
	}
}

// Get returns the current snapshot without blocking. An expired or
// invalidated snapshot is still returned while a background refresh runs.
// Before the first successful refresh it returns models.ErrUnavailable.
func (c *Cache) Get(ctx context.Context) (*Snapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		if c.now().UnixNano()-c.lastAttempt.Load() >= int64(coldRetryDelay) {
			c.refreshInBackground(ctx)
		}
		return nil, models.ErrUnavailable
	}
	if c.expired(snap) {
		c.refreshInBackground(ctx)
	}
	return snap, nil
}

// Refresh runs the pipeline and swaps in the result. Concurrent callers
// share one run.
//
// When every provider fails and a snapshot exists, a degraded copy of it is
// kept and a *models.StaleServed is returned. Without a prior snapshot the
// error wraps models.ErrUnavailable.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (interface{}, error) {
		return nil, c.refresh(ctx)
	})
	return err
}

// Invalidate marks the current snapshot as expired. Its data keeps being
// served until a refresh replaces it.
func (c *Cache) Invalidate() {
	c.invalidatedAt.Store(c.now().UnixNano())
	c.logger.Info("[cache] snapshot invalidated")
}

// Run refreshes on every revalidation tick until ctx is done.
func (c *Cache) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.opts.RevalidateInterval)
	defer ticker.Stop()

	c.logger.Info("[cache] revalidating every %v", c.opts.RevalidateInterval)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx); err != nil {
				c.logger.Warn("[cache] scheduled refresh: %v", err)
			}
		}
	}
}

func (c *Cache) expired(s *Snapshot) bool {
	if c.invalidatedAt.Load() > s.CheckedAt.UnixNano() {
		return true
	}
	return c.now().Sub(s.CheckedAt) >= c.opts.TTL
}

func (c *Cache) refreshInBackground(ctx context.Context) {
	if !c.refreshing.CompareAndSwap(false, true) {
		return
	}
	bg := context.WithoutCancel(ctx)
	go func() {
		defer c.refreshing.Store(false)
		if err := c.Refresh(bg); err != nil {
			c.logger.Warn("[cache] background refresh: %v", err)
		}
	}()
}

func (c *Cache) refresh(ctx context.Context) error {
	started := c.now()
	c.lastAttempt.Store(started.UnixNano())
	c.logger.Info("[cache] refreshing snapshot")

	res, err := c.pipeline.Aggregate(ctx)
	prev := c.current.Load()

	if err != nil {
		var statuses []models.ProviderStatus
		if res != nil {
			statuses = res.Providers
		}
		if prev == nil {
			c.logger.Error("[cache] first refresh failed, no data to serve: %v", err)
			return eris.Wrapf(models.ErrUnavailable, "cold start: %v", err)
		}

		c.current.Store(prev.degraded(statuses, err, started))
		stale := &models.StaleServed{SnapshotAge: prev.Age(c.now()), Err: err}
		c.logger.Error("[cache] %v", stale)
		return stale
	}

	snap := newSnapshot(res.Properties, res.Providers, res.FetchedAt, started)
	c.current.Store(snap)
	c.logger.Info("[cache] snapshot %s ready: %d properties", snap.ID, len(snap.Properties))

	if c.opts.Sink != nil {
		if err := c.opts.Sink.ArchiveSnapshot(ctx, snap.ID, snap.FetchedAt, snap.Properties); err != nil {
			c.logger.Error("[cache] archiving snapshot %s: %v", snap.ID, err)
		}
	}
	return nil
}
