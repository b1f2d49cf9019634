// Package cache downloads item covers into the local cover store.
package cache

import (
	"context"
	"path"
	"time"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/internal/downloader"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ratelimit"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/storage"
)

// Cache fills in LocalCover for items whose covers are cached
type Cache struct {
	storage      *storage.Manager
	fetcher      downloader.Fetcher
	limiter      ratelimit.Limiter
	timeout      time.Duration
	publicPrefix string
	logger       logger.Logger
}

// Options configures a Cache
type Options struct {
	// Timeout bounds each download, body included
	Timeout time.Duration
	// PublicPrefix is the URL path prefix under which covers are served,
	// e.g. "data/covers"
	PublicPrefix string
	// Limiter throttles downloads; nil means unlimited
	Limiter ratelimit.Limiter
}

// New creates a Cache over a cover store
func New(store *storage.Manager, fetcher downloader.Fetcher, opts Options, log logger.Logger) *Cache {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Cache{
		storage:      store,
		fetcher:      fetcher,
		limiter:      opts.Limiter,
		timeout:      opts.Timeout,
		publicPrefix: opts.PublicPrefix,
		logger:       log.WithField("component", "cache"),
	}
}

// FetchAll makes sure every item with a cover URL has its cover on disk.
// It returns a copy of items with LocalCover set for each cached cover and
// the number of items whose cover is now available. Failed items keep their
// previous LocalCover and are retried on a later run, never within this one.
// The caller persists the manifest after FetchAll returns.
func (c *Cache) FetchAll(ctx context.Context, items []models.Item, concurrency int) ([]models.Item, int) {
	updated := make([]models.Item, len(items))
	copy(updated, items)

	var jobs []downloader.Job
	var index []int
	for i, it := range updated {
		if it.CoverURL == "" || it.ID == "" {
			continue
		}
		jobs = append(jobs, downloader.Job{ID: it.ID, URL: it.CoverURL})
		index = append(index, i)
	}

	logger.LogComponentStart(c.logger, "cache", map[string]interface{}{
		"items":       len(items),
		"jobs":        len(jobs),
		"concurrency": concurrency,
	})

	pool := downloader.NewPool(concurrency, c.timeout, c.fetcher, c.storage, c.limiter, c.logger)
	results := pool.Run(ctx, jobs)

	success, cached, failed := 0, 0, 0
	for j, r := range results {
		logger.LogDownload(c.logger, r.Job.ID, r.Cached, r.Error)
		if !r.Success {
			failed++
			continue
		}
		if r.Cached {
			cached++
		}
		success++
		// each result owns exactly one slot in updated
		updated[index[j]].LocalCover = c.PublicPath(r.Job.ID)
	}

	c.logger.InfoWithFields("Cover fetch finished", map[string]interface{}{
		"success":    success,
		"cached":     cached,
		"downloaded": success - cached,
		"failed":     failed,
	})
	return updated, success
}

// PublicPath is the manifest value for an item's cached cover
func (c *Cache) PublicPath(id string) string {
	name := storage.FileName(id)
	if c.publicPrefix == "" {
		return name
	}
	return path.Join(c.publicPrefix, name)
}
