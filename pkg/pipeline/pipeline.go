// Package pipeline wires the collection loop, manifest, cover cache and
// catalog into the end-to-end flows the command line exposes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/internal/downloader"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/cache"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/catalog"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/collector"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/config"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/feed"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/items"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/manifest"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/models"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ratelimit"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/storage"
)

// Pipeline owns the on-disk state of one data directory
type Pipeline struct {
	config   *config.Config
	manifest *manifest.Manager
	covers   *storage.Manager
	cache    *cache.Cache
	catalog  *catalog.Catalog
	logger   logger.Logger
}

// FetchSummary reports a cover fetch pass
type FetchSummary struct {
	Items  int `json:"items"`
	Cached int `json:"cached"`
	Failed int `json:"failed"`
}

// New opens the manifest, cover store and, when enabled, the catalog
func New(cfg *config.Config, log logger.Logger) (*Pipeline, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	covers, err := storage.NewManager(cfg.Storage.CoversDir)
	if err != nil {
		return nil, fmt.Errorf("failed to create cover store: %w", err)
	}

	fetcher := downloader.NewHTTPFetcher(cfg.Feed.UserAgent, cfg.Feed.Referer)
	coverCache := cache.New(covers, fetcher, cache.Options{
		Timeout:      cfg.Download.Timeout,
		PublicPrefix: cfg.Storage.PublicPrefix,
		Limiter:      ratelimit.PerMinute(cfg.Download.RequestsPerMinute),
	}, log)

	p := &Pipeline{
		config:   cfg,
		manifest: manifest.NewManager(cfg.Storage.ManifestPath, log),
		covers:   covers,
		cache:    coverCache,
		logger:   log.WithField("component", "pipeline"),
	}

	if cfg.Catalog.Enabled {
		p.catalog, err = catalog.Open(cfg.Catalog.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
	}

	return p, nil
}

// Close releases the catalog
func (p *Pipeline) Close() error {
	if p.catalog != nil {
		return p.catalog.Close()
	}
	return nil
}

func (p *Pipeline) Manifest() *manifest.Manager {
	return p.manifest
}

// Catalog is nil when the catalog is disabled
func (p *Pipeline) Catalog() *catalog.Catalog {
	return p.catalog
}

// Source returns a replay source for replayPath, or the favorites API
func (p *Pipeline) Source(replayPath string) (collector.Source, error) {
	if replayPath != "" {
		return feed.LoadReplay(replayPath)
	}
	if p.config.Feed.APIURL == "" {
		return nil, errors.SourceUnavailable("no feed api_url configured", nil)
	}
	client := feed.NewClient(p.config.Feed, p.logger)
	return feed.NewAPISource(client), nil
}

// Collect runs the collection loop seeded from the current manifest, saving
// the manifest after every batch that added items
func (p *Pipeline) Collect(ctx context.Context, src collector.Source) (collector.Result, error) {
	existing, err := p.manifest.Load()
	if err != nil {
		return collector.Result{}, err
	}
	store := items.NewStore()
	seeded := store.Seed(existing)
	p.logger.InfoWithFields("Manifest loaded", map[string]interface{}{
		"path":  p.manifest.Path(),
		"items": seeded,
	})

	c := collector.New(collector.Options{
		MaxItems:       p.config.Collect.MaxItems,
		StallLimit:     p.config.Collect.StallLimit,
		SettleInterval: p.config.Collect.SettleInterval,
		Flusher: collector.FlushFunc(func(ctx context.Context, all []models.Item) error {
			return p.manifest.Save(all)
		}),
	}, p.logger)

	res, runErr := c.Run(ctx, src, store)
	if res.Added > 0 {
		// Mirror what was flushed even when the run was cancelled
		p.syncCatalog(context.WithoutCancel(ctx), store.Items())
	}
	return res, runErr
}

// FetchCovers downloads missing covers for every manifest item and saves the
// manifest with the resulting local paths
func (p *Pipeline) FetchCovers(ctx context.Context) (FetchSummary, error) {
	existing, err := p.manifest.Load()
	if err != nil {
		return FetchSummary{}, err
	}
	if len(existing) == 0 {
		return FetchSummary{}, errors.SourceUnavailable("manifest is empty, run collect first", nil)
	}

	updated, cached := p.cache.FetchAll(ctx, existing, p.config.Download.Concurrency)
	if err := p.manifest.Save(updated); err != nil {
		return FetchSummary{}, err
	}
	p.syncCatalog(ctx, updated)

	// Only items FetchAll schedules can fail
	scheduled := 0
	for _, it := range updated {
		if it.CoverURL != "" && it.ID != "" {
			scheduled++
		}
	}
	return FetchSummary{Items: len(updated), Cached: cached, Failed: scheduled - cached}, nil
}

// SyncCatalog mirrors the manifest into the catalog
func (p *Pipeline) SyncCatalog(ctx context.Context) error {
	if p.catalog == nil {
		return errors.New(errors.ErrorTypeUnknown, "catalog is disabled", nil)
	}
	existing, err := p.manifest.Load()
	if err != nil {
		return err
	}
	return p.catalog.Sync(ctx, existing)
}

// syncCatalog is the best-effort variant used after manifest writes
func (p *Pipeline) syncCatalog(ctx context.Context, all []models.Item) {
	if p.catalog == nil {
		return
	}
	if err := p.catalog.Sync(ctx, all); err != nil {
		p.logger.WarnWithFields("Catalog sync failed", map[string]interface{}{"error": err.Error()})
	}
}
