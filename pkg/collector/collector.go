package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
)

// StopReason says why a collection run ended
type StopReason string

const (
	StopMaxItems     StopReason = "max_items"
	StopStalled      StopReason = "stalled"
	StopSourceClosed StopReason = "source_closed"
	StopCancelled    StopReason = "cancelled"
	StopSourceError  StopReason = "source_error"
	StopFlushFailed  StopReason = "flush_failed"
)

// Options tunes the termination policy
type Options struct {
	// MaxItems stops the run once the store holds this many items
	MaxItems int
	// StallLimit is the number of consecutive batches without a new item
	// after which the feed is considered exhausted
	StallLimit int
	// SettleInterval is the wait after TriggerMore before the next pull
	SettleInterval time.Duration
	// Flusher, if set, is called after every batch that added items
	Flusher Flusher
}

// Result summarises a run
type Result struct {
	Reason  StopReason `json:"reason"`
	Batches int        `json:"batches"`
	Added   int        `json:"added"`
	Total   int        `json:"total"`
}

// Collector drives the pull, merge, decide cycle against a Source
type Collector struct {
	opts   Options
	logger logger.Logger
}

// New creates a Collector
func New(opts Options, log logger.Logger) *Collector {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.StallLimit <= 0 {
		opts.StallLimit = 1
	}
	return &Collector{opts: opts, logger: log.WithField("component", "collector")}
}

// Run pulls batches from src into store until a stop condition holds.
//
// Source and flush failures end the run and are returned alongside the
// partial result. A source that closes before the store holds any item is
// reported as a source_unavailable error, never as an empty success.
// Cancellation of ctx is a normal stop with reason cancelled.
func (c *Collector) Run(ctx context.Context, src Source, store Store) (Result, error) {
	res := Result{Total: store.Len()}
	stall := 0

	logger.LogComponentStart(c.logger, "collector", map[string]interface{}{
		"max_items":   c.opts.MaxItems,
		"stall_limit": c.opts.StallLimit,
		"seeded":      res.Total,
	})
	defer func() {
		logger.LogComponentStop(c.logger, "collector", string(res.Reason))
	}()

	for {
		if ctx.Err() != nil {
			res.Reason = StopCancelled
			return res, nil
		}
		if src.IsClosed() {
			res.Reason = StopSourceClosed
			if res.Total == 0 {
				return res, errors.SourceUnavailable("feed closed before any item was collected", nil)
			}
			return res, nil
		}

		batch, err := src.NextBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				res.Reason = StopCancelled
				return res, nil
			}
			res.Reason = StopSourceError
			return res, errors.SourceUnavailable(fmt.Sprintf("pull batch %d", res.Batches+1), err)
		}
		res.Batches++

		delta := 0
		for _, raw := range batch {
			added, err := store.Add(raw)
			if err != nil {
				c.logger.WithError(err).Debug("Skipping unusable item")
				continue
			}
			if added {
				delta++
			}
		}
		res.Added += delta
		res.Total = store.Len()

		if delta > 0 {
			stall = 0
			if c.opts.Flusher != nil {
				if err := c.opts.Flusher.Flush(ctx, store.Items()); err != nil {
					res.Reason = StopFlushFailed
					if errors.TypeOf(err) == errors.ErrorTypePersistence {
						return res, err
					}
					return res, errors.Persistence("flush after batch", err)
				}
			}
		} else {
			stall++
		}

		c.logger.DebugWithFields("Batch merged", map[string]interface{}{
			"batch": res.Batches,
			"size":  len(batch),
			"added": delta,
			"stall": stall,
		})
		if delta > 0 {
			logger.LogCollectProgress(c.logger, res.Total, c.opts.MaxItems, stall)
		}

		if c.opts.MaxItems > 0 && res.Total >= c.opts.MaxItems {
			res.Reason = StopMaxItems
			return res, nil
		}
		if stall >= c.opts.StallLimit {
			res.Reason = StopStalled
			return res, nil
		}

		if err := src.TriggerMore(ctx); err != nil {
			if ctx.Err() != nil {
				res.Reason = StopCancelled
				return res, nil
			}
			res.Reason = StopSourceError
			return res, errors.SourceUnavailable("trigger more items", err)
		}

		if !c.settle(ctx) {
			res.Reason = StopCancelled
			return res, nil
		}
	}
}

func (c *Collector) settle(ctx context.Context) bool {
	if c.opts.SettleInterval <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(c.opts.SettleInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
