package downloader

import (
	"context"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/ratelimit"
)

// Job is one cover to fetch
type Job struct {
	ID  string
	URL string
}

// Result is the outcome of a Job. Results line up with the submitted jobs.
type Result struct {
	Job      Job
	Success  bool
	Cached   bool
	Error    error
	Duration time.Duration
	Size     int64
}

// Fetcher opens a stream for a URL
type Fetcher interface {
	Fetch(ctx context.Context, url string) (io.ReadCloser, error)
}

// CoverStorage is where fetched covers land
type CoverStorage interface {
	IsCached(id string) bool
	Save(id string, r io.Reader) (int64, error)
}

// Pool downloads jobs with bounded concurrency
type Pool struct {
	concurrency int
	timeout     time.Duration
	fetcher     Fetcher
	storage     CoverStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewPool creates a download pool. A nil limiter means unlimited and a zero
// timeout means no per-job deadline.
func NewPool(
	concurrency int,
	timeout time.Duration,
	fetcher Fetcher,
	storage CoverStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *Pool {
	if concurrency <= 0 {
		concurrency = 1
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	return &Pool{
		concurrency: concurrency,
		timeout:     timeout,
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Run schedules every job up front and waits for all of them. A failing job
// never cancels the others; its error is reported in its Result.
func (p *Pool) Run(ctx context.Context, jobs []Job) []Result {
	results := make([]Result, len(jobs))

	p.logger.DebugWithFields("Starting download pool", map[string]interface{}{
		"jobs":        len(jobs),
		"concurrency": p.concurrency,
	})

	// Plain Group, not WithContext: one failure must not cancel siblings
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range jobs {
		g.Go(func() error {
			results[i] = p.processJob(ctx, jobs[i])
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (p *Pool) processJob(ctx context.Context, job Job) Result {
	start := time.Now()
	result := Result{Job: job}

	if p.storage.IsCached(job.ID) {
		result.Success = true
		result.Cached = true
		result.Duration = time.Since(start)
		return result
	}

	if err := p.rateLimiter.Wait(ctx); err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	jobCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, err := p.fetcher.Fetch(jobCtx, job.URL)
	if err != nil {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}
	defer body.Close()

	size, err := p.storage.Save(job.ID, body)
	result.Size = size
	result.Duration = time.Since(start)
	if err != nil {
		result.Error = err
		return result
	}

	result.Success = true
	return result
}
