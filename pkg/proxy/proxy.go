package proxy

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/errors"
	"github.com/User-ZWW/douyin-favorites-postwall-generater/pkg/logger"
)

// ChunkSize is the relay buffer size
const ChunkSize = 64 * 1024

const (
	defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultReferer   = "https://www.douyin.com/"
)

// Outcome is the terminal state of a proxied request
type Outcome string

const (
	OutcomeCompleted          Outcome = "completed"
	OutcomeClientDisconnected Outcome = "client_disconnected"
	OutcomeUpstreamError      Outcome = "upstream_error"
)

// Options configures a Proxy
type Options struct {
	// Timeout bounds connecting, waiting for upstream response headers and
	// each wait for more body bytes. The stream as a whole is unbounded so
	// long videos can play.
	Timeout time.Duration
	// MaxConnsPerHost caps upstream connections per origin
	MaxConnsPerHost int
	UserAgent       string
	Referer         string
}

// Proxy relays GET requests for ?url= to the origin, forwarding Range so
// browsers can seek. It holds no per-request state.
type Proxy struct {
	client  *http.Client
	timeout time.Duration
	headers map[string]string
	logger  logger.Logger
}

// New creates a Proxy with its own bounded connection pool
func New(opts Options, log logger.Logger) *Proxy {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MaxConnsPerHost <= 0 {
		opts.MaxConnsPerHost = 32
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = defaultReferer
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   opts.Timeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   opts.Timeout,
		ResponseHeaderTimeout: opts.Timeout,
		MaxConnsPerHost:       opts.MaxConnsPerHost,
		MaxIdleConnsPerHost:   opts.MaxConnsPerHost,
		MaxIdleConns:          opts.MaxConnsPerHost * 4,
		IdleConnTimeout:       90 * time.Second,
		// Keep Content-Length and raw bytes intact for range math
		DisableCompression: true,
	}

	return &Proxy{
		client:  &http.Client{Transport: transport},
		timeout: opts.Timeout,
		headers: map[string]string{
			"User-Agent":      opts.UserAgent,
			"Referer":         opts.Referer,
			"Accept":          "*/*",
			"Accept-Language": "zh-CN,zh;q=0.9,en;q=0.8",
		},
		logger: log.WithField("component", "proxy"),
	}
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		http.Error(w, "Missing url parameter", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil || (req.URL.Scheme != "http" && req.URL.Scheme != "https") {
		http.Error(w, "Invalid url parameter", http.StatusBadRequest)
		return
	}
	for k, v := range p.headers {
		req.Header.Set(k, v)
	}
	rangeHeader := r.Header.Get("Range")
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		if r.Context().Err() != nil {
			p.finish(target, rangeHeader, OutcomeClientDisconnected, 0, nil)
			return
		}
		uerr := errors.UpstreamUnreachable("proxy request", err)
		p.finish(target, rangeHeader, OutcomeUpstreamError, 0, uerr)
		http.Error(w, "Upstream unreachable: "+err.Error(), http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		uerr := errors.UpstreamUnreachable(fmt.Sprintf("upstream returned %s", resp.Status), nil)
		p.finish(target, rangeHeader, OutcomeUpstreamError, 0, uerr)
		http.Error(w, fmt.Sprintf("Upstream returned %s", resp.Status), http.StatusBadGateway)
		return
	}

	status := http.StatusOK
	h := w.Header()
	if resp.StatusCode == http.StatusPartialContent {
		status = http.StatusPartialContent
		if cr := resp.Header.Get("Content-Range"); cr != "" {
			h.Set("Content-Range", cr)
		}
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "video/mp4"
	}
	h.Set("Content-Type", contentType)
	if cl := resp.Header.Get("Content-Length"); cl != "" {
		h.Set("Content-Length", cl)
	}
	h.Set("Accept-Ranges", "bytes")
	h.Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)

	body := newIdleTimeoutReader(resp.Body, p.timeout, cancel)
	defer body.stop()

	n, outcome, relayErr := relay(w, body)
	if outcome == OutcomeUpstreamError && r.Context().Err() != nil {
		// the aborted read was caused by the client going away
		outcome = OutcomeClientDisconnected
	}
	p.finish(target, rangeHeader, outcome, n, relayErr)
}

var (
	errClientWrite     = stderrors.New("client write failed")
	errUpstreamStalled = stderrors.New("upstream stalled")
)

// idleTimeoutReader fails a Read that waits longer than timeout for upstream
// bytes by cancelling the upstream request. Time spent writing to the client
// between reads does not count.
type idleTimeoutReader struct {
	r       io.Reader
	timeout time.Duration
	timer   *time.Timer
	stalled atomic.Bool
}

func newIdleTimeoutReader(r io.Reader, timeout time.Duration, cancel context.CancelFunc) *idleTimeoutReader {
	ir := &idleTimeoutReader{r: r, timeout: timeout}
	ir.timer = time.AfterFunc(timeout, func() {
		ir.stalled.Store(true)
		cancel()
	})
	ir.timer.Stop()
	return ir
}

func (ir *idleTimeoutReader) Read(p []byte) (int, error) {
	ir.timer.Reset(ir.timeout)
	n, err := ir.r.Read(p)
	ir.timer.Stop()
	if err != nil && ir.stalled.Load() {
		return n, fmt.Errorf("%w: no data for %s", errUpstreamStalled, ir.timeout)
	}
	return n, err
}

func (ir *idleTimeoutReader) stop() {
	ir.timer.Stop()
}

// relay copies body to w in ChunkSize pieces, flushing after each one
func relay(w http.ResponseWriter, body io.Reader) (int64, Outcome, error) {
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, ChunkSize)
	var total int64

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return total, OutcomeClientDisconnected, fmt.Errorf("%w: %v", errClientWrite, err)
			}
			total += int64(n)
			if flusher != nil {
				flusher.Flush()
			}
		}
		if readErr == io.EOF {
			return total, OutcomeCompleted, nil
		}
		if readErr != nil {
			return total, OutcomeUpstreamError, readErr
		}
	}
}

func (p *Proxy) finish(target, rangeHeader string, outcome Outcome, n int64, err error) {
	fields := map[string]interface{}{
		"url":     target,
		"range":   rangeHeader,
		"outcome": string(outcome),
		"bytes":   n,
	}
	switch {
	case outcome == OutcomeUpstreamError:
		if err != nil {
			fields["error"] = err.Error()
		}
		p.logger.WarnWithFields("Proxy upstream error", fields)
	case outcome == OutcomeClientDisconnected:
		p.logger.DebugWithFields("Proxy client disconnected", fields)
	default:
		p.logger.DebugWithFields("Proxy request completed", fields)
	}
}
