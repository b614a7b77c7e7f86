// Package ping notifies search engines that the sitemap changed and keeps the
// last outcome per engine for the listing API to surface.
package ping

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"
)

const defaultTimeout = 10 * time.Second

// Result is the last recorded outcome for one engine.
type Result struct {
	URL        string    `json:"url"`
	Success    bool      `json:"success"`
	StatusCode int       `json:"statusCode,omitempty"`
	Error      string    `json:"error,omitempty"`
	PingedAt   time.Time `json:"pingedAt"`
}

// Pinger GETs the engines' ping endpoints with the sitemap URL. Failures are
// recorded and dropped; a lost ping is simply lost.
type Pinger struct {
	client     *http.Client
	sitemapURL string
	logger     *zap.Logger

	mu   sync.RWMutex
	last map[string]Result
	now  func() time.Time
}

// New builds a Pinger for the sitemap served under baseURL.
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Pinger {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Pinger{
		client:     &http.Client{Timeout: timeout},
		sitemapURL: baseURL + "/sitemap.xml",
		logger:     logger,
		last:       make(map[string]Result),
		now:        time.Now,
	}
}

func (p *Pinger) endpoints() map[string]string {
	escaped := url.QueryEscape(p.sitemapURL)
	return map[string]string{
		"google": "https://www.google.com/ping?sitemap=" + escaped,
		"bing":   "https://www.bing.com/ping?sitemap=" + escaped,
	}
}

// PingAll notifies every engine. Engines are pinged concurrently; PingAll
// returns once all attempts finished or the context expired.
func (p *Pinger) PingAll(ctx context.Context) {
	var wg sync.WaitGroup
	for engine, endpoint := range p.endpoints() {
		wg.Add(1)
		go func(engine, endpoint string) {
			defer wg.Done()
			p.pingOne(ctx, engine, endpoint)
		}(engine, endpoint)
	}
	wg.Wait()
}

func (p *Pinger) pingOne(ctx context.Context, engine, endpoint string) {
	res := Result{URL: endpoint, PingedAt: p.now()}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		res.Error = fmt.Sprintf("build request: %v", err)
		p.record(engine, res)
		return
	}
	resp, err := p.client.Do(req)
	if err != nil {
		res.Error = err.Error()
		p.logger.Warn("sitemap ping failed", zap.String("engine", engine), zap.Error(err))
		p.record(engine, res)
		return
	}
	defer func() { _ = resp.Body.Close() }()

	res.StatusCode = resp.StatusCode
	res.Success = resp.StatusCode < 400
	p.logger.Info("sitemap pinged",
		zap.String("engine", engine),
		zap.Int("status", resp.StatusCode),
	)
	p.record(engine, res)
}

func (p *Pinger) record(engine string, res Result) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.last[engine] = res
}

// Status returns the last recorded outcome per engine. Engines never pinged
// are absent.
func (p *Pinger) Status() map[string]Result {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]Result, len(p.last))
	for engine, res := range p.last {
		out[engine] = res
	}
	return out
}
