package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vigilhq/vigil/internal/metrics"
)

// Config holds Prometheus adapter configuration
type Config struct {
	URL            string
	Timeout        time.Duration
	MaxConcurrency int64
	RetryCount     int
	RetryDelay     time.Duration
	// Queries maps metric names to PromQL instant queries. Empty takes
	// DefaultQueries.
	Queries map[string]string
}

// DefaultQueries are node-exporter style queries for the core metrics.
var DefaultQueries = map[string]string{
	metrics.CPUPercent:    `100 - (avg(rate(node_cpu_seconds_total{mode="idle"}[2m])) * 100)`,
	metrics.MemoryPercent: `(1 - node_memory_MemAvailable_bytes / node_memory_MemTotal_bytes) * 100`,
	metrics.DiskPercent:   `(1 - node_filesystem_avail_bytes{mountpoint="/"} / node_filesystem_size_bytes{mountpoint="/"}) * 100`,
	metrics.Load1Min:      `node_load1`,
}

// DefaultConfig returns default configuration
func DefaultConfig(prometheusURL string) Config {
	return Config{
		URL:            prometheusURL,
		Timeout:        10 * time.Second,
		MaxConcurrency: 10,
		RetryCount:     1,
		RetryDelay:     100 * time.Millisecond,
		Queries:        DefaultQueries,
	}
}

// Adapter pulls metric snapshots from a Prometheus server, one instant
// query per metric, fanned out under a concurrency bound.
type Adapter struct {
	config Config
	client *http.Client
	sem    *semaphore.Weighted
}

// NewAdapter creates a new Prometheus adapter
func NewAdapter(config Config) *Adapter {
	if config.Queries == nil {
		config.Queries = DefaultQueries
	}
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 10
	}
	return &Adapter{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		sem: semaphore.NewWeighted(config.MaxConcurrency),
	}
}

// Snapshot implements metrics.Source. Metrics whose query fails are
// dropped from the snapshot; the snapshot only errors when every query
// fails, so one broken exporter does not blind the engine.
func (a *Adapter) Snapshot(ctx context.Context) (metrics.Snapshot, error) {
	queryCtx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	type metricValue struct {
		name  string
		value float64
		err   error
	}

	results := make(chan metricValue, len(a.config.Queries))
	var wg sync.WaitGroup

	for name, query := range a.config.Queries {
		wg.Add(1)
		go func(name, query string) {
			defer wg.Done()
			value, err := a.queryValue(queryCtx, query)
			results <- metricValue{name: name, value: value, err: err}
		}(name, query)
	}

	wg.Wait()
	close(results)

	snap := metrics.Snapshot{}
	var lastErr error
	for r := range results {
		if r.err != nil {
			lastErr = fmt.Errorf("query %s: %w", r.name, r.err)
			continue
		}
		snap[r.name] = r.value
	}

	if len(snap) == 0 && lastErr != nil {
		return nil, lastErr
	}
	return snap, nil
}

// queryValue runs one instant query with retry and returns the summed
// vector result.
func (a *Adapter) queryValue(ctx context.Context, query string) (float64, error) {
	if err := a.sem.Acquire(ctx, 1); err != nil {
		return 0, fmt.Errorf("semaphore acquire: %w", err)
	}
	defer a.sem.Release(1)

	var lastErr error
	for attempt := 0; attempt <= a.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-time.After(a.config.RetryDelay):
			}
		}

		result, err := a.executeQuery(ctx, query)
		if err == nil {
			return extractScalarValue(result), nil
		}
		lastErr = err
	}

	return 0, fmt.Errorf("query failed after %d attempts: %w", a.config.RetryCount+1, lastErr)
}

// executeQuery performs a single Prometheus instant query
func (a *Adapter) executeQuery(ctx context.Context, query string) (*QueryResponse, error) {
	queryURL := fmt.Sprintf("%s/api/v1/query", strings.TrimSuffix(a.config.URL, "/"))

	params := url.Values{}
	params.Add("query", query)

	fullURL := queryURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("http status %d: %s", resp.StatusCode, string(body))
	}

	var result QueryResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	if result.Status != "success" {
		return nil, fmt.Errorf("prometheus error: %s", result.Error)
	}

	return &result, nil
}

// extractScalarValue sums all vector results into one scalar
func extractScalarValue(resp *QueryResponse) float64 {
	if resp == nil || len(resp.Data.Result) == 0 {
		return 0
	}

	var sum float64
	for _, result := range resp.Data.Result {
		sum += result.Value.Value()
	}

	return sum
}
