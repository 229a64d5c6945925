// Package geocode provides address geocoding via the Census Geocoder.
package geocode

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/geoenrich/internal/resilience"
)

const (
	defaultBaseURL   = "https://geocoding.geo.census.gov/geocoder"
	defaultBenchmark = "Public_AR_Current"
	maxCensusBatch   = 10000
)

// Client geocodes addresses using the Census Geocoder.
type Client interface {
	// Geocode geocodes a single address.
	Geocode(ctx context.Context, addr AddressInput) (*Result, error)

	// BatchGeocode geocodes multiple addresses. Results align with addrs.
	BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error)
}

// AddressInput represents an address to geocode. A full one-line address may
// be given in Street with the other parts left empty.
type AddressInput struct {
	ID      string // Optional identifier for batch correlation
	Street  string
	City    string
	State   string
	ZipCode string
}

// Result holds the geocoding output for an address.
type Result struct {
	Latitude  float64
	Longitude float64
	Source    string // "census"
	Quality   string // "rooftop", "range"
	Matched   bool
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) {
		g.httpClient = hc
	}
}

// WithRateLimit sets the requests-per-second rate limit for Census API calls.
func WithRateLimit(rps float64) Option {
	return func(g *geocoder) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), max(1, int(rps)))
	}
}

// WithBaseURL points the client at another geocoder deployment.
func WithBaseURL(u string) Option {
	return func(g *geocoder) {
		g.baseURL = strings.TrimRight(u, "/")
	}
}

// WithBenchmark selects the Census address benchmark.
func WithBenchmark(b string) Option {
	return func(g *geocoder) {
		if b != "" {
			g.benchmark = b
		}
	}
}

// WithMaxAttempts sets how many times a request is tried on transient
// failures (408, 429 and 5xx gateway errors).
func WithMaxAttempts(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.maxAttempts = n
		}
	}
}

// WithBatchSize caps the addresses sent per Census batch request.
func WithBatchSize(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.batchSize = min(n, maxCensusBatch)
		}
	}
}

type geocoder struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	baseURL     string
	benchmark   string
	maxAttempts int
	batchSize   int
	backoff     time.Duration
	cache       *memo
}

// NewClient creates a new geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		limiter:     rate.NewLimiter(5, 5),
		baseURL:     defaultBaseURL,
		benchmark:   defaultBenchmark,
		maxAttempts: 3,
		batchSize:   1000,
		backoff:     500 * time.Millisecond,
		cache:       newMemo(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode geocodes a single address. An unmatched address is not an error.
func (g *geocoder) Geocode(ctx context.Context, addr AddressInput) (*Result, error) {
	key := cacheKey(addr)
	if r, ok := g.cache.get(key); ok {
		return &r, nil
	}
	r, err := g.geocodeCensus(ctx, addr)
	if err != nil {
		return nil, err
	}
	g.cache.put(key, *r)
	return r, nil
}

// BatchGeocode geocodes addresses through the Census batch API in chunks,
// falling back to single-address calls for a chunk whose batch request fails.
func (g *geocoder) BatchGeocode(ctx context.Context, addrs []AddressInput) ([]Result, error) {
	if len(addrs) == 0 {
		return nil, nil
	}

	// Assign IDs for batch correlation if not set.
	for i := range addrs {
		if addrs[i].ID == "" {
			addrs[i].ID = fmt.Sprintf("%d", i)
		}
	}

	results := make([]Result, 0, len(addrs))
	for start := 0; start < len(addrs); start += g.batchSize {
		chunk := addrs[start:min(start+g.batchSize, len(addrs))]

		out, err := g.batchGeocodeCensus(ctx, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(ctx.Err(), "geocode: batch cancelled")
			}
			zap.L().Warn("geocode: census batch failed, geocoding one by one",
				zap.Int("addresses", len(chunk)), zap.Error(err))
			out = make([]Result, len(chunk))
			for i, addr := range chunk {
				r, err := g.Geocode(ctx, addr)
				if err != nil {
					if ctx.Err() != nil {
						return nil, eris.Wrap(ctx.Err(), "geocode: batch cancelled")
					}
					out[i] = Result{Matched: false, Source: "census"}
					continue
				}
				out[i] = *r
			}
		}
		results = append(results, out...)
	}
	return results, nil
}

// do sends the request built by newReq, retrying transient failures with
// exponential backoff. The caller closes the returned body.
func (g *geocoder) do(ctx context.Context, newReq func() (*http.Request, error)) (*http.Response, error) {
	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = g.maxAttempts
	retry.InitialBackoff = g.backoff
	retry.OnRetry = resilience.RetryLogger("census", "geocode")

	return resilience.DoVal(ctx, retry, func(ctx context.Context) (*http.Response, error) {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "geocode: rate limit")
		}
		req, err := newReq()
		if err != nil {
			return nil, eris.Wrap(err, "geocode: build request")
		}

		resp, err := g.httpClient.Do(req)
		if err != nil {
			return nil, resilience.NewTransientError(eris.Wrap(err, "geocode: request"), 0)
		}
		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}
		resp.Body.Close() //nolint:errcheck

		statusErr := eris.Errorf("geocode: census returned status %d", resp.StatusCode)
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(statusErr, resp.StatusCode)
		}
		return nil, statusErr
	})
}
