package geocode

import (
	"time"

	"golang.org/x/time/rate"
)

// newTestLimiter creates a rate limiter that effectively does not limit for tests.
func newTestLimiter() *rate.Limiter {
	return rate.NewLimiter(rate.Inf, 1)
}

// newTestGeocoder points a geocoder at a test server with no rate limit or
// retry delay.
func newTestGeocoder(baseURL string, opts ...Option) *geocoder {
	opts = append([]Option{WithBaseURL(baseURL)}, opts...)
	g := NewClient(opts...).(*geocoder)
	g.limiter = newTestLimiter()
	g.backoff = time.Nanosecond
	return g
}
