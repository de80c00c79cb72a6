package httpinterceptor

import (
	"net/http"
	"time"

	"go.uber.org/ratelimit"
)

// RateLimiterTransport throttles outgoing requests before handing them to Transport.
type RateLimiterTransport struct {
	Transport   http.RoundTripper
	RateLimiter ratelimit.Limiter
}

type RateLimiterOption interface {
	apply(*RateLimiterTransport)
}

type rateLimiterOptionFunc func(*RateLimiterTransport)

func (o rateLimiterOptionFunc) apply(rt *RateLimiterTransport) {
	o(rt)
}

func WithTransport(transport http.RoundTripper) RateLimiterOption {
	return rateLimiterOptionFunc(func(rt *RateLimiterTransport) {
		if transport != nil {
			rt.Transport = transport
		}
	})
}

func WithRateLimiter(rateLimiter ratelimit.Limiter) RateLimiterOption {
	return rateLimiterOptionFunc(func(rt *RateLimiterTransport) {
		if rateLimiter != nil {
			rt.RateLimiter = rateLimiter
		}
	})
}

// WithRate is shorthand for WithRateLimiter(ratelimit.New(rate, ratelimit.Per(per))).
func WithRate(rate int, per time.Duration) RateLimiterOption {
	return WithRateLimiter(ratelimit.New(rate, ratelimit.Per(per)))
}

func NewRateLimiterTransport(opts ...RateLimiterOption) *RateLimiterTransport {
	rt := &RateLimiterTransport{
		Transport:   http.DefaultTransport,
		RateLimiter: ratelimit.New(100, ratelimit.Per(time.Second)),
	}
	for _, opt := range opts {
		opt.apply(rt)
	}
	return rt
}

func (rt *RateLimiterTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	rt.RateLimiter.Take()
	return rt.Transport.RoundTrip(req)
}
