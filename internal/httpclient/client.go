package httpclient

import (
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

type options struct {
	timeout   time.Duration
	limiter   *rate.Limiter
	token     string
	transport http.RoundTripper
}

// Option configures the client built by New.
type Option func(*options)

// WithRateLimit sets requests per second.
func WithRateLimit(rps float64) Option {
	return func(o *options) {
		o.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithToken authenticates every request with a static bearer token.
func WithToken(token string) Option {
	return func(o *options) { o.token = token }
}

// WithTimeout overrides the default 30s request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTransport sets the underlying transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *options) { o.transport = rt }
}

// New creates an *http.Client for catalog fetches: rate limited and, when a
// token is configured, authenticated through oauth2.
func New(opts ...Option) *http.Client {
	o := &options{
		timeout:   30 * time.Second,
		transport: http.DefaultTransport,
	}
	for _, opt := range opts {
		opt(o)
	}

	rt := o.transport
	if o.token != "" {
		rt = &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token}),
			Base:   rt,
		}
	}
	if o.limiter != nil {
		rt = &limitedTransport{limiter: o.limiter, base: rt}
	}

	return &http.Client{Timeout: o.timeout, Transport: rt}
}

type limitedTransport struct {
	limiter *rate.Limiter
	base    http.RoundTripper
}

func (t *limitedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}
	return t.base.RoundTrip(req)
}
