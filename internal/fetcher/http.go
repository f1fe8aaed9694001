package fetcher

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/edtech-lab/patent-cli/internal/resilience"
)

// ErrNotFound marks a page that genuinely does not exist. Callers use it to
// fall back to an alternate URL variant instead of retrying.
var ErrNotFound = resilience.NewPermanentError(eris.New("fetcher: page not found"))

// HTTPOptions configures the HTTP client.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	// RatePerSec caps request starts per second across all callers sharing
	// this client. Zero disables the limiter.
	RatePerSec float64
	Burst      int
}

// HTTPClient fetches pages with a shared rate limiter, a circuit breaker,
// and a bounded per-request timeout. It performs a single attempt per call;
// retry policy belongs to the annotator driving it. Sustained transient
// failures open the breaker so a struggling upstream gets a cooldown
// instead of the full retry barrage.
type HTTPClient struct {
	client  *http.Client
	opts    HTTPOptions
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
}

// NewHTTPClient creates an HTTPClient with the given options.
func NewHTTPClient(opts HTTPOptions) *HTTPClient {
	if opts.Timeout == 0 {
		opts.Timeout = 15 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	}

	var limiter *rate.Limiter
	if opts.RatePerSec > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSec), burst)
	}

	return &HTTPClient{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: limiter,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("fetch circuit state changed",
					zap.Stringer("from", from),
					zap.Stringer("to", to))
			},
		}),
	}
}

// Get fetches rawURL and returns the body. Status codes map onto the error
// taxonomy: 404 yields ErrNotFound (permanent), retryable statuses yield a
// TransientError, anything else non-2xx is a plain error.
func (c *HTTPClient) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "fetcher: rate limiter wait")
		}
	}
	if err := c.breaker.Allow(); err != nil {
		return nil, err
	}
	body, err := c.fetch(ctx, rawURL)
	c.breaker.Record(err)
	return body, err
}

func (c *HTTPClient) fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: create request %s", rawURL)
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: get %s", rawURL)
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL),
			resp.StatusCode,
		)
	case resp.StatusCode != http.StatusOK:
		return nil, eris.Errorf("fetcher: http %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read body %s", rawURL)
	}
	return body, nil
}
