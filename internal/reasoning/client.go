package reasoning

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ShayCichocki/c4pm/internal/logging"
	"github.com/ShayCichocki/c4pm/internal/metrics"
)

// RetryPolicy bounds retries of transient-capacity failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of calls, including the first.
	MaxAttempts int
	// BackoffUnit is multiplied by the failed attempt's index to get the
	// delay before the next attempt.
	BackoffUnit time.Duration
	// RequestTimeout bounds a single call. Zero disables it.
	RequestTimeout time.Duration
}

// DefaultRetryPolicy returns 3 attempts with 10s linear backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:    3,
		BackoffUnit:    10 * time.Second,
		RequestTimeout: 5 * time.Minute,
	}
}

// Delay returns the wait after the given failed attempt (1-indexed).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	return time.Duration(attempt) * p.BackoffUnit
}

// Client is the stateless adapter every stage calls through. Apart from
// usage counters it keeps nothing between invocations.
type Client struct {
	backend Backend
	policy  RetryPolicy
	limiter *rate.Limiter
	sleeper Sleeper
	log     logrus.FieldLogger
	metrics *metrics.Recorder
	tracker *TokenTracker
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithRetryPolicy overrides the default retry policy.
func WithRetryPolicy(p RetryPolicy) ClientOption {
	return func(c *Client) {
		if p.MaxAttempts < 1 {
			p.MaxAttempts = 1
		}
		c.policy = p
	}
}

// WithRateLimit caps outbound calls per minute. Zero or negative disables
// the limiter.
func WithRateLimit(perMinute float64, burst int) ClientOption {
	return func(c *Client) {
		if perMinute <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perMinute/60), burst)
	}
}

// WithSleeper replaces the backoff timer.
func WithSleeper(s Sleeper) ClientOption {
	return func(c *Client) { c.sleeper = s }
}

// WithLogger sets the logger for retry notices.
func WithLogger(l logrus.FieldLogger) ClientOption {
	return func(c *Client) { c.log = logging.OrDiscard(l) }
}

// WithMetrics records calls and retries.
func WithMetrics(m *metrics.Recorder) ClientOption {
	return func(c *Client) { c.metrics = m }
}

// NewClient wraps backend with the retry policy.
func NewClient(backend Backend, opts ...ClientOption) *Client {
	c := &Client{
		backend: backend,
		policy:  DefaultRetryPolicy(),
		sleeper: TimerSleeper{},
		log:     logging.Discard(),
		tracker: NewTokenTracker(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Backend returns the wrapped backend.
func (c *Client) Backend() Backend {
	return c.backend
}

// Tracker returns the token tracker for this client.
func (c *Client) Tracker() *TokenTracker {
	return c.tracker
}

// Invoke sends req to the backend. Transient-capacity failures are retried up
// to the policy's attempt bound with a linearly growing delay; any other
// failure, or running out of attempts, returns a *CapabilityError.
func (c *Client) Invoke(ctx context.Context, req Request) (Response, error) {
	log := c.log.WithFields(logrus.Fields{
		"stage":   req.Stage,
		"backend": c.backend.Name(),
	})

	for attempt := 1; ; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return Response{}, c.fail(req, attempt, false, fmt.Errorf("rate limiter: %w", err))
			}
		}

		start := time.Now()
		resp, err := c.call(ctx, req)
		elapsed := time.Since(start)

		if err == nil {
			c.metrics.Call(req.Stage, metrics.OutcomeOK, elapsed)
			c.metrics.Tokens(req.Stage, resp.InputTokens, resp.OutputTokens)
			c.tracker.Add(resp.InputTokens, resp.OutputTokens)
			resp.Attempts = attempt
			log.WithFields(logrus.Fields{
				"attempt":       attempt,
				"input_tokens":  resp.InputTokens,
				"output_tokens": resp.OutputTokens,
				"elapsed":       elapsed.Round(time.Millisecond),
			}).Debug("capability call succeeded")
			return resp, nil
		}

		if !IsTransient(err) || ctx.Err() != nil {
			c.metrics.Call(req.Stage, metrics.OutcomeFatal, elapsed)
			return Response{}, c.fail(req, attempt, false, err)
		}

		c.metrics.Call(req.Stage, metrics.OutcomeTransient, elapsed)
		if attempt >= c.policy.MaxAttempts {
			return Response{}, c.fail(req, attempt, true, err)
		}

		delay := c.policy.Delay(attempt)
		log.WithFields(logrus.Fields{
			"attempt": attempt,
			"delay":   delay,
		}).Warnf("capability rate limited, retrying: %v", err)
		c.metrics.Retry(req.Stage)

		if err := c.sleeper.Sleep(ctx, delay); err != nil {
			return Response{}, c.fail(req, attempt, false, fmt.Errorf("backoff interrupted: %w", err))
		}
	}
}

// call performs one backend call under the per-request timeout.
func (c *Client) call(ctx context.Context, req Request) (Response, error) {
	if c.policy.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.policy.RequestTimeout)
		defer cancel()
	}
	resp, err := c.backend.Complete(ctx, req)
	if err != nil && errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
		return Response{}, fmt.Errorf("request timed out after %s: %w", c.policy.RequestTimeout, err)
	}
	return resp, err
}

func (c *Client) fail(req Request, attempts int, exhausted bool, err error) error {
	return &CapabilityError{
		Stage:     req.Stage,
		Backend:   c.backend.Name(),
		Attempts:  attempts,
		Exhausted: exhausted,
		Err:       err,
	}
}

// TokenTracker tracks token usage across API calls.
type TokenTracker struct {
	mu        sync.Mutex
	inputTok  int64
	outputTok int64
	calls     int
}

// NewTokenTracker creates a new token tracker.
func NewTokenTracker() *TokenTracker {
	return &TokenTracker{}
}

// Add records token usage from an API call.
func (t *TokenTracker) Add(input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.inputTok += input
	t.outputTok += output
	t.calls++
}

// Total returns the total input and output tokens tracked.
func (t *TokenTracker) Total() (input, output int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.inputTok, t.outputTok
}

// Calls returns the number of successful calls tracked.
func (t *TokenTracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}
