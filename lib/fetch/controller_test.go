package fetch

import (
	"context"
	"testing"
	"time"

	"culturepipe/lib/keypool"

	"github.com/stretchr/testify/require"
)

type script struct {
	outcomes []Outcome
	requests []Request
}

func (s *script) Fetch(ctx context.Context, req Request) Outcome {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.outcomes) {
		return Outcome{Class: Success, Body: "extra"}
	}
	return s.outcomes[len(s.requests)-1]
}

func repeat(class Class, n int) []Outcome {
	out := make([]Outcome, n)
	for i := range out {
		out[i] = Outcome{Class: class}
	}
	return out
}

func newTestController(f Fetcher, opts Options, sleeps *[]time.Duration) *Controller {
	opts.Sleep = func(d time.Duration) { *sleeps = append(*sleeps, d) }
	if opts.Jitter == nil {
		opts.Jitter = func(minSec, maxSec int) int { return minSec }
	}
	return NewController(f, opts)
}

func TestSustainedRateLimiting(t *testing.T) {
	f := &script{outcomes: repeat(RateLimited, 10)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 2}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)

	require.Equal(t, RateLimited, out.Class)
	require.Len(t, f.requests, 3)
	require.Equal(t, []time.Duration{15 * time.Second, 25 * time.Second}, sleeps)
	for i := 1; i < len(sleeps); i++ {
		require.GreaterOrEqual(t, sleeps[i], sleeps[i-1])
	}
	require.Equal(t, 3, c.RateLimitHits())
	require.InDelta(t, 1.9, c.Multiplier(), 1e-9)
}

func TestRateLimitMultiplierCapsAtThree(t *testing.T) {
	f := &script{outcomes: repeat(RateLimited, 30)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	for i := 0; i < 5; i++ {
		c.Do(context.Background(), "https://example.com", true)
	}
	require.InDelta(t, 3.0, c.Multiplier(), 1e-9)
}

func TestMalformedRequestNeverRetried(t *testing.T) {
	f := &script{outcomes: repeat(MalformedRequest, 5)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)

	require.Equal(t, MalformedRequest, out.Class)
	require.Len(t, f.requests, 1)
	require.Empty(t, sleeps)
}

func TestServerErrorScheduleAndStrategies(t *testing.T) {
	f := &script{outcomes: repeat(ServerError, 10)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)

	require.Equal(t, ServerError, out.Class)
	require.Len(t, f.requests, 6)
	require.Equal(t, []time.Duration{
		10 * time.Second, 25 * time.Second, 40 * time.Second,
		55 * time.Second, 60 * time.Second,
	}, sleeps)

	require.Equal(t, StrategyDefault, f.requests[0].Strategy)
	require.Equal(t, StrategyDefault, f.requests[1].Strategy)
	require.Equal(t, StrategyNoRender, f.requests[2].Strategy)
	require.Equal(t, StrategyAltRegion, f.requests[3].Strategy)
	require.Equal(t, StrategyAltRegion, f.requests[5].Strategy)
}

func TestServerErrorRotatesOnceWithMultipleKeys(t *testing.T) {
	keys := keypool.New([]string{"a", "b", "c"}, "")
	f := &script{outcomes: repeat(ServerError, 10)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5, Keys: keys}, &sleeps)

	c.Do(context.Background(), "https://example.com", true)

	// one rotation total, not one per retry
	require.Equal(t, 2, keys.Status().Active)
	key, err := keys.Current()
	require.NoError(t, err)
	require.Equal(t, "b", key)
	require.Contains(t, sleeps, 5*time.Second)
}

func TestSlowRecovery(t *testing.T) {
	outcomes := append(repeat(RateLimited, 3), repeat(Success, 40)...)
	f := &script{outcomes: outcomes}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)
	require.Equal(t, Success, out.Class)
	require.Equal(t, 2, c.RateLimitHits())
	require.InDelta(t, 1.8, c.Multiplier(), 1e-9)

	for i := 0; i < 30; i++ {
		c.Do(context.Background(), "https://example.com", true)
	}
	require.Equal(t, 0, c.RateLimitHits())
	require.InDelta(t, 1.0, c.Multiplier(), 1e-9)
}

func TestCreditsExhaustedRotatesAndRetries(t *testing.T) {
	keys := keypool.New([]string{"a", "b"}, "")
	f := &script{outcomes: []Outcome{
		{Class: CreditsExhausted},
		{Class: Success, Body: "page"},
	}}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5, Keys: keys}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)

	require.Equal(t, Success, out.Class)
	require.Equal(t, "page", out.Body)
	require.Len(t, f.requests, 2)
	key, err := keys.Current()
	require.NoError(t, err)
	require.Equal(t, "b", key)
	require.Equal(t, []time.Duration{3 * time.Second, successCooldown}, sleeps)
}

func TestCreditsExhaustedTerminalOnSingleKey(t *testing.T) {
	keys := keypool.New([]string{"only"}, "")
	f := &script{outcomes: repeat(CreditsExhausted, 5)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5, Keys: keys}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)

	require.Equal(t, CreditsExhausted, out.Class)
	require.Len(t, f.requests, 1)
}

func TestFirstPageNotFoundRepairsOnce(t *testing.T) {
	f := &script{outcomes: []Outcome{
		{Class: NotFound},
		{Class: Success, Body: "repaired"},
	}}
	var sleeps []time.Duration
	c := newTestController(f, Options{
		MaxRetries: 0,
		RepairURL: func(url string) (string, bool) {
			return url + "/reviews", true
		},
	}, &sleeps)

	out := c.Do(context.Background(), "https://example.com/cmp/acme", true)

	require.Equal(t, Success, out.Class)
	require.Len(t, f.requests, 2)
	require.Equal(t, "https://example.com/cmp/acme/reviews", f.requests[1].URL)
	// the repaired attempt did not consume retry budget
	require.Equal(t, 0, f.requests[1].Attempt)
}

func TestFirstPageNotFoundTerminalWithoutRepair(t *testing.T) {
	f := &script{outcomes: repeat(NotFound, 5)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)
	require.Equal(t, NotFound, out.Class)
	require.Len(t, f.requests, 1)
}

func TestLaterPageNotFoundIsEndOfPages(t *testing.T) {
	f := &script{outcomes: repeat(NotFound, 5)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com?page=3", false)
	require.Equal(t, EndOfPages, out.Class)
	require.Len(t, f.requests, 1)
}

func TestTransportPoolExhaustionSchedule(t *testing.T) {
	outcomes := []Outcome{
		{Class: TransportError, Err: errPoolExhausted{}},
		{Class: TransportError, Err: errPoolExhausted{}},
		{Class: Success, Body: "ok"},
	}
	f := &script{outcomes: outcomes}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(context.Background(), "https://example.com", true)
	require.Equal(t, Success, out.Class)
	require.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second, successCooldown}, sleeps)
}

type errPoolExhausted struct{}

func (errPoolExhausted) Error() string { return "connection pool is full, discarding connection" }

func TestThrottleScalesWithMultiplier(t *testing.T) {
	f := &script{outcomes: repeat(RateLimited, 20)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 0}, &sleeps)

	c.Throttle(4, 8)
	require.Equal(t, 4*time.Second, sleeps[len(sleeps)-1])

	c.Do(context.Background(), "https://example.com", true)
	c.Do(context.Background(), "https://example.com", true)
	require.InDelta(t, 1.6, c.Multiplier(), 1e-9)

	c.Throttle(4, 8)
	require.Equal(t, time.Duration(4*1.6*float64(time.Second)), sleeps[len(sleeps)-1])
}

func TestContextCancellationStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := &script{outcomes: repeat(ServerError, 5)}
	var sleeps []time.Duration
	c := newTestController(f, Options{MaxRetries: 5}, &sleeps)

	out := c.Do(ctx, "https://example.com", true)
	require.Equal(t, TransportError, out.Class)
	require.ErrorIs(t, out.Err, context.Canceled)
	require.Empty(t, f.requests)
}
