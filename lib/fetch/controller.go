package fetch

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"culturepipe/lib/keypool"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("lib/fetch")

const (
	successCooldown    = 2 * time.Second
	rotationPause      = 5 * time.Second
	creditsRotatePause = 3 * time.Second

	maxBackoffMultiplier = 3.0
	backoffStep          = 0.3
	backoffRecoveryStep  = 0.1
)

type Options struct {
	// MaxRetries is the retry budget per target. A target gets at most
	// MaxRetries+1 attempts.
	MaxRetries int
	// Keys enables credential rotation on credits exhaustion and on
	// repeated server errors. Optional.
	Keys *keypool.Manager
	// RepairURL, when set, is consulted once per target after a first-page
	// NotFound. It returns a corrected URL and whether a correction was
	// made. The repaired attempt does not consume retry budget.
	RepairURL func(url string) (string, bool)
	// Sleep and Jitter exist so tests can run without wall-clock waits.
	Sleep  func(time.Duration)
	Jitter func(minSec, maxSec int) int
}

// Controller drives bounded retries for one fetcher, adapting its pacing to
// the outcomes it observes. Rate limits raise a multiplier that stretches
// every subsequent Throttle delay, and successes walk it back down one small
// step at a time. State lives on the struct so independent pipelines do not
// share pacing history.
//
// Controllers are not safe for concurrent use.
type Controller struct {
	fetcher    Fetcher
	maxRetries int
	keys       *keypool.Manager
	repairURL  func(string) (string, bool)
	sleep      func(time.Duration)
	jitter     func(int, int) int

	rateLimitHits int
	multiplier    float64
}

func NewController(fetcher Fetcher, opts Options) *Controller {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Jitter == nil {
		opts.Jitter = defaultJitter
	}
	return &Controller{
		fetcher:    fetcher,
		maxRetries: opts.MaxRetries,
		keys:       opts.Keys,
		repairURL:  opts.RepairURL,
		sleep:      opts.Sleep,
		jitter:     opts.Jitter,
		multiplier: 1.0,
	}
}

// Multiplier reports the current backoff multiplier, 1.0 when fully relaxed.
func (c *Controller) Multiplier() float64 {
	return c.multiplier
}

// RateLimitHits reports the running rate-limit counter.
func (c *Controller) RateLimitHits() int {
	return c.rateLimitHits
}

// Throttle blocks for a jittered base delay between minSec and maxSec
// seconds, stretched by the current backoff multiplier. Called before
// requests to sources that punish steady request rates.
func (c *Controller) Throttle(minSec, maxSec int) {
	base := c.jitter(minSec, maxSec)
	c.sleep(time.Duration(float64(base) * c.multiplier * float64(time.Second)))
}

// Do fetches url, retrying within the controller's budget according to the
// classification of each attempt. firstPage distinguishes a missing target
// (terminal NotFound) from running off the end of a paginated listing
// (EndOfPages). The returned outcome is the final state of the target.
func (c *Controller) Do(ctx context.Context, url string, firstPage bool) Outcome {
	ctx, span := tracer.Start(ctx, "Do", trace.WithAttributes(
		attribute.String("url", url),
	))
	defer span.End()

	attempt := 0
	strategy := StrategyDefault
	repaired := false
	rotatedOnServerError := false

	for {
		if err := ctx.Err(); err != nil {
			return Outcome{Class: TransportError, Err: err}
		}

		out := c.fetcher.Fetch(ctx, Request{URL: url, Attempt: attempt, Strategy: strategy})
		span.AddEvent("attempt", trace.WithAttributes(
			attribute.Int("attempt", attempt),
			attribute.String("class", out.Class.String()),
		))

		switch out.Class {
		case Success:
			c.relax()
			c.sleep(successCooldown)
			return out

		case RateLimited:
			c.rateLimitHits++
			c.multiplier = minFloat(maxBackoffMultiplier, 1.0+backoffStep*float64(c.rateLimitHits))
			if attempt >= c.maxRetries {
				return out
			}
			wait := time.Duration(15+10*attempt) * time.Second
			slog.Warn("rate limited, backing off",
				"url", url, "attempt", attempt, "wait", wait, "multiplier", c.multiplier)
			c.sleep(wait)
			attempt++

		case ServerError, TransportError:
			if attempt >= c.maxRetries {
				return out
			}
			next := attempt + 1
			if out.Class == TransportError && poolExhausted(out.Err) {
				c.sleep(time.Duration(next*10) * time.Second)
			} else {
				wait := 10*next + 5*(next-1)
				if wait > 60 {
					wait = 60
				}
				c.sleep(time.Duration(wait) * time.Second)
			}
			if next >= 3 {
				strategy = StrategyAltRegion
			} else if next >= 2 {
				strategy = StrategyNoRender
			}
			if next >= 2 && !rotatedOnServerError && c.keys != nil && c.keys.Size() > 1 {
				if c.keys.Rotate("server_error") {
					rotatedOnServerError = true
					c.sleep(rotationPause)
				}
			}
			attempt = next

		case CreditsExhausted:
			if c.keys == nil || attempt >= c.maxRetries {
				return out
			}
			if !c.keys.Rotate("credits_exhausted") {
				return out
			}
			c.sleep(creditsRotatePause)
			attempt++

		case NotFound:
			if !firstPage {
				return Outcome{Class: EndOfPages}
			}
			if !repaired && c.repairURL != nil {
				if fixed, ok := c.repairURL(url); ok {
					slog.Info("repairing url after 404", "from", url, "to", fixed)
					url = fixed
					repaired = true
					continue
				}
			}
			return out

		default:
			// MalformedRequest and EndOfPages are never retried.
			return out
		}
	}
}

// relax walks the adaptive state one step toward its resting values. Recovery
// is deliberately slower than escalation.
func (c *Controller) relax() {
	if c.rateLimitHits > 0 {
		c.rateLimitHits--
	}
	c.multiplier = maxFloat(1.0, c.multiplier-backoffRecoveryStep)
}

func poolExhausted(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection pool") || strings.Contains(msg, "max retries exceeded")
}

func defaultJitter(minSec, maxSec int) int {
	n, err := random.IntRange(minSec, maxSec+1)
	if err != nil {
		return minSec
	}
	return n
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
