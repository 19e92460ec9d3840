// Package paginate walks the page URLs of one review target, feeding each
// fetched page to a parser until one of the stop conditions hits.
package paginate

import (
	"context"
	"log/slog"
	"time"

	"culturepipe/lib/fetch"

	"github.com/mazen160/go-random"
)

// FetchPage fetches one page URL to a final outcome, retries included.
type FetchPage func(ctx context.Context, url string, firstPage bool) fetch.Outcome

// ParsePage extracts records from a page body, returning how many it kept.
// remaining is the record budget left for this target.
type ParsePage func(body string, remaining int) (int, error)

type Options struct {
	// MaxRecords caps how many records one target may yield. Zero means
	// no cap.
	MaxRecords int
	// PageDelayMinSec and PageDelayMaxSec bound the jittered pause between
	// consecutive pages of the same target.
	PageDelayMinSec int
	PageDelayMaxSec int
	Sleep           func(time.Duration)
	Jitter          func(minSec, maxSec int) int
}

// Result summarizes one target's pagination run.
type Result struct {
	// Pages counts pages that were fetched and yielded records.
	Pages   int
	Records int
	// Stopped names the condition that ended the run.
	Stopped fetch.Class
	// Failed is set when the target produced nothing and the first page
	// did not succeed cleanly. Failed targets go to the failure log for a
	// later retry pass.
	Failed bool
	Reason string
}

// Run drives pagination over urls in order. It stops on the record cap, on
// the fetcher signalling EndOfPages, on an empty-but-successful page, or when
// the page list runs out. A terminal failure on the first page marks the
// whole target failed; the same failure on a later page just ends the run,
// keeping whatever earlier pages produced.
func Run(ctx context.Context, urls []string, fetchPage FetchPage, parse ParsePage, opts Options) Result {
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Jitter == nil {
		opts.Jitter = func(minSec, maxSec int) int {
			n, err := random.IntRange(minSec, maxSec+1)
			if err != nil {
				return minSec
			}
			return n
		}
	}

	res := Result{Stopped: fetch.Success}
	for i, url := range urls {
		if err := ctx.Err(); err != nil {
			res.Stopped = fetch.TransportError
			res.Reason = err.Error()
			if res.Records == 0 {
				res.Failed = true
			}
			return res
		}
		if opts.MaxRecords > 0 && res.Records >= opts.MaxRecords {
			return res
		}
		if i > 0 {
			opts.Sleep(time.Duration(opts.Jitter(opts.PageDelayMinSec, opts.PageDelayMaxSec)) * time.Second)
		}

		out := fetchPage(ctx, url, i == 0)
		switch out.Class {
		case fetch.Success:
			remaining := opts.MaxRecords - res.Records
			if opts.MaxRecords == 0 {
				remaining = -1
			}
			n, err := parse(out.Body, remaining)
			if err != nil {
				slog.Warn("failed to parse page", "url", url, "err", err)
				n = 0
			}
			if n == 0 {
				// an empty page on a live listing means we ran past
				// the real content
				if i == 0 {
					res.Failed = true
					res.Reason = "no records on first page"
				}
				return res
			}
			res.Pages++
			res.Records += n

		case fetch.EndOfPages:
			res.Stopped = fetch.EndOfPages
			return res

		default:
			res.Stopped = out.Class
			if i == 0 {
				res.Failed = true
				res.Reason = out.Class.String()
				if out.Err != nil {
					res.Reason = out.Err.Error()
				}
			} else {
				slog.Warn("pagination ended early",
					"url", url, "page", i+1, "class", out.Class.String())
			}
			return res
		}
	}
	return res
}
