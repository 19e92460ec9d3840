package stages

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/namematch"
	"culturepipe/lib/progress"
	"culturepipe/lib/scrapers/duckduckgo"
	"culturepipe/lib/scrapers/reviewpages"

	"github.com/mazen160/go-random"
)

type RetryStats struct {
	Attempted int
	Recovered int
	Reviews   int
}

// RetryFailed re-runs every target in the failure log. When useAltNames is
// set and the recorded url still yields nothing, the company is searched
// again under progressively looser spellings of its name, since review
// sites often list companies without their legal suffix. Recovered targets
// leave the failure log; the rest stay for the next pass.
func RetryFailed(ctx context.Context, config Config, deps ReviewScrapeDeps, search *duckduckgo.Client, useAltNames bool) (RetryStats, error) {
	ctx, span := tracer.Start(ctx, "RetryFailed")
	defer span.End()

	if deps.Sleep == nil {
		deps.Sleep = time.Sleep
	}
	if deps.Jitter == nil {
		deps.Jitter = func(minSec, maxSec int) int {
			n, err := random.IntRange(minSec, maxSec+1)
			if err != nil {
				return minSec
			}
			return n
		}
	}

	failures, err := progress.ReadFailures(config.Data.FailedReviewsCsv)
	if err != nil {
		return RetryStats{}, err
	}
	if len(failures) == 0 {
		slog.Info("no failures to retry")
		return RetryStats{}, nil
	}

	allReviews, err := progress.ReadJSON[[]reviewpages.Review](config.Data.ReviewsJson)
	if err != nil {
		return RetryStats{}, err
	}

	ctrl := fetch.NewController(deps.Fetcher, fetch.Options{
		MaxRetries: config.ScraperApi.MaxRetries,
		Keys:       deps.Keys,
		RepairURL:  reviewpages.RepairUrl,
		Sleep:      deps.Sleep,
		Jitter:     deps.Jitter,
	})

	stats := RetryStats{Attempted: len(failures)}
	var remaining []progress.Failure

	for i, failure := range failures {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		slog.Info("retrying failed target",
			"progress", fmt.Sprintf("%d/%d", i+1, len(failures)),
			"company", failure.CompanyName, "platform", failure.Platform)

		collected, res := scrapeReviewTarget(ctx, ctrl, config, failure.Platform, failure.Url, deps)

		if len(collected) == 0 && useAltNames && search != nil {
			collected = retryUnderAlternativeNames(ctx, ctrl, config, search, failure, deps)
		}

		if len(collected) > 0 {
			for j := range collected {
				collected[j].CompanyName = failure.CompanyName
				collected[j].Url = failure.Url
			}
			allReviews = append(allReviews, collected...)
			stats.Recovered++
			stats.Reviews += len(collected)
			if err := progress.WriteJSON(config.Data.ReviewsJson, allReviews); err != nil {
				return stats, err
			}
			if deps.Store != nil {
				if err := deps.Store.Push(ctx, collected); err != nil {
					slog.Warn("failed to push reviews to store", "err", err)
				}
			}
		} else {
			if res.Reason != "" {
				failure.Error = res.Reason
			}
			remaining = append(remaining, failure)
		}

		deps.Sleep(time.Duration(deps.Jitter(platformDelayMinSec, platformDelayMaxSec)) * time.Second)
	}

	if err := rewriteFailures(config.Data.FailedReviewsCsv, remaining); err != nil {
		return stats, err
	}

	slog.Info("retry pass finished",
		"attempted", stats.Attempted, "recovered", stats.Recovered,
		"still_failed", len(remaining), "reviews", stats.Reviews)
	return stats, nil
}

func retryUnderAlternativeNames(ctx context.Context, ctrl *fetch.Controller, config Config, search *duckduckgo.Client, failure progress.Failure, deps ReviewScrapeDeps) []reviewpages.Review {
	for _, name := range namematch.AlternativeNames(failure.CompanyName) {
		url, err := search.FindReviewPage(ctx, name, "", duckduckgo.Platform(failure.Platform))
		if err != nil {
			slog.Warn("alternative name search failed",
				"company", failure.CompanyName, "alternative", name, "err", err)
			continue
		}
		if url == "" || url == failure.Url {
			continue
		}
		slog.Info("trying alternative name",
			"company", failure.CompanyName, "alternative", name, "url", url)

		collected, _ := scrapeReviewTarget(ctx, ctrl, config, failure.Platform, url, deps)
		if len(collected) > 0 {
			return collected
		}
	}
	return nil
}

func rewriteFailures(path string, failures []progress.Failure) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	for _, failure := range failures {
		if err := progress.AppendFailure(path, failure); err != nil {
			return err
		}
	}
	return nil
}
