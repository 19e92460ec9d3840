package stages

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/keypool"
	"culturepipe/lib/notify"
	"culturepipe/lib/paginate"
	"culturepipe/lib/progress"
	"culturepipe/lib/reviewstore"
	"culturepipe/lib/scrapers/reviewpages"

	"github.com/mazen160/go-random"
)

type ReviewScrapeDeps struct {
	// Fetcher is the proxied page fetcher, normally a scraperapi.Client.
	Fetcher fetch.Fetcher
	Keys    *keypool.Manager
	// Store, when set, also persists reviews to the database.
	Store    *reviewstore.Store
	Notifier notify.Notifier
	Sleep    func(time.Duration)
	Jitter   func(minSec, maxSec int) int
}

type ReviewStats struct {
	Scraped int
	Failed  int
	Skipped int
	Reviews int
}

// ScrapeReviews walks every company/platform review url through the proxy,
// paginating until the review cap or the end of the listing. Progress is
// saved after every platform, so an interrupted run resumes on restart.
// The run halts early only when every api key is exhausted.
func ScrapeReviews(ctx context.Context, config Config, deps ReviewScrapeDeps) (ReviewStats, error) {
	ctx, span := tracer.Start(ctx, "ScrapeReviews")
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

	targets, err := progress.ReadJSON[[]progress.ReviewLinks](config.Data.ReviewLinksJson)
	if err != nil {
		return ReviewStats{}, err
	}
	if len(targets) == 0 {
		return ReviewStats{}, fmt.Errorf("no review links in %s, run the links stage first", config.Data.ReviewLinksJson)
	}

	allReviews, err := progress.ReadJSON[[]reviewpages.Review](config.Data.ReviewsJson)
	if err != nil {
		return ReviewStats{}, err
	}
	scraped := map[string]bool{}
	for _, review := range allReviews {
		scraped[progress.Key(review.CompanyName, review.Platform)] = true
	}
	if len(scraped) > 0 {
		slog.Info("resuming review scrape", "already_scraped", len(scraped))
	}

	ctrl := fetch.NewController(deps.Fetcher, fetch.Options{
		MaxRetries: config.ScraperApi.MaxRetries,
		Keys:       deps.Keys,
		RepairURL:  reviewpages.RepairUrl,
		Sleep:      deps.Sleep,
		Jitter:     deps.Jitter,
	})

	var stats ReviewStats
	for i, target := range targets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		for _, platform := range config.ScraperApi.Platforms {
			baseUrl := target.Url(platform)
			if baseUrl == "" {
				continue
			}
			key := progress.Key(target.CompanyName, platform)
			if scraped[key] {
				stats.Skipped++
				continue
			}

			slog.Info("scraping reviews",
				"progress", fmt.Sprintf("%d/%d", i+1, len(targets)),
				"company", target.CompanyName, "platform", platform)

			collected, res := scrapeReviewTarget(ctx, ctrl, config, platform, baseUrl, deps)

			if res.Failed {
				stats.Failed++
				err := progress.AppendFailure(config.Data.FailedReviewsCsv, progress.Failure{
					CompanyName: target.CompanyName,
					Platform:    platform,
					Url:         baseUrl,
					Error:       res.Reason,
				})
				if err != nil {
					slog.Warn("failed to record failure", "err", err)
				}
			}

			if len(collected) > 0 {
				for j := range collected {
					collected[j].CompanyName = target.CompanyName
					collected[j].Location = target.Location
					collected[j].Url = baseUrl
				}
				allReviews = append(allReviews, collected...)
				scraped[key] = true
				stats.Scraped++
				stats.Reviews += len(collected)

				if err := progress.WriteJSON(config.Data.ReviewsJson, allReviews); err != nil {
					return stats, err
				}
				if deps.Store != nil {
					if err := deps.Store.Push(ctx, collected); err != nil {
						slog.Warn("failed to push reviews to store", "err", err)
					}
				}
				slog.Info("platform scraped",
					"company", target.CompanyName, "platform", platform,
					"reviews", len(collected), "pages", res.Pages)
			}

			if res.Stopped == fetch.CreditsExhausted && deps.Keys != nil {
				if _, err := deps.Keys.Current(); err != nil {
					notifyErr := deps.Notifier.KeyPoolExhausted(ctx, deps.Keys.Status(), target.CompanyName)
					if notifyErr != nil {
						slog.Warn("failed to send exhaustion notification", "err", notifyErr)
					}
					return stats, fmt.Errorf("halting review scrape: %w", err)
				}
			}

			deps.Sleep(time.Duration(deps.Jitter(platformDelayMinSec, platformDelayMaxSec)) * time.Second)
		}
	}

	slog.Info("review scrape finished",
		"scraped", stats.Scraped, "failed", stats.Failed,
		"skipped", stats.Skipped, "reviews", stats.Reviews)
	return stats, nil
}

// scrapeReviewTarget paginates one company/platform url, collecting parsed
// reviews up to the per-company cap.
func scrapeReviewTarget(ctx context.Context, ctrl *fetch.Controller, config Config, platform, baseUrl string, deps ReviewScrapeDeps) ([]reviewpages.Review, paginate.Result) {
	pageUrls := reviewpages.PageUrls(platform, baseUrl, config.ScraperApi.MaxPagesPerCompany)

	var collected []reviewpages.Review
	res := paginate.Run(ctx, pageUrls, ctrl.Do,
		func(body string, remaining int) (int, error) {
			reviews := reviewpages.Parse(platform, body, remaining)
			collected = append(collected, reviews...)
			return len(reviews), nil
		},
		paginate.Options{
			MaxRecords:      config.ScraperApi.MaxReviewsPerCompany,
			PageDelayMinSec: pageDelayMinSec,
			PageDelayMaxSec: pageDelayMaxSec,
			Sleep:           deps.Sleep,
			Jitter:          deps.Jitter,
		})
	return collected, res
}
