package stages

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/keypool"
	"culturepipe/lib/progress"
	"culturepipe/lib/scrapers/reviewpages"

	"github.com/stretchr/testify/require"
)

func TestApplyDefaults(t *testing.T) {
	var config Config
	config.ApplyDefaults()

	require.Equal(t, "data/tmp/companies_with_sites.csv", config.Data.CompaniesCsv)
	require.Equal(t, "data/raw_reviews/all_reviews.json", config.Data.ReviewLinksJson)
	require.Equal(t, "data/raw_reviews/failed_reviews.csv", config.Data.FailedReviewsCsv)
	require.Equal(t, "data/raw_reviews/api_key_state.json", config.Data.KeyStateJson)

	require.Equal(t, "us-en", config.Search.Region)
	require.Equal(t, 2, config.Search.MaxRetries)

	require.Equal(t, []string{"indeed"}, config.ScraperApi.Platforms)
	require.Equal(t, 5, config.ScraperApi.MaxRetries)
	require.Equal(t, 200, config.ScraperApi.MaxReviewsPerCompany)
	require.Equal(t, 5, config.ScraperApi.MaxPagesPerCompany)

	require.Equal(t, 50, config.Website.MaxPages)
	require.Equal(t, 30, config.Website.TimeoutSec)

	// operator-set values survive
	config.ScraperApi.Platforms = []string{"glassdoor", "indeed"}
	config.ApplyDefaults()
	require.Equal(t, []string{"glassdoor", "indeed"}, config.ScraperApi.Platforms)
}

const indeedPage = `<html><body>
<div data-testid="review-card">
  <h2 data-testid="review-title">Productive workplace</h2>
  <div data-testid="review-text">Management listens and the schedule is predictable week to week.</div>
</div>
<div data-testid="review-card">
  <h2 data-testid="review-title">Long hours</h2>
  <div data-testid="review-text">Constant overtime and the pay does not keep up with the workload.</div>
</div>
</body></html>`

type mapFetcher struct {
	outcomes map[string]fetch.Outcome
}

func (f *mapFetcher) Fetch(_ context.Context, req fetch.Request) fetch.Outcome {
	out, ok := f.outcomes[req.URL]
	if !ok {
		return fetch.Outcome{Class: fetch.NotFound}
	}
	return out
}

func testConfig(t *testing.T) Config {
	dir := t.TempDir()
	var config Config
	config.ApplyDefaults()
	config.Data.ReviewLinksJson = filepath.Join(dir, "all_reviews.json")
	config.Data.ReviewsJson = filepath.Join(dir, "scraped_reviews.json")
	config.Data.FailedReviewsCsv = filepath.Join(dir, "failed_reviews.csv")
	return config
}

func noWaitDeps(fetcher fetch.Fetcher, keys *keypool.Manager) ReviewScrapeDeps {
	return ReviewScrapeDeps{
		Fetcher: fetcher,
		Keys:    keys,
		Sleep:   func(time.Duration) {},
		Jitter:  func(min, max int) int { return min },
	}
}

func TestScrapeReviewsEndToEnd(t *testing.T) {
	config := testConfig(t)

	require.NoError(t, progress.WriteJSON(config.Data.ReviewLinksJson, []progress.ReviewLinks{
		{
			CompanyName: "Acme",
			Location:    "US",
			IndeedUrl:   "https://www.indeed.com/cmp/acme/reviews",
		},
		{
			CompanyName: "Globex",
			Location:    "US",
			IndeedUrl:   "https://www.indeed.com/cmp/globex/reviews",
		},
	}))

	fetcher := &mapFetcher{outcomes: map[string]fetch.Outcome{
		// page 2 is a 404, which ends pagination cleanly
		"https://www.indeed.com/cmp/acme/reviews": {Class: fetch.Success, Body: indeedPage},
	}}
	keys := keypool.New([]string{"key-a"}, "")

	stats, err := ScrapeReviews(context.Background(), config, noWaitDeps(fetcher, keys))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Scraped)
	require.Equal(t, 1, stats.Failed)
	require.Equal(t, 2, stats.Reviews)

	reviews, err := progress.ReadJSON[[]reviewpages.Review](config.Data.ReviewsJson)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.Equal(t, "Acme", reviews[0].CompanyName)
	require.Equal(t, "US", reviews[0].Location)
	require.Equal(t, "https://www.indeed.com/cmp/acme/reviews", reviews[0].Url)
	require.Equal(t, "indeed", reviews[0].Platform)

	failures, err := progress.ReadFailures(config.Data.FailedReviewsCsv)
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "Globex", failures[0].CompanyName)
	require.Equal(t, "indeed", failures[0].Platform)

	// a second run resumes: the scraped pair is skipped, not re-fetched
	stats, err = ScrapeReviews(context.Background(), config, noWaitDeps(fetcher, keys))
	require.NoError(t, err)
	require.Equal(t, 1, stats.Skipped)
	require.Equal(t, 0, stats.Scraped)
}

func TestScrapeReviewsHaltsOnExhaustedPool(t *testing.T) {
	config := testConfig(t)

	require.NoError(t, progress.WriteJSON(config.Data.ReviewLinksJson, []progress.ReviewLinks{
		{CompanyName: "Acme", IndeedUrl: "https://www.indeed.com/cmp/acme/reviews"},
		{CompanyName: "Globex", IndeedUrl: "https://www.indeed.com/cmp/globex/reviews"},
	}))

	fetcher := &mapFetcher{outcomes: map[string]fetch.Outcome{
		"https://www.indeed.com/cmp/acme/reviews":   {Class: fetch.CreditsExhausted},
		"https://www.indeed.com/cmp/globex/reviews": {Class: fetch.CreditsExhausted},
	}}
	keys := keypool.New([]string{"key-a", "key-b"}, "")

	_, err := ScrapeReviews(context.Background(), config, noWaitDeps(fetcher, keys))
	require.ErrorIs(t, err, keypool.ErrNoKeys)
}

func TestRetryFailedRecoversTarget(t *testing.T) {
	config := testConfig(t)

	require.NoError(t, progress.AppendFailure(config.Data.FailedReviewsCsv, progress.Failure{
		CompanyName: "Acme",
		Platform:    "indeed",
		Url:         "https://www.indeed.com/cmp/acme/reviews",
		Error:       "server_error",
	}))

	// the target works this time around
	fetcher := &mapFetcher{outcomes: map[string]fetch.Outcome{
		"https://www.indeed.com/cmp/acme/reviews": {Class: fetch.Success, Body: indeedPage},
	}}
	keys := keypool.New([]string{"key-a"}, "")

	stats, err := RetryFailed(context.Background(), config, noWaitDeps(fetcher, keys), nil, false)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Attempted)
	require.Equal(t, 1, stats.Recovered)
	require.Equal(t, 2, stats.Reviews)

	failures, err := progress.ReadFailures(config.Data.FailedReviewsCsv)
	require.NoError(t, err)
	require.Empty(t, failures)

	reviews, err := progress.ReadJSON[[]reviewpages.Review](config.Data.ReviewsJson)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	require.Equal(t, "Acme", reviews[0].CompanyName)
}

func TestSummaryRender(t *testing.T) {
	out := ReviewStats{Scraped: 3, Failed: 1, Skipped: 2, Reviews: 140}.Summary().Render()
	require.Contains(t, out, "Review scrape")
	require.Contains(t, out, "Successful scrapes")
	require.Contains(t, out, "140")
}
