// Package stages implements the pipeline's top-level runs: resolving
// company websites, finding review pages, scraping reviews through the
// proxy, crawling company sites, and retrying earlier failures. Each stage
// reads and writes the shared artifacts in lib/progress so an interrupted
// run resumes instead of starting over.
package stages

import (
	configlibsql "culturepipe/lib/configutil/libsql"
	"culturepipe/lib/notify"
)

// DataConfig names every artifact the stages share.
type DataConfig struct {
	// InputCsv is the operator-provided company list.
	InputCsv string `json:"input_csv"`
	// CompaniesCsv is the resolve stage's output, companies with websites.
	CompaniesCsv       string `json:"companies_csv"`
	ResolveProgressCsv string `json:"resolve_progress_csv"`
	// ReviewLinksJson holds the per-platform review page urls.
	ReviewLinksJson   string `json:"review_links_json"`
	LinksProgressJson string `json:"links_progress_json"`
	// ReviewsJson accumulates every scraped review.
	ReviewsJson      string `json:"reviews_json"`
	FailedReviewsCsv string `json:"failed_reviews_csv"`
	KeyStateJson     string `json:"key_state_json"`
	// WebsiteTextJson accumulates crawled company site pages.
	WebsiteTextJson    string `json:"website_text_json"`
	FailedCompaniesCsv string `json:"failed_companies_csv"`
	// DebugDir, when set, dumps raw proxied responses for selector work.
	DebugDir string `json:"debug_dir"`
}

type SearchConfig struct {
	Region     string `json:"region"`
	MaxRetries int    `json:"max_retries"`
}

type ScraperApiConfig struct {
	Keys     []string `json:"keys"`
	Endpoint string   `json:"endpoint"`
	// Platforms limits which review sites get scraped through the proxy.
	Platforms            []string `json:"platforms"`
	MaxRetries           int      `json:"max_retries"`
	MaxReviewsPerCompany int      `json:"max_reviews_per_company"`
	MaxPagesPerCompany   int      `json:"max_pages_per_company"`
}

type WebsiteConfig struct {
	MaxPages    int `json:"max_pages"`
	MaxRetries  int `json:"max_retries"`
	TimeoutSec  int `json:"timeout_sec"`
	BrowserTabs int `json:"browser_tabs"`
}

type Config struct {
	Data       DataConfig          `json:"data"`
	Search     SearchConfig        `json:"search"`
	ScraperApi ScraperApiConfig    `json:"scraperapi"`
	Website    WebsiteConfig       `json:"website"`
	Database   configlibsql.Struct `json:"database"`
	Notify     notify.Config       `json:"notify"`
}

// progress artifacts get flushed every this many companies
const saveEvery = 5

// inter-target pacing for the proxy scrape, in seconds
const (
	platformDelayMinSec = 15
	platformDelayMaxSec = 20
	pageDelayMinSec     = 10
	pageDelayMaxSec     = 15
)

// ApplyDefaults fills every unset field so a nearly empty config file still
// yields a runnable pipeline.
func (c *Config) ApplyDefaults() {
	def := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	def(&c.Data.InputCsv, "companies.csv")
	def(&c.Data.CompaniesCsv, "data/tmp/companies_with_sites.csv")
	def(&c.Data.ResolveProgressCsv, "data/tmp/companies_progress.csv")
	def(&c.Data.ReviewLinksJson, "data/raw_reviews/all_reviews.json")
	def(&c.Data.LinksProgressJson, "data/raw_reviews/reviews_progress.json")
	def(&c.Data.ReviewsJson, "data/raw_reviews/scraped_reviews.json")
	def(&c.Data.FailedReviewsCsv, "data/raw_reviews/failed_reviews.csv")
	def(&c.Data.KeyStateJson, "data/raw_reviews/api_key_state.json")
	def(&c.Data.WebsiteTextJson, "data/scraped_websites/website_text.json")
	def(&c.Data.FailedCompaniesCsv, "data/scraped_websites/failed_companies.csv")

	def(&c.Search.Region, "us-en")
	if c.Search.MaxRetries == 0 {
		c.Search.MaxRetries = 2
	}

	if len(c.ScraperApi.Platforms) == 0 {
		// glassdoor needs premium proxy features, so indeed only by default
		c.ScraperApi.Platforms = []string{"indeed"}
	}
	if c.ScraperApi.MaxRetries == 0 {
		c.ScraperApi.MaxRetries = 5
	}
	if c.ScraperApi.MaxReviewsPerCompany == 0 {
		c.ScraperApi.MaxReviewsPerCompany = 200
	}
	if c.ScraperApi.MaxPagesPerCompany == 0 {
		c.ScraperApi.MaxPagesPerCompany = 5
	}

	if c.Website.MaxPages == 0 {
		c.Website.MaxPages = 50
	}
	if c.Website.MaxRetries == 0 {
		c.Website.MaxRetries = 3
	}
	if c.Website.TimeoutSec == 0 {
		c.Website.TimeoutSec = 30
	}
	if c.Website.BrowserTabs == 0 {
		c.Website.BrowserTabs = 2
	}
}
