package stages

import (
	"context"
	"fmt"
	"log/slog"

	"culturepipe/lib/progress"
	"culturepipe/lib/scrapers/website"
)

type WebsiteStats struct {
	Scraped int
	Failed  int
	Skipped int
	Pages   int
}

// ScrapeWebsites crawls every resolved company site and accumulates the
// extracted page text. Companies with pages already in the output are
// skipped; companies that yield nothing go to the failed-companies CSV,
// which can be fed back in as input for a retry run.
func ScrapeWebsites(ctx context.Context, config Config, crawler *website.Crawler) (WebsiteStats, error) {
	ctx, span := tracer.Start(ctx, "ScrapeWebsites")
	defer span.End()

	companies, err := progress.ReadCompanies(config.Data.CompaniesCsv)
	if err != nil {
		return WebsiteStats{}, fmt.Errorf("failed to read %s: %w", config.Data.CompaniesCsv, err)
	}

	allPages, err := progress.ReadJSON[[]website.Page](config.Data.WebsiteTextJson)
	if err != nil {
		return WebsiteStats{}, err
	}
	done := map[string]bool{}
	for _, page := range allPages {
		done[page.CompanyName] = true
	}
	if len(done) > 0 {
		slog.Info("resuming website scrape", "already_scraped", len(done))
	}

	var stats WebsiteStats
	var failed []progress.Company

	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if company.WebsiteUrl == "" {
			stats.Skipped++
			continue
		}
		if done[company.Name] {
			stats.Skipped++
			continue
		}

		slog.Info("crawling company site",
			"progress", fmt.Sprintf("%d/%d", i+1, len(companies)),
			"company", company.Name, "url", company.WebsiteUrl)

		companyId := fmt.Sprintf("%d", i+1)
		pages, pageErrors := crawler.Crawl(ctx, companyId, company.Name, company.WebsiteUrl)

		if len(pages) > 0 {
			allPages = append(allPages, pages...)
			stats.Scraped++
			stats.Pages += len(pages)
			if err := progress.WriteJSON(config.Data.WebsiteTextJson, allPages); err != nil {
				return stats, err
			}
		} else {
			stats.Failed++
			failed = append(failed, company)
			if err := progress.WriteCompanies(config.Data.FailedCompaniesCsv, failed); err != nil {
				slog.Warn("failed to save failed-companies csv", "err", err)
			}
			if len(pageErrors) > 0 {
				slog.Warn("no pages scraped",
					"company", company.Name, "first_error", pageErrors[0].Error)
			}
		}
	}

	slog.Info("website scrape finished",
		"scraped", stats.Scraped, "failed", stats.Failed,
		"skipped", stats.Skipped, "pages", stats.Pages)
	return stats, nil
}
