package stages

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"culturepipe/lib/progress"
	"culturepipe/lib/scrapers/duckduckgo"
)

type LinkStats struct {
	Total   int
	Found   int
	Skipped int
}

// FindLinks searches every platform's review page for each company and
// writes the review link JSON the scrape stage consumes. platforms is the
// subset of review sites to search; empty means all of them.
func FindLinks(ctx context.Context, config Config, search *duckduckgo.Client, platforms []string) (LinkStats, error) {
	ctx, span := tracer.Start(ctx, "FindLinks")
	defer span.End()

	if len(platforms) == 0 {
		for _, platform := range duckduckgo.AllPlatforms {
			platforms = append(platforms, string(platform))
		}
	}
	for _, platform := range platforms {
		if !duckduckgo.Platform(platform).Valid() {
			return LinkStats{}, fmt.Errorf("unknown platform: %q", platform)
		}
	}

	companies, err := progress.ReadCompanies(config.Data.CompaniesCsv)
	if err != nil {
		return LinkStats{}, fmt.Errorf("failed to read %s: %w", config.Data.CompaniesCsv, err)
	}

	previous, err := progress.ReadJSON[[]progress.ReviewLinks](config.Data.LinksProgressJson)
	if err != nil {
		return LinkStats{}, err
	}
	done := map[string]progress.ReviewLinks{}
	for _, links := range previous {
		done[links.CompanyName] = links
	}

	stats := LinkStats{Total: len(companies)}
	var results []progress.ReviewLinks

	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if links, ok := done[company.Name]; ok {
			results = append(results, links)
			if links.HasAny(platforms) {
				stats.Found++
			}
			stats.Skipped++
			continue
		}

		slog.Info("searching review pages",
			"progress", fmt.Sprintf("%d/%d", i+1, len(companies)),
			"company", company.Name,
			"platforms", strings.Join(platforms, ","))

		links := progress.ReviewLinks{
			CompanyName: company.Name,
			Location:    company.Location,
			SearchIndex: strings.TrimSpace(company.Name + " " + company.Location),
			Method:      "duckduckgo",
		}
		for _, platform := range platforms {
			url, err := search.FindReviewPage(ctx, company.Name, company.Location, duckduckgo.Platform(platform))
			if err != nil {
				slog.Warn("review page search failed",
					"company", company.Name, "platform", platform, "err", err)
				continue
			}
			if url != "" {
				links.SetUrl(platform, url)
				slog.Info("found review page",
					"company", company.Name, "platform", platform, "url", url)
			}
		}
		results = append(results, links)
		if links.HasAny(platforms) {
			stats.Found++
		}

		if (i+1)%saveEvery == 0 {
			if err := progress.WriteJSON(config.Data.LinksProgressJson, results); err != nil {
				slog.Warn("failed to save progress", "err", err)
			}
		}
	}

	if err := progress.WriteJSON(config.Data.LinksProgressJson, results); err != nil {
		return stats, err
	}
	if err := progress.WriteJSON(config.Data.ReviewLinksJson, results); err != nil {
		return stats, err
	}

	slog.Info("review link search finished",
		"total", stats.Total, "found", stats.Found, "resumed", stats.Skipped)
	return stats, nil
}
