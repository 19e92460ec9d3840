package stages

import (
	"context"
	"fmt"
	"log/slog"

	"culturepipe/lib/namematch"
	"culturepipe/lib/progress"
	"culturepipe/lib/scrapers/duckduckgo"

	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/stages")

type ResolveStats struct {
	Total   int
	Found   int
	Skipped int
}

// Resolve searches for every company's official website and writes the
// companies-with-sites CSV. Companies already resolved in the progress file
// are not searched again.
func Resolve(ctx context.Context, config Config, search *duckduckgo.Client) (ResolveStats, error) {
	ctx, span := tracer.Start(ctx, "Resolve")
	defer span.End()

	companies, err := progress.ReadCompanies(config.Data.InputCsv)
	if err != nil {
		return ResolveStats{}, fmt.Errorf("failed to read %s: %w", config.Data.InputCsv, err)
	}

	resolved := map[string]string{}
	if previous, err := progress.ReadCompanies(config.Data.ResolveProgressCsv); err == nil {
		for _, company := range previous {
			resolved[company.Name] = company.WebsiteUrl
		}
	}

	stats := ResolveStats{Total: len(companies)}
	var rows []progress.Company

	for i, company := range companies {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if website := resolved[company.Name]; website != "" {
			company.WebsiteUrl = website
			rows = append(rows, company)
			stats.Found++
			stats.Skipped++
			slog.Info("already resolved",
				"progress", fmt.Sprintf("%d/%d", i+1, len(companies)),
				"company", company.Name, "website", website)
			continue
		}

		slog.Info("resolving website",
			"progress", fmt.Sprintf("%d/%d", i+1, len(companies)),
			"company", company.Name)

		candidates, err := search.ResolveWebsite(ctx, company.Name)
		if err != nil {
			slog.Warn("website search failed", "company", company.Name, "err", err)
		}
		company.WebsiteUrl = namematch.BestURL(company.Name, candidates)
		rows = append(rows, company)
		if company.WebsiteUrl != "" {
			stats.Found++
		}

		if (i+1)%saveEvery == 0 {
			if err := progress.WriteCompanies(config.Data.ResolveProgressCsv, rows); err != nil {
				slog.Warn("failed to save progress", "err", err)
			}
		}
	}

	if err := progress.WriteCompanies(config.Data.CompaniesCsv, rows); err != nil {
		return stats, err
	}
	if err := progress.WriteCompanies(config.Data.ResolveProgressCsv, rows); err != nil {
		return stats, err
	}

	slog.Info("website resolution finished",
		"total", stats.Total, "found", stats.Found, "resumed", stats.Skipped)
	return stats, nil
}
