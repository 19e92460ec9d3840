package duckduckgo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

type Platform string

const (
	Glassdoor   Platform = "glassdoor"
	Indeed      Platform = "indeed"
	Comparably  Platform = "comparably"
	Kununu      Platform = "kununu"
	AmbitionBox Platform = "ambitionbox"
)

var AllPlatforms = []Platform{Glassdoor, Indeed, Comparably, Kununu, AmbitionBox}

func (p Platform) Valid() bool {
	_, ok := platformRules[p]
	return ok
}

type platformRule struct {
	queryFormat string
	domains     []string
	paths       []string
}

var platformRules = map[Platform]platformRule{
	Glassdoor: {
		queryFormat: "%s glassdoor employee reviews",
		domains:     []string{"glassdoor.com", "glassdoor.co.uk", "glassdoor.ca"},
		paths:       []string{"/reviews/", "-reviews-"},
	},
	Indeed: {
		queryFormat: "%s indeed employee reviews",
		domains:     []string{"indeed.com", "indeed.co.uk", "indeed.ca"},
		paths:       []string{"/cmp/", "/companies/", "/reviews"},
	},
	Comparably: {
		queryFormat: "%s comparably employee reviews",
		domains:     []string{"comparably.com"},
		paths:       []string{"/companies/", "/reviews"},
	},
	Kununu: {
		queryFormat: "%s kununu employee reviews",
		domains:     []string{"kununu.com", "kununu.de", "kununu.at"},
		paths:       []string{"/bewertung/", "/reviews/", "/en/"},
	},
	AmbitionBox: {
		queryFormat: "%s ambitionbox employee reviews",
		domains:     []string{"ambitionbox.com"},
		paths:       []string{"/reviews/", "/company/"},
	},
}

// review result limit mirrors how deep a human would scan a result page
const maxResultsScanned = 10

// MatchesPlatform reports whether a result url looks like the platform's
// review listing rather than a lookalike page on the same domain.
func MatchesPlatform(platform Platform, rawUrl string) bool {
	rule, ok := platformRules[platform]
	if !ok {
		return false
	}
	lower := strings.ToLower(rawUrl)

	domainMatch := false
	for _, domain := range rule.domains {
		if strings.Contains(lower, domain) {
			domainMatch = true
			break
		}
	}
	pathMatch := false
	for _, path := range rule.paths {
		if strings.Contains(lower, path) {
			pathMatch = true
			break
		}
	}
	if !domainMatch || !pathMatch {
		return false
	}

	switch platform {
	case AmbitionBox:
		// third-party pages reviewing ambitionbox itself
		if strings.Contains(lower, "ambition-box-reviews") || strings.Contains(lower, "ambitionbox-reviews") {
			return false
		}
	case Comparably:
		if !strings.Contains(lower, "/companies/") {
			return false
		}
	}
	return true
}

// FindReviewPage searches for a company's review listing on one platform.
// Returns "" when no result matched, which is common for small companies and
// is not an error.
func (c *Client) FindReviewPage(ctx context.Context, companyName, location string, platform Platform) (string, error) {
	rule, ok := platformRules[platform]
	if !ok {
		return "", fmt.Errorf("unknown platform: %q", platform)
	}

	searchIndex := strings.TrimSpace(companyName + " " + location)
	results, err := c.Search(ctx, fmt.Sprintf(rule.queryFormat, searchIndex))
	if err != nil {
		return "", err
	}

	for i, result := range results {
		if i >= maxResultsScanned {
			break
		}
		if MatchesPlatform(platform, result.Url) {
			return result.Url, nil
		}
	}
	return "", nil
}

// aggregator and infrastructure domains that outrank small companies' own
// sites in search results
var homepageBlacklist = []string{
	"glassdoor", "indeed", "linkedin", "ziprecruiter",
	"amazonaws", "facebook", "yelp", "map", "google",
}

func IsValidHomepage(rawUrl string) bool {
	if rawUrl == "" {
		return false
	}
	u, err := url.Parse(rawUrl)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return false
	}
	for _, bad := range homepageBlacklist {
		if strings.Contains(host, bad) {
			return false
		}
	}
	return true
}

// ResolveWebsite searches "<company> official site" and returns candidate
// homepages in search-ranked order, aggregator domains filtered out.
func (c *Client) ResolveWebsite(ctx context.Context, companyName string) ([]string, error) {
	results, err := c.Search(ctx, companyName+" official site")
	if err != nil {
		return nil, err
	}

	var candidates []string
	for i, result := range results {
		if i >= maxResultsScanned {
			break
		}
		if IsValidHomepage(result.Url) {
			candidates = append(candidates, result.Url)
		}
	}
	return candidates, nil
}
