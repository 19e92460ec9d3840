package reviewpages

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	glassdoorScopedIdRe = regexp.MustCompile(`IE(\d+)`)
	glassdoorPlainIdRe  = regexp.MustCompile(`-Reviews-E(\d+)`)
	glassdoorNameRe     = regexp.MustCompile(`/Reviews/([^/]+?)-Reviews`)
)

// SimplifyGlassdoorUrl rewrites a location-scoped review url (the
// `EI_IE4258.0,22_IL...` form search results link to, which routinely 404s
// through the proxy) onto the company's main review page. Returns the
// original url untouched when it cannot be parsed.
func SimplifyGlassdoorUrl(raw string) (url, name, id string) {
	if !strings.Contains(raw, "glassdoor.com") {
		return raw, "", ""
	}

	if m := glassdoorScopedIdRe.FindStringSubmatch(raw); m != nil {
		id = m[1]
	} else if m := glassdoorPlainIdRe.FindStringSubmatch(raw); m != nil {
		id = m[1]
	}
	if m := glassdoorNameRe.FindStringSubmatch(raw); m != nil {
		name = m[1]
	}
	if id == "" || name == "" {
		return raw, "", ""
	}

	return fmt.Sprintf("https://www.glassdoor.com/Reviews/%s-Reviews-E%s.htm", name, id), name, id
}

// GlassdoorPageUrls generates the paginated listing urls for one company,
// page 2 onward using the `_P<n>` suffix. An unparseable base url yields
// just itself.
func GlassdoorPageUrls(baseUrl string, maxPages int) []string {
	_, name, id := SimplifyGlassdoorUrl(baseUrl)
	if id == "" {
		return []string{baseUrl}
	}

	urls := make([]string, 0, maxPages)
	for page := 1; page <= maxPages; page++ {
		if page == 1 {
			urls = append(urls, fmt.Sprintf("https://www.glassdoor.com/Reviews/%s-Reviews-E%s.htm", name, id))
		} else {
			urls = append(urls, fmt.Sprintf("https://www.glassdoor.com/Reviews/%s-Reviews-E%s_P%d.htm", name, id, page))
		}
	}
	return urls
}

// indeed paginates with a start offset of 20 reviews per page
const indeedReviewsPerPage = 20

func IndeedPageUrls(baseUrl string, maxPages int) []string {
	urls := make([]string, 0, maxPages)
	for page := 0; page < maxPages; page++ {
		if page == 0 {
			urls = append(urls, baseUrl)
			continue
		}
		separator := "?"
		if strings.Contains(baseUrl, "?") {
			separator = "&"
		}
		urls = append(urls, fmt.Sprintf("%s%sstart=%d", baseUrl, separator, page*indeedReviewsPerPage))
	}
	return urls
}

// PageUrls generates the page sequence for any platform; platforms without
// known pagination get the single base url.
func PageUrls(platform, baseUrl string, maxPages int) []string {
	switch {
	case strings.Contains(platform, "glassdoor"):
		return GlassdoorPageUrls(baseUrl, maxPages)
	case strings.Contains(platform, "indeed"):
		return IndeedPageUrls(baseUrl, maxPages)
	default:
		return []string{baseUrl}
	}
}

// RepairUrl fixes the one known recoverable 404 cause: an indeed company
// page that is missing its /reviews suffix. Suitable as a
// fetch.Options.RepairURL hook.
func RepairUrl(url string) (string, bool) {
	if strings.Contains(url, "indeed.com/cmp/") && !strings.Contains(url, "/reviews") {
		return strings.TrimRight(url, "/") + "/reviews", true
	}
	return url, false
}
