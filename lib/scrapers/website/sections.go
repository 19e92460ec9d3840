package website

import "strings"

type sectionRule struct {
	name     string
	keywords []string
}

// checked in order; the first section with a keyword hit in the url path wins
var sectionRules = []sectionRule{
	{"about", []string{"about", "who-we-are", "our-company"}},
	{"careers", []string{"career", "jobs", "join-us"}},
	{"values", []string{"mission", "vision", "values", "culture"}},
	{"leadership", []string{"team", "leadership", "management"}},
	{"blog", []string{"blog", "news", "press"}},
}

// ClassifySection buckets a page by its url path. Pages that match no
// keyword are "other".
func ClassifySection(urlPath string) string {
	path := strings.ToLower(urlPath)
	for _, rule := range sectionRules {
		for _, keyword := range rule.keywords {
			if strings.Contains(path, keyword) {
				return rule.name
			}
		}
	}
	return "other"
}
