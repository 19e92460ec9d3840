package textutil

import (
	"regexp"
	"strings"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.Trim(name, " \n\t")
	name = whitespaceRegex.ReplaceAllString(name, "")
	return name
}

func MatchName(name string, matchers []string) bool {
	name = NormalizeName(name)
	for _, m := range matchers {
		if strings.Contains(name, m) {
			return true
		}
	}
	return false
}

// CollapseWhitespace reduces every whitespace run to a single space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(s, " "))
}

// truncation chrome that review sites append to collapsed text
var truncationPhrases = []string{
	"Show more",
	"Show less",
	"Show More",
	"Show Less",
	"Read more",
	"Read less",
	"Read More",
	"Read Less",
	"See more",
	"See More",
	"Continue reading",
}

var trailingEllipsis = regexp.MustCompile(`(\.\.\.|…)\s*$`)

// CleanReviewText strips expand/collapse phrases and trailing ellipses from
// scraped review copy, then collapses whitespace.
func CleanReviewText(s string) string {
	for _, phrase := range truncationPhrases {
		s = strings.ReplaceAll(s, phrase, " ")
	}
	s = trailingEllipsis.ReplaceAllString(s, "")
	return CollapseWhitespace(s)
}
