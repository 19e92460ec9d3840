// Package namematch scores how well scraped candidates (domains, page
// titles) match a company name, and generates fallback spellings for
// companies whose registered name never appears verbatim on review sites.
package namematch

import (
	"net/url"
	"strings"

	"culturepipe/lib/textutil"

	"github.com/antzucaro/matchr"
)

// Similarity scores two names in [0, 1] after normalization.
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(textutil.NormalizeName(a), textutil.NormalizeName(b), false)
}

// BestURL picks the candidate whose host reads most like the company name.
// Candidates come pre-filtered, so ties go to the earlier entry, which
// preserves search ranking. Returns "" for an empty candidate list.
func BestURL(company string, candidates []string) string {
	best := ""
	bestScore := -1.0
	for _, candidate := range candidates {
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		host := strings.TrimPrefix(u.Hostname(), "www.")
		if i := strings.Index(host, "."); i > 0 {
			host = host[:i]
		}
		score := Similarity(company, host)
		if score > bestScore {
			best = candidate
			bestScore = score
		}
	}
	return best
}

var legalSuffixes = []string{
	"limited", "ltd", "llc", "llp", "plc", "inc", "gmbh", "pvt", "private",
	"corporation", "corp", "incorporated", "company", "co",
	"holdings", "group", "international", "global",
	"services", "solutions", "systems", "technologies", "consulting",
}

// AlternativeNames generates progressively looser spellings of a company
// name to search under when the registered name finds nothing: annotation
// and parenthetical text stripped first, then legal suffixes, then the
// leading brand word alone. Ordered most to least specific, original name
// excluded.
func AlternativeNames(name string) []string {
	var alternatives []string
	seen := map[string]bool{textutil.NormalizeName(name): true}
	add := func(candidate string) {
		candidate = textutil.CollapseWhitespace(candidate)
		if candidate == "" {
			return
		}
		key := textutil.NormalizeName(candidate)
		if seen[key] {
			return
		}
		seen[key] = true
		alternatives = append(alternatives, candidate)
	}

	working := name
	if i := strings.Index(working, " - "); i >= 0 {
		working = working[:i]
		add(working)
	}
	if i := strings.Index(working, "("); i >= 0 {
		working = working[:i]
		add(working)
	}

	words := strings.Fields(working)
	for len(words) > 1 && isLegalSuffix(words[len(words)-1]) {
		words = words[:len(words)-1]
		add(strings.Join(words, " "))
	}

	if len(words) > 1 && len(words[0]) >= 4 {
		add(words[0])
	}

	return alternatives
}

func isLegalSuffix(word string) bool {
	word = strings.ToLower(strings.Trim(word, ".,"))
	for _, s := range legalSuffixes {
		if word == s {
			return true
		}
	}
	return false
}
