// Package reviewpages turns raw review-listing HTML into structured records.
// Review sites churn their markup constantly, so every extractor is a
// cascade of selectors from newest to oldest known layout, with a
// keyword-scoring fallback when no selector matches at all.
package reviewpages

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

type Review struct {
	CompanyName string   `json:"company_name,omitempty"`
	Location    string   `json:"location,omitempty"`
	Url         string   `json:"url,omitempty"`
	Topic       string   `json:"topic,omitempty"`
	Text        string   `json:"text"`
	Rating      *float64 `json:"rating"`
	Platform    string   `json:"platform"`
	ScrapedAt   string   `json:"scraped_at"`
	Method      string   `json:"method"`
}

// Parse dispatches to the platform's extractor. For indeed, a page where no
// known selector matches anything goes through the keyword fallback before
// being declared empty.
func Parse(platform string, html string, max int) []Review {
	switch {
	case strings.Contains(platform, "glassdoor"):
		return ParseGlassdoor(html, max)
	case strings.Contains(platform, "indeed"):
		reviews := ParseIndeed(html, max)
		if len(reviews) == 0 {
			reviews = ParseIndeedFallback(html, max)
		}
		return reviews
	default:
		return nil
	}
}

func newReview(platform, method, topic, text string, rating *float64) Review {
	return Review{
		Topic:     topic,
		Text:      text,
		Rating:    rating,
		Platform:  platform,
		ScrapedAt: time.Now().UTC().Format(time.RFC3339),
		Method:    method,
	}
}

// selectCascade returns the matches of the first selector that finds at
// least minCount elements.
func selectCascade(doc *goquery.Document, selectors []string, minCount int) *goquery.Selection {
	for _, selector := range selectors {
		sel := doc.Find(selector)
		if sel.Length() >= minCount {
			return sel
		}
	}
	return nil
}

// firstText returns the first selector hit whose text is longer than minLen.
func firstText(el *goquery.Selection, selectors []string, minLen int) string {
	for _, selector := range selectors {
		text := strings.TrimSpace(el.Find(selector).First().Text())
		if len(text) > minLen {
			return text
		}
	}
	return ""
}

var ratingRe = regexp.MustCompile(`(\d+(?:\.\d+)?)`)

func parseRating(el *goquery.Selection, selectors []string) *float64 {
	for _, selector := range selectors {
		hit := el.Find(selector).First()
		if hit.Length() == 0 {
			continue
		}
		for _, candidate := range []string{
			hit.AttrOr("content", ""),
			hit.AttrOr("aria-label", ""),
			hit.Text(),
		} {
			m := ratingRe.FindStringSubmatch(candidate)
			if m == nil {
				continue
			}
			v, err := strconv.ParseFloat(m[1], 64)
			if err == nil {
				return &v
			}
		}
	}
	return nil
}

func truncate(sel *goquery.Selection, max int) *goquery.Selection {
	if max <= 0 || sel == nil || sel.Length() <= max {
		return sel
	}
	return sel.Slice(0, max)
}
