package reviewpages

import (
	"strings"

	"culturepipe/lib/textutil"

	"github.com/PuerkitoBio/goquery"
)

// newest known layouts first, legacy markup as fallback
var indeedReviewSelectors = []string{
	`[data-testid="review-card"]`,
	`[data-testid="review"]`,
	`[id*="cmp-review-"]`,
	`div[class*="css-"][id*="review"]`,
	`[data-tn-component="reviews"]`,
	`[class*="review-item"]`,
	`[class*="ReviewItem"]`,
	`div[itemprop="review"]`,
	`[class*="review"]`,
}

var indeedTopicSelectors = []string{
	`[data-testid="review-title"]`,
	`[class*="review-title"]`,
	`[class*="ReviewTitle"]`,
	`[itemprop="name"]`,
	"h2",
	"h3",
	`[data-tn-component*="reviewTitle"]`,
}

// indeed hides the untruncated body in collapsed elements next to the
// visible teaser, so those are checked first
var indeedFullTextSelectors = []string{
	`[class*="expanded"]`,
	`[class*="full-text"]`,
	`[class*="full-review"]`,
	`[style*="display:none"]`,
	`[class*="collapsed"]`,
}

var indeedTextSelectors = []string{
	`[data-testid="review-text"]`,
	`[itemprop="reviewBody"]`,
	`[class*="review-text"]`,
	`[class*="ReviewText"]`,
	`[class*="reviewText"]`,
	"p",
	"span",
}

var indeedRatingSelectors = []string{
	`[itemprop="ratingValue"]`,
	`[data-testid="rating"]`,
	`[class*="rating"]`,
}

const indeedMinTextLen = 20

func ParseIndeed(html string, max int) []Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	elements := selectCascade(doc, indeedReviewSelectors, 1)
	if elements == nil {
		return nil
	}

	var reviews []Review
	truncate(elements, max).Each(func(_ int, el *goquery.Selection) {
		topic := firstText(el, indeedTopicSelectors, 3)

		text := ""
		for _, selector := range indeedFullTextSelectors {
			hit := el.Find(selector).First()
			if hit.Length() == 0 {
				continue
			}
			candidate := textutil.CollapseWhitespace(hit.Text())
			if len(candidate) > len(text) {
				text = candidate
				break
			}
		}

		if len(text) < 50 {
			for _, selector := range indeedTextSelectors {
				hit := el.Find(selector).First()
				if hit.Length() == 0 {
					continue
				}
				candidate := textutil.CollapseWhitespace(hit.Text())
				if len(candidate) > len(text) {
					text = candidate
				}
				if len(text) > indeedMinTextLen {
					break
				}
			}
		}

		if text == "" {
			text = textutil.CollapseWhitespace(el.Text())
		}
		text = textutil.CleanReviewText(text)

		rating := parseRating(el, indeedRatingSelectors)

		if len(text) > indeedMinTextLen {
			reviews = append(reviews, newReview("indeed", "scraperapi", topic, text, rating))
		}
	})

	return reviews
}

// words that show up in genuine review prose but rarely in site chrome
var reviewKeywords = []string{
	"work", "company", "job", "management", "employee",
	"culture", "team", "salary", "benefit", "environment",
	"position", "manager", "experience", "staff", "coworker",
	"colleague", "workplace", "supervisor", "boss", "pay",
	"overtime", "shift", "schedule", "hour", "training",
	"promotion", "career", "hired", "interview", "quit",
}

var fallbackHeaderTags = []string{"h2", "h3", "h4", "h5", "strong", "b"}

// ParseIndeedFallback scores generic containers by review-keyword density
// when the selector cascade comes up empty. It overmatches on purpose; the
// length bounds and dedup keep the worst of the noise out.
func ParseIndeedFallback(html string, max int) []Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := map[string]bool{}
	var reviews []Review

	containers := truncate(doc.Find("div, article, section, li"), max*5)
	if containers == nil {
		return nil
	}
	containers.EachWithBreak(func(_ int, el *goquery.Selection) bool {
		text := textutil.CollapseWhitespace(el.Text())
		if len(text) < 30 || len(text) > 2000 {
			return true
		}

		signature := strings.ToLower(text)
		if len(signature) > 100 {
			signature = signature[:100]
		}
		if seen[signature] {
			return true
		}

		lower := strings.ToLower(text)
		matched := false
		for _, kw := range reviewKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			return true
		}

		topic := ""
		el.Find(strings.Join(fallbackHeaderTags, ", ")).EachWithBreak(func(_ int, header *goquery.Selection) bool {
			headerText := strings.TrimSpace(header.Text())
			if len(headerText) > 3 && len(headerText) < 100 {
				topic = headerText
				return false
			}
			return true
		})

		seen[signature] = true
		reviews = append(reviews, newReview("indeed", "scraperapi_fallback", topic, textutil.CleanReviewText(text), nil))
		return len(reviews) < max
	})

	return reviews
}
