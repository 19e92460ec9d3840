package reviewpages

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var glassdoorReviewSelectors = []string{
	`li[class*="review"]`,
	`li[class*="Review"]`,
	`div[class*="review"]`,
	`article[class*="review"]`,
	`[data-test*="review"]`,
}

var glassdoorTopicSelectors = []string{
	`[class*="reviewTitle"]`,
	`[class*="review-title"]`,
	`[class*="Summary"]`,
	"h2",
	"h3",
	`[data-test*="title"]`,
}

var glassdoorTextSelectors = []string{
	`[class*="reviewText"]`,
	`[class*="review-text"]`,
	`[class*="description"]`,
	`span[class*="cont"]`,
}

// ParseGlassdoor extracts up to max reviews. Glassdoor splits each review
// into pros and cons cells, so the two are reassembled into one text when
// both are present.
func ParseGlassdoor(html string, max int) []Review {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	// a handful of matches on a listing page is navigation chrome, not
	// reviews, hence the floor of 4
	elements := selectCascade(doc, glassdoorReviewSelectors, 4)
	if elements == nil {
		return nil
	}

	var reviews []Review
	truncate(elements, max).Each(func(_ int, el *goquery.Selection) {
		topic := firstText(el, glassdoorTopicSelectors, 3)

		pros, cons := "", ""
		el.Find(`[class*="fullWidth"], [class*="reviewBodyCell"]`).Each(func(_ int, cell *goquery.Selection) {
			text := strings.TrimSpace(cell.Text())
			head := text
			if len(head) > 30 {
				head = head[:30]
			}
			switch {
			case strings.Contains(head, "Pros"):
				pros = strings.TrimSpace(strings.NewReplacer("Pros", "", "pros", "").Replace(text))
			case strings.Contains(head, "Cons"):
				cons = strings.TrimSpace(strings.NewReplacer("Cons", "", "cons", "").Replace(text))
			}
		})

		text := ""
		switch {
		case pros != "" && cons != "":
			text = "Pros: " + pros + "\n\nCons: " + cons
		case pros != "":
			text = pros
		case cons != "":
			text = cons
		}

		if text == "" {
			text = firstText(el, glassdoorTextSelectors, 30)
		}
		if text == "" {
			var paragraphs []string
			el.Find("p").Each(func(_ int, p *goquery.Selection) {
				if t := strings.TrimSpace(p.Text()); t != "" {
					paragraphs = append(paragraphs, t)
				}
			})
			text = strings.Join(paragraphs, " ")
		}

		rating := parseRating(el, []string{`[class*="rating"]`})

		if len(text) > 30 || len(topic) > 5 {
			if text == "" {
				text = topic
			}
			reviews = append(reviews, newReview("glassdoor", "scraperapi", topic, text, rating))
		}
	})

	return reviews
}
