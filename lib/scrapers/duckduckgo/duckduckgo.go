// Package duckduckgo searches via the html.duckduckgo.com frontend, which
// needs no api key but throttles aggressively (202 responses), so every
// search goes through an adaptive retry controller.
package duckduckgo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/telemetry"
	"culturepipe/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("scrapers/duckduckgo")

const defaultSearchUrl = "https://html.duckduckgo.com/html/"

// pre-request throttle window, stretched by the controller's backoff
// multiplier when the search frontend has been throttling us
const (
	minDelaySec = 4
	maxDelaySec = 8
)

var userAgents = []string{
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/119.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:120.0) Gecko/20100101 Firefox/120.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
}

type Client struct {
	Http *resty.Client
	ctrl *fetch.Controller

	searchUrl string
	region    string
}

type Options struct {
	// SearchUrl overrides the html frontend endpoint, mostly for tests.
	SearchUrl string
	// Region is the duckduckgo `kl` region code, "us-en" by default.
	Region string
	// MaxRetries bounds retries per query, 2 by default.
	MaxRetries int
	Sleep      func(time.Duration)
	Jitter     func(minSec, maxSec int) int
}

func NewClient(opts Options) *Client {
	if opts.SearchUrl == "" {
		opts.SearchUrl = defaultSearchUrl
	}
	if opts.Region == "" {
		opts.Region = "us-en"
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 2
	}

	client := resty.New()
	client.SetTimeout(time.Second * 15)
	client.SetHeaders(map[string]string{
		"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language":           "en-US,en;q=0.5",
		"DNT":                       "1",
		"Connection":                "keep-alive",
		"Upgrade-Insecure-Requests": "1",
	})
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)

	telemetry.InstrumentResty(client, "scrapers/duckduckgo/http")

	c := &Client{
		Http:      client,
		searchUrl: opts.SearchUrl,
		region:    opts.Region,
	}
	c.ctrl = fetch.NewController(fetch.FetcherFunc(c.doSearch), fetch.Options{
		MaxRetries: opts.MaxRetries,
		Sleep:      opts.Sleep,
		Jitter:     opts.Jitter,
	})
	return c
}

// the html frontend reports throttling as a 202 with an empty challenge
// page instead of a 429
func (c *Client) doSearch(ctx context.Context, req fetch.Request) fetch.Outcome {
	res, err := c.Http.R().
		SetContext(ctx).
		SetHeader("User-Agent", randomUserAgent()).
		SetFormData(map[string]string{
			"q":  req.URL,
			"b":  "",
			"kl": c.region,
		}).
		Post(c.searchUrl)
	if err != nil {
		return fetch.Outcome{Class: fetch.TransportError, Err: err}
	}

	switch code := res.StatusCode(); {
	case code == 202:
		return fetch.Outcome{Class: fetch.RateLimited}
	case code == 200:
		return fetch.Outcome{Class: fetch.Success, Body: res.String()}
	case code == 404:
		return fetch.Outcome{Class: fetch.NotFound}
	case code == 400:
		return fetch.Outcome{Class: fetch.MalformedRequest}
	default:
		return fetch.Outcome{Class: fetch.ServerError}
	}
}

func randomUserAgent() string {
	i, err := random.IntRange(0, len(userAgents))
	if err != nil {
		return userAgents[0]
	}
	return userAgents[i]
}

type Result struct {
	Title string
	Url   string
}

// Search runs one query through the throttle and retry machinery and parses
// the result listing.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	ctx, span := tracer.Start(ctx, "Search", trace.WithAttributes(
		attribute.String("query", query),
	))
	defer span.End()

	c.ctrl.Throttle(minDelaySec, maxDelaySec)

	out := c.ctrl.Do(ctx, query, true)
	if out.Class != fetch.Success {
		err := fmt.Errorf("search %q failed: %s", query, out.Class)
		if out.Err != nil {
			err = fmt.Errorf("search %q failed: %w", query, out.Err)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "search failed")
		return nil, err
	}

	results, err := ParseResults(out.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to parse results")
		return nil, err
	}
	span.SetAttributes(attribute.Int("result_count", len(results)))
	return results, nil
}

// ParseResults extracts the organic result anchors from a search page.
func ParseResults(body string) ([]Result, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}

	var results []Result
	doc.Find("a.result__a").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		results = append(results, Result{
			Title: textutil.CollapseWhitespace(sel.Text()),
			Url:   href,
		})
	})
	return results, nil
}
