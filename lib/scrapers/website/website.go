// Package website crawls a company's own site through a rendering browser
// and collects the readable text of every internal page, bucketed by
// section.
package website

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("lib/scrapers/website")

const (
	defaultMaxPages   = 50
	defaultRetries    = 3
	defaultTimeout    = 30 * time.Second
	minRenderedLen    = 500
	minPageTextLen    = 200
	delayBetweenPages = time.Second
)

// Renderer loads a url and returns the post-render HTML. browser.Pool
// implements it.
type Renderer interface {
	FetchURL(ctx context.Context, url string, timeout time.Duration) (string, error)
}

type Page struct {
	CompanyId   string `json:"company_id"`
	CompanyName string `json:"company_name"`
	Url         string `json:"url"`
	Section     string `json:"section"`
	Text        string `json:"text"`
}

type PageError struct {
	Url   string `json:"url"`
	Error string `json:"error"`
}

type Crawler struct {
	renderer Renderer
	ctrl     *fetch.Controller
	maxPages int
	timeout  time.Duration
	sleep    func(time.Duration)
}

type Options struct {
	Renderer   Renderer
	MaxPages   int
	MaxRetries int
	Timeout    time.Duration
	Sleep      func(time.Duration)
	Jitter     func(min, max int) int
}

func NewCrawler(options Options) *Crawler {
	if options.MaxPages == 0 {
		options.MaxPages = defaultMaxPages
	}
	if options.MaxRetries == 0 {
		options.MaxRetries = defaultRetries
	}
	if options.Timeout == 0 {
		options.Timeout = defaultTimeout
	}
	if options.Sleep == nil {
		options.Sleep = time.Sleep
	}

	c := &Crawler{
		renderer: options.Renderer,
		maxPages: options.MaxPages,
		timeout:  options.Timeout,
		sleep:    options.Sleep,
	}
	c.ctrl = fetch.NewController(fetch.FetcherFunc(c.render), fetch.Options{
		MaxRetries: options.MaxRetries,
		Sleep:      options.Sleep,
		Jitter:     options.Jitter,
	})
	return c
}

// render adapts the browser to the fetch classification model. A renderer
// failure reads as a transport problem; a page that comes back suspiciously
// small reads as a server-side failure worth retrying.
func (c *Crawler) render(ctx context.Context, req fetch.Request) fetch.Outcome {
	html, err := c.renderer.FetchURL(ctx, req.URL, c.timeout)
	if err != nil {
		return fetch.Outcome{Class: fetch.TransportError, Err: err}
	}
	if len(html) < minRenderedLen {
		return fetch.Outcome{
			Class: fetch.ServerError,
			Err:   fmt.Errorf("page loaded but content too small (%d bytes)", len(html)),
		}
	}
	return fetch.Outcome{Class: fetch.Success, Body: html}
}

// Crawl walks the site breadth-first from baseUrl, staying on the base
// domain and visiting at most maxPages urls. Pages that fail are recorded
// and skipped; the crawl keeps going.
func (c *Crawler) Crawl(ctx context.Context, companyId, companyName, baseUrl string) ([]Page, []PageError) {
	ctx, span := tracer.Start(ctx, "Crawl")
	defer span.End()

	base, err := url.Parse(baseUrl)
	if err != nil {
		return nil, []PageError{{Url: baseUrl, Error: err.Error()}}
	}
	domain := base.Host

	visited := map[string]bool{}
	queued := map[string]bool{baseUrl: true}
	queue := []string{baseUrl}

	var pages []Page
	var errors []PageError

	for len(queue) > 0 && len(visited) < c.maxPages {
		pageUrl := queue[0]
		queue = queue[1:]
		if visited[pageUrl] {
			continue
		}
		visited[pageUrl] = true

		out := c.ctrl.Do(ctx, pageUrl, len(visited) == 1)
		if out.Class != fetch.Success {
			message := out.Class.String()
			if out.Err != nil {
				message = out.Err.Error()
			}
			errors = append(errors, PageError{Url: pageUrl, Error: message})
			continue
		}

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(out.Body))
		if err != nil {
			errors = append(errors, PageError{Url: pageUrl, Error: err.Error()})
			continue
		}

		links := c.internalLinks(ctx, doc, pageUrl, domain)

		text := htmlutil.ExtractReadableText(doc)
		if len(text) < minPageTextLen {
			continue
		}

		parsed, err := url.Parse(pageUrl)
		section := "other"
		if err == nil {
			section = ClassifySection(parsed.Path)
		}

		pages = append(pages, Page{
			CompanyId:   companyId,
			CompanyName: companyName,
			Url:         pageUrl,
			Section:     section,
			Text:        text,
		})

		for _, link := range links {
			if !visited[link] && !queued[link] {
				queued[link] = true
				queue = append(queue, link)
			}
		}

		c.sleep(delayBetweenPages)
	}

	slog.Info("site crawl finished",
		"company", companyName,
		"pages", len(pages),
		"errors", len(errors))
	return pages, errors
}

func (c *Crawler) internalLinks(ctx context.Context, doc *goquery.Document, pageUrl, domain string) []string {
	base, err := url.Parse(pageUrl)
	if err != nil {
		return nil
	}

	var links []string
	for _, anchor := range htmlutil.GetAnchors(ctx, doc.Find("a[href]")) {
		ref, err := url.Parse(anchor.Href)
		if err != nil {
			continue
		}
		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			continue
		}
		if !strings.Contains(resolved.Host, domain) {
			continue
		}
		resolved.Fragment = ""
		links = append(links, resolved.String())
	}
	return links
}
