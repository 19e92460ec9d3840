// Package scraperapi fetches cloudflare-protected pages through the
// scraperapi.com rendering proxy, classifying its status codes for the retry
// controller. The proxy bills per successful request and reports an
// exhausted plan as a 403.
package scraperapi

import (
	"context"
	"strings"
	"time"

	"culturepipe/lib/fetch"
	"culturepipe/lib/keypool"
	"culturepipe/lib/restyutil"
	"culturepipe/lib/telemetry"

	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
)

const defaultEndpoint = "http://api.scraperapi.com"

type Client struct {
	Http *resty.Client

	endpoint string
	keys     *keypool.Manager
}

type Options struct {
	// Endpoint overrides the proxy endpoint, mostly for tests.
	Endpoint string
	Keys     *keypool.Manager
	// DebugOutput, when set, dumps every proxied exchange for offline
	// selector debugging.
	DebugOutput restyutil.InstrumentOutput
}

func NewClient(opts Options) *Client {
	if opts.Endpoint == "" {
		opts.Endpoint = defaultEndpoint
	}

	client := resty.New()
	// rendering a js-heavy page through the proxy routinely takes over a
	// minute
	client.SetTimeout(time.Second * 120)

	telemetry.InstrumentResty(client, "scrapers/scraperapi/http")
	restyutil.InstrumentClient(client, otel.Tracer("scrapers/scraperapi/debug"), opts.DebugOutput)

	return &Client{
		Http:     client,
		endpoint: opts.Endpoint,
		keys:     opts.Keys,
	}
}

// Fetch runs one proxied attempt. It satisfies fetch.Fetcher, so it is
// always driven through a fetch.Controller rather than called directly.
func (c *Client) Fetch(ctx context.Context, req fetch.Request) fetch.Outcome {
	key, err := c.keys.Current()
	if err != nil {
		return fetch.Outcome{Class: fetch.CreditsExhausted, Err: err}
	}

	params := map[string]string{
		"api_key": key,
		"url":     req.URL,
		"render":  "true",
	}
	switch req.Strategy {
	case fetch.StrategyNoRender:
		params["render"] = "false"
	case fetch.StrategyAltRegion:
		if strings.Contains(req.URL, "uk.indeed.com") {
			params["country_code"] = "uk"
		}
	}

	res, err := c.Http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(c.endpoint)
	if err != nil {
		return fetch.Outcome{Class: fetch.TransportError, Err: err}
	}

	switch code := res.StatusCode(); {
	case code == 200:
		return fetch.Outcome{Class: fetch.Success, Body: res.String()}
	case code == 400:
		return fetch.Outcome{Class: fetch.MalformedRequest}
	case code == 403:
		return fetch.Outcome{Class: fetch.CreditsExhausted}
	case code == 404:
		return fetch.Outcome{Class: fetch.NotFound}
	default:
		return fetch.Outcome{Class: fetch.ServerError}
	}
}
