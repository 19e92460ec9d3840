package paginate

import (
	"context"
	"strconv"
	"strings"
	"testing"
	"time"

	"culturepipe/lib/fetch"

	"github.com/stretchr/testify/require"
)

func testOptions(sleeps *[]time.Duration) Options {
	return Options{
		MaxRecords:      200,
		PageDelayMinSec: 10,
		PageDelayMaxSec: 15,
		Sleep:           func(d time.Duration) { *sleeps = append(*sleeps, d) },
		Jitter:          func(minSec, maxSec int) int { return minSec },
	}
}

func pageURLs(n int) []string {
	urls := make([]string, n)
	for i := range urls {
		urls[i] = "https://example.com/reviews?page=" + strconv.Itoa(i+1)
	}
	return urls
}

// each body encodes how many records it holds
func countingParser(body string, remaining int) (int, error) {
	n, err := strconv.Atoi(body)
	if err != nil {
		return 0, err
	}
	if remaining >= 0 && n > remaining {
		n = remaining
	}
	return n, nil
}

func fetchBodies(bodies map[string]fetch.Outcome) FetchPage {
	return func(ctx context.Context, url string, firstPage bool) fetch.Outcome {
		out, ok := bodies[url]
		if !ok {
			return fetch.Outcome{Class: fetch.NotFound}
		}
		return out
	}
}

func TestStopsAtRecordCap(t *testing.T) {
	var sleeps []time.Duration
	opts := testOptions(&sleeps)
	opts.MaxRecords = 90

	fetcher := func(ctx context.Context, url string, firstPage bool) fetch.Outcome {
		return fetch.Outcome{Class: fetch.Success, Body: "40"}
	}

	res := Run(context.Background(), pageURLs(5), fetcher, countingParser, opts)
	require.False(t, res.Failed)
	require.Equal(t, 90, res.Records)
	require.Equal(t, 3, res.Pages)
	// the cap truncated the third page
	require.Len(t, sleeps, 2)
}

func TestStopsOnEndOfPages(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(5)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "25"},
		urls[1]: {Class: fetch.Success, Body: "25"},
		urls[2]: {Class: fetch.EndOfPages},
	}), countingParser, testOptions(&sleeps))

	require.False(t, res.Failed)
	require.Equal(t, 50, res.Records)
	require.Equal(t, 2, res.Pages)
	require.Equal(t, fetch.EndOfPages, res.Stopped)
}

func TestEmptySuccessfulPageEndsRun(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(5)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "30"},
		urls[1]: {Class: fetch.Success, Body: "0"},
		urls[2]: {Class: fetch.Success, Body: "30"},
	}), countingParser, testOptions(&sleeps))

	require.False(t, res.Failed)
	require.Equal(t, 30, res.Records)
	require.Equal(t, 1, res.Pages)
}

func TestEmptyFirstPageIsFailure(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(3)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "0"},
	}), countingParser, testOptions(&sleeps))

	require.True(t, res.Failed)
	require.Zero(t, res.Records)
	require.Contains(t, res.Reason, "no records")
}

func TestFirstPageErrorIsFailure(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(3)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.ServerError},
	}), countingParser, testOptions(&sleeps))

	require.True(t, res.Failed)
	require.Equal(t, fetch.ServerError, res.Stopped)
}

func TestLaterPageErrorKeepsEarlierRecords(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(3)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "20"},
		urls[1]: {Class: fetch.RateLimited},
	}), countingParser, testOptions(&sleeps))

	require.False(t, res.Failed)
	require.Equal(t, 20, res.Records)
	require.Equal(t, fetch.RateLimited, res.Stopped)
}

func TestJitteredDelayBetweenPages(t *testing.T) {
	var sleeps []time.Duration
	opts := testOptions(&sleeps)
	opts.Jitter = func(minSec, maxSec int) int {
		require.Equal(t, 10, minSec)
		require.Equal(t, 15, maxSec)
		return 12
	}

	urls := pageURLs(3)
	Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "10"},
		urls[1]: {Class: fetch.Success, Body: "10"},
		urls[2]: {Class: fetch.Success, Body: "10"},
	}), countingParser, opts)

	require.Equal(t, []time.Duration{12 * time.Second, 12 * time.Second}, sleeps)
}

func TestParseErrorEndsRunCleanly(t *testing.T) {
	var sleeps []time.Duration
	urls := pageURLs(2)
	res := Run(context.Background(), urls, fetchBodies(map[string]fetch.Outcome{
		urls[0]: {Class: fetch.Success, Body: "garbage"},
	}), countingParser, testOptions(&sleeps))

	require.True(t, res.Failed)
	require.True(t, strings.Contains(res.Reason, "no records"))
}
