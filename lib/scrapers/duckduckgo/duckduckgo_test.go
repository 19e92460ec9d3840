package duckduckgo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const resultPage = `<html><body>
<div class="results">
  <div class="result">
    <a class="result__a" href="https://www.glassdoor.com/Reviews/Acme-Reviews-E12345.htm">Acme Reviews | Glassdoor</a>
  </div>
  <div class="result">
    <a class="result__a" href="https://www.acme.example.com/">Acme   Corp — Official Site</a>
  </div>
  <div class="result">
    <a class="result__a" href="">broken</a>
  </div>
</div>
</body></html>`

func noDelay(opts *Options) {
	opts.Sleep = func(time.Duration) {}
	opts.Jitter = func(minSec, maxSec int) int { return minSec }
}

func TestSearchParsesResults(t *testing.T) {
	var gotForm map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"q":  r.PostFormValue("q"),
			"kl": r.PostFormValue("kl"),
		}
		w.Write([]byte(resultPage))
	}))
	defer server.Close()

	opts := Options{SearchUrl: server.URL}
	noDelay(&opts)
	client := NewClient(opts)

	results, err := client.Search(context.Background(), "acme official site")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Equal(t, "Acme Reviews | Glassdoor", results[0].Title)
	require.Equal(t, "https://www.acme.example.com/", results[1].Url)
	require.Equal(t, "acme official site", gotForm["q"])
	require.Equal(t, "us-en", gotForm["kl"])
}

func TestSearchGivesUpAfterSustainedThrottling(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	opts := Options{SearchUrl: server.URL, MaxRetries: 2}
	noDelay(&opts)
	client := NewClient(opts)

	_, err := client.Search(context.Background(), "acme")
	require.Error(t, err)
	require.Contains(t, err.Error(), "rate_limited")
	require.Equal(t, 3, attempts)
}

func TestFindReviewPage(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultPage))
	}))
	defer server.Close()

	opts := Options{SearchUrl: server.URL}
	noDelay(&opts)
	client := NewClient(opts)

	url, err := client.FindReviewPage(context.Background(), "Acme", "UK", Glassdoor)
	require.NoError(t, err)
	require.Equal(t, "https://www.glassdoor.com/Reviews/Acme-Reviews-E12345.htm", url)

	// no indeed result on the page
	url, err = client.FindReviewPage(context.Background(), "Acme", "UK", Indeed)
	require.NoError(t, err)
	require.Equal(t, "", url)
}

func TestResolveWebsiteFiltersAggregators(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(resultPage))
	}))
	defer server.Close()

	opts := Options{SearchUrl: server.URL}
	noDelay(&opts)
	client := NewClient(opts)

	candidates, err := client.ResolveWebsite(context.Background(), "Acme")
	require.NoError(t, err)
	require.Equal(t, []string{"https://www.acme.example.com/"}, candidates)
}

func TestMatchesPlatform(t *testing.T) {
	require.True(t, MatchesPlatform(Glassdoor, "https://www.glassdoor.com/Reviews/Acme-Reviews-E1.htm"))
	require.True(t, MatchesPlatform(Indeed, "https://uk.indeed.com/cmp/acme/reviews"))
	require.True(t, MatchesPlatform(Comparably, "https://www.comparably.com/companies/acme/reviews"))
	require.False(t, MatchesPlatform(Comparably, "https://www.comparably.com/blog/acme/reviews"))
	require.False(t, MatchesPlatform(AmbitionBox, "https://blog.example.com/company/ambitionbox-reviews-ambitionbox.com"))
	require.False(t, MatchesPlatform(Glassdoor, "https://www.glassdoor.com/Jobs/Acme-Jobs.htm"))
}

func TestIsValidHomepage(t *testing.T) {
	require.True(t, IsValidHomepage("https://www.acme.example.com/"))
	require.False(t, IsValidHomepage(""))
	require.False(t, IsValidHomepage("https://www.glassdoor.com/Overview/acme"))
	require.False(t, IsValidHomepage("https://acme-assets.s3.amazonaws.com/about"))
	require.False(t, IsValidHomepage("not a url %%%"))
}
