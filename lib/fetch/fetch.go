package fetch

import "context"

// Class is the classification of a single fetch attempt. Fetchers map
// transport-level detail (status codes, driver errors) onto this closed set
// so the retry controller never needs to know how a page was fetched.
type Class int

const (
	Success Class = iota
	RateLimited
	CreditsExhausted
	NotFound
	// EndOfPages is produced by the controller, never by a fetcher: a
	// NotFound past the first page of a paginated target is the expected
	// end-of-pagination signal, not an error.
	EndOfPages
	ServerError
	MalformedRequest
	TransportError
)

func (c Class) String() string {
	switch c {
	case Success:
		return "success"
	case RateLimited:
		return "rate_limited"
	case CreditsExhausted:
		return "credits_exhausted"
	case NotFound:
		return "not_found"
	case EndOfPages:
		return "end_of_pages"
	case ServerError:
		return "server_error"
	case MalformedRequest:
		return "malformed_request"
	case TransportError:
		return "transport_error"
	}
	return "unknown"
}

type Outcome struct {
	Class Class
	// Body is only set on Success.
	Body string
	// Err is only set on TransportError.
	Err error
}

// Strategy hints let the controller ask a fetcher to vary how it makes the
// next attempt after repeated server errors.
type Strategy int

const (
	StrategyDefault Strategy = iota
	// StrategyNoRender asks the fetcher to skip heavyweight javascript
	// rendering, which succeeds more often on flaky upstreams.
	StrategyNoRender
	// StrategyAltRegion asks the fetcher to pin an alternate region code
	// for international targets.
	StrategyAltRegion
)

// Request describes one attempt. The URL field holds the target identifier,
// which may be a plain search query for search fetchers.
type Request struct {
	URL      string
	Attempt  int
	Strategy Strategy
}

type Fetcher interface {
	Fetch(ctx context.Context, req Request) Outcome
}

type FetcherFunc func(ctx context.Context, req Request) Outcome

func (f FetcherFunc) Fetch(ctx context.Context, req Request) Outcome {
	return f(ctx, req)
}
