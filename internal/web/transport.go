package web

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
)

const RequestTimeout = 20 * time.Second

// Transport fetches the body of a URL.
type Transport interface {
	Get(ctx context.Context, rawURL string) (string, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, rawURL string) (string, error)

func (f TransportFunc) Get(ctx context.Context, rawURL string) (string, error) { return f(ctx, rawURL) }

// CollyTransport is a Transport backed by a colly collector.
type CollyTransport struct {
	c *colly.Collector
}

func NewCollyTransport() *CollyTransport {
	c := colly.NewCollector(
		colly.AllowURLRevisit(),
		colly.Async(false),
		// 0 lifts colly's default 10MB cap.
		colly.MaxBodySize(0),
		// Error pages are still pages: their bodies are returned and cached.
		colly.ParseHTTPErrorResponse(),
	)
	c.SetRequestTimeout(RequestTimeout)
	return &CollyTransport{c: c}
}

// Get visits rawURL and returns the response body as text, whatever the
// status code. Only failures to get a response at all are errors.
func (t *CollyTransport) Get(ctx context.Context, rawURL string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return "", errors.New("url must start with http:// or https://")
	}
	// Clone keeps the configuration but not the callbacks, so each call
	// gets its own OnResponse.
	c := t.c.Clone()
	c.Context = ctx
	c.OnRequest(setBrowserHeaders)

	var body []byte
	c.OnResponse(func(r *colly.Response) {
		body = append([]byte(nil), r.Body...)
	})
	if err := c.Visit(rawURL); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return string(body), nil
}

func setBrowserHeaders(r *colly.Request) {
	r.Headers.Set("User-Agent", NextUserAgent())
	r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	r.Headers.Set("Accept-Language", "en-US,en;q=0.9")
}
