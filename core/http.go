package core

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
)

const maxRedirectCount = 10

// userAgent identifies the tool on outgoing requests. Callers can override
// it through Config.RequestHeader.
const userAgent = "pagewatch/" + Version

const Version = "0.1.0"

type client interface {
	Get(ctx context.Context, url string) (*Record, error)
}

type httpClient struct {
	resty *resty.Client
}

func newHTTPClient(config *Config) *httpClient {
	bare := config.HTTPClient
	if bare == nil {
		bare = &http.Client{}
	}
	rc := resty.NewWithClient(bare).
		SetTimeout(config.Timeout).
		SetHeader("User-Agent", userAgent).
		SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirectCount))
	for name, values := range config.RequestHeader {
		for _, value := range values {
			rc.Header.Add(name, value)
		}
	}
	return &httpClient{resty: rc}
}

// Get fetches url and snapshots the exchange into a Record. Redirects are
// followed; the record's URL is the final one that served content. Status
// codes are recorded as-is, never judged here.
func (c *httpClient) Get(ctx context.Context, url string) (*Record, error) {
	resp, err := c.resty.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	record := &Record{
		URL:        url,
		RequestURL: url,
		Status:     resp.Status(),
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
		FetchedAt:  resp.ReceivedAt(),
	}
	if raw := resp.RawResponse; raw != nil {
		record.Proto = raw.Proto
		if raw.Request != nil && raw.Request.URL != nil {
			record.URL = raw.Request.URL.String()
		}
	}
	return record, nil
}
