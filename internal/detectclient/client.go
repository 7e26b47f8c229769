// Package detectclient talks to the authentication-component detection
// service over HTTP.
package detectclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Bahjat/auth-insight-tool/internal/model"
	"github.com/Bahjat/auth-insight-tool/internal/platform/errs"
	"github.com/Bahjat/auth-insight-tool/internal/platform/requestid"
)

const (
	scrapePath     = "/api/scrape"
	predefinedPath = "/api/predefined"
	userAgent      = "AuthInsightClient/1.0"

	// maxResponseBody bounds a decoded response. Snippets can be large but
	// five full login forms stay far below this.
	maxResponseBody = 16 << 20
)

// Client calls the detection service endpoints.
type Client struct {
	baseURL *url.URL
	client  *http.Client
}

// New returns a Client for the service rooted at baseURL. The timeout covers
// the whole request including the service's own page fetches.
func New(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("detectclient: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("detectclient: unsupported scheme %q", u.Scheme)
	}

	return &Client{
		baseURL: u,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   10 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Scrape asks the service to detect the auth component of targetURL.
func (c *Client) Scrape(ctx context.Context, targetURL string) (*model.ResultRecord, error) {
	body, err := json.Marshal(model.ScrapeRequest{URL: targetURL})
	if err != nil {
		return nil, err
	}

	var rec model.ResultRecord
	if err := c.do(ctx, http.MethodPost, scrapePath, bytes.NewReader(body), &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Predefined runs detection over the service's fixed URL list. A response
// without a results field yields an empty, non-nil slice.
func (c *Client) Predefined(ctx context.Context) ([]model.ResultRecord, error) {
	var resp model.BatchResponse
	if err := c.do(ctx, http.MethodGet, predefinedPath, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Results == nil {
		return []model.ResultRecord{}, nil
	}
	return resp.Results, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	endpoint := c.baseURL.JoinPath(path)

	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), body)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	limited := io.LimitReader(resp.Body, maxResponseBody)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return rejectedError(resp.StatusCode, limited)
	}

	if err := json.NewDecoder(limited).Decode(out); err != nil {
		return &errs.AppError{
			Kind:           errs.ParsingFailed,
			UpstreamStatus: resp.StatusCode,
			Cause:          err,
		}
	}
	return nil
}

// rejectedError reads the error payload of a non-2xx response. The message is
// the payload's detail, else its error field, else empty.
func rejectedError(status int, body io.Reader) error {
	var payload model.ErrorResponse
	// Non-JSON error bodies (proxies, HTML error pages) leave payload empty.
	_ = json.NewDecoder(body).Decode(&payload)

	return &errs.AppError{
		Kind:           errs.Rejected,
		UpstreamStatus: status,
		Message:        payload.Message(),
	}
}

func transportError(err error) error {
	kind := errs.Unreachable
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = errs.Timeout
	}
	return &errs.AppError{Kind: kind, Cause: err}
}
