package detector

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// fetcherFunc adapts a function to the Fetcher interface.
type fetcherFunc func(ctx context.Context, target string) (io.ReadCloser, int, error)

func (f fetcherFunc) Fetch(ctx context.Context, target string) (io.ReadCloser, int, error) {
	return f(ctx, target)
}

func TestEngine_DetectAll_PreservesOrder(t *testing.T) {
	urls := make([]string, 12)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example.com/login", i)
	}

	static := fetcherFunc(func(_ context.Context, target string) (io.ReadCloser, int, error) {
		// Earlier URLs finish later so completion order differs from input order.
		var n int
		_, _ = fmt.Sscanf(target, "https://site%d.", &n)
		time.Sleep(time.Duration(len(urls)-n) * time.Millisecond)
		return io.NopCloser(strings.NewReader(htmlPage(loginForm))), 200, nil
	})

	results := newTestEngine(static, nil).DetectAll(context.Background(), urls, 4)

	if len(results) != len(urls) {
		t.Fatalf("len(results) = %d, want %d", len(results), len(urls))
	}
	for i, rec := range results {
		if rec.URL != urls[i] {
			t.Errorf("results[%d].URL = %q, want %q", i, rec.URL, urls[i])
		}
		if !rec.Success {
			t.Errorf("results[%d] failed: %s", i, rec.Error)
		}
	}
}

func TestEngine_DetectAll_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	static := fetcherFunc(func(_ context.Context, _ string) (io.ReadCloser, int, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		return io.NopCloser(strings.NewReader(htmlPage(""))), 200, nil
	})

	urls := make([]string, 10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example.com/login", i)
	}

	newTestEngine(static, nil).DetectAll(context.Background(), urls, 2)

	if got := peak.Load(); got > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", got)
	}
}

func TestEngine_DetectAll_MixedResults(t *testing.T) {
	static := fetcherFunc(func(_ context.Context, target string) (io.ReadCloser, int, error) {
		if strings.Contains(target, "down") {
			return nil, 0, errConnectionRefused
		}
		return io.NopCloser(strings.NewReader(htmlPage(loginForm))), 200, nil
	})

	urls := []string{"https://up.example.com/login", "https://down.example.com/login", "not a url://"}
	results := newTestEngine(static, nil).DetectAll(context.Background(), urls, 0)

	if !results[0].Success {
		t.Errorf("results[0] = %+v, want success", results[0])
	}
	if results[1].Success || results[1].Error != msgUnreachable {
		t.Errorf("results[1] = %+v, want %q", results[1], msgUnreachable)
	}
	if results[2].Success || results[2].Error != msgInvalidURL {
		t.Errorf("results[2] = %+v, want %q", results[2], msgInvalidURL)
	}
}

func TestEngine_DetectAll_Limits(t *testing.T) {
	var calls atomic.Int32
	static := fetcherFunc(func(_ context.Context, _ string) (io.ReadCloser, int, error) {
		calls.Add(1)
		return io.NopCloser(strings.NewReader(htmlPage(""))), 200, nil
	})
	engine := newTestEngine(static, nil)

	if got := engine.DetectAll(context.Background(), nil, 3); len(got) != 0 {
		t.Errorf("DetectAll(nil) returned %d results, want 0", len(got))
	}

	urls := make([]string, maxBatchURLs+10)
	for i := range urls {
		urls[i] = fmt.Sprintf("https://site%d.example.com/login", i)
	}
	got := engine.DetectAll(context.Background(), urls, 8)
	if len(got) != maxBatchURLs {
		t.Errorf("len(results) = %d, want %d", len(got), maxBatchURLs)
	}
	if int(calls.Load()) != maxBatchURLs {
		t.Errorf("fetches = %d, want %d", calls.Load(), maxBatchURLs)
	}
}
