package controller

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/Bahjat/auth-insight-tool/internal/model"
	"github.com/Bahjat/auth-insight-tool/internal/platform/errs"
)

var errConnectionRefused = errors.New("connection refused")

// mockDetector implements Detector for testing.
type mockDetector struct {
	mu          sync.Mutex
	scrapeCalls []string
	batchCalls  int

	rec     *model.ResultRecord
	results []model.ResultRecord
	err     error

	// block, when set, is waited on inside each call.
	block   chan struct{}
	entered chan struct{}
}

func (m *mockDetector) Scrape(_ context.Context, target string) (*model.ResultRecord, error) {
	m.mu.Lock()
	m.scrapeCalls = append(m.scrapeCalls, target)
	m.mu.Unlock()
	m.wait()
	return m.rec, m.err
}

func (m *mockDetector) Predefined(_ context.Context) ([]model.ResultRecord, error) {
	m.mu.Lock()
	m.batchCalls++
	m.mu.Unlock()
	m.wait()
	return m.results, m.err
}

func (m *mockDetector) wait() {
	if m.entered != nil {
		m.entered <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}
}

func newTestController(d Detector) *Controller {
	return New(d, slog.Default())
}

func TestSubmitSingle_EmptyInput(t *testing.T) {
	for _, raw := range []string{"", "   ", "\t\n"} {
		d := &mockDetector{}
		c := newTestController(d)

		err := c.SubmitSingle(context.Background(), raw)
		if !errors.Is(err, ErrEmptyURL) {
			t.Errorf("SubmitSingle(%q) error = %v, want ErrEmptyURL", raw, err)
		}
		if len(d.scrapeCalls) != 0 {
			t.Errorf("SubmitSingle(%q) issued %d requests", raw, len(d.scrapeCalls))
		}
		s := c.Snapshot()
		if s.SingleLoading || s.Single != nil {
			t.Errorf("state after validation failure = %+v", s)
		}
	}
}

func TestSubmitSingle_StoresResultVerbatim(t *testing.T) {
	rec := &model.ResultRecord{
		URL:           "https://example.com/login",
		Success:       true,
		AuthComponent: &model.AuthComponent{Found: true, PasswordInput: "<input type=password>"},
	}
	d := &mockDetector{rec: rec}
	c := newTestController(d)

	if err := c.SubmitSingle(context.Background(), "  https://example.com/login \n"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(d.scrapeCalls) != 1 || d.scrapeCalls[0] != "https://example.com/login" {
		t.Errorf("scrape calls = %q, want trimmed URL", d.scrapeCalls)
	}
	s := c.Snapshot()
	if s.SingleLoading {
		t.Error("loading flag still set")
	}
	if s.Single == nil || s.Single.AuthComponent.PasswordInput != "<input type=password>" {
		t.Errorf("Single = %+v", s.Single)
	}
}

func TestSubmitSingle_FailureMessagePriority(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{name: "service message", err: &errs.AppError{Kind: errs.Rejected, UpstreamStatus: 400, Message: "Please provide url parameter"}, wantMsg: "Please provide url parameter"},
		{name: "rejected without message", err: &errs.AppError{Kind: errs.Rejected, UpstreamStatus: 500}, wantMsg: "Request failed"},
		{name: "transport error", err: &errs.AppError{Kind: errs.Unreachable, Cause: errConnectionRefused}, wantMsg: "Request failed"},
		{name: "plain error", err: errConnectionRefused, wantMsg: "Request failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestController(&mockDetector{err: tt.err})

			if err := c.SubmitSingle(context.Background(), " https://down.example "); err != nil {
				t.Fatalf("service failure must not be returned, got %v", err)
			}

			s := c.Snapshot()
			if s.SingleLoading {
				t.Error("loading flag still set")
			}
			want := model.ResultRecord{URL: "https://down.example", Success: false, Error: tt.wantMsg}
			if s.Single == nil || *s.Single != want {
				t.Errorf("Single = %+v, want %+v", s.Single, want)
			}
		})
	}
}

func TestSubmitSingle_LoadingFlagDuringRequest(t *testing.T) {
	d := &mockDetector{
		rec:     &model.ResultRecord{URL: "u", Success: true},
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	c := newTestController(d)

	// Seed a previous result that must be cleared on submit.
	prev := &model.ResultRecord{URL: "old"}
	c.state.Single = prev

	done := make(chan error)
	go func() { done <- c.SubmitSingle(context.Background(), "u") }()

	<-d.entered
	s := c.Snapshot()
	if !s.SingleLoading {
		t.Error("SingleLoading = false while request in flight")
	}
	if s.Single != nil {
		t.Error("previous single result not cleared")
	}
	if s.BatchLoading {
		t.Error("single flow touched batch loading flag")
	}

	close(d.block)
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	if c.Snapshot().SingleLoading {
		t.Error("loading flag not cleared")
	}
}

func TestSubmitBatch_Success(t *testing.T) {
	d := &mockDetector{results: []model.ResultRecord{
		{URL: "a", Success: true, AuthComponent: &model.AuthComponent{Found: true}},
		{URL: "b", Success: false, Error: "timeout"},
	}}
	c := newTestController(d)

	if err := c.SubmitBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s := c.Snapshot()
	if len(s.Batch) != 2 || s.Batch[1].Error != "timeout" {
		t.Errorf("Batch = %+v", s.Batch)
	}
	if s.BatchLoading || s.BatchNotice != "" {
		t.Errorf("state = %+v", s)
	}
}

func TestSubmitBatch_NilResults(t *testing.T) {
	c := newTestController(&mockDetector{results: nil})

	if err := c.SubmitBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s := c.Snapshot(); len(s.Batch) != 0 || s.BatchNotice != "" {
		t.Errorf("state = %+v", s)
	}
}

func TestSubmitBatch_FailureLeavesListEmpty(t *testing.T) {
	d := &mockDetector{
		results: []model.ResultRecord{{URL: "partial"}},
		err:     &errs.AppError{Kind: errs.Rejected, UpstreamStatus: 502, Message: "Bad Gateway"},
	}
	c := newTestController(d)
	c.state.Batch = []model.ResultRecord{{URL: "previous"}}

	err := c.SubmitBatch(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	s := c.Snapshot()
	if len(s.Batch) != 0 {
		t.Errorf("Batch = %+v, want empty", s.Batch)
	}
	if s.BatchNotice != "Failed to scrape predefined websites: Bad Gateway" {
		t.Errorf("BatchNotice = %q", s.BatchNotice)
	}
	if s.BatchLoading {
		t.Error("loading flag not cleared")
	}
	if !strings.Contains(err.Error(), "Bad Gateway") {
		t.Errorf("error = %v", err)
	}
}

func TestSubmitBatch_FailureFallbackNotice(t *testing.T) {
	c := newTestController(&mockDetector{err: errConnectionRefused})

	_ = c.SubmitBatch(context.Background())
	if got := c.Snapshot().BatchNotice; got != "Failed to scrape predefined websites: Unknown error" {
		t.Errorf("BatchNotice = %q", got)
	}

	// A later successful run clears the notice.
	c.detector = &mockDetector{results: []model.ResultRecord{}}
	if err := c.SubmitBatch(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().BatchNotice; got != "" {
		t.Errorf("BatchNotice = %q, want cleared", got)
	}
}

func TestFlowsRunConcurrently(t *testing.T) {
	d := &mockDetector{
		rec:     &model.ResultRecord{URL: "u", Success: true},
		results: []model.ResultRecord{},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c := newTestController(d)

	var wg sync.WaitGroup
	wg.Go(func() { _ = c.SubmitSingle(context.Background(), "u") })
	wg.Go(func() { _ = c.SubmitBatch(context.Background()) })

	<-d.entered
	<-d.entered
	s := c.Snapshot()
	if !s.SingleLoading || !s.BatchLoading {
		t.Errorf("both flags should be set while both flows are in flight: %+v", s)
	}

	close(d.block)
	wg.Wait()

	s = c.Snapshot()
	if s.SingleLoading || s.BatchLoading {
		t.Errorf("flags not cleared: %+v", s)
	}
}

func TestSubmitSingle_NoInFlightGuard(t *testing.T) {
	d := &mockDetector{
		rec:     &model.ResultRecord{URL: "u", Success: true},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 2),
	}
	c := newTestController(d)

	var wg sync.WaitGroup
	for range 2 {
		wg.Go(func() { _ = c.SubmitSingle(context.Background(), "u") })
	}
	<-d.entered
	<-d.entered
	close(d.block)
	wg.Wait()

	if len(d.scrapeCalls) != 2 {
		t.Errorf("scrape calls = %d, want 2", len(d.scrapeCalls))
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := newTestController(&mockDetector{results: []model.ResultRecord{{URL: "a"}}})
	_ = c.SubmitBatch(context.Background())

	s := c.Snapshot()
	s.Batch[0].URL = "mutated"
	if c.Snapshot().Batch[0].URL != "a" {
		t.Error("Snapshot exposed internal slice")
	}
}
